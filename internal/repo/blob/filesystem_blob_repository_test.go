package blob_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mkrupp/fintrack/internal/domain"

	. "github.com/mkrupp/fintrack/internal/repo/blob"
)

func setupFileSystemBlobTestRepo(t *testing.T) (*FileSystemRepository, string) {
	t.Helper()

	tempDir := t.TempDir()

	repo, err := NewFileSystemBlobRepository(context.TODO(), "avatars", "png", FileSystemBlobRepositoryConfig{
		Basedir: tempDir,
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}

	return repo, tempDir
}

func TestFileSystemBlobRepository_GetFilename(t *testing.T) {
	t.Parallel()

	repo, tempDir := setupFileSystemBlobTestRepo(t)

	tests := []struct {
		name string
		id   domain.BlobID
		want string
	}{
		{
			name: "fans out long ids",
			id:   "abcdefgh",
			want: filepath.Join(tempDir, "avatars", "ab", "cd", "ef", "abcdefgh.png"),
		},
		{
			name: "pads short ids",
			id:   "xyz",
			want: filepath.Join(tempDir, "avatars", "00", "0x", "yz", "000xyz.png"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := repo.GetFilename(tt.id); got != tt.want {
				t.Errorf("GetFilename() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFileSystemBlobRepository_StoreFetch(t *testing.T) {
	t.Parallel()

	repo, _ := setupFileSystemBlobTestRepo(t)
	ctx := context.TODO()

	tests := []struct {
		name string
		blob *domain.Blob
	}{
		{name: "handles new blob", blob: domain.NewBlob("existingblob", []byte("original content"))},
		{name: "handles existing blob", blob: domain.NewBlob("existingblob", []byte("new"))},
		{name: "handles empty blob", blob: domain.NewBlob("emptyblob", []byte{})},
		{name: "handles large blob", blob: domain.NewBlob("largeblob", bytes.Repeat([]byte{0x42}, 1<<20))},
	}

	//nolint:paralleltest
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := repo.Store(ctx, tt.blob); err != nil {
				t.Fatalf("Store() error = %v", err)
			}

			if !repo.Exists(ctx, tt.blob.ID) {
				t.Fatal("Exists() = false after Store()")
			}

			got, err := repo.Fetch(ctx, tt.blob.ID)
			if err != nil {
				t.Fatalf("Fetch() error = %v", err)
			}

			if !bytes.Equal(got.Body, tt.blob.Body) {
				t.Errorf("Fetch() body has %d bytes, want %d", got.Size(), tt.blob.Size())
			}
		})
	}

	t.Run("missing blob", func(t *testing.T) {
		_, err := repo.Fetch(ctx, "missingblob")
		if !errors.Is(err, domain.ErrBlobNotFound) {
			t.Errorf("Fetch() error = %v, want %v", err, domain.ErrBlobNotFound)
		}
	})
}

func TestFileSystemBlobRepository_Delete(t *testing.T) {
	t.Parallel()

	repo, _ := setupFileSystemBlobTestRepo(t)
	ctx := context.TODO()

	if err := repo.Store(ctx, domain.NewBlob("deleteme", []byte("x"))); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	if err := repo.Delete(ctx, "deleteme"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := os.Stat(repo.GetFilename("deleteme")); !os.IsNotExist(err) {
		t.Error("expected file to be deleted, but it still exists")
	}

	if err := repo.Delete(ctx, "deleteme"); !errors.Is(err, domain.ErrBlobNotFound) {
		t.Errorf("Delete() error = %v, want %v", err, domain.ErrBlobNotFound)
	}
}

func TestFileSystemBlobRepository_DeleteAll(t *testing.T) {
	t.Parallel()

	repo, _ := setupFileSystemBlobTestRepo(t)
	ctx := context.TODO()

	ids := []domain.BlobID{"original", "original_64", "original_128", "otherblob"}
	for _, id := range ids {
		if err := repo.Store(ctx, domain.NewBlob(id, []byte(id))); err != nil {
			t.Fatalf("Store(%s) error = %v", id, err)
		}
	}

	if err := repo.DeleteAll(ctx, "original", "_*"); err != nil {
		t.Fatalf("DeleteAll() error = %v", err)
	}

	for _, id := range ids {
		want := strings.HasPrefix(string(id), "other")
		if got := repo.Exists(ctx, id); got != want {
			t.Errorf("Exists(%s) = %v, want %v", id, got, want)
		}
	}
}

func TestFileSystemBlobRepository_Lock(t *testing.T) {
	t.Parallel()

	repo, _ := setupFileSystemBlobTestRepo(t)
	ctx := context.TODO()

	unlock1, err := repo.Lock(ctx, "sharedlock", false)
	if err != nil {
		t.Fatalf("failed to acquire first shared lock: %v", err)
	}

	unlock2, err := repo.Lock(ctx, "sharedlock", false)
	if err != nil {
		t.Fatalf("failed to acquire second shared lock: %v", err)
	}

	unlock1()
	unlock2()

	unlock3, err := repo.Lock(ctx, "sharedlock", true)
	if err != nil {
		t.Fatalf("failed to reacquire exclusive lock: %v", err)
	}

	unlock3()
}
