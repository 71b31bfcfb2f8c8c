package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/mkrupp/fintrack/internal/domain"
	"github.com/mkrupp/fintrack/internal/infra/logging"
)

const (
	dirPrefixLength = 2
	dirPrefixDepth  = 3
	idMinLength     = dirPrefixDepth * dirPrefixLength
)

// FileSystemBlobRepositoryConfig holds configuration for the filesystem-based blob repository.
type FileSystemBlobRepositoryConfig struct {
	Basedir string `env:"BASEDIR" envDefault:"var/storage/blob"`
}

// FileSystemBlobRepositoryFactory returns a RepositoryFactory producing filesystem repositories.
func FileSystemBlobRepositoryFactory(cfg FileSystemBlobRepositoryConfig) RepositoryFactory {
	return func(ctx context.Context, subdir string, ext string) (Repository, error) {
		return NewFileSystemBlobRepository(ctx, subdir, ext, cfg)
	}
}

// NewFileSystemBlobRepository creates the storage directory and returns a repository
// keeping blobs below cfg.Basedir/subdir.
func NewFileSystemBlobRepository(
	ctx context.Context,
	subdir string,
	ext string,
	cfg FileSystemBlobRepositoryConfig,
) (*FileSystemRepository, error) {
	log := logging.GetLogger("repo.blob.filesystem_repository").With(
		logging.Group("repo", "basedir", cfg.Basedir, "subdir", subdir, "ext", ext),
	)

	repo := &FileSystemRepository{
		root: filepath.Join(cfg.Basedir, subdir),
		ext:  ext,
		log:  log,
	}

	if err := os.MkdirAll(repo.root, 0o755); err != nil {
		log.ErrorContext(ctx, "init storage failed", "error", err)

		return nil, fmt.Errorf("mkdir all: %w", err)
	}

	return repo, nil
}

// FileSystemRepository implements Repository on the local filesystem.
// Blobs are fanned out into nested two-character directories taken from the id,
// e.g. root/ab/cd/ef/abcdef123.png.
type FileSystemRepository struct {
	root string
	ext  string
	log  logging.Logger
}

var _ Repository = (*FileSystemRepository)(nil)

// GetFilename returns the full filesystem path for a blob with the given ID.
func (fsRepo *FileSystemRepository) GetFilename(id domain.BlobID) string {
	return fsRepo.getBasename(id) + "." + fsRepo.ext
}

func (fsRepo *FileSystemRepository) getBasename(id domain.BlobID) string {
	basename := strings.ReplaceAll(string(id), string(filepath.Separator), "")
	if len(basename) < idMinLength {
		basename = strings.Repeat("0", idMinLength-len(basename)) + basename
	}

	parts := []string{fsRepo.root}

	for i := 0; i < idMinLength; i += dirPrefixLength {
		parts = append(parts, basename[i:i+dirPrefixLength])
	}

	return filepath.Join(append(parts, basename)...)
}

func (fsRepo *FileSystemRepository) Lock(ctx context.Context, id domain.BlobID, exclusive bool) (release func(), err error) {
	lockfile := fsRepo.getBasename(id) + ".lock"
	log := fsRepo.log.With(logging.Group("blob", "id", id, "lockfile", lockfile))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "lock failed", "error", err)
		} else {
			log.DebugContext(ctx, "lock acquired", "exclusive", exclusive)
		}
	}()

	if err := os.MkdirAll(filepath.Dir(lockfile), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir all: %w", err)
	}

	file, err := os.OpenFile(lockfile, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lockfile: %w", err)
	}

	mode := syscall.LOCK_SH
	if exclusive {
		mode = syscall.LOCK_EX
	}

	if err := syscall.Flock(int(file.Fd()), mode); err != nil {
		_ = file.Close()

		return nil, fmt.Errorf("flock: %w", err)
	}

	return func() {
		_ = syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		_ = file.Close()

		log.DebugContext(ctx, "lock released")
	}, nil
}

func (fsRepo *FileSystemRepository) Exists(ctx context.Context, id domain.BlobID) bool {
	_, err := os.Stat(fsRepo.GetFilename(id))

	return err == nil
}

func (fsRepo *FileSystemRepository) Store(ctx context.Context, blob *domain.Blob) (err error) {
	filename := fsRepo.GetFilename(blob.ID)

	defer func() {
		log := fsRepo.log.With(logging.Group("blob", "id", blob.ID, "filename", filename))
		if err != nil {
			log.ErrorContext(ctx, "blob store failed", "error", err)
		} else {
			log.DebugContext(ctx, "blob stored", "size", blob.Size())
		}
	}()

	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("mkdir all: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(filename), ".blob-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(blob.Body); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("write: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("sync: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}

	if err := os.Rename(tmp.Name(), filename); err != nil {
		return fmt.Errorf("rename: %w", err)
	}

	return nil
}

func (fsRepo *FileSystemRepository) Fetch(ctx context.Context, id domain.BlobID) (blob *domain.Blob, err error) {
	filename := fsRepo.GetFilename(id)

	defer func() {
		log := fsRepo.log.With(logging.Group("blob", "id", id, "filename", filename))
		if err != nil {
			log.DebugContext(ctx, "blob fetch failed", "error", err)
		} else {
			log.DebugContext(ctx, "blob fetched", "size", blob.Size())
		}
	}()

	body, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = errors.Join(domain.ErrBlobNotFound, err)
		}

		return nil, fmt.Errorf("read file: %w", err)
	}

	return domain.NewBlob(id, body), nil
}

func (fsRepo *FileSystemRepository) Delete(ctx context.Context, id domain.BlobID) (err error) {
	filename := fsRepo.GetFilename(id)

	defer func() {
		log := fsRepo.log.With(logging.Group("blob", "id", id, "filename", filename))
		if err != nil {
			log.ErrorContext(ctx, "blob delete failed", "error", err)
		} else {
			log.DebugContext(ctx, "blob deleted")
		}
	}()

	if err := os.Remove(filename); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = errors.Join(domain.ErrBlobNotFound, err)
		}

		return fmt.Errorf("remove: %w", err)
	}

	return nil
}

func (fsRepo *FileSystemRepository) DeleteAll(ctx context.Context, id domain.BlobID, pattern string) (err error) {
	defer func() {
		log := fsRepo.log.With(logging.Group("blob", "id", id, "pattern", pattern))
		if err != nil {
			log.ErrorContext(ctx, "blob delete pattern failed", "error", err)
		} else {
			log.DebugContext(ctx, "blob pattern deleted")
		}
	}()

	basename := fsRepo.getBasename(id)

	matches, err := filepath.Glob(basename + pattern + "." + fsRepo.ext)
	if err != nil {
		return fmt.Errorf("glob: %w", err)
	}

	if fsRepo.Exists(ctx, id) {
		matches = append(matches, fsRepo.GetFilename(id))
	}

	for _, filename := range matches {
		if err := os.Remove(filename); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove: %w", err)
		}
	}

	return nil
}
