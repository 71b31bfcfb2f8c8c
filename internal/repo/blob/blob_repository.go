// Package blob stores opaque binary objects such as avatar images.
package blob

import (
	"context"

	"github.com/mkrupp/fintrack/internal/domain"
)

// Repository defines the interface for blob storage operations.
type Repository interface {
	// Lock acquires a lock on the blob with the given ID.
	// If exclusive is true, acquires a write lock, otherwise a read lock.
	// The returned function releases the lock.
	Lock(ctx context.Context, id domain.BlobID, exclusive bool) (func(), error)

	// Exists checks if a blob with the given ID exists.
	Exists(ctx context.Context, id domain.BlobID) bool

	// Store persists a blob, replacing any blob with the same ID.
	Store(ctx context.Context, blob *domain.Blob) error

	// Fetch retrieves a blob by its ID.
	// Returns domain.ErrBlobNotFound if there is none.
	Fetch(ctx context.Context, id domain.BlobID) (*domain.Blob, error)

	// Delete removes a blob. Returns domain.ErrBlobNotFound if there is none.
	Delete(ctx context.Context, id domain.BlobID) error

	// DeleteAll removes the blob and all variants whose ID is the given ID
	// followed by a suffix matching pattern (filepath.Match syntax).
	DeleteAll(ctx context.Context, id domain.BlobID, pattern string) error
}

// RepositoryFactory creates a Repository keeping blobs of one kind under
// name, stored with the file extension ext.
type RepositoryFactory func(
	ctx context.Context,
	name string,
	ext string,
) (Repository, error)
