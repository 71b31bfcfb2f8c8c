// Package avatarsvc stores profile pictures and serves resized variants of them.
package avatarsvc

import (
	"context"

	"github.com/mkrupp/fintrack/internal/domain"
)

// AvatarService manages one avatar per owner.
type AvatarService interface {
	// Store replaces the owner's avatar. The filename's extension selects the
	// image type, which the content has to match.
	Store(ctx context.Context, ownerID string, filename string, data []byte) (*domain.Avatar, error)

	// Fetch returns the owner's avatar. A non-zero width returns a variant
	// scaled down to that width. Returns domain.ErrNoAvatar if the owner has none.
	Fetch(ctx context.Context, ownerID string, width int) (*domain.Avatar, error)

	// Delete removes the owner's avatar. Returns domain.ErrNoAvatar if the owner has none.
	Delete(ctx context.Context, ownerID string) error

	// MaxSize returns the largest accepted upload in bytes.
	MaxSize() int64
}
