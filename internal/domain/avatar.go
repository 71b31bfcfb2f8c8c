package domain

import "errors"

var (
	ErrAvatarTypeNotSupported = errors.New("avatar image type not supported")
	ErrAvatarTypeMismatch     = errors.New("avatar extension does not match content")
	ErrAvatarTooLarge         = errors.New("avatar too large")
	ErrNoAvatar               = errors.New("no avatar")
)

// Avatar is a profile picture together with its detected MIME type.
type Avatar struct {
	ID       BlobID
	OwnerID  string
	MIMEType string
	Data     []byte
}
