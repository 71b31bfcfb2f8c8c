package avatarsvc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/fintrack/internal/domain"
	"github.com/mkrupp/fintrack/internal/svc/avatarsvc"
)

func TestDetectType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		filename string
		data     string
		want     string
		wantErr  error
	}{
		{"jpeg", "a.jpg", "\xFF\xD8\xFF\xE0", avatarsvc.MIMETypeJPEG, nil},
		{"jpeg long ext", "a.JPEG", "\xFF\xD8\xFF\xE0", avatarsvc.MIMETypeJPEG, nil},
		{"png", "a.png", "\x89PNG\r\n\x1a\n....", avatarsvc.MIMETypePNG, nil},
		{"tiff little endian", "a.tif", "II*\x00", avatarsvc.MIMETypeTIFF, nil},
		{"tiff big endian", "a.tiff", "MM\x00*", avatarsvc.MIMETypeTIFF, nil},
		{"no extension", "avatar", "\xFF\xD8", "", domain.ErrAvatarTypeNotSupported},
		{"gif", "a.gif", "GIF89a", "", domain.ErrAvatarTypeNotSupported},
		{"png named jpg", "a.jpg", "\x89PNG\r\n\x1a\n", "", domain.ErrAvatarTypeMismatch},
		{"empty", "a.png", "", "", domain.ErrAvatarTypeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := avatarsvc.DetectType(tt.filename, []byte(tt.data))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
