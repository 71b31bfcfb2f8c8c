package authclient

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/mkrupp/fintrack/internal/domain"
)

// RecoveryLink holds the tokens carried by a password recovery link.
type RecoveryLink struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// ParseRecoveryLink reads the tokens from the fragment of a recovery link.
// The access token may be named access_token or token; without one the link is
// rejected with domain.ErrInvalidRecoveryLink.
func ParseRecoveryLink(raw string) (RecoveryLink, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return RecoveryLink{}, fmt.Errorf("%w: %w", domain.ErrInvalidRecoveryLink, err)
	}

	values, err := url.ParseQuery(u.Fragment)
	if err != nil {
		return RecoveryLink{}, fmt.Errorf("%w: %w", domain.ErrInvalidRecoveryLink, err)
	}

	link := RecoveryLink{
		AccessToken:  values.Get("access_token"),
		RefreshToken: values.Get("refresh_token"),
	}

	if link.AccessToken == "" {
		link.AccessToken = values.Get("token")
	}

	if link.AccessToken == "" {
		return RecoveryLink{}, domain.ErrInvalidRecoveryLink
	}

	if expiresIn := values.Get("expires_in"); expiresIn != "" {
		if link.ExpiresIn, err = strconv.ParseInt(expiresIn, 10, 64); err != nil {
			return RecoveryLink{}, fmt.Errorf("%w: expires_in: %w", domain.ErrInvalidRecoveryLink, err)
		}
	}

	return link, nil
}
