package authclient_test

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/fintrack/internal/domain"
	"github.com/mkrupp/fintrack/internal/repo/session"
	"github.com/mkrupp/fintrack/internal/repo/user"
	"github.com/mkrupp/fintrack/internal/svc/authsvc"
	"github.com/mkrupp/fintrack/internal/svc/authsvc/authclient"
)

// captureMailer keeps the last recovery link.
type captureMailer struct {
	link string
}

func (m *captureMailer) SendRecoveryLink(_ context.Context, _ string, link string) error {
	m.link = link

	return nil
}

func newAuthServer(t *testing.T) (*authclient.HTTPClient, *captureMailer) {
	t.Helper()

	dir := t.TempDir()
	mailer := &captureMailer{}

	svc, err := authsvc.NewAuthService(context.TODO(),
		user.SQLiteUserRepositoryFactory(user.SQLiteUserRepositoryConfig{
			DatabasePath: filepath.Join(dir, "users.db"),
		}),
		session.SQLiteSessionRepositoryFactory(session.SQLiteSessionRepositoryConfig{
			DatabasePath: filepath.Join(dir, "sessions.db"),
		}),
		mailer,
		authsvc.AuthConfig{
			SigningKeyFile:      filepath.Join(dir, "authsvc.key"),
			AccessTokenTTL:      time.Hour,
			RefreshTokenTTL:     time.Hour,
			RecoveryTokenTTL:    time.Hour,
			RecoveryRedirectURL: "fintrack://reset-password",
			Password:            authsvc.PasswordConfig{Memory: 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32},
		},
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	server := httptest.NewServer(authsvc.NewHTTPTransport(svc, authsvc.HTTPTransportConfig{}))
	t.Cleanup(server.Close)

	return authclient.NewHTTPClient(authclient.HTTPClientConfig{AuthURL: server.URL}, server.Client()), mailer
}

func TestHTTPClient_Provider(t *testing.T) {
	t.Parallel()

	ctx := context.TODO()
	client, mailer := newAuthServer(t)
	store := authclient.NewFileSessionStore(filepath.Join(t.TempDir(), "session.json"))
	provider := newProvider(client, store)

	var rec recorder
	provider.OnAuthStateChange(rec.record)

	err := provider.SignIn(ctx, domain.Credentials{Email: "ana@example.com", Password: "secret1"})
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)

	require.NoError(t, provider.SignUp(ctx, domain.Registration{
		Credentials: domain.Credentials{Email: "ana@example.com", Password: "secret1"},
		Name:        "Ana",
	}))

	err = provider.SignUp(ctx, domain.Registration{
		Credentials: domain.Credentials{Email: "ana@example.com", Password: "secret1"},
	})
	require.ErrorIs(t, err, domain.ErrUserAlreadyExists)

	session, err := provider.GetSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, session)

	userID, ok, err := client.Validate(ctx, session.AccessToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, session.User.ID, userID)

	_, ok, err = client.Validate(ctx, "garbage")
	require.NoError(t, err)
	assert.False(t, ok)

	// A second provider over the same file picks the session up.
	restored, err := newProvider(client, store).GetSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, restored)
	assert.Equal(t, session.User.ID, restored.User.ID)

	require.ErrorIs(t, provider.UpdatePassword(ctx, "123"), domain.ErrWeakPassword)
	require.NoError(t, provider.UpdatePassword(ctx, "secret2"))

	require.NoError(t, provider.SendPasswordReset(ctx, "ana@example.com"))
	require.NotEmpty(t, mailer.link)

	link, err := authclient.ParseRecoveryLink(mailer.link)
	require.NoError(t, err)
	require.NoError(t, provider.ExchangeRecoveryToken(ctx, link))

	require.NoError(t, provider.SignOut(ctx))

	_, ok, err = client.Validate(ctx, link.AccessToken)
	require.NoError(t, err)
	assert.False(t, ok, "signing out ends the recovery session")

	require.NoError(t, provider.SignIn(ctx, domain.Credentials{Email: "ana@example.com", Password: "secret2"}))

	assert.Equal(t, []domain.AuthEventKind{
		domain.AuthEventSignedIn,
		domain.AuthEventUserUpdated,
		domain.AuthEventPasswordRecovery,
		domain.AuthEventSignedOut,
		domain.AuthEventSignedIn,
	}, rec.kinds())
}
