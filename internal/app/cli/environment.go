package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/mkrupp/fintrack/internal/app/session"
	"github.com/mkrupp/fintrack/internal/app/tui"
	"github.com/mkrupp/fintrack/internal/domain"
	"github.com/mkrupp/fintrack/internal/infra/config"
	"github.com/mkrupp/fintrack/internal/infra/logging"
	"github.com/mkrupp/fintrack/internal/svc/authsvc/authclient"
	"github.com/mkrupp/fintrack/internal/svc/financesvc/financeclient"
)

// ConfigNamespace prefixes every environment variable of the client.
const ConfigNamespace = "FINTRACK_CLIENT"

// ClientConfig is the configuration of the fintrack client.
type ClientConfig struct {
	config.EnvConfig

	Log logging.LoggerConfig `envPrefix:"LOG_"`

	// AUTH_URL, FINANCE_URL and TIMEOUT are shared by both clients.
	Auth     authclient.HTTPClientConfig
	Finance  financeclient.HTTPClientConfig
	Provider authclient.ProviderConfig

	// RequestTimeout bounds a whole command, which may span several requests.
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
}

// Provider is the auth provider the commands work with.
type Provider interface {
	session.AuthProvider
	tui.Recoverer
}

// Finance is the finance service as the commands use it: everything the
// interactive application reads, plus creating and changing records.
type Finance interface {
	tui.Finance

	CreateAccount(ctx context.Context, account domain.Account) (*domain.Account, error)
	UpdateAccount(ctx context.Context, id string, patch domain.AccountPatch) (*domain.Account, error)
	DeleteAccount(ctx context.Context, id string) error
	CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id string) error
	CreateTransaction(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
	CreateBill(ctx context.Context, bill domain.Bill) (*domain.Bill, error)
	DeleteBill(ctx context.Context, id string) error
	UpdateProfile(ctx context.Context, patch domain.ProfilePatch) (*domain.Profile, error)
	UploadAvatar(ctx context.Context, filename string, data []byte) (*domain.Profile, error)
	Avatar(ctx context.Context, width int) (*domain.Avatar, error)
}

var _ Finance = (*financeclient.HTTPClient)(nil)

// Environment holds the collaborators of the commands.
type Environment struct {
	Provider Provider
	Finance  Finance
	Timeout  time.Duration
}

// EnvironmentFactory creates the Environment of a command run.
type EnvironmentFactory func(ctx context.Context) (*Environment, error)

// DefaultEnvironment reads ClientConfig from the environment and connects to the
// configured auth and finance services.
func DefaultEnvironment(ctx context.Context) (*Environment, error) {
	var cfg ClientConfig

	if err := config.Parse(ctx, &cfg, ConfigNamespace); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := logging.Configure(ctx, cfg.Log, "fintrack.client"); err != nil {
		return nil, fmt.Errorf("configure logging: %w", err)
	}

	provider := authclient.NewProvider(
		authclient.NewHTTPClient(cfg.Auth, nil),
		authclient.NewFileSessionStore(cfg.Provider.SessionFile),
		cfg.Provider,
	)

	finance := financeclient.NewHTTPClient(cfg.Finance, accessTokens(provider), nil)

	return &Environment{
		Provider: provider,
		Finance:  finance,
		Timeout:  cfg.RequestTimeout,
	}, nil
}

// accessTokens reads the access token of the provider's current session.
// Signed out users have no token.
func accessTokens(provider session.AuthProvider) financeclient.TokenSource {
	return financeclient.TokenSourceFunc(func(ctx context.Context) (string, error) {
		authSession, err := provider.GetSession(ctx)
		if err != nil {
			return "", fmt.Errorf("get session: %w", err)
		}

		if authSession == nil {
			return "", nil
		}

		return authSession.AccessToken, nil
	})
}
