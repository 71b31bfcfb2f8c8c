package authclient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mkrupp/fintrack/internal/domain"
	"github.com/mkrupp/fintrack/internal/infra/logging"
)

// ProviderConfig holds configuration for the client side session provider.
type ProviderConfig struct {
	// SessionFile is where the signed in session is kept between runs.
	SessionFile string `env:"SESSION_FILE" envDefault:"var/storage/fintrack-session.json"`

	// RefreshMargin refreshes access tokens this long before they expire.
	RefreshMargin time.Duration `env:"REFRESH_MARGIN" envDefault:"30s"`

	// RecoveryRedirectURL is the target of password recovery links.
	RecoveryRedirectURL string `env:"RECOVERY_REDIRECT_URL" envDefault:"fintrack://reset-password"`
}

type subscriber struct {
	id int
	fn func(domain.AuthEvent)
}

// Provider holds the signed in session of the application.
// Every change of the session is announced to OnAuthStateChange subscribers as an AuthEvent.
// Events are delivered one at a time in the order the changes happened.
type Provider struct {
	api   API
	store SessionStore
	log   logging.Logger
	cfg   ProviderConfig
	now   func() time.Time

	mu      sync.Mutex // serializes session changes, held across provider calls
	session *domain.AuthSession
	loaded  bool

	eventsMu sync.Mutex
	subs     []subscriber
	nextSub  int
	queue    []domain.AuthEvent
	draining bool
}

// NewProvider creates a Provider talking to api and persisting sessions in store.
func NewProvider(api API, store SessionStore, cfg ProviderConfig) *Provider {
	return &Provider{
		api:   api,
		store: store,
		log:   logging.GetLogger("svc.authsvc.authclient.provider"),
		cfg:   cfg,
		now:   time.Now,
	}
}

// OnAuthStateChange registers fn for every future AuthEvent. Past events are not replayed.
// The returned function removes the subscription; calling it more than once is harmless.
func (p *Provider) OnAuthStateChange(fn func(domain.AuthEvent)) (unsubscribe func()) {
	p.eventsMu.Lock()
	defer p.eventsMu.Unlock()

	p.nextSub++
	id := p.nextSub
	p.subs = append(p.subs, subscriber{id: id, fn: fn})

	return func() {
		p.eventsMu.Lock()
		defer p.eventsMu.Unlock()

		for i, sub := range p.subs {
			if sub.id == id {
				p.subs = append(p.subs[:i:i], p.subs[i+1:]...)

				return
			}
		}
	}
}

// emit queues event and, unless another emit is already delivering, delivers the
// queue. Subscribers may trigger further events; those are delivered after the current one.
func (p *Provider) emit(event domain.AuthEvent) {
	p.eventsMu.Lock()
	p.queue = append(p.queue, event)

	if p.draining {
		p.eventsMu.Unlock()

		return
	}

	p.draining = true

	for len(p.queue) > 0 {
		next := p.queue[0]
		p.queue = p.queue[1:]
		subs := append([]subscriber(nil), p.subs...)
		p.eventsMu.Unlock()

		for _, sub := range subs {
			sub.fn(next)
		}

		p.eventsMu.Lock()
	}

	p.draining = false
	p.eventsMu.Unlock()
}

// change runs fn with the session lock held and emits the event it returns after releasing it.
func (p *Provider) change(fn func() (*domain.AuthEvent, error)) error {
	p.mu.Lock()
	event, err := fn()
	p.mu.Unlock()

	if event != nil {
		p.emit(*event)
	}

	return err
}

// GetSession returns the current session, loading it from the session store on
// first use and refreshing it when its access token is about to expire.
// A session whose refresh token is rejected is dropped with a SIGNED_OUT event
// and nil is returned.
func (p *Provider) GetSession(ctx context.Context) (*domain.AuthSession, error) {
	var current *domain.AuthSession

	err := p.change(func() (*domain.AuthEvent, error) {
		if err := p.load(); err != nil {
			return nil, err
		}

		if p.session == nil || !p.session.Expired(p.now(), p.cfg.RefreshMargin) {
			current = copySession(p.session)

			return nil, nil //nolint:nilnil
		}

		event, err := p.refresh(ctx)
		if err != nil {
			return event, err
		}

		current = copySession(p.session)

		return event, nil
	})

	return current, err
}

func (p *Provider) load() error {
	if p.loaded {
		return nil
	}

	session, err := p.store.Load()
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	p.session = session
	p.loaded = true

	return nil
}

func (p *Provider) refresh(ctx context.Context) (*domain.AuthEvent, error) {
	if p.session.RefreshToken == "" {
		return p.dropSession(), nil
	}

	refreshed, err := p.api.RefreshSession(ctx, p.session.RefreshToken)
	if errors.Is(err, domain.ErrInvalidRefreshToken) || errors.Is(err, domain.ErrUnauthorized) {
		p.log.InfoContext(ctx, "refresh token rejected, signing out", "error", err)

		return p.dropSession(), nil
	} else if err != nil {
		return nil, fmt.Errorf("refresh session: %w", err)
	}

	return p.setSession(domain.AuthEventTokenRefreshed, refreshed), nil
}

// setSession replaces the session and persists it. A failure to persist only costs
// the session on the next run, so it is logged rather than returned.
func (p *Provider) setSession(kind domain.AuthEventKind, session *domain.AuthSession) *domain.AuthEvent {
	p.session = session
	p.loaded = true

	if err := p.store.Save(session); err != nil {
		p.log.Warn("persist session failed", "error", err)
	}

	return &domain.AuthEvent{Kind: kind, Session: copySession(session)}
}

func (p *Provider) dropSession() *domain.AuthEvent {
	p.session = nil
	p.loaded = true

	if err := p.store.Clear(); err != nil {
		p.log.Warn("clear session failed", "error", err)
	}

	return &domain.AuthEvent{Kind: domain.AuthEventSignedOut, Session: nil}
}

// SignIn signs in with email and password and emits SIGNED_IN.
func (p *Provider) SignIn(ctx context.Context, creds domain.Credentials) error {
	return p.change(func() (*domain.AuthEvent, error) {
		session, err := p.api.SignInWithPassword(ctx, creds)
		if err != nil {
			return nil, fmt.Errorf("sign in: %w", err)
		}

		return p.setSession(domain.AuthEventSignedIn, session), nil
	})
}

// SignUp creates an account, which signs it in, and emits SIGNED_IN.
func (p *Provider) SignUp(ctx context.Context, reg domain.Registration) error {
	return p.change(func() (*domain.AuthEvent, error) {
		session, err := p.api.SignUp(ctx, reg)
		if err != nil {
			return nil, fmt.Errorf("sign up: %w", err)
		}

		return p.setSession(domain.AuthEventSignedIn, session), nil
	})
}

// SignOut ends the session at the provider and locally, and emits SIGNED_OUT.
// The local session is dropped even if the provider cannot be reached; that error is returned.
func (p *Provider) SignOut(ctx context.Context) error {
	return p.change(func() (*domain.AuthEvent, error) {
		if err := p.load(); err != nil {
			p.log.WarnContext(ctx, "load session failed", "error", err)
		}

		var remoteErr error

		if p.session != nil {
			err := p.api.SignOut(ctx, p.session.AccessToken)
			if err != nil && !isAuthError(err) {
				remoteErr = fmt.Errorf("sign out: %w", err)
			}
		}

		return p.dropSession(), remoteErr
	})
}

// SendPasswordReset asks the provider to mail a recovery link for email.
func (p *Provider) SendPasswordReset(ctx context.Context, email string) error {
	if err := p.api.ResetPasswordForEmail(ctx, domain.RecoveryRequest{
		Email:      email,
		RedirectTo: p.cfg.RecoveryRedirectURL,
	}); err != nil {
		return fmt.Errorf("send password reset: %w", err)
	}

	return nil
}

// UpdatePassword sets a new password for the signed in user and emits USER_UPDATED.
// Returns domain.ErrUnauthorized when no one is signed in.
func (p *Provider) UpdatePassword(ctx context.Context, password string) error {
	return p.change(func() (*domain.AuthEvent, error) {
		if err := p.load(); err != nil {
			return nil, err
		}

		if p.session == nil {
			return nil, domain.ErrUnauthorized
		}

		var refreshed *domain.AuthEvent

		if p.session.Expired(p.now(), p.cfg.RefreshMargin) {
			event, err := p.refresh(ctx)
			if err != nil {
				return nil, err
			} else if p.session == nil {
				return event, domain.ErrUnauthorized
			}

			refreshed = event
		}

		u, err := p.api.UpdateUser(ctx, p.session.AccessToken, domain.UserUpdate{Password: &password})
		if err != nil {
			if refreshed != nil {
				return refreshed, fmt.Errorf("update user: %w", err)
			}

			return nil, fmt.Errorf("update user: %w", err)
		}

		updated := *p.session
		updated.User = *u

		return p.setSession(domain.AuthEventUserUpdated, &updated), nil
	})
}

// ExchangeRecoveryToken turns the tokens of a recovery link into the current session
// and emits PASSWORD_RECOVERY.
func (p *Provider) ExchangeRecoveryToken(ctx context.Context, link RecoveryLink) error {
	return p.change(func() (*domain.AuthEvent, error) {
		u, err := p.api.GetUser(ctx, link.AccessToken)
		if err != nil {
			return nil, fmt.Errorf("get user: %w", err)
		}

		session := &domain.AuthSession{
			AccessToken:  link.AccessToken,
			RefreshToken: link.RefreshToken,
			TokenType:    "bearer",
			ExpiresIn:    link.ExpiresIn,
			ExpiresAt:    p.expiresAt(link),
			User:         *u,
		}

		return p.setSession(domain.AuthEventPasswordRecovery, session), nil
	})
}

// expiresAt prefers the link's expires_in and falls back to the token's own exp claim.
func (p *Provider) expiresAt(link RecoveryLink) int64 {
	if link.ExpiresIn > 0 {
		return p.now().Unix() + link.ExpiresIn
	}

	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(link.AccessToken, &claims); err == nil && claims.ExpiresAt != nil {
		return claims.ExpiresAt.Unix()
	}

	return 0
}

func isAuthError(err error) bool {
	return errors.Is(err, domain.ErrInvalidAuthToken) ||
		errors.Is(err, domain.ErrNoAuthToken) ||
		errors.Is(err, domain.ErrUnauthorized)
}

func copySession(session *domain.AuthSession) *domain.AuthSession {
	if session == nil {
		return nil
	}

	c := *session

	return &c
}
