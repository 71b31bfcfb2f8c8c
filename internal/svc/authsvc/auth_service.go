package authsvc

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mkrupp/fintrack/internal/domain"
	"github.com/mkrupp/fintrack/internal/infra/logging"
	"github.com/mkrupp/fintrack/internal/repo/session"
	"github.com/mkrupp/fintrack/internal/repo/user"
)

// TokenType is the token_type of every issued session.
const TokenType = "bearer"

const refreshSecretSize = 32

// AuthConfig contains configuration parameters for the authentication service.
type AuthConfig struct {
	// SigningKeyFile is the path to the RSA private key file
	SigningKeyFile string `env:"SIGNING_KEY_FILE" envDefault:"var/storage/authsvc.key"`

	AccessTokenTTL   time.Duration `env:"ACCESS_TOKEN_TTL"   envDefault:"1h"`
	RefreshTokenTTL  time.Duration `env:"REFRESH_TOKEN_TTL"  envDefault:"720h"`
	RecoveryTokenTTL time.Duration `env:"RECOVERY_TOKEN_TTL" envDefault:"1h"`

	// RecoveryRedirectURL is where recovery links point when the request names no target.
	RecoveryRedirectURL string `env:"RECOVERY_REDIRECT_URL" envDefault:"fintrack://reset-password"`

	Password PasswordConfig `envPrefix:"PASSWORD_"`
}

// AuthService provides authentication and user management functionality.
// It owns the user accounts and the sessions behind issued refresh tokens.
type AuthService struct {
	Config     AuthConfig
	UserRepo   user.Repository
	Sessions   session.Repository
	Mailer     Mailer
	Log        logging.Logger
	SigningKey *rsa.PrivateKey
	Now        func() time.Time
}

// NewAuthService creates a new AuthService from the given repository factories and configuration.
// Returns an error if the signing key cannot be loaded or a repository cannot be created.
func NewAuthService(
	ctx context.Context,
	userRepoFactory user.RepositoryFactory,
	sessionRepoFactory session.RepositoryFactory,
	mailer Mailer,
	cfg AuthConfig,
) (*AuthService, error) {
	log := logging.GetLogger("svc.authsvc.auth_service")

	signingKey, err := GetPrivateKey(cfg.SigningKeyFile)
	if err != nil {
		return nil, fmt.Errorf("get private key: %w", err)
	}

	userRepo, err := userRepoFactory(ctx)
	if err != nil {
		return nil, fmt.Errorf("new user repo: %w", err)
	}

	sessionRepo, err := sessionRepoFactory(ctx)
	if err != nil {
		_ = userRepo.Close()

		return nil, fmt.Errorf("new session repo: %w", err)
	}

	return &AuthService{
		Config:     cfg,
		UserRepo:   userRepo,
		Sessions:   sessionRepo,
		Mailer:     mailer,
		Log:        log,
		SigningKey: signingKey,
		Now:        time.Now,
	}, nil
}

// SignUp creates a user account and signs it in.
// Returns domain.ErrUserAlreadyExists if the email is taken.
func (s *AuthService) SignUp(ctx context.Context, reg domain.Registration) (_ *domain.AuthSession, err error) {
	email := normalizeEmail(reg.Email)
	log := s.Log.With(logging.Group("user", "email", email))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "sign up failed", "error", err)
		} else {
			log.DebugContext(ctx, "user signed up")
		}
	}()

	if email == "" {
		return nil, domain.ErrNoEmail
	}

	passwordHash, err := s.hashPassword(reg.Password)
	if err != nil {
		return nil, err
	}

	now := s.Now().UTC()
	account := &domain.UserAccount{
		User: domain.User{
			ID:        uuid.Must(uuid.NewV7()).String(),
			Email:     email,
			Name:      strings.TrimSpace(reg.Name),
			CreatedAt: now,
		},
		PasswordHash: passwordHash,
		UpdatedAt:    now,
	}

	if err := s.UserRepo.CreateUser(ctx, account); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return s.startSession(ctx, account.User, domain.AuthMethodPassword, s.Config.RefreshTokenTTL)
}

// SignIn verifies an email and password and starts a session.
// Unknown emails and wrong passwords both yield domain.ErrInvalidCredentials.
func (s *AuthService) SignIn(ctx context.Context, creds domain.Credentials) (_ *domain.AuthSession, err error) {
	email := normalizeEmail(creds.Email)
	log := s.Log.With(logging.Group("user", "email", email))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "sign in failed", "error", err)
		} else {
			log.DebugContext(ctx, "user signed in")
		}
	}()

	account, err := s.UserRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, errors.Join(domain.ErrInvalidCredentials, err)
		}

		return nil, fmt.Errorf("get user: %w", err)
	}

	ok, err := VerifyPassword(creds.Password, account.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	} else if !ok {
		return nil, domain.ErrInvalidCredentials
	}

	return s.startSession(ctx, account.User, domain.AuthMethodPassword, s.Config.RefreshTokenTTL)
}

// Refresh exchanges a refresh token for a new session of the same kind.
// The presented refresh token is consumed; reusing it yields domain.ErrInvalidRefreshToken.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (_ *domain.AuthSession, err error) {
	log := s.Log

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "refresh failed", "error", err)
		} else {
			log.DebugContext(ctx, "session refreshed")
		}
	}()

	sessionID, secret, ok := strings.Cut(refreshToken, ".")
	if !ok || sessionID == "" || secret == "" {
		return nil, domain.ErrInvalidRefreshToken
	}

	log = log.With(logging.Group("session", "id", sessionID))

	stored, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, errors.Join(domain.ErrInvalidRefreshToken, err)
		}

		return nil, fmt.Errorf("get session: %w", err)
	}

	oldHash := hashSecret(secret)
	if subtle.ConstantTimeCompare([]byte(oldHash), []byte(stored.RefreshTokenHash)) != 1 {
		return nil, domain.ErrInvalidRefreshToken
	}

	account, err := s.UserRepo.GetUserByID(ctx, stored.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	newSecret, err := newRefreshSecret()
	if err != nil {
		return nil, err
	}

	// Recovery sessions keep their original deadline.
	expiresAt := stored.ExpiresAt
	if stored.Method == domain.AuthMethodPassword {
		expiresAt = s.Now().UTC().Add(s.Config.RefreshTokenTTL)
	}

	if err := s.Sessions.Rotate(ctx, stored.ID, oldHash, hashSecret(newSecret), expiresAt); err != nil {
		return nil, fmt.Errorf("rotate session: %w", err)
	}

	return s.newAuthSession(account.User, stored.ID, stored.Method, newSecret)
}

// SignOut ends the session the access token belongs to.
func (s *AuthService) SignOut(ctx context.Context, token domain.AuthToken) (err error) {
	log := s.Log.With(logging.Group("session", "id", token.SessionID))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "sign out failed", "error", err)
		} else {
			log.DebugContext(ctx, "user signed out")
		}
	}()

	if err := s.Sessions.Delete(ctx, token.SessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	return nil
}

// GetUser returns the user with the given id.
func (s *AuthService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	account, err := s.UserRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &account.User, nil
}

// UpdateUser changes the password and/or name of the token's user.
// A password change ends every other session of the user.
func (s *AuthService) UpdateUser(
	ctx context.Context,
	token domain.AuthToken,
	update domain.UserUpdate,
) (_ *domain.User, err error) {
	log := s.Log.With(logging.Group("user", "id", token.UserID))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "update user failed", "error", err)
		} else {
			log.DebugContext(ctx, "user updated")
		}
	}()

	if update.Password != nil {
		passwordHash, err := s.hashPassword(*update.Password)
		if err != nil {
			return nil, err
		}

		if err := s.UserRepo.UpdatePassword(ctx, token.UserID, passwordHash); err != nil {
			return nil, fmt.Errorf("update password: %w", err)
		}

		if err := s.Sessions.DeleteByUser(ctx, token.UserID, token.SessionID); err != nil {
			return nil, fmt.Errorf("delete other sessions: %w", err)
		}
	}

	if update.Name != nil {
		if err := s.UserRepo.UpdateName(ctx, token.UserID, strings.TrimSpace(*update.Name)); err != nil {
			return nil, fmt.Errorf("update name: %w", err)
		}
	}

	return s.GetUser(ctx, token.UserID)
}

// SendPasswordReset starts a recovery session for the account registered with email
// and mails a link carrying its tokens in the URL fragment.
// Unknown emails are not reported to the caller.
func (s *AuthService) SendPasswordReset(ctx context.Context, req domain.RecoveryRequest) (err error) {
	email := normalizeEmail(req.Email)
	log := s.Log.With(logging.Group("user", "email", email))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "send password reset failed", "error", err)
		} else {
			log.DebugContext(ctx, "password reset handled")
		}
	}()

	if email == "" {
		return domain.ErrNoEmail
	}

	account, err := s.UserRepo.GetUserByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		log.InfoContext(ctx, "password reset for unknown email")

		return nil
	} else if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	authSession, err := s.startSession(ctx, account.User, domain.AuthMethodRecovery, s.Config.RecoveryTokenTTL)
	if err != nil {
		return err
	}

	redirectTo := req.RedirectTo
	if redirectTo == "" {
		redirectTo = s.Config.RecoveryRedirectURL
	}

	if err := s.Mailer.SendRecoveryLink(ctx, email, RecoveryLink(redirectTo, authSession)); err != nil {
		return fmt.Errorf("send recovery link: %w", err)
	}

	return nil
}

// RecoveryLink appends the session's tokens to redirectTo as a URL fragment.
func RecoveryLink(redirectTo string, authSession *domain.AuthSession) string {
	base, _, _ := strings.Cut(redirectTo, "#")

	return base + "#" + url.Values{
		"access_token":  {authSession.AccessToken},
		"refresh_token": {authSession.RefreshToken},
		"expires_in":    {strconv.FormatInt(authSession.ExpiresIn, 10)},
		"token_type":    {authSession.TokenType},
		"type":          {"recovery"},
	}.Encode()
}

// ValidateToken verifies an access token and checks that its session has not ended.
// Returns the decoded token if valid, or an error wrapping domain.ErrInvalidAuthToken.
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (token domain.AuthToken, err error) {
	log := s.Log

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "validate token failed", "error", err)
		} else {
			log.DebugContext(ctx, "token validated")
		}
	}()

	token, err = ValidateToken(tokenString, &s.SigningKey.PublicKey, s.Now())
	if err != nil {
		return domain.AuthToken{}, fmt.Errorf("validate token: %w", err)
	}

	log = log.With(logging.Group("token",
		"sub", token.UserID,
		"sid", token.SessionID,
		"exp", time.Unix(token.ExpiresAt, 0).UTC().Format(time.RFC3339),
	))

	if _, err := s.Sessions.Get(ctx, token.SessionID); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return domain.AuthToken{}, errors.Join(domain.ErrInvalidAuthToken, err)
		}

		return domain.AuthToken{}, fmt.Errorf("get session: %w", err)
	}

	return token, nil
}

// Close releases resources held by the service, such as database connections.
func (s *AuthService) Close() error {
	return errors.Join(s.UserRepo.Close(), s.Sessions.Close())
}

func (s *AuthService) hashPassword(password string) (string, error) {
	if len([]rune(password)) < domain.MinPasswordLength {
		return "", domain.ErrWeakPassword
	}

	hash, err := HashPassword(s.Config.Password, password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	return hash, nil
}

func (s *AuthService) startSession(
	ctx context.Context,
	u domain.User,
	method domain.AuthMethod,
	ttl time.Duration,
) (*domain.AuthSession, error) {
	secret, err := newRefreshSecret()
	if err != nil {
		return nil, err
	}

	now := s.Now().UTC()
	stored := &domain.StoredSession{
		ID:               uuid.Must(uuid.NewV7()).String(),
		UserID:           u.ID,
		Method:           method,
		RefreshTokenHash: hashSecret(secret),
		CreatedAt:        now,
		ExpiresAt:        now.Add(ttl),
	}

	if err := s.Sessions.Create(ctx, stored); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return s.newAuthSession(u, stored.ID, method, secret)
}

func (s *AuthService) newAuthSession(
	u domain.User,
	sessionID string,
	method domain.AuthMethod,
	secret string,
) (*domain.AuthSession, error) {
	accessToken, token, err := SignToken(s.SigningKey, u, sessionID, method, s.Now(), s.Config.AccessTokenTTL)
	if err != nil {
		return nil, err
	}

	return &domain.AuthSession{
		AccessToken:  accessToken,
		RefreshToken: sessionID + "." + secret,
		TokenType:    TokenType,
		ExpiresIn:    token.ExpiresAt - token.IssuedAt,
		ExpiresAt:    token.ExpiresAt,
		User:         u,
	}, nil
}

func newRefreshSecret() (string, error) {
	buf := make([]byte, refreshSecretSize)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read refresh secret: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))

	return hex.EncodeToString(sum[:])
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
