package session

import (
	"context"
	"errors"
	"strings"

	"github.com/mkrupp/fintrack/internal/domain"
)

// NoticeLevel is the severity of a Notice.
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Notice is a user-visible message about the outcome of a request.
type Notice struct {
	Level   NoticeLevel
	Title   string
	Message string
}

// Login signs in with email and password. The user is set once the provider
// announces SIGNED_IN, not by Login itself.
func (s *Store) Login(ctx context.Context, creds domain.Credentials) error {
	creds.Email = strings.TrimSpace(creds.Email)

	err := s.provider.SignIn(ctx, creds)

	return s.report(ctx, "login", err,
		Notice{NoticeSuccess, "Signed in", "Welcome back!"},
		Notice{NoticeError, "Sign in failed", describe(err)},
	)
}

// Register creates an account.
func (s *Store) Register(ctx context.Context, reg domain.Registration) error {
	reg.Email = strings.TrimSpace(reg.Email)
	reg.Name = strings.TrimSpace(reg.Name)

	err := s.provider.SignUp(ctx, reg)

	return s.report(ctx, "register", err,
		Notice{NoticeSuccess, "Account created", "Your account has been created."},
		Notice{NoticeError, "Registration failed", describe(err)},
	)
}

// ResetPasswordRequest asks the provider to mail a password recovery link.
func (s *Store) ResetPasswordRequest(ctx context.Context, email string) error {
	err := s.provider.SendPasswordReset(ctx, strings.TrimSpace(email))

	return s.report(ctx, "reset password request", err,
		Notice{NoticeSuccess, "Email sent", "Check your inbox for the password reset link."},
		Notice{NoticeError, "Request failed", describe(err)},
	)
}

// UpdatePassword sets a new password for the signed in user.
func (s *Store) UpdatePassword(ctx context.Context, password string) error {
	err := s.provider.UpdatePassword(ctx, password)

	return s.report(ctx, "update password", err,
		Notice{NoticeSuccess, "Password updated", "Your password has been changed."},
		Notice{NoticeError, "Update failed", describe(err)},
	)
}

// Logout signs out. The user is cleared once the provider announces SIGNED_OUT.
func (s *Store) Logout(ctx context.Context) error {
	err := s.provider.SignOut(ctx)

	return s.report(ctx, "logout", err,
		Notice{NoticeSuccess, "Signed out", "See you soon."},
		Notice{NoticeError, "Sign out failed", describe(err)},
	)
}

func (s *Store) report(ctx context.Context, what string, err error, success, failure Notice) error {
	notice := success

	if err != nil {
		s.log.InfoContext(ctx, what+" failed", "error", err)

		notice = failure
	} else {
		s.log.DebugContext(ctx, what+" succeeded")
	}

	s.notifyMu.Lock()
	notices := append([]listener[Notice](nil), s.notices...)
	s.notifyMu.Unlock()

	for _, l := range notices {
		l.fn(notice)
	}

	return err
}

// describe turns err into a message for the user.
func describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "Incorrect email or password."
	case errors.Is(err, domain.ErrUserAlreadyExists):
		return "An account with this email already exists."
	case errors.Is(err, domain.ErrWeakPassword):
		return "The password must have at least 6 characters."
	case errors.Is(err, domain.ErrNoEmail):
		return "Please enter your email address."
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrInvalidAuthToken):
		return "Your session has expired. Please sign in again."
	case errors.Is(err, context.DeadlineExceeded):
		return "The server did not answer in time. Please try again."
	default:
		return "Something went wrong. Please try again."
	}
}
