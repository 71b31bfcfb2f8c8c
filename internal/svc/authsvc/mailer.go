package authsvc

import (
	"context"

	"github.com/mkrupp/fintrack/internal/infra/logging"
)

// Mailer delivers password recovery links.
type Mailer interface {
	SendRecoveryLink(ctx context.Context, email string, link string) error
}

// LogMailer writes recovery links to the log instead of sending them.
type LogMailer struct {
	log logging.Logger
}

var _ Mailer = (*LogMailer)(nil)

func NewLogMailer() *LogMailer {
	return &LogMailer{log: logging.GetLogger("svc.authsvc.log_mailer")}
}

func (m *LogMailer) SendRecoveryLink(ctx context.Context, email string, link string) error {
	m.log.InfoContext(ctx, "password recovery link", "email", email, "link", link)

	return nil
}
