package mailer

import (
	"context"

	"go.uber.org/zap"
)

// LogMailer writes emails to the log instead of sending them. Used in
// development when no Brevo key is configured.
type LogMailer struct {
	log *zap.SugaredLogger
}

func NewLogMailer(log *zap.SugaredLogger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) SendActivation(_ context.Context, toEmail, name, link string) error {
	m.log.Infow("activation email (not sent)", "to", toEmail, "name", name, "link", link)
	return nil
}

func (m *LogMailer) SendPasswordReset(_ context.Context, toEmail, name, link string) error {
	m.log.Infow("password reset email (not sent)", "to", toEmail, "name", name, "link", link)
	return nil
}
