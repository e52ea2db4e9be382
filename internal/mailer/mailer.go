package mailer

import "context"

// Mailer dispatches the transactional emails the auth flows depend on. A
// failed dispatch is returned to the caller as-is; nothing in this service
// retries automatically, so a flow either mailed its link or failed loudly.
type Mailer interface {
	SendActivation(ctx context.Context, toEmail, name, link string) error
	SendPasswordReset(ctx context.Context, toEmail, name, link string) error
}
