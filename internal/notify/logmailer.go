package notify

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Ensure LogMailer satisfies the Mailer contract at compile time.
var _ Mailer = (*LogMailer)(nil)

// LogMailer is the built-in Mailer. It records each send in the log and
// fabricates a provider message id. Deployments wire a real email provider
// integration in its place.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a log-backed mailer.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send logs the message and returns a fresh message id.
func (m *LogMailer) Send(ctx context.Context, msg Message) (string, error) {
	messageID := "mail_" + uuid.NewString()
	m.logger.InfoContext(ctx, "email sent",
		"template", msg.Template,
		"to", msg.To,
		"provider_message_id", messageID,
	)
	return messageID, nil
}
