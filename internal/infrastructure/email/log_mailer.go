package email

import (
	"context"

	"go.uber.org/zap"
)

// LogMailer writes messages to the log instead of sending them.
// Used in development.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer creates a new logging mailer
func NewLogMailer(logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger}
}

// Send logs the message
func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.logger.Info("Email (not sent)",
		zap.String("to", msg.To),
		zap.Strings("bcc", msg.Bcc),
		zap.String("subject", msg.Subject),
		zap.Int("html_bytes", len(msg.HTML)))
	return nil
}

var _ Mailer = (*LogMailer)(nil)
