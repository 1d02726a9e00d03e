package email

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
)

// ResendMailer sends email through the Resend API
type ResendMailer struct {
	client *resend.Client
	from   string
	logger *zap.Logger
}

// NewResendMailer creates a Resend-backed mailer
func NewResendMailer(cfg Config, logger *zap.Logger) (*ResendMailer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("email: resend api key is required")
	}
	return NewResendMailerWithClient(resend.NewClient(cfg.APIKey), cfg.From, logger)
}

// NewResendMailerWithClient creates a mailer around an existing client
func NewResendMailerWithClient(client *resend.Client, from string, logger *zap.Logger) (*ResendMailer, error) {
	if from == "" {
		return nil, fmt.Errorf("email: from address is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResendMailer{
		client: client,
		from:   from,
		logger: logger,
	}, nil
}

// Send delivers msg
func (m *ResendMailer) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("email: recipient is required")
	}

	req := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
	}
	if len(msg.Bcc) > 0 {
		req.Bcc = msg.Bcc
	}

	sent, err := m.client.Emails.SendWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("email: resend send failed: %w", err)
	}

	m.logger.Debug("Email sent",
		zap.String("email_id", sent.Id),
		zap.String("subject", msg.Subject))
	return nil
}

var _ Mailer = (*ResendMailer)(nil)
