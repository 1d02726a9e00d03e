// Package email renders and delivers transactional order emails.
package email

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Supported delivery providers
const (
	ProviderResend = "resend"
	ProviderLog    = "log"
)

// Message is a rendered email ready for delivery
type Message struct {
	To      string
	Bcc     []string
	Subject string
	HTML    string
}

// Mailer delivers rendered messages
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Config holds mail delivery settings
type Config struct {
	Provider     string `mapstructure:"provider"`
	APIKey       string `mapstructure:"api_key"`
	From         string `mapstructure:"from"`
	AdminAddress string `mapstructure:"admin_address"`
}

// NewMailer creates the mailer selected by cfg.Provider
func NewMailer(cfg Config, logger *zap.Logger) (Mailer, error) {
	switch cfg.Provider {
	case ProviderResend:
		return NewResendMailer(cfg, logger)
	case ProviderLog, "":
		return NewLogMailer(logger), nil
	default:
		return nil, fmt.Errorf("email: unknown provider %q", cfg.Provider)
	}
}
