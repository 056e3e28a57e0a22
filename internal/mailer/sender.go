// Package mailer delivers transactional email through a pluggable provider
// (Amazon SES, Resend, or a no-op sender for development).
package mailer

import (
	"context"
	"fmt"
	"time"

	"learnsprout/internal/config"
	"learnsprout/internal/logger"
)

// SendRequest contains the data needed to send one email
type SendRequest struct {
	To      []string // Recipient email addresses
	From    string   // Sender address; the provider default is used when empty
	Subject string
	HTML    string
	Text    string // Plain text alternative; not every provider uses it
	ReplyTo string
}

// SendResult contains the response from the email provider
type SendResult struct {
	MessageID string
	SentAt    time.Time
}

// Sender is the interface every provider implements
type Sender interface {
	Send(ctx context.Context, req SendRequest) (SendResult, error)
	SendBatch(ctx context.Context, reqs []SendRequest) ([]SendResult, error)
}

// FormatFrom renders "Name <address>" or just the address
func FormatFrom(name, address string) string {
	if name == "" {
		return address
	}
	return fmt.Sprintf("%s <%s>", name, address)
}

// New builds the sender selected by EMAIL_PROVIDER
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (Sender, error) {
	from := FormatFrom(cfg.EmailFromName, cfg.EmailFrom)
	switch cfg.EmailProvider {
	case "ses":
		return NewSESSender(ctx, cfg.AWSRegion, from, cfg.EmailDebug, log)
	case "resend":
		return NewResendSender(cfg.ResendAPIKey, from, log), nil
	case "noop", "":
		return NewNoopSender(log), nil
	default:
		return nil, fmt.Errorf("unsupported email provider %q", cfg.EmailProvider)
	}
}

// sendEach is the batch fallback for providers without a batch API
func sendEach(ctx context.Context, s Sender, reqs []SendRequest) ([]SendResult, error) {
	results := make([]SendResult, 0, len(reqs))
	for _, req := range reqs {
		res, err := s.Send(ctx, req)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}
