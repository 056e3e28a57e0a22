package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/resend/resend-go/v2"

	"learnsprout/internal/logger"
)

// resendBatchSize is the most emails Resend accepts per batch call
const resendBatchSize = 100

// ResendSender sends emails via the Resend API
type ResendSender struct {
	client *resend.Client
	from   string
	log    *logger.Logger
}

// NewResendSender creates a new ResendSender with the given API key and default from address
func NewResendSender(apiKey, from string, log *logger.Logger) *ResendSender {
	if log == nil {
		log = logger.NewNop()
	}
	return &ResendSender{
		client: resend.NewClient(apiKey),
		from:   from,
		log:    log,
	}
}

func (s *ResendSender) params(req SendRequest) *resend.SendEmailRequest {
	from := req.From
	if from == "" {
		from = s.from
	}
	p := &resend.SendEmailRequest{
		From:    from,
		To:      req.To,
		Subject: req.Subject,
		Html:    req.HTML,
		Text:    req.Text,
	}
	if req.ReplyTo != "" {
		p.ReplyTo = req.ReplyTo
	}
	return p
}

// Send sends a single email via Resend
func (s *ResendSender) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	sent, err := s.client.Emails.SendWithContext(ctx, s.params(req))
	if err != nil {
		s.log.Error("resend_send_failed", "error", err, "subject", req.Subject)
		return SendResult{}, fmt.Errorf("resend send failed: %w", err)
	}

	s.log.Info("resend_sent", "message_id", sent.Id, "subject", req.Subject)
	return SendResult{MessageID: sent.Id, SentAt: time.Now()}, nil
}

// SendBatch sends multiple emails via the batch API, resendBatchSize per call.
// Results are in request order.
func (s *ResendSender) SendBatch(ctx context.Context, reqs []SendRequest) ([]SendResult, error) {
	if len(reqs) == 0 {
		return nil, nil
	}

	var all []SendResult
	for i := 0; i < len(reqs); i += resendBatchSize {
		end := min(i+resendBatchSize, len(reqs))
		chunk := reqs[i:end]

		batch := make([]*resend.SendEmailRequest, 0, len(chunk))
		for _, req := range chunk {
			batch = append(batch, s.params(req))
		}

		resp, err := s.client.Batch.SendWithContext(ctx, batch)
		if err != nil {
			s.log.Error("resend_batch_failed", "error", err, "batch_size", len(chunk))
			return all, fmt.Errorf("resend batch send failed: %w", err)
		}
		for _, item := range resp.Data {
			all = append(all, SendResult{MessageID: item.Id, SentAt: time.Now()})
		}
		s.log.Info("resend_batch_sent", "count", len(chunk), "total_sent", len(all))
	}
	return all, nil
}
