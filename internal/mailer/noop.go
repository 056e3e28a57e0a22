package mailer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"learnsprout/internal/logger"
)

// NoopSender logs sends without delivering them, and keeps them for inspection
type NoopSender struct {
	log  *logger.Logger
	mu   sync.Mutex
	sent []SendRequest
}

// NewNoopSender creates a new NoopSender
func NewNoopSender(log *logger.Logger) *NoopSender {
	if log == nil {
		log = logger.NewNop()
	}
	return &NoopSender{log: log}
}

// Send records the email but does not deliver it
func (s *NoopSender) Send(_ context.Context, req SendRequest) (SendResult, error) {
	s.mu.Lock()
	s.sent = append(s.sent, req)
	n := len(s.sent)
	s.mu.Unlock()

	s.log.Info("noop_email_send", "recipients", len(req.To), "subject", req.Subject)
	return SendResult{
		MessageID: fmt.Sprintf("noop-%d-%d", time.Now().UnixNano(), n),
		SentAt:    time.Now(),
	}, nil
}

// SendBatch records each email
func (s *NoopSender) SendBatch(ctx context.Context, reqs []SendRequest) ([]SendResult, error) {
	return sendEach(ctx, s, reqs)
}

// Sent returns a copy of every request seen so far
func (s *NoopSender) Sent() []SendRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SendRequest(nil), s.sent...)
}
