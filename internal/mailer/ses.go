package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"learnsprout/internal/logger"
)

// sesAPI is the part of the SES client the sender uses
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESSender sends emails via Amazon SES
type SESSender struct {
	client sesAPI
	from   string
	debug  bool
	log    *logger.Logger
}

// NewSESSender loads the default AWS credential chain for region
func NewSESSender(ctx context.Context, region, from string, debug bool, log *logger.Logger) (*SESSender, error) {
	if log == nil {
		log = logger.NewNop()
	}
	if debug {
		log.Debug("initializing ses sender", "region", region, "from", from)
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Info("email sender enabled", "provider", "ses", "region", region)
	return newSESSender(sesv2.NewFromConfig(cfg), from, debug, log), nil
}

func newSESSender(client sesAPI, from string, debug bool, log *logger.Logger) *SESSender {
	return &SESSender{client: client, from: from, debug: debug, log: log}
}

// Send sends one email with HTML and text bodies
func (s *SESSender) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	from := req.From
	if from == "" {
		from = s.from
	}

	body := &types.Body{
		Html: &types.Content{Data: aws.String(req.HTML), Charset: aws.String("UTF-8")},
	}
	if req.Text != "" {
		body.Text = &types.Content{Data: aws.String(req.Text), Charset: aws.String("UTF-8")}
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination:      &types.Destination{ToAddresses: req.To},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(req.Subject), Charset: aws.String("UTF-8")},
				Body:    body,
			},
		},
	}
	if req.ReplyTo != "" {
		input.ReplyToAddresses = []string{req.ReplyTo}
	}

	if s.debug {
		s.log.Debug("calling ses SendEmail", "subject", req.Subject, "html_bytes", len(req.HTML), "text_bytes", len(req.Text))
	}

	out, err := s.client.SendEmail(ctx, input)
	if err != nil {
		s.log.Error("ses send failed", "error", err, "subject", req.Subject)
		return SendResult{}, fmt.Errorf("failed to send email: %w", err)
	}

	result := SendResult{SentAt: time.Now()}
	if out != nil && out.MessageId != nil {
		result.MessageID = *out.MessageId
	}
	s.log.Info("email sent", "provider", "ses", "message_id", result.MessageID, "subject", req.Subject)
	return result, nil
}

// SendBatch sends each email in turn; SES has no bulk endpoint for distinct bodies
func (s *SESSender) SendBatch(ctx context.Context, reqs []SendRequest) ([]SendResult, error) {
	return sendEach(ctx, s, reqs)
}
