package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learnsprout/internal/config"
	"learnsprout/internal/logger"
)

type fakeSES struct {
	inputs []*sesv2.SendEmailInput
	err    error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("ses-1")}, nil
}

func TestSESSenderBuildsMessage(t *testing.T) {
	fake := &fakeSES{}
	s := newSESSender(fake, "LearnSprout <hello@example.com>", true, logger.NewNop())

	res, err := s.Send(context.Background(), SendRequest{
		To:      []string{"parent@example.com"},
		Subject: "Weekly plan",
		HTML:    "<p>hi</p>",
		Text:    "hi",
		ReplyTo: "help@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "ses-1", res.MessageID)

	require.Len(t, fake.inputs, 1)
	in := fake.inputs[0]
	assert.Equal(t, "LearnSprout <hello@example.com>", aws.ToString(in.FromEmailAddress))
	assert.Equal(t, []string{"parent@example.com"}, in.Destination.ToAddresses)
	assert.Equal(t, "Weekly plan", aws.ToString(in.Content.Simple.Subject.Data))
	assert.Equal(t, "hi", aws.ToString(in.Content.Simple.Body.Text.Data))
	assert.Equal(t, []string{"help@example.com"}, in.ReplyToAddresses)
}

func TestSESSenderBatchStopsOnError(t *testing.T) {
	fake := &fakeSES{err: errors.New("throttled")}
	s := newSESSender(fake, "from@example.com", false, logger.NewNop())

	results, err := s.SendBatch(context.Background(), []SendRequest{{To: []string{"a@example.com"}}, {To: []string{"b@example.com"}}})
	require.Error(t, err)
	assert.Empty(t, results)
	assert.Len(t, fake.inputs, 1)
}

func TestNoopSenderRecords(t *testing.T) {
	s := NewNoopSender(nil)
	_, err := s.Send(context.Background(), SendRequest{To: []string{"a@example.com"}, Subject: "one"})
	require.NoError(t, err)
	results, err := s.SendBatch(context.Background(), []SendRequest{{Subject: "two"}, {Subject: "three"}})
	require.NoError(t, err)
	assert.Len(t, results, 2)

	sent := s.Sent()
	require.Len(t, sent, 3)
	assert.Equal(t, "three", sent[2].Subject)
}

func TestResendSenderPostsEmail(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"re-123"}`))
	}))
	defer srv.Close()

	s := NewResendSender("re_test", "hello@example.com", nil)
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	s.client.BaseURL = base

	res, err := s.Send(context.Background(), SendRequest{To: []string{"p@example.com"}, Subject: "Hi", HTML: "<b>x</b>"})
	require.NoError(t, err)
	assert.Equal(t, "re-123", res.MessageID)
	assert.Equal(t, "hello@example.com", got["from"])
	assert.Equal(t, "Hi", got["subject"])
}

func TestNewSelectsProvider(t *testing.T) {
	s, err := New(context.Background(), &config.Config{EmailProvider: "noop"}, logger.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &NoopSender{}, s)

	s, err = New(context.Background(), &config.Config{EmailProvider: "resend", ResendAPIKey: "k", EmailFrom: "a@b.co"}, logger.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &ResendSender{}, s)

	_, err = New(context.Background(), &config.Config{EmailProvider: "pigeon"}, logger.NewNop())
	require.Error(t, err)
}

func TestRenderMarkdown(t *testing.T) {
	html, err := RenderMarkdown("1. Fill the **small pitcher**\n2. Pour")
	require.NoError(t, err)
	out := string(html)
	assert.True(t, strings.Contains(out, "<ol>"), out)
	assert.Contains(t, out, "<strong>small pitcher</strong>")

	html, err = RenderMarkdown("<script>alert(1)</script>")
	require.NoError(t, err)
	assert.NotContains(t, string(html), "<script>")
}

func TestFormatFrom(t *testing.T) {
	assert.Equal(t, "a@b.co", FormatFrom("", "a@b.co"))
	assert.Equal(t, "Sprout <a@b.co>", FormatFrom("Sprout", "a@b.co"))
}
