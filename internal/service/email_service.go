package service

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"learnsprout/internal/logger"
	"learnsprout/internal/mailer"
	"learnsprout/internal/models"
)

// EmailService renders and sends the transactional emails
type EmailService struct {
	sender     mailer.Sender
	appBaseURL string
	debug      bool
	log        *logger.Logger
}

// NewEmailService creates a new email service on top of a mailer sender
func NewEmailService(sender mailer.Sender, appBaseURL string, debug bool, log *logger.Logger) *EmailService {
	return &EmailService{
		sender:     sender,
		appBaseURL: strings.TrimRight(appBaseURL, "/"),
		debug:      debug,
		log:        log.With("service", "EmailService"),
	}
}

const emailLayout = `<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #5b8c5a; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
		.content { background-color: #f9f9f4; padding: 30px; border-radius: 0 0 5px 5px; }
		.button { display: inline-block; padding: 12px 30px; background-color: #5b8c5a; color: white; text-decoration: none; border-radius: 5px; margin: 20px 0; }
		.activity { border-left: 3px solid #5b8c5a; padding-left: 12px; margin: 12px 0; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<div class="header"><h1>{{.Title}}</h1></div>
		<div class="content">{{template "body" .}}</div>
		<div class="footer"><p>This is an automated email from LearnSprout. Please do not reply.</p></div>
	</div>
</body>
</html>`

var emailTemplates = map[string]*template.Template{
	"reset": mustEmailTemplate(`
		<p>Hi {{.Name}},</p>
		<p>We received a request to reset the password for your LearnSprout account.</p>
		<p style="text-align: center;"><a href="{{.Link}}" class="button">Reset Password</a></p>
		<p>Or copy and paste this link into your browser:</p>
		<p style="word-break: break-all; font-size: 12px; color: #666;">{{.Link}}</p>
		<p><strong>This link will expire in 1 hour.</strong></p>
		<p>If you didn't request a password reset, you can safely ignore this email.</p>`),
	"welcome": mustEmailTemplate(`
		<p>Hi {{.Name}},</p>
		<p>Welcome to LearnSprout! Here's what you can do next:</p>
		<ul>
			<li>Add your children and assess their skills</li>
			<li>Generate a weekly plan of Montessori activities</li>
			<li>Record observations as your child works</li>
			<li>See which materials upcoming plans will need</li>
		</ul>
		<p style="text-align: center;"><a href="{{.Link}}" class="button">Get Started</a></p>`),
	"invite": mustEmailTemplate(`
		<p>Hi,</p>
		<p>{{.Name}} has invited you to join <strong>{{.Family}}</strong> on LearnSprout, so you can follow and plan for your children together.</p>
		<p style="text-align: center;"><a href="{{.Link}}" class="button">Accept Invitation</a></p>
		<p>Your invitation code is <strong>{{.Code}}</strong>. It expires on {{.Expires}}.</p>`),
	"digest": mustEmailTemplate(`
		<p>Hi {{.Name}},</p>
		<p>Here is what's planned for the week of {{.Week}}.</p>
		{{range .Children}}
			<h2>{{.Name}}</h2>
			{{if not .Days}}<p>No activities planned yet.</p>{{end}}
			{{range .Days}}
				<h3>{{.Day}}</h3>
				{{range .Activities}}
					<div class="activity">
						<strong>{{.Title}}</strong> <em>({{.TimeSlot}}{{if .Duration}}, {{.Duration}} min{{end}})</em>
						{{.Instructions}}
					</div>
				{{end}}
			{{end}}
		{{end}}
		<p style="text-align: center;"><a href="{{.Link}}" class="button">Open LearnSprout</a></p>`),
	"test": mustEmailTemplate(`
		<p>This is a test email from LearnSprout.</p>
		<p>Sent at {{.Sent}}.</p>`),
}

func mustEmailTemplate(body string) *template.Template {
	t := template.Must(template.New("layout").Parse(emailLayout))
	return template.Must(t.New("body").Parse(body))
}

func (s *EmailService) render(name string, data map[string]interface{}) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplates[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", fmt.Errorf("failed to render %s email: %w", name, err)
	}
	return buf.String(), nil
}

func (s *EmailService) send(ctx context.Context, to, subject, html, text string) error {
	if s.debug {
		s.log.Debug("sending email", "subject", subject, "html_bytes", len(html), "text_bytes", len(text))
	}
	res, err := s.sender.Send(ctx, mailer.SendRequest{
		To:      []string{to},
		Subject: subject,
		HTML:    html,
		Text:    text,
	})
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	s.log.Info("email sent", "subject", subject, "message_id", res.MessageID)
	return nil
}

// SendPasswordResetEmail sends a password reset email with a reset link
func (s *EmailService) SendPasswordResetEmail(ctx context.Context, toEmail, toName, resetToken string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", s.appBaseURL, url.QueryEscape(resetToken))
	html, err := s.render("reset", map[string]interface{}{"Title": "Password Reset Request", "Name": toName, "Link": link})
	if err != nil {
		return err
	}
	text := fmt.Sprintf("Hi %s,\n\nReset your LearnSprout password with this link:\n%s\n\nThis link will expire in 1 hour.\n", toName, link)
	return s.send(ctx, toEmail, "Reset your LearnSprout password", html, text)
}

// SendWelcomeEmail sends a welcome email to new users
func (s *EmailService) SendWelcomeEmail(ctx context.Context, toEmail, toName string) error {
	link := s.appBaseURL + "/dashboard"
	html, err := s.render("welcome", map[string]interface{}{"Title": "Welcome to LearnSprout!", "Name": toName, "Link": link})
	if err != nil {
		return err
	}
	text := fmt.Sprintf("Hi %s,\n\nWelcome to LearnSprout! Get started: %s\n", toName, link)
	return s.send(ctx, toEmail, "Welcome to LearnSprout!", html, text)
}

// InvitationLink is the signup URL an invitation email points at
func (s *EmailService) InvitationLink(inv *models.Invitation) string {
	return fmt.Sprintf("%s/signup?invite=%s&email=%s", s.appBaseURL, url.QueryEscape(inv.Code), url.QueryEscape(inv.Email))
}

// SendFamilyInvitation emails an invitation code to join a family
func (s *EmailService) SendFamilyInvitation(ctx context.Context, inv *models.Invitation, inviterName, familyName string) error {
	link := s.InvitationLink(inv)
	expires := inv.ExpiresAt.UTC().Format("January 2, 2006")
	html, err := s.render("invite", map[string]interface{}{
		"Title":   "You're invited",
		"Name":    inviterName,
		"Family":  familyName,
		"Link":    link,
		"Code":    inv.Code,
		"Expires": expires,
	})
	if err != nil {
		return err
	}
	text := fmt.Sprintf("%s has invited you to join %s on LearnSprout.\n\nAccept: %s\nCode: %s (expires %s)\n",
		inviterName, familyName, link, inv.Code, expires)
	return s.send(ctx, inv.Email, inviterName+" invited you to LearnSprout", html, text)
}

// DigestActivity is one scheduled activity in the weekly digest
type DigestActivity struct {
	Title        string
	TimeSlot     string
	Duration     int
	Instructions template.HTML
}

// DigestDay groups a weekday's activities
type DigestDay struct {
	Day        string
	Activities []DigestActivity
}

// DigestChild is one child's section of the weekly digest
type DigestChild struct {
	Name string
	Days []DigestDay
}

// SendWeeklyDigest emails the coming week's plans for a user's children
func (s *EmailService) SendWeeklyDigest(ctx context.Context, toEmail, toName string, week time.Time, children []DigestChild) error {
	weekLabel := week.UTC().Format("January 2, 2006")
	html, err := s.render("digest", map[string]interface{}{
		"Title":    "Your week ahead",
		"Name":     toName,
		"Week":     weekLabel,
		"Children": children,
		"Link":     s.appBaseURL + "/dashboard",
	})
	if err != nil {
		return err
	}

	var text strings.Builder
	fmt.Fprintf(&text, "Hi %s,\n\nHere is what's planned for the week of %s.\n", toName, weekLabel)
	for _, child := range children {
		fmt.Fprintf(&text, "\n%s\n", child.Name)
		for _, day := range child.Days {
			fmt.Fprintf(&text, "  %s\n", day.Day)
			for _, a := range day.Activities {
				fmt.Fprintf(&text, "    - %s (%s)\n", a.Title, a.TimeSlot)
			}
		}
	}
	return s.send(ctx, toEmail, "Your LearnSprout week of "+weekLabel, html, text.String())
}

// SendTestEmail sends a short message for checking the email configuration
func (s *EmailService) SendTestEmail(ctx context.Context, toEmail string) error {
	sent := time.Now().UTC().Format(time.RFC1123)
	html, err := s.render("test", map[string]interface{}{"Title": "Test email", "Sent": sent})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, "LearnSprout test email", html, "This is a test email from LearnSprout. Sent at "+sent+".")
}

// SendSimpleTestEmail sends a plain message without the HTML layout
func (s *EmailService) SendSimpleTestEmail(ctx context.Context, toEmail string) error {
	return s.send(ctx, toEmail, "LearnSprout simple test", "<p>Simple test email from LearnSprout.</p>", "Simple test email from LearnSprout.")
}
