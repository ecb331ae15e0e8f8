// Package mailer sends the two transactional emails the platform produces:
// a welcome message on registration and a notification when an author
// publishes a post.
//
// EMAIL IS BEST-EFFORT:
// Mail delivery must never decide the fate of an API request. The service
// layer calls these methods, logs failures, and moves on — a down SMTP
// server should not turn a successful registration into a 500.
package mailer

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
)

// Mailer sends account lifecycle notifications.
type Mailer interface {
	SendWelcome(ctx context.Context, to, name string) error
	SendPostPublished(ctx context.Context, to, name, postTitle string) error
}

// Options configures the SMTP-backed mailer.
type Options struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer delivers over authenticated SMTP with STARTTLS.
type SMTPMailer struct {
	client *mail.Client
	from   string
}

var _ Mailer = (*SMTPMailer)(nil)

// NewSMTP builds a mailer from SMTP credentials. The connection is dialed
// lazily on first send, so a typo in the host shows up in logs, not at
// startup.
func NewSMTP(opts Options) (*SMTPMailer, error) {
	client, err := mail.NewClient(opts.Host,
		mail.WithPort(opts.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(opts.Username),
		mail.WithPassword(opts.Password),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	)
	if err != nil {
		return nil, fmt.Errorf("mailer: creating smtp client: %w", err)
	}
	return &SMTPMailer{client: client, from: opts.From}, nil
}

// SendWelcome greets a freshly registered author.
func (m *SMTPMailer) SendWelcome(ctx context.Context, to, name string) error {
	body := fmt.Sprintf(
		"<h1>Welcome to Strive Blog, %s!</h1>"+
			"<p>Your author account is ready. Log in and publish your first post.</p>",
		name)
	return m.send(ctx, to, "Welcome to Strive Blog", body)
}

// SendPostPublished congratulates an author on a new post.
func (m *SMTPMailer) SendPostPublished(ctx context.Context, to, name, postTitle string) error {
	body := fmt.Sprintf(
		"<h1>Your post is live, %s!</h1>"+
			"<p><strong>%s</strong> has been published on Strive Blog.</p>",
		name, postTitle)
	return m.send(ctx, to, "Your post has been published", body)
}

func (m *SMTPMailer) send(ctx context.Context, to, subject, htmlBody string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("mailer: setting from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("mailer: setting recipient %q: %w", to, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("mailer: sending %q to %s: %w", subject, to, err)
	}
	return nil
}

// Nop is the mailer used when SMTP is not configured. Every send succeeds
// silently, which keeps the service layer free of nil checks.
type Nop struct{}

var _ Mailer = Nop{}

func (Nop) SendWelcome(ctx context.Context, to, name string) error { return nil }

func (Nop) SendPostPublished(ctx context.Context, to, name, postTitle string) error { return nil }
