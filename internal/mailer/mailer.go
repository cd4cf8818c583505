// Package mailer delivers account emails over SMTP. Callers treat delivery
// as a separately-failable step: a send error is logged by the caller and
// never fails the primary workflow.
package mailer

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
)

type Config struct {
	Host        string
	Port        int
	Username    string
	Password    string
	From        string
	FrontendURL string
}

// Mailer sends templated account emails. A zero Host disables delivery;
// Send then returns an error the caller logs and ignores.
type Mailer struct {
	cfg Config
}

func New(cfg Config) *Mailer {
	return &Mailer{cfg: cfg}
}

func (m *Mailer) SendPasswordReset(ctx context.Context, to, token string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", m.cfg.FrontendURL, token)
	html := fmt.Sprintf(`<p>We received a request to reset your password.</p>
<p><a href="%s">Reset your password</a></p>
<p>This link expires in 30 minutes. If you did not request a reset, you can ignore this email.</p>`, link)
	text := fmt.Sprintf("Reset your password: %s\nThis link expires in 30 minutes.", link)
	return m.send(ctx, to, "Reset your password", html, text)
}

func (m *Mailer) SendEmailVerification(ctx context.Context, to, token string) error {
	link := fmt.Sprintf("%s/verify-email?token=%s", m.cfg.FrontendURL, token)
	html := fmt.Sprintf(`<p>Welcome! Please confirm your email address.</p>
<p><a href="%s">Verify your email</a></p>
<p>This link expires in 24 hours.</p>`, link)
	text := fmt.Sprintf("Verify your email: %s\nThis link expires in 24 hours.", link)
	return m.send(ctx, to, "Verify your email", html, text)
}

func (m *Mailer) send(ctx context.Context, to, subject, html, text string) error {
	if m.cfg.Host == "" {
		return fmt.Errorf("mailer not configured")
	}

	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, text)
	msg.AddAlternativeString(mail.TypeTextHTML, html)

	client, err := mail.NewClient(m.cfg.Host,
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.Username),
		mail.WithPassword(m.cfg.Password),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	return client.DialAndSendWithContext(ctx, msg)
}
