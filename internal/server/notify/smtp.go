// Package notify delivers password-reset messages over SMTP.
package notify

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/plantapi/internal/common"
	sc "github.com/dmitrijs2005/plantapi/internal/server/config"
	"github.com/wneessen/go-mail"
)

const resetSubject = "Password reset token"

// sendMsg is a seam for testing delivery.
var sendMsg = func(ctx context.Context, c *mail.Client, m *mail.Msg) error {
	return c.DialAndSendWithContext(ctx, m)
}

type SMTPMailer struct {
	client *mail.Client
	from   string
}

func NewSMTPMailer(c *sc.Config) (*SMTPMailer, error) {
	opts := []mail.Option{
		mail.WithPort(c.SMTPPort),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if c.SMTPUser != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(c.SMTPUser),
			mail.WithPassword(c.SMTPPassword),
		)
	}

	client, err := mail.NewClient(c.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPMailer{client: client, from: c.SMTPFrom}, nil
}

// ResetBody is the plain-text message carrying the reset link.
func ResetBody(link string) string {
	return "You are receiving this email because you (or someone else) has requested the reset of a password.\n\n" +
		"Please make a PUT request to:\n\n" + link + "\n\n" +
		"The link expires in 10 minutes. If you did not request it, ignore this email.\n"
}

func (s *SMTPMailer) message(to, link string) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(s.from); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := m.To(to); err != nil {
		return nil, fmt.Errorf("to address: %w", err)
	}
	m.Subject(resetSubject)
	m.SetBodyString(mail.TypeTextPlain, ResetBody(link))
	return m, nil
}

// SendPasswordReset mails link to the given address. Any failure is reported
// as common.ErrDeliveryFailed.
func (s *SMTPMailer) SendPasswordReset(ctx context.Context, to, link string) error {
	m, err := s.message(to, link)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrDeliveryFailed, err)
	}
	if err := sendMsg(ctx, s.client, m); err != nil {
		return fmt.Errorf("%w: %v", common.ErrDeliveryFailed, err)
	}
	return nil
}
