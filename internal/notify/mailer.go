package notify

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cloudacct/accountsvc/config"
	"gopkg.in/gomail.v2"
)

// Mailer sends a single transactional email.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPMailer delivers mail through an SMTP relay.
type SMTPMailer struct {
	dialer  *gomail.Dialer
	from    string
	replyTo string
	timeout time.Duration
}

// NewSMTPMailer constructs an SMTP mailer from config. The password
// must already be decrypted.
func NewSMTPMailer(cfg config.MailConfig) (*SMTPMailer, error) {
	if strings.TrimSpace(cfg.SMTPHost) == "" {
		return nil, errors.New("smtp host is required")
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, errors.New("mail from address is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &SMTPMailer{
		dialer:  gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.Username, cfg.Password),
		from:    cfg.From,
		replyTo: cfg.ReplyTo,
		timeout: timeout,
	}, nil
}

// Send delivers a plain-text email within the configured timeout.
// gomail dials synchronously, so the attempt runs on its own goroutine
// and is abandoned when the deadline passes.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	if m.replyTo != "" {
		msg.SetHeader("Reply-To", m.replyTo)
	}
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- m.dialer.DialAndSend(msg)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
