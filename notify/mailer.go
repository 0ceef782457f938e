// Package notify sends the transactional emails (medication reminders, prescription ready).
package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"
)

var ErrDisabled = errors.New("email: sending is disabled")

type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

type Sender interface {
	Send(ctx context.Context, e Email) error
}

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	Timeout  time.Duration
}

func (c Config) Enabled() bool {
	return c.Host != "" && c.From != ""
}

// Mailer sends through SMTP with gomail.
type Mailer struct {
	cfg  Config
	dial func(m ...*gomail.Message) error
}

func NewMailer(cfg Config) *Mailer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	d.SSL = cfg.Port == 465
	d.TLSConfig = &tls.Config{ServerName: cfg.Host}
	return &Mailer{cfg: cfg, dial: d.DialAndSend}
}

func (m *Mailer) Send(ctx context.Context, e Email) error {
	if !m.cfg.Enabled() {
		return ErrDisabled
	}
	if e.To == "" {
		return errors.New("email: recipient is required")
	}
	msg := buildMessage(m.cfg.From, e)

	done := make(chan error, 1)
	go func() {
		done <- m.dial(msg)
	}()

	wait := m.cfg.Timeout
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 && d < wait {
			wait = d
		}
	}
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("email: send to %s: %w", e.To, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return context.DeadlineExceeded
	}
}

func buildMessage(from string, e Email) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", e.To)
	msg.SetHeader("Subject", e.Subject)
	switch {
	case e.TextBody != "" && e.HTMLBody != "":
		msg.SetBody("text/plain", e.TextBody)
		msg.AddAlternative("text/html", e.HTMLBody)
	case e.HTMLBody != "":
		msg.SetBody("text/html", e.HTMLBody)
	default:
		msg.SetBody("text/plain", e.TextBody)
	}
	return msg
}
