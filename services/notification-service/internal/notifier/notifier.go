package notifier

import (
	"context"
	"fmt"
	"net/smtp"

	"go.uber.org/zap"
)

// Message is one rendered notification ready for delivery.
type Message struct {
	To      string
	Subject string
	Body    string
}

type Notifier interface {
	Send(ctx context.Context, m Message) error
}

// Console logs the message instead of delivering it; the default in dev
// and when no SMTP host is configured.
type Console struct {
	log *zap.SugaredLogger
}

func NewConsole(log *zap.SugaredLogger) *Console {
	return &Console{log: log}
}

func (c *Console) Send(_ context.Context, m Message) error {
	c.log.Infow("notification", "to", m.To, "subject", m.Subject, "body", m.Body)
	return nil
}

// SMTP delivers mail over plain SMTP with optional AUTH.
type SMTP struct {
	addr string // host:port
	from string
	auth smtp.Auth
}

func NewSMTP(host string, port int, from, username, password string) *SMTP {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTP{
		addr: fmt.Sprintf("%s:%d", host, port),
		from: from,
		auth: auth,
	}
}

func (s *SMTP) Send(_ context.Context, m Message) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		s.from, m.To, m.Subject, m.Body)
	if err := smtp.SendMail(s.addr, s.auth, s.from, []string{m.To}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", m.To, err)
	}
	return nil
}
