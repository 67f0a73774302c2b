package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"

	"medical-alert-service/internal/channels"
)

type EmailConfig struct {
	SMTPServer string
	SMTPPort   int
	Username   string
	Password   string
	From       string
}

type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Email delivers alerts over SMTP.
type Email struct {
	from   string
	sender mailSender
}

func NewEmail(cfg EmailConfig) (*Email, error) {
	if cfg.SMTPServer == "" || cfg.SMTPPort == 0 {
		return nil, errors.New("missing Email configuration: SMTPServer or SMTPPort is empty")
	}
	var d *gomail.Dialer
	if cfg.Username == "" {
		d = &gomail.Dialer{Host: cfg.SMTPServer, Port: cfg.SMTPPort}
	} else {
		d = gomail.NewDialer(cfg.SMTPServer, cfg.SMTPPort, cfg.Username, cfg.Password)
	}
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return &Email{from: from, sender: d}, nil
}

func (e *Email) Handle(ctx context.Context, d channels.Delivery) error {
	to := d.Contact.Target
	if !strings.Contains(to, "@") {
		return fmt.Errorf("invalid email address: %s", to)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m := gomail.NewMessage()
	m.SetHeader("From", e.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", Subject(d.Alert))
	if d.Alert.Escalation.Immediate {
		m.SetHeader("X-Priority", "1")
	}
	m.SetBody("text/plain", Body(d))
	if err := e.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}
