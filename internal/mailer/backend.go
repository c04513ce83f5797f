package mailer

import (
	"github.com/pkg/errors"
	"gopkg.in/gomail.v2"

	"github.com/zZProgenitorZz/Data-Annotation-Tool/pkg/logger"
)

// ErrSMTPNotConfigured is returned when no SMTP host is set.
var ErrSMTPNotConfigured = errors.New("SMTP is not configured")

const contentTypeText = "text/plain"

// Backend delivers one rendered email.
type Backend interface {
	Send(kind, to string, data any) error
}

// Dialer is satisfied by *gomail.Dialer.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPBackend sends emails immediately without queueing.
type SMTPBackend struct {
	Dialer    Dialer
	Templates Templates
	From      string
}

func NewSMTPBackend(cfg SMTPConfig, templates Templates) (*SMTPBackend, error) {
	if cfg.Host == "" {
		return nil, ErrSMTPNotConfigured
	}
	return &SMTPBackend{
		Dialer:    gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		Templates: templates,
		From:      cfg.From,
	}, nil
}

func (b *SMTPBackend) Send(kind, to string, data any) error {
	subject, body, err := b.Templates.Execute(kind, data)
	if err != nil {
		return errors.Wrap(err, "executing template")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", b.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody(contentTypeText, body)

	if err := b.Dialer.DialAndSend(m); err != nil {
		return errors.Wrap(err, "dialing and sending email")
	}
	return nil
}

// StdoutBackend logs emails instead of sending them.
type StdoutBackend struct {
	Templates Templates
}

func (b *StdoutBackend) Send(kind, to string, data any) error {
	subject, body, err := b.Templates.Execute(kind, data)
	if err != nil {
		return errors.Wrap(err, "executing template")
	}

	logger.LogInfo("[MAIL] Not sent (no SMTP host). To: %s | Subject: %s\n%s", to, subject, body)
	return nil
}

// New picks the SMTP backend when a host is configured and falls back to stdout.
func New(cfg SMTPConfig, appName string) (Backend, error) {
	templates, err := NewTemplates(appName)
	if err != nil {
		return nil, err
	}

	b, err := NewSMTPBackend(cfg, templates)
	if errors.Is(err, ErrSMTPNotConfigured) {
		logger.LogWarn("SMTP is not configured. Emails will be printed to the console.")
		return &StdoutBackend{Templates: templates}, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}
