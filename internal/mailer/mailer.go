// Package mailer renders and delivers account emails.
package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	"github.com/pkg/errors"
)

//go:embed templates/*.txt
var files embed.FS

const (
	KindResetPassword = "reset_password"
	KindWelcome       = "welcome"
)

// ResetPasswordData fills the reset_password template.
type ResetPasswordData struct {
	AppName  string
	Username string
	Token    string
	BaseURL  string
	ValidFor string
}

// WelcomeData fills the welcome template.
type WelcomeData struct {
	AppName  string
	Username string
	Role     string
	BaseURL  string
}

type entry struct {
	tmpl    *template.Template
	subject string
}

// Templates maps an email kind to its parsed body and subject line.
type Templates map[string]entry

// NewTemplates parses the embedded templates. appName goes into subject lines.
func NewTemplates(appName string) (Templates, error) {
	subjects := map[string]string{
		KindResetPassword: fmt.Sprintf("Reset your %s password", appName),
		KindWelcome:       fmt.Sprintf("Welcome to %s", appName),
	}

	t := Templates{}
	for kind, subject := range subjects {
		content, err := files.ReadFile("templates/" + kind + ".txt")
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s template", kind)
		}
		parsed, err := template.New(kind).Parse(string(content))
		if err != nil {
			return nil, errors.Wrapf(err, "parsing %s template", kind)
		}
		t[kind] = entry{tmpl: parsed, subject: subject}
	}
	return t, nil
}

// Execute returns the subject and rendered body of kind.
func (t Templates) Execute(kind string, data any) (string, string, error) {
	e, ok := t[kind]
	if !ok {
		return "", "", errors.Errorf("unsupported template '%s'", kind)
	}

	buf := new(bytes.Buffer)
	if err := e.tmpl.Execute(buf, data); err != nil {
		return "", "", errors.Wrap(err, "executing the template")
	}
	return e.subject, buf.String(), nil
}
