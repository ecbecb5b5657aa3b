package utils

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/badoux/checkmail"
	"gopkg.in/gomail.v2"
)

type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
}

type EmailData struct {
	Subject  string
	To       []string
	Template string
	Data     interface{}
}

// Embedded email templates
var emailTemplates = map[string]string{
	"task_reminder": `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { color: #8a3ab9; border-bottom: 1px solid #eee; padding-bottom: 10px; }
        .task { font-size: 18px; font-weight: bold; margin: 20px 0; }
        .footer { margin-top: 30px; font-size: 12px; color: #7f8c8d; text-align: center; }
    </style>
</head>
<body>
    <div class="header">
        <h2>Recordatorio de tarea</h2>
    </div>
    <p>Hola {{.AdvisorName}},</p>
    <div class="task">{{.Description}}</div>
    <p>Programada para las {{.Time}}{{if .LeadName}} con {{.LeadName}}{{if .LeadPhone}} ({{.LeadPhone}}){{end}}{{end}}.</p>
    <div class="footer">
        <p>ImmoFlow CRM</p>
    </div>
</body>
</html>`,
}

// RenderEmail executes the named embedded template.
func RenderEmail(name string, data interface{}) (string, error) {
	tmplContent, ok := emailTemplates[name]
	if !ok {
		return "", fmt.Errorf("template '%s' not found", name)
	}
	tmpl, err := template.New(name).Parse(tmplContent)
	if err != nil {
		return "", fmt.Errorf("error parsing template: %w", err)
	}
	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return "", fmt.Errorf("error executing template: %w", err)
	}
	return body.String(), nil
}

type Mailer struct {
	cfg    SMTPConfig
	dialer *gomail.Dialer
}

func NewMailer(cfg SMTPConfig) *Mailer {
	return &Mailer{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

// Enabled reports whether an SMTP relay is configured.
func (m *Mailer) Enabled() bool {
	return m != nil && m.cfg.Host != "" && m.cfg.FromEmail != ""
}

func (m *Mailer) Send(data EmailData) error {
	if !m.Enabled() {
		return fmt.Errorf("smtp is not configured")
	}
	for _, to := range data.To {
		if err := checkmail.ValidateFormat(to); err != nil {
			return fmt.Errorf("invalid recipient %q: %w", to, err)
		}
	}

	body, err := RenderEmail(data.Template, data.Data)
	if err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.cfg.FromEmail, m.cfg.FromName)
	msg.SetHeader("To", data.To...)
	msg.SetHeader("Subject", data.Subject)
	msg.SetBody("text/html", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("error sending email: %w", err)
	}
	return nil
}
