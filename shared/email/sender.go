package email

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"

	"credibility-stack/internal/models"
	"credibility-stack/shared/config"

	"github.com/dustin/go-humanize"
)

//go:embed report_template.html
var reportTemplate string

var tmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"comma":        humanize.Comma,
	"humanFloat":   humanFloat,
	"since":        humanize.Time,
	"join":         strings.Join,
	"verdictClass": verdictClass,
}).Parse(reportTemplate))

func humanFloat(f float64) string {
	return humanize.CommafWithDigits(f, 1)
}

func verdictClass(v models.Verdict) string {
	switch v {
	case models.VerdictAligns:
		return "aligns"
	case models.VerdictUnreliable:
		return "unreliable"
	default:
		return "error"
	}
}

type Sender struct {
	config *config.EmailConfig
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSender(cfg *config.EmailConfig) *Sender {
	return &Sender{
		config: cfg,
		send:   smtp.SendMail,
	}
}

func (s *Sender) SendReport(report *models.Report) error {
	if report == nil || report.Conclusion == nil {
		return fmt.Errorf("report cannot be nil")
	}

	subject := fmt.Sprintf("Credibility Report: %s - %s (%s)",
		report.Keyword, report.Conclusion.SentimentLabel(), report.Date.Format("Jan 2, 2006"))

	body, err := generateEmailBody(report)
	if err != nil {
		return fmt.Errorf("failed to generate email body: %w", err)
	}

	return s.SendHTML(subject, body)
}

// SendHTML sends an email with custom HTML content
func (s *Sender) SendHTML(subject, htmlBody string) error {
	auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.SMTPServer)

	to := []string{s.config.ToEmail}
	msg := []byte(fmt.Sprintf(`To: %s
From: %s
Subject: %s
MIME-Version: 1.0
Content-Type: text/html; charset=UTF-8

%s`, s.config.ToEmail, s.config.FromEmail, subject, htmlBody))

	addr := fmt.Sprintf("%s:%d", s.config.SMTPServer, s.config.SMTPPort)
	if err := s.send(addr, auth, s.config.FromEmail, to, msg); err != nil {
		return fmt.Errorf("failed to send email via %s: %w", addr, err)
	}
	return nil
}

func generateEmailBody(report *models.Report) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, report); err != nil {
		return "", err
	}
	return buf.String(), nil
}
