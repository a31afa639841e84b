package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"os"
)

// Mailer delivers transactional email over SMTP. An empty address turns
// delivery into a logged no-op, which is what test and dev environments
// run with unless an SMTP relay (Mailpit locally) is configured.
type Mailer struct {
	Addr string
	From string
}

var defaultMailer = NewMailerFromEnv()

// NewMailerFromEnv reads SMTP settings from the environment.
func NewMailerFromEnv() *Mailer {
	return &Mailer{
		Addr: os.Getenv("CBAMFLOW_SMTP_ADDR"),
		From: os.Getenv("CBAMFLOW_SMTP_FROM"),
	}
}

// Send delivers one message. Context is accepted for symmetry with the
// task handler contract; net/smtp has no native cancellation.
func (m *Mailer) Send(_ context.Context, payload SendEmailPayload) error {
	if m == nil || m.Addr == "" {
		slog.Default().Info("mail delivery skipped, no SMTP relay configured",
			slog.String("to", payload.To), slog.String("subject", payload.Subject))
		return nil
	}
	from := m.From
	if from == "" {
		from = "noreply@cbamflow.local"
	}
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		from, payload.To, payload.Subject, payload.Body)
	return smtp.SendMail(m.Addr, nil, from, []string{payload.To}, []byte(msg))
}
