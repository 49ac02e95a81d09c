package notify

import (
	"context"
	"fmt"
	"html"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"visadesk/internal/config"
)

// EmailSink mails the office about new submissions and mails clients about
// status changes and replies
type EmailSink struct {
	cfg      config.EmailConfig
	log      *zap.Logger
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmailSink creates an SMTP sink. When email is disabled, messages are
// logged instead of sent.
func NewEmailSink(cfg config.EmailConfig, log *zap.Logger) *EmailSink {
	return &EmailSink{cfg: cfg, log: log.Named("email"), sendMail: smtp.SendMail}
}

func (s *EmailSink) Name() string { return "email" }

func (s *EmailSink) Notify(ctx context.Context, ev Event) error {
	to, subject, body := s.compose(ev)
	if to == "" {
		return nil
	}
	return s.SendHTMLEmail(ctx, to, subject, htmlBody(subject, body), body)
}

// compose picks the recipient and renders the message for an event
func (s *EmailSink) compose(ev Event) (to, subject, body string) {
	label := strings.ReplaceAll(string(ev.Kind), "_", " ")
	switch ev.Type {
	case CaseCreated, ContentSubmitted:
		subject = fmt.Sprintf("New %s #%d", label, ev.EntityID)
		body = fmt.Sprintf("A new %s was submitted", label)
		if ev.ContactName != "" {
			body += " by " + ev.ContactName
		}
		if ev.ContactEmail != "" {
			body += " <" + ev.ContactEmail + ">"
		}
		body += ".\n"
		if ev.Summary != "" {
			body += "\n" + ev.Summary + "\n"
		}
		return s.cfg.AdminEmail, subject, body
	case CaseStatusChanged:
		subject = fmt.Sprintf("Your %s #%d is now %s", label, ev.EntityID, ev.To)
		body = fmt.Sprintf("Hello %s,\n\nThe status of your %s #%d changed from %s to %s.\n\nBest regards,\n%s\n",
			greeting(ev.ContactName), label, ev.EntityID, ev.From, ev.To, s.cfg.FromName)
		return ev.ContactEmail, subject, body
	case InquiryReplied:
		subject = fmt.Sprintf("Re: %s", ev.Summary)
		body = fmt.Sprintf("Hello %s,\n\n%s\n\nBest regards,\n%s\n",
			greeting(ev.ContactName), ev.Reply, s.cfg.FromName)
		return ev.ContactEmail, subject, body
	}
	return "", "", ""
}

func greeting(name string) string {
	if name == "" {
		return "there"
	}
	return name
}

func htmlBody(title, text string) string {
	paragraphs := strings.Split(strings.TrimSpace(text), "\n\n")
	var b strings.Builder
	for _, p := range paragraphs {
		b.WriteString("<p>")
		b.WriteString(strings.ReplaceAll(html.EscapeString(p), "\n", "<br>"))
		b.WriteString("</p>")
	}
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>%s</title></head>
<body style="font-family: Arial, sans-serif; color: #0D1A2D;">%s
<p style="font-size: 12px; color: #94A3B8;">This is an automated message. &copy; %s</p>
</body>
</html>`, html.EscapeString(title), b.String(), time.Now().Format("2006"))
}

// SendHTMLEmail sends an HTML email with plain text fallback
func (s *EmailSink) SendHTMLEmail(ctx context.Context, to, subject, htmlBody, textBody string) error {
	if !s.cfg.Enabled {
		s.log.Info("email disabled, not sending", zap.String("to", to), zap.String("subject", subject))
		return nil
	}
	if s.cfg.SMTPHost == "" || s.cfg.Username == "" || s.cfg.Password == "" {
		return fmt.Errorf("email service not properly configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.SMTPHost)
	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)
	msg := s.buildMessage(to, subject, htmlBody, textBody)

	// net/smtp has no context support; run it aside so ctx still bounds the wait
	errc := make(chan error, 1)
	go func() {
		errc <- s.sendMail(addr, auth, s.cfg.FromEmail, []string{to}, msg)
	}()
	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("failed to send email: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to send email: %w", ctx.Err())
	}
}

func (s *EmailSink) buildMessage(to, subject, htmlBody, textBody string) []byte {
	from := s.cfg.FromEmail
	if s.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.cfg.FromName, s.cfg.FromEmail)
	}
	boundary := "----=_Part_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n\r\n", boundary)

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(textBody + "\r\n")
	if htmlBody != "" {
		fmt.Fprintf(&b, "--%s\r\n", boundary)
		b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
		b.WriteString(htmlBody + "\r\n")
	}
	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return []byte(b.String())
}
