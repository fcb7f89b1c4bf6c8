package brief

import (
	"context"
	"fmt"
	"html"
	"net/smtp"
	"strings"

	"github.com/tigerroll/roomrate/internal/config"
	"github.com/tigerroll/roomrate/internal/support/logger"
)

const mailBoundary = "----=_RATE_BRIEF_BOUNDARY"

// SMTPSender mails briefs through an authenticated relay.
// Without relay settings it only logs the message it would have sent.
type SMTPSender struct {
	cfg      config.SMTPConfig
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender creates an SMTPSender.
func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg, sendMail: smtp.SendMail}
}

// Send implements Sender.
func (s *SMTPSender) Send(_ context.Context, to, subject, text string) error {
	to = headerSafe(to)
	if !s.cfg.Configured() {
		logger.Infof("[MOCK EMAIL] brief to:%s subject:%s (%d chars)", to, subject, len(text))
		return nil
	}

	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	addr := fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port)
	msg := s.message(to, subject, text)
	if err := s.sendMail(addr, auth, s.cfg.Username, []string{to}, msg); err != nil {
		logger.Errorf("Failed to send brief email to %s: %v", to, err)
		return err
	}
	logger.Infof("Brief email sent to %s", to)
	return nil
}

// message builds a multipart/alternative mail with the brief as plain text and as preformatted HTML.
func (s *SMTPSender) message(to, subject, text string) []byte {
	from := fmt.Sprintf("%s <%s>", headerSafe(s.cfg.FromName), s.cfg.Username)

	var sb strings.Builder
	fmt.Fprintf(&sb, "From: %s\r\n", from)
	fmt.Fprintf(&sb, "To: %s\r\n", to)
	fmt.Fprintf(&sb, "Subject: %s\r\n", headerSafe(subject))
	sb.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&sb, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n\r\n", mailBoundary)

	fmt.Fprintf(&sb, "--%s\r\n", mailBoundary)
	sb.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	sb.WriteString(text + "\r\n")

	fmt.Fprintf(&sb, "--%s\r\n", mailBoundary)
	sb.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
	sb.WriteString("<pre>" + html.EscapeString(text) + "</pre>\r\n")

	fmt.Fprintf(&sb, "--%s--\r\n", mailBoundary)
	return []byte(sb.String())
}

func headerSafe(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(strings.TrimSpace(s))
}
