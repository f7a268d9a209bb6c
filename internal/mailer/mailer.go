// Package mailer sends the verification email. Sending is best-effort:
// the orchestrator logs failures and never rolls back registration over
// a mail problem.
package mailer

import (
	"fmt"
	"net/smtp"

	"social-auth-service/internal/logger"
)

// Sender delivers a verification link to an address.
type Sender interface {
	SendVerificationEmail(to string, verifyURL string) error
}

// SMTPSender delivers through a plain SMTP relay.
type SMTPSender struct {
	Addr string // host:port
	From string
}

func NewSMTPSender(addr, from string) *SMTPSender {
	return &SMTPSender{Addr: addr, From: from}
}

func (s *SMTPSender) SendVerificationEmail(to string, verifyURL string) error {
	msg := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: Verify your email\r\n\r\nClick to verify: %s\r\n",
		s.From, to, verifyURL,
	)
	return smtp.SendMail(s.Addr, nil, s.From, []string{to}, []byte(msg))
}

// ConsoleSender logs the mail instead of sending it. Development default
// when no SMTP relay is configured.
type ConsoleSender struct{}

func (ConsoleSender) SendVerificationEmail(to string, verifyURL string) error {
	logger.Info("verification email (console sender)", map[string]any{
		"to":  to,
		"url": verifyURL,
	})
	return nil
}
