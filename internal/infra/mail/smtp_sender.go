package mail

import (
	"context"
	"fmt"

	domainMail "newsportal/internal/domain/mail"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// dialer is the part of *gomail.Dialer the sender needs.
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender implements mail.Sender over SMTP using gopkg.in/gomail.v2.
type SMTPSender struct {
	dialer dialer
	logger *logrus.Entry
}

func NewSMTPSender(host string, port int, username, password string, logger *logrus.Entry) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(host, port, username, password),
		logger: logger,
	}
}

// Send delivers msg as a multipart message with a plain body and an HTML alternative.
// A message without recipients is accepted and dropped.
func (s *SMTPSender) Send(ctx context.Context, msg *domainMail.Message) error {
	if len(msg.To) == 0 {
		s.logger.WithField("subject", msg.Subject).Debug("Message has no recipients, nothing to send")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.dialer.DialAndSend(buildMessage(msg)); err != nil {
		return fmt.Errorf("failed to send mail %q: %w", msg.Subject, err)
	}
	s.logger.WithFields(logrus.Fields{
		"subject":    msg.Subject,
		"recipients": len(msg.To),
	}).Debug("Mail sent")
	return nil
}

func buildMessage(msg *domainMail.Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", msg.From)
	m.SetHeader("To", msg.To...)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.TextBody)
	if msg.HTMLBody != "" {
		m.AddAlternative("text/html", msg.HTMLBody)
	}
	return m
}
