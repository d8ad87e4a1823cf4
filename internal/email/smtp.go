package email

import (
	"context"
	"fmt"
	"net/smtp"
)

// SMTPSender sends mail through an SMTP relay such as Mailtrap.
type SMTPSender struct {
	host     string
	port     string
	user     string
	password string
	from     string
	fromName string
}

func NewSMTPSender(host, port, user, password, from, fromName string) *SMTPSender {
	return &SMTPSender{
		host:     host,
		port:     port,
		user:     user,
		password: password,
		from:     from,
		fromName: fromName,
	}
}

// Send delivers one message. net/smtp has no context support, so ctx is only
// checked before dialing.
func (s *SMTPSender) Send(ctx context.Context, to, subject, html string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if s.user != "" {
		auth = smtp.PlainAuth("", s.user, s.password, s.host)
	}

	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	return smtp.SendMail(addr, auth, s.from, []string{to}, buildMessage(s.fromName, s.from, to, subject, html))
}

func buildMessage(fromName, from, to, subject, html string) []byte {
	return []byte(fmt.Sprintf(
		"From: %s <%s>\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n"+
			"%s\r\n",
		fromName, from, to, subject, html,
	))
}
