package alert

import (
	"context"
	"crypto/tls"
	"fmt"

	mail "github.com/go-mail/mail"
)

// SMTPNotifier envía alertas por mail a la casilla de operaciones.
type SMTPNotifier struct {
	Host               string
	Port               int
	From               string
	To                 string
	User               string
	Pass               string
	TLSMode            string // "auto" | "ssl" | "none"
	InsecureSkipVerify bool
}

func NewSMTP(host string, port int, from, to, user, pass string) *SMTPNotifier {
	return &SMTPNotifier{
		Host:    host,
		Port:    port,
		From:    from,
		To:      to,
		User:    user,
		Pass:    pass,
		TLSMode: "auto",
	}
}

func (s *SMTPNotifier) Notify(ctx context.Context, subject, body string) error {
	m := mail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", s.To)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := mail.NewDialer(s.Host, s.Port, s.User, s.Pass)
	d.TLSConfig = &tls.Config{
		ServerName:         s.Host,
		InsecureSkipVerify: s.InsecureSkipVerify, // sólo dev
	}
	switch s.TLSMode {
	case "ssl":
		d.SSL = true
	case "none":
		d.TLSConfig = &tls.Config{InsecureSkipVerify: s.InsecureSkipVerify}
	default:
		// "auto": go-mail negocia STARTTLS si corresponde
	}

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
