package mailer

import "gopkg.in/gomail.v2"

type Message struct {
	To      string
	Subject string
	Body    string
	ReplyTo string
}

type Sender interface {
	Send(m Message) error
}

// SMTP sends plain-text mail through an authenticated SMTP account.
type SMTP struct {
	Host     string
	Port     int
	Email    string
	Password string
	FromName string
}

func (s *SMTP) Send(msg Message) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.Email, s.FromName)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	if msg.ReplyTo != "" {
		m.SetHeader("Reply-To", msg.ReplyTo)
	}
	m.SetBody("text/plain", msg.Body)

	d := gomail.NewDialer(s.Host, s.Port, s.Email, s.Password)
	return d.DialAndSend(m)
}
