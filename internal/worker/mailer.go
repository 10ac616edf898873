package worker

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/igot-live/backend/pkg/queue"
)

// Message is a plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers one message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// InvitationMessage renders the invitation email for a job payload.
func InvitationMessage(p queue.InvitationPayload) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "You have been invited to %q.\n\n", p.EventTitle)
	fmt.Fprintf(&b, "Starts: %s\n", p.ScheduledDate.UTC().Format("Mon, 02 Jan 2006 15:04 MST"))
	if p.JoinURL != "" {
		fmt.Fprintf(&b, "Join: %s\n", p.JoinURL)
	}
	return Message{To: p.Email, Subject: "Invitation: " + p.EventTitle, Body: b.String()}
}

// LogMailer writes messages to the log instead of sending them. Used when SMTP is not configured.
type LogMailer struct {
	Logger *zap.Logger
}

// Send implements Mailer.
func (m LogMailer) Send(_ context.Context, msg Message) error {
	m.Logger.Info("email (not sent, SMTP disabled)", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

// SMTPMailer sends through an SMTP relay with PLAIN auth.
type SMTPMailer struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// Send implements Mailer. ctx is checked before dialing; net/smtp has no context support.
func (m SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	addr := net.JoinHostPort(m.Host, strconv.Itoa(m.Port))
	var auth smtp.Auth
	if m.Username != "" {
		auth = smtp.PlainAuth("", m.Username, m.Password, m.Host)
	}
	return smtp.SendMail(addr, auth, m.From, []string{msg.To}, m.render(msg))
}

func (m SMTPMailer) render(msg Message) []byte {
	from := m.From
	if m.FromName != "" {
		from = fmt.Sprintf("%s <%s>", m.FromName, m.From)
	}
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + msg.To + "\r\n")
	b.WriteString("Subject: " + msg.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}
