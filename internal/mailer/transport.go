package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"github.com/nhle/mailwatch/internal/errs"
	"github.com/nhle/mailwatch/internal/model"
)

// OutgoingMessage is a single message handed to a Transport.
type OutgoingMessage struct {
	From    string
	To      string
	Subject string
	Body    string
	HTML    bool
}

// Transport delivers composed messages.
type Transport interface {
	Send(ctx context.Context, msg OutgoingMessage) error
}

// SMTPTransport delivers mail through an authenticated SMTP server.
type SMTPTransport struct {
	server   model.ServerConfig
	username string
	password string
	logger   *slog.Logger
}

// NewSMTPTransport creates a transport for the given server and account.
func NewSMTPTransport(
	server model.ServerConfig,
	account model.AccountConfig,
	logger *slog.Logger,
) *SMTPTransport {
	return &SMTPTransport{
		server:   server,
		username: account.Address,
		password: account.Password,
		logger:   logger,
	}
}

// Send opens a connection, authenticates with PLAIN and delivers msg.
// A fresh connection is used per message.
func (t *SMTPTransport) Send(ctx context.Context, msg OutgoingMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := compose(msg, time.Now())
	if err != nil {
		return fmt.Errorf("composing message: %w", err)
	}

	addr := t.server.Address()
	tlsConfig := &tls.Config{ServerName: t.server.Host}

	var client *smtp.Client
	if t.server.TLS {
		client, err = smtp.DialTLS(addr, tlsConfig)
	} else {
		client, err = smtp.Dial(addr)
	}
	if err != nil {
		return errs.New(errs.TransientSend, "dialing SMTP "+addr, err)
	}
	defer client.Close()

	if !t.server.TLS {
		if err := client.StartTLS(tlsConfig); err != nil {
			return errs.New(errs.TransientSend, "SMTP STARTTLS", err)
		}
	}

	auth := sasl.NewPlainClient("", t.username, t.password)
	if err := client.Auth(auth); err != nil {
		return errs.New(errs.Auth, "SMTP auth for "+t.username, err)
	}

	if err := client.SendMail(msg.From, []string{msg.To}, bytes.NewReader(data)); err != nil {
		return errs.New(errs.TransientSend, "sending to "+msg.To, err)
	}

	if err := client.Quit(); err != nil {
		t.logger.Debug("SMTP quit failed", "error", err)
	}

	t.logger.Debug("message delivered", "to", msg.To, "server", addr)
	return nil
}

// compose renders msg as an RFC 5322 message with a single inline
// text/plain or text/html part.
func compose(msg OutgoingMessage, date time.Time) ([]byte, error) {
	from, err := mail.ParseAddress(msg.From)
	if err != nil {
		return nil, fmt.Errorf("parsing sender %q: %w", msg.From, err)
	}
	to, err := mail.ParseAddress(msg.To)
	if err != nil {
		return nil, fmt.Errorf("parsing recipient %q: %w", msg.To, err)
	}

	var h mail.Header
	h.SetDate(date)
	h.SetAddressList("From", []*mail.Address{from})
	h.SetAddressList("To", []*mail.Address{to})
	h.SetSubject(msg.Subject)
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("generating message id: %w", err)
	}

	contentType := "text/plain"
	if msg.HTML {
		contentType = "text/html"
	}
	h.SetContentType(contentType, map[string]string{"charset": "utf-8"})

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("creating message writer: %w", err)
	}
	if _, err := w.Write([]byte(msg.Body)); err != nil {
		return nil, fmt.Errorf("writing body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing message writer: %w", err)
	}

	return buf.Bytes(), nil
}
