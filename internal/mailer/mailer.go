// Package mailer sends outbound mail and keeps an audit trail of every
// attempt in the store.
package mailer

import (
	"context"
	"log/slog"
	"strings"

	"github.com/nhle/mailwatch/internal/errs"
	"github.com/nhle/mailwatch/internal/model"
)

// Recorder persists the outcome of a send attempt.
type Recorder interface {
	RecordSent(
		ctx context.Context,
		recipient, subject string,
		status model.SendStatus,
		errorMessage string,
	) (int64, error)
}

// Mailer sends messages through a Transport and records each attempt.
type Mailer struct {
	transport         Transport
	recorder          Recorder
	from              string
	notificationEmail string
	logger            *slog.Logger
}

// New creates a Mailer sending as from. notificationEmail may be empty,
// in which case SendNotification reports a configuration error.
func New(
	transport Transport,
	recorder Recorder,
	from, notificationEmail string,
	logger *slog.Logger,
) *Mailer {
	return &Mailer{
		transport:         transport,
		recorder:          recorder,
		from:              from,
		notificationEmail: strings.TrimSpace(notificationEmail),
		logger:            logger,
	}
}

// Send delivers a single message and records the attempt as sent or
// failed. Failing to record is logged and does not change the result.
func (m *Mailer) Send(ctx context.Context, to, subject, body string, html bool) error {
	to = strings.TrimSpace(to)

	sendErr := m.transport.Send(ctx, OutgoingMessage{
		From:    m.from,
		To:      to,
		Subject: subject,
		Body:    body,
		HTML:    html,
	})

	status := model.SendStatusSent
	errMsg := ""
	if sendErr != nil {
		status = model.SendStatusFailed
		errMsg = sendErr.Error()
	}

	if _, err := m.recorder.RecordSent(ctx, to, subject, status, errMsg); err != nil {
		m.logger.Error("failed to record sent email",
			"recipient", to, "status", status, "error", err)
	}

	if sendErr != nil {
		m.logger.Warn("email send failed", "recipient", to, "error", sendErr)
		return sendErr
	}

	m.logger.Info("email sent", "recipient", to, "subject", subject)
	return nil
}

// SendNotification sends an alert to the configured notification
// address. Without one nothing is sent or recorded.
func (m *Mailer) SendNotification(ctx context.Context, subject, body string) error {
	if m.notificationEmail == "" {
		return errs.Newf(errs.Config, "sending notification", "no notification email configured")
	}
	return m.Send(ctx, m.notificationEmail, subject, body, false)
}

// NotificationEmail returns the configured alert recipient.
func (m *Mailer) NotificationEmail() string {
	return m.notificationEmail
}
