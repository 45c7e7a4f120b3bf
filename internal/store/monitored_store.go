package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nhle/mailwatch/internal/errs"
	"github.com/nhle/mailwatch/internal/model"
)

// RecordMonitored appends a monitored inbound message with
// notification_sent unset and returns its id.
func (s *SQLiteStore) RecordMonitored(
	ctx context.Context,
	sender, subject, bodyPreview string,
) (int64, error) {
	var id int64
	err := s.write(ctx, "record monitored", func() error {
		result, err := s.db.ExecContext(ctx, `
			INSERT INTO monitored_emails (sender, subject, received_at, body_preview, notification_sent)
			VALUES (?, ?, ?, ?, 0)`,
			sender, subject, time.Now().UTC(), bodyPreview,
		)
		if err != nil {
			return fmt.Errorf("inserting monitored email: %w", err)
		}
		id, err = result.LastInsertId()
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// MarkNotified sets notification_sent on a monitored message. Marking an
// already-notified or unknown id is a no-op.
func (s *SQLiteStore) MarkNotified(ctx context.Context, id int64) error {
	return s.write(ctx, fmt.Sprintf("mark monitored email %d notified", id), func() error {
		_, err := s.db.ExecContext(ctx,
			"UPDATE monitored_emails SET notification_sent = 1 WHERE id = ? AND notification_sent = 0",
			id,
		)
		return err
	})
}

// GetMonitored retrieves a single monitored message by id.
func (s *SQLiteStore) GetMonitored(ctx context.Context, id int64) (*model.MonitoredEmail, error) {
	var (
		m        model.MonitoredEmail
		notified int
	)
	err := s.db.QueryRowxContext(ctx, `
		SELECT id, sender, subject, received_at, body_preview, notification_sent
		FROM monitored_emails WHERE id = ?`, id,
	).Scan(&m.ID, &m.Sender, &m.Subject, &m.ReceivedAt, &m.BodyPreview, &notified)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.Newf(errs.Store, "get monitored email", "monitored email %d not found", id)
	}
	if err != nil {
		return nil, errs.New(errs.Store, fmt.Sprintf("getting monitored email %d", id), err)
	}
	m.NotificationSent = notified != 0
	return &m, nil
}
