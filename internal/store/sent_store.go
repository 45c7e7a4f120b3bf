package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nhle/mailwatch/internal/errs"
	"github.com/nhle/mailwatch/internal/model"
)

// unknownSendError is stored when a failed attempt carries no message,
// so failed rows always have an error_message.
const unknownSendError = "unknown error"

// RecordSent appends an audit row for one send attempt and returns its id.
// A sent status never stores an error message.
func (s *SQLiteStore) RecordSent(
	ctx context.Context,
	recipient, subject string,
	status model.SendStatus,
	errorMessage string,
) (int64, error) {
	var errMsg any
	switch status {
	case model.SendStatusSent:
		errMsg = nil
	case model.SendStatusFailed:
		if errorMessage == "" {
			errorMessage = unknownSendError
		}
		errMsg = errorMessage
	default:
		return 0, errs.Newf(errs.Store, "record sent", "invalid status %q", status)
	}

	var id int64
	err := s.write(ctx, "record sent", func() error {
		result, err := s.db.ExecContext(ctx, `
			INSERT INTO sent_emails (recipient, subject, sent_at, status, error_message)
			VALUES (?, ?, ?, ?, ?)`,
			recipient, subject, time.Now().UTC(), string(status), errMsg,
		)
		if err != nil {
			return fmt.Errorf("inserting sent email: %w", err)
		}
		id, err = result.LastInsertId()
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// RecentSent returns the most recent send attempts, newest first.
func (s *SQLiteStore) RecentSent(ctx context.Context, limit int) ([]model.SentEmail, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryxContext(ctx, `
		SELECT id, recipient, subject, sent_at, status, error_message
		FROM sent_emails
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, errs.New(errs.Store, "querying sent emails", err)
	}
	defer rows.Close()

	var sent []model.SentEmail
	for rows.Next() {
		var (
			e      model.SentEmail
			status string
			errMsg sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Recipient, &e.Subject, &e.SentAt, &status, &errMsg); err != nil {
			return nil, errs.New(errs.Store, "scanning sent email row", err)
		}
		e.Status = model.SendStatus(status)
		e.ErrorMessage = errMsg.String
		sent = append(sent, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.New(errs.Store, "iterating sent emails", err)
	}
	return sent, nil
}

// Stats returns all-time counts of sent, failed, and monitored emails.
func (s *SQLiteStore) Stats(ctx context.Context) (model.Stats, error) {
	var stats model.Stats
	err := s.db.GetContext(ctx, &stats, `
		SELECT
			(SELECT COUNT(*) FROM sent_emails WHERE status = 'sent')   AS sent,
			(SELECT COUNT(*) FROM sent_emails WHERE status = 'failed') AS failed,
			(SELECT COUNT(*) FROM monitored_emails)                   AS monitored`)
	if err != nil {
		return model.Stats{}, errs.New(errs.Store, "reading stats", err)
	}
	return stats, nil
}
