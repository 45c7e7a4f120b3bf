package store

import (
	"context"
	"time"

	"github.com/nhle/mailwatch/internal/errs"
)

// LoadSeen returns every processed source message id.
func (s *SQLiteStore) LoadSeen(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.db.SelectContext(ctx, &ids,
		"SELECT source_id FROM processed_messages ORDER BY processed_at, source_id"); err != nil {
		return nil, errs.New(errs.Store, "loading processed messages", err)
	}
	return ids, nil
}

// MarkSeen records a processed source message id. Recording the same id
// twice is a no-op.
func (s *SQLiteStore) MarkSeen(ctx context.Context, sourceID string) error {
	return s.write(ctx, "marking message "+sourceID+" processed", func() error {
		_, err := s.db.ExecContext(ctx,
			"INSERT OR IGNORE INTO processed_messages (source_id, processed_at) VALUES (?, ?)",
			sourceID, time.Now().UTC(),
		)
		return err
	})
}
