package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/nhle/mailwatch/internal/errs"
	"github.com/nhle/mailwatch/internal/model"
)

// ruleRow mirrors a notification_rules row.
type ruleRow struct {
	ID            int64          `db:"id"`
	Name          string         `db:"rule_name"`
	SenderFilter  sql.NullString `db:"sender_filter"`
	SubjectFilter sql.NullString `db:"subject_filter"`
	KeywordFilter sql.NullString `db:"keyword_filter"`
	Enabled       int            `db:"enabled"`
	CreatedAt     time.Time      `db:"created_at"`
}

func (r ruleRow) toModel() model.NotificationRule {
	return model.NotificationRule{
		ID:            r.ID,
		Name:          r.Name,
		SenderFilter:  r.SenderFilter.String,
		SubjectFilter: r.SubjectFilter.String,
		KeywordFilter: r.KeywordFilter.String,
		Enabled:       r.Enabled != 0,
		CreatedAt:     r.CreatedAt,
	}
}

const selectRules = `
	SELECT id, rule_name, sender_filter, subject_filter, keyword_filter, enabled, created_at
	FROM notification_rules`

// AddRule inserts an enabled notification rule. Empty filters are stored
// as NULL and match anything.
func (s *SQLiteStore) AddRule(ctx context.Context, in model.RuleInput) (int64, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return 0, errs.Newf(errs.Store, "add rule", "rule name must not be empty")
	}

	var id int64
	err := s.write(ctx, "add rule", func() error {
		result, err := s.db.ExecContext(ctx, `
			INSERT INTO notification_rules
				(rule_name, sender_filter, subject_filter, keyword_filter, enabled, created_at)
			VALUES (?, ?, ?, ?, 1, ?)`,
			name,
			nullIfEmpty(strings.TrimSpace(in.SenderFilter)),
			nullIfEmpty(strings.TrimSpace(in.SubjectFilter)),
			nullIfEmpty(strings.TrimSpace(in.KeywordFilter)),
			time.Now().UTC(),
		)
		if err != nil {
			return fmt.Errorf("inserting rule: %w", err)
		}
		id, err = result.LastInsertId()
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// ListActiveRules returns enabled rules in insertion order.
func (s *SQLiteStore) ListActiveRules(ctx context.Context) ([]model.NotificationRule, error) {
	return s.selectRules(ctx, selectRules+" WHERE enabled = 1 ORDER BY id")
}

// ListRules returns every rule, enabled or not, in insertion order.
func (s *SQLiteStore) ListRules(ctx context.Context) ([]model.NotificationRule, error) {
	return s.selectRules(ctx, selectRules+" ORDER BY id")
}

func (s *SQLiteStore) selectRules(ctx context.Context, query string) ([]model.NotificationRule, error) {
	var rows []ruleRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, errs.New(errs.Store, "querying rules", err)
	}

	rules := make([]model.NotificationRule, 0, len(rows))
	for _, r := range rows {
		rules = append(rules, r.toModel())
	}
	return rules, nil
}

// SetRuleEnabled enables or disables a rule.
func (s *SQLiteStore) SetRuleEnabled(ctx context.Context, id int64, enabled bool) error {
	var affected int64
	err := s.write(ctx, fmt.Sprintf("updating rule %d", id), func() error {
		result, err := s.db.ExecContext(ctx,
			"UPDATE notification_rules SET enabled = ? WHERE id = ?",
			boolToInt(enabled), id,
		)
		if err != nil {
			return err
		}
		affected, _ = result.RowsAffected()
		return nil
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return errs.Newf(errs.Store, "update rule", "rule %d not found", id)
	}
	return nil
}
