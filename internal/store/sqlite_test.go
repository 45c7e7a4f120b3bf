package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mailwatch/internal/errs"
	"github.com/nhle/mailwatch/internal/model"
	"github.com/nhle/mailwatch/internal/store"
	"github.com/nhle/mailwatch/tests/testutil"
)

var _ store.Store = (*store.SQLiteStore)(nil)

func TestStatsCountsBySendStatus(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	_, err := s.RecordSent(ctx, "test1@example.com", "Subject 1", model.SendStatusSent, "")
	require.NoError(t, err)
	_, err = s.RecordSent(ctx, "test2@example.com", "Subject 2", model.SendStatusSent, "")
	require.NoError(t, err)
	_, err = s.RecordSent(ctx, "test3@example.com", "Subject 3", model.SendStatusFailed, "550 mailbox unavailable")
	require.NoError(t, err)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.Stats{Sent: 2, Failed: 1, Monitored: 0}, stats)
}

func TestRecordSentKeepsErrorInvariant(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	okID, err := s.RecordSent(ctx, "a@example.com", "ok", model.SendStatusSent, "ignored")
	require.NoError(t, err)
	failID, err := s.RecordSent(ctx, "b@example.com", "fail", model.SendStatusFailed, "")
	require.NoError(t, err)
	assert.Greater(t, failID, okID)

	recent, err := s.RecentSent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)

	// Newest first.
	assert.Equal(t, failID, recent[0].ID)
	assert.Equal(t, model.SendStatusFailed, recent[0].Status)
	assert.NotEmpty(t, recent[0].ErrorMessage)
	assert.False(t, recent[0].SentAt.IsZero())

	assert.Equal(t, model.SendStatusSent, recent[1].Status)
	assert.Empty(t, recent[1].ErrorMessage)

	_, err = s.RecordSent(ctx, "c@example.com", "bad", model.SendStatus("queued"), "")
	assert.True(t, errs.Is(err, errs.Store))
}

func TestMarkNotifiedIsIdempotent(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	id, err := s.RecordMonitored(ctx, "boss@corp.com", "Urgent: deadline", "please respond today")
	require.NoError(t, err)

	m, err := s.GetMonitored(ctx, id)
	require.NoError(t, err)
	assert.False(t, m.NotificationSent)

	require.NoError(t, s.MarkNotified(ctx, id))
	require.NoError(t, s.MarkNotified(ctx, id))

	m, err = s.GetMonitored(ctx, id)
	require.NoError(t, err)
	assert.True(t, m.NotificationSent)
	assert.Equal(t, "boss@corp.com", m.Sender)
	assert.Equal(t, "please respond today", m.BodyPreview)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Monitored)

	// Unknown ids are a no-op as well.
	assert.NoError(t, s.MarkNotified(ctx, 9999))

	_, err = s.GetMonitored(ctx, 9999)
	assert.True(t, errs.Is(err, errs.Store))
}

func TestListActiveRulesInInsertionOrder(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	first, err := s.AddRule(ctx, model.RuleInput{Name: "Rule 1", SenderFilter: "sender1@example.com"})
	require.NoError(t, err)
	second, err := s.AddRule(ctx, model.RuleInput{Name: "Rule 2", SubjectFilter: "important"})
	require.NoError(t, err)
	third, err := s.AddRule(ctx, model.RuleInput{Name: "Catch all"})
	require.NoError(t, err)

	require.NoError(t, s.SetRuleEnabled(ctx, second, false))

	active, err := s.ListActiveRules(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, first, active[0].ID)
	assert.Equal(t, "sender1@example.com", active[0].SenderFilter)
	assert.Empty(t, active[0].SubjectFilter)
	assert.Equal(t, third, active[1].ID)
	assert.True(t, active[1].IsCatchAll())
	assert.True(t, active[1].Enabled)

	all, err := s.ListRules(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.False(t, all[1].Enabled)

	require.NoError(t, s.SetRuleEnabled(ctx, second, true))
	active, err = s.ListActiveRules(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 3)
}

func TestAddRuleValidation(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	_, err := s.AddRule(ctx, model.RuleInput{Name: "   "})
	assert.True(t, errs.Is(err, errs.Store))

	err = s.SetRuleEnabled(ctx, 42, false)
	assert.True(t, errs.Is(err, errs.Store))
}

func TestProcessedMessages(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.MarkSeen(ctx, "INBOX/7"))
	require.NoError(t, s.MarkSeen(ctx, "INBOX/9"))
	require.NoError(t, s.MarkSeen(ctx, "INBOX/7"))

	ids, err := s.LoadSeen(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"INBOX/7", "INBOX/9"}, ids)
}

func TestReopenKeepsDataAndSkipsMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "emails.db")
	ctx := context.Background()

	s, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	_, err = s.AddRule(ctx, model.RuleInput{Name: "persisted", KeywordFilter: "invoice"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = store.NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	rules, err := s.ListActiveRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "persisted", rules[0].Name)
	assert.Equal(t, "invoice", rules[0].KeywordFilter)
}

func TestSeenIdsSurviveReopen(t *testing.T) {
	ctx := context.Background()
	s, path := testutil.NewFileStore(t)

	require.NoError(t, s.MarkSeen(ctx, "INBOX/42"))
	require.NoError(t, s.Close())

	reopened, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	ids, err := reopened.LoadSeen(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"INBOX/42"}, ids)
}
