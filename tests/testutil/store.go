// Package testutil provides store fixtures shared by package tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/nhle/mailwatch/internal/model"
	"github.com/nhle/mailwatch/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	return open(t, ":memory:")
}

// NewFileStore creates a migrated SQLiteStore backed by a file in the
// test's temp directory and returns it with the file path, for tests that
// reopen the database.
func NewFileStore(t *testing.T) (*store.SQLiteStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "emails.db")
	return open(t, path), path
}

// AddRules inserts the given notification rules and returns their ids in
// order.
func AddRules(t *testing.T, s *store.SQLiteStore, rules ...model.RuleInput) []int64 {
	t.Helper()

	ids := make([]int64, 0, len(rules))
	for _, in := range rules {
		id, err := s.AddRule(context.Background(), in)
		if err != nil {
			t.Fatalf("adding rule %q: %v", in.Name, err)
		}
		ids = append(ids, id)
	}
	return ids
}

func open(t *testing.T, path string) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		// Tests that close the store themselves make this a no-op.
		_ = s.Close()
	})

	return s
}
