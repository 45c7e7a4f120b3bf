package seen_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mailwatch/internal/seen"
	"github.com/nhle/mailwatch/tests/testutil"
)

func TestMemorySetIsAdditive(t *testing.T) {
	s := seen.NewMemory()
	ctx := context.Background()

	assert.False(t, s.Has("1"))
	s.Add(ctx, "1")
	s.Add(ctx, "1")
	s.Add(ctx, "2")

	assert.True(t, s.Has("1"))
	assert.True(t, s.Has("2"))
	assert.False(t, s.Has("3"))
	assert.Equal(t, 2, s.Len())
}

func TestPersistentSetSurvivesRestart(t *testing.T) {
	st := testutil.NewTestStore(t)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	first, err := seen.NewPersistent(ctx, st, logger)
	require.NoError(t, err)
	first.Add(ctx, "INBOX/11")
	first.Add(ctx, "INBOX/12")

	second, err := seen.NewPersistent(ctx, st, logger)
	require.NoError(t, err)
	assert.True(t, second.Has("INBOX/11"))
	assert.True(t, second.Has("INBOX/12"))
	assert.Equal(t, 2, second.Len())
}

type failingBacking struct{ loadErr error }

func (f failingBacking) LoadSeen(context.Context) ([]string, error) { return nil, f.loadErr }
func (f failingBacking) MarkSeen(context.Context, string) error     { return errors.New("disk full") }

func TestPersistentSetKeepsIDWhenBackingFails(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s, err := seen.NewPersistent(ctx, failingBacking{}, logger)
	require.NoError(t, err)
	s.Add(ctx, "x")
	assert.True(t, s.Has("x"))

	_, err = seen.NewPersistent(ctx, failingBacking{loadErr: errors.New("locked")}, logger)
	assert.Error(t, err)
}
