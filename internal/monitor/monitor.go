// Package monitor polls a mail source for unread messages, records them,
// and sends a notification for each message that matches an active rule.
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/mailwatch/internal/errs"
	"github.com/nhle/mailwatch/internal/model"
	"github.com/nhle/mailwatch/internal/rules"
	"github.com/nhle/mailwatch/internal/seen"
	"github.com/nhle/mailwatch/internal/source"
	"github.com/nhle/mailwatch/internal/source/email"
)

// Store is the subset of the persistent store the monitor writes to.
type Store interface {
	RecordMonitored(ctx context.Context, sender, subject, bodyPreview string) (int64, error)
	MarkNotified(ctx context.Context, id int64) error
	ListActiveRules(ctx context.Context) ([]model.NotificationRule, error)
}

// Notifier delivers rule-match alerts.
type Notifier interface {
	SendNotification(ctx context.Context, subject, body string) error
}

// Options tunes a Monitor.
type Options struct {
	// Folder and MarkAsRead are used by RunForever.
	Folder     string
	MarkAsRead bool

	// RetryFailedNotifications keeps a message out of the seen-set when
	// its notification fails, so the next pass sends it again.
	RetryFailedNotifications bool
}

// PassResult summarizes one completed pass.
type PassResult struct {
	Processed int
	Err       error
	Finished  time.Time
}

// Monitor runs monitoring passes against one mail source. Passes never
// overlap.
type Monitor struct {
	src      source.Source
	store    Store
	notifier Notifier
	seen     *seen.Set
	logger   *slog.Logger
	opts     Options

	passMu sync.Mutex
	// pending maps seen keys of messages whose notification failed to the
	// monitored record created for them.
	pending map[string]int64
}

// New creates a Monitor. A nil seenSet starts an empty in-memory set.
func New(
	src source.Source,
	store Store,
	notifier Notifier,
	seenSet *seen.Set,
	logger *slog.Logger,
	opts Options,
) *Monitor {
	if seenSet == nil {
		seenSet = seen.NewMemory()
	}
	if opts.Folder == "" {
		opts.Folder = "INBOX"
	}
	return &Monitor{
		src:      src,
		store:    store,
		notifier: notifier,
		seen:     seenSet,
		logger:   logger,
		opts:     opts,
		pending:  make(map[string]int64),
	}
}

// RunOnce performs a single pass over the unread messages in folder and
// returns how many new messages were processed. Any failure aborts the
// pass and is returned with a count of 0; messages handled before the
// failure stay seen.
func (m *Monitor) RunOnce(ctx context.Context, folder string, markAsRead bool) (int, error) {
	m.passMu.Lock()
	defer m.passMu.Unlock()

	logger := m.logger.With("pass_id", uuid.NewString(), "folder", folder)

	count, err := m.runPass(ctx, logger, folder, markAsRead)
	if err != nil {
		logger.Error("monitoring pass failed", "error", err, "kind", errs.KindOf(err).String())
		return 0, err
	}

	logger.Info("monitoring pass complete", "processed", count)
	return count, nil
}

func (m *Monitor) runPass(
	ctx context.Context,
	logger *slog.Logger,
	folder string,
	markAsRead bool,
) (int, error) {
	sess, err := m.src.Connect(ctx)
	if err != nil {
		return 0, err
	}
	defer func() {
		if closeErr := sess.Close(); closeErr != nil {
			logger.Debug("closing mail session", "error", closeErr)
		}
	}()

	if err := sess.Select(ctx, folder); err != nil {
		return 0, err
	}

	ids, err := sess.SearchUnseen(ctx)
	if err != nil {
		return 0, err
	}
	logger.Debug("unread messages found", "count", len(ids))

	var active []model.NotificationRule
	rulesLoaded := false

	count := 0
	for _, id := range ids {
		key := seenKey(folder, id)
		if m.seen.Has(key) {
			continue
		}

		if !rulesLoaded {
			active, err = m.store.ListActiveRules(ctx)
			if err != nil {
				return 0, err
			}
			rulesLoaded = true
		}

		isNew, err := m.processMessage(ctx, logger, sess, folder, id, markAsRead, active)
		if err != nil {
			return 0, err
		}
		if isNew {
			count++
		}
	}

	return count, nil
}

// processMessage handles one unread message. It reports whether a new
// monitored record was created for it.
func (m *Monitor) processMessage(
	ctx context.Context,
	logger *slog.Logger,
	sess source.Session,
	folder, id string,
	markAsRead bool,
	active []model.NotificationRule,
) (bool, error) {
	key := seenKey(folder, id)

	raw, err := sess.Fetch(ctx, id)
	if err != nil {
		return false, err
	}

	msg, err := email.ParseMessage(raw)
	if err != nil {
		logger.Warn("skipping unparseable message", "id", id, "error", err)
		m.seen.Add(ctx, key)
		return false, nil
	}

	storeID, retrying := m.pending[key]
	if !retrying {
		storeID, err = m.store.RecordMonitored(ctx, msg.Sender, msg.Subject, msg.BodyPreview)
		if err != nil {
			return false, err
		}
	}

	matched := rules.EvaluateAll(active, msg)
	if len(matched) > 0 && !m.notify(ctx, logger, storeID, matched, msg) {
		if m.opts.RetryFailedNotifications {
			m.pending[key] = storeID
			return !retrying, nil
		}
	}
	delete(m.pending, key)

	m.seen.Add(ctx, key)

	// The id is already seen, so a failed flag update only leaves the
	// message unread on the server.
	if markAsRead {
		if err := sess.MarkRead(ctx, id); err != nil {
			logger.Warn("failed to mark email read", "id", id, "error", err)
		}
	}

	logger.Info("processed email",
		"id", id, "sender", msg.Sender, "subject", msg.Subject, "matched_rules", matched)

	return !retrying, nil
}

// notify sends the alert for a matched message and marks its record as
// notified. It reports whether both steps succeeded. A missing recipient
// is a configuration problem that retrying cannot fix, so it counts as
// done.
func (m *Monitor) notify(
	ctx context.Context,
	logger *slog.Logger,
	storeID int64,
	matched []string,
	msg model.InboundMessage,
) bool {
	subject, body := ComposeNotification(matched, msg)

	if err := m.notifier.SendNotification(ctx, subject, body); err != nil {
		if errs.Is(err, errs.Config) {
			logger.Warn("notification not sent", "monitored_id", storeID, "error", err)
			return true
		}
		logger.Warn("notification failed", "monitored_id", storeID, "error", err)
		return false
	}

	if err := m.store.MarkNotified(ctx, storeID); err != nil {
		logger.Error("failed to mark notification sent", "monitored_id", storeID, "error", err)
		return false
	}
	return true
}

// RunForever runs a pass, sleeps for interval, and repeats until ctx is
// cancelled. Failed passes are logged and do not stop the loop. The sleep
// does not account for the time a pass took.
func (m *Monitor) RunForever(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errs.Newf(errs.Config, "starting monitor", "interval must be positive, got %s", interval)
	}

	m.logger.Info("monitoring started", "folder", m.opts.Folder, "interval", interval)

	for {
		// Errors are logged by RunOnce.
		_, _ = m.RunOnce(ctx, m.opts.Folder, m.opts.MarkAsRead)

		select {
		case <-ctx.Done():
			m.logger.Info("monitoring stopped")
			return nil
		case <-time.After(interval):
		}
	}
}

// Options returns the options the monitor was created with.
func (m *Monitor) Options() Options {
	return m.opts
}

// Pass runs RunOnce with the monitor's configured folder and read flag.
func (m *Monitor) Pass(ctx context.Context) PassResult {
	n, err := m.RunOnce(ctx, m.opts.Folder, m.opts.MarkAsRead)
	return PassResult{Processed: n, Err: err, Finished: time.Now()}
}

// seenKey scopes a source id to its folder, since IMAP UIDs are only
// unique within a mailbox.
func seenKey(folder, id string) string {
	return folder + "/" + id
}
