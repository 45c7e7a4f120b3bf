package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mailwatch/internal/errs"
	"github.com/nhle/mailwatch/internal/mailer"
	"github.com/nhle/mailwatch/internal/model"
	"github.com/nhle/mailwatch/internal/scheduler"
)

type fakePasser struct {
	calls  int
	folder string
	read   bool
	err    error
}

func (f *fakePasser) RunOnce(_ context.Context, folder string, markAsRead bool) (int, error) {
	f.calls++
	f.folder = folder
	f.read = markAsRead
	return 1, f.err
}

type fakeBulk struct {
	mu  sync.Mutex
	csv []string
	req []mailer.BulkRequest
}

func (f *fakeBulk) SendBulk(_ context.Context, req mailer.BulkRequest) (mailer.BulkResult, error) {
	data, err := io.ReadAll(req.CSV)
	if err != nil {
		return mailer.BulkResult{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.csv = append(f.csv, string(data))
	f.req = append(f.req, req)
	return mailer.BulkResult{Sent: strings.Count(string(data), "\n")}, nil
}

type fakeStats struct {
	stats model.Stats
	err   error
}

func (f fakeStats) Stats(context.Context) (model.Stats, error) { return f.stats, f.err }

type fakeNotifier struct {
	subjects []string
	bodies   []string
}

func (f *fakeNotifier) SendNotification(_ context.Context, subject, body string) error {
	f.subjects = append(f.subjects, subject)
	f.bodies = append(f.bodies, body)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMonitorJob(t *testing.T) {
	p := &fakePasser{err: errs.New(errs.Connection, "connecting", errors.New("refused"))}
	job := MonitorJob(p, "Work", true)

	err := job(context.Background())
	assert.True(t, errs.Is(err, errs.Connection))
	assert.Equal(t, 1, p.calls)
	assert.Equal(t, "Work", p.folder)
	assert.True(t, p.read)
}

func TestBulkJobReopensFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.csv")
	require.NoError(t, os.WriteFile(path, []byte("email,name\na@example.com,A\n"), 0o644))

	b := &fakeBulk{}
	job := BulkJob(b, BulkSpec{CSVPath: path, SubjectTemplate: "Hi {name}", BodyTemplate: "x"})

	require.NoError(t, job(context.Background()))
	require.NoError(t, os.WriteFile(path, []byte("email,name\nb@example.com,B\n"), 0o644))
	require.NoError(t, job(context.Background()))

	require.Len(t, b.csv, 2)
	assert.Contains(t, b.csv[0], "a@example.com")
	assert.Contains(t, b.csv[1], "b@example.com")
	assert.Equal(t, "Hi {name}", b.req[0].SubjectTemplate)
}

func TestBulkJobMissingFile(t *testing.T) {
	job := BulkJob(&fakeBulk{}, BulkSpec{CSVPath: filepath.Join(t.TempDir(), "missing.csv")})
	require.Error(t, job(context.Background()))
}

func TestWeeklyReportJob(t *testing.T) {
	n := &fakeNotifier{}
	job := WeeklyReportJob(fakeStats{stats: model.Stats{Sent: 3, Failed: 1, Monitored: 9}}, n)

	require.NoError(t, job(context.Background()))
	require.Len(t, n.subjects, 1)
	assert.Equal(t, "Weekly Email Report", n.subjects[0])
	assert.Contains(t, n.bodies[0], "Monitored: 9")
}

func TestWeeklyReportJobStatsError(t *testing.T) {
	n := &fakeNotifier{}
	job := WeeklyReportJob(fakeStats{err: errors.New("db closed")}, n)

	require.Error(t, job(context.Background()))
	assert.Empty(t, n.subjects)
}

func TestSchedulePlanApply(t *testing.T) {
	// 2024-01-01 is a Monday.
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	s := scheduler.New(discardLogger(), scheduler.WithClock(func() time.Time { return now }))

	plan := SchedulePlan{
		MonitorEveryMinutes: 5,
		Bulk:                &BulkSpec{CSVPath: "contacts.csv"},
		BulkAt:              "09:30",
		ReportDay:           "friday",
		ReportAt:            "17:00",
	}
	require.False(t, plan.IsEmpty())
	require.NoError(t, plan.Apply(s, JobDeps{}))

	jobs := s.Jobs()
	require.Len(t, jobs, 3)
	assert.Equal(t, "email monitoring", jobs[0].Name)
	assert.Equal(t, now.Add(5*time.Minute), jobs[0].NextRun)
	assert.Equal(t, "bulk email", jobs[1].Name)
	assert.Equal(t, time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC), jobs[1].NextRun)
	assert.Equal(t, "weekly report", jobs[2].Name)
	assert.Equal(t, time.Date(2024, 1, 5, 17, 0, 0, 0, time.UTC), jobs[2].NextRun)
}

func TestSchedulePlanRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		plan SchedulePlan
	}{
		{"bad weekday", SchedulePlan{ReportDay: "someday", ReportAt: "09:00"}},
		{"bad report time", SchedulePlan{ReportDay: "monday", ReportAt: "9am"}},
		{"bad bulk time", SchedulePlan{Bulk: &BulkSpec{}, BulkAt: "25:00"}},
		{"negative interval", SchedulePlan{MonitorEveryMinutes: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := scheduler.New(discardLogger())
			err := tt.plan.Apply(s, JobDeps{})
			require.Error(t, err)
			assert.True(t, errs.Is(err, errs.Config))
			assert.Empty(t, s.Jobs())
		})
	}
}

func TestScheduledWeeklyReportRuns(t *testing.T) {
	clock := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	s := scheduler.New(discardLogger(), scheduler.WithClock(func() time.Time { return clock }))

	n := &fakeNotifier{}
	plan := SchedulePlan{ReportDay: "Monday", ReportAt: "09:00"}
	require.NoError(t, plan.Apply(s, JobDeps{Stats: fakeStats{}, Notifier: n}))

	assert.Equal(t, 0, s.RunPending(context.Background()))
	clock = clock.Add(time.Hour)
	assert.Equal(t, 1, s.RunPending(context.Background()))
	assert.Equal(t, []string{"Weekly Email Report"}, n.subjects)
}
