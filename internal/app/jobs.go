package app

import (
	"context"
	"fmt"
	"os"

	"github.com/nhle/mailwatch/internal/mailer"
	"github.com/nhle/mailwatch/internal/model"
	"github.com/nhle/mailwatch/internal/scheduler"
)

// Passer runs a single monitoring pass.
type Passer interface {
	RunOnce(ctx context.Context, folder string, markAsRead bool) (int, error)
}

// BulkSender sends a personalized bulk mailing.
type BulkSender interface {
	SendBulk(ctx context.Context, req mailer.BulkRequest) (mailer.BulkResult, error)
}

// StatsReader reads aggregate counts from the store.
type StatsReader interface {
	Stats(ctx context.Context) (model.Stats, error)
}

// Notifier sends a message to the configured notification address.
type Notifier interface {
	SendNotification(ctx context.Context, subject, body string) error
}

// BulkSpec describes the input of a bulk send.
type BulkSpec struct {
	CSVPath         string
	SubjectTemplate string
	BodyTemplate    string
	HTML            bool
}

// MonitorJob runs one monitoring pass per invocation.
func MonitorJob(p Passer, folder string, markAsRead bool) scheduler.JobFunc {
	return func(ctx context.Context) error {
		_, err := p.RunOnce(ctx, folder, markAsRead)
		return err
	}
}

// BulkJob sends the bulk mailing described by spec. The CSV file is
// reopened on every run so edits between runs are picked up.
func BulkJob(s BulkSender, spec BulkSpec) scheduler.JobFunc {
	return func(ctx context.Context) error {
		_, err := SendBulkFile(ctx, s, spec)
		return err
	}
}

// SendBulkFile opens spec.CSVPath and sends one message per row.
func SendBulkFile(ctx context.Context, s BulkSender, spec BulkSpec) (mailer.BulkResult, error) {
	f, err := os.Open(spec.CSVPath)
	if err != nil {
		return mailer.BulkResult{}, fmt.Errorf("opening CSV %s: %w", spec.CSVPath, err)
	}
	defer f.Close()

	return s.SendBulk(ctx, mailer.BulkRequest{
		CSV:             f,
		SubjectTemplate: spec.SubjectTemplate,
		BodyTemplate:    spec.BodyTemplate,
		HTML:            spec.HTML,
	})
}

// WeeklyReportJob mails the current statistics to the notification
// address.
func WeeklyReportJob(stats StatsReader, n Notifier) scheduler.JobFunc {
	return func(ctx context.Context) error {
		st, err := stats.Stats(ctx)
		if err != nil {
			return fmt.Errorf("reading stats: %w", err)
		}
		subject, body := mailer.WeeklyReport(st)
		return n.SendNotification(ctx, subject, body)
	}
}

// SchedulePlan lists the jobs to register. Zero values disable a job.
type SchedulePlan struct {
	MonitorEveryMinutes int

	Bulk   *BulkSpec
	BulkAt string

	ReportDay string
	ReportAt  string
}

// JobDeps are the components the scheduled jobs call.
type JobDeps struct {
	Monitor    Passer
	Folder     string
	MarkAsRead bool
	Bulk       BulkSender
	Stats      StatsReader
	Notifier   Notifier
}

// Apply validates the plan and registers its jobs on s. Nothing is
// registered if any part of the plan is invalid.
func (p SchedulePlan) Apply(s *scheduler.Scheduler, deps JobDeps) error {
	type entry struct {
		name    string
		cadence scheduler.Cadence
		fn      scheduler.JobFunc
	}
	var entries []entry

	if p.MonitorEveryMinutes != 0 {
		c, err := scheduler.EveryMinutes(p.MonitorEveryMinutes)
		if err != nil {
			return err
		}
		entries = append(entries, entry{"email monitoring", c,
			MonitorJob(deps.Monitor, deps.Folder, deps.MarkAsRead)})
	}

	if p.Bulk != nil {
		at, err := scheduler.ParseTimeOfDay(p.BulkAt)
		if err != nil {
			return err
		}
		entries = append(entries, entry{"bulk email", scheduler.DailyAt(at),
			BulkJob(deps.Bulk, *p.Bulk)})
	}

	if p.ReportDay != "" {
		day, err := scheduler.ParseWeekday(p.ReportDay)
		if err != nil {
			return err
		}
		at, err := scheduler.ParseTimeOfDay(p.ReportAt)
		if err != nil {
			return err
		}
		entries = append(entries, entry{"weekly report", scheduler.WeeklyAt(day, at),
			WeeklyReportJob(deps.Stats, deps.Notifier)})
	}

	for _, e := range entries {
		s.Add(e.name, e.cadence, e.fn)
	}
	return nil
}

// IsEmpty reports whether the plan registers no jobs.
func (p SchedulePlan) IsEmpty() bool {
	return p.MonitorEveryMinutes == 0 && p.Bulk == nil && p.ReportDay == ""
}

// Deps returns the job dependencies backed by these services.
func (s *Services) Deps() JobDeps {
	return JobDeps{
		Monitor:    s.Monitor,
		Folder:     s.Config.Monitor.Folder,
		MarkAsRead: s.Config.Monitor.MarkAsRead,
		Bulk:       s.Mailer,
		Stats:      s.Store,
		Notifier:   s.Mailer,
	}
}
