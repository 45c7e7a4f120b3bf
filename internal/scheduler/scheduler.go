// Package scheduler runs registered jobs on fixed cadences from a single
// goroutine. Jobs never overlap.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// JobFunc is the work performed by a scheduled job.
type JobFunc func(ctx context.Context) error

// Job is a registered unit of work.
type Job struct {
	name    string
	cadence Cadence
	fn      JobFunc

	next    time.Time
	lastRun time.Time
	lastErr error
}

// Name returns the job's name.
func (j *Job) Name() string { return j.name }

// JobInfo is a snapshot of a job's schedule.
type JobInfo struct {
	Name    string
	Cadence string
	NextRun time.Time
	LastRun time.Time
	LastErr error
}

// Scheduler owns an ordered list of jobs.
type Scheduler struct {
	mu     sync.Mutex
	jobs   []*Job
	now    func() time.Time
	tick   time.Duration
	logger *slog.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithTick sets how often Run checks for due jobs. The default is one
// second.
func WithTick(d time.Duration) Option {
	return func(s *Scheduler) { s.tick = d }
}

// New creates an empty scheduler.
func New(logger *slog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		now:    time.Now,
		tick:   time.Second,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add registers fn under name. The first run is the cadence's next time
// after now.
func (s *Scheduler) Add(name string, cadence Cadence, fn JobFunc) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	job := &Job{
		name:    name,
		cadence: cadence,
		fn:      fn,
		next:    cadence.Next(s.now()),
	}
	s.jobs = append(s.jobs, job)

	s.logger.Info("job scheduled", "job", name, "cadence", cadence.String(), "next_run", job.next)
	return job
}

// Jobs returns a snapshot of the registered jobs in registration order.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]JobInfo, 0, len(s.jobs))
	for _, j := range s.jobs {
		infos = append(infos, JobInfo{
			Name:    j.name,
			Cadence: j.cadence.String(),
			NextRun: j.next,
			LastRun: j.lastRun,
			LastErr: j.lastErr,
		})
	}
	return infos
}

// RunPending runs every job that is due, one after another in
// registration order, and returns how many ran. Each job is rescheduled
// from the time it finished. A job error is logged and does not stop
// the remaining jobs.
func (s *Scheduler) RunPending(ctx context.Context) int {
	s.mu.Lock()
	now := s.now()
	var due []*Job
	for _, j := range s.jobs {
		if !j.next.After(now) {
			due = append(due, j)
		}
	}
	s.mu.Unlock()

	ran := 0
	for _, j := range due {
		if ctx.Err() != nil {
			break
		}

		s.logger.Info("running job", "job", j.name)
		err := j.fn(ctx)
		if err != nil {
			s.logger.Error("job failed", "job", j.name, "error", err)
		}
		ran++

		s.mu.Lock()
		finished := s.now()
		j.lastRun = finished
		j.lastErr = err
		j.next = j.cadence.Next(finished)
		next := j.next
		s.mu.Unlock()

		s.logger.Debug("job rescheduled", "job", j.name, "next_run", next)
	}
	return ran
}

// Run calls RunPending on every tick until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started", "jobs", len(s.Jobs()))

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return nil
		case <-ticker.C:
			s.RunPending(ctx)
		}
	}
}
