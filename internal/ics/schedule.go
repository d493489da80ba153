package ics

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	appLog "sharecal/internal/log"
)

// Scheduler runs a job on a standard five-field cron schedule. A run still
// in progress when the next one fires causes that next run to be skipped.
type Scheduler struct {
	cron *cron.Cron
	job  func(ctx context.Context)
	ctx  context.Context
}

// NewScheduler validates schedule and registers job.
func NewScheduler(schedule string, loc *time.Location, job func(ctx context.Context)) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	logger := cronLogger{}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		job: job,
		ctx: context.Background(),
	}
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins firing in the background. Runs receive ctx, and the
// scheduler stops once ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()
}

// Stop prevents further runs and waits for a running job to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Next reports when the job fires next; zero before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) run() {
	if s.ctx.Err() != nil {
		return
	}
	s.job(s.ctx)
}

// cronLogger routes cron's own logging into the application log.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}
