// Package scheduler triggers index builds on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	apperrors "github.com/Adithya-Monish-Kumar-K/reverse-index/pkg/errors"
)

// Trigger names passed to RunFunc.
const (
	TriggerSchedule = "schedule"
	TriggerStartup  = "startup"
)

// RunFunc performs one build. trigger says what started it.
type RunFunc func(ctx context.Context, trigger string) error

// Scheduler runs a RunFunc on a standard five-field cron schedule.
type Scheduler struct {
	cron           *cron.Cron
	schedule       cron.Schedule
	spec           string
	loc            *time.Location
	run            RunFunc
	runImmediately bool
	logger         *slog.Logger
	wg             sync.WaitGroup
}

// New parses spec (e.g. "0 1 * * *" for daily at 01:00) in the named time
// zone ("Local" or an IANA name).
func New(spec, timezone string, runImmediately bool, run RunFunc) (*Scheduler, error) {
	loc := time.Local
	if timezone != "" && timezone != "Local" {
		l, err := time.LoadLocation(timezone)
		if err != nil {
			return nil, fmt.Errorf("loading timezone %q: %w", timezone, err)
		}
		loc = l
	}
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parsing schedule %q: %w", spec, err)
	}
	logger := slog.Default().With("component", "scheduler")
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cronLogger{logger: logger}),
		cron.WithChain(cron.Recover(cronLogger{logger: logger})),
	)
	return &Scheduler{
		cron:           c,
		schedule:       schedule,
		spec:           spec,
		loc:            loc,
		run:            run,
		runImmediately: runImmediately,
		logger:         logger,
	}, nil
}

// Next returns the next scheduled run time after t, in the scheduler's zone.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t.In(s.loc))
}

// Start schedules the job and blocks until ctx is cancelled, then waits for
// any in-flight run to return.
func (s *Scheduler) Start(ctx context.Context) error {
	s.cron.Schedule(s.schedule, cron.FuncJob(func() {
		s.invoke(ctx, TriggerSchedule)
	}))
	if s.runImmediately {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.invoke(ctx, TriggerStartup)
		}()
	}
	s.cron.Start()
	s.logger.Info("scheduler started",
		"schedule", s.spec,
		"next_run", s.Next(time.Now()),
	)

	<-ctx.Done()
	s.logger.Info("scheduler stopping, waiting for running job")
	<-s.cron.Stop().Done()
	s.wg.Wait()
	return nil
}

func (s *Scheduler) invoke(ctx context.Context, trigger string) {
	if ctx.Err() != nil {
		return
	}
	err := s.run(ctx, trigger)
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrRunInProgress):
		s.logger.Warn("skipping trigger, run already in progress", "trigger", trigger)
	default:
		s.logger.Error("scheduled run failed", "trigger", trigger, "error", err)
	}
	s.logger.Info("next run scheduled", "next_run", s.Next(time.Now()))
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
