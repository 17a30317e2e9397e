package notification

import (
	"context"
	"fmt"
	"time"

	"ms-scheduling/internal/logger"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the shooter introduction on its cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	command *ShooterIntroduction
	logger  *logger.Logger
	timeout time.Duration
}

// NewScheduler registers command under spec, evaluated in the command's studio timezone.
// Overlapping runs are skipped.
func NewScheduler(spec string, command *ShooterIntroduction, log *logger.Logger) (*Scheduler, error) {
	if log == nil {
		log = logger.Discard()
	}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(command.Location),
			cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
		),
		command: command,
		logger:  log,
		timeout: 30 * time.Minute,
	}
	if _, err := s.cron.AddFunc(spec, s.runOnce); err != nil {
		return nil, fmt.Errorf("invalid notifier schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	summary, err := s.command.Run(ctx)
	if err != nil {
		s.logger.Error("NOTIFY", fmt.Sprintf("%s failed: %v", CommandName, err))
		return
	}
	s.logger.Info("NOTIFY", fmt.Sprintf("%s done: orders=%d sent=%d failed=%d skipped=%t",
		CommandName, summary.Orders, summary.Sent, summary.Failed, summary.Skipped))
}

func (s *Scheduler) Start() {
	s.logger.Info("NOTIFY", fmt.Sprintf("%s scheduled", CommandName))
	s.cron.Start()
}

// Stop stops the schedule and returns a context that is done once a running job finishes.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Next reports the next planned run.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}
