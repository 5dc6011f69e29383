package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"mediaq/internal/logging"
)

// Starter is the part of the Manager the scheduler drives.
type Starter interface {
	Start(ctx context.Context) bool
	ReadyCount() int
}

// Scheduler starts the queue whenever a standard five-field cron expression
// fires and ready jobs are waiting.
type Scheduler struct {
	schedule cron.Schedule
	expr     string
	target   Starter
	logger   *slog.Logger
	now      func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler parses expr and returns a stopped scheduler.
func NewScheduler(expr string, target Starter, logger *slog.Logger) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("parse start schedule %q: %w", expr, err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Scheduler{
		schedule: schedule,
		expr:     expr,
		target:   target,
		logger:   logging.NewComponentLogger(logger, "scheduler"),
		now:      time.Now,
	}, nil
}

// Next returns the first activation strictly after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t)
}

// Start runs the schedule until ctx ends or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return fmt.Errorf("scheduler already started")
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	go s.loop(runCtx)

	s.logger.Info("start schedule armed",
		logging.String("schedule", s.expr),
		logging.String("next", s.Next(s.now()).Format(time.RFC3339)),
	)
	return nil
}

// Stop halts the schedule and waits for the loop to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()
	for {
		next := s.Next(s.now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		s.fire(ctx)
	}
}

func (s *Scheduler) fire(ctx context.Context) {
	ready := s.target.ReadyCount()
	if ready == 0 {
		s.logger.Debug("scheduled start skipped; nothing ready")
		return
	}
	if s.target.Start(ctx) {
		s.logger.Info("queue started by schedule",
			logging.Int("ready", ready),
			logging.String(logging.FieldEventType, "scheduled_start"),
		)
	}
}
