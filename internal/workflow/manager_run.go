package workflow

import (
	"context"
	"errors"
	"log/slog"

	"mediaq/internal/events"
	"mediaq/internal/job"
	"mediaq/internal/logging"
	"mediaq/internal/services"
)

const (
	inhibitReason     = "Processing the mediaq queue"
	descPreparing     = "Preparing"
	percentComplete   = 100
	progressLogBucket = 25
)

// Start launches the worker. It reports false, and does nothing, when the
// worker is already running. The worker stops when ctx ends, when Stop is
// called, or when no ready job remains.
func (m *Manager) Start(ctx context.Context) bool {
	m.mu.Lock()
	if m.state == StateWorking {
		m.mu.Unlock()
		return false
	}
	m.state = StateWorking
	m.cancelled = false
	m.succeeded = 0
	m.failed = 0
	done := make(chan struct{})
	m.done = done
	m.mu.Unlock()

	release := m.inhibit()
	m.logger.Info("queue started",
		logging.Int("ready", m.ReadyCount()),
		logging.String(logging.FieldEventType, "queue_started"),
	)
	go m.run(ctx, release, done)
	return true
}

// Stop cancels the in-flight job and prevents further jobs from starting.
// It returns immediately; use Wait to block until the worker exits.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.state != StateWorking {
		m.mu.Unlock()
		return
	}
	m.cancelled = true
	cancel := m.cancelJob
	current := m.current
	m.mu.Unlock()

	m.logger.Info("queue stop requested", logging.String(logging.FieldEventType, "queue_stop_requested"))
	if cancel != nil {
		cancel()
	}
	if current != nil {
		current.Cancel()
	}
}

// Wait blocks until the worker started by the most recent Start exits or ctx
// ends. It returns immediately when nothing was started.
func (m *Manager) Wait(ctx context.Context) error {
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running reports whether the worker is active.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateWorking
}

func (m *Manager) inhibit() func() {
	release, err := m.inhibitor.Inhibit(inhibitReason)
	if err != nil {
		logging.WarnWithContext(m.logger, "sleep inhibitor unavailable", "inhibit_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "the system may sleep while the queue runs"),
		)
		return func() {}
	}
	return release
}

func (m *Manager) run(ctx context.Context, release func(), done chan struct{}) {
	defer func() {
		m.checkpoint(ctx)
		release()
		succeeded, failed := m.finish()
		m.logger.Info("queue finished",
			logging.Int("succeeded", succeeded),
			logging.Int("failed", failed),
			logging.String(logging.FieldEventType, "queue_completed"),
		)
		m.publish(events.Completed(succeeded, failed))
		close(done)
	}()

	for {
		j, index, jobCtx, ok := m.next(ctx)
		if !ok {
			return
		}
		m.checkpoint(ctx)
		if stop := m.process(jobCtx, j, index); stop {
			return
		}
	}
}

// next marks the first ready job working and returns it together with its
// context. ok is false when the queue was stopped or nothing is ready.
func (m *Manager) next(ctx context.Context) (*job.Job, int, context.Context, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancelled || ctx.Err() != nil {
		return nil, -1, nil, false
	}
	for i, j := range m.jobs {
		if j.Status() != job.StatusReady {
			continue
		}
		if err := j.MarkWorking(); err != nil {
			m.logger.Debug("skipping job", logging.String(logging.FieldJobID, j.ID), logging.Error(err))
			continue
		}
		jobCtx, cancel := context.WithCancel(services.WithJobID(ctx, j.ID))
		m.current = j
		m.cancelJob = cancel
		return j, i, jobCtx, true
	}
	return nil, -1, nil, false
}

// process runs one job and reports whether the worker must stop.
func (m *Manager) process(ctx context.Context, j *job.Job, index int) bool {
	logger := logging.WithContext(ctx, m.logger)
	logger.Info("job started",
		logging.String("source", j.Source),
		logging.Int(logging.FieldJobIndex, index),
		logging.String(logging.FieldEventType, "job_started"),
	)
	m.publish(events.Working(j.ID, index, 0, descPreparing))

	sampler := logging.NewProgressSampler(progressLogBucket)
	err := j.Process(ctx, m.runtime, func(description string, percent float64) {
		if sampler.ShouldLog(percent, description) {
			logger.Debug("job progress",
				logging.String("step", description),
				logging.Float64("percent", percent),
				logging.String(logging.FieldEventType, "job_progress"),
			)
		}
		m.publish(events.Working(j.ID, m.indexOf(j), percent, description))
	})

	m.mu.Lock()
	cancel := m.cancelJob
	m.cancelJob = nil
	m.current = nil
	stopped := m.cancelled || ctx.Err() != nil
	index = m.indexOfJobLocked(j)
	switch {
	case stopped:
		_ = j.MarkCancelled()
	case err != nil:
		_ = j.MarkFailed(err)
		m.failed++
		m.lastErr = err
	default:
		_ = j.MarkCompleted()
		m.succeeded++
	}
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	switch {
	case stopped:
		logger.Info("job cancelled",
			logging.Int(logging.FieldJobIndex, index),
			logging.String(logging.FieldEventType, "job_cancelled"),
		)
		m.publish(events.Cancelled(j.ID, index))
		return true
	case err != nil:
		m.logFailure(logger, err)
		m.publish(events.Failed(j.ID, index, err))
		return false
	default:
		logger.Info("job completed",
			logging.String("destination", j.Destination()),
			logging.String(logging.FieldEventType, "job_completed"),
		)
		m.publish(events.Working(j.ID, index, percentComplete, j.Destination()))
		return false
	}
}

func (m *Manager) logFailure(logger *slog.Logger, err error) {
	attrs := []logging.Attr{
		logging.Error(err),
		logging.String(logging.FieldImpact, "job marked failed; the queue continues"),
	}
	hint := job.Suggestion(err)
	if kind := services.Kind(err); kind != "" {
		attrs = append(attrs, logging.String(logging.FieldErrorKind, kind))
		if hint == "" {
			hint = services.Hint(err)
		}
	}
	if hint != "" {
		attrs = append(attrs, logging.String(logging.FieldErrorHint, hint))
	}
	var jobErr *job.Error
	if errors.As(err, &jobErr) {
		attrs = append(attrs, logging.String("op", jobErr.Op))
	}
	logging.ErrorWithContext(logger, "job failed", "job_failed", attrs...)
}

func (m *Manager) indexOf(j *job.Job) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.indexOfJobLocked(j)
}

func (m *Manager) finish() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateCompleted
	m.current = nil
	m.cancelJob = nil
	return m.succeeded, m.failed
}
