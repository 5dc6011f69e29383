package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"mediaq/internal/config"
	"mediaq/internal/events"
	"mediaq/internal/logging"
	"mediaq/internal/preflight"
	"mediaq/internal/queue"
	"mediaq/internal/workflow"
)

// Daemon coordinates the queue engine and enforces single-instance execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *queue.Store
	manager *workflow.Manager

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information. DatabaseError is set when the health check itself failed.
type Status struct {
	Running       bool
	Queue         workflow.StatusSummary
	QueueDBPath   string
	LockFilePath  string
	Database      queue.Health
	DatabaseError string
	Checks        []preflight.Result
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, manager *workflow.Manager, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || manager == nil {
		return nil, errors.New("daemon requires config, store, and queue manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		manager:  manager,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and, when auto_start is set and jobs are
// ready, starts the queue.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another mediaq daemon instance is already running")
	}

	d.mu.Lock()
	d.ctx, d.cancel = context.WithCancel(ctx)
	d.mu.Unlock()
	d.running.Store(true)

	d.logger.Info("mediaq daemon started",
		logging.String("lock", d.lockPath),
		logging.Int("jobs", d.manager.Count()),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	if d.cfg.Queue.AutoStart {
		d.autoStart()
	}
	return nil
}

// Stop cancels the in-flight job, waits for the worker to exit, checkpoints
// the queue and releases the daemon lock.
func (d *Daemon) Stop(ctx context.Context) {
	if !d.running.Swap(false) {
		return
	}

	d.manager.Stop()
	if err := d.manager.Wait(ctx); err != nil {
		logging.WarnWithContext(d.logger, "queue did not stop in time", "queue_stop_timeout",
			logging.Error(err),
			logging.String(logging.FieldImpact, "the in-flight job may be reported as interrupted on next start"),
		)
	}

	d.mu.Lock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.ctx = nil
	d.mu.Unlock()

	if err := d.manager.Save(context.WithoutCancel(ctx)); err != nil {
		logging.WarnWithContext(d.logger, "final queue save failed", "checkpoint_failed", logging.Error(err))
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.logger.Info("mediaq daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop(context.Background())
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether Start succeeded and Stop has not been called.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		Queue:        d.manager.Status(),
		QueueDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
		Checks:       preflight.RunAll(ctx, d.cfg),
	}
	health, err := d.store.CheckHealth(ctx)
	status.Database = health
	if err != nil {
		status.DatabaseError = err.Error()
	}
	return status
}

// Events returns queue events numbered after since. With since zero and no
// wait it returns the most recent limit events instead.
func (d *Daemon) Events(ctx context.Context, since uint64, limit int, wait bool) ([]events.Event, uint64, error) {
	hub := d.manager.Events()
	if since == 0 && !wait {
		evts, next := hub.Tail(limit)
		return evts, next, nil
	}
	return hub.Fetch(ctx, since, limit, wait)
}

func (d *Daemon) runContext() (context.Context, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ctx == nil {
		return nil, errors.New("daemon is not running")
	}
	return d.ctx, nil
}

func (d *Daemon) autoStart() {
	if d.manager.ReadyCount() == 0 {
		return
	}
	if _, err := d.StartQueue(); err != nil {
		d.logger.Debug("auto start skipped", logging.Error(err))
	}
}
