package workflow

import (
	"context"
	"log/slog"
	"sync"

	"mediaq/internal/events"
	"mediaq/internal/job"
	"mediaq/internal/logging"
	"mediaq/internal/power"
)

// Persister stores the ordered job collection.
type Persister interface {
	// Load returns the saved collection. It never fails; unreadable state
	// yields an empty slice.
	Load(ctx context.Context) []*job.Job
	Save(ctx context.Context, records []job.Record) error
}

// RunState is the worker's lifecycle.
type RunState string

const (
	StateIdle      RunState = "idle"
	StateWorking   RunState = "working"
	StateCompleted RunState = "completed"
)

// Manager is the queue engine. Construct it with NewManager; the zero value
// is not usable.
type Manager struct {
	store     Persister
	runtime   job.Runtime
	hub       *events.Hub
	inhibitor power.Inhibitor
	logger    *slog.Logger

	mu        sync.Mutex
	jobs      []*job.Job
	current   *job.Job
	state     RunState
	cancelled bool
	cancelJob context.CancelFunc
	done      chan struct{}
	succeeded int
	failed    int
	lastErr   error
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithInhibitor holds a sleep inhibitor while the worker runs.
func WithInhibitor(inhibitor power.Inhibitor) ManagerOption {
	return func(m *Manager) {
		if inhibitor != nil {
			m.inhibitor = inhibitor
		}
	}
}

// NewManager constructs a manager with an empty collection. Call Restore to
// load the persisted queue.
func NewManager(store Persister, rt job.Runtime, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "workflow")
	if rt.Logger == nil {
		rt.Logger = logger
	}
	m := &Manager{
		store:     store,
		runtime:   rt,
		hub:       events.NewHub(0),
		inhibitor: power.Noop{},
		logger:    logger,
		state:     StateIdle,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Restore replaces the collection with the persisted one. It is a no-op
// returning zero while the worker runs.
func (m *Manager) Restore(ctx context.Context) int {
	if m.store == nil {
		return 0
	}
	loaded := m.store.Load(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateWorking {
		return 0
	}
	m.jobs = loaded
	m.logger.Info("queue restored",
		logging.Int("jobs", len(loaded)),
		logging.String(logging.FieldEventType, "queue_restored"),
	)
	return len(loaded)
}

// Events returns the hub the manager publishes to.
func (m *Manager) Events() *events.Hub {
	return m.hub
}

// Subscribe registers fn for every subsequent event. Call the returned func
// to unsubscribe.
func (m *Manager) Subscribe(fn func(events.Event)) func() {
	return m.hub.Subscribe(fn)
}

// Save persists the collection now.
func (m *Manager) Save(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	return m.store.Save(ctx, m.records())
}

func (m *Manager) records() []job.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]job.Record, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, j.Record())
	}
	return out
}

// checkpoint saves the collection and logs failures; the worker carries on
// either way.
func (m *Manager) checkpoint(ctx context.Context) {
	if err := m.Save(context.WithoutCancel(ctx)); err != nil {
		m.setLastError(err)
		logging.WarnWithContext(m.logger, "queue checkpoint failed", "checkpoint_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check state_dir permissions and free space"),
			logging.String(logging.FieldImpact, "queue changes since the last checkpoint may be lost on restart"),
		)
	}
}

func (m *Manager) publish(evt events.Event) {
	m.hub.Publish(evt)
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}
