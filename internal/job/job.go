package job

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"mediaq/internal/media"
)

// Attribute keys understood by the lifecycle and engines.
const (
	AttrLargeFile       = media.OptionLargeFile
	AttrChapterPreviews = media.OptionChapterPreviews
	AttrForceHVC1       = media.OptionForceHVC1
	// AttrOverwrite allows the write to replace an existing destination.
	AttrOverwrite = "overwrite"
)

// LargeFileThreshold is the source size above which the large_file
// attribute is set.
const LargeFileThreshold int64 = 3_800_000_000

// Record is a detached copy of a job's durable state.
type Record struct {
	ID           string            `json:"id"`
	Source       string            `json:"source"`
	Destination  string            `json:"destination"`
	Status       Status            `json:"status"`
	Actions      []Action          `json:"-"`
	Attributes   map[string]string `json:"attributes,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	// WorkingDescription is transient progress text; it is never persisted.
	WorkingDescription string `json:"working_description,omitempty"`
}

// Job is one queued conversion. Fields other than ID, Source and CreatedAt
// are guarded by the job's mutex; callers holding the queue engine lock may
// take it, never the reverse.
type Job struct {
	ID        string
	Source    string
	CreatedAt time.Time

	mu           sync.Mutex
	destination  string
	status       Status
	actions      []Action
	attributes   map[string]string
	errorMessage string
	description  string
	updatedAt    time.Time
	handle       media.Handle
}

// New creates a ready job with a fresh identifier.
func New(source, destination string, actions []Action, attributes map[string]string) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:          uuid.NewString(),
		Source:      source,
		CreatedAt:   now,
		destination: destination,
		status:      StatusReady,
		actions:     slices.Clone(actions),
		attributes:  cloneAttributes(attributes),
		updatedAt:   now,
	}
}

// FromRecord rebuilds a job from persisted state.
func FromRecord(r Record) *Job {
	id := strings.TrimSpace(r.ID)
	if id == "" {
		id = uuid.NewString()
	}
	status := r.Status
	if _, ok := statusSet[status]; !ok {
		status = StatusReady
	}
	return &Job{
		ID:           id,
		Source:       r.Source,
		CreatedAt:    r.CreatedAt,
		destination:  r.Destination,
		status:       status,
		actions:      slices.Clone(r.Actions),
		attributes:   cloneAttributes(r.Attributes),
		errorMessage: r.ErrorMessage,
		updatedAt:    r.UpdatedAt,
	}
}

// Record returns a detached copy of the job's state.
func (j *Job) Record() Record {
	j.mu.Lock()
	defer j.mu.Unlock()
	return Record{
		ID:                 j.ID,
		Source:             j.Source,
		Destination:        j.destination,
		Status:             j.status,
		Actions:            slices.Clone(j.actions),
		Attributes:         cloneAttributes(j.attributes),
		ErrorMessage:       j.errorMessage,
		CreatedAt:          j.CreatedAt,
		UpdatedAt:          j.updatedAt,
		WorkingDescription: j.description,
	}
}

func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

func (j *Job) Destination() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.destination
}

// SetDestination changes where the job writes. Only ready jobs accept it.
func (j *Job) SetDestination(dest string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status != StatusReady {
		return fmt.Errorf("%w: destination of %s job", ErrJobLocked, j.status)
	}
	j.destination = dest
	j.touch()
	return nil
}

// rewriteDestination is used by pre actions while the job runs.
func (j *Job) rewriteDestination(dest string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.destination = dest
	j.touch()
}

func (j *Job) Actions() []Action {
	j.mu.Lock()
	defer j.mu.Unlock()
	return slices.Clone(j.actions)
}

// AppendAction adds an action to a ready job.
func (j *Job) AppendAction(a Action) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status != StatusReady {
		return fmt.Errorf("%w: actions of %s job", ErrJobLocked, j.status)
	}
	j.actions = append(j.actions, a)
	j.touch()
	return nil
}

// RemoveAction drops the action at index from a ready job.
func (j *Job) RemoveAction(index int) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status != StatusReady {
		return fmt.Errorf("%w: actions of %s job", ErrJobLocked, j.status)
	}
	if index < 0 || index >= len(j.actions) {
		return fmt.Errorf("action index %d out of range", index)
	}
	j.actions = slices.Delete(j.actions, index, index+1)
	j.touch()
	return nil
}

func (j *Job) Attributes() map[string]string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return cloneAttributes(j.attributes)
}

func (j *Job) Attribute(key string) string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.attributes[key]
}

func (j *Job) ErrorMessage() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.errorMessage
}

// Description is the transient progress text of a running job.
func (j *Job) Description() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.description
}

func (j *Job) setDescription(text string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.description = text
}

// Handle returns the open media handle while the job is being processed.
func (j *Job) Handle() media.Handle {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.handle
}

func (j *Job) setHandle(h media.Handle) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.handle = h
}

// Cancel asks the in-flight engine call, if any, to abort.
func (j *Job) Cancel() {
	if h := j.Handle(); h != nil {
		h.Cancel()
	}
}

// MarkWorking moves a ready job into working.
func (j *Job) MarkWorking() error {
	return j.transition(StatusWorking, "")
}

// MarkCompleted records a successful run.
func (j *Job) MarkCompleted() error {
	return j.transition(StatusCompleted, "")
}

// MarkFailed records a failed run and its cause.
func (j *Job) MarkFailed(cause error) error {
	msg := "unknown failure"
	if cause != nil {
		msg = cause.Error()
	}
	return j.transition(StatusFailed, msg)
}

// MarkCancelled records a run stopped by the user.
func (j *Job) MarkCancelled() error {
	return j.transition(StatusCancelled, "")
}

// Reset returns a failed or cancelled job to ready.
func (j *Job) Reset() error {
	return j.transition(StatusReady, "")
}

func (j *Job) transition(to Status, message string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !CanTransition(j.status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.status, to)
	}
	j.status = to
	j.errorMessage = message
	if to != StatusWorking {
		j.description = ""
	}
	j.touch()
	return nil
}

func (j *Job) touch() {
	j.updatedAt = time.Now().UTC()
}

func cloneAttributes(attrs map[string]string) map[string]string {
	if len(attrs) == 0 {
		return map[string]string{}
	}
	return maps.Clone(attrs)
}
