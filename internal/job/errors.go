package job

import (
	"errors"
	"strings"
)

// Failure taxonomy recorded on jobs.
var (
	ErrSourceNotFound     = errors.New("file not found")
	ErrDestinationExists  = errors.New("a file already exists at the destination")
	ErrOutOfDiskSpace     = errors.New("not enough disk space")
	ErrOptimizationFailed = errors.New("the file couldn't be optimized")
	// ErrEngineWrite wraps failures reported by the media engine.
	ErrEngineWrite = errors.New("media engine failure")
	// ErrDecode marks persisted jobs or actions that cannot be decoded.
	ErrDecode = errors.New("decode error")
)

// Misuse errors returned to callers mutating jobs.
var (
	ErrJobLocked         = errors.New("job is no longer editable")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrIndexOutOfRange   = errors.New("queue index out of range")
	ErrNotFound          = errors.New("job not found")
)

// Error describes a failed lifecycle step. errors.Is matches both Kind and
// the underlying cause.
type Error struct {
	Kind error
	Op   string
	Path string
	Err  error
}

func newError(kind error, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Path != "" {
		b.WriteByte(' ')
		b.WriteString(e.Path)
	}
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Suggestion returns a short recovery hint for a job failure.
func Suggestion(err error) string {
	switch {
	case errors.Is(err, ErrSourceNotFound):
		return "Check that the source file still exists and re-add it."
	case errors.Is(err, ErrDestinationExists):
		return "Move the existing file away or enable overwrite."
	case errors.Is(err, ErrOutOfDiskSpace):
		return "Free space on the destination volume or pick another destination."
	case errors.Is(err, ErrOptimizationFailed):
		return "The file was written; disable the optimize action to keep it without a failure."
	case errors.Is(err, ErrEngineWrite):
		return "Inspect the engine output in the daemon log."
	default:
		return ""
	}
}
