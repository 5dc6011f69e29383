package job

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"mediaq/internal/fileutil"
)

// Optimize rewrites the output so the index precedes the media data. Its
// failure fails the job.
type Optimize struct{}

func (*Optimize) Kind() Kind                 { return KindOptimize }
func (*Optimize) Phase() Phase               { return PhasePost }
func (*Optimize) Description() string        { return "Optimize" }
func (*Optimize) WorkingDescription() string { return "Optimizing" }

var errOptimize = errors.New("engine could not optimize the output")

func (*Optimize) Apply(ctx context.Context, rt Runtime, j *Job) error {
	h, err := handleOf(j)
	if err != nil {
		return err
	}
	if !rt.Engine.Optimize(ctx, h) {
		return errOptimize
	}
	return nil
}

// SendToLibrary links the written output into a library directory.
type SendToLibrary struct {
	Dir string `json:"dir"`
}

func (*SendToLibrary) Kind() Kind   { return KindSendToLibrary }
func (*SendToLibrary) Phase() Phase { return PhasePost }

func (a *SendToLibrary) Description() string {
	return "Send to " + a.Dir
}

func (*SendToLibrary) WorkingDescription() string { return "Sending to library" }

func (a *SendToLibrary) Apply(_ context.Context, _ Runtime, j *Job) error {
	dest := j.Destination()
	target := filepath.Join(a.Dir, filepath.Base(dest))
	if samePath(dest, target) {
		return nil
	}
	if err := fileutil.LinkOrCopy(dest, target); err != nil {
		return fmt.Errorf("send to library: %w", err)
	}
	return nil
}

func (a *SendToLibrary) validate() error {
	if strings.TrimSpace(a.Dir) == "" || !filepath.IsAbs(a.Dir) {
		return fmt.Errorf("library dir must be an absolute path, got %q", a.Dir)
	}
	return nil
}
