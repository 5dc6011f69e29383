package job

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"mediaq/internal/logging"
	"mediaq/internal/media"
	"mediaq/internal/services"
)

// Runtime carries the collaborators a job needs while it runs. Actions are
// serializable and receive the runtime instead of holding references.
type Runtime struct {
	Engine   media.Engine
	Metadata media.MetadataProvider
	// FreeSpace reports available bytes on the volume holding dir. Nil skips
	// the disk space check.
	FreeSpace func(ctx context.Context, dir string) (uint64, error)
	Logger    *slog.Logger
}

func (rt Runtime) logger(ctx context.Context) *slog.Logger {
	return logging.WithContext(ctx, rt.Logger)
}

// ProgressFunc receives the current working description and a completion
// percentage in [0, 100].
type ProgressFunc func(description string, percent float64)

const (
	descWriting = "Writing"
)

// Prepare opens the source through the engine and runs the pre actions in
// order. Pre action failures are logged and do not stop the pipeline.
func (j *Job) Prepare(ctx context.Context, rt Runtime, progress ProgressFunc) error {
	ctx = services.WithJobID(ctx, j.ID)
	ctx = services.WithStage(ctx, "prepare")
	logger := rt.logger(ctx)

	if _, err := os.Stat(j.Source); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return newError(ErrSourceNotFound, "prepare", j.Source, nil)
		}
		return newError(ErrSourceNotFound, "prepare", j.Source, err)
	}

	h, err := rt.Engine.Open(ctx, j.Source)
	if err != nil {
		return newError(ErrEngineWrite, "open", j.Source, err)
	}
	j.setHandle(h)

	for _, action := range j.Actions() {
		if action.Phase() != PhasePre {
			continue
		}
		if ctx.Err() != nil {
			return nil
		}
		j.setDescription(action.WorkingDescription())
		if progress != nil {
			progress(action.WorkingDescription(), 0)
		}
		if err := action.Apply(ctx, rt, j); err != nil {
			logging.WarnWithContext(logger, "pre action failed", "action_failed",
				logging.String(logging.FieldAction, string(action.Kind())),
				logging.Error(err),
				logging.String(logging.FieldImpact, "job continues without this step"),
			)
		}
	}
	return nil
}

// Process runs the full lifecycle: prepare when no handle is open yet, write
// the output, then run the post actions. The handle is released before
// returning. A cancelled ctx skips remaining steps; the caller decides the
// final status.
func (j *Job) Process(ctx context.Context, rt Runtime, progress ProgressFunc) error {
	if j.Handle() == nil {
		if err := j.Prepare(ctx, rt, progress); err != nil {
			return err
		}
	}
	h := j.Handle()
	defer func() {
		h.SetProgressHandler(nil)
		_ = h.Close()
		j.setHandle(nil)
	}()

	ctx = services.WithJobID(ctx, j.ID)
	logger := rt.logger(ctx)

	j.setDescription(descWriting)
	h.SetProgressHandler(func(percent float64) {
		if progress != nil {
			progress(j.Description(), percent)
		}
	})

	if ctx.Err() == nil {
		if err := j.write(services.WithStage(ctx, "write"), rt, h); err != nil {
			return err
		}
	}

	if ctx.Err() != nil {
		return nil
	}
	for _, action := range j.Actions() {
		if action.Phase() != PhasePost {
			continue
		}
		if ctx.Err() != nil {
			return nil
		}
		j.setDescription(action.WorkingDescription())
		if progress != nil {
			progress(action.WorkingDescription(), 0)
		}
		err := action.Apply(services.WithStage(ctx, "post"), rt, j)
		if err == nil {
			continue
		}
		if action.Kind() == KindOptimize {
			return newError(ErrOptimizationFailed, "optimize", j.Destination(), nil)
		}
		logging.WarnWithContext(logger, "post action failed", "action_failed",
			logging.String(logging.FieldAction, string(action.Kind())),
			logging.Error(err),
			logging.String(logging.FieldImpact, "output written without this step"),
		)
	}
	return nil
}

func (j *Job) write(ctx context.Context, rt Runtime, h media.Handle) error {
	dest := j.Destination()
	opts := j.Attributes()

	if samePath(j.Source, dest) {
		var err error
		if h.HasFileRepresentation() {
			err = rt.Engine.UpdateInPlace(ctx, h, opts)
		} else {
			err = rt.Engine.Write(ctx, h, dest, opts)
		}
		if err != nil {
			return newError(ErrEngineWrite, "write", dest, err)
		}
		return nil
	}

	if opts[AttrOverwrite] != "true" {
		if _, err := os.Stat(dest); err == nil {
			return newError(ErrDestinationExists, "write", dest, nil)
		}
	}
	if err := checkDiskSpace(ctx, rt, h, dest); err != nil {
		return err
	}
	if err := rt.Engine.Write(ctx, h, dest, opts); err != nil {
		return newError(ErrEngineWrite, "write", dest, err)
	}
	return nil
}

// checkDiskSpace is a point-in-time estimate. A failed query is logged and
// the write proceeds; a real shortage then surfaces as a write error.
func checkDiskSpace(ctx context.Context, rt Runtime, h media.Handle, dest string) error {
	if rt.FreeSpace == nil {
		return nil
	}
	dir := filepath.Dir(dest)
	free, err := rt.FreeSpace(ctx, existingAncestor(dir))
	if err != nil {
		rt.logger(ctx).Debug("disk space query failed", logging.String("dir", dir), logging.Error(err))
		return nil
	}
	if size := h.DataSize(); size > 0 && uint64(size) > free {
		return newError(ErrOutOfDiskSpace, "write", dest, nil)
	}
	return nil
}

func existingAncestor(dir string) string {
	for {
		if _, err := os.Stat(dir); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}

func samePath(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}
