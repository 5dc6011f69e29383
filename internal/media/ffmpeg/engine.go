package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"mediaq/internal/logging"
	"mediaq/internal/media"
	"mediaq/internal/media/ffprobe"
	"mediaq/internal/services"
)

var commandContext = exec.CommandContext

// Transcoder re-encodes a source file into outputDir and returns the path of
// the encoded file. progress receives percentages in [0, 100].
type Transcoder interface {
	Encode(ctx context.Context, inputPath, outputDir string, progress func(percent float64)) (string, error)
}

// Engine is a media.Engine backed by the ffmpeg command-line tools.
type Engine struct {
	ffmpeg     string
	ffprobe    string
	transcoder Transcoder
	logger     *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithBinaries overrides the ffmpeg and ffprobe executables.
func WithBinaries(ffmpegBin, ffprobeBin string) Option {
	return func(e *Engine) {
		if strings.TrimSpace(ffmpegBin) != "" {
			e.ffmpeg = ffmpegBin
		}
		if strings.TrimSpace(ffprobeBin) != "" {
			e.ffprobe = ffprobeBin
		}
	}
}

// WithTranscoder makes Write re-encode the source before remuxing.
func WithTranscoder(t Transcoder) Option {
	return func(e *Engine) { e.transcoder = t }
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New constructs an Engine using ffmpeg/ffprobe from PATH by default.
func New(opts ...Option) *Engine {
	e := &Engine{ffmpeg: "ffmpeg", ffprobe: "ffprobe", logger: logging.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.NewComponentLogger(e.logger, "ffmpeg")
	return e
}

var _ media.Engine = (*Engine)(nil)

// Open probes path and returns a handle describing its contents.
func (e *Engine) Open(ctx context.Context, path string) (media.Handle, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	probe, err := ffprobe.Inspect(ctx, e.ffprobe, path)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "engine", "probe", path, err)
	}
	return newHandle(path, probe), nil
}

// Write renders the handle into dest.
func (e *Engine) Write(ctx context.Context, mh media.Handle, dest string, opts map[string]string) error {
	h, err := asHandle(mh)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer h.OnCancel(cancel)()

	input := h.Path()
	transcoded := false
	base, span := 0.0, 100.0
	if e.transcoder != nil {
		staging, err := os.MkdirTemp(filepath.Dir(dest), ".mediaq-transcode-")
		if err != nil {
			return fmt.Errorf("create staging directory: %w", err)
		}
		defer os.RemoveAll(staging)

		encoded, err := e.transcoder.Encode(ctx, input, staging, func(p float64) {
			h.ReportProgress(p * 0.9)
		})
		if err != nil {
			return fmt.Errorf("transcode: %w", err)
		}
		input = encoded
		transcoded = true
		base, span = 90, 10
	}

	if err := e.remux(ctx, h, input, transcoded, dest, opts, base, span); err != nil {
		return err
	}
	h.setOutput(dest)
	return nil
}

// UpdateInPlace rewrites the source container with the handle's changes.
func (e *Engine) UpdateInPlace(ctx context.Context, mh media.Handle, opts map[string]string) error {
	h, err := asHandle(mh)
	if err != nil {
		return err
	}
	if !h.HasFileRepresentation() {
		return fmt.Errorf("%s: container does not support in-place updates", h.Path())
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer h.OnCancel(cancel)()

	if err := e.remux(ctx, h, h.Path(), false, h.Path(), opts, 0, 100); err != nil {
		return err
	}
	h.setOutput(h.Path())
	return nil
}

// Optimize moves the index of the written file to the front. It reports
// false on any failure and leaves the original output untouched.
func (e *Engine) Optimize(ctx context.Context, mh media.Handle) bool {
	h, err := asHandle(mh)
	if err != nil {
		return false
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer h.OnCancel(cancel)()

	target := h.outputPath()
	tmp := tempSibling(target, "optimize")
	if err := e.run(ctx, optimizeArgs(target, tmp), h.duration, 0, 100, h.ReportProgress); err != nil {
		_ = os.Remove(tmp)
		e.logger.Warn("optimize failed",
			logging.String("path", target),
			logging.Error(err),
			logging.String(logging.FieldEventType, "optimize_failed"),
		)
		return false
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		e.logger.Warn("optimize rename failed", logging.String("path", target), logging.Error(err))
		return false
	}
	return true
}

func (e *Engine) remux(ctx context.Context, h *handle, input string, transcoded bool, dest string, opts map[string]string, base, span float64) error {
	tmp := tempSibling(dest, "write")
	plan := newWritePlan(h, input, transcoded, tmp, opts)

	if chapters := h.Chapters(); len(chapters) > 0 {
		chaptersFile := tempSibling(dest, "chapters") + ".ffmeta"
		duration := time.Duration(h.duration * float64(time.Second))
		if err := os.WriteFile(chaptersFile, []byte(chapterMetadata(chapters, duration)), 0o644); err != nil {
			return fmt.Errorf("write chapters: %w", err)
		}
		defer os.Remove(chaptersFile)
		plan.chaptersFile = chaptersFile
	}

	e.logger.Debug("ffmpeg remux",
		logging.String("input", input),
		logging.String("destination", dest),
		logging.Int("streams", len(plan.maps)),
		logging.Bool("transcoded", transcoded),
	)
	if err := e.run(ctx, plan.args(), h.duration, base, span, h.ReportProgress); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("move output into place: %w", err)
	}
	return nil
}

func (e *Engine) run(ctx context.Context, args []string, duration, base, span float64, report func(float64)) error {
	cmd := commandContext(ctx, e.ffmpeg, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return services.Wrap(services.ErrExternalTool, "engine", "start ffmpeg", "", err)
	}
	parseProgress(stdout, duration, base, span, report)
	if err := cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return services.Wrap(services.ErrExternalTool, "engine", "ffmpeg", lastLine(stderr.String()), err)
	}
	return nil
}

func asHandle(mh media.Handle) (*handle, error) {
	h, ok := mh.(*handle)
	if !ok || h == nil {
		return nil, errors.New("ffmpeg: handle was not opened by this engine")
	}
	return h, nil
}

func lastLine(output string) string {
	output = strings.TrimSpace(output)
	if idx := strings.LastIndexByte(output, '\n'); idx >= 0 {
		return strings.TrimSpace(output[idx+1:])
	}
	return output
}
