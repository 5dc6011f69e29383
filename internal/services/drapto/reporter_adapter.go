package drapto

import (
	"log/slog"
	"sync"

	draptolib "github.com/five82/drapto"

	"mediaq/internal/logging"
)

// reporter folds Drapto's callbacks into one monotonic percentage. Analysis
// stages cover the first tenth; the encode covers the rest.
type reporter struct {
	mu       sync.Mutex
	progress func(float64)
	logger   *slog.Logger
	last     float64
}

func newReporter(progress func(float64), logger *slog.Logger) *reporter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &reporter{progress: progress, logger: logger}
}

func (r *reporter) emit(percent float64) {
	if r.progress == nil {
		return
	}
	r.mu.Lock()
	if percent <= r.last {
		r.mu.Unlock()
		return
	}
	r.last = percent
	r.mu.Unlock()
	r.progress(percent)
}

func (r *reporter) Hardware(draptolib.HardwareSummary) {}

func (r *reporter) Initialization(s draptolib.InitializationSummary) {
	r.logger.Info("drapto encode initialized",
		logging.Any("input", s.InputFile),
		logging.Any("resolution", s.Resolution),
		logging.Any("dynamic_range", s.DynamicRange),
	)
}

func (r *reporter) StageProgress(s draptolib.StageProgress) {
	r.emit(clampPercent(float64(s.Percent)) * 0.1)
}

func (r *reporter) CropResult(draptolib.CropSummary) {}

func (r *reporter) EncodingConfig(s draptolib.EncodingConfigSummary) {
	r.logger.Debug("drapto encoding config",
		logging.Any("encoder", s.Encoder),
		logging.Any("preset", s.Preset),
		logging.Any("quality", s.Quality),
	)
}

func (r *reporter) EncodingStarted(uint64) {
	r.emit(10)
}

func (r *reporter) EncodingProgress(s draptolib.ProgressSnapshot) {
	r.emit(10 + clampPercent(float64(s.Percent))*0.9)
}

func (r *reporter) ValidationComplete(s draptolib.ValidationSummary) {
	if !s.Passed {
		logging.WarnWithContext(r.logger, "drapto validation reported failures", "drapto_validation",
			logging.String(logging.FieldImpact, "encoded output may not match the source"),
		)
	}
}

func (r *reporter) EncodingComplete(draptolib.EncodingOutcome) {
	r.emit(100)
}

func (r *reporter) Warning(message string) {
	logging.WarnWithContext(r.logger, "drapto warning", "drapto_warning", logging.String("detail", message))
}

func (r *reporter) Error(e draptolib.ReporterError) {
	logging.ErrorWithContext(r.logger, "drapto error", "drapto_error",
		logging.Any("title", e.Title),
		logging.Any("detail", e.Message),
		logging.Any(logging.FieldErrorHint, e.Suggestion),
	)
}

func (r *reporter) OperationComplete(string) {}

func (r *reporter) BatchStarted(draptolib.BatchStartInfo) {}

func (r *reporter) FileProgress(draptolib.FileProgressContext) {}

func (r *reporter) BatchComplete(draptolib.BatchSummary) {}

func clampPercent(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}

var _ draptolib.Reporter = (*reporter)(nil)
