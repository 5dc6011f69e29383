package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"mediaq/internal/config"
	"mediaq/internal/daemon"
	"mediaq/internal/fileutil"
	"mediaq/internal/ipc"
	"mediaq/internal/job"
	"mediaq/internal/logging"
	"mediaq/internal/logs"
	"mediaq/internal/media/ffmpeg"
	"mediaq/internal/media/nfo"
	"mediaq/internal/notifications"
	"mediaq/internal/power"
	"mediaq/internal/preflight"
	"mediaq/internal/queue"
	"mediaq/internal/services/drapto"
	"mediaq/internal/workflow"
)

// shutdownGrace bounds how long shutdown waits for the in-flight job to
// acknowledge cancellation.
const shutdownGrace = 30 * time.Second

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the mediaq daemon and blocks until SIGINT/SIGTERM or cmdCtx ends.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("mediaq-%s.log", runID))
	level := opts.LogLevel
	if strings.TrimSpace(level) == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update mediaq.log link: %v\n", err)
	}
	logs.Prune(cfg.Paths.LogDir, "mediaq-*.log",
		time.Duration(cfg.Logging.RetentionDays)*24*time.Hour, []string{logPath}, logger)

	logDependencySnapshot(signalCtx, logger, cfg)
	for _, failed := range preflight.Failed(preflight.RunAll(signalCtx, cfg)) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", failed.Name),
			logging.String("detail", failed.Detail),
			logging.String(logging.FieldImpact, "jobs that depend on it will fail"),
		)
	}

	pidPath := PIDPath(cfg)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := queue.Open(cfg, logger)
	if err != nil {
		logging.ErrorWithContext(logger, "open queue store", "store_open_failed", logging.Error(err))
		return err
	}

	manager := workflow.NewManager(store, newRuntime(cfg, logger), logger,
		workflow.WithInhibitor(power.Best("mediaq", logger)))
	restored := manager.Restore(signalCtx)
	if cfg.Queue.ClearCompletedOnStart {
		if removed := manager.RemoveCompleted(); len(removed) > 0 {
			logger.Info("cleared completed jobs", logging.Int("removed_count", len(removed)))
			if err := manager.Save(signalCtx); err != nil {
				logging.WarnWithContext(logger, "queue save failed", "checkpoint_failed", logging.Error(err))
			}
		}
	}
	logger.Info("queue restored",
		logging.Int("jobs", restored),
		logging.Int("ready", manager.ReadyCount()),
		logging.String(logging.FieldEventType, "queue_restored"),
	)

	observer := notifications.NewObserver(cfg, notifications.NewService(cfg), describer(manager), logger)
	unsubscribe := manager.Subscribe(observer.Handle)
	defer unsubscribe()

	d, err := daemon.New(cfg, store, manager, logger)
	if err != nil {
		store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(signalCtx, cfg.Paths.Socket, d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	if expr := strings.TrimSpace(cfg.Queue.StartSchedule); expr != "" {
		scheduler, err := workflow.NewScheduler(expr, scheduledStarter{d: d, manager: manager}, logger)
		if err != nil {
			return err
		}
		if err := scheduler.Start(signalCtx); err != nil {
			return err
		}
		defer scheduler.Stop()
	}

	<-signalCtx.Done()
	logger.Info("mediaq daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))

	stopCtx, stopCancel := context.WithTimeout(context.WithoutCancel(cmdCtx), shutdownGrace)
	defer stopCancel()
	d.Stop(stopCtx)
	return nil
}

// PIDPath is where the running daemon records its process id.
func PIDPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.StateDir, "mediaq.pid")
}

func newRuntime(cfg *config.Config, logger *slog.Logger) job.Runtime {
	engineOpts := []ffmpeg.Option{
		ffmpeg.WithBinaries(cfg.FFmpegBinary(), cfg.FFprobeBinary()),
		ffmpeg.WithLogger(logger),
	}
	if cfg.Engine.Transcode {
		engineOpts = append(engineOpts, ffmpeg.WithTranscoder(drapto.NewLibrary(logger)))
	}
	return job.Runtime{
		Engine:    ffmpeg.New(engineOpts...),
		Metadata:  nfo.New(logger),
		FreeSpace: fileutil.AvailableBytes,
		Logger:    logger,
	}
}

// describer names jobs in notifications by their source file.
func describer(manager *workflow.Manager) func(string) string {
	return func(id string) string {
		record, err := manager.Job(id)
		if err != nil {
			return ""
		}
		return filepath.Base(record.Source)
	}
}

// scheduledStarter routes scheduled starts through the daemon so they use
// its run context.
type scheduledStarter struct {
	d       *daemon.Daemon
	manager *workflow.Manager
}

func (s scheduledStarter) Start(context.Context) bool {
	started, err := s.d.StartQueue()
	return err == nil && started
}

func (s scheduledStarter) ReadyCount() int {
	return s.manager.ReadyCount()
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "mediaq.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	attrs := []logging.Attr{logging.String(logging.FieldEventType, "dependency_snapshot")}
	for _, dep := range preflight.CheckSystemDeps(ctx, cfg) {
		key := strings.ToLower(dep.Name)
		attrs = append(attrs,
			logging.Bool(key+"_available", dep.Available),
			logging.String(key+"_binary", dep.Command),
			logging.String(key+"_version", dep.Version),
		)
	}
	attrs = append(attrs,
		logging.Bool("transcode_enabled", cfg.Engine.Transcode),
		logging.Bool("notifications_enabled", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
		logging.String("start_schedule", cfg.Queue.StartSchedule),
	)
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
}
