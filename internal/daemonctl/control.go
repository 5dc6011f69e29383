// Package daemonctl launches, probes and stops the background mediaq daemon
// on behalf of the CLI.
package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"mediaq/internal/config"
	"mediaq/internal/ipc"
	"mediaq/internal/logging"
	"mediaq/internal/preflight"
	"mediaq/internal/queue"
)

// ErrDaemonNotRunning indicates daemon IPC is unavailable.
var ErrDaemonNotRunning = errors.New("daemon not running")

// LaunchOptions controls daemon process launch behavior.
type LaunchOptions struct {
	ConfigPath string
	LogLevel   string
}

// Launch starts a detached mediaq daemon process.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return fmt.Errorf("resolve executable: executable path is empty")
	}

	args := []string{"daemon", "run"}
	if cfg := strings.TrimSpace(opts.ConfigPath); cfg != "" {
		args = append(args, "--config", cfg)
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		args = append(args, "--log-level", level)
	}

	proc := exec.Command(executablePath, args...)
	proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

// WaitForClient waits for IPC socket availability and returns a connected client.
func WaitForClient(socketPath string, timeout time.Duration) (*ipc.Client, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		client, err := ipc.Dial(socketPath)
		if err == nil {
			return client, nil
		}
		lastErr = err
		time.Sleep(200 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for daemon")
	}
	return nil, fmt.Errorf("daemon failed to start: %w", lastErr)
}

// EnsureRunning connects to the daemon, launching it first when the socket
// is unavailable. It reports whether a new process was launched.
func EnsureRunning(socketPath, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (*ipc.Client, bool, error) {
	client, err := ipc.Dial(socketPath)
	if err == nil {
		return client, false, nil
	}
	if !IsDaemonUnavailable(err) {
		return nil, false, err
	}
	if err := Launch(executablePath, opts); err != nil {
		return nil, false, err
	}
	client, err = WaitForClient(socketPath, waitTimeout)
	if err != nil {
		return nil, false, err
	}
	return client, true, nil
}

// WaitForShutdown waits for daemon IPC to disappear.
func WaitForShutdown(socketPath string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		client, err := ipc.Dial(socketPath)
		if err != nil {
			if IsDaemonUnavailable(err) {
				return nil
			}
			time.Sleep(200 * time.Millisecond)
			continue
		}
		_ = client.Close()
		time.Sleep(200 * time.Millisecond)
	}
	return errors.New("daemon did not stop: timeout waiting for shutdown")
}

// ShutdownResult captures the outcome of Shutdown.
type ShutdownResult struct {
	PID        int
	ForcedKill bool
}

// Shutdown sends SIGTERM to the daemon recorded in pidPath, which stops the
// queue and checkpoints it, and sends SIGKILL if it is still reachable after
// gracePeriod.
func Shutdown(socketPath, pidPath string, gracePeriod time.Duration) (ShutdownResult, error) {
	pid, err := pidFromSocketOrFile(socketPath, pidPath)
	if err != nil {
		return ShutdownResult{}, err
	}
	if pid == os.Getpid() {
		return ShutdownResult{}, fmt.Errorf("refusing to signal current process (pid %d)", pid)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return ShutdownResult{}, fmt.Errorf("locate daemon process %d: %w", pid, err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			return ShutdownResult{PID: pid}, nil
		}
		return ShutdownResult{}, fmt.Errorf("signal daemon process %d: %w", pid, err)
	}

	result := ShutdownResult{PID: pid}
	if WaitForShutdown(socketPath, gracePeriod) == nil {
		return result, nil
	}
	if err := proc.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return result, fmt.Errorf("kill daemon process %d: %w", pid, err)
	}
	_ = os.Remove(pidPath)
	_ = os.Remove(socketPath)
	result.ForcedKill = true
	return result, nil
}

func pidFromSocketOrFile(socketPath, pidPath string) (int, error) {
	if client, err := ipc.Dial(socketPath); err == nil {
		status, statusErr := client.Status()
		_ = client.Close()
		if statusErr == nil && status.PID > 0 {
			return status.PID, nil
		}
	}
	data, err := os.ReadFile(pidPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, ErrDaemonNotRunning
		}
		return 0, fmt.Errorf("read daemon pid file %q: %w", pidPath, err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("unable to determine daemon pid (pid file: %s)", pidPath)
	}
	return pid, nil
}

// BuildStatusSnapshot asks the daemon for its status and, when it is not
// reachable, fills queue counts from the store and runs the preflight checks
// locally.
func BuildStatusSnapshot(ctx context.Context, socketPath string, cfg *config.Config) (*ipc.StatusResponse, error) {
	if cfg == nil {
		return nil, errors.New("configuration not available")
	}

	if client, err := ipc.Dial(socketPath); err == nil {
		defer client.Close()
		if resp, statusErr := client.Status(); statusErr == nil && resp != nil {
			return resp, nil
		}
	}

	resp := &ipc.StatusResponse{
		State:       "offline",
		QueueDBPath: cfg.StorePath(),
		LockPath:    cfg.LockPath(),
		Counts:      map[string]int{},
	}
	queryCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if _, statErr := os.Stat(cfg.StorePath()); statErr == nil {
		store, openErr := queue.Open(cfg, logging.NewNop())
		if openErr == nil {
			stats, statsErr := store.Stats(queryCtx)
			health, healthErr := store.CheckHealth(queryCtx)
			var healthText string
			if healthErr != nil {
				healthText = healthErr.Error()
			}
			resp.Database = ipc.DatabaseInfoFrom(health, healthText)
			_ = store.Close()
			if statsErr == nil {
				for status, count := range stats {
					resp.Counts[string(status)] = count
					resp.Total += count
				}
			}
		}
	}
	for _, check := range preflight.RunAll(ctx, cfg) {
		resp.Checks = append(resp.Checks, ipc.CheckResult{Name: check.Name, Passed: check.Passed, Detail: check.Detail})
	}
	return resp, nil
}

// IsDaemonUnavailable reports whether err means nothing is listening on the socket.
func IsDaemonUnavailable(err error) bool {
	return os.IsNotExist(err) ||
		errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, syscall.ENOENT) ||
		errors.Is(err, syscall.ECONNREFUSED)
}
