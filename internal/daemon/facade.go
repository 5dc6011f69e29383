package daemon

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"mediaq/internal/job"
	"mediaq/internal/logging"
	"mediaq/internal/notifications"
	"mediaq/internal/workflow"
)

// Add creates jobs for paths and inserts them at index, or appends them when
// index is negative. The queue starts afterwards when auto_start is set.
func (d *Daemon) Add(ctx context.Context, paths []string, index int) ([]job.Record, error) {
	jobs, err := NewJobs(d.cfg, paths)
	if err != nil {
		return nil, err
	}
	if index < 0 {
		d.manager.Enqueue(jobs...)
	} else if err := d.manager.Insert(index, jobs...); err != nil {
		return nil, err
	}

	records := make([]job.Record, 0, len(jobs))
	for _, j := range jobs {
		records = append(records, j.Record())
		d.logger.Info("job queued",
			logging.String(logging.FieldJobID, j.ID),
			logging.String("source", j.Source),
			logging.String("destination", j.Destination()),
			logging.String(logging.FieldEventType, "job_queued"),
		)
	}
	d.save(ctx)
	if d.cfg.Queue.AutoStart {
		d.autoStart()
	}
	return records, nil
}

// List returns a snapshot of the queue in order.
func (d *Daemon) List() []job.Record {
	return d.manager.Jobs()
}

// Remove deletes the jobs with the given ids. The working job cannot be removed.
func (d *Daemon) Remove(ctx context.Context, ids []string) (int, error) {
	removed, err := d.manager.RemoveIDs(ids...)
	if err != nil {
		return 0, err
	}
	d.save(ctx)
	return len(removed), nil
}

// Move relocates the job at from to index to.
func (d *Daemon) Move(ctx context.Context, from, to int) error {
	if err := d.manager.Move(from, to); err != nil {
		return err
	}
	d.save(ctx)
	return nil
}

// StartQueue starts the worker. It reports false when it was already running.
func (d *Daemon) StartQueue() (bool, error) {
	ctx, err := d.runContext()
	if err != nil {
		return false, err
	}
	return d.manager.Start(ctx), nil
}

// StopQueue cancels the in-flight job and stops the worker.
func (d *Daemon) StopQueue() {
	d.manager.Stop()
}

// StartAndWait starts the queue and blocks until the worker exits or ctx ends.
func (d *Daemon) StartAndWait(ctx context.Context) (workflow.StatusSummary, error) {
	if _, err := d.StartQueue(); err != nil {
		return workflow.StatusSummary{}, err
	}
	if err := d.manager.Wait(ctx); err != nil {
		return d.manager.Status(), fmt.Errorf("wait for queue: %w", err)
	}
	return d.manager.Status(), nil
}

// ClearCompleted removes completed jobs and returns how many were removed.
func (d *Daemon) ClearCompleted(ctx context.Context) int {
	removed := d.manager.RemoveCompleted()
	if len(removed) > 0 {
		d.save(ctx)
	}
	return len(removed)
}

// Retry returns a failed or cancelled job to ready.
func (d *Daemon) Retry(ctx context.Context, id string) error {
	if err := d.manager.Retry(id); err != nil {
		return err
	}
	d.save(ctx)
	return nil
}

// SetDestination changes where a ready job writes its output and returns the
// stored path. A relative path is taken from the source's directory.
func (d *Daemon) SetDestination(ctx context.Context, id, dest string) (string, error) {
	dest = strings.TrimSpace(dest)
	if dest == "" {
		return "", fmt.Errorf("destination is required")
	}
	rec, err := d.manager.Job(id)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(dest) {
		dest = filepath.Join(filepath.Dir(rec.Source), dest)
	}
	dest = filepath.Clean(dest)
	if err := d.manager.SetDestination(id, dest); err != nil {
		return "", err
	}
	d.save(ctx)
	return dest, nil
}

// TestNotification sends a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := notifications.NewService(d.cfg).Publish(ctx, notifications.EventTest, nil); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

func (d *Daemon) save(ctx context.Context) {
	if err := d.manager.Save(context.WithoutCancel(ctx)); err != nil {
		logging.WarnWithContext(d.logger, "queue save failed", "checkpoint_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "recent queue edits may be lost on restart"),
		)
	}
}
