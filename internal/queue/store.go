package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"mediaq/internal/job"
	"mediaq/internal/logging"
)

// InterruptedMessage is recorded on jobs found working at load time.
const InterruptedMessage = "interrupted"

// Save replaces the stored collection with records, preserving their order.
func (s *Store) Save(ctx context.Context, records []job.Record) error {
	rows := make([]storedJob, 0, len(records))
	for _, r := range records {
		row, err := encodeRecord(r)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	return retryOnBusy(ctx, func() error {
		return s.saveTx(ctx, rows)
	})
}

func (s *Store) saveTx(ctx context.Context, rows []storedJob) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM jobs"); err != nil {
		return fmt.Errorf("clear jobs: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO jobs (`+jobColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for position, row := range rows {
		if _, err := stmt.ExecContext(ctx,
			row.id,
			position,
			row.source,
			row.destination,
			row.status,
			nullableString(row.actionsJSON),
			nullableString(row.attributesJSON),
			nullableString(row.errorMessage),
			row.createdAt,
			row.updatedAt,
		); err != nil {
			return fmt.Errorf("insert job %s: %w", row.id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// Read returns every stored record in position order. Any undecodable row
// fails the whole read with job.ErrDecode.
func (s *Store) Read(ctx context.Context) ([]job.Record, error) {
	var records []job.Record
	err := retryOnBusy(ctx, func() error {
		records = nil
		rows, err := s.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM jobs ORDER BY position`)
		if err != nil {
			return fmt.Errorf("query jobs: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			r, err := scanRecord(rows)
			if err != nil {
				return err
			}
			records = append(records, r)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Load returns the stored jobs ready for the queue engine. It never fails:
// on any read or decode error it logs, backs up the database and returns an
// empty collection. Working records are returned failed.
func (s *Store) Load(ctx context.Context) []*job.Job {
	records, err := s.Read(ctx)
	if err != nil {
		backup := fmt.Sprintf("%s.unreadable-%d", s.path, time.Now().Unix())
		backupErr := s.Backup(ctx, backup)
		attrs := []logging.Attr{
			logging.String("path", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "queue starts empty"),
		}
		if backupErr == nil {
			attrs = append(attrs, logging.String("backup", backup))
		} else {
			attrs = append(attrs, logging.String("backup_error", backupErr.Error()))
		}
		logging.WarnWithContext(s.logger, "queue load failed", "queue_load_failed", attrs...)
		return []*job.Job{}
	}

	jobs := make([]*job.Job, 0, len(records))
	interrupted := 0
	for _, r := range records {
		if r.Status == job.StatusWorking {
			r.Status = job.StatusFailed
			r.ErrorMessage = InterruptedMessage
			interrupted++
		}
		jobs = append(jobs, job.FromRecord(r))
	}
	s.logger.Info("queue loaded",
		logging.Int("jobs", len(jobs)),
		logging.Int("interrupted", interrupted),
	)
	return jobs
}

type storedJob struct {
	id             string
	source         string
	destination    string
	status         string
	actionsJSON    string
	attributesJSON string
	errorMessage   string
	createdAt      string
	updatedAt      string
}

func encodeRecord(r job.Record) (storedJob, error) {
	row := storedJob{
		id:           r.ID,
		source:       r.Source,
		destination:  r.Destination,
		status:       string(r.Status),
		errorMessage: r.ErrorMessage,
		createdAt:    formatTime(r.CreatedAt),
		updatedAt:    formatTime(r.UpdatedAt),
	}
	if len(r.Actions) > 0 {
		data, err := job.EncodeActions(r.Actions)
		if err != nil {
			return storedJob{}, fmt.Errorf("encode actions of %s: %w", r.ID, err)
		}
		row.actionsJSON = string(data)
	}
	if len(r.Attributes) > 0 {
		data, err := json.Marshal(r.Attributes)
		if err != nil {
			return storedJob{}, fmt.Errorf("encode attributes of %s: %w", r.ID, err)
		}
		row.attributesJSON = string(data)
	}
	return row, nil
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (job.Record, error) {
	var (
		id           string
		position     int
		source       string
		destination  string
		statusRaw    string
		actions      sql.NullString
		attributes   sql.NullString
		errorMessage sql.NullString
		createdRaw   string
		updatedRaw   string
	)
	if err := scanner.Scan(&id, &position, &source, &destination, &statusRaw,
		&actions, &attributes, &errorMessage, &createdRaw, &updatedRaw); err != nil {
		return job.Record{}, fmt.Errorf("scan job: %w", err)
	}

	status, ok := job.ParseStatus(statusRaw)
	if !ok {
		return job.Record{}, fmt.Errorf("%w: job %s has unknown status %q", job.ErrDecode, id, statusRaw)
	}
	r := job.Record{
		ID:           id,
		Source:       source,
		Destination:  destination,
		Status:       status,
		ErrorMessage: errorMessage.String,
	}
	if actions.Valid {
		decoded, err := job.DecodeActions([]byte(actions.String))
		if err != nil {
			return job.Record{}, fmt.Errorf("job %s: %w", id, err)
		}
		r.Actions = decoded
	}
	if attributes.Valid && attributes.String != "" {
		if err := json.Unmarshal([]byte(attributes.String), &r.Attributes); err != nil {
			return job.Record{}, fmt.Errorf("%w: job %s attributes: %w", job.ErrDecode, id, err)
		}
	}
	var err error
	if r.CreatedAt, err = parseTimeString(createdRaw); err != nil {
		return job.Record{}, fmt.Errorf("%w: job %s created_at: %w", job.ErrDecode, id, err)
	}
	if r.UpdatedAt, err = parseTimeString(updatedRaw); err != nil {
		r.UpdatedAt = r.CreatedAt
	}
	return r, nil
}
