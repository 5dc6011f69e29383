package ipc

import (
	"time"

	"mediaq/internal/events"
	"mediaq/internal/job"
	"mediaq/internal/queue"
)

// JobInfo is the wire form of a queued job.
type JobInfo struct {
	ID           string    `json:"id"`
	Index        int       `json:"index"`
	Source       string    `json:"source"`
	Destination  string    `json:"destination"`
	Status       string    `json:"status"`
	Actions      []string  `json:"actions,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Progress     string    `json:"progress,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FromRecord converts a job record at queue position index.
func FromRecord(r job.Record, index int) JobInfo {
	info := JobInfo{
		ID:           r.ID,
		Index:        index,
		Source:       r.Source,
		Destination:  r.Destination,
		Status:       string(r.Status),
		ErrorMessage: r.ErrorMessage,
		Progress:     r.WorkingDescription,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	for _, a := range r.Actions {
		info.Actions = append(info.Actions, a.Description())
	}
	return info
}

// AddRequest queues paths. Index -1 appends.
type AddRequest struct {
	Paths []string `json:"paths"`
	Index int      `json:"index"`
}

// AddResponse lists the jobs created.
type AddResponse struct {
	Jobs []JobInfo `json:"jobs"`
}

// ListRequest filters the listing by status; empty lists everything.
type ListRequest struct {
	Statuses []string `json:"statuses"`
}

// ListResponse contains queue entries in order.
type ListResponse struct {
	Jobs []JobInfo `json:"jobs"`
}

// RemoveRequest deletes jobs by id.
type RemoveRequest struct {
	IDs []string `json:"ids"`
}

// RemoveResponse reports the number of removed jobs.
type RemoveResponse struct {
	Removed int `json:"removed"`
}

// MoveRequest relocates the job at From to To.
type MoveRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// MoveResponse is empty on success.
type MoveResponse struct{}

// StartRequest starts the queue.
type StartRequest struct{}

// StartResponse indicates whether the queue was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest stops the queue.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StartAndWaitRequest starts the queue and blocks until it finishes.
type StartAndWaitRequest struct{}

// StartAndWaitResponse summarises the finished run.
type StartAndWaitResponse struct {
	State     string `json:"state"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	LastError string `json:"last_error,omitempty"`
}

// ClearCompletedRequest removes completed jobs.
type ClearCompletedRequest struct{}

// ClearCompletedResponse reports number of removed entries.
type ClearCompletedResponse struct {
	Removed int `json:"removed"`
}

// RetryRequest returns failed or cancelled jobs to ready.
type RetryRequest struct {
	IDs []string `json:"ids"`
}

// RetryResponse reports number of retried jobs.
type RetryResponse struct {
	Retried int `json:"retried"`
}

// SetDestinationRequest changes the output path of a ready job.
type SetDestinationRequest struct {
	ID          string `json:"id"`
	Destination string `json:"destination"`
}

// SetDestinationResponse echoes the stored destination.
type SetDestinationResponse struct {
	Destination string `json:"destination"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// CheckResult describes a preflight check.
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// DatabaseInfo reports the queue database health check.
type DatabaseInfo struct {
	SchemaVersion int    `json:"schema_version"`
	SchemaCurrent bool   `json:"schema_current"`
	Integrity     string `json:"integrity"`
	StoredJobs    int    `json:"stored_jobs"`
	Error         string `json:"error,omitempty"`
}

// Healthy reports whether the database passed every check.
func (d DatabaseInfo) Healthy() bool {
	return d.Error == "" && d.SchemaCurrent && d.Integrity == "ok"
}

// DatabaseInfoFrom converts a store health result. errText carries the
// failure of the check itself, if any.
func DatabaseInfoFrom(h queue.Health, errText string) *DatabaseInfo {
	return &DatabaseInfo{
		SchemaVersion: h.SchemaVersion,
		SchemaCurrent: h.SchemaCurrent(),
		Integrity:     h.Integrity,
		StoredJobs:    h.Jobs,
		Error:         errText,
	}
}

// StatusResponse represents combined daemon and queue status information.
type StatusResponse struct {
	Running     bool           `json:"running"`
	State       string         `json:"state"`
	Total       int            `json:"total"`
	Counts      map[string]int `json:"counts"`
	Current     *JobInfo       `json:"current,omitempty"`
	Succeeded   int            `json:"succeeded"`
	Failed      int            `json:"failed"`
	LastError   string         `json:"last_error,omitempty"`
	LockPath    string         `json:"lock_path"`
	QueueDBPath string         `json:"queue_db_path"`
	Database    *DatabaseInfo  `json:"database,omitempty"`
	Checks      []CheckResult  `json:"checks"`
	PID         int            `json:"pid"`
}

// TestNotificationRequest triggers a test notification.
type TestNotificationRequest struct{}

// TestNotificationResponse reports the notification result.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}

// EventsRequest polls the queue event backlog.
type EventsRequest struct {
	Since uint64 `json:"since"`
	Limit int    `json:"limit"`
	// WaitSeconds blocks up to this long for a new event when none is pending.
	WaitSeconds int `json:"wait_seconds"`
}

// EventsResponse carries events and the cursor for the next poll.
type EventsResponse struct {
	Events []events.Event `json:"events"`
	Next   uint64         `json:"next"`
}
