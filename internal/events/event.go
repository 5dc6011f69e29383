package events

import "time"

// Type identifies an event.
type Type string

const (
	// TypeWorking reports progress of the running job.
	TypeWorking Type = "working"
	// TypeCompleted summarizes a queue run when the worker stops.
	TypeCompleted Type = "completed"
	// TypeFailed reports a job failure; the queue keeps going.
	TypeFailed Type = "failed"
	// TypeCancelled reports that the queue was stopped.
	TypeCancelled Type = "cancelled"
)

// Event is one queue notification. Fields beyond Type are populated per type:
// working carries Percent, Index and Description; failed carries JobID,
// Index and Error; cancelled carries JobID and Index; completed carries
// Completed and Failed counts.
type Event struct {
	Sequence    uint64    `json:"seq"`
	Timestamp   time.Time `json:"ts"`
	Type        Type      `json:"type"`
	JobID       string    `json:"job_id,omitempty"`
	Index       int       `json:"index"`
	Percent     float64   `json:"percent,omitempty"`
	Description string    `json:"description,omitempty"`
	Completed   int       `json:"completed,omitempty"`
	Failed      int       `json:"failed,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// Working builds a progress event.
func Working(jobID string, index int, percent float64, description string) Event {
	return Event{Type: TypeWorking, JobID: jobID, Index: index, Percent: percent, Description: description}
}

// Completed builds the end-of-run summary.
func Completed(completed, failed int) Event {
	return Event{Type: TypeCompleted, Index: -1, Completed: completed, Failed: failed}
}

// Failed builds a job failure event.
func Failed(jobID string, index int, err error) Event {
	evt := Event{Type: TypeFailed, JobID: jobID, Index: index}
	if err != nil {
		evt.Error = err.Error()
	}
	return evt
}

// Cancelled builds the stop event for the job that was in flight.
func Cancelled(jobID string, index int) Event {
	return Event{Type: TypeCancelled, JobID: jobID, Index: index}
}
