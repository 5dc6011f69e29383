package workflow

import (
	"mediaq/internal/job"
)

// StatusSummary is a point-in-time view of the queue engine.
type StatusSummary struct {
	State        RunState
	Current      *job.Record
	CurrentIndex int
	Total        int
	Counts       map[job.Status]int
	// Succeeded and Failed count jobs finished by the current or last run.
	Succeeded int
	Failed    int
	LastError string
}

// Status returns the latest engine information.
func (m *Manager) Status() StatusSummary {
	m.mu.Lock()
	defer m.mu.Unlock()

	summary := StatusSummary{
		State:        m.state,
		CurrentIndex: -1,
		Total:        len(m.jobs),
		Counts:       make(map[job.Status]int, len(job.AllStatuses())),
		Succeeded:    m.succeeded,
		Failed:       m.failed,
	}
	for _, j := range m.jobs {
		summary.Counts[j.Status()]++
	}
	if m.current != nil {
		record := m.current.Record()
		summary.Current = &record
		summary.CurrentIndex = m.indexOfJobLocked(m.current)
	}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	return summary
}
