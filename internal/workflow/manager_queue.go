package workflow

import (
	"fmt"
	"slices"

	"mediaq/internal/job"
)

// Enqueue appends jobs to the end of the queue and returns the index of the
// first one.
func (m *Manager) Enqueue(jobs ...*job.Job) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	index := len(m.jobs)
	m.jobs = append(m.jobs, jobs...)
	return index
}

// Insert places jobs at index, shifting later jobs back. index may equal
// Count to append.
func (m *Manager) Insert(index int, jobs ...*job.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index > len(m.jobs) {
		return fmt.Errorf("%w: insert at %d of %d", job.ErrIndexOutOfRange, index, len(m.jobs))
	}
	m.jobs = slices.Insert(m.jobs, index, jobs...)
	return nil
}

// Remove deletes the jobs at indexes. Nothing is removed when any index is
// out of range or names the working job.
func (m *Manager) Remove(indexes ...int) ([]*job.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeLocked(indexes)
}

// RemoveIDs deletes the jobs with the given ids. Ids are resolved and
// removed under one lock so concurrent inserts cannot shift the targets.
func (m *Manager) RemoveIDs(ids ...string) ([]*job.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	indexes := make([]int, 0, len(ids))
	for _, id := range ids {
		index := m.indexOfLocked(id)
		if index < 0 {
			return nil, fmt.Errorf("%w: %s", job.ErrNotFound, id)
		}
		indexes = append(indexes, index)
	}
	return m.removeLocked(indexes)
}

func (m *Manager) removeLocked(indexes []int) ([]*job.Job, error) {
	sorted := slices.Clone(indexes)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)
	for _, index := range sorted {
		if err := m.checkIndexLocked(index); err != nil {
			return nil, err
		}
		if m.jobs[index] == m.current {
			return nil, fmt.Errorf("%w: job %d is working", job.ErrJobLocked, index)
		}
	}

	removed := make([]*job.Job, 0, len(sorted))
	for i := len(sorted) - 1; i >= 0; i-- {
		index := sorted[i]
		removed = append(removed, m.jobs[index])
		m.jobs = slices.Delete(m.jobs, index, index+1)
	}
	slices.Reverse(removed)
	return removed, nil
}

// Move relocates the job at from so that it ends up at index to.
func (m *Manager) Move(from, to int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkIndexLocked(from); err != nil {
		return err
	}
	if err := m.checkIndexLocked(to); err != nil {
		return err
	}
	moving := m.jobs[from]
	if moving == m.current {
		return fmt.Errorf("%w: job %d is working", job.ErrJobLocked, from)
	}
	if from == to {
		return nil
	}
	m.jobs = slices.Delete(m.jobs, from, from+1)
	m.jobs = slices.Insert(m.jobs, to, moving)
	return nil
}

// Swap exchanges the jobs at i and k.
func (m *Manager) Swap(i, k int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkIndexLocked(i); err != nil {
		return err
	}
	if err := m.checkIndexLocked(k); err != nil {
		return err
	}
	if m.jobs[i] == m.current || m.jobs[k] == m.current {
		return fmt.Errorf("%w: cannot swap the working job", job.ErrJobLocked)
	}
	m.jobs[i], m.jobs[k] = m.jobs[k], m.jobs[i]
	return nil
}

// RemoveCompleted drops completed jobs and returns the indexes they had.
func (m *Manager) RemoveCompleted() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed []int
	kept := m.jobs[:0]
	for i, j := range m.jobs {
		if j.Status() == job.StatusCompleted {
			removed = append(removed, i)
			continue
		}
		kept = append(kept, j)
	}
	clear(m.jobs[len(kept):])
	m.jobs = kept
	return removed
}

// Retry returns a failed or cancelled job to ready.
func (m *Manager) Retry(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	index := m.indexOfLocked(id)
	if index < 0 {
		return fmt.Errorf("%w: %s", job.ErrNotFound, id)
	}
	return m.jobs[index].Reset()
}

// SetDestination changes where a ready job writes its output.
func (m *Manager) SetDestination(id, dest string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	index := m.indexOfLocked(id)
	if index < 0 {
		return fmt.Errorf("%w: %s", job.ErrNotFound, id)
	}
	return m.jobs[index].SetDestination(dest)
}

// Jobs returns a snapshot of the collection in order.
func (m *Manager) Jobs() []job.Record {
	return m.records()
}

// Job returns a snapshot of the job with id.
func (m *Manager) Job(id string) (job.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	index := m.indexOfLocked(id)
	if index < 0 {
		return job.Record{}, fmt.Errorf("%w: %s", job.ErrNotFound, id)
	}
	return m.jobs[index].Record(), nil
}

// IndexOf returns the position of the job with id, or -1.
func (m *Manager) IndexOf(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.indexOfLocked(id)
}

// Count returns the number of jobs.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs)
}

// ReadyCount returns the number of jobs waiting to run.
func (m *Manager) ReadyCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, j := range m.jobs {
		if j.Status() == job.StatusReady {
			n++
		}
	}
	return n
}

func (m *Manager) checkIndexLocked(index int) error {
	if index < 0 || index >= len(m.jobs) {
		return fmt.Errorf("%w: %d of %d", job.ErrIndexOutOfRange, index, len(m.jobs))
	}
	return nil
}

func (m *Manager) indexOfLocked(id string) int {
	return slices.IndexFunc(m.jobs, func(j *job.Job) bool { return j.ID == id })
}

func (m *Manager) indexOfJobLocked(target *job.Job) int {
	return slices.Index(m.jobs, target)
}
