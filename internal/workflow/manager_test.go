package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"mediaq/internal/events"
	"mediaq/internal/job"
	"mediaq/internal/logging"
	"mediaq/internal/queue"
	"mediaq/internal/testsupport"
	"mediaq/internal/workflow"
)

type countingInhibitor struct {
	mu       sync.Mutex
	acquired int
	released int
}

func (c *countingInhibitor) Inhibit(string) (func(), error) {
	c.mu.Lock()
	c.acquired++
	c.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			c.released++
			c.mu.Unlock()
		})
	}, nil
}

func (c *countingInhibitor) counts() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.acquired, c.released
}

type harness struct {
	t       *testing.T
	dir     string
	engine  *testsupport.FakeEngine
	store   *queue.Store
	inhibit *countingInhibitor
	mgr     *workflow.Manager
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	h := &harness{
		t:       t,
		dir:     testsupport.BaseDir(cfg),
		engine:  &testsupport.FakeEngine{},
		store:   testsupport.MustOpenStore(t, cfg),
		inhibit: &countingInhibitor{},
	}
	rt := job.Runtime{Engine: h.engine, Logger: logging.NewNop()}
	h.mgr = workflow.NewManager(h.store, rt, logging.NewNop(), workflow.WithInhibitor(h.inhibit))
	return h
}

func (h *harness) addJobs(names ...string) []*job.Job {
	h.t.Helper()
	jobs := make([]*job.Job, 0, len(names))
	for _, name := range names {
		jobs = append(jobs, testsupport.NewJob(h.t, h.dir, name))
	}
	h.mgr.Enqueue(jobs...)
	return jobs
}

func (h *harness) wait() {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := h.mgr.Wait(ctx); err != nil {
		h.t.Fatalf("Wait: %v", err)
	}
}

func (h *harness) events() []events.Event {
	evts, _ := h.mgr.Events().Tail(0)
	return evts
}

func (h *harness) statuses() []job.Status {
	var out []job.Status
	for _, r := range h.mgr.Jobs() {
		out = append(out, r.Status)
	}
	return out
}

func awaitStarted(t *testing.T, started <-chan string) string {
	t.Helper()
	select {
	case src := <-started:
		return src
	case <-time.After(10 * time.Second):
		t.Fatal("write never started")
		return ""
	}
}

func startIndexes(evts []events.Event) []int {
	var out []int
	for _, evt := range evts {
		if evt.Type == events.TypeWorking && evt.Percent == 0 && evt.Description == "Preparing" {
			out = append(out, evt.Index)
		}
	}
	return out
}

func lastEvent(t *testing.T, evts []events.Event) events.Event {
	t.Helper()
	if len(evts) == 0 {
		t.Fatal("no events published")
	}
	return evts[len(evts)-1]
}

func TestManagerRunsReadyJobsInOrder(t *testing.T) {
	h := newHarness(t)
	jobs := h.addJobs("a", "b", "c")

	if !h.mgr.Start(context.Background()) {
		t.Fatal("Start reported already running")
	}
	h.wait()

	evts := h.events()
	if got := startIndexes(evts); len(got) != 3 || got[0] != 0 || got[1] != 1 || got[2] != 2 {
		t.Fatalf("start indexes = %v, want [0 1 2]", got)
	}
	last := lastEvent(t, evts)
	if last.Type != events.TypeCompleted || last.Completed != 3 || last.Failed != 0 {
		t.Fatalf("summary = %+v", last)
	}
	for i, status := range h.statuses() {
		if status != job.StatusCompleted {
			t.Fatalf("job %d status = %s", i, status)
		}
	}
	writes := h.engine.Writes()
	for i, j := range jobs {
		if writes[i] != j.Destination() {
			t.Fatalf("write %d = %s, want %s", i, writes[i], j.Destination())
		}
	}
	if h.mgr.Status().State != workflow.StateCompleted {
		t.Fatalf("state = %s", h.mgr.Status().State)
	}
}

func TestManagerContinuesAfterFailure(t *testing.T) {
	h := newHarness(t)
	jobs := h.addJobs("a", "b", "c")
	h.engine.FailSources = map[string]error{jobs[1].Source: errors.New("encoder crashed")}

	h.mgr.Start(context.Background())
	h.wait()

	want := []job.Status{job.StatusCompleted, job.StatusFailed, job.StatusCompleted}
	got := h.statuses()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("statuses = %v, want %v", got, want)
		}
	}
	failed, err := h.mgr.Job(jobs[1].ID)
	if err != nil {
		t.Fatalf("Job: %v", err)
	}
	if !strings.Contains(failed.ErrorMessage, "encoder crashed") {
		t.Fatalf("error message = %q", failed.ErrorMessage)
	}

	var sawFailed bool
	for _, evt := range h.events() {
		if evt.Type == events.TypeFailed {
			sawFailed = true
			if evt.Index != 1 || evt.JobID != jobs[1].ID {
				t.Fatalf("failed event = %+v", evt)
			}
		}
	}
	if !sawFailed {
		t.Fatal("no failed event")
	}
	last := lastEvent(t, h.events())
	if last.Completed != 2 || last.Failed != 1 {
		t.Fatalf("summary = %+v", last)
	}
}

func TestManagerOptimizeFailureFailsJob(t *testing.T) {
	h := newHarness(t)
	h.engine.OptimizeFails = true
	j := testsupport.NewJob(t, h.dir, "movie", &job.Optimize{})
	h.mgr.Enqueue(j)

	h.mgr.Start(context.Background())
	h.wait()

	if len(h.engine.Writes()) != 1 {
		t.Fatalf("primary write missing: %v", h.engine.Writes())
	}
	record, _ := h.mgr.Job(j.ID)
	if record.Status != job.StatusFailed {
		t.Fatalf("status = %s, want failed", record.Status)
	}
	if !strings.Contains(record.ErrorMessage, job.ErrOptimizationFailed.Error()) {
		t.Fatalf("error message = %q", record.ErrorMessage)
	}
}

func TestManagerStopCancelsInFlightJob(t *testing.T) {
	h := newHarness(t)
	h.engine.Block = make(chan struct{})
	h.engine.Started = make(chan string, 4)
	jobs := h.addJobs("a", "b")

	h.mgr.Start(context.Background())
	if src := awaitStarted(t, h.engine.Started); src != jobs[0].Source {
		t.Fatalf("first write = %s", src)
	}
	h.mgr.Stop()
	h.wait()

	got := h.statuses()
	if got[0] != job.StatusCancelled || got[1] != job.StatusReady {
		t.Fatalf("statuses = %v", got)
	}
	for _, opened := range h.engine.Opened() {
		if opened == jobs[1].Source {
			t.Fatal("second job was started after stop")
		}
	}
	evts := h.events()
	var cancelled *events.Event
	for i := range evts {
		if evts[i].Type == events.TypeCancelled {
			cancelled = &evts[i]
		}
	}
	if cancelled == nil || cancelled.JobID != jobs[0].ID || cancelled.Index != 0 {
		t.Fatalf("cancelled event = %+v", cancelled)
	}
	last := lastEvent(t, evts)
	if last.Type != events.TypeCompleted || last.Completed != 0 || last.Failed != 0 {
		t.Fatalf("summary = %+v", last)
	}
}

func TestManagerStartIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.engine.Block = make(chan struct{})
	h.engine.Started = make(chan string, 4)
	h.addJobs("a", "b")

	if !h.mgr.Start(context.Background()) {
		t.Fatal("first Start returned false")
	}
	awaitStarted(t, h.engine.Started)
	if h.mgr.Start(context.Background()) {
		t.Fatal("second Start launched another worker")
	}
	close(h.engine.Block)
	h.wait()

	if got := startIndexes(h.events()); len(got) != 2 {
		t.Fatalf("start events = %v, want one per job", got)
	}
	if n := h.engine.MaxConcurrentWrites(); n != 1 {
		t.Fatalf("concurrent writes = %d", n)
	}
	var summaries int
	for _, evt := range h.events() {
		if evt.Type == events.TypeCompleted {
			summaries++
		}
	}
	if summaries != 1 {
		t.Fatalf("completed events = %d", summaries)
	}
}

func TestManagerWorkingJobIsLocked(t *testing.T) {
	h := newHarness(t)
	h.engine.Block = make(chan struct{})
	h.engine.Started = make(chan string, 4)
	jobs := h.addJobs("a", "b", "c")

	h.mgr.Start(context.Background())
	awaitStarted(t, h.engine.Started)
	t.Cleanup(func() {
		h.mgr.Stop()
		h.wait()
	})

	status := h.mgr.Status()
	if status.Counts[job.StatusWorking] != 1 || status.CurrentIndex != 0 {
		t.Fatalf("status = %+v", status)
	}
	if _, err := h.mgr.Remove(0); !errors.Is(err, job.ErrJobLocked) {
		t.Fatalf("Remove working: %v", err)
	}
	if err := h.mgr.Move(0, 2); !errors.Is(err, job.ErrJobLocked) {
		t.Fatalf("Move working: %v", err)
	}
	if err := h.mgr.Swap(1, 0); !errors.Is(err, job.ErrJobLocked) {
		t.Fatalf("Swap working: %v", err)
	}
	if err := h.mgr.SetDestination(jobs[0].ID, filepath.Join(h.dir, "x.mp4")); !errors.Is(err, job.ErrJobLocked) {
		t.Fatalf("SetDestination working: %v", err)
	}
	if err := h.mgr.Move(2, 1); err != nil {
		t.Fatalf("Move ready jobs: %v", err)
	}
	if h.mgr.IndexOf(jobs[2].ID) != 1 {
		t.Fatalf("job c index = %d", h.mgr.IndexOf(jobs[2].ID))
	}
}

func TestManagerReorderChangesExecutionOrder(t *testing.T) {
	h := newHarness(t)
	jobs := h.addJobs("a", "b", "c")
	if err := h.mgr.Move(2, 0); err != nil {
		t.Fatalf("Move: %v", err)
	}

	h.mgr.Start(context.Background())
	h.wait()

	opened := h.engine.Opened()
	want := []string{jobs[2].Source, jobs[0].Source, jobs[1].Source}
	for i := range want {
		if opened[i] != want[i] {
			t.Fatalf("opened = %v, want %v", opened, want)
		}
	}
}

func TestManagerCheckpointsWorkingJob(t *testing.T) {
	h := newHarness(t)
	h.engine.Block = make(chan struct{})
	h.engine.Started = make(chan string, 1)
	jobs := h.addJobs("a")

	h.mgr.Start(context.Background())
	awaitStarted(t, h.engine.Started)

	records, err := h.store.Read(context.Background())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(records) != 1 || records[0].Status != job.StatusWorking {
		t.Fatalf("checkpoint = %+v", records)
	}
	reloaded := h.store.Load(context.Background())
	if reloaded[0].Status() != job.StatusFailed || reloaded[0].ErrorMessage() != queue.InterruptedMessage {
		t.Fatalf("reloaded working job = %s %q", reloaded[0].Status(), reloaded[0].ErrorMessage())
	}

	close(h.engine.Block)
	h.wait()
	records, err = h.store.Read(context.Background())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if records[0].ID != jobs[0].ID || records[0].Status != job.StatusCompleted {
		t.Fatalf("final checkpoint = %+v", records[0])
	}
}

func TestManagerHoldsInhibitorWhileRunning(t *testing.T) {
	h := newHarness(t)
	h.engine.Block = make(chan struct{})
	h.engine.Started = make(chan string, 1)
	h.addJobs("a")

	h.mgr.Start(context.Background())
	awaitStarted(t, h.engine.Started)
	if acquired, released := h.inhibit.counts(); acquired != 1 || released != 0 {
		t.Fatalf("inhibitor acquired=%d released=%d while running", acquired, released)
	}
	close(h.engine.Block)
	h.wait()
	if acquired, released := h.inhibit.counts(); acquired != 1 || released != 1 {
		t.Fatalf("inhibitor acquired=%d released=%d after run", acquired, released)
	}
}

func TestManagerStartWithNothingReady(t *testing.T) {
	h := newHarness(t)
	h.mgr.Start(context.Background())
	h.wait()

	last := lastEvent(t, h.events())
	if last.Type != events.TypeCompleted || last.Completed != 0 {
		t.Fatalf("summary = %+v", last)
	}
	if h.mgr.Running() {
		t.Fatal("manager still running")
	}
}

func TestManagerFacadeErrors(t *testing.T) {
	h := newHarness(t)
	jobs := h.addJobs("a", "b")

	if err := h.mgr.Insert(5, testsupport.NewJob(t, h.dir, "c")); !errors.Is(err, job.ErrIndexOutOfRange) {
		t.Fatalf("Insert out of range: %v", err)
	}
	if _, err := h.mgr.Remove(0, 7); !errors.Is(err, job.ErrIndexOutOfRange) {
		t.Fatalf("Remove out of range: %v", err)
	}
	if h.mgr.Count() != 2 {
		t.Fatalf("partial remove happened: count %d", h.mgr.Count())
	}
	if err := h.mgr.Move(-1, 0); !errors.Is(err, job.ErrIndexOutOfRange) {
		t.Fatalf("Move out of range: %v", err)
	}
	if err := h.mgr.Retry("missing"); !errors.Is(err, job.ErrNotFound) {
		t.Fatalf("Retry missing: %v", err)
	}
	if err := h.mgr.Retry(jobs[0].ID); !errors.Is(err, job.ErrInvalidTransition) {
		t.Fatalf("Retry ready job: %v", err)
	}
	if _, err := h.mgr.RemoveIDs("missing"); !errors.Is(err, job.ErrNotFound) {
		t.Fatalf("RemoveIDs missing: %v", err)
	}
}

func TestManagerInsertRemoveAndRetry(t *testing.T) {
	h := newHarness(t)
	jobs := h.addJobs("a", "b")
	h.engine.FailSources = map[string]error{jobs[1].Source: errors.New("boom")}

	c := testsupport.NewJob(t, h.dir, "c")
	if err := h.mgr.Insert(1, c); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if h.mgr.IndexOf(c.ID) != 1 {
		t.Fatalf("inserted index = %d", h.mgr.IndexOf(c.ID))
	}

	h.mgr.Start(context.Background())
	h.wait()

	removed := h.mgr.RemoveCompleted()
	if len(removed) != 2 || removed[0] != 0 || removed[1] != 1 {
		t.Fatalf("RemoveCompleted = %v", removed)
	}
	if h.mgr.Count() != 1 || h.mgr.ReadyCount() != 0 {
		t.Fatalf("count=%d ready=%d", h.mgr.Count(), h.mgr.ReadyCount())
	}

	h.engine.FailSources = nil
	if err := h.mgr.Retry(jobs[1].ID); err != nil {
		t.Fatalf("Retry: %v", err)
	}
	record, _ := h.mgr.Job(jobs[1].ID)
	if record.Status != job.StatusReady || record.ErrorMessage != "" {
		t.Fatalf("retried record = %+v", record)
	}

	h.mgr.Start(context.Background())
	h.wait()
	record, _ = h.mgr.Job(jobs[1].ID)
	if record.Status != job.StatusCompleted {
		t.Fatalf("retried status = %s", record.Status)
	}

	gone, err := h.mgr.RemoveIDs(jobs[1].ID)
	if err != nil || len(gone) != 1 {
		t.Fatalf("RemoveIDs = %v, %v", gone, err)
	}
	if h.mgr.Count() != 0 {
		t.Fatalf("count = %d", h.mgr.Count())
	}
}

func TestManagerRemoveIDsWithConcurrentInserts(t *testing.T) {
	h := newHarness(t)
	targets := h.addJobs("t0", "t1", "t2", "t3", "t4", "t5", "t6", "t7")
	extras := make([]*job.Job, 64)
	for i := range extras {
		extras[i] = testsupport.NewJob(t, h.dir, fmt.Sprintf("extra-%02d", i))
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for _, extra := range extras {
			_ = h.mgr.Insert(0, extra)
		}
	}()

	for _, target := range targets {
		gone, err := h.mgr.RemoveIDs(target.ID)
		if err != nil {
			t.Fatalf("RemoveIDs(%s): %v", target.ID, err)
		}
		if len(gone) != 1 || gone[0].ID != target.ID {
			t.Fatalf("RemoveIDs(%s) removed %v", target.ID, gone)
		}
	}
	wg.Wait()

	if h.mgr.Count() != len(extras) {
		t.Fatalf("count = %d, want %d", h.mgr.Count(), len(extras))
	}
	for _, target := range targets {
		if h.mgr.IndexOf(target.ID) >= 0 {
			t.Fatalf("job %s still queued", target.ID)
		}
	}
}

func TestManagerRestoreAndSave(t *testing.T) {
	h := newHarness(t)
	jobs := h.addJobs("a", "b")
	if err := h.mgr.Save(context.Background()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	rt := job.Runtime{Engine: h.engine, Logger: logging.NewNop()}
	other := workflow.NewManager(h.store, rt, logging.NewNop())
	if n := other.Restore(context.Background()); n != 2 {
		t.Fatalf("Restore = %d", n)
	}
	got := other.Jobs()
	if got[0].ID != jobs[0].ID || got[1].ID != jobs[1].ID {
		t.Fatalf("restored order = %s, %s", got[0].ID, got[1].ID)
	}
}

func TestManagerSubscribersReceiveEvents(t *testing.T) {
	h := newHarness(t)
	h.addJobs("a")

	received := make(chan events.Event, 64)
	unsubscribe := h.mgr.Subscribe(func(evt events.Event) { received <- evt })
	defer unsubscribe()

	h.mgr.Start(context.Background())
	h.wait()

	timeout := time.After(5 * time.Second)
	for {
		select {
		case evt := <-received:
			if evt.Type == events.TypeCompleted {
				return
			}
		case <-timeout:
			t.Fatal("subscriber never saw the completed event")
		}
	}
}
