package events

import (
	"context"
	"sync"
	"time"
)

const defaultCapacity = 512

// Hub stores recent events and delivers each one to every subscriber.
type Hub struct {
	mu       sync.Mutex
	cond     *sync.Cond
	capacity int
	buffer   []Event
	nextSeq  uint64
	subs     map[uint64]*subscriber
	nextSub  uint64
	closed   bool
}

// NewHub constructs a hub keeping at most capacity events for polling.
func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	h := &Hub{capacity: capacity, subs: make(map[uint64]*subscriber)}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// Publish numbers evt, appends it to the backlog and queues it for every
// subscriber. It never blocks on subscribers.
func (h *Hub) Publish(evt Event) Event {
	if h == nil {
		return evt
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextSeq++
	evt.Sequence = h.nextSeq
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	if len(h.buffer) == h.capacity {
		copy(h.buffer, h.buffer[1:])
		h.buffer = h.buffer[:h.capacity-1]
	}
	h.buffer = append(h.buffer, evt)
	for _, sub := range h.subs {
		sub.enqueue(evt)
	}
	h.cond.Broadcast()
	return evt
}

// Subscribe registers fn to receive every event published from now on, in
// order. The returned func unregisters it; events already queued for fn are
// still delivered.
func (h *Hub) Subscribe(fn func(Event)) (unsubscribe func()) {
	sub := newSubscriber(fn)
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		sub.close()
		return func() {}
	}
	h.nextSub++
	id := h.nextSub
	h.subs[id] = sub
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			sub.close()
		})
	}
}

// Close stops all subscriber pumps after they drain and wakes waiting
// fetchers.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	subs := h.subs
	h.subs = map[uint64]*subscriber{}
	h.cond.Broadcast()
	h.mu.Unlock()
	for _, sub := range subs {
		sub.close()
	}
}

// Fetch returns events with sequence greater than since. When wait is true
// it blocks until one is available, the hub closes, or ctx ends. A since
// beyond the last published sequence is treated as zero.
func (h *Hub) Fetch(ctx context.Context, since uint64, limit int, wait bool) ([]Event, uint64, error) {
	if limit <= 0 || limit > h.capacity {
		limit = h.capacity
	}

	cancelWait := make(chan struct{})
	if wait && ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				h.mu.Lock()
				h.cond.Broadcast()
				h.mu.Unlock()
			case <-cancelWait:
			}
		}()
	}
	defer close(cancelWait)

	h.mu.Lock()
	defer h.mu.Unlock()
	for {
		events, next := h.snapshotLocked(since, limit)
		if len(events) > 0 || !wait || h.closed {
			return events, next, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, next, err
		}
		h.cond.Wait()
		if err := ctx.Err(); err != nil {
			return nil, next, err
		}
	}
}

// Tail returns the most recent limit events without blocking.
func (h *Hub) Tail(limit int) ([]Event, uint64) {
	if limit <= 0 || limit > h.capacity {
		limit = h.capacity
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	start := max(len(h.buffer)-limit, 0)
	out := make([]Event, len(h.buffer)-start)
	copy(out, h.buffer[start:])
	return out, h.nextSeq
}

func (h *Hub) snapshotLocked(since uint64, limit int) ([]Event, uint64) {
	if since > h.nextSeq {
		// The cursor belongs to an earlier hub, e.g. before a daemon
		// restart. Replay the backlog from the start.
		since = 0
	}
	var out []Event
	for _, evt := range h.buffer {
		if evt.Sequence <= since {
			continue
		}
		out = append(out, evt)
		if len(out) == limit {
			return out, evt.Sequence
		}
	}
	if len(out) > 0 {
		return out, out[len(out)-1].Sequence
	}
	return nil, max(since, h.nextSeq)
}

// subscriber owns an unbounded FIFO drained by a single goroutine.
type subscriber struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []Event
	closed  bool
	done    chan struct{}
}

func newSubscriber(fn func(Event)) *subscriber {
	s := &subscriber{done: make(chan struct{})}
	s.cond = sync.NewCond(&s.mu)
	go s.pump(fn)
	return s
}

func (s *subscriber) enqueue(evt Event) {
	s.mu.Lock()
	if !s.closed {
		s.pending = append(s.pending, evt)
		s.cond.Signal()
	}
	s.mu.Unlock()
}

func (s *subscriber) close() {
	s.mu.Lock()
	s.closed = true
	s.cond.Signal()
	s.mu.Unlock()
}

func (s *subscriber) pump(fn func(Event)) {
	defer close(s.done)
	for {
		s.mu.Lock()
		for len(s.pending) == 0 && !s.closed {
			s.cond.Wait()
		}
		if len(s.pending) == 0 {
			s.mu.Unlock()
			return
		}
		batch := s.pending
		s.pending = nil
		s.mu.Unlock()
		for _, evt := range batch {
			fn(evt)
		}
	}
}
