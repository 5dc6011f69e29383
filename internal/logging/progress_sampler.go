package logging

import (
	"strings"
	"sync"
)

// ProgressSampler thins out progress logging. An update is let through when
// its step description changes or its percentage enters a new bucket. It is
// safe for concurrent use since engines report progress from their own
// goroutines.
type ProgressSampler struct {
	mu         sync.Mutex
	bucketSize float64
	step       string
	bucket     int
}

// NewProgressSampler returns a sampler with buckets of bucketSize percent.
// Non-positive sizes default to 10.
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 10
	}
	return &ProgressSampler{bucketSize: bucketSize, bucket: -1}
}

// ShouldLog reports whether the update should be logged. A negative percent
// means unknown progress; only a step change lets it through.
func (s *ProgressSampler) ShouldLog(percent float64, step string) bool {
	if s == nil {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	if step = strings.TrimSpace(step); step != "" && step != s.step {
		s.step = step
		s.bucket = -1
		changed = true
	}
	if percent < 0 {
		return changed
	}
	if bucket := int(min(percent, 100) / s.bucketSize); bucket > s.bucket {
		s.bucket = bucket
		changed = true
	}
	return changed
}
