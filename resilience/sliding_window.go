package resilience

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/autoweb/agent/core"
)

type bucket struct {
	timestamp time.Time
	success   uint64
	failure   uint64
}

// SlidingWindow tracks success/failure counts over a rolling time
// window, bucketed so old results age out without a sweep pass. It
// guards against clock skew: if wall time ever runs backward relative
// to the last rotation, the window resets rather than report a
// nonsensical error rate.
type SlidingWindow struct {
	buckets      []bucket
	windowSize   time.Duration
	bucketSize   time.Duration
	currentIdx   int
	lastRotation time.Time
	mu           sync.RWMutex

	logger core.Logger
	name   string
}

func newSlidingWindow(windowSize time.Duration, bucketCount int, logger core.Logger, name string) *SlidingWindow {
	if bucketCount <= 0 {
		bucketCount = 10
	}
	if logger == nil {
		logger = &core.NoOpLogger{}
	}

	now := time.Now()
	buckets := make([]bucket, bucketCount)
	for i := range buckets {
		buckets[i].timestamp = now
	}

	return &SlidingWindow{
		buckets:      buckets,
		windowSize:   windowSize,
		bucketSize:   windowSize / time.Duration(bucketCount),
		lastRotation: now,
		logger:       logger,
		name:         name,
	}
}

func (sw *SlidingWindow) rotate() {
	now := time.Now()
	elapsed := now.Sub(sw.lastRotation)

	if elapsed < 0 {
		sw.logger.Warn("sliding window time skew detected, resetting", map[string]interface{}{
			"name":       sw.name,
			"elapsed_ns": elapsed.Nanoseconds(),
		})
		sw.resetLocked(now)
		return
	}

	if elapsed < sw.bucketSize {
		return
	}

	toRotate := int(elapsed / sw.bucketSize)
	if toRotate > len(sw.buckets) {
		toRotate = len(sw.buckets)
	}
	for i := 0; i < toRotate; i++ {
		sw.currentIdx = (sw.currentIdx + 1) % len(sw.buckets)
		sw.buckets[sw.currentIdx] = bucket{timestamp: now}
	}
	sw.lastRotation = now
}

func (sw *SlidingWindow) resetLocked(now time.Time) {
	for i := range sw.buckets {
		sw.buckets[i] = bucket{timestamp: now}
	}
	sw.currentIdx = 0
	sw.lastRotation = now
}

func (sw *SlidingWindow) recordSuccess() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.rotate()
	atomic.AddUint64(&sw.buckets[sw.currentIdx].success, 1)
}

func (sw *SlidingWindow) recordFailure() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.rotate()
	atomic.AddUint64(&sw.buckets[sw.currentIdx].failure, 1)
}

func (sw *SlidingWindow) counts() (success, failure uint64) {
	sw.mu.RLock()
	defer sw.mu.RUnlock()

	cutoff := time.Now().Add(-sw.windowSize)
	for i := range sw.buckets {
		b := &sw.buckets[i]
		if b.timestamp.After(cutoff) {
			success += atomic.LoadUint64(&b.success)
			failure += atomic.LoadUint64(&b.failure)
		}
	}
	return success, failure
}

func (sw *SlidingWindow) errorRate() float64 {
	success, failure := sw.counts()
	total := success + failure
	if total == 0 {
		return 0
	}
	return float64(failure) / float64(total)
}

func (sw *SlidingWindow) total() uint64 {
	success, failure := sw.counts()
	return success + failure
}
