// Copyright (c) 2025 The Lynx developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package cpulimiter shapes the aggregate CPU usage of a registered set of
// worker goroutines toward a configured fraction of the host's total CPU by
// cooperatively suspending and resuming them in short, fixed-length control
// cycles. The mechanism is cooperative: it does not preempt goroutines or
// their underlying OS threads. Workers must call SuspendMe at safe points
// for the limiter to have any effect on them.
package cpulimiter

import (
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// minSampleInterval is the minimum wall-clock gap required between two
	// CPU-time samples of the same worker before the watcher trusts the
	// delta. Sampling more often than this produces noisy ratios because
	// OS thread-time accounting itself is quantized.
	minSampleInterval = 20 * time.Millisecond

	// ewmaAlpha is the smoothing factor applied to each worker's observed
	// usage sample. A small alpha favors the running average over the
	// latest sample, suppressing noise from scheduling quanta.
	ewmaAlpha = 0.08
)

// limitedThread is the watcher's bookkeeping for a single registered
// worker. It is only ever mutated by the watcher goroutine.
type limitedThread struct {
	id      ThreadID
	clock   ThreadCpuClock
	lastCPU time.Duration
	haveCPU bool
	usage   float64
	haveUse bool
}

// CpuLimiter cooperatively throttles a set of registered workers toward a
// target aggregate CPU usage. See the package doc comment for the
// throttling model.
//
// A CpuLimiter must be created with New and shut down with Stop; it must
// not be copied after first use.
type CpuLimiter struct {
	limit    float64
	cpuCount int

	mu         sync.Mutex
	resumeCond *sync.Cond
	workers    map[ThreadID]*limitedThread
	lastSample time.Time

	suspendFlag atomic.Bool
	exitFlag    atomic.Bool
	stopOnce    sync.Once
	quit        chan struct{}
	watcherDone chan struct{}
}

// New creates a CpuLimiter targeting limit*CPUCount() of aggregate CPU
// usage across whatever workers are later registered with Add, and starts
// its watcher goroutine. limit must be within the inclusive range [0, 1];
// 0 fully suspends registered workers and 1 disables throttling entirely.
func New(limit float64) (*CpuLimiter, error) {
	if limit < 0 || limit > 1 {
		return nil, makeError(ErrInvalidLimit, "cpulimiter: limit must be within [0, 1]")
	}

	c := &CpuLimiter{
		limit:       limit,
		cpuCount:    CPUCount(),
		workers:     make(map[ThreadID]*limitedThread),
		quit:        make(chan struct{}),
		watcherDone: make(chan struct{}),
	}
	c.resumeCond = sync.NewCond(&c.mu)

	go c.watch()
	log.Debugf("CpuLimiter started with limit %.2f (%d CPUs)", limit, c.cpuCount)
	return c, nil
}

// CPUCount returns the host's hardware concurrency, i.e. the number of
// logical CPUs the limiter treats one full unit of "total_limit" as
// covering.
func CPUCount() int {
	return runtime.NumCPU()
}

// Add registers a worker for CPU accounting. clock must sample the CPU
// time of the OS thread the calling worker will run on; see
// NewOSThreadClock. Add is idempotent per id.
func (c *CpuLimiter) Add(id ThreadID, clock ThreadCpuClock) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.workers[id]; ok {
		return
	}
	c.workers[id] = &limitedThread{id: id, clock: clock}
}

// Remove unregisters a worker. It is a no-op if id is not registered.
func (c *CpuLimiter) Remove(id ThreadID) {
	c.mu.Lock()
	delete(c.workers, id)
	c.mu.Unlock()
}

// Contains reports whether id is currently registered.
func (c *CpuLimiter) Contains(id ThreadID) bool {
	c.mu.Lock()
	_, ok := c.workers[id]
	c.mu.Unlock()
	return ok
}

// SuspendMe blocks the calling goroutine while the limiter's current cycle
// calls for suspension. It returns immediately if the limiter is not
// currently suspending workers, and it is safe to call from a goroutine
// that was never registered with Add (in which case it is a no-op unless
// the limiter happens to be mid-suspend, matching the registered-worker
// wait semantics).
func (c *CpuLimiter) SuspendMe() {
	if !c.suspendFlag.Load() {
		return
	}

	c.mu.Lock()
	for c.suspendFlag.Load() && !c.exitFlag.Load() {
		c.resumeCond.Wait()
	}
	c.mu.Unlock()
}

// Stop signals the watcher to exit, wakes any workers currently blocked in
// SuspendMe, and waits for the watcher goroutine to finish. Stop is
// idempotent.
func (c *CpuLimiter) Stop() {
	c.stopOnce.Do(func() {
		c.exitFlag.Store(true)
		close(c.quit)
	})
	<-c.watcherDone
}

// watch is the control loop. It must be run as a goroutine.
func (c *CpuLimiter) watch() {
	defer close(c.watcherDone)

	c.mu.Lock()
	c.lastSample = time.Now()
	c.mu.Unlock()

	totalLimit := c.limit * float64(c.cpuCount)
	workingRate := c.limit

	for !c.exitFlag.Load() {
		totalUsage := c.sampleTotalUsage()
		if totalUsage < 0 {
			// No usable sample yet this cycle; reinitialize from the
			// configured target rather than drift on a stale ratio.
			workingRate = c.limit
		} else {
			workingRate = math.Min(workingRate/totalUsage*totalLimit, 1.0)
		}
		if math.IsNaN(workingRate) {
			workingRate = c.limit
		}

		tWork := time.Duration(float64(TimeSlot) * workingRate)
		if tWork < 0 {
			tWork = 0
		} else if tWork > TimeSlot {
			tWork = TimeSlot
		}

		c.resumeWorkers()
		if c.sleep(tWork) {
			break
		}

		c.suspendWorkers()
		if c.sleep(TimeSlot - tWork) {
			break
		}
	}

	// Ensure any worker parked in SuspendMe observes the shutdown and
	// returns rather than waiting forever.
	c.resumeWorkers()
}

// sampleTotalUsage updates every registered worker's EWMA usage from a
// fresh CPU-time read and returns the sum. It returns -1 when less than
// minSampleInterval has elapsed since the previous sample, matching the
// "no sample yet" state that resets the working rate to the configured
// limit.
func (c *CpuLimiter) sampleTotalUsage() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	dt := now.Sub(c.lastSample)
	if dt < minSampleInterval {
		return -1
	}

	total := -1.0
	for _, w := range c.workers {
		cur, err := w.clock.CPUTime()
		if err != nil {
			w.haveCPU = false
			w.haveUse = false
			continue
		}

		if !w.haveCPU {
			w.lastCPU = cur
			w.haveCPU = true
			w.haveUse = false
			continue
		}

		delta := cur - w.lastCPU
		sample := float64(delta) / float64(dt)
		if !w.haveUse {
			w.usage = sample
			w.haveUse = true
		} else {
			w.usage = (1-ewmaAlpha)*w.usage + ewmaAlpha*sample
		}
		w.lastCPU = cur

		if total < 0 {
			total = 0
		}
		total += w.usage
	}
	c.lastSample = now

	return total
}

func (c *CpuLimiter) resumeWorkers() {
	c.mu.Lock()
	c.suspendFlag.Store(false)
	c.resumeCond.Broadcast()
	c.mu.Unlock()
}

func (c *CpuLimiter) suspendWorkers() {
	c.mu.Lock()
	c.suspendFlag.Store(true)
	c.mu.Unlock()
}

// sleep blocks for d or until Stop is called, whichever comes first. It
// returns true if it woke due to Stop.
func (c *CpuLimiter) sleep(d time.Duration) bool {
	if d <= 0 {
		select {
		case <-c.quit:
			return true
		default:
			return false
		}
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return false
	case <-c.quit:
		return true
	}
}
