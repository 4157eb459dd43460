// Copyright (c) 2025 The Lynx developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cpulimiter

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeClock is a ThreadCpuClock driven entirely by the test so the
// watcher's EWMA math can be exercised without depending on real OS thread
// scheduling.
type fakeClock struct {
	mu  sync.Mutex
	cpu time.Duration
	err error
}

func (f *fakeClock) CPUTime() (time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cpu, f.err
}

func (f *fakeClock) add(d time.Duration) {
	f.mu.Lock()
	f.cpu += d
	f.mu.Unlock()
}

func TestNewValidatesLimit(t *testing.T) {
	tests := []struct {
		name    string
		limit   float64
		wantErr bool
	}{
		{name: "zero", limit: 0, wantErr: false},
		{name: "one", limit: 1, wantErr: false},
		{name: "mid", limit: 0.5, wantErr: false},
		{name: "negative", limit: -0.01, wantErr: true},
		{name: "above one", limit: 1.01, wantErr: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c, err := New(test.limit)
			if test.wantErr {
				if err == nil {
					if c != nil {
						c.Stop()
					}
					t.Fatalf("New(%v): expected error, got nil", test.limit)
				}
				return
			}
			if err != nil {
				t.Fatalf("New(%v): unexpected error: %v", test.limit, err)
			}
			c.Stop()
		})
	}
}

func TestAddRemoveContains(t *testing.T) {
	c, err := New(1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Stop()

	const id ThreadID = 42
	if c.Contains(id) {
		t.Fatal("Contains reported true before Add")
	}

	c.Add(id, &fakeClock{})
	if !c.Contains(id) {
		t.Fatal("Contains reported false after Add")
	}

	// Add is idempotent.
	c.Add(id, &fakeClock{})
	if !c.Contains(id) {
		t.Fatal("Contains reported false after duplicate Add")
	}

	c.Remove(id)
	if c.Contains(id) {
		t.Fatal("Contains reported true after Remove")
	}
}

func TestSuspendMeNoOpWhenNotSuspended(t *testing.T) {
	c, err := New(1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Stop()

	done := make(chan struct{})
	go func() {
		c.SuspendMe()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("SuspendMe blocked despite limit of 1")
	}
}

func TestStopIsIdempotentAndUnblocksWaiters(t *testing.T) {
	c, err := New(0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// With limit 0, the watcher will suspend workers on its very first
	// cycle. Give it a moment to do so, then confirm Stop wakes a waiter.
	var waiting atomic.Bool
	done := make(chan struct{})
	go func() {
		waiting.Store(true)
		c.SuspendMe()
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for !waiting.Load() {
		select {
		case <-deadline:
			t.Fatal("worker goroutine never started waiting")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	c.Stop()
	c.Stop() // idempotent

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("SuspendMe never returned after Stop")
	}
}

func TestCPUCountAtLeastOne(t *testing.T) {
	if CPUCount() < 1 {
		t.Fatalf("CPUCount() = %d, want >= 1", CPUCount())
	}
}
