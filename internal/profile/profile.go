// Package profile accumulates per-kind evaluation counts and elapsed time.
//
// Each worker goroutine owns a Worker whose counters it updates without
// synchronization; Flush folds them into the process-wide Accumulator,
// which operators read through Snapshot. Detection logic never reads
// these numbers.
package profile

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// Stats is the accumulated profile of one kind.
type Stats struct {
	Kind    int           `json:"kind"`
	Name    string        `json:"name"`
	Checks  uint64        `json:"checks"`
	Elapsed time.Duration `json:"elapsed_ns"`
}

// Average is the mean time per check.
func (s Stats) Average() time.Duration {
	if s.Checks == 0 {
		return 0
	}
	return s.Elapsed / time.Duration(s.Checks)
}

type slot struct {
	name    string
	checks  *xsync.Counter
	elapsed *xsync.Counter
}

// Accumulator holds one slot per registered kind. Slots are registered
// during single-threaded startup; the slice is not resized afterwards.
// Each Reset starts a new generation; worker counters recorded under an
// older generation are discarded instead of merged.
type Accumulator struct {
	mu    sync.RWMutex
	slots []slot
	gen   atomic.Uint64
}

func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Register reserves the slot for kind. Kinds are small dense integers
// handed out by the plugin registry.
func (a *Accumulator) Register(kind int, name string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for len(a.slots) <= kind {
		a.slots = append(a.slots, slot{})
	}
	a.slots[kind] = slot{
		name:    name,
		checks:  xsync.NewCounter(),
		elapsed: xsync.NewCounter(),
	}
}

// Kinds returns the number of slots.
func (a *Accumulator) Kinds() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.slots)
}

// Reset zeroes every slot, as done on configuration reload.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.gen.Add(1)
	for _, s := range a.slots {
		if s.checks != nil {
			s.checks.Reset()
			s.elapsed.Reset()
		}
	}
}

// Snapshot returns the current totals ordered by kind.
func (a *Accumulator) Snapshot() []Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]Stats, 0, len(a.slots))
	for i, s := range a.slots {
		if s.checks == nil {
			continue
		}
		out = append(out, Stats{
			Kind:    i,
			Name:    s.name,
			Checks:  uint64(s.checks.Value()),
			Elapsed: time.Duration(s.elapsed.Value()),
		})
	}
	return out
}

// NewWorker returns a handle for one worker goroutine. Register all kinds
// before creating workers.
func (a *Accumulator) NewWorker() *Worker {
	return &Worker{
		acc:   a,
		local: make([]local, a.Kinds()),
		gen:   a.gen.Load(),
	}
}

// add merges counters recorded under gen. It reports false, dropping
// them, when a Reset happened since.
func (a *Accumulator) add(gen uint64, kind int, checks, elapsed uint64) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.gen.Load() != gen {
		return false
	}
	s := a.slots[kind]
	if s.checks != nil {
		s.checks.Add(int64(checks))
		s.elapsed.Add(int64(elapsed))
	}
	return true
}

type local struct {
	checks  uint64
	elapsed uint64
}

// Worker is owned by a single goroutine. A nil *Worker records nothing.
type Worker struct {
	acc   *Accumulator
	local []local
	gen   uint64
}

// Tick marks the start of a profiled section.
type Tick struct {
	t time.Time
}

// Start opens a profiled section.
func (w *Worker) Start() Tick {
	if w == nil {
		return Tick{}
	}
	return Tick{t: time.Now()}
}

// Stop closes the section opened by Start and charges it to kind.
func (w *Worker) Stop(kind int, start Tick) {
	if w == nil || kind >= len(w.local) {
		return
	}
	w.sync()
	l := &w.local[kind]
	l.checks++
	l.elapsed += uint64(time.Since(start.t))
}

// Flush merges the local counters into the accumulator and clears them.
// Only the owning goroutine may call it.
func (w *Worker) Flush() {
	if w == nil {
		return
	}
	for kind := range w.local {
		l := &w.local[kind]
		if l.checks == 0 && l.elapsed == 0 {
			continue
		}
		if !w.acc.add(w.gen, kind, l.checks, l.elapsed) {
			w.drop()
			return
		}
		*l = local{}
	}
}

// sync discards counters from before the last Reset.
func (w *Worker) sync() {
	if gen := w.acc.gen.Load(); gen != w.gen {
		w.drop()
	}
}

func (w *Worker) drop() {
	clear(w.local)
	w.gen = w.acc.gen.Load()
}

// Pending returns the not yet flushed checks for kind.
func (w *Worker) Pending(kind int) uint64 {
	if w == nil || kind >= len(w.local) || w.acc.gen.Load() != w.gen {
		return 0
	}
	return w.local[kind].checks
}
