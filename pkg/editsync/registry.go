package editsync

import "sync"

// Registry tracks in-flight save operations per cell. It is an instantiable
// value owned by the coordinator that drives it, so independent table
// instances never share bookkeeping state.
//
// A cell is "busy" while any request for it is unresolved, and stays busy
// after a failure until a later successful operation settles it. Entries are
// deleted (not zeroed) on settlement, keeping the registry bounded by the
// number of concurrently active cells.
type Registry struct {
	mu      sync.Mutex
	entries map[Key]*pendingEntry
}

type pendingEntry struct {
	inFlight int
	failed   bool
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[Key]*pendingEntry)}
}

// Begin records the start of one save operation and returns the new in-flight
// count. A missing entry, an outstanding failure, or a corrupted negative
// counter all re-initialize the entry first: a fresh edit must not inherit
// stale state left behind by a prior failure.
func (r *Registry) Begin(key Key) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.entries[key]
	if e == nil || e.failed || e.inFlight < 0 {
		e = &pendingEntry{}
		r.entries[key] = e
	}
	e.inFlight++
	return e.inFlight
}

// ResolveSuccess records one successful resolution. It reports whether the
// cell settled: the counter reached exactly zero, the entry was removed, and
// any outstanding failure flag was cleared along with it.
func (r *Registry) ResolveSuccess(key Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.entries[key]
	if e == nil {
		return true
	}
	e.inFlight--
	if e.inFlight == 0 {
		delete(r.entries, key)
		return true
	}
	return false
}

// ResolveFailure marks the most recent resolution as failed. The in-flight
// counter is left untouched, so the cell remains busy indefinitely: a failed
// save must stay visible until the user retries and a save succeeds.
func (r *Registry) ResolveFailure(key Key) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.entries[key]
	if e == nil {
		e = &pendingEntry{}
		r.entries[key] = e
	}
	e.failed = true
}

// Busy reports whether the cell should carry the busy visual treatment.
func (r *Registry) Busy(key Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.entries[key]
	return e != nil && (e.inFlight > 0 || e.failed)
}

// Failed reports whether the cell's most recent resolution was a failure.
func (r *Registry) Failed(key Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.entries[key]
	return e != nil && e.failed
}

// InFlight returns the number of unresolved operations for the cell.
func (r *Registry) InFlight(key Key) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.entries[key]
	if e == nil {
		return 0
	}
	return e.inFlight
}

// Len returns the number of cells with unsettled state.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
