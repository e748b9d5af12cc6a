package timeline

import (
	"sync"
)

// Projector keeps the latest snapshot of each source and the merged view derived from them.
// Sources may be replaced in any order; every replacement recomputes the merged base.
// It is safe for concurrent use.
type Projector struct {
	mu      sync.RWMutex
	snap    Snapshot
	base    []Stage // merged, hidden excluded
	version uint64

	subsMu sync.Mutex
	subs   []chan struct{}
}

func NewProjector() *Projector {
	return &Projector{
		snap: Snapshot{Hidden: HiddenSet{}},
		base: []Stage{},
	}
}

// SetSnapshot replaces all three sources at once.
func (p *Projector) SetSnapshot(snap Snapshot) {
	p.update(func(s *Snapshot) {
		s.Stages = cloneStages(snap.Stages)
		s.Extras = cloneExtras(snap.Extras)
		s.Hidden = snap.Hidden.clone()
	})
}

func (p *Projector) SetStages(stages []Stage) {
	p.update(func(s *Snapshot) { s.Stages = cloneStages(stages) })
}

func (p *Projector) SetExtras(extras []ExtraEvent) {
	p.update(func(s *Snapshot) { s.Extras = cloneExtras(extras) })
}

func (p *Projector) SetHidden(hidden HiddenSet) {
	p.update(func(s *Snapshot) { s.Hidden = hidden.clone() })
}

func (p *Projector) update(fn func(*Snapshot)) {
	p.mu.Lock()
	fn(&p.snap)
	p.base = ExcludeHidden(Merge(p.snap.Stages, p.snap.Extras), p.snap.Hidden)
	p.version++
	p.mu.Unlock()

	p.notify()
}

// Version increases with every recompute.
func (p *Projector) Version() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.version
}

// Snapshot returns a copy of the current sources.
func (p *Projector) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return Snapshot{
		Stages: cloneStages(p.snap.Stages),
		Extras: cloneExtras(p.snap.Extras),
		Hidden: p.snap.Hidden.clone(),
	}
}

// View filters the current merged base. The returned stages are owned by the caller.
func (p *Projector) View(f Filter) (View, error) {
	p.mu.RLock()
	base := cloneStages(p.base)
	p.mu.RUnlock()
	return filterView(base, f)
}

// Stages returns the merged stages, hidden ones excluded, without any filter.
func (p *Projector) Stages() []Stage {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return cloneStages(p.base)
}

// Stage returns the merged stage with the given id, hidden events excluded.
func (p *Projector) Stage(id string) (Stage, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, stg := range p.base {
		if stg.ID == id {
			return stg.Clone(), true
		}
	}
	return Stage{}, false
}

// Orphans returns the extras referencing a stage that does not exist.
func (p *Projector) Orphans() []ExtraEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return Orphans(p.snap.Stages, p.snap.Extras)
}

// Subscribe returns a channel receiving a signal after each recompute, and the function
// that unsubscribes and closes it. Signals are coalesced: a slow reader sees at least one
// signal after the latest change.
func (p *Projector) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	p.subsMu.Lock()
	p.subs = append(p.subs, ch)
	p.subsMu.Unlock()

	var once sync.Once
	return ch, func() { once.Do(func() { p.unsubscribe(ch) }) }
}

func (p *Projector) unsubscribe(ch chan struct{}) {
	p.subsMu.Lock()
	defer p.subsMu.Unlock()
	for i, sub := range p.subs {
		if sub == ch {
			p.subs = append(p.subs[:i], p.subs[i+1:]...)
			close(ch)
			return
		}
	}
}

func (p *Projector) notify() {
	p.subsMu.Lock()
	defer p.subsMu.Unlock()
	for _, ch := range p.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func cloneStages(stages []Stage) []Stage {
	out := make([]Stage, len(stages))
	for i, stg := range stages {
		out[i] = stg.Clone()
	}
	return out
}

func cloneExtras(extras []ExtraEvent) []ExtraEvent {
	out := make([]ExtraEvent, len(extras))
	copy(out, extras)
	return out
}
