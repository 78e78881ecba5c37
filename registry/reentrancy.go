package registry

import (
	"sync"

	"github.com/kay-lambdadelta/multiemu-sub000/component"
	"github.com/kay-lambdadelta/multiemu-sub000/internal/affinity"
)

// reentrancyTracker records, per calling goroutine, which component Ids
// currently have an exclusive borrow open somewhere in that goroutine's call
// chain. A task that writes memory which redirects back into a component it
// is already holding InteractMut on would otherwise deadlock a mutex
// against itself; instead that second InteractMut call fails immediately
// (spec.md section 4.1/9: "the registry may reject re-entrant exclusive
// borrows").
//
// The held set is partitioned by goroutine, not shared across all of them:
// a single map keyed only by component.Id would let one goroutine's entry
// overwrite another's, so goroutine A's own nested re-entry could read
// goroutine B's ownership stamp (or find the id absent, because B's leave
// already deleted it) and wrongly proceed to take a lock A is already
// holding, deadlocking against itself. Keying by (goroutine, id) isolates
// concurrent holders of the same id from each other's bookkeeping entirely.
type reentrancyTracker struct {
	mu     sync.Mutex
	heldBy map[affinity.ID]map[component.Id]struct{}
}

func (t *reentrancyTracker) tryEnter(id component.Id) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.heldBy == nil {
		t.heldBy = make(map[affinity.ID]map[component.Id]struct{})
	}
	me := affinity.Current()
	held := t.heldBy[me]
	if held == nil {
		held = make(map[component.Id]struct{})
		t.heldBy[me] = held
	} else if _, ok := held[id]; ok {
		return false
	}
	held[id] = struct{}{}
	return true
}

func (t *reentrancyTracker) leave(id component.Id) {
	t.mu.Lock()
	defer t.mu.Unlock()
	me := affinity.Current()
	held := t.heldBy[me]
	if held == nil {
		return
	}
	delete(held, id)
	if len(held) == 0 {
		delete(t.heldBy, me)
	}
}
