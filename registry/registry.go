// Package registry implements the Component Registry: a typed,
// path-addressed store of emulated components offering safe cross-component
// interaction under interior mutability (spec.md section 4.1).
package registry

import (
	"sync"

	"github.com/kay-lambdadelta/multiemu-sub000/address"
	"github.com/kay-lambdadelta/multiemu-sub000/component"
	"github.com/kay-lambdadelta/multiemu-sub000/errors"
	"github.com/kay-lambdadelta/multiemu-sub000/internal/affinity"
)

// Affinity tags a component as either usable from any scheduler worker
// (Shared) or confined to the goroutine that inserted it (Local), per
// spec.md section 4.1/5.
type Affinity int

const (
	Shared Affinity = iota
	Local
)

type slot struct {
	path     address.ComponentPath
	affinity Affinity
	owner    affinity.ID // meaningful only when affinity == Local

	mu   sync.RWMutex
	comp component.Component
}

// Registry stores components by ComponentPath with stable ComponentId
// handles assigned at insertion.
type Registry struct {
	mu        sync.RWMutex
	byPath    map[address.ComponentPath]component.Id
	slots     []*slot // index == int(component.Id)
	reentrant reentrancyTracker
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		byPath: make(map[address.ComponentPath]component.Id),
	}
}

// Insert stores comp under path with the given affinity, returning its
// freshly assigned Id. Returns a DuplicatePath error if path is already in
// use.
func (r *Registry) Insert(path address.ComponentPath, comp component.Component, aff Affinity) (component.Id, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byPath[path]; exists {
		return 0, errors.Errorf(errors.DuplicatePath, "duplicate component path: %s", path)
	}

	id := component.Id(len(r.slots))
	s := &slot{path: path, affinity: aff, comp: comp}
	if aff == Local {
		s.owner = affinity.Current()
	}
	r.slots = append(r.slots, s)
	r.byPath[path] = id
	return id, nil
}

// Reserve assigns path a ComponentId immediately, without a backing
// component. This lets a Machine Builder hand a component its own Id
// before running its construction, so a component's build-time wiring
// (memory_map, insert_task) can reference its own Id right away. Finalize
// must be called with the real component before the registry is
// otherwise used; the reserved slot is not yet usable for Interact.
func (r *Registry) Reserve(path address.ComponentPath) (component.Id, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byPath[path]; exists {
		return 0, errors.Errorf(errors.DuplicatePath, "duplicate component path: %s", path)
	}

	id := component.Id(len(r.slots))
	s := &slot{path: path}
	r.slots = append(r.slots, s)
	r.byPath[path] = id
	return id, nil
}

// Finalize installs comp and aff as the backing state for a slot
// previously returned by Reserve.
func (r *Registry) Finalize(id component.Id, comp component.Component, aff Affinity) {
	r.mu.RLock()
	s := r.slots[id]
	r.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.comp = comp
	s.affinity = aff
	if aff == Local {
		s.owner = affinity.Current()
	}
}

// GetId returns the Id assigned to path, if any.
func (r *Registry) GetId(path address.ComponentPath) (component.Id, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byPath[path]
	return id, ok
}

// PathOf returns the path a given Id was inserted under.
func (r *Registry) PathOf(id component.Id) (address.ComponentPath, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(id) < 0 || int(id) >= len(r.slots) {
		return "", false
	}
	return r.slots[id].path, true
}

func (r *Registry) slotByPath(path address.ComponentPath) (*slot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byPath[path]
	if !ok {
		return nil, false
	}
	return r.slots[id], true
}

func (r *Registry) slotById(id component.Id) (*slot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(id) < 0 || int(id) >= len(r.slots) {
		return nil, false
	}
	return r.slots[id], true
}

func checkAffinity(s *slot) error {
	if s.affinity == Local && affinity.Current() != s.owner {
		return errors.Errorf(errors.WrongThread, "component %s is local to another thread", s.path)
	}
	return nil
}

// Interact takes a shared (read) borrow on the component stored at path,
// type-checks it against C, and runs fn. It returns ok == false if the path
// is unknown, the stored type does not match C, or the component is local
// to a different thread.
func Interact[C any](r *Registry, path address.ComponentPath, fn func(C)) (ok bool) {
	s, found := r.slotByPath(path)
	if !found {
		return false
	}
	if err := checkAffinity(s); err != nil {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	typed, isType := s.comp.(C)
	if !isType {
		return false
	}
	fn(typed)
	return true
}

// InteractMut takes an exclusive (write) borrow on the component stored at
// path. Re-entrant exclusive borrows on the same component within a single
// call chain are rejected rather than allowed to deadlock (spec.md section
// 4.1): if the calling goroutine already holds this component's exclusive
// borrow, InteractMut returns ok == false immediately.
func InteractMut[C any](r *Registry, path address.ComponentPath, fn func(C)) (ok bool) {
	s, found := r.slotByPath(path)
	if !found {
		return false
	}
	if err := checkAffinity(s); err != nil {
		return false
	}

	id, _ := r.GetId(path)
	if !r.reentrant.tryEnter(id) {
		return false
	}
	defer r.reentrant.leave(id)

	s.mu.Lock()
	defer s.mu.Unlock()

	typed, isType := s.comp.(C)
	if !isType {
		return false
	}
	fn(typed)
	return true
}

// InteractDyn is the polymorphic equivalent of Interact, used by the memory
// access table and scheduler which only know about the component.Component
// interface, not its concrete type.
func (r *Registry) InteractDyn(id component.Id, fn func(component.Component)) bool {
	s, found := r.slotById(id)
	if !found {
		return false
	}
	if err := checkAffinity(s); err != nil {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.comp)
	return true
}

// InteractDynMut is the polymorphic equivalent of InteractMut.
func (r *Registry) InteractDynMut(id component.Id, fn func(component.Component)) bool {
	s, found := r.slotById(id)
	if !found {
		return false
	}
	if err := checkAffinity(s); err != nil {
		return false
	}

	if !r.reentrant.tryEnter(id) {
		return false
	}
	defer r.reentrant.leave(id)

	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.comp)
	return true
}

// Len returns the number of components in the registry.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.slots)
}

// Each calls fn once for every registered component, in insertion order.
// fn must not mutate the registry.
func (r *Registry) Each(fn func(id component.Id, path address.ComponentPath, aff Affinity)) {
	r.mu.RLock()
	slots := append([]*slot(nil), r.slots...)
	r.mu.RUnlock()

	for i, s := range slots {
		fn(component.Id(i), s.path, s.affinity)
	}
}
