// Package builder implements the Machine Builder: the staged assembly
// process that collects address spaces, components, memory mappings and
// tasks, then finalizes them into a sealed machine.machine.Machine
// (spec.md section 4.4).
package builder

import (
	"bytes"
	"context"
	"io"

	"github.com/kay-lambdadelta/multiemu-sub000/address"
	"github.com/kay-lambdadelta/multiemu-sub000/component"
	"github.com/kay-lambdadelta/multiemu-sub000/errors"
	"github.com/kay-lambdadelta/multiemu-sub000/machine"
	"github.com/kay-lambdadelta/multiemu-sub000/memmap"
	"github.com/kay-lambdadelta/multiemu-sub000/rational"
	"github.com/kay-lambdadelta/multiemu-sub000/registry"
	"github.com/kay-lambdadelta/multiemu-sub000/save"
	"github.com/kay-lambdadelta/multiemu-sub000/scheduler"
)

// ComponentConfig builds one component's concrete implementation and, via
// the ComponentBuilder handed to BuildComponent, wires its memory maps,
// tasks and resource endpoints. External chip crates implement this once
// per component kind.
type ComponentConfig interface {
	BuildComponent(cb *ComponentBuilder) (component.Component, error)
}

// LocalAffinity may optionally be implemented by a ComponentConfig to mark
// its component as thread-affine (spec.md section 4.1, "local"): such a
// component may only be interacted with from the goroutine that built the
// machine. Configs that do not implement this are Shared by default.
type LocalAffinity interface {
	Local() bool
}

// LateInitializer defers graphics-dependent initialization until build()
// supplies the opaque graphics initialization blob (spec.md section 4.4,
// "set_lazy_component_initializer").
type LateInitializer func(graphicsInitData interface{}) error

// Builder is the staged assembly process: Empty -> (components inserted)*
// -> (late initializers run) -> Sealed. No mutation of memory maps or task
// sets is possible once build() has run (spec.md section 4.4).
type Builder struct {
	reg   *registry.Registry
	table *memmap.Table
	sched *scheduler.Scheduler

	program machine.Program

	saveIn snapshotSource
	snapIn snapshotSource

	lateInits []LateInitializer

	displays     []address.ResourcePath
	audioOutputs []address.ResourcePath
	gamepads     map[address.ResourcePath]machine.Gamepad

	nextSpace address.AddressSpaceId
	sealed    bool
}

type snapshotSource struct {
	store *save.Store
}

// New creates an empty Builder for the given program specification
// (spec.md section 6, "Program specification").
func New(program machine.Program) *Builder {
	reg := registry.New()
	return &Builder{
		reg:      reg,
		table:    memmap.NewTable(reg),
		sched:    scheduler.New(),
		program:  program,
		gamepads: make(map[address.ResourcePath]machine.Gamepad),
	}
}

// LoadSave supplies a previously-persisted save container; components can
// retrieve their entry via ComponentBuilder.Save during BuildComponent.
func (b *Builder) LoadSave(store *save.Store) { b.saveIn.store = store }

// LoadSnapshot supplies a previously-persisted snapshot container.
func (b *Builder) LoadSnapshot(store *save.Store) { b.snapIn.store = store }

// InsertAddressSpace declares a new address space of the given width,
// returning its freshly assigned Id (spec.md section 4.4,
// "insert_address_space(width)").
func (b *Builder) InsertAddressSpace(width uint) (address.AddressSpaceId, error) {
	if b.sealed {
		return 0, errors.Errorf(errors.InvalidConfig, "builder is sealed")
	}
	id := b.nextSpace
	if err := b.table.NewAddressSpace(id, width); err != nil {
		return 0, err
	}
	b.nextSpace++
	return id, nil
}

// InsertComponent installs a top-level component (spec.md section 4.4,
// "insert_component(name, config)").
func (b *Builder) InsertComponent(name string, config ComponentConfig) (address.ComponentPath, error) {
	return b.insertComponent("", name, config)
}

func (b *Builder) insertComponent(parent address.ComponentPath, name string, config ComponentConfig) (address.ComponentPath, error) {
	if b.sealed {
		return "", errors.Errorf(errors.InvalidConfig, "builder is sealed")
	}

	path := address.NewComponentPath(parent, name)
	id, err := b.reg.Reserve(path)
	if err != nil {
		return "", err
	}

	cb := &ComponentBuilder{b: b, path: path, id: id}
	comp, err := config.BuildComponent(cb)
	if err != nil {
		return "", errors.Errorf(errors.InvalidConfig, "building component %s: %s", path, err)
	}

	// a persisted save whose version differs from the one the component
	// reports aborts the build with InvalidVersion.
	if want, persists := comp.SaveVersion(); persists && b.saveIn.store != nil {
		if _, _, has := b.saveIn.store.Get(path); has {
			if _, err := b.saveIn.store.RequireVersion(path, want); err != nil {
				return "", err
			}
		}
	}

	aff := registry.Shared
	if la, ok := config.(LocalAffinity); ok && la.Local() {
		aff = registry.Local
	}
	b.reg.Finalize(id, comp, aff)

	return path, nil
}

// DumpGraph renders the build-time component graph (registered components
// and their paths) for topology debugging (spec.md section 4.4, wired to
// memviz in dumpgraph.go). Not used by build() itself.
func (b *Builder) DumpGraph(w io.Writer) error {
	return dumpGraph(b, w)
}

// Build runs every late initializer in insertion order, seals the memory
// access table, and constructs the scheduler, optionally on its own
// dedicated thread (spec.md section 4.4, "build(graphics_init_data,
// dedicated_thread?) -> Machine").
func (b *Builder) Build(graphicsInitData interface{}, dedicatedThread bool) (*machine.Machine, error) {
	if b.sealed {
		return nil, errors.Errorf(errors.InvalidConfig, "builder already sealed")
	}

	for _, init := range b.lateInits {
		if err := init(graphicsInitData); err != nil {
			return nil, errors.Errorf(errors.InvalidConfig, "late initializer failed: %s", err)
		}
	}

	b.table.Seal()
	b.sealed = true

	m := machine.New(b.reg, b.table, b.sched, b.program)
	for _, rp := range b.displays {
		m.AddDisplay(rp)
	}
	for _, rp := range b.audioOutputs {
		m.AddAudioOutput(rp)
	}
	for rp, g := range b.gamepads {
		m.AddGamepad(rp, g)
	}

	if dedicatedThread {
		// a generous default tick rate; real chip timings are driven by
		// each task's own exact period, this just bounds how often the
		// pacing loop re-evaluates accumulated debt.
		m.Scheduler.StartDedicated(context.Background(), rational.New(1000, 1))
	}

	return m, nil
}

// ComponentBuilder scopes insert_child_component, memory_map*,
// insert_task*, insert_display/insert_audio_output/insert_gamepad,
// set_lazy_component_initializer and save() to the component path it was
// created for (spec.md section 4.4).
type ComponentBuilder struct {
	b    *Builder
	path address.ComponentPath
	id   component.Id
}

// Path returns the ComponentPath this builder is scoped to.
func (cb *ComponentBuilder) Path() address.ComponentPath { return cb.path }

// InsertChildComponent installs a component under this builder's path;
// the child's path is parent/name (spec.md section 4.4).
func (cb *ComponentBuilder) InsertChildComponent(name string, config ComponentConfig) (address.ComponentPath, error) {
	return cb.b.insertComponent(cb.path, name, config)
}

// MemoryMap installs rng -> this component in both read_members and
// write_members of space.
func (cb *ComponentBuilder) MemoryMap(space address.AddressSpaceId, rng address.Range) error {
	return cb.b.table.MapReadWrite(space, rng, cb.id)
}

// MemoryMapRead installs a read_members-only mapping.
func (cb *ComponentBuilder) MemoryMapRead(space address.AddressSpaceId, rng address.Range) error {
	return cb.b.table.MapRead(space, rng, cb.id)
}

// MemoryMapWrite installs a write_members-only mapping.
func (cb *ComponentBuilder) MemoryMapWrite(space address.AddressSpaceId, rng address.Range) error {
	return cb.b.table.MapWrite(space, rng, cb.id)
}

// MemoryMapMirror installs a mirror applying to every permission kind.
func (cb *ComponentBuilder) MemoryMapMirror(space address.AddressSpaceId, source, destination address.Range) error {
	return cb.b.table.MapMirror(space, source, destination)
}

// MemoryMapMirrorRead installs a read-only mirror.
func (cb *ComponentBuilder) MemoryMapMirrorRead(space address.AddressSpaceId, source, destination address.Range) error {
	return cb.b.table.MapMirrorRead(space, source, destination)
}

// MemoryMapMirrorWrite installs a write-only mirror.
func (cb *ComponentBuilder) MemoryMapMirrorWrite(space address.AddressSpaceId, source, destination address.Range) error {
	return cb.b.table.MapMirrorWrite(space, source, destination)
}

// InsertDisplay registers a display resource endpoint under this
// component's path.
func (cb *ComponentBuilder) InsertDisplay(name string) address.ResourcePath {
	rp := address.ResourcePath{Path: cb.path, Name: name}
	cb.b.displays = append(cb.b.displays, rp)
	return rp
}

// InsertAudioOutput registers an audio output resource endpoint.
func (cb *ComponentBuilder) InsertAudioOutput(name string) address.ResourcePath {
	rp := address.ResourcePath{Path: cb.path, Name: name}
	cb.b.audioOutputs = append(cb.b.audioOutputs, rp)
	return rp
}

// InsertGamepad registers gamepad under this component's path.
func (cb *ComponentBuilder) InsertGamepad(name string, gamepad machine.Gamepad) address.ResourcePath {
	rp := address.ResourcePath{Path: cb.path, Name: name}
	cb.b.gamepads[rp] = gamepad
	return rp
}

// SetLazyComponentInitializer defers fn until build() supplies the
// graphics initialization data.
func (cb *ComponentBuilder) SetLazyComponentInitializer(fn LateInitializer) {
	cb.b.lateInits = append(cb.b.lateInits, fn)
}

// Save returns this component's previously-persisted save bytes and
// version, if a save container was supplied via Builder.LoadSave and it
// has an entry for this path (spec.md section 4.4, "save() -> optional
// (reader, version)").
func (cb *ComponentBuilder) Save() (r io.Reader, version uint32, ok bool) {
	return readEntry(cb.b.saveIn.store, cb.path)
}

// Snapshot is the snapshot-container analogue of Save.
func (cb *ComponentBuilder) Snapshot() (r io.Reader, version uint32, ok bool) {
	return readEntry(cb.b.snapIn.store, cb.path)
}

func readEntry(store *save.Store, path address.ComponentPath) (io.Reader, uint32, bool) {
	if store == nil {
		return nil, 0, false
	}
	version, data, ok := store.Get(path)
	if !ok {
		return nil, 0, false
	}
	return bytes.NewReader(data), version, true
}
