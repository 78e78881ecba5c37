// Package machine assembles the finished product of a Builder: the
// registry, memory access table, scheduler, resource endpoints and
// save/snapshot stores that together make up one running emulated system
// (spec.md section 3, "Machine").
package machine

import (
	"github.com/kay-lambdadelta/multiemu-sub000/address"
	"github.com/kay-lambdadelta/multiemu-sub000/memmap"
	"github.com/kay-lambdadelta/multiemu-sub000/registry"
	"github.com/kay-lambdadelta/multiemu-sub000/save"
	"github.com/kay-lambdadelta/multiemu-sub000/scheduler"
)

// Program identifies the program, machine type and backing ROM list a
// Machine was built to run. It is opaque to the core: components read it
// via their ComponentBuilder but the core never interprets its fields
// (spec.md section 6, "Program specification").
type Program struct {
	Name        string
	MachineType string
	ROMs        []string
}

// Display is an opaque named rendering endpoint. The core only tracks its
// existence and ResourcePath; rendering is a frontend concern
// (spec.md section 1, Non-goals).
type Display struct {
	Path address.ResourcePath
}

// AudioOutput is an opaque named audio endpoint, analogous to Display.
type AudioOutput struct {
	Path address.ResourcePath
}

// GamepadState is an opaque snapshot of a gamepad's current input state.
// Its shape is determined entirely by the external collaborator that
// implements Gamepad; the core never inspects it.
type GamepadState interface{}

// Gamepad is implemented by external collaborators and registered via
// ComponentBuilder.insert_gamepad. The core stores and looks up instances
// by ResourcePath but never calls into physical input hardware itself
// (spec.md section 6).
type Gamepad interface {
	State() GamepadState
}

// Machine is the sealed, running aggregate produced by Builder.build
// (spec.md section 4.4, "build(...) -> Machine").
type Machine struct {
	Registry  *registry.Registry
	Table     *memmap.Table
	Scheduler *scheduler.Scheduler

	Program Program

	Save     *save.Store
	Snapshot *save.Store

	displays     map[address.ResourcePath]Display
	audioOutputs map[address.ResourcePath]AudioOutput
	gamepads     map[address.ResourcePath]Gamepad
}

// New assembles a Machine from its already-built parts. Builder.build is
// the only intended caller; Machine itself performs no validation since
// every invariant (sealed table, deterministic task order, valid program)
// was already enforced during the build phase.
func New(reg *registry.Registry, table *memmap.Table, sched *scheduler.Scheduler, program Program) *Machine {
	return &Machine{
		Registry:     reg,
		Table:        table,
		Scheduler:    sched,
		Program:      program,
		Save:         save.NewStore(),
		Snapshot:     save.NewStore(),
		displays:     make(map[address.ResourcePath]Display),
		audioOutputs: make(map[address.ResourcePath]AudioOutput),
		gamepads:     make(map[address.ResourcePath]Gamepad),
	}
}

// AddDisplay registers a display endpoint under path.
func (m *Machine) AddDisplay(path address.ResourcePath) {
	m.displays[path] = Display{Path: path}
}

// AddAudioOutput registers an audio output endpoint under path.
func (m *Machine) AddAudioOutput(path address.ResourcePath) {
	m.audioOutputs[path] = AudioOutput{Path: path}
}

// AddGamepad registers gamepad under path.
func (m *Machine) AddGamepad(path address.ResourcePath, gamepad Gamepad) {
	m.gamepads[path] = gamepad
}

// Display returns the display registered under path, if any.
func (m *Machine) Display(path address.ResourcePath) (Display, bool) {
	d, ok := m.displays[path]
	return d, ok
}

// AudioOutput returns the audio output registered under path, if any.
func (m *Machine) AudioOutput(path address.ResourcePath) (AudioOutput, bool) {
	a, ok := m.audioOutputs[path]
	return a, ok
}

// Gamepad returns the gamepad registered under path, if any.
func (m *Machine) Gamepad(path address.ResourcePath) (Gamepad, bool) {
	g, ok := m.gamepads[path]
	return g, ok
}

// Stop tears the machine down by stopping its scheduler (self-driven mode
// signals and joins the pacing thread; cooperative mode is a no-op) per
// spec.md section 5, "Cancellation & shutdown". Discarding a Machine
// without calling Stop leaves a dedicated scheduler running.
func (m *Machine) Stop() error {
	return m.Scheduler.Stop()
}
