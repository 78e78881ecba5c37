// Package component defines the Component trait contract: the fixed
// capability set every emulated chip (CPU, PPU, RAM, I/O) must implement to
// be wired into a Machine (spec.md section 3, "Component"). This package is
// consumed by the registry, the memory access table and the scheduler; it
// never depends on any of them.
package component

import (
	"io"

	"github.com/kay-lambdadelta/multiemu-sub000/address"
)

// Id is the stable integer handle the registry assigns to a component at
// insertion time.
type Id int

// RecordKind distinguishes the three ways a read/write/preview callback can
// decline to service part of an access.
type RecordKind int

const (
	// Denied means the component refuses the access outright (e.g. a
	// write to read-only ROM).
	Denied RecordKind = iota
	// Redirect means the access should be retried elsewhere.
	Redirect
	// Impossible means a preview cannot be performed without side
	// effects; only valid in PreviewError records.
	Impossible
)

// Record describes why part of an access could not be serviced directly.
type Record struct {
	Kind RecordKind

	// Valid when Kind == Redirect.
	Address address.Address
	Space   address.AddressSpaceId
}

// RecordMap accumulates Records keyed by the sub-range of the original
// access they apply to. An empty, non-nil RecordMap and a nil RecordMap are
// both treated as "no error" by callers; Component implementations should
// return nil when every byte of the access was serviced directly.
type RecordMap map[address.Range]Record

// Component is the uniform interface every emulated chip implements
// (spec.md section 3). Reset and the persistence hooks are always present;
// ReadMemory/WriteMemory/PreviewMemory are called only for the address
// ranges the component was mapped against via a ComponentBuilder.
type Component interface {
	// Reset returns the component to its power-on state. Independent of
	// scheduler state: resetting a component does not reset any task's
	// accumulated debt.
	Reset()

	// ReadMemory services a read of len(buf) bytes starting at addr in
	// the given address space, already masked to the space's width. A
	// nil return means every byte was written into buf directly. A
	// non-nil RecordMap describes the sub-ranges that were Denied or
	// that must be Redirected elsewhere.
	ReadMemory(addr address.Address, space address.AddressSpaceId, buf []byte) (RecordMap, error)

	// WriteMemory services a write of buf's bytes starting at addr.
	// Records are Denied or Redirect only (never Impossible).
	WriteMemory(addr address.Address, space address.AddressSpaceId, buf []byte) (RecordMap, error)

	// PreviewMemory behaves like ReadMemory but MUST NOT mutate any
	// observable component state (spec.md section 4.2). A component
	// whose read has unavoidable side effects (e.g. clear-on-read
	// interrupt flags) should either return the value unclearedly or
	// return an Impossible record for that sub-range.
	PreviewMemory(addr address.Address, space address.AddressSpaceId, buf []byte) (RecordMap, error)

	// SaveVersion returns the version of this component's persistent
	// save format, or ok == false if the component has no save state to
	// persist (e.g. it is purely volatile).
	SaveVersion() (version uint32, ok bool)

	// SnapshotVersion returns the version of this component's snapshot
	// format, or ok == false if the component participates in neither
	// saves nor snapshots.
	SnapshotVersion() (version uint32, ok bool)

	// StoreSave writes this component's persistent state. Called only
	// if SaveVersion reports ok == true.
	StoreSave(w io.Writer) error

	// LoadSave restores persistent state previously written by
	// StoreSave. version is the value recorded alongside the bytes when
	// they were saved; implementations should refuse to load a version
	// they do not recognise.
	LoadSave(version uint32, r io.Reader) error

	// StoreSnapshot writes this component's complete state, volatile
	// and persistent.
	StoreSnapshot(w io.Writer) error

	// LoadSnapshot restores state previously written by StoreSnapshot.
	LoadSnapshot(version uint32, r io.Reader) error
}

// Base is an embeddable helper that gives a Component a no-op Reset and
// no-op persistence by default; concrete chips embed Base and override only
// what they need. Base has no memory callbacks: a chip embedding it still
// implements ReadMemory, WriteMemory and PreviewMemory itself. This mirrors
// how many small chips (a single I/O register, a control line) have nothing
// to save.
type Base struct{}

func (Base) Reset() {}

func (Base) SaveVersion() (uint32, bool)     { return 0, false }
func (Base) SnapshotVersion() (uint32, bool) { return 0, false }

func (Base) StoreSave(io.Writer) error           { return nil }
func (Base) LoadSave(uint32, io.Reader) error    { return nil }
func (Base) StoreSnapshot(io.Writer) error       { return nil }
func (Base) LoadSnapshot(uint32, io.Reader) error { return nil }
