package memmap

import (
	"github.com/kay-lambdadelta/multiemu-sub000/address"
	"github.com/kay-lambdadelta/multiemu-sub000/component"
	"github.com/kay-lambdadelta/multiemu-sub000/errors"
	"github.com/kay-lambdadelta/multiemu-sub000/logger"
)

// maxMirrorHops bounds mirror-chain resolution; chains longer than this are
// treated as a cycle and fail OutOfBus (spec.md section 4.2, "Mirrors may
// chain but cycles must be detected").
const maxMirrorHops = 8

// Interactor is the subset of registry.Registry the Table needs: a
// polymorphic, by-Id borrow of a component. The table never imports the
// registry package directly so that it can be tested against a fake.
type Interactor interface {
	InteractDyn(id component.Id, fn func(component.Component)) bool
	InteractDynMut(id component.Id, fn func(component.Component)) bool
}

// Table is the Memory Access Table: the aggregate of every address space in
// a machine, routing accesses to components via an Interactor.
type Table struct {
	reg    Interactor
	spaces map[address.AddressSpaceId]*AddressSpace
	sealed bool
}

// NewTable creates a Table that dispatches component borrows through reg.
func NewTable(reg Interactor) *Table {
	return &Table{reg: reg, spaces: make(map[address.AddressSpaceId]*AddressSpace)}
}

// NewAddressSpace declares a new address space of the given width. Only
// valid before the table is sealed.
func (t *Table) NewAddressSpace(id address.AddressSpaceId, width uint) error {
	if t.sealed {
		return errors.Errorf(errors.InvalidConfig, "cannot add address space after the table is sealed")
	}
	sp, err := newAddressSpace(id, width)
	if err != nil {
		return err
	}
	t.spaces[id] = sp
	return nil
}

// Space returns the address space registered under id.
func (t *Table) Space(id address.AddressSpaceId) (*AddressSpace, bool) {
	sp, ok := t.spaces[id]
	return sp, ok
}

// Seal prevents further mutation of memory maps (spec.md section 3,
// "Mappings may not be altered after the Machine is built").
func (t *Table) Seal() { t.sealed = true }

func (t *Table) requireUnsealed() error {
	if t.sealed {
		return errors.Errorf(errors.InvalidConfig, "memory access table is sealed")
	}
	return nil
}

// MapRead installs rng -> id in space's read_members.
func (t *Table) MapRead(space address.AddressSpaceId, rng address.Range, id component.Id) error {
	return t.installMember(permRead, space, rng, id)
}

// MapWrite installs rng -> id in space's write_members.
func (t *Table) MapWrite(space address.AddressSpaceId, rng address.Range, id component.Id) error {
	return t.installMember(permWrite, space, rng, id)
}

// MapPreview installs rng -> id in space's preview_members.
func (t *Table) MapPreview(space address.AddressSpaceId, rng address.Range, id component.Id) error {
	return t.installMember(permPreview, space, rng, id)
}

// MapReadWrite installs rng -> id in both read_members and write_members,
// the common case for a component that is both readable and writable.
func (t *Table) MapReadWrite(space address.AddressSpaceId, rng address.Range, id component.Id) error {
	if err := t.MapRead(space, rng, id); err != nil {
		return err
	}
	return t.MapWrite(space, rng, id)
}

func (t *Table) installMember(kind permKind, space address.AddressSpaceId, rng address.Range, id component.Id) error {
	if err := t.requireUnsealed(); err != nil {
		return err
	}
	if rng.Start > rng.End {
		return errors.Errorf(errors.InvalidConfig, "empty mapping range: %s", rng)
	}
	sp, ok := t.spaces[space]
	if !ok {
		return errors.Errorf(errors.InvalidConfig, "unknown address space: %d", space)
	}
	sp.membersFor(kind).install(rng, id)
	return nil
}

// MapMirror installs a mirror from source to destination applying to every
// permission kind.
func (t *Table) MapMirror(space address.AddressSpaceId, source, destination address.Range) error {
	return t.mapMirror(space, source, destination, MirrorAll)
}

// MapMirrorRead installs a read-only mirror.
func (t *Table) MapMirrorRead(space address.AddressSpaceId, source, destination address.Range) error {
	return t.mapMirror(space, source, destination, MirrorRead)
}

// MapMirrorWrite installs a write-only mirror.
func (t *Table) MapMirrorWrite(space address.AddressSpaceId, source, destination address.Range) error {
	return t.mapMirror(space, source, destination, MirrorWrite)
}

func (t *Table) mapMirror(space address.AddressSpaceId, source, destination address.Range, perm MirrorPermission) error {
	if err := t.requireUnsealed(); err != nil {
		return err
	}
	if source.Start > source.End || destination.Start > destination.End {
		return errors.Errorf(errors.InvalidConfig, "empty mirror range")
	}
	if source.Len() != destination.Len() {
		return errors.Errorf(errors.InvalidConfig, "mirror source and destination lengths differ")
	}
	sp, ok := t.spaces[space]
	if !ok {
		return errors.Errorf(errors.InvalidConfig, "unknown address space: %d", space)
	}
	sp.mirrors.install(source, destination, perm)
	return nil
}

// accessKind distinguishes the three dispatch algorithms; they share almost
// all of their logic (spec.md section 4.2).
type accessKind int

const (
	accessRead accessKind = iota
	accessWrite
	accessPreview
)

func (k accessKind) permKind() permKind {
	switch k {
	case accessRead:
		return permRead
	case accessWrite:
		return permWrite
	default:
		return permPreview
	}
}

// AccessError accumulates the Denied/OutOfBus/Impossible records produced by
// a Read, Write or Preview call, keyed by the subrange of the original
// access they cover.
type AccessError struct {
	Records component.RecordMap
}

func (e *AccessError) Error() string {
	if len(e.Records) == 0 {
		return "memory access error"
	}
	s := "memory access error:"
	for rng, rec := range e.Records {
		kind := "denied"
		switch rec.Kind {
		case component.Redirect:
			kind = "redirect"
		case component.Impossible:
			kind = "impossible"
		}
		s += " " + rng.String() + "=" + kind
	}
	return s
}

// Denied reports whether any recorded range was Denied.
func (e *AccessError) Denied() bool { return e.hasKind(component.Denied) }

// OutOfBus reports whether any recorded range was out of bus.
func (e *AccessError) OutOfBus() bool { return e.hasKind(outOfBusKind) }

// Impossible reports whether any recorded range was Impossible (preview only).
func (e *AccessError) Impossible() bool { return e.hasKind(component.Impossible) }

// outOfBusKind is a RecordKind value distinct from the component package's
// three kinds, used internally to flag addresses with no covering
// component at all.
const outOfBusKind component.RecordKind = 100

func (e *AccessError) hasKind(k component.RecordKind) bool {
	for _, rec := range e.Records {
		if rec.Kind == k {
			return true
		}
	}
	return false
}

type queueEntry struct {
	addr     address.Address
	space    address.AddressSpaceId
	buf      []byte
	ownerID  component.Id
	hasOwner bool
}

// Read performs a read of len(buf) bytes starting at addr in space,
// following the algorithm in spec.md section 4.2.
func (t *Table) Read(addr address.Address, space address.AddressSpaceId, buf []byte) error {
	return t.dispatch(accessRead, addr, space, buf)
}

// Write performs a write of len(buf) bytes starting at addr in space.
func (t *Table) Write(addr address.Address, space address.AddressSpaceId, buf []byte) error {
	return t.dispatch(accessWrite, addr, space, buf)
}

// Preview performs a side-effect-free read of len(buf) bytes. Components
// are expected, but not forced, to honour this contract; a component that
// cannot preview without side effects should return an Impossible record
// instead.
func (t *Table) Preview(addr address.Address, space address.AddressSpaceId, buf []byte) error {
	return t.dispatch(accessPreview, addr, space, buf)
}

func (t *Table) dispatch(kind accessKind, addr address.Address, space address.AddressSpaceId, buf []byte) error {
	errs := component.RecordMap{}
	queue := []queueEntry{{addr: addr, space: space, buf: buf}}

	for len(queue) > 0 {
		// pop the most recently pushed entry: redirects pushed while
		// dispatching an entry run after all of that entry's direct
		// dispatches, most recent first and ahead of anything queued
		// earlier (spec.md section 4.2, "Ordering & tie-breaks").
		e := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		sp, ok := t.spaces[e.space]
		if !ok {
			errs[fullRange(e.addr, len(e.buf))] = component.Record{Kind: outOfBusKind}
			continue
		}

		masked := e.addr & sp.widthMask
		resolved, chainOK := t.resolveMirror(sp, masked, kind.permKind())
		if !chainOK {
			errs[fullRange(masked, len(e.buf))] = component.Record{Kind: outOfBusKind}
			continue
		}

		members := sp.membersFor(kind.permKind())
		access := fullRange(resolved, len(e.buf))
		overlaps := members.lookupRange(access)

		if len(overlaps) == 0 {
			errs[access] = component.Record{Kind: outOfBusKind}
			continue
		}

		covered := make([]bool, len(e.buf))

		for _, ov := range overlaps {
			sub := intersect(ov.rng, access)
			subBuf := e.buf[sub.Start-access.Start : sub.End-access.Start+1]

			if e.hasOwner && e.ownerID == ov.id {
				// A component's own callback tried to redirect back
				// into its own mapped range: spec.md section 3,
				// invariant 4, "treated as fatal bug".
				panic("memmap: component redirected into its own mapped range")
			}

			for i := sub.Start - access.Start; i <= sub.End-access.Start; i++ {
				covered[i] = true
			}

			recs, borrowed := t.invoke(kind, ov.id, sub.Start, e.space, subBuf)
			if !borrowed {
				errs[sub] = component.Record{Kind: component.Denied}
				continue
			}

			for rng, rec := range recs {
				switch rec.Kind {
				case component.Denied, component.Impossible:
					errs[rng] = rec
				case component.Redirect:
					destBuf := subsliceFor(subBuf, sub, rng)
					queue = append(queue, queueEntry{
						addr:     rec.Address,
						space:    rec.Space,
						buf:      destBuf,
						ownerID:  ov.id,
						hasOwner: true,
					})
				}
			}
		}

		for i, ok := range covered {
			if !ok {
				start := access.Start + address.Address(i)
				errs[address.Range{Start: start, End: start}] = component.Record{Kind: outOfBusKind}
			}
		}
	}

	if kind != accessPreview {
		for rng, rec := range errs {
			if rec.Kind == component.Impossible {
				logger.Logf("memmap", "dropping unexpected Impossible record for %s outside preview", rng)
				delete(errs, rng)
			}
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return &AccessError{Records: errs}
}

func (t *Table) invoke(kind accessKind, id component.Id, addr address.Address, space address.AddressSpaceId, buf []byte) (component.RecordMap, bool) {
	var recs component.RecordMap
	var callErr error
	ok := false
	switch kind {
	case accessRead:
		ok = t.reg.InteractDyn(id, func(c component.Component) {
			recs, callErr = c.ReadMemory(addr, space, buf)
		})
	case accessWrite:
		ok = t.reg.InteractDynMut(id, func(c component.Component) {
			recs, callErr = c.WriteMemory(addr, space, buf)
		})
	case accessPreview:
		ok = t.reg.InteractDyn(id, func(c component.Component) {
			recs, callErr = c.PreviewMemory(addr, space, buf)
		})
	}
	if callErr != nil {
		logger.Logf("memmap", "component %d returned error: %s", id, callErr)
	}
	return recs, ok
}

func (t *Table) resolveMirror(sp *AddressSpace, addr address.Address, kind permKind) (address.Address, bool) {
	for hop := 0; hop <= maxMirrorHops; hop++ {
		mi, found := sp.mirrors.lookup(addr, kind)
		if !found {
			return addr, true
		}
		offset := addr - mi.src.Start
		addr = mi.dest.Start + offset
	}
	return 0, false
}

func fullRange(start address.Address, length int) address.Range {
	return address.Range{Start: start, End: start + address.Address(length) - 1}
}

func intersect(a, b address.Range) address.Range {
	start := a.Start
	if b.Start > start {
		start = b.Start
	}
	end := a.End
	if b.End < end {
		end = b.End
	}
	return address.Range{Start: start, End: end}
}

// subsliceFor returns the portion of parentBuf (which covers parentRng)
// corresponding to rng, which must be contained in parentRng.
func subsliceFor(parentBuf []byte, parentRng, rng address.Range) []byte {
	off := rng.Start - parentRng.Start
	length := rng.End - rng.Start + 1
	return parentBuf[off : off+length]
}
