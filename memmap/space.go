// Package memmap implements the Memory Access Table: address-space routing
// with per-component read/write/preview callbacks, redirection and
// mirroring (spec.md section 4.2).
package memmap

import (
	"github.com/google/btree"

	"github.com/kay-lambdadelta/multiemu-sub000/address"
	"github.com/kay-lambdadelta/multiemu-sub000/component"
	"github.com/kay-lambdadelta/multiemu-sub000/errors"
)

// permKind distinguishes the three permission-keyed range maps an
// AddressSpace carries (spec.md section 3, "AddressSpace").
type permKind int

const (
	permRead permKind = iota
	permWrite
	permPreview
)

// MirrorPermission is a bitmask of which permission kinds a mirror applies
// to, letting a mirror be installed for all access kinds (memory_map_mirror)
// or just one (memory_map_mirror_read / _write).
type MirrorPermission uint8

const (
	MirrorRead MirrorPermission = 1 << iota
	MirrorWrite
	MirrorPreview
	MirrorAll = MirrorRead | MirrorWrite | MirrorPreview
)

func (p MirrorPermission) allows(k permKind) bool {
	switch k {
	case permRead:
		return p&MirrorRead != 0
	case permWrite:
		return p&MirrorWrite != 0
	case permPreview:
		return p&MirrorPreview != 0
	}
	return false
}

// rangeItem is the btree.Item stored in a permissionMap: a non-overlapping
// [Start,End] range routed to a component Id. Ordering is by Start only,
// which is sufficient because invariant 2 (spec.md section 3) guarantees no
// two items in the same map share a Start.
type rangeItem struct {
	rng address.Range
	id  component.Id
}

func (a rangeItem) Less(than btree.Item) bool {
	return a.rng.Start < than.(rangeItem).rng.Start
}

// permissionMap is an ordered interval map range -> ComponentId, one of
// which backs each of read_members/write_members/preview_members.
type permissionMap struct {
	tree *btree.BTree
}

func newPermissionMap() *permissionMap {
	return &permissionMap{tree: btree.New(16)}
}

// install adds rng -> id, splitting or deleting any existing entries that
// overlap rng so that the later mapping replaces the earlier one for the
// overlapping subrange (spec.md section 3, invariant 2). Only ever called
// during the build phase.
func (m *permissionMap) install(rng address.Range, id component.Id) {
	var overlapping []rangeItem
	m.tree.Ascend(func(i btree.Item) bool {
		ri := i.(rangeItem)
		if ri.rng.Overlaps(rng) {
			overlapping = append(overlapping, ri)
		}
		return true
	})

	for _, ri := range overlapping {
		m.tree.Delete(ri)
		if ri.rng.Start < rng.Start {
			m.tree.ReplaceOrInsert(rangeItem{
				rng: address.Range{Start: ri.rng.Start, End: rng.Start - 1},
				id:  ri.id,
			})
		}
		if ri.rng.End > rng.End {
			m.tree.ReplaceOrInsert(rangeItem{
				rng: address.Range{Start: rng.End + 1, End: ri.rng.End},
				id:  ri.id,
			})
		}
	}

	m.tree.ReplaceOrInsert(rangeItem{rng: rng, id: id})
}

// lookupRange returns every entry overlapping rng, in ascending Start order.
func (m *permissionMap) lookupRange(rng address.Range) []rangeItem {
	var out []rangeItem
	seenStart := make(map[address.Address]bool)

	add := func(i btree.Item) bool {
		ri := i.(rangeItem)
		if ri.rng.Overlaps(rng) && !seenStart[ri.rng.Start] {
			seenStart[ri.rng.Start] = true
			out = append(out, ri)
		}
		return true
	}

	// the single entry (if any) whose Start is <= rng.Start but which may
	// still extend into rng.
	m.tree.DescendLessOrEqual(rangeItem{rng: address.Range{Start: rng.Start}}, func(i btree.Item) bool {
		add(i)
		return false
	})

	if rng.End == ^address.Address(0) {
		m.tree.AscendGreaterOrEqual(rangeItem{rng: address.Range{Start: rng.Start}}, add)
	} else {
		m.tree.AscendRange(
			rangeItem{rng: address.Range{Start: rng.Start}},
			rangeItem{rng: address.Range{Start: rng.End + 1}},
			add,
		)
	}

	return out
}

// mirrorItem is the btree.Item stored in the mirror map.
type mirrorItem struct {
	src  address.Range
	dest address.Range
	perm MirrorPermission
}

func (a mirrorItem) Less(than btree.Item) bool {
	return a.src.Start < than.(mirrorItem).src.Start
}

type mirrorMap struct {
	tree *btree.BTree
}

func newMirrorMap() *mirrorMap {
	return &mirrorMap{tree: btree.New(16)}
}

func (m *mirrorMap) install(src, dest address.Range, perm MirrorPermission) {
	// mirrors may not overlap other mirrors over the same subrange; later
	// installations replace earlier ones, same as permission maps.
	var overlapping []mirrorItem
	m.tree.Ascend(func(i btree.Item) bool {
		mi := i.(mirrorItem)
		if mi.src.Overlaps(src) {
			overlapping = append(overlapping, mi)
		}
		return true
	})
	for _, mi := range overlapping {
		m.tree.Delete(mi)
		if mi.src.Start < src.Start {
			offset := src.Start - mi.src.Start
			m.tree.ReplaceOrInsert(mirrorItem{
				src:  address.Range{Start: mi.src.Start, End: src.Start - 1},
				dest: address.Range{Start: mi.dest.Start, End: mi.dest.Start + offset - 1},
				perm: mi.perm,
			})
		}
		if mi.src.End > src.End {
			offset := src.End + 1 - mi.src.Start
			m.tree.ReplaceOrInsert(mirrorItem{
				src:  address.Range{Start: src.End + 1, End: mi.src.End},
				dest: address.Range{Start: mi.dest.Start + offset, End: mi.dest.End},
				perm: mi.perm,
			})
		}
	}
	m.tree.ReplaceOrInsert(mirrorItem{src: src, dest: dest, perm: perm})
}

// lookup returns the mirror entry (if any) covering addr for the given
// permission kind.
func (m *mirrorMap) lookup(addr address.Address, kind permKind) (mirrorItem, bool) {
	var found mirrorItem
	ok := false
	m.tree.DescendLessOrEqual(mirrorItem{src: address.Range{Start: addr}}, func(i btree.Item) bool {
		mi := i.(mirrorItem)
		if mi.src.Contains(addr) && mi.perm.allows(kind) {
			found, ok = mi, true
		}
		return false
	})
	return found, ok
}

// AddressSpace is an independent bus with its own width and memory map
// (spec.md GLOSSARY).
type AddressSpace struct {
	id        address.AddressSpaceId
	width     uint
	widthMask address.Address

	readMembers    *permissionMap
	writeMembers   *permissionMap
	previewMembers *permissionMap
	mirrors        *mirrorMap
}

func newAddressSpace(id address.AddressSpaceId, width uint) (*AddressSpace, error) {
	const hostWordBits = 64
	if width == 0 || width > hostWordBits {
		return nil, errors.Errorf(errors.InvalidAddressSpaceWidth, "invalid address space width: %d", width)
	}
	var mask address.Address
	if width == hostWordBits {
		mask = ^address.Address(0)
	} else {
		mask = (address.Address(1) << width) - 1
	}
	return &AddressSpace{
		id:             id,
		width:          width,
		widthMask:      mask,
		readMembers:    newPermissionMap(),
		writeMembers:   newPermissionMap(),
		previewMembers: newPermissionMap(),
		mirrors:        newMirrorMap(),
	}, nil
}

// Width returns the address space's width in bits.
func (s *AddressSpace) Width() uint { return s.width }

// WidthMask returns the mask every address accepted by this space is
// narrowed to before dispatch (spec.md section 3, invariant 3).
func (s *AddressSpace) WidthMask() address.Address { return s.widthMask }

func (s *AddressSpace) membersFor(kind permKind) *permissionMap {
	switch kind {
	case permRead:
		return s.readMembers
	case permWrite:
		return s.writeMembers
	default:
		return s.previewMembers
	}
}
