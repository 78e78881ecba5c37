package memmap

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/btree"

	"github.com/kay-lambdadelta/multiemu-sub000/address"
)

// Summary renders the read-member map of every address space as a sorted
// "start -> end\tComponentId" table, one line per contiguous mapping.
// Intended for build-time diagnostics alongside Builder.DumpGraph.
func (t *Table) Summary() string {
	var ids []int
	for id := range t.spaces {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)

	var b strings.Builder
	for _, id := range ids {
		sp := t.spaces[address.AddressSpaceId(id)]
		fmt.Fprintf(&b, "space %d (%d bits)\n", id, sp.width)
		sp.readMembers.tree.Ascend(func(i btree.Item) bool {
			ri := i.(rangeItem)
			fmt.Fprintf(&b, "%#04x -> %#04x\tcomponent#%d\n", ri.rng.Start, ri.rng.End, ri.id)
			return true
		})
	}
	return b.String()
}
