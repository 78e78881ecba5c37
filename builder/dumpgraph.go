package builder

import (
	"io"

	"github.com/bradleyjkemp/memviz"

	"github.com/kay-lambdadelta/multiemu-sub000/address"
	"github.com/kay-lambdadelta/multiemu-sub000/component"
	"github.com/kay-lambdadelta/multiemu-sub000/registry"
)

// graphNode is the plain-data shape memviz.Map walks to render the
// build-time topology: every registered component path alongside the
// display/audio/gamepad resource endpoints declared against it. memviz
// renders arbitrary Go values' pointer graphs; a flat struct of slices
// gives a readable graph without exposing the registry's internal
// mutexes and btree state to the dot output.
type graphNode struct {
	Components   []string
	Displays     []string
	AudioOutputs []string
	Gamepads     []string
}

// dumpGraph renders b's current topology to w as Graphviz dot, for
// build-time diagnostics (spec.md section 4.4, "DumpGraph"). It may be
// called at any point during assembly; it never mutates the builder.
func dumpGraph(b *Builder, w io.Writer) error {
	node := &graphNode{}

	b.reg.Each(func(_ component.Id, path address.ComponentPath, _ registry.Affinity) {
		node.Components = append(node.Components, path.String())
	})

	for _, rp := range b.displays {
		node.Displays = append(node.Displays, rp.String())
	}
	for _, rp := range b.audioOutputs {
		node.AudioOutputs = append(node.AudioOutputs, rp.String())
	}
	for rp := range b.gamepads {
		node.Gamepads = append(node.Gamepads, rp.String())
	}

	memviz.Map(w, node)
	return nil
}
