package codegen

import (
	"fmt"
	"strings"

	"github.com/vortex-obf/vortexc/internal/ir"
)

// emitAssignGlobal writes either a global write or a global read, per
// spec.md §4.2's GlobalName-keyed addressing: irgen never threads the
// resolved slot index into a read's operand, only into a write's To, so
// the two shapes are told apart here by comparing s.To against the name's
// allocated slot (the convention settled on while wiring this package:
// mem.Lookup(GlobalName) == s.To means "this is the write that defines
// the slot", not an ordinary read of it).
func (g *Generator) emitAssignGlobal(w *strings.Builder, s *ir.State) error {
	idx, err := g.globalSlotFor(s.GlobalName)
	if err != nil {
		return err
	}
	if isHostGlobalName(s.GlobalName) {
		if idx == s.To {
			fmt.Fprintf(w, "%s = %s;\n", g.slot(idx), g.slot(s.From))
		} else {
			fmt.Fprintf(w, "%s = %s;\n", g.slot(s.To), g.slot(idx))
		}
		return nil
	}
	// Synthetic "#field" keys are WeakMap-backed (emitGlobalPreloaders seeds
	// the map); both directions go through WeakMap.get/set on s.Object.
	if idx == s.To {
		fmt.Fprintf(w, "%s.set(%s, %s);\n", g.slot(idx), g.slot(s.Object), g.slot(s.From))
	} else {
		fmt.Fprintf(w, "%s = %s.get(%s);\n", g.slot(s.To), g.slot(idx), g.slot(s.Object))
	}
	return nil
}

// emitMemberAccessGlobal reads a global slot. A real host identifier (such
// as the "Object" genForIn loads) is copied into s.To as is; a synthetic
// "#field" key reads the private field (spec.md §4.3.4) through the WeakMap
// seeded for it by emitGlobalPreloaders.
func (g *Generator) emitMemberAccessGlobal(w *strings.Builder, s *ir.State) error {
	idx, err := g.globalSlotFor(s.GlobalName)
	if err != nil {
		return err
	}
	if isHostGlobalName(s.GlobalName) {
		fmt.Fprintf(w, "%s = %s;\n", g.slot(s.To), g.slot(idx))
		return nil
	}
	fmt.Fprintf(w, "%s = %s.get(%s);\n", g.slot(s.To), g.slot(idx), g.slot(s.Object))
	return nil
}
