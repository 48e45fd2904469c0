package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vortex-obf/vortexc/internal/memory"
)

// emitStringPool writes the finalized string pool as a const array literal
// (spec.md §6 "A string pool array (const, randomly-named identifier) of
// base64 payloads"), or of plain quoted strings when NoEncryption is set.
func (g *Generator) emitStringPool(w *strings.Builder) {
	entries := g.pool.Entries()
	fmt.Fprintf(w, "const %s = [\n", g.names.stringsID)
	for _, e := range entries {
		if g.cfg.NoEncryption {
			w.WriteString("  " + strconv.Quote(e.Plain) + ",\n")
		} else {
			w.WriteString("  " + strconv.Quote(e.Payload) + ",\n")
		}
	}
	w.WriteString("];\n")
}

// emitGlobalMemory writes the fixed-length global memory array (spec.md §6
// "A global memory array GM of fixed length equal to usedSlots + 600").
func (g *Generator) emitGlobalMemory(w *strings.Builder) {
	total := g.mem.Len() + stackRegion
	fmt.Fprintf(w, "const %s = new Array(%d);\n", g.names.globalMem, total)
	fmt.Fprintf(w, "for (let i = 0; i < %d; i++) %s[i] = undefined;\n", total, g.names.globalMem)
}

// emitVMStack declares the exception-handler stack PUSH_CATCH_HANDLER/
// POP_CATCH_HANDLER push and pop target ids on (spec.md §4.3.1). It is a
// single array alongside GM rather than a per-frame one: _EHP itself is a
// reserved global slot (memory.New allocates every reserved name as
// global), so the handler stack backing it lives at the same scope.
func (g *Generator) emitVMStack(w *strings.Builder) {
	fmt.Fprintf(w, "const %s = [];\n", g.names.vmStack)
}

// emitGlobalPreloaders assigns host globals into their global slots (spec.md
// §4.5 "Program assembly": "global preloaders (assign host globals into
// global slots)"). Real host identifiers are read by bare name; synthetic
// compiler-internal names (private-field weak-map keys, prefixed "#") are
// seeded with a fresh WeakMap instead.
func (g *Generator) emitGlobalPreloaders(w *strings.Builder) {
	reserved := map[string]bool{}
	for _, n := range memory.ReservedNames {
		reserved[n] = true
	}
	for _, idx := range g.mem.Globals() {
		name := g.mem.Name(idx)
		if reserved[name] {
			continue // VM-internal slots are initialized by frame setup, not preloaded
		}
		if isHostGlobalName(name) {
			fmt.Fprintf(w, "try { %s[%d] = %s; } catch (e) { %s[%d] = undefined; }\n",
				g.names.globalMem, idx, name, g.names.globalMem, idx)
		} else {
			fmt.Fprintf(w, "%s[%d] = new WeakMap();\n", g.names.globalMem, idx)
		}
	}
}
