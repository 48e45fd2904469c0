package codegen

import (
	"fmt"
	"strings"

	"github.com/vortex-obf/vortexc/internal/memory"
)

// wrapperTable lazily maps a FUNC_ENTRY state id to its randomized
// host-callable identifier, built on first use so both emitWrappers and
// every CALL/NEW_INSTANCE site agree on the name without threading a
// pre-built table through every caller.
type wrapperTable struct {
	byEntry map[int]string
}

func (g *Generator) wrapperForEntry(entryID int) string {
	if g.wrappers == nil {
		g.wrappers = &wrapperTable{byEntry: map[int]string{}}
	}
	if name, ok := g.wrappers.byEntry[entryID]; ok {
		return name
	}
	name := randIdent(g.src, "_fn")
	g.wrappers.byEntry[entryID] = name
	return name
}

// emitWrappers writes one host-callable function per FUNC_ENTRY (standard
// function, generator, or async) that drives the stackless VM to
// completion, per spec.md §4.5 "Function wrappers": "a virtualized function
// becomes a plain host function whose body owns a per-invocation frame
// array and repeatedly calls V until it returns a terminal disposition."
func (g *Generator) emitWrappers(w *strings.Builder) error {
	names := make([]string, 0, len(g.mod.FuncTable)+len(g.mod.ClassTable))
	entries := make(map[string]int, cap(names))
	for name, id := range g.mod.FuncTable {
		names = append(names, name)
		entries[name] = id
	}
	for name, id := range g.mod.ClassTable {
		names = append(names, name)
		entries[name] = id
	}
	sortedNames(names)

	for _, name := range names {
		entryID := entries[name]
		if err := g.emitOneWrapper(w, name, entryID); err != nil {
			return err
		}
		w.WriteString("\n")
	}
	return nil
}

func (g *Generator) emitOneWrapper(w *strings.Builder, name string, entryID int) error {
	entry := g.mod.Get(entryID)
	fnName := g.wrapperForEntry(entryID)

	kw := "function"
	if entry.IsGenerator {
		kw = "function*"
	}
	async := ""
	if entry.IsAsync {
		async = "async "
	}

	fmt.Fprintf(w, "%s%s %s(...__args) {\n", async, kw, fnName)
	fmt.Fprintf(w, "  const %s = new Array(%d);\n", g.names.frameVar, g.mem.Len())
	for i, p := range entry.Params {
		fmt.Fprintf(w, "  %s[%d] = __args[%d];\n", g.names.frameVar, p, i)
	}
	fmt.Fprintf(w, "  %s[%d] = this;\n", g.names.frameVar, memory.Slot(memory.THIS))
	fmt.Fprintf(w, "  %s[%d] = new.target;\n", g.names.frameVar, memory.Slot(memory.NEWTARGET))
	fmt.Fprintf(w, "  %s[%d] = -1;\n", g.names.frameVar, memory.Slot(memory.EHP))

	fmt.Fprintf(w, "  let S = %d;\n", g.ids.of(entryID))
	w.WriteString("  while (true) {\n")
	if entry.IsGenerator {
		fmt.Fprintf(w, "    const r = %s(%s, S);\n", g.names.vmFunc, g.names.frameVar)
		w.WriteString("    if (r._ === 1) return r.v;\n")
		w.WriteString("    const sent = r._ === 2 ? (yield* r.v) : (yield r.v);\n")
		fmt.Fprintf(w, "    %s[r.slot] = sent;\n", g.names.frameVar)
		w.WriteString("    S = r.next;\n")
	} else if entry.IsAsync {
		fmt.Fprintf(w, "    const r = %s(%s, S);\n", g.names.vmFunc, g.names.frameVar)
		w.WriteString("    if (r._ === 1) return r.v;\n")
		w.WriteString("    const v = r.await ? await r.v : r.v;\n")
		fmt.Fprintf(w, "    %s[r.slot] = v;\n", g.names.frameVar)
		w.WriteString("    S = r.next;\n")
	} else {
		fmt.Fprintf(w, "    const r = %s(%s, S);\n", g.names.vmFunc, g.names.frameVar)
		w.WriteString("    return r.v;\n")
	}
	w.WriteString("  }\n")
	w.WriteString("}\n")
	return nil
}

// emitEntryCall drives the top-level module body to completion. EntryID
// (spec.md §3 "exactly one state with id 0, the program entry") is a bare
// NOOP, not a FUNC_ENTRY — the module body never goes through the call
// protocol, so it gets its own minimal frame and drive loop rather than
// reusing emitOneWrapper's FUNC_ENTRY-shaped setup.
func (g *Generator) emitEntryCall(w *strings.Builder) {
	fmt.Fprintf(w, "(function () {\n")
	fmt.Fprintf(w, "  const %s = new Array(%d);\n", g.names.frameVar, g.mem.Len())
	fmt.Fprintf(w, "  %s[%d] = -1;\n", g.names.frameVar, memory.Slot(memory.EHP))
	fmt.Fprintf(w, "  const r = %s(%s, %d);\n", g.names.vmFunc, g.names.frameVar, g.ids.of(g.mod.EntryID))
	w.WriteString("  return r.v;\n")
	w.WriteString("})();\n")
}

func sortedNames(names []string) {
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && names[j-1] > names[j]; j-- {
			names[j-1], names[j] = names[j], names[j-1]
		}
	}
}
