package codegen

import (
	"fmt"
	"strings"

	"github.com/vortex-obf/vortexc/internal/ir"
	"github.com/vortex-obf/vortexc/internal/memory"
	"github.com/vortex-obf/vortexc/internal/vortexerr"
)

// emitCreateArray writes an array literal, spreading SpreadVar (if >= 0) as
// the trailing element (spec.md §4.1 spread-in-array lowering).
func (g *Generator) emitCreateArray(w *strings.Builder, s *ir.State) error {
	parts := make([]string, len(s.Elements))
	for i, e := range s.Elements {
		parts[i] = g.slot(e)
	}
	if s.SpreadVar >= 0 {
		parts = append(parts, "..."+g.slot(s.SpreadVar))
	}
	fmt.Fprintf(w, "%s = [%s];\n", g.slot(s.To), strings.Join(parts, ", "))
	return nil
}

// emitCreateObject writes an object literal, one property assignment at a
// time so computed keys and trailing spreads read left to right the way the
// source order required (spec.md §4.1 object-literal lowering).
func (g *Generator) emitCreateObject(w *strings.Builder, s *ir.State) error {
	fmt.Fprintf(w, "%s = {};\n", g.slot(s.To))
	for _, p := range s.Properties {
		if p.Spread {
			fmt.Fprintf(w, "Object.assign(%s, %s);\n", g.slot(s.To), g.slot(p.ValueVar))
			continue
		}
		if p.Computed {
			fmt.Fprintf(w, "%s[%s] = %s;\n", g.slot(s.To), g.slot(p.KeyVar), g.slot(p.ValueVar))
			continue
		}
		key, err := g.quotedStringFor(p.KeyName)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s[%s] = %s;\n", g.slot(s.To), key, g.slot(p.ValueVar))
	}
	return nil
}

// emitNewInstance constructs a virtualized class instance by calling its
// constructor FUNC_ENTRY wrapper with `new` (spec.md §4.3.3: every
// virtualized class lowers to a plain function wrapper carrying a
// `.prototype`, so `new` on that wrapper is exactly host `new`).
func (g *Generator) emitNewInstance(w *strings.Builder, s *ir.State, ids *stateIDMap) error {
	fmt.Fprintf(w, "%s = new %s(%s);\n", g.slot(s.Instance), g.wrapperForEntry(s.Target), argList(g, s.Args))
	return nil
}

// emitCall dispatches a CALL to either a known virtualized function (by
// name, through its wrapper) or a computed callee slot, storing the result
// at the VM's _RET register for the following POST_CALL/RETRIEVE_RESULT
// pair to pick up (spec.md §4.3.2 call protocol).
func (g *Generator) emitCall(w *strings.Builder, s *ir.State) error {
	var callee string
	if s.Callee != "" {
		entryID, ok := g.mod.FuncTable[s.Callee]
		if !ok {
			entryID, ok = g.mod.ClassTable[s.Callee]
		}
		if !ok {
			return vortexerr.New(vortexerr.UnknownFunction, "call to unknown function %q", s.Callee)
		}
		callee = g.wrapperForEntry(entryID)
	} else {
		callee = g.slot(s.CalleeVar)
	}
	fmt.Fprintf(w, "%s = (%s)(%s);\n", g.slot(memory.Slot(memory.RET)), callee, argList(g, s.Args))
	return nil
}
