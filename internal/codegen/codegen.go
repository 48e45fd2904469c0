// Package codegen implements the Dispatcher / Code Generator (spec.md
// §4.5, §5, §6): it consumes an optimized *ir.Module and emits a single
// JavaScript-shaped program text containing the decoder (if concealment is
// on), the string pool, the global memory array, the VM function V, one
// host-language wrapper per virtualized function, and an entry call.
//
// Grounded on the teacher compiler's own textual backend style
// (std/compiler/backend_ir.go: a strings.Builder walked once per construct,
// fmt.Fprintf for formatted lines, sorted iteration for determinism) scaled
// from an assembly-text emitter to a JS-text emitter, since this pipeline's
// target is source code rather than a native object file.
package codegen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vortex-obf/vortexc/internal/config"
	"github.com/vortex-obf/vortexc/internal/ir"
	"github.com/vortex-obf/vortexc/internal/logx"
	"github.com/vortex-obf/vortexc/internal/memory"
	"github.com/vortex-obf/vortexc/internal/rng"
	"github.com/vortex-obf/vortexc/internal/strpool"
	"github.com/vortex-obf/vortexc/internal/vortexerr"
)

// stackRegion is the fixed slack appended to the global memory array for
// the VM's own operand/call stack bookkeeping (spec.md §6 "Output":
// "GM of fixed length equal to usedSlots + 600").
const stackRegion = 600

// Generator holds everything one call to Generate needs threaded through
// its helper methods: the optimized module, the finalized string pool, the
// memory map, the active configuration, the single seeded RNG, and the
// randomized identifiers chosen for this compilation.
type Generator struct {
	mod  *ir.Module
	pool *strpool.Pool
	mem  *memory.Map
	cfg  config.Config
	src  *rng.Source
	log  *logx.Logger

	names    namer
	ids      *stateIDMap   // populated by emitVMFunction; wrappers/entry call reuse it
	wrappers *wrapperTable // lazily built by wrapperForEntry

	stateOrder []int // live state ids in ascending order, computed once
}

// namer collects every randomly-chosen top-level identifier so every
// reference to, say, the VM function name is guaranteed consistent across
// the whole emitted program.
type namer struct {
	vmFunc    string
	decoder   string
	stringsID string
	globalMem string
	frameVar  string
	vmStack   string
	entryFn   string
}

// New builds a Generator. log may be nil (falls back to logx.Default).
func New(mod *ir.Module, pool *strpool.Pool, mem *memory.Map, cfg config.Config, src *rng.Source, log *logx.Logger) *Generator {
	if log == nil {
		log = logx.Default
	}
	return &Generator{mod: mod, pool: pool, mem: mem, cfg: cfg, src: src, log: log}
}

// Generate runs the full code generation pipeline and returns the emitted
// program text (spec.md §4.5 "Program assembly").
func (g *Generator) Generate() (string, error) {
	g.names = namer{
		vmFunc:    "V",
		decoder:   randIdent(g.src, "_dec"),
		stringsID: randIdent(g.src, "_sp"),
		globalMem: randIdent(g.src, "_GM"),
		frameVar:  randIdent(g.src, "_M"),
		vmStack:   randIdent(g.src, "_VS"),
		entryFn:   randIdent(g.src, "_entry"),
	}

	if err := g.collectGlobalSlots(); err != nil {
		return "", err
	}
	g.computeStateOrder()

	var w strings.Builder

	w.WriteString("// generated by vortexc; do not edit by hand\n")
	w.WriteString("'use strict';\n\n")

	if !g.cfg.NoEncryption {
		g.emitDecoder(&w)
		w.WriteString("\n")
	}

	g.emitStringPool(&w)
	w.WriteString("\n")

	g.emitGlobalMemory(&w)
	w.WriteString("\n")

	g.emitVMStack(&w)
	w.WriteString("\n")

	g.emitGlobalPreloaders(&w)
	w.WriteString("\n")

	if err := g.emitVMFunction(&w); err != nil {
		return "", err
	}
	w.WriteString("\n")

	if err := g.emitWrappers(&w); err != nil {
		return "", err
	}
	w.WriteString("\n")

	g.emitEntryCall(&w)

	g.log.Info("codegen: program assembled",
		"dispatcher", string(g.cfg.Dispatcher),
		"states", fmt.Sprintf("%d", len(g.stateOrder)),
		"strings", fmt.Sprintf("%d", g.pool.Len()))

	return w.String(), nil
}

// computeStateOrder records every live state id, ascending, once, so every
// dispatcher shape and the wrapper emitter iterate states in the same
// stable base order before any shape-specific shuffling.
func (g *Generator) computeStateOrder() {
	g.stateOrder = g.stateOrder[:0]
	g.mod.Walk(func(s *ir.State) {
		g.stateOrder = append(g.stateOrder, s.ID)
	})
	sort.Ints(g.stateOrder)
}

// collectGlobalSlots ensures every name referenced by an ASSIGN_GLOBAL or
// MEMBER_ACCESS_GLOBAL state has a memory slot, since irgen only guarantees
// this for names it resolved through Generator.resolve — synthetic private
// field map keys (classes.go's "#field" GlobalName values) are never run
// through memory.Map.Allocate at IR-generation time, so codegen completes
// the global namespace here before sizing GM.
func (g *Generator) collectGlobalSlots() error {
	var bad error
	g.mod.Walk(func(s *ir.State) {
		if bad != nil {
			return
		}
		switch s.Op {
		case ir.ASSIGN_GLOBAL, ir.MEMBER_ACCESS_GLOBAL:
			if s.GlobalName == "" {
				bad = vortexerr.New(vortexerr.UnallocatedVariable, "state %d: empty global name", s.ID)
				return
			}
			g.mem.Allocate(s.GlobalName, true)
		}
	})
	return bad
}

// globalSlotFor resolves name to its GM index, recorded by
// collectGlobalSlots; returns UnallocatedVariable if somehow absent.
func (g *Generator) globalSlotFor(name string) (int, error) {
	idx, ok := g.mem.Lookup(name)
	if !ok {
		return 0, vortexerr.New(vortexerr.UnallocatedVariable, "unallocated global %q", name)
	}
	return idx, nil
}

// isHostGlobalName reports whether name denotes a genuine host-environment
// binding (console, Object, Math, ...) as opposed to a synthetic
// compiler-internal key (private-field weak-map slots, named "#field").
func isHostGlobalName(name string) bool {
	return !strings.HasPrefix(name, "#")
}
