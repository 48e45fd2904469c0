// Package optimize implements the IR Optimizer (spec.md §4.4): a
// transactional, iterative fixed-point pipeline of independent passes over
// an *ir.Module, each wrapped in a snapshot/rollback transaction guarded by
// a graph-integrity check. Grounded on the teacher compiler's own
// multi-pass peephole optimizer (std/compiler/dce.go's iterative
// dead-code-elimination loop over IRFunc.Code, repeated to a fixed point),
// generalized from a single DCE pass to the full catalog spec.md §4.4
// names and from "repeat until no change" to "repeat until no change or a
// hard iteration cap, with per-pass rollback on integrity violation."
package optimize

import (
	"strconv"

	"github.com/vortex-obf/vortexc/internal/ir"
	"github.com/vortex-obf/vortexc/internal/logx"
	"github.com/vortex-obf/vortexc/internal/vortexerr"
)

// maxIterations is the fixed-point hard cap (spec.md §4.4).
const maxIterations = 25

// Pass is one named transformation. It mutates mod in place and returns the
// number of transformations it made; 0 means no change.
type Pass struct {
	Name string
	Run  func(mod *ir.Module) int
}

// Catalog is the pass list in the relative order spec.md §4.4 specifies,
// run once per fixed-point iteration.
var Catalog = []Pass{
	{"constant-folding", ConstantFolding},
	{"boolean-logic", BooleanLogic},
	{"strength-reduction", StrengthReduction},
	{"local-cse", LocalCSE},
	{"expression-reassociation", ExpressionReassociation},
	{"global-dead-store-elimination", GlobalDeadStoreElimination},
	{"branch-pruning", BranchPruning},
	{"jump-threading", JumpThreading},
	{"tco", TailCallOptimization},
	{"block-merging", BlockMerging},
	{"copy-propagation", CopyPropagation},
	{"goto-noop-elision", GotoNoopElision},
	{"identity-removal", IdentityRemoval},
}

// Pipeline runs Catalog to a fixed point over one Module, logging pass
// counts and rollbacks at Debug level.
type Pipeline struct {
	mod        *ir.Module
	log        *logx.Logger
	Rollbacks  int
	Iterations int
}

// New builds a Pipeline bound to mod, logging through log (nil falls back
// to logx.Default).
func New(mod *ir.Module, log *logx.Logger) *Pipeline {
	if log == nil {
		log = logx.Default
	}
	return &Pipeline{mod: mod, log: log}
}

// Run executes the fixed-point loop, returning an error only if the final
// state of the module fails the integrity check even after every pass that
// broke it has been rolled back (which should not happen if every pass is
// correctly implemented, but is checked defensively per spec.md §7
// IntegrityFailure).
func (p *Pipeline) Run() error {
	for iter := 0; iter < maxIterations; iter++ {
		p.Iterations++
		total := 0
		for _, pass := range Catalog {
			total += p.runTransacted(pass)
		}
		sweep(p.mod)
		p.log.Debug("optimize: iteration complete", "iter", strconv.Itoa(iter), "changes", strconv.Itoa(total))
		if total == 0 {
			break
		}
	}
	if err := checkIntegrity(p.mod); err != nil {
		return vortexerr.Wrap(vortexerr.IntegrityFailure, err, "module failed integrity check after optimization")
	}
	return nil
}

// runTransacted snapshots the module, runs one pass, checks integrity, and
// restores the snapshot on failure (spec.md §4.4 "Each pass is invoked
// inside a transaction").
func (p *Pipeline) runTransacted(pass Pass) int {
	snap := snapshot(p.mod)
	n := pass.Run(p.mod)
	if n == 0 {
		return 0
	}
	if err := checkIntegrity(p.mod); err != nil {
		restore(p.mod, snap)
		p.Rollbacks++
		p.log.Debug("optimize: pass rolled back", "pass", pass.Name, "reason", err.Error())
		return 0
	}
	p.log.Debug("optimize: pass applied", "pass", pass.Name, "changes", strconv.Itoa(n))
	return n
}

// snapshot deep-clones every state in mod so runTransacted can restore it
// verbatim on rollback (spec.md §4.4 "the entire state vector is
// snapshotted (deep clone)").
func snapshot(mod *ir.Module) []*ir.State {
	out := make([]*ir.State, len(mod.States))
	for i, s := range mod.States {
		clone := *s
		clone.Args = append([]int(nil), s.Args...)
		clone.Elements = append([]int(nil), s.Elements...)
		clone.Properties = append([]ir.Property(nil), s.Properties...)
		clone.Params = append([]int(nil), s.Params...)
		clone.TempVars = append([]int(nil), s.TempVars...)
		if s.Seq != nil {
			clone.Seq = make([]*ir.State, len(s.Seq))
			for j, inner := range s.Seq {
				c := *inner
				clone.Seq[j] = &c
			}
		}
		if s.Next != nil {
			n := *s.Next
			clone.Next = &n
		}
		out[i] = &clone
	}
	return out
}

// restore replaces mod's state vector with a previously captured snapshot.
func restore(mod *ir.Module, snap []*ir.State) {
	mod.States = snap
}

// checkIntegrity validates spec.md §4.4's invariant: every live state's
// outgoing references resolve to an existing, non-DEAD state, and every
// FUNC_ENTRY/ClassTable/EntryID root remains live.
func checkIntegrity(mod *ir.Module) error {
	for _, id := range mod.Roots() {
		if !mod.Live(id) {
			return &integrityError{id: id, reason: "root is not live"}
		}
	}
	var bad error
	mod.Walk(func(s *ir.State) {
		if bad != nil {
			return
		}
		s.References(func(ref int) {
			if bad != nil {
				return
			}
			if ref < 0 || ref >= len(mod.States) || mod.States[ref].Op == ir.DEAD {
				bad = &integrityError{id: ref, reason: "dangling or dead reference"}
			}
		})
	})
	return bad
}

type integrityError struct {
	id     int
	reason string
}

func (e *integrityError) Error() string {
	return e.reason
}

// sweep performs mark-and-sweep reachability from the roots, tombstoning
// every state no live state can reach (spec.md §4.4 "mark-and-sweep from
// id 0 and every FUNC_ENTRY removes unreachable states").
func sweep(mod *ir.Module) {
	live := make([]bool, len(mod.States))
	var stack []int
	for _, r := range mod.Roots() {
		if r >= 0 && r < len(live) && !live[r] {
			live[r] = true
			stack = append(stack, r)
		}
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		s := mod.States[id]
		if s.Op == ir.DEAD {
			continue
		}
		s.References(func(ref int) {
			if ref >= 0 && ref < len(live) && !live[ref] {
				live[ref] = true
				stack = append(stack, ref)
			}
		})
	}
	for i, s := range mod.States {
		if !live[i] && s.Op != ir.DEAD {
			mod.Kill(i)
		}
	}
}

// remap rewrites every outgoing reference across the whole module through
// table, used after a pass collects id substitutions (jump threading,
// copy propagation, GOTO/NOOP elision all produce one). table[old] == new;
// ids absent from table are left unchanged.
func remap(mod *ir.Module, table map[int]int) {
	apply := func(id *int) {
		if repl, ok := table[*id]; ok {
			*id = repl
		}
	}
	for _, s := range mod.States {
		if s.Op == ir.DEAD {
			continue
		}
		if s.Next != nil {
			apply(s.Next)
		}
		switch s.Op {
		case ir.COND_JUMP:
			apply(&s.TrueState)
			apply(&s.FalseState)
		case ir.GOTO, ir.PUSH_CATCH_HANDLER, ir.NEW_INSTANCE, ir.FINALLY_DISPATCH:
			apply(&s.Target)
		}
	}
	for name, id := range mod.FuncTable {
		if repl, ok := table[id]; ok {
			mod.FuncTable[name] = repl
		}
	}
	for name, id := range mod.ClassTable {
		if repl, ok := table[id]; ok {
			mod.ClassTable[name] = repl
		}
	}
}
