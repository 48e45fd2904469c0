package codegen

import (
	"fmt"

	"github.com/vortex-obf/vortexc/internal/config"
	"github.com/vortex-obf/vortexc/internal/memory"
)

// opaquePredicate renders a side-effect-free JS expression that always
// evaluates to true, drawn at random from the predicate kinds
// Config.OpaqueLevel enables (spec.md §6 "opaque predicates: always-true
// expressions guarding a ghost branch"). The kinds are cumulative: low uses
// only an integer congruence; medium adds an array-membership check; high
// adds an LCG-style term over counterVar (the dispatcher's live state
// register), so that kind reads VM execution state rather than constants.
func (g *Generator) opaquePredicate(counterVar string) string {
	kinds := 1
	switch g.cfg.OpaqueLevel {
	case config.OpaqueMedium:
		kinds = 2
	case config.OpaqueHigh:
		kinds = 3
	}
	n := int64(g.src.Intn(251) + 2)
	switch g.src.Intn(kinds) {
	case 1:
		return fmt.Sprintf("(([%d,%d,%d].indexOf(%d %% 3) !== -1))", 0, 1, 2, n)
	case 2:
		a := int64(g.src.Intn(97) + 1)
		return fmt.Sprintf("((((%s * %d + %d) %% 2147483647) >= 0))", counterVar, a, n)
	default:
		return fmt.Sprintf("((%d * %d) %% %d === 0)", n, n, n)
	}
}

// ghostCaseID returns a dispatcher id that is never a real mapped state, so
// an injected opaque-predicate false branch has somewhere harmless to jump
// (spec.md §6 "ghost branches" / "honeypot" cases the real control flow
// never visits but that read as plausible states to a disassembler).
func (g *Generator) ghostCaseID(ids *stateIDMap) int {
	for {
		v := int(g.src.Next() % 0x7fffffff)
		if v == 0 {
			continue
		}
		taken := false
		for _, id := range g.stateOrder {
			if ids.of(id) == v {
				taken = true
				break
			}
		}
		if !taken {
			return v
		}
	}
}

// wrapWithOpaquePredicate wraps a genuine state transfer (the dispatcher
// passes a GOTO's `S = <id>;` assignment) behind an always-true opaque
// guard, so the real transfer is reachable only through a condition that
// looks data dependent. realExpr must be a complete JS statement; it is
// placed verbatim inside the guard's if block.
func (g *Generator) wrapWithOpaquePredicate(realExpr string, ghostTarget int, counterVar string) string {
	pred := g.opaquePredicate(counterVar)
	return fmt.Sprintf("if (%s) { %s } else { S = %d; }\n", pred, realExpr, ghostTarget)
}

// ghostSaltedID returns a value guaranteed not to collide with any leaf's
// salted dispatcher key currently in scope, for the chaos dispatch tree's
// ghost branches — the same purpose ghostCaseID serves in the plain id
// space, scoped to the (already salted) key space chaos compares CS
// against.
func (g *Generator) ghostSaltedID(leaves []dispatchLeaf) int {
	for {
		v := int(g.src.Next() % 0x7fffffff)
		taken := false
		for _, lf := range leaves {
			if lf.key == v {
				taken = true
				break
			}
		}
		if !taken {
			return v
		}
	}
}

// honeypot renders an inert side effect followed by an infinite loop, meant
// to sit behind a ghost branch's impossible condition so a static reader
// sees a plausible-looking body that real execution never reaches (spec.md
// §4.5 "chaos": "opaque-predicate fake branches containing honeypots").
func (g *Generator) honeypot() string {
	return fmt.Sprintf("%s++; while (true) {}", g.slot(memory.Slot(memory.SP)))
}

// maybeOpaque reports whether this call site should inject an opaque
// predicate right now, gated by Config.OpaquePredicates and OpaqueProb
// (spec.md §6 "opaqueProb: fraction of eligible sites instrumented").
func (g *Generator) maybeOpaque() bool {
	return g.cfg.OpaquePredicates && g.src.Bool(g.cfg.OpaqueProb)
}
