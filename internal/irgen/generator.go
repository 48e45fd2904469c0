// Package irgen is the IR Generator (spec.md §4.3): it lowers the external
// AST into the flat CFG of internal/ir States. Grounded on the teacher
// compiler's own statement/expression lowering shape
// (std/compiler/ir.go's Compiler, which carries scopes []map[string]int,
// labelSeq, and breaks/continues stacks through a single recursive-descent
// pass) generalized to the spec's richer control stack (try/loop/switch
// entries instead of flat break/continue slices) and two-pass function
// discovery.
package irgen

import (
	"github.com/vortex-obf/vortexc/internal/ast"
	"github.com/vortex-obf/vortexc/internal/ir"
	"github.com/vortex-obf/vortexc/internal/memory"
	"github.com/vortex-obf/vortexc/internal/strpool"
	"github.com/vortex-obf/vortexc/internal/vortexerr"
)

// ctrlKind discriminates one entry of the compile-time control stack
// (spec.md §9 "Control stack").
type ctrlKind int

const (
	ctrlTry ctrlKind = iota
	ctrlLoop
	ctrlSwitch
)

// ctrlEntry is one frame of the control stack the generator threads through
// statement lowering instead of relying on host-language recursive
// exception propagation (spec.md §9).
type ctrlEntry struct {
	kind ctrlKind

	// ctrlTry
	finallyStart int // state id of the finally block's start, -1 if none
	hasCatch     bool

	// ctrlLoop / ctrlSwitch
	breakTarget    int // -1 until known (patched once the end NOOP exists)
	continueTarget int // ctrlLoop only
	label          string
}

// scope is one lexical level of name -> memory slot bindings.
type scope struct {
	names map[string]int
}

// funcCtx tracks per-function state needed by closure capture and the TCO
// pass: the set of names bound in this function (params+locals, not
// captured from an enclosing scope) and the enclosing-scope lookup chain.
type funcCtx struct {
	name       string
	isGenerator bool
	isAsync     bool
	ownNames    map[string]bool // names this function itself binds
	captured    []string        // free variables promoted to extra params, in discovery order
	capturedSet map[string]bool
}

// Generator lowers one Program into an ir.Module. TransformToStates is
// deterministic given the same AST, memory map, and string pool (spec.md
// §4.3 "deterministic given input AST").
type Generator struct {
	mod    *ir.Module
	mem    *memory.Map
	pool   *strpool.Pool
	scopes []scope
	ctrl   []ctrlEntry
	funcs  []*funcCtx // stack of enclosing function contexts, outermost first
	tempSeq int
	closureSeq int

	// captures maps every function name (declared or synthesized for a
	// function expression/IIFE) to its free-variable list, computed ahead
	// of IR lowering by freeVarsOf (captures.go) so call sites can append
	// the matching extra arguments regardless of lowering order.
	captures map[string][]string

	partialMode  bool   // spec.md §6 "partialMode (implicit via 'use vortex' directive)"
	pendingLabel string // set by genLabeled, consumed by the next loop/switch push

	// curSuperClass holds the name of the class currently being lowered's
	// superclass, if any, so super.prop/super.method()/super(...) inside a
	// method body can resolve it without threading it through every
	// expression-lowering call (classes.go).
	curSuperClass string

	errs []error
}

// New builds a Generator. mem and pool are assumed already populated by an
// earlier allocator/collector pass over the same Program where required
// (the allocator only needs pre-seeding for reserved slots, which
// memory.New already does).
func New(mem *memory.Map, pool *strpool.Pool) *Generator {
	return &Generator{mod: ir.NewModule(mem), mem: mem, pool: pool, captures: make(map[string][]string)}
}

// synthName allocates a unique compiler-generated name for an anonymous
// function expression or IIFE (spec.md §4.3 "IIFE: extracted into a
// synthesized function").
func (g *Generator) synthName(prefix string) string {
	g.closureSeq++
	return prefix + "$" + itoa(g.closureSeq)
}

// Errors returns every fatal error accumulated during generation, mirroring
// the teacher's Compiler.errors []string accumulation
// (std/compiler/ir.go), generalized to typed *vortexerr.CompileError values.
func (g *Generator) Errors() []error { return g.errs }

func (g *Generator) fail(err error) {
	g.errs = append(g.errs, err)
}

func (g *Generator) pushScope() {
	g.scopes = append(g.scopes, scope{names: make(map[string]int)})
}

func (g *Generator) popScope() {
	g.scopes = g.scopes[:len(g.scopes)-1]
}

func (g *Generator) bind(name string, isGlobal bool) int {
	idx := g.mem.Allocate(name, isGlobal)
	if len(g.scopes) > 0 {
		g.scopes[len(g.scopes)-1].names[name] = idx
	}
	if fc := g.curFunc(); fc != nil {
		fc.ownNames[name] = true
	}
	return idx
}

// resolve looks up name through the lexical scope stack, then the current
// function's own bindings, then falls back to a global slot. It also
// records a closure capture on curFunc when the name resolves to a binding
// owned by an enclosing function (spec.md §4.3.2).
func (g *Generator) resolve(name string) (idx int, isGlobal bool, capture bool) {
	for i := len(g.scopes) - 1; i >= 0; i-- {
		if idx, ok := g.scopes[i].names[name]; ok {
			if !g.mem.IsGlobal(idx) && g.curFunc() != nil && !g.curFunc().ownNames[name] {
				g.recordCapture(name)
				capture = true
			}
			return idx, g.mem.IsGlobal(idx), capture
		}
	}
	// Unbound: ASSIGN_GLOBAL semantics (spec.md §4.3 "Identifiers").
	idx = g.mem.Allocate(name, true)
	return idx, true, false
}

func (g *Generator) curFunc() *funcCtx {
	if len(g.funcs) == 0 {
		return nil
	}
	return g.funcs[len(g.funcs)-1]
}

func (g *Generator) recordCapture(name string) {
	fc := g.curFunc()
	if fc == nil || fc.capturedSet[name] {
		return
	}
	fc.capturedSet[name] = true
	fc.captured = append(fc.captured, name)
}

// freshTemp allocates a new `_temp$N` memory slot, per spec.md §4.3.4: the
// generator never reuses a temp across expressions.
func (g *Generator) freshTemp() int {
	g.tempSeq++
	name := tempName(g.tempSeq)
	return g.bind(name, false)
}

func tempName(n int) string {
	// "_temp$N" literally, matching the regex `_temp\$\d+` later passes
	// key off (spec.md §4.3.4, §4.4 optimizer passes on embedded ASTs).
	return "_temp$" + itoa(n)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	neg := n < 0
	if neg {
		n = -n
	}
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// edge is the {start,end} pair statement lowerings return (spec.md §4.3).
type edge struct {
	start, end int
}

// exprResult is the {start,end,resultVar} triple expression lowerings
// return (spec.md §4.3 "Expression handlers").
type exprResult struct {
	start, end, resultVar int
}

// link sets the fallthrough Next of state `from` to `to`, only if `from`'s
// op is not terminal (spec.md §3).
func (g *Generator) link(from, to int) {
	s := g.mod.Get(from)
	if s.Op.Terminal() {
		return
	}
	s.Next = &to
}

func intPtr(v int) *int { return &v }

// TransformToStates lowers prog into g.mod, implementing the two-pass
// traversal of spec.md §4.3: pass 1 allocates a FUNC_ENTRY for every
// function declaration; pass 2 processes bodies and the top-level program.
func (g *Generator) TransformToStates(prog *ast.Node) (*ir.Module, error) {
	g.partialMode = programUsesPartialMode(prog)

	g.pushScope()
	defer g.popScope()

	// Program entry is always state 0 (spec.md §3); it is allocated before
	// pass 1 so no FUNC_ENTRY takes that id.
	entry := g.mod.New(ir.NOOP)
	g.mod.EntryID = entry.ID

	// Pass 1: allocate FUNC_ENTRY for every top-level function declaration
	// so forward calls resolve (spec.md §4.3 "Pass 1 allocates a
	// FUNC_ENTRY for every function declaration").
	g.declareFuncEntries(prog.Body2)

	last := entry.ID
	for _, stmt := range prog.Body2 {
		if isFuncDecl(stmt) {
			// Pass 2 for declarations: process the body now that every
			// entry id is known; the declaration itself contributes no
			// states to the linear program edge: genFuncDecl only lowers
			// the body under the FUNC_ENTRY allocated in pass 1.
			g.genFuncDecl(stmt)
			continue
		}
		if g.partialMode && !containsVortexDirective(stmt) {
			// Spec.md §8 property 5 "partial mode isolation": outside any
			// directive-bearing scope, statements are preserved rather than
			// virtualized. We still need *a* state to keep the HALT-ended
			// chain so codegen can't observe a gap, so we wrap the
			// preserved statement as a single EXECUTE_STATEMENT node.
			st := g.mod.New(ir.EXECUTE_STATEMENT)
			st.Statement = &ir.Fragment{Kind: ir.FragBlockStmt, Node: stmt}
			g.link(last, st.ID)
			last = st.ID
			continue
		}
		e := g.genStmt(stmt)
		g.link(last, e.start)
		last = e.end
	}
	halt := g.mod.New(ir.HALT)
	g.link(last, halt.ID)

	if len(g.errs) > 0 {
		return g.mod, g.errs[0]
	}
	return g.mod, nil
}

func programUsesPartialMode(prog *ast.Node) bool {
	if containsVortexDirective(prog) {
		return true
	}
	for _, c := range prog.Body2 {
		if containsVortexDirective(c) {
			return true
		}
	}
	return false
}

func containsVortexDirective(n *ast.Node) bool {
	if n == nil {
		return false
	}
	if n.HasDirective("use vortex") {
		return true
	}
	if n.Body != nil && n.Body.HasDirective("use vortex") {
		return true
	}
	return false
}

func isFuncDecl(n *ast.Node) bool {
	return n != nil && n.Kind == ast.FuncDecl
}

// declareFuncEntries implements spec.md §4.3 "Pass 1": every function
// declaration anywhere in stmts gets a FUNC_ENTRY before any body is
// processed, so mutually-recursive and forward calls resolve regardless of
// declaration order.
func (g *Generator) declareFuncEntries(stmts []*ast.Node) {
	for _, stmt := range stmts {
		if !isFuncDecl(stmt) {
			continue
		}
		fe := g.mod.New(ir.FUNC_ENTRY)
		fe.Name = stmt.Name
		fe.IsAsync = stmt.IsAsync
		fe.IsGenerator = stmt.IsGenerator
		g.mod.FuncTable[stmt.Name] = fe.ID
	}
}

// lookupFunc returns the FUNC_ENTRY id for name, or an UnknownFunction error
// when no FUNC_ENTRY was allocated under that name (spec.md §7
// UnknownFunction).
func (g *Generator) lookupFunc(name string) (int, error) {
	id, ok := g.mod.FuncTable[name]
	if !ok {
		return 0, vortexerr.New(vortexerr.UnknownFunction, "call to undeclared function %q", name)
	}
	return id, nil
}
