package irgen

import (
	"testing"

	"github.com/vortex-obf/vortexc/internal/ast"
	"github.com/vortex-obf/vortexc/internal/ir"
	"github.com/vortex-obf/vortexc/internal/memory"
	"github.com/vortex-obf/vortexc/internal/strpool"
)

func newTestGenerator() *Generator {
	return New(memory.New(), strpool.New())
}

func ident(name string) *ast.Node { return &ast.Node{Kind: ast.Ident, Name: name} }

func numberLit(v float64) *ast.Node { return &ast.Node{Kind: ast.NumberLit, Value: v} }

func returnStmt(arg *ast.Node) *ast.Node {
	return &ast.Node{Kind: ast.ReturnStmt, Argument: arg}
}

func blockStmt(stmts ...*ast.Node) *ast.Node {
	return &ast.Node{Kind: ast.BlockStmt, Body2: stmts}
}

func funcDecl(name string, params []*ast.Node, body *ast.Node) *ast.Node {
	return &ast.Node{Kind: ast.FuncDecl, Name: name, Params: params, Body: body}
}

func program(stmts ...*ast.Node) *ast.Node {
	return &ast.Node{Kind: ast.Program, Body2: stmts}
}

func TestTransformToStatesAllocatesFuncEntry(t *testing.T) {
	g := newTestGenerator()
	prog := program(funcDecl("add", []*ast.Node{ident("x"), ident("y")},
		blockStmt(returnStmt(&ast.Node{Kind: ast.BinaryExpr, Op: "+", Left: ident("x"), Right: ident("y")}))))

	mod, err := g.TransformToStates(prog)
	if err != nil {
		t.Fatalf("TransformToStates() error = %v", err)
	}
	if _, ok := mod.FuncTable["add"]; !ok {
		t.Fatalf("expected FuncTable to contain %q, got %v", "add", mod.FuncTable)
	}

	entry := mod.Get(mod.FuncTable["add"])
	if entry.Op != ir.FUNC_ENTRY {
		t.Fatalf("entry state op = %v, want FUNC_ENTRY", entry.Op)
	}

	foundReturn := false
	mod.Walk(func(s *ir.State) {
		if s.Op == ir.RETURN {
			foundReturn = true
		}
	})
	if !foundReturn {
		t.Fatal("expected a RETURN state reachable from the function body")
	}
}

func TestTransformToStatesEntryIsState0Chain(t *testing.T) {
	g := newTestGenerator()
	prog := program()
	mod, err := g.TransformToStates(prog)
	if err != nil {
		t.Fatalf("TransformToStates() error = %v", err)
	}
	entry := mod.Get(mod.EntryID)
	if entry == nil {
		t.Fatal("expected a valid entry state")
	}
	foundHalt := false
	mod.Walk(func(s *ir.State) {
		if s.Op == ir.HALT {
			foundHalt = true
		}
	})
	if !foundHalt {
		t.Fatal("expected an empty program's chain to end in HALT")
	}
}

func TestTransformToStatesForwardCallResolves(t *testing.T) {
	g := newTestGenerator()
	// `first` calls `second`, declared after it: pass 1 must make this resolve.
	callSecond := &ast.Node{Kind: ast.ExprStmt, Object: &ast.Node{
		Kind: ast.CallExpr, Callee: ident("second"), Args: nil,
	}}
	prog := program(
		funcDecl("first", nil, blockStmt(callSecond, returnStmt(nil))),
		funcDecl("second", nil, blockStmt(returnStmt(nil))),
	)
	mod, err := g.TransformToStates(prog)
	if err != nil {
		t.Fatalf("TransformToStates() error = %v", err)
	}
	if _, ok := mod.FuncTable["first"]; !ok {
		t.Fatal("expected FuncTable to contain \"first\"")
	}
	if _, ok := mod.FuncTable["second"]; !ok {
		t.Fatal("expected FuncTable to contain \"second\"")
	}
}

func TestTransformToStatesUnsupportedSyntaxAccumulatesError(t *testing.T) {
	g := newTestGenerator()
	bogus := &ast.Node{Kind: ast.Kind(9999)}
	prog := program(&ast.Node{Kind: ast.ExprStmt, Object: bogus})

	_, err := g.TransformToStates(prog)
	if err == nil {
		t.Fatal("expected an error for an unsupported expression kind")
	}
	if len(g.Errors()) == 0 {
		t.Fatal("expected Errors() to accumulate the failure")
	}
}

func TestResolveCreatesGlobalForUnboundName(t *testing.T) {
	g := newTestGenerator()
	g.pushScope()
	idx, isGlobal, capture := g.resolve("neverDeclared")
	if !isGlobal {
		t.Fatal("expected an unbound identifier to resolve as global")
	}
	if capture {
		t.Fatal("a global resolution should never be reported as a capture")
	}
	if !g.mem.IsGlobal(idx) {
		t.Fatal("expected the allocated slot to be marked global in memory.Map")
	}
}

func TestResolveLocalDoesNotAllocateGlobal(t *testing.T) {
	g := newTestGenerator()
	g.pushScope()
	idx := g.bind("x", false)
	got, isGlobal, capture := g.resolve("x")
	if isGlobal {
		t.Fatal("expected a locally bound name to resolve as non-global")
	}
	if capture {
		t.Fatal("resolving a name in the same function should not be a capture")
	}
	if got != idx {
		t.Fatalf("resolve(%q) = %d, want %d", "x", got, idx)
	}
}

func TestFreshTempNamesAreUnique(t *testing.T) {
	g := newTestGenerator()
	g.pushScope()
	a := g.freshTemp()
	b := g.freshTemp()
	if a == b {
		t.Fatalf("freshTemp() returned the same slot twice: %d", a)
	}
}

func TestLinkSkipsTerminalOps(t *testing.T) {
	g := newTestGenerator()
	ret := g.mod.New(ir.RETURN)
	halt := g.mod.New(ir.HALT)
	g.link(ret.ID, halt.ID)
	if ret.Next != nil {
		t.Fatal("link() should not set Next on a terminal op")
	}
}

func TestLinkSetsNextOnNonTerminalOps(t *testing.T) {
	g := newTestGenerator()
	noop := g.mod.New(ir.NOOP)
	target := g.mod.New(ir.HALT)
	g.link(noop.ID, target.ID)
	if noop.Next == nil || *noop.Next != target.ID {
		t.Fatalf("link() Next = %v, want pointer to %d", noop.Next, target.ID)
	}
}

func TestFreeVarsOfCapturesOuterBinding(t *testing.T) {
	// function outer(x) { function inner() { return x + y; } }
	body := blockStmt(returnStmt(&ast.Node{
		Kind: ast.BinaryExpr, Op: "+", Left: ident("x"), Right: ident("y"),
	}))
	free := freeVarsOf(nil, body, "inner")
	want := map[string]bool{"x": true, "y": true}
	if len(free) != len(want) {
		t.Fatalf("freeVarsOf() = %v, want keys of %v", free, want)
	}
	for _, name := range free {
		if !want[name] {
			t.Errorf("unexpected free variable %q", name)
		}
	}
}

func TestFreeVarsOfExcludesParamsAndOwnName(t *testing.T) {
	body := blockStmt(returnStmt(ident("x")))
	free := freeVarsOf([]*ast.Node{ident("x")}, body, "self")
	if len(free) != 0 {
		t.Fatalf("freeVarsOf() = %v, want none (x is a param)", free)
	}
}

func TestFreeVarsOfExcludesLocallyDeclaredVars(t *testing.T) {
	// function f() { var x = 1; return x; }
	decl := &ast.Node{Kind: ast.VarDecl, Declarations: []*ast.Node{
		{Id: ident("x"), Right: numberLit(1)},
	}}
	body := blockStmt(decl, returnStmt(ident("x")))
	free := freeVarsOf(nil, body, "f")
	if len(free) != 0 {
		t.Fatalf("freeVarsOf() = %v, want none (x is declared locally)", free)
	}
}

func TestFreeVarsOfSkipsNestedFunctionOwnParams(t *testing.T) {
	// function outer() { function inner(x) { return x; } return y; }
	inner := funcDecl("inner", []*ast.Node{ident("x")}, blockStmt(returnStmt(ident("x"))))
	body := blockStmt(inner, returnStmt(ident("y")))
	free := freeVarsOf(nil, body, "outer")
	if len(free) != 1 || free[0] != "y" {
		t.Fatalf("freeVarsOf() = %v, want [\"y\"]", free)
	}
}

func TestGenVarDeclWithoutInitializerBindsOnly(t *testing.T) {
	g := newTestGenerator()
	g.pushScope()
	decl := &ast.Node{Kind: ast.VarDecl, Declarations: []*ast.Node{{Id: ident("x")}}}
	e := g.genStmt(decl)
	if e.start != e.end {
		t.Fatalf("expected a single NOOP edge for an uninitialized declaration, got %+v", e)
	}
	if _, isGlobal, _ := g.resolve("x"); isGlobal {
		t.Fatal("expected x to resolve as a local binding after bindPattern")
	}
}

func TestGenIfBuildsCondJumpToBothBranches(t *testing.T) {
	g := newTestGenerator()
	g.pushScope()
	ifStmt := &ast.Node{
		Kind:       ast.IfStmt,
		Test:       ident("cond"),
		Consequent: returnStmt(numberLit(1)),
		Alternate:  returnStmt(numberLit(2)),
	}
	e := g.genStmt(ifStmt)
	var cj *ir.State
	g.mod.Walk(func(s *ir.State) {
		if s.Op == ir.COND_JUMP {
			cj = s
		}
	})
	if cj == nil {
		t.Fatal("expected a COND_JUMP state for an if/else")
	}
	if cj.TrueState == cj.FalseState {
		t.Fatal("expected distinct true/false branch targets")
	}
	_ = e
}
