package irgen

import (
	"testing"

	"github.com/vortex-obf/vortexc/internal/ast"
	"github.com/vortex-obf/vortexc/internal/ir"
)

func TestGenTryWithoutFinallyPopsOnNormalExit(t *testing.T) {
	g := newTestGenerator()
	g.pushScope()
	tryStmt := &ast.Node{
		Kind: ast.TryStmt,
		Body: blockStmt(&ast.Node{Kind: ast.ExprStmt, Object: ident("x")}),
	}
	g.genStmt(tryStmt)

	var push, pop *ir.State
	g.mod.Walk(func(s *ir.State) {
		switch s.Op {
		case ir.PUSH_CATCH_HANDLER:
			push = s
		case ir.POP_CATCH_HANDLER:
			pop = s
		}
	})
	if push == nil || pop == nil {
		t.Fatal("expected matching PUSH_CATCH_HANDLER/POP_CATCH_HANDLER states")
	}
}

func TestGenCatchGuardsOnSentinelBeforeBinding(t *testing.T) {
	g := newTestGenerator()
	g.pushScope()
	tryStmt := &ast.Node{
		Kind: ast.TryStmt,
		Body: blockStmt(&ast.Node{Kind: ast.ExprStmt, Object: ident("x")}),
		Handlers: []*ast.Node{
			{Kind: ast.CatchClause, Id: ident("e"), Body: blockStmt(returnStmt(ident("e")))},
		},
	}
	g.genStmt(tryStmt)

	var cj *ir.State
	var rethrow *ir.State
	g.mod.Walk(func(s *ir.State) {
		if s.Op == ir.COND_JUMP {
			cj = s
		}
		if s.Op == ir.THROW {
			rethrow = s
		}
	})
	if cj == nil {
		t.Fatal("expected a COND_JUMP guarding the sentinel comparison")
	}
	if rethrow == nil {
		t.Fatal("expected a THROW state rethrowing on sentinel match")
	}
	if cj.TrueState != rethrow.ID {
		t.Fatalf("COND_JUMP.TrueState = %d, want rethrow state %d", cj.TrueState, rethrow.ID)
	}
}

func TestGenTryWithFinallyRoutesPopIntoFinally(t *testing.T) {
	g := newTestGenerator()
	g.pushScope()
	tryStmt := &ast.Node{
		Kind:      ast.TryStmt,
		Body:      blockStmt(&ast.Node{Kind: ast.ExprStmt, Object: ident("x")}),
		Finalizer: blockStmt(&ast.Node{Kind: ast.ExprStmt, Object: ident("y")}),
	}
	g.genStmt(tryStmt)

	var pop *ir.State
	var dispatch *ir.State
	g.mod.Walk(func(s *ir.State) {
		if s.Op == ir.POP_CATCH_HANDLER {
			pop = s
		}
		if s.Op == ir.FINALLY_DISPATCH {
			dispatch = s
		}
	})
	if pop == nil {
		t.Fatal("expected a POP_CATCH_HANDLER state")
	}
	if dispatch == nil {
		t.Fatal("expected a FINALLY_DISPATCH state after the finally block")
	}
	if pop.Next == nil {
		t.Fatal("expected POP_CATCH_HANDLER to fall through into the finally block")
	}
}

func TestReturnInsideTryRoutesThroughFinally(t *testing.T) {
	g := newTestGenerator()
	g.pushScope()
	g.ctrl = append(g.ctrl, ctrlEntry{kind: ctrlTry, finallyStart: 999, hasCatch: false})

	e := g.genReturn(returnStmt(numberLit(1)))

	var setFin *ir.State
	g.mod.Walk(func(s *ir.State) {
		if s.Op == ir.ASSIGN_LITERAL {
			if v, ok := s.Value.(int); ok && v == int(ir.FinReturn) {
				setFin = s
			}
		}
	})
	if setFin == nil {
		t.Fatal("expected a _FIN assignment routing the return through finally")
	}
	_ = e
}
