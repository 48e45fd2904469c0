package irgen

import (
	"testing"

	"github.com/vortex-obf/vortexc/internal/ast"
	"github.com/vortex-obf/vortexc/internal/ir"
)

func TestGenClassDeclRegistersConstructorEntry(t *testing.T) {
	g := newTestGenerator()
	g.pushScope()

	cls := &ast.Node{Kind: ast.ClassDecl, Name: "Point", Members: []*ast.Node{
		{Kind: ast.MethodDef, Kind2: "constructor", Params: []*ast.Node{ident("x")},
			Body: blockStmt(&ast.Node{
				Kind: ast.ExprStmt,
				Object: &ast.Node{
					Kind: ast.AssignExpr, Op: "=",
					Left: &ast.Node{Kind: ast.MemberExpr, Object: &ast.Node{Kind: ast.ThisExpr}, Name: "x"},
					Right: ident("x"),
				},
			}),
		},
	}}

	g.genStmt(cls)

	entryID, ok := g.mod.FuncTable["Point"]
	if !ok {
		t.Fatal("expected FuncTable to contain the class constructor entry")
	}
	if g.mod.ClassTable["Point"] != entryID {
		t.Fatal("expected ClassTable to record the same entry id as FuncTable")
	}
	if g.mod.Get(entryID).Op != ir.FUNC_ENTRY {
		t.Fatalf("constructor state op = %v, want FUNC_ENTRY", g.mod.Get(entryID).Op)
	}
}

func TestPrivateFieldRoutesThroughWeakMapSlot(t *testing.T) {
	g := newTestGenerator()
	g.pushScope()

	instance := g.single(ir.ASSIGN_LITERAL, -1)
	value := g.single(ir.ASSIGN_LITERAL, -1)

	endID := g.privateSet("secret", instance.resultVar, value.resultVar, instance.end)

	var mapRead *ir.State
	var memberAssign *ir.State
	g.mod.Walk(func(s *ir.State) {
		switch s.Op {
		case ir.MEMBER_ACCESS_GLOBAL:
			mapRead = s
		case ir.MEMBER_ASSIGN_COMPUTED:
			memberAssign = s
		}
	})
	if mapRead == nil {
		t.Fatal("expected a MEMBER_ACCESS_GLOBAL state reading the backing weak-map slot")
	}
	if mapRead.GlobalName != "#secret" {
		t.Fatalf("GlobalName = %q, want %q", mapRead.GlobalName, "#secret")
	}
	if memberAssign == nil {
		t.Fatal("expected a MEMBER_ASSIGN_COMPUTED keyed by the instance")
	}
	if memberAssign.KeyVar != instance.resultVar {
		t.Fatalf("KeyVar = %d, want instance slot %d", memberAssign.KeyVar, instance.resultVar)
	}
	if endID != memberAssign.ID {
		t.Fatalf("privateSet returned end id %d, want %d", endID, memberAssign.ID)
	}
}

func TestPrivateGetReadsSameMapNameAsSet(t *testing.T) {
	g := newTestGenerator()
	g.pushScope()
	instance := g.single(ir.ASSIGN_LITERAL, -1)

	result := g.privateGet("secret", instance)

	var computed *ir.State
	g.mod.Walk(func(s *ir.State) {
		if s.Op == ir.MEMBER_ACCESS_COMPUTED {
			computed = s
		}
	})
	if computed == nil {
		t.Fatal("expected a MEMBER_ACCESS_COMPUTED state for the private read")
	}
	if computed.KeyVar != instance.resultVar {
		t.Fatalf("KeyVar = %d, want %d", computed.KeyVar, instance.resultVar)
	}
	if result.resultVar != computed.To {
		t.Fatalf("exprResult.resultVar = %d, want %d", result.resultVar, computed.To)
	}
}
