package optimize

import (
	"testing"

	"github.com/vortex-obf/vortexc/internal/ir"
	"github.com/vortex-obf/vortexc/internal/memory"
)

func newTestModule() *ir.Module {
	return ir.NewModule(memory.New())
}

// link sets a.Next = b.ID for convenience in hand-built fixtures.
func link(a, b *ir.State) {
	id := b.ID
	a.Next = &id
}

func TestConstantFoldingBinary(t *testing.T) {
	mod := newTestModule()
	litA := mod.New(ir.ASSIGN_LITERAL)
	litA.To = mod.Memory.Allocate("a", false)
	litA.Value = float64(3)

	litB := mod.New(ir.ASSIGN_LITERAL)
	litB.To = mod.Memory.Allocate("b", false)
	litB.Value = float64(4)

	add := mod.New(ir.BINARY)
	add.To = mod.Memory.Allocate("c", false)
	add.Left = litA.To
	add.Right = litB.To
	add.Operator = "+"

	n := ConstantFolding(mod)
	if n != 1 {
		t.Fatalf("ConstantFolding() = %d, want 1", n)
	}
	if add.Op != ir.ASSIGN_LITERAL {
		t.Fatalf("add.Op = %s, want ASSIGN_LITERAL", add.Op)
	}
	if got, ok := add.Value.(float64); !ok || got != 7 {
		t.Fatalf("add.Value = %v, want 7", add.Value)
	}
}

func TestConstantFoldingCondJump(t *testing.T) {
	mod := newTestModule()
	lit := mod.New(ir.ASSIGN_LITERAL)
	lit.To = mod.Memory.Allocate("cond", false)
	lit.Value = true

	trueTarget := mod.New(ir.NOOP)
	falseTarget := mod.New(ir.NOOP)
	cj := mod.New(ir.COND_JUMP)
	cj.TestVar = lit.To
	cj.TrueState = trueTarget.ID
	cj.FalseState = falseTarget.ID

	n := ConstantFolding(mod)
	if n != 1 {
		t.Fatalf("ConstantFolding() = %d, want 1", n)
	}
	if cj.Op != ir.GOTO || cj.Target != trueTarget.ID {
		t.Fatalf("cj = %+v, want GOTO to %d", cj, trueTarget.ID)
	}
}

func TestStrengthReductionAddZero(t *testing.T) {
	mod := newTestModule()
	zero := mod.New(ir.ASSIGN_LITERAL)
	zero.To = mod.Memory.Allocate("zero", false)
	zero.Value = float64(0)

	x := mod.Memory.Allocate("x", false)
	add := mod.New(ir.BINARY)
	add.To = mod.Memory.Allocate("y", false)
	add.Left = x
	add.Right = zero.To
	add.Operator = "+"

	n := StrengthReduction(mod)
	if n != 1 {
		t.Fatalf("StrengthReduction() = %d, want 1", n)
	}
	if add.Op != ir.ASSIGN || add.From != x {
		t.Fatalf("add = %+v, want ASSIGN from %d", add, x)
	}
}

func TestStrengthReductionSelfSubtract(t *testing.T) {
	mod := newTestModule()
	x := mod.Memory.Allocate("x", false)
	sub := mod.New(ir.BINARY)
	sub.To = mod.Memory.Allocate("r", false)
	sub.Left = x
	sub.Right = x
	sub.Operator = "-"

	n := StrengthReduction(mod)
	if n != 1 {
		t.Fatalf("StrengthReduction() = %d, want 1", n)
	}
	if sub.Op != ir.ASSIGN_LITERAL || sub.Value.(float64) != 0 {
		t.Fatalf("sub = %+v, want ASSIGN_LITERAL 0", sub)
	}
}

func TestBranchPruningSameTarget(t *testing.T) {
	mod := newTestModule()
	target := mod.New(ir.NOOP)
	cj := mod.New(ir.COND_JUMP)
	cj.TrueState = target.ID
	cj.FalseState = target.ID

	n := BranchPruning(mod)
	if n != 1 {
		t.Fatalf("BranchPruning() = %d, want 1", n)
	}
	if cj.Op != ir.GOTO || cj.Target != target.ID {
		t.Fatalf("cj = %+v, want GOTO %d", cj, target.ID)
	}
}

func TestJumpThreadingSkipsNoopChain(t *testing.T) {
	mod := newTestModule()
	final := mod.New(ir.HALT)
	noop2 := mod.New(ir.NOOP)
	link(noop2, final)
	noop1 := mod.New(ir.NOOP)
	link(noop1, noop2)
	start := mod.New(ir.ASSIGN)
	link(start, noop1)

	n := JumpThreading(mod)
	if n == 0 {
		t.Fatal("JumpThreading() = 0, want at least 1 rewrite")
	}
	if *start.Next != final.ID {
		t.Fatalf("start.Next = %d, want %d", *start.Next, final.ID)
	}
}

func TestGlobalDeadStoreEliminationRemovesUnreadAssign(t *testing.T) {
	mod := newTestModule()
	tail := mod.New(ir.HALT)
	dead := mod.New(ir.ASSIGN_LITERAL)
	dead.To = mod.Memory.Allocate("unused", false)
	dead.Value = float64(1)
	link(dead, tail)

	n := GlobalDeadStoreElimination(mod)
	if n != 1 {
		t.Fatalf("GlobalDeadStoreElimination() = %d, want 1", n)
	}
	if mod.Live(dead.ID) {
		t.Fatal("dead-store state should have been killed")
	}
}

func TestGlobalDeadStoreEliminationKeepsReadValues(t *testing.T) {
	mod := newTestModule()
	lit := mod.New(ir.ASSIGN_LITERAL)
	lit.To = mod.Memory.Allocate("used", false)
	lit.Value = float64(1)

	ret := mod.New(ir.RETURN)
	ret.ValueVar = lit.To
	link(lit, ret)

	n := GlobalDeadStoreElimination(mod)
	if n != 0 {
		t.Fatalf("GlobalDeadStoreElimination() = %d, want 0", n)
	}
	if !mod.Live(lit.ID) {
		t.Fatal("read state should remain live")
	}
}

func TestCopyPropagationForwardsSoleReader(t *testing.T) {
	mod := newTestModule()
	src := mod.Memory.Allocate("src", false)
	dst := mod.Memory.Allocate("dst", false)

	ret := mod.New(ir.RETURN)
	ret.ValueVar = dst

	cp := mod.New(ir.ASSIGN)
	cp.To = dst
	cp.From = src
	link(cp, ret)

	n := CopyPropagation(mod)
	if n != 1 {
		t.Fatalf("CopyPropagation() = %d, want 1", n)
	}
	if ret.ValueVar != src {
		t.Fatalf("ret.ValueVar = %d, want %d", ret.ValueVar, src)
	}
	if mod.Live(cp.ID) {
		t.Fatal("propagated ASSIGN should have been killed")
	}
}

func TestIdentityRemovalKillsSelfAssign(t *testing.T) {
	mod := newTestModule()
	tail := mod.New(ir.HALT)
	slot := mod.Memory.Allocate("x", false)
	ident := mod.New(ir.ASSIGN)
	ident.To = slot
	ident.From = slot
	link(ident, tail)

	n := IdentityRemoval(mod)
	if n != 1 {
		t.Fatalf("IdentityRemoval() = %d, want 1", n)
	}
	if mod.Live(ident.ID) {
		t.Fatal("identity assign should have been killed")
	}
}
