package optimize

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/vortex-obf/vortexc/internal/ir"
	"github.com/vortex-obf/vortexc/internal/logx"
	"github.com/vortex-obf/vortexc/internal/memory"
)

// buildFoldableModule produces a tiny module whose single live function
// computes a constant and returns it, rooted so sweep/integrity never flag
// it as dead: 3 + 4 folds to a literal, and the result feeds a RETURN that
// the entry FUNC_ENTRY falls through to.
func buildFoldableModule() *ir.Module {
	mod := ir.NewModule(memory.New())
	entry := mod.New(ir.FUNC_ENTRY)
	mod.EntryID = entry.ID
	mod.FuncTable["main"] = entry.ID
	entry.Name = "main"

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

	ret := mod.New(ir.RETURN)
	ret.ValueVar = add.To

	link := func(a, b *ir.State) { id := b.ID; a.Next = &id }
	link(entry, litA)
	link(litA, litB)
	link(litB, add)
	link(add, ret)

	return mod
}

func TestPipelineRunConverges(t *testing.T) {
	mod := buildFoldableModule()
	p := New(mod, logx.New(logx.LevelError))
	if err := p.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if p.Iterations == 0 {
		t.Fatal("expected at least one iteration")
	}

	// the BINARY add should have folded into a literal by now; block
	// merging may have moved it into a SEQUENCE, so members are checked too.
	found := false
	isSeven := func(s *ir.State) bool { return s.Op == ir.ASSIGN_LITERAL && s.Value == float64(7) }
	mod.Walk(func(s *ir.State) {
		if isSeven(s) {
			found = true
		}
		for _, inner := range s.Seq {
			if isSeven(inner) {
				found = true
			}
		}
	})
	if !found {
		t.Fatal("expected the constant-folded literal 7 to survive in the module")
	}
}

func TestPipelineRunWithNilLoggerUsesDefault(t *testing.T) {
	mod := buildFoldableModule()
	p := New(mod, nil)
	if err := p.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

func TestCheckIntegrityDetectsDanglingReference(t *testing.T) {
	mod := ir.NewModule(memory.New())
	entry := mod.New(ir.FUNC_ENTRY)
	mod.EntryID = entry.ID

	g := mod.New(ir.GOTO)
	g.Target = 999 // dangling

	if err := checkIntegrity(mod); err == nil {
		t.Fatal("expected checkIntegrity to flag a dangling reference")
	}
}

func TestCheckIntegrityPassesCleanModule(t *testing.T) {
	mod := buildFoldableModule()
	if err := checkIntegrity(mod); err != nil {
		t.Fatalf("checkIntegrity() = %v, want nil", err)
	}
}

// TestSnapshotRestoreRoundTripsExactly builds a module, takes a snapshot,
// mutates the module in a way a misbehaving pass might (rewriting an
// operator and dropping an arg), then restores the snapshot and diffs the
// restored state against a fresh snapshot of the untouched original with
// go-cmp: runTransacted's rollback path depends on restore reproducing the
// pre-pass module byte-for-byte, not just "close enough".
func TestSnapshotRestoreRoundTripsExactly(t *testing.T) {
	is := assert.New(t)

	mod := buildFoldableModule()
	before := snapshot(mod)

	mod.Walk(func(s *ir.State) {
		if s.Op == ir.BINARY {
			s.Operator = "*"
			s.Args = append(s.Args, 999)
		}
	})

	restore(mod, before)
	after := snapshot(mod)

	if diff := cmp.Diff(before, after); diff != "" {
		t.Fatalf("restore did not reproduce the original snapshot (-want +got):\n%s", diff)
	}
	is.Equal(len(before), len(mod.States), "restore must preserve the state count")
}

// TestRunTransactedRollsBackOnIntegrityViolation wraps a pass that
// deliberately breaks graph integrity (points a GOTO at a dangling id) and
// checks runTransacted discards the change rather than letting it through.
func TestRunTransactedRollsBackOnIntegrityViolation(t *testing.T) {
	is := assert.New(t)

	mod := buildFoldableModule()
	want := snapshot(mod)

	p := New(mod, logx.New(logx.LevelError))
	breakIt := Pass{Name: "break-it", Run: func(m *ir.Module) int {
		g := m.New(ir.GOTO)
		g.Target = 99999
		return 1
	}}

	n := p.runTransacted(breakIt)
	is.Equal(0, n, "runTransacted must report zero applied changes on rollback")
	is.Equal(1, p.Rollbacks, "a broken pass must count as exactly one rollback")

	got := snapshot(mod)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("module diverged from its pre-pass snapshot after rollback (-want +got):\n%s", diff)
	}
}

func TestSweepRemovesUnreachableState(t *testing.T) {
	mod := ir.NewModule(memory.New())
	entry := mod.New(ir.HALT)
	mod.EntryID = entry.ID

	orphan := mod.New(ir.NOOP)

	sweep(mod)
	if mod.Live(orphan.ID) {
		t.Fatal("unreachable state should have been swept")
	}
	if !mod.Live(entry.ID) {
		t.Fatal("root must remain live after sweep")
	}
}
