package ir

import (
	"testing"

	"github.com/vortex-obf/vortexc/internal/memory"
)

func TestModuleNewAssignsDenseIDs(t *testing.T) {
	mod := NewModule(memory.New())
	a := mod.New(NOOP)
	b := mod.New(GOTO)
	if a.ID != 0 || b.ID != 1 {
		t.Fatalf("got ids %d, %d, want 0, 1", a.ID, b.ID)
	}
	if mod.Get(0) != a || mod.Get(1) != b {
		t.Fatal("Get() did not return the states New() created")
	}
}

func TestModuleLiveAndKill(t *testing.T) {
	mod := NewModule(memory.New())
	s := mod.New(ASSIGN)
	if !mod.Live(s.ID) {
		t.Fatal("freshly created state should be live")
	}
	mod.Kill(s.ID)
	if mod.Live(s.ID) {
		t.Fatal("killed state should not be live")
	}
	if mod.Get(s.ID).Op != DEAD {
		t.Fatalf("killed state Op = %s, want DEAD", mod.Get(s.ID).Op)
	}
}

func TestModuleLiveOutOfRange(t *testing.T) {
	mod := NewModule(memory.New())
	if mod.Live(-1) || mod.Live(0) {
		t.Fatal("Live() should report false for out-of-range/unallocated ids")
	}
}

func TestModuleWalkSkipsDead(t *testing.T) {
	mod := NewModule(memory.New())
	a := mod.New(ASSIGN)
	b := mod.New(ASSIGN)
	mod.Kill(a.ID)

	var visited []int
	mod.Walk(func(s *State) { visited = append(visited, s.ID) })

	if len(visited) != 1 || visited[0] != b.ID {
		t.Fatalf("Walk visited %v, want only [%d]", visited, b.ID)
	}
}

func TestStateReferencesGoto(t *testing.T) {
	mod := NewModule(memory.New())
	target := mod.New(NOOP)
	g := mod.New(GOTO)
	g.Target = target.ID

	var got []int
	g.References(func(id int) { got = append(got, id) })
	if len(got) != 1 || got[0] != target.ID {
		t.Fatalf("References() = %v, want [%d]", got, target.ID)
	}
}

func TestStateReferencesCondJump(t *testing.T) {
	mod := NewModule(memory.New())
	t1 := mod.New(NOOP)
	t2 := mod.New(NOOP)
	cj := mod.New(COND_JUMP)
	cj.TrueState = t1.ID
	cj.FalseState = t2.ID

	seen := map[int]bool{}
	cj.References(func(id int) { seen[id] = true })
	if !seen[t1.ID] || !seen[t2.ID] {
		t.Fatalf("References() = %v, want both %d and %d", seen, t1.ID, t2.ID)
	}
}

func TestStateReferencesIncludesNext(t *testing.T) {
	mod := NewModule(memory.New())
	next := mod.New(NOOP)
	s := mod.New(ASSIGN)
	n := next.ID
	s.Next = &n

	var got []int
	s.References(func(id int) { got = append(got, id) })
	if len(got) != 1 || got[0] != next.ID {
		t.Fatalf("References() = %v, want [%d]", got, next.ID)
	}
}

func TestModuleRootsIncludesEntryAndTables(t *testing.T) {
	mod := NewModule(memory.New())
	entry := mod.New(NOOP)
	mod.EntryID = entry.ID

	fn := mod.New(FUNC_ENTRY)
	mod.FuncTable["f"] = fn.ID

	cls := mod.New(FUNC_ENTRY)
	mod.ClassTable["C"] = cls.ID

	roots := mod.Roots()
	seen := map[int]bool{}
	for _, id := range roots {
		seen[id] = true
	}
	for _, want := range []int{entry.ID, fn.ID, cls.ID} {
		if !seen[want] {
			t.Errorf("Roots() = %v, missing %d", roots, want)
		}
	}
}
