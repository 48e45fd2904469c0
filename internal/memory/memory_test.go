package memory

import "testing"

func TestNewPreallocatesReservedSlots(t *testing.T) {
	m := New()
	if got, want := m.Len(), len(ReservedNames); got != want {
		t.Fatalf("Len() = %d, want %d", got, want)
	}
	for i, name := range ReservedNames {
		idx, ok := m.Lookup(name)
		if !ok {
			t.Fatalf("Lookup(%q) not found", name)
		}
		if idx != i {
			t.Errorf("Lookup(%q) = %d, want %d", name, idx, i)
		}
		if !m.IsGlobal(idx) {
			t.Errorf("reserved slot %q should be global", name)
		}
	}
}

func TestSlotMatchesReservedOrder(t *testing.T) {
	for i, name := range ReservedNames {
		if got := Slot(name); got != i {
			t.Errorf("Slot(%q) = %d, want %d", name, got, i)
		}
	}
}

func TestSlotPanicsOnUnknownName(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for non-reserved name")
		}
	}()
	Slot("not_a_reserved_slot")
}

func TestAllocateIsIdempotent(t *testing.T) {
	m := New()
	a := m.Allocate("x", false)
	b := m.Allocate("x", true) // isGlobal should be ignored on re-allocation
	if a != b {
		t.Fatalf("re-allocating %q returned different index: %d vs %d", "x", a, b)
	}
	if m.IsGlobal(a) {
		t.Errorf("re-allocation must not flip isGlobal from false to true")
	}
}

func TestAllocateAssignsDenseIndices(t *testing.T) {
	m := New()
	base := m.Len()
	first := m.Allocate("a", false)
	second := m.Allocate("b", true)
	if first != base || second != base+1 {
		t.Fatalf("got indices %d,%d want %d,%d", first, second, base, base+1)
	}
	if m.Name(first) != "a" || m.Name(second) != "b" {
		t.Errorf("Name() mismatch: %q, %q", m.Name(first), m.Name(second))
	}
}

func TestGlobalsAndLocalsPartition(t *testing.T) {
	m := New()
	local := m.Allocate("loc", false)
	global := m.Allocate("glob", true)

	locals := m.Locals()
	globals := m.Globals()

	foundLocal, foundGlobal := false, false
	for _, idx := range locals {
		if idx == local {
			foundLocal = true
		}
		if idx == global {
			t.Errorf("global slot %d leaked into Locals()", global)
		}
	}
	for _, idx := range globals {
		if idx == global {
			foundGlobal = true
		}
		if idx == local {
			t.Errorf("local slot %d leaked into Globals()", local)
		}
	}
	if !foundLocal {
		t.Error("local slot missing from Locals()")
	}
	if !foundGlobal {
		t.Error("global slot missing from Globals()")
	}
	// every reserved slot must also show up as global
	if len(globals) < len(ReservedNames) {
		t.Errorf("Globals() = %d entries, want at least %d reserved", len(globals), len(ReservedNames))
	}
}
