package strpool

import (
	"testing"

	"github.com/vortex-obf/vortexc/internal/ast"
	"github.com/vortex-obf/vortexc/internal/ir"
	"github.com/vortex-obf/vortexc/internal/rng"
)

func TestNewSeedsRequiredRuntimeNames(t *testing.T) {
	p := New()
	for _, name := range RequiredRuntimeNames {
		if _, err := p.GetStringID(name); err == nil {
			t.Fatalf("GetStringID(%q) should fail before Finalize", name)
		}
	}
	if p.Len() != len(RequiredRuntimeNames) {
		t.Fatalf("Len() = %d, want %d", p.Len(), len(RequiredRuntimeNames))
	}
}

func TestCollectHarvestsStringLiterals(t *testing.T) {
	p := New()
	prog := &ast.Node{
		Kind: ast.Program,
		Body2: []*ast.Node{
			{Kind: ast.StringLit, Value: "hello"},
			{Kind: ast.StringLit, Value: "world"},
		},
	}
	p.Collect(prog)

	want := len(RequiredRuntimeNames) + 2
	if p.Len() != want {
		t.Fatalf("Len() = %d, want %d", p.Len(), want)
	}
}

func TestCollectAfterFinalizePanics(t *testing.T) {
	p := New()
	p.Finalize(rng.NewSource(1), false)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic calling Collect after Finalize")
		}
	}()
	p.Collect(&ast.Node{Kind: ast.StringLit, Value: "x"})
}

func TestFinalizeAssignsDenseIDsForEverything(t *testing.T) {
	p := New()
	p.Collect(&ast.Node{Kind: ast.StringLit, Value: "alpha"})
	p.Collect(&ast.Node{Kind: ast.StringLit, Value: "beta"})
	p.Finalize(rng.NewSource(5), false)

	seen := map[int]bool{}
	for _, name := range append(append([]string{}, RequiredRuntimeNames...), "alpha", "beta") {
		id, err := p.GetStringID(name)
		if err != nil {
			t.Fatalf("GetStringID(%q) error = %v", name, err)
		}
		if seen[id] {
			t.Fatalf("duplicate dense id %d for %q", id, name)
		}
		seen[id] = true
	}
	if len(p.Entries()) != p.Len() {
		t.Fatalf("Entries() length = %d, want %d", len(p.Entries()), p.Len())
	}
}

func TestGetStringIDMissingReturnsError(t *testing.T) {
	p := New()
	p.Finalize(rng.NewSource(1), false)
	if _, err := p.GetStringID("never-collected"); err == nil {
		t.Fatal("expected MissingString error")
	}
}

func TestEntriesPanicsBeforeFinalize(t *testing.T) {
	p := New()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic calling Entries before Finalize")
		}
	}()
	p.Entries()
}

func TestFinalizeWithConcealmentRoundTrips(t *testing.T) {
	p := New()
	p.Collect(&ast.Node{Kind: ast.StringLit, Value: "secret"})
	p.Finalize(rng.NewSource(99), true)

	id, err := p.GetStringID("secret")
	if err != nil {
		t.Fatalf("GetStringID error = %v", err)
	}
	entry := p.Entries()[id]
	if !entry.Concealed || entry.Payload == "" {
		t.Fatalf("entry for 'secret' not concealed: %+v", entry)
	}
}

func TestCollectFromModuleHarvestsStringRefs(t *testing.T) {
	p := New()
	mod := ir.NewModule(nil)
	s := mod.New(ir.ASSIGN_LITERAL)
	s.Value = ir.StringRef{Text: "synthetic-name"}

	p.CollectFromModule(mod)
	p.Finalize(rng.NewSource(3), false)

	if _, err := p.GetStringID("synthetic-name"); err != nil {
		t.Fatalf("GetStringID(%q) error = %v", "synthetic-name", err)
	}
}

func TestCollectFromModuleAfterFinalizePanics(t *testing.T) {
	p := New()
	p.Finalize(rng.NewSource(1), false)
	mod := ir.NewModule(nil)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic calling CollectFromModule after Finalize")
		}
	}()
	p.CollectFromModule(mod)
}
