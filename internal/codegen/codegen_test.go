package codegen

import (
	"strings"
	"testing"

	"github.com/vortex-obf/vortexc/internal/config"
	"github.com/vortex-obf/vortexc/internal/ir"
	"github.com/vortex-obf/vortexc/internal/memory"
	"github.com/vortex-obf/vortexc/internal/rng"
	"github.com/vortex-obf/vortexc/internal/strpool"
)

// buildMinimalModule returns a module whose entry point assigns a literal
// string into a global and halts, and whose one user function just returns
// a literal number. Small enough to hand-verify every emitted line.
func buildMinimalModule() (*ir.Module, *memory.Map) {
	mem := memory.New()
	mod := ir.NewModule(mem)

	fn := mod.New(ir.FUNC_ENTRY)
	fn.Name = "greet"
	mod.FuncTable["greet"] = fn.ID
	lit := mod.New(ir.ASSIGN_LITERAL)
	lit.To = mem.Allocate("_temp$0", false)
	lit.Value = float64(42)
	ret := mod.New(ir.RETURN)
	ret.ValueVar = lit.To
	link := func(a, b *ir.State) { id := b.ID; a.Next = &id }
	link(fn, lit)
	link(lit, ret)

	entry := mod.New(ir.NOOP)
	mod.EntryID = entry.ID
	halt := mod.New(ir.HALT)
	link(entry, halt)

	return mod, mem
}

func TestGenerateProducesWellFormedProgram(t *testing.T) {
	mod, mem := buildMinimalModule()
	pool := strpool.New()
	pool.CollectFromModule(mod)
	src := rng.NewSource(123)
	pool.Finalize(src.Fork("strpool"), false)

	cfg := config.Default()
	gen := New(mod, pool, mem, cfg, src.Fork("codegen"), nil)

	out, err := gen.Generate()
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	for _, want := range []string{"'use strict'", "function V(", "const "} {
		if !strings.Contains(out, want) {
			t.Errorf("Generate() output missing %q\n---\n%s", want, out)
		}
	}
	// at least the dispatcher function plus one host wrapper.
	if strings.Count(out, "function ") < 2 {
		t.Errorf("expected at least a dispatcher and one wrapper function, got:\n%s", out)
	}
}

func TestGenerateWithEachDispatcherShape(t *testing.T) {
	for _, d := range []config.Dispatcher{
		config.DispatcherSwitch, config.DispatcherBST, config.DispatcherCluster, config.DispatcherChaos,
	} {
		mod, mem := buildMinimalModule()
		pool := strpool.New()
		pool.CollectFromModule(mod)
		src := rng.NewSource(7)
		pool.Finalize(src.Fork("strpool"), false)

		cfg := config.Default()
		cfg.Dispatcher = d
		gen := New(mod, pool, mem, cfg, src.Fork("codegen"), nil)

		if _, err := gen.Generate(); err != nil {
			t.Errorf("Generate() with dispatcher %v error = %v", d, err)
		}
	}
}

func TestGenerateWithStateRandomizationAndOpaquePredicates(t *testing.T) {
	mod, mem := buildMinimalModule()
	pool := strpool.New()
	pool.CollectFromModule(mod)
	src := rng.NewSource(55)
	pool.Finalize(src.Fork("strpool"), true)

	cfg := config.Default()
	cfg.StateRandomization = true
	cfg.OpaquePredicates = true
	cfg.OpaqueProb = 1.0
	cfg.OpaqueLevel = config.OpaqueHigh
	gen := New(mod, pool, mem, cfg, src.Fork("codegen"), nil)

	out, err := gen.Generate()
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !strings.Contains(out, "function ") {
		t.Errorf("expected emitted program to contain functions:\n%s", out)
	}
}

func TestGenerateNoEncryptionEmitsPlainStrings(t *testing.T) {
	mod, mem := buildMinimalModule()
	lit2 := mod.New(ir.ASSIGN_LITERAL)
	lit2.Value = ir.StringRef{Text: "plain-marker"}
	pool := strpool.New()
	pool.Collect(nil)
	pool.CollectFromModule(mod)
	src := rng.NewSource(3)
	pool.Finalize(src.Fork("strpool"), false)

	cfg := config.Default()
	cfg.NoEncryption = true
	gen := New(mod, pool, mem, cfg, src.Fork("codegen"), nil)

	out, err := gen.Generate()
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !strings.Contains(out, "plain-marker") {
		t.Errorf("expected plaintext string pool entry in output, got:\n%s", out)
	}
}
