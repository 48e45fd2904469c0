// Command vortexc is the thin CLI shell around the compiler library
// (SPEC_FULL.md "CLI front-end (thin, ambient only)"). It is deliberately
// minimal: it reads a pre-parsed AST (JSON-encoded internal/ast.Node,
// since the host-language parser is an external collaborator per spec.md
// §1), a Configuration, drives the irgen → optimize → strpool → codegen
// pipeline, and writes the emitted program text. No watch mode, no
// child-process orchestration, no pretty-printing: those stay out of scope
// the same way the teacher's own main.go delegates everything past flag
// parsing to ResolveModule/GenerateELF.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/urfave/cli.v1"

	"github.com/vortex-obf/vortexc/internal/ast"
	"github.com/vortex-obf/vortexc/internal/codegen"
	"github.com/vortex-obf/vortexc/internal/config"
	"github.com/vortex-obf/vortexc/internal/irgen"
	"github.com/vortex-obf/vortexc/internal/logx"
	"github.com/vortex-obf/vortexc/internal/memory"
	"github.com/vortex-obf/vortexc/internal/optimize"
	"github.com/vortex-obf/vortexc/internal/rng"
	"github.com/vortex-obf/vortexc/internal/strpool"
)

func main() {
	app := cli.NewApp()
	app.Name = "vortexc"
	app.Usage = "compile a parsed AST into an obfuscated, stackless-VM program"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "ast", Usage: "path to a JSON-encoded Program AST"},
		cli.StringFlag{Name: "config", Usage: "path to a YAML Configuration file (optional)"},
		cli.StringFlag{Name: "o", Value: "out.js", Usage: "output path for the generated program"},
		cli.BoolFlag{Name: "verbose", Usage: "log at Debug level"},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "vortexc:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	astPath := c.String("ast")
	if astPath == "" {
		return cli.NewExitError("vortexc: -ast is required", 2)
	}

	level := logx.LevelInfo
	if c.Bool("verbose") {
		level = logx.LevelDebug
	}
	log := logx.New(level)

	cfg := config.Default()
	if p := c.String("config"); p != "" {
		loaded, err := config.Load(p)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	cfg.EnsureBuildID()

	prog, err := loadAST(astPath)
	if err != nil {
		return err
	}

	program, err := Compile(prog, cfg, log)
	if err != nil {
		return err
	}

	return os.WriteFile(c.String("o"), []byte(program), 0o644)
}

func loadAST(path string) (*ast.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("vortexc: reading %s: %w", path, err)
	}
	var n ast.Node
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("vortexc: parsing AST json: %w", err)
	}
	return &n, nil
}

// Compile runs the full pipeline over an already-parsed program: IR
// generation, string-pool collection and finalization, the optimizer's
// fixed-point pass pipeline, and code generation. It is the library entry
// point cmd/vortexc delegates to, and the one a test harness or an
// embedding host would call directly instead of shelling out.
func Compile(prog *ast.Node, cfg config.Config, log *logx.Logger) (string, error) {
	seed := cfg.Seed
	if seed == 0 {
		seed = rng.RandomSeed()
	}
	src := rng.NewSource(seed)

	mem := memory.New()
	pool := strpool.New()
	pool.Collect(prog)

	gen := irgen.New(mem, pool)
	mod, err := gen.TransformToStates(prog)
	if err != nil {
		return "", err
	}
	if errs := gen.Errors(); len(errs) > 0 {
		return "", fmt.Errorf("vortexc: %d error(s) during IR generation: %w", len(errs), errs[0])
	}

	pool.CollectFromModule(mod)
	pool.Finalize(src.Fork("strpool"), !cfg.NoEncryption)

	opt := optimize.New(mod, log)
	if err := opt.Run(); err != nil {
		return "", err
	}
	log.Info("optimizer converged", "iterations", fmt.Sprintf("%d", opt.Iterations), "rollbacks", fmt.Sprintf("%d", opt.Rollbacks))

	gcg := codegen.New(mod, pool, mem, cfg, src.Fork("codegen"), log)
	return gcg.Generate()
}
