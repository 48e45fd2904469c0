package strpool

import (
	"github.com/vortex-obf/vortexc/internal/ast"
	"github.com/vortex-obf/vortexc/internal/ir"
	"github.com/vortex-obf/vortexc/internal/rng"
	"github.com/vortex-obf/vortexc/internal/vortexerr"
)

// RequiredRuntimeNames are unconditionally inserted into every pool
// regardless of program content, per spec.md §4.1 "Collector": a fixed set
// of object/function/iterator/typeof/class property names the emitted VM
// scaffold always references.
var RequiredRuntimeNames = []string{
	"constructor", "prototype", "length", "next", "value", "done",
	"return", "throw", "Symbol.iterator", "Symbol.asyncIterator",
	"name", "message", "stack", "call", "apply", "bind",
	"object", "function", "undefined", "number", "string", "boolean",
}

// Entry is one pool slot: the original plaintext plus, once concealed, its
// base64 payload.
type Entry struct {
	Plain    string
	Payload  string // set only after Conceal; empty when NoEncryption
	Concealed bool
}

// Pool is the append-only-until-finalized string table from spec.md §3.
type Pool struct {
	order     []string       // insertion order, pre-shuffle
	entries   map[string]int // plaintext -> final dense id
	finalized bool
	final     []Entry // index == dense id, populated at Finalize
}

// New builds an empty Pool pre-seeded with the required runtime names.
func New() *Pool {
	p := &Pool{entries: make(map[string]int)}
	for _, n := range RequiredRuntimeNames {
		p.collect(n)
	}
	return p
}

func (p *Pool) collect(s string) {
	if _, ok := p.entries[s]; ok {
		return
	}
	p.entries[s] = len(p.order)
	p.order = append(p.order, s)
}

// Collect walks the AST once, per spec.md §4.1 "Collector", gathering:
//   - every string-shaped literal (StringLit, cooked TemplateLit fragments)
//   - non-computed property/member names
//   - numeric index keys used as property names
//
// It is idempotent and may be called once per program; calling it after
// Finalize panics, since the pool becomes append-only-until-finalized by
// contract (spec.md §3).
func (p *Pool) Collect(n *ast.Node) {
	if p.finalized {
		panic("strpool: Collect called after Finalize")
	}
	p.walk(n)
}

func (p *Pool) walk(n *ast.Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case ast.StringLit:
		if s, ok := n.Value.(string); ok {
			p.collect(s)
		}
	case ast.TemplateLit:
		for _, q := range n.Quasis {
			p.collect(q)
		}
	case ast.MemberExpr:
		if !n.Computed && n.Name != "" {
			p.collect(n.Name)
		}
	case ast.Property:
		if !n.Computed && n.Name != "" {
			p.collect(n.Name)
		}
	case ast.FieldDef, ast.MethodDef:
		if n.Name != "" {
			p.collect(n.Name)
		}
	}

	p.walk(n.Object)
	p.walk(n.Property2)
	p.walk(n.Left)
	p.walk(n.Right)
	p.walk(n.Test)
	p.walk(n.Consequent)
	p.walk(n.Alternate)
	p.walk(n.Body)
	p.walk(n.Init)
	p.walk(n.Update)
	p.walk(n.Callee)
	p.walk(n.Argument)
	p.walk(n.Id)
	p.walk(n.SuperClass)
	p.walk(n.Discriminant)
	p.walk(n.Label)
	p.walk(n.Finalizer)
	for _, c := range n.Params {
		p.walk(c)
	}
	for _, c := range n.Body2 {
		p.walk(c)
	}
	for _, c := range n.Elements {
		p.walk(c)
	}
	for _, c := range n.Properties {
		p.walk(c)
	}
	for _, c := range n.Args {
		p.walk(c)
	}
	for _, c := range n.Exprs {
		p.walk(c)
	}
	for _, c := range n.Cases {
		p.walk(c)
	}
	for _, c := range n.Declarations {
		p.walk(c)
	}
	for _, c := range n.Members {
		p.walk(c)
	}
	for _, c := range n.Handlers {
		p.walk(c)
	}
	for _, c := range n.Sequence {
		p.walk(c)
	}
}

// CollectFromModule walks every ASSIGN_LITERAL in an already-generated IR
// module and collects the text of each ir.StringRef payload. The generator
// synthesizes names (constructor tags, closure `__fn__` markers, method
// qualifiers) that never appear verbatim in the source AST, so a pool built
// only from Collect(ast) would miss them; this closes that gap before
// Finalize runs, guaranteeing every string codegen will later ask for via
// GetStringID was actually collected.
func (p *Pool) CollectFromModule(mod *ir.Module) {
	if p.finalized {
		panic("strpool: CollectFromModule called after Finalize")
	}
	mod.Walk(func(s *ir.State) {
		if s.Op != ir.ASSIGN_LITERAL {
			return
		}
		if ref, ok := s.Value.(ir.StringRef); ok {
			p.collect(ref.Text)
		}
	})
}

// Finalize shuffles the collected strings (Fisher-Yates, spec.md §4.1),
// assigns dense ids, and optionally conceals every entry. After Finalize,
// GetStringID must succeed for every previously collected string.
func (p *Pool) Finalize(src *rng.Source, conceal bool) {
	if p.finalized {
		return
	}
	idxs := make([]int, len(p.order))
	for i := range idxs {
		idxs[i] = i
	}
	src.ShuffleInts(idxs)

	p.final = make([]Entry, len(p.order))
	p.entries = make(map[string]int, len(p.order))
	for denseID, origIdx := range idxs {
		s := p.order[origIdx]
		p.entries[s] = denseID
		entry := Entry{Plain: s}
		if conceal {
			var seed [SeedSize]byte
			copy(seed[:], src.Fork(s).Bytes(SeedSize))
			entry.Payload = Conceal([]byte(s), seed)
			entry.Concealed = true
		}
		p.final[denseID] = entry
	}
	p.finalized = true
}

// GetStringID returns the dense id assigned to s. Returns MissingString if
// s was never collected (spec.md §4.1 "getStringId(s) fails with
// MissingString"), or if Finalize has not run, since dense ids are assigned
// there.
func (p *Pool) GetStringID(s string) (int, error) {
	if !p.finalized {
		return 0, vortexerr.New(vortexerr.MissingString, "string %q requested before the pool was finalized", s)
	}
	id, ok := p.entries[s]
	if !ok {
		return 0, vortexerr.New(vortexerr.MissingString, "string %q was never collected into the pool", s)
	}
	return id, nil
}

// Entries returns the finalized, dense-id-ordered pool contents. Panics if
// called before Finalize.
func (p *Pool) Entries() []Entry {
	if !p.finalized {
		panic("strpool: Entries called before Finalize")
	}
	return p.final
}

// Len returns the number of distinct collected strings.
func (p *Pool) Len() int {
	return len(p.order)
}
