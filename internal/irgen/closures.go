package irgen

import (
	"github.com/vortex-obf/vortexc/internal/ast"
	"github.com/vortex-obf/vortexc/internal/ir"
)

// genFuncDecl lowers a named function declaration, reusing the FUNC_ENTRY
// allocated by declareFuncEntries if one already exists for this name
// (spec.md §4.3 "Pass 1"), or creating one on the spot for a nested
// declaration discovered mid-statement-walk.
func (g *Generator) genFuncDecl(n *ast.Node) {
	entryID, ok := g.mod.FuncTable[n.Name]
	if !ok {
		fe := g.mod.New(ir.FUNC_ENTRY)
		fe.Name = n.Name
		fe.IsAsync = n.IsAsync
		fe.IsGenerator = n.IsGenerator
		g.mod.FuncTable[n.Name] = fe.ID
		entryID = fe.ID
	}
	g.lowerFunctionBody(entryID, n.Name, n.Params, n.Body, n.IsAsync, n.IsGenerator)
}

// genFuncExpr lowers a function/arrow expression used as a value (assigned
// to a variable, passed as a callback, returned): it synthesizes a name,
// lowers the body exactly like a declaration, then builds a closure
// descriptor value carrying its captured bindings (spec.md §4.3.2).
func (g *Generator) genFuncExpr(n *ast.Node) exprResult {
	name := g.synthName("_closure")
	entry := g.mod.New(ir.FUNC_ENTRY)
	entry.Name = name
	entry.IsAsync = n.IsAsync
	entry.IsGenerator = n.IsGenerator
	g.mod.FuncTable[name] = entry.ID

	g.lowerFunctionBody(entry.ID, name, n.Params, n.Body, n.IsAsync, n.IsGenerator)

	return g.buildClosureValue(name)
}

// buildClosureValue materializes a closure as a plain object carrying the
// target function's pool-interned name under "__fn__" plus one property
// per captured binding's current value (by-value snapshot, spec.md
// §4.3.2). EXTERNAL_CALL/METHOD_CALL against such a value is a runtime
// concern resolved by the generated dispatcher, not by the IR generator.
func (g *Generator) buildClosureValue(name string) exprResult {
	head := g.mod.New(ir.NOOP)
	last := head.ID

	fnLit := g.mod.New(ir.ASSIGN_LITERAL)
	fnLit.To = g.freshTemp()
	fnLit.Value = ir.StringRef{Text: name}
	g.link(last, fnLit.ID)
	last = fnLit.ID

	props := []ir.Property{{KeyName: "__fn__", ValueVar: fnLit.To}}
	for _, capName := range g.captures[name] {
		idx, _, _ := g.resolve(capName)
		props = append(props, ir.Property{KeyName: capName, ValueVar: idx})
	}

	create := g.mod.New(ir.CREATE_OBJECT)
	create.Properties = props
	create.To = g.freshTemp()
	g.link(last, create.ID)

	return exprResult{head.ID, create.ID, create.To}
}

// lowerFunctionBody lowers params and body into states reachable from
// entryID, wiring the capture list freeVarsOf discovered as trailing
// FUNC_ENTRY parameters (spec.md §4.3.2) and hoisting nested function
// declarations before processing statements (spec.md §4.3 "Pass 1"
// generalized to function scope).
func (g *Generator) lowerFunctionBody(entryID int, name string, params []*ast.Node, body *ast.Node, isAsync, isGenerator bool) {
	captured := freeVarsOf(params, body, name)
	g.captures[name] = captured

	fc := &funcCtx{
		name:        name,
		isGenerator: isGenerator,
		isAsync:     isAsync,
		ownNames:    make(map[string]bool),
		capturedSet: make(map[string]bool),
	}
	g.funcs = append(g.funcs, fc)
	g.pushScope()

	paramSlots, preludeStart, preludeEnd := g.bindParams(params)
	var capturedSlots []int
	for _, capName := range captured {
		capturedSlots = append(capturedSlots, g.bind(capName, false))
	}

	fe := g.mod.Get(entryID)
	fe.Params = append(paramSlots, capturedSlots...)
	fe.Name = name
	fe.IsAsync = isAsync
	fe.IsGenerator = isGenerator

	if body.Kind == ast.BlockStmt {
		g.declareFuncEntries(body.Body2)
	}

	g.link(entryID, preludeStart)
	bodyEdge := g.genStmt(body)
	g.link(preludeEnd, bodyEdge.start)

	last := g.mod.Get(bodyEdge.end)
	if !last.Op.Terminal() {
		undef := g.mod.New(ir.ASSIGN_LITERAL)
		undef.To = g.freshTemp()
		g.link(bodyEdge.end, undef.ID)
		ret := g.mod.New(ir.RETURN)
		ret.ValueVar = undef.To
		g.link(undef.ID, ret.ID)
	}

	g.popScope()
	g.funcs = g.funcs[:len(g.funcs)-1]
}

// bindParams allocates a slot per parameter, returning the slots in
// declaration order plus the {start,end} of any destructuring/default-value
// prelude required for non-identifier parameters.
func (g *Generator) bindParams(params []*ast.Node) (slots []int, preludeStart, preludeEnd int) {
	head := g.mod.New(ir.NOOP)
	last := head.ID
	for i, p := range params {
		if p.Kind == ast.Ident {
			slots = append(slots, g.bind(p.Name, false))
			continue
		}
		slot := g.bind(tempParamName(i), false)
		slots = append(slots, slot)
		e := g.genDestructureAssign(p, slot, true)
		g.link(last, e.start)
		last = e.end
	}
	return slots, head.ID, last
}

func tempParamName(i int) string {
	return "_param$" + itoa(i)
}
