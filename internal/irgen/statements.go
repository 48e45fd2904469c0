package irgen

import (
	"github.com/vortex-obf/vortexc/internal/ast"
	"github.com/vortex-obf/vortexc/internal/ir"
	"github.com/vortex-obf/vortexc/internal/vortexerr"
)

// genStmt dispatches one statement to its lowering, returning the {start,
// end} pair spec.md §4.3 describes. It is the statement-handler table from
// spec.md §4.3 made concrete.
func (g *Generator) genStmt(n *ast.Node) edge {
	switch n.Kind {
	case ast.BlockStmt:
		return g.genBlock(n)
	case ast.ExprStmt:
		r := g.genExpr(n.Object)
		return edge{r.start, r.end}
	case ast.VarDecl:
		return g.genVarDecl(n)
	case ast.IfStmt:
		return g.genIf(n)
	case ast.WhileStmt:
		return g.genWhile(n)
	case ast.DoWhileStmt:
		return g.genDoWhile(n)
	case ast.ForStmt:
		return g.genFor(n)
	case ast.ForOfStmt:
		return g.genForOf(n)
	case ast.ForInStmt:
		return g.genForIn(n)
	case ast.SwitchStmt:
		return g.genSwitch(n)
	case ast.TryStmt:
		return g.genTry(n)
	case ast.ThrowStmt:
		return g.genThrow(n)
	case ast.ReturnStmt:
		return g.genReturn(n)
	case ast.BreakStmt:
		return g.genBreak(n)
	case ast.ContinueStmt:
		return g.genContinue(n)
	case ast.FuncDecl:
		g.genFuncDecl(n)
		noop := g.mod.New(ir.NOOP)
		return edge{noop.ID, noop.ID}
	case ast.ClassDecl:
		return g.genClassDecl(n)
	case ast.LabeledStmt:
		return g.genLabeled(n)
	case ast.EmptyStmt:
		noop := g.mod.New(ir.NOOP)
		return edge{noop.ID, noop.ID}
	default:
		g.fail(vortexerr.At(vortexerr.UnsupportedSyntax, n.Pos, "statement kind %d not supported", n.Kind))
		noop := g.mod.New(ir.NOOP)
		return edge{noop.ID, noop.ID}
	}
}

func (g *Generator) genBlock(n *ast.Node) edge {
	g.pushScope()
	defer g.popScope()

	head := g.mod.New(ir.NOOP)
	last := head.ID
	for _, stmt := range n.Body2 {
		e := g.genStmt(stmt)
		g.link(last, e.start)
		last = e.end
	}
	return edge{head.ID, last}
}

func (g *Generator) genVarDecl(n *ast.Node) edge {
	head := g.mod.New(ir.NOOP)
	last := head.ID
	for _, decl := range n.Declarations {
		if decl.Right == nil {
			// `let x;` with no initializer still needs its binding(s)
			// allocated so later reads resolve.
			g.bindPattern(decl.Id)
			continue
		}
		r := g.genExpr(decl.Right)
		g.link(last, r.start)
		last = r.end
		assignEnd := g.genDestructureAssign(decl.Id, r.resultVar, true)
		g.link(last, assignEnd.start)
		last = assignEnd.end
	}
	return edge{head.ID, last}
}

// bindPattern recursively allocates a memory slot for every identifier in a
// binding pattern without emitting any assignment (for declarations with no
// initializer).
func (g *Generator) bindPattern(pat *ast.Node) {
	switch pat.Kind {
	case ast.Ident:
		g.bind(pat.Name, false)
	case ast.ArrayPattern:
		for _, el := range pat.Elements {
			if el != nil {
				g.bindPattern(el)
			}
		}
	case ast.ObjectPattern:
		for _, p := range pat.Properties {
			g.bindPattern(p.Property2)
		}
	case ast.AssignPattern:
		g.bindPattern(pat.Left)
	case ast.RestElement:
		g.bindPattern(pat.Argument)
	}
}

func (g *Generator) genIf(n *ast.Node) edge {
	test := g.genExpr(n.Test)
	cons := g.genStmt(n.Consequent)

	endNoop := g.mod.New(ir.NOOP)
	g.link(cons.end, endNoop.ID)

	var altStart int
	if n.Alternate != nil {
		alt := g.genStmt(n.Alternate)
		g.link(alt.end, endNoop.ID)
		altStart = alt.start
	} else {
		altStart = endNoop.ID
	}

	cj := g.mod.New(ir.COND_JUMP)
	cj.TestVar = test.resultVar
	cj.TrueState = cons.start
	cj.FalseState = altStart
	g.link(test.end, cj.ID)

	return edge{test.start, endNoop.ID}
}

func (g *Generator) genWhile(n *ast.Node) edge {
	head := g.mod.New(ir.NOOP) // head -> test
	endNoop := g.mod.New(ir.NOOP)

	g.ctrl = append(g.ctrl, ctrlEntry{kind: ctrlLoop, breakTarget: endNoop.ID, continueTarget: head.ID, label: g.takeLabel()})
	test := g.genExpr(n.Test)
	g.link(head.ID, test.start)

	cj := g.mod.New(ir.COND_JUMP)
	cj.TestVar = test.resultVar
	g.link(test.end, cj.ID)

	body := g.genStmt(n.Body)
	cj.TrueState = body.start
	cj.FalseState = endNoop.ID
	g.link(body.end, head.ID)

	g.ctrl = g.ctrl[:len(g.ctrl)-1]
	return edge{head.ID, endNoop.ID}
}

func (g *Generator) genDoWhile(n *ast.Node) edge {
	bodyHead := g.mod.New(ir.NOOP)
	endNoop := g.mod.New(ir.NOOP)

	g.ctrl = append(g.ctrl, ctrlEntry{kind: ctrlLoop, breakTarget: endNoop.ID, label: g.takeLabel()})
	body := g.genStmt(n.Body)
	g.link(bodyHead.ID, body.start)

	test := g.genExpr(n.Test)
	g.link(body.end, test.start)
	g.ctrl[len(g.ctrl)-1].continueTarget = test.start

	cj := g.mod.New(ir.COND_JUMP)
	cj.TestVar = test.resultVar
	cj.TrueState = bodyHead.ID
	cj.FalseState = endNoop.ID
	g.link(test.end, cj.ID)

	g.ctrl = g.ctrl[:len(g.ctrl)-1]
	return edge{bodyHead.ID, endNoop.ID}
}

func (g *Generator) genFor(n *ast.Node) edge {
	g.pushScope()
	defer g.popScope()

	head := g.mod.New(ir.NOOP)
	last := head.ID
	if n.Init != nil {
		var ie edge
		if n.Init.Kind == ast.VarDecl {
			ie = g.genVarDecl(n.Init)
		} else {
			r := g.genExpr(n.Init)
			ie = edge{r.start, r.end}
		}
		g.link(last, ie.start)
		last = ie.end
	}

	condHead := g.mod.New(ir.NOOP)
	g.link(last, condHead.ID)

	endNoop := g.mod.New(ir.NOOP)
	updateHead := g.mod.New(ir.NOOP)

	g.ctrl = append(g.ctrl, ctrlEntry{kind: ctrlLoop, breakTarget: endNoop.ID, continueTarget: updateHead.ID, label: g.takeLabel()})

	cj := g.mod.New(ir.COND_JUMP)
	if n.Test != nil {
		test := g.genExpr(n.Test)
		g.link(condHead.ID, test.start)
		g.link(test.end, cj.ID)
		cj.TestVar = test.resultVar
	} else {
		// No test: always-true loop, matching a bare `for(;;)`.
		lit := g.mod.New(ir.ASSIGN_LITERAL)
		lit.To = g.freshTemp()
		lit.Value = true
		g.link(condHead.ID, lit.ID)
		g.link(lit.ID, cj.ID)
		cj.TestVar = lit.To
	}

	body := g.genStmt(n.Body)
	cj.TrueState = body.start
	cj.FalseState = endNoop.ID
	g.link(body.end, updateHead.ID)

	if n.Update != nil {
		u := g.genExpr(n.Update)
		g.link(updateHead.ID, u.start)
		g.link(u.end, condHead.ID)
	} else {
		g.link(updateHead.ID, condHead.ID)
	}

	g.ctrl = g.ctrl[:len(g.ctrl)-1]
	return edge{head.ID, endNoop.ID}
}

// genForOf lowers `for (x of iterable)` as an index/length walk over the
// iterable's elements. The Symbol.iterator protocol is not used: only
// array-like values (a length plus indexed elements) iterate, and no
// iterator.return() cleanup runs when the loop exits early.
func (g *Generator) genForOf(n *ast.Node) edge {
	iterable := g.genExpr(n.Right)
	return g.lowerForEach(n, iterable)
}

// genForIn lowers `for (k in obj)` over obj's own enumerable key names,
// obtained via a call to the host's Object.keys (spec.md §4.3), then reuses
// the same index/length walk genForOf does since the keys array already
// holds exactly what for-in should bind.
func (g *Generator) genForIn(n *ast.Node) edge {
	obj := g.genExpr(n.Right)
	last := obj.end

	objGlobal := g.mod.New(ir.MEMBER_ACCESS_GLOBAL)
	objGlobal.GlobalName = "Object"
	objGlobal.To = g.freshTemp()
	g.link(last, objGlobal.ID)

	keysFn := g.mod.New(ir.MEMBER_ACCESS)
	keysFn.Object = objGlobal.To
	keysFn.Property = "keys"
	keysFn.To = g.freshTemp()
	g.link(objGlobal.ID, keysFn.ID)

	call := g.mod.New(ir.EXTERNAL_CALL)
	call.CalleeVar = keysFn.To
	call.Args = []int{obj.resultVar}
	call.ValueVar = g.freshTemp()
	g.link(keysFn.ID, call.ID)

	keys := exprResult{obj.start, call.ID, call.ValueVar}
	return g.lowerForEach(n, keys)
}

// lowerForEach shares the index/length loop skeleton between for-of and
// for-in: it evaluates to `for (let i = 0; i < iterable.length; i++) {
// bind iterable[i]; body }`.
func (g *Generator) lowerForEach(n *ast.Node, iterable exprResult) edge {
	g.pushScope()
	defer g.popScope()

	idx := g.freshTemp()
	zero := g.mod.New(ir.ASSIGN_LITERAL)
	zero.To = idx
	zero.Value = float64(0)
	g.link(iterable.end, zero.ID)

	lenAccess := g.mod.New(ir.MEMBER_ACCESS)
	lenAccess.Object = iterable.resultVar
	lenAccess.Property = "length"
	lenAccess.To = g.freshTemp()
	g.link(zero.ID, lenAccess.ID)

	condHead := g.mod.New(ir.NOOP)
	g.link(lenAccess.ID, condHead.ID)

	cmp := g.mod.New(ir.BINARY)
	cmp.Operator = "<"
	cmp.Left = idx
	cmp.Right = lenAccess.To
	cmp.To = g.freshTemp()
	g.link(condHead.ID, cmp.ID)

	endNoop := g.mod.New(ir.NOOP)
	updateHead := g.mod.New(ir.NOOP)
	g.ctrl = append(g.ctrl, ctrlEntry{kind: ctrlLoop, breakTarget: endNoop.ID, continueTarget: updateHead.ID, label: g.takeLabel()})

	elem := g.mod.New(ir.MEMBER_ACCESS_COMPUTED)
	elem.Object = iterable.resultVar
	elem.Computed = true
	elem.KeyVar = idx
	elem.To = g.freshTemp()

	pattern := n.Left
	declare := false
	if n.Left.Kind == ast.VarDecl {
		pattern = n.Left.Declarations[0].Id
		declare = true
	}
	bindEdge := g.genDestructureAssign(pattern, elem.To, declare)
	g.link(elem.ID, bindEdge.start)

	body := g.genStmt(n.Body)
	g.link(bindEdge.end, body.start)

	cj := g.mod.New(ir.COND_JUMP)
	cj.TestVar = cmp.To
	cj.TrueState = elem.ID
	cj.FalseState = endNoop.ID
	g.link(cmp.ID, cj.ID)

	g.link(body.end, updateHead.ID)
	incLast := updateHead.ID
	one := g.literalIndex(1, &incLast)
	inc := g.mod.New(ir.BINARY)
	inc.Operator = "+"
	inc.Left = idx
	inc.Right = one
	inc.To = idx
	g.link(incLast, inc.ID)
	g.link(inc.ID, condHead.ID)

	g.ctrl = g.ctrl[:len(g.ctrl)-1]
	return edge{iterable.start, endNoop.ID}
}

func (g *Generator) genSwitch(n *ast.Node) edge {
	disc := g.genExpr(n.Discriminant)
	endNoop := g.mod.New(ir.NOOP)
	g.ctrl = append(g.ctrl, ctrlEntry{kind: ctrlSwitch, breakTarget: endNoop.ID, label: g.takeLabel()})
	defer func() { g.ctrl = g.ctrl[:len(g.ctrl)-1] }()

	type caseBody struct {
		testStart, bodyStart, bodyEnd int
		isDefault                     bool
		fallsThrough                  bool
	}
	bodies := make([]caseBody, len(n.Cases))

	// Lower each case body first so forward references (fallthrough,
	// default target) are all known ids (spec.md §4.3 "switch" lowering).
	for i, c := range n.Cases {
		g.pushScope()
		head := g.mod.New(ir.NOOP)
		last := head.ID
		for _, stmt := range c.Body2 {
			e := g.genStmt(stmt)
			g.link(last, e.start)
			last = e.end
		}
		g.popScope()
		bodies[i] = caseBody{bodyStart: head.ID, bodyEnd: last, isDefault: c.Test == nil}
		bodies[i].fallsThrough = !endsInBreak(c.Body2)
	}
	// Wire fallthrough: case i's body end links to case i+1's body start
	// unless the last statement was `break` (spec.md §4.3 switch row).
	for i := range bodies {
		if bodies[i].fallsThrough && i+1 < len(bodies) {
			g.link(bodies[i].bodyEnd, bodies[i+1].bodyStart)
		} else {
			g.link(bodies[i].bodyEnd, endNoop.ID)
		}
	}

	defaultTarget := endNoop.ID
	for _, b := range bodies {
		if b.isDefault {
			defaultTarget = b.bodyStart
		}
	}

	// Chain of COND_JUMP pairs comparing the discriminant with each case
	// test (spec.md §4.3 switch row), skipping the default case (handled
	// via the fallback target of the final comparison).
	chainStart := -1
	prevFalse := -1
	for i, c := range n.Cases {
		if c.Test == nil {
			continue // default handled as the fallback target
		}
		testVal := g.genExpr(c.Test)
		if chainStart == -1 {
			chainStart = testVal.start
		} else {
			g.link(prevFalse, testVal.start)
		}
		cmp := g.mod.New(ir.BINARY)
		cmp.Operator = "==="
		cmp.Left = disc.resultVar
		cmp.Right = testVal.resultVar
		cmp.To = g.freshTemp()
		g.link(testVal.end, cmp.ID)

		cj := g.mod.New(ir.COND_JUMP)
		cj.TestVar = cmp.To
		cj.TrueState = bodies[i].bodyStart
		g.link(cmp.ID, cj.ID)

		prevFalse = cj.ID
	}
	if chainStart == -1 {
		// No non-default cases: discriminant is still evaluated for its
		// side effects, then jump straight to default/end.
		g.link(disc.end, defaultTarget)
		return edge{disc.start, endNoop.ID}
	}
	g.mod.Get(prevFalse).FalseState = defaultTarget
	g.link(disc.end, chainStart)

	return edge{disc.start, endNoop.ID}
}

func endsInBreak(stmts []*ast.Node) bool {
	if len(stmts) == 0 {
		return false
	}
	last := stmts[len(stmts)-1]
	return last.Kind == ast.BreakStmt && last.Label == nil
}

func (g *Generator) genBreak(n *ast.Node) edge {
	target, finallyStart, ok := g.breakTarget(labelName(n))
	if !ok {
		g.fail(vortexerr.At(vortexerr.IllegalJump, n.Pos, "break with no enclosing loop or switch"))
		noop := g.mod.New(ir.NOOP)
		return edge{noop.ID, noop.ID}
	}
	return g.exitVia(target, ir.FinBreak, finallyStart)
}

func (g *Generator) genContinue(n *ast.Node) edge {
	target, finallyStart, ok := g.continueTarget(labelName(n))
	if !ok {
		g.fail(vortexerr.At(vortexerr.IllegalJump, n.Pos, "continue with no enclosing loop"))
		noop := g.mod.New(ir.NOOP)
		return edge{noop.ID, noop.ID}
	}
	return g.exitVia(target, ir.FinContinue, finallyStart)
}

func labelName(n *ast.Node) string {
	if n.Label == nil {
		return ""
	}
	return n.Label.Name
}

// breakTarget / continueTarget walk the control stack outward from the top,
// returning the first matching loop/switch's target and the nearest
// enclosing try's finallyStart encountered along the way (spec.md §4.3.1).
func (g *Generator) breakTarget(label string) (target, finallyStart int, ok bool) {
	finallyStart = -1
	for i := len(g.ctrl) - 1; i >= 0; i-- {
		e := g.ctrl[i]
		if e.kind == ctrlTry && finallyStart == -1 && e.finallyStart >= 0 {
			finallyStart = e.finallyStart
		}
		if (e.kind == ctrlLoop || e.kind == ctrlSwitch) && (label == "" || e.label == label) {
			return e.breakTarget, finallyStart, true
		}
	}
	return 0, finallyStart, false
}

func (g *Generator) continueTarget(label string) (target, finallyStart int, ok bool) {
	finallyStart = -1
	for i := len(g.ctrl) - 1; i >= 0; i-- {
		e := g.ctrl[i]
		if e.kind == ctrlTry && finallyStart == -1 && e.finallyStart >= 0 {
			finallyStart = e.finallyStart
		}
		if e.kind == ctrlLoop && (label == "" || e.label == label) {
			return e.continueTarget, finallyStart, true
		}
	}
	return 0, finallyStart, false
}

func (g *Generator) genLabeled(n *ast.Node) edge {
	// Only loops/switches are meaningfully labeled targets for break/continue
	// (spec.md §4.3.1); the label is consumed by the loop/switch lowering
	// itself via g.pendingLabel when it pushes its ctrlEntry.
	prev := g.pendingLabel
	g.pendingLabel = n.Name
	e := g.genStmt(n.Body)
	g.pendingLabel = prev
	return e
}

// takeLabel consumes and clears any pending label set by genLabeled, for
// the loop/switch lowering about to push a ctrlEntry.
func (g *Generator) takeLabel() string {
	l := g.pendingLabel
	g.pendingLabel = ""
	return l
}
