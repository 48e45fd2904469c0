package irgen

import (
	"github.com/vortex-obf/vortexc/internal/ast"
	"github.com/vortex-obf/vortexc/internal/ir"
	"github.com/vortex-obf/vortexc/internal/memory"
	"github.com/vortex-obf/vortexc/internal/vortexerr"
)

// genExpr dispatches one expression to its lowering, returning the
// {start,end,resultVar} triple spec.md §4.3 "Expression handlers"
// describes: resultVar is always a fresh `_temp$N` slot (spec.md §4.3.4),
// never reused across expressions.
func (g *Generator) genExpr(n *ast.Node) exprResult {
	switch n.Kind {
	case ast.Ident:
		return g.genIdent(n)
	case ast.ThisExpr:
		return g.single(ir.ASSIGN, memory.Slot(memory.THIS))
	case ast.NewTargetExpr:
		return g.single(ir.ASSIGN, memory.Slot(memory.NEWTARGET))
	case ast.NumberLit, ast.BooleanLit, ast.NullLit:
		return g.genLiteral(n)
	case ast.StringLit:
		return g.genStringLit(n)
	case ast.TemplateLit:
		return g.genTemplateLit(n)
	case ast.ArrayLit:
		return g.genArrayLit(n)
	case ast.ObjectLit:
		return g.genObjectLit(n)
	case ast.MemberExpr:
		return g.genMemberRead(n)
	case ast.AssignExpr:
		return g.genAssignExpr(n)
	case ast.BinaryExpr:
		return g.genBinary(n)
	case ast.LogicalExpr:
		return g.genLogical(n)
	case ast.UnaryExpr:
		return g.genUnary(n)
	case ast.UpdateExpr:
		return g.genUpdate(n)
	case ast.ConditionalExpr:
		return g.genConditional(n)
	case ast.CallExpr:
		return g.genCall(n)
	case ast.NewExpr:
		return g.genNew(n)
	case ast.SequenceExpr:
		return g.genSequence(n)
	case ast.AwaitExpr:
		return g.genAwait(n)
	case ast.YieldExpr:
		return g.genYield(n)
	case ast.FuncExpr, ast.ArrowFuncExpr:
		return g.genFuncExpr(n)
	case ast.ClassExpr:
		return g.genClassExpr(n)
	default:
		g.fail(vortexerr.At(vortexerr.UnsupportedSyntax, n.Pos, "expression kind %d not supported", n.Kind))
		return g.single(ir.ASSIGN_LITERAL, -1)
	}
}

// single emits one state of the given op writing into a fresh temp and
// returns it as a degenerate {start,end,resultVar} triple. Used for the
// handful of expression forms that lower to exactly one state.
func (g *Generator) single(op ir.OpType, from int) exprResult {
	s := g.mod.New(op)
	t := g.freshTemp()
	s.To = t
	if op == ir.ASSIGN {
		s.From = from
	}
	return exprResult{s.ID, s.ID, t}
}

func (g *Generator) genIdent(n *ast.Node) exprResult {
	return g.readName(n.Name)
}

// readName reads a name through the lexical/global resolution rule shared
// by plain identifier reads and superclass lookups (spec.md §4.3
// "Identifiers").
func (g *Generator) readName(name string) exprResult {
	idx, isGlobal, _ := g.resolve(name)
	op := ir.ASSIGN
	if isGlobal && !isReservedSlotName(name) {
		op = ir.ASSIGN_GLOBAL
	}
	s := g.mod.New(op)
	t := g.freshTemp()
	s.To = t
	if op == ir.ASSIGN_GLOBAL {
		s.GlobalName = name
	} else {
		s.From = idx
	}
	return exprResult{s.ID, s.ID, t}
}

func isReservedSlotName(name string) bool {
	for _, r := range memory.ReservedNames {
		if r == name {
			return true
		}
	}
	return false
}

func (g *Generator) genLiteral(n *ast.Node) exprResult {
	s := g.mod.New(ir.ASSIGN_LITERAL)
	t := g.freshTemp()
	s.To = t
	s.Value = n.Value
	return exprResult{s.ID, s.ID, t}
}

// genStringLit tags the literal as pool-backed rather than embedding its
// text directly, so codegen resolves it through the finalized string pool
// (possibly concealed) instead of splicing plaintext into the program
// (spec.md §4.1, §6 "A string pool array").
func (g *Generator) genStringLit(n *ast.Node) exprResult {
	str, _ := n.Value.(string)
	s := g.mod.New(ir.ASSIGN_LITERAL)
	t := g.freshTemp()
	s.To = t
	s.Value = ir.StringRef{Text: str}
	return exprResult{s.ID, s.ID, t}
}

func (g *Generator) genTemplateLit(n *ast.Node) exprResult {
	// Fold to `+` chains of concealed string accesses and expression
	// values (spec.md §4.3 "Template literals").
	lit0 := g.mod.New(ir.ASSIGN_LITERAL)
	lit0.To = g.freshTemp()
	lit0.Value = ir.StringRef{Text: n.Quasis[0]}
	start := lit0.ID
	last := lit0.ID
	result := lit0.To

	for i, expr := range n.Exprs {
		er := g.genExpr(expr)
		g.link(last, er.start)
		last = er.end

		bin := g.mod.New(ir.BINARY)
		bin.Operator = "+"
		bin.Left = result
		bin.Right = er.resultVar
		bin.To = g.freshTemp()
		g.link(last, bin.ID)
		last = bin.ID
		result = bin.To

		if i+1 < len(n.Quasis) && n.Quasis[i+1] != "" {
			litQ := g.mod.New(ir.ASSIGN_LITERAL)
			litQ.To = g.freshTemp()
			litQ.Value = ir.StringRef{Text: n.Quasis[i+1]}
			g.link(last, litQ.ID)
			last = litQ.ID

			bin2 := g.mod.New(ir.BINARY)
			bin2.Operator = "+"
			bin2.Left = result
			bin2.Right = litQ.To
			bin2.To = g.freshTemp()
			g.link(last, bin2.ID)
			last = bin2.ID
			result = bin2.To
		}
	}
	return exprResult{start, last, result}
}

func (g *Generator) genArrayLit(n *ast.Node) exprResult {
	head := g.mod.New(ir.NOOP)
	last := head.ID
	elements := make([]int, 0, len(n.Elements))
	spreadVar := -1
	for _, el := range n.Elements {
		if el == nil {
			elements = append(elements, -1) // hole
			continue
		}
		if el.Kind == ast.SpreadElement {
			r := g.genExpr(el.Argument)
			g.link(last, r.start)
			last = r.end
			spreadVar = r.resultVar
			continue
		}
		r := g.genExpr(el)
		g.link(last, r.start)
		last = r.end
		elements = append(elements, r.resultVar)
	}
	create := g.mod.New(ir.CREATE_ARRAY)
	create.Elements = elements
	create.SpreadVar = spreadVar
	create.To = g.freshTemp()
	g.link(last, create.ID)
	return exprResult{head.ID, create.ID, create.To}
}

func (g *Generator) genObjectLit(n *ast.Node) exprResult {
	head := g.mod.New(ir.NOOP)
	last := head.ID
	var props []ir.Property
	for _, p := range n.Properties {
		if p.Kind == ast.SpreadElement {
			r := g.genExpr(p.Argument)
			g.link(last, r.start)
			last = r.end
			props = append(props, ir.Property{Spread: true, ValueVar: r.resultVar})
			continue
		}
		val := g.genExpr(p.Property2)
		g.link(last, val.start)
		last = val.end

		entry := ir.Property{ValueVar: val.resultVar}
		if p.Computed {
			keyR := g.genExpr(p.Left)
			g.link(last, keyR.start)
			last = keyR.end
			entry.Computed = true
			entry.KeyVar = keyR.resultVar
		} else {
			entry.KeyName = p.Name
		}
		props = append(props, entry)
	}
	create := g.mod.New(ir.CREATE_OBJECT)
	create.Properties = props
	create.To = g.freshTemp()
	g.link(last, create.ID)
	return exprResult{head.ID, create.ID, create.To}
}

func (g *Generator) genMemberRead(n *ast.Node) exprResult {
	if n.Object.Kind == ast.SuperExpr {
		return g.genSuperPropertyRef(n)
	}
	obj := g.genExpr(n.Object)
	if n.IsPrivate {
		return g.privateGet(n.Name, obj)
	}
	op := ir.MEMBER_ACCESS
	if n.Computed {
		op = ir.MEMBER_ACCESS_COMPUTED
	}
	s := g.mod.New(op)
	s.Object = obj.resultVar
	s.Computed = n.Computed
	if n.Computed {
		key := g.genExpr(n.Property2)
		g.link(obj.end, key.start)
		s.KeyVar = key.resultVar
		s.To = g.freshTemp()
		g.link(key.end, s.ID)
		return exprResult{obj.start, s.ID, s.To}
	}
	s.Property = n.Name
	s.To = g.freshTemp()
	g.link(obj.end, s.ID)
	return exprResult{obj.start, s.ID, s.To}
}

func (g *Generator) genBinary(n *ast.Node) exprResult {
	l := g.genExpr(n.Left)
	r := g.genExpr(n.Right)
	g.link(l.end, r.start)
	s := g.mod.New(ir.BINARY)
	s.Operator = n.Op
	s.Left = l.resultVar
	s.Right = r.resultVar
	s.To = g.freshTemp()
	g.link(r.end, s.ID)
	return exprResult{l.start, s.ID, s.To}
}

func (g *Generator) genUnary(n *ast.Node) exprResult {
	operand := g.genExpr(n.Argument)
	s := g.mod.New(ir.UNARY)
	s.Operator = n.Op
	s.Operand = operand.resultVar
	s.To = g.freshTemp()
	g.link(operand.end, s.ID)
	return exprResult{operand.start, s.ID, s.To}
}

// genLogical implements short-circuit `&&`/`||` via COND_JUMP with two
// ASSIGN branches converging on an end NOOP (spec.md §4.3).
func (g *Generator) genLogical(n *ast.Node) exprResult {
	l := g.genExpr(n.Left)
	result := g.freshTemp()

	copyLeft := g.mod.New(ir.ASSIGN)
	copyLeft.To = result
	copyLeft.From = l.resultVar

	r := g.genExpr(n.Right)
	copyRight := g.mod.New(ir.ASSIGN)
	copyRight.To = result
	copyRight.From = r.resultVar
	g.link(r.end, copyRight.ID)

	endNoop := g.mod.New(ir.NOOP)
	g.link(copyLeft.ID, endNoop.ID)
	g.link(copyRight.ID, endNoop.ID)

	cj := g.mod.New(ir.COND_JUMP)
	cj.TestVar = l.resultVar
	if n.Op == "&&" {
		cj.TrueState = r.start
		cj.FalseState = copyLeft.ID
	} else { // "||"
		cj.TrueState = copyLeft.ID
		cj.FalseState = r.start
	}
	g.link(l.end, cj.ID)

	return exprResult{l.start, endNoop.ID, result}
}

func (g *Generator) genConditional(n *ast.Node) exprResult {
	test := g.genExpr(n.Test)
	result := g.freshTemp()

	cons := g.genExpr(n.Consequent)
	copyCons := g.mod.New(ir.ASSIGN)
	copyCons.To = result
	copyCons.From = cons.resultVar
	g.link(cons.end, copyCons.ID)

	alt := g.genExpr(n.Alternate)
	copyAlt := g.mod.New(ir.ASSIGN)
	copyAlt.To = result
	copyAlt.From = alt.resultVar
	g.link(alt.end, copyAlt.ID)

	endNoop := g.mod.New(ir.NOOP)
	g.link(copyCons.ID, endNoop.ID)
	g.link(copyAlt.ID, endNoop.ID)

	cj := g.mod.New(ir.COND_JUMP)
	cj.TestVar = test.resultVar
	cj.TrueState = cons.start
	cj.FalseState = alt.start
	g.link(test.end, cj.ID)

	return exprResult{test.start, endNoop.ID, result}
}

func (g *Generator) genUpdate(n *ast.Node) exprResult {
	// `x++`/`x--`/`++x`/`--x` desugar to a BINARY + assignment back to the
	// operand's storage location. Prefix forms yield the new value; postfix
	// forms yield the value read before the update.
	one := g.mod.New(ir.ASSIGN_LITERAL)
	one.To = g.freshTemp()
	one.Value = float64(1)

	cur := g.genExpr(n.Argument)
	g.link(one.ID, cur.start)

	op := "+"
	if n.Op == "--" {
		op = "-"
	}
	bin := g.mod.New(ir.BINARY)
	bin.Operator = op
	bin.Left = cur.resultVar
	bin.Right = one.To
	bin.To = g.freshTemp()
	g.link(cur.end, bin.ID)

	storeEnd := g.genStoreTo(n.Argument, bin.To)
	g.link(bin.ID, storeEnd.start)

	result := bin.To
	if !n.Prefix {
		result = cur.resultVar
	}
	return exprResult{one.ID, storeEnd.end, result}
}

// genStoreTo writes value into the storage location an lvalue expression
// names (Ident, MemberExpr), returning the {start,end} of the store.
func (g *Generator) genStoreTo(target *ast.Node, value int) edge {
	switch target.Kind {
	case ast.Ident:
		idx, isGlobal, _ := g.resolve(target.Name)
		if isGlobal && !isReservedSlotName(target.Name) {
			s := g.mod.New(ir.ASSIGN_GLOBAL)
			s.GlobalName = target.Name
			s.From = value
			s.To = idx
			return edge{s.ID, s.ID}
		}
		s := g.mod.New(ir.ASSIGN)
		s.To = idx
		s.From = value
		return edge{s.ID, s.ID}
	case ast.MemberExpr:
		obj := g.genExpr(target.Object)
		if target.IsPrivate {
			last := g.privateSet(target.Name, obj.resultVar, value, obj.end)
			return edge{obj.start, last}
		}
		op := ir.MEMBER_ASSIGN
		if target.Computed {
			op = ir.MEMBER_ASSIGN_COMPUTED
		}
		s := g.mod.New(op)
		s.Object = obj.resultVar
		s.From = value
		if target.Computed {
			key := g.genExpr(target.Property2)
			g.link(obj.end, key.start)
			s.KeyVar = key.resultVar
			g.link(key.end, s.ID)
			return edge{obj.start, s.ID}
		}
		s.Property = target.Name
		g.link(obj.end, s.ID)
		return edge{obj.start, s.ID}
	default:
		g.fail(vortexerr.At(vortexerr.UnsupportedSyntax, target.Pos, "invalid assignment target"))
		noop := g.mod.New(ir.NOOP)
		return edge{noop.ID, noop.ID}
	}
}

func (g *Generator) genAssignExpr(n *ast.Node) exprResult {
	if n.Left.IsPattern() && (n.Left.Kind == ast.ArrayPattern || n.Left.Kind == ast.ObjectPattern) {
		r := g.genExpr(n.Right)
		e := g.genDestructureAssign(n.Left, r.resultVar, false)
		g.link(r.end, e.start)
		return exprResult{r.start, e.end, r.resultVar}
	}
	if n.Op != "" && n.Op != "=" {
		// Compound assignment `x op= y`: read, BINARY, store.
		cur := g.genExpr(n.Left)
		rhs := g.genExpr(n.Right)
		g.link(cur.end, rhs.start)
		bin := g.mod.New(ir.BINARY)
		bin.Operator = n.Op[:len(n.Op)-1]
		bin.Left = cur.resultVar
		bin.Right = rhs.resultVar
		bin.To = g.freshTemp()
		g.link(rhs.end, bin.ID)
		store := g.genStoreTo(n.Left, bin.To)
		g.link(bin.ID, store.start)
		return exprResult{cur.start, store.end, bin.To}
	}
	rhs := g.genExpr(n.Right)
	store := g.genStoreTo(n.Left, rhs.resultVar)
	g.link(rhs.end, store.start)
	return exprResult{rhs.start, store.end, rhs.resultVar}
}

// genDestructureAssign recursively destructures pat, assigning from
// sourceVar (spec.md §4.3 "Assignment to a pattern: recursive destructure
// into MEMBER_ACCESS + ASSIGN chains"). declare controls whether Ident
// targets bind a fresh local (VarDecl context) or store to an existing
// resolved location (plain assignment context).
func (g *Generator) genDestructureAssign(pat *ast.Node, sourceVar int, declare bool) edge {
	switch pat.Kind {
	case ast.Ident:
		if declare {
			idx := g.bind(pat.Name, false)
			s := g.mod.New(ir.ASSIGN)
			s.To = idx
			s.From = sourceVar
			return edge{s.ID, s.ID}
		}
		return g.genStoreTo(pat, sourceVar)
	case ast.ArrayPattern:
		head := g.mod.New(ir.NOOP)
		last := head.ID
		for i, el := range pat.Elements {
			if el == nil {
				continue
			}
			if el.Kind == ast.RestElement {
				idxLit := g.literalIndex(i, &last)
				access := g.mod.New(ir.METHOD_CALL)
				access.ThisObject = sourceVar
				access.Callee = "slice"
				access.Args = []int{idxLit}
				access.ValueVar = g.freshTemp()
				g.link(last, access.ID)
				last = access.ID
				e := g.genDestructureAssign(el.Argument, access.ValueVar, declare)
				g.link(last, e.start)
				last = e.end
				continue
			}
			idxLit := g.literalIndex(i, &last)
			access := g.mod.New(ir.MEMBER_ACCESS_COMPUTED)
			access.Object = sourceVar
			access.Computed = true
			access.KeyVar = idxLit
			access.To = g.freshTemp()
			g.link(last, access.ID)
			last = access.ID

			target := el
			val := access.To
			if el.Kind == ast.AssignPattern {
				target = el.Left
				val = g.applyDefault(access.To, el.Right, &last)
			}
			e := g.genDestructureAssign(target, val, declare)
			g.link(last, e.start)
			last = e.end
		}
		return edge{head.ID, last}
	case ast.ObjectPattern:
		head := g.mod.New(ir.NOOP)
		last := head.ID
		for _, p := range pat.Properties {
			if p.Kind == ast.RestElement {
				// Rest-in-object-pattern binds the whole source object as
				// a direct alias; keys already destructured are not
				// omitted.
				e := g.genDestructureAssign(p.Argument, sourceVar, declare)
				g.link(last, e.start)
				last = e.end
				continue
			}
			var access *ir.State
			if p.Computed {
				key := g.genExpr(p.Left)
				g.link(last, key.start)
				last = key.end
				access = g.mod.New(ir.MEMBER_ACCESS_COMPUTED)
				access.KeyVar = key.resultVar
				access.Computed = true
			} else {
				access = g.mod.New(ir.MEMBER_ACCESS)
				access.Property = p.Name
			}
			access.Object = sourceVar
			access.To = g.freshTemp()
			g.link(last, access.ID)
			last = access.ID

			target := p.Property2
			val := access.To
			if target.Kind == ast.AssignPattern {
				inner := target
				target = inner.Left
				val = g.applyDefault(access.To, inner.Right, &last)
			}
			e := g.genDestructureAssign(target, val, declare)
			g.link(last, e.start)
			last = e.end
		}
		return edge{head.ID, last}
	case ast.AssignPattern:
		var last int
		val := g.applyDefault(sourceVar, pat.Right, &last)
		return g.genDestructureAssign(pat.Left, val, declare)
	case ast.RestElement:
		// Rest parameters bind to whatever value the caller supplied in
		// that position rather than collecting remaining arguments into an
		// array (the VM's calling convention is fixed-arity).
		return g.genDestructureAssign(pat.Argument, sourceVar, declare)
	default:
		return g.genStoreTo(pat, sourceVar)
	}
}

// applyDefault implements a pattern default value: `if (v === undefined) v
// = <default>`, appended after *last (which this call updates), returning
// the slot to use downstream (always sourceVar, mutated in place).
func (g *Generator) applyDefault(sourceVar int, def *ast.Node, last *int) int {
	undef := g.mod.New(ir.ASSIGN_LITERAL)
	undef.To = g.freshTemp()
	undef.Value = nil

	cmp := g.mod.New(ir.BINARY)
	cmp.Operator = "==="
	cmp.Left = sourceVar
	cmp.Right = undef.To
	cmp.To = g.freshTemp()
	g.link(undef.ID, cmp.ID)

	defVal := g.genExpr(def)
	assignDef := g.mod.New(ir.ASSIGN)
	assignDef.To = sourceVar
	assignDef.From = defVal.resultVar
	g.link(defVal.end, assignDef.ID)

	endNoop := g.mod.New(ir.NOOP)
	g.link(assignDef.ID, endNoop.ID)

	cj := g.mod.New(ir.COND_JUMP)
	cj.TestVar = cmp.To
	cj.TrueState = defVal.start
	cj.FalseState = endNoop.ID
	g.link(cmp.ID, cj.ID)

	if *last != 0 {
		g.link(*last, undef.ID)
	}
	*last = endNoop.ID
	return sourceVar
}

// literalIndex emits an ASSIGN_LITERAL materializing i, linked onto the
// chain at *last (which it advances), and returns the slot holding it.
func (g *Generator) literalIndex(i int, last *int) int {
	lit := g.mod.New(ir.ASSIGN_LITERAL)
	lit.To = g.freshTemp()
	lit.Value = float64(i)
	g.link(*last, lit.ID)
	*last = lit.ID
	return lit.To
}

func (g *Generator) genSequence(n *ast.Node) exprResult {
	head := g.mod.New(ir.NOOP)
	last := head.ID
	var result int
	for _, e := range n.Sequence {
		r := g.genExpr(e)
		g.link(last, r.start)
		last = r.end
		result = r.resultVar
	}
	return exprResult{head.ID, last, result}
}

func (g *Generator) genAwait(n *ast.Node) exprResult {
	operand := g.genExpr(n.Argument)
	s := g.mod.New(ir.AWAIT)
	s.ValueVar = operand.resultVar
	s.To = g.freshTemp()
	g.link(operand.end, s.ID)
	return exprResult{operand.start, s.ID, s.To}
}

// genCall implements spec.md §4.3 "Calls: if callee resolves to a known
// function, emit CALL + POST_CALL + RETRIEVE_RESULT... Otherwise emit
// EXTERNAL_CALL or METHOD_CALL."
func (g *Generator) genCall(n *ast.Node) exprResult {
	if n.Callee.Kind == ast.SuperExpr {
		return g.genSuperCtorCall(n)
	}
	if n.Callee.Kind == ast.FuncExpr || n.Callee.Kind == ast.ArrowFuncExpr {
		fx := n.Callee
		name := g.synthName("_iife")
		entry := g.mod.New(ir.FUNC_ENTRY)
		entry.Name = name
		entry.IsAsync = fx.IsAsync
		entry.IsGenerator = fx.IsGenerator
		g.mod.FuncTable[name] = entry.ID
		g.lowerFunctionBody(entry.ID, name, fx.Params, fx.Body, fx.IsAsync, fx.IsGenerator)
		return g.genKnownCall(n, name, -1)
	}
	if n.Callee.Kind == ast.Ident {
		if _, err := g.lookupFunc(n.Callee.Name); err == nil {
			return g.genKnownCall(n, n.Callee.Name, -1)
		}
	}
	if n.Callee.Kind == ast.MemberExpr {
		return g.genMethodCall(n)
	}
	return g.genExternalCall(n)
}

func (g *Generator) genArgs(args []*ast.Node, last *int) []int {
	out := make([]int, 0, len(args))
	for _, a := range args {
		r := g.genExpr(a)
		g.link(*last, r.start)
		*last = r.end
		out = append(out, r.resultVar)
	}
	return out
}

// genKnownCall lowers a call to a statically resolved function: the CALL
// state hands off to the callee's FUNC_ENTRY, the VM resumes at POST_CALL
// once the callee returns, and RETRIEVE_RESULT copies `_RET` into a fresh
// temp (spec.md §6).
func (g *Generator) genKnownCall(n *ast.Node, name string, thisVar int) exprResult {
	head := g.mod.New(ir.NOOP)
	last := head.ID
	args := g.genArgs(n.Args, &last)

	for _, capName := range g.captures[name] {
		idx, _, _ := g.resolve(capName)
		args = append(args, idx)
	}

	call := g.mod.New(ir.CALL)
	call.Callee = name
	call.Args = args
	call.ThisObject = thisVar
	if fc := g.curFunc(); fc != nil {
		call.CallerFuncName = fc.name
	}
	g.link(last, call.ID)

	post := g.mod.New(ir.POST_CALL)
	g.link(call.ID, post.ID)

	retrieve := g.mod.New(ir.RETRIEVE_RESULT)
	retrieve.From = memory.Slot(memory.RET)
	retrieve.To = g.freshTemp()
	g.link(post.ID, retrieve.ID)

	return exprResult{head.ID, retrieve.ID, retrieve.To}
}

func (g *Generator) genMethodCall(n *ast.Node) exprResult {
	m := n.Callee
	if m.Object.Kind == ast.SuperExpr {
		return g.genSuperMethodCall(n)
	}
	obj := g.genExpr(m.Object)
	last := obj.end

	call := g.mod.New(ir.METHOD_CALL)
	if m.Computed {
		key := g.genExpr(m.Property2)
		g.link(last, key.start)
		last = key.end
		call.Computed = true
		call.KeyVar = key.resultVar
	} else {
		call.Callee = m.Name
	}
	args := g.genArgs(n.Args, &last)
	call.ThisObject = obj.resultVar
	call.Args = args
	call.ValueVar = g.freshTemp()
	g.link(last, call.ID)

	return exprResult{obj.start, call.ID, call.ValueVar}
}

func (g *Generator) genExternalCall(n *ast.Node) exprResult {
	callee := g.genExpr(n.Callee)
	last := callee.end
	args := g.genArgs(n.Args, &last)

	call := g.mod.New(ir.EXTERNAL_CALL)
	call.CalleeVar = callee.resultVar
	call.Args = args
	call.ValueVar = g.freshTemp()
	g.link(last, call.ID)

	return exprResult{callee.start, call.ID, call.ValueVar}
}

// genNew implements spec.md §4.3 "new: NEW_INSTANCE for known classes,
// NEW_EXTERNAL_INSTANCE otherwise."
func (g *Generator) genNew(n *ast.Node) exprResult {
	head := g.mod.New(ir.NOOP)
	last := head.ID
	args := g.genArgs(n.Args, &last)

	if n.Callee.Kind == ast.Ident {
		if entry, ok := g.mod.ClassTable[n.Callee.Name]; ok {
			ni := g.mod.New(ir.NEW_INSTANCE)
			ni.ClassName = n.Callee.Name
			ni.Args = args
			ni.Instance = g.freshTemp()
			ni.Target = entry
			g.link(last, ni.ID)
			return exprResult{head.ID, ni.ID, ni.Instance}
		}
	}

	callee := g.genExpr(n.Callee)
	g.link(last, callee.start)
	last = callee.end

	ne := g.mod.New(ir.NEW_EXTERNAL_INSTANCE)
	ne.CalleeVar = callee.resultVar
	ne.Args = args
	ne.Instance = g.freshTemp()
	g.link(last, ne.ID)

	return exprResult{head.ID, ne.ID, ne.Instance}
}

func (g *Generator) genYield(n *ast.Node) exprResult {
	var operand exprResult
	start := -1
	if n.Argument != nil {
		operand = g.genExpr(n.Argument)
		start = operand.start
	} else {
		lit := g.mod.New(ir.ASSIGN_LITERAL)
		lit.To = g.freshTemp()
		operand = exprResult{lit.ID, lit.ID, lit.To}
		start = lit.ID
	}
	s := g.mod.New(ir.YIELD)
	s.ValueVar = operand.resultVar
	s.Delegate = n.Delegate
	s.To = g.freshTemp()
	g.link(operand.end, s.ID)
	return exprResult{start, s.ID, s.To}
}
