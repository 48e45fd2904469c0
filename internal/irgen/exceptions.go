package irgen

import (
	"github.com/vortex-obf/vortexc/internal/ast"
	"github.com/vortex-obf/vortexc/internal/ir"
	"github.com/vortex-obf/vortexc/internal/memory"
)

// sentinelException is the magic value generator wrappers throw into the VM
// to signal clean termination via `.return()` (spec.md §4.3.1 "Catch clause
// with binding", §9 "String identifiers used by the VM").
const sentinelException = "@@VRXT"

// exitVia routes a return/throw/break/continue through any enclosing
// finally (spec.md §4.3.1): if finallyStart >= 0, set `_FIN` to disposition
// and `_FIN_V` to the payload/target, then jump into the finally block;
// otherwise jump straight to target.
func (g *Generator) exitVia(target int, disposition ir.FinDisposition, finallyStart int) edge {
	if finallyStart < 0 {
		goTo := g.mod.New(ir.GOTO)
		goTo.Target = target
		return edge{goTo.ID, goTo.ID}
	}

	finSlot := memory.Slot(memory.FIN)
	finVSlot := memory.Slot(memory.FINV)

	setFin := g.mod.New(ir.ASSIGN_LITERAL)
	setFin.To = finSlot
	setFin.Value = int(disposition)

	setFinV := g.mod.New(ir.ASSIGN_LITERAL)
	setFinV.To = finVSlot
	setFinV.Value = target // for break/continue this is itself a target state id
	g.link(setFin.ID, setFinV.ID)

	goTo := g.mod.New(ir.GOTO)
	goTo.Target = finallyStart
	g.link(setFinV.ID, goTo.ID)

	return edge{setFin.ID, goTo.ID}
}

// exitWithValue is exitVia's sibling for return/throw, whose payload is a
// memory slot (the evaluated expression) rather than a target state id.
func (g *Generator) exitWithValue(valueVar int, disposition ir.FinDisposition, finallyStart int, direct func() (start, end int)) edge {
	if finallyStart < 0 {
		start, end := direct()
		return edge{start, end}
	}

	finSlot := memory.Slot(memory.FIN)
	finVSlot := memory.Slot(memory.FINV)

	setFin := g.mod.New(ir.ASSIGN_LITERAL)
	setFin.To = finSlot
	setFin.Value = int(disposition)

	setFinV := g.mod.New(ir.ASSIGN)
	setFinV.To = finVSlot
	setFinV.From = valueVar
	g.link(setFin.ID, setFinV.ID)

	goTo := g.mod.New(ir.GOTO)
	goTo.Target = finallyStart
	g.link(setFinV.ID, goTo.ID)

	return edge{setFin.ID, goTo.ID}
}

func (g *Generator) genReturn(n *ast.Node) edge {
	_, finallyStart, _ := g.breakTarget("") // reuse outward-walk to find nearest finally
	var valueVar int
	var prelude []int
	start := -1
	if n.Argument != nil {
		r := g.genExpr(n.Argument)
		valueVar = r.resultVar
		start = r.start
		prelude = []int{r.end}
	} else {
		lit := g.mod.New(ir.ASSIGN_LITERAL)
		lit.To = g.freshTemp()
		lit.Value = nil
		valueVar = lit.To
		start = lit.ID
		prelude = []int{lit.ID}
	}

	e := g.exitWithValue(valueVar, ir.FinReturn, finallyStart, func() (int, int) {
		ret := g.mod.New(ir.RETURN)
		ret.ValueVar = valueVar
		g.link(prelude[0], ret.ID)
		return start, ret.ID
	})
	if finallyStart >= 0 {
		g.link(prelude[0], e.start)
		return edge{start, e.end}
	}
	return e
}

func (g *Generator) genThrow(n *ast.Node) edge {
	_, finallyStart, _ := g.breakTarget("")
	r := g.genExpr(n.Argument)

	e := g.exitWithValue(r.resultVar, ir.FinThrow, finallyStart, func() (int, int) {
		th := g.mod.New(ir.THROW)
		th.ValueVar = r.resultVar
		g.link(r.end, th.ID)
		return r.start, th.ID
	})
	if finallyStart >= 0 {
		g.link(r.end, e.start)
		return edge{r.start, e.end}
	}
	return e
}

// genTry lowers try/catch/finally per spec.md §4.3.1: PUSH_CATCH_HANDLER on
// entry, POP_CATCH_HANDLER on normal exit, a FINALLY_DISPATCH routing table
// after the finally block, and the `@@VRXT` rethrow guard on a bound catch
// clause.
func (g *Generator) genTry(n *ast.Node) edge {
	endNoop := g.mod.New(ir.NOOP)

	var finallyStart int = -1
	var finallyEnd int = -1
	if n.Finalizer != nil {
		fin := g.genStmt(n.Finalizer)
		finallyStart = fin.start
		finallyEnd = fin.end
	}

	hasCatch := len(n.Handlers) > 0
	g.ctrl = append(g.ctrl, ctrlEntry{kind: ctrlTry, finallyStart: finallyStart, hasCatch: hasCatch})

	var catchEntry int = -1
	if hasCatch {
		catchEntry = g.genCatch(n.Handlers[0], finallyStart, endNoop.ID)
	}

	push := g.mod.New(ir.PUSH_CATCH_HANDLER)
	if hasCatch {
		push.Target = catchEntry
	} else if finallyStart >= 0 {
		// No catch: an uncaught exception still routes through finally
		// with disposition throw (spec.md §4.3.1 table).
		push.Target = g.synthFinallyThrowRoute(finallyStart)
	} else {
		push.Target = endNoop.ID
	}

	body := g.genStmt(n.Body)
	g.link(push.ID, body.start)

	pop := g.mod.New(ir.POP_CATCH_HANDLER)
	g.link(body.end, pop.ID)

	g.ctrl = g.ctrl[:len(g.ctrl)-1]

	if finallyStart >= 0 {
		g.link(pop.ID, finallyStart)
		dispatch := g.genFinallyDispatch(finallyEnd, endNoop.ID)
		_ = dispatch
	} else {
		g.link(pop.ID, endNoop.ID)
	}

	return edge{push.ID, endNoop.ID}
}

// synthFinallyThrowRoute builds a tiny trampoline that sets _FIN=throw,
// _FIN_V=_EXV and jumps into the finally block, for the no-catch case where
// an uncaught exception must still run finally before propagating.
func (g *Generator) synthFinallyThrowRoute(finallyStart int) int {
	finSlot := memory.Slot(memory.FIN)
	finVSlot := memory.Slot(memory.FINV)
	exvSlot := memory.Slot(memory.EXV)

	setFin := g.mod.New(ir.ASSIGN_LITERAL)
	setFin.To = finSlot
	setFin.Value = int(ir.FinThrow)

	setFinV := g.mod.New(ir.ASSIGN)
	setFinV.To = finVSlot
	setFinV.From = exvSlot
	g.link(setFin.ID, setFinV.ID)
	g.link(setFinV.ID, finallyStart)

	return setFin.ID
}

// genCatch lowers a catch clause into a guard sequence comparing `_EXV`
// against the sentinel, per spec.md §4.3.1: equal rethrows, otherwise binds
// and enters the catch body.
func (g *Generator) genCatch(c *ast.Node, finallyStart, endTarget int) int {
	exvSlot := memory.Slot(memory.EXV)

	sentinelLit := g.mod.New(ir.ASSIGN_LITERAL)
	sentinelLit.To = g.freshTemp()
	sentinelLit.Value = sentinelException

	cmp := g.mod.New(ir.BINARY)
	cmp.Operator = "==="
	cmp.Left = exvSlot
	cmp.Right = sentinelLit.To
	cmp.To = g.freshTemp()
	g.link(sentinelLit.ID, cmp.ID)

	rethrow := g.mod.New(ir.THROW)
	rethrow.ValueVar = exvSlot

	g.pushScope()
	var bindStart int
	var bound int = -1
	if c.Id != nil {
		bound = g.bind(c.Id.Name, false)
	}
	bindHead := g.mod.New(ir.NOOP)
	bindStart = bindHead.ID
	last := bindHead.ID
	if bound >= 0 {
		copyExv := g.mod.New(ir.ASSIGN)
		copyExv.To = bound
		copyExv.From = exvSlot
		g.link(last, copyExv.ID)
		last = copyExv.ID
	}
	body := g.genStmt(c.Body)
	g.link(last, body.start)
	last = body.end
	g.popScope()

	pop := g.mod.New(ir.POP_CATCH_HANDLER)
	g.link(last, pop.ID)
	if finallyStart >= 0 {
		g.link(pop.ID, finallyStart)
	} else {
		g.link(pop.ID, endTarget)
	}

	cj := g.mod.New(ir.COND_JUMP)
	cj.TestVar = cmp.To
	cj.TrueState = rethrow.ID
	cj.FalseState = bindStart
	g.link(cmp.ID, cj.ID)

	return sentinelLit.ID
}

// genFinallyDispatch emits the FINALLY_DISPATCH state that routes execution
// after a finally block per the `_FIN` table in spec.md §4.3.1.
func (g *Generator) genFinallyDispatch(finallyEnd, fallthroughTarget int) *ir.State {
	fd := g.mod.New(ir.FINALLY_DISPATCH)
	fd.FinSlot = memory.Slot(memory.FIN)
	fd.FinVSlot = memory.Slot(memory.FINV)
	fd.Target = fallthroughTarget // disposition 0: fall through to the try's natural successor
	g.link(finallyEnd, fd.ID)
	return fd
}
