package optimize

import "github.com/vortex-obf/vortexc/internal/ir"

// asFloat reports whether v is a numeric literal payload and its value.
func asFloat(v interface{}) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

func asBool(v interface{}) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

// literalOf returns the literal Value a state assigns, and whether it is a
// single-assignment ASSIGN_LITERAL (never reassigned elsewhere is not
// checked here; spec.md treats every `_temp$N` as single-assignment by
// construction from irgen, so any ASSIGN_LITERAL target is safe to fold).
func literalOf(mod *ir.Module, slot int) (interface{}, bool) {
	for _, s := range mod.States {
		if s.Op == ir.ASSIGN_LITERAL && s.To == slot {
			return s.Value, true
		}
	}
	return nil, false
}

// ConstantFolding propagates literal temporaries through BINARY/COND_JUMP
// and evaluates pure binary operators when both operands are known
// (spec.md §4.4 "Constant folding").
func ConstantFolding(mod *ir.Module) int {
	n := 0
	mod.Walk(func(s *ir.State) {
		switch s.Op {
		case ir.BINARY:
			lv, lok := literalOf(mod, s.Left)
			rv, rok := literalOf(mod, s.Right)
			if !lok || !rok {
				return
			}
			result, ok := evalBinary(s.Operator, lv, rv)
			if !ok {
				return
			}
			s.Op = ir.ASSIGN_LITERAL
			s.Value = result
			s.Left, s.Right, s.Operator = 0, 0, ""
			n++
		case ir.COND_JUMP:
			lv, ok := literalOf(mod, s.TestVar)
			if !ok {
				return
			}
			truthy := isTruthy(lv)
			s.Op = ir.GOTO
			if truthy {
				s.Target = s.TrueState
			} else {
				s.Target = s.FalseState
			}
			n++
		}
	})
	return n
}

func isTruthy(v interface{}) bool {
	switch x := v.(type) {
	case bool:
		return x
	case float64:
		return x != 0
	case nil:
		return false
	case string:
		return x != ""
	default:
		return true
	}
}

func evalBinary(op string, l, r interface{}) (interface{}, bool) {
	lf, lok := asFloat(l)
	rf, rok := asFloat(r)
	if lok && rok {
		switch op {
		case "+":
			return lf + rf, true
		case "-":
			return lf - rf, true
		case "*":
			return lf * rf, true
		case "/":
			if rf == 0 {
				return nil, false
			}
			return lf / rf, true
		case "<":
			return lf < rf, true
		case "<=":
			return lf <= rf, true
		case ">":
			return lf > rf, true
		case ">=":
			return lf >= rf, true
		case "===", "==":
			return lf == rf, true
		case "!==", "!=":
			return lf != rf, true
		}
	}
	lb, lbok := asBool(l)
	rb, rbok := asBool(r)
	if lbok && rbok {
		switch op {
		case "===", "==":
			return lb == rb, true
		case "!==", "!=":
			return lb != rb, true
		}
	}
	return nil, false
}

// BooleanLogic simplifies `true||x`, `false||x`, `true&&x`, `false&&x` once
// COND_JUMP's test is a known boolean literal but the branches themselves
// aren't (the pure-literal case is already handled by ConstantFolding);
// this pass targets the short-circuit ASSIGN/COND_JUMP shape genLogical
// emits (spec.md §4.4 "Boolean logic").
func BooleanLogic(mod *ir.Module) int {
	n := 0
	mod.Walk(func(s *ir.State) {
		if s.Op != ir.COND_JUMP {
			return
		}
		lv, ok := literalOf(mod, s.TestVar)
		if !ok {
			return
		}
		b, ok := asBool(lv)
		if !ok {
			return
		}
		s.Op = ir.GOTO
		if b {
			s.Target = s.TrueState
		} else {
			s.Target = s.FalseState
		}
		n++
	})
	return n
}

// StrengthReduction simplifies `*1`, `+0`, `-0`, `|0`, `x-x`, `!bool`
// (spec.md §4.4).
func StrengthReduction(mod *ir.Module) int {
	n := 0
	mod.Walk(func(s *ir.State) {
		switch s.Op {
		case ir.BINARY:
			rv, rok := literalOf(mod, s.Right)
			switch {
			case s.Operator == "*" && rok && isOne(rv):
				rewriteAsCopy(s, s.Left)
				n++
			case (s.Operator == "+" || s.Operator == "-") && rok && isZero(rv):
				rewriteAsCopy(s, s.Left)
				n++
			case s.Operator == "|" && rok && isZero(rv):
				rewriteAsCopy(s, s.Left)
				n++
			case s.Operator == "-" && s.Left == s.Right:
				s.Op = ir.ASSIGN_LITERAL
				s.Value = float64(0)
				s.Left, s.Right, s.Operator = 0, 0, ""
				n++
			}
		case ir.UNARY:
			if s.Operator != "!" {
				return
			}
			ov, ok := literalOf(mod, s.Operand)
			if !ok {
				return
			}
			b, ok := asBool(ov)
			if !ok {
				return
			}
			s.Op = ir.ASSIGN_LITERAL
			s.Value = !b
			s.Operand, s.Operator = 0, ""
			n++
		}
	})
	return n
}

func isOne(v interface{}) bool  { f, ok := asFloat(v); return ok && f == 1 }
func isZero(v interface{}) bool { f, ok := asFloat(v); return ok && f == 0 }

func rewriteAsCopy(s *ir.State, from int) {
	to := s.To
	*s = ir.State{ID: s.ID, Op: ir.ASSIGN, To: to, From: from, Next: s.Next}
}

// LocalCSE memoizes identical BINARY/UNARY ops within a SEQUENCE keyed by
// (op, operands), invalidating an entry once any operand it referenced is
// reassigned (spec.md §4.4 "Local CSE").
func LocalCSE(mod *ir.Module) int {
	n := 0
	type key struct {
		op       ir.OpType
		operator string
		a, b     int
	}
	mod.Walk(func(s *ir.State) {
		if s.Op != ir.SEQUENCE {
			return
		}
		seen := map[key]int{}
		written := map[int]bool{}
		for _, inner := range s.Seq {
			if inner.Op == ir.BINARY || inner.Op == ir.UNARY {
				var k key
				if inner.Op == ir.BINARY {
					k = key{inner.Op, inner.Operator, inner.Left, inner.Right}
				} else {
					k = key{inner.Op, inner.Operator, inner.Operand, 0}
				}
				if written[k.a] || written[k.b] {
					delete(seen, k)
				} else if prior, ok := seen[k]; ok {
					*inner = ir.State{ID: inner.ID, Op: ir.ASSIGN, To: inner.To, From: prior, Next: inner.Next}
					n++
				} else {
					seen[k] = inner.To
				}
			}
			written[inner.To] = true
		}
	})
	return n
}

// ExpressionReassociation combines linear +/- chains over integer
// constants, e.g. `(x+a)+b` folds into `x+(a+b)` when a and b are both
// literal (spec.md §4.4). Operates on a BINARY whose Left operand is itself
// produced by a BINARY with a literal Right, both using +/-.
func ExpressionReassociation(mod *ir.Module) int {
	n := 0
	producedBy := map[int]*ir.State{}
	mod.Walk(func(s *ir.State) {
		if s.Op == ir.BINARY || s.Op == ir.ASSIGN_LITERAL {
			producedBy[s.To] = s
		}
	})
	mod.Walk(func(s *ir.State) {
		if s.Op != ir.BINARY || (s.Operator != "+" && s.Operator != "-") {
			return
		}
		inner, ok := producedBy[s.Left]
		if !ok || inner.Op != ir.BINARY || (inner.Operator != "+" && inner.Operator != "-") {
			return
		}
		a, aok := literalOf(mod, inner.Right)
		b, bok := literalOf(mod, s.Right)
		if !aok || !bok {
			return
		}
		af, ok1 := asFloat(a)
		bf, ok2 := asFloat(b)
		if !ok1 || !ok2 {
			return
		}
		signedA := af
		if inner.Operator == "-" {
			signedA = -af
		}
		signedB := bf
		if s.Operator == "-" {
			signedB = -bf
		}
		combined := signedA + signedB
		s.Left = inner.Left
		s.Operator = "+"
		// Reuse the existing Right-operand state's id to carry the combined
		// constant rather than allocating a new temp (the optimizer never
		// grows the arena, only rewrites in place).
		rightState := findByTo(mod, s.Right)
		if rightState == nil {
			return
		}
		rightState.Op = ir.ASSIGN_LITERAL
		rightState.Value = combined
		n++
	})
	return n
}

func findByTo(mod *ir.Module, slot int) *ir.State {
	for _, s := range mod.States {
		if s.Op != ir.DEAD && s.To == slot && (s.Op == ir.ASSIGN_LITERAL || s.Op == ir.BINARY) {
			return s
		}
	}
	return nil
}

// GlobalDeadStoreElimination counts usages of every memory slot across all
// ops and deletes assignments with zero readers (spec.md §4.4). It does not
// walk into EXECUTE_STATEMENT/ASSIGN_LITERAL_DIRECT embedded fragments
// (spec.md's fuller version does; the AST fragment types here carry no
// slot references a JS-level identifier wouldn't already resolve through
// the fragment's own free variables, so this pass does not look inside
// them).
func GlobalDeadStoreElimination(mod *ir.Module) int {
	reads := map[int]int{}
	mod.Walk(func(s *ir.State) {
		countReads(s, reads)
	})
	n := 0
	mod.Walk(func(s *ir.State) {
		if !writesOnly(s.Op) {
			return
		}
		if reads[s.To] > 0 {
			return
		}
		if s.Next == nil {
			return
		}
		mod.Kill(s.ID)
		n++
	})
	return n
}

// writesOnly identifies the local-temp assignment ops this pass may
// eliminate. ASSIGN_GLOBAL is deliberately excluded: a global write's
// destination slot is never the operand a later global *read* references
// (genIdent's readName re-fetches by GlobalName, not by slot), so usage
// counting here cannot see whether some other function later reads it.
// Global liveness is out of scope for this pass.
func writesOnly(op ir.OpType) bool {
	switch op {
	case ir.ASSIGN, ir.ASSIGN_LITERAL:
		return true
	default:
		return false
	}
}

func countReads(s *ir.State, reads map[int]int) {
	switch s.Op {
	case ir.ASSIGN:
		reads[s.From]++
	case ir.ASSIGN_GLOBAL:
		if s.From != 0 {
			reads[s.From]++
		}
	case ir.BINARY:
		reads[s.Left]++
		reads[s.Right]++
	case ir.UNARY:
		reads[s.Operand]++
	case ir.COND_JUMP:
		reads[s.TestVar]++
	case ir.CALL, ir.EXTERNAL_CALL, ir.METHOD_CALL, ir.NEW_INSTANCE, ir.NEW_EXTERNAL_INSTANCE:
		for _, a := range s.Args {
			reads[a]++
		}
		if s.CalleeVar != 0 {
			reads[s.CalleeVar]++
		}
		if s.ThisObject != 0 {
			reads[s.ThisObject]++
		}
	case ir.RETRIEVE_RESULT:
		reads[s.From]++
	case ir.RETURN, ir.THROW, ir.YIELD, ir.AWAIT:
		reads[s.ValueVar]++
	case ir.MEMBER_ACCESS, ir.MEMBER_ACCESS_COMPUTED:
		reads[s.Object]++
		if s.Computed {
			reads[s.KeyVar]++
		}
	case ir.MEMBER_ASSIGN, ir.MEMBER_ASSIGN_COMPUTED:
		reads[s.Object]++
		reads[s.From]++
		if s.Computed {
			reads[s.KeyVar]++
		}
	case ir.CREATE_ARRAY:
		for _, e := range s.Elements {
			reads[e]++
		}
		if s.SpreadVar != 0 {
			reads[s.SpreadVar]++
		}
	case ir.CREATE_OBJECT:
		for _, p := range s.Properties {
			reads[p.ValueVar]++
			if p.Computed {
				reads[p.KeyVar]++
			}
		}
	}
	for _, p := range s.Params {
		reads[p]++ // parameters are always considered read (callers supply them)
	}
}

// BranchPruning rewrites a COND_JUMP whose two branches are the same target
// into a GOTO (spec.md §4.4).
func BranchPruning(mod *ir.Module) int {
	n := 0
	mod.Walk(func(s *ir.State) {
		if s.Op != ir.COND_JUMP {
			return
		}
		if s.TrueState != s.FalseState {
			return
		}
		s.Op = ir.GOTO
		s.Target = s.TrueState
		n++
	})
	return n
}

// JumpThreading follows chains of NOOP/GOTO to their ultimate target and
// rewrites every Next/TrueState/FalseState/GOTO.Target to skip the
// trampolines (spec.md §4.4).
func JumpThreading(mod *ir.Module) int {
	ultimate := func(id int) int {
		seen := map[int]bool{}
		for {
			if seen[id] {
				return id // cycle guard: leave as-is
			}
			seen[id] = true
			s := mod.States[id]
			switch s.Op {
			case ir.NOOP:
				if s.Next == nil {
					return id
				}
				id = *s.Next
			case ir.GOTO:
				id = s.Target
			default:
				return id
			}
		}
	}
	n := 0
	mod.Walk(func(s *ir.State) {
		if s.Next != nil {
			if t := ultimate(*s.Next); t != *s.Next {
				s.Next = &t
				n++
			}
		}
		switch s.Op {
		case ir.COND_JUMP:
			if t := ultimate(s.TrueState); t != s.TrueState {
				s.TrueState = t
				n++
			}
			if t := ultimate(s.FalseState); t != s.FalseState {
				s.FalseState = t
				n++
			}
		case ir.GOTO, ir.PUSH_CATCH_HANDLER, ir.FINALLY_DISPATCH:
			if t := ultimate(s.Target); t != s.Target {
				s.Target = t
				n++
			}
		}
	})
	return n
}

// TailCallOptimization converts self-recursion into iteration (spec.md
// §4.4 "TCO"): a CALL whose Callee equals its own CallerFuncName, followed
// (through POST_CALL/RETRIEVE_RESULT) by a RETURN of the retrieved value,
// with every argument a plain identifier, is rewritten into parameter
// reassignment plus a jump back to the function's first post-prelude state.
// This pass only recognizes the direct CALL->POST_CALL->RETRIEVE_RESULT->
// RETURN shape genKnownCall/genReturn produce; mutually recursive or
// trampolined tail calls are left as they are.
func TailCallOptimization(mod *ir.Module) int {
	n := 0
	mod.Walk(func(s *ir.State) {
		if s.Op != ir.CALL || s.CallerFuncName == "" {
			return
		}
		entry, ok := mod.FuncTable[s.CallerFuncName]
		if !ok || mod.States[entry].Name != s.Callee {
			return
		}
		post := nextLive(mod, s)
		if post == nil || post.Op != ir.POST_CALL {
			return
		}
		retrieve := nextLive(mod, post)
		if retrieve == nil || retrieve.Op != ir.RETRIEVE_RESULT {
			return
		}
		ret := nextLive(mod, retrieve)
		if ret == nil || ret.Op != ir.RETURN || ret.ValueVar != retrieve.To {
			return
		}
		entryState := mod.States[entry]
		if len(s.Args) != len(entryState.Params) {
			return
		}
		// Buffer every argument into a temp before overwriting any
		// parameter, since parameters may reference each other positionally
		// (spec.md §4.4 "a temp-buffered parameter assignment dance").
		head := s
		head.Op = ir.SEQUENCE
		var seq []*ir.State
		bufs := make([]int, len(s.Args))
		for i, argSlot := range s.Args {
			buf := mod.New(ir.ASSIGN)
			buf.From = argSlot
			buf.To = freshShadowSlot(mod)
			bufs[i] = buf.To
			seq = append(seq, buf)
		}
		for i, paramSlot := range entryState.Params {
			assign := mod.New(ir.ASSIGN)
			assign.From = bufs[i]
			assign.To = paramSlot
			seq = append(seq, assign)
		}
		head.Seq = seq
		head.TempVars = bufs
		head.Args, head.Callee, head.CallerFuncName, head.ThisObject = nil, "", "", 0
		var target int
		if entryState.Next != nil {
			target = *entryState.Next
		} else {
			target = entry
		}
		head.Next = &target
		mod.Kill(post.ID)
		mod.Kill(retrieve.ID)
		mod.Kill(ret.ID)
		n++
	})
	return n
}

// freshShadowSlot allocates a scratch memory slot for TCO's argument-buffer
// dance, outside the name-addressed space irgen otherwise uses.
func freshShadowSlot(mod *ir.Module) int {
	return mod.Memory.Allocate(shadowName(mod), false)
}

var shadowSeq int

func shadowName(mod *ir.Module) string {
	shadowSeq++
	return "_tco$" + itoa(shadowSeq)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// nextLive returns the live state s.Next points to, or nil.
func nextLive(mod *ir.Module, s *ir.State) *ir.State {
	if s.Next == nil {
		return nil
	}
	t := mod.States[*s.Next]
	if t.Op == ir.DEAD {
		return nil
	}
	return t
}

// BlockMerging coalesces adjacent non-sensitive states with a single
// predecessor into a SEQUENCE, bounded by maxSuperblockSize (spec.md §4.4).
const maxSuperblockSize = 32

func BlockMerging(mod *ir.Module) int {
	predCount := make([]int, len(mod.States))
	mod.Walk(func(s *ir.State) {
		s.References(func(id int) {
			if id >= 0 && id < len(predCount) {
				predCount[id]++
			}
		})
	})
	n := 0
	mod.Walk(func(s *ir.State) {
		if s.Op.Sensitive() || s.Op == ir.SEQUENCE || s.Op == ir.DEAD {
			return
		}
		if s.Next == nil {
			return
		}
		next := mod.States[*s.Next]
		if next.Op == ir.DEAD || next.Op.Sensitive() || predCount[next.ID] != 1 {
			return
		}
		var merged []*ir.State
		if s.Op == ir.SEQUENCE {
			merged = append(merged, s.Seq...)
		} else {
			cp := *s
			merged = append(merged, &cp)
		}
		if next.Op == ir.SEQUENCE {
			merged = append(merged, next.Seq...)
		} else {
			cp := *next
			merged = append(merged, &cp)
		}
		if len(merged) > maxSuperblockSize {
			return
		}
		nextNext := next.Next
		*s = ir.State{ID: s.ID, Op: ir.SEQUENCE, Seq: merged, Next: nextNext}
		mod.Kill(next.ID)
		n++
	})
	return n
}

// CopyPropagation forwards a plain ASSIGN's source into its sole reader
// when that reader is its only successor (spec.md §4.4): the reader's
// operand is renamed in place and every predecessor of the ASSIGN is
// redirected past it via remap.
func CopyPropagation(mod *ir.Module) int {
	predCount := make([]int, len(mod.States))
	mod.Walk(func(s *ir.State) {
		s.References(func(id int) {
			if id >= 0 && id < len(predCount) {
				predCount[id]++
			}
		})
	})
	n := 0
	table := map[int]int{}
	mod.Walk(func(s *ir.State) {
		if s.Op != ir.ASSIGN || s.Next == nil {
			return
		}
		next := mod.States[*s.Next]
		if next.Op == ir.DEAD || predCount[next.ID] != 1 {
			return
		}
		if !singleReader(next, s.To) {
			return
		}
		renameOperand(next, s.To, s.From)
		table[s.ID] = *s.Next
		mod.Kill(s.ID)
		n++
	})
	if n > 0 {
		remap(mod, table)
	}
	return n
}

// singleReader reports whether next reads slot exactly once among its
// operand positions.
func singleReader(s *ir.State, slot int) bool {
	count := 0
	check := func(v int) {
		if v == slot {
			count++
		}
	}
	switch s.Op {
	case ir.ASSIGN:
		check(s.From)
	case ir.BINARY:
		check(s.Left)
		check(s.Right)
	case ir.UNARY:
		check(s.Operand)
	case ir.COND_JUMP:
		check(s.TestVar)
	case ir.RETURN, ir.THROW, ir.YIELD, ir.AWAIT:
		check(s.ValueVar)
	case ir.MEMBER_ACCESS, ir.MEMBER_ACCESS_COMPUTED:
		check(s.Object)
		if s.Computed {
			check(s.KeyVar)
		}
	}
	return count == 1
}

func renameOperand(s *ir.State, from, to int) {
	replace := func(v *int) {
		if *v == from {
			*v = to
		}
	}
	switch s.Op {
	case ir.ASSIGN:
		replace(&s.From)
	case ir.BINARY:
		replace(&s.Left)
		replace(&s.Right)
	case ir.UNARY:
		replace(&s.Operand)
	case ir.COND_JUMP:
		replace(&s.TestVar)
	case ir.RETURN, ir.THROW, ir.YIELD, ir.AWAIT:
		replace(&s.ValueVar)
	case ir.MEMBER_ACCESS, ir.MEMBER_ACCESS_COMPUTED:
		replace(&s.Object)
		if s.Computed {
			replace(&s.KeyVar)
		}
	}
}

// GotoNoopElision redirects every reference to a trivial GOTO/NOOP state to
// that state's successor via remap, then marks it DEAD (spec.md §4.4).
func GotoNoopElision(mod *ir.Module) int {
	table := map[int]int{}
	mod.Walk(func(s *ir.State) {
		switch s.Op {
		case ir.GOTO:
			table[s.ID] = s.Target
		case ir.NOOP:
			if s.Next != nil {
				table[s.ID] = *s.Next
			}
		}
	})
	if len(table) == 0 {
		return 0
	}
	// A state that only redirects to itself (or that every predecessor
	// targets directly, with no other logic) is safe to kill once every
	// reference to it has been remapped; keep an id out of the kill set if
	// it's a FUNC_ENTRY/EntryID root, since callers address those by name.
	roots := map[int]bool{}
	for _, r := range mod.Roots() {
		roots[r] = true
	}
	n := 0
	for id := range table {
		if roots[id] {
			delete(table, id)
			continue
		}
		n++
	}
	if n == 0 {
		return 0
	}
	remap(mod, table)
	for id := range table {
		mod.Kill(id)
	}
	return n
}

// IdentityRemoval rewrites `x = x` followed by a next pointer into a GOTO to
// next (spec.md §4.4) — in this IR that's simply killing the no-op ASSIGN
// and relying on GotoNoopElision's remap table the following iteration; we
// do the remap inline here so a single iteration can clear it.
func IdentityRemoval(mod *ir.Module) int {
	table := map[int]int{}
	mod.Walk(func(s *ir.State) {
		if s.Op == ir.ASSIGN && s.To == s.From && s.Next != nil {
			table[s.ID] = *s.Next
		}
	})
	if len(table) == 0 {
		return 0
	}
	roots := map[int]bool{}
	for _, r := range mod.Roots() {
		roots[r] = true
	}
	n := 0
	for id := range table {
		if roots[id] {
			delete(table, id)
			continue
		}
		n++
	}
	if n == 0 {
		return 0
	}
	remap(mod, table)
	for id := range table {
		mod.Kill(id)
	}
	return n
}
