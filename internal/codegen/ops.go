package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vortex-obf/vortexc/internal/ir"
	"github.com/vortex-obf/vortexc/internal/memory"
	"github.com/vortex-obf/vortexc/internal/vortexerr"
)

// formatNumber renders a float64 the way a JS number literal would read,
// collapsing whole values to their integer form (`3` not `3.0`).
func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// slot renders a read of memory slot idx. Global slots read from the
// shared template array directly (spec.md §5 "shared mutation goes through
// host-global slots"); everything else reads from the per-invocation frame.
func (g *Generator) slot(idx int) string {
	if g.mem.IsGlobal(idx) {
		return fmt.Sprintf("%s[%d]", g.names.globalMem, idx)
	}
	return fmt.Sprintf("%s[%d]", g.names.frameVar, idx)
}

// literalExpr renders an ASSIGN_LITERAL payload: a pool-backed string via
// ir.StringRef, or a scalar number/bool/nil.
func (g *Generator) literalExpr(v interface{}) (string, error) {
	switch x := v.(type) {
	case ir.StringRef:
		id, err := g.pool.GetStringID(x.Text)
		if err != nil {
			return "", err
		}
		return g.stringExpr(id), nil
	case float64:
		return g.numLiteral(x), nil
	case bool:
		if x {
			return "true", nil
		}
		return "false", nil
	case nil:
		return "undefined", nil
	default:
		return "", vortexerr.New(vortexerr.InvalidStateReference, "unrecognized literal payload %T", v)
	}
}

// emitOp writes the straight-line JS for one state's operation, unpacking
// SEQUENCE recursively (spec.md §4.4 "Block merging" produces these). It
// does not write the epilogue id transfer; callers append that separately
// since its shape (switch `break`, while `continue`, ...) is dispatcher
// specific.
func (g *Generator) emitOp(w *strings.Builder, s *ir.State, ids *stateIDMap) error {
	switch s.Op {
	case ir.SEQUENCE:
		for _, inner := range s.Seq {
			if err := g.emitOp(w, inner, ids); err != nil {
				return err
			}
		}
		return nil
	case ir.NOOP, ir.GOTO:
		return nil
	case ir.HALT:
		w.WriteString("return { _: 1, v: undefined };\n")
		return nil
	case ir.FUNC_ENTRY:
		return nil // entry markers carry no runtime effect of their own
	case ir.ASSIGN:
		fmt.Fprintf(w, "%s = %s;\n", g.slot(s.To), g.slot(s.From))
		return nil
	case ir.ASSIGN_LITERAL:
		expr, err := g.literalExpr(s.Value)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s = %s;\n", g.slot(s.To), expr)
		return nil
	case ir.ASSIGN_LITERAL_DIRECT:
		// Rendered as a plain slot-to-slot copy from s.From. Neither irgen
		// nor internal/optimize creates this op: copy propagation only
		// renames operands and never turns a literal into this form.
		fmt.Fprintf(w, "%s = %s;\n", g.slot(s.To), g.slot(s.From))
		return nil
	case ir.ASSIGN_GLOBAL:
		return g.emitAssignGlobal(w, s)
	case ir.BINARY:
		fmt.Fprintf(w, "%s = (%s) %s (%s);\n", g.slot(s.To), g.slot(s.Left), jsOperator(s.Operator), g.slot(s.Right))
		return nil
	case ir.UNARY:
		fmt.Fprintf(w, "%s = %s(%s);\n", g.slot(s.To), jsUnaryPrefix(s.Operator), g.slot(s.Operand))
		return nil
	case ir.COND_JUMP:
		fmt.Fprintf(w, "if (%s) { S = %d; } else { S = %d; }\n", g.slot(s.TestVar), ids.of(s.TrueState), ids.of(s.FalseState))
		return nil
	case ir.MEMBER_ACCESS:
		key, err := g.quotedStringFor(s.Property)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s = (%s)[%s];\n", g.slot(s.To), g.slot(s.Object), key)
		return nil
	case ir.MEMBER_ACCESS_COMPUTED:
		fmt.Fprintf(w, "%s = (%s)[%s];\n", g.slot(s.To), g.slot(s.Object), g.slot(s.KeyVar))
		return nil
	case ir.MEMBER_ACCESS_GLOBAL:
		return g.emitMemberAccessGlobal(w, s)
	case ir.MEMBER_ASSIGN:
		key, err := g.quotedStringFor(s.Property)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "(%s)[%s] = %s;\n", g.slot(s.Object), key, g.slot(s.From))
		return nil
	case ir.MEMBER_ASSIGN_COMPUTED:
		fmt.Fprintf(w, "(%s)[%s] = %s;\n", g.slot(s.Object), g.slot(s.KeyVar), g.slot(s.From))
		return nil
	case ir.CREATE_ARRAY:
		return g.emitCreateArray(w, s)
	case ir.CREATE_OBJECT:
		return g.emitCreateObject(w, s)
	case ir.NEW_INSTANCE:
		return g.emitNewInstance(w, s, ids)
	case ir.NEW_EXTERNAL_INSTANCE:
		fmt.Fprintf(w, "%s = new (%s)(%s);\n", g.slot(s.Instance), g.slot(s.CalleeVar), argList(g, s.Args))
		return nil
	case ir.CALL:
		return g.emitCall(w, s)
	case ir.POST_CALL:
		return nil // bookkeeping only; RETRIEVE_RESULT reads _RET
	case ir.RETRIEVE_RESULT:
		fmt.Fprintf(w, "%s = %s;\n", g.slot(s.To), g.slot(s.From))
		return nil
	case ir.METHOD_CALL:
		fmt.Fprintf(w, "%s = (%s).call(%s%s);\n", g.slot(s.ValueVar), g.slot(s.CalleeVar), g.slot(s.ThisObject), commaArgs(g, s.Args))
		return nil
	case ir.EXTERNAL_CALL:
		fmt.Fprintf(w, "%s = (%s).apply(%s, [%s]);\n", g.slot(s.ValueVar), g.slot(s.CalleeVar), g.slot(s.ThisObject), argList(g, s.Args))
		return nil
	case ir.RETURN:
		fmt.Fprintf(w, "return { _: 1, v: %s };\n", g.slot(s.ValueVar))
		return nil
	case ir.THROW:
		fmt.Fprintf(w, "throw %s;\n", g.slot(s.ValueVar))
		return nil
	case ir.YIELD:
		disp := 0
		if s.Delegate {
			disp = 2
		}
		fmt.Fprintf(w, "return { _: %d, v: %s, slot: %d, next: %d };\n",
			disp, g.slot(s.ValueVar), s.ValueVar, ids.of(resumeTarget(s)))
		return nil
	case ir.AWAIT:
		fmt.Fprintf(w, "return { _: 0, v: %s, await: true, slot: %d, next: %d };\n",
			g.slot(s.ValueVar), s.ValueVar, ids.of(resumeTarget(s)))
		return nil
	case ir.PUSH_CATCH_HANDLER:
		fmt.Fprintf(w, "%s.push(%d);\n", g.names.vmStack, ids.of(s.Target))
		fmt.Fprintf(w, "%s = %d;\n", g.slot(memory.Slot(memory.EHP)), ids.of(s.Target))
		return nil
	case ir.POP_CATCH_HANDLER:
		fmt.Fprintf(w, "%s.pop();\n", g.names.vmStack)
		fmt.Fprintf(w, "%s = %s.length ? %s[%s.length - 1] : -1;\n",
			g.slot(memory.Slot(memory.EHP)), g.names.vmStack, g.names.vmStack, g.names.vmStack)
		return nil
	case ir.FINALLY_DISPATCH:
		fmt.Fprintf(w, "switch (%s) {\n", g.slot(s.FinSlot))
		fmt.Fprintf(w, "  case %d: S = %d; break;\n", ir.FinNormal, ids.of(s.Target))
		fmt.Fprintf(w, "  case %d: return { _: 1, v: %s };\n", ir.FinReturn, g.slot(s.FinVSlot))
		fmt.Fprintf(w, "  case %d: case %d: S = %s; break;\n", ir.FinBreak, ir.FinContinue, g.slot(s.FinVSlot))
		fmt.Fprintf(w, "  case %d: throw %s;\n", ir.FinThrow, g.slot(s.FinVSlot))
		w.WriteString("}\n")
		return nil
	case ir.EXECUTE_STATEMENT:
		return vortexerr.New(vortexerr.UnsupportedSyntax, "state %d: embedded AST fragments are not lowered by this code generator", s.ID)
	case ir.DEAD:
		return nil
	default:
		return vortexerr.New(vortexerr.UnsupportedSyntax, "state %d: unhandled opcode %s", s.ID, s.Op)
	}
}

// resumeTarget returns the state to resume at after a suspending op sends
// its value out; YIELD/AWAIT are never Terminal (spec.md §4.4 Sensitive/
// Suspending taxonomy), so Next is always populated by irgen.
func resumeTarget(s *ir.State) int {
	if s.Next != nil {
		return *s.Next
	}
	return s.ID
}

func (g *Generator) quotedStringFor(name string) (string, error) {
	id, err := g.pool.GetStringID(name)
	if err != nil {
		return "", err
	}
	return g.stringExpr(id), nil
}

func argList(g *Generator, args []int) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = g.slot(a)
	}
	return strings.Join(parts, ", ")
}

func commaArgs(g *Generator, args []int) string {
	if len(args) == 0 {
		return ""
	}
	return ", " + argList(g, args)
}

func jsOperator(op string) string {
	switch op {
	case "===", "!==", "<", "<=", ">", ">=", "+", "-", "*", "/", "%", "&", "|", "^", "<<", ">>", ">>>", "&&", "||", "??":
		return op
	case "==":
		return "==="
	case "!=":
		return "!=="
	default:
		return op
	}
}

func jsUnaryPrefix(op string) string {
	switch op {
	case "typeof":
		return "typeof "
	case "void":
		return "void "
	case "!", "-", "+", "~":
		return op
	default:
		return op
	}
}
