// Package ir is the flat state/op data model (spec.md §3, §6): an ordered
// arena of States forming a control-flow graph, referenced only by dense
// integer id, never by pointer — the same arena-by-index discipline the
// design notes (spec.md §9 "Arena + index for states") call for and that
// the teacher compiler already uses for its own IR (std/compiler/ir.go's
// IRFunc.Code []Inst, addressed by label ids rather than pointers).
package ir

// OpType is the tagged opcode variant (spec.md §6, bit-exact names).
type OpType int

const (
	SEQUENCE OpType = iota
	NOOP
	GOTO
	HALT
	FUNC_ENTRY
	CALL
	POST_CALL
	RETRIEVE_RESULT
	RETURN
	THROW
	YIELD
	AWAIT
	ASSIGN
	ASSIGN_LITERAL
	ASSIGN_LITERAL_DIRECT
	ASSIGN_GLOBAL
	BINARY
	UNARY
	COND_JUMP
	MEMBER_ACCESS
	MEMBER_ACCESS_COMPUTED
	MEMBER_ACCESS_GLOBAL
	MEMBER_ASSIGN
	MEMBER_ASSIGN_COMPUTED
	CREATE_ARRAY
	CREATE_OBJECT
	NEW_INSTANCE
	NEW_EXTERNAL_INSTANCE
	METHOD_CALL
	EXTERNAL_CALL
	PUSH_CATCH_HANDLER
	POP_CATCH_HANDLER
	FINALLY_DISPATCH
	EXECUTE_STATEMENT
	DEAD // tombstone
)

var opNames = [...]string{
	SEQUENCE:               "SEQUENCE",
	NOOP:                   "NOOP",
	GOTO:                   "GOTO",
	HALT:                   "HALT",
	FUNC_ENTRY:             "FUNC_ENTRY",
	CALL:                   "CALL",
	POST_CALL:              "POST_CALL",
	RETRIEVE_RESULT:        "RETRIEVE_RESULT",
	RETURN:                 "RETURN",
	THROW:                  "THROW",
	YIELD:                  "YIELD",
	AWAIT:                  "AWAIT",
	ASSIGN:                 "ASSIGN",
	ASSIGN_LITERAL:         "ASSIGN_LITERAL",
	ASSIGN_LITERAL_DIRECT:  "ASSIGN_LITERAL_DIRECT",
	ASSIGN_GLOBAL:          "ASSIGN_GLOBAL",
	BINARY:                 "BINARY",
	UNARY:                  "UNARY",
	COND_JUMP:              "COND_JUMP",
	MEMBER_ACCESS:          "MEMBER_ACCESS",
	MEMBER_ACCESS_COMPUTED: "MEMBER_ACCESS_COMPUTED",
	MEMBER_ACCESS_GLOBAL:   "MEMBER_ACCESS_GLOBAL",
	MEMBER_ASSIGN:          "MEMBER_ASSIGN",
	MEMBER_ASSIGN_COMPUTED: "MEMBER_ASSIGN_COMPUTED",
	CREATE_ARRAY:           "CREATE_ARRAY",
	CREATE_OBJECT:          "CREATE_OBJECT",
	NEW_INSTANCE:           "NEW_INSTANCE",
	NEW_EXTERNAL_INSTANCE:  "NEW_EXTERNAL_INSTANCE",
	METHOD_CALL:            "METHOD_CALL",
	EXTERNAL_CALL:          "EXTERNAL_CALL",
	PUSH_CATCH_HANDLER:     "PUSH_CATCH_HANDLER",
	POP_CATCH_HANDLER:      "POP_CATCH_HANDLER",
	FINALLY_DISPATCH:       "FINALLY_DISPATCH",
	EXECUTE_STATEMENT:      "EXECUTE_STATEMENT",
	DEAD:                   "DEAD",
}

func (o OpType) String() string {
	if int(o) >= 0 && int(o) < len(opNames) && opNames[o] != "" {
		return opNames[o]
	}
	return "INVALID"
}

// Terminal reports whether an op never uses State.Next (spec.md §3):
// RETURN, THROW, HALT, COND_JUMP, FINALLY_DISPATCH transfer control
// exclusively through their own fields.
func (o OpType) Terminal() bool {
	switch o {
	case RETURN, THROW, HALT, COND_JUMP, FINALLY_DISPATCH:
		return true
	default:
		return false
	}
}

// Suspending reports whether an op is a VM suspension point (spec.md §5):
// AWAIT and YIELD release control to the host. CALL is not reported as
// suspending, whether or not its callee is async or a generator.
func (o OpType) Suspending() bool {
	switch o {
	case AWAIT, YIELD:
		return true
	default:
		return false
	}
}

// Sensitive reports whether a state is disqualified from block-merging
// (spec.md §4.4 "Block merging"): CALL/COND_JUMP/RETURN/THROW/HALT/YIELD/
// AWAIT/FINALLY_DISPATCH.
func (o OpType) Sensitive() bool {
	switch o {
	case CALL, COND_JUMP, RETURN, THROW, HALT, YIELD, AWAIT, FINALLY_DISPATCH:
		return true
	default:
		return false
	}
}
