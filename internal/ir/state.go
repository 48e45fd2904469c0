package ir

import "github.com/vortex-obf/vortexc/internal/ast"

// FinDisposition is the `_FIN` disposition code (spec.md §4.3.1, §6).
type FinDisposition int

const (
	FinNormal   FinDisposition = 0
	FinReturn   FinDisposition = 1
	FinBreak    FinDisposition = 2
	FinContinue FinDisposition = 3
	FinThrow    FinDisposition = 4
)

// FragmentKind discriminates an embedded AST fragment carried by
// EXECUTE_STATEMENT/ASSIGN_LITERAL_DIRECT states. Spec.md §9 calls for
// modeling these as "a sum type of embedded fragment kinds... rather than
// an opaque node blob" so the optimizer can walk them for usage counting;
// this is that sum type.
type FragmentKind int

const (
	FragFuncExpr FragmentKind = iota
	FragClassExpr
	FragBlockStmt
	FragExpr
)

// Fragment is an embedded AST payload plus its discriminant.
type Fragment struct {
	Kind FragmentKind
	Node *ast.Node
}

// StringRef marks an ASSIGN_LITERAL.Value payload as a pool-backed string
// rather than a scalar constant: the generator records only the original
// plaintext here, and the code generator resolves it through the finalized
// string pool (internal/strpool) at emit time, so the pool's shuffle and
// concealment stay entirely a code-generation concern.
type StringRef struct{ Text string }

// Property is one entry of a CREATE_OBJECT state's Properties list.
type Property struct {
	KeyName  string // static key name, meaningful when !Computed
	KeyVar   int    // memory slot holding the computed key value, meaningful when Computed
	Computed bool
	ValueVar int  // memory slot holding the property value
	Spread   bool // true if this entry is `...expr`
}

// State is one node of the flat CFG (spec.md §3): `{id, op, next}` plus the
// operation-specific fields from the bit-exact catalog in spec.md §6. Only
// the fields relevant to State.Op are meaningful for any given state; this
// mirrors the teacher compiler's own single-struct-many-optional-fields
// Inst type (std/compiler/ir.go) scaled up to the larger opcode catalog
// this spec defines.
type State struct {
	ID   int
	Op   OpType
	Next *int // nil when Op.Terminal() or there is no fallthrough

	// ASSIGN / ASSIGN_GLOBAL / BINARY / UNARY / MEMBER_* operand slots.
	// RETRIEVE_RESULT also uses From (always memory.Slot(memory.RET)) and To
	// (destination temp).
	To, From   int
	Left, Right int
	Operand    int    // UNARY operand
	Operator   string // operator token for BINARY/UNARY ("+", "!", "typeof", ...)

	// COND_JUMP.
	TestVar            int
	TrueState, FalseState int

	// CALL / POST_CALL / RETRIEVE_RESULT / METHOD_CALL / EXTERNAL_CALL.
	Callee         string // known function name, or "" for computed/external calls
	CalleeVar      int    // memory slot holding the callee value when Callee == ""
	Args           []int  // memory slots of evaluated arguments
	ValueVar       int    // METHOD_CALL|EXTERNAL_CALL destination / RETURN|THROW payload / YIELD|AWAIT operand
	ThisObject     int    // memory slot for the receiver, METHOD_CALL/NEW_INSTANCE
	CallerFuncName string // enclosing function name, used by the TCO pass

	// GOTO / PUSH_CATCH_HANDLER / FINALLY_DISPATCH (disposition-0 fallthrough
	// target) / NEW_INSTANCE (constructor FUNC_ENTRY id).
	Target int

	// MEMBER_ACCESS / MEMBER_ACCESS_COMPUTED / MEMBER_ACCESS_GLOBAL /
	// MEMBER_ASSIGN / MEMBER_ASSIGN_COMPUTED.
	Object     int
	Property   string // static property name, meaningful when !Computed
	KeyVar     int    // memory slot holding the computed key, meaningful when Computed
	Computed   bool
	GlobalName string

	// CREATE_ARRAY / CREATE_OBJECT.
	Elements   []int
	Properties []Property
	SpreadVar  int // memory slot for a single trailing spread element, or -1

	// NEW_INSTANCE / NEW_EXTERNAL_INSTANCE.
	ClassName string
	Instance  int // destination slot for the constructed value

	// FUNC_ENTRY.
	Params      []int // parameter memory slots, explicit captures appended (spec.md §4.3.2)
	Name        string
	IsGenerator bool
	IsAsync     bool

	// YIELD.
	Delegate bool

	// ASSIGN_LITERAL / ASSIGN_LITERAL_DIRECT.
	Value interface{} // scalar literal for ASSIGN_LITERAL: float64, StringRef, bool, or nil

	// EXECUTE_STATEMENT / ASSIGN_LITERAL_DIRECT embedded payload.
	Statement *Fragment

	// FINALLY_DISPATCH.
	FinSlot  int // memory slot of `_FIN`
	FinVSlot int // memory slot of `_FIN_V`

	// SEQUENCE (block-merged run of states, spec.md §4.4 "Block merging").
	Seq []*State

	// TCO rewrite bookkeeping (spec.md §4.4 "TCO"): the temps buffering
	// the next call's arguments before they overwrite the current frame's
	// parameters.
	TempVars []int
}

// IsDead reports whether this state has been tombstoned.
func (s *State) IsDead() bool { return s.Op == DEAD }
