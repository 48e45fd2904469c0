// Package ast is the minimal external AST surface the Vortex pipeline
// consumes. The host-language parser itself is out of scope (spec.md §1
// treats it as an external collaborator); this package only pins down the
// node shapes internal/irgen needs to walk. It follows the teacher
// compiler's own choice (std/compiler/parser.go's single Node struct with a
// Kind discriminant and a handful of generic fields, rather than one Go
// type per syntax form) rather than a hundred-type Visitor hierarchy.
package ast

// Kind discriminates the tagged Node variant.
type Kind int

const (
	// Module-level
	Program Kind = iota
	ImportDecl
	ExportDecl

	// Statements
	BlockStmt
	ExprStmt
	VarDecl
	FuncDecl
	ClassDecl
	IfStmt
	WhileStmt
	DoWhileStmt
	ForStmt
	ForOfStmt
	ForInStmt
	SwitchStmt
	SwitchCase
	TryStmt
	CatchClause
	ThrowStmt
	ReturnStmt
	BreakStmt
	ContinueStmt
	LabeledStmt
	EmptyStmt

	// Expressions
	Ident
	ThisExpr
	NewTargetExpr
	NumberLit
	StringLit
	BooleanLit
	NullLit
	TemplateLit
	ArrayLit
	ObjectLit
	Property
	FuncExpr
	ArrowFuncExpr
	ClassExpr
	AssignExpr
	BinaryExpr
	LogicalExpr
	UnaryExpr
	UpdateExpr
	ConditionalExpr
	CallExpr
	NewExpr
	MemberExpr
	SequenceExpr
	SpreadElement
	AwaitExpr
	YieldExpr

	// Patterns (destructuring)
	ArrayPattern
	ObjectPattern
	AssignPattern
	RestElement

	// Class members
	MethodDef
	FieldDef
	PrivateName
	SuperExpr
)

// Node is the single tagged-union node type for the input AST. Not every
// field is meaningful for every Kind; see the comment on each field for
// which Kinds populate it. Pos is a best-effort source offset used only for
// diagnostics (spec.md §7).
type Node struct {
	Kind Kind
	Pos  int

	// Name holds: Ident name, declared function/class name, label name,
	// property key for non-computed MemberExpr/Property, private field
	// name (without the leading '#'), binding name for catch clauses.
	Name string

	// Op holds the operator token for BinaryExpr/LogicalExpr/UnaryExpr/
	// UpdateExpr/AssignExpr (e.g. "+", "&&", "!", "++", "+=").
	Op string

	// Value holds the literal payload: NumberLit (float64 boxed as
	// interface{}), StringLit (string), BooleanLit (bool). NullLit carries
	// no Value.
	Value interface{}

	// Computed marks MemberExpr/Property as using a bracketed, dynamic key
	// rather than a static identifier/string key.
	Computed bool

	// Static marks MethodDef/FieldDef as class-level rather than
	// instance-level (spec.md §4.3.3).
	Static bool

	// IsPrivate marks MethodDef/FieldDef/MemberExpr whose key is a
	// PrivateName (spec.md §4.3.3 "#name").
	IsPrivate bool

	// Kind2 distinguishes sub-variants sharing a Kind: MethodDef method
	// kind ("method", "get", "set", "constructor"); VarDecl declarator
	// kind ("let", "const", "var").
	Kind2 string

	// IsAsync / IsGenerator mark FuncDecl/FuncExpr/ArrowFuncExpr/MethodDef.
	IsAsync     bool
	IsGenerator bool

	// Delegate marks YieldExpr as `yield*` (spec.md §4.3 "expression
	// handlers").
	Delegate bool

	// Prefix marks UpdateExpr as `++x`/`--x` rather than `x++`/`x--`.
	Prefix bool

	// Directives carries body-level scope-opt-in directive strings found
	// literally as the first statements of a Program/BlockStmt/function
	// body (spec.md §2 Preprocessor: `"use vortex"`).
	Directives []string

	// Children-ish slots. Which ones are populated depends on Kind; this
	// mirrors the teacher's Node.{X,Y,Body,Nodes} generic slot scheme.
	Object    *Node   // MemberExpr/CallExpr callee object, ExprStmt expression
	Property2 *Node   // MemberExpr computed-key expression, Property value (non-computed key in Name)
	Left      *Node   // BinaryExpr/LogicalExpr/AssignExpr left, Property computed-key expression, AssignPattern target, ForOfStmt/ForInStmt binding (VarDecl or bare pattern)
	Right     *Node   // BinaryExpr/LogicalExpr/AssignExpr right, AssignPattern default value, ForOfStmt/ForInStmt iterable/object expression, FieldDef initializer (nil if absent)
	Test      *Node   // IfStmt/WhileStmt/DoWhileStmt/ForStmt/ConditionalExpr/SwitchCase test
	Consequent *Node  // IfStmt consequent, ConditionalExpr consequent
	Alternate  *Node  // IfStmt alternate, ConditionalExpr alternate
	Body      *Node   // function/loop/block body, CatchClause body, MethodDef body
	Init      *Node   // ForStmt init
	Update    *Node   // ForStmt update
	Callee    *Node   // CallExpr/NewExpr callee
	Argument  *Node   // ReturnStmt/ThrowStmt/YieldExpr/SpreadElement/RestElement/UnaryExpr/UpdateExpr/AwaitExpr argument
	Id        *Node   // VarDecl/CatchClause/FuncDecl/ClassDecl binding pattern or name node
	SuperClass *Node  // ClassDecl/ClassExpr superclass expression, nil if none
	Discriminant *Node // SwitchStmt discriminant
	Label     *Node   // LabeledStmt/BreakStmt/ContinueStmt label, nil if unlabeled

	// Child lists.
	Params     []*Node // FuncDecl/FuncExpr/ArrowFuncExpr/MethodDef parameters (may contain patterns)
	Body2      []*Node // Program/BlockStmt statement list, SwitchCase consequent statements
	Elements   []*Node // ArrayLit/ArrayPattern elements (may contain nil holes)
	Properties []*Node // ObjectLit/ObjectPattern properties
	Args       []*Node // CallExpr/NewExpr arguments
	Quasis     []string // TemplateLit cooked string fragments, len(Quasis) == len(Exprs)+1
	Exprs      []*Node  // TemplateLit interpolated expressions
	Cases      []*Node  // SwitchStmt cases (SwitchCase nodes, Test==nil for default)
	Declarations []*Node // VarDecl declarators, each an AssignPattern-shaped Node (Id + optional Init via Right)
	Members    []*Node // ClassDecl/ClassExpr body (MethodDef/FieldDef nodes)
	Handlers   []*Node // TryStmt: zero or one CatchClause in this slot
	Finalizer  *Node   // TryStmt finally block, nil if absent

	// Sequence expression parts.
	Sequence []*Node
}

// HasDirective reports whether the given directive literal (without quotes)
// appears in this node's Directives, e.g. HasDirective("use vortex").
func (n *Node) HasDirective(name string) bool {
	if n == nil {
		return false
	}
	for _, d := range n.Directives {
		if d == name {
			return true
		}
	}
	return false
}

// IsPattern reports whether a Node is a binding pattern (destructuring
// target) rather than a plain expression, per spec.md §4.3 "Assignment to a
// pattern: recursive destructure into MEMBER_ACCESS + ASSIGN chains."
func (n *Node) IsPattern() bool {
	if n == nil {
		return false
	}
	switch n.Kind {
	case ArrayPattern, ObjectPattern, AssignPattern, RestElement, Ident:
		return true
	default:
		return false
	}
}
