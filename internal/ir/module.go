package ir

import "github.com/vortex-obf/vortexc/internal/memory"

// Module is the arena of States plus the function table and memory map
// produced by the IR generator (spec.md §3 "Function table", §4.3). States
// reference each other exclusively by ID; Module is the only owner of the
// backing slice, matching spec.md §9 "Arena + index for states".
type Module struct {
	States []*State // index i always holds the state whose ID == i
	Memory *memory.Map

	// FuncTable maps every callable name discovered in the AST to its
	// FUNC_ENTRY state id (spec.md §3 "Function table"): populated before
	// IR generation proceeds, via the two-pass traversal (spec.md §4.3).
	FuncTable map[string]int

	// ClassTable maps every class name discovered in the AST to its
	// constructor FUNC_ENTRY state id, populated by the class lowering
	// pass (spec.md §4.3.3). Consulted by `new` to choose NEW_INSTANCE over
	// NEW_EXTERNAL_INSTANCE.
	ClassTable map[string]int

	// EntryID is the program's single entry state, always 0 (spec.md §3
	// "Exactly one state with id 0 exists, the program entry").
	EntryID int
}

// NewModule builds an empty Module ready for IR generation.
func NewModule(mem *memory.Map) *Module {
	return &Module{
		Memory:     mem,
		FuncTable:  make(map[string]int),
		ClassTable: make(map[string]int),
	}
}

// New allocates and appends a fresh state, assigning it the next dense id.
func (m *Module) New(op OpType) *State {
	s := &State{ID: len(m.States), Op: op}
	m.States = append(m.States, s)
	return s
}

// Get returns the state with the given id. Panics if id is out of range,
// since every reference in a well-formed Module must resolve (spec.md §3
// invariant, enforced continuously by internal/optimize's integrity
// check).
func (m *Module) Get(id int) *State {
	return m.States[id]
}

// Live reports whether id names a non-tombstoned state.
func (m *Module) Live(id int) bool {
	return id >= 0 && id < len(m.States) && m.States[id].Op != DEAD
}

// Kill tombstones a state to DEAD, per spec.md §3 "Lifecycles": states are
// never deleted, only tombstoned and later compacted.
func (m *Module) Kill(id int) {
	s := m.States[id]
	*s = State{ID: id, Op: DEAD}
}

// references invokes fn with every outgoing state-id reference the state
// carries (Next, TrueState/FalseState, Target, PUSH_CATCH_HANDLER target),
// per spec.md §4.4 "Integrity check (invariant)". Used by both the
// integrity checker and the reachability sweep so they can't drift apart.
func (s *State) references(fn func(id int)) {
	if s.Next != nil {
		fn(*s.Next)
	}
	switch s.Op {
	case COND_JUMP:
		fn(s.TrueState)
		fn(s.FalseState)
	case GOTO, PUSH_CATCH_HANDLER, NEW_INSTANCE:
		fn(s.Target)
	case FINALLY_DISPATCH:
		fn(s.Target)
	}
}

// References exposes the outgoing id references of a state for external
// callers (codegen, optimizer passes) that need to rewrite them uniformly.
func (s *State) References(fn func(id int)) { s.references(fn) }

// Walk calls fn once for every live state in id order.
func (m *Module) Walk(fn func(*State)) {
	for _, s := range m.States {
		if s.Op != DEAD {
			fn(s)
		}
	}
}

// Roots returns EntryID plus the FUNC_ENTRY ids in Module.FuncTable and
// Module.ClassTable, the root set the mark-and-sweep pass and the integrity checker anchor
// reachability to (spec.md §4.4 "mark-and-sweep from id 0 and every
// FUNC_ENTRY").
func (m *Module) Roots() []int {
	roots := []int{m.EntryID}
	for _, id := range m.FuncTable {
		roots = append(roots, id)
	}
	for _, id := range m.ClassTable {
		roots = append(roots, id)
	}
	return roots
}
