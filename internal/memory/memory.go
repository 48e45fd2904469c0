// Package memory implements the Memory Allocator (spec.md §3, §4.2): a
// dense name→index mapping, insertion-ordered, partitioned into per-frame
// local indices and a shared global region. Grounded on the teacher
// compiler's own name→slot bookkeeping (std/compiler/ir.go Compiler.scopes
// []map[string]int and Compiler.globals map[string]int), generalized from
// "one flat Go function frame" to "one heap shared by every virtualized
// function template".
package memory

// Reserved VM-internal slot names (spec.md §3). These are allocated before
// any user name, in this fixed order, so their indices are stable across a
// compilation regardless of program content.
var ReservedNames = []string{
	"_SP",         // stack pointer slot
	"_RET",        // return value
	"_EHP",        // exception-handler pointer
	"_EXV",        // last exception value
	"_FIN",        // finally-disposition code 0-4
	"_FIN_V",      // finally payload
	"_THIS",       // this-binding
	"_NEW_TARGET", // new.target
}

// Map is the append-only name→index mapping described in spec.md §3.
// Re-allocating an existing name is idempotent and never changes its
// isGlobal flag, per spec.md §4.2.
type Map struct {
	index    map[string]int
	names    []string // insertion order, index i holds the name at slot i
	isGlobal []bool   // parallel to names
	nextSlot int
}

// New builds a Map with the reserved VM slots pre-allocated as globals,
// matching spec.md §3: "All VM-internal slots must be allocated before user
// names."
func New() *Map {
	m := &Map{index: make(map[string]int)}
	for _, name := range ReservedNames {
		m.Allocate(name, true)
	}
	return m
}

// Allocate assigns name a dense integer index, or returns its existing
// index if already allocated. isGlobal is only honored on first allocation;
// subsequent calls ignore it, per spec.md §4.2.
func (m *Map) Allocate(name string, isGlobal bool) int {
	if idx, ok := m.index[name]; ok {
		return idx
	}
	idx := m.nextSlot
	m.nextSlot++
	m.index[name] = idx
	m.names = append(m.names, name)
	m.isGlobal = append(m.isGlobal, isGlobal)
	return idx
}

// Lookup returns the index for name and whether it has been allocated.
func (m *Map) Lookup(name string) (int, bool) {
	idx, ok := m.index[name]
	return idx, ok
}

// IsGlobal reports whether the slot at idx lives in the shared global
// region. Panics if idx is out of range, since that indicates a codegen bug
// (spec.md §7 UnallocatedVariable is raised by the caller before this, not
// by an out-of-range index here).
func (m *Map) IsGlobal(idx int) bool {
	return m.isGlobal[idx]
}

// Name returns the name originally allocated at idx.
func (m *Map) Name(idx int) string {
	return m.names[idx]
}

// Len returns the number of allocated slots (local + global).
func (m *Map) Len() int {
	return m.nextSlot
}

// Globals returns the indices of every global slot, insertion order.
func (m *Map) Globals() []int {
	var out []int
	for i, g := range m.isGlobal {
		if g {
			out = append(out, i)
		}
	}
	return out
}

// Locals returns the indices of every local (non-global) slot, insertion
// order.
func (m *Map) Locals() []int {
	var out []int
	for i, g := range m.isGlobal {
		if !g {
			out = append(out, i)
		}
	}
	return out
}

// Reserved slot name constants, mirroring spec.md §3 so callers don't
// stringly-type them.
const (
	SP         = "_SP"
	RET        = "_RET"
	EHP        = "_EHP"
	EXV        = "_EXV"
	FIN        = "_FIN"
	FINV       = "_FIN_V"
	THIS       = "_THIS"
	NEWTARGET  = "_NEW_TARGET"
)

// Slot returns the fixed index of a reserved name in a freshly constructed
// Map (they are allocated first, in ReservedNames order, so the index is
// simply that name's position in ReservedNames).
func Slot(name string) int {
	for i, n := range ReservedNames {
		if n == name {
			return i
		}
	}
	panic("memory: " + name + " is not a reserved slot name")
}
