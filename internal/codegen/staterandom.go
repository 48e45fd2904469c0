package codegen

// stateIDMap renders the dispatcher-facing id for a logical state id.
// With Config.StateRandomization off this is the identity map; with it on,
// every live state id is mapped to a random, unique, large integer (spec.md
// §6 "stateRandomization: Map logical state ids to random 32-bit ints"),
// so the emitted switch/BST/cluster labels never read as sequential array
// indices.
type stateIDMap struct {
	table map[int]int
}

func (g *Generator) buildStateIDMap() *stateIDMap {
	m := &stateIDMap{table: make(map[int]int, len(g.stateOrder))}
	if !g.cfg.StateRandomization {
		for _, id := range g.stateOrder {
			m.table[id] = id
		}
		return m
	}
	used := map[int]bool{}
	for _, id := range g.stateOrder {
		for {
			v := int(g.src.Next() % 0x7fffffff)
			if v > 0 && !used[v] {
				used[v] = true
				m.table[id] = v
				break
			}
		}
	}
	return m
}

func (m *stateIDMap) of(logical int) int {
	if v, ok := m.table[logical]; ok {
		return v
	}
	return logical
}

// numLiteral renders a numeric literal, optionally disguised as a small
// arithmetic expression when Config.StateRandomization is on, skipped 20%
// of the time at random per call (spec.md §6 "rewrite numeric literals as
// small arithmetic expressions (20% skipped)").
func (g *Generator) numLiteral(v float64) string {
	if !g.cfg.StateRandomization || g.src.Bool(0.2) {
		return formatNumber(v)
	}
	if v != float64(int64(v)) {
		return formatNumber(v) // non-integers are left alone; the disguise only covers small ints
	}
	n := int64(v)
	delta := int64(g.src.Intn(997) + 1)
	if g.src.Bool(0.5) {
		return "(" + formatInt(n+delta) + " - " + formatInt(delta) + ")"
	}
	return "(" + formatInt(n-delta) + " + " + formatInt(delta) + ")"
}

func formatInt(n int64) string {
	return formatNumber(float64(n))
}
