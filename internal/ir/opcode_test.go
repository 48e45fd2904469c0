package ir

import "testing"

func TestOpTypeStringKnownValues(t *testing.T) {
	cases := map[OpType]string{
		SEQUENCE:   "SEQUENCE",
		GOTO:       "GOTO",
		FUNC_ENTRY: "FUNC_ENTRY",
		DEAD:       "DEAD",
	}
	for op, want := range cases {
		if got := op.String(); got != want {
			t.Errorf("OpType(%d).String() = %q, want %q", op, got, want)
		}
	}
}

func TestOpTypeStringOutOfRange(t *testing.T) {
	if got := OpType(-1).String(); got != "INVALID" {
		t.Errorf("OpType(-1).String() = %q, want INVALID", got)
	}
	if got := OpType(9999).String(); got != "INVALID" {
		t.Errorf("OpType(9999).String() = %q, want INVALID", got)
	}
}

func TestTerminalOps(t *testing.T) {
	terminal := []OpType{RETURN, THROW, HALT, COND_JUMP, FINALLY_DISPATCH}
	for _, op := range terminal {
		if !op.Terminal() {
			t.Errorf("%s.Terminal() = false, want true", op)
		}
	}
	nonTerminal := []OpType{ASSIGN, GOTO, CALL, NOOP, YIELD, AWAIT}
	for _, op := range nonTerminal {
		if op.Terminal() {
			t.Errorf("%s.Terminal() = true, want false", op)
		}
	}
}

func TestSuspendingOps(t *testing.T) {
	for _, op := range []OpType{YIELD, AWAIT} {
		if !op.Suspending() {
			t.Errorf("%s.Suspending() = false, want true", op)
		}
	}
	for _, op := range []OpType{RETURN, CALL, ASSIGN, GOTO} {
		if op.Suspending() {
			t.Errorf("%s.Suspending() = true, want false", op)
		}
	}
}

func TestSensitiveOps(t *testing.T) {
	sensitive := []OpType{CALL, COND_JUMP, RETURN, THROW, HALT, YIELD, AWAIT, FINALLY_DISPATCH}
	for _, op := range sensitive {
		if !op.Sensitive() {
			t.Errorf("%s.Sensitive() = false, want true", op)
		}
	}
	if ASSIGN.Sensitive() {
		t.Error("ASSIGN.Sensitive() = true, want false")
	}
}

func TestTerminalAndSuspendingAreDisjoint(t *testing.T) {
	for op := SEQUENCE; op <= DEAD; op++ {
		if op.Terminal() && op.Suspending() {
			t.Errorf("%s is both Terminal and Suspending", op)
		}
	}
}
