package vortexerr

import (
	"errors"
	"strings"
	"testing"
)

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		UnsupportedSyntax:     "UnsupportedSyntax",
		UnallocatedVariable:   "UnallocatedVariable",
		UnknownFunction:       "UnknownFunction",
		MissingString:         "MissingString",
		InvalidStateReference: "InvalidStateReference",
		IllegalJump:           "IllegalJump",
		IntegrityFailure:      "IntegrityFailure",
		Kind(999):             "UnknownKind",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", kind, got, want)
		}
	}
}

func TestNewFormatsMessageWithoutPosition(t *testing.T) {
	err := New(UnknownFunction, "call to %q", "foo")
	got := err.Error()
	if !strings.Contains(got, "UnknownFunction") || !strings.Contains(got, `call to "foo"`) {
		t.Fatalf("Error() = %q, missing expected substrings", got)
	}
	if strings.Contains(got, " at ") {
		t.Fatalf("Error() = %q, should not mention a position", got)
	}
}

func TestAtIncludesPosition(t *testing.T) {
	err := At(IllegalJump, 42, "bad target")
	got := err.Error()
	if !strings.Contains(got, "at 42") {
		t.Fatalf("Error() = %q, want to mention position 42", got)
	}
}

func TestWrapUnwraps(t *testing.T) {
	cause := errors.New("underlying failure")
	err := Wrap(IntegrityFailure, cause, "module broke")
	if !errors.Is(err, cause) {
		t.Fatal("Wrap-constructed error does not unwrap to its cause")
	}
	if !strings.Contains(err.Error(), "module broke") {
		t.Fatalf("Error() = %q, missing message", err.Error())
	}
}

func TestCompileErrorIsAnError(t *testing.T) {
	var err error = New(MissingString, "pool empty")
	if err == nil {
		t.Fatal("expected non-nil error value")
	}
}
