package codegen

import "github.com/vortex-obf/vortexc/internal/rng"

// identAlphabet avoids digits in the leading position and avoids characters
// that read as ambiguous in a generated diff, but is otherwise arbitrary.
const identAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
const identTail = identAlphabet + "0123456789"

// randIdent builds a short, legal, randomized JS identifier prefixed with
// hint (purely for readability of the emitted source while debugging the
// compiler itself; hint carries no semantic weight and is never required
// to be unique, since the random suffix is). This is new code: the teacher
// compiler never needs randomized identifiers, since it emits a binary, not
// obfuscated source text.
func randIdent(src *rng.Source, hint string) string {
	const suffixLen = 6
	b := make([]byte, suffixLen)
	for i := range b {
		b[i] = identTail[src.Intn(len(identTail))]
	}
	return hint + "_" + string(b)
}
