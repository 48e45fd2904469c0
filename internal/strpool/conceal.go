// Package strpool implements the String Concealer & Collector (spec.md
// §4.1): a pure, seeded N-dimensional wave-interference obfuscation
// transform plus the AST string harvesting and pool assignment that feeds
// it. Grounded in shape on the teacher compiler's text-emission style
// (std/compiler/backend_ir.go's strings.Builder-based textual encoding) but
// the transform itself is new code implementing spec.md §4.1 directly,
// since the teacher has no concealment analogue.
package strpool

import (
	"encoding/base64"
	"math"
	"math/bits"

	"github.com/vortex-obf/vortexc/internal/rng"
)

// SeedSize is the length in bytes of the random seed prefixed to every
// concealed payload (spec.md §3 "Concealed payload").
const SeedSize = 16

// wave is one interference wave as described in spec.md §4.1 step 4.
type wave struct {
	origin []int // one coordinate per dimension
	amp    int
	freq   float64
	phase  float64
	rot    uint
}

// deriveWaves builds the dimensionality, strides, and wave set for a
// payload of length n, deterministically from seed, per spec.md §4.1 steps
// 1-4.
func deriveWaves(seed []byte, n int) (strides []int, extents []int, waves []wave) {
	src := rng.NewSource(rng.SeedFromBytes(seed))

	// Step 2: dimensionality d in [2,5].
	d := src.Intn(4) + 2

	// Step 3: dimension extents so their product >= n, strides row-major
	// with the last stride equal to 1.
	extents = make([]int, d)
	for i := range extents {
		extents[i] = 1
	}
	product := 1
	for product < maxInt(n, 1) {
		i := 0
		for i < d && product < maxInt(n, 1) {
			extents[i]++
			product = 1
			for _, e := range extents {
				product *= e
			}
			i++
		}
	}
	strides = make([]int, d)
	strides[d-1] = 1
	for i := d - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * extents[i+1]
	}

	// Step 4: w = max(8, min(64, floor(sqrt(n)))) interference waves.
	w := int(math.Sqrt(float64(n)))
	if w > 64 {
		w = 64
	}
	if w < 8 {
		w = 8
	}
	waves = make([]wave, w)
	for i := range waves {
		origin := make([]int, d)
		for k := range origin {
			origin[k] = src.Intn(extents[k])
		}
		waves[i] = wave{
			origin: origin,
			amp:    src.Intn(256),
			freq:   0.5 + src.Float64()*4.0,
			phase:  src.Float64() * 2 * math.Pi,
			rot:    uint(1 + src.Intn(8)),
		}
	}
	return strides, extents, waves
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// coordsOf maps a flat byte index to its N-D coordinates via the row-major
// strides computed in deriveWaves.
func coordsOf(i int, strides, extents []int) []int {
	coords := make([]int, len(strides))
	for k := range strides {
		coords[k] = (i / strides[k]) % extents[k]
	}
	return coords
}

func euclidean(a, b []int) float64 {
	var sum float64
	for i := range a {
		diff := float64(a[i] - b[i])
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

// waveMask computes m = floor(amp * (sin(dist*freq+phase)+1)/2), the
// per-byte mask spec.md §4.1 step 5 derives from one wave at one
// coordinate. It depends only on position and wave parameters, never on
// the data byte itself, so encode and decode can recompute it identically.
func waveMask(w wave, coords []int) byte {
	dist := euclidean(coords, w.origin)
	v := float64(w.amp) * (math.Sin(dist*w.freq+w.phase) + 1) / 2
	return byte(int(v))
}

// Conceal implements conceal(s) -> payload: 16 random seed bytes followed
// by len(s) transformed bytes, base64-encoded (spec.md §3, §4.1). Same s
// with the same seed yields the same payload byte-for-byte.
func Conceal(s []byte, seed [SeedSize]byte) string {
	n := len(s)
	strides, extents, waves := deriveWaves(seed[:], n)

	out := make([]byte, n)
	copy(out, s)
	for wi := range waves {
		w := waves[wi]
		for i := 0; i < n; i++ {
			coords := coordsOf(i, strides, extents)
			m := waveMask(w, coords)
			out[i] = bits.RotateLeft8(out[i], int(w.rot)) ^ m
		}
	}

	payload := make([]byte, 0, SeedSize+n)
	payload = append(payload, seed[:]...)
	payload = append(payload, out...)
	return base64.StdEncoding.EncodeToString(payload)
}

// Reveal implements decode(payload) -> s, the exact inverse of Conceal:
// it reverses wave order and undoes the rotate+xor with rotr8(byte^m, rot)
// (spec.md §4.1 step 6).
func Reveal(payload string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, err
	}
	if len(raw) < SeedSize {
		return nil, errShortPayload
	}
	var seed [SeedSize]byte
	copy(seed[:], raw[:SeedSize])
	data := append([]byte(nil), raw[SeedSize:]...)
	n := len(data)

	strides, extents, waves := deriveWaves(seed[:], n)

	for wi := len(waves) - 1; wi >= 0; wi-- {
		w := waves[wi]
		for i := 0; i < n; i++ {
			coords := coordsOf(i, strides, extents)
			m := waveMask(w, coords)
			data[i] = bits.RotateLeft8(data[i]^m, -int(w.rot))
		}
	}
	return data, nil
}

var errShortPayload = shortPayloadError{}

type shortPayloadError struct{}

func (shortPayloadError) Error() string { return "strpool: concealed payload shorter than seed" }
