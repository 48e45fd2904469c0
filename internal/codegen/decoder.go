package codegen

import (
	"fmt"
	"strings"
)

// emitDecoder writes the JS inverse of internal/strpool's N-dimensional
// wave-interference transform (spec.md §4.1 step 6), plus the
// self-integrity check spec.md §6 requires: "it stashes the PRNG function's
// stringified length at load time and aborts on mismatch at decode time."
// The FNV-like mixer and wave derivation are a direct line-for-line port of
// internal/strpool/conceal.go's deriveWaves/Reveal, since both sides must
// compute byte-identical masks from the same seed for the round-trip
// property (spec.md §8 property 2) to hold.
func (g *Generator) emitDecoder(w *strings.Builder) {
	fn := g.names.decoder
	fmt.Fprintf(w, "function %s_mix(s, b) {\n", fn)
	w.WriteString("  s = (Math.imul(s ^ b, 0x01000193)) >>> 0;\n")
	w.WriteString("  return s === 0 ? 0x01000193 : s;\n")
	w.WriteString("}\n")

	fmt.Fprintf(w, "function %s_seed(bytes) {\n", fn)
	w.WriteString("  let s = 0x811c9dc5;\n")
	w.WriteString("  for (let i = 0; i < bytes.length; i++) s = " + fn + "_mix(s, bytes[i]);\n")
	w.WriteString("  return s >>> 0;\n")
	w.WriteString("}\n")

	fmt.Fprintf(w, "function %s_next(state) {\n", fn)
	w.WriteString("  let v = state.s;\n")
	w.WriteString("  for (let i = 0; i < 4; i++) v = " + fn + "_mix(v, (v >>> 24) & 0xff);\n")
	w.WriteString("  state.s = v;\n")
	w.WriteString("  return v >>> 0;\n")
	w.WriteString("}\n")

	fmt.Fprintf(w, "function %s_intn(state, n) { return %s_next(state) %% n; }\n", fn, fn)
	fmt.Fprintf(w, "function %s_float(state) { return %s_next(state) / 4294967296; }\n", fn, fn)

	fmt.Fprintf(w, "function %s_waves(seedBytes, n) {\n", fn)
	w.WriteString("  const state = { s: " + fn + "_seed(seedBytes) };\n")
	w.WriteString("  const d = " + fn + "_intn(state, 4) + 2;\n")
	w.WriteString("  const extents = new Array(d).fill(1);\n")
	w.WriteString("  let product = 1;\n")
	w.WriteString("  const target = Math.max(n, 1);\n")
	w.WriteString("  while (product < target) {\n")
	w.WriteString("    let i = 0;\n")
	w.WriteString("    while (i < d && product < target) {\n")
	w.WriteString("      extents[i]++;\n")
	w.WriteString("      product = extents.reduce((a, b) => a * b, 1);\n")
	w.WriteString("      i++;\n")
	w.WriteString("    }\n")
	w.WriteString("  }\n")
	w.WriteString("  const strides = new Array(d);\n")
	w.WriteString("  strides[d - 1] = 1;\n")
	w.WriteString("  for (let i = d - 2; i >= 0; i--) strides[i] = strides[i + 1] * extents[i + 1];\n")
	w.WriteString("  let wc = Math.floor(Math.sqrt(n));\n")
	w.WriteString("  if (wc > 64) wc = 64;\n")
	w.WriteString("  if (wc < 8) wc = 8;\n")
	w.WriteString("  const waves = new Array(wc);\n")
	w.WriteString("  for (let i = 0; i < wc; i++) {\n")
	w.WriteString("    const origin = new Array(d);\n")
	w.WriteString("    for (let k = 0; k < d; k++) origin[k] = " + fn + "_intn(state, extents[k]);\n")
	w.WriteString("    waves[i] = {\n")
	w.WriteString("      origin,\n")
	w.WriteString("      amp: " + fn + "_intn(state, 256),\n")
	w.WriteString("      freq: 0.5 + " + fn + "_float(state) * 4.0,\n")
	w.WriteString("      phase: " + fn + "_float(state) * 2 * Math.PI,\n")
	w.WriteString("      rot: 1 + " + fn + "_intn(state, 8),\n")
	w.WriteString("    };\n")
	w.WriteString("  }\n")
	w.WriteString("  return { strides, extents, waves };\n")
	w.WriteString("}\n")

	fmt.Fprintf(w, "function %s_coords(i, strides, extents) {\n", fn)
	w.WriteString("  const c = new Array(strides.length);\n")
	w.WriteString("  for (let k = 0; k < strides.length; k++) c[k] = Math.floor(i / strides[k]) % extents[k];\n")
	w.WriteString("  return c;\n")
	w.WriteString("}\n")

	fmt.Fprintf(w, "function %s_mask(wave, coords) {\n", fn)
	w.WriteString("  let sum = 0;\n")
	w.WriteString("  for (let k = 0; k < coords.length; k++) { const diff = coords[k] - wave.origin[k]; sum += diff * diff; }\n")
	w.WriteString("  const dist = Math.sqrt(sum);\n")
	w.WriteString("  const v = wave.amp * (Math.sin(dist * wave.freq + wave.phase) + 1) / 2;\n")
	w.WriteString("  return Math.floor(v) & 0xff;\n")
	w.WriteString("}\n")

	fmt.Fprintf(w, "function %s_rotr8(b, r) { r = ((r %% 8) + 8) %% 8; return ((b >>> r) | (b << (8 - r))) & 0xff; }\n", fn)

	fmt.Fprintf(w, "const %s_selfLen = (%s).toString().length;\n", fn, fn+"_next")
	fmt.Fprintf(w, "function %s(payload) {\n", fn)
	fmt.Fprintf(w, "  if ((%s).toString().length !== %s_selfLen) throw new Error('integrity');\n", fn+"_next", fn)
	w.WriteString("  const raw = Uint8Array.from(atob(payload), c => c.charCodeAt(0));\n")
	w.WriteString("  const seed = raw.slice(0, 16);\n")
	w.WriteString("  const data = raw.slice(16);\n")
	w.WriteString("  const n = data.length;\n")
	w.WriteString("  const { strides, extents, waves } = " + fn + "_waves(seed, n);\n")
	w.WriteString("  for (let wi = waves.length - 1; wi >= 0; wi--) {\n")
	w.WriteString("    const wave = waves[wi];\n")
	w.WriteString("    for (let i = 0; i < n; i++) {\n")
	w.WriteString("      const coords = " + fn + "_coords(i, strides, extents);\n")
	w.WriteString("      const m = " + fn + "_mask(wave, coords);\n")
	w.WriteString("      data[i] = " + fn + "_rotr8(data[i] ^ m, wave.rot);\n")
	w.WriteString("    }\n")
	w.WriteString("  }\n")
	w.WriteString("  return Array.from(data, b => String.fromCharCode(b)).join('');\n")
	w.WriteString("}\n")
}

// stringExpr returns the JS expression reading pool entry id, through the
// decoder when concealment is enabled, or the plaintext array directly
// when Config.NoEncryption is set.
func (g *Generator) stringExpr(id int) string {
	ref := fmt.Sprintf("%s[%d]", g.names.stringsID, id)
	if g.cfg.NoEncryption {
		return ref
	}
	return fmt.Sprintf("%s(%s)", g.names.decoder, ref)
}
