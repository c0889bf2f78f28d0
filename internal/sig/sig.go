// Package sig derives the compile-time signatures the control-flow
// protector assigns to basic blocks, and the per-instruction additive
// constants RACFED inserts, from a stable hash rather than a random
// source. The same module hashes to the same signature table on every
// invocation, which is required for the protector's idempotence property:
// running it twice over its own output must not perturb the signatures of
// blocks it already touched.
package sig

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// key hashes a stable string key into a blake2b-256 digest.
func key(parts ...string) [32]byte {
	var buf []byte
	for _, p := range parts {
		buf = append(buf, p...)
		buf = append(buf, 0)
	}
	return blake2b.Sum256(buf)
}

// foldRange folds a 32-byte digest into the closed range [lo, hi], reading
// the first 8 digest bytes as a uint64 before reducing modulo the range
// width.
func foldRange(digest [32]byte, lo, hi uint64) uint64 {
	v := binary.BigEndian.Uint64(digest[:8])
	width := hi - lo + 1
	return lo + (v % width)
}

// BlockSignature derives a block's compile-time signature CT(B), folded
// into [1, 2^31-1] so RASM/RACFED keep additive headroom.
func BlockSignature(module, function, label string) uint32 {
	d := key("ct", module, function, label)
	return uint32(foldRange(d, 1, (1<<31)-1))
}

// AdjustSignature derives a block's SR adjustment value, independent of
// its compile-time signature, using a distinct key namespace so CT and SR
// never collide even for identical (module, function, label) inputs.
func AdjustSignature(module, function, label string) uint32 {
	d := key("sr", module, function, label)
	return uint32(foldRange(d, 1, (1<<31)-1))
}

// InstructionConstant derives RACFED's per-instruction additive update K_i
// for the i'th original instruction of a block, seeded from the block's
// own compile-time signature so the sequence is reproducible without
// persisting any random state (matching how the original RACFED pass
// seeds its constants from the block signature rather than an independent
// draw).
func InstructionConstant(blockSig uint32, index int) uint64 {
	d := key("racfed-k", fmt.Sprintf("%d", blockSig), fmt.Sprintf("%d", index))
	return binary.BigEndian.Uint64(d[:8])
}

// ReturnSignature derives RACFED's per-function random return-check value
// R, seeded from the block signature of the function's final block.
func ReturnSignature(module, function string, finalBlockSig uint32) uint64 {
	d := key("racfed-r", module, function, fmt.Sprintf("%d", finalBlockSig))
	return binary.BigEndian.Uint64(d[:8])
}
