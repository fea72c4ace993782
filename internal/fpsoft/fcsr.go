// Package fpsoft implements the bit-exact IEEE-754 soft-float helpers (C3):
// half/single/double conversions, round-to-integer, fcvtmod.w.d, and
// NaN-boxed register access. Every algorithm and constant here is grounded
// on the OpenSBI illegal-instruction emulator this core's behavior was
// modeled on; nothing is approximated.
package fpsoft

// Rounding-mode field encodings (fcsr[7:5] / the rm instruction field).
const (
	RNE = 0
	RTZ = 1
	RDN = 2
	RUP = 3
	RMM = 4
	DYN = 7
)

// Accrued-exception flag bits (fcsr[4:0]).
const (
	FlagNX uint32 = 0x01 // inexact
	FlagUF uint32 = 0x02 // underflow
	FlagOF uint32 = 0x04 // overflow
	FlagDZ uint32 = 0x08 // divide by zero
	FlagNV uint32 = 0x10 // invalid operation
)

// ResolveRM turns the dynamic rounding mode into a concrete one by reading
// fcsr[7:5]. Reserved encodings 5 and 6 make the instruction illegal; the
// caller must redirect in that case.
func ResolveRM(rmField uint32, fcsr uint32) (rm uint32, ok bool) {
	if rmField != DYN {
		rm = rmField
	} else {
		rm = (fcsr >> 5) & 0x7
	}
	if rm == 5 || rm == 6 {
		return 0, false
	}
	return rm, true
}

// Canonical quiet NaN bit patterns per precision.
const (
	CanonicalNaN16 uint16 = 0x7e00
	CanonicalNaN32 uint32 = 0x7fc00000
	CanonicalNaN64 uint64 = 0x7ff8000000000000
)

func isSignalingNaN16(v uint16) bool {
	return (v&0x7c00) == 0x7c00 && (v&0x3ff) != 0 && (v&0x200) == 0
}

func isSignalingNaN32(v uint32) bool {
	return (v&0x7f800000) == 0x7f800000 && (v&0x7fffff) != 0 && (v&0x400000) == 0
}

func isSignalingNaN64(v uint64) bool {
	return (v&0x7ff0000000000000) == 0x7ff0000000000000 &&
		(v&0xfffffffffffff) != 0 && (v&0x8000000000000) == 0
}

func isNaN16(v uint16) bool { return (v&0x7c00) == 0x7c00 && (v&0x3ff) != 0 }
func isNaN32(v uint32) bool { return (v&0x7f800000) == 0x7f800000 && (v&0x7fffff) != 0 }
func isNaN64(v uint64) bool {
	return (v&0x7ff0000000000000) == 0x7ff0000000000000 && (v&0xfffffffffffff) != 0
}

// --- NaN boxing -------------------------------------------------------------

// UnboxF16 reads a half-precision value out of a 32-bit-or-wider register
// image, per the NaN-boxing rule in spec.md §3: the upper bits must read
// as all ones or the value is replaced with the canonical qNaN on the fly.
func UnboxF16(reg uint32) uint16 {
	if reg&0xffff0000 != 0xffff0000 {
		return CanonicalNaN16
	}
	return uint16(reg)
}

// BoxF16 produces the bit pattern to store into a 32-bit FP register for a
// half-precision write: NaN-box by OR-ing in the upper half.
func BoxF16(val uint16) uint32 {
	return uint32(val) | 0xffff0000
}
