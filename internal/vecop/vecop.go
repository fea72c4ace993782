// Package vecop implements the Zvbb element-op emulator (C7). RV64 only.
// Each vector register is modeled as the Collaborators' [32]uint64 lane
// array — the whole architectural register, not a byte slice — per the
// save/restore-as-array design used throughout this core for register
// file access. Elements are addressed within that array by SEW.
package vecop

import (
	"math/bits"

	"github.com/rcornwell/rv-illegal-insn/internal/trapctx"
)

// VLMAXBytes bounds the vector register length this core models.
const VLMAXBytes = 256

const (
	f6Brev8 = 0b010010
	f6Rev8  = 0b010010 // shares the OPIVI/OPMVV unary space with brev8; vs1 selects the operation
	f6Unary = 0b010010
	f6Clz   = 0b010010
	f6AndN  = 0b000001
	f6Rol   = 0b010101
	f6Ror   = 0b010100
	f6WSll  = 0b110101
)

// unary vs1 selectors within the VWXUNARY0/VXUNARY0-shaped encoding space.
const (
	vs1Brev8 = 0b01000
	vs1Rev8  = 0b01001
	vs1Clz   = 0b01010
	vs1Ctz   = 0b01011
	vs1Cpop  = 0b01110
	vs1Brev  = 0b01111
)

// Sew enumerates the element widths Zvbb operates on.
type Sew int

const (
	Sew8 Sew = iota
	Sew16
	Sew32
	Sew64
)

func (s Sew) bits() int {
	switch s {
	case Sew8:
		return 8
	case Sew16:
		return 16
	case Sew32:
		return 32
	default:
		return 64
	}
}

// Request bundles the decoded vector-arithmetic fields the top dispatcher
// extracts from the instruction and its preceding vsetvli state. XLEN
// other than 64 is out of scope for Zvbb; Emulate reports unrecognized.
type Request struct {
	Funct6 uint32
	Vs1    uint32
	Vs2    uint32
	Vd     uint32
	VL     int
	SEW    Sew
	XLen   int
}

// Emulate applies a Zvbb element-wise operation across the first VL
// elements of the SEW-wide lanes in vs2 (and vs1, for binary ops),
// writing the result into vd. It returns (Handled, true) or, for any
// combination this core does not model, (0, false).
func Emulate(req Request, ctx *trapctx.TrapContext, c trapctx.Collaborators) (rc int, recognized bool) {
	if req.XLen != 64 {
		return 0, false
	}
	if ctx.Regs.VSOff(ctx.PrevMode, c.Sstatus()) {
		return trapctx.Redirect(0, ctx, c), true
	}
	if req.VL*(req.SEW.bits()/8) > VLMAXBytes {
		return 0, false
	}

	vs2 := c.VReg(req.Vs2)
	var out [32]uint64

	switch req.Funct6 {
	case f6Unary:
		fn, ok := unaryOp(req.Vs1, req.SEW)
		if !ok {
			return 0, false
		}
		applyUnary(&out, vs2, req.VL, req.SEW, fn)
	case f6AndN:
		vs1 := c.VReg(req.Vs1)
		applyBinary(&out, vs2, vs1, req.VL, req.SEW, func(a, b uint64) uint64 { return a &^ b })
	case f6Rol:
		vs1 := c.VReg(req.Vs1)
		applyBinary(&out, vs2, vs1, req.VL, req.SEW, rotateFn(req.SEW, true))
	case f6Ror:
		vs1 := c.VReg(req.Vs1)
		applyBinary(&out, vs2, vs1, req.VL, req.SEW, rotateFn(req.SEW, false))
	case f6WSll:
		if req.SEW == Sew64 {
			return 0, false // no further widening beyond 64
		}
		if req.VL*2*(req.SEW.bits()/8) > VLMAXBytes {
			return 0, false
		}
		vs1 := c.VReg(req.Vs1)
		applyWideningShift(&out, vs2, vs1, req.VL, req.SEW)
	default:
		return 0, false
	}

	c.SetVReg(req.Vd, out)
	ctx.Regs.Mepc += 4
	return trapctx.Handled, true
}

func unaryOp(vs1 uint32, sew Sew) (func(uint64) uint64, bool) {
	width := sew.bits()
	switch vs1 {
	case vs1Brev8:
		return brev8, true
	case vs1Rev8:
		return func(v uint64) uint64 { return rev8Bytes(v, width) }, true
	case vs1Clz:
		return func(v uint64) uint64 { return uint64(countLeadingZeros(v, width)) }, true
	case vs1Ctz:
		return func(v uint64) uint64 { return uint64(countTrailingZeros(v, width)) }, true
	case vs1Cpop:
		return func(v uint64) uint64 { return uint64(bits.OnesCount64(v)) }, true
	case vs1Brev:
		return func(v uint64) uint64 { return brevFull(v, width) }, true
	}
	return nil, false
}

func getElement(lanes [32]uint64, idx int, sew Sew) uint64 {
	elemsPerWord := 64 / sew.bits()
	word := idx / elemsPerWord
	off := idx % elemsPerWord
	shift := uint(off * sew.bits())
	mask := elementMask(sew)
	return (lanes[word] >> shift) & mask
}

func setElement(lanes *[32]uint64, idx int, sew Sew, val uint64) {
	elemsPerWord := 64 / sew.bits()
	word := idx / elemsPerWord
	off := idx % elemsPerWord
	shift := uint(off * sew.bits())
	mask := elementMask(sew)
	lanes[word] = (lanes[word] &^ (mask << shift)) | ((val & mask) << shift)
}

func elementMask(sew Sew) uint64 {
	if sew == Sew64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(sew.bits())) - 1
}

func applyUnary(out *[32]uint64, vs2 [32]uint64, vl int, sew Sew, fn func(uint64) uint64) {
	for i := 0; i < vl; i++ {
		setElement(out, i, sew, fn(getElement(vs2, i, sew)))
	}
}

func applyBinary(out *[32]uint64, vs2, vs1 [32]uint64, vl int, sew Sew, fn func(a, b uint64) uint64) {
	for i := 0; i < vl; i++ {
		a := getElement(vs2, i, sew)
		b := getElement(vs1, i, sew)
		setElement(out, i, sew, fn(a, b))
	}
}

func applyWideningShift(out *[32]uint64, vs2, vs1 [32]uint64, vl int, sew Sew) {
	narrow := sew
	wide := widen(sew)
	for i := 0; i < vl; i++ {
		a := getElement(vs2, i, narrow)
		shamt := getElement(vs1, i, narrow) & uint64(wide.bits()-1)
		setElementWide(out, i, wide, a<<shamt)
	}
}

func widen(sew Sew) Sew {
	switch sew {
	case Sew8:
		return Sew16
	case Sew16:
		return Sew32
	default:
		return Sew64
	}
}

func setElementWide(lanes *[32]uint64, idx int, sew Sew, val uint64) {
	setElement(lanes, idx, sew, val&elementMask(sew))
}

func rotateFn(sew Sew, left bool) func(a, b uint64) uint64 {
	width := uint(sew.bits())
	return func(a, b uint64) uint64 {
		shamt := uint(b) % width
		v := uint32(a)
		if width == 64 {
			if left {
				return bits.RotateLeft64(a, int(shamt))
			}
			return bits.RotateLeft64(a, -int(shamt))
		}
		if left {
			return uint64(rotl32(v, shamt, width))
		}
		return uint64(rotl32(v, width-shamt, width))
	}
}

func rotl32(v uint32, k, width uint) uint32 {
	if k == 0 {
		return v & uint32((uint64(1)<<width)-1)
	}
	mask := uint32((uint64(1) << width) - 1)
	v &= mask
	return ((v << k) | (v >> (width - k))) & mask
}

func countLeadingZeros(v uint64, width int) int {
	if v == 0 {
		return width
	}
	return bits.LeadingZeros64(v) - (64 - width)
}

func countTrailingZeros(v uint64, width int) int {
	if v == 0 {
		return width
	}
	n := bits.TrailingZeros64(v)
	if n > width {
		return width
	}
	return n
}

func brev8(v uint64) uint64 {
	var out uint64
	n := 8
	for i := 0; i < 64; i += n {
		b := byte(v >> i)
		out |= uint64(bits.Reverse8(b)) << i
	}
	return out
}

func rev8Bytes(v uint64, width int) uint64 {
	nbytes := width / 8
	var out uint64
	for i := 0; i < nbytes; i++ {
		b := byte(v >> (i * 8))
		out |= uint64(b) << ((nbytes - 1 - i) * 8)
	}
	return out
}

func brevFull(v uint64, width int) uint64 {
	return bits.Reverse64(v) >> (64 - width)
}
