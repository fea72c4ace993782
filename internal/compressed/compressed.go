// Package compressed implements the reserved-quadrant 16-bit emulators
// (C5): Zcb's C.LBU/C.LHU/C.LH/C.SB/C.SH/C.ZEXT.*/C.SEXT.*/C.NOT/C.MUL, and
// Zcmop's C.MOP.N.
package compressed

import "github.com/rcornwell/rv-illegal-insn/internal/trapctx"

// Emulate dispatches a 16-bit instruction; the top dispatcher passes every
// compressed encoding here. recognized reports whether the encoding matched
// one of the reserved-quadrant slots (C.LBU/LHU/LH/SB/SH, C.MOP.N, or the
// misc-ALU group); when it does not, the caller falls back to the redirect
// sink.
func Emulate(insn uint32, ctx *trapctx.TrapContext, c trapctx.Collaborators) (rc int, recognized bool) {
	switch {
	case matchesCLoadStoreByte(insn) || matchesCLoadStoreHalf(insn):
		return emulateMemOp(insn, ctx, c)
	case matchesCMop(insn):
		ctx.Regs.Mepc += 2
		return trapctx.Handled, true
	case matchesCMiscAlu(insn):
		return emulateMiscAlu(insn, ctx)
	default:
		return 0, false
	}
}

// The reserved quadrant (quadrant 0, funct3=100) encodes C.LBU/C.LHU/C.LH/
// C.SB/C.SH in bits [12:10] and the byte/halfword offset in bits [6:5].
func matchesCLoadStoreByte(insn uint32) bool {
	return trapctx.RVCFunct3(insn) == 0b100 && (insn>>10)&0x7 == 0b000 // C.LBU
}

func matchesCLoadStoreHalf(insn uint32) bool {
	bucket := (insn >> 10) & 0x7
	return trapctx.RVCFunct3(insn) == 0b100 && (bucket == 0b001 || bucket == 0b010 || bucket == 0b011)
}

func emulateMemOp(insn uint32, ctx *trapctx.TrapContext, c trapctx.Collaborators) (int, bool) {
	rs1 := ctx.Regs.GPR[trapctx.RVCRS1S(insn)]
	bucket := (insn >> 10) & 0x7

	switch bucket {
	case 0b000: // C.LBU
		off := cbyteOffset(insn)
		val, trap := c.LoadU8(rs1 + off)
		if trap != nil {
			ctx.Trap = *trap
			return c.Redirect(ctx.Regs, &ctx.Trap), true
		}
		ctx.Regs.GPR[trapctx.RVCRS2S(insn)] = uint64(val)
		ctx.Regs.Mepc += 2
		return trapctx.Handled, true
	case 0b010: // C.SB
		off := cbyteOffset(insn)
		val := uint8(ctx.Regs.GPR[trapctx.RVCRS2S(insn)])
		if trap := c.StoreU8(rs1+off, val); trap != nil {
			ctx.Trap = *trap
			return c.Redirect(ctx.Regs, &ctx.Trap), true
		}
		ctx.Regs.Mepc += 2
		return trapctx.Handled, true
	case 0b001: // C.LHU / C.LH, not emulated directly: tail-call misaligned load
		ctx.Trap = trapctx.TrapInfo{
			Cause: trapctx.CauseMisalignedLoad,
			Tval:  rs1 + chalfOffset(insn),
		}
		return c.MisalignedLoad(ctx), true
	case 0b011: // C.SH: tail-call misaligned store
		ctx.Trap = trapctx.TrapInfo{
			Cause: trapctx.CauseMisalignedStore,
			Tval:  rs1 + chalfOffset(insn),
		}
		return c.MisalignedStore(ctx), true
	}
	return 0, false
}

// cbyteOffset recovers the 2-bit byte offset (0..3) the reserved encoding
// scatters across bits 6 and 5.
func cbyteOffset(insn uint32) uint64 {
	return uint64(((insn>>5)&1)<<1 | (insn>>6)&1)
}

// chalfOffset recovers the half-word offset (0 or 2) for C.LH/C.LHU/C.SH,
// carried in bit 5 of the reserved-quadrant encoding.
func chalfOffset(insn uint32) uint64 {
	return uint64((insn >> 5) & 1 << 1)
}

func matchesCMop(insn uint32) bool {
	return trapctx.RVCFunct3(insn) == 0b101 && (insn>>2)&0x7 == 0b000 && (insn&0x3) == 0b01 &&
		(insn>>6)&0x1f == 0b00000
}

func matchesCMiscAlu(insn uint32) bool {
	return trapctx.RVCFunct3(insn) == 0b100 && (insn>>10)&0x3 == 0b11 && (insn>>5)&0x3 == 0b00
}

func emulateMiscAlu(insn uint32, ctx *trapctx.TrapContext) (int, bool) {
	rd := trapctx.RVCRS1S(insn)
	sub := (insn >> 2) & 0x7

	switch sub {
	case 0b000: // c.zext.b
		ctx.Regs.GPR[rd] = ctx.Regs.GPR[rd] & 0xff
	case 0b001: // c.sext.b
		ctx.Regs.GPR[rd] = uint64(int64(int8(ctx.Regs.GPR[rd])))
	case 0b010: // c.zext.h
		ctx.Regs.GPR[rd] = ctx.Regs.GPR[rd] & 0xffff
	case 0b011: // c.sext.h
		ctx.Regs.GPR[rd] = uint64(int64(int16(ctx.Regs.GPR[rd])))
	case 0b100: // c.zext.w (RV64 only)
		if ctx.Regs.XLen != 64 {
			return 0, false
		}
		ctx.Regs.GPR[rd] = ctx.Regs.GPR[rd] & 0xffffffff
	case 0b101: // c.not
		ctx.Regs.GPR[rd] = ^ctx.Regs.GPR[rd]
	case 0b110: // c.mul
		rs2 := trapctx.RVCRS2S(insn)
		ctx.Regs.GPR[rd] = uint64(int64(ctx.Regs.GPR[rd]) * int64(ctx.Regs.GPR[rs2]))
	default:
		return 0, false
	}
	ctx.Regs.Mepc += 2
	return trapctx.Handled, true
}
