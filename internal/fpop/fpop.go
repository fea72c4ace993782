// Package fpop implements the FP-op emulator (C6): Zfhmin's half/single/
// double converts, and Zfa's fli/fround/froundnx/fminm/fmaxm/fleq/fltq/
// fmv.x.h/fmv.h.x/fcvtmod.w.d. Every numeric algorithm is delegated to
// internal/fpsoft; this package is purely decode-and-dispatch plus the
// mstatus.FS/sstatus.FS gating spec.md §4.4 requires of every entry point.
package fpop

import (
	"github.com/rcornwell/rv-illegal-insn/internal/fpsoft"
	"github.com/rcornwell/rv-illegal-insn/internal/trapctx"
)

// funct7 groups for the OP-FP major opcode. rs2 (or, for R4-shaped
// encodings, the low bits of funct7) distinguishes the specific
// instruction within a group.
const (
	f7CvtToS  = 0b1000000 // FCVT.S.{D,H}
	f7CvtToD  = 0b1000001 // FCVT.D.{S,H}
	f7CvtToH  = 0b1000010 // FCVT.H.{S,D}
	f7FmvXH   = 0b1110010 // FMV.X.H / class.h share this group
	f7FmvHX   = 0b1111010 // FMV.H.X
	f7FliH    = 0b1111010 // shares encoding space with fmv.h.x; rs2==1 selects FLI.H
	f7FliS    = 0b1111000
	f7FliD    = 0b1111001
	f7FRound  = 0b0100010 // FROUND.h/s/d, rs2 selects fmt, bit0 of rs2/funct3 selects NX variant
	f7MinMaxH = 0b0010110
	f7MinMaxS = 0b0010100
	f7MinMaxD = 0b0010101
	f7FcvtmodD = 0b1100001
)

const (
	rs2H = 0b00010
	rs2S = 0b00000
	rs2D = 0b00001
)

// Emulate dispatches an OP-FP instruction. recognized is false for any
// encoding not in the Zfhmin/Zfa subset this core models — the caller
// falls back to the redirect sink.
func Emulate(insn uint32, ctx *trapctx.TrapContext, c trapctx.Collaborators) (rc int, recognized bool) {
	if ctx.Regs.FSOff(ctx.PrevMode, c.Sstatus()) {
		return trapctx.Redirect(insn, ctx, c), true
	}

	funct7 := trapctx.GetFunct7(insn)
	rs2 := trapctx.GetRS2(insn)
	rs1 := trapctx.GetRS1(insn)
	fcsr := c.FCSR()

	switch funct7 {
	case f7CvtToS:
		if rs2 == rs2H {
			val := fpsoft.ConvertF16ToF32(fpsoft.UnboxF16(c.GetF32(rs1)), &fcsr)
			c.SetF32(trapctx.GetRD(insn), val)
			c.SetFCSR(fcsr)
			ctx.Regs.SetFSDirty()
			ctx.Regs.Mepc += 4
			return trapctx.Handled, true
		}
	case f7CvtToD:
		if rs2 == rs2H {
			val := fpsoft.ConvertF16ToF64(fpsoft.UnboxF16(c.GetF32(rs1)), &fcsr)
			c.SetF64(trapctx.GetRD(insn), val)
			c.SetFCSR(fcsr)
			ctx.Regs.SetFSDirty()
			ctx.Regs.Mepc += 4
			return trapctx.Handled, true
		}
	case f7CvtToH:
		rm, ok := fpsoft.ResolveRM(trapctx.GetRM(insn), fcsr)
		if !ok {
			return trapctx.Redirect(insn, ctx, c), true
		}
		var result uint16
		switch rs2 {
		case rs2S:
			result = fpsoft.ConvertF32ToF16(c.GetF32(rs1), &fcsr, rm)
		case rs2D:
			result = fpsoft.ConvertF64ToF16(c.GetF64(rs1), &fcsr, rm)
		default:
			return 0, false
		}
		c.SetF32(trapctx.GetRD(insn), fpsoft.BoxF16(result))
		c.SetFCSR(fcsr)
		ctx.Regs.SetFSDirty()
		ctx.Regs.Mepc += 4
		return trapctx.Handled, true
	case f7FmvXH:
		if rs2 == 0 {
			val := fpsoft.FmvXH(fpsoft.UnboxF16(c.GetF32(rs1)), ctx.Regs.XLen)
			ctx.Regs.SetRD(insn, val)
			ctx.Regs.Mepc += 4
			return trapctx.Handled, true
		}
	case f7FmvHX:
		switch rs2 {
		case 0:
			val := fpsoft.FmvHX(ctx.Regs.RS1(insn))
			c.SetF32(trapctx.GetRD(insn), fpsoft.BoxF16(val))
			ctx.Regs.SetFSDirty()
			ctx.Regs.Mepc += 4
			return trapctx.Handled, true
		case 1: // FLI.H
			val := fpsoft.FliH(rs1)
			c.SetF32(trapctx.GetRD(insn), fpsoft.BoxF16(val))
			ctx.Regs.SetFSDirty()
			ctx.Regs.Mepc += 4
			return trapctx.Handled, true
		}
	case f7FliS:
		if rs2 == 1 {
			c.SetF32(trapctx.GetRD(insn), fpsoft.FliS(rs1))
			ctx.Regs.SetFSDirty()
			ctx.Regs.Mepc += 4
			return trapctx.Handled, true
		}
	case f7FliD:
		if rs2 == 1 {
			c.SetF64(trapctx.GetRD(insn), fpsoft.FliD(rs1))
			ctx.Regs.SetFSDirty()
			ctx.Regs.Mepc += 4
			return trapctx.Handled, true
		}
	case f7FRound:
		rmField := trapctx.GetRM(insn)
		setNX := rs2&0x1 != 0
		rm, ok := fpsoft.ResolveRM(rmField, fcsr)
		if !ok {
			return trapctx.Redirect(insn, ctx, c), true
		}
		switch rs2 >> 1 {
		case 0: // h
			result := fpsoft.RoundF16(fpsoft.UnboxF16(c.GetF32(rs1)), &fcsr, rm, setNX)
			c.SetF32(trapctx.GetRD(insn), fpsoft.BoxF16(result))
		case 1: // s
			c.SetF32(trapctx.GetRD(insn), fpsoft.RoundF32(c.GetF32(rs1), &fcsr, rm, setNX))
		case 2: // d
			c.SetF64(trapctx.GetRD(insn), fpsoft.RoundF64(c.GetF64(rs1), &fcsr, rm, setNX))
		default:
			return 0, false
		}
		c.SetFCSR(fcsr)
		ctx.Regs.SetFSDirty()
		ctx.Regs.Mepc += 4
		return trapctx.Handled, true
	case f7FcvtmodD:
		if rs2 == 0 {
			result := fpsoft.FcvtmodWD(c.GetF64(rs1), &fcsr)
			ctx.Regs.SetRD(insn, uint64(uint32(result)))
			c.SetFCSR(fcsr)
			ctx.Regs.Mepc += 4
			return trapctx.Handled, true
		}
	case f7MinMaxH, f7MinMaxS, f7MinMaxD:
		return emulateMinMaxCompare(insn, funct7, ctx, c, &fcsr)
	}
	return 0, false
}

func emulateMinMaxCompare(insn uint32, funct7 uint32, ctx *trapctx.TrapContext, c trapctx.Collaborators, fcsr *uint32) (int, bool) {
	funct3 := trapctx.GetFunct3(insn)
	rs1, rs2 := trapctx.GetRS1(insn), trapctx.GetRS2(insn)
	rd := trapctx.GetRD(insn)

	switch funct7 {
	case f7MinMaxH:
		a, b := fpsoft.UnboxF16(c.GetF32(rs1)), fpsoft.UnboxF16(c.GetF32(rs2))
		switch funct3 {
		case 0b000:
			c.SetF32(rd, fpsoft.BoxF16(fpsoft.FMinMH(a, b, fcsr)))
		case 0b001:
			c.SetF32(rd, fpsoft.BoxF16(fpsoft.FMaxMH(a, b, fcsr)))
		case 0b010:
			ctx.Regs.SetRD(insn, boolToU64(fpsoft.FLeqH(a, b, fcsr)))
		case 0b100:
			ctx.Regs.SetRD(insn, boolToU64(fpsoft.FLtqH(a, b, fcsr)))
		default:
			return 0, false
		}
	case f7MinMaxS:
		a, b := c.GetF32(rs1), c.GetF32(rs2)
		switch funct3 {
		case 0b000:
			c.SetF32(rd, fpsoft.FMinMS(a, b, fcsr))
		case 0b001:
			c.SetF32(rd, fpsoft.FMaxMS(a, b, fcsr))
		case 0b010:
			ctx.Regs.SetRD(insn, boolToU64(fpsoft.FLeqS(a, b, fcsr)))
		case 0b100:
			ctx.Regs.SetRD(insn, boolToU64(fpsoft.FLtqS(a, b, fcsr)))
		default:
			return 0, false
		}
	case f7MinMaxD:
		a, b := c.GetF64(rs1), c.GetF64(rs2)
		switch funct3 {
		case 0b000:
			c.SetF64(rd, fpsoft.FMinMD(a, b, fcsr))
		case 0b001:
			c.SetF64(rd, fpsoft.FMaxMD(a, b, fcsr))
		case 0b010:
			ctx.Regs.SetRD(insn, boolToU64(fpsoft.FLeqD(a, b, fcsr)))
		case 0b100:
			ctx.Regs.SetRD(insn, boolToU64(fpsoft.FLtqD(a, b, fcsr)))
		default:
			return 0, false
		}
	}
	if funct3 == 0b010 || funct3 == 0b100 {
		// compares do not touch FS or produce an FP result.
		c.SetFCSR(*fcsr)
		ctx.Regs.Mepc += 4
		return trapctx.Handled, true
	}
	c.SetFCSR(*fcsr)
	ctx.Regs.SetFSDirty()
	ctx.Regs.Mepc += 4
	return trapctx.Handled, true
}

func boolToU64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// EmulateLoadFP handles the LOAD-FP major opcode. This core never performs
// the 16-bit load itself: FLH is the only instruction here, and a hart
// that traps on it has no native FLH path, so this tail-calls the
// misaligned-load collaborator with the address FLH would have used.
func EmulateLoadFP(insn uint32, ctx *trapctx.TrapContext, c trapctx.Collaborators) (rc int, recognized bool) {
	if ctx.Regs.FSOff(ctx.PrevMode, c.Sstatus()) {
		return trapctx.Redirect(insn, ctx, c), true
	}
	if trapctx.GetFunct3(insn) != 0b001 {
		return 0, false
	}
	ctx.Trap = trapctx.TrapInfo{
		Cause: trapctx.CauseMisalignedLoad,
		Tval:  ctx.Regs.RS1(insn) + uint64(trapctx.ImmI(insn)),
	}
	return c.MisalignedLoad(ctx), true
}

// EmulateStoreFP is EmulateLoadFP's STORE-FP analogue for FSH.
func EmulateStoreFP(insn uint32, ctx *trapctx.TrapContext, c trapctx.Collaborators) (rc int, recognized bool) {
	if ctx.Regs.FSOff(ctx.PrevMode, c.Sstatus()) {
		return trapctx.Redirect(insn, ctx, c), true
	}
	if trapctx.GetFunct3(insn) != 0b001 {
		return 0, false
	}
	ctx.Trap = trapctx.TrapInfo{
		Cause: trapctx.CauseMisalignedStore,
		Tval:  ctx.Regs.RS1(insn) + uint64(trapctx.ImmS(insn)),
	}
	return c.MisalignedStore(ctx), true
}
