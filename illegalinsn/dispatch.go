// Package illegalinsn is the top-level entry point (C10): it is what the
// firmware's illegal-instruction trap handler calls. It re-fetches the
// faulting instruction, classifies it as compressed or full-width, and
// routes it through the per-extension emulators, falling back to the
// redirect sink for anything it does not recognize.
package illegalinsn

import (
	"log/slog"

	"github.com/rcornwell/rv-illegal-insn/internal/compressed"
	"github.com/rcornwell/rv-illegal-insn/internal/fpop"
	"github.com/rcornwell/rv-illegal-insn/internal/intop"
	"github.com/rcornwell/rv-illegal-insn/internal/miscmem"
	"github.com/rcornwell/rv-illegal-insn/internal/sysop"
	"github.com/rcornwell/rv-illegal-insn/internal/trapctx"
	"github.com/rcornwell/rv-illegal-insn/internal/vecop"
)

// Full-width (quadrant-3) major opcodes this core models.
const (
	opOpImm   = 0b0010011
	opOpImm32 = 0b0011011
	op        = 0b0110011
	op32      = 0b0111011
	opMiscMem = 0b0001111
	opLoadFP  = 0b0000111
	opStoreFP = 0b0100111
	opFP      = 0b1010011
	opV       = 0b1010111
	opSystem  = 0b1110011
)

// RISC-V CSR numbers for the unprivileged vector-length/type state;
// consulted only to give Zvbb emulation its SEW/VL without requiring a
// dedicated Collaborators method.
const (
	csrVL    = 0xc20
	csrVType = 0xc21
)

// Handle services one illegal-instruction trap end to end. It takes no
// instruction word from the trap handler: it always re-fetches from mepc,
// since mtval is not guaranteed populated on every implementation the
// firmware runs atop.
func Handle(ctx *trapctx.TrapContext, c trapctx.Collaborators) int {
	c.IncrIllegalInsnCounter()

	insn, trap := c.FetchInsn(ctx.Regs.Mepc)
	if trap != nil {
		ctx.Trap = *trap
		return c.Redirect(ctx.Regs, trap)
	}

	if insn&0x3 != 0b11 {
		if rc, recognized := compressed.Emulate(insn, ctx, c); recognized {
			return rc
		}
		return trapctx.Redirect(insn, ctx, c)
	}

	opcode := trapctx.GetOpcode(insn)
	switch opcode {
	case opOpImm:
		if intop.EmulateOpImm(insn, ctx.Regs) {
			ctx.Regs.Mepc += 4
			return trapctx.Handled
		}
	case opOpImm32:
		if intop.EmulateOpImm32(insn, ctx.Regs) {
			ctx.Regs.Mepc += 4
			return trapctx.Handled
		}
	case op:
		if intop.EmulateOp(insn, ctx.Regs) {
			ctx.Regs.Mepc += 4
			return trapctx.Handled
		}
	case op32:
		if intop.EmulateOp32(insn, ctx.Regs) {
			ctx.Regs.Mepc += 4
			return trapctx.Handled
		}
	case opMiscMem:
		if rc, recognized := miscmem.Emulate(insn, ctx, c); recognized {
			return rc
		}
	case opLoadFP:
		if rc, recognized := fpop.EmulateLoadFP(insn, ctx, c); recognized {
			return rc
		}
	case opStoreFP:
		if rc, recognized := fpop.EmulateStoreFP(insn, ctx, c); recognized {
			return rc
		}
	case opFP:
		if rc, recognized := fpop.Emulate(insn, ctx, c); recognized {
			return rc
		}
	case opV:
		if rc, recognized := handleVector(insn, ctx, c); recognized {
			return rc
		}
	case opSystem:
		rc, recognized, err := sysop.Emulate(insn, ctx, c)
		if err != nil {
			slog.Error("SYSTEM-opcode trap from M-mode", "insn", insn, "err", err)
			return trapctx.Aborted
		}
		if recognized {
			return rc
		}
	}

	return trapctx.Redirect(insn, ctx, c)
}

// handleVector decodes the SEW/VL the prevailing vtype/vl CSRs describe
// and builds a vecop.Request from the instruction's funct6/vs1/vs2/vd
// fields.
func handleVector(insn uint32, ctx *trapctx.TrapContext, c trapctx.Collaborators) (int, bool) {
	vl, ok := c.EmulateCSRRead(csrVL, ctx.Regs)
	if !ok {
		return trapctx.Redirect(insn, ctx, c), true
	}
	vtype, ok := c.EmulateCSRRead(csrVType, ctx.Regs)
	if !ok {
		return trapctx.Redirect(insn, ctx, c), true
	}

	req := vecop.Request{
		Funct6: (insn >> 26) & 0x3f,
		Vs2:    (insn >> 20) & 0x1f,
		Vs1:    (insn >> 15) & 0x1f,
		Vd:     (insn >> 7) & 0x1f,
		VL:     int(vl),
		SEW:    vecop.Sew((vtype >> 3) & 0x7),
		XLen:   ctx.Regs.XLen,
	}
	return vecop.Emulate(req, ctx, c)
}
