// Package miscmem implements the MISC-MEM emulator (C8): the FENCE/
// FENCE.I/FENCE.TSO errata workarounds, and Zicbom/Zicboz cache-block
// operations gated by senvcfg/menvcfg.
package miscmem

import (
	"github.com/rcornwell/rv-illegal-insn/config"
	"github.com/rcornwell/rv-illegal-insn/internal/trapctx"
)

const cacheLineBytes = 64

// EnvcfgFallback governs what envcfgGateFor does when the platform
// collaborator reports no senvcfg/menvcfg at all (its second return
// value is false). cmd/illegalsim sets this from the loaded Config
// before wiring the dispatcher; it defaults to the same permissive
// policy config.AllEnabled implies.
var EnvcfgFallback = config.EnvcfgPermissive

// Envcfg bit positions consulted for Zicbom/Zicboz gating.
const (
	envcfgCBZE  = 1 << 7
	envcfgCBCFE = 1 << 6
	envcfgCBIE  = 0x3 << 4
)

// Emulate dispatches a MISC-MEM instruction: funct3 001 is FENCE.I, funct3
// 000 is FENCE/FENCE.TSO, and every other funct3 is treated as a cbo.*
// encoding. A cbo.* sub-opcode this core does not model is redirected here
// and still reports recognized. recognized is false only for a funct3=000
// encoding that is neither fence.tso nor a plain fence with rd=rs1=0 and
// fm=0, so the caller can redirect.
func Emulate(insn uint32, ctx *trapctx.TrapContext, c trapctx.Collaborators) (rc int, recognized bool) {
	funct3 := trapctx.GetFunct3(insn)
	switch funct3 {
	case 0b001:
		return EmulateFenceI(ctx)
	case 0:
		// fall through to the plain fence/fence.tso handling below
	default:
		return emulateCbo(insn, ctx, c)
	}

	imm := insn >> 20
	switch {
	case imm == 0x833: // fence.tso encoding (pred=rw, succ=rw disambiguator)
		ctx.Regs.Mepc += 4
		return trapctx.Handled, true
	case trapctx.GetRD(insn) == 0 && trapctx.GetRS1(insn) == 0 && (insn>>28) == 0:
		// plain fence: widened to a full barrier since pred/succ cannot be
		// recovered from this encoding alone.
		ctx.Regs.Mepc += 4
		return trapctx.Handled, true
	}
	return 0, false
}

// EmulateFenceI handles the FENCE.I encoding, which Emulate routes here
// since it shares the MISC-MEM opcode but has a distinct funct3.
func EmulateFenceI(ctx *trapctx.TrapContext) (int, bool) {
	ctx.Regs.Mepc += 4
	return trapctx.Handled, true
}

func emulateCbo(insn uint32, ctx *trapctx.TrapContext, c trapctx.Collaborators) (int, bool) {
	imm := insn >> 20
	rs1 := ctx.Regs.GPR[trapctx.GetRS1(insn)]

	if !envcfgGateFor(imm, ctx, c) {
		return trapctx.Redirect(insn, ctx, c), true
	}

	switch imm {
	case 0b000000000100: // cbo.zero
		aligned := rs1 &^ (cacheLineBytes - 1)
		for i := uint64(0); i < cacheLineBytes; i += 4 {
			if trap := c.StoreU32(aligned+i, 0); trap != nil {
				ctx.Trap = *trap
				return c.Redirect(ctx.Regs, &ctx.Trap), true
			}
		}
		ctx.Regs.Mepc += 4
		return trapctx.Handled, true
	case 0b000000000001, 0b000000000010, 0b000000000011: // clean/flush/inval
		c.FlushDataCaches()
		ctx.Regs.Mepc += 4
		return trapctx.Handled, true
	}
	return 0, false
}

// envcfgGateFor reads the enable bit relevant to the cbo.* sub-opcode from
// senvcfg (U-mode origin) or menvcfg (S-mode origin), per spec.md §4.6.
func envcfgGateFor(imm uint32, ctx *trapctx.TrapContext, c trapctx.Collaborators) bool {
	var bit uint64
	switch imm {
	case 0b000000000100: // cbo.zero
		bit = envcfgCBZE
	case 0b000000000001, 0b000000000010: // clean/flush
		bit = envcfgCBCFE
	case 0b000000000011: // inval
		bit = envcfgCBIE
	default:
		return false
	}

	var (
		cfg     uint64
		present bool
	)
	if ctx.PrevMode == trapctx.PrivU {
		cfg, present = c.Senvcfg()
	} else {
		cfg, present = c.Menvcfg()
	}
	if !present {
		return EnvcfgFallback == config.EnvcfgPermissive
	}
	return cfg&bit != 0
}
