// Package sysop implements the SYSTEM-opcode emulator (C9): the Zicsr
// read-modify-write wrapper, Zawrs's WRS.NTO/WRS.STO, and Zimop's
// MOP.R.n/MOP.RR.n.
package sysop

import (
	"errors"

	"github.com/rcornwell/rv-illegal-insn/internal/trapctx"
)

// ErrMModeOrigin is the distinguished fatal condition: this emulator must
// never be entered for a trap taken from M-mode.
var ErrMModeOrigin = errors.New("sysop: SYSTEM-opcode trap from M-mode")

const (
	matchWRSNTO = 0b00000001101_00000_000_00000_1110011
	matchWRSSTO = 0b00000011101_00000_000_00000_1110011
	maskMOPRN   = 0b10111110111_00000_111_00000_1111111
	matchMOPRN  = 0b10000000111_00000_100_00000_1110011
	maskMOPRRN  = 0b10111001111_00000_111_00000_1111111
	matchMOPRRN = 0b10000000011_00000_100_00000_1110011
)

// Emulate dispatches a SYSTEM-opcode instruction. It must only be called
// for traps taken from S- or U-mode; an M-mode origin is an M-mode
// firmware bug and is reported through err rather than redirected.
func Emulate(insn uint32, ctx *trapctx.TrapContext, c trapctx.Collaborators) (rc int, recognized bool, err error) {
	if ctx.PrevMode == trapctx.PrivM {
		return 0, false, ErrMModeOrigin
	}

	funct3 := trapctx.GetFunct3(insn)
	if funct3 == 0 || funct3 == 4 {
		if insn == matchWRSNTO || insn == matchWRSSTO {
			ctx.Regs.Mepc += 4
			return trapctx.Handled, true, nil
		}
		if insn&maskMOPRN == matchMOPRN || insn&maskMOPRRN == matchMOPRRN {
			ctx.Regs.SetRD(insn, 0)
			ctx.Regs.Mepc += 4
			return trapctx.Handled, true, nil
		}
		return 0, false, nil
	}

	return emulateCSR(insn, funct3, ctx, c), true, nil
}

func emulateCSR(insn uint32, funct3 uint32, ctx *trapctx.TrapContext, c trapctx.Collaborators) int {
	csr := insn >> 20
	rs1Num := trapctx.GetRS1(insn)

	oldVal, ok := c.EmulateCSRRead(csr, ctx.Regs)
	if !ok {
		return trapctx.Redirect(insn, ctx, c)
	}

	var newVal uint64
	doWrite := true
	rs1Val := ctx.Regs.RS1(insn)

	switch funct3 &^ 0x4 {
	case 0b001: // CSRRW / CSRRWI
		if funct3&0x4 != 0 {
			newVal = uint64(rs1Num)
		} else {
			newVal = rs1Val
		}
	case 0b010: // CSRRS / CSRRSI
		var operand uint64
		if funct3&0x4 != 0 {
			operand = uint64(rs1Num)
		} else {
			operand = rs1Val
		}
		newVal = oldVal | operand
		doWrite = rs1Num != 0
	case 0b011: // CSRRC / CSRRCI
		var operand uint64
		if funct3&0x4 != 0 {
			operand = uint64(rs1Num)
		} else {
			operand = rs1Val
		}
		newVal = oldVal &^ operand
		doWrite = rs1Num != 0
	default:
		return trapctx.Redirect(insn, ctx, c)
	}

	if doWrite {
		if !c.EmulateCSRWrite(csr, ctx.Regs, newVal) {
			return trapctx.Redirect(insn, ctx, c)
		}
	}

	ctx.Regs.SetRD(insn, oldVal)
	ctx.Regs.Mepc += 4
	return trapctx.Handled
}
