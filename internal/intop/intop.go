// Package intop implements the integer-op emulators (C4): Zba, Zbb, Zbc,
// Zbs and Zicond instructions reached through the OP, OP-IMM, OP-32 and
// OP-IMM-32 major opcodes. Every emulator extracts operands through
// trapctx, switches on the match mask, computes rd, writes it back, and
// reports whether it recognized the encoding — the caller (the top
// dispatcher) advances mepc by 4 on success and falls back to the
// redirect sink otherwise.
package intop

import (
	"math/bits"

	"github.com/rcornwell/rv-illegal-insn/internal/trapctx"
)

const (
	f7Zbs1    = 0b0100100 // bclr / bclri
	f7Zbs2    = 0b0010100 // bset / bseti
	f7Zbs3    = 0b0110100 // binv / binvi
	f7Zbs4    = 0b0100100 // bext / bexti (shares with bclr; funct3 distinguishes)
	f7Zbb     = 0b0110000 // clz/ctz/cpop/sext/rol/ror/rori family base
	f7OrcB    = 0b0010100 // orc.b
	f7Rev8    = 0b0110100 // rev8 (RV64's bit25 is masked off before matching)
	f7Zba     = 0b0010000 // sh1add/sh2add/sh3add family
	f7Zbc     = 0b0000101 // clmul/clmulh/clmulr
	f7ZicondB = 0b0000111 // czero.eqz/czero.nez
	f7AddSub  = 0b0100000 // andn / orn / xnor share this funct7 with sub
	f7ZextH   = 0b0000100 // zext.h, rs2 == 0
)

func xlenMask(xlen int) uint64 {
	if xlen == 32 {
		return 0xffffffff
	}
	return 0xffffffffffffffff
}

func rotl(v uint64, k uint, bitWidth uint) uint64 {
	k %= bitWidth
	mask := uint64(1)<<bitWidth - 1
	if bitWidth == 64 {
		mask = ^uint64(0)
	}
	v &= mask
	return ((v << k) | (v >> (bitWidth - k))) & mask
}

func rotr(v uint64, k uint, bitWidth uint) uint64 {
	if k == 0 {
		return v
	}
	return rotl(v, bitWidth-k, bitWidth)
}

// EmulateOpImm handles the OP-IMM major opcode: Zbs immediate bit-ops,
// Zbb's clz/ctz/cpop/sext.b/sext.h/orc.b/rev8/rori.
func EmulateOpImm(insn uint32, regs *trapctx.TrapRegs) bool {
	funct3 := trapctx.GetFunct3(insn)
	rs1 := regs.RS1(insn)
	bitWidth := uint(regs.XLen)

	shamt := trapctx.GetShamt32(insn)
	if regs.XLen == 64 {
		shamt = trapctx.GetShamt64(insn)
	}
	funct7 := trapctx.GetFunct7(insn) &^ 0x1 // bit25 (rv64 alt shamt encoding) ignored for matching

	switch funct3 {
	case 0b001:
		switch funct7 {
		case f7Zbs1:
			regs.SetRD(insn, rs1&^(uint64(1)<<shamt))
			return true
		case f7Zbs2:
			regs.SetRD(insn, rs1|(uint64(1)<<shamt))
			return true
		case f7Zbs3:
			regs.SetRD(insn, rs1^(uint64(1)<<shamt))
			return true
		case f7Zbb:
			switch trapctx.GetRS2(insn) {
			case 0b00000: // clz
				regs.SetRD(insn, uint64(countLeadingZeros(rs1, bitWidth)))
				return true
			case 0b00001: // ctz
				regs.SetRD(insn, uint64(countTrailingZeros(rs1, bitWidth)))
				return true
			case 0b00010: // cpop
				regs.SetRD(insn, uint64(bits.OnesCount64(rs1&xlenMask(regs.XLen))))
				return true
			case 0b00100: // sext.b
				regs.SetRD(insn, uint64(int64(int8(rs1))))
				return true
			case 0b00101: // sext.h
				regs.SetRD(insn, uint64(int64(int16(rs1))))
				return true
			}
		}
	case 0b101:
		switch funct7 {
		case f7Zbs4:
			regs.SetRD(insn, (rs1>>shamt)&1)
			return true
		case f7OrcB:
			if trapctx.GetRS2(insn) == 0b00111 {
				regs.SetRD(insn, orcB(rs1, bitWidth))
				return true
			}
		case f7Rev8:
			if trapctx.GetRS2(insn) == 0b11000 {
				regs.SetRD(insn, rev8(rs1, bitWidth))
				return true
			}
		case f7Zbb: // rori
			regs.SetRD(insn, rotr(rs1, uint(shamt), bitWidth))
			return true
		}
	}
	return false
}

// EmulateOp handles the OP major opcode: Zbb register-form ops, Zba
// sh{1,2,3}add, Zbc clmul family, Zicond czero.{eqz,nez}.
func EmulateOp(insn uint32, regs *trapctx.TrapRegs) bool {
	funct3 := trapctx.GetFunct3(insn)
	funct7 := trapctx.GetFunct7(insn)
	rs1 := regs.RS1(insn)
	rs2 := regs.RS2(insn)
	bitWidth := uint(regs.XLen)
	mask := xlenMask(regs.XLen)

	switch funct7 {
	case f7AddSub:
		switch funct3 {
		case 0b111:
			regs.SetRD(insn, (rs1&^rs2)&mask) // andn
			return true
		case 0b110:
			regs.SetRD(insn, (rs1|^rs2)&mask) // orn
			return true
		case 0b100:
			regs.SetRD(insn, ^(rs1^rs2)&mask) // xnor
			return true
		}
	case f7Zbb:
		switch funct3 {
		case 0b001:
			regs.SetRD(insn, rotl(rs1, uint(rs2), bitWidth)) // rol
			return true
		case 0b101:
			regs.SetRD(insn, rotr(rs1, uint(rs2), bitWidth)) // ror
			return true
		}
	case f7Zba:
		switch funct3 {
		case 0b010:
			regs.SetRD(insn, (rs2+(rs1<<1))&mask) // sh1add
			return true
		case 0b100:
			regs.SetRD(insn, (rs2+(rs1<<2))&mask) // sh2add
			return true
		case 0b110:
			regs.SetRD(insn, (rs2+(rs1<<3))&mask) // sh3add
			return true
		}
	case f7Zbc:
		switch funct3 {
		case 0b001:
			regs.SetRD(insn, clmul(rs1, rs2, bitWidth))
			return true
		case 0b011:
			regs.SetRD(insn, clmulh(rs1, rs2, bitWidth))
			return true
		case 0b010:
			regs.SetRD(insn, clmulr(rs1, rs2, bitWidth))
			return true
		case 0b100:
			regs.SetRD(insn, minS(rs1, rs2, mask, bitWidth))
			return true
		case 0b101:
			regs.SetRD(insn, minU(rs1, rs2, mask))
			return true
		case 0b110:
			regs.SetRD(insn, maxS(rs1, rs2, mask, bitWidth))
			return true
		case 0b111:
			regs.SetRD(insn, maxU(rs1, rs2, mask))
			return true
		}
	case f7ZicondB:
		switch funct3 {
		case 0b101: // czero.eqz
			if rs2 == 0 {
				regs.SetRD(insn, 0)
			} else {
				regs.SetRD(insn, rs1)
			}
			return true
		case 0b111: // czero.nez
			if rs2 == 0 {
				regs.SetRD(insn, rs1)
			} else {
				regs.SetRD(insn, 0)
			}
			return true
		}
	case f7ZextH:
		if funct3 == 0b100 && trapctx.GetRS2(insn) == 0 {
			regs.SetRD(insn, rs1&0xffff)
			return true
		}
	}
	return false
}

// EmulateOp32 handles the RV64-only OP-32 major opcode: add.uw,
// sh{1,2,3}add.uw, rolw/roarw (rorw), zext.h.
func EmulateOp32(insn uint32, regs *trapctx.TrapRegs) bool {
	if regs.XLen != 64 {
		return false
	}
	funct3 := trapctx.GetFunct3(insn)
	funct7 := trapctx.GetFunct7(insn)
	rs1 := uint32(regs.RS1(insn))
	rs2 := regs.RS2(insn)

	switch funct7 {
	case f7Zba:
		switch funct3 {
		case 0b000:
			regs.SetRD(insn, rs2+uint64(rs1))
			return true
		case 0b010:
			regs.SetRD(insn, rs2+(uint64(rs1)<<1))
			return true
		case 0b100:
			regs.SetRD(insn, rs2+(uint64(rs1)<<2))
			return true
		case 0b110:
			regs.SetRD(insn, rs2+(uint64(rs1)<<3))
			return true
		}
	case f7Zbb:
		switch funct3 {
		case 0b001: // rolw
			w := rotl(uint64(rs1), uint(rs2)&31, 32)
			regs.SetRD(insn, uint64(int64(int32(w))))
			return true
		case 0b101: // rorw
			w := rotr(uint64(rs1), uint(rs2)&31, 32)
			regs.SetRD(insn, uint64(int64(int32(w))))
			return true
		}
	case f7ZextH:
		if funct3 == 0b100 && trapctx.GetRS2(insn) == 0 {
			regs.SetRD(insn, uint64(uint16(rs1)))
			return true
		}
	}
	return false
}

// EmulateOpImm32 handles the RV64-only OP-IMM-32 major opcode: clzw/ctzw/
// cpopw, slli.uw, roriw.
func EmulateOpImm32(insn uint32, regs *trapctx.TrapRegs) bool {
	if regs.XLen != 64 {
		return false
	}
	funct3 := trapctx.GetFunct3(insn)
	funct7 := trapctx.GetFunct7(insn)
	rs1 := regs.RS1(insn)
	shamt := trapctx.GetShamt32(insn)

	switch funct3 {
	case 0b001:
		if funct7 == f7Zbb {
			switch trapctx.GetRS2(insn) {
			case 0b00000: // clzw
				regs.SetRD(insn, uint64(countLeadingZeros(uint64(uint32(rs1)), 32)))
				return true
			case 0b00001: // ctzw
				regs.SetRD(insn, uint64(countTrailingZeros(uint64(uint32(rs1)), 32)))
				return true
			case 0b00010: // cpopw
				regs.SetRD(insn, uint64(bits.OnesCount32(uint32(rs1))))
				return true
			}
		}
		if trapctx.GetFunct7(insn)>>1 == f7Zba { // slli.uw, bit25 is part of shamt
			full := trapctx.GetShamt64(insn)
			regs.SetRD(insn, uint32Val(rs1)<<full)
			return true
		}
	case 0b101:
		if funct7 == f7Zbb { // roriw
			w := rotr(uint64(uint32(rs1)), uint(shamt), 32)
			regs.SetRD(insn, uint64(int64(int32(w))))
			return true
		}
	}
	return false
}

func uint32Val(v uint64) uint64 { return uint64(uint32(v)) }

func countLeadingZeros(v uint64, bitWidth uint) uint32 {
	if v == 0 {
		return uint32(bitWidth)
	}
	v &= uint64(1)<<bitWidth - 1
	if bitWidth == 64 {
		return uint32(bits.LeadingZeros64(v))
	}
	return uint32(bits.LeadingZeros64(v)) - (64 - uint32(bitWidth))
}

func countTrailingZeros(v uint64, bitWidth uint) uint32 {
	masked := v & (uint64(1)<<bitWidth - 1)
	if bitWidth == 64 {
		masked = v
	}
	if masked == 0 {
		return uint32(bitWidth)
	}
	return uint32(bits.TrailingZeros64(masked))
}

func orcB(v uint64, bitWidth uint) uint64 {
	var result uint64
	for i := uint(0); i < bitWidth/8; i++ {
		b := (v >> (i * 8)) & 0xff
		if b != 0 {
			result |= uint64(0xff) << (i * 8)
		}
	}
	return result
}

func rev8(v uint64, bitWidth uint) uint64 {
	nbytes := bitWidth / 8
	var result uint64
	for i := uint(0); i < nbytes; i++ {
		b := (v >> (i * 8)) & 0xff
		result |= b << ((nbytes - 1 - i) * 8)
	}
	return result
}

func minU(a, b, mask uint64) uint64 {
	if a&mask < b&mask {
		return a & mask
	}
	return b & mask
}

func maxU(a, b, mask uint64) uint64 {
	if a&mask > b&mask {
		return a & mask
	}
	return b & mask
}

func minS(a, b, mask uint64, bitWidth uint) uint64 {
	if signExtend(a, bitWidth) < signExtend(b, bitWidth) {
		return a & mask
	}
	return b & mask
}

func maxS(a, b, mask uint64, bitWidth uint) uint64 {
	if signExtend(a, bitWidth) > signExtend(b, bitWidth) {
		return a & mask
	}
	return b & mask
}

func signExtend(v uint64, bitWidth uint) int64 {
	if bitWidth == 64 {
		return int64(v)
	}
	shift := 64 - bitWidth
	return int64(v<<shift) >> shift
}

func clmul(rs1, rs2 uint64, bitWidth uint) uint64 {
	var result uint64
	for i := uint(0); i < bitWidth; i++ {
		if rs2&(1<<i) != 0 {
			result ^= rs1 << i
		}
	}
	if bitWidth < 64 {
		result &= uint64(1)<<bitWidth - 1
	}
	return result
}

func clmulh(rs1, rs2 uint64, bitWidth uint) uint64 {
	var result uint64
	for i := uint(0); i < bitWidth; i++ {
		if rs2&(1<<i) != 0 {
			result ^= rs1 >> (bitWidth - i)
		}
	}
	return result
}

func clmulr(rs1, rs2 uint64, bitWidth uint) uint64 {
	var result uint64
	for i := uint(0); i < bitWidth; i++ {
		if rs2&(1<<i) != 0 {
			result ^= rs1 >> (bitWidth - i - 1)
		}
	}
	return result
}
