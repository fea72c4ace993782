// Package trapctx defines the typed view over a trapped hart's register
// image (C1) and the redirect sink (C2) that every emulator falls back to
// when an instruction turns out to be genuinely unsupported.
package trapctx

// PrivMode is the privilege level the trap was taken from.
type PrivMode int

const (
	PrivU PrivMode = iota
	PrivS
	PrivM
)

// Cause values carried in TrapInfo.Cause. Only the subset this core ever
// raises or forwards is named here; the full mcause encoding belongs to the
// trap entry assembly, which is out of scope.
const (
	CauseIllegalInstruction uint64 = 2
	CauseMisalignedLoad     uint64 = 4
	CauseMisalignedStore    uint64 = 6
)

// FS/VS field encodings from mstatus/sstatus.
const (
	extOff uint64 = 0
)

const (
	mstatusFSShift = 13
	mstatusVSShift = 9
	mstatusFSMask  = 0x3 << mstatusFSShift
	mstatusVSMask  = 0x3 << mstatusVSShift
)

// TrapRegs is the 32-slot GPR image saved on trap entry, plus mepc and
// mstatus. Index 0 aliases the architectural "zero" register: writes to it
// are no-ops, per the defensive policy spec.md §9 calls for.
type TrapRegs struct {
	GPR      [32]uint64
	Mepc     uint64
	Mstatus  uint64
	MstatusH uint32
	XLen     int // 32 or 64
}

// RS1 returns the unsigned value of the rs1 operand, masked to XLen.
func (r *TrapRegs) RS1(insn uint32) uint64 { return r.mask(r.GPR[GetRS1(insn)]) }

// RS2 returns the unsigned value of the rs2 operand, masked to XLen.
func (r *TrapRegs) RS2(insn uint32) uint64 { return r.mask(r.GPR[GetRS2(insn)]) }

// SetRD writes val to rd, silently discarding writes to x0.
func (r *TrapRegs) SetRD(insn uint32, val uint64) {
	rd := GetRD(insn)
	if rd == 0 {
		return
	}
	r.GPR[rd] = r.mask(val)
}

func (r *TrapRegs) mask(val uint64) uint64 {
	if r.XLen == 32 {
		return val & 0xffffffff
	}
	return val
}

// FSOff reports whether the FP unit is disabled for the trapped context.
// prevMode is consulted because a U-mode trap must also honor sstatus.FS.
func (r *TrapRegs) FSOff(prevMode PrivMode, sstatus uint64) bool {
	if (r.Mstatus>>mstatusFSShift)&0x3 == extOff {
		return true
	}
	if prevMode == PrivU && (sstatus>>mstatusFSShift)&0x3 == extOff {
		return true
	}
	return false
}

// VSOff is the vector-unit analogue of FSOff.
func (r *TrapRegs) VSOff(prevMode PrivMode, sstatus uint64) bool {
	if (r.Mstatus>>mstatusVSShift)&0x3 == extOff {
		return true
	}
	if prevMode == PrivU && (sstatus>>mstatusVSShift)&0x3 == extOff {
		return true
	}
	return false
}

// SetFSDirty marks the FP extension state Dirty, as every FP-writing
// emulator must after touching an FP register.
func (r *TrapRegs) SetFSDirty() {
	r.Mstatus = (r.Mstatus &^ mstatusFSMask) | (0x3 << mstatusFSShift)
}

// SetVSDirty is SetFSDirty's vector-unit analogue.
func (r *TrapRegs) SetVSDirty() {
	r.Mstatus = (r.Mstatus &^ mstatusVSMask) | (0x3 << mstatusVSShift)
}

// TrapInfo transports a (possibly new) trap down to the redirect or
// misaligned-access collaborator. It is always stack-scoped: built, used
// once, discarded.
type TrapInfo struct {
	Cause uint64
	Tval  uint64
	Tval2 uint64
	Tinst uint64
	Gva   bool
}

// TrapContext is what every emulator in this core actually receives: the
// live register image, a scratch TrapInfo it may populate for a tail-call
// or redirect, and the privilege level the trap came from.
type TrapContext struct {
	Regs     *TrapRegs
	Trap     TrapInfo
	PrevMode PrivMode
}

// Collaborators bundles every external dependency named in spec.md §6.
// The core only ever calls through this interface; in this module it is
// implemented only by the test double in internal/testsupport and by the
// cmd/illegalsim console's session.
type Collaborators interface {
	FetchInsn(pc uint64) (insn uint32, trap *TrapInfo)
	LoadU8(addr uint64) (val uint8, trap *TrapInfo)
	LoadU16(addr uint64) (val uint16, trap *TrapInfo)
	LoadU32(addr uint64) (val uint32, trap *TrapInfo)
	StoreU8(addr uint64, val uint8) (trap *TrapInfo)
	StoreU16(addr uint64, val uint16) (trap *TrapInfo)
	StoreU32(addr uint64, val uint32) (trap *TrapInfo)
	Redirect(regs *TrapRegs, info *TrapInfo) int
	EmulateCSRRead(csr uint32, regs *TrapRegs) (val uint64, ok bool)
	EmulateCSRWrite(csr uint32, regs *TrapRegs, val uint64) bool
	MisalignedLoad(ctx *TrapContext) int
	MisalignedStore(ctx *TrapContext) int
	FlushDataCaches()
	IncrIllegalInsnCounter()
	Sstatus() uint64
	Senvcfg() (val uint64, present bool)
	Menvcfg() (val uint64, present bool)

	// FP/vector register file access. Per spec.md §9's design note, this
	// core saves/restores the whole file as an indexed array rather than
	// generating a 32-way jump per register.
	GetF16(num uint32) uint16
	SetF16(num uint32, val uint16)
	GetF32(num uint32) uint32
	SetF32(num uint32, val uint32)
	GetF64(num uint32) uint64
	SetF64(num uint32, val uint64)
	FCSR() uint32
	SetFCSR(val uint32)

	VReg(num uint32) [32]uint64 // up to VLMAX_BYTES/8 uint64 lanes, zero-padded
	SetVReg(num uint32, data [32]uint64)
}

// Result codes returned by every emulator and by the top dispatcher.
const (
	Handled = 0
	Aborted = -1
)

// Redirect is the C2 sink: builds the canonical illegal-instruction
// TrapInfo and invokes the redirect collaborator, returning whatever it
// returns. Every emulator that cannot make architectural progress on an
// instruction falls back to this.
func Redirect(insn uint32, ctx *TrapContext, c Collaborators) int {
	ctx.Trap = TrapInfo{
		Cause: CauseIllegalInstruction,
		Tval:  uint64(insn),
	}
	return c.Redirect(ctx.Regs, &ctx.Trap)
}

// --- instruction field extraction -----------------------------------------
//
// Pure bit operations over the 32-bit instruction word. These mirror the
// GET_RS1/GET_RS2/GET_RD/IMM_I/IMM_S/GET_RM family of macros; none of them
// hold state.

func GetOpcode(insn uint32) uint32 { return insn & 0x7f }
func GetFunct3(insn uint32) uint32 { return (insn >> 12) & 0x7 }
func GetFunct7(insn uint32) uint32 { return (insn >> 25) & 0x7f }
func GetRD(insn uint32) uint32     { return (insn >> 7) & 0x1f }
func GetRS1(insn uint32) uint32    { return (insn >> 15) & 0x1f }
func GetRS2(insn uint32) uint32    { return (insn >> 20) & 0x1f }
func GetShamt32(insn uint32) uint32 { return (insn >> 20) & 0x1f }
func GetShamt64(insn uint32) uint32 { return (insn >> 20) & 0x3f }

func ImmI(insn uint32) int64 {
	return int64(int32(insn)) >> 20
}

func ImmS(insn uint32) int64 {
	imm := ((insn >> 25) << 5) | ((insn >> 7) & 0x1f)
	return int64(int32(imm<<20)) >> 20
}

// GetRM extracts the rounding-mode field of an FP instruction (bits
// [14:12]), identical in position to Funct3.
func GetRM(insn uint32) uint32 { return GetFunct3(insn) }

// --- compressed (16-bit) instruction field extraction ----------------------

// RVCRS1S / RVCRS2S extract the compressed 3-bit register fields and
// expand them to the full 5-bit x8..x15 register space.
func RVCRS1S(insn uint32) uint32 { return 8 + ((insn >> 7) & 0x7) }
func RVCRS2S(insn uint32) uint32 { return 8 + ((insn >> 2) & 0x7) }

// Funct4/Funct3/Funct2 for the compressed quadrants.
func RVCFunct4(insn uint32) uint32 { return (insn >> 12) & 0xf }
func RVCFunct3(insn uint32) uint32 { return (insn >> 13) & 0x7 }
func RVCFunct2(insn uint32) uint32 { return (insn >> 10) & 0x3 }
