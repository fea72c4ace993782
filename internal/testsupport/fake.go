// Package testsupport provides a single in-memory Collaborators
// implementation shared by every emulator package's tests, so each test
// file doesn't need to restate the full external-interface surface.
package testsupport

import "github.com/rcornwell/rv-illegal-insn/internal/trapctx"

// FakeCollaborators is a minimal, fully in-memory stand-in for every
// external collaborator named in spec.md §6. Zero value is usable; fields
// are exported so a test can pre-seed memory/CSR state or inspect calls
// made.
type FakeCollaborators struct {
	Mem          map[uint64]uint8
	CSR          map[uint32]uint64
	CSRWriteFail bool

	F16 [32]uint16
	F32 [32]uint32
	F64 [32]uint64
	Vec [32][32]uint64
	FCR uint32

	SstatusVal uint64
	SenvcfgVal uint64
	SenvcfgSet bool
	MenvcfgVal uint64
	MenvcfgSet bool

	Flushes         int
	RedirectedTrap  *trapctx.TrapInfo
	RedirectCalls   int
	MisalignedLoads int
	MisalignedSaves int
	IllegalInsnCnt  int
	StoreFaultAddrs map[uint64]bool // addresses on which StoreU* should fault
}

func (f *FakeCollaborators) FetchInsn(pc uint64) (uint32, *trapctx.TrapInfo) {
	f.ensureMem()
	var v uint32
	for i := uint64(0); i < 4; i++ {
		v |= uint32(f.Mem[pc+i]) << (8 * i)
	}
	return v, nil
}

func (f *FakeCollaborators) ensureMem() {
	if f.Mem == nil {
		f.Mem = map[uint64]uint8{}
	}
}

func (f *FakeCollaborators) LoadU8(addr uint64) (uint8, *trapctx.TrapInfo) {
	f.ensureMem()
	return f.Mem[addr], nil
}
func (f *FakeCollaborators) LoadU16(addr uint64) (uint16, *trapctx.TrapInfo) {
	return uint16(f.Mem[addr]) | uint16(f.Mem[addr+1])<<8, nil
}
func (f *FakeCollaborators) LoadU32(addr uint64) (uint32, *trapctx.TrapInfo) {
	var v uint32
	for i := uint64(0); i < 4; i++ {
		v |= uint32(f.Mem[addr+i]) << (8 * i)
	}
	return v, nil
}

func (f *FakeCollaborators) faults(addr uint64) *trapctx.TrapInfo {
	if f.StoreFaultAddrs != nil && f.StoreFaultAddrs[addr] {
		return &trapctx.TrapInfo{Cause: 7, Tval: addr}
	}
	return nil
}

func (f *FakeCollaborators) StoreU8(addr uint64, val uint8) *trapctx.TrapInfo {
	if t := f.faults(addr); t != nil {
		return t
	}
	f.ensureMem()
	f.Mem[addr] = val
	return nil
}
func (f *FakeCollaborators) StoreU16(addr uint64, val uint16) *trapctx.TrapInfo {
	if t := f.faults(addr); t != nil {
		return t
	}
	f.ensureMem()
	f.Mem[addr] = uint8(val)
	f.Mem[addr+1] = uint8(val >> 8)
	return nil
}
func (f *FakeCollaborators) StoreU32(addr uint64, val uint32) *trapctx.TrapInfo {
	if t := f.faults(addr); t != nil {
		return t
	}
	f.ensureMem()
	for i := uint64(0); i < 4; i++ {
		f.Mem[addr+i] = uint8(val >> (8 * i))
	}
	return nil
}

func (f *FakeCollaborators) Redirect(_ *trapctx.TrapRegs, info *trapctx.TrapInfo) int {
	f.RedirectedTrap = info
	f.RedirectCalls++
	return trapctx.Handled
}

func (f *FakeCollaborators) EmulateCSRRead(csr uint32, _ *trapctx.TrapRegs) (uint64, bool) {
	if f.CSR == nil {
		return 0, false
	}
	v, ok := f.CSR[csr]
	return v, ok
}

func (f *FakeCollaborators) EmulateCSRWrite(csr uint32, _ *trapctx.TrapRegs, val uint64) bool {
	if f.CSRWriteFail {
		return false
	}
	if f.CSR == nil {
		f.CSR = map[uint32]uint64{}
	}
	f.CSR[csr] = val
	return true
}

func (f *FakeCollaborators) MisalignedLoad(ctx *trapctx.TrapContext) int {
	f.MisalignedLoads++
	return trapctx.Handled
}
func (f *FakeCollaborators) MisalignedStore(ctx *trapctx.TrapContext) int {
	f.MisalignedSaves++
	return trapctx.Handled
}

func (f *FakeCollaborators) FlushDataCaches()        { f.Flushes++ }
func (f *FakeCollaborators) IncrIllegalInsnCounter() { f.IllegalInsnCnt++ }
func (f *FakeCollaborators) Sstatus() uint64         { return f.SstatusVal }
func (f *FakeCollaborators) Senvcfg() (uint64, bool) { return f.SenvcfgVal, f.SenvcfgSet }
func (f *FakeCollaborators) Menvcfg() (uint64, bool) { return f.MenvcfgVal, f.MenvcfgSet }

func (f *FakeCollaborators) GetF16(num uint32) uint16    { return f.F16[num] }
func (f *FakeCollaborators) SetF16(num uint32, v uint16) { f.F16[num] = v }
func (f *FakeCollaborators) GetF32(num uint32) uint32    { return f.F32[num] }
func (f *FakeCollaborators) SetF32(num uint32, v uint32) { f.F32[num] = v }
func (f *FakeCollaborators) GetF64(num uint32) uint64    { return f.F64[num] }
func (f *FakeCollaborators) SetF64(num uint32, v uint64) { f.F64[num] = v }
func (f *FakeCollaborators) FCSR() uint32                { return f.FCR }
func (f *FakeCollaborators) SetFCSR(v uint32)            { f.FCR = v }

func (f *FakeCollaborators) VReg(num uint32) [32]uint64         { return f.Vec[num] }
func (f *FakeCollaborators) SetVReg(num uint32, data [32]uint64) { f.Vec[num] = data }
