// Package session wires a single in-process Collaborators implementation
// to the core dispatcher for the illegalsim developer console: enough
// memory, CSR, and register-file state to drive a trap end to end and
// print the result, without any real hart underneath it.
package session

import (
	"fmt"
	"os"
	"strings"

	"github.com/rcornwell/rv-illegal-insn/config"
	"github.com/rcornwell/rv-illegal-insn/illegalinsn"
	"github.com/rcornwell/rv-illegal-insn/internal/miscmem"
	"github.com/rcornwell/rv-illegal-insn/internal/trapctx"
)

// Session holds the architectural state the console commands mutate and
// the memory-backed collaborator the dispatcher runs against.
type Session struct {
	Regs *trapctx.TrapRegs
	Mem  map[uint64]uint8
	CSR  map[uint32]uint64

	f32 [32]uint32
	f64 [32]uint64
	vec [32][32]uint64
	fcr uint32

	senvcfg, menvcfg         uint64
	senvcfgSet, menvcfgSet   bool
	sstatus                  uint64
	illegalInsnCount         int
}

// New creates a session for the given XLEN with everything else enabled
// by the permissive default config.
func New(xlen int) *Session {
	return &Session{
		Regs: &trapctx.TrapRegs{XLen: xlen},
		Mem:  map[uint64]uint8{},
		CSR:  map[uint32]uint64{},
	}
}

// InjectTrap re-plays insn as if a hart had trapped on it in the given
// previous mode ("u", "s", or "m"; default "s"), returning the
// dispatcher's result code.
func (s *Session) InjectTrap(insn uint32, mode string) int {
	prev := trapctx.PrivS
	switch strings.ToLower(mode) {
	case "u":
		prev = trapctx.PrivU
	case "m":
		prev = trapctx.PrivM
	}

	for i := 0; i < 4; i++ {
		s.Mem[s.Regs.Mepc+uint64(i)] = byte(insn >> (8 * i))
	}

	ctx := &trapctx.TrapContext{Regs: s.Regs, PrevMode: prev}
	return illegalinsn.Handle(ctx, s)
}

func (s *Session) SetGPR(num uint32, val uint64) { s.Regs.SetRD(num<<7, val) }
func (s *Session) SetFCSR(val uint32)            { s.fcr = val }

func (s *Session) ShowRegs() string {
	var b strings.Builder
	fmt.Fprintf(&b, "mepc=%#x xlen=%d\n", s.Regs.Mepc, s.Regs.XLen)
	for i := 0; i < 32; i++ {
		fmt.Fprintf(&b, "x%-2d=%#018x ", i, s.Regs.GPR[i])
		if i%4 == 3 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (s *Session) ShowFCSR() string {
	return fmt.Sprintf("fcsr=%#010x", s.fcr)
}

// LoadConfig reads a config file and applies its envcfg-fallback policy
// to the miscmem package's package-level setting.
func (s *Session) LoadConfig(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	cfg, err := config.Load(f)
	if err != nil {
		return err
	}
	miscmem.EnvcfgFallback = cfg.EnvcfgFallback
	return nil
}

// --- trapctx.Collaborators ---------------------------------------------

func (s *Session) FetchInsn(pc uint64) (uint32, *trapctx.TrapInfo) {
	var v uint32
	for i := uint64(0); i < 4; i++ {
		v |= uint32(s.Mem[pc+i]) << (8 * i)
	}
	return v, nil
}

func (s *Session) LoadU8(addr uint64) (uint8, *trapctx.TrapInfo) { return s.Mem[addr], nil }
func (s *Session) LoadU16(addr uint64) (uint16, *trapctx.TrapInfo) {
	return uint16(s.Mem[addr]) | uint16(s.Mem[addr+1])<<8, nil
}
func (s *Session) LoadU32(addr uint64) (uint32, *trapctx.TrapInfo) {
	var v uint32
	for i := uint64(0); i < 4; i++ {
		v |= uint32(s.Mem[addr+i]) << (8 * i)
	}
	return v, nil
}

func (s *Session) StoreU8(addr uint64, val uint8) *trapctx.TrapInfo {
	s.Mem[addr] = val
	return nil
}
func (s *Session) StoreU16(addr uint64, val uint16) *trapctx.TrapInfo {
	s.Mem[addr] = byte(val)
	s.Mem[addr+1] = byte(val >> 8)
	return nil
}
func (s *Session) StoreU32(addr uint64, val uint32) *trapctx.TrapInfo {
	for i := uint64(0); i < 4; i++ {
		s.Mem[addr+i] = byte(val >> (8 * i))
	}
	return nil
}

func (s *Session) Redirect(regs *trapctx.TrapRegs, info *trapctx.TrapInfo) int {
	fmt.Printf("redirected: cause=%d tval=%#x\n", info.Cause, info.Tval)
	return trapctx.Handled
}

func (s *Session) EmulateCSRRead(csr uint32, _ *trapctx.TrapRegs) (uint64, bool) {
	v, ok := s.CSR[csr]
	return v, ok
}

func (s *Session) EmulateCSRWrite(csr uint32, _ *trapctx.TrapRegs, val uint64) bool {
	s.CSR[csr] = val
	return true
}

func (s *Session) MisalignedLoad(ctx *trapctx.TrapContext) int {
	fmt.Printf("misaligned load at tval=%#x\n", ctx.Trap.Tval)
	return trapctx.Handled
}

func (s *Session) MisalignedStore(ctx *trapctx.TrapContext) int {
	fmt.Printf("misaligned store at tval=%#x\n", ctx.Trap.Tval)
	return trapctx.Handled
}

func (s *Session) FlushDataCaches()        { fmt.Println("cache flush") }
func (s *Session) IncrIllegalInsnCounter() { s.illegalInsnCount++ }
func (s *Session) Sstatus() uint64         { return s.sstatus }
func (s *Session) Senvcfg() (uint64, bool) { return s.senvcfg, s.senvcfgSet }
func (s *Session) Menvcfg() (uint64, bool) { return s.menvcfg, s.menvcfgSet }

func (s *Session) GetF16(num uint32) uint16    { return uint16(s.f32[num]) }
func (s *Session) SetF16(num uint32, v uint16) { s.f32[num] = 0xffff0000 | uint32(v) }
func (s *Session) GetF32(num uint32) uint32    { return s.f32[num] }
func (s *Session) SetF32(num uint32, v uint32) { s.f32[num] = v }
func (s *Session) GetF64(num uint32) uint64    { return s.f64[num] }
func (s *Session) SetF64(num uint32, v uint64) { s.f64[num] = v }
func (s *Session) FCSR() uint32 { return s.fcr }

func (s *Session) VReg(num uint32) [32]uint64    { return s.vec[num] }
func (s *Session) SetVReg(num uint32, d [32]uint64) { s.vec[num] = d }
