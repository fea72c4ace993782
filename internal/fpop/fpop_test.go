package fpop

import (
	"testing"

	"github.com/rcornwell/rv-illegal-insn/internal/testsupport"
	"github.com/rcornwell/rv-illegal-insn/internal/trapctx"
)

func encodeR(funct7, rs2, rs1, funct3, rd uint32) uint32 {
	return funct7<<25 | rs2<<20 | rs1<<15 | funct3<<12 | rd<<7 | 0b1010011
}

func newCtx() (*trapctx.TrapContext, *testsupport.FakeCollaborators) {
	c := &testsupport.FakeCollaborators{}
	regs := &trapctx.TrapRegs{XLen: 64}
	regs.SetFSDirty()
	ctx := &trapctx.TrapContext{Regs: regs, PrevMode: trapctx.PrivS}
	return ctx, c
}

func TestFSOffRedirects(t *testing.T) {
	c := &testsupport.FakeCollaborators{}
	regs := &trapctx.TrapRegs{XLen: 64} // FS off
	ctx := &trapctx.TrapContext{Regs: regs, PrevMode: trapctx.PrivS}
	insn := encodeR(f7CvtToS, rs2H, 1, 0, 2)
	rc, recognized := Emulate(insn, ctx, c)
	if !recognized || rc != trapctx.Handled {
		t.Fatalf("expected redirect, got rc=%d recognized=%v", rc, recognized)
	}
	if c.RedirectCalls != 1 {
		t.Fatal("FS off must redirect instead of emulating")
	}
}

func TestFcvtSHConvertsOneHalfToSingle(t *testing.T) {
	ctx, c := newCtx()
	c.F32[1] = 0xffff0000 | 0x3c00 // NaN-boxed half 1.0
	insn := encodeR(f7CvtToS, rs2H, 1, 0, 2)
	rc, recognized := Emulate(insn, ctx, c)
	if !recognized || rc != trapctx.Handled {
		t.Fatalf("fcvt.s.h not handled")
	}
	if c.F32[2] != 0x3f800000 {
		t.Fatalf("fcvt.s.h(1.0) = %#x, want 0x3f800000", c.F32[2])
	}
}

func TestFmvXHSignExtends(t *testing.T) {
	ctx, c := newCtx()
	c.F32[1] = 0xffff0000 | 0x8000 // NaN-boxed -0.0 half
	insn := encodeR(f7FmvXH, 0, 1, 0, 2)
	_, recognized := Emulate(insn, ctx, c)
	if !recognized {
		t.Fatal("fmv.x.h not recognized")
	}
	if ctx.Regs.GPR[2] != 0xffffffffffff8000 {
		t.Fatalf("fmv.x.h = %#x", ctx.Regs.GPR[2])
	}
}

func TestFliSLoadsConstantOne(t *testing.T) {
	ctx, c := newCtx()
	insn := encodeR(f7FliS, 1, 16, 0, 3)
	_, recognized := Emulate(insn, ctx, c)
	if !recognized {
		t.Fatal("fli.s not recognized")
	}
	if c.F32[3] != 0x3f800000 {
		t.Fatalf("fli.s(16) = %#x, want 1.0", c.F32[3])
	}
}

func TestFminMOrdersSignedZeroSingle(t *testing.T) {
	ctx, c := newCtx()
	c.F32[1] = 0x80000000 // -0.0
	c.F32[2] = 0x00000000 // +0.0
	insn := encodeR(f7MinMaxS, 2, 1, 0b000, 3)
	rc, recognized := Emulate(insn, ctx, c)
	if !recognized || rc != trapctx.Handled {
		t.Fatalf("fminm.s not handled")
	}
	if c.F32[3] != 0x80000000 {
		t.Fatalf("fminm.s(-0,+0) = %#x, want -0.0", c.F32[3])
	}
}

func TestFleqSReturnsIntegerNotFP(t *testing.T) {
	ctx, c := newCtx()
	c.F32[1] = 0x3f800000 // 1.0
	c.F32[2] = 0x40000000 // 2.0
	insn := encodeR(f7MinMaxS, 2, 1, 0b010, 5)
	_, recognized := Emulate(insn, ctx, c)
	if !recognized {
		t.Fatal("fleq.s not recognized")
	}
	if ctx.Regs.GPR[5] != 1 {
		t.Fatalf("fleq.s(1,2) = %d, want 1", ctx.Regs.GPR[5])
	}
}

func TestFcvtmodWDTruncatesTowardZero(t *testing.T) {
	ctx, c := newCtx()
	c.F64[1] = 0x4014000000000000 // 5.0
	insn := encodeR(f7FcvtmodD, 0, 1, 0, 4)
	rc, recognized := Emulate(insn, ctx, c)
	if !recognized || rc != trapctx.Handled {
		t.Fatalf("fcvtmod.w.d not handled")
	}
	if int32(uint32(ctx.Regs.GPR[4])) != 5 {
		t.Fatalf("fcvtmod.w.d(5.0) = %d, want 5", int32(uint32(ctx.Regs.GPR[4])))
	}
}

func encodeLoadFP(rs1, funct3, rd, imm uint32) uint32 {
	return (imm&0xfff)<<20 | rs1<<15 | funct3<<12 | rd<<7 | 0b0000111
}

func encodeStoreFP(rs1, rs2, funct3, imm uint32) uint32 {
	lo := imm & 0x1f
	hi := (imm >> 5) & 0x7f
	return hi<<25 | rs2<<20 | rs1<<15 | funct3<<12 | lo<<7 | 0b0100111
}

func TestFlhTailCallsMisalignedLoad(t *testing.T) {
	ctx, c := newCtx()
	ctx.Regs.GPR[1] = 0x80001001
	insn := encodeLoadFP(1, 0b001, 2, 4)
	rc, recognized := EmulateLoadFP(insn, ctx, c)
	if !recognized || rc != trapctx.Handled {
		t.Fatalf("flh not handled")
	}
	if c.MisalignedLoads != 1 {
		t.Fatalf("expected one misaligned-load tail-call, got %d", c.MisalignedLoads)
	}
	if ctx.Trap.Cause != trapctx.CauseMisalignedLoad {
		t.Fatalf("wrong cause: %d", ctx.Trap.Cause)
	}
	if ctx.Trap.Tval != 0x80001005 {
		t.Fatalf("tval = %#x, want 0x80001005", ctx.Trap.Tval)
	}
}

func TestFlhRedirectsWhenFSOff(t *testing.T) {
	c := &testsupport.FakeCollaborators{}
	regs := &trapctx.TrapRegs{XLen: 64} // FS off
	ctx := &trapctx.TrapContext{Regs: regs, PrevMode: trapctx.PrivS}
	insn := encodeLoadFP(1, 0b001, 2, 0)
	rc, recognized := EmulateLoadFP(insn, ctx, c)
	if !recognized || rc != trapctx.Handled {
		t.Fatalf("expected redirect, got rc=%d recognized=%v", rc, recognized)
	}
	if c.RedirectCalls != 1 {
		t.Fatal("FS off must redirect instead of tail-calling misaligned load")
	}
}

func TestFshTailCallsMisalignedStore(t *testing.T) {
	ctx, c := newCtx()
	ctx.Regs.GPR[1] = 0x80001001
	ctx.Regs.GPR[2] = 0xdead
	insn := encodeStoreFP(1, 2, 0b001, 6)
	rc, recognized := EmulateStoreFP(insn, ctx, c)
	if !recognized || rc != trapctx.Handled {
		t.Fatalf("fsh not handled")
	}
	if c.MisalignedSaves != 1 {
		t.Fatalf("expected one misaligned-store tail-call, got %d", c.MisalignedSaves)
	}
	if ctx.Trap.Cause != trapctx.CauseMisalignedStore {
		t.Fatalf("wrong cause: %d", ctx.Trap.Cause)
	}
	if ctx.Trap.Tval != 0x80001007 {
		t.Fatalf("tval = %#x, want 0x80001007", ctx.Trap.Tval)
	}
}

func TestLoadFPRejectsNonFlhFunct3(t *testing.T) {
	ctx, c := newCtx()
	insn := encodeLoadFP(1, 0b010, 2, 0) // FLW, not modeled
	_, recognized := EmulateLoadFP(insn, ctx, c)
	if recognized {
		t.Fatal("flw must fall through to redirect, not be handled here")
	}
}

func TestUnrecognizedEncodingFallsThrough(t *testing.T) {
	ctx, c := newCtx()
	insn := encodeR(0b0000000, 0, 0, 0, 0)
	_, recognized := Emulate(insn, ctx, c)
	if recognized {
		t.Fatal("plain FADD encoding is outside this core's modeled subset")
	}
}
