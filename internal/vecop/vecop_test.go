package vecop

import (
	"testing"

	"github.com/rcornwell/rv-illegal-insn/internal/testsupport"
	"github.com/rcornwell/rv-illegal-insn/internal/trapctx"
)

func newVecCtx() (*trapctx.TrapContext, *testsupport.FakeCollaborators) {
	c := &testsupport.FakeCollaborators{}
	regs := &trapctx.TrapRegs{XLen: 64}
	regs.SetVSDirty()
	ctx := &trapctx.TrapContext{Regs: regs, PrevMode: trapctx.PrivS}
	return ctx, c
}

func TestRev8InvolutionSew32(t *testing.T) {
	ctx, c := newVecCtx()
	c.Vec[2][0] = 0x0000000001020304
	req := Request{Funct6: f6Unary, Vs1: vs1Rev8, Vs2: 2, Vd: 3, VL: 1, SEW: Sew32, XLen: 64}
	rc, recognized := Emulate(req, ctx, c)
	if !recognized || rc != trapctx.Handled {
		t.Fatalf("vrev8 not handled")
	}
	if c.Vec[3][0] != 0x04030201 {
		t.Fatalf("vrev8 = %#x, want 0x04030201", c.Vec[3][0])
	}
	req2 := Request{Funct6: f6Unary, Vs1: vs1Rev8, Vs2: 3, Vd: 4, VL: 1, SEW: Sew32, XLen: 64}
	Emulate(req2, ctx, c)
	if c.Vec[4][0] != 0x01020304 {
		t.Fatalf("vrev8 involution broken: %#x", c.Vec[4][0])
	}
}

func TestBrev8InvolutionSew8(t *testing.T) {
	ctx, c := newVecCtx()
	c.Vec[1][0] = 0b10110000
	req := Request{Funct6: f6Unary, Vs1: vs1Brev8, Vs2: 1, Vd: 2, VL: 1, SEW: Sew8, XLen: 64}
	Emulate(req, ctx, c)
	if c.Vec[2][0] != 0b00001101 {
		t.Fatalf("vbrev8 = %#b, want 0b00001101", c.Vec[2][0])
	}
	req2 := Request{Funct6: f6Unary, Vs1: vs1Brev8, Vs2: 2, Vd: 3, VL: 1, SEW: Sew8, XLen: 64}
	Emulate(req2, ctx, c)
	if c.Vec[3][0] != 0b10110000 {
		t.Fatalf("vbrev8 involution broken: %#b", c.Vec[3][0])
	}
}

func TestClzCtzCpopSew32(t *testing.T) {
	ctx, c := newVecCtx()
	c.Vec[1][0] = 0x00000001
	clzReq := Request{Funct6: f6Unary, Vs1: vs1Clz, Vs2: 1, Vd: 2, VL: 1, SEW: Sew32, XLen: 64}
	Emulate(clzReq, ctx, c)
	if c.Vec[2][0] != 31 {
		t.Fatalf("vclz(1) sew32 = %d, want 31", c.Vec[2][0])
	}

	zeroReq := Request{Funct6: f6Unary, Vs1: vs1Clz, Vs2: 3, Vd: 4, VL: 1, SEW: Sew32, XLen: 64}
	Emulate(zeroReq, ctx, c)
	if c.Vec[4][0] != 32 {
		t.Fatalf("vclz(0) sew32 = %d, want 32", c.Vec[4][0])
	}

	ctzReq := Request{Funct6: f6Unary, Vs1: vs1Ctz, Vs2: 1, Vd: 5, VL: 1, SEW: Sew32, XLen: 64}
	Emulate(ctzReq, ctx, c)
	if c.Vec[5][0] != 0 {
		t.Fatalf("vctz(1) sew32 = %d, want 0", c.Vec[5][0])
	}

	cpopReq := Request{Funct6: f6Unary, Vs1: vs1Cpop, Vs2: 1, Vd: 6, VL: 1, SEW: Sew32, XLen: 64}
	Emulate(cpopReq, ctx, c)
	if c.Vec[6][0] != 1 {
		t.Fatalf("vcpop(1) sew32 = %d, want 1", c.Vec[6][0])
	}
}

func TestAndnElementWise(t *testing.T) {
	ctx, c := newVecCtx()
	c.Vec[1][0] = 0xF0F0F0F0
	c.Vec[2][0] = 0x00FF00FF
	req := Request{Funct6: f6AndN, Vs2: 1, Vs1: 2, Vd: 3, VL: 1, SEW: Sew32, XLen: 64}
	rc, recognized := Emulate(req, ctx, c)
	if !recognized || rc != trapctx.Handled {
		t.Fatalf("vandn not handled")
	}
	if c.Vec[3][0] != 0xF000F000 {
		t.Fatalf("vandn = %#x, want 0xf000f000", c.Vec[3][0])
	}
}

func TestRolRorLaw(t *testing.T) {
	ctx, c := newVecCtx()
	c.Vec[1][0] = 0x12345678
	c.Vec[2][0] = 5 // shift amount lane

	rolReq := Request{Funct6: f6Rol, Vs2: 1, Vs1: 2, Vd: 3, VL: 1, SEW: Sew32, XLen: 64}
	Emulate(rolReq, ctx, c)

	c.Vec[4][0] = 32 - 5
	rorReq := Request{Funct6: f6Ror, Vs2: 1, Vs1: 4, Vd: 5, VL: 1, SEW: Sew32, XLen: 64}
	Emulate(rorReq, ctx, c)

	if c.Vec[3][0] != c.Vec[5][0] {
		t.Fatalf("rol(v,5) != ror(v,32-5): %#x vs %#x", c.Vec[3][0], c.Vec[5][0])
	}
}

func TestRV32Unrecognized(t *testing.T) {
	ctx, c := newVecCtx()
	req := Request{Funct6: f6AndN, Vs2: 1, Vs1: 2, Vd: 3, VL: 1, SEW: Sew32, XLen: 32}
	_, recognized := Emulate(req, ctx, c)
	if recognized {
		t.Fatal("Zvbb is RV64-only in this core")
	}
}

func TestWideningShiftRejectsOverflowingLength(t *testing.T) {
	ctx, c := newVecCtx()
	req := Request{Funct6: f6WSll, Vs2: 1, Vs1: 2, Vd: 3, VL: 256, SEW: Sew32, XLen: 64}
	_, recognized := Emulate(req, ctx, c)
	if recognized {
		t.Fatal("vl*2*sew exceeding VLMAXBytes must be rejected")
	}
}
