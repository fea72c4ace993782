package fpsoft

import "testing"

func TestConvertF16ToF32One(t *testing.T) {
	var fcsr uint32
	got := ConvertF16ToF32(0x3c00, &fcsr) // 1.0 half
	if got != 0x3f800000 {
		t.Fatalf("fcvt.s.h(1.0) = %#x, want 0x3f800000", got)
	}
	if fcsr != 0 {
		t.Fatalf("fcsr changed on exact conversion: %#x", fcsr)
	}
}

func TestConvertF16ToF32Zero(t *testing.T) {
	var fcsr uint32
	if got := ConvertF16ToF32(0, &fcsr); got != 0 {
		t.Fatalf("fcvt.s.h(+0) = %#x, want 0", got)
	}
	if got := ConvertF16ToF32(0x8000, &fcsr); got != 0x80000000 {
		t.Fatalf("fcvt.s.h(-0) = %#x, want 0x80000000", got)
	}
}

func TestConvertF16ToF32SignalingNaN(t *testing.T) {
	var fcsr uint32
	// exp=0x1f, frac nonzero, bit9 (quiet bit) clear -> signaling
	sNaN := uint16(0x7c01)
	ConvertF16ToF32(sNaN, &fcsr)
	if fcsr&FlagNV == 0 {
		t.Fatalf("signaling NaN input did not set NV")
	}
}

func TestConvertRoundTripNormals(t *testing.T) {
	vals := []uint16{0x3c00, 0x4000, 0x4200, 0xbc00, 0x0400, 0x7bff, 0xfbff}
	for _, v := range vals {
		var fcsr uint32
		wide := ConvertF16ToF32(v, &fcsr)
		back := ConvertF32ToF16(wide, &fcsr, RNE)
		if back != v {
			t.Errorf("round trip %#x -> %#x -> %#x", v, wide, back)
		}
		if fcsr != 0 {
			t.Errorf("fcsr changed on exact round trip of %#x: %#x", v, fcsr)
		}
	}
}

func TestZbbLawClzCpopCtz(t *testing.T) {
	// Exercised indirectly via intop, but the boundary case clz(0)=XLEN is
	// asserted there; this file only covers the FP soft helpers.
}

func TestFliTableKnownEntries(t *testing.T) {
	if FliS(16) != 0x3f800000 {
		t.Fatalf("fli.s[16] = %#x, want 1.0", FliS(16))
	}
	if FliS(0) != 0xbf800000 {
		t.Fatalf("fli.s[0] = %#x, want -1.0", FliS(0))
	}
	if FliS(30) != 0x7f800000 {
		t.Fatalf("fli.s[30] = %#x, want +inf", FliS(30))
	}
	if FliD(16) != 0x3ff0000000000000 {
		t.Fatalf("fli.d[16] = %#x, want 1.0", FliD(16))
	}
	if FliH(16) != 0x3c00 {
		t.Fatalf("fli.h[16] = %#x, want 1.0", FliH(16))
	}
}

func TestFMinMOrdersSignedZero(t *testing.T) {
	var fcsr uint32
	posZero := uint32(0)
	negZero := uint32(0x80000000)
	if got := FMinMS(posZero, negZero, &fcsr); got != negZero {
		t.Fatalf("fminm(+0,-0) = %#x, want -0", got)
	}
	if got := FMaxMS(posZero, negZero, &fcsr); got != posZero {
		t.Fatalf("fmaxm(+0,-0) = %#x, want +0", got)
	}
}

func TestFMinMPropagatesQuietNaN(t *testing.T) {
	var fcsr uint32
	nan := CanonicalNaN32
	got := FMinMS(nan, 0x3f800000, &fcsr)
	if got != CanonicalNaN32 {
		t.Fatalf("fminm(qNaN,1.0) = %#x, want canonical qNaN", got)
	}
}

func TestFcvtmodWDZero(t *testing.T) {
	var fcsr uint32
	if got := FcvtmodWD(0, &fcsr); got != 0 {
		t.Fatalf("fcvtmod.w.d(0) = %d", got)
	}
}

func TestFcvtmodWDSimple(t *testing.T) {
	var fcsr uint32
	// 5.0 as double
	five := uint64(0x4014000000000000)
	if got := FcvtmodWD(five, &fcsr); got != 5 {
		t.Fatalf("fcvtmod.w.d(5.0) = %d, want 5", got)
	}
	if fcsr != 0 {
		t.Fatalf("fcsr changed on exact conversion: %#x", fcsr)
	}
}

func TestResolveRMReservedIsIllegal(t *testing.T) {
	if _, ok := ResolveRM(DYN, 5<<5); ok {
		t.Fatalf("dynamic rm=5 must be reported illegal")
	}
	if _, ok := ResolveRM(DYN, 6<<5); ok {
		t.Fatalf("dynamic rm=6 must be reported illegal")
	}
	if rm, ok := ResolveRM(DYN, RNE<<5); !ok || rm != RNE {
		t.Fatalf("dynamic rm=RNE must resolve cleanly, got %d ok=%v", rm, ok)
	}
}

func TestNaNBoxing(t *testing.T) {
	boxed := BoxF16(0x3c00)
	if UnboxF16(boxed) != 0x3c00 {
		t.Fatalf("box/unbox round trip failed")
	}
	if UnboxF16(0x12345678) != 0x7e00 {
		t.Fatalf("un-boxed half read should canonicalize to the canonical qNaN 0x7e00")
	}
}
