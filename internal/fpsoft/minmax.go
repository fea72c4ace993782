package fpsoft

// signMagnitudeLess orders IEEE bit patterns so that equal-magnitude values
// of opposite sign compare correctly (+0 > -0), using the sign-xor-topbit
// idiom: treat the pattern as a signed magnitude and flip the comparison
// when the sign bit is set.
func signMagnitudeLess16(a, b uint16) bool {
	sa, sb := a>>15, b>>15
	if sa != sb {
		return sa > sb // negative (sa=1) is less than positive
	}
	if sa == 0 {
		return a < b
	}
	return a > b
}

func signMagnitudeLess32(a, b uint32) bool {
	sa, sb := a>>31, b>>31
	if sa != sb {
		return sa > sb
	}
	if sa == 0 {
		return a < b
	}
	return a > b
}

func signMagnitudeLess64(a, b uint64) bool {
	sa, sb := a>>63, b>>63
	if sa != sb {
		return sa > sb
	}
	if sa == 0 {
		return a < b
	}
	return a > b
}

// FMinMH/FMaxMH/... implement fminm/fmaxm/fleq/fltq per spec.md §4.4:
// propagate qNaN if either input is NaN, set NV on signaling NaN, and
// (for min/max) disambiguate equal magnitudes by sign so +0 and -0 order.

func FMinMH(a, b uint16, fcsr *uint32) uint16 { return minmax16(a, b, fcsr, true) }
func FMaxMH(a, b uint16, fcsr *uint32) uint16 { return minmax16(a, b, fcsr, false) }

func minmax16(a, b uint16, fcsr *uint32, isMin bool) uint16 {
	aNaN, bNaN := isNaN16(a), isNaN16(b)
	if isSignalingNaN16(a) || isSignalingNaN16(b) {
		*fcsr |= FlagNV
	}
	if aNaN || bNaN {
		return CanonicalNaN16
	}
	less := signMagnitudeLess16(a, b)
	if isMin == less {
		return a
	}
	return b
}

func FMinMS(a, b uint32, fcsr *uint32) uint32 { return minmax32(a, b, fcsr, true) }
func FMaxMS(a, b uint32, fcsr *uint32) uint32 { return minmax32(a, b, fcsr, false) }

func minmax32(a, b uint32, fcsr *uint32, isMin bool) uint32 {
	aNaN, bNaN := isNaN32(a), isNaN32(b)
	if isSignalingNaN32(a) || isSignalingNaN32(b) {
		*fcsr |= FlagNV
	}
	if aNaN || bNaN {
		return CanonicalNaN32
	}
	less := signMagnitudeLess32(a, b)
	if isMin == less {
		return a
	}
	return b
}

func FMinMD(a, b uint64, fcsr *uint32) uint64 { return minmax64(a, b, fcsr, true) }
func FMaxMD(a, b uint64, fcsr *uint32) uint64 { return minmax64(a, b, fcsr, false) }

func minmax64(a, b uint64, fcsr *uint32, isMin bool) uint64 {
	aNaN, bNaN := isNaN64(a), isNaN64(b)
	if isSignalingNaN64(a) || isSignalingNaN64(b) {
		*fcsr |= FlagNV
	}
	if aNaN || bNaN {
		return CanonicalNaN64
	}
	less := signMagnitudeLess64(a, b)
	if isMin == less {
		return a
	}
	return b
}

// FLeq/FLtq are quiet ordered compares: no NV unless an operand is
// signaling, and any NaN operand (quiet or signaling) yields false.

func FLeqH(a, b uint16, fcsr *uint32) bool { return ordCompare16(a, b, fcsr, true) }
func FLtqH(a, b uint16, fcsr *uint32) bool { return ordCompare16(a, b, fcsr, false) }

func ordCompare16(a, b uint16, fcsr *uint32, orEqual bool) bool {
	if isSignalingNaN16(a) || isSignalingNaN16(b) {
		*fcsr |= FlagNV
	}
	if isNaN16(a) || isNaN16(b) {
		return false
	}
	less := signMagnitudeLess16(a, b)
	if orEqual {
		return less || a == b || (a|0x8000) == (b|0x8000) && a&0x7fff == 0 && b&0x7fff == 0
	}
	return less
}

func FLeqS(a, b uint32, fcsr *uint32) bool { return ordCompare32(a, b, fcsr, true) }
func FLtqS(a, b uint32, fcsr *uint32) bool { return ordCompare32(a, b, fcsr, false) }

func ordCompare32(a, b uint32, fcsr *uint32, orEqual bool) bool {
	if isSignalingNaN32(a) || isSignalingNaN32(b) {
		*fcsr |= FlagNV
	}
	if isNaN32(a) || isNaN32(b) {
		return false
	}
	less := signMagnitudeLess32(a, b)
	if orEqual {
		return less || a == b || (a&0x7fffffff == 0 && b&0x7fffffff == 0)
	}
	return less
}

func FLeqD(a, b uint64, fcsr *uint32) bool { return ordCompare64(a, b, fcsr, true) }
func FLtqD(a, b uint64, fcsr *uint32) bool { return ordCompare64(a, b, fcsr, false) }

func ordCompare64(a, b uint64, fcsr *uint32, orEqual bool) bool {
	if isSignalingNaN64(a) || isSignalingNaN64(b) {
		*fcsr |= FlagNV
	}
	if isNaN64(a) || isNaN64(b) {
		return false
	}
	less := signMagnitudeLess64(a, b)
	if orEqual {
		return less || a == b || (a&0x7fffffffffffffff == 0 && b&0x7fffffffffffffff == 0)
	}
	return less
}
