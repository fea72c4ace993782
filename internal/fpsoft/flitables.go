package fpsoft

// The Zfa fli.h/fli.s/fli.d immediate table: 32 entries, each a named
// constant from the RISC-V spec. Entry 1 ("minimum positive normal") is
// the only one whose bit pattern is format-dependent by more than a
// rebias; it is filled in per precision below. Entries 0 and 2..28 are
// exact binary values representable in every precision (possibly as a
// subnormal in the narrower ones); entry 29 (2^16) is exact in single and
// double but overflows half precision, where it encodes as +infinity;
// entry 30 is +infinity and entry 31 is the canonical quiet NaN.
var fliExactValues = [30]float64{
	0: -1.0,
	// index 1 filled in per precision (minimum positive normal)
	2:  0x1p-16,
	3:  0x1p-15,
	4:  0x1p-8,
	5:  0x1p-7,
	6:  0x1p-4,
	7:  0x1p-3,
	8:  0.25,
	9:  0.3125,
	10: 0.375,
	11: 0.4375,
	12: 0.5,
	13: 0.625,
	14: 0.75,
	15: 0.875,
	16: 1.0,
	17: 1.25,
	18: 1.5,
	19: 1.75,
	20: 2.0,
	21: 2.5,
	22: 3.0,
	23: 4.0,
	24: 8.0,
	25: 16.0,
	26: 128.0,
	27: 256.0,
	28: 32768.0,
	29: 65536.0,
}

// encodeExact converts one of the exact table values above into the bit
// pattern of an IEEE-754 format with the given exponent/mantissa field
// widths. Every value in fliExactValues is an exact power of two or a
// short binary fraction, so the round-trip through float64 loses no bits.
func encodeExact(value float64, expBits, manBits uint) uint64 {
	bias := int64(1)<<(expBits-1) - 1
	if value == 0 {
		return 0
	}
	sign := uint64(0)
	if value < 0 {
		sign = 1
		value = -value
	}

	// Decompose value = mant * 2^exp with mant in [1,2).
	exp := int64(0)
	mant := value
	for mant >= 2 {
		mant /= 2
		exp++
	}
	for mant < 1 {
		mant *= 2
		exp--
	}

	biased := exp + bias
	var fieldExp uint64
	var fieldMant uint64
	if biased <= 0 {
		// Subnormal: shift the mantissa right by (1-biased) more, drop
		// the implicit leading 1.
		frac := mant - 1
		shift := 1 - biased
		scaled := (1 + frac) / float64(int64(1)<<uint(shift))
		fieldExp = 0
		fieldMant = uint64(scaled * float64(int64(1)<<manBits))
	} else {
		frac := mant - 1
		fieldExp = uint64(biased)
		fieldMant = uint64(frac*float64(int64(1)<<manBits) + 0.5)
	}
	return sign<<(expBits+manBits) | fieldExp<<manBits | fieldMant
}

func buildFliTable(expBits, manBits uint, minNormal float64, infPattern, nanPattern uint64) [32]uint64 {
	var table [32]uint64
	for i, v := range fliExactValues {
		if i == 1 {
			continue
		}
		table[i] = encodeExact(v, expBits, manBits)
	}
	table[1] = encodeExact(minNormal, expBits, manBits)
	table[30] = infPattern
	table[31] = nanPattern
	return table
}

var fliTableH = buildFliTable(5, 10, 0x1p-14, 0x7c00, uint64(CanonicalNaN16))
var fliTableS = buildFliTable(8, 23, 0x1p-126, 0x7f800000, uint64(CanonicalNaN32))
var fliTableD = buildFliTable(11, 52, 0x1p-1022, 0x7ff0000000000000, CanonicalNaN64)

// FliH/FliS/FliD implement fli.h/fli.s/fli.d: look up rs1's 5-bit index
// and return the corresponding constant bit pattern.
func FliH(index uint32) uint16 { return uint16(fliTableH[index&0x1f]) }
func FliS(index uint32) uint32 { return uint32(fliTableS[index&0x1f]) }
func FliD(index uint32) uint64 { return fliTableD[index&0x1f] }
