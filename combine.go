package pigz

// initialCheck returns the check value of the empty string for format's
// algorithm: 0 for CRC-32, 1 for Adler-32. Folding block checks into this
// starting value with combineCRC32/combineAdler32, in block order, is
// equivalent to computing the check over the whole concatenation in one
// pass.
func initialCheck(f Format) uint32 {
	if f.usesCRC32() {
		return 0
	}
	return 1
}

// combine.go implements CheckCombiner: folding two adjacent blocks' checks
// into the check of their concatenation, without re-reading either block.
// This is the classic zlib gzjoin.c algorithm (also used by pigz.c's
// crc32_comb), reproduced here because no third-party Go package in the
// pack implements it.

// gf2Matrix is a 32x32 matrix over GF(2), one row per uint32, used to
// represent "shift a CRC register by one zero bit". It is always a local
// value, never heap-allocated on its own (spec §9: avoid per-call churn).
type gf2Matrix [32]uint32

// gf2MatrixTimes multiplies a 32-bit vector by mat.
func gf2MatrixTimes(mat *gf2Matrix, vec uint32) uint32 {
	var sum uint32
	for n := 0; vec != 0; n++ {
		if vec&1 != 0 {
			sum ^= mat[n]
		}
		vec >>= 1
	}
	return sum
}

// gf2MatrixSquare computes square = mat*mat.
func gf2MatrixSquare(square, mat *gf2Matrix) {
	for n := range mat {
		square[n] = gf2MatrixTimes(mat, mat[n])
	}
}

// combineCRC32 returns the CRC-32 of the concatenation of a block whose
// CRC is c1 followed by a block of len2 bytes whose own CRC is c2, without
// looking at either block's bytes.
func combineCRC32(c1, c2 uint32, len2 int64) uint32 {
	if len2 <= 0 {
		return c1
	}

	// The CRC-32 polynomial used by gzip/zip, in reversed (LSB-first) form.
	const poly = 0xedb88320

	var even, odd gf2Matrix

	// odd starts as the operator for one zero bit.
	odd[0] = poly
	row := uint32(1)
	for n := 1; n < 32; n++ {
		odd[n] = row
		row <<= 1
	}

	gf2MatrixSquare(&even, &odd) // even: two zero bits
	gf2MatrixSquare(&odd, &even) // odd: four zero bits

	// The first squaring inside the loop advances even to an eight-zero-bit
	// (one zero byte) operator, so n below is a byte count, not a bit count.
	n := uint64(len2)
	crc1 := c1
	for {
		gf2MatrixSquare(&even, &odd)
		if n&1 != 0 {
			crc1 = gf2MatrixTimes(&even, crc1)
		}
		n >>= 1
		if n == 0 {
			break
		}

		gf2MatrixSquare(&odd, &even)
		if n&1 != 0 {
			crc1 = gf2MatrixTimes(&odd, crc1)
		}
		n >>= 1
		if n == 0 {
			break
		}
	}

	return crc1 ^ c2
}

// combineAdler32 returns the Adler-32 of the concatenation of a block
// whose Adler-32 is a1 followed by a block of len2 bytes whose own
// Adler-32 is a2.
func combineAdler32(a1, a2 uint32, len2 int64) uint32 {
	const base = 65521

	rem := uint32(len2 % base)
	s1 := a1 & 0xffff
	s2 := a1 >> 16
	b1 := a2 & 0xffff
	b2 := a2 >> 16

	s1p := (s1 + b1 + base - 1) % base
	s2p := (rem*s1 + s2 + b2 + base - rem) % base

	return s1p | (s2p << 16)
}
