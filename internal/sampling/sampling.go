/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

// Package sampling packs and unpacks fixed-width bit samples to and from
// byte-aligned storage, used for PDF sample-table functions (Type 0) and
// sub-byte image color components.
package sampling

// ResampleBytes reinterprets data as a bitstream of consecutive
// bitsPerSample-wide unsigned values, most significant bit first, and
// returns one uint32 per value. A partial value left over from padding at
// the end of the byte stream is discarded.
func ResampleBytes(data []byte, bitsPerSample int) []uint32 {
	if bitsPerSample <= 0 || bitsPerSample > 32 {
		return nil
	}
	numSamples := (len(data) * 8) / bitsPerSample
	samples := make([]uint32, 0, numSamples)

	var acc uint64
	accBits := 0
	for _, b := range data {
		acc = (acc << 8) | uint64(b)
		accBits += 8
		for accBits >= bitsPerSample && len(samples) < numSamples {
			shift := accBits - bitsPerSample
			mask := uint64(1)<<uint(bitsPerSample) - 1
			samples = append(samples, uint32((acc>>uint(shift))&mask))
			accBits = shift
			acc &= uint64(1)<<uint(accBits) - 1
		}
	}
	return samples
}

// ResampleUint32 repacks data, a sequence of bitsIn-wide values, into a
// sequence of bitsOut-wide values spanning the same bitstream. The final
// output value is padded with zero low-order bits if the input doesn't
// divide evenly.
func ResampleUint32(data []uint32, bitsIn, bitsOut int) []uint32 {
	if bitsIn <= 0 || bitsOut <= 0 || bitsIn > 32 || bitsOut > 32 {
		return nil
	}
	totalBits := len(data) * bitsIn
	numOut := (totalBits + bitsOut - 1) / bitsOut
	out := make([]uint32, 0, numOut)

	var acc uint64
	accBits := 0
	inMask := uint64(1)<<uint(bitsIn) - 1
	outMask := uint64(1)<<uint(bitsOut) - 1
	for _, v := range data {
		acc = (acc << uint(bitsIn)) | (uint64(v) & inMask)
		accBits += bitsIn
		for accBits >= bitsOut {
			shift := accBits - bitsOut
			out = append(out, uint32((acc>>uint(shift))&outMask))
			accBits = shift
			acc &= uint64(1)<<uint(accBits) - 1
		}
	}
	if accBits > 0 {
		out = append(out, uint32((acc<<uint(bitsOut-accBits))&outMask))
	}
	return out
}
