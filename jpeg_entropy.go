// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package tdb

// huffCode is one canonical JPEG Huffman code: a bit pattern of a given
// length, MSB first.
type huffCode struct {
	length uint8
	code   uint16
}

// buildHuffmanCodes runs the canonical code-generation procedure of
// ISO/IEC 10918-1 Annex C: codes are assigned in increasing length order,
// incrementing within a length and left-shifting between lengths.
func buildHuffmanCodes(counts [16]byte, values []byte) map[byte]huffCode {
	codes := make(map[byte]huffCode, len(values))
	code := uint32(0)
	k := 0
	for length := 1; length <= 16; length++ {
		for i := byte(0); i < counts[length-1]; i++ {
			codes[values[k]] = huffCode{length: uint8(length), code: uint16(code)}
			code++
			k++
		}
		code <<= 1
	}
	return codes
}

// bitCategory returns the number of bits needed to represent the
// magnitude of v (0 for v == 0), matching the JPEG "category"/"size"
// concept used for DC difference and AC coefficient coding.
func bitCategory(v int) uint8 {
	if v < 0 {
		v = -v
	}
	var n uint8
	for v > 0 {
		n++
		v >>= 1
	}
	return n
}

// magnitudeBits returns the category and the additional bits JPEG
// encodes alongside a signed DC/AC value: the value itself when
// non-negative, or its ones'-complement within the category width when
// negative (ISO/IEC 10918-1 §F.1.2.1).
func magnitudeBits(v int) (category uint8, bits uint32) {
	av := v
	if av < 0 {
		av = -av
	}
	category = bitCategory(v)
	if category == 0 {
		return 0, 0
	}
	if v >= 0 {
		return category, uint32(av)
	}
	mask := uint32(1)<<category - 1
	return category, uint32(av) ^ mask
}

// bitWriter packs MSB-first bits into bytes and applies JPEG byte
// stuffing (a literal 0xFF byte in the entropy stream is followed by an
// inserted 0x00 so it cannot be mistaken for a marker).
type bitWriter struct {
	out  []byte
	acc  uint32
	nbit uint8
}

func (w *bitWriter) writeBits(value uint32, n uint8) {
	if n == 0 {
		return
	}
	w.acc = (w.acc << n) | (value & (1<<n - 1))
	w.nbit += n
	for w.nbit >= 8 {
		w.nbit -= 8
		b := byte(w.acc >> w.nbit)
		w.out = append(w.out, b)
		if b == 0xFF {
			w.out = append(w.out, 0x00)
		}
	}
}

func (w *bitWriter) writeCode(c huffCode) {
	w.writeBits(uint32(c.code), c.length)
}

// flush pads the final partial byte with 1 bits, the conventional JPEG
// stuffing pattern, and returns the accumulated stream.
func (w *bitWriter) flush() []byte {
	if w.nbit > 0 {
		pad := uint8(8) - w.nbit
		w.writeBits((1<<pad)-1, pad)
	}
	return w.out
}

// encodeConstantPlane produces a standalone, self-terminating baseline
// entropy-coded segment representing a single-component plane of
// width x height samples, every sample equal to value, quantized with
// quant and coded with the given Huffman tables. Used to synthesize the
// K ("no key") plane of a reconstructed Type 1 image.
func encodeConstantPlane(value byte, width, height uint32, quant [64]byte, dc, ac map[byte]huffCode) []byte {
	blocksX := (width + 7) / 8
	blocksY := (height + 7) / 8
	nBlocks := int(blocksX) * int(blocksY)
	if nBlocks == 0 {
		return nil
	}

	levelShifted := int(value) - 128
	dcCoeff := 8 * levelShifted
	q := int(quant[0])
	if q == 0 {
		q = 1
	}
	quantizedDC := roundDiv(dcCoeff, q)

	w := &bitWriter{}
	predictor := 0
	eob := ac[0x00]
	for i := 0; i < nBlocks; i++ {
		diff := quantizedDC - predictor
		predictor = quantizedDC
		cat, bits := magnitudeBits(diff)
		w.writeCode(dc[cat])
		w.writeBits(bits, cat)
		w.writeCode(eob)
	}
	return w.flush()
}

// roundDiv rounds a/b to the nearest integer, half away from zero.
func roundDiv(a, b int) int {
	if b == 0 {
		return 0
	}
	neg := (a < 0) != (b < 0)
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	q := (a + b/2) / b
	if neg {
		return -q
	}
	return q
}
