// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package tdb

import "fmt"

// ReconstructYMCA decodes the raw scan bytes of a Thumbs.db Type 1
// stream (which carry inverted CMY-plus-Alpha sample data, the planes
// ordered Y-M-C-A — the "YMCA" pun Vinetto's documentation uses) and,
// given the stream's declared width/height, synthesizes a standard
// four-component CMYK JPEG a conformant decoder can open.
//
// The reconstruction never rejects raw on shape grounds: the YMCA
// interpretation is empirical, reverse-engineered rather than
// documented by Microsoft, so a malformed-looking input is still
// emitted, with the caller responsible for surfacing a warning.
func ReconstructYMCA(raw []byte, width, height uint32) ([]byte, error) {
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("tdb: reconstruct YMCA: zero dimension %dx%d", width, height)
	}

	dcLum := buildHuffmanCodes(stdDCLuminanceCounts, stdDCLuminanceValues)
	acLum := buildHuffmanCodes(stdACLuminanceCounts, stdACLuminanceValues)

	out := make([]byte, 0, len(raw)+512)
	out = writeMarker(out, markerSOI)
	out = appendJFIFHeader(out)
	out = appendAdobeHeader(out)
	out = appendDQT(out, 0, stdLuminanceQuantTable)
	out = appendDQT(out, 1, stdChrominanceQuantTable)
	out = appendDHT(out, 0, 0, stdDCLuminanceCounts, stdDCLuminanceValues)
	out = appendDHT(out, 1, 0, stdACLuminanceCounts, stdACLuminanceValues)
	out = appendDHT(out, 0, 1, stdDCChrominanceCounts, stdDCChrominanceValues)
	out = appendDHT(out, 1, 1, stdACChrominanceCounts, stdACChrominanceValues)
	out = appendSOF0(out, width, height)
	out = appendSOS(out)

	// Entropy-coded data: the original CMY scan bytes are copied
	// unmodified; the K plane has no source data at all ("no key") and
	// is synthesized as a constant 0xFF plane using the same luminance
	// tables assigned to component 4 in SOF0/SOS below.
	out = append(out, raw...)
	out = append(out, encodeConstantPlane(0xFF, width, height, stdLuminanceQuantTable, dcLum, acLum)...)

	out = writeMarker(out, markerEOI)

	return out, nil
}

func appendJFIFHeader(buf []byte) []byte {
	payload := []byte{
		'J', 'F', 'I', 'F', 0x00,
		1, 1, // version 1.01
		1,          // density units: 1 = pixels per inch
		0x00, 0x60, // Xdensity = 96
		0x00, 0x60, // Ydensity = 96
		0, 0, // no embedded thumbnail
	}
	return writeSegment(buf, markerAPP0, payload)
}

func appendAdobeHeader(buf []byte) []byte {
	payload := []byte{
		'A', 'd', 'o', 'b', 'e',
		0x00, 0x64, // DCTEncodeVersion
		0x00, 0x00, // flags0
		0x00, 0x00, // flags1
		0x00, // color transform: 0 = CMYK, no YCCK transform
	}
	return writeSegment(buf, markerAPP14, payload)
}

func appendDQT(buf []byte, id byte, table [64]byte) []byte {
	payload := make([]byte, 0, 65)
	payload = append(payload, id) // precision nibble 0 (8-bit) | table id
	payload = append(payload, table[:]...)
	return writeSegment(buf, markerDQT, payload)
}

func appendDHT(buf []byte, class, id byte, counts [16]byte, values []byte) []byte {
	payload := make([]byte, 0, 17+len(values))
	payload = append(payload, class<<4|id)
	payload = append(payload, counts[:]...)
	payload = append(payload, values...)
	return writeSegment(buf, markerDHT, payload)
}

// appendSOF0 emits a 4-component baseline frame header: components 1..4
// are C, M, Y, K, all 1x1 sampling, quantization table selectors
// {0,1,1,0}.
func appendSOF0(buf []byte, width, height uint32) []byte {
	quantSel := [4]byte{0, 1, 1, 0}
	payload := make([]byte, 0, 6+4*3)
	payload = append(payload, 8) // sample precision
	payload = append(payload, byte(height>>8), byte(height))
	payload = append(payload, byte(width>>8), byte(width))
	payload = append(payload, 4) // number of components
	for i := 0; i < 4; i++ {
		payload = append(payload, byte(i+1), 0x11, quantSel[i])
	}
	return writeSegment(buf, markerSOF0, payload)
}

// appendSOS emits the scan header over all four components. DC/AC table
// selectors mirror the SOF0 quantization grouping: components 1 and 4
// (C, K) use the luminance tables (id 0), components 2 and 3 (M, Y) use
// the chrominance tables (id 1), the same {0,1,1,0} split applied
// consistently from quantization to entropy coding.
func appendSOS(buf []byte) []byte {
	huffSel := [4]byte{0, 1, 1, 0}
	payload := make([]byte, 0, 4+4*2+3)
	payload = append(payload, 4)
	for i := 0; i < 4; i++ {
		sel := huffSel[i]
		payload = append(payload, byte(i+1), sel<<4|sel)
	}
	payload = append(payload, 0, 63, 0) // spectral selection, successive approximation
	return writeSegment(buf, markerSOS, payload)
}
