// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package tdb

import (
	"bytes"
	"fmt"
)

// Sector table sentinels, [MS-CFB] 2.1.
const (
	SectorFree        uint32 = 0xFFFFFFFF
	SectorEndOfChain  uint32 = 0xFFFFFFFE
	SectorFAT         uint32 = 0xFFFFFFFD
	SectorDIFAT       uint32 = 0xFFFFFFFC
	oleHeaderSize            = 512
	oleDirEntrySize          = 128
	numHeaderDIFAT           = 109
)

var (
	oleSignature         = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	oleSignatureInverted = []byte{0x0E, 0x11, 0xFC, 0x0D, 0xD0, 0xCF, 0x11, 0xE0}
)

// OLEHeader is the 512-byte header of an OLE Compound File.
type OLEHeader struct {
	Inverted              bool
	MinorVersion          uint16
	MajorVersion          uint16
	SectorShift           uint16
	MiniSectorShift       uint16
	NumDirSectors         uint32
	NumFATSectors         uint32
	FirstDirSector        uint32
	MiniStreamCutoff      uint32
	FirstMiniFATSector    uint32
	NumMiniFATSectors     uint32
	FirstDIFATSector      uint32
	NumDIFATSectors       uint32
	DIFAT                 [numHeaderDIFAT]uint32
	SectorSize            uint32
	MiniSectorSize        uint32
}

// parseOLEHeader reads and validates the fixed 512-byte header at offset 0.
// [MS-CFB] 2.2 allows the header signature to appear bit-inverted; that
// case is only ever seen in damaged or foreign-endian captures, so it is
// recorded on the header rather than acted on.
func parseOLEHeader(r *Reader) (*OLEHeader, error) {
	raw, err := r.SliceAt(0, oleHeaderSize)
	if err != nil {
		return nil, fmt.Errorf("tdb: short OLE header: %w", err)
	}

	h := &OLEHeader{}
	switch {
	case bytes.Equal(raw[0:8], oleSignature):
		h.Inverted = false
	case bytes.Equal(raw[0:8], oleSignatureInverted):
		h.Inverted = true
	default:
		return nil, ErrBadSignature
	}

	clsid := raw[8:24]
	for _, b := range clsid {
		if b != 0 {
			return nil, fmt.Errorf("%w: non-zero header CLSID", ErrBadHeader)
		}
	}

	h.MinorVersion = leU16(raw, 24)
	h.MajorVersion = leU16(raw, 26)
	// raw[28:30] is the byte-order mark; only FE FF (little-endian) is
	// ever produced by Windows and is not separately validated here.
	h.SectorShift = leU16(raw, 30)
	h.MiniSectorShift = leU16(raw, 32)

	if h.SectorShift != 9 && h.SectorShift != 12 {
		return nil, fmt.Errorf("%w: sector shift %d not in {9,12}", ErrBadHeader, h.SectorShift)
	}
	if h.MiniSectorShift != 6 {
		return nil, fmt.Errorf("%w: mini sector shift %d != 6", ErrBadHeader, h.MiniSectorShift)
	}
	h.SectorSize = 1 << h.SectorShift
	h.MiniSectorSize = 1 << h.MiniSectorShift

	h.NumDirSectors = leU32(raw, 40)
	h.NumFATSectors = leU32(raw, 44)
	h.FirstDirSector = leU32(raw, 48)
	// raw[52:56] transaction signature is not meaningful outside of
	// transacted mode and is ignored.
	h.MiniStreamCutoff = leU32(raw, 56)
	h.FirstMiniFATSector = leU32(raw, 60)
	h.NumMiniFATSectors = leU32(raw, 64)
	h.FirstDIFATSector = leU32(raw, 68)
	h.NumDIFATSectors = leU32(raw, 72)

	for i := 0; i < numHeaderDIFAT; i++ {
		h.DIFAT[i] = leU32(raw, uint32(76+4*i))
	}

	return h, nil
}

func leU16(b []byte, off uint32) uint16 { return uint16(b[off]) | uint16(b[off+1])<<8 }

func leU32(b []byte, off uint32) uint32 {
	return uint32(b[off]) | uint32(b[off+1])<<8 | uint32(b[off+2])<<16 | uint32(b[off+3])<<24
}

func leU64(b []byte, off uint32) uint64 {
	return uint64(leU32(b, off)) | uint64(leU32(b, off+4))<<32
}

// sectorOffset returns the file offset of sector secNum, given sector
// size ss. Sector numbering starts at 0 immediately after the header.
func sectorOffset(secNum, ss uint32) uint32 {
	return oleHeaderSize + secNum*ss
}
