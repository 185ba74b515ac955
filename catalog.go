// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package tdb

import (
	"fmt"
	"strconv"
	"time"
)

const catalogStreamName = "Catalog"

// CatalogRecord binds a Thumbs.db stream id to its original file name
// and modification time. The per-stream image dimensions live in the
// stream payload header, not the Catalog record.
type CatalogRecord struct {
	StreamID uint32
	MTime    time.Time
	Name     string
}

// CatalogHeader is the fixed portion preceding the variable-length
// records.
type CatalogHeader struct {
	Count         uint16
	Version       uint16
	EntryCount    uint32
	LargestWidth  uint32
	LargestHeight uint32
}

// ParseCatalog decodes the Catalog stream into an ordered slice of
// records. Parsing stops at a zero-length record header or at stream
// end, whichever comes first; either is a normal terminator, not an
// error.
func ParseCatalog(stream []byte) (CatalogHeader, []CatalogRecord, error) {
	var hdr CatalogHeader
	if len(stream) < 16 {
		return hdr, nil, fmt.Errorf("tdb: catalog stream shorter than fixed header")
	}

	hdr = CatalogHeader{
		Count:         leU16(stream, 0),
		Version:       leU16(stream, 2),
		EntryCount:    leU32(stream, 4),
		LargestWidth:  leU32(stream, 8),
		LargestHeight: leU32(stream, 12),
	}

	var records []CatalogRecord
	off := uint32(16)
	for uint32(len(records)) < hdr.EntryCount {
		if off+2 > uint32(len(stream)) {
			break
		}
		length := leU16(stream, off)
		if length == 0 {
			break
		}
		if off+uint32(length) > uint32(len(stream)) {
			break
		}
		rec := stream[off : off+uint32(length)]
		if len(rec) < 2+4+8 {
			break
		}

		streamID := leU32(rec, 2)
		mtime := uint64(leU32(rec, 6)) | uint64(leU32(rec, 10))<<32

		// Name runs from offset 14 to the record end, minus the 4
		// trailing zero bytes, NUL-terminated UTF-16LE.
		nameBytes := rec[14:]
		if len(nameBytes) >= 4 {
			nameBytes = nameBytes[:len(nameBytes)-4]
		}
		name, err := decodeNULTerminatedUTF16(nameBytes)
		if err != nil {
			return hdr, records, fmt.Errorf("tdb: catalog record name: %w", err)
		}

		records = append(records, CatalogRecord{
			StreamID: streamID,
			MTime:    FileTimeToUTC(mtime),
			Name:     name,
		})

		off += uint32(length)
	}

	return hdr, records, nil
}

// decodeNULTerminatedUTF16 decodes a UTF-16LE byte run up to (but not
// including) its first NUL code unit.
func decodeNULTerminatedUTF16(b []byte) (string, error) {
	n := len(b) - len(b)%2
	units := make([]uint16, 0, n/2)
	for i := 0; i+1 < n; i += 2 {
		u := leU16(b, uint32(i))
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	out, err := newUTF16LEDecoder().Bytes(unitsToBytes(units))
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func unitsToBytes(units []uint16) []byte {
	out := make([]byte, len(units)*2)
	for i, u := range units {
		out[i*2] = byte(u)
		out[i*2+1] = byte(u >> 8)
	}
	return out
}

// streamNameForID reverses a decimal stream id to locate its payload
// stream: id 42's payload lives in the OLE stream literally named "24",
// the same reversed-digit convention Catalog records and stream names
// share.
func streamNameForID(id uint32) string {
	s := strconv.FormatUint(uint64(id), 10)
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}
