// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package tdb

import (
	"encoding/binary"
	"testing"
	"time"
	"unicode/utf16"
)

func buildCatalogRecord(streamID uint32, mtime uint64, name string) []byte {
	units := utf16.Encode([]rune(name))
	nameBytes := make([]byte, (len(units)+1)*2) // + NUL terminator
	for i, u := range units {
		binary.LittleEndian.PutUint16(nameBytes[i*2:], u)
	}
	// nameBytes[len(units)*2:] already zero (the NUL terminator).

	length := 14 + len(nameBytes) + 4
	rec := make([]byte, length)
	binary.LittleEndian.PutUint16(rec[0:], uint16(length))
	binary.LittleEndian.PutUint32(rec[2:], streamID)
	binary.LittleEndian.PutUint32(rec[6:], uint32(mtime))
	binary.LittleEndian.PutUint32(rec[10:], uint32(mtime>>32))
	copy(rec[14:], nameBytes)
	// last 4 bytes stay zero padding.
	return rec
}

func buildCatalogStream(records [][]byte) []byte {
	hdr := make([]byte, 16)
	binary.LittleEndian.PutUint16(hdr[0:], uint16(len(records)))
	binary.LittleEndian.PutUint16(hdr[2:], 5)
	binary.LittleEndian.PutUint32(hdr[4:], uint32(len(records)))
	binary.LittleEndian.PutUint32(hdr[8:], 96)
	binary.LittleEndian.PutUint32(hdr[12:], 96)

	out := hdr
	for _, r := range records {
		out = append(out, r...)
	}
	return out
}

func TestParseCatalogDecodesRecords(t *testing.T) {
	mtime := UTCToFileTime(time.Date(2019, time.June, 1, 12, 0, 0, 0, time.UTC))
	stream := buildCatalogStream([][]byte{
		buildCatalogRecord(7, mtime, "photo.jpg"),
		buildCatalogRecord(8, mtime, "second.png"),
	})

	hdr, records, err := ParseCatalog(stream)
	if err != nil {
		t.Fatalf("ParseCatalog: %v", err)
	}
	if hdr.EntryCount != 2 {
		t.Fatalf("EntryCount = %d, want 2", hdr.EntryCount)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}

	if records[0].StreamID != 7 || records[0].Name != "photo.jpg" {
		t.Errorf("record 0 = %+v, want StreamID=7 Name=photo.jpg", records[0])
	}
	if !records[0].MTime.Equal(time.Date(2019, time.June, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("record 0 MTime = %v, want 2019-06-01T12:00:00Z", records[0].MTime)
	}
	if records[1].StreamID != 8 || records[1].Name != "second.png" {
		t.Errorf("record 1 = %+v, want StreamID=8 Name=second.png", records[1])
	}
}

func TestParseCatalogStopsAtZeroLengthRecord(t *testing.T) {
	mtime := UTCToFileTime(time.Now().UTC())
	good := buildCatalogRecord(1, mtime, "a.jpg")

	hdr := make([]byte, 16)
	binary.LittleEndian.PutUint16(hdr[0:], 2)
	binary.LittleEndian.PutUint32(hdr[4:], 2) // claims 2 entries, only 1 present
	stream := append(hdr, good...)
	stream = append(stream, 0x00, 0x00) // zero-length terminator

	_, records, err := ParseCatalog(stream)
	if err != nil {
		t.Fatalf("ParseCatalog: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
}
