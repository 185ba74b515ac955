// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package tdb

import (
	"encoding/binary"
	"hash/crc64"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// buildCMMMEntryW8 encodes one Windows 8+ layout thumbcache entry
// (width/height fields, no extension) with a correct data checksum.
func buildCMMMEntryW8(cacheID uint64, width, height uint32, id, pad, data []byte) []byte {
	sizeFieldsOff := uint32(24) // head (sig+entrySize+cacheID+width+height) = 24 bytes
	dataOffset := sizeFieldsOff + 32 // size fields(12) + unknown(4) + data_checksum(8) + header_checksum(8)
	entrySize := dataOffset + uint32(len(id)+len(pad)+len(data))

	buf := make([]byte, entrySize)
	copy(buf[0:4], "CMMM")
	binary.LittleEndian.PutUint32(buf[4:], entrySize)
	binary.LittleEndian.PutUint64(buf[8:], cacheID)
	binary.LittleEndian.PutUint32(buf[16:], width)
	binary.LittleEndian.PutUint32(buf[20:], height)

	binary.LittleEndian.PutUint32(buf[sizeFieldsOff:], uint32(len(id)))
	binary.LittleEndian.PutUint32(buf[sizeFieldsOff+4:], uint32(len(pad)))
	binary.LittleEndian.PutUint32(buf[sizeFieldsOff+8:], uint32(len(data)))
	// unknown(u32) at sizeFieldsOff+12 stays zero.

	checksum := crc64.Update(0, crc64Table, id)
	checksum = crc64.Update(checksum, crc64Table, pad)
	checksum = crc64.Update(checksum, crc64Table, data)
	binary.LittleEndian.PutUint64(buf[sizeFieldsOff+16:], checksum)
	// header_checksum at sizeFieldsOff+24 is not verified by the reader.

	off := dataOffset
	copy(buf[off:], id)
	off += uint32(len(id))
	copy(buf[off:], pad)
	off += uint32(len(pad))
	copy(buf[off:], data)

	return buf
}

func buildCMMMFile(formatVersion uint32, entries [][]byte) []byte {
	var body []byte
	for _, e := range entries {
		body = append(body, e...)
	}

	hdr := make([]byte, cmmmFileHeaderSize)
	copy(hdr[0:4], "CMMM")
	binary.LittleEndian.PutUint32(hdr[4:], formatVersion)
	binary.LittleEndian.PutUint32(hdr[8:], 0) // cache type
	binary.LittleEndian.PutUint32(hdr[12:], cmmmFileHeaderSize)
	binary.LittleEndian.PutUint32(hdr[16:], cmmmFileHeaderSize+uint32(len(body)))
	binary.LittleEndian.PutUint32(hdr[20:], uint32(len(entries)))

	return append(hdr, body...)
}

func TestCMMMEntriesW8LayoutAndChecksum(t *testing.T) {
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0x00, 0xFF, 0xD9}
	entry := buildCMMMEntryW8(0xAABBCCDD, 48, 48, []byte("id1"), []byte{0, 0}, jpeg)
	data := buildCMMMFile(win8MinFormatVersion, [][]byte{entry})

	f, err := OpenThumbcacheBytes(data)
	if err != nil {
		t.Fatalf("OpenThumbcacheBytes: %v", err)
	}
	defer f.Close()

	entries, err := f.Entries(nil)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}

	want := ThumbcacheEntry{
		CacheID:    0xAABBCCDD,
		Width:      48,
		Height:     48,
		ImageMIME:  "image/jpeg",
		ImageBytes: jpeg,
	}
	if diff := cmp.Diff(want, entries[0]); diff != "" {
		t.Errorf("decoded entry mismatch (-want +got):\n%s", diff)
	}
}

func TestCMMMEntriesDetectsChecksumMismatch(t *testing.T) {
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0x00, 0xFF, 0xD9}
	entry := buildCMMMEntryW8(1, 10, 10, nil, nil, jpeg)
	// Flip a byte in the payload after the checksum was computed over the
	// original bytes, so the recomputed checksum no longer matches.
	entry[len(entry)-1] ^= 0xFF

	data := buildCMMMFile(win8MinFormatVersion, [][]byte{entry})
	f, err := OpenThumbcacheBytes(data)
	if err != nil {
		t.Fatalf("OpenThumbcacheBytes: %v", err)
	}
	defer f.Close()

	entries, err := f.Entries(nil)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	found := false
	for _, a := range entries[0].Anomalies {
		if a == "data checksum mismatch" {
			found = true
		}
	}
	if !found {
		t.Errorf("anomalies = %v, want a checksum mismatch anomaly", entries[0].Anomalies)
	}
}

func TestCMMMEntriesDormant(t *testing.T) {
	entry := buildCMMMEntryW8(42, 0, 0, nil, nil, nil)
	data := buildCMMMFile(win8MinFormatVersion, [][]byte{entry})

	f, err := OpenThumbcacheBytes(data)
	if err != nil {
		t.Fatalf("OpenThumbcacheBytes: %v", err)
	}
	defer f.Close()

	entries, err := f.Entries(nil)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 1 || !entries[0].Dormant {
		t.Fatalf("entries = %+v, want one dormant entry", entries)
	}
}

func TestOpenThumbcacheBytesBadSignature(t *testing.T) {
	if _, err := OpenThumbcacheBytes(make([]byte, 32)); err != ErrBadSignature {
		t.Errorf("err = %v, want ErrBadSignature", err)
	}
}
