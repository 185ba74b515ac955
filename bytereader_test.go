// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package tdb

import "testing"

func TestReaderBoundsChecked(t *testing.T) {
	r := NewBytesReader([]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08})

	if got, err := r.Uint8(0); err != nil || got != 0x01 {
		t.Fatalf("Uint8(0) = %v, %v; want 0x01, nil", got, err)
	}
	if got, err := r.Uint16(0); err != nil || got != 0x0201 {
		t.Fatalf("Uint16(0) = %#x, %v; want 0x0201, nil", got, err)
	}
	if got, err := r.Uint32(0); err != nil || got != 0x04030201 {
		t.Fatalf("Uint32(0) = %#x, %v; want 0x04030201, nil", got, err)
	}
	if got, err := r.Uint64(0); err != nil || got != 0x0807060504030201 {
		t.Fatalf("Uint64(0) = %#x, %v; want 0x0807060504030201, nil", got, err)
	}

	if _, err := r.Uint32(6); err != ErrOutsideBoundary {
		t.Fatalf("Uint32(6) err = %v; want ErrOutsideBoundary", err)
	}
	if _, err := r.SliceAt(4, 0xFFFFFFFF); err != ErrOutsideBoundary {
		t.Fatalf("overflowing SliceAt err = %v; want ErrOutsideBoundary", err)
	}
}

func TestBytesAtReturnsOwnedCopy(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	r := NewBytesReader(data)

	owned, err := r.BytesAt(0, 4)
	if err != nil {
		t.Fatalf("BytesAt: %v", err)
	}
	owned[0] = 0xFF
	if data[0] == 0xFF {
		t.Fatalf("BytesAt aliased the source buffer")
	}
}
