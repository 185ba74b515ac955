// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package tdb

import (
	"encoding/binary"
	"os"

	mmap "github.com/edsrzf/mmap-go"
)

// Reader is a bounds-checked, random-access view over an input file. It
// never slurps the whole file into a growable buffer: backing storage is
// either a memory-mapped region (NewReader) or a caller-owned byte slice
// (NewBytesReader, used by tests and by small in-memory inputs).
type Reader struct {
	data mmap.MMap
	buf  []byte
	f    *os.File
	size uint32
}

// NewReader memory-maps name read-only and returns a Reader over it. The
// caller must call Close when done; the file handle and mapping are held
// for the lifetime of a single input parse.
func NewReader(name string) (*Reader, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}

	return &Reader{data: data, f: f, size: uint32(len(data))}, nil
}

// NewBytesReader wraps an in-memory buffer. There is no file handle to
// release; Close is a no-op.
func NewBytesReader(data []byte) *Reader {
	return &Reader{buf: data, size: uint32(len(data))}
}

// Close releases the memory mapping and file handle, if any.
func (r *Reader) Close() error {
	if r.data != nil {
		_ = r.data.Unmap()
	}
	if r.f != nil {
		return r.f.Close()
	}
	return nil
}

// Size returns the total number of addressable bytes.
func (r *Reader) Size() uint32 {
	return r.size
}

func (r *Reader) bytes() []byte {
	if r.data != nil {
		return r.data
	}
	return r.buf
}

// SliceAt returns a read-only view of size bytes starting at offset.
// The returned slice aliases the underlying storage; callers that need
// to retain it past the Reader's lifetime must copy it.
func (r *Reader) SliceAt(offset, size uint32) ([]byte, error) {
	end := offset + size
	// Integer overflow or out-of-range.
	if (end < offset) || offset > r.size || end > r.size {
		return nil, ErrOutsideBoundary
	}
	return r.bytes()[offset:end], nil
}

// BytesAt is SliceAt but returns an owned copy, safe to retain.
func (r *Reader) BytesAt(offset, size uint32) ([]byte, error) {
	s, err := r.SliceAt(offset, size)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(s))
	copy(out, s)
	return out, nil
}

// Uint8 reads a single byte at offset.
func (r *Reader) Uint8(offset uint32) (uint8, error) {
	s, err := r.SliceAt(offset, 1)
	if err != nil {
		return 0, err
	}
	return s[0], nil
}

// Uint16 reads a little-endian uint16 at offset.
func (r *Reader) Uint16(offset uint32) (uint16, error) {
	s, err := r.SliceAt(offset, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(s), nil
}

// Uint32 reads a little-endian uint32 at offset.
func (r *Reader) Uint32(offset uint32) (uint32, error) {
	s, err := r.SliceAt(offset, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(s), nil
}

// Uint64 reads a little-endian uint64 at offset.
func (r *Reader) Uint64(offset uint32) (uint64, error) {
	s, err := r.SliceAt(offset, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(s), nil
}
