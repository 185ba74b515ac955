// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package tdb

import "fmt"

const immmFileHeaderSize = 20

// Per-version record strides observed for Thumbcache_idx.db. Undocumented
// by Microsoft; newer Windows releases may need their own stride added
// here once observed.
const (
	indexStrideW7  = 32
	indexStrideW10 = 72
)

// IMMMFile is a parsed Thumbcache_idx.db index file (C7).
type IMMMFile struct {
	FormatVersion   uint32
	CacheTypeFlags  uint32
	AvailableEntries uint32
	TotalEntries    uint32
	UsedEntries     uint32

	recordStride uint32
	body         []byte
	r            *Reader
}

// IndexRecord is one decoded IMMM record. Nothing downstream consumes
// the index for lookups yet; it is parsed and exposed for reporting
// only.
type IndexRecord struct {
	Flags        uint32
	CacheID      uint64
	BucketOffsets []uint32
}

// OpenIndex memory-maps name and parses it as a Thumbcache_idx.db file.
func OpenIndex(name string) (*IMMMFile, error) {
	r, err := NewReader(name)
	if err != nil {
		return nil, err
	}
	f, err := newIMMMFile(r)
	if err != nil {
		r.Close()
		return nil, err
	}
	return f, nil
}

// OpenIndexBytes parses data in-memory as a Thumbcache_idx.db file.
func OpenIndexBytes(data []byte) (*IMMMFile, error) {
	return newIMMMFile(NewBytesReader(data))
}

func newIMMMFile(r *Reader) (*IMMMFile, error) {
	hdr, err := r.SliceAt(0, immmFileHeaderSize)
	if err != nil {
		return nil, err
	}
	if string(hdr[0:4]) != "IMMM" {
		return nil, ErrBadSignature
	}

	f := &IMMMFile{
		FormatVersion:    leU32(hdr, 4),
		CacheTypeFlags:   leU32(hdr, 8),
		AvailableEntries: leU32(hdr, 12),
		TotalEntries:     leU32(hdr, 16),
		r:                r,
	}
	// UsedEntries lives just past the fixed header in every observed
	// layout.
	if used, err := r.Uint32(immmFileHeaderSize); err == nil {
		f.UsedEntries = used
	}

	if f.FormatVersion >= win8MinFormatVersion {
		f.recordStride = indexStrideW10
	} else {
		f.recordStride = indexStrideW7
	}

	body, err := r.SliceAt(immmFileHeaderSize+4, r.Size()-(immmFileHeaderSize+4))
	if err != nil {
		return nil, fmt.Errorf("immm body: %w", err)
	}
	f.body = body

	return f, nil
}

// Close releases the underlying file handle and mapping.
func (f *IMMMFile) Close() error {
	return f.r.Close()
}

// Records decodes every fixed-stride record in the index body. A record
// is `{flags(u32), hash(u64), per-bucket offsets...}`; the remaining
// bucket-offset words fill out the rest of the version's stride.
func (f *IMMMFile) Records() []IndexRecord {
	var out []IndexRecord
	stride := f.recordStride
	for off := uint32(0); off+stride <= uint32(len(f.body)); off += stride {
		rec := f.body[off : off+stride]
		r := IndexRecord{
			Flags:   leU32(rec, 0),
			CacheID: leU64(rec, 4),
		}
		for bo := uint32(12); bo+4 <= stride; bo += 4 {
			r.BucketOffsets = append(r.BucketOffsets, leU32(rec, bo))
		}
		out = append(out, r)
	}
	return out
}
