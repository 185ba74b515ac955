// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package tdb

import (
	"hash/crc64"
)

var crc64Table = crc64.MakeTable(crc64.ISO)

const cmmmFileHeaderSize = 24

// Thumbcache format_version ranges observed in the wild; this threshold
// is not documented by Microsoft and was derived from sample captures
// across Windows releases. Versions below win8MinFormatVersion carry the
// W7 entry layout (extension field, no width/height); at or above it
// they carry the W8+ layout.
const win8MinFormatVersion = 0x15

// CMMMFile is a parsed Thumbcache_*.db entry file (C6).
type CMMMFile struct {
	FormatVersion        uint32
	CacheType            uint32
	FirstEntryOffset     uint32
	FirstAvailableOffset uint32
	NumberOfEntries      uint32

	r *Reader
}

// ThumbcacheEntry is one decoded CMMM entry.
type ThumbcacheEntry struct {
	CacheID    uint64
	Extension  string // W7 only; empty on W8+
	Width      uint32 // W8+ only; zero on W7
	Height     uint32
	Dormant    bool
	ImageMIME  string
	ImageBytes []byte
	Anomalies  []string
}

// OpenThumbcache memory-maps name and parses its CMMM file header.
func OpenThumbcache(name string) (*CMMMFile, error) {
	r, err := NewReader(name)
	if err != nil {
		return nil, err
	}
	f, err := newCMMMFile(r)
	if err != nil {
		r.Close()
		return nil, err
	}
	return f, nil
}

// OpenThumbcacheBytes parses data in-memory as a CMMM file.
func OpenThumbcacheBytes(data []byte) (*CMMMFile, error) {
	return newCMMMFile(NewBytesReader(data))
}

func newCMMMFile(r *Reader) (*CMMMFile, error) {
	hdr, err := r.SliceAt(0, cmmmFileHeaderSize)
	if err != nil {
		return nil, err
	}
	if string(hdr[0:4]) != "CMMM" {
		return nil, ErrBadSignature
	}
	return &CMMMFile{
		FormatVersion:        leU32(hdr, 4),
		CacheType:            leU32(hdr, 8),
		FirstEntryOffset:     leU32(hdr, 12),
		FirstAvailableOffset: leU32(hdr, 16),
		NumberOfEntries:      leU32(hdr, 20),
		r:                    r,
	}, nil
}

// Close releases the underlying file handle and mapping.
func (f *CMMMFile) Close() error {
	return f.r.Close()
}

// Entries walks every entry starting at FirstEntryOffset in file order,
// stopping at FirstAvailableOffset or end of file, whichever comes
// first. cancelled is polled at each entry boundary. A truncated or
// undecodable trailing entry stops the walk cleanly rather than
// discarding the entries already collected, the same treatment given to
// a missing "CMMM" signature.
func (f *CMMMFile) Entries(cancelled *bool) ([]ThumbcacheEntry, error) {
	var out []ThumbcacheEntry
	offset := f.FirstEntryOffset
	limit := f.r.Size()
	if f.FirstAvailableOffset > 0 && f.FirstAvailableOffset < limit {
		limit = f.FirstAvailableOffset
	}

	w8Layout := f.FormatVersion >= win8MinFormatVersion

	for offset+cmmmFileHeaderSize <= limit {
		if cancelled != nil && *cancelled {
			return out, ErrCancelled
		}

		entry, size, err := parseThumbcacheEntry(f.r, offset, w8Layout)
		if err != nil {
			break
		}
		if size == 0 {
			break
		}
		out = append(out, entry)
		offset += size
	}

	return out, nil
}

// parseThumbcacheEntry decodes one entry starting at offset, returning
// the decoded entry and its total on-disk size (entry_size) so the
// caller can step to the next entry. The entry layout is
// version-dependent:
//
//	W7:  signature, entry_size, hash, extension[4 utf16 units],
//	     id_size, pad_size, data_size, unknown, data_checksum,
//	     header_checksum
//	W8+: signature, entry_size, hash, width, height,
//	     id_size, pad_size, data_size, unknown, data_checksum,
//	     header_checksum
func parseThumbcacheEntry(r *Reader, offset uint32, w8Layout bool) (ThumbcacheEntry, uint32, error) {
	head, err := r.SliceAt(offset, cmmmFileHeaderSize)
	if err != nil {
		return ThumbcacheEntry{}, 0, err
	}
	if string(head[0:4]) != "CMMM" {
		// Stepping past the declared entry_size should always land on
		// the next "CMMM" signature or EOF; neither held, treat as end
		// of the usable entry chain rather than a hard failure so prior
		// entries already collected are kept.
		return ThumbcacheEntry{}, 0, nil
	}

	entrySize := leU32(head, 4)
	entry := ThumbcacheEntry{CacheID: leU64(head, 8)}

	var sizeFieldsOff uint32
	if w8Layout {
		width, err := r.Uint32(offset + 16)
		if err != nil {
			return ThumbcacheEntry{}, 0, err
		}
		height, err := r.Uint32(offset + 20)
		if err != nil {
			return ThumbcacheEntry{}, 0, err
		}
		entry.Width, entry.Height = width, height
		sizeFieldsOff = offset + 24
	} else {
		ext, err := r.SliceAt(offset+16, 8)
		if err != nil {
			return ThumbcacheEntry{}, 0, err
		}
		if name, decErr := newUTF16LEDecoder().Bytes(ext); decErr == nil {
			entry.Extension = trimNUL(string(name))
		}
		sizeFieldsOff = offset + 24
	}

	sizeFields, err := r.SliceAt(sizeFieldsOff, 12)
	if err != nil {
		return ThumbcacheEntry{}, 0, err
	}
	idSize := leU32(sizeFields, 0)
	padSize := leU32(sizeFields, 4)
	dataSize := leU32(sizeFields, 8)

	// unknown(u32) + data_checksum(u64) + header_checksum(u64) follow.
	dataChecksum, checksumOK := uint64(0), false
	if v, err := r.Uint64(sizeFieldsOff + 16); err == nil {
		dataChecksum, checksumOK = v, true
	}
	dataOffset := sizeFieldsOff + 32

	if dataSize == 0 {
		entry.Dormant = true
		return entry, entrySize, nil
	}

	idBytes, err := r.SliceAt(dataOffset, idSize)
	if err != nil {
		return ThumbcacheEntry{}, 0, err
	}
	padBytes, err := r.SliceAt(dataOffset+idSize, padSize)
	if err != nil {
		return ThumbcacheEntry{}, 0, err
	}
	dataBytes, err := r.BytesAt(dataOffset+idSize+padSize, dataSize)
	if err != nil {
		return ThumbcacheEntry{}, 0, err
	}

	entry.ImageMIME = mimeFromMagic(dataBytes)
	if entry.ImageMIME == "" {
		entry.Anomalies = append(entry.Anomalies, "unrecognized payload signature")
	}
	entry.ImageBytes = dataBytes

	if checksumOK {
		computed := crc64.Update(0, crc64Table, idBytes)
		computed = crc64.Update(computed, crc64Table, padBytes)
		computed = crc64.Update(computed, crc64Table, dataBytes)
		if computed != dataChecksum {
			entry.Anomalies = append(entry.Anomalies, "data checksum mismatch")
		}
	}

	return entry, entrySize, nil
}

func trimNUL(s string) string {
	for i, r := range s {
		if r == 0 {
			return s[:i]
		}
	}
	return s
}
