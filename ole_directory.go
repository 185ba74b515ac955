// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package tdb

import (
	"fmt"
	"unicode/utf16"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

// DirEntryType is one of the five object types [MS-CFB] 2.6.1 defines for
// a directory entry; an unrecognized byte value decodes to a dedicated
// Unknown case rather than being silently coerced into one of the five.
type DirEntryType byte

// Directory entry types.
const (
	DirEmpty DirEntryType = iota
	DirStorage
	DirStream
	DirLockBytes
	DirProperty
	DirRoot
)

func (t DirEntryType) String() string {
	switch t {
	case DirEmpty:
		return "Empty"
	case DirStorage:
		return "Storage"
	case DirStream:
		return "Stream"
	case DirLockBytes:
		return "LockBytes"
	case DirProperty:
		return "Property"
	case DirRoot:
		return "Root"
	default:
		return fmt.Sprintf("Unknown(%d)", byte(t))
	}
}

const noChild = int32(-1)

// DirEntry is a 128-byte OLE directory entry, decoded field-by-field.
// Left/Right/Child are stored as plain indices into the directory slice,
// never as owning references, so the red-black sibling tree cannot form
// a reference cycle.
type DirEntry struct {
	Name         string
	Type         DirEntryType
	Color        byte
	Left         int32
	Right        int32
	Child        int32
	CLSID        [16]byte
	StateBits    uint32
	CreationTime uint64
	ModifiedTime uint64
	StartSector  uint32
	StreamSize   uint64
}

// newUTF16LEDecoder returns a fresh decoder for a single UTF-16LE byte
// run. golang.org/x/text decoders carry transform state across calls, so
// each name/record gets its own instance rather than a shared package
// variable.
func newUTF16LEDecoder() *encoding.Decoder {
	return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
}

func decodeOLEName(raw []byte, nameLenBytes uint16) (string, error) {
	if nameLenBytes == 0 {
		return "", nil
	}
	if nameLenBytes < 2 || nameLenBytes > 64 || nameLenBytes%2 != 0 {
		return "", fmt.Errorf("%w: name length %d", ErrBadDirectory, nameLenBytes)
	}
	// nameLenBytes includes the terminating NUL.
	payload := raw[:nameLenBytes-2]
	out, err := newUTF16LEDecoder().Bytes(payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadDirectory, err)
	}
	return string(out), nil
}

// parseDirectory decodes all directory entries out of the directory
// stream bytes (the concatenation of every sector in the directory
// chain).
func parseDirectory(dirStream []byte) ([]DirEntry, error) {
	n := len(dirStream) / oleDirEntrySize
	entries := make([]DirEntry, n)

	for i := 0; i < n; i++ {
		e := dirStream[i*oleDirEntrySize : (i+1)*oleDirEntrySize]

		nameLen := leU16(e, 64)
		name, err := decodeOLEName(e[0:64], nameLen)
		if err != nil {
			return nil, err
		}

		// A type byte above DirRoot is kept as-is and prints as
		// Unknown(n); Streams() never returns such an entry.
		objType := e[66]

		entries[i] = DirEntry{
			Name:         name,
			Type:         DirEntryType(objType),
			Color:        e[67],
			Left:         int32(leU32(e, 68)),
			Right:        int32(leU32(e, 72)),
			Child:        int32(leU32(e, 76)),
			StateBits:    leU32(e, 96),
			CreationTime: uint64(leU32(e, 100)) | uint64(leU32(e, 104))<<32,
			ModifiedTime: uint64(leU32(e, 108)) | uint64(leU32(e, 112))<<32,
			StartSector:  leU32(e, 116),
			StreamSize:   uint64(leU32(e, 120)) | uint64(leU32(e, 124))<<32,
		}
		copy(entries[i].CLSID[:], e[80:96])
	}

	if n == 0 || entries[0].Type != DirRoot {
		return nil, fmt.Errorf("%w: entry 0 is not Root", ErrBadDirectory)
	}
	for i := 1; i < n; i++ {
		if entries[i].Type == DirRoot {
			return nil, fmt.Errorf("%w: duplicate Root entry at %d", ErrBadDirectory, i)
		}
	}

	return entries, nil
}

// compareOLENames orders two names the way [MS-CFB] 2.6.4 orders
// directory entry names: first by UTF-16 code-unit length, then
// lexicographically by code unit. Go's UTF-16-encode-then-compare gives
// the same ordering as comparing the original UTF-16LE name bytes.
func compareOLENames(a, b string) int {
	au, bu := utf16.Encode([]rune(a)), utf16.Encode([]rune(b))
	if len(au) != len(bu) {
		if len(au) < len(bu) {
			return -1
		}
		return 1
	}
	for i := range au {
		if au[i] != bu[i] {
			if au[i] < bu[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// findStream descends the red-black tree rooted at root's Child looking
// for name, returning the matching entry's index or -1.
func findStream(entries []DirEntry, root int32, name string) int32 {
	cur := root
	for cur != noChild && cur >= 0 && int(cur) < len(entries) {
		c := compareOLENames(name, entries[cur].Name)
		switch {
		case c == 0:
			return cur
		case c < 0:
			cur = entries[cur].Left
		default:
			cur = entries[cur].Right
		}
	}
	return -1
}
