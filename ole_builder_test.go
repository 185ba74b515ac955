// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package tdb

import (
	"encoding/binary"
	"sort"
	"unicode/utf16"
)

// oleStreamSpec describes one named stream to embed in a synthetic OLE
// Compound File built by buildOLEFile.
type oleStreamSpec struct {
	name string
	data []byte
}

// buildOLEFile assembles a minimal, self-consistent OLE Compound File
// (sector size 512, mini-sector size 64, mini-stream cutoff 4096)
// containing the given named streams at the root, directly as a flat
// sibling set (no sub-storages) — enough to exercise every reader path
// against a handful of concrete fixture scenarios without needing a real
// Thumbs.db fixture on disk.
func buildOLEFile(streams []oleStreamSpec) []byte {
	const ss = 512
	const mss = 64
	const miniCutoff = 4096

	var sectors [][]byte
	var fat []uint32

	addSector := func(content []byte) uint32 {
		buf := make([]byte, ss)
		copy(buf, content)
		sectors = append(sectors, buf)
		fat = append(fat, SectorEndOfChain)
		return uint32(len(sectors) - 1)
	}

	allocChain := func(data []byte) uint32 {
		if len(data) == 0 {
			return SectorEndOfChain
		}
		n := (len(data) + ss - 1) / ss
		var first, prev uint32
		for i := 0; i < n; i++ {
			start := i * ss
			end := start + ss
			if end > len(data) {
				end = len(data)
			}
			idx := addSector(data[start:end])
			if i == 0 {
				first = idx
			} else {
				fat[prev] = idx
			}
			prev = idx
		}
		return first
	}

	type placedStream struct {
		spec        oleStreamSpec
		startSector uint32
	}

	var miniBuf []byte
	var miniFAT []uint32
	placed := make([]placedStream, 0, len(streams))

	for _, s := range streams {
		if len(s.data) >= miniCutoff {
			start := allocChain(s.data)
			placed = append(placed, placedStream{s, start})
			continue
		}
		if len(s.data) == 0 {
			placed = append(placed, placedStream{s, SectorEndOfChain})
			continue
		}
		startMini := uint32(len(miniBuf) / mss)
		n := (len(s.data) + mss - 1) / mss
		padded := make([]byte, n*mss)
		copy(padded, s.data)
		miniBuf = append(miniBuf, padded...)
		for i := 0; i < n; i++ {
			if i == n-1 {
				miniFAT = append(miniFAT, SectorEndOfChain)
			} else {
				miniFAT = append(miniFAT, startMini+uint32(i)+1)
			}
		}
		placed = append(placed, placedStream{s, startMini})
	}

	// Directory entries: index 0 is Root, indices 1..n are the streams in
	// `placed` order, linked into a balanced BST ordered by compareOLENames.
	entries := make([]DirEntry, len(placed)+1)
	for i := range entries {
		entries[i] = DirEntry{Left: noChild, Right: noChild, Child: noChild}
	}
	entries[0].Name = "Root Entry"
	entries[0].Type = DirRoot

	order := make([]int, len(placed))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		return compareOLENames(placed[order[i]].spec.name, placed[order[j]].spec.name) < 0
	})

	var build func(idxs []int) int32
	build = func(idxs []int) int32 {
		if len(idxs) == 0 {
			return noChild
		}
		mid := len(idxs) / 2
		entIdx := int32(idxs[mid] + 1)
		entries[entIdx].Left = build(idxs[:mid])
		entries[entIdx].Right = build(idxs[mid+1:])
		return entIdx
	}
	entries[0].Child = build(order)

	for i, p := range placed {
		e := &entries[i+1]
		e.Name = p.spec.name
		e.Type = DirStream
		e.StartSector = p.startSector
		e.StreamSize = uint64(len(p.spec.data))
	}

	dirBytes := make([]byte, 0, len(entries)*oleDirEntrySize)
	for _, e := range entries {
		dirBytes = append(dirBytes, encodeDirEntry(e)...)
	}
	firstDirSector := allocChain(dirBytes)

	var firstMiniFATSector uint32 = SectorEndOfChain
	var numMiniFATSectors uint32
	if len(miniFAT) > 0 {
		miniFATBytes := make([]byte, len(miniFAT)*4)
		for i, v := range miniFAT {
			binary.LittleEndian.PutUint32(miniFATBytes[i*4:], v)
		}
		firstMiniFATSector = allocChain(miniFATBytes)
		numMiniFATSectors = uint32((len(miniFATBytes) + ss - 1) / ss)
	}

	rootStartSector := allocChain(miniBuf)
	entries[0].StartSector = rootStartSector
	entries[0].StreamSize = uint64(len(miniBuf))
	// Root entry moved after allocation decisions above: re-encode its
	// directory bytes in place within dirBytes... instead, rebuild dirBytes
	// now that Root's fields are final.
	dirBytes = dirBytes[:0]
	for _, e := range entries {
		dirBytes = append(dirBytes, encodeDirEntry(e)...)
	}
	// Directory sectors were already allocated above with the stale Root
	// fields; overwrite those sectors' backing bytes directly since
	// allocChain already fixed their position.
	overwriteChain(sectors, fat, firstDirSector, dirBytes, ss)

	fatSectorIdx := addSector(nil)
	fat[fatSectorIdx] = SectorFAT

	fatBytes := make([]byte, len(fat)*4)
	for i, v := range fat {
		binary.LittleEndian.PutUint32(fatBytes[i*4:], v)
	}
	if rem := len(fatBytes) % ss; rem != 0 {
		pad := make([]byte, ss-rem)
		for i := range pad {
			pad[i] = 0xFF
		}
		fatBytes = append(fatBytes, pad...)
	}
	copy(sectors[fatSectorIdx], fatBytes[:ss])

	header := make([]byte, 512)
	copy(header[0:8], oleSignature)
	binary.LittleEndian.PutUint16(header[24:], 0)
	binary.LittleEndian.PutUint16(header[26:], 3)
	binary.LittleEndian.PutUint16(header[28:], 0xFFFE)
	binary.LittleEndian.PutUint16(header[30:], 9)
	binary.LittleEndian.PutUint16(header[32:], 6)
	binary.LittleEndian.PutUint32(header[44:], 1)
	binary.LittleEndian.PutUint32(header[48:], firstDirSector)
	binary.LittleEndian.PutUint32(header[56:], miniCutoff)
	binary.LittleEndian.PutUint32(header[60:], firstMiniFATSector)
	binary.LittleEndian.PutUint32(header[64:], numMiniFATSectors)
	binary.LittleEndian.PutUint32(header[68:], SectorEndOfChain)
	for i := 0; i < numHeaderDIFAT; i++ {
		off := 76 + 4*i
		if i == 0 {
			binary.LittleEndian.PutUint32(header[off:], fatSectorIdx)
		} else {
			binary.LittleEndian.PutUint32(header[off:], SectorFree)
		}
	}

	out := make([]byte, 0, len(header)+len(sectors)*ss)
	out = append(out, header...)
	for _, s := range sectors {
		out = append(out, s...)
	}
	return out
}

func overwriteChain(sectors [][]byte, fat []uint32, start uint32, data []byte, ss int) {
	cur := start
	off := 0
	for cur != SectorEndOfChain && off < len(data) {
		end := off + ss
		if end > len(data) {
			end = len(data)
		}
		copy(sectors[cur], data[off:end])
		off = end
		cur = fat[cur]
	}
}

func encodeDirEntry(e DirEntry) []byte {
	buf := make([]byte, oleDirEntrySize)

	units := utf16.Encode([]rune(e.Name))
	nameLen := uint16(0)
	if len(units) > 0 {
		for i, u := range units {
			binary.LittleEndian.PutUint16(buf[i*2:], u)
		}
		nameLen = uint16((len(units) + 1) * 2)
	}
	binary.LittleEndian.PutUint16(buf[64:], nameLen)

	buf[66] = byte(e.Type)
	buf[67] = e.Color
	binary.LittleEndian.PutUint32(buf[68:], uint32(e.Left))
	binary.LittleEndian.PutUint32(buf[72:], uint32(e.Right))
	binary.LittleEndian.PutUint32(buf[76:], uint32(e.Child))
	binary.LittleEndian.PutUint32(buf[96:], e.StateBits)
	binary.LittleEndian.PutUint32(buf[100:], uint32(e.CreationTime))
	binary.LittleEndian.PutUint32(buf[104:], uint32(e.CreationTime>>32))
	binary.LittleEndian.PutUint32(buf[108:], uint32(e.ModifiedTime))
	binary.LittleEndian.PutUint32(buf[112:], uint32(e.ModifiedTime>>32))
	binary.LittleEndian.PutUint32(buf[116:], e.StartSector)
	binary.LittleEndian.PutUint32(buf[120:], uint32(e.StreamSize))
	binary.LittleEndian.PutUint32(buf[124:], uint32(e.StreamSize>>32))

	return buf
}
