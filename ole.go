// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package tdb

import "fmt"

// OLEFile is a parsed OLE Compound File container (C2). It owns the FAT,
// miniFAT and directory arrays exclusively; callers only ever see
// read-only stream bytes.
type OLEFile struct {
	Header     *OLEHeader
	Entries    []DirEntry
	Anomalies  []string

	r        *Reader
	fat      []uint32
	miniFAT  []uint32
	ministream []byte
}

// OpenOLE memory-maps name and parses it as an OLE Compound File.
func OpenOLE(name string) (*OLEFile, error) {
	r, err := NewReader(name)
	if err != nil {
		return nil, err
	}
	f, err := newOLEFile(r)
	if err != nil {
		r.Close()
		return nil, err
	}
	return f, nil
}

// OpenOLEBytes parses data in-memory as an OLE Compound File.
func OpenOLEBytes(data []byte) (*OLEFile, error) {
	return newOLEFile(NewBytesReader(data))
}

func newOLEFile(r *Reader) (*OLEFile, error) {
	h, err := parseOLEHeader(r)
	if err != nil {
		return nil, err
	}

	fat, err := buildFAT(r, h)
	if err != nil {
		return nil, err
	}

	dirChain, err := walkChain(fat, h.FirstDirSector)
	if err != nil {
		return nil, fmt.Errorf("directory: %w", err)
	}
	dirStream, err := readChainedBytes(r, dirChain, h.SectorSize, h.SectorSize,
		uint64(len(dirChain))*uint64(h.SectorSize))
	if err != nil {
		return nil, fmt.Errorf("directory: %w", err)
	}

	entries, err := parseDirectory(dirStream)
	if err != nil {
		return nil, err
	}

	f := &OLEFile{Header: h, Entries: entries, r: r, fat: fat}

	root := entries[0]
	if root.StreamSize > 0 {
		msChain, err := walkChain(fat, root.StartSector)
		if err != nil {
			return nil, fmt.Errorf("ministream: %w", err)
		}
		ms, err := readChainedBytes(r, msChain, h.SectorSize, h.SectorSize, root.StreamSize)
		if err != nil {
			return nil, fmt.Errorf("ministream: %w", err)
		}
		f.ministream = ms
	}

	if h.NumMiniFATSectors > 0 {
		mf, err := buildMiniFAT(r, h, fat)
		if err != nil {
			return nil, err
		}
		f.miniFAT = mf
	}

	return f, nil
}

// Close releases the underlying file handle and mapping.
func (f *OLEFile) Close() error {
	return f.r.Close()
}

// Streams returns the directory entries whose Type is DirStream.
func (f *OLEFile) Streams() []DirEntry {
	var out []DirEntry
	for _, e := range f.Entries {
		if e.Type == DirStream {
			out = append(out, e)
		}
	}
	return out
}

// Stream resolves name by descending the red-black tree rooted at the
// Root entry's Child and returns its assembled byte content.
func (f *OLEFile) Stream(name string) ([]byte, error) {
	idx := findStream(f.Entries, f.Entries[0].Child, name)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrStreamNotFound, name)
	}
	return f.streamAt(idx)
}

func (f *OLEFile) streamAt(idx int32) ([]byte, error) {
	e := f.Entries[idx]
	if e.StreamSize >= uint64(f.Header.MiniStreamCutoff) {
		chain, err := walkChain(f.fat, e.StartSector)
		if err != nil {
			return nil, fmt.Errorf("stream %q: %w", e.Name, err)
		}
		return readChainedBytes(f.r, chain, f.Header.SectorSize, f.Header.SectorSize, e.StreamSize)
	}
	return f.readMiniStream(e)
}

// readMiniStream walks the miniFAT from e.StartSector, pulling
// MiniSectorSize chunks out of the already-assembled ministream bytes.
func (f *OLEFile) readMiniStream(e DirEntry) ([]byte, error) {
	chain, err := walkChain(f.miniFAT, e.StartSector)
	if err != nil {
		return nil, fmt.Errorf("ministream chain for %q: %w", e.Name, err)
	}

	mss := f.Header.MiniSectorSize
	out := make([]byte, 0, e.StreamSize)
	for _, secNum := range chain {
		if uint64(len(out)) >= e.StreamSize {
			break
		}
		start := secNum * mss
		end := start + mss
		if int(end) > len(f.ministream) {
			return nil, fmt.Errorf("%w: mini-sector %d beyond ministream", ErrCorruptChain, secNum)
		}
		remaining := e.StreamSize - uint64(len(out))
		chunk := f.ministream[start:end]
		if uint64(len(chunk)) > remaining {
			chunk = chunk[:remaining]
		}
		out = append(out, chunk...)
	}
	if uint64(len(out)) < e.StreamSize {
		return nil, fmt.Errorf("%w: mini-stream shorter than declared size", ErrCorruptChain)
	}
	return out, nil
}
