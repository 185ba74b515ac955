// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package tdb

import "fmt"

// buildFAT assembles the FAT sector-index table by walking the DIFAT
// (inline header entries, then chained DIFAT sectors), then reading the
// sector contents each FAT sector index points to. Each FAT sector
// contributes SectorSize/4 chain entries.
func buildFAT(r *Reader, h *OLEHeader) ([]uint32, error) {
	ss := h.SectorSize

	var fatSectorNums []uint32
	for _, s := range h.DIFAT {
		if s == SectorFree {
			continue
		}
		fatSectorNums = append(fatSectorNums, s)
	}

	if h.NumDIFATSectors > 0 {
		cur := h.FirstDIFATSector
		seen := map[uint32]bool{}
		for i := uint32(0); i < h.NumDIFATSectors; i++ {
			if cur == SectorEndOfChain || cur == SectorFree {
				break
			}
			if seen[cur] {
				return nil, fmt.Errorf("%w: DIFAT sector cycle at %d", ErrCorruptChain, cur)
			}
			seen[cur] = true

			sector, err := r.SliceAt(sectorOffset(cur, ss), ss)
			if err != nil {
				return nil, fmt.Errorf("%w: DIFAT sector %d out of range", ErrCorruptChain, cur)
			}

			entriesPerSector := ss/4 - 1
			for j := uint32(0); j < entriesPerSector; j++ {
				v := leU32(sector, j*4)
				if v != SectorFree {
					fatSectorNums = append(fatSectorNums, v)
				}
			}
			cur = leU32(sector, entriesPerSector*4)
		}
	}

	fat := make([]uint32, 0, len(fatSectorNums)*int(ss/4))
	for _, secNum := range fatSectorNums {
		sector, err := r.SliceAt(sectorOffset(secNum, ss), ss)
		if err != nil {
			return nil, fmt.Errorf("%w: FAT sector %d out of range", ErrCorruptChain, secNum)
		}
		for off := uint32(0); off < ss; off += 4 {
			fat = append(fat, leU32(sector, off))
		}
	}

	return fat, nil
}

// walkChain follows the FAT (or miniFAT) starting at start until
// ENDOFCHAIN, returning the ordered sequence of sector indices. A
// revisited sector indicates a cyclic chain and is reported as
// corruption rather than looped forever.
func walkChain(fat []uint32, start uint32) ([]uint32, error) {
	if start == SectorEndOfChain || start == SectorFree {
		return nil, nil
	}

	var chain []uint32
	seen := make(map[uint32]bool)
	cur := start
	for {
		if cur == SectorEndOfChain {
			break
		}
		if cur == SectorFree || cur == SectorFAT || cur == SectorDIFAT {
			return nil, fmt.Errorf("%w: chain hit reserved sentinel 0x%08X", ErrCorruptChain, cur)
		}
		if seen[cur] {
			return nil, fmt.Errorf("%w: sector %d revisited", ErrCorruptChain, cur)
		}
		seen[cur] = true
		chain = append(chain, cur)

		if cur >= uint32(len(fat)) {
			return nil, fmt.Errorf("%w: sector %d beyond FAT length %d", ErrCorruptChain, cur, len(fat))
		}
		cur = fat[cur]
	}
	return chain, nil
}

// buildMiniFAT reads the miniFAT chain entries. The miniFAT itself lives
// in ordinary sectors reached by walking the main FAT from
// h.FirstMiniFATSector.
func buildMiniFAT(r *Reader, h *OLEHeader, fat []uint32) ([]uint32, error) {
	chain, err := walkChain(fat, h.FirstMiniFATSector)
	if err != nil {
		return nil, fmt.Errorf("miniFAT: %w", err)
	}

	ss := h.SectorSize
	miniFAT := make([]uint32, 0, len(chain)*int(ss/4))
	for _, secNum := range chain {
		sector, err := r.SliceAt(sectorOffset(secNum, ss), ss)
		if err != nil {
			return nil, fmt.Errorf("%w: miniFAT sector %d out of range", ErrCorruptChain, secNum)
		}
		for off := uint32(0); off < ss; off += 4 {
			miniFAT = append(miniFAT, leU32(sector, off))
		}
	}
	return miniFAT, nil
}

// readChainedBytes concatenates the sector payloads of chain, each of
// size secSize, truncating the final result to size bytes.
func readChainedBytes(r *Reader, chain []uint32, secSize, ss uint32, size uint64) ([]byte, error) {
	out := make([]byte, 0, size)
	for _, secNum := range chain {
		if uint64(len(out)) >= size {
			break
		}
		sector, err := r.SliceAt(sectorOffset(secNum, ss), secSize)
		if err != nil {
			return nil, fmt.Errorf("%w: sector %d out of range", ErrCorruptChain, secNum)
		}
		remaining := size - uint64(len(out))
		if uint64(secSize) > remaining {
			out = append(out, sector[:remaining]...)
		} else {
			out = append(out, sector...)
		}
	}
	if uint64(len(out)) < size {
		return nil, fmt.Errorf("%w: stream shorter than declared size", ErrCorruptChain)
	}
	return out, nil
}
