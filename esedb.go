// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package tdb

import (
	"fmt"
	"strings"
	"time"
)

// EsedbRow is one decoded row from the SystemIndex_0A (Vista/7) or
// SystemIndex_PropertyStore (8+) table, carrying whichever of its
// preference-ordered columns the row actually populated.
type EsedbRow struct {
	CacheID     uint64
	HasCacheID  bool
	PathDisplay string
	ItemName    string
	FileName    string
	Extension   string
	Size        uint64
	DateModified time.Time
	DateCreated  time.Time
	DateAccessed time.Time
	MIMEType    string
}

// RowIterator walks the rows of one ESEDB table. Implementations are
// supplied by an embedded ESE library collaborator that handles the
// low-level Extensible Storage Engine page format; this package has no
// concrete ESE dependency of its own.
type RowIterator interface {
	// Next advances to the next row, returning false at end of table
	// or on error (check Err after Next returns false).
	Next() bool
	// Row decodes the current row's columns into an EsedbRow.
	Row() (EsedbRow, error)
	Err() error
}

// TableReader opens a named table for iteration. A concrete ESE reader
// implements this against SystemIndex_0A / SystemIndex_PropertyStore.
type TableReader interface {
	OpenTable(name string) (RowIterator, error)
	Close() error
}

// systemIndexTableNames are tried in order; the first one OpenTable
// accepts is used.
var systemIndexTableNames = []string{"SystemIndex_0A", "SystemIndex_PropertyStore"}

// CrossReferencer is the in-memory cache_id → row mapping built once per
// ESEDB and queried by the pipeline once per thumbnail.
type CrossReferencer struct {
	rows map[uint64]EsedbRow
}

// BuildCrossReferencer enumerates rows of the first matching system
// index table tr exposes and indexes them by Thumb Cache ID. Rows
// lacking a cache id are skipped. Returns ErrEsedbSchemaMissing if
// neither known table name opens successfully.
func BuildCrossReferencer(tr TableReader) (*CrossReferencer, error) {
	var it RowIterator
	var openErr error
	for _, name := range systemIndexTableNames {
		it, openErr = tr.OpenTable(name)
		if openErr == nil {
			break
		}
	}
	if it == nil {
		return nil, fmt.Errorf("%w: %v", ErrEsedbSchemaMissing, openErr)
	}

	cr := &CrossReferencer{rows: make(map[uint64]EsedbRow)}
	for it.Next() {
		row, err := it.Row()
		if err != nil {
			continue
		}
		if !row.HasCacheID {
			continue
		}
		cr.rows[row.CacheID] = row
	}
	if err := it.Err(); err != nil {
		return cr, fmt.Errorf("%w: %v", ErrEsedbUnreadable, err)
	}

	return cr, nil
}

// Lookup returns the row indexed under cacheID, if any.
func (cr *CrossReferencer) Lookup(cacheID uint64) (EsedbRow, bool) {
	if cr == nil {
		return EsedbRow{}, false
	}
	row, ok := cr.rows[cacheID]
	return row, ok
}

// sameExtension reports whether two file names agree on extension,
// case-insensitively.
func sameExtension(a, b string) bool {
	return strings.EqualFold(extOf(a), extOf(b))
}

func extOf(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return ""
	}
	return name[i+1:]
}
