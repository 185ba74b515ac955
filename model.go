// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package tdb

import "time"

// Thumbnail is the output record produced by both container families.
// Fields that a given source cannot populate are left at their zero
// value; catalog.go and esedb.go join independently and never overwrite
// an already-populated field with an empty one.
type Thumbnail struct {
	StreamID     uint32
	CacheID      uint64
	HasCacheID   bool
	OriginalName string
	Width        uint32
	Height       uint32
	MTime        time.Time
	ImageMIME    string
	ImageBytes   []byte
	Anomalies    []string
}

// Sink is the only filesystem-touching boundary the pipeline uses.
// Implementations live outside the core package (cmd/tdbdump).
type Sink interface {
	Write(Thumbnail) error
}

// mergeNonEmpty copies name/time fields into dst whenever dst's field is
// still at its zero value. Catalog and ESEDB are independent metadata
// sources joined in sequence; later values never overwrite an earlier
// source's non-empty value.
func mergeNonEmpty(dst *Thumbnail, name string, mtime time.Time, width, height uint32) {
	if dst.OriginalName == "" {
		dst.OriginalName = name
	}
	if dst.MTime.IsZero() {
		dst.MTime = mtime
	}
	if dst.Width == 0 {
		dst.Width = width
	}
	if dst.Height == 0 {
		dst.Height = height
	}
}

// mimeFromMagic identifies image/jpeg, image/png or image/bmp (the
// latter rarely seen in practice) from the leading bytes of a payload,
// or "" if unrecognized.
func mimeFromMagic(b []byte) string {
	switch {
	case len(b) >= 3 && b[0] == 0xFF && b[1] == 0xD8 && b[2] == 0xFF:
		return "image/jpeg"
	case len(b) >= 4 && b[0] == 0x89 && b[1] == 0x50 && b[2] == 0x4E && b[3] == 0x47:
		return "image/png"
	case len(b) >= 2 && b[0] == 0x42 && b[1] == 0x4D:
		return "image/bmp"
	default:
		return ""
	}
}
