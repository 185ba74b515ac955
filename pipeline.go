// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package tdb

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/saferwall/tdb/internal/log"
)

// Summary tallies the thumbnails, skipped streams, and anomalies
// observed over a single Run.
type Summary struct {
	ThumbnailsEmitted int
	StreamsSkipped    int
	Anomalies         int
}

// Pipeline orchestrates container detection, decoding, and metadata
// joining over one input file and emits Thumbnail records to Sink. A
// Pipeline owns no state across Run calls; ESEDB is built once by the
// caller and shared across inputs.
type Pipeline struct {
	Sink  Sink
	ESEDB *CrossReferencer

	// UTF8 records the caller's request for UTF-8 names. Core decoding
	// always produces UTF-8 Go strings; neither the Pipeline nor the CLI
	// reads this field, so it does not change any emitted record.
	UTF8 bool

	logger *log.Helper
}

// PipelineOptions configures a Pipeline. Logger defaults to a
// warn-filtered stdout logger when unset.
type PipelineOptions struct {
	Logger log.Logger
}

// NewPipeline constructs a Pipeline writing to sink, optionally joining
// against cr (nil disables ESEDB cross-referencing).
func NewPipeline(sink Sink, cr *CrossReferencer, opts *PipelineOptions) *Pipeline {
	var logger log.Logger
	if opts == nil || opts.Logger == nil {
		logger = log.NewStdLogger(os.Stdout)
		logger = log.NewFilter(logger, log.FilterLevel(log.LevelWarn))
	} else {
		logger = opts.Logger
	}
	return &Pipeline{Sink: sink, ESEDB: cr, logger: log.NewHelper(logger)}
}

// Run dispatches path by its leading signature bytes and extracts every
// thumbnail it contains, joining catalog and ESEDB metadata before
// handing each record to Sink. Cancellation is cooperative: ctx is
// polled at container/stream/entry boundaries, and an observed
// cancellation unwinds without emitting a partial thumbnail.
func (p *Pipeline) Run(ctx context.Context, path string) (Summary, error) {
	var sum Summary

	r, err := NewReader(path)
	if err != nil {
		return sum, err
	}
	defer r.Close()

	sig, err := r.SliceAt(0, 8)
	if err != nil {
		return sum, ErrBadSignature
	}

	cancelled := func() bool { return ctx.Err() != nil }

	switch {
	case isOLESignature(sig):
		return p.runThumbsDB(r, cancelled, &sum)
	case string(sig[0:4]) == "CMMM":
		return p.runThumbcache(r, cancelled, &sum)
	case string(sig[0:4]) == "IMMM":
		// Index files carry no thumbnails of their own; a successful
		// open with zero emissions is the defined behavior.
		if _, err := newIMMMFile(r); err != nil {
			return sum, err
		}
		return sum, nil
	default:
		return sum, ErrBadSignature
	}
}

func isOLESignature(sig []byte) bool {
	if len(sig) < 8 {
		return false
	}
	normal := []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	inverted := []byte{0x0E, 0x11, 0xFC, 0x0D, 0xD0, 0xCF, 0x11, 0xE0}
	return bytesEqual(sig, normal) || bytesEqual(sig, inverted)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (p *Pipeline) runThumbsDB(r *Reader, cancelled func() bool, sum *Summary) (Summary, error) {
	ole, err := newOLEFile(r)
	if err != nil {
		return *sum, err
	}

	var catalogRecords []CatalogRecord
	if raw, err := ole.Stream(catalogStreamName); err == nil {
		_, records, cErr := ParseCatalog(raw)
		if cErr == nil {
			catalogRecords = records
		}
	}
	catalogByID := make(map[uint32]CatalogRecord, len(catalogRecords))
	for _, rec := range catalogRecords {
		catalogByID[rec.StreamID] = rec
	}

	thumbs, anomalies, err := DecodeThumbsDB(ole, cancelled)
	sum.StreamsSkipped += len(anomalies)
	sum.Anomalies += len(anomalies)
	for _, a := range anomalies {
		p.logger.Warnf("thumbsdb: %s", a)
	}
	if err != nil {
		return *sum, err
	}

	for i := range thumbs {
		t := &thumbs[i]
		if rec, ok := catalogByID[t.StreamID]; ok {
			mergeNonEmpty(t, rec.Name, rec.MTime, 0, 0)
		}
		sum.Anomalies += len(t.Anomalies)
		for _, a := range t.Anomalies {
			p.logger.Debugf("thumbnail %d: %s", t.StreamID, a)
		}
		if err := p.Sink.Write(*t); err != nil {
			return *sum, fmt.Errorf("%w: %v", ErrSinkWriteFailure, err)
		}
		sum.ThumbnailsEmitted++
	}

	return *sum, nil
}

func (p *Pipeline) runThumbcache(r *Reader, cancelled func() bool, sum *Summary) (Summary, error) {
	cmmm, err := newCMMMFile(r)
	if err != nil {
		return *sum, err
	}

	var cancelledFlag bool
	entries, err := cmmm.Entries(&cancelledFlag)
	if cancelled() {
		cancelledFlag = true
	}
	if err != nil {
		return *sum, err
	}

	for _, e := range entries {
		if cancelled() {
			return *sum, ErrCancelled
		}

		t := Thumbnail{
			CacheID:    e.CacheID,
			HasCacheID: true,
			Width:      e.Width,
			Height:     e.Height,
			ImageMIME:  e.ImageMIME,
			ImageBytes: e.ImageBytes,
			Anomalies:  e.Anomalies,
		}
		if row, ok := p.ESEDB.Lookup(e.CacheID); ok {
			name := row.ItemName
			if name == "" {
				name = row.FileName
			}
			if name != "" && t.OriginalName != "" && !sameExtension(name, t.OriginalName) {
				t.Anomalies = append(t.Anomalies, "catalog/ESEDB name extension mismatch")
			}
			mergeNonEmpty(&t, firstNonEmpty(row.PathDisplay, name), row.DateModified, 0, 0)
		}

		sum.Anomalies += len(t.Anomalies)
		if err := p.Sink.Write(t); err != nil {
			return *sum, fmt.Errorf("%w: %v", ErrSinkWriteFailure, err)
		}
		sum.ThumbnailsEmitted++
	}

	return *sum, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
