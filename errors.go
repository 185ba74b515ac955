// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package tdb

import "errors"

// Errors
var (
	// ErrBadSignature is returned when the leading bytes of a file match
	// none of the recognized container signatures.
	ErrBadSignature = errors.New("tdb: unrecognized container signature")

	// ErrBadHeader is returned when an OLE header field lies outside its
	// documented range (sector shift, mini-sector shift, CLSID).
	ErrBadHeader = errors.New("tdb: malformed OLE header")

	// ErrCorruptChain is returned when following a FAT or miniFAT chain
	// revisits a sector, or walks off the end of the sector table.
	ErrCorruptChain = errors.New("tdb: corrupt sector chain")

	// ErrBadDirectory is returned when a directory entry's name length
	// falls outside [2, 64] or is odd.
	ErrBadDirectory = errors.New("tdb: malformed directory entry")

	// ErrStreamNotFound is returned when a named stream does not exist
	// in the directory tree.
	ErrStreamNotFound = errors.New("tdb: stream not found")

	// ErrEntryLengthMismatch is returned when a Thumbs.db stream's
	// declared payload_length disagrees with its actual stream size.
	ErrEntryLengthMismatch = errors.New("tdb: payload length mismatch")

	// ErrMissingEOI is returned when a JPEG payload does not end with
	// the FF D9 End Of Image marker.
	ErrMissingEOI = errors.New("tdb: missing JPEG end-of-image marker")

	// ErrUnknownEntryType is returned for a Thumbs.db stream whose
	// header length or payload type this reader does not recognize.
	ErrUnknownEntryType = errors.New("tdb: unknown entry type")

	// ErrEsedbUnreadable is returned when the injected ESEDB collaborator
	// reports an error while its system index table rows are iterated.
	// Opening the database file is done by the collaborator, outside this
	// package.
	ErrEsedbUnreadable = errors.New("tdb: esedb unreadable")

	// ErrEsedbSchemaMissing is returned when the ESEDB is readable but
	// carries neither SystemIndex_0A nor SystemIndex_PropertyStore.
	ErrEsedbSchemaMissing = errors.New("tdb: esedb schema missing expected table")

	// ErrSinkWriteFailure wraps a failure returned by the output sink;
	// fatal for the input being processed.
	ErrSinkWriteFailure = errors.New("tdb: sink write failed")

	// ErrCancelled is returned when a cooperative cancellation flag was
	// observed at a stream or entry boundary.
	ErrCancelled = errors.New("tdb: cancelled")

	// ErrOutsideBoundary is returned by the byte reader when a read or
	// slice would cross the end of the underlying data.
	ErrOutsideBoundary = errors.New("tdb: read outside boundary")
)
