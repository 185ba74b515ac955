// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package tdb

import (
	"fmt"
	"strconv"
)

// thumbsHeaderGen distinguishes the two internal header shapes Thumbs.db
// streams carry.
type thumbsHeaderGen int

const (
	genUnknown thumbsHeaderGen = iota
	genA                       // header1_length == 0x0C, type-tagged
	genB                       // header1_length == 0x18, always Type 2
)

const (
	genAHeader1Len = 0x0C
	genAHeader2Len = 0x10
	genBHeader1Len = 0x18
	genBHeaderTotal = 28
)

// thumbsStreamHeader is the decoded leading header of a Thumbs.db stream.
type thumbsStreamHeader struct {
	gen           thumbsHeaderGen
	headerLen     uint32
	payloadType   uint32 // 1 or 2
	width, height uint32
	payloadLength uint32
}

func parseThumbsStreamHeader(stream []byte) (thumbsStreamHeader, error) {
	var h thumbsStreamHeader
	if len(stream) < 4 {
		return h, fmt.Errorf("tdb: stream shorter than header1")
	}
	header1Len := leU32(stream, 0)

	switch header1Len {
	case genAHeader1Len:
		if len(stream) < genAHeader1Len+genAHeader2Len {
			return h, fmt.Errorf("tdb: stream too short for gen A header")
		}
		h.gen = genA
		h.payloadType = leU32(stream, genAHeader1Len)
		h.width = leU32(stream, genAHeader1Len+4)
		h.height = leU32(stream, genAHeader1Len+8)
		h.payloadLength = leU32(stream, genAHeader1Len+12)
		h.headerLen = genAHeader1Len + genAHeader2Len

	case genBHeader1Len:
		if len(stream) < genBHeaderTotal {
			return h, fmt.Errorf("tdb: stream too short for gen B header")
		}
		h.gen = genB
		h.payloadType = 2
		h.width = leU32(stream, 8)
		h.height = leU32(stream, 12)
		h.payloadLength = leU32(stream, 16)
		h.headerLen = genBHeaderTotal

	default:
		return h, fmt.Errorf("%w: header1_length 0x%X", ErrUnknownEntryType, header1Len)
	}

	if h.headerLen+h.payloadLength != uint32(len(stream)) {
		return h, ErrEntryLengthMismatch
	}

	return h, nil
}

// DecodeThumbsDB walks every non-Catalog stream of ole in directory
// order and decodes each into a Thumbnail. Per-stream decode faults
// (length mismatch, missing EOI) are recoverable: that stream is
// skipped and recorded in the returned anomaly list, the rest of the
// input continues.
func DecodeThumbsDB(ole *OLEFile, cancelled func() bool) ([]Thumbnail, []string, error) {
	var thumbs []Thumbnail
	var anomalies []string

	for _, e := range ole.Streams() {
		if cancelled != nil && cancelled() {
			return thumbs, anomalies, ErrCancelled
		}
		if e.Name == catalogStreamName {
			continue
		}
		streamID, ok := parseStreamID(e.Name)
		if !ok {
			anomalies = append(anomalies, fmt.Sprintf("stream %q: not a numeric stream id, skipped", e.Name))
			continue
		}

		raw, err := ole.Stream(e.Name)
		if err != nil {
			anomalies = append(anomalies, fmt.Sprintf("stream %q: %v", e.Name, err))
			continue
		}

		thumb, err := decodeThumbsStream(streamID, raw)
		if err != nil {
			anomalies = append(anomalies, fmt.Sprintf("stream %q (id %d): %v", e.Name, streamID, err))
			continue
		}
		thumbs = append(thumbs, thumb)
	}

	return thumbs, anomalies, nil
}

func decodeThumbsStream(streamID uint32, raw []byte) (Thumbnail, error) {
	h, err := parseThumbsStreamHeader(raw)
	if err != nil {
		return Thumbnail{}, err
	}

	payload := raw[h.headerLen : h.headerLen+h.payloadLength]
	thumb := Thumbnail{StreamID: streamID, Width: h.width, Height: h.height}

	switch h.payloadType {
	case 2:
		if err := validateJPEGFraming(payload); err != nil {
			return Thumbnail{}, err
		}
		thumb.ImageMIME = "image/jpeg"
		thumb.ImageBytes = payload

	case 1:
		reconstructed, err := ReconstructYMCA(payload, h.width, h.height)
		if err != nil {
			return Thumbnail{}, err
		}
		thumb.ImageMIME = "image/jpeg"
		thumb.ImageBytes = reconstructed
		thumb.Anomalies = append(thumb.Anomalies,
			"Type 1 YMCA reconstruction is empirical; visual content is not guaranteed correct")

	default:
		return Thumbnail{}, fmt.Errorf("%w: payload type %d", ErrUnknownEntryType, h.payloadType)
	}

	return thumb, nil
}

// validateJPEGFraming checks the SOI/EOI framing [JFIF]/[T.81] require
// of every Type 2 payload.
func validateJPEGFraming(payload []byte) error {
	if len(payload) < 4 || payload[0] != 0xFF || payload[1] != 0xD8 {
		return fmt.Errorf("tdb: Type 2 payload missing SOI")
	}
	if payload[len(payload)-2] != 0xFF || payload[len(payload)-1] != 0xD9 {
		return ErrMissingEOI
	}
	return nil
}

// parseStreamID reverses a Thumbs.db stream name back into the decimal
// stream id the Catalog records reference. Stream names are stored as
// the reversed decimal digits of the id, a Vinetto-documented Thumbs.db
// naming convention.
func parseStreamID(name string) (uint32, bool) {
	b := []byte(name)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	id, err := strconv.ParseUint(string(b), 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(id), true
}
