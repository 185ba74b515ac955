// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package tdb

import (
	"encoding/binary"
	"testing"
)

func buildThumbsStreamGenA(payloadType, width, height uint32, payload []byte) []byte {
	buf := make([]byte, 28+len(payload))
	binary.LittleEndian.PutUint32(buf[0:], genAHeader1Len)
	binary.LittleEndian.PutUint32(buf[12:], payloadType)
	binary.LittleEndian.PutUint32(buf[16:], width)
	binary.LittleEndian.PutUint32(buf[20:], height)
	binary.LittleEndian.PutUint32(buf[24:], uint32(len(payload)))
	copy(buf[28:], payload)
	return buf
}

func TestDecodeThumbsDBEmpty(t *testing.T) {
	ole, err := OpenOLEBytes(buildOLEFile(nil))
	if err != nil {
		t.Fatalf("OpenOLEBytes: %v", err)
	}
	defer ole.Close()

	thumbs, anomalies, err := DecodeThumbsDB(ole, nil)
	if err != nil {
		t.Fatalf("DecodeThumbsDB: %v", err)
	}
	if len(thumbs) != 0 || len(anomalies) != 0 {
		t.Fatalf("got %d thumbs, %d anomalies; want 0, 0", len(thumbs), len(anomalies))
	}
}

func TestDecodeThumbsDBType2Stream(t *testing.T) {
	jpeg := []byte{0xFF, 0xD8, 0x00, 0x00, 0xFF, 0xD9}
	stream := buildThumbsStreamGenA(2, 64, 64, jpeg)

	ole, err := OpenOLEBytes(buildOLEFile([]oleStreamSpec{{name: "7", data: stream}}))
	if err != nil {
		t.Fatalf("OpenOLEBytes: %v", err)
	}
	defer ole.Close()

	thumbs, anomalies, err := DecodeThumbsDB(ole, nil)
	if err != nil {
		t.Fatalf("DecodeThumbsDB: %v", err)
	}
	if len(anomalies) != 0 {
		t.Fatalf("anomalies = %v, want none", anomalies)
	}
	if len(thumbs) != 1 {
		t.Fatalf("len(thumbs) = %d, want 1", len(thumbs))
	}
	th := thumbs[0]
	if th.StreamID != 7 || th.Width != 64 || th.Height != 64 {
		t.Errorf("thumb = %+v, want StreamID=7 Width=64 Height=64", th)
	}
	if th.ImageMIME != "image/jpeg" {
		t.Errorf("ImageMIME = %q, want image/jpeg", th.ImageMIME)
	}
	if string(th.ImageBytes) != string(jpeg) {
		t.Errorf("ImageBytes = %v, want %v", th.ImageBytes, jpeg)
	}
}

func TestDecodeThumbsDBType1ReconstructsYMCA(t *testing.T) {
	raw := make([]byte, 256)
	for i := range raw {
		raw[i] = byte(i)
	}
	stream := buildThumbsStreamGenA(1, 96, 96, raw)

	ole, err := OpenOLEBytes(buildOLEFile([]oleStreamSpec{{name: "2", data: stream}}))
	if err != nil {
		t.Fatalf("OpenOLEBytes: %v", err)
	}
	defer ole.Close()

	thumbs, anomalies, err := DecodeThumbsDB(ole, nil)
	if err != nil {
		t.Fatalf("DecodeThumbsDB: %v", err)
	}
	if len(thumbs) != 1 {
		t.Fatalf("len(thumbs) = %d, want 1", len(thumbs))
	}
	th := thumbs[0]
	if th.StreamID != 2 {
		t.Errorf("StreamID = %d, want 2", th.StreamID)
	}
	if th.ImageMIME != "image/jpeg" {
		t.Errorf("ImageMIME = %q, want image/jpeg", th.ImageMIME)
	}
	if len(th.ImageBytes) < 4 || th.ImageBytes[0] != 0xFF || th.ImageBytes[1] != 0xD8 {
		t.Errorf("ImageBytes does not start with SOI")
	}
	if len(th.Anomalies) == 0 {
		t.Errorf("want a recorded anomaly noting empirical YMCA reconstruction")
	}
	_ = anomalies
}

func TestDecodeThumbsDBBadLengthIsRecoverable(t *testing.T) {
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xD9}
	stream := buildThumbsStreamGenA(2, 1, 1, jpeg)
	stream = append(stream, 0x00) // corrupt the length invariant

	good := buildThumbsStreamGenA(2, 1, 1, jpeg)

	ole, err := OpenOLEBytes(buildOLEFile([]oleStreamSpec{
		{name: "1", data: stream},
		{name: "3", data: good},
	}))
	if err != nil {
		t.Fatalf("OpenOLEBytes: %v", err)
	}
	defer ole.Close()

	thumbs, anomalies, err := DecodeThumbsDB(ole, nil)
	if err != nil {
		t.Fatalf("DecodeThumbsDB: %v", err)
	}
	if len(thumbs) != 1 {
		t.Fatalf("len(thumbs) = %d, want 1 (the corrupt stream is skipped, not fatal)", len(thumbs))
	}
	if len(anomalies) != 1 {
		t.Fatalf("len(anomalies) = %d, want 1", len(anomalies))
	}
}
