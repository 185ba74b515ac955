// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	tdb "github.com/saferwall/tdb"
)

// writtenRecord is one emitted thumbnail's on-disk bookkeeping, kept for
// the optional HTML report.
type writtenRecord struct {
	Index        int
	FileName     string
	OriginalName string
	MD5          string
	MIME         string
}

// fileSink implements tdb.Sink, writing each thumbnail as a numbered
// image file under dir, optionally an MD5 digest and a symlink from the
// original name under dir/.thumbs/.
type fileSink struct {
	dir        string
	wantMD5    bool
	wantSyms   bool
	mu         sync.Mutex
	next       int
	written    []writtenRecord
}

func newFileSink(dir string, wantMD5, wantSymlinks bool) *fileSink {
	return &fileSink{dir: dir, wantMD5: wantMD5, wantSyms: wantSymlinks}
}

func extensionForMIME(mime string) string {
	switch mime {
	case "image/png":
		return ".png"
	case "image/bmp":
		return ".bmp"
	default:
		return ".jpg"
	}
}

// Write implements tdb.Sink.
func (s *fileSink) Write(t tdb.Thumbnail) error {
	s.mu.Lock()
	idx := s.next
	s.next++
	s.mu.Unlock()

	if len(t.ImageBytes) == 0 {
		// Dormant entries have no recoverable bytes; still recorded for
		// the report.
		s.mu.Lock()
		s.written = append(s.written, writtenRecord{Index: idx, OriginalName: t.OriginalName, MIME: t.ImageMIME})
		s.mu.Unlock()
		return nil
	}

	name := fmt.Sprintf("%010d%s", idx, extensionForMIME(t.ImageMIME))
	fullPath := filepath.Join(s.dir, name)
	if err := os.WriteFile(fullPath, t.ImageBytes, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", fullPath, err)
	}

	rec := writtenRecord{Index: idx, FileName: name, OriginalName: t.OriginalName, MIME: t.ImageMIME}

	if s.wantMD5 {
		sum := md5.Sum(t.ImageBytes)
		rec.MD5 = hex.EncodeToString(sum[:])
	}

	if s.wantSyms && t.OriginalName != "" {
		thumbsDir := filepath.Join(s.dir, ".thumbs")
		if err := os.MkdirAll(thumbsDir, 0o755); err != nil {
			return fmt.Errorf("symlink dir: %w", err)
		}
		link := filepath.Join(thumbsDir, t.OriginalName)
		target, err := filepath.Rel(thumbsDir, fullPath)
		if err != nil {
			target = fullPath
		}
		_ = os.Remove(link)
		if err := os.Symlink(target, link); err != nil {
			return fmt.Errorf("symlink %s: %w", link, err)
		}
	}

	s.mu.Lock()
	s.written = append(s.written, rec)
	s.mu.Unlock()

	return nil
}
