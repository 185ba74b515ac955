// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package tdb

// Fuzz is the go-fuzz entry point over the OLE container parser.
func Fuzz(data []byte) int {
	f, err := OpenOLEBytes(data)
	if err != nil {
		return 0
	}
	defer f.Close()
	if _, _, err := DecodeThumbsDB(f, nil); err != nil {
		return 0
	}
	return 1
}

// FuzzThumbcache is the go-fuzz entry point over the CMMM entry parser.
func FuzzThumbcache(data []byte) int {
	f, err := OpenThumbcacheBytes(data)
	if err != nil {
		return 0
	}
	defer f.Close()
	if _, err := f.Entries(nil); err != nil {
		return 0
	}
	return 1
}
