// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package tdb

import "time"

// filetimeEpoch is 1601-01-01T00:00:00Z expressed as a Go time.Time, the
// origin of the Windows FILETIME 100-nanosecond tick count.
var filetimeEpoch = time.Date(1601, time.January, 1, 0, 0, 0, 0, time.UTC)

// FileTimeToUTC converts a Windows FILETIME (100ns intervals since
// 1601-01-01 UTC) to an absolute UTC instant. A zero FILETIME converts
// to the zero time.Time, the conventional "not set" sentinel.
func FileTimeToUTC(ft uint64) time.Time {
	if ft == 0 {
		return time.Time{}
	}
	// Split into whole seconds and a sub-second remainder: ft*100 ns does
	// not fit a time.Duration for any date after 1893.
	secs := int64(ft/10000000) + filetimeEpoch.Unix()
	nsec := int64(ft%10000000) * 100
	return time.Unix(secs, nsec).UTC()
}

// UTCToFileTime is the inverse of FileTimeToUTC.
func UTCToFileTime(t time.Time) uint64 {
	if t.IsZero() {
		return 0
	}
	secs := uint64(t.Unix() - filetimeEpoch.Unix())
	return secs*10000000 + uint64(t.Nanosecond()/100)
}
