// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package tdb

import (
	"path/filepath"

	"github.com/xyproto/env/v2"
)

const (
	envBaseDir = "TDB_BASE_DIR"

	esedbRelPath      = "ProgramData/Microsoft/Search/Data/Applications/Windows/Windows.edb"
	thumbcacheGlobRel = "Users/*/AppData/Local/Microsoft/Windows/Explorer/thumbcache_*.db"
)

// AutoConfig resolves the "automatic mode" paths: the ESEDB path and
// the thumbcache glob root, both relative to a base directory.
// The base directory defaults to "C:" and is overridable via
// TDB_BASE_DIR, for testing against a mounted image root instead of a
// live system.
type AutoConfig struct {
	BaseDir        string
	ESEDBPath      string
	ThumbcacheGlob string
}

// ResolveAutoConfig reads TDB_BASE_DIR (default "C:") and derives the
// ESEDB path and thumbcache glob pattern automatic mode scans.
func ResolveAutoConfig() AutoConfig {
	base := env.StrOr(envBaseDir, "C:")
	return AutoConfig{
		BaseDir:        base,
		ESEDBPath:      filepath.Join(base, filepath.FromSlash(esedbRelPath)),
		ThumbcacheGlob: filepath.Join(base, filepath.FromSlash(thumbcacheGlobRel)),
	}
}
