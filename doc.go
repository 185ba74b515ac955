// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package tdb recovers embedded thumbnail images and metadata from
// Windows thumbnail caches: the legacy OLE-based Thumbs.db container
// and the Vista-and-later Thumbcache_*.db / Thumbcache_idx.db pair.
package tdb
