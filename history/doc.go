// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package history iimplements fetching messages from an archive.
package history // import "coreim.dev/xmpp/history"

// The namespace used by this package, provided as a convenience.
const NS = `urn:xmpp:mam:2`
