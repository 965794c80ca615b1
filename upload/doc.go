// Copyright 2022 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

//go:generate go run ../internal/genfeature

// Package upload implements sending files by uploading them to an HTTP server.
package upload // import "coreim.dev/xmpp/upload"
