// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package pubsub implements data storage using a publish–subscribe pattern.
package pubsub // import "coreim.dev/xmpp/pubsub"

// Various namespaces used by this package, provided as a convenience.
const (
	NS       = `http://jabber.org/protocol/pubsub`
	NSPaging = `http://jabber.org/protocol/pubsub#rsm`
)
