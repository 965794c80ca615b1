// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanza

// NSClient and NSServer are the default content namespaces for client-to-server
// and server-to-server streams respectively. A stanza with no namespace, or
// with one of these two namespaces, is addressed in the stream's own content
// namespace.
const (
	NSClient = "jabber:client"
	NSServer = "jabber:server"
)
