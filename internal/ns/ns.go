// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package ns provides namespace constants that are used by the xmpp package and
// other internal packages.
package ns // import "coreim.dev/xmpp/internal/ns"

// List of commonly used namespaces.
const (
	Bind     = "urn:ietf:params:xml:ns:xmpp-bind"
	SASL     = "urn:ietf:params:xml:ns:xmpp-sasl"
	StartTLS = "urn:ietf:params:xml:ns:xmpp-tls"
	XML      = "http://www.w3.org/XML/1998/namespace"

	// Client and Server are the default content namespaces for client-to-server
	// and server-to-server streams respectively.
	Client = "jabber:client"
	Server = "jabber:server"

	// Stream is the namespace of the stream:stream wrapper element and its
	// children (stream:features, stream:error, etc.).
	Stream = "http://etherx.jabber.org/streams"

	// Stanza is the namespace of stanza-level <error/> conditions defined in
	// RFC 6120 §8.3.3.
	Stanza = "urn:ietf:params:xml:ns:xmpp-stanzas"

	// WS is the namespace of the WebSocket framing elements defined in RFC 7395.
	WS = "urn:ietf:params:xml:ns:xmpp-framing"
)
