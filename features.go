// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xmpp

import (
	"context"
	"encoding/xml"
	"io"

	"mellium.im/xmlstream"
)

// StreamFeature represents an XMPP stream feature that is advertised in the
// stream header by a server or other receiving entity (eg. SASL
// authentication, STARTTLS, resource binding, etc.).
type StreamFeature struct {
	// Name is the XML name of the feature advertised in stream:features.
	Name xml.Name

	// Necessary and Prohibited are bitmasks of SessionState values that must
	// (or must not) be set before this feature may be negotiated.
	Necessary   SessionState
	Prohibited  SessionState

	// List writes the feature advertisement, returning true if the feature
	// requires negotiation from the other side.
	List func(ctx context.Context, e xmlstream.TokenWriter, start xml.StartElement) (bool, error)

	// Parse parses a feature advertisement read from the stream, returning
	// true if the feature should be negotiated along with a value that is
	// passed to Negotiate as data.
	Parse func(ctx context.Context, d *xml.Decoder, start *xml.StartElement) (bool, interface{}, error)

	// Negotiate performs the feature negotiation itself, returning any
	// SessionState bits that should be set and, if negotiation requires
	// restarting the stream on a new connection (eg. STARTTLS or
	// compression), the new io.ReadWriter to restart on.
	Negotiate func(ctx context.Context, session *Session, data interface{}) (mask SessionState, rw io.ReadWriter, err error)
}
