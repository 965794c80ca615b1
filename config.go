// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xmpp

import "crypto/tls"

// Config carries the information a Negotiator needs to authenticate and
// secure a session that NegotiateSession itself has no opinion about: the
// preferred xml:lang, SASL credentials, and the TLS configuration used by
// the StartTLS stream feature.
type Config struct {
	// Lang is the value sent in the xml:lang attribute of the opening stream
	// tag.
	Lang string

	// Identity is the authorization identity (authzid) presented during SASL
	// authentication. It is normally left empty so that the server defaults
	// it to the authentication identity.
	Identity string

	// Password is the password used to authenticate the session.
	Password string

	// TLSConfig is used by the StartTLS stream feature when upgrading the
	// connection. If nil, a zero value *tls.Config is used.
	TLSConfig *tls.Config
}
