// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xmpp

import "io"

// Conn is the connection used by a Session to read and write to the
// underlying transport. It is an alias for io.ReadWriter (rather than a
// defined type) so that stream features that need to type assert the
// concrete connection back out, eg. to reach the *tls.Conn installed by
// StartTLS, can still do so after it passes through Session.Conn.
type Conn = io.ReadWriter

// newConn wraps rw so that it satisfies Conn without discarding its
// underlying concrete type.
func newConn(rw io.ReadWriter) Conn {
	return rw
}
