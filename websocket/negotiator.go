// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package websocket

import (
	"context"

	"coreim.dev/xmpp/internal/wskey"
)

// withWebSocket tags ctx so that the shared stream negotiator emits and
// expects RFC 7395 <open/> framing instead of the ordinary <stream:stream>
// start tag. The negotiator reads this on every call, so it must be set on
// the context passed in to NegotiateSession (or to NewClientSession /
// NewServerSession, which forward it unchanged).
func withWebSocket(ctx context.Context) context.Context {
	return context.WithValue(ctx, wskey.Key{}, struct{}{})
}
