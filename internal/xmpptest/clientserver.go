// Copyright 2017 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xmpptest

import (
	"context"
	"encoding/xml"
	"io"
	"net"

	"mellium.im/xmlstream"
	"coreim.dev/xmpp"
	"coreim.dev/xmpp/jid"
)

// ClientServer is a pair of XMPP sessions backed by an in-memory connection:
// anything Client sends is decoded on Server's end and vice versa. Server is
// always served in the background; Client is only served if a ClientHandler
// option is provided, since most tests drive Client directly with
// SendIQ/Send and only need to read the synchronous response.
type ClientServer struct {
	Client *xmpp.Session
	Server *xmpp.Session
}

// Close closes both the client and server sessions.
func (cs *ClientServer) Close() error {
	if err := cs.Client.Close(); err != nil {
		return err
	}
	return cs.Server.Close()
}

type csConfig struct {
	clientState   xmpp.SessionState
	serverState   xmpp.SessionState
	clientHandler xmpp.Handler
	serverHandler xmpp.Handler
}

// CSOption configures a ClientServer returned by NewClientServer.
type CSOption func(*csConfig)

// ClientState ORs extra state bits onto the client session.
func ClientState(state xmpp.SessionState) CSOption {
	return func(c *csConfig) { c.clientState = state }
}

// ServerState ORs extra state bits onto the server session.
func ServerState(state xmpp.SessionState) CSOption {
	return func(c *csConfig) { c.serverState = state }
}

// ClientHandler sets the handler that Serves the client session in the
// background, letting a test react to stanzas sent by the server.
func ClientHandler(h xmpp.Handler) CSOption {
	return func(c *csConfig) { c.clientHandler = h }
}

// ServerHandler sets the handler that Serves the server session in the
// background, letting a test react to stanzas sent by the client.
func ServerHandler(h xmpp.Handler) CSOption {
	return func(c *csConfig) { c.serverHandler = h }
}

// ServerHandlerFunc is like ServerHandler but takes a bare function.
func ServerHandlerFunc(f func(xmlstream.TokenReadEncoder, *xml.StartElement) error) CSOption {
	return ServerHandler(xmpp.HandlerFunc(f))
}

// ClientHandlerFunc is like ClientHandler but takes a bare function.
func ClientHandlerFunc(f func(xmlstream.TokenReadEncoder, *xml.StartElement) error) CSOption {
	return ClientHandler(xmpp.HandlerFunc(f))
}

// NewClientServer returns a connected pair of sessions wired together over
// an in-memory pipe, with the server side already being Served in the
// background (so that IQs and presence sent from Client receive responses
// written by a ServerHandler/ServerHandlerFunc).
//
// NewClientServer panics on error for ease of use in testing, where a panic
// is acceptable.
func NewClientServer(opt ...CSOption) *ClientServer {
	var cfg csConfig
	for _, o := range opt {
		o(&cfg)
	}

	clientConn, serverConn := net.Pipe()

	location := jid.MustParse("example.net")
	origin := jid.MustParse("test@example.net")

	client, err := xmpp.NegotiateSession(
		context.Background(), &location, &origin, clientConn,
		func(_ context.Context, _ *xmpp.Session, _ interface{}) (xmpp.SessionState, io.ReadWriter, interface{}, error) {
			return cfg.clientState | xmpp.Ready, nil, nil, nil
		},
	)
	if err != nil {
		panic(err)
	}
	server, err := xmpp.NegotiateSession(
		context.Background(), &location, &origin, serverConn,
		func(_ context.Context, _ *xmpp.Session, _ interface{}) (xmpp.SessionState, io.ReadWriter, interface{}, error) {
			return cfg.serverState | xmpp.Received | xmpp.Ready, nil, nil, nil
		},
	)
	if err != nil {
		panic(err)
	}

	go server.Serve(cfg.serverHandler) //nolint:errcheck
	if cfg.clientHandler != nil {
		go client.Serve(cfg.clientHandler) //nolint:errcheck
	}

	return &ClientServer{Client: client, Server: server}
}
