// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package roster

import (
	"context"
	"time"

	"coreim.dev/xmpp"
	"coreim.dev/xmpp/blocklist"
	"coreim.dev/xmpp/jid"
	"coreim.dev/xmpp/moved"
	"coreim.dev/xmpp/mux"
)

// RosterModule is the contact-list surface: the jabber:iq:roster contact
// list itself, the XEP-0191 blocklist, and XEP-0283 account-move
// notifications, all addressed through one type.
type RosterModule struct {
	// OnBlock is called when a peer is added to the blocklist by another
	// resource or the server.
	OnBlock func(blocklist.Item)
	// OnUnblock is called when a single JID is removed from the blocklist.
	OnUnblock func(jid.JID)
	// OnUnblockAll is called when the entire blocklist is cleared.
	OnUnblockAll func()
	// OnMoved is called when a contact's account-move request has been
	// verified against their old account. ok reports whether the new JID
	// the contact claims matches what their old account confirmed.
	OnMoved func(from jid.JID, ok bool) error

	// MoveTimeout bounds the round trip RosterModule makes to the old
	// account when verifying a moved request. Zero means no timeout beyond
	// ctx.
	MoveTimeout time.Duration
}

// NewRosterModule returns a RosterModule with no callbacks set; assign
// OnBlock, OnUnblock, OnUnblockAll, and OnMoved before registering it with
// Handle.
func NewRosterModule() *RosterModule {
	return &RosterModule{}
}

// Handle returns a mux.Option that registers the blocklist command handlers
// and the incoming moved-request verifier against s.
func (m *RosterModule) Handle(s *xmpp.Session) mux.Option {
	blockHandler := blocklist.Handler{
		Block:      m.OnBlock,
		Unblock:    m.OnUnblock,
		UnblockAll: m.OnUnblockAll,
	}
	movedHandler := moved.NewHandler(s, m.OnMoved)
	movedHandler.Timeout = m.MoveTimeout
	return func(mx *mux.ServeMux) {
		blocklist.Handle(blockHandler)(mx)
		moved.Handle(movedHandler)(mx)
	}
}

// Fetch requests the roster and returns an iterator over its items.
func (m *RosterModule) Fetch(ctx context.Context, s *xmpp.Session) *Iter {
	return Fetch(ctx, s)
}

// Block adds j to the blocklist.
func (m *RosterModule) Block(ctx context.Context, s *xmpp.Session, j ...jid.JID) error {
	return blocklist.Add(ctx, s, j...)
}

// Unblock removes j from the blocklist. With no JIDs it clears the entire
// blocklist.
func (m *RosterModule) Unblock(ctx context.Context, s *xmpp.Session, j ...jid.JID) error {
	return blocklist.Remove(ctx, s, j...)
}

// FetchBlocklist requests the current blocklist and returns an iterator over
// its JIDs.
func (m *RosterModule) FetchBlocklist(ctx context.Context, s *xmpp.Session) *blocklist.Iter {
	return blocklist.Fetch(ctx, s)
}

// Move informs every contact in oldSession's roster that the account has
// relocated to newSession, per XEP-0283.
func (m *RosterModule) Move(ctx context.Context, oldSession, newSession *xmpp.Session) error {
	return moved.Move(ctx, oldSession, newSession)
}
