package muc

import (
	"context"
	"sync"
	"time"

	"coreim.dev/xmpp"
	"coreim.dev/xmpp/jid"
	"coreim.dev/xmpp/stanza"
	"coreim.dev/xmpp/xerr"
)

// joinTimeout bounds how long Join waits, per attempt, for the self
// presence that confirms a join succeeded.
const joinTimeout = 30 * time.Second

// maxJoinRetries is how many additional attempts Join makes after its
// first attempt times out or errors before giving up.
const maxJoinRetries = 1

// JoinState is a room's membership state as tracked by MucModule. A room
// moves idle -> joining -> joined on a successful join, joining -> idle on
// an error or exhausted retries, and joined -> idle when self-presence
// goes unavailable without a local Leave having caused it (the service
// removed us, or the stream under the room dropped). A Leave or
// LeavePresence call on the room's Channel does not change the tracked
// state.
type JoinState int

const (
	StateIdle JoinState = iota
	StateJoining
	StateJoined
)

// Occupant is a single room member's presence, captured while a join is in
// progress so the whole roster can be delivered to the caller in one
// batch instead of as a stream of individual presence callbacks.
type Occupant struct {
	From jid.JID
	Item Item
}

// PendingJoin records a join attempt's deadline so a caller inspecting
// MucModule state can tell how much longer a join has to complete.
type PendingJoin struct {
	Room     jid.JID
	Deadline time.Time
}

// pendingOccupants buffers presence updates that arrive for a room while
// its join is still in progress.
type pendingOccupants struct {
	mu  sync.Mutex
	buf []Occupant
}

func (p *pendingOccupants) add(o Occupant) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buf = append(p.buf, o)
}

func (p *pendingOccupants) drain() []Occupant {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.buf
	p.buf = nil
	return out
}

// Bookmark is a saved room (XEP-0402, PEP bookmarks): the address to join,
// the nickname to join with, and whether it should be joined automatically
// whenever the session comes online.
type Bookmark struct {
	Room     jid.JID
	Nick     string
	Autojoin bool
}

// MucModule layers a join state machine, occupant batching, and a timeout
// and single retry onto the low-level Client/Channel join primitive: Join
// blocks callers on either the fully settled occupant list or a
// JoinTimeoutError, instead of exposing self-presence arrival as a bare
// channel send the way Client.JoinPresence does.
type MucModule struct {
	client *Client

	mu       sync.Mutex
	states   map[string]JoinState
	pending  map[string]*pendingOccupants
	channels map[string]*Channel

	// OnDeparted is called when a previously joined room's self-presence
	// goes unavailable without a Leave or LeavePresence call on its Channel
	// having caused it.
	OnDeparted func(room jid.JID)
}

// NewMucModule returns a MucModule with its own Client wired to track join
// state and batch occupant presence.
func NewMucModule() *MucModule {
	m := &MucModule{
		states:   make(map[string]JoinState),
		pending:  make(map[string]*pendingOccupants),
		channels: make(map[string]*Channel),
	}
	m.client = &Client{
		HandleUserPresence: m.handleUserPresence,
		HandleDepart:       m.handleDepart,
	}
	return m
}

// Client returns the underlying mux.Option-registerable handler; register
// it with HandleClient the same way a bare *Client would be registered.
func (m *MucModule) Client() *Client { return m.client }

func (m *MucModule) handleUserPresence(p stanza.Presence, item Item) {
	key := p.From.Bare().String()
	m.mu.Lock()
	po := m.pending[key]
	m.mu.Unlock()
	if po == nil {
		return
	}
	po.add(Occupant{From: *p.From, Item: item})
}

func (m *MucModule) state(key string) JoinState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[key]
}

func (m *MucModule) setState(key string, st JoinState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[key] = st
}

// State reports the join state MucModule is tracking for room.
func (m *MucModule) State(room jid.JID) JoinState {
	return m.state(room.Bare().String())
}

func (m *MucModule) handleDepart(room jid.JID) {
	key := room.Bare().String()
	m.setState(key, StateIdle)
	m.mu.Lock()
	delete(m.channels, key)
	m.mu.Unlock()
	if m.OnDeparted != nil {
		m.OnDeparted(room)
	}
}

// Join brings room to the joined state: it attempts the low-level join up
// to 1+maxJoinRetries times, each bounded by joinTimeout, and on success
// returns the batch of occupant presences that arrived while the join was
// in progress. A failed or exhausted join leaves the room's state at idle
// and returns a *xerr.JoinTimeoutError.
func (m *MucModule) Join(ctx context.Context, room jid.JID, nick string, s *xmpp.Session, opt ...Option) (*Channel, []Occupant, error) {
	full, err := room.Bare().WithResource(nick)
	if err != nil {
		return nil, nil, err
	}
	key := room.Bare().String()

	m.setState(key, StateJoining)
	po := &pendingOccupants{}
	m.mu.Lock()
	m.pending[key] = po
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		delete(m.pending, key)
		m.mu.Unlock()
	}()

	for attempt := 0; attempt <= maxJoinRetries; attempt++ {
		jctx, cancel := context.WithTimeout(ctx, joinTimeout)
		ch, joinErr := m.client.Join(jctx, full, s, opt...)
		cancel()
		if joinErr == nil {
			m.setState(key, StateJoined)
			m.mu.Lock()
			m.channels[key] = ch
			m.mu.Unlock()
			return ch, po.drain(), nil
		}
	}

	m.setState(key, StateIdle)
	return nil, nil, &xerr.JoinTimeoutError{Room: room.String(), Attempts: maxJoinRetries + 1}
}

// Autojoin joins every bookmark marked Autojoin, deduplicated against
// rooms already joined this session (priorJoined), returning the rooms it
// joined successfully and the first error encountered, if any, without aborting the
// remaining joins.
func (m *MucModule) Autojoin(ctx context.Context, s *xmpp.Session, bookmarks []Bookmark, priorJoined map[string]bool) ([]jid.JID, error) {
	seen := make(map[string]bool, len(priorJoined))
	for k, v := range priorJoined {
		seen[k] = v
	}

	var (
		joined  []jid.JID
		firstErr error
	)
	for _, bm := range bookmarks {
		if !bm.Autojoin {
			continue
		}
		key := bm.Room.Bare().String()
		if seen[key] {
			continue
		}
		seen[key] = true

		_, _, err := m.Join(ctx, bm.Room, bm.Nick, s)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		joined = append(joined, bm.Room)
	}
	return joined, firstErr
}
