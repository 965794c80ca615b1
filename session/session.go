package session

import (
	"context"
	"encoding/xml"
	"sync"
	"time"

	"mellium.im/xmlstream"
	"coreim.dev/xmpp/jid"
	"coreim.dev/xmpp/stanza"
)

// defaultIqTimeout bounds how long an outbound IQ sent through Session
// waits for a response when the caller does not supply its own context
// deadline.
const defaultIqTimeout = 30 * time.Second

// Config holds the application-level settings a Session needs beyond what
// its Transport already knows (the origin JID and password, which the
// Transport uses during its own stream negotiation).
type Config struct {
	Origin        jid.JID
	Store         SessionStore
	Proxy         ProxyAdapter
	TransportDial time.Duration
}

// Session is the top-level coordinator of a single user's connection: it
// owns a Transport, a StreamManager for XEP-0198 resumption, a
// ReconnectController for backoff/retry policy, and dispatches inbound
// stanzas through a StanzaRouter (for message/presence and any stanza a
// module wants to see) and an IqCallee (for request/response IQs), while
// resolving outbound IQs sent via its IqCorrelator. Register modules
// (ChatModule, MucModule, MamModule, RosterModule, ...) against its Router
// and Callee before calling Connect.
type Session struct {
	cfg       Config
	transport Transport

	sm        *StreamManager
	reconnect *ReconnectController
	router    *StanzaRouter
	callee    *IqCallee
	iq        *IqCorrelator

	mu     sync.Mutex
	w      xmlstream.TokenWriter
	events chan Event
	onEvt  []func(Event)
}

// New returns a Session that drives transport, using cfg for its origin
// identity and persistence port. The returned Session is not yet
// connected; call Connect to start it.
func New(cfg Config, transport Transport) *Session {
	return &Session{
		cfg:       cfg,
		transport: transport,
		sm:        NewStreamManager(),
		reconnect: NewReconnectController(),
		router:    NewStanzaRouter(),
		callee:    NewIqCallee(),
		iq:        NewIqCorrelator(),
		events:    make(chan Event, 64),
	}
}

// Router returns the StanzaRouter modules register against to see
// message/presence stanzas (and any IQ the IqCallee did not claim).
func (s *Session) Router() *StanzaRouter { return s.router }

// Callee returns the IqCallee modules register their get/set IQ handlers
// against.
func (s *Session) Callee() *IqCallee { return s.callee }

// Events returns the channel Session publishes lifecycle Events to.
// Callers should either drain Events or use OnEvent, not both.
func (s *Session) Events() <-chan Event { return s.events }

// OnEvent registers f to be called synchronously, from the Session's own
// serve loop, for every Event. Because it runs on the serve goroutine, f
// must not block or call back into Session in a way that would deadlock
// (sending another stanza is fine; waiting on Events() is not).
func (s *Session) OnEvent(f func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEvt = append(s.onEvt, f)
}

func (s *Session) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
	}
	s.mu.Lock()
	handlers := make([]func(Event), len(s.onEvt))
	copy(handlers, s.onEvt)
	s.mu.Unlock()
	for _, h := range handlers {
		h(ev)
	}
}

// SetWriter installs the token writer Session uses to send stanzas and SM
// acks/requests. The Transport calls this once its connection (or
// reconnection) is ready for writing, before Session begins reading
// inbound stanzas from it.
func (s *Session) SetWriter(w xmlstream.TokenWriter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w = w
}

func (s *Session) writer() xmlstream.TokenWriter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w
}

// Connect brings the transport up, resuming stream management if
// SessionStore has saved state for this origin, and emits EventOnline.
func (s *Session) Connect(ctx context.Context) error {
	s.emit(Event{Kind: EventConnecting})
	if err := s.transport.Ensure(ctx); err != nil {
		return err
	}
	if s.cfg.Store != nil {
		if state, ok := s.cfg.Store.LoadSmState(ctx); ok {
			if err := s.sm.RequestResume(s.writer(), state); err != nil {
				return err
			}
		}
	}
	s.reconnect.OnOnline()
	s.emit(Event{Kind: EventOnline})
	return nil
}

// Disconnect tears the transport down and suppresses any further
// reconnect attempts until Reconnect is called.
func (s *Session) Disconnect() error {
	s.reconnect.ManualDisconnect()
	s.sm.MarkDisconnected()
	err := s.transport.Stop()
	s.emit(Event{Kind: EventOffline})
	return err
}

// HandleXMPP implements xmpp.Handler, receiving every inbound stanza and
// top-level stream child from the underlying Transport's stream engine.
// It is the single entry point through which StreamManager counters,
// IqCorrelator resolution, IqCallee dispatch, and StanzaRouter dispatch
// all run on one goroutine, preserving delivery order.
func (s *Session) HandleXMPP(t xmlstream.TokenReadEncoder, start *xml.StartElement) error {
	ctx := context.Background()
	w := t

	if start.Name.Space == smNS {
		return s.handleSM(w, *start)
	}

	s.sm.OnInbound(w)

	switch start.Name.Local {
	case "iq":
		return s.handleIQ(ctx, w, *start, xmlstream.Inner(t))
	case "message", "presence":
		_, err := s.router.Dispatch(ctx, w, *start, xmlstream.Inner(t))
		return err
	}
	_, err := s.router.Dispatch(ctx, w, *start, xmlstream.Inner(t))
	return err
}

func (s *Session) handleSM(w xmlstream.TokenWriter, start xml.StartElement) error {
	switch start.Local {
	case "enabled":
		s.sm.HandleEnabled(start)
	case "resumed":
		resend, err := s.sm.HandleResumed(start)
		if err != nil {
			return err
		}
		for _, payload := range resend {
			if _, err := xmlstream.Copy(w, payload); err != nil {
				return err
			}
		}
	case "r":
		return s.sm.Ack(w)
	case "a":
		return s.sm.HandleAck(start)
	case "failed":
		s.sm.Reset()
	}
	return nil
}

func (s *Session) handleIQ(ctx context.Context, w xmlstream.TokenWriter, start xml.StartElement, body xml.TokenReader) error {
	iq, err := parseIQ(start)
	if err != nil {
		return err
	}

	if iq.Type == stanza.ResultIQ || iq.Type == stanza.ErrorIQ {
		if iq.Type == stanza.ErrorIQ {
			_, err := stanza.UnmarshalIQError(body, start)
			se, _ := err.(stanza.Error)
			s.iq.Reject(iq.ID, se)
			return nil
		}
		s.iq.Resolve(iq.ID, body)
		return nil
	}

	var childStart *xml.StartElement
	tok, err := body.Token()
	if se, ok := tok.(xml.StartElement); ok && err == nil {
		childStart = &se
	}

	claimed, err := s.callee.Dispatch(ctx, w, iq, childStart, body)
	if err != nil {
		return err
	}
	if claimed {
		return nil
	}

	claimed, err = s.router.Dispatch(ctx, w, start, body)
	if err != nil {
		return err
	}
	if !claimed {
		se := stanza.Error{Condition: stanza.ServiceUnavailable}
		_, err = xmlstream.Copy(w, iq.Error(se))
	}
	return err
}

func parseIQ(start xml.StartElement) (stanza.IQ, error) {
	iq := stanza.IQ{XMLName: start.Name}
	for _, a := range start.Attr {
		switch a.Name.Local {
		case "id":
			iq.ID = a.Value
		case "to":
			j, err := jid.Parse(a.Value)
			if err != nil {
				return iq, err
			}
			iq.To = &j
		case "from":
			j, err := jid.Parse(a.Value)
			if err != nil {
				return iq, err
			}
			iq.From = &j
		case "type":
			iq.Type = stanza.IQType(a.Value)
		}
	}
	return iq, nil
}

// SendIQ sends iq (with payload as its child) and blocks for a matching
// response, using defaultIqTimeout unless ctx already carries a deadline.
func (s *Session) SendIQ(ctx context.Context, iq stanza.IQ, payload xml.TokenReader) (interface{}, error) {
	timeout := defaultIqTimeout
	if dl, ok := ctx.Deadline(); ok {
		timeout = time.Until(dl)
	}
	return s.iq.Send(ctx, s.writer(), iq, payload, timeout)
}

// Send writes payload to the stream and, if stream management is enabled,
// records it for possible resend after a resume.
func (s *Session) Send(payload xml.TokenReader) error {
	w := s.writer()
	if _, err := xmlstream.Copy(w, payload); err != nil {
		return err
	}
	if err := s.sm.QueueOutbound(payload); err != nil {
		s.emit(Event{Kind: EventStanzaLost, Err: err})
	}
	return nil
}
