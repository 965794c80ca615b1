package session

import (
	"context"
	"encoding/xml"
	"sync"

	"mellium.im/xmlstream"
	"coreim.dev/xmpp/stanza"
)

// IqHandler answers a single inbound get or set IQ. Its return value is
// interpreted the way spec §4.4 describes IqCallee's dispatch: a nil error
// with a nil payload produces an empty result IQ, a non-nil payload is
// wrapped in the result IQ, and a non-nil error that is a stanza.Error
// produces an error IQ carrying that condition (any other error is
// reported as internal-server-error).
type IqHandler func(ctx context.Context, iq stanza.IQ, start *xml.StartElement, body xml.TokenReader) (xml.TokenReader, error)

type iqKey struct {
	xmlns string
	local string
	typ   stanza.IQType
}

// IqCallee dispatches inbound get/set IQs to a handler keyed by the
// namespace and local name of their first child element plus the IQ type,
// mirroring the lookup disco#info/roster-push/ping handlers need: each XEP
// payload namespace maps to exactly one handler regardless of which module
// registered it.
type IqCallee struct {
	mu       sync.Mutex
	handlers map[iqKey]IqHandler
}

// NewIqCallee returns an empty IqCallee ready for use.
func NewIqCallee() *IqCallee {
	return &IqCallee{handlers: make(map[iqKey]IqHandler)}
}

// Handle registers h to answer get or set IQs whose first child element
// matches xmlns/local. Registering a handler for a key that is already
// registered replaces the previous one, so a module re-registering during
// its own setup is not an error.
func (c *IqCallee) Handle(xmlns, local string, typ stanza.IQType, h IqHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[iqKey{xmlns: xmlns, local: local, typ: typ}] = h
}

// Dispatch looks up a handler for iq's first child element and type, calls
// it, and writes the resulting result or error IQ to w. If iq is itself of
// type result or error, or no handler matches a get/set IQ, Dispatch
// returns false so the caller can fall back to a generic
// service-unavailable response (or, for result/error IQs, to the
// IqCorrelator).
func (c *IqCallee) Dispatch(ctx context.Context, w xmlstream.TokenWriter, iq stanza.IQ, start *xml.StartElement, body xml.TokenReader) (bool, error) {
	if iq.Type != stanza.GetIQ && iq.Type != stanza.SetIQ {
		return false, nil
	}

	key := iqKey{typ: iq.Type}
	if start != nil {
		key.xmlns, key.local = start.Name.Space, start.Name.Local
	}

	c.mu.Lock()
	h, ok := c.handlers[key]
	c.mu.Unlock()
	if !ok {
		return false, nil
	}

	payload, err := h(ctx, iq, start, body)
	if err != nil {
		se, ok := err.(stanza.Error)
		if !ok {
			se = stanza.Error{Condition: stanza.InternalServerError, Text: err.Error()}
		}
		_, werr := xmlstream.Copy(w, iq.Error(se))
		if werr != nil {
			return true, werr
		}
		return true, nil
	}

	_, werr := xmlstream.Copy(w, iq.Result(payload))
	return true, werr
}
