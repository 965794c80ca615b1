package session

import (
	"context"
	"encoding/xml"
	"sync"

	"mellium.im/xmlstream"
)

// StanzaHandler offers a single registered module the chance to claim an
// inbound stanza. It returns claimed=true once it has fully handled the
// stanza (including writing any reply), so later handlers are skipped.
type StanzaHandler interface {
	HandleStanza(ctx context.Context, w xmlstream.TokenWriter, start xml.StartElement, r xml.TokenReader) (claimed bool, err error)
}

// StanzaHandlerFunc adapts a function to a StanzaHandler.
type StanzaHandlerFunc func(ctx context.Context, w xmlstream.TokenWriter, start xml.StartElement, r xml.TokenReader) (bool, error)

// HandleStanza calls f.
func (f StanzaHandlerFunc) HandleStanza(ctx context.Context, w xmlstream.TokenWriter, start xml.StartElement, r xml.TokenReader) (bool, error) {
	return f(ctx, w, start, r)
}

// StanzaRouter offers each inbound stanza to its registered modules in
// registration order, stopping at the first one that claims it. Unlike
// mux.ServeMux's name-to-handler table, order (not the stanza's XML name)
// determines precedence, because a single stanza (an incoming MUC
// <message/>, say) is often relevant to more than one module and the
// modules themselves, not the router, decide who owns it.
type StanzaRouter struct {
	mu       sync.Mutex
	handlers []StanzaHandler
}

// NewStanzaRouter returns an empty StanzaRouter ready for use.
func NewStanzaRouter() *StanzaRouter {
	return &StanzaRouter{}
}

// Register appends h to the end of the dispatch chain.
func (sr *StanzaRouter) Register(h StanzaHandler) {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	sr.handlers = append(sr.handlers, h)
}

// Dispatch offers start/r to each registered handler in order until one
// claims it, returning whether any handler did.
func (sr *StanzaRouter) Dispatch(ctx context.Context, w xmlstream.TokenWriter, start xml.StartElement, r xml.TokenReader) (bool, error) {
	sr.mu.Lock()
	handlers := make([]StanzaHandler, len(sr.handlers))
	copy(handlers, sr.handlers)
	sr.mu.Unlock()

	for _, h := range handlers {
		claimed, err := h.HandleStanza(ctx, w, start, r)
		if err != nil {
			return claimed, err
		}
		if claimed {
			return true, nil
		}
	}
	return false, nil
}
