// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xmpp

import (
	"context"
	"encoding/xml"
	"fmt"

	"mellium.im/xmlstream"
)

// pendingResp tracks a goroutine blocked in sendResp waiting for a stanza
// with a particular id to come back in on the input stream.
type pendingResp struct {
	respChan chan xml.StartElement
	done     chan struct{}
}

func (s *Session) registerPending(id string) *pendingResp {
	p := &pendingResp{
		respChan: make(chan xml.StartElement, 1),
		done:     make(chan struct{}),
	}
	s.pendingMu.Lock()
	s.pending[id] = p
	s.pendingMu.Unlock()
	return p
}

func (s *Session) removePending(id string) {
	s.pendingMu.Lock()
	delete(s.pending, id)
	s.pendingMu.Unlock()
}

// takePending looks up and removes the pending response waiter for id, if
// any. It must only be called from the single goroutine running Serve.
func (s *Session) takePending(id string) *pendingResp {
	s.pendingMu.Lock()
	p := s.pending[id]
	delete(s.pending, id)
	s.pendingMu.Unlock()
	return p
}

// pendingReader is the xmlstream.TokenReadCloser handed back to a sendResp
// caller. Closing it discards anything the caller didn't read and signals
// handleInputStream's loop that it's safe to resume reading the stream.
type pendingReader struct {
	xml.TokenReader
	done   chan<- struct{}
	closed bool
}

func (p *pendingReader) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	_, err := xmlstream.Copy(xmlstream.Discard(), p.TokenReader)
	close(p.done)
	return err
}

// getIDTyp scans a start element's attributes for unprefixed "id" and "type"
// attributes, returning their index (or -1 if absent) alongside their values.
func getIDTyp(attrs []xml.Attr) (idIdx, typIdx int, id, typ string) {
	idIdx, typIdx = -1, -1
	for i, a := range attrs {
		if a.Name.Space != "" {
			continue
		}
		switch a.Name.Local {
		case "id":
			idIdx = i
			id = a.Value
		case "type":
			typIdx = i
			typ = a.Value
		}
	}
	return idIdx, typIdx, id, typ
}

// SendElement writes start and payload to the session without expecting or
// waiting for a response.
//
// SendElement is safe for concurrent use by multiple goroutines.
func (s *Session) SendElement(ctx context.Context, payload xml.TokenReader, start xml.StartElement) error {
	_, err := xmlstream.Copy(s, xmlstream.Wrap(payload, start))
	if err != nil {
		return err
	}
	return s.Flush()
}

// sendResp sends start and payload, then blocks until a stanza with a
// matching id is read off the input stream (or ctx is canceled).
//
// The returned reader, if non-nil, starts at the response's own start
// element and must be closed before the session can continue processing
// the input stream.
func (s *Session) sendResp(ctx context.Context, id string, payload xml.TokenReader, start xml.StartElement) (xmlstream.TokenReadCloser, error) {
	p := s.registerPending(id)
	if err := s.SendElement(ctx, payload, start); err != nil {
		s.removePending(id)
		return nil, err
	}

	select {
	case <-ctx.Done():
		s.removePending(id)
		return nil, ctx.Err()
	case <-s.in.ctx.Done():
		s.removePending(id)
		return nil, s.in.ctx.Err()
	case respStart := <-p.respChan:
		return &pendingReader{
			TokenReader: xmlstream.Wrap(xmlstream.Inner(s), respStart),
			done:        p.done,
		}, nil
	}
}

// Send writes the stanza produced by r, blocking until a response is
// received if r begins with an IQ, message, or presence start element of a
// type that expects one.
//
// Send is safe for concurrent use by multiple goroutines.
func (s *Session) Send(ctx context.Context, r xml.TokenReader) (xmlstream.TokenReadCloser, error) {
	tok, err := r.Token()
	if err != nil {
		return nil, err
	}
	start, ok := tok.(xml.StartElement)
	if !ok {
		return nil, fmt.Errorf("xmpp: expected a stanza start element, got %T", tok)
	}

	rest := xmlstream.Wrap(xmlstream.Inner(r), start)
	switch {
	case isIQEmptySpace(start.Name):
		return s.SendIQ(ctx, rest)
	case isMessageEmptySpace(start.Name):
		return s.SendMessage(ctx, rest)
	case isPresenceEmptySpace(start.Name):
		return s.SendPresence(ctx, rest)
	default:
		return nil, s.SendElement(ctx, xmlstream.Inner(r), start)
	}
}
