package session

import (
	"context"
	"encoding/xml"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"mellium.im/xmlstream"
	"coreim.dev/xmpp/stanza"
	"coreim.dev/xmpp/xerr"
)

// IqCorrelator matches outbound IQs with their eventual response, the way
// the teacher's own session.go tracked pendingResp keyed by id, but with an
// explicit deadline and resolver per spec's PendingIq contract instead of a
// bare channel.
type IqCorrelator struct {
	mu      sync.Mutex
	pending map[string]*PendingIq
}

// NewIqCorrelator returns an empty IqCorrelator ready for use.
func NewIqCorrelator() *IqCorrelator {
	return &IqCorrelator{pending: make(map[string]*PendingIq)}
}

// Send writes iq (already addressed and typed get/set) followed by payload,
// assigning a fresh UUID if iq.ID is empty, and blocks until a response
// arrives, ctx is canceled, or the default timeout elapses.
func (c *IqCorrelator) Send(ctx context.Context, w xmlstream.TokenWriter, iq stanza.IQ, payload xml.TokenReader, timeout time.Duration) (interface{}, error) {
	if iq.ID == "" {
		iq.ID = uuid.New().String()
	}
	deadline := time.Now().Add(timeout)

	result := make(chan IqResult, 1)
	p := &PendingIq{
		ID:       iq.ID,
		Deadline: deadline,
		resolver: func(r IqResult) { result <- r },
	}
	c.mu.Lock()
	c.pending[iq.ID] = p
	c.mu.Unlock()

	if _, err := xmlstream.Copy(w, iq.Wrap(payload)); err != nil {
		c.delete(iq.ID)
		return nil, fmt.Errorf("session: writing iq %q: %w", iq.ID, err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-result:
		return r.Payload, r.Err
	case <-timer.C:
		c.delete(iq.ID)
		return nil, &xerr.IqTimeoutError{ID: iq.ID, Deadline: deadline}
	case <-ctx.Done():
		c.delete(iq.ID)
		return nil, ctx.Err()
	}
}

// Resolve delivers a successful response to the pending IQ with the given
// id, if one is outstanding, and reports whether it found one.
func (c *IqCorrelator) Resolve(id string, payload interface{}) bool {
	p := c.take(id)
	if p == nil {
		return false
	}
	p.resolver(IqResult{Payload: payload})
	return true
}

// Reject delivers a stanza error to the pending IQ with the given id, if
// one is outstanding, and reports whether it found one.
func (c *IqCorrelator) Reject(id string, se stanza.Error) bool {
	p := c.take(id)
	if p == nil {
		return false
	}
	p.resolver(IqResult{Err: &xerr.IqError{ID: id, Cause: se}})
	return true
}

// ExpireBefore resolves every pending IQ whose deadline is before now with
// an IqTimeoutError, returning the number expired. A StanzaRouter's idle
// tick (or StreamManager's reconnection handling) calls this so requests
// left pending across a dead transport do not hang forever.
func (c *IqCorrelator) ExpireBefore(now time.Time) int {
	c.mu.Lock()
	var expired []*PendingIq
	for id, p := range c.pending {
		if p.Deadline.Before(now) {
			expired = append(expired, p)
			delete(c.pending, id)
		}
	}
	c.mu.Unlock()

	for _, p := range expired {
		p.resolver(IqResult{Err: &xerr.IqTimeoutError{ID: p.ID, Deadline: p.Deadline}})
	}
	return len(expired)
}

func (c *IqCorrelator) take(id string) *PendingIq {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.pending[id]
	delete(c.pending, id)
	return p
}

func (c *IqCorrelator) delete(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}
