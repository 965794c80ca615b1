package session

import (
	"encoding/xml"
	"fmt"
	"sync"
	"time"

	"mellium.im/xmlstream"
)

// smNS is the XEP-0198 Stream Management namespace.
const smNS = "urn:xmpp:sm:3"

// ackDebounce is how long StreamManager waits after an inbound stanza
// before requesting an ack, coalescing bursts of traffic into one <r/>
// instead of one per stanza.
const ackDebounce = 250 * time.Millisecond

// maxAckQueue bounds how many unacked outbound stanzas StreamManager will
// retain for possible resend after a resume. Once exceeded, the oldest
// entries are dropped and reported via the sentinel returned from
// QueueOutbound so the caller can emit EventStanzaLost.
const maxAckQueue = 1024

// ErrAckQueueOverflow is returned by QueueOutbound when queuing an outbound
// stanza required evicting older, still-unacked stanzas to stay within
// maxAckQueue.
type ackQueueOverflow struct {
	evicted int
}

func (e *ackQueueOverflow) Error() string {
	return fmt.Sprintf("session: ack queue overflow, evicted %d stanza(s)", e.evicted)
}

type queuedStanza struct {
	h       uint32
	payload xml.TokenReader
}

// StreamManager implements XEP-0198 Stream Management: it tracks the
// number of stanzas handled in each direction, requests and answers acks,
// and keeps the tail of unacknowledged outbound stanzas so a resumed
// stream can resend whatever the server never acked.
type StreamManager struct {
	mu sync.Mutex

	enabled  bool
	resumeID string
	location string

	inbound  uint32
	outbound uint32
	acked    uint32

	// resumeCompleted is set once an <enabled/> or successful <resumed/> has
	// been processed, and cleared the moment the transport drops. Its value
	// when the transport drops again distinguishes "we never got far enough
	// to lose anything" from "we have genuinely unacked stanzas".
	resumeCompleted bool

	queue []queuedStanza

	ackTimer *time.Timer
}

// NewStreamManager returns a StreamManager with no session management
// state enabled.
func NewStreamManager() *StreamManager {
	return &StreamManager{}
}

// Reset clears all negotiated state, called when a brand new (non-resumed)
// stream is established.
func (sm *StreamManager) Reset() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	*sm = StreamManager{}
}

// RequestEnable writes an <enable/> request to w.
func (sm *StreamManager) RequestEnable(w xmlstream.TokenWriter, resume bool) error {
	_, err := xmlstream.Copy(w, xmlstream.Wrap(nil, xml.StartElement{
		Name: xml.Name{Space: smNS, Local: "enable"},
		Attr: []xml.Attr{{Name: xml.Name{Local: "resume"}, Value: fmt.Sprintf("%t", resume)}},
	}))
	return err
}

// HandleEnabled records the id/location attributes from a server's
// <enabled/> response and marks the session resumable.
func (sm *StreamManager) HandleEnabled(start xml.StartElement) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.enabled = true
	sm.resumeCompleted = true
	for _, a := range start.Attr {
		switch a.Name.Local {
		case "id":
			sm.resumeID = a.Value
		case "location":
			sm.location = a.Value
		}
	}
}

// RequestResume writes a <resume/> request for the previously saved
// SmState to w.
func (sm *StreamManager) RequestResume(w xmlstream.TokenWriter, state SmState) error {
	_, err := xmlstream.Copy(w, xmlstream.Wrap(nil, xml.StartElement{
		Name: xml.Name{Space: smNS, Local: "resume"},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "h"}, Value: fmt.Sprintf("%d", state.Inbound)},
			{Name: xml.Name{Local: "previd"}, Value: state.ID},
		},
	}))
	return err
}

// HandleResumed processes a server's <resumed h='...'/> response: it marks
// the session resumed, acks outbound stanzas up to h, and returns the
// stanzas still in the queue (unacked) so the caller can resend them in
// order.
func (sm *StreamManager) HandleResumed(start xml.StartElement) ([]xml.TokenReader, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	var h uint32
	for _, a := range start.Attr {
		if a.Name.Local == "h" {
			if _, err := fmt.Sscanf(a.Value, "%d", &h); err != nil {
				return nil, fmt.Errorf("session: malformed resumed/@h: %w", err)
			}
		}
	}
	sm.resumeCompleted = true
	sm.ackLocked(h)

	resend := make([]xml.TokenReader, 0, len(sm.queue))
	for _, q := range sm.queue {
		resend = append(resend, q.payload)
	}
	return resend, nil
}

// ResumeCompleted reports whether the most recent enable/resume attempt
// reached a point where the server has acknowledged state (so a later
// transport failure means real, in-flight stanzas may have been lost)
// versus the attempt never having gotten that far (nothing was lost,
// because nothing was ever believed sent under SM).
func (sm *StreamManager) ResumeCompleted() bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.resumeCompleted
}

// MarkDisconnected clears resumeCompleted so a subsequent HandleEnabled or
// HandleResumed call is required before ResumeCompleted reports true
// again, reflecting that the transport under the current counters is gone.
func (sm *StreamManager) MarkDisconnected() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.resumeCompleted = false
}

// State returns the current SmState snapshot suitable for persisting via a
// SessionStore.
func (sm *StreamManager) State() SmState {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return SmState{ID: sm.resumeID, Location: sm.location, Inbound: sm.inbound, Outbound: sm.outbound}
}

// Enabled reports whether stream management is currently active.
func (sm *StreamManager) Enabled() bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.enabled
}

// OnInbound records that one more stanza has been received from the peer
// and schedules a debounced ack request on w; repeated calls within
// ackDebounce coalesce into a single <r/>.
func (sm *StreamManager) OnInbound(w xmlstream.TokenWriter) {
	sm.mu.Lock()
	sm.inbound++
	if !sm.enabled {
		sm.mu.Unlock()
		return
	}
	if sm.ackTimer == nil {
		sm.ackTimer = time.AfterFunc(ackDebounce, func() {
			sm.mu.Lock()
			sm.ackTimer = nil
			sm.mu.Unlock()
			_, _ = xmlstream.Copy(w, xmlstream.Wrap(nil, xml.StartElement{
				Name: xml.Name{Space: smNS, Local: "r"},
			}))
		})
	}
	sm.mu.Unlock()
}

// Ack writes the current inbound count to w in response to a peer's ack
// request (<r/>).
func (sm *StreamManager) Ack(w xmlstream.TokenWriter) error {
	sm.mu.Lock()
	h := sm.inbound
	sm.mu.Unlock()
	_, err := xmlstream.Copy(w, xmlstream.Wrap(nil, xml.StartElement{
		Name: xml.Name{Space: smNS, Local: "a"},
		Attr: []xml.Attr{{Name: xml.Name{Local: "h"}, Value: fmt.Sprintf("%d", h)}},
	}))
	return err
}

// HandleAck processes a peer's <a h='...'/>, evicting acknowledged
// stanzas from the resend queue.
func (sm *StreamManager) HandleAck(start xml.StartElement) error {
	var h uint32
	for _, a := range start.Attr {
		if a.Name.Local == "h" {
			if _, err := fmt.Sscanf(a.Value, "%d", &h); err != nil {
				return fmt.Errorf("session: malformed a/@h: %w", err)
			}
		}
	}
	sm.mu.Lock()
	sm.ackLocked(h)
	sm.mu.Unlock()
	return nil
}

func (sm *StreamManager) ackLocked(h uint32) {
	sm.acked = h
	i := 0
	for ; i < len(sm.queue); i++ {
		if sm.queue[i].h > h {
			break
		}
	}
	sm.queue = sm.queue[i:]
}

// QueueOutbound records payload as sent under stream management, returning
// an error (non-fatal — the stanza was still sent) if retaining it
// required evicting older unacked stanzas to stay within maxAckQueue.
func (sm *StreamManager) QueueOutbound(payload xml.TokenReader) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if !sm.enabled {
		return nil
	}
	sm.outbound++
	sm.queue = append(sm.queue, queuedStanza{h: sm.outbound, payload: payload})
	if len(sm.queue) <= maxAckQueue {
		return nil
	}
	evicted := len(sm.queue) - maxAckQueue
	sm.queue = sm.queue[evicted:]
	return &ackQueueOverflow{evicted: evicted}
}
