// Package xerr defines the typed error taxonomy used across the session,
// chat, muc, and mam packages. Each error knows which layer raised it so
// that callers can use errors.As to recover structured detail (a stanza
// error, a deadline, a retry count) instead of matching on strings.
package xerr

import (
	"errors"
	"fmt"
	"time"

	"coreim.dev/xmpp/stanza"
)

// ErrStreamAuthFailed is returned when the server rejects credentials during
// SASL negotiation. It is a sentinel rather than a struct because no
// additional detail survives a failed authentication beyond the fact that
// it failed.
var ErrStreamAuthFailed = errors.New("xerr: stream authentication failed")

// TransportStartupError is returned when a Transport fails to establish its
// underlying connection (TCP dial, WebSocket handshake, or TLS handshake)
// before a session has ever reached the online state.
type TransportStartupError struct {
	Addr string
	Err  error
}

func (e *TransportStartupError) Error() string {
	return fmt.Sprintf("xerr: transport startup failed for %s: %v", e.Addr, e.Err)
}

func (e *TransportStartupError) Unwrap() error { return e.Err }

// StreamConflictError is returned when the server closes the stream with a
// <conflict/> stream error, indicating another resource has taken over the
// same full JID. The reconnect controller treats this as non-retryable.
type StreamConflictError struct {
	Err error
}

func (e *StreamConflictError) Error() string {
	return fmt.Sprintf("xerr: stream closed due to conflict: %v", e.Err)
}

func (e *StreamConflictError) Unwrap() error { return e.Err }

// StreamClosedUnexpectedError is returned when the underlying stream closes
// without a clean </stream:stream> exchange having been requested locally.
type StreamClosedUnexpectedError struct {
	Err error
}

func (e *StreamClosedUnexpectedError) Error() string {
	return fmt.Sprintf("xerr: stream closed unexpectedly: %v", e.Err)
}

func (e *StreamClosedUnexpectedError) Unwrap() error { return e.Err }

// InitialConnectionError is returned when the very first connection attempt
// of a session's lifetime fails. Unlike later reconnects, there is no prior
// online state to preserve, so callers typically treat this as fatal rather
// than something to retry silently in the background.
type InitialConnectionError struct {
	Err error
}

func (e *InitialConnectionError) Error() string {
	return fmt.Sprintf("xerr: initial connection failed: %v", e.Err)
}

func (e *InitialConnectionError) Unwrap() error { return e.Err }

// IqTimeoutError is returned by the IQ correlator when no response arrives
// before an outstanding request's deadline.
type IqTimeoutError struct {
	ID       string
	Deadline time.Time
}

func (e *IqTimeoutError) Error() string {
	return fmt.Sprintf("xerr: iq %q timed out waiting for a response (deadline %s)", e.ID, e.Deadline.Format(time.RFC3339))
}

// IqError is returned by the IQ correlator when the peer responds with an
// <iq type='error'/>. It carries the stanza error so callers can inspect
// the condition (errors.As).
type IqError struct {
	ID    string
	Cause stanza.Error
}

func (e *IqError) Error() string {
	return fmt.Sprintf("xerr: iq %q returned an error: %s", e.ID, e.Cause.Error())
}

func (e *IqError) Unwrap() error { return e.Cause }

// JoinTimeoutError is returned when a MUC join does not reach the joined
// state (self-presence with status code 110) before its deadline, after
// exhausting retries.
type JoinTimeoutError struct {
	Room     string
	Attempts int
}

func (e *JoinTimeoutError) Error() string {
	return fmt.Sprintf("xerr: join of %s timed out after %d attempt(s)", e.Room, e.Attempts)
}

// MamPageTimeoutError is returned when an archive query's fin element does
// not arrive before the query's deadline.
type MamPageTimeoutError struct {
	QueryID string
}

func (e *MamPageTimeoutError) Error() string {
	return fmt.Sprintf("xerr: mam query %q timed out waiting for page completion", e.QueryID)
}

// MamServerError is returned when the archiving server reports an error
// mid-query (an <iq type='error'/> in response to the query set, or a
// <fin/> lacking the expected attributes).
type MamServerError struct {
	QueryID string
	Err     error
}

func (e *MamServerError) Error() string {
	return fmt.Sprintf("xerr: mam query %q failed: %v", e.QueryID, e.Err)
}

func (e *MamServerError) Unwrap() error { return e.Err }

// DeadSocketError is returned when a write to the transport fails in a way
// that indicates the underlying socket is no longer usable, distinguishing
// a transport fault from a protocol-level error that leaves the stream
// otherwise intact.
type DeadSocketError struct {
	Err error
}

func (e *DeadSocketError) Error() string {
	return fmt.Sprintf("xerr: socket is dead: %v", e.Err)
}

func (e *DeadSocketError) Unwrap() error { return e.Err }
