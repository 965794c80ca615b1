package session

import (
	"errors"
	"sync"
	"time"

	"coreim.dev/xmpp/xerr"
)

// maxReconnectAttempts bounds how many consecutive reconnect attempts
// ReconnectController will make before giving up and emitting
// EventReconnectExhausted.
const maxReconnectAttempts = 10

// maxBackoff is the ceiling the exponential backoff delay never exceeds.
const maxBackoff = 120 * time.Second

// SystemState reports what the surrounding runtime (not the stream) is
// doing, so ReconnectController can suppress reconnect attempts the
// network cannot possibly serve (for example while the OS reports no
// network path at all).
type SystemState int

// The states a caller can report via NotifySystemState.
const (
	// SystemOnline means the host believes it has network connectivity.
	SystemOnline SystemState = iota
	// SystemOffline means the host has no network path; ReconnectController
	// suppresses attempts until it is told otherwise.
	SystemOffline
	// SystemSuspended means the host is about to sleep; any in-flight
	// backoff timer is canceled so it does not fire while suspended.
	SystemSuspended
)

// ReconnectController decides whether, and how long to wait before, a
// Session should attempt to reconnect after its transport drops. It
// suppresses retrying altogether for errors that retrying cannot fix
// (stream conflict, authentication failure) and for a manually requested
// disconnect.
type ReconnectController struct {
	mu sync.Mutex

	attempt       int
	suppressed    bool
	manualStop    bool
	systemOffline bool

	// neverOnline latches true once a session's first connection attempt
	// of its lifetime has failed and stays true until a connection
	// actually succeeds; ResetOnline clears it.
	neverOnline bool

	timer *time.Timer
}

// NewReconnectController returns a ReconnectController with a clean attempt
// count.
func NewReconnectController() *ReconnectController {
	return &ReconnectController{}
}

// ManualDisconnect tells the controller the application requested
// disconnection, which suppresses all further reconnect attempts until
// Reset is called.
func (rc *ReconnectController) ManualDisconnect() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.manualStop = true
	rc.cancelTimerLocked()
}

// Reset clears manual-stop suppression and the attempt counter, called
// when the application explicitly asks to reconnect after a manual
// disconnect.
func (rc *ReconnectController) Reset() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.manualStop = false
	rc.suppressed = false
	rc.attempt = 0
}

// OnOnline clears the never-reached-online latch and resets the attempt
// counter, called once a connection actually reaches the online state.
func (rc *ReconnectController) OnOnline() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.attempt = 0
	rc.neverOnline = false
}

// NotifySystemState records the host's reported connectivity state. A
// transition to SystemOffline suppresses attempts; a transition back to
// SystemOnline allows them again but does not itself trigger one.
func (rc *ReconnectController) NotifySystemState(state SystemState) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	switch state {
	case SystemOffline:
		rc.systemOffline = true
		rc.cancelTimerLocked()
	case SystemOnline:
		rc.systemOffline = false
	case SystemSuspended:
		rc.cancelTimerLocked()
	}
}

// NextDelay reports how long to wait before the next reconnect attempt
// given err, the failure that ended the previous attempt (or nil for the
// very first attempt of the session's lifetime). ok is false when no
// further attempt should be made at all (manual disconnect, a
// non-retryable error, the system is reported offline, or the attempt
// budget is exhausted).
func (rc *ReconnectController) NextDelay(err error) (delay time.Duration, ok bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if rc.manualStop || rc.suppressed || rc.systemOffline {
		return 0, false
	}
	if isNonRetryable(err) {
		rc.suppressed = true
		return 0, false
	}
	if err != nil {
		rc.neverOnline = true
	}
	if rc.attempt >= maxReconnectAttempts {
		return 0, false
	}

	rc.attempt++
	ms := int64(1000) << uint(rc.attempt-1)
	d := time.Duration(ms) * time.Millisecond
	if d > maxBackoff {
		d = maxBackoff
	}
	return d, true
}

// isNonRetryable reports whether err represents a condition retrying
// cannot remedy: a stream conflict or a failed authentication.
func isNonRetryable(err error) bool {
	if err == nil {
		return false
	}
	var conflict *xerr.StreamConflictError
	if errors.As(err, &conflict) {
		return true
	}
	return errors.Is(err, xerr.ErrStreamAuthFailed)
}

// Exhausted reports whether the attempt budget has been used up.
func (rc *ReconnectController) Exhausted() bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.attempt >= maxReconnectAttempts
}

// Attempt returns the number of reconnect attempts made so far in the
// current failure episode.
func (rc *ReconnectController) Attempt() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.attempt
}

func (rc *ReconnectController) cancelTimerLocked() {
	if rc.timer != nil {
		rc.timer.Stop()
		rc.timer = nil
	}
}
