// Package mam implements the reconciliation layer on top of the archive
// wire protocol in history/ (XEP-0313 queries, forwarded results, and
// <fin/> metadata): auto-pagination past archive pages that contain no
// displayable content, deferred application of late-arriving retractions,
// corrections, and reactions, bounded-concurrency preview refresh, and
// missed-message catch-up after a reconnect.
package mam

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sync/semaphore"
	"coreim.dev/xmpp"
	"coreim.dev/xmpp/history"
	"coreim.dev/xmpp/jid"
	"coreim.dev/xmpp/stanza"
	"coreim.dev/xmpp/xerr"
)

// maxAutoPages bounds how many additional pages Query fetches, beyond the
// caller's first page, while every page so far has contained zero
// displayable messages.
const maxAutoPages = 5

// defaultPreviewConcurrency bounds how many RefreshPreviews calls run at
// once when the caller does not override it.
const defaultPreviewConcurrency = 3

// catchupForwardCap bounds how many messages a forward (start-filtered)
// catch-up query will return.
const catchupForwardCap = 100

// catchupBackwardPageCap bounds how many pages a backward, overlap-detecting
// room catch-up query will walk before giving up.
const catchupBackwardPageCap = 10

// ModKind identifies what a Modification does to a previously archived
// message.
type ModKind int

const (
	// ModRetract removes a previously archived message (XEP-0424).
	ModRetract ModKind = iota
	// ModReplace supersedes a previously archived message with new content
	// (XEP-0308).
	ModReplace
	// ModApplyTo attaches a fastening (XEP-0422) to a previously archived
	// message, used as the carrier for reactions and some retractions.
	ModApplyTo
	// ModReaction updates the reaction set (XEP-0444) on a previously
	// archived message.
	ModReaction
)

// Modification is a change to a message that may arrive, live, before the
// message it targets has finished being fetched from the archive. MamModule
// buffers these per query and applies them when Query returns, after the
// <fin/> of the last page it fetched, whether or not that page was marked
// complete: applying immediately would either race the archive fetch or
// require re-fetching, where deferring until then lets the whole batch
// settle in one pass.
type Modification struct {
	Kind     ModKind
	TargetID string
	From     jid.JID
	Payload  xml.TokenReader
}

// Message is a single archived message after reconciliation: its raw
// forwarded content, whether it carries displayable content (a <body>),
// and any modifications that were buffered for it and have now been
// applied.
type Message struct {
	ID          string
	Displayable bool
	Retracted   bool
	Raw         []xml.Token
	Reactions   []Modification
	Replacement *Modification
}

// MamModule owns the archive handler and the buffer of live modifications
// awaiting an in-flight query's completion.
type MamModule struct {
	h   *history.Handler
	sem *semaphore.Weighted

	mu   sync.Mutex
	mods map[string][]Modification
}

// NewMamModule returns a MamModule built on h, the low-level archive
// message handler, with the default preview-refresh concurrency bound.
func NewMamModule(h *history.Handler) *MamModule {
	return &MamModule{
		h:    h,
		sem:  semaphore.NewWeighted(defaultPreviewConcurrency),
		mods: make(map[string][]Modification),
	}
}

// BufferModification records m as pending against queryID, to be applied
// once that query's results are reconciled. Call this from ChatModule when
// a live retraction/correction/fastening arrives referencing a message id
// while a matching archive query is outstanding.
func (m *MamModule) BufferModification(queryID string, mod Modification) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mods[queryID] = append(m.mods[queryID], mod)
}

func (m *MamModule) takeModifications(queryID string) []Modification {
	m.mu.Lock()
	defer m.mu.Unlock()
	mods := m.mods[queryID]
	delete(m.mods, queryID)
	return mods
}

// Query fetches filter from to, automatically requesting further pages (up
// to maxAutoPages beyond the first) as long as every page fetched so far
// contained zero displayable messages, so a room whose most recent history
// is all join/leave presence churn still surfaces real content to the
// caller instead of an empty page. Modifications buffered against
// filter.ID while the query was in flight are applied to the returned
// messages before Query returns.
func (m *MamModule) Query(ctx context.Context, s *xmpp.Session, to jid.JID, filter history.Query) ([]Message, history.Result, error) {
	if filter.ID == "" {
		filter.ID = fmt.Sprintf("mam-%p-%d", s, len(m.mods))
	}
	queryID := filter.ID

	var (
		messages []Message
		res      history.Result
	)
	for page := 0; page <= maxAutoPages; page++ {
		pageMsgs, pageRes, err := m.fetchOnce(ctx, s, to, filter)
		if err != nil {
			return nil, history.Result{}, &xerr.MamServerError{QueryID: queryID, Err: err}
		}
		messages = append(messages, pageMsgs...)
		res = pageRes

		if anyDisplayable(pageMsgs) || res.Complete || len(pageMsgs) == 0 {
			break
		}
		// Page had messages but none displayable (all presence/state churn);
		// page further back before giving up, per spec's auto-pagination.
		filter.BeforeID = pageMsgs[0].ID
	}

	mods := m.takeModifications(queryID)
	applyModifications(messages, mods)
	return messages, res, nil
}

func (m *MamModule) fetchOnce(ctx context.Context, s *xmpp.Session, to jid.JID, filter history.Query) ([]Message, history.Result, error) {
	iter := m.h.FetchIQ(ctx, filter, stanza.IQ{To: &to}, s)
	defer iter.Close()

	var out []Message
	for iter.Next() {
		toks, displayable, id, err := collect(iter.Current())
		if err != nil {
			return nil, history.Result{}, err
		}
		out = append(out, Message{ID: id, Displayable: displayable, Raw: toks})
	}
	if err := iter.Err(); err != nil {
		return nil, history.Result{}, err
	}
	return out, iter.Result(), nil
}

func anyDisplayable(msgs []Message) bool {
	for _, msg := range msgs {
		if msg.Displayable {
			return true
		}
	}
	return false
}

// applyModifications mutates msgs in place: retractions mark their target
// retracted, replacements and reactions attach to their target by id. A
// modification whose target is not in msgs (it landed in an earlier page,
// or targets a message this query never fetched) is simply dropped — the
// live ChatModule view, not the archive replay, is authoritative for
// messages outside the page being reconciled.
func applyModifications(msgs []Message, mods []Modification) {
	byID := make(map[string]int, len(msgs))
	for i, msg := range msgs {
		byID[msg.ID] = i
	}
	for _, mod := range mods {
		i, ok := byID[mod.TargetID]
		if !ok {
			continue
		}
		switch mod.Kind {
		case ModRetract:
			msgs[i].Retracted = true
		case ModReplace:
			modCopy := mod
			msgs[i].Replacement = &modCopy
		case ModApplyTo, ModReaction:
			msgs[i].Reactions = append(msgs[i].Reactions, mod)
		}
	}
}

// RefreshPreviews calls refresh for each room concurrently, bounded by
// MamModule's preview-refresh semaphore, so a bookmark list with many
// rooms does not open one archive query per room simultaneously.
func (m *MamModule) RefreshPreviews(ctx context.Context, rooms []jid.JID, refresh func(ctx context.Context, room jid.JID) error) error {
	var (
		wg       sync.WaitGroup
		firstErr error
		errOnce  sync.Once
	)
	for _, room := range rooms {
		if err := m.sem.Acquire(ctx, 1); err != nil {
			errOnce.Do(func() { firstErr = err })
			break
		}
		wg.Add(1)
		go func(room jid.JID) {
			defer wg.Done()
			defer m.sem.Release(1)
			if err := refresh(ctx, room); err != nil {
				errOnce.Do(func() { firstErr = err })
			}
		}(room)
	}
	wg.Wait()
	return firstErr
}

// Catchup fetches messages missed while disconnected. For a 1:1
// conversation it queries forward from lastKnownID, capped at
// catchupForwardCap messages. For a room (isRoom) it queries backward from
// the present and stops once it observes lastKnownID (overlap with
// already-known history) or catchupBackwardPageCap pages have been walked,
// whichever comes first, since a room's archive has no guarantee the
// client's last known id is still the most recent message before the gap.
func (m *MamModule) Catchup(ctx context.Context, s *xmpp.Session, to jid.JID, lastKnownID string, isRoom bool) ([]Message, error) {
	if !isRoom {
		filter := history.Query{AfterID: lastKnownID}
		msgs, _, err := m.Query(ctx, s, to, filter)
		if err != nil {
			return nil, err
		}
		if len(msgs) > catchupForwardCap {
			msgs = msgs[:catchupForwardCap]
		}
		return msgs, nil
	}

	var (
		all    []Message
		before string
	)
	for page := 0; page < catchupBackwardPageCap; page++ {
		filter := history.Query{BeforeID: before}
		msgs, res, err := m.fetchOnce(ctx, s, to, filter)
		if err != nil {
			return nil, &xerr.MamServerError{QueryID: filter.ID, Err: err}
		}
		overlap := false
		for _, msg := range msgs {
			if msg.ID == lastKnownID {
				overlap = true
				break
			}
			all = append(all, msg)
		}
		if overlap || res.Complete || len(msgs) == 0 {
			break
		}
		before = msgs[len(msgs)-1].ID
	}
	return all, nil
}

// collect reads r to completion, returning its raw tokens, whether a
// <body/> element appears anywhere in it (the message carries displayable
// content rather than being pure chat-state/receipt churn), and the
// archived stanza id taken from the outer <result id='...'/> wrapper if
// present.
func collect(r xml.TokenReader) (toks []xml.Token, displayable bool, id string, err error) {
	for {
		tok, terr := r.Token()
		if terr == io.EOF {
			break
		}
		if terr != nil {
			return nil, false, "", terr
		}
		tok = xml.CopyToken(tok)
		toks = append(toks, tok)
		if start, ok := tok.(xml.StartElement); ok {
			if start.Name.Local == "body" {
				displayable = true
			}
			if start.Name.Local == "result" && id == "" {
				for _, a := range start.Attr {
					if a.Name.Local == "id" {
						id = a.Value
					}
				}
			}
		}
	}
	return toks, displayable, id, nil
}
