// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package chat implements one-to-one and groupchat messaging on top of the
// low-level message stanza: inbound classification of chat states,
// reactions, fastenings, corrections, retractions, and subjects, and
// outbound message construction with stanza ids and reply references.
// Outbound construction attaches neither reply nor attachment fallbacks.
package chat // import "coreim.dev/xmpp/chat"

import (
	"context"
	"encoding/xml"
	"io"

	"github.com/google/uuid"
	"mellium.im/xmlstream"
	"coreim.dev/xmpp/carbons"
	"coreim.dev/xmpp/forward"
	"coreim.dev/xmpp/jid"
	"coreim.dev/xmpp/stanza"
)

// Kind identifies what an inbound message classified as.
type Kind int

const (
	// KindMessage is a plain message, the fallback classification once no
	// more specific extension matched.
	KindMessage Kind = iota
	KindChatState
	KindReaction
	KindFastening
	KindCorrection
	KindRetraction
	KindGroupSubject
)

// Event is the result of classifying a single inbound message.
type Event struct {
	Kind Kind
	From jid.JID
	Type stanza.MessageType
	ID   string
	Body string

	// Carbon reports whether this message arrived wrapped in an XEP-0280
	// carbon copy, and Sent reports whether the carbon was of a message this
	// account sent from another resource (true) or received (false).
	Carbon bool
	Sent   bool

	State      ChatState
	ReactionTo string
	Reactions  []string
	FastenID   string
	ReplaceID  string
	RetractID  string
}

// ChatModule classifies inbound messages and emits one Event per message to
// OnEvent. It does not build outbound messages; Outbound does.
type ChatModule struct {
	// OnEvent is called synchronously, on the dispatching goroutine, for
	// every message ChatModule classifies. It must not block.
	OnEvent func(Event)
}

// NewChatModule returns a ChatModule that reports classified messages to
// onEvent.
func NewChatModule(onEvent func(Event)) *ChatModule {
	return &ChatModule{OnEvent: onEvent}
}

// HandleStanza implements session.StanzaHandler. It claims every message
// stanza (chat's classification chain is the terminal consumer for message
// traffic) and leaves everything else for later handlers.
func (c *ChatModule) HandleStanza(_ context.Context, _ xmlstream.TokenWriter, start xml.StartElement, r xml.TokenReader) (bool, error) {
	if start.Name.Local != "message" {
		return false, nil
	}
	msg, err := messageFromStart(start)
	if err != nil {
		return true, err
	}
	toks, err := readAll(r)
	if err != nil {
		return true, err
	}
	ev := classify(msg, toks)
	if c.OnEvent != nil {
		c.OnEvent(ev)
	}
	return true, nil
}

func messageFromStart(start xml.StartElement) (stanza.Message, error) {
	msg := stanza.Message{XMLName: start.Name}
	for _, a := range start.Attr {
		switch a.Name.Local {
		case "id":
			msg.ID = a.Value
		case "to":
			j, err := jid.Parse(a.Value)
			if err != nil {
				return msg, err
			}
			msg.To = &j
		case "from":
			j, err := jid.Parse(a.Value)
			if err != nil {
				return msg, err
			}
			msg.From = &j
		case "type":
			msg.Type = stanza.MessageType(a.Value)
		}
	}
	return msg, nil
}

func readAll(r xml.TokenReader) ([]xml.Token, error) {
	var toks []xml.Token
	for {
		tok, err := r.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return toks, err
		}
		if tok == nil {
			break
		}
		toks = append(toks, xml.CopyToken(tok))
	}
	return toks, nil
}

func classify(msg stanza.Message, toks []xml.Token) Event {
	if s, e, ok := findChild(toks, carbons.NS, "received"); ok {
		return classifyCarbon(toks[s+1:e], false)
	}
	if s, e, ok := findChild(toks, carbons.NS, "sent"); ok {
		return classifyCarbon(toks[s+1:e], true)
	}
	return classifyDirect(msg, toks)
}

func classifyCarbon(wrapped []xml.Token, sent bool) Event {
	fs, fe, ok := findChild(wrapped, forward.NS, "forwarded")
	if !ok {
		return Event{Kind: KindMessage}
	}
	inner := wrapped[fs+1 : fe]
	ms, me, ok := findChild(inner, "", "message")
	if !ok {
		return Event{Kind: KindMessage}
	}
	innerStart := inner[ms].(xml.StartElement)
	innerMsg, err := messageFromStart(innerStart)
	if err != nil {
		return Event{Kind: KindMessage}
	}
	ev := classifyDirect(innerMsg, inner[ms+1:me])
	ev.Carbon = true
	ev.Sent = sent
	return ev
}

func classifyDirect(msg stanza.Message, toks []xml.Token) Event {
	ev := Event{ID: msg.ID, Type: msg.Type}
	if msg.From != nil {
		ev.From = *msg.From
	}

	for _, state := range []ChatState{StateActive, StateComposing, StatePaused, StateInactive, StateGone} {
		if _, _, ok := findChild(toks, NSChatStates, string(state)); ok {
			ev.Kind = KindChatState
			ev.State = state
			return ev
		}
	}

	if s, e, ok := findChild(toks, NSReactions, "reactions"); ok {
		se := toks[s].(xml.StartElement)
		ev.Kind = KindReaction
		ev.ReactionTo = attrVal(se, "id")
		inner := toks[s+1 : e]
		for _, i := range directChildIndices(inner) {
			rse, ok := inner[i].(xml.StartElement)
			if !ok || rse.Name.Local != "reaction" {
				continue
			}
			end := matchingEnd(inner, i)
			ev.Reactions = append(ev.Reactions, charData(inner[i+1:end]))
		}
		return ev
	}

	if s, e, ok := findChild(toks, NSFasten, "apply-to"); ok {
		se := toks[s].(xml.StartElement)
		ev.FastenID = attrVal(se, "id")
		inner := toks[s+1 : e]
		if rs, _, rok := findChild(inner, NSRetract, "retract"); rok {
			ev.Kind = KindRetraction
			ev.RetractID = attrVal(inner[rs].(xml.StartElement), "id")
			if ev.RetractID == "" {
				ev.RetractID = ev.FastenID
			}
			return ev
		}
		ev.Kind = KindFastening
		return ev
	}

	if s, _, ok := findChild(toks, NSCorrect, "replace"); ok {
		se := toks[s].(xml.StartElement)
		ev.Kind = KindCorrection
		ev.ReplaceID = attrVal(se, "id")
		if bs, be, bok := findChild(toks, "", "body"); bok {
			ev.Body = charData(toks[bs+1 : be])
		}
		return ev
	}

	if s, e, ok := findChild(toks, NSRetract, "retract"); ok {
		ev.Kind = KindRetraction
		ev.RetractID = attrVal(toks[s].(xml.StartElement), "id")
		_ = e
		return ev
	}

	if msg.Type == stanza.GroupChatMessage {
		if s, e, ok := findChild(toks, "", "subject"); ok {
			ev.Kind = KindGroupSubject
			ev.Body = charData(toks[s+1 : e])
			return ev
		}
	}

	if s, e, ok := findChild(toks, "", "body"); ok {
		ev.Body = charData(toks[s+1 : e])
	}
	ev.Kind = KindMessage
	return ev
}

// Outbound builds the payload for a new message: a fresh stanza id (a
// UUIDv4, per this package's convention), an optional XEP-0461 reply
// reference, and the body itself. Build adds no XEP-0428 fallback element,
// so no range of the body is marked as quoted fallback text.
type Outbound struct {
	To      jid.JID
	Type    stanza.MessageType
	Body    string
	ReplyTo *Reply
}

// Build returns the stanza id assigned to the message and the message's
// token reader, ready to send via Session.Send.
func (o Outbound) Build() (string, xml.TokenReader) {
	id := uuid.New().String()
	msg := stanza.Message{ID: id, To: &o.To, Type: o.Type}

	body := xmlstream.Wrap(
		xmlstream.Token(xml.CharData(o.Body)),
		xml.StartElement{Name: xml.Name{Local: "body"}},
	)
	if o.ReplyTo == nil {
		return id, msg.Wrap(body)
	}
	return id, msg.Wrap(xmlstream.MultiReader(o.ReplyTo.TokenReader(), body))
}

func findChild(toks []xml.Token, space, local string) (start, end int, ok bool) {
	for _, i := range directChildIndices(toks) {
		se, isStart := toks[i].(xml.StartElement)
		if !isStart {
			continue
		}
		if (space == "" || se.Name.Space == space) && se.Name.Local == local {
			return i, matchingEnd(toks, i), true
		}
	}
	return 0, 0, false
}

func directChildIndices(toks []xml.Token) []int {
	var idx []int
	i := 0
	for i < len(toks) {
		if _, ok := toks[i].(xml.StartElement); ok {
			idx = append(idx, i)
			i = matchingEnd(toks, i) + 1
			continue
		}
		i++
	}
	return idx
}

func matchingEnd(toks []xml.Token, start int) int {
	depth := 0
	for i := start; i < len(toks); i++ {
		switch toks[i].(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	if len(toks) == 0 {
		return 0
	}
	return len(toks) - 1
}

func charData(toks []xml.Token) string {
	var out []byte
	for _, t := range toks {
		if cd, ok := t.(xml.CharData); ok {
			out = append(out, cd...)
		}
	}
	return string(out)
}

func attrVal(se xml.StartElement, local string) string {
	for _, a := range se.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
