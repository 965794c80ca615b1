// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package chat

import (
	"encoding/xml"
	"strconv"

	"mellium.im/xmlstream"
	"coreim.dev/xmpp/jid"
)

// Namespaces for the message extensions ChatModule understands, provided as
// a convenience.
const (
	NSChatStates = `http://jabber.org/protocol/chatstates`
	NSReactions  = `urn:xmpp:reactions:0`
	NSFasten     = `urn:xmpp:fasten:0`
	NSCorrect    = `urn:xmpp:message-correct:0`
	NSRetract    = `urn:xmpp:message-retract:1`
	NSReply      = `urn:xmpp:reply:0`
	NSFallback   = `urn:xmpp:fallback:0`
)

// ChatState is one of the five states defined by XEP-0085.
type ChatState string

const (
	StateActive    ChatState = "active"
	StateComposing ChatState = "composing"
	StatePaused    ChatState = "paused"
	StateInactive  ChatState = "inactive"
	StateGone      ChatState = "gone"
)

func isChatState(local string) bool {
	switch ChatState(local) {
	case StateActive, StateComposing, StatePaused, StateInactive, StateGone:
		return true
	}
	return false
}

// TokenReader marshals the chat state as a message child element.
func (cs ChatState) TokenReader() xml.TokenReader {
	return xmlstream.Wrap(nil, xml.StartElement{
		Name: xml.Name{Space: NSChatStates, Local: string(cs)},
	})
}

// Reactions is the XEP-0444 reaction set applied to the message with id To.
type Reactions struct {
	To     string
	Emoji  []string
}

// TokenReader marshals the reaction set as a message child element.
func (r Reactions) TokenReader() xml.TokenReader {
	var readers []xml.TokenReader
	for _, e := range r.Emoji {
		readers = append(readers, xmlstream.Wrap(
			xmlstream.Token(xml.CharData(e)),
			xml.StartElement{Name: xml.Name{Space: NSReactions, Local: "reaction"}},
		))
	}
	return xmlstream.Wrap(
		xmlstream.MultiReader(readers...),
		xml.StartElement{
			Name: xml.Name{Space: NSReactions, Local: "reactions"},
			Attr: []xml.Attr{{Name: xml.Name{Local: "id"}, Value: r.To}},
		},
	)
}

// ApplyTo wraps payload in an XEP-0422 fastening, applying it to the message
// with id To.
type ApplyTo struct {
	To      string
	Payload xml.TokenReader
}

// TokenReader marshals the fastening as a message child element.
func (a ApplyTo) TokenReader() xml.TokenReader {
	return xmlstream.Wrap(
		a.Payload,
		xml.StartElement{
			Name: xml.Name{Space: NSFasten, Local: "apply-to"},
			Attr: []xml.Attr{{Name: xml.Name{Local: "id"}, Value: a.To}},
		},
	)
}

// Retract is an XEP-0424 tombstone for the message with id ID, meant to be
// carried as an ApplyTo payload (or, for the "retract last message" case,
// sent bare).
type Retract struct {
	ID string
}

// TokenReader marshals the retraction as a message child element.
func (r Retract) TokenReader() xml.TokenReader {
	return xmlstream.Wrap(nil, xml.StartElement{
		Name: xml.Name{Space: NSRetract, Local: "retract"},
		Attr: []xml.Attr{{Name: xml.Name{Local: "id"}, Value: r.ID}},
	})
}

// Replace is an XEP-0308 last message correction, superseding the message
// with id ID.
type Replace struct {
	ID string
}

// TokenReader marshals the correction as a message child element.
func (r Replace) TokenReader() xml.TokenReader {
	return xmlstream.Wrap(nil, xml.StartElement{
		Name: xml.Name{Space: NSCorrect, Local: "replace"},
		Attr: []xml.Attr{{Name: xml.Name{Local: "id"}, Value: r.ID}},
	})
}

// Reply is an XEP-0461 reply reference, pointing at the message with id ID
// whose author is To.
type Reply struct {
	ID   string
	To   jid.JID
}

// TokenReader marshals the reply reference as a message child element.
func (r Reply) TokenReader() xml.TokenReader {
	return xmlstream.Wrap(nil, xml.StartElement{
		Name: xml.Name{Space: NSReply, Local: "reply"},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "id"}, Value: r.ID},
			{Name: xml.Name{Local: "to"}, Value: r.To.String()},
		},
	})
}

// Fallback marks a leading range of the message body as XEP-0428 fallback
// text (a quoted reply or reaction-target echo) that clients rendering the
// structured reference should hide.
type Fallback struct {
	For   string
	Start int
	End   int
}

// TokenReader marshals the fallback range as a message child element.
func (f Fallback) TokenReader() xml.TokenReader {
	return xmlstream.Wrap(
		xmlstream.Wrap(nil, xml.StartElement{
			Name: xml.Name{Local: "body"},
			Attr: []xml.Attr{
				{Name: xml.Name{Local: "start"}, Value: strconv.Itoa(f.Start)},
				{Name: xml.Name{Local: "end"}, Value: strconv.Itoa(f.End)},
			},
		}),
		xml.StartElement{
			Name: xml.Name{Space: NSFallback, Local: "fallback"},
			Attr: []xml.Attr{{Name: xml.Name{Local: "for"}, Value: f.For}},
		},
	)
}
