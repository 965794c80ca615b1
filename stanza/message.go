// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanza

import (
	"encoding/xml"
	"fmt"

	"mellium.im/xmlstream"
	"coreim.dev/xmpp/internal/ns"
	"coreim.dev/xmpp/jid"
)

// Message is an XMPP stanza that is used for push communication. It is
// generally used to send chat messages, alerts, and notifications to other
// entities on the network.
type Message struct {
	XMLName xml.Name     `xml:"message"`
	ID      string       `xml:"id,attr"`
	To      *jid.JID     `xml:"to,attr"`
	From    *jid.JID     `xml:"from,attr"`
	Lang    string       `xml:"http://www.w3.org/XML/1998/namespace lang,attr,omitempty"`
	Type    MessageType  `xml:"type,attr"`
}

// MessageType is the type of a message stanza.
// It should normally be one of the constants defined in this package.
type MessageType string

const (
	// NormalMessage is a standalone message that is sent outside the context
	// of a one-to-one conversation or groupchat, and to which it is
	// normally appropriate for a receiving entity to reply.
	NormalMessage MessageType = "normal"

	// ChatMessage is sent in the context of a one-to-one chat session.
	ChatMessage MessageType = "chat"

	// GroupChatMessage is sent in the context of a multi-user chat
	// environment.
	GroupChatMessage MessageType = "groupchat"

	// HeadlineMessage is sent in the context of a "headline" newsfeed or
	// similar transient information update and is not expected to be
	// replied to.
	HeadlineMessage MessageType = "headline"

	// ErrorMessage indicates that an error has occurred regarding
	// processing of a previously sent message stanza.
	ErrorMessage MessageType = "error"
)

// NewMessage builds a Message by copying the id, to, from, xml:lang, and type
// attributes out of start.
// An error is returned if start is not a message start element.
func NewMessage(start xml.StartElement) (Message, error) {
	msg := Message{XMLName: start.Name}
	if start.Name.Local != "message" {
		return msg, fmt.Errorf("stanza: expected message start element, got %v", start.Name)
	}
	for _, a := range start.Attr {
		switch {
		case a.Name.Space == "" && a.Name.Local == "id":
			msg.ID = a.Value
		case a.Name.Space == "" && a.Name.Local == "to":
			j, err := jid.Parse(a.Value)
			if err != nil {
				return msg, err
			}
			msg.To = &j
		case a.Name.Space == "" && a.Name.Local == "from":
			j, err := jid.Parse(a.Value)
			if err != nil {
				return msg, err
			}
			msg.From = &j
		case a.Name.Space == ns.XML && a.Name.Local == "lang":
			msg.Lang = a.Value
		case a.Name.Space == "" && a.Name.Local == "type":
			msg.Type = MessageType(a.Value)
		}
	}
	return msg, nil
}

// StartElement returns the XML start element that begins the message.
func (msg Message) StartElement() xml.StartElement {
	start := xml.StartElement{Name: xml.Name{Space: msg.XMLName.Space, Local: "message"}}
	start.Attr = appendAttr(start.Attr, "id", msg.ID)
	if msg.To != nil {
		start.Attr = appendAttr(start.Attr, "to", msg.To.String())
	}
	if msg.From != nil {
		start.Attr = appendAttr(start.Attr, "from", msg.From.String())
	}
	if msg.Lang != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Space: ns.XML, Local: "lang"}, Value: msg.Lang})
	}
	start.Attr = appendAttr(start.Attr, "type", string(msg.Type))
	return start
}

// Wrap wraps the payload in a start and end element derived from the
// message's fields.
func (msg Message) Wrap(payload xml.TokenReader) xml.TokenReader {
	return xmlstream.Wrap(payload, msg.StartElement())
}

// TokenReader returns a reader that outputs the message's start and end
// elements with no payload.
func (msg Message) TokenReader() xml.TokenReader {
	return msg.Wrap(nil)
}
