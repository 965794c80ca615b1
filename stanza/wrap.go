// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanza

import (
	"encoding/xml"

	"mellium.im/xmlstream"
	"coreim.dev/xmpp/internal/ns"
)

func appendAttr(attr []xml.Attr, local, val string) []xml.Attr {
	if val == "" {
		return attr
	}
	return append(attr, xml.Attr{Name: xml.Name{Local: local}, Value: val})
}

// StartElement returns the XML start element that begins the IQ.
func (iq IQ) StartElement() xml.StartElement {
	start := xml.StartElement{Name: xml.Name{Space: iq.XMLName.Space, Local: "iq"}}
	start.Attr = appendAttr(start.Attr, "id", iq.ID)
	if iq.To != nil {
		start.Attr = appendAttr(start.Attr, "to", iq.To.String())
	}
	if iq.From != nil {
		start.Attr = appendAttr(start.Attr, "from", iq.From.String())
	}
	if iq.Lang != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Space: ns.XML, Local: "lang"}, Value: iq.Lang})
	}
	start.Attr = appendAttr(start.Attr, "type", string(iq.Type))
	return start
}

// Wrap wraps the payload in a start and end element derived from the IQ's
// fields.
func (iq IQ) Wrap(payload xml.TokenReader) xml.TokenReader {
	return xmlstream.Wrap(payload, iq.StartElement())
}

// TokenReader returns a reader that outputs the IQ's start and end elements
// with no payload.
func (iq IQ) TokenReader() xml.TokenReader {
	return iq.Wrap(nil)
}

// Result builds the response IQ to this request, swapping To/From, keeping
// the same ID, setting the type to "result", and wrapping payload as the
// response body.
func (iq IQ) Result(payload xml.TokenReader) xml.TokenReader {
	resp := IQ{
		XMLName: iq.XMLName,
		ID:      iq.ID,
		To:      iq.From,
		From:    iq.To,
		Type:    ResultIQ,
	}
	return resp.Wrap(payload)
}

// Error builds the response IQ reporting that an error occurred processing
// this request, swapping To/From, keeping the same ID, setting the type to
// "error", and wrapping e as the response body.
func (iq IQ) Error(e Error) xml.TokenReader {
	resp := IQ{
		XMLName: iq.XMLName,
		ID:      iq.ID,
		To:      iq.From,
		From:    iq.To,
		Type:    ErrorIQ,
	}
	return resp.Wrap(e.TokenReader())
}

// StartElement returns the XML start element that begins the presence.
func (p Presence) StartElement() xml.StartElement {
	start := xml.StartElement{Name: xml.Name{Space: p.XMLName.Space, Local: "presence"}}
	start.Attr = appendAttr(start.Attr, "id", p.ID)
	if p.To != nil {
		start.Attr = appendAttr(start.Attr, "to", p.To.String())
	}
	if p.From != nil {
		start.Attr = appendAttr(start.Attr, "from", p.From.String())
	}
	if p.Lang != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Space: ns.XML, Local: "lang"}, Value: p.Lang})
	}
	start.Attr = appendAttr(start.Attr, "type", string(p.Type))
	return start
}

// Wrap wraps the payload in a start and end element derived from the
// presence's fields.
func (p Presence) Wrap(payload xml.TokenReader) xml.TokenReader {
	return xmlstream.Wrap(payload, p.StartElement())
}

// TokenReader returns a reader that outputs the presence's start and end
// elements with no payload.
func (p Presence) TokenReader() xml.TokenReader {
	return p.Wrap(nil)
}
