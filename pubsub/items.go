// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package pubsub

import (
	"context"
	"encoding/xml"
	"io"

	"mellium.im/xmlstream"
	"coreim.dev/xmpp"
	"coreim.dev/xmpp/jid"
	"coreim.dev/xmpp/stanza"
)

// Query describes a pubsub#items request: the node to fetch, and optionally
// the specific item ids to restrict the response to.
type Query struct {
	Node string
	ID   []string
}

type tokenSliceReader struct {
	toks []xml.Token
	pos  int
}

func (r *tokenSliceReader) Token() (xml.Token, error) {
	if r.pos >= len(r.toks) {
		return nil, io.EOF
	}
	tok := r.toks[r.pos]
	r.pos++
	return tok, nil
}

// Iter is an iterator over the items returned by a pubsub#items query.
type Iter struct {
	r       xmlstream.TokenReadCloser
	d       *xml.Decoder
	err     error
	id      string
	payload []xml.Token
	next    *xml.StartElement
}

func (i *Iter) setNext() {
	i.next = nil
	for {
		t, err := i.d.Token()
		if err != nil {
			i.err = err
			return
		}
		start, ok := t.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local != "item" {
			continue
		}
		i.next = &start
		return
	}
}

// Next reports whether there is another item to decode.
func (i *Iter) Next() bool {
	if i.err != nil || i.next == nil {
		return false
	}
	start := *i.next
	var id string
	for _, a := range start.Attr {
		if a.Name.Local == "id" {
			id = a.Value
		}
	}
	toks, err := collectItem(i.d)
	if err != nil {
		i.err = err
		return false
	}
	i.id, i.payload = id, toks
	i.setNext()
	return true
}

func collectItem(d *xml.Decoder) ([]xml.Token, error) {
	var toks []xml.Token
	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return toks, err
		}
		switch tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
			if depth == 0 {
				return toks, nil
			}
		}
		toks = append(toks, xml.CopyToken(tok))
	}
	return toks, nil
}

// Item returns the id and payload of the most recently decoded item.
func (i *Iter) Item() (string, xml.TokenReader) {
	return i.id, &tokenSliceReader{toks: i.payload}
}

// Err returns the first error encountered by the iterator, if any.
func (i *Iter) Err() error {
	if i.err == io.EOF {
		return nil
	}
	return i.err
}

// Close releases the underlying response stream. Calling it multiple times
// has no effect.
func (i *Iter) Close() error {
	i.next = nil
	if i.r == nil {
		return nil
	}
	return i.r.Close()
}

// Fetch requests the items described by query.
func Fetch(ctx context.Context, s *xmpp.Session, query Query) *Iter {
	return FetchIQ(ctx, stanza.IQ{}, s, query)
}

// FetchIQ is like Fetch except that it allows customizing the IQ.
// Changes to the IQ type have no effect.
func FetchIQ(ctx context.Context, iq stanza.IQ, s *xmpp.Session, query Query) *Iter {
	iq.Type = stanza.GetIQ
	itemsAttr := []xml.Attr{{Name: xml.Name{Local: "node"}, Value: query.Node}}
	var itemsPayload xml.TokenReader
	if len(query.ID) > 0 {
		var items []xml.TokenReader
		for _, id := range query.ID {
			items = append(items, xmlstream.Wrap(nil, xml.StartElement{
				Name: xml.Name{Local: "item"},
				Attr: []xml.Attr{{Name: xml.Name{Local: "id"}, Value: id}},
			}))
		}
		itemsPayload = xmlstream.MultiReader(items...)
	}
	payload := xmlstream.Wrap(
		xmlstream.Wrap(itemsPayload, xml.StartElement{Name: xml.Name{Local: "items"}, Attr: itemsAttr}),
		xml.StartElement{Name: xml.Name{Space: NS, Local: "pubsub"}},
	)
	r, err := s.SendIQElement(ctx, payload, iq)
	if err != nil {
		return &Iter{err: err}
	}
	d := xml.NewTokenDecoder(r)
	// Pop the IQ start token.
	if _, err := d.Token(); err != nil {
		return &Iter{err: err}
	}
	iter := &Iter{r: r, d: d}
	iter.setNext()
	return iter
}

// Items requests every item published to node.
func Items(ctx context.Context, s *xmpp.Session, node string) *Iter {
	return Fetch(ctx, s, Query{Node: node})
}

// ItemsIQ is like Items except that it allows customizing the IQ.
// Changes to the IQ type have no effect.
func ItemsIQ(ctx context.Context, iq stanza.IQ, s *xmpp.Session, node string) *Iter {
	return FetchIQ(ctx, iq, s, Query{Node: node})
}

// Publish publishes a single item with the given id (or a server-assigned
// id if empty) to node, with payload as its content.
func Publish(ctx context.Context, s *xmpp.Session, node, id string, payload xml.TokenReader) (string, error) {
	return PublishIQ(ctx, s, stanza.IQ{}, node, id, payload)
}

// PublishIQ is like Publish except that it allows customizing the IQ.
// Changes to the IQ type have no effect.
func PublishIQ(ctx context.Context, s *xmpp.Session, iq stanza.IQ, node, id string, payload xml.TokenReader) (string, error) {
	iq.Type = stanza.SetIQ
	itemAttr := []xml.Attr{}
	if id != "" {
		itemAttr = append(itemAttr, xml.Attr{Name: xml.Name{Local: "id"}, Value: id})
	}
	resp := struct {
		XMLName xml.Name
		Pubsub  struct {
			Publish struct {
				Item struct {
					ID string `xml:"id,attr"`
				} `xml:"item"`
			} `xml:"publish"`
		} `xml:"http://jabber.org/protocol/pubsub pubsub"`
	}{}
	err := s.UnmarshalIQElement(ctx, xmlstream.Wrap(
		xmlstream.Wrap(
			xmlstream.Wrap(payload, xml.StartElement{Name: xml.Name{Local: "item"}, Attr: itemAttr}),
			xml.StartElement{Name: xml.Name{Local: "publish"}, Attr: []xml.Attr{{Name: xml.Name{Local: "node"}, Value: node}}},
		),
		xml.StartElement{Name: xml.Name{Space: NS, Local: "pubsub"}},
	), iq, &resp)
	if err != nil {
		return "", err
	}
	if resp.Pubsub.Publish.Item.ID != "" {
		return resp.Pubsub.Publish.Item.ID, nil
	}
	return id, nil
}

// Subscribe subscribes to (normally the user's own bare JID) to node.
func Subscribe(ctx context.Context, s *xmpp.Session, node string, to jid.JID) error {
	return SubscribeIQ(ctx, s, stanza.IQ{To: &to}, node)
}

// SubscribeIQ is like Subscribe except that it allows customizing the IQ.
// Changes to the IQ type have no effect.
func SubscribeIQ(ctx context.Context, s *xmpp.Session, iq stanza.IQ, node string) error {
	iq.Type = stanza.SetIQ
	jidAttr := ""
	if iq.To != nil {
		jidAttr = iq.To.String()
	}
	return s.UnmarshalIQElement(ctx, xmlstream.Wrap(
		xmlstream.Wrap(
			nil,
			xml.StartElement{Name: xml.Name{Local: "subscribe"}, Attr: []xml.Attr{
				{Name: xml.Name{Local: "node"}, Value: node},
				{Name: xml.Name{Local: "jid"}, Value: jidAttr},
			}},
		),
		xml.StartElement{Name: xml.Name{Space: NS, Local: "pubsub"}},
	), iq, nil)
}

// Unsubscribe removes a previously created subscription to node.
func Unsubscribe(ctx context.Context, s *xmpp.Session, node string, to jid.JID) error {
	return UnsubscribeIQ(ctx, s, stanza.IQ{To: &to}, node)
}

// UnsubscribeIQ is like Unsubscribe except that it allows customizing the IQ.
// Changes to the IQ type have no effect.
func UnsubscribeIQ(ctx context.Context, s *xmpp.Session, iq stanza.IQ, node string) error {
	iq.Type = stanza.SetIQ
	jidAttr := ""
	if iq.To != nil {
		jidAttr = iq.To.String()
	}
	return s.UnmarshalIQElement(ctx, xmlstream.Wrap(
		xmlstream.Wrap(
			nil,
			xml.StartElement{Name: xml.Name{Local: "unsubscribe"}, Attr: []xml.Attr{
				{Name: xml.Name{Local: "node"}, Value: node},
				{Name: xml.Name{Local: "jid"}, Value: jidAttr},
			}},
		),
		xml.StartElement{Name: xml.Name{Space: NS, Local: "pubsub"}},
	), iq, nil)
}
