// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause license that can be
// found in the LICENSE file.

package xmpp

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"

	"mellium.im/xmlstream"
	"coreim.dev/xmpp/internal"
	"coreim.dev/xmpp/internal/ns"
	"coreim.dev/xmpp/jid"
	"coreim.dev/xmpp/stanza"
	"coreim.dev/xmpp/stream"
)

const (
	bindIQServerGeneratedRP = `<iq id='%s' type='set'><bind xmlns='urn:ietf:params:xml:ns:xmpp-bind'/></iq>`
	bindIQClientRequestedRP = `<iq id='%s' type='set'><bind xmlns='urn:ietf:params:xml:ns:xmpp-bind'><resource>%s</resource></bind></iq>`
)

// BindResource returns a stream feature that negotiates resource binding as
// defined in RFC 6120 §7. It must run after authentication and before the
// session is marked ready.
func BindResource() StreamFeature {
	return StreamFeature{
		Name:       xml.Name{Space: ns.Bind, Local: "bind"},
		Necessary:  Authn,
		Prohibited: Ready,
		List: func(ctx context.Context, e xmlstream.TokenWriter, start xml.StartElement) (req bool, err error) {
			req = true
			if err = e.EncodeToken(start); err != nil {
				return req, err
			}
			err = e.EncodeToken(start.End())
			return req, err
		},
		Parse: func(ctx context.Context, d *xml.Decoder, start *xml.StartElement) (bool, interface{}, error) {
			parsed := struct {
				XMLName xml.Name `xml:"urn:ietf:params:xml:ns:xmpp-bind bind"`
			}{}
			return true, nil, d.DecodeElement(&parsed, start)
		},
		Negotiate: func(ctx context.Context, session *Session, data interface{}) (mask SessionState, rw io.ReadWriter, err error) {
			if (session.state & Received) == Received {
				panic("xmpp: server-side resource binding not yet implemented")
			}

			conn := session.Conn()
			reqID := internal.RandomID(internal.IDLen)
			if resource := session.origin.Resourcepart(); resource == "" {
				_, err = fmt.Fprintf(conn, bindIQServerGeneratedRP, reqID)
			} else {
				_, err = fmt.Fprintf(conn, bindIQClientRequestedRP, reqID, resource)
			}
			if err != nil {
				return mask, nil, err
			}

			tok, err := session.in.d.Token()
			if err != nil {
				return mask, nil, err
			}
			start, ok := tok.(xml.StartElement)
			if !ok || start.Name.Local != "iq" {
				return mask, nil, stream.BadFormat
			}

			resp := struct {
				stanza.IQ
				Bind struct {
					JID *jid.JID `xml:"jid"`
				} `xml:"urn:ietf:params:xml:ns:xmpp-bind bind"`
				Err stanza.Error `xml:"error"`
			}{}
			if err = session.in.d.(*xml.Decoder).DecodeElement(&resp, &start); err != nil {
				return mask, nil, err
			}

			switch {
			case resp.ID != reqID:
				return mask, nil, stream.UndefinedCondition
			case resp.Type == stanza.ResultIQ:
				session.origin = resp.Bind.JID
			case resp.Type == stanza.ErrorIQ:
				return mask, nil, resp.Err
			default:
				return mask, nil, stanza.Error{Condition: stanza.BadRequest}
			}
			return Ready, nil, nil
		},
	}
}
