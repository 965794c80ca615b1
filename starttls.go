// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause license that can be
// found in the LICENSE file.

package xmpp

import (
	"context"
	"crypto/tls"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net"

	"mellium.im/xmlstream"
	"coreim.dev/xmpp/internal/ns"
	"coreim.dev/xmpp/stream"
)

// BUG(ssw): STARTTLS feature does not have security layer byte precision.

// ErrTLSUpgradeFailed is returned by the StartTLS stream feature when the
// underlying connection does not implement net.Conn and so cannot be
// upgraded to TLS.
var ErrTLSUpgradeFailed = errors.New("xmpp: underlying connection cannot be upgraded to TLS")

// StartTLS returns a new stream feature that negotiates TLS as defined in
// RFC 6120 §5. For StartTLS to work, the underlying connection must support
// TLS (it must implement net.Conn).
func StartTLS(required bool) StreamFeature {
	return StreamFeature{
		Name:       xml.Name{Local: "starttls", Space: ns.StartTLS},
		Prohibited: Secure,
		List: func(ctx context.Context, e xmlstream.TokenWriter, start xml.StartElement) (req bool, err error) {
			if err = e.EncodeToken(start); err != nil {
				return required, err
			}
			if required {
				startRequired := xml.StartElement{Name: xml.Name{Space: "", Local: "required"}}
				if err = e.EncodeToken(startRequired); err != nil {
					return required, err
				}
				if err = e.EncodeToken(startRequired.End()); err != nil {
					return required, err
				}
			}
			err = e.EncodeToken(start.End())
			return required, err
		},
		Parse: func(ctx context.Context, d *xml.Decoder, start *xml.StartElement) (bool, interface{}, error) {
			parsed := struct {
				XMLName  xml.Name `xml:"urn:ietf:params:xml:ns:xmpp-tls starttls"`
				Required struct {
					XMLName xml.Name `xml:"urn:ietf:params:xml:ns:xmpp-tls required"`
				}
			}{}
			err := d.DecodeElement(&parsed, start)
			return parsed.Required.XMLName.Local == "required" && parsed.Required.XMLName.Space == ns.StartTLS, nil, err
		},
		Negotiate: func(ctx context.Context, session *Session, data interface{}) (mask SessionState, rw io.ReadWriter, err error) {
			conn := session.Conn()
			netconn, ok := conn.(net.Conn)
			if !ok {
				return mask, nil, ErrTLSUpgradeFailed
			}

			cfg := session.Config()
			tlsconf := cfg.TLSConfig
			if tlsconf == nil {
				tlsconf = &tls.Config{
					ServerName: session.LocalAddr().Domain().String(),
				}
			}

			if (session.state & Received) == Received {
				fmt.Fprint(conn, `<proceed xmlns='urn:ietf:params:xml:ns:xmpp-tls'/>`)
				rw = tls.Server(netconn, tlsconf)
			} else {
				fmt.Fprint(conn, `<starttls xmlns='urn:ietf:params:xml:ns:xmpp-tls'/>`)

				tok, err := session.in.d.Token()
				if err != nil {
					return mask, nil, err
				}
				d, ok := session.in.d.(*xml.Decoder)
				if !ok {
					return mask, nil, stream.RestrictedXML
				}
				switch t := tok.(type) {
				case xml.StartElement:
					switch {
					case t.Name.Space != ns.StartTLS:
						return mask, nil, stream.UnsupportedStanzaType
					case t.Name.Local == "proceed":
						if err = d.Skip(); err != nil {
							return mask, nil, stream.InvalidXML
						}
						rw = tls.Client(netconn, tlsconf)
					case t.Name.Local == "failure":
						if err = d.Skip(); err != nil {
							err = stream.InvalidXML
						}
						// Failure is not unexpected: the server will immediately end the
						// stream afterwards. Only a bad </failure> token is an error.
						return mask, nil, err
					default:
						return mask, nil, stream.UnsupportedStanzaType
					}
				default:
					return mask, nil, stream.RestrictedXML
				}
			}
			mask = Secure
			return mask, rw, nil
		},
	}
}
