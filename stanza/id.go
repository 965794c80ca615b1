// Copyright 2020 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanza

import (
	"encoding/xml"

	"mellium.im/xmlstream"
	"coreim.dev/xmpp/internal/attr"
	"coreim.dev/xmpp/jid"
)

// NSSID is the namespace used by unique and stable stanza and origin IDs
// (XEP-0359).
const NSSID = "urn:xmpp:sid:0"

func isTopLevelStanza(name xml.Name, ns string) bool {
	return (name.Local == "iq" || name.Local == "message" || name.Local == "presence") &&
		name.Space == ns
}

// AddOriginID inserts an origin-id into the top level stanza read from r if
// its start element is a message, iq, or presence qualified by ns, and
// otherwise passes the stream through unmodified.
//
// An origin-id records the ID a stanza's author assigned it so that it can
// be recovered by entities that only see a later copy of the stanza with the
// ID rewritten (eg. by a MUC reflecting messages back to occupants).
func AddOriginID(r xml.TokenReader, ns string) xml.TokenReader {
	return xmlstream.InsertFunc(func(start xml.StartElement, level uint64, w xmlstream.TokenWriter) error {
		if level != 1 || !isTopLevelStanza(start.Name, ns) {
			return nil
		}
		_, err := xmlstream.Copy(w, xmlstream.Wrap(
			nil,
			xml.StartElement{
				Name: xml.Name{Space: NSSID, Local: "origin-id"},
				Attr: []xml.Attr{{Name: xml.Name{Local: "id"}, Value: attr.RandomID()}},
			},
		))
		return err
	})(r)
}

// AddID returns a transformer that inserts a stanza-id, stamped with by,
// into the top level stanza of any stream read through it if its start
// element is a message, iq, or presence qualified by ns, and otherwise
// passes the stream through unmodified.
//
// A stanza-id is added by an intermediary (eg. a MUC or MAM archive) to
// record the ID it assigned the stanza, since the ID present on the wire may
// not be stable or may belong to a different entity's ID space.
func AddID(by jid.JID, ns string) xmlstream.Transformer {
	return xmlstream.InsertFunc(func(start xml.StartElement, level uint64, w xmlstream.TokenWriter) error {
		if level != 1 || !isTopLevelStanza(start.Name, ns) {
			return nil
		}
		_, err := xmlstream.Copy(w, xmlstream.Wrap(
			nil,
			xml.StartElement{
				Name: xml.Name{Space: NSSID, Local: "stanza-id"},
				Attr: []xml.Attr{
					{Name: xml.Name{Local: "id"}, Value: attr.RandomID()},
					{Name: xml.Name{Local: "by"}, Value: by.String()},
				},
			},
		))
		return err
	})
}
