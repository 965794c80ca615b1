// Copyright 2014 Sam Whited.
// Use of this source code is governed by the BSD 2-clause license that can be
// found in the LICENSE file.

package jid

import (
	"encoding/xml"
	"errors"
	"fmt"
	"net"
	"strings"
	"unicode/utf8"
)

// JID is an XMPP address (historically called a "Jabber ID") as described in
// RFC 7622. A JID is made up of three parts: the localpart, the domainpart,
// and the resourcepart, in the form localpart@domainpart/resourcepart.
//
// The zero value is not a valid JID; JIDs should always be created with New
// or Parse.
type JID struct {
	localpart    string
	domainpart   string
	resourcepart string
}

// New constructs a JID from the given localpart, domainpart, and
// resourcepart, validating each part individually.
func New(localpart, domainpart, resourcepart string) (JID, error) {
	if err := commonChecks(localpart, domainpart, resourcepart); err != nil {
		return JID{}, err
	}
	return JID{
		localpart:    localpart,
		domainpart:   domainpart,
		resourcepart: resourcepart,
	}, nil
}

// Parse constructs a JID by splitting s into its component parts.
func Parse(s string) (JID, error) {
	localpart, domainpart, resourcepart, err := SplitString(s)
	if err != nil {
		return JID{}, err
	}
	return New(localpart, domainpart, resourcepart)
}

// MustParse is like Parse but panics if s cannot be parsed as a JID.
// It is intended for use in tests and variable initialization.
func MustParse(s string) JID {
	j, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return j
}

// Localpart returns the localpart of the JID, if any.
func (j JID) Localpart() string {
	return j.localpart
}

// Domainpart returns the domainpart of the JID.
func (j JID) Domainpart() string {
	return j.domainpart
}

// Resourcepart returns the resourcepart of the JID, if any.
func (j JID) Resourcepart() string {
	return j.resourcepart
}

// Bare returns a copy of the JID with the resourcepart removed.
func (j JID) Bare() JID {
	return JID{localpart: j.localpart, domainpart: j.domainpart}
}

// Domain returns a copy of the JID with only the domainpart set.
func (j JID) Domain() JID {
	return JID{domainpart: j.domainpart}
}

// Copy returns a copy of the JID. Since JID is a plain value type, this is
// equivalent to assignment; it exists for parity with the pointer-based
// JID types this package once wrapped.
func (j JID) Copy() JID {
	return j
}

// WithResource returns a copy of the JID with the resourcepart set to rp.
func (j JID) WithResource(rp string) (JID, error) {
	if err := commonChecks(j.localpart, j.domainpart, rp); err != nil {
		return JID{}, err
	}
	return JID{localpart: j.localpart, domainpart: j.domainpart, resourcepart: rp}, nil
}

// Equal reports whether j and j2 represent the same address.
func (j JID) Equal(j2 JID) bool {
	return j.localpart == j2.localpart &&
		j.domainpart == j2.domainpart &&
		j.resourcepart == j2.resourcepart
}

// String satisfies the fmt.Stringer interface and returns the full string
// representation of the JID.
func (j JID) String() string {
	return stringifyParts(j.localpart, j.domainpart, j.resourcepart)
}

// Network satisfies the net.Addr interface and always returns "xmpp".
func (j JID) Network() string {
	return "xmpp"
}

// MarshalXMLAttr satisfies the xml.MarshalerAttr interface.
func (j JID) MarshalXMLAttr(name xml.Name) (xml.Attr, error) {
	return xml.Attr{Name: name, Value: j.String()}, nil
}

// UnmarshalXMLAttr satisfies the xml.UnmarshalerAttr interface.
func (j *JID) UnmarshalXMLAttr(attr xml.Attr) error {
	parsed, err := Parse(attr.Value)
	if err != nil {
		return err
	}
	*j = parsed
	return nil
}

// MarshalXML satisfies the xml.Marshaler interface, encoding the JID as
// chardata inside start.
func (j JID) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if err := e.EncodeToken(xml.CharData(j.String())); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

// UnmarshalXML satisfies the xml.Unmarshaler interface.
func (j *JID) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var s string
	if err := d.DecodeElement(&s, &start); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*j = parsed
	return nil
}

// SplitString splits out the localpart, domainpart, and resourcepart from a
// string representation of a JID. The parts are not guaranteed to be valid, and
// each part must be 1023 bytes or less.
func SplitString(s string) (localpart, domainpart, resourcepart string, err error) {

	// RFC 7622 §3.1.  Fundamentals:
	//
	//    Implementation Note: When dividing a JID into its component parts,
	//    an implementation needs to match the separator characters '@' and
	//    '/' before applying any transformation algorithms, which might
	//    decompose certain Unicode code points to the separator characters.
	//
	// so let's do that now. First we'll parse the domainpart using the rules
	// defined in §3.2:
	//
	//    The domainpart of a JID is the portion that remains once the
	//    following parsing steps are taken:
	//
	//    1.  Remove any portion from the first '/' character to the end of the
	//        string (if there is a '/' character present).
	parts := strings.SplitAfterN(
		s, "/", 2,
	)

	// If the resource part exists, make sure it isn't empty.
	if strings.HasSuffix(parts[0], "/") {
		if len(parts) == 2 && parts[1] != "" {
			resourcepart = parts[1]
		} else {
			err = errors.New("The resourcepart must be larger than 0 bytes")
			return
		}
	} else {
		resourcepart = ""
	}

	norp := strings.TrimSuffix(parts[0], "/")

	//    2.  Remove any portion from the beginning of the string to the first
	//        '@' character (if there is an '@' character present).

	nolp := strings.SplitAfterN(norp, "@", 2)

	if nolp[0] == "@" {
		err = errors.New("The localpart must be larger than 0 bytes")
		return
	}

	switch len(nolp) {
	case 1:
		domainpart = nolp[0]
		localpart = ""
	case 2:
		domainpart = nolp[1]
		localpart = strings.TrimSuffix(nolp[0], "@")
	}

	// We'll throw out any trailing dots on domainparts, since they're ignored:
	//
	//    If the domainpart includes a final character considered to be a label
	//    separator (dot) by [RFC1034], this character MUST be stripped from
	//    the domainpart before the JID of which it is a part is used for the
	//    purpose of routing an XML stanza, comparing against another JID, or
	//    constructing an XMPP URI or IRI [RFC5122].  In particular, such a
	//    character MUST be stripped before any other canonicalization steps
	//    are taken.

	domainpart = strings.TrimSuffix(domainpart, ".")

	return
}

func stringifyParts(localpart, domainpart, resourcepart string) string {
	s := domainpart
	if localpart != "" {
		s = localpart + "@" + s
	}
	if resourcepart != "" {
		s = s + "/" + resourcepart
	}
	return s
}

func checkIP6String(domainpart string) error {
	// If the domainpart is a valid IPv6 address (with brackets), short circuit.
	if l := len(domainpart); l > 2 && strings.HasPrefix(domainpart, "[") &&
		strings.HasSuffix(domainpart, "]") {
		if ip := net.ParseIP(domainpart[1 : l-1]); ip == nil || ip.To4() != nil {
			return errors.New("Domainpart is not a valid IPv6 address")
		}
	}
	return nil
}

func commonChecks(localpart, domainpart, resourcepart string) error {
	if !utf8.ValidString(localpart) || !utf8.ValidString(domainpart) || !utf8.ValidString(resourcepart) {
		return errors.New("JID parts must be valid UTF-8")
	}

	l := len(localpart)
	if l > 1023 {
		return errors.New("The localpart must be smaller than 1024 bytes")
	}

	// RFC 7622 §3.3.1 provides a small table of characters which are still not
	// allowed in localpart's even though the IdentifierClass base class and the
	// UsernameCaseMapped profile don't forbid them; disallow them here.
	if strings.ContainsAny(localpart, "\"&'/:<>@") {
		return errors.New("Localpart contains forbidden characters")
	}

	l = len(resourcepart)
	if l > 1023 {
		return errors.New("The resourcepart must be smaller than 1024 bytes")
	}

	l = len(domainpart)
	if l < 1 || l > 1023 {
		return fmt.Errorf("The domainpart must be between 1 and 1023 bytes")
	}

	if err := checkIP6String(domainpart); err != nil {
		return err
	}

	return nil
}
