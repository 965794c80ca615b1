// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package profile implements the user-profile surface built on top of
// pubsub (XEP-0084 avatars, XEP-0172 nicknames), jabber:iq:private XML
// storage, vcard-temp (the XEP-0398 fallback MUC clients use for avatars),
// and in-band registration (XEP-0077 password changes).
package profile // import "coreim.dev/xmpp/profile"

import (
	"bytes"
	"context"
	"crypto/sha1" //nolint:gosec // XEP-0084 mandates SHA-1 item ids.
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strconv"

	"golang.org/x/image/bmp"
	"mellium.im/xmlstream"
	"coreim.dev/xmpp"
	"coreim.dev/xmpp/jid"
	"coreim.dev/xmpp/pubsub"
	"coreim.dev/xmpp/stanza"
)

// Namespaces used by this package, provided as a convenience.
const (
	NSAvatarData     = `urn:xmpp:avatar:data`
	NSAvatarMetadata = `urn:xmpp:avatar:metadata`
	NSNick           = `http://jabber.org/protocol/nick`
	NSPrivate        = `jabber:iq:private`
	NSRegister       = `jabber:iq:register`
	NSVCardTemp      = `vcard-temp`
)

func init() {
	image.RegisterFormat("bmp", "BM", bmp.Decode, bmp.DecodeConfig)
}

// Avatar is a decoded XEP-0084 avatar: its raw bytes (so they can be
// republished unmodified to the data node) plus the metadata a client needs
// to decide whether to fetch it.
type Avatar struct {
	ID     string
	Bytes  []byte
	MIME   string
	Width  int
	Height int
}

// AvatarID returns the XEP-0084 item id for data: the hex-encoded SHA-1 of
// its bytes.
func AvatarID(data []byte) string {
	sum := sha1.Sum(data) //nolint:gosec
	return fmt.Sprintf("%x", sum)
}

// SetAvatar publishes data (in the format named by mime) as the user's
// avatar: first to the data node (keyed by the SHA-1 hash of data, per
// XEP-0084), then to the metadata node so contacts are notified.
func SetAvatar(ctx context.Context, s *xmpp.Session, data []byte, mime string) (Avatar, error) {
	id := AvatarID(data)
	if err := PublishAvatarDataIQ(ctx, s, stanza.IQ{}, id, data); err != nil {
		return Avatar{}, err
	}
	return PublishAvatarMetadataIQ(ctx, s, stanza.IQ{}, id, data, mime)
}

// PublishAvatarDataIQ publishes data to the avatar data node under id,
// allowing the caller to customize the IQ used. Changes to the IQ type have
// no effect.
func PublishAvatarDataIQ(ctx context.Context, s *xmpp.Session, iq stanza.IQ, id string, data []byte) error {
	encoded := base64.StdEncoding.EncodeToString(data)
	_, err := pubsub.PublishIQ(ctx, s, iq, NSAvatarData, id, xmlstream.Wrap(
		xmlstream.Token(xml.CharData(encoded)),
		xml.StartElement{Name: xml.Name{Space: NSAvatarData, Local: "data"}},
	))
	return err
}

// PublishAvatarMetadataIQ publishes the metadata describing data (decoded to
// learn its dimensions) to the avatar metadata node under id, allowing the
// caller to customize the IQ used. Changes to the IQ type have no effect.
func PublishAvatarMetadataIQ(ctx context.Context, s *xmpp.Session, iq stanza.IQ, id string, data []byte, mime string) (Avatar, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Avatar{}, err
	}

	info := xmlstream.Wrap(nil, xml.StartElement{
		Name: xml.Name{Local: "info"},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "id"}, Value: id},
			{Name: xml.Name{Local: "bytes"}, Value: strconv.Itoa(len(data))},
			{Name: xml.Name{Local: "type"}, Value: mime},
			{Name: xml.Name{Local: "width"}, Value: strconv.Itoa(cfg.Width)},
			{Name: xml.Name{Local: "height"}, Value: strconv.Itoa(cfg.Height)},
		},
	})
	if _, err := pubsub.PublishIQ(ctx, s, iq, NSAvatarMetadata, id, xmlstream.Wrap(
		info,
		xml.StartElement{Name: xml.Name{Space: NSAvatarMetadata, Local: "metadata"}},
	)); err != nil {
		return Avatar{}, err
	}

	return Avatar{ID: id, Bytes: data, MIME: mime, Width: cfg.Width, Height: cfg.Height}, nil
}

// FetchAvatarMetadata returns the most recently published avatar metadata
// item for from, without fetching the (potentially large) image data.
func FetchAvatarMetadata(ctx context.Context, s *xmpp.Session, from jid.JID) (Avatar, error) {
	return FetchAvatarMetadataIQ(ctx, s, stanza.IQ{To: &from}, from)
}

// FetchAvatarMetadataIQ is like FetchAvatarMetadata except that it allows
// customizing the IQ. Changes to the IQ type have no effect.
func FetchAvatarMetadataIQ(ctx context.Context, s *xmpp.Session, iq stanza.IQ, from jid.JID) (Avatar, error) {
	iter := pubsub.ItemsIQ(ctx, iq, s, NSAvatarMetadata)
	defer iter.Close()

	var av Avatar
	if iter.Next() {
		id, r := iter.Item()
		av.ID = id
		d := xml.NewTokenDecoder(r)
		for {
			tok, err := d.Token()
			if err != nil {
				break
			}
			start, ok := tok.(xml.StartElement)
			if !ok || start.Name.Local != "info" {
				continue
			}
			for _, a := range start.Attr {
				switch a.Name.Local {
				case "type":
					av.MIME = a.Value
				case "width":
					av.Width, _ = strconv.Atoi(a.Value)
				case "height":
					av.Height, _ = strconv.Atoi(a.Value)
				}
			}
		}
	}
	return av, iter.Err()
}

// FetchAvatarData fetches the raw image bytes for the avatar identified by
// id, published by from.
func FetchAvatarData(ctx context.Context, s *xmpp.Session, from jid.JID, id string) ([]byte, error) {
	iter := pubsub.FetchIQ(ctx, stanza.IQ{To: &from}, s, pubsub.Query{Node: NSAvatarData, ID: []string{id}})
	defer iter.Close()

	for iter.Next() {
		itemID, r := iter.Item()
		if itemID != id {
			continue
		}
		var b64 bytes.Buffer
		d := xml.NewTokenDecoder(r)
		for {
			tok, err := d.Token()
			if err != nil {
				break
			}
			if cd, ok := tok.(xml.CharData); ok {
				b64.Write(cd)
			}
		}
		return base64.StdEncoding.DecodeString(b64.String())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("profile: no avatar data item with id %q", id)
}

// SetNickname publishes nick as the user's friendly nickname (XEP-0172).
func SetNickname(ctx context.Context, s *xmpp.Session, nick string) error {
	_, err := pubsub.Publish(ctx, s, NSNick, "current", xmlstream.Wrap(
		xmlstream.Token(xml.CharData(nick)),
		xml.StartElement{Name: xml.Name{Space: NSNick, Local: "nick"}},
	))
	return err
}

// FetchNickname returns from's published nickname, if any.
func FetchNickname(ctx context.Context, s *xmpp.Session, from jid.JID) (string, error) {
	return FetchNicknameIQ(ctx, s, stanza.IQ{To: &from})
}

// FetchNicknameIQ is like FetchNickname except that it allows customizing
// the IQ. Changes to the IQ type have no effect.
func FetchNicknameIQ(ctx context.Context, s *xmpp.Session, iq stanza.IQ) (string, error) {
	iter := pubsub.ItemsIQ(ctx, iq, s, NSNick)
	defer iter.Close()
	var nick string
	if iter.Next() {
		_, r := iter.Item()
		d := xml.NewTokenDecoder(r)
		for {
			tok, err := d.Token()
			if err != nil {
				break
			}
			if cd, ok := tok.(xml.CharData); ok {
				nick += string(cd)
			}
		}
	}
	return nick, iter.Err()
}

// SetPrivate stores payload in the user's private XML storage with a
// jabber:iq:private query, readable only by the user's own resources.
// It does not publish to a pubsub node (XEP-0223).
func SetPrivate(ctx context.Context, s *xmpp.Session, payload xml.TokenReader) error {
	return s.UnmarshalIQElement(ctx, xmlstream.Wrap(
		payload,
		xml.StartElement{Name: xml.Name{Space: NSPrivate, Local: "query"}},
	), stanza.IQ{Type: stanza.SetIQ}, nil)
}

// FetchPrivate requests the private-storage payload matching the namespace
// and local name of query, unmarshaling the result into v.
func FetchPrivate(ctx context.Context, s *xmpp.Session, query xml.Name, v interface{}) error {
	return s.UnmarshalIQElement(ctx, xmlstream.Wrap(
		xmlstream.Wrap(nil, xml.StartElement{Name: query}),
		xml.StartElement{Name: xml.Name{Space: NSPrivate, Local: "query"}},
	), stanza.IQ{Type: stanza.GetIQ}, v)
}

// ChangePassword requests the in-band registration service set the user's
// password to newPassword (XEP-0077).
func ChangePassword(ctx context.Context, s *xmpp.Session, username, newPassword string) error {
	payload := xmlstream.Wrap(
		xmlstream.MultiReader(
			xmlstream.Wrap(xmlstream.Token(xml.CharData(username)), xml.StartElement{Name: xml.Name{Local: "username"}}),
			xmlstream.Wrap(xmlstream.Token(xml.CharData(newPassword)), xml.StartElement{Name: xml.Name{Local: "password"}}),
		),
		xml.StartElement{Name: xml.Name{Space: NSRegister, Local: "query"}},
	)
	return s.UnmarshalIQElement(ctx, payload, stanza.IQ{Type: stanza.SetIQ}, nil)
}

// VCardAvatar is the subset of vcard-temp this package understands: just
// enough to fetch a MUC occupant's avatar (XEP-0398) when they have not
// published one via pubsub.
type VCardAvatar struct {
	MIME   string
	Binval []byte
}

// FetchVCardAvatar requests from's vcard-temp and returns its embedded
// photo, if any.
func FetchVCardAvatar(ctx context.Context, s *xmpp.Session, from jid.JID) (VCardAvatar, error) {
	resp := struct {
		XMLName xml.Name
		Photo   struct {
			Type   string `xml:"TYPE"`
			Binval string `xml:"BINVAL"`
		} `xml:"vcard-temp PHOTO"`
	}{}
	err := s.UnmarshalIQElement(ctx, xmlstream.Wrap(
		nil,
		xml.StartElement{Name: xml.Name{Space: NSVCardTemp, Local: "vCard"}},
	), stanza.IQ{To: &from, Type: stanza.GetIQ}, &resp)
	if err != nil {
		return VCardAvatar{}, err
	}
	data, err := base64.StdEncoding.DecodeString(resp.Photo.Binval)
	if err != nil {
		return VCardAvatar{}, err
	}
	return VCardAvatar{MIME: resp.Photo.Type, Binval: data}, nil
}
