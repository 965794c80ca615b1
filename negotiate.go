// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xmpp

import (
	"context"
	"encoding/xml"
	"io"

	"mellium.im/xmlstream"
	"coreim.dev/xmpp/internal/ns"
	"coreim.dev/xmpp/stream"
)

// negotiateFeatures drives a single round of stream feature negotiation.
// On the initiating side it reads the advertised <stream:features/> list and
// negotiates the first required feature found (or, if none are required, the
// first supported one). On the receiving side it writes the list of features
// currently eligible given the session's state.
func negotiateFeatures(ctx context.Context, s *Session, features []StreamFeature) (mask SessionState, rw io.ReadWriter, err error) {
	if s.state&Received == Received {
		return negotiateFeaturesServer(ctx, s, features)
	}
	return negotiateFeaturesClient(ctx, s, features)
}

type sfData struct {
	feature StreamFeature
	data    interface{}
	req     bool
}

func negotiateFeaturesClient(ctx context.Context, s *Session, features []StreamFeature) (mask SessionState, rw io.ReadWriter, err error) {
	tok, err := s.in.d.Token()
	if err != nil {
		return 0, nil, err
	}
	start, ok := tok.(xml.StartElement)
	if !ok || start.Name.Local != "features" || start.Name.Space != ns.Stream {
		return 0, nil, stream.BadFormat
	}

	found := make(map[xml.Name]sfData)
	var order []xml.Name
	var anyReq bool
	var total int

parse:
	for {
		tok, err := s.in.d.Token()
		if err != nil {
			return 0, nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			total++
			var matched bool
			for _, feature := range features {
				if feature.Name != t.Name {
					continue
				}
				if (s.state&feature.Necessary) != feature.Necessary || (s.state&feature.Prohibited) != 0 {
					continue
				}
				req, data, perr := feature.Parse(ctx, s.in.d.(*xml.Decoder), &t)
				if perr != nil {
					return 0, nil, perr
				}
				found[t.Name] = sfData{feature: feature, data: data, req: req}
				order = append(order, t.Name)
				s.features[t.Name.Space] = data
				if req {
					anyReq = true
				}
				matched = true
				break
			}
			if !matched {
				d, ok := s.in.d.(*xml.Decoder)
				if !ok {
					return 0, nil, stream.RestrictedXML
				}
				if err := d.Skip(); err != nil {
					return 0, nil, err
				}
			}
		case xml.EndElement:
			if t.Name.Local == "features" && t.Name.Space == ns.Stream {
				break parse
			}
			return 0, nil, stream.BadFormat
		default:
			return 0, nil, stream.RestrictedXML
		}
	}

	if total == 0 || len(found) == 0 {
		return Ready, nil, nil
	}

	var chosen sfData
	var haveChosen bool
	for _, name := range order {
		v := found[name]
		if !anyReq || v.req {
			chosen = v
			haveChosen = true
			break
		}
	}
	if !haveChosen {
		return Ready, nil, nil
	}

	negMask, rw, err := chosen.feature.Negotiate(ctx, s, chosen.data)
	if err != nil {
		return 0, nil, err
	}
	if !anyReq && rw == nil {
		negMask |= Ready
	}
	return negMask, rw, nil
}

func negotiateFeaturesServer(ctx context.Context, s *Session, features []StreamFeature) (mask SessionState, rw io.ReadWriter, err error) {
	if err = s.EncodeToken(xml.StartElement{Name: xml.Name{Space: ns.Stream, Local: "features"}}); err != nil {
		return 0, nil, err
	}
	var anyListed bool
	for _, feature := range features {
		if (s.state&feature.Necessary) != feature.Necessary || (s.state&feature.Prohibited) != 0 {
			continue
		}
		if _, err = feature.List(ctx, s, xml.StartElement{Name: feature.Name}); err != nil {
			return 0, nil, err
		}
		anyListed = true
	}
	if err = s.EncodeToken(xml.EndElement{Name: xml.Name{Space: ns.Stream, Local: "features"}}); err != nil {
		return 0, nil, err
	}
	if err = s.Flush(); err != nil {
		return 0, nil, err
	}
	if !anyListed {
		return Ready, nil, nil
	}

	tok, err := s.in.d.Token()
	if err != nil {
		return 0, nil, err
	}
	start, ok := tok.(xml.StartElement)
	if !ok {
		return 0, nil, stream.BadFormat
	}
	for _, feature := range features {
		if feature.Name != start.Name {
			continue
		}
		return feature.Negotiate(ctx, s, xmlstream.Inner(s.in.d))
	}
	return 0, nil, stream.UnsupportedFeature
}
