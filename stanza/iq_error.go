// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanza

import (
	"encoding/xml"
	"fmt"
)

// UnmarshalIQError checks the type attribute on an IQ start element and, if
// it is "error", decodes the wrapped <error/> child from r into an Error and
// returns it. If the IQ is not of type error, it returns false, nil without
// consuming r.
func UnmarshalIQError(r xml.TokenReader, start xml.StartElement) (bool, error) {
	var typ string
	for _, a := range start.Attr {
		if a.Name.Space == "" && a.Name.Local == "type" {
			typ = a.Value
		}
	}
	if typ != string(ErrorIQ) {
		return false, nil
	}

	tok, err := r.Token()
	if err != nil {
		return true, err
	}
	errStart, ok := tok.(xml.StartElement)
	if !ok || errStart.Name.Local != "error" {
		return true, fmt.Errorf("stanza: expected error child element, got %T", tok)
	}

	se := Error{}
	if err := xml.NewTokenDecoder(r).DecodeElement(&se, &errStart); err != nil {
		return true, err
	}
	return true, se
}
