// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package citation

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/citation-miner/pkg/types"
)

// ErrMalformedTag is returned when a citation fragment is not exactly one
// well-formed xref element carrying ref-type and rid attributes.
var ErrMalformedTag = errors.New("malformed citation tag")

const closeTag = "</xref>"

// IsTagFragment reports whether a fragment carries citation markup rather
// than prose.
func IsTagFragment(frag string) bool {
	return strings.Contains(frag, closeTag)
}

// isEnumeration reports whether a tag fragment holds several comma-joined tags.
func isEnumeration(frag string) bool {
	return strings.Contains(frag, "</xref>,<xref")
}

type xrefElement struct {
	XMLName xml.Name `xml:"xref"`
	RefType *string  `xml:"ref-type,attr"`
	RID     *string  `xml:"rid,attr"`
}

// ParseTag parses a single serialized xref element such as
// `<xref ref-type="bibr" rid="B1">1</xref>`. Whitespace may surround the
// element; any other content outside it is an error.
func ParseTag(frag string) (types.Citation, error) {
	d := xml.NewDecoder(strings.NewReader(frag))

	var (
		el    xrefElement
		found bool
	)
	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return types.Citation{}, fmt.Errorf("%w: %v", ErrMalformedTag, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if found {
				return types.Citation{}, fmt.Errorf("%w: extra element <%s> after xref", ErrMalformedTag, t.Name.Local)
			}
			if t.Name.Local != "xref" {
				return types.Citation{}, fmt.Errorf("%w: unexpected element <%s>", ErrMalformedTag, t.Name.Local)
			}
			if err := d.DecodeElement(&el, &t); err != nil {
				return types.Citation{}, fmt.Errorf("%w: %v", ErrMalformedTag, err)
			}
			found = true
		case xml.CharData:
			if len(strings.TrimSpace(string(t))) > 0 {
				return types.Citation{}, fmt.Errorf("%w: text outside xref element", ErrMalformedTag)
			}
		}
	}

	if !found {
		return types.Citation{}, fmt.Errorf("%w: no xref element", ErrMalformedTag)
	}
	if el.RefType == nil {
		return types.Citation{}, fmt.Errorf("%w: missing ref-type attribute", ErrMalformedTag)
	}
	if el.RID == nil {
		return types.Citation{}, fmt.Errorf("%w: missing rid attribute", ErrMalformedTag)
	}
	return types.Citation{Kind: types.CitationKind(*el.RefType), RID: *el.RID}, nil
}
