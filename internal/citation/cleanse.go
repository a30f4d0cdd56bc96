// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package citation turns a sentence with inline xref citation tags into
// query/citation pairs: markup cleansing, citation-aware splitting, tag
// parsing, and pair accumulation.
package citation

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	// anyTagRe matches a single markup tag. Tags that are not xref tags are
	// removed by Cleanse.
	anyTagRe = regexp.MustCompile(`<[^<>]*>`)

	// rangeSepRe matches a dash, semicolon, or comma between two adjacent
	// citation tags, optionally padded by one character on either side.
	rangeSepRe = regexp.MustCompile(`</xref>[^-;,]?[-;,][^-;,]?<xref`)

	// subLabelRe matches a short sub-label between a citation tag and a
	// closing parenthesis, as in "(<xref ...>3</xref>A)".
	subLabelRe = regexp.MustCompile(`</xref>\w{0,2}\)`)
)

// enumerationRewriter normalizes lead-in words and "and"-joined lists
// around citation tags.
var enumerationRewriter = strings.NewReplacer(
	"(e.g., <xref", "(<xref",
	"(see <xref", "(<xref",
	"</xref>, and <xref", "</xref>,<xref",
	"</xref> and <xref", "</xref>,<xref",
)

// Cleanse decodes HTML entities, strips all inline markup except xref
// tags, and rewrites citation lists into the canonical comma-joined form
// "</xref>,<xref". It never fails; malformed markup passes through as is.
func Cleanse(sent string) string {
	sent = html.UnescapeString(sent)
	sent = anyTagRe.ReplaceAllStringFunc(sent, keepXref)
	sent = rangeSepRe.ReplaceAllLiteralString(sent, "</xref>,<xref")
	sent = subLabelRe.ReplaceAllLiteralString(sent, "</xref>)")
	return enumerationRewriter.Replace(sent)
}

// keepXref returns tag unchanged if it opens or closes an xref element,
// and the empty string otherwise.
func keepXref(tag string) string {
	inner := tag[1:]
	if strings.HasPrefix(inner, "xref") || strings.HasPrefix(inner, "/xref") {
		return tag
	}
	return ""
}
