// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package citation

import (
	"regexp"
	"strings"
)

// Splitting regex patterns. Each captures the citation group it splits on
// so the group survives as its own fragment.
var (
	// bracketGroupRe matches citation tags enclosed in square brackets:
	// [<xref ...>1</xref>] or [<xref ...>1</xref>,<xref ...>2</xref>].
	bracketGroupRe = regexp.MustCompile(`\[(<xref .+?>.+?</xref>)\]`)

	// parenGroupRe matches citation tags enclosed in parentheses.
	parenGroupRe = regexp.MustCompile(`\((<xref .+?>.+?</xref>)\)`)

	// spacedTagRe matches a bare citation tag preceded by a space.
	spacedTagRe = regexp.MustCompile(` (<xref .+?>.+?</xref>)`)

	// openEnumerationRe matches an enumeration whose closing bracket was
	// cut off by the sentence segmenter: "(<xref>1</xref>,<xref>2</xref>;".
	openEnumerationRe = regexp.MustCompile(`[(\[](<xref[^>]+>[^<]+</xref>(?:,<xref[^>]+>[^<]+</xref>)*)[;,]`)

	// tagSeparatorRe matches the separator between two adjacent tags.
	tagSeparatorRe = regexp.MustCompile(`</xref>[-;,]?\s?<xref`)

	// singleTagRe matches exactly one citation tag.
	singleTagRe = regexp.MustCompile(`(<xref[^>]+>[^<]+</xref>)`)
)

// Pass is one splitting stage. It takes an ordered fragment sequence and
// returns a new one in which no fragment has been merged with another.
type Pass func(fragments []string) []string

// Passes lists the splitting stages in the order Split applies them,
// from most to least structured.
var Passes = []Pass{
	SplitBracketed,
	SplitParenthesized,
	SplitSpaced,
	SplitOpenEnumerations,
	SplitMixed,
}

// Split breaks a cleansed sentence into alternating prose fragments and
// citation fragments. A citation fragment is a single tag or a
// comma-joined tag enumeration.
func Split(sent string) []string {
	fragments := []string{sent}
	for _, pass := range Passes {
		fragments = pass(fragments)
	}
	return fragments
}

// SplitBracketed splits on bracket-enclosed citation groups, dropping the brackets.
func SplitBracketed(fragments []string) []string {
	return splitEach(fragments, bracketGroupRe)
}

// SplitParenthesized splits on parenthesis-enclosed citation groups, dropping the parentheses.
func SplitParenthesized(fragments []string) []string {
	return splitEach(fragments, parenGroupRe)
}

// SplitSpaced splits on a single citation tag preceded by a space, dropping the space.
func SplitSpaced(fragments []string) []string {
	return splitEach(fragments, spacedTagRe)
}

// SplitOpenEnumerations splits on enumerations that open with a bracket or
// parenthesis but end in a list separator instead of a closing bracket.
func SplitOpenEnumerations(fragments []string) []string {
	return splitEach(fragments, openEnumerationRe)
}

// SplitMixed handles fragments that still interleave prose and tags. It
// removes the separators between adjacent tags and splits on every tag.
// Fragments that already start with a tag are left alone.
func SplitMixed(fragments []string) []string {
	out := make([]string, 0, len(fragments))
	for _, frag := range fragments {
		if strings.HasPrefix(frag, "<xref") || !strings.Contains(frag, "<xref") {
			out = append(out, frag)
			continue
		}
		frag = tagSeparatorRe.ReplaceAllLiteralString(frag, "</xref><xref")
		out = append(out, splitKeep(singleTagRe, frag)...)
	}
	return out
}

func splitEach(fragments []string, re *regexp.Regexp) []string {
	out := make([]string, 0, len(fragments))
	for _, frag := range fragments {
		out = append(out, splitKeep(re, frag)...)
	}
	return out
}

// splitKeep splits s around every match of re and keeps the first capture
// group of each match between the surrounding pieces. The result always
// has odd length: text, group, text, ..., text. Leading and trailing
// pieces are kept even when empty.
func splitKeep(re *regexp.Regexp, s string) []string {
	matches := re.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return []string{s}
	}
	parts := make([]string, 0, 2*len(matches)+1)
	prev := 0
	for _, m := range matches {
		parts = append(parts, s[prev:m[0]], s[m[2]:m[3]])
		prev = m[1]
	}
	return append(parts, s[prev:])
}
