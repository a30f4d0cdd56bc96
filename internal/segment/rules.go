// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package segment

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"
)

// defaultAbbreviations are lower-cased tokens that end with a period but
// do not end a sentence in biomedical prose.
var defaultAbbreviations = []string{
	"al", "e.g", "i.e", "etc", "vs", "cf", "viz", "approx", "ca",
	"fig", "figs", "tab", "ref", "refs", "eq", "eqs", "no", "nos", "vol",
	"sp", "spp", "var", "resp", "incl", "suppl", "dr", "mr", "mrs", "ms", "st",
}

// Rules is a punctuation-driven segmenter. A sentence ends at '.', '!' or
// '?' outside markup and outside xref elements, followed by optional closing quotes, brackets, or
// end tags, then whitespace and a capital letter, digit, opening quote, or
// a tag other than xref. Known abbreviations and single-letter initials do
// not end a sentence.
type Rules struct {
	abbreviations map[string]bool
}

// NewRules returns a rule-based segmenter with the default abbreviations
// plus any extra ones given.
func NewRules(extra ...string) *Rules {
	r := &Rules{abbreviations: make(map[string]bool)}
	for _, a := range defaultAbbreviations {
		r.abbreviations[a] = true
	}
	for _, a := range extra {
		r.abbreviations[strings.ToLower(strings.TrimSuffix(a, "."))] = true
	}
	return r
}

// Segment splits text into trimmed, non-empty sentences.
func (r *Rules) Segment(ctx context.Context, text string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []string
	start := 0
	inTag, inXref := false, false
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '<':
			inXref = xrefState(text[i:], inXref)
			inTag = true
			continue
		case c == '>':
			inTag = false
			continue
		case inTag, inXref:
			continue
		}
		if c != '.' && c != '!' && c != '?' {
			continue
		}
		end := r.boundary(text, i)
		if end < 0 {
			continue
		}
		out = appendSentence(out, text[start:end])
		start = end
		i = end - 1
	}
	return appendSentence(out, text[start:]), nil
}

// xrefState returns whether the text after the tag starting at tag[0] is
// inside an xref element, given the state before it. Self-closing xref
// tags leave the state unchanged.
func xrefState(tag string, in bool) bool {
	k := strings.IndexByte(tag, '>')
	if k < 0 {
		return in
	}
	t := tag[:k+1]
	switch {
	case strings.HasPrefix(t, "</xref"):
		return false
	case strings.HasPrefix(t, "<xref ") || t == "<xref>":
		return !strings.HasSuffix(t, "/>")
	}
	return in
}

// boundary returns the end offset of the sentence whose terminator is at
// text[i], or -1 when text[i] does not end a sentence.
func (r *Rules) boundary(text string, i int) int {
	if text[i] == '.' && r.isAbbreviation(text[:i]) {
		return -1
	}

	j := i + 1
	for j < len(text) {
		if strings.HasPrefix(text[j:], "</") {
			k := strings.IndexByte(text[j:], '>')
			if k < 0 {
				return -1
			}
			j += k + 1
			continue
		}
		ch, size := utf8.DecodeRuneInString(text[j:])
		if !strings.ContainsRune(`.!?)]"'’”`, ch) {
			break
		}
		j += size
	}
	end := j

	ws := 0
	for j < len(text) {
		ch, size := utf8.DecodeRuneInString(text[j:])
		if !unicode.IsSpace(ch) {
			break
		}
		j += size
		ws++
	}
	if ws == 0 || j == len(text) {
		return -1
	}

	next, _ := utf8.DecodeRuneInString(text[j:])
	switch {
	case unicode.IsUpper(next), unicode.IsDigit(next), next == '"', next == '“':
		return end
	case next == '<':
		if strings.HasPrefix(text[j:], "<xref") || strings.HasPrefix(text[j:], "</") {
			return -1
		}
		return end
	}
	return -1
}

// isAbbreviation reports whether the word ending just before a period is a
// known abbreviation or a single-letter initial.
func (r *Rules) isAbbreviation(before string) bool {
	k := strings.LastIndexFunc(before, func(ch rune) bool {
		return unicode.IsSpace(ch) || ch == '>' || ch == '(' || ch == '['
	})
	word := before
	if k >= 0 {
		_, size := utf8.DecodeRuneInString(before[k:])
		word = before[k+size:]
	}
	if word == "" {
		return false
	}
	if utf8.RuneCountInString(word) == 1 {
		ch, _ := utf8.DecodeRuneInString(word)
		return unicode.IsLetter(ch)
	}
	return r.abbreviations[strings.ToLower(word)]
}

func appendSentence(out []string, s string) []string {
	if s = strings.TrimSpace(s); s != "" {
		out = append(out, s)
	}
	return out
}
