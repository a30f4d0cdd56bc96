package citation

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/citation-miner/pkg/types"
)

// --- helpers ---

type knownSet map[types.DocumentID]bool

func (k knownSet) Contains(id types.DocumentID) bool { return k[id] }

func bibr(rid, label string) string {
	return `<xref ref-type="bibr" rid="` + rid + `">` + label + `</xref>`
}

func fig(rid, label string) string {
	return `<xref ref-type="fig" rid="` + rid + `">` + label + `</xref>`
}

var (
	testRefs  = types.ReferenceMap{"B1": "1001", "B2": "1002", "B3": "3000"}
	testKnown = knownSet{"1001": true, "1002": true}
)

// --- Cleanse ---

func TestCleanse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "decodes entities",
			in:   `IL-6 &amp; TNF&#945; rise ` + bibr("B1", "1"),
			want: `IL-6 & TNFα rise ` + bibr("B1", "1"),
		},
		{
			name: "strips non-xref markup",
			in:   `<italic>In vivo</italic> data <sup>` + bibr("B1", "1") + `</sup>`,
			want: `In vivo data ` + bibr("B1", "1"),
		},
		{
			name: "escaped markup is stripped after decoding",
			in:   `&lt;bold&gt;Strong&lt;/bold&gt; claim ` + bibr("B1", "1"),
			want: `Strong claim ` + bibr("B1", "1"),
		},
		{
			name: "dash range becomes comma list",
			in:   `seen [` + bibr("B1", "1") + `-` + bibr("B3", "3") + `]`,
			want: `seen [` + bibr("B1", "1") + `,` + bibr("B3", "3") + `]`,
		},
		{
			name: "padded semicolon becomes comma",
			in:   `seen (` + bibr("B1", "1") + `; ` + bibr("B2", "2") + `)`,
			want: `seen (` + bibr("B1", "1") + `,` + bibr("B2", "2") + `)`,
		},
		{
			name: "sub-label before closing parenthesis is removed",
			in:   `seen (` + bibr("B1", "1") + `a)`,
			want: `seen (` + bibr("B1", "1") + `)`,
		},
		{
			name: "and-joined tags",
			in:   `by ` + bibr("B1", "1") + ` and ` + bibr("B2", "2"),
			want: `by ` + bibr("B1", "1") + `,` + bibr("B2", "2"),
		},
		{
			name: "comma and-joined tags",
			in:   `by ` + bibr("B1", "1") + `, and ` + bibr("B2", "2"),
			want: `by ` + bibr("B1", "1") + `,` + bibr("B2", "2"),
		},
		{
			name: "lead-in words inside parentheses",
			in:   `shown (e.g., ` + bibr("B1", "1") + `) and (see ` + bibr("B2", "2") + `)`,
			want: `shown (` + bibr("B1", "1") + `) and (` + bibr("B2", "2") + `)`,
		},
		{
			name: "unterminated angle bracket is left alone",
			in:   `p < 0.05 in ` + bibr("B1", "1"),
			want: `p < 0.05 in ` + bibr("B1", "1"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Cleanse(tt.in))
		})
	}
}

// --- splitting passes ---

func TestSplitBracketed(t *testing.T) {
	in := []string{`Known [` + bibr("B1", "1") + `,` + bibr("B2", "2") + `] result.`}
	want := []string{"Known ", bibr("B1", "1") + `,` + bibr("B2", "2"), " result."}
	assert.Equal(t, want, SplitBracketed(in))
}

func TestSplitParenthesized(t *testing.T) {
	in := []string{`Known (` + bibr("B1", "1") + `) result (` + bibr("B2", "2") + `)`}
	want := []string{"Known ", bibr("B1", "1"), " result ", bibr("B2", "2"), ""}
	assert.Equal(t, want, SplitParenthesized(in))
}

func TestSplitSpaced(t *testing.T) {
	in := []string{"prefix", `later ` + bibr("B2", "2") + ` confirmed it.`}
	want := []string{"prefix", "later", bibr("B2", "2"), " confirmed it."}
	assert.Equal(t, want, SplitSpaced(in))
}

func TestSplitOpenEnumerations(t *testing.T) {
	in := []string{`Shown (` + bibr("B1", "1") + `,` + bibr("B2", "2") + `;`}
	want := []string{"Shown ", bibr("B1", "1") + `,` + bibr("B2", "2"), ""}
	assert.Equal(t, want, SplitOpenEnumerations(in))
}

func TestSplitMixed(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "separators between glued tags are removed",
			in:   []string{`Data` + bibr("B1", "1") + `; ` + bibr("B2", "2") + ` end`},
			want: []string{"Data", bibr("B1", "1"), "", bibr("B2", "2"), " end"},
		},
		{
			name: "fragment starting with a tag is not re-split",
			in:   []string{bibr("B1", "1") + `,` + bibr("B2", "2")},
			want: []string{bibr("B1", "1") + `,` + bibr("B2", "2")},
		},
		{
			name: "prose without tags passes through",
			in:   []string{"plain prose"},
			want: []string{"plain prose"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitMixed(tt.in))
		})
	}
}

func TestSplitPassesAreLossless(t *testing.T) {
	sent := `A [` + bibr("B1", "1") + `] b (` + bibr("B2", "2") + `) c ` + bibr("B3", "3") + ` d.`

	tests := []struct {
		name   string
		pass   Pass
		before string
		after  string
	}{
		{"bracketed", SplitBracketed, "[", "]"},
		{"parenthesized", SplitParenthesized, "(", ")"},
		{"spaced", SplitSpaced, " ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parts := tt.pass([]string{sent})
			require.Equal(t, 1, len(parts)%2, "split output alternates text and groups")

			var b strings.Builder
			for i, p := range parts {
				if i%2 == 1 {
					b.WriteString(tt.before + p + tt.after)
					continue
				}
				b.WriteString(p)
			}
			assert.Equal(t, sent, b.String())
		})
	}
}

func TestSplit(t *testing.T) {
	sent := `Prior work [` + bibr("B1", "1") + `] showed X, and later ` + bibr("B2", "2") + ` confirmed it.`
	want := []string{
		"Prior work ",
		bibr("B1", "1"),
		" showed X, and later",
		bibr("B2", "2"),
		" confirmed it.",
	}
	assert.Equal(t, want, Split(sent))
}

// --- ParseTag ---

func TestParseTag(t *testing.T) {
	tests := []struct {
		name    string
		frag    string
		want    types.Citation
		wantErr bool
	}{
		{
			name: "bibliographic",
			frag: bibr("B1", "1"),
			want: types.Citation{Kind: types.KindBibliographic, RID: "B1"},
		},
		{
			name: "figure",
			frag: fig("F2", "Figure 2"),
			want: types.Citation{Kind: types.KindFigure, RID: "F2"},
		},
		{
			name: "surrounding whitespace",
			frag: "  " + bibr("B2", "2") + "\n",
			want: types.Citation{Kind: types.KindBibliographic, RID: "B2"},
		},
		{name: "missing rid", frag: `<xref ref-type="bibr">1</xref>`, wantErr: true},
		{name: "missing ref-type", frag: `<xref rid="B1">1</xref>`, wantErr: true},
		{name: "trailing text", frag: bibr("B1", "1") + "A", wantErr: true},
		{name: "leading text", frag: "see " + bibr("B1", "1"), wantErr: true},
		{name: "two elements", frag: bibr("B1", "1") + bibr("B2", "2"), wantErr: true},
		{name: "unterminated", frag: `<xref ref-type="bibr" rid="B1">1</xre`, wantErr: true},
		{name: "wrong element", frag: `<sup>1</sup>`, wantErr: true},
		{name: "raw ampersand", frag: `<xref ref-type="bibr" rid="B1">1 & 2</xref>`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTag(tt.frag)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrMalformedTag))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// --- Accumulate ---

func TestAccumulateExampleSentence(t *testing.T) {
	sent := Cleanse(`Prior work [` + bibr("B1", "1") + `] showed X, and later ` + bibr("B2", "2") + ` confirmed it.`)
	fragments := Split(sent)

	t.Run("iterative", func(t *testing.T) {
		res := Accumulate(fragments, testRefs, testKnown, Iterative)
		assert.Equal(t, Complete, res.Status)
		assert.Nil(t, res.Failure)
		assert.Equal(t, []types.QueryPair{
			{Query: "Prior work", DocumentIDs: []types.DocumentID{"1001"}},
			{Query: "Prior work showed X, and later", DocumentIDs: []types.DocumentID{"1002"}},
		}, res.Pairs)
	})

	t.Run("total", func(t *testing.T) {
		res := Accumulate(fragments, testRefs, testKnown, Total)
		assert.Equal(t, Complete, res.Status)
		assert.Equal(t, []types.QueryPair{
			{Query: "Prior work showed X, and later", DocumentIDs: []types.DocumentID{"1001", "1002"}},
		}, res.Pairs)
	})
}

func TestAccumulateTotalKeepsDuplicates(t *testing.T) {
	fragments := []string{"A", bibr("B1", "1"), " b", bibr("B1", "1") + "," + bibr("B2", "2")}
	res := Accumulate(fragments, testRefs, testKnown, Total)
	require.Len(t, res.Pairs, 1)
	assert.Equal(t, []types.DocumentID{"1001", "1001", "1002"}, res.Pairs[0].DocumentIDs)
	assert.Equal(t, "A b", res.Pairs[0].Query)
}

func TestAccumulateDiscardsLeadingCitation(t *testing.T) {
	fragments := []string{"", bibr("B1", "1"), " reported nothing else."}
	for _, p := range []Policy{Iterative, Total} {
		t.Run(p.Name(), func(t *testing.T) {
			res := Accumulate(fragments, testRefs, testKnown, p)
			assert.Equal(t, Empty, res.Status)
			assert.Empty(t, res.Pairs)
		})
	}
}

func TestAccumulateSkipsNonBibliographic(t *testing.T) {
	fragments := []string{"Shown in", fig("F1", "Fig. 1") + "," + bibr("B1", "1"), " and", fig("F2", "Fig. 2")}

	res := Accumulate(fragments, testRefs, testKnown, Iterative)
	require.Equal(t, Complete, res.Status)
	require.Len(t, res.Pairs, 1)
	assert.Equal(t, []types.DocumentID{"1001"}, res.Pairs[0].DocumentIDs)

	res = Accumulate(fragments, testRefs, testKnown, Total)
	require.Len(t, res.Pairs, 1)
	assert.Equal(t, "Shown in", res.Pairs[0].Query)
	assert.Equal(t, []types.DocumentID{"1001"}, res.Pairs[0].DocumentIDs)
}

func TestAccumulateDropsUnresolvable(t *testing.T) {
	// B3 resolves to an unknown document, B9 is not in the reference map.
	fragments := []string{"Claim", bibr("B3", "3") + "," + bibr("B9", "9") + "," + bibr("B2", "2")}
	res := Accumulate(fragments, testRefs, testKnown, Iterative)
	require.Len(t, res.Pairs, 1)
	assert.Equal(t, []types.DocumentID{"1002"}, res.Pairs[0].DocumentIDs)
}

func TestAccumulateMalformedTag(t *testing.T) {
	fragments := []string{
		"First", bibr("B1", "1"),
		" second", `<xref ref-type="bibr">2</xref>`,
		" third", bibr("B2", "2"),
	}

	t.Run("iterative keeps earlier pairs", func(t *testing.T) {
		res := Accumulate(fragments, testRefs, testKnown, Iterative)
		assert.Equal(t, Partial, res.Status)
		require.NotNil(t, res.Failure)
		assert.Equal(t, `<xref ref-type="bibr">2</xref>`, res.Failure.Fragment)
		assert.ErrorIs(t, res.Failure.Err, ErrMalformedTag)
		assert.Equal(t, []types.QueryPair{
			{Query: "First", DocumentIDs: []types.DocumentID{"1001"}},
		}, res.Pairs)
	})

	t.Run("total drops the sentence", func(t *testing.T) {
		res := Accumulate(fragments, testRefs, testKnown, Total)
		assert.Equal(t, Partial, res.Status)
		require.NotNil(t, res.Failure)
		assert.Nil(t, res.Pairs)
	})
}

func TestAccumulateNeverEmitsEmptyQuery(t *testing.T) {
	sequences := [][]string{
		{"", bibr("B1", "1")},
		{" ", bibr("B1", "1"), "x", bibr("B2", "2")},
		{bibr("B1", "1"), bibr("B2", "2")},
		{"\t\n", fig("F1", "1"), "", bibr("B2", "2")},
		Split(Cleanse(`[` + bibr("B1", "1") + `] opens the sentence ` + bibr("B2", "2") + `.`)),
	}
	for _, seq := range sequences {
		for _, p := range []Policy{Iterative, Total} {
			res := Accumulate(seq, testRefs, testKnown, p)
			for _, pair := range res.Pairs {
				assert.NotEmpty(t, pair.Query, "policy %s, fragments %q", p.Name(), seq)
			}
		}
	}
}

func TestPolicyFor(t *testing.T) {
	p, err := PolicyFor(types.PolicyIterative)
	require.NoError(t, err)
	assert.Equal(t, "iterative", p.Name())

	p, err = PolicyFor(types.PolicyTotal)
	require.NoError(t, err)
	assert.Equal(t, "total", p.Name())

	_, err = PolicyFor("greedy")
	assert.ErrorIs(t, err, types.ErrInvalidPolicy)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "empty", Empty.String())
	assert.Equal(t, "complete", Complete.String())
	assert.Equal(t, "partial", Partial.String())
}
