package segment

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/citation-miner/pkg/types"
)

func TestRulesSegment(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "plain terminators",
			text: "First sentence. Second one! Third?",
			want: []string{"First sentence.", "Second one!", "Third?"},
		},
		{
			name: "abbreviation does not split",
			text: "Smith et al. Reported this. Next one.",
			want: []string{"Smith et al. Reported this.", "Next one."},
		},
		{
			name: "initial does not split",
			text: "J. Smith wrote it. Next.",
			want: []string{"J. Smith wrote it.", "Next."},
		},
		{
			name: "decimal number",
			text: "The value was 3.5 mg. Next.",
			want: []string{"The value was 3.5 mg.", "Next."},
		},
		{
			name: "lower case continuation",
			text: "Known in mice (cf. rats) and e.g. dogs. Done.",
			want: []string{"Known in mice (cf. rats) and e.g. dogs.", "Done."},
		},
		{
			name: "citation stays with its sentence",
			text: `See <xref rid="B1" ref-type="bibr">1</xref>. More text here.`,
			want: []string{`See <xref rid="B1" ref-type="bibr">1</xref>.`, "More text here."},
		},
		{
			name: "period inside tag attribute",
			text: `A <ext-link href="x. Y">link</ext-link> here. Next.`,
			want: []string{`A <ext-link href="x. Y">link</ext-link> here.`, "Next."},
		},
		{
			name: "period before citation is not a boundary",
			text: `Shown before. <xref ref-type="bibr" rid="B1">1</xref> Later.`,
			want: []string{`Shown before. <xref ref-type="bibr" rid="B1">1</xref> Later.`},
		},
		{
			name: "closing quote and end tag",
			text: `He said "stop." Then <italic>E. coli</italic> grew.</italic> Again.`,
			want: []string{`He said "stop."`, `Then <italic>E. coli</italic> grew.</italic>`, "Again."},
		},
		{
			name: "period inside citation label",
			text: `Dosing followed prior guidance (<xref ref-type="bibr" rid="B1">Smith and Co. 2001</xref>). Later work agreed.`,
			want: []string{
				`Dosing followed prior guidance (<xref ref-type="bibr" rid="B1">Smith and Co. 2001</xref>).`,
				"Later work agreed.",
			},
		},
		{
			name: "terminator and capital inside citation label",
			text: `Seen twice <xref ref-type="bibr" rid="B2">Lee! Park</xref> in mice. Next.`,
			want: []string{`Seen twice <xref ref-type="bibr" rid="B2">Lee! Park</xref> in mice.`, "Next."},
		},
		{
			name: "self-closing xref",
			text: `Seen before <xref ref-type="bibr" rid="B1"/>. Next one.`,
			want: []string{`Seen before <xref ref-type="bibr" rid="B1"/>.`, "Next one."},
		},
		{
			name: "no terminator",
			text: "  no terminator here  ",
			want: []string{"no terminator here"},
		},
		{
			name: "whitespace only",
			text: " \n\t ",
			want: nil,
		},
	}

	r := NewRules()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Segment(context.Background(), tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRulesExtraAbbreviations(t *testing.T) {
	r := NewRules("Cond.")
	got, err := r.Segment(context.Background(), "Under cond. Standard heat. Next.")
	require.NoError(t, err)
	assert.Equal(t, []string{"Under cond. Standard heat.", "Next."}, got)
}

func TestRulesSegmentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRules().Segment(ctx, "One. Two.")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFunc(t *testing.T) {
	boom := errors.New("boom")
	var s Segmenter = Func(func(_ context.Context, text string) ([]string, error) {
		if text == "" {
			return nil, boom
		}
		return []string{text}, nil
	})

	got, err := s.Segment(context.Background(), "whole")
	require.NoError(t, err)
	assert.Equal(t, []string{"whole"}, got)

	_, err = s.Segment(context.Background(), "")
	assert.ErrorIs(t, err, boom)
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     types.SegmenterConfig
		wantErr error
		rules   bool
	}{
		{name: "default is rules", cfg: types.SegmenterConfig{}, rules: true},
		{name: "rules", cfg: types.SegmenterConfig{Backend: types.SegmenterRules}, rules: true},
		{name: "unknown", cfg: types.SegmenterConfig{Backend: "spacy"}, wantErr: ErrUnknownSegmenter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.cfg, nil)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			_, ok := s.(*Rules)
			assert.Equal(t, tt.rules, ok)
		})
	}
}

func TestNewSATRequiresPaths(t *testing.T) {
	_, err := New(types.SegmenterConfig{Backend: types.SegmenterSAT, ModelPath: "model.onnx"}, nil)
	assert.Error(t, err)
}

// satModelPaths returns the SaT model and tokenizer named by the
// environment, skipping the test when either is unavailable.
func satModelPaths(t *testing.T) (model, tokenizer string) {
	t.Helper()
	model = os.Getenv("CITATION_MINER_MINE_SAT_MODEL")
	tokenizer = os.Getenv("CITATION_MINER_MINE_SAT_TOKENIZER")
	for _, p := range []string{model, tokenizer} {
		if p == "" {
			t.Skip("Skipping: CITATION_MINER_MINE_SAT_MODEL and CITATION_MINER_MINE_SAT_TOKENIZER not set")
		}
		if _, err := os.Stat(p); err != nil {
			t.Skipf("Skipping: SaT model file not available at %s", p)
		}
	}
	return model, tokenizer
}

func TestSATSegment(t *testing.T) {
	model, tokenizer := satModelPaths(t)

	s, err := New(types.SegmenterConfig{
		Backend:       types.SegmenterSAT,
		ModelPath:     model,
		TokenizerPath: tokenizer,
		PoolSize:      1,
	}, nil)
	require.NoError(t, err)
	sat, ok := s.(*SAT)
	require.True(t, ok, "sat backend should return *SAT")
	defer func() { assert.NoError(t, sat.Close()) }()

	text := "The cells divided twice. Growth then stopped in every culture."
	got, err := sat.Segment(context.Background(), text)
	require.NoError(t, err)
	require.NotEmpty(t, got)

	for _, sent := range got {
		assert.NotEmpty(t, sent)
		assert.Equal(t, strings.TrimSpace(sent), sent)
	}
	squash := func(s string) string { return strings.Join(strings.Fields(s), "") }
	assert.Equal(t, squash(text), squash(strings.Join(got, " ")))
}
