package mine

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/citation-miner/internal/jats"
	"github.com/pdiddy/citation-miner/pkg/types"
)

func TestWriteQueryTable(t *testing.T) {
	tests := []struct {
		name    string
		queries []string
		want    string
	}{
		{name: "empty", queries: nil, want: "{}"},
		{
			name:    "preserves non-ascii and markup characters",
			queries: []string{"Tumör <i>α</i> & β", `quoted "text"`},
			want:    "{\n    \"0\": \"Tumör <i>α</i> & β\",\n    \"1\": \"quoted \\\"text\\\"\"\n}",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteQueryTable(&buf, tt.queries))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestWriteQueryTableKeepsNumericOrder(t *testing.T) {
	queries := make([]string, 12)
	for i := range queries {
		queries[i] = "q"
	}
	var buf bytes.Buffer
	require.NoError(t, WriteQueryTable(&buf, queries))

	out := buf.String()
	assert.Less(t, bytes.Index([]byte(out), []byte(`"2"`)), bytes.Index([]byte(out), []byte(`"10"`)))
}

func TestWriteEdgeCounts(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteEdgeCounts(&buf, []ArticleEdges{{Path: "b.nxml", Edges: 3}, {Path: "a.nxml", Edges: 1}}))
	assert.Equal(t, "{\n    \"b.nxml\": 3,\n    \"a.nxml\": 1\n}", buf.String())
}

func TestManifestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ManifestFile)
	want := Manifest{
		RunID:      "5f0c6a39-8d51-4c41-9ad5-0a2b1f3c7d11",
		StartedAt:  time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC),
		Config:     types.MiningConfig{KnownDocsPath: "pmid2info.json", Policy: types.PolicyTotal},
		Stats: &Stats{
			Policy:       types.PolicyTotal,
			Queries:      7,
			Unsuccessful: []UnsuccessfulPaper{{Path: "x.nxml", Stage: StageReference, Error: "boom"}},
			Timings:      Timings{Reference: 1500 * time.Millisecond},
		},
		Artifacts: []string{QueryTableFile},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteManifest(&buf, want))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	got, err := ReadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, want, *got)
}

func TestErrorLog(t *testing.T) {
	var l ErrorLog
	l.Sentence("PMC1", "a <xref>", "<xref>", errors.New("bad tag"))
	l.Paragraph("PMC2", "para", errors.New("seg"))
	l.Reference("/x/a.nxml", errors.New("ref"))
	l.Paper("/x/b.nxml", errors.New("paper"))

	assert.Equal(t, 4, l.Len())
	assert.Equal(t, "PMC1\nsentence: a <xref>\npart: <xref>\nerror: bad tag\n\n"+
		"PMC2\nparagraph: para\nparagrapherror: seg\n\n"+
		"/x/a.nxml\nrefdicterror: ref\n\n"+
		"/x/b.nxml\npapererror: paper\n\n", l.String())

	var buf bytes.Buffer
	n, err := l.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
}

func TestExamples(t *testing.T) {
	assert.Nil(t, examples([]string(nil)))
	assert.Equal(t, []int{1, 1, 1}, examples([]int{1}))
	assert.Equal(t, []int{1, 2, 2}, examples([]int{1, 2}))
	assert.Equal(t, []int{1, 3, 5}, examples([]int{1, 2, 3, 4, 5}))
}

func TestStatsAddResolution(t *testing.T) {
	var s Stats
	s.AddResolution(jats.Resolution{ArticleID: "A", Status: jats.Resolved, PMIDRefs: 2, Missing: []jats.MissingID{{ArticleID: "A", RID: "r"}}})
	s.AddResolution(jats.Resolution{ArticleID: "B", Status: jats.NoRefList})
	s.AddResolution(jats.Resolution{ArticleID: "C", Status: jats.NonUsableRefList, DOIRefs: 1})

	assert.Equal(t, 1, s.ResolvedRefLists)
	assert.Equal(t, 2, s.PMIDRefs)
	assert.Equal(t, 1, s.DOIRefs)
	assert.Equal(t, []string{"B"}, s.NoRefList)
	assert.Equal(t, []string{"C"}, s.NonUsableRefList)
	assert.Len(t, s.MissingIDs, 1)
}

func TestReadArticleList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "list")
	require.NoError(t, os.WriteFile(path, []byte("a.nxml\n\n  b.nxml  \r\n\nc.nxml"), 0o644))

	paths, err := ReadArticleList(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.nxml", "b.nxml", "c.nxml"}, paths)

	_, err = ReadArticleList(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
