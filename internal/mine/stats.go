package mine

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/citation-miner/internal/jats"
	"github.com/pdiddy/citation-miner/pkg/types"
)

// Stage names where an article can fail.
const (
	StageReference  = "reference"
	StageExtraction = "extraction"
)

// UnsuccessfulPaper is an article that could not be processed.
type UnsuccessfulPaper struct {
	Path  string `yaml:"path"`
	Stage string `yaml:"stage"`
	Error string `yaml:"error"`
}

func (u UnsuccessfulPaper) String() string {
	return fmt.Sprintf("(%s, %s, %s)", u.Path, u.Stage, u.Error)
}

// Timings are cumulative wall-clock durations of the run phases.
type Timings struct {
	KnownDocsLoad   time.Duration `yaml:"known_docs_load"`
	Reference       time.Duration `yaml:"reference"`
	QueryArticle    time.Duration `yaml:"query_article"`
	QueryTableWrite time.Duration `yaml:"query_table_write"`
	TrainingWrite   time.Duration `yaml:"training_write"`
}

// Stats is the diagnostic accounting of one run.
type Stats struct {
	Policy types.Policy `yaml:"policy"`

	Articles            int `yaml:"articles"`
	KnownDocs           int `yaml:"known_docs"`
	Queries             int `yaml:"queries"`
	TrainingRecords     int `yaml:"training_records"`
	ArticlesExtracted   int `yaml:"articles_extracted"`
	ArticlesFullyParsed int `yaml:"articles_fully_parsed"`

	ResolvedRefLists int `yaml:"resolved_ref_lists"`
	PMIDRefs         int `yaml:"pmid_refs"`
	DOIRefs          int `yaml:"doi_refs"`

	NoRefList        []string            `yaml:"-"`
	NonUsableRefList []string            `yaml:"-"`
	MissingIDs       []jats.MissingID    `yaml:"-"`
	Unsuccessful     []UnsuccessfulPaper `yaml:"unsuccessful,omitempty"`

	SentenceErrors  int `yaml:"sentence_errors"`
	ParagraphErrors int `yaml:"paragraph_errors"`
	ArticleErrors   int `yaml:"article_errors"`

	Timings Timings `yaml:"timings"`
}

// AddResolution merges one article's reference accounting.
func (s *Stats) AddResolution(res jats.Resolution) {
	s.PMIDRefs += res.PMIDRefs
	s.DOIRefs += res.DOIRefs
	s.MissingIDs = append(s.MissingIDs, res.Missing...)
	switch res.Status {
	case jats.Resolved:
		s.ResolvedRefLists++
	case jats.NoRefList:
		s.NoRefList = append(s.NoRefList, res.ArticleID)
	case jats.NonUsableRefList:
		s.NonUsableRefList = append(s.NonUsableRefList, res.ArticleID)
	}
}

// WriteReport writes the fullrun_stats report.
func (s *Stats) WriteReport(w io.Writer) error {
	var b strings.Builder
	line := func(label string, v any) { fmt.Fprintf(&b, "%s %v\n", label, v) }

	line("method", s.Policy)
	line("num qid2info", s.Queries)
	line("num train2jsonl", s.TrainingRecords)
	line("num successful_get_qa_pairs", s.ArticlesExtracted)
	line("num num_fully_parsed", s.ArticlesFullyParsed)
	line("num articles", s.Articles)
	line("time pmid2info_size", s.KnownDocs)
	line("time pmid2info_load_time", seconds(s.Timings.KnownDocsLoad))
	line("time reference_time", seconds(s.Timings.Reference))
	line("time query_article_time", seconds(s.Timings.QueryArticle))
	line("time qid2info_write_time", seconds(s.Timings.QueryTableWrite))
	line("time train2jsonl_time", seconds(s.Timings.TrainingWrite))
	line("num faulty papers", len(s.NonUsableRefList))
	line("papers_wo_reflist", len(s.NoRefList))
	line("num_pm_refs", s.PMIDRefs)
	line("num_doi_refs", s.DOIRefs)
	line("num_cit_wo_pubid", len(s.MissingIDs))
	line("successful_reflist", s.ResolvedRefLists)
	line("unsuccesful_papers", len(s.Unsuccessful))
	line("sentence_errors", s.SentenceErrors)
	line("paragraph_errors", s.ParagraphErrors)
	line("article_errors", s.ArticleErrors)

	if len(s.NonUsableRefList) > 0 {
		line("faulty papers", examples(s.NonUsableRefList))
	}
	if len(s.NoRefList) > 0 {
		line("papers_wo_reflist", examples(s.NoRefList))
	}
	if len(s.MissingIDs) > 0 {
		line("num_cit_wo_pubid", examples(s.MissingIDs))
	}
	if len(s.Unsuccessful) > 0 {
		line("unsuccesful_papers", examples(s.Unsuccessful))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// examples picks the first, middle, and last element of xs.
func examples[T any](xs []T) []T {
	if len(xs) == 0 {
		return nil
	}
	return []T{xs[0], xs[len(xs)/2], xs[len(xs)-1]}
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}
