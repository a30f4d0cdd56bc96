// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/citation-miner/internal/citation"
	"github.com/pdiddy/citation-miner/internal/jats"
	"github.com/pdiddy/citation-miner/internal/knowndocs"
	"github.com/pdiddy/citation-miner/internal/segment"
	"github.com/pdiddy/citation-miner/pkg/types"
)

// Deps are the collaborators of a mining run.
type Deps struct {
	// Segmenter splits paragraphs into sentences. Defaults to the
	// rule-based segmenter.
	Segmenter segment.Segmenter

	// Logger receives structured diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// RunResult is the outcome of a mining run.
type RunResult struct {
	RunID string

	// Queries is the query table indexed by query id.
	Queries []string

	Records []types.TrainingRecord
	Edges   []ArticleEdges
	Stats   *Stats
	Log     *ErrorLog
}

// Run mines every article in cfg.ArticleList and writes the run artifacts
// to cfg.OutputDir. An unreadable Known-Document Set or article list, or an
// unwritable output directory, is returned as an error before any article
// is read. Per-article failures are recorded and never stop the batch. On
// cancellation the artifacts for the articles processed so far are
// written and the context error is returned alongside the result.
func Run(ctx context.Context, cfg types.MiningConfig, deps Deps, w io.Writer) (*RunResult, error) {
	started := time.Now()

	policy, err := citation.PolicyFor(cfg.Policy)
	if err != nil {
		return nil, err
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Segmenter == nil {
		deps.Segmenter = segment.NewRules()
	}
	if w == nil {
		w = io.Discard
	}
	if cfg.ArticleList == "" {
		cfg.ArticleList = DefaultArticleList
	}

	if err := ensureOutputDir(cfg.OutputDir); err != nil {
		return nil, err
	}
	paths, err := ReadArticleList(cfg.ArticleList)
	if err != nil {
		return nil, err
	}

	t0 := time.Now()
	known, err := knowndocs.Load(cfg.KnownDocsPath)
	if err != nil {
		return nil, err
	}

	r := &runner{
		result: &RunResult{
			RunID: uuid.NewString(),
			Stats: &Stats{Policy: cfg.Policy, Articles: len(paths), KnownDocs: known.Len()},
			Log:   &ErrorLog{},
		},
		logger: deps.Logger,
		w:      w,
	}
	r.result.Stats.Timings.KnownDocsLoad = time.Since(t0)
	r.extractor = NewExtractor(deps.Segmenter, known, policy, r.result.Log, deps.Logger)

	deps.Logger.Info("mining started",
		"run_id", r.result.RunID, "policy", cfg.Policy, "articles", len(paths), "known_docs", known.Len())

	var runErr error
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		if err := r.article(ctx, path); err != nil {
			runErr = err
			break
		}
	}

	if err := r.writeArtifacts(cfg, started, runErr != nil); err != nil {
		return r.result, err
	}

	st := r.result.Stats
	deps.Logger.Info("mining finished",
		"run_id", r.result.RunID, "queries", st.Queries, "records", st.TrainingRecords,
		"fully_parsed", st.ArticlesFullyParsed, "unsuccessful", len(st.Unsuccessful))
	return r.result, runErr
}

type runner struct {
	result    *RunResult
	extractor *Extractor
	logger    *slog.Logger
	w         io.Writer
}

// article processes one article. It returns an error only when the
// context is cancelled mid-article.
func (r *runner) article(ctx context.Context, path string) error {
	st := r.result.Stats

	t0 := time.Now()
	res, err := r.resolve(path)
	st.Timings.Reference += time.Since(t0)
	if err != nil {
		r.fail(path, StageReference, err)
		return nil
	}
	st.AddResolution(res.resolution)
	if res.resolution.Status != jats.Resolved {
		return nil
	}

	t1 := time.Now()
	extracted, err := r.extract(ctx, res.doc, res.resolution.Refs)
	st.Timings.QueryArticle += time.Since(t1)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.fail(path, StageExtraction, err)
		return nil
	}
	st.ArticlesExtracted++
	st.SentenceErrors += extracted.SentenceErrors
	st.ParagraphErrors += extracted.ParagraphErrors

	edges := 0
	for _, pair := range extracted.Pairs {
		if len(pair.DocumentIDs) == 0 {
			continue
		}
		qid := strconv.Itoa(len(r.result.Queries))
		r.result.Queries = append(r.result.Queries, pair.Query)
		for _, id := range pair.DocumentIDs {
			r.result.Records = append(r.result.Records, types.TrainingRecord{QID: qid, PMID: string(id), Click: 1})
		}
		edges += len(pair.DocumentIDs)
	}
	st.Queries = len(r.result.Queries)
	st.TrainingRecords = len(r.result.Records)

	if edges > 0 {
		st.ArticlesFullyParsed++
		r.result.Edges = append(r.result.Edges, ArticleEdges{Path: path, Edges: edges})
	}
	return nil
}

type resolved struct {
	doc        *jats.Document
	resolution jats.Resolution
}

// errParse marks a document that could not be read or parsed. It is
// recorded as an unsuccessful paper without an error log entry.
var errParse = errors.New("document parse failed")

func (r *runner) resolve(path string) (res resolved, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
			r.result.Log.Reference(path, err)
		}
	}()

	doc, err := jats.ParseFile(path)
	if err != nil {
		return res, fmt.Errorf("%w: %w", errParse, err)
	}
	return resolved{doc: doc, resolution: jats.ResolveReferences(doc)}, nil
}

func (r *runner) extract(ctx context.Context, doc *jats.Document, refs types.ReferenceMap) (res ArticleResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
			r.result.Log.Paper(doc.Path, err)
		}
	}()
	return r.extractor.ExtractArticle(ctx, doc, refs)
}

func (r *runner) fail(path, stage string, err error) {
	st := r.result.Stats
	st.Unsuccessful = append(st.Unsuccessful, UnsuccessfulPaper{Path: path, Stage: stage, Error: err.Error()})
	if !errors.Is(err, errParse) {
		st.ArticleErrors++
	}
	r.logger.Warn("article failed", "path", path, "stage", stage, "error", err)
	fmt.Fprintf(r.w, "failed  %s: %v\n", path, err)
}

func (r *runner) writeArtifacts(cfg types.MiningConfig, started time.Time, cancelled bool) error {
	res := r.result
	dir := cfg.OutputDir

	t0 := time.Now()
	if err := writeFile(filepath.Join(dir, QueryTableFile), func(w io.Writer) error {
		return WriteQueryTable(w, res.Queries)
	}); err != nil {
		return err
	}
	res.Stats.Timings.QueryTableWrite = time.Since(t0)

	t1 := time.Now()
	if err := writeFile(filepath.Join(dir, TrainingFile), func(w io.Writer) error {
		return WriteTrainingRecords(w, res.Records)
	}); err != nil {
		return err
	}
	res.Stats.Timings.TrainingWrite = time.Since(t1)

	steps := []struct {
		name    string
		content func(io.Writer) error
	}{
		{StatsFile, res.Stats.WriteReport},
		{ErrorLogFile, func(w io.Writer) error { _, err := res.Log.WriteTo(w); return err }},
		{EdgeCountsFile, func(w io.Writer) error { return WriteEdgeCounts(w, res.Edges) }},
		{ManifestFile, func(w io.Writer) error {
			return WriteManifest(w, Manifest{
				RunID:      res.RunID,
				StartedAt:  started.UTC(),
				FinishedAt: time.Now().UTC(),
				Cancelled:  cancelled,
				Config:     cfg,
				Stats:      res.Stats,
				Artifacts:  []string{QueryTableFile, TrainingFile, StatsFile, ErrorLogFile, EdgeCountsFile},
			})
		}},
	}
	for _, s := range steps {
		if err := writeFile(filepath.Join(dir, s.name), s.content); err != nil {
			return err
		}
	}

	for _, name := range []string{QueryTableFile, TrainingFile, StatsFile, ErrorLogFile, EdgeCountsFile, ManifestFile} {
		fmt.Fprintf(r.w, "wrote   %s\n", filepath.Join(dir, name))
	}
	return nil
}
