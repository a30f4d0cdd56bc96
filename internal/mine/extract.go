// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mine turns JATS articles into query/document training pairs and
// writes the corpus artifacts of a mining run.
package mine

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"github.com/pdiddy/citation-miner/internal/citation"
	"github.com/pdiddy/citation-miner/internal/jats"
	"github.com/pdiddy/citation-miner/internal/segment"
	"github.com/pdiddy/citation-miner/pkg/types"
)

// bibliographicMarker is the attribute every sentence worth splitting carries.
const bibliographicMarker = `ref-type="bibr"`

// citationOnlyRe matches a sentence that is nothing but a citation,
// optionally bracketed.
var citationOnlyRe = regexp.MustCompile(`^[\[(]?<xref .*?>.+?</xref>[\])]?$`)

// ArticleResult holds the pairs extracted from one article.
type ArticleResult struct {
	ArticleID string

	// Pairs holds only pairs with at least one resolved document.
	Pairs []types.QueryPair

	// Sentences counts sentences that reached the accumulator.
	Sentences int

	// SentenceErrors counts citation tags that failed to parse.
	SentenceErrors int

	// ParagraphErrors counts paragraphs the segmenter rejected.
	ParagraphErrors int
}

// Extractor extracts query pairs from article bodies.
type Extractor struct {
	segmenter segment.Segmenter
	known     citation.Lookup
	policy    citation.Policy
	log       *ErrorLog
	logger    *slog.Logger
}

// NewExtractor returns an Extractor. Sentence and paragraph failures are
// recorded in log.
func NewExtractor(seg segment.Segmenter, known citation.Lookup, policy citation.Policy, log *ErrorLog, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if log == nil {
		log = &ErrorLog{}
	}
	return &Extractor{segmenter: seg, known: known, policy: policy, log: log, logger: logger}
}

// ExtractArticle segments every body paragraph of doc into sentences and
// accumulates query pairs from the sentences that cite bibliographic
// references. A paragraph that fails segmentation is skipped. The only
// error returned is context cancellation.
func (e *Extractor) ExtractArticle(ctx context.Context, doc *jats.Document, refs types.ReferenceMap) (ArticleResult, error) {
	res := ArticleResult{ArticleID: doc.ArticleID()}

	for _, paragraph := range doc.Paragraphs() {
		sentences, err := e.segmenter.Segment(ctx, paragraph)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return res, err
			}
			e.log.Paragraph(res.ArticleID, paragraph, err)
			e.logger.Debug("paragraph segmentation failed", "article", res.ArticleID, "error", err)
			res.ParagraphErrors++
			continue
		}

		for _, sent := range sentences {
			if !strings.Contains(sent, bibliographicMarker) {
				continue
			}
			sent = citation.Cleanse(sent)
			if citationOnlyRe.MatchString(sent) {
				continue
			}
			res.Sentences++

			out := citation.Accumulate(citation.Split(sent), refs, e.known, e.policy)
			if out.Failure != nil {
				e.log.Sentence(res.ArticleID, sent, out.Failure.Fragment, out.Failure.Err)
				res.SentenceErrors++
			}
			for _, p := range out.Pairs {
				if len(p.DocumentIDs) > 0 {
					res.Pairs = append(res.Pairs, p)
				}
			}
		}
	}
	return res, nil
}
