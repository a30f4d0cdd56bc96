// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package segment splits paragraph text into sentences. Paragraph text
// carries inline markup (xref, italic, ...), and segmenters must keep each
// tag intact inside a single sentence.
package segment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pdiddy/citation-miner/pkg/types"
)

// ErrUnknownSegmenter is returned by New for an unrecognized backend name.
var ErrUnknownSegmenter = errors.New("unknown segmenter backend")

// Segmenter splits text into sentences.
type Segmenter interface {
	Segment(ctx context.Context, text string) ([]string, error)
}

// Func adapts an ordinary function to the Segmenter interface.
type Func func(ctx context.Context, text string) ([]string, error)

// Segment calls f(ctx, text).
func (f Func) Segment(ctx context.Context, text string) ([]string, error) {
	return f(ctx, text)
}

// New returns the segmenter selected by cfg.Backend. An empty backend
// selects the rule-based segmenter. Callers should Close the result when it
// implements io.Closer.
func New(cfg types.SegmenterConfig, logger *slog.Logger) (Segmenter, error) {
	switch cfg.Backend {
	case "", types.SegmenterRules:
		return NewRules(), nil
	case types.SegmenterSAT:
		return NewSAT(cfg, logger)
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownSegmenter, cfg.Backend)
}
