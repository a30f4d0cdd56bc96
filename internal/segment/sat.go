// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package segment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	sat "github.com/jamesainslie/go-sat"

	"github.com/pdiddy/citation-miner/pkg/types"
)

// SAT segments text with a Segment-any-Text ONNX model.
type SAT struct {
	seg    *sat.Segmenter
	logger *slog.Logger
}

// NewSAT loads the model and tokenizer named in cfg.
func NewSAT(cfg types.SegmenterConfig, logger *slog.Logger) (*SAT, error) {
	if cfg.ModelPath == "" || cfg.TokenizerPath == "" {
		return nil, fmt.Errorf("sat segmenter needs both a model and a tokenizer path")
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := []sat.Option{sat.WithLogger(logger)}
	if cfg.Threshold > 0 {
		opts = append(opts, sat.WithThreshold(float32(cfg.Threshold)))
	}
	if cfg.PoolSize > 0 {
		opts = append(opts, sat.WithPoolSize(cfg.PoolSize))
	}

	seg, err := sat.New(cfg.ModelPath, cfg.TokenizerPath, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading sat model %s: %w", cfg.ModelPath, err)
	}
	logger.Info("sat segmenter loaded", "model", cfg.ModelPath, "threshold", cfg.Threshold)
	return &SAT{seg: seg, logger: logger}, nil
}

// Segment returns the model's sentences with surrounding whitespace
// trimmed. Empty sentences are dropped.
func (s *SAT) Segment(ctx context.Context, text string) ([]string, error) {
	raw, err := s.seg.Segment(ctx, text)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out, nil
}

// Close releases the ONNX sessions.
func (s *SAT) Close() error {
	return s.seg.Close()
}
