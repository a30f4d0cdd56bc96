package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPolicy is returned for a policy name other than iterative or total.
var ErrInvalidPolicy = errors.New("invalid extraction policy")

// Policy selects how citation clusters within one sentence become query pairs.
type Policy string

const (
	// PolicyIterative emits one pair per citation cluster. Each pair's query
	// is all prose seen up to and including that cluster.
	PolicyIterative Policy = "iterative"

	// PolicyTotal emits one pair per sentence holding every resolved id.
	PolicyTotal Policy = "total"
)

// ParsePolicy validates a policy name from the command line or config file.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyIterative, PolicyTotal:
		return p, nil
	}
	return "", fmt.Errorf("%w %q: use iterative or total", ErrInvalidPolicy, s)
}

// SegmenterBackend identifies the sentence boundary implementation.
type SegmenterBackend string

const (
	SegmenterRules SegmenterBackend = "rules"
	SegmenterSAT   SegmenterBackend = "sat"
)

// SegmenterConfig holds settings for sentence segmentation.
type SegmenterConfig struct {
	// Backend selects the segmenter: rules or sat.
	Backend SegmenterBackend `json:"backend" yaml:"backend"`

	// ModelPath is the SaT ONNX model file (sat backend only).
	ModelPath string `json:"model_path,omitempty" yaml:"model_path,omitempty"`

	// TokenizerPath is the SentencePiece model file (sat backend only).
	TokenizerPath string `json:"tokenizer_path,omitempty" yaml:"tokenizer_path,omitempty"`

	// Threshold is the boundary probability cut-off (sat backend only, default 0.025).
	Threshold float64 `json:"threshold,omitempty" yaml:"threshold,omitempty"`

	// PoolSize is the number of ONNX sessions (sat backend only, default NumCPU).
	PoolSize int `json:"pool_size,omitempty" yaml:"pool_size,omitempty"`
}

// MiningConfig holds settings for a corpus mining run.
type MiningConfig struct {
	// KnownDocsPath is the JSON file mapping PMID to [title, abstract].
	KnownDocsPath string `json:"known_docs_path" yaml:"known_docs_path"`

	// ArticleList is a newline-delimited file of article XML paths.
	ArticleList string `json:"article_list" yaml:"article_list"`

	// OutputDir receives all run artifacts. Created if absent.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// Policy is the accumulation policy for query pairs.
	Policy Policy `json:"policy" yaml:"policy"`

	// Segmenter configures sentence boundary detection.
	Segmenter SegmenterConfig `json:"segmenter" yaml:"segmenter"`
}

// CorpusIndexConfig holds settings for the SQLite corpus index.
type CorpusIndexConfig struct {
	// OutputDir is the mining output directory (contains qid2info.json, train.jsonl, index/).
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// MaxResults is the default maximum number of query results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}
