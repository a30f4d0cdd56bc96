package mine

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/citation-miner/pkg/types"
)

// Artifact file names in the output directory.
const (
	QueryTableFile = "qid2info.json"
	TrainingFile   = "train.jsonl"
	StatsFile      = "fullrun_stats"
	ErrorLogFile   = "parse_full_text"
	EdgeCountsFile = "citation_in_paper_stats"
	ManifestFile   = "run.yaml"
)

// DefaultArticleList is the article list read when none is configured.
const DefaultArticleList = "random_file_samples_50k"

const (
	jsonIndent       = "    "
	outputPermission = 0o644
)

// ArticleEdges is the number of training records one article produced.
type ArticleEdges struct {
	Path  string
	Edges int
}

// Manifest describes a finished run.
type Manifest struct {
	RunID      string             `yaml:"run_id"`
	StartedAt  time.Time          `yaml:"started_at"`
	FinishedAt time.Time          `yaml:"finished_at"`
	Cancelled  bool               `yaml:"cancelled,omitempty"`
	Config     types.MiningConfig `yaml:"config"`
	Stats      *Stats             `yaml:"stats"`
	Artifacts  []string           `yaml:"artifacts"`
}

// WriteQueryTable writes queries as a JSON object keyed by query id in id
// order, indented with four spaces. Non-ASCII text and <, >, & are written
// unescaped.
func WriteQueryTable(w io.Writer, queries []string) error {
	keys := make([]string, len(queries))
	for i := range queries {
		keys[i] = strconv.Itoa(i)
	}
	return writeOrderedObject(w, keys, func(i int) any { return queries[i] })
}

// WriteTrainingRecords writes one JSON object per line.
func WriteTrainingRecords(w io.Writer, records []types.TrainingRecord) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encoding training record %s/%s: %w", r.QID, r.PMID, err)
		}
	}
	return nil
}

// WriteEdgeCounts writes {"<article path>": edges, ...} in processing order.
func WriteEdgeCounts(w io.Writer, edges []ArticleEdges) error {
	keys := make([]string, len(edges))
	for i, e := range edges {
		keys[i] = e.Path
	}
	return writeOrderedObject(w, keys, func(i int) any { return edges[i].Edges })
}

// WriteManifest writes m as YAML.
func WriteManifest(w io.Writer, m Manifest) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	return enc.Close()
}

// ReadManifest reads a run manifest from path.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return &m, nil
}

// writeOrderedObject writes a JSON object whose keys keep the given order.
func writeOrderedObject(w io.Writer, keys []string, value func(int) any) error {
	if len(keys) == 0 {
		_, err := io.WriteString(w, "{}")
		return err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	encode := func(v any) ([]byte, error) {
		buf.Reset()
		if err := enc.Encode(v); err != nil {
			return nil, err
		}
		return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
	}

	bw := bufio.NewWriter(w)
	bw.WriteString("{\n")
	for i, k := range keys {
		key, err := encode(k)
		if err != nil {
			return fmt.Errorf("encoding key %q: %w", k, err)
		}
		bw.WriteString(jsonIndent)
		bw.Write(key)
		bw.WriteString(": ")
		val, err := encode(value(i))
		if err != nil {
			return fmt.Errorf("encoding value for %q: %w", k, err)
		}
		bw.Write(val)
		if i < len(keys)-1 {
			bw.WriteByte(',')
		}
		bw.WriteByte('\n')
	}
	bw.WriteString("}")
	return bw.Flush()
}

// writeFile creates path and streams content into it through a buffer.
func writeFile(path string, content func(io.Writer) error) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, outputPermission)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	bw := bufio.NewWriter(f)
	if err := content(bw); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// ReadArticleList reads a newline-delimited list of article paths. Blank
// lines are ignored and surrounding whitespace is trimmed.
func ReadArticleList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening article list %s: %w", path, err)
	}
	defer f.Close()

	var paths []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			paths = append(paths, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading article list %s: %w", path, err)
	}
	return paths, nil
}

// ensureOutputDir creates dir if needed and checks that it is writable.
func ensureOutputDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory %s: %w", dir, err)
	}
	check, err := os.CreateTemp(dir, ".write-check-*")
	if err != nil {
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	name := check.Name()
	check.Close()
	return os.Remove(name)
}
