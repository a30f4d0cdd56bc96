// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package corpus indexes the artifacts of a mining run in SQLite so queries
// can be searched by text (FTS5) or by cited document.
package corpus

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/citation-miner/internal/mine"
	"github.com/pdiddy/citation-miner/pkg/types"
)

const (
	indexDir = "index"
	dbFile   = "corpus.db"
)

// sources are the run artifacts loaded into the index, in load order.
var sources = []string{mine.QueryTableFile, mine.TrainingFile, mine.EdgeCountsFile}

// Store manages the corpus index database.
type Store struct {
	db         *sql.DB
	outputDir  string
	maxResults int
}

// NewStore opens or creates the corpus index at outputDir/index/corpus.db
// and creates the schema if it does not exist.
func NewStore(cfg types.CorpusIndexConfig) (*Store, error) {
	dbDir := filepath.Join(cfg.OutputDir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dbDir, dbFile)+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{db: db, outputDir: cfg.OutputDir, maxResults: maxResults}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS queries (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			qid TEXT NOT NULL UNIQUE,
			text TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS edges (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			qid TEXT NOT NULL REFERENCES queries(qid) ON DELETE CASCADE,
			pmid TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_edges_qid ON edges(qid)`,
		`CREATE INDEX IF NOT EXISTS idx_edges_pmid ON edges(pmid)`,
		`CREATE TABLE IF NOT EXISTS articles (
			path TEXT PRIMARY KEY,
			edges INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ingest_status (
			source TEXT PRIMARY KEY,
			file_mod_time TEXT
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='queries_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}
	if ftsExists > 0 {
		return nil
	}

	ftsStatements := []string{
		`CREATE VIRTUAL TABLE queries_fts USING fts5(text, content=queries, content_rowid=rowid)`,
		`CREATE TRIGGER queries_ai AFTER INSERT ON queries BEGIN
			INSERT INTO queries_fts(rowid, text) VALUES (new.rowid, new.text);
		END`,
		`CREATE TRIGGER queries_ad AFTER DELETE ON queries BEGIN
			INSERT INTO queries_fts(queries_fts, rowid, text) VALUES('delete', old.rowid, old.text);
		END`,
		`CREATE TRIGGER queries_au AFTER UPDATE ON queries BEGIN
			INSERT INTO queries_fts(queries_fts, rowid, text) VALUES('delete', old.rowid, old.text);
			INSERT INTO queries_fts(rowid, text) VALUES (new.rowid, new.text);
		END`,
	}
	for _, stmt := range ftsStatements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("creating FTS infrastructure: %w", err)
		}
	}
	return nil
}

// IngestSummary holds counts from an indexing run.
type IngestSummary struct {
	Queries  int
	Edges    int
	Articles int

	// Updated is set when a previous index was replaced.
	Updated bool

	// Skipped is set when no source file changed since the last ingest.
	Skipped bool
}

// Ingest loads qid2info.json, train.jsonl, and citation_in_paper_stats
// from the output directory. When every source file carries the
// modification time recorded by the previous ingest, nothing is done.
// Otherwise the index contents are replaced in one transaction and
// export.yaml is rewritten.
func (s *Store) Ingest(ctx context.Context, w io.Writer) (IngestSummary, error) {
	var summary IngestSummary

	modTimes := make(map[string]string, len(sources))
	for _, name := range sources {
		info, err := os.Stat(filepath.Join(s.outputDir, name))
		if err != nil {
			return summary, fmt.Errorf("reading %s: %w", name, err)
		}
		modTimes[name] = info.ModTime().UTC().Format(time.RFC3339Nano)
	}

	unchanged, indexed, err := s.compareModTimes(ctx, modTimes)
	if err != nil {
		return summary, err
	}
	if unchanged {
		fmt.Fprintf(w, "skipped %s\n", s.outputDir)
		summary.Skipped = true
		return summary, nil
	}
	summary.Updated = indexed

	queries, err := readQueryTable(filepath.Join(s.outputDir, mine.QueryTableFile))
	if err != nil {
		return summary, err
	}
	records, err := readTrainingRecords(filepath.Join(s.outputDir, mine.TrainingFile))
	if err != nil {
		return summary, err
	}
	articles, err := readEdgeCounts(filepath.Join(s.outputDir, mine.EdgeCountsFile))
	if err != nil {
		return summary, err
	}

	if err := s.replace(ctx, queries, records, articles, modTimes); err != nil {
		return summary, err
	}
	summary.Queries = len(queries)
	summary.Edges = len(records)
	summary.Articles = len(articles)

	verb := "indexed"
	if summary.Updated {
		verb = "updated"
	}
	fmt.Fprintf(w, "%s %s (%d queries, %d edges, %d articles)\n",
		verb, s.outputDir, summary.Queries, summary.Edges, summary.Articles)

	if _, err := s.ExportYAML(ctx, QueryOptions{}); err != nil {
		fmt.Fprintf(w, "warning: export.yaml write failed: %v\n", err)
	}
	return summary, nil
}

// compareModTimes reports whether every source matches its stored
// modification time, and whether anything was indexed before.
func (s *Store) compareModTimes(ctx context.Context, modTimes map[string]string) (unchanged, indexed bool, err error) {
	rows, err := s.db.QueryContext(ctx, `SELECT source, file_mod_time FROM ingest_status`)
	if err != nil {
		return false, false, fmt.Errorf("reading ingest status: %w", err)
	}
	defer rows.Close()

	matched := 0
	for rows.Next() {
		var source, modTime string
		if err := rows.Scan(&source, &modTime); err != nil {
			return false, false, fmt.Errorf("scanning ingest status: %w", err)
		}
		indexed = true
		if modTimes[source] == modTime {
			matched++
		}
	}
	if err := rows.Err(); err != nil {
		return false, false, err
	}
	return matched == len(modTimes), indexed, nil
}

type queryRow struct {
	qid  string
	text string
}

func (s *Store) replace(ctx context.Context, queries []queryRow, records []types.TrainingRecord, articles []mine.ArticleEdges, modTimes map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{`DELETE FROM edges`, `DELETE FROM queries`, `DELETE FROM articles`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clearing index: %w", err)
		}
	}

	insertQuery, err := tx.PrepareContext(ctx, `INSERT INTO queries (qid, text) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer insertQuery.Close()
	for _, q := range queries {
		if _, err := insertQuery.ExecContext(ctx, q.qid, q.text); err != nil {
			return fmt.Errorf("inserting query %s: %w", q.qid, err)
		}
	}

	insertEdge, err := tx.PrepareContext(ctx, `INSERT INTO edges (qid, pmid) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer insertEdge.Close()
	for _, r := range records {
		if _, err := insertEdge.ExecContext(ctx, r.QID, r.PMID); err != nil {
			return fmt.Errorf("inserting edge %s/%s: %w", r.QID, r.PMID, err)
		}
	}

	insertArticle, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO articles (path, edges) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer insertArticle.Close()
	for _, a := range articles {
		if _, err := insertArticle.ExecContext(ctx, a.Path, a.Edges); err != nil {
			return fmt.Errorf("inserting article %s: %w", a.Path, err)
		}
	}

	for source, modTime := range modTimes {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO ingest_status (source, file_mod_time) VALUES (?, ?)
			 ON CONFLICT(source) DO UPDATE SET file_mod_time=excluded.file_mod_time`,
			source, modTime,
		)
		if err != nil {
			return fmt.Errorf("updating ingest status: %w", err)
		}
	}

	return tx.Commit()
}

// readQueryTable reads qid2info.json and returns its entries in numeric
// query id order.
func readQueryTable(path string) ([]queryRow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query table: %w", err)
	}
	var table map[string]string
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parsing query table %s: %w", path, err)
	}

	rows := make([]queryRow, 0, len(table))
	for qid, text := range table {
		rows = append(rows, queryRow{qid: qid, text: text})
	}
	sort.Slice(rows, func(i, j int) bool {
		a, errA := strconv.Atoi(rows[i].qid)
		b, errB := strconv.Atoi(rows[j].qid)
		if errA != nil || errB != nil {
			return rows[i].qid < rows[j].qid
		}
		return a < b
	})
	return rows, nil
}

func readTrainingRecords(path string) ([]types.TrainingRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading training records: %w", err)
	}
	defer f.Close()

	var records []types.TrainingRecord
	sc := bufio.NewScanner(f)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var r types.TrainingRecord
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			return nil, fmt.Errorf("parsing %s line %d: %w", path, n, err)
		}
		records = append(records, r)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return records, nil
}

func readEdgeCounts(path string) ([]mine.ArticleEdges, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading edge counts: %w", err)
	}
	var counts map[string]int
	if err := json.Unmarshal(data, &counts); err != nil {
		return nil, fmt.Errorf("parsing edge counts %s: %w", path, err)
	}
	articles := make([]mine.ArticleEdges, 0, len(counts))
	for p, n := range counts {
		articles = append(articles, mine.ArticleEdges{Path: p, Edges: n})
	}
	sort.Slice(articles, func(i, j int) bool { return articles[i].Path < articles[j].Path })
	return articles, nil
}
