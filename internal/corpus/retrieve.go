// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package corpus

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// QueryOptions holds parameters for corpus queries.
type QueryOptions struct {
	// Query is the FTS5 full-text search string over query text.
	Query string

	// PMID restricts results to queries citing this document.
	PMID string

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// IsEmpty reports whether the query has no search terms or filters.
func (q QueryOptions) IsEmpty() bool {
	return q.Query == "" && q.PMID == ""
}

// QueryResult is a mined query with the documents it cites.
type QueryResult struct {
	QID   string   `json:"qid" yaml:"qid"`
	Text  string   `json:"text" yaml:"text"`
	PMIDs []string `json:"pmids" yaml:"pmids"`
}

// Retrieve searches the index. Full-text results are ranked by relevance;
// filter-only results come back in query id order.
func (s *Store) Retrieve(ctx context.Context, opts QueryOptions) ([]QueryResult, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	const pmids = `(SELECT json_group_array(e.pmid) FROM edges e WHERE e.qid = q.qid)`
	var (
		qb     strings.Builder
		args   []any
		useFTS = opts.Query != ""
	)

	if useFTS {
		qb.WriteString(`SELECT q.qid, q.text, ` + pmids + `
			FROM queries_fts
			JOIN queries q ON q.rowid = queries_fts.rowid
			WHERE queries_fts MATCH ?`)
		args = append(args, opts.Query)
	} else {
		qb.WriteString(`SELECT q.qid, q.text, ` + pmids + `
			FROM queries q
			WHERE 1=1`)
	}

	if opts.PMID != "" {
		qb.WriteString(` AND EXISTS (SELECT 1 FROM edges e WHERE e.qid = q.qid AND e.pmid = ?)`)
		args = append(args, opts.PMID)
	}

	if useFTS {
		qb.WriteString(` ORDER BY queries_fts.rank`)
	} else {
		qb.WriteString(` ORDER BY q.rowid`)
	}
	qb.WriteString(` LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying corpus: %w", err)
	}
	defer rows.Close()

	var results []QueryResult
	for rows.Next() {
		var (
			qr        QueryResult
			pmidsJSON sql.NullString
		)
		if err := rows.Scan(&qr.QID, &qr.Text, &pmidsJSON); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if pmidsJSON.Valid {
			if err := json.Unmarshal([]byte(pmidsJSON.String), &qr.PMIDs); err != nil {
				return nil, fmt.Errorf("decoding documents of query %s: %w", qr.QID, err)
			}
		}
		results = append(results, qr)
	}
	return results, rows.Err()
}

// Counts holds the number of rows in each index table.
type Counts struct {
	Queries  int
	Edges    int
	Articles int
}

// Counts returns the current size of the index.
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := s.db.QueryRowContext(ctx, `SELECT
		(SELECT count(*) FROM queries),
		(SELECT count(*) FROM edges),
		(SELECT count(*) FROM articles)`,
	).Scan(&c.Queries, &c.Edges, &c.Articles)
	if err != nil {
		return Counts{}, fmt.Errorf("counting index rows: %w", err)
	}
	return c, nil
}
