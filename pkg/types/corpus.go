// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the citation-mining
// pipeline.
package types

// DocumentID identifies a title+abstract record (a PubMed identifier).
type DocumentID string

// ReferenceMap maps an article-local reference id (the ref element's id
// attribute) to the document it cites. It never holds an empty DocumentID.
type ReferenceMap map[string]DocumentID

// CitationKind is the ref-type attribute of an in-text citation tag.
type CitationKind string

const (
	KindBibliographic CitationKind = "bibr"
	KindFigure        CitationKind = "fig"
	KindTable         CitationKind = "table"
	KindSupplement    CitationKind = "supplementary-material"
)

// Bibliographic reports whether citations of this kind point at the
// reference list. Figure, table, and supplement pointers do not.
func (k CitationKind) Bibliographic() bool {
	switch k {
	case KindFigure, KindTable, KindSupplement:
		return false
	}
	return true
}

// Citation is a parsed in-text citation marker.
type Citation struct {
	// Kind is the ref-type attribute (e.g. "bibr", "fig").
	Kind CitationKind `json:"kind" yaml:"kind"`

	// RID is the local reference id the marker points to.
	RID string `json:"rid" yaml:"rid"`
}

// QueryPair is a span of citing prose and the documents it cites.
type QueryPair struct {
	// Query is the prose preceding the citation cluster.
	Query string `json:"query" yaml:"query"`

	// DocumentIDs are the resolved, known documents cited by the span,
	// in citation order. Duplicates are kept.
	DocumentIDs []DocumentID `json:"document_ids" yaml:"document_ids"`
}

// TrainingRecord is one (query, relevant document) edge of the training set.
type TrainingRecord struct {
	QID   string `json:"qid"`
	PMID  string `json:"pmid"`
	Click int    `json:"click"`
}
