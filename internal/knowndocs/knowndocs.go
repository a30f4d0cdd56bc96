// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package knowndocs loads the Known-Document Set: the PubMed records with a
// title and abstract that may appear as cited documents in training data.
package knowndocs

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pdiddy/citation-miner/pkg/types"
)

// Info is the title and abstract of a known document.
type Info struct {
	Title    string
	Abstract string
}

// Set maps document ids to their info. It is read-only once loaded.
type Set map[types.DocumentID]Info

// Contains reports whether id is a known document.
func (s Set) Contains(id types.DocumentID) bool {
	_, ok := s[id]
	return ok
}

// Len returns the number of known documents.
func (s Set) Len() int { return len(s) }

// Load reads a Known-Document Set from a JSON object of the form
// {"<pmid>": ["<title>", "<abstract>"], ...}.
func Load(path string) (Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening known documents %s: %w", path, err)
	}
	defer f.Close()

	set, err := Decode(bufio.NewReaderSize(f, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("loading known documents %s: %w", path, err)
	}
	return set, nil
}

// Decode reads a Known-Document Set from r. Entries are decoded one at a
// time so the whole file is never held as a generic map.
func Decode(r io.Reader) (Set, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("reading opening brace: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected a JSON object, got %v", tok)
	}

	set := make(Set)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("reading document id: %w", err)
		}
		id, ok := tok.(string)
		if !ok || id == "" {
			return nil, fmt.Errorf("invalid document id %v", tok)
		}

		var fields []string
		if err := dec.Decode(&fields); err != nil {
			return nil, fmt.Errorf("decoding document %s: %w", id, err)
		}
		if len(fields) != 2 {
			return nil, fmt.Errorf("document %s: want [title, abstract], got %d fields", id, len(fields))
		}
		set[types.DocumentID(id)] = Info{Title: fields[0], Abstract: fields[1]}
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("reading closing brace: %w", err)
	}
	return set, nil
}
