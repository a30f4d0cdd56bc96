// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package citation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/pdiddy/citation-miner/pkg/types"
)

// Lookup reports whether a document is admissible for training, i.e. it
// has a title and abstract in the known-document set.
type Lookup interface {
	Contains(id types.DocumentID) bool
}

// Status classifies the outcome of accumulating one sentence.
type Status int

const (
	// Empty means the sentence produced no pairs and no failure.
	Empty Status = iota
	// Complete means every fragment was processed.
	Complete
	// Partial means a tag failed to parse. Pairs holds whatever the policy
	// keeps on failure.
	Partial
)

func (s Status) String() string {
	switch s {
	case Empty:
		return "empty"
	case Complete:
		return "complete"
	case Partial:
		return "partial"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// TagFailure describes a citation fragment that could not be parsed.
type TagFailure struct {
	Fragment string
	Err      error
}

// Result is the outcome of accumulating one sentence.
type Result struct {
	Pairs   []types.QueryPair
	Status  Status
	Failure *TagFailure
}

// Policy is an emission strategy for the accumulator. onCitation runs
// after every processed citation fragment and onSentenceEnd after the last
// fragment. keepOnFailure controls whether pairs emitted before a tag parse
// failure are returned.
type Policy struct {
	name          string
	onCitation    func(a *accumulator)
	onSentenceEnd func(a *accumulator)
	keepOnFailure bool
}

// Name returns the policy's configuration name.
func (p Policy) Name() string { return p.name }

var (
	// Iterative emits a pair after every citation cluster and then clears
	// the pending ids, but keeps the query text growing. A single
	// malformed tag keeps the pairs already emitted.
	Iterative = Policy{
		name:          string(types.PolicyIterative),
		onCitation:    func(a *accumulator) { a.emit(a.query) },
		onSentenceEnd: func(*accumulator) {},
		keepOnFailure: true,
	}

	// Total emits one pair per sentence holding every resolved id. The
	// query is the prose up to the last processed citation cluster. A
	// malformed tag discards the whole sentence.
	Total = Policy{
		name:       string(types.PolicyTotal),
		onCitation: func(*accumulator) {},
		onSentenceEnd: func(a *accumulator) {
			if a.citedQuery != "" {
				a.emit(a.citedQuery)
			}
		},
	}
)

// PolicyFor returns the strategy for a configured policy name.
func PolicyFor(p types.Policy) (Policy, error) {
	switch p {
	case types.PolicyIterative:
		return Iterative, nil
	case types.PolicyTotal:
		return Total, nil
	}
	return Policy{}, fmt.Errorf("%w %q", types.ErrInvalidPolicy, p)
}

// accumulator is the state machine shared by all policies.
type accumulator struct {
	refs  types.ReferenceMap
	known Lookup

	query      string   // prose seen so far, right-trimmed per fragment
	citedQuery string   // query as of the last processed citation fragment
	pending    []string // local reference ids awaiting emission
	pairs      []types.QueryPair
}

// Accumulate walks a fragment sequence produced by Split and builds query
// pairs under the given policy. Citations that appear before any prose are
// discarded; figure, table, and supplement citations are skipped.
// Reference ids that do not resolve through refs, or resolve to documents
// unknown to known, are dropped silently.
func Accumulate(fragments []string, refs types.ReferenceMap, known Lookup, policy Policy) Result {
	a := &accumulator{refs: refs, known: known}

	for _, frag := range fragments {
		if !IsTagFragment(frag) {
			a.query += strings.TrimRightFunc(frag, unicode.IsSpace)
			continue
		}
		if a.query == "" {
			continue
		}

		queued, failure := a.collect(frag)
		if failure != nil {
			res := Result{Status: Partial, Failure: failure}
			if policy.keepOnFailure {
				res.Pairs = a.pairs
			}
			return res
		}
		if queued == 0 {
			// only figure/table/supplement pointers
			continue
		}
		a.citedQuery = a.query
		policy.onCitation(a)
	}
	policy.onSentenceEnd(a)

	if len(a.pairs) == 0 {
		return Result{Status: Empty}
	}
	return Result{Pairs: a.pairs, Status: Complete}
}

// collect parses a tag fragment, or each member of a comma-joined
// enumeration, and queues the bibliographic reference ids. It returns the
// number of ids queued.
func (a *accumulator) collect(frag string) (int, *TagFailure) {
	members := []string{frag}
	if isEnumeration(frag) {
		members = strings.Split(frag, ",")
	}
	queued := 0
	for _, m := range members {
		c, err := ParseTag(m)
		if err != nil {
			return queued, &TagFailure{Fragment: m, Err: err}
		}
		if !c.Kind.Bibliographic() {
			continue
		}
		a.pending = append(a.pending, c.RID)
		queued++
	}
	return queued, nil
}

// emit records a pair for the pending ids and clears them.
func (a *accumulator) emit(query string) {
	a.pairs = append(a.pairs, types.QueryPair{
		Query:       query,
		DocumentIDs: a.resolve(a.pending),
	})
	a.pending = nil
}

func (a *accumulator) resolve(rids []string) []types.DocumentID {
	ids := make([]types.DocumentID, 0, len(rids))
	for _, rid := range rids {
		id, ok := a.refs[rid]
		if !ok || !a.known.Contains(id) {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
