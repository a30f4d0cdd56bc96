// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package jats

import (
	"fmt"
	"strings"

	"github.com/pdiddy/citation-miner/pkg/types"
)

// RefListStatus classifies the outcome of reference resolution.
type RefListStatus int

const (
	// Resolved means at least one reference carries a PubMed identifier.
	Resolved RefListStatus = iota
	// NoRefList means the article has no ref elements with an id.
	NoRefList
	// NonUsableRefList means references exist but none resolves.
	NonUsableRefList
)

func (s RefListStatus) String() string {
	switch s {
	case Resolved:
		return "resolved"
	case NoRefList:
		return "no_reflist"
	case NonUsableRefList:
		return "non_usable_reflist"
	}
	return "unknown"
}

// MissingID identifies a reference entry without a PubMed identifier.
type MissingID struct {
	ArticleID string `json:"article_id" yaml:"article_id"`
	RID       string `json:"rid" yaml:"rid"`
}

func (m MissingID) String() string {
	return fmt.Sprintf("(%s, %s)", m.ArticleID, m.RID)
}

// Resolution is the result of resolving one article's reference list.
type Resolution struct {
	ArticleID string
	Status    RefListStatus

	// Refs is nil unless Status is Resolved.
	Refs types.ReferenceMap

	// Missing lists references that carry no PubMed identifier.
	Missing []MissingID

	// PMIDRefs counts references resolved to a PubMed identifier.
	PMIDRefs int

	// DOIRefs counts unresolved references that carry only a DOI.
	DOIRefs int
}

// refStrategy looks for a bibliographic identifier in one citation shape
// under a ref (or citation-alternatives) element.
type refStrategy struct {
	element string
}

// refStrategies lists the citation shapes in the order they are tried.
var refStrategies = []refStrategy{
	{element: "element-citation"},
	{element: "citation"},
	{element: "mixed-citation"},
}

// pubID returns the trimmed text of the first direct pub-id child of the
// strategy's element with the given pub-id-type.
func (s refStrategy) pubID(ref *Node, idType string) (string, bool) {
	cit := ref.Child(s.element)
	if cit == nil {
		return "", false
	}
	id := cit.ChildWithAttr("pub-id", "pub-id-type", idType)
	if id == nil {
		return "", false
	}
	text := strings.TrimSpace(id.Text())
	return text, text != ""
}

// ResolveReferences maps each ref element with an id attribute to the
// PubMed identifier of its citation. A citation-alternatives wrapper is
// descended into first. Element, plain, and mixed citations are tried in
// that order.
func ResolveReferences(doc *Document) Resolution {
	res := Resolution{ArticleID: doc.ArticleID()}

	var refs []*Node
	for _, list := range doc.Root.Descendants("ref-list") {
		for _, ref := range list.Descendants("ref") {
			if _, ok := ref.AttrValue("id"); ok {
				refs = append(refs, ref)
			}
		}
	}
	refs = dedupe(refs)

	if len(refs) == 0 {
		res.Status = NoRefList
		return res
	}

	resolved := make(types.ReferenceMap)
	for _, ref := range refs {
		rid, _ := ref.AttrValue("id")

		holder := ref
		if alt := ref.Child("citation-alternatives"); alt != nil {
			holder = alt
		}

		pmid, ok := firstPubID(holder, "pmid")
		if ok {
			resolved[rid] = types.DocumentID(pmid)
			res.PMIDRefs++
			continue
		}

		if _, ok := firstPubID(holder, "doi"); ok {
			res.DOIRefs++
		}
		res.Missing = append(res.Missing, MissingID{ArticleID: res.ArticleID, RID: rid})
	}

	if len(resolved) == 0 {
		res.Status = NonUsableRefList
		return res
	}
	res.Status = Resolved
	res.Refs = resolved
	return res
}

func firstPubID(holder *Node, idType string) (string, bool) {
	for _, s := range refStrategies {
		if id, ok := s.pubID(holder, idType); ok {
			return id, true
		}
	}
	return "", false
}

// dedupe drops refs reached twice through nested ref-list elements.
func dedupe(nodes []*Node) []*Node {
	seen := make(map[*Node]bool, len(nodes))
	out := nodes[:0]
	for _, n := range nodes {
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
