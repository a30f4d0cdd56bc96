// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package jats reads JATS (PubMed Central) article XML: the article
// identifier, body paragraphs serialized with their inline markup, and the
// reference list resolved to PubMed identifiers.
package jats

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Node is an element or text node of a parsed document tree. Text nodes
// have an empty Name and carry their decoded character data in Data.
type Node struct {
	Name     string
	Attr     []xml.Attr
	Children []*Node
	Data     string
}

// IsText reports whether n is a character data node.
func (n *Node) IsText() bool { return n.Name == "" }

// AttrValue returns the value of the attribute with the given local name.
func (n *Node) AttrValue(name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Name.Local == name && a.Name.Space != "xmlns" {
			return a.Value, true
		}
	}
	return "", false
}

// Child returns the first direct child element with the given name, or nil.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ChildWithAttr returns the first direct child element with the given name
// whose attribute attr equals value, or nil.
func (n *Node) ChildWithAttr(name, attr, value string) *Node {
	for _, c := range n.Children {
		if c.Name != name {
			continue
		}
		if v, ok := c.AttrValue(attr); ok && v == value {
			return c
		}
	}
	return nil
}

// Descendants returns all descendant elements with the given name in
// document order. n itself is not included.
func (n *Node) Descendants(name string) []*Node {
	var out []*Node
	var walk func(*Node)
	walk = func(cur *Node) {
		for _, c := range cur.Children {
			if c.Name == name {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

// Text returns the concatenated character data of n's direct text children.
func (n *Node) Text() string {
	var b strings.Builder
	for _, c := range n.Children {
		if c.IsText() {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", `"`, "&quot;")
)

// InnerXML serializes n's children back to markup. Element names and
// attributes are written by local name, namespace declarations are
// dropped, and attribute values are always double-quoted, so an xref
// element comes out as `<xref ref-type="bibr" rid="B1">1</xref>`.
func (n *Node) InnerXML() string {
	var b strings.Builder
	for _, c := range n.Children {
		c.writeXML(&b)
	}
	return b.String()
}

func (n *Node) writeXML(b *strings.Builder) {
	if n.IsText() {
		b.WriteString(textEscaper.Replace(n.Data))
		return
	}
	b.WriteByte('<')
	b.WriteString(n.Name)
	for _, a := range n.Attr {
		if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
			continue
		}
		b.WriteByte(' ')
		b.WriteString(a.Name.Local)
		b.WriteString(`="`)
		b.WriteString(attrEscaper.Replace(a.Value))
		b.WriteByte('"')
	}
	b.WriteByte('>')
	for _, c := range n.Children {
		c.writeXML(b)
	}
	b.WriteString("</")
	b.WriteString(n.Name)
	b.WriteByte('>')
}

// Parse reads an XML document into a Node tree and returns its root
// element. HTML named entities (&nbsp;, &ndash;, ...) are accepted since
// PMC files declare them through the JATS DTD.
func Parse(r io.Reader) (*Node, error) {
	d := xml.NewDecoder(r)
	d.Entity = xml.HTMLEntity

	var (
		root  *Node
		stack []*Node
	)
	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			el := &Node{Name: t.Name.Local, Attr: t.Copy().Attr}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("multiple root elements")
				}
				root = el
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, el)
			}
			stack = append(stack, el)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) == 0 {
				continue
			}
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, &Node{Data: string(t)})
		}
	}

	if root == nil {
		return nil, fmt.Errorf("no root element")
	}
	return root, nil
}

// Document is a parsed article.
type Document struct {
	// Path is the file the article was read from.
	Path string

	// Root is the article element.
	Root *Node
}

// ParseFile reads and parses the article at path.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading article %s: %w", path, err)
	}
	root, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing article %s: %w", path, err)
	}
	return &Document{Path: path, Root: root}, nil
}

// ArticleID returns the PMC identifier from the front matter. When the
// metadata carries none, it falls back to the file name up to its first dot.
func (d *Document) ArticleID() string {
	for _, front := range d.frontMatter() {
		for _, meta := range front.Descendants("article-meta") {
			for _, id := range meta.Descendants("article-id") {
				if v, _ := id.AttrValue("pub-id-type"); v == "pmc" {
					if text := strings.TrimSpace(id.Text()); text != "" {
						return text
					}
				}
			}
		}
	}
	base := filepath.Base(d.Path)
	if i := strings.IndexByte(base, '.'); i >= 0 {
		return base[:i]
	}
	return base
}

func (d *Document) frontMatter() []*Node {
	if d.Root.Name == "front" {
		return []*Node{d.Root}
	}
	return d.Root.Descendants("front")
}

// Paragraphs returns the inner markup of every p element inside a body
// element, in document order. Nested paragraphs are returned both inside
// their parent and on their own.
func (d *Document) Paragraphs() []string {
	bodies := d.Root.Descendants("body")
	if d.Root.Name == "body" {
		bodies = append([]*Node{d.Root}, bodies...)
	}

	var paragraphs []string
	seen := make(map[*Node]bool)
	for _, body := range bodies {
		for _, p := range body.Descendants("p") {
			if seen[p] {
				continue
			}
			seen[p] = true
			paragraphs = append(paragraphs, p.InnerXML())
		}
	}
	return paragraphs
}
