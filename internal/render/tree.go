// Package render re-parses persisted block markup into an interactive
// tree: recognized node shapes become typed render nodes, notes are
// numbered in document order, and glossary terms are highlighted in
// plain text runs. The output tree is independent of any UI runtime.
package render

import (
	"github.com/medhayu/grantha/internal/glossary"
	"github.com/medhayu/grantha/internal/markup"
)

// Node is one node of the interactive render tree.
type Node interface {
	node()
}

// Text is a plain text run.
type Text struct {
	Value string
}

// Element is a generic markup element that carried no recognized shape.
type Element struct {
	Tag      string
	Attr     map[string]string
	Children []Node
}

// NoteRef is an inline note with its document-order number. The same
// numbering appears in the end-of-article notes listing.
type NoteRef struct {
	Type    markup.NoteType
	Number  int
	Content string
}

// CitationRef is a citation awaiting asynchronous resolution.
type CitationRef struct {
	RefID string
	Text  string
}

// VersionWord is a word with alternate readings; Active selects the
// displayed one for this render session.
type VersionWord struct {
	Versions []string
	Active   int
}

// QuoteFigure is a scholarly quote with attribution.
type QuoteFigure struct {
	Text   string
	Author string
}

// TocEntry is text marked for the table of contents.
type TocEntry struct {
	Text string
}

// GlossaryRef is a transient glossary highlight over a matched term.
type GlossaryRef struct {
	Text string
	Term *glossary.Term
}

func (Text) node()        {}
func (Element) node()     {}
func (NoteRef) node()     {}
func (CitationRef) node() {}
func (VersionWord) node() {}
func (QuoteFigure) node() {}
func (TocEntry) node()    {}
func (GlossaryRef) node() {}
