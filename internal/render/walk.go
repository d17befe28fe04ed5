package render

import (
	"golang.org/x/net/html"

	"github.com/medhayu/grantha/internal/glossary"
	"github.com/medhayu/grantha/internal/markup"
)

// Walker transforms block markup into render trees. Note counters live
// on the walker and increment across every block it visits, so one
// walker per article walk gives inline numbers and the end-of-article
// listing the same left-to-right, depth-first order. Walkers are cheap;
// never share one across articles.
type Walker struct {
	matcher      *glossary.Matcher
	footnotes    int
	specialnotes int
	notes        []NoteRef
}

// NewWalker creates a walker. matcher may be nil to disable glossary
// highlighting.
func NewWalker(matcher *glossary.Matcher) *Walker {
	return &Walker{matcher: matcher}
}

// Block renders one block body. Empty markup renders nothing.
func (w *Walker) Block(body string) ([]Node, error) {
	if body == "" {
		return nil, nil
	}
	nodes, err := markup.ParseFragment(body)
	if err != nil {
		return nil, err
	}
	var out []Node
	for _, n := range nodes {
		out = append(out, w.transform(n, false)...)
	}
	return out, nil
}

// Article renders every block in order and returns the per-block trees.
// The notes listing accumulated by the walker covers the whole article.
func (w *Walker) Article(bodies []string) ([][]Node, error) {
	out := make([][]Node, len(bodies))
	for i, body := range bodies {
		tree, err := w.Block(body)
		if err != nil {
			return nil, err
		}
		out[i] = tree
	}
	return out, nil
}

// Notes returns the notes encountered so far, in document order, for
// the end-of-article listing. Numbers match the inline NoteRef numbers
// because both come from the same traversal.
func (w *Walker) Notes() []NoteRef {
	out := make([]NoteRef, len(w.notes))
	copy(out, w.notes)
	return out
}

// transform is a recursive-descent transform over the parsed tree.
// inInteractive tracks ancestry so glossary matching never fires inside
// an interactive element.
func (w *Walker) transform(n *html.Node, inInteractive bool) []Node {
	switch n.Type {
	case html.TextNode:
		return w.text(n.Data, inInteractive)

	case html.ElementNode:
		if note, ok := markup.ParseNote(n); ok {
			ref := w.numberNote(note)
			return []Node{ref}
		}
		if c, ok := markup.ParseCitation(n); ok {
			return []Node{CitationRef{RefID: c.RefID, Text: c.Text}}
		}
		if v, ok := markup.ParseVersionWord(n); ok {
			return []Node{VersionWord{Versions: v.Versions}}
		}
		if q, ok := markup.ParseQuote(n); ok {
			return []Node{QuoteFigure{Text: q.Text, Author: q.Author}}
		}
		if m, ok := markup.ParseTocMark(n); ok {
			return []Node{TocEntry{Text: m.Text}}
		}

		// Generic element: descend. A malformed data-versions payload
		// lands here and renders its plain children.
		inside := inInteractive || markup.IsInteractive(n)
		el := Element{Tag: n.Data, Attr: attrMap(n)}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			el.Children = append(el.Children, w.transform(c, inside)...)
		}
		return []Node{el}

	default:
		// Comments and doctypes contribute nothing.
		return nil
	}
}

// numberNote assigns the next number in the note's sequence and records
// it for the listing.
func (w *Walker) numberNote(note markup.Note) NoteRef {
	var num int
	switch note.Type {
	case markup.SpecialNote:
		w.specialnotes++
		num = w.specialnotes
	default:
		w.footnotes++
		num = w.footnotes
	}
	ref := NoteRef{Type: note.Type, Number: num, Content: note.Content}
	w.notes = append(w.notes, ref)
	return ref
}

// text splits a text run on glossary matches unless an interactive
// ancestor suppresses highlighting.
func (w *Walker) text(s string, inInteractive bool) []Node {
	if s == "" {
		return nil
	}
	if w.matcher == nil || inInteractive {
		return []Node{Text{Value: s}}
	}
	var out []Node
	for _, seg := range w.matcher.Split(s) {
		if seg.Term != nil {
			out = append(out, GlossaryRef{Text: seg.Text, Term: seg.Term})
		} else {
			out = append(out, Text{Value: seg.Text})
		}
	}
	return out
}

func attrMap(n *html.Node) map[string]string {
	if len(n.Attr) == 0 {
		return nil
	}
	m := make(map[string]string, len(n.Attr))
	for _, a := range n.Attr {
		m[a.Key] = a.Val
	}
	return m
}
