package markup

import (
	"encoding/json"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ParseFragment parses a persisted block body into a generic element
// tree. The fragment is parsed in a div context, so bare text and inline
// elements survive unchanged.
func ParseFragment(s string) ([]*html.Node, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	return html.ParseFragment(strings.NewReader(s), ctx)
}

// Serialize renders a list of nodes back to a markup string.
func Serialize(nodes []*html.Node) (string, error) {
	var b strings.Builder
	for _, n := range nodes {
		if err := html.Render(&b, n); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

// Attr returns the value of the named attribute and whether it is set.
func Attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// TextContent concatenates all text descendants of n in document order.
func TextContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// ParseNote recognizes the persisted note shape: a sup element carrying
// data-type footnote/specialnote.
func ParseNote(n *html.Node) (Note, bool) {
	if n.Type != html.ElementNode || n.Data != "sup" {
		return Note{}, false
	}
	t, ok := Attr(n, "data-type")
	if !ok || (t != string(Footnote) && t != string(SpecialNote)) {
		return Note{}, false
	}
	content, _ := Attr(n, "data-content")
	return Note{Type: NoteType(t), Content: content}, true
}

// ParseCitation recognizes the persisted citation shape: a span carrying
// data-citation and data-ref-id.
func ParseCitation(n *html.Node) (Citation, bool) {
	if n.Type != html.ElementNode || n.Data != "span" {
		return Citation{}, false
	}
	if _, ok := Attr(n, "data-citation"); !ok {
		return Citation{}, false
	}
	refID, ok := Attr(n, "data-ref-id")
	if !ok || refID == "" {
		return Citation{}, false
	}
	return Citation{RefID: refID, Text: TextContent(n)}, true
}

// ParseVersionWord recognizes the persisted version-word shape: a span
// carrying a JSON-encoded data-versions list. Malformed JSON is treated
// as "not a version word" so the renderer falls back to the element's
// plain children instead of failing.
func ParseVersionWord(n *html.Node) (VersionWord, bool) {
	if n.Type != html.ElementNode || n.Data != "span" {
		return VersionWord{}, false
	}
	raw, ok := Attr(n, "data-versions")
	if !ok {
		return VersionWord{}, false
	}
	var versions []string
	if err := json.Unmarshal([]byte(raw), &versions); err != nil {
		return VersionWord{}, false
	}
	return VersionWord{Versions: versions}, true
}

// ParseQuote recognizes the persisted scholarly-quote shape: a
// blockquote carrying data-quote.
func ParseQuote(n *html.Node) (ScholarlyQuote, bool) {
	if n.Type != html.ElementNode || n.Data != "blockquote" {
		return ScholarlyQuote{}, false
	}
	if _, ok := Attr(n, "data-quote"); !ok {
		return ScholarlyQuote{}, false
	}
	author, _ := Attr(n, "data-author")
	return ScholarlyQuote{Text: TextContent(n), Author: author}, true
}

// ParseTocMark recognizes the persisted TOC-mark shape: a span carrying
// data-toc-mark.
func ParseTocMark(n *html.Node) (TocMark, bool) {
	if n.Type != html.ElementNode || n.Data != "span" {
		return TocMark{}, false
	}
	if v, ok := Attr(n, "data-toc-mark"); !ok || v != "true" {
		return TocMark{}, false
	}
	return TocMark{Text: TextContent(n)}, true
}

// IsInteractive reports whether n is one of the interactive node shapes
// (citation, version word, or anything carrying a tooltip/menu role).
// Glossary matching never fires inside these.
func IsInteractive(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if _, ok := ParseCitation(n); ok {
		return true
	}
	if _, ok := ParseVersionWord(n); ok {
		return true
	}
	if role, ok := Attr(n, "role"); ok {
		switch role {
		case "tooltip", "menu", "menuitem":
			return true
		}
	}
	return false
}
