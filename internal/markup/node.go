// Package markup defines the closed set of custom inline/block nodes
// layered onto the rich-text format, with paired parse and render rules.
// The rendered attribute shapes are the on-disk interchange contract for
// persisted block bodies and must not change without a migration plan.
package markup

import (
	"encoding/json"
	"fmt"
	"html"
)

// NoteType distinguishes the two note numbering sequences.
type NoteType string

const (
	Footnote    NoteType = "footnote"
	SpecialNote NoteType = "specialnote"
)

// Note is an atomic inline annotation. Its number is recomputed from
// document order at render time and is never stored.
type Note struct {
	Type    NoteType `json:"type"`
	Content string   `json:"content"`
}

// HTML emits the canonical persisted shape of the note.
func (n Note) HTML() string {
	return fmt.Sprintf(`<sup data-type="%s" data-content="%s">[FN]</sup>`,
		n.Type, html.EscapeString(n.Content))
}

// Citation is a reference pointer to an external source record. The
// record is resolved asynchronously for display; only the key persists.
type Citation struct {
	RefID string `json:"refId"`
	Text  string `json:"text"`
}

// HTML emits the canonical persisted shape of the citation.
func (c Citation) HTML() string {
	return fmt.Sprintf(`<span data-citation="true" data-ref-id="%s">%s</span>`,
		html.EscapeString(c.RefID), html.EscapeString(c.Text))
}

// VersionWord offers alternative readings for one word. Exactly one is
// active per render session; the choice is display-local and never
// persisted.
type VersionWord struct {
	Versions []string `json:"versions"`
	Active   int      `json:"-"`
}

// ActiveText returns the currently displayed reading.
func (v VersionWord) ActiveText() string {
	if v.Active >= 0 && v.Active < len(v.Versions) {
		return v.Versions[v.Active]
	}
	if len(v.Versions) > 0 {
		return v.Versions[0]
	}
	return ""
}

// HTML emits the canonical persisted shape of the version word. The
// element body carries the first reading so plain renderers still show
// a word.
func (v VersionWord) HTML() string {
	data, _ := json.Marshal(v.Versions)
	return fmt.Sprintf(`<span data-versions="%s">%s</span>`,
		html.EscapeString(string(data)), html.EscapeString(v.ActiveText()))
}

// ScholarlyQuote is a styled blockquote variant distinct from the
// ordinary blockquote.
type ScholarlyQuote struct {
	Text   string `json:"text"`
	Author string `json:"author"`
}

// HTML emits the canonical persisted shape of the quote.
func (q ScholarlyQuote) HTML() string {
	return fmt.Sprintf(`<blockquote data-quote="true" data-author="%s">%s</blockquote>`,
		html.EscapeString(q.Author), html.EscapeString(q.Text))
}

// TocMark flags a text range as a heading of interest for the
// table-of-contents feature. The mark itself is zero-width: it only
// wraps existing text.
type TocMark struct {
	Text string `json:"text"`
}

// HTML emits the canonical persisted shape of the mark.
func (m TocMark) HTML() string {
	return fmt.Sprintf(`<span data-toc-mark="true">%s</span>`, html.EscapeString(m.Text))
}

// Equal reports attribute-level equivalence of two notes, as required by
// the parse/render round-trip.
func (n Note) Equal(o Note) bool { return n.Type == o.Type && n.Content == o.Content }

// Equal reports attribute-level equivalence of two version words. The
// active index is display state and is ignored.
func (v VersionWord) Equal(o VersionWord) bool {
	if len(v.Versions) != len(o.Versions) {
		return false
	}
	for i := range v.Versions {
		if v.Versions[i] != o.Versions[i] {
			return false
		}
	}
	return true
}
