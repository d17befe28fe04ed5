package render

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/medhayu/grantha/internal/markup"
)

var voidTags = map[string]bool{
	"br": true, "hr": true, "img": true, "wbr": true,
}

// HTML materializes a render tree as read-only view markup.
func HTML(nodes []Node) string {
	var b strings.Builder
	for _, n := range nodes {
		writeNode(&b, n)
	}
	return b.String()
}

func writeNode(b *strings.Builder, n Node) {
	switch v := n.(type) {
	case Text:
		b.WriteString(html.EscapeString(v.Value))

	case Element:
		b.WriteString("<" + v.Tag)
		writeAttrs(b, v.Attr)
		if voidTags[v.Tag] {
			b.WriteString("/>")
			return
		}
		b.WriteString(">")
		for _, c := range v.Children {
			writeNode(b, c)
		}
		b.WriteString("</" + v.Tag + ">")

	case NoteRef:
		fmt.Fprintf(b, `<sup class="note %s" title="%s">[%d]</sup>`,
			v.Type, html.EscapeString(v.Content), v.Number)

	case CitationRef:
		fmt.Fprintf(b, `<span class="citation" data-ref-id="%s">%s</span>`,
			html.EscapeString(v.RefID), html.EscapeString(v.Text))

	case VersionWord:
		w := markup.VersionWord{Versions: v.Versions, Active: v.Active}
		fmt.Fprintf(b, `<span class="version-word">%s</span>`, html.EscapeString(w.ActiveText()))

	case QuoteFigure:
		fmt.Fprintf(b, `<figure class="scholarly-quote"><blockquote>%s</blockquote>`,
			html.EscapeString(v.Text))
		if v.Author != "" {
			fmt.Fprintf(b, `<figcaption>%s</figcaption>`, html.EscapeString(v.Author))
		}
		b.WriteString(`</figure>`)

	case TocEntry:
		fmt.Fprintf(b, `<span class="toc-entry">%s</span>`, html.EscapeString(v.Text))

	case GlossaryRef:
		theme := ""
		def := ""
		if v.Term != nil {
			theme = v.Term.ColorTheme
			def = v.Term.Definition
		}
		fmt.Fprintf(b, `<span class="glossary %s" role="tooltip" title="%s">%s</span>`,
			html.EscapeString(theme), html.EscapeString(def), html.EscapeString(v.Text))
	}
}

func writeAttrs(b *strings.Builder, attrs map[string]string) {
	if len(attrs) == 0 {
		return
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, ` %s="%s"`, k, html.EscapeString(attrs[k]))
	}
}

// NotesHTML materializes the end-of-article notes listing. Footnotes and
// special notes keep their own sequences, in document order.
func NotesHTML(notes []NoteRef) string {
	if len(notes) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(`<ol class="notes">`)
	for _, n := range notes {
		fmt.Fprintf(&b, `<li class="%s" value="%d">%s</li>`,
			n.Type, n.Number, html.EscapeString(n.Content))
	}
	b.WriteString(`</ol>`)
	return b.String()
}

// Encode converts a render tree to a JSON-friendly form for API
// responses, tagging each node with its kind.
func Encode(nodes []Node) []map[string]any {
	out := make([]map[string]any, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, encodeNode(n))
	}
	return out
}

func encodeNode(n Node) map[string]any {
	switch v := n.(type) {
	case Text:
		return map[string]any{"kind": "text", "value": v.Value}
	case Element:
		m := map[string]any{"kind": "element", "tag": v.Tag}
		if len(v.Attr) > 0 {
			m["attr"] = v.Attr
		}
		if len(v.Children) > 0 {
			m["children"] = Encode(v.Children)
		}
		return m
	case NoteRef:
		return map[string]any{"kind": "note", "type": string(v.Type), "number": v.Number, "content": v.Content}
	case CitationRef:
		return map[string]any{"kind": "citation", "refId": v.RefID, "text": v.Text}
	case VersionWord:
		return map[string]any{"kind": "versionWord", "versions": v.Versions, "active": v.Active}
	case QuoteFigure:
		return map[string]any{"kind": "quote", "text": v.Text, "author": v.Author}
	case TocEntry:
		return map[string]any{"kind": "tocEntry", "text": v.Text}
	case GlossaryRef:
		m := map[string]any{"kind": "glossary", "text": v.Text}
		if v.Term != nil {
			m["term"] = v.Term
		}
		return m
	}
	return nil
}
