package markup

import (
	"github.com/gosimple/slug"
	"golang.org/x/net/html"
)

var headingTags = map[string]bool{
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// EnsureHeadingIDs assigns a slug-like id to every heading element that
// lacks one, derived from a lowercase/hyphenated transform of its text.
// Existing ids are never overwritten, so the pass is idempotent.
func EnsureHeadingIDs(body string) (string, error) {
	if body == "" {
		return "", nil
	}
	nodes, err := ParseFragment(body)
	if err != nil {
		return "", err
	}
	for _, n := range nodes {
		ensureIDs(n)
	}
	return Serialize(nodes)
}

func ensureIDs(n *html.Node) {
	if n.Type == html.ElementNode && headingTags[n.Data] {
		if _, ok := Attr(n, "id"); !ok {
			if text := TextContent(n); text != "" {
				n.Attr = append(n.Attr, html.Attribute{Key: "id", Val: slug.Make(text)})
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		ensureIDs(c)
	}
}
