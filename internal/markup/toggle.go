package markup

import (
	"fmt"

	"golang.org/x/net/html"
)

// Toggle commands operate on byte offsets into the serialized block
// body. Offsets inside a tag are rejected rather than silently producing
// broken markup.

// InsertNote inserts a note at the cursor offset.
func InsertNote(body string, offset int, note Note) (string, error) {
	if err := checkOffset(body, offset); err != nil {
		return "", err
	}
	return body[:offset] + note.HTML() + body[offset:], nil
}

// WrapTocMark wraps the selection [start,end) in a TOC mark, atomically
// replacing any existing mark already covering part of the selection.
func WrapTocMark(body string, start, end int) (string, error) {
	if start > end {
		start, end = end, start
	}
	if err := checkOffset(body, start); err != nil {
		return "", err
	}
	if err := checkOffset(body, end); err != nil {
		return "", err
	}
	inner, err := stripTocMarks(body[start:end])
	if err != nil {
		return "", err
	}
	return body[:start] + `<span data-toc-mark="true">` + inner + `</span>` + body[end:], nil
}

// RemoveTocMarks unwraps every TOC mark in the selection, keeping the
// marked text.
func RemoveTocMarks(body string, start, end int) (string, error) {
	if start > end {
		start, end = end, start
	}
	if err := checkOffset(body, start); err != nil {
		return "", err
	}
	if err := checkOffset(body, end); err != nil {
		return "", err
	}
	inner, err := stripTocMarks(body[start:end])
	if err != nil {
		return "", err
	}
	return body[:start] + inner + body[end:], nil
}

// stripTocMarks parses a markup snippet and unwraps any TOC-mark spans,
// preserving their children.
func stripTocMarks(snippet string) (string, error) {
	if snippet == "" {
		return "", nil
	}
	nodes, err := ParseFragment(snippet)
	if err != nil {
		return "", err
	}
	root := &html.Node{Type: html.ElementNode, Data: "div"}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	unwrapTocMarks(root)

	var out []*html.Node
	for c := root.FirstChild; c != nil; {
		next := c.NextSibling
		root.RemoveChild(c)
		out = append(out, c)
		c = next
	}
	return Serialize(out)
}

// unwrapTocMarks lifts the children of every descendant TOC mark into
// its place, depth first.
func unwrapTocMarks(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		unwrapTocMarks(c)
		if _, ok := ParseTocMark(c); ok {
			for gc := c.FirstChild; gc != nil; {
				gnext := gc.NextSibling
				c.RemoveChild(gc)
				n.InsertBefore(gc, c)
				gc = gnext
			}
			n.RemoveChild(c)
		}
		c = next
	}
}

// checkOffset verifies the offset is inside the body and not inside a
// tag or entity.
func checkOffset(body string, offset int) error {
	if offset < 0 || offset > len(body) {
		return fmt.Errorf("markup: offset %d out of range [0,%d]", offset, len(body))
	}
	depth := 0
	for i := 0; i < offset; i++ {
		switch body[i] {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		}
	}
	if depth != 0 {
		return fmt.Errorf("markup: offset %d falls inside a tag", offset)
	}
	return nil
}
