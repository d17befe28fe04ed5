// Package glossary matches plain text runs against an active glossary's
// term list. Matches are a render-time-only transformation: nothing here
// is ever persisted.
package glossary

import (
	"regexp"
	"sort"
	"strings"
)

// Term is one glossary entry supplied by the glossary provider.
type Term struct {
	Term            string `json:"term" yaml:"term"`
	Transliteration string `json:"transliteration,omitempty" yaml:"transliteration,omitempty"`
	Definition      string `json:"definition" yaml:"definition"`
	ColorTheme      string `json:"colorTheme,omitempty" yaml:"colorTheme,omitempty"`
}

// Segment is a piece of a split text run. Term is nil for plain text.
type Segment struct {
	Text string
	Term *Term
}

// Matcher splits text on a regex built by alternating the glossary's
// terms. Terms are sorted longest first so a short term never shadows a
// longer one containing it as a substring.
type Matcher struct {
	re     *regexp.Regexp
	byText map[string]*Term
}

// NewMatcher builds a matcher for the given term list. An empty list
// yields a matcher that leaves text untouched.
func NewMatcher(terms []Term) *Matcher {
	m := &Matcher{byText: make(map[string]*Term, len(terms))}

	var words []string
	for i := range terms {
		t := terms[i]
		if t.Term == "" {
			continue
		}
		if _, dup := m.byText[t.Term]; dup {
			continue
		}
		m.byText[t.Term] = &t
		words = append(words, t.Term)
	}
	if len(words) == 0 {
		return m
	}

	sort.Slice(words, func(i, j int) bool {
		if len(words[i]) != len(words[j]) {
			return len(words[i]) > len(words[j])
		}
		return words[i] < words[j]
	})

	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	m.re = regexp.MustCompile(strings.Join(quoted, "|"))
	return m
}

// Split divides text into plain and matched segments in order. The
// concatenation of all segment texts equals the input.
func (m *Matcher) Split(text string) []Segment {
	if m == nil || m.re == nil || text == "" {
		if text == "" {
			return nil
		}
		return []Segment{{Text: text}}
	}

	var segs []Segment
	last := 0
	for _, loc := range m.re.FindAllStringIndex(text, -1) {
		if loc[0] > last {
			segs = append(segs, Segment{Text: text[last:loc[0]]})
		}
		matched := text[loc[0]:loc[1]]
		segs = append(segs, Segment{Text: matched, Term: m.byText[matched]})
		last = loc[1]
	}
	if last < len(text) {
		segs = append(segs, Segment{Text: text[last:]})
	}
	return segs
}

// Lookup returns the definition entry for an exact term.
func (m *Matcher) Lookup(term string) (*Term, bool) {
	if m == nil {
		return nil, false
	}
	t, ok := m.byText[term]
	return t, ok
}
