package glossary

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var testTerms = []Term{
	{Term: "vata", Definition: "one of the three doshas"},
	{Term: "vata dosha", Definition: "the full compound"},
	{Term: "pitta", Definition: "bile"},
}

func joinSegments(segs []Segment) string {
	var b strings.Builder
	for _, s := range segs {
		b.WriteString(s.Text)
	}
	return b.String()
}

func TestSplitLongestMatchWins(t *testing.T) {
	m := NewMatcher(testTerms)
	segs := m.Split("the vata dosha governs movement")

	var matched []string
	for _, s := range segs {
		if s.Term != nil {
			matched = append(matched, s.Text)
		}
	}
	if len(matched) != 1 || matched[0] != "vata dosha" {
		t.Errorf("matched %v, want [vata dosha]", matched)
	}
}

func TestSplitConcatenationEqualsInput(t *testing.T) {
	m := NewMatcher(testTerms)
	inputs := []string{
		"vata and pitta and kapha",
		"no terms here",
		"vata",
		"pittavata", // adjacent matches with no separator
	}
	for _, in := range inputs {
		if got := joinSegments(m.Split(in)); got != in {
			t.Errorf("Split(%q) reassembles to %q", in, got)
		}
	}
}

func TestSplitReturnsDefinitions(t *testing.T) {
	m := NewMatcher(testTerms)
	segs := m.Split("pitta rises")
	if len(segs) != 2 {
		t.Fatalf("got %d segments, want 2", len(segs))
	}
	if segs[0].Term == nil || segs[0].Term.Definition != "bile" {
		t.Errorf("first segment term = %+v", segs[0].Term)
	}
	if segs[1].Term != nil {
		t.Errorf("trailing text carries a term: %+v", segs[1].Term)
	}
}

func TestEmptyMatcherLeavesTextAlone(t *testing.T) {
	m := NewMatcher(nil)
	segs := m.Split("anything at all")
	if len(segs) != 1 || segs[0].Term != nil || segs[0].Text != "anything at all" {
		t.Errorf("got %+v", segs)
	}
	if segs := m.Split(""); segs != nil {
		t.Errorf("empty input: got %+v, want nil", segs)
	}
}

func TestNilMatcher(t *testing.T) {
	var m *Matcher
	segs := m.Split("text")
	if len(segs) != 1 || segs[0].Text != "text" {
		t.Errorf("got %+v", segs)
	}
	if _, ok := m.Lookup("vata"); ok {
		t.Error("nil matcher found a term")
	}
}

func TestLookup(t *testing.T) {
	m := NewMatcher(testTerms)
	term, ok := m.Lookup("vata")
	if !ok || term.Definition != "one of the three doshas" {
		t.Errorf("Lookup(vata) = %+v, %v", term, ok)
	}
	if _, ok := m.Lookup("kapha"); ok {
		t.Error("Lookup found an absent term")
	}
}

func TestDuplicateTermsKeepFirst(t *testing.T) {
	m := NewMatcher([]Term{
		{Term: "agni", Definition: "first"},
		{Term: "agni", Definition: "second"},
	})
	term, ok := m.Lookup("agni")
	if !ok || term.Definition != "first" {
		t.Errorf("Lookup(agni) = %+v, %v", term, ok)
	}
}

func TestLoadFileYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terms.yaml")
	data := "- term: ojas\n  definition: vital essence\n  colorTheme: amber\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	terms, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(terms) != 1 || terms[0].Term != "ojas" || terms[0].ColorTheme != "amber" {
		t.Errorf("got %+v", terms)
	}
}

func TestLoadFileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terms.json")
	data := `[{"term":"tejas","definition":"radiance"}]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	terms, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(terms) != 1 || terms[0].Term != "tejas" {
		t.Errorf("got %+v", terms)
	}
}

func TestLoadFileErrors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file: want error")
	}

	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("malformed file: want error")
	}
}
