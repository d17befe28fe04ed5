package grantha

import (
	"fmt"
	"testing"
)

// seqIDs returns deterministic ids b1, b2, b3...
func seqIDs() IDSource {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("b%d", n)
	}
}

func TestInsertPreservesOrder(t *testing.T) {
	s := NewBlockStoreWithIDs(seqIDs())
	s.Insert(Shloka)
	s.Insert(Bhashya)
	s.Insert(Tika)

	blocks := s.Blocks()
	if len(blocks) != 3 {
		t.Fatalf("got %d blocks", len(blocks))
	}
	for i, want := range []BlockType{Shloka, Bhashya, Tika} {
		if blocks[i].Type != want {
			t.Errorf("blocks[%d].Type = %q, want %q", i, blocks[i].Type, want)
		}
	}
}

func TestInsertReturnsUsableID(t *testing.T) {
	s := NewBlockStore()
	id := s.Insert(Shloka)
	if id == "" {
		t.Fatal("empty id")
	}
	if ok := s.Update(id, BlockPatch{Commentary: &CommentaryInfo{Author: "a"}}); !ok {
		t.Error("freshly inserted block not addressable")
	}
}

func TestUpdatePartialPatch(t *testing.T) {
	s := NewBlockStoreWithIDs(seqIDs())
	id := s.Insert(Bhashya)
	text := "<p>one</p>"
	s.Update(id, BlockPatch{
		Sanskrit:   &text,
		Commentary: &CommentaryInfo{Author: "Chakrapani", WorkName: "Dipika"},
	})

	// Patch only the text; commentary must survive.
	text2 := "<p>two</p>"
	s.Update(id, BlockPatch{Sanskrit: &text2})

	b, _ := s.Get(id)
	if b.Sanskrit != "<p>two</p>" {
		t.Errorf("Sanskrit = %q", b.Sanskrit)
	}
	if b.Commentary == nil || b.Commentary.Author != "Chakrapani" {
		t.Errorf("Commentary = %+v, patch clobbered untouched field", b.Commentary)
	}

	// Retype and clear commentary.
	newType := Shloka
	s.Update(id, BlockPatch{Type: &newType, ClearCommentary: true})
	b, _ = s.Get(id)
	if b.Type != Shloka || b.Commentary != nil {
		t.Errorf("after clear: type=%q commentary=%+v", b.Type, b.Commentary)
	}

	if s.Update("missing", BlockPatch{}) {
		t.Error("Update reported success for an unknown id")
	}
}

func TestRemoveKeepsRemainingOrder(t *testing.T) {
	s := NewBlockStoreWithIDs(seqIDs())
	s.Insert(Shloka)
	mid := s.Insert(Bhashya)
	s.Insert(Tika)

	if !s.Remove(mid) {
		t.Fatal("Remove failed")
	}
	blocks := s.Blocks()
	if len(blocks) != 2 || blocks[0].ID != "b1" || blocks[1].ID != "b3" {
		t.Errorf("blocks after remove: %+v", blocks)
	}
	if s.Remove(mid) {
		t.Error("second Remove reported success")
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	s := NewBlockStoreWithIDs(seqIDs())
	id := s.Insert(Bhashya)
	s.Update(id, BlockPatch{Commentary: &CommentaryInfo{Author: "original"}})

	snap := s.Snapshot()
	snap[0].Sanskrit = "mutated"
	snap[0].Commentary.Author = "mutated"

	b, _ := s.Get(id)
	if b.Sanskrit == "mutated" || b.Commentary.Author == "mutated" {
		t.Error("snapshot mutation leaked into the store")
	}
}

func TestLoadDeepCopies(t *testing.T) {
	saved := []*ContentBlock{
		{ID: "x", Type: Shloka, Sanskrit: "<p>a</p>"},
		{ID: "y", Type: Bhashya, Commentary: &CommentaryInfo{Author: "a"}},
	}
	s := NewBlockStore()
	s.Load(saved)

	saved[1].Commentary.Author = "mutated"
	b, _ := s.Get("y")
	if b.Commentary.Author == "mutated" {
		t.Error("Load shares commentary with the caller's slice")
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d", s.Len())
	}
}

func TestClear(t *testing.T) {
	s := NewBlockStore()
	s.Insert(Shloka)
	s.Clear()
	if s.Len() != 0 {
		t.Errorf("Len = %d after Clear", s.Len())
	}
}

func TestBlockTypeVocabulary(t *testing.T) {
	for _, bt := range []BlockType{Shloka, Sutra, Karika, Gadya} {
		if !bt.IsSource() || bt.IsCommentary() || !bt.Known() {
			t.Errorf("%q: IsSource=%v IsCommentary=%v", bt, bt.IsSource(), bt.IsCommentary())
		}
	}
	for _, bt := range []BlockType{Bhashya, Tika, Vyakhya, Tippani, Varttika} {
		if bt.IsSource() || !bt.IsCommentary() || !bt.Known() {
			t.Errorf("%q: IsSource=%v IsCommentary=%v", bt, bt.IsSource(), bt.IsCommentary())
		}
	}
	if BlockType("markdown").Known() {
		t.Error("unknown type reported as known")
	}
}

func TestArticleTagList(t *testing.T) {
	a := NewArticle("Title", "1.1")
	a.Tags.Add("nidana")
	a.Tags.Add("dosha")
	a.Tags.Add("nidana")

	got := a.TagList()
	if len(got) != 2 || got[0] != "dosha" || got[1] != "nidana" {
		t.Errorf("TagList = %v, want sorted deduplicated tags", got)
	}

	var empty Article
	if empty.TagList() != nil {
		t.Error("nil tag set produced a list")
	}
}
