// Package grantha provides the core library for editing and rendering
// structured scholarly articles: ordered, typed content blocks carrying
// rich markup with footnotes, citations, glossary terms and versioned
// readings.
package grantha

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
)

// BlockType identifies the kind of content a block holds. The vocabulary
// is closed and partitioned into source types (primary verse/text forms)
// and commentary types (named scholarly commentary genres).
type BlockType string

// Source block types.
const (
	Shloka BlockType = "shloka"
	Sutra  BlockType = "sutra"
	Karika BlockType = "karika"
	Gadya  BlockType = "gadya"
)

// Commentary block types.
const (
	Bhashya  BlockType = "bhashya"
	Tika     BlockType = "tika"
	Vyakhya  BlockType = "vyakhya"
	Tippani  BlockType = "tippani"
	Varttika BlockType = "varttika"
)

var sourceTypes = map[BlockType]bool{
	Shloka: true,
	Sutra:  true,
	Karika: true,
	Gadya:  true,
}

var commentaryTypes = map[BlockType]bool{
	Bhashya:  true,
	Tika:     true,
	Vyakhya:  true,
	Tippani:  true,
	Varttika: true,
}

// IsSource reports whether t is a primary source type.
func (t BlockType) IsSource() bool { return sourceTypes[t] }

// IsCommentary reports whether t is a commentary type. A block type is
// never both a source type and a commentary type.
func (t BlockType) IsCommentary() bool { return commentaryTypes[t] }

// Known reports whether t belongs to the closed vocabulary.
func (t BlockType) Known() bool { return t.IsSource() || t.IsCommentary() }

// CommentaryInfo carries the metadata of a commentary block. It is only
// present when the block's type is a commentary type.
type CommentaryInfo struct {
	Author    string `json:"author"`
	WorkName  string `json:"workName"`
	ShortName string `json:"shortName,omitempty"`
}

// ContentBlock is one addressable unit of article content. Sanskrit holds
// the serialized rich markup of the block body; despite the name it may
// contain arbitrary markup including embedded custom nodes.
type ContentBlock struct {
	ID         string          `json:"id"`
	Type       BlockType       `json:"type"`
	Sanskrit   string          `json:"sanskrit"`
	Commentary *CommentaryInfo `json:"commentary,omitempty"`
}

// Clone returns a deep copy of the block.
func (b *ContentBlock) Clone() *ContentBlock {
	c := *b
	if b.Commentary != nil {
		ci := *b.Commentary
		c.Commentary = &ci
	}
	return &c
}

// Article is an ordered sequence of content blocks plus chapter metadata.
// Tags are kept as a set; Content mirrors the serialized block list for
// persistence.
type Article struct {
	Title   string
	Verse   string
	Tags    mapset.Set[string]
	Blocks  []*ContentBlock
	Content string
}

// NewArticle creates an empty article.
func NewArticle(title, verse string) *Article {
	return &Article{
		Title: title,
		Verse: verse,
		Tags:  mapset.NewSet[string](),
	}
}

// TagList returns the article's tags as a sorted slice, suitable for
// serialization.
func (a *Article) TagList() []string {
	if a.Tags == nil {
		return nil
	}
	tags := a.Tags.ToSlice()
	sort.Strings(tags)
	return tags
}
