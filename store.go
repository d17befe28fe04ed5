package grantha

import (
	"github.com/google/uuid"
)

// IDSource produces opaque, globally-unique block identifiers.
type IDSource func() string

// BlockStore owns the ordered block list of one article. All operations
// are synchronous and total over the in-memory list; persistence is the
// autosave coordinator's concern, not the store's.
type BlockStore struct {
	newID  IDSource
	blocks []*ContentBlock
}

// NewBlockStore creates an empty store using uuid-based identifiers.
func NewBlockStore() *BlockStore {
	return NewBlockStoreWithIDs(uuid.NewString)
}

// NewBlockStoreWithIDs creates an empty store with a custom id source.
func NewBlockStoreWithIDs(ids IDSource) *BlockStore {
	return &BlockStore{newID: ids}
}

// BlockPatch describes a partial update of a block. Nil fields are left
// untouched. ClearCommentary removes the commentary metadata regardless
// of the Commentary field.
type BlockPatch struct {
	Type            *BlockType
	Sanskrit        *string
	Commentary      *CommentaryInfo
	ClearCommentary bool
}

// Load replaces the list with deep copies of saved blocks, used when
// opening an existing article.
func (s *BlockStore) Load(blocks []*ContentBlock) {
	s.blocks = make([]*ContentBlock, len(blocks))
	for i, b := range blocks {
		s.blocks[i] = b.Clone()
	}
}

// Insert appends a new empty block of the given type and returns its id.
// The id is stable and immediately usable, so a metadata dialog can be
// routed to the block before any text is typed.
func (s *BlockStore) Insert(t BlockType) string {
	id := s.newID()
	s.blocks = append(s.blocks, &ContentBlock{ID: id, Type: t})
	return id
}

// Update applies a partial update to the block with the given id.
// It reports whether the block was found.
func (s *BlockStore) Update(id string, patch BlockPatch) bool {
	b := s.find(id)
	if b == nil {
		return false
	}
	if patch.Type != nil {
		b.Type = *patch.Type
	}
	if patch.Sanskrit != nil {
		b.Sanskrit = *patch.Sanskrit
	}
	if patch.ClearCommentary {
		b.Commentary = nil
	} else if patch.Commentary != nil {
		ci := *patch.Commentary
		b.Commentary = &ci
	}
	return true
}

// Remove deletes the block with the given id, preserving the order of
// the remaining blocks. It reports whether the block was found.
func (s *BlockStore) Remove(id string) bool {
	for i, b := range s.blocks {
		if b.ID == id {
			s.blocks = append(s.blocks[:i], s.blocks[i+1:]...)
			return true
		}
	}
	return false
}

// Clear removes all blocks.
func (s *BlockStore) Clear() {
	s.blocks = nil
}

// Get returns the block with the given id.
func (s *BlockStore) Get(id string) (*ContentBlock, bool) {
	b := s.find(id)
	if b == nil {
		return nil, false
	}
	return b, true
}

// Blocks returns the ordered block list as a fresh slice. Callers may
// reorder or drop entries without affecting the store.
func (s *BlockStore) Blocks() []*ContentBlock {
	out := make([]*ContentBlock, len(s.blocks))
	copy(out, s.blocks)
	return out
}

// Snapshot returns a deep copy of the block list, safe to hand to a
// concurrent save.
func (s *BlockStore) Snapshot() []*ContentBlock {
	out := make([]*ContentBlock, len(s.blocks))
	for i, b := range s.blocks {
		out[i] = b.Clone()
	}
	return out
}

// Len returns the number of blocks.
func (s *BlockStore) Len() int { return len(s.blocks) }

func (s *BlockStore) find(id string) *ContentBlock {
	for _, b := range s.blocks {
		if b.ID == id {
			return b
		}
	}
	return nil
}
