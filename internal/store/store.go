// Package store persists whole articles. The full ordered block list is
// serialized wholesale on save; there is no per-block persistence.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/medhayu/grantha"
	"github.com/medhayu/grantha/internal/config"
)

// ErrNotFound is returned when no article exists at an address.
var ErrNotFound = errors.New("store: article not found")

// ArticleRecord is one saved article, addressed by book, chapter and
// verse position.
type ArticleRecord struct {
	BookID    string                  `json:"bookId"`
	ChapterID string                  `json:"chapterId"`
	Verse     string                  `json:"verse"`
	Title     string                  `json:"title"`
	Blocks    []*grantha.ContentBlock `json:"blocks"`
	Tags      []string                `json:"tags,omitempty"`
	UpdatedAt time.Time               `json:"updatedAt"`
}

// ArticleStore is the persistence action behind autosave. Save
// overwrites whatever is stored at the address — last save wins; there
// is no documented conflict policy for concurrent sessions.
type ArticleStore interface {
	Save(ctx context.Context, rec *ArticleRecord) error
	Get(ctx context.Context, bookID, chapterID, verse string) (*ArticleRecord, error)
	List(ctx context.Context, bookID, chapterID string) ([]*ArticleRecord, error)
	Delete(ctx context.Context, bookID, chapterID, verse string) error
	Close() error
}

// Open instantiates a store based on config.
func Open(cfg config.StoreConfig) (ArticleStore, error) {
	switch cfg.Type {
	case "", "sqlite":
		return OpenSQLite(cfg.DB)
	case "postgres":
		return OpenPostgres(cfg.GetDSN())
	default:
		return nil, fmt.Errorf("store: unsupported type %q", cfg.Type)
	}
}
