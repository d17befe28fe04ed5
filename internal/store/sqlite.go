package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps articles in a local sqlite database. Blocks and
// tags are stored as JSON text columns; the schema is created on open.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS articles (
	book_id    TEXT NOT NULL,
	chapter_id TEXT NOT NULL,
	verse      TEXT NOT NULL,
	title      TEXT NOT NULL DEFAULT '',
	blocks     TEXT NOT NULL DEFAULT '[]',
	tags       TEXT NOT NULL DEFAULT '[]',
	updated_at TIMESTAMP NOT NULL,
	PRIMARY KEY (book_id, chapter_id, verse)
);
`

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		path = "grantha.db"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite %s: %w", path, err)
	}
	// modernc.org/sqlite serializes writes itself; a single connection
	// avoids SQLITE_BUSY under concurrent saves.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, rec *ArticleRecord) error {
	blocks, tags, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO articles (book_id, chapter_id, verse, title, blocks, tags, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (book_id, chapter_id, verse) DO UPDATE SET
			title = excluded.title,
			blocks = excluded.blocks,
			tags = excluded.tags,
			updated_at = excluded.updated_at`,
		rec.BookID, rec.ChapterID, rec.Verse, rec.Title, blocks, tags, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store: save article %s/%s/%s: %w", rec.BookID, rec.ChapterID, rec.Verse, err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, bookID, chapterID, verse string) (*ArticleRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT book_id, chapter_id, verse, title, blocks, tags, updated_at
		FROM articles WHERE book_id = ? AND chapter_id = ? AND verse = ?`,
		bookID, chapterID, verse)
	return scanRecord(row)
}

func (s *SQLiteStore) List(ctx context.Context, bookID, chapterID string) ([]*ArticleRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT book_id, chapter_id, verse, title, blocks, tags, updated_at
		FROM articles WHERE book_id = ? AND chapter_id = ? ORDER BY verse`,
		bookID, chapterID)
	if err != nil {
		return nil, fmt.Errorf("store: list articles %s/%s: %w", bookID, chapterID, err)
	}
	defer rows.Close()
	var recs []*ArticleRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (s *SQLiteStore) Delete(ctx context.Context, bookID, chapterID, verse string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM articles WHERE book_id = ? AND chapter_id = ? AND verse = ?`,
		bookID, chapterID, verse)
	if err != nil {
		return fmt.Errorf("store: delete article %s/%s/%s: %w", bookID, chapterID, verse, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func encodeRecord(rec *ArticleRecord) (blocks, tags []byte, err error) {
	blocks, err = json.Marshal(rec.Blocks)
	if err != nil {
		return nil, nil, fmt.Errorf("store: encode blocks: %w", err)
	}
	if rec.Tags == nil {
		tags = []byte("[]")
	} else if tags, err = json.Marshal(rec.Tags); err != nil {
		return nil, nil, fmt.Errorf("store: encode tags: %w", err)
	}
	return blocks, tags, nil
}

func scanRecord(row rowScanner) (*ArticleRecord, error) {
	var rec ArticleRecord
	var blocks, tags []byte
	err := row.Scan(&rec.BookID, &rec.ChapterID, &rec.Verse, &rec.Title, &blocks, &tags, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan article: %w", err)
	}
	if err := json.Unmarshal(blocks, &rec.Blocks); err != nil {
		return nil, fmt.Errorf("store: decode blocks: %w", err)
	}
	if err := json.Unmarshal(tags, &rec.Tags); err != nil {
		return nil, fmt.Errorf("store: decode tags: %w", err)
	}
	return &rec, nil
}
