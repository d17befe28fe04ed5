package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore keeps articles in postgres, for multi-editor
// deployments where a local file is not enough.
type PostgresStore struct {
	db *sql.DB
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS articles (
	book_id    TEXT NOT NULL,
	chapter_id TEXT NOT NULL,
	verse      TEXT NOT NULL,
	title      TEXT NOT NULL DEFAULT '',
	blocks     JSONB NOT NULL DEFAULT '[]',
	tags       JSONB NOT NULL DEFAULT '[]',
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (book_id, chapter_id, verse)
);
`

// OpenPostgres connects with the given DSN and ensures the schema.
func OpenPostgres(dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("store: postgres requires a dsn")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping postgres: %w", err)
	}
	if _, err := db.Exec(postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init postgres schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Save(ctx context.Context, rec *ArticleRecord) error {
	blocks, tags, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO articles (book_id, chapter_id, verse, title, blocks, tags, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
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

func (s *PostgresStore) Get(ctx context.Context, bookID, chapterID, verse string) (*ArticleRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT book_id, chapter_id, verse, title, blocks, tags, updated_at
		FROM articles WHERE book_id = $1 AND chapter_id = $2 AND verse = $3`,
		bookID, chapterID, verse)
	return scanRecord(row)
}

func (s *PostgresStore) List(ctx context.Context, bookID, chapterID string) ([]*ArticleRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT book_id, chapter_id, verse, title, blocks, tags, updated_at
		FROM articles WHERE book_id = $1 AND chapter_id = $2 ORDER BY verse`,
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

func (s *PostgresStore) Delete(ctx context.Context, bookID, chapterID, verse string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM articles WHERE book_id = $1 AND chapter_id = $2 AND verse = $3`,
		bookID, chapterID, verse)
	if err != nil {
		return fmt.Errorf("store: delete article %s/%s/%s: %w", bookID, chapterID, verse, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
