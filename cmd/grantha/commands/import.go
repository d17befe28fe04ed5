package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/medhayu/grantha"
	"github.com/medhayu/grantha/internal/config"
	"github.com/medhayu/grantha/internal/store"
)

// ImportCommand parses manuscript files and stores them as articles:
// grantha import <book> <chapter> FILE...
func ImportCommand(args []string) error {
	var configPath string
	var positional []string

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--config" || arg == "-c" {
			if i+1 < len(args) {
				configPath = args[i+1]
				i++
			}
		} else if !strings.HasPrefix(arg, "-") {
			positional = append(positional, arg)
		}
	}

	if len(positional) < 3 {
		return fmt.Errorf("usage: grantha import <book> <chapter> FILE...")
	}
	book, chapter, files := positional[0], positional[1], positional[2:]

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.LoadFromDir(".")
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	st, err := store.Open(cfg.Store)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	for _, file := range files {
		article, err := grantha.ImportManuscript(file)
		if err != nil {
			return err
		}
		if article.Verse == "" {
			return fmt.Errorf("%s: manuscript frontmatter sets no verse", file)
		}
		rec := &store.ArticleRecord{
			BookID:    book,
			ChapterID: chapter,
			Verse:     article.Verse,
			Title:     article.Title,
			Blocks:    article.Blocks,
			Tags:      article.TagList(),
		}
		if err := st.Save(ctx, rec); err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		fmt.Printf("Imported %s -> %s/%s/%s (%d blocks)\n",
			file, book, chapter, article.Verse, len(article.Blocks))
	}
	return nil
}
