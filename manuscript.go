package grantha

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/medhayu/grantha/internal/markup"
)

// Frontmatter is the YAML header of a manuscript file.
type Frontmatter struct {
	Title string   `yaml:"title"`
	Verse string   `yaml:"verse"`
	Tags  []string `yaml:"tags"`
}

// ImportManuscript reads a manuscript markdown file and builds an
// article from its typed fenced blocks.
func ImportManuscript(path string) (*Article, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manuscript: %w", err)
	}
	return ParseManuscript(path, content)
}

// ParseManuscript parses manuscript content. Each fenced code block
// whose info string names a block type becomes one content block:
//
//	```shloka
//	...markup...
//	```
//
//	```bhashya author="Chakrapani" work="Ayurveda Dipika"
//	...markup...
//	```
//
// Prose outside typed blocks is manuscript commentary for human readers
// and is not imported. The path parameter is used for error reporting
// only.
func ParseManuscript(path string, content []byte) (*Article, error) {
	fm, remaining, err := extractFrontmatter(path, content)
	if err != nil {
		return nil, err
	}

	article := NewArticle(fm.Title, fm.Verse)
	article.Tags = mapset.NewSet(fm.Tags...)

	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	doc := md.Parser().Parse(text.NewReader(remaining))
	lineOffset := bytes.Count(content[:len(content)-len(remaining)], []byte("\n"))

	store := NewBlockStore()
	walkErr := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fenced, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}

		line := lineOffset + 1
		if fenced.Lines().Len() > 0 {
			line += bytes.Count(remaining[:fenced.Lines().At(0).Start], []byte("\n"))
		}

		block, err := parseManuscriptBlock(path, fenced, remaining, line)
		if err != nil {
			return ast.WalkStop, err
		}
		if block == nil {
			return ast.WalkContinue, nil
		}

		id := store.Insert(block.Type)
		store.Update(id, BlockPatch{Sanskrit: &block.Sanskrit, Commentary: block.Commentary})
		return ast.WalkContinue, nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	article.Blocks = store.Blocks()
	return article, nil
}

// extractFrontmatter splits the YAML header off the manuscript body.
func extractFrontmatter(path string, content []byte) (*Frontmatter, []byte, error) {
	if !bytes.HasPrefix(content, []byte("---\n")) {
		return &Frontmatter{}, content, nil
	}

	endIdx := bytes.Index(content[4:], []byte("\n---\n"))
	if endIdx == -1 {
		return nil, nil, NewImportError(path, 1, "unclosed frontmatter").
			WithHint("close the YAML header with a --- line")
	}

	var fm Frontmatter
	if err := yaml.Unmarshal(content[4:4+endIdx], &fm); err != nil {
		return nil, nil, NewImportError(path, 2, fmt.Sprintf("invalid frontmatter: %v", err))
	}
	return &fm, content[4+endIdx+5:], nil
}

// parseManuscriptBlock turns one fenced block into a content block.
// Info string format: "<type> key=value ...". Blocks whose first info
// token is not a known block type are regular code blocks and skipped.
func parseManuscriptBlock(path string, fenced *ast.FencedCodeBlock, source []byte, line int) (*ContentBlock, error) {
	info := string(fenced.Info.Text(source))
	parts := strings.Fields(info)
	if len(parts) == 0 {
		return nil, nil
	}

	blockType := BlockType(parts[0])
	if !blockType.Known() {
		return nil, nil
	}

	meta := make(map[string]string)
	for _, part := range parts[1:] {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return nil, NewImportError(path, line, fmt.Sprintf("malformed block attribute %q", part)).
				WithHint(`attributes take the form key="value"`)
		}
		meta[kv[0]] = strings.Trim(kv[1], `"'`)
	}

	var commentary *CommentaryInfo
	if blockType.IsCommentary() {
		if meta["author"] == "" {
			return nil, NewImportError(path, line, fmt.Sprintf("%s block missing author", blockType)).
				WithHint(`commentary blocks need author="..." and work="..."`)
		}
		commentary = &CommentaryInfo{
			Author:    meta["author"],
			WorkName:  meta["work"],
			ShortName: meta["short"],
		}
	}

	var buf bytes.Buffer
	lines := fenced.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(source))
	}

	body, err := markup.EnsureHeadingIDs(strings.TrimRight(buf.String(), "\n"))
	if err != nil {
		return nil, NewImportError(path, line, fmt.Sprintf("invalid block markup: %v", err))
	}

	return &ContentBlock{
		Type:       blockType,
		Sanskrit:   body,
		Commentary: commentary,
	}, nil
}
