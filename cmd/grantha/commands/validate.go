package commands

import (
	"fmt"

	"github.com/medhayu/grantha"
	"github.com/medhayu/grantha/internal/render"
)

// ValidateCommand parses manuscript files without storing anything,
// reporting markup problems: grantha validate FILE...
func ValidateCommand(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: grantha validate FILE...")
	}

	var failed int
	for _, file := range args {
		article, err := grantha.ImportManuscript(file)
		if err != nil {
			fmt.Printf("FAIL %s\n%v\n", file, err)
			failed++
			continue
		}

		// A full render pass catches markup the importer accepts but
		// the view pipeline cannot walk.
		walker := render.NewWalker(nil)
		ok := true
		for _, b := range article.Blocks {
			if _, err := walker.Block(b.Sanskrit); err != nil {
				fmt.Printf("FAIL %s: block %s: %v\n", file, b.ID, err)
				ok = false
			}
		}
		if !ok {
			failed++
			continue
		}
		fmt.Printf("ok   %s (%d blocks, %d notes)\n", file, len(article.Blocks), len(walker.Notes()))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed validation", failed, len(args))
	}
	return nil
}
