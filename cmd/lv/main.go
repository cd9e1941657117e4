// Command lv manages the game wiki's data pipeline: JSON data files in a
// content repository on one side, a git-tracked SQLite database on the
// other, with sync, export, and file-maintenance tools between them.
package main

import (
	"fmt"
	"os"

	"github.com/davrico/lorevault/internal/ui"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ui.RenderFail("Error:"), err)
		os.Exit(1)
	}
}
