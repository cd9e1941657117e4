package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/davrico/lorevault/internal/datafile"
	"github.com/davrico/lorevault/internal/ui"
)

var bumpCmd = &cobra.Command{
	Use:   "bump [files...]",
	Short: "Update last_updated on changed data file entries",
	Long: `Bump compares each entry against the snapshot committed at HEAD and
stamps the current time on entries that are new or changed. Entries whose
content matches the committed version keep their timestamp, and committed
entries that never carried one are left alone. With no arguments every
timestamped data file is processed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		results, err := datafile.Bump(settings.DataDir, args, time.Now().Unix())
		if err != nil {
			return err
		}

		total := 0
		for _, r := range results {
			if r.Missing {
				fmt.Printf("%s %s: not found\n", ui.RenderWarn("⚠"), r.File)
				continue
			}
			fmt.Printf("%s %s: %d bumped, %d unchanged\n",
				ui.RenderAccent("→"), r.File, r.Bumped, r.Skipped)
			total += r.Bumped
		}
		fmt.Printf("%s Bumped %d entries\n", ui.RenderPass("✓"), total)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(bumpCmd)
}
