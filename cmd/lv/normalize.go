package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/davrico/lorevault/internal/datafile"
	"github.com/davrico/lorevault/internal/ui"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize [files...]",
	Short: "Rewrite data files in canonical form",
	Long: `Normalize sorts each sortable file by its category's canonical key
(hand-ordered files keep their order) and stamps last_updated on entries
that changed relative to HEAD, including entries that never had one.
With no arguments every JSON file in the data directory is processed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sortOnly, _ := cmd.Flags().GetBool("sort-only")
		timestampsOnly, _ := cmd.Flags().GetBool("timestamps-only")
		if sortOnly && timestampsOnly {
			return fmt.Errorf("--sort-only and --timestamps-only are mutually exclusive")
		}

		results, err := datafile.Normalize(settings.DataDir, datafile.NormalizeOptions{
			Sort:       !timestampsOnly,
			Timestamps: !sortOnly,
			Files:      args,
			Now:        time.Now().Unix(),
		})
		if err != nil {
			return err
		}

		for _, r := range results {
			if r.Missing {
				fmt.Printf("%s %s: not found\n", ui.RenderWarn("⚠"), r.File)
				continue
			}
			status := ""
			if r.Sorted {
				status = " sorted,"
			}
			fmt.Printf("%s %s:%s %d stamped, %d unchanged\n",
				ui.RenderAccent("→"), r.File, status, r.Bumped, r.Skipped)
		}
		fmt.Printf("%s Normalized %d files\n", ui.RenderPass("✓"), len(results))
		return nil
	},
}

func init() {
	normalizeCmd.Flags().Bool("sort-only", false, "sort entries without touching timestamps")
	normalizeCmd.Flags().Bool("timestamps-only", false, "stamp timestamps without sorting")
	rootCmd.AddCommand(normalizeCmd)
}
