package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/davrico/lorevault/internal/sync"
	"github.com/davrico/lorevault/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Rebuild the database from the JSON data files",
	Long: `Sync replaces the database contents with what the data files say.

Each category's tables are cleared and refilled in canonical order inside
one transaction, timestamps are preserved for unchanged entries via the
hash store, and the resulting database is committed to the store
repository. With --target, only that category (and what it depends on for
link rebuilding) is synced.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		target, _ := cmd.Flags().GetString("target")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		push, _ := cmd.Flags().GetBool("push")
		force, _ := cmd.Flags().GetBool("force")

		res, err := sync.Run(cmd.Context(), sync.Options{
			DataDir:  settings.DataDir,
			StoreDir: settings.StoreDir,
			Target:   target,
			DryRun:   dryRun,
			Push:     push,
			Force:    force,
			Out:      cmd.OutOrStdout(),
		})
		if err != nil {
			return err
		}

		for _, w := range res.Warnings {
			fmt.Printf("%s %s\n", ui.RenderWarn("⚠"), w)
		}
		if res.DryRun {
			fmt.Printf("%s Dry run: %d statements previewed for %s\n",
				ui.RenderAccent("→"), res.Statements, ui.RenderAccent(target))
			return nil
		}

		fmt.Printf("%s Synced %d categories (%d statements)\n",
			ui.RenderPass("✓"), len(res.Categories), res.Statements)
		if res.Committed {
			fmt.Printf("%s Store committed\n", ui.RenderPass("✓"))
		}
		if res.Pushed {
			fmt.Printf("%s Store pushed\n", ui.RenderPass("✓"))
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().String("target", "all", "category to sync, or all")
	syncCmd.Flags().Bool("dry-run", false, "print statements without executing them")
	syncCmd.Flags().Bool("push", false, "push the store repository after committing")
	syncCmd.Flags().Bool("force", false, "force-push when the remote rejects the update")
	rootCmd.AddCommand(syncCmd)
}
