package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/davrico/lorevault/internal/export"
	"github.com/davrico/lorevault/internal/store"
	"github.com/davrico/lorevault/internal/sync"
	"github.com/davrico/lorevault/internal/ui"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Mirror the database back into JSON files",
	Long: `Export reads the database and writes one JSON file per category,
reassembling nested structures from the child tables. Files land in the
output directory in canonical sort order; change-tracking columns are
not exported.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		target, _ := cmd.Flags().GetString("target")
		outDir, _ := cmd.Flags().GetString("out")

		db, err := store.Open(filepath.Join(settings.StoreDir, sync.DBFile))
		if err != nil {
			return err
		}
		defer db.Close()

		if err := export.New(db, outDir, slog.Default()).Run(cmd.Context(), target); err != nil {
			return err
		}
		fmt.Printf("%s Exported %s to %s\n", ui.RenderPass("✓"), target, outDir)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("target", "all", "category to export, or all")
	exportCmd.Flags().String("out", "export", "directory to write exported files into")
	rootCmd.AddCommand(exportCmd)
}
