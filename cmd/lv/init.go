package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/davrico/lorevault/internal/config"
	"github.com/davrico/lorevault/internal/store"
	"github.com/davrico/lorevault/internal/ui"
	"github.com/davrico/lorevault/internal/vcs"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Set up the data directory, store repository, and config file",
	Long: `Init creates the data directory, initializes the store directory as a
git repository with a store.toml, and writes a starter lorevault.yaml in
the working directory. Existing pieces are left untouched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		remote, _ := cmd.Flags().GetString("remote")

		if err := os.MkdirAll(settings.DataDir, 0o755); err != nil {
			return fmt.Errorf("create data directory: %w", err)
		}
		fmt.Printf("%s Data directory: %s\n", ui.RenderPass("✓"), settings.DataDir)

		if err := os.MkdirAll(settings.StoreDir, 0o755); err != nil {
			return fmt.Errorf("create store directory: %w", err)
		}
		repo, err := vcs.OpenOrInit(settings.StoreDir)
		if err != nil {
			return fmt.Errorf("init store repository: %w", err)
		}

		cfg := store.DefaultConfig()
		if _, err := os.Stat(filepath.Join(settings.StoreDir, store.ConfigFile)); os.IsNotExist(err) {
			if err := store.WriteConfig(settings.StoreDir, cfg); err != nil {
				return err
			}
		}
		if err := store.EnsureGitignore(settings.StoreDir); err != nil {
			return err
		}
		if remote != "" && !repo.HasRemote(cfg.Remote) {
			if err := repo.SetRemote(cfg.Remote, remote); err != nil {
				return err
			}
		}
		fmt.Printf("%s Store repository: %s\n", ui.RenderPass("✓"), settings.StoreDir)

		if err := config.WriteStarter(config.FileName+".yaml", settings.DataDir, settings.StoreDir); err != nil {
			fmt.Printf("%s %v\n", ui.RenderWarn("⚠"), err)
		} else {
			fmt.Printf("%s Config: %s.yaml\n", ui.RenderPass("✓"), config.FileName)
		}
		return nil
	},
}

func init() {
	initCmd.Flags().String("remote", "", "remote URL for the store repository")
	rootCmd.AddCommand(initCmd)
}
