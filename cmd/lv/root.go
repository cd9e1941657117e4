package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/davrico/lorevault/internal/config"
)

// settings is the resolved configuration the subcommands run with. It is
// populated by the root PersistentPreRunE before any RunE fires.
var settings config.Settings

var cfgViper *viper.Viper

var rootCmd = &cobra.Command{
	Use:   "lv",
	Short: "Game wiki data pipeline",
	Long: `lv keeps the wiki's JSON data files and its SQLite database in step.

The data directory holds one JSON file per content category (characters,
spells, codes, ...). lv sync rebuilds the database from those files and
commits it to the store repository; lv export mirrors the database back
into JSON; lv bump and lv normalize maintain the files themselves.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Load(cfgViper); err != nil {
			return err
		}
		settings = config.Resolve(cfgViper)
		setupLogging(settings.LogLevel, os.Stderr)
		return nil
	},
}

func init() {
	cfgViper = config.New()

	flags := rootCmd.PersistentFlags()
	flags.String("data-dir", "data", "directory holding the JSON data files")
	flags.String("store-dir", "store", "git-tracked directory holding the database")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")

	cfgViper.BindPFlag(config.KeyDataDir, flags.Lookup("data-dir"))
	cfgViper.BindPFlag(config.KeyStoreDir, flags.Lookup("store-dir"))
	cfgViper.BindPFlag(config.KeyLogLevel, flags.Lookup("log-level"))
}

// setupLogging installs the default slog logger: colored tint output on a
// terminal, plain text otherwise.
func setupLogging(level string, w *os.File) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}

	var handler slog.Handler
	if isatty.IsTerminal(w.Fd()) {
		handler = tint.NewHandler(w, &tint.Options{
			Level:      lvl,
			TimeFormat: time.Kitchen,
		})
	} else {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
}
