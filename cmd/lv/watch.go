package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/davrico/lorevault/internal/sync"
	"github.com/davrico/lorevault/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the data directory and sync on changes",
	Long: `Watch runs an initial full sync, then monitors the data directory and
reruns the sync whenever JSON files change. Rapid saves are batched by the
debounce interval. Runs until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, _ := cmd.Flags().GetDuration("interval")
		logFile, _ := cmd.Flags().GetString("log-file")
		push, _ := cmd.Flags().GetBool("push")

		logger := slog.Default()
		if logFile != "" {
			logger = slog.New(slog.NewTextHandler(&lumberjack.Logger{
				Filename:   logFile,
				MaxSize:    10, // megabytes
				MaxBackups: 3,
			}, nil))
		}

		syncFn := func(ctx context.Context, changed []string) error {
			_, err := sync.Run(ctx, sync.Options{
				DataDir:  settings.DataDir,
				StoreDir: settings.StoreDir,
				Target:   "all",
				Push:     push,
				Out:      cmd.OutOrStdout(),
				Logger:   logger,
			})
			return err
		}

		w, err := watch.New(settings.DataDir, syncFn, &watch.Config{
			DebounceInterval: interval,
			Logger:           logger,
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return w.Start(ctx)
	},
}

func init() {
	watchCmd.Flags().Duration("interval", 500*time.Millisecond, "debounce interval before syncing a change batch")
	watchCmd.Flags().String("log-file", "", "log to a rotating file instead of stderr")
	watchCmd.Flags().Bool("push", false, "push the store repository after each sync")
	rootCmd.AddCommand(watchCmd)
}
