package cmd

import (
	"context"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/kasuboski/nfosync/config"
	"github.com/kasuboski/nfosync/pkg/logger"
	"github.com/kasuboski/nfosync/pkg/storage"
	"github.com/kasuboski/nfosync/pkg/storage/sqlite"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var historyLimit int64

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "show recent runs",
	Long:  `show recent runs, or the per-file outcomes of one run`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		log := logger.Get()
		ctx = logger.WithCtx(ctx, log)

		cfg, err := config.New(viper.GetViper())
		if err != nil {
			log.Fatalw("failed to read configurations", "error", err)
		}

		if cfg.Storage.FilePath == "" {
			log.Fatalw("run history is disabled, no storage file configured")
		}

		store, err := sqlite.New(cfg.Storage.FilePath)
		if err != nil {
			log.Fatalw("failed to create storage connection", "error", err)
		}
		if err := store.Init(ctx); err != nil {
			log.Fatalw("failed to init database", "error", err)
		}

		if len(args) > 0 {
			renderOutcomes(ctx, store, args[0])
			return
		}

		renderRuns(ctx, store)
	},
}

func renderRuns(ctx context.Context, store storage.RunStorage) {
	log := logger.FromCtx(ctx)

	runs, err := store.ListRuns(ctx, historyLimit)
	if err != nil {
		log.Fatalw("failed to list runs", "error", err)
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"run", "started", "duration", "scan path", "dry run", "processed", "updated", "skipped", "failed"})

	for _, run := range runs {
		duration := "-"
		if run.FinishedAt != nil {
			duration = run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String()
		}

		tw.AppendRow(table.Row{
			run.ID,
			humanize.Time(run.StartedAt),
			duration,
			run.ScanPath,
			run.DryRun,
			run.Processed,
			run.Updated,
			run.Skipped,
			run.Failed,
		})
	}

	tw.Render()
}

func renderOutcomes(ctx context.Context, store storage.RunStorage, runID string) {
	log := logger.FromCtx(ctx)

	outcomes, err := store.ListOutcomes(ctx, runID)
	if err != nil {
		log.Fatalw("failed to list outcomes", "run", runID, "error", err)
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"file", "title", "outcome", "detail"})

	for _, o := range outcomes {
		tw.AppendRow(table.Row{o.File, o.Title, o.Outcome, o.Detail})
	}

	tw.Render()
}

func init() {
	historyCmd.Flags().Int64VarP(&historyLimit, "limit", "n", 20, "how many runs to list")
	rootCmd.AddCommand(historyCmd)
}
