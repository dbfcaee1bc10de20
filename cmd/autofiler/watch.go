package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Veraticus/autofiler/internal/common"
	"github.com/Veraticus/autofiler/internal/watch"
)

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the intake directory and file arriving documents",
		Long: `Watch the intake directory for new files. Each arriving file is
guarded, classified, and either auto-filed into staging or moved to the
review area for later human review.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := initApp()
			if err != nil {
				return err
			}
			defer app.close()

			if err := os.MkdirAll(app.settings.IntakePath, 0o750); err != nil {
				return err
			}

			watcher := watch.New(app.settings.IntakePath, func(ctx context.Context, path string) error {
				outcome, err := app.pipeline.Process(ctx, path)
				if err != nil {
					return err
				}
				if outcome.Guarded != nil && outcome.Guarded.Reason == common.ReasonFileLocked {
					// The writer may still be flushing; the watcher retries.
					return &common.RetryableError{Err: outcome.Guarded, Retryable: true}
				}
				return nil
			})

			slog.Info("starting intake watch", "dir", app.settings.IntakePath)
			err = watcher.Run(cmd.Context())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
