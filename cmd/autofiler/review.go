package main

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/Veraticus/autofiler/internal/cli"
)

func reviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "review",
		Short: "Interactively review queued files",
		Long: `Walk the review queue one file at a time: confirm or correct the
classification, teach the classifier new keywords and patterns, repair
extraction, and stage the file.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := initApp()
			if err != nil {
				return err
			}
			defer app.close()

			console := cli.NewConsole(os.Stdin, os.Stdout, app.session, app.queue)
			err = console.Run(cmd.Context(), app.settings.ReviewPath)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
