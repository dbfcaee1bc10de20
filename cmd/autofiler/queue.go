package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/autofiler/internal/cli"
	"github.com/Veraticus/autofiler/internal/model"
)

func queueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect the review queue",
	}

	cmd.AddCommand(queueListCmd())
	cmd.AddCommand(queueSummaryCmd())

	return cmd
}

func queueListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pending review entries, oldest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := initApp()
			if err != nil {
				return err
			}
			defer app.close()

			pending, err := app.queue.Scan(cmd.Context(), app.settings.ReviewPath)
			if err != nil {
				return err
			}
			if len(pending) == 0 {
				fmt.Println(cli.FormatSuccess("Review queue is empty."))
				return nil
			}
			for _, entry := range pending {
				line := fmt.Sprintf("%-40s phase %s  %s", entry.FileKey, entry.Phase, entry.Reason)
				fmt.Println("  " + line)
			}
			return nil
		},
	}
}

func queueSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show queue counts by status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := initApp()
			if err != nil {
				return err
			}
			defer app.close()

			counts, err := app.queue.Summary(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(cli.FormatTitle("Review queue"))
			fmt.Printf("  pending:   %d\n", counts[model.ReviewPending])
			fmt.Printf("  in review: %d\n", counts[model.ReviewInReview])
			fmt.Printf("  resolved:  %d\n", counts[model.ReviewResolved])
			return nil
		},
	}
}
