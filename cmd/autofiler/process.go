package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/Veraticus/autofiler/internal/cli"
	"github.com/Veraticus/autofiler/internal/model"
	"github.com/Veraticus/autofiler/internal/pipeline"
)

func processCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "process <path>",
		Short: "Run one file or a directory through the filing pipeline",
		Long: `Process a single file, or every regular file in a directory, through
the automatic pipeline: guard, classify, route, extract, stage.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := initApp()
			if err != nil {
				return err
			}
			defer app.close()

			target := args[0]
			info, err := os.Stat(target)
			if err != nil {
				return fmt.Errorf("failed to stat %s: %w", target, err)
			}

			if !info.IsDir() {
				outcome, err := app.pipeline.Process(cmd.Context(), target)
				if err != nil {
					return err
				}
				reportOutcome(outcome)
				return nil
			}

			return processDirectory(cmd, app, target)
		},
	}
}

func processDirectory(cmd *cobra.Command, app *app, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	if len(files) == 0 {
		fmt.Println(cli.FormatInfo("No files to process."))
		return nil
	}

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetDescription("Filing documents"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	var staged, reviewed, rejected, failed int
	for _, file := range files {
		outcome, err := app.pipeline.Process(cmd.Context(), file)
		switch {
		case err != nil:
			failed++
		case outcome.Guarded != nil:
			rejected++
		case outcome.Staged != nil:
			staged++
		default:
			reviewed++
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("%d staged", staged)))
	if reviewed > 0 {
		fmt.Println(cli.FormatWarning(fmt.Sprintf("%d sent to review", reviewed)))
	}
	if rejected > 0 {
		fmt.Println(cli.FormatInfo(fmt.Sprintf("%d rejected by guards", rejected)))
	}
	if failed > 0 {
		fmt.Println(cli.FormatError(fmt.Sprintf("%d failed", failed)))
	}
	return nil
}

func reportOutcome(outcome *pipeline.Outcome) {
	switch {
	case outcome.Guarded != nil:
		fmt.Println(cli.FormatWarning(fmt.Sprintf("Rejected: %s", outcome.Guarded.Reason)))
	case outcome.Staged != nil:
		fmt.Println(cli.FormatSuccess("Staged as " + outcome.Staged.StagingFilename))
		fmt.Println(cli.SubtleStyle.Render("vault copy: " + outcome.Staged.VaultPath))
	case outcome.Decision != nil && outcome.Decision.Decision == model.DecisionReview:
		fmt.Println(cli.FormatWarning("Sent to review: " + outcome.Decision.Reason))
	}
}
