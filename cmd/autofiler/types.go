package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/autofiler/internal/cli"
	"github.com/Veraticus/autofiler/internal/common"
	"github.com/Veraticus/autofiler/internal/gap"
	"github.com/Veraticus/autofiler/internal/textextract"
)

func typesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "types",
		Short: "Manage document type definitions",
	}

	cmd.AddCommand(typesListCmd())
	cmd.AddCommand(typesShowCmd())
	cmd.AddCommand(typesSuggestCmd())

	return cmd
}

func typesSuggestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <file>",
		Short: "Analyze a document and suggest a new type definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			text, err := textextract.NewService().Extract(args[0])
			if err != nil {
				return common.NewUserError(fmt.Sprintf("could not read %s", args[0]), err)
			}
			if strings.TrimSpace(text) == "" {
				fmt.Println(cli.FormatWarning("No text could be extracted; nothing to suggest."))
				return nil
			}

			analysis := gap.AnalyzeNewType(text)

			var sb strings.Builder
			sb.WriteString("keywords:  " + strings.Join(analysis.SuggestedKeywords, ", ") + "\n")
			sb.WriteString("patterns:  " + strings.Join(analysis.SuggestedPatterns, ", ") + "\n")
			sb.WriteString("fields:\n")
			for _, fc := range analysis.DetectedFields {
				sb.WriteString(fmt.Sprintf("  %-20s %-10s %q\n", fc.FieldName, fc.FieldType, fc.Value))
				sb.WriteString(fmt.Sprintf("    pattern: %s\n", fc.SuggestedPattern))
			}
			fmt.Println(cli.RenderBox("Suggested type definition", strings.TrimRight(sb.String(), "\n")))
			return nil
		},
	}
}

func typesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured document types",
		RunE: func(_ *cobra.Command, _ []string) error {
			app, err := initApp()
			if err != nil {
				return err
			}
			defer app.close()

			defs, err := app.store.TypeDefinitions()
			if err != nil {
				return err
			}

			names := make([]string, 0, len(defs.Types))
			for name := range defs.Types {
				names = append(names, name)
			}
			sort.Strings(names)

			fmt.Println(cli.FormatTitle("Document types"))
			for _, name := range names {
				def := defs.Types[name]
				fmt.Printf("  %s  %-30s %d fields\n", def.Code, name, len(def.ExtractionFields))
			}
			return nil
		},
	}
}

func typesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <type>",
		Short: "Show one type definition in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			app, err := initApp()
			if err != nil {
				return err
			}
			defer app.close()

			defs, err := app.store.TypeDefinitions()
			if err != nil {
				return err
			}
			def, ok := defs.Types[args[0]]
			if !ok {
				return fmt.Errorf("unknown type %q", args[0])
			}

			var sb strings.Builder
			sb.WriteString(fmt.Sprintf("code:      %s\n", def.Code))
			sb.WriteString(fmt.Sprintf("formats:   %s\n", strings.Join(def.ContainerFormats, ", ")))
			sb.WriteString(fmt.Sprintf("keywords:  %s (threshold %d)\n", strings.Join(def.ContentKeywords, ", "), def.KeywordThreshold))
			sb.WriteString(fmt.Sprintf("patterns:  %d\n", len(def.ContentPatterns)))
			sb.WriteString("fields:\n")
			for _, name := range def.FieldNames() {
				spec := def.ExtractionFields[name]
				required := ""
				if spec.Required {
					required = "  (required)"
				}
				sb.WriteString(fmt.Sprintf("  %-20s %s%s\n", name, spec.FieldType, required))
			}
			fmt.Println(cli.RenderBox(args[0], strings.TrimRight(sb.String(), "\n")))
			return nil
		},
	}
}
