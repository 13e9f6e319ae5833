package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/agentic-research/devsentinel/internal/analysis"
	"github.com/spf13/cobra"
)

var structureJSON bool

func init() {
	structureCmd.Flags().BoolVar(&structureJSON, "json", false, "Print summaries as JSON")
	rootCmd.AddCommand(structureCmd)
}

// FileSummary is one file's structure summary.
type FileSummary struct {
	Path string `json:"path"`
	analysis.Summary
	Text string `json:"summary"`
}

var structureCmd = &cobra.Command{
	Use:   "structure [file or glob]...",
	Short: "List the functions, methods and classes in source files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := expandPaths(args)
		if err != nil {
			return err
		}

		a := newAnalyzer()
		summaries, err := forEachFile(cmd.Context(), paths, 0,
			func(ctx context.Context, path string, src []byte) (FileSummary, error) {
				s := a.ExtractStructure(ctx, src, path)
				return FileSummary{Path: path, Summary: s, Text: s.String()}, nil
			})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if structureJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(summaries)
		}
		for _, s := range summaries {
			fmt.Fprintf(out, "%s: %s\n", s.Path, s.Text)
			for _, d := range s.Diagnostics {
				fmt.Fprintf(out, "  %s\n", d)
			}
		}
		return nil
	},
}
