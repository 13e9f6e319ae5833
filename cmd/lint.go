package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/agentic-research/devsentinel/internal/lint"
	"github.com/spf13/cobra"
)

var (
	lintJSON bool
	lintFail bool
)

var errLintFindings = errors.New("lint findings reported")

func init() {
	lintCmd.Flags().BoolVar(&lintJSON, "json", false, "Print findings as JSON")
	lintCmd.Flags().BoolVar(&lintFail, "fail", false, "Exit non-zero when any finding is reported")
	rootCmd.AddCommand(lintCmd)
}

// FileFindings is the lint result for one file.
type FileFindings struct {
	Path     string         `json:"path"`
	Findings []lint.Finding `json:"findings"`
}

var lintCmd = &cobra.Command{
	Use:   "lint [file or glob]...",
	Short: "Run the built-in tree-sitter lint rules",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := expandPaths(args)
		if err != nil {
			return err
		}

		l, err := lint.New(newAnalyzer().Registry(), lint.DefaultRules(), log)
		if err != nil {
			return err
		}
		results, err := forEachFile(cmd.Context(), paths, 0,
			func(ctx context.Context, path string, src []byte) (FileFindings, error) {
				findings, err := l.Lint(ctx, src, path)
				if err != nil {
					return FileFindings{}, fmt.Errorf("lint %s: %w", path, err)
				}
				if findings == nil {
					findings = []lint.Finding{}
				}
				return FileFindings{Path: path, Findings: findings}, nil
			})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		total := 0
		for _, r := range results {
			total += len(r.Findings)
		}
		if lintJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(results); err != nil {
				return err
			}
		} else {
			for _, r := range results {
				for _, f := range r.Findings {
					fmt.Fprintf(out, "%s:%d:%d: %s: %s [%s]\n", r.Path, f.Line, f.Column, f.Severity, f.Message, f.Rule)
				}
			}
		}
		if lintFail && total > 0 {
			return errLintFindings
		}
		return nil
	},
}
