package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/agentic-research/devsentinel/internal/analysis"
	"github.com/spf13/cobra"
)

var (
	complexityJSON bool
	complexityOnly bool
	complexityFail bool
	complexityJobs int
)

var errComplexFunction = fmt.Errorf("functions above complexity threshold %d", analysis.ComplexityThreshold)

func init() {
	complexityCmd.Flags().BoolVar(&complexityJSON, "json", false, "Print reports as JSON")
	complexityCmd.Flags().BoolVar(&complexityOnly, "only-complex", false, "List only functions above the threshold")
	complexityCmd.Flags().BoolVar(&complexityFail, "fail-on-complex", false, "Exit non-zero when any function is above the threshold")
	complexityCmd.Flags().IntVarP(&complexityJobs, "jobs", "j", 0, "Files analyzed in parallel (default: number of CPUs)")
	rootCmd.AddCommand(complexityCmd)
}

// FileReport is one file's complexity report.
type FileReport struct {
	Path string `json:"path"`
	analysis.Report
}

var complexityCmd = &cobra.Command{
	Use:   "complexity [file or glob]...",
	Short: "Report cyclomatic complexity per function",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := expandPaths(args)
		if err != nil {
			return err
		}

		a := newAnalyzer()
		reports, err := forEachFile(cmd.Context(), paths, complexityJobs,
			func(ctx context.Context, path string, src []byte) (FileReport, error) {
				return FileReport{Path: path, Report: a.ComputeComplexity(ctx, src, path)}, nil
			})
		if err != nil {
			return err
		}

		complex := 0
		for i := range reports {
			if complexityOnly {
				reports[i].Functions = reports[i].Complex()
				if reports[i].Functions == nil {
					reports[i].Functions = []analysis.FunctionRecord{}
				}
			}
			complex += len(reports[i].Complex())
		}

		out := cmd.OutOrStdout()
		if complexityJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(reports); err != nil {
				return err
			}
		} else if err := writeComplexityTable(out, reports); err != nil {
			return err
		}

		if complexityFail && complex > 0 {
			return errComplexFunction
		}
		return nil
	},
}

func writeComplexityTable(w io.Writer, reports []FileReport) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, r := range reports {
		if r.Error != "" {
			fmt.Fprintf(tw, "%s\t-\tparse error: %s\t\n", r.Path, r.Error)
			continue
		}
		for _, f := range r.Functions {
			flag := ""
			if f.IsComplex {
				flag = "COMPLEX"
			}
			fmt.Fprintf(tw, "%s:%d\t%s\t%d\t%s\n", r.Path, f.LineNumber, f.Name, f.Complexity, flag)
		}
		if r.Truncated {
			fmt.Fprintf(tw, "%s\t-\ttruncated: traversal budget exhausted\t\n", r.Path)
		}
	}
	return tw.Flush()
}
