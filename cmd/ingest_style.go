package cmd

import (
	"fmt"
	"os"

	"github.com/agentic-research/devsentinel/internal/styleguide"
	"github.com/spf13/cobra"
)

var ingestStyleCmd = &cobra.Command{
	Use:   "ingest-style [STYLE_GUIDE.md]",
	Short: "Replace the stored style guide with the given file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read style guide: %w", err)
		}

		store, err := styleguide.Open(cfg.Style.DBPath, log)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		n, err := store.Ingest(cmd.Context(), string(content))
		if err != nil {
			return err
		}
		if n == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "%s is empty; style guide cleared\n", args[0])
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d chunks from %s into %s\n", n, args[0], cfg.Style.DBPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestStyleCmd)
}
