package cmd

import (
	"fmt"

	"github.com/agentic-research/devsentinel/internal/review"
	"github.com/spf13/cobra"
)

// checkLLMCmd sends one trivial prompt to verify the key and endpoint.
var checkLLMCmd = &cobra.Command{
	Use:   "check-llm",
	Short: "Verify the LLM endpoint and API key with a one-line prompt",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "API key present: %t\n", cfg.LLM.APIKey != "")

		c := review.NewOpenAICompleter(cfg.LLM)
		reply, err := c.Complete(cmd.Context(), review.Prompt{User: "Explain JSON in 1 sentence."})
		if err != nil {
			return &redactedError{err: err}
		}
		fmt.Fprintf(out, "Response received:\n%s\n", reply)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkLLMCmd)
}

// redactedError hides API keys that client errors may echo back.
type redactedError struct{ err error }

func (e *redactedError) Error() string { return review.RedactSecrets(e.err.Error()) }
func (e *redactedError) Unwrap() error { return e.err }
