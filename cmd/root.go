package cmd

import (
	"fmt"
	"os"

	"github.com/agentic-research/devsentinel/internal/analysis"
	"github.com/agentic-research/devsentinel/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string

	cfg *config.Config
	log *logrus.Logger
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default ./devsentinel.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
}

var rootCmd = &cobra.Command{
	Use:           "devsentinel",
	Short:         "DevSentinel: structure, complexity and LLM review for source files",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
			if err := cfg.Validate(); err != nil {
				return err
			}
		}
		log = cfg.NewLogger()
		log.SetOutput(cmd.ErrOrStderr())
		return nil
	},
}

func newAnalyzer() *analysis.Analyzer {
	return analysis.New(analysis.WithLogger(log), analysis.WithBudget(cfg.Analysis.Budget))
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
