package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/agentic-research/devsentinel/internal/review"
	"github.com/agentic-research/devsentinel/internal/server"
	"github.com/agentic-research/devsentinel/internal/styleguide"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var (
	serveHost string
	servePort int
)

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Listen host (overrides config)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Listen port (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveHost != "" {
			cfg.Server.Host = serveHost
		}
		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if cfg.Log.Level != "debug" && cfg.Log.Level != "trace" {
			gin.SetMode(gin.ReleaseMode)
		}
		cfg.WarnMissingKey(log)

		store, err := styleguide.Open(cfg.Style.DBPath, log)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		reviewer := review.NewReviewer(review.NewOpenAICompleter(cfg.LLM), log)
		h := server.NewHandlers(cfg, newAnalyzer(), store, reviewer, log)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return h.Serve(ctx)
	},
}
