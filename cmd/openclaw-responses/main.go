package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/young1lin/openclaw-responses/internal/config"
	"github.com/young1lin/openclaw-responses/internal/openclaw"
	"github.com/young1lin/openclaw-responses/pkg/logger"
)

var (
	Version   = "dev"
	BuildDate = "unknown"
)

var (
	cfgFile string
	showVer bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "openclaw-responses",
	Short: "Normalized language model adapter for the OpenClaw Responses API",
	Long: `Translates normalized prompts, tools and call options into OpenClaw
Responses API requests, and translates responses and SSE event streams
back into normalized content and stream parts.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if showVer {
			return nil
		}

		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		cfg = loaded

		return logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVer {
			fmt.Printf("openclaw-responses %s (built %s)\n", Version, BuildDate)
			return nil
		}
		return cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default ./config.yaml if present)")
	rootCmd.Flags().BoolVarP(&showVer, "version", "v", false, "show version")

	rootCmd.AddCommand(serveCmd, chatCmd, usageCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newProvider builds the vendor client from the loaded config
func newProvider() (*openclaw.Provider, error) {
	return openclaw.New(openclaw.Config{
		BaseURL: cfg.Provider.BaseURL,
		APIKey:  cfg.Provider.APIKey,
		Name:    cfg.Provider.Name,
		Headers: cfg.Provider.Headers,
		Timeout: cfg.Provider.TimeoutDuration(),
		Logger:  logger.Named("openclaw"),
	})
}
