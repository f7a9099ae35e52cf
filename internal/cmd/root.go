package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/TheusHen/qrng/internal/config"
)

var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "qrng",
	Short: "Debiased key material from measurement streams",
	Long: `qrng draws raw outcomes from a trial source, removes bias with a
Von Neumann extractor and turns the result into AES keys. It can also
analyze bit sequences and serve keys or raw batches over the network.

Settings are read from the environment and an optional .env file
(QRNG_SOURCE, QRNG_CHANNELS, QRNG_RETRY_BUDGET, ...).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return err
		}
		cfg = c
		logger = c.Logger(os.Stderr)
		slog.SetDefault(logger)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.HiddenDefaultCmd = true
}
