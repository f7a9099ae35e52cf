package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/TheusHen/qrng/internal/config"
	"github.com/TheusHen/qrng/qrng/identity"
	"github.com/TheusHen/qrng/qrng/source/remote"
)

var (
	sourceServeAddr        string
	sourceServeMaxChannels int
	sourceServeDrawTimeout time.Duration
)

var sourceServeCmd = &cobra.Command{
	Use:   "source-serve",
	Short: "Expose the configured trial source over QUIC",
	Long: `Serve raw batches from the local trial source to remote generators.
Batches are signed with the source identity key (QRNG_SOURCE_KEY, created on
first use). Clients pin the printed source ID with QRNG_REMOTE_ID.`,
	RunE: runSourceServe,
}

func init() {
	rootCmd.AddCommand(sourceServeCmd)

	sourceServeCmd.Flags().StringVar(&sourceServeAddr, "addr", "", "Listen address (default: QRNG_SOURCE_ADDR)")
	sourceServeCmd.Flags().IntVar(&sourceServeMaxChannels, "max-channels", remote.DefaultMaxChannels, "Largest channel count accepted per draw")
	sourceServeCmd.Flags().DurationVar(&sourceServeDrawTimeout, "draw-timeout", 30*time.Second, "Per-draw timeout")
}

func runSourceServe(cmd *cobra.Command, args []string) error {
	if cfg.Source == config.SourceRemote {
		return fmt.Errorf("%w: source-serve needs a local source, not QRNG_SOURCE=remote", config.ErrInvalid)
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := sourceServeAddr
	if addr == "" {
		addr = cfg.SourceAddr
	}
	keyFile := cfg.SourceKeyFile
	if keyFile == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return err
		}
		keyFile = filepath.Join(dir, "qrng", "source.key")
	}
	if err := os.MkdirAll(filepath.Dir(keyFile), 0o700); err != nil {
		return err
	}
	kp, err := identity.LoadOrGenerate(keyFile)
	if err != nil {
		return err
	}

	src, closeSource, err := cfg.OpenSource(ctx)
	if err != nil {
		return err
	}
	defer closeSource()

	srv := remote.NewServer(src, kp, remote.ServerConfig{
		MaxChannels: sourceServeMaxChannels,
		DrawTimeout: sourceServeDrawTimeout,
		Logger:      logger,
	})
	fmt.Fprintf(cmd.OutOrStdout(), "source id: %s\n", srv.SourceID())
	return srv.ListenAndServe(ctx, addr)
}
