package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/TheusHen/qrng/internal/server"
	"github.com/TheusHen/qrng/qrng"
	"github.com/TheusHen/qrng/qrng/generate"
)

const shutdownTimeout = 10 * time.Second

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the key generation HTTP API",
	Long: `Serve POST /v1/keys, /v1/analyze, /v1/encrypt, /v1/decrypt and /v1/run,
plus /healthz and Prometheus metrics on /metrics.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default: QRNG_HTTP_ADDR)")
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := serveAddr
	if addr == "" {
		addr = cfg.HTTPAddr
	}

	src, closeSource, err := cfg.OpenSource(ctx)
	if err != nil {
		return err
	}
	defer closeSource()

	reg := newRegistry()
	gen := qrng.NewGenerator(src, cfg.Generate(logger, generate.NewMetrics(reg)))
	h := server.New(gen, logger, cfg.KeyBits)
	srv := server.NewHTTPServer(addr, server.NewRouter(h, reg))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http api listening", "addr", addr, "source", cfg.Source)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down http api")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
