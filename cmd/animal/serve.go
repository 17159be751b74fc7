package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/YASH-YADAV-dynamo/solana-animal-x402/internal/platform/config"
	"github.com/YASH-YADAV-dynamo/solana-animal-x402/internal/platform/httpserver"
	"github.com/YASH-YADAV-dynamo/solana-animal-x402/internal/platform/logger"
	ratelimitmw "github.com/YASH-YADAV-dynamo/solana-animal-x402/internal/ratelimit/middleware"
	"github.com/YASH-YADAV-dynamo/solana-animal-x402/pkg/platform/privacy"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the paid animal matching server",
	Long:  "Serves /api/animals behind the x402 payment gate, the /animals results view, /health and /metrics. Configuration comes from the environment (and .env).",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

const sweepInterval = time.Minute

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.FromEnv()
	switch {
	case errors.Is(err, config.ErrMissingReceiver):
		printReceiverHelp(cmd)
		return err
	case errors.Is(err, config.ErrMissingReceiptKey):
		printReceiptKeyHelp(cmd)
		return err
	}
	if err != nil {
		return err
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	logStartupConfig(log, cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a, err := newApp(ctx, cfg, log, reg)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := httpserver.New(cfg.Server, a.router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting animal server", "addr", cfg.Server.Addr)
		return httpserver.Run(gctx, srv, nil, cfg.Server, log)
	})
	g.Go(func() error {
		return ratelimitmw.RunSweeper(gctx, a.buckets, sweepInterval, log, a.rateLimitMetrics)
	})
	return g.Wait()
}

// logStartupConfig logs the gate setup without secrets.
func logStartupConfig(log *slog.Logger, cfg config.Config) {
	if cfg.Gate.Disabled {
		log.Info("x402 gate configuration", "enabled", false)
		return
	}
	if cfg.Gate.ReceiverLengthUnusual() {
		log.Warn("receiver address length looks unusual",
			"length", len(cfg.Gate.ReceiverAddress),
			"expected", "32-44 characters",
			"hint", "make sure this is a wallet address, not a token account",
		)
	}
	if cfg.Gate.CDPClientKey == "" {
		log.Warn("NEXT_PUBLIC_CDP_CLIENT_KEY is not set, payment widget may not work")
	}

	cdpKey := "missing"
	if cfg.Gate.CDPClientKey != "" {
		cdpKey = "set"
	}
	log.Info("x402 gate configuration",
		"enabled", true,
		"network", cfg.Gate.Network,
		"facilitator", cfg.Gate.FacilitatorURL,
		"receiver", privacy.ShortenAddress(cfg.Gate.ReceiverAddress),
		"price", cfg.Gate.Price,
		"route", cfg.Gate.Route,
		"cdp_key", cdpKey,
	)
}

func printReceiverHelp(cmd *cobra.Command) {
	w := cmd.ErrOrStderr()
	_, _ = fmt.Fprintln(w, "NEXT_PUBLIC_RECEIVER_ADDRESS or NEXT_PUBLIC_WALLET_ADDRESS must be set.")
	_, _ = fmt.Fprintln(w, "This must be a Solana wallet address (system account), not a token account.")
	_, _ = fmt.Fprintln(w, "Example: CmGgLQL36Y9ubtTsy2zmE46TAxwCBm66onZmPPhUWNqv")
	_, _ = fmt.Fprintln(w, "Set GATE_DISABLED=true to serve without payments in development.")
}

func printReceiptKeyHelp(cmd *cobra.Command) {
	w := cmd.ErrOrStderr()
	_, _ = fmt.Fprintln(w, "RECEIPT_SIGNING_KEY must be set when the payment gate is enabled.")
	_, _ = fmt.Fprintln(w, "It signs the single-use receipt cookies; use at least 16 random characters, e.g. `openssl rand -hex 32`.")
}
