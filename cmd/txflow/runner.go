package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/solana-txflow/internal/blockchain/solbc"
	noderpc "github.com/rovshanmuradov/solana-txflow/internal/blockchain/solbc/rpc"
	"github.com/rovshanmuradov/solana-txflow/internal/config"
	"github.com/rovshanmuradov/solana-txflow/internal/license"
	"github.com/rovshanmuradov/solana-txflow/internal/logger"
	"github.com/rovshanmuradov/solana-txflow/internal/wallet"
)

const (
	logRingSize        = 200
	metricsReadTimeout = 5 * time.Second
	shutdownTimeout    = 5 * time.Second
)

// runner holds everything a command needs: configuration, logging, the
// metrics registry and the RPC client.
type runner struct {
	cfg      *config.Config
	logger   *zap.Logger
	ring     *logger.Ring
	registry *prometheus.Registry
	client   *solbc.Client
}

// newRunner loads the config named by --config and wires the RPC stack.
// With captureLogs the console stays free for the command's own output and
// log entries go to the ring.
func newRunner(c *cli.Context, captureLogs bool) (*runner, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}

	logCfg := logger.DefaultConfig()
	logCfg.LogFile = cfg.LogFile
	logCfg.Debug = cfg.DebugLogging || c.Bool("debug")
	logCfg.Plain = c.Bool("json")
	var ring *logger.Ring
	if captureLogs {
		ring = logger.NewRing(logRingSize)
		logCfg.Ring = ring
	}
	log, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	pool, err := noderpc.NewPool(cfg.RPCList, log, noderpc.WithMetrics(noderpc.NewMetrics(registry)))
	if err != nil {
		return nil, err
	}

	return &runner{
		cfg:      cfg,
		logger:   log,
		ring:     ring,
		registry: registry,
		client:   solbc.NewClient(pool, log),
	}, nil
}

// validateLicense checks the configured key when a Keygen account is set.
func (r *runner) validateLicense(ctx context.Context) error {
	if !r.cfg.LicenseRequired() {
		return nil
	}
	validator := license.NewKeygenValidator(r.cfg.KeygenAccount, r.cfg.KeygenToken, r.cfg.KeygenProduct, r.logger)
	if err := validator.ValidateLicense(ctx, r.cfg.License); err != nil {
		return fmt.Errorf("license validation failed: %w", err)
	}
	return nil
}

// loadWallet returns the wallet called name, or the configured default.
func (r *runner) loadWallet(name string) (*wallet.Wallet, error) {
	wallets, err := wallet.LoadWallets(r.cfg.WalletsFile)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = r.cfg.DefaultWallet
	}
	if name == "" && len(wallets) == 1 {
		for _, w := range wallets {
			return w, nil
		}
	}
	w, ok := wallets[name]
	if !ok {
		return nil, fmt.Errorf("wallet %q not found in %s", name, r.cfg.WalletsFile)
	}
	return w, nil
}

// run executes fn, serving /metrics next to it when metrics_addr is set.
// The server stops once fn returns.
func (r *runner) run(ctx context.Context, fn func(ctx context.Context) error) error {
	if r.cfg.MetricsAddr == "" {
		return fn(ctx)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry}))
	server := &http.Server{
		Addr:              r.cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: metricsReadTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	done := make(chan struct{})

	g.Go(func() error {
		r.logger.Info("Serving metrics", zap.String("addr", r.cfg.MetricsAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-done:
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		defer close(done)
		return fn(gctx)
	})

	return g.Wait()
}

func (r *runner) close() {
	_ = logger.Sync(r.logger)
}
