package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"swapwatch/internal/chain"
	"swapwatch/internal/config"
	"swapwatch/internal/dex"
	"swapwatch/internal/metrics"
	"swapwatch/internal/model"
	"swapwatch/internal/notify"
	"swapwatch/internal/pipeline"
	"swapwatch/internal/storage"
)

var mainnetChainID = big.NewInt(1)

func main() {
	root := &cobra.Command{
		Use:          "swapwatch",
		Short:        "Uniswap V3 swap monitor with Telegram alerts",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Watch pool swaps and publish notifications",
		RunE:  runWatch,
	}

	runCmd.Flags().String("rpc", "", "websocket RPC URL")
	runCmd.Flags().String("bot-token", "", "Telegram bot token")
	runCmd.Flags().String("channel", "", "Telegram channel id or @username")
	runCmd.Flags().StringSlice("pools", nil, "pool addresses (comma-separated), defaults to all known pools")
	runCmd.Flags().String("out", "./details.json", "swap record log path")
	runCmd.Flags().String("explorer-url", notify.DefaultExplorerURL, "block explorer base URL")
	runCmd.Flags().String("media-url", notify.DefaultMediaURL, "video sent before each notification")
	runCmd.Flags().Duration("retry-backoff", time.Second, "initial resubscribe backoff")
	runCmd.Flags().Duration("max-backoff", time.Minute, "maximum resubscribe backoff")
	runCmd.Flags().Int("dial-retries", 5, "RPC dial retry attempts")
	runCmd.Flags().String("metrics-addr", "", "Prometheus listen address, empty disables")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-send the first stored swap record with a doubled price",
		RunE:  runReplay,
	}

	replayCmd.Flags().String("bot-token", "", "Telegram bot token")
	replayCmd.Flags().String("channel", "", "Telegram channel id or @username")
	replayCmd.Flags().String("out", "./details.json", "swap record log path")
	replayCmd.Flags().String("explorer-url", notify.DefaultExplorerURL, "block explorer base URL")
	replayCmd.Flags().String("media-url", notify.DefaultMediaURL, "video sent before the notification")
	replayCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(replayCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	pools, err := chain.ParseAddresses(cfg.Pools)
	if err != nil {
		return err
	}
	if len(pools) == 0 {
		return fmt.Errorf("pool list is required")
	}
	for _, pool := range pools {
		profile, ok := model.LookupPool(pool.Hex())
		if !ok {
			logger.Warn("pool has no message template, only media will be sent", zap.String("pool", pool.Hex()))
			continue
		}
		logger.Info("watching pool", zap.String("pool", pool.Hex()), zap.String("pair", profile.Title))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg)

	bot, err := notify.NewBot(cfg.BotToken)
	if err != nil {
		return err
	}
	publisher, err := notify.NewPublisher(bot, notify.PublisherConfig{ChannelID: cfg.Channel}, logger, m)
	if err != nil {
		return err
	}

	chainClient, err := chain.Dial(ctx, cfg.RPCURL, cfg.DialRetries, cfg.RetryBackoff, logger)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	chainID, err := chainClient.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	if chainID.Cmp(mainnetChainID) != 0 && cfg.ExplorerURL == notify.DefaultExplorerURL {
		logger.Warn("node is not on mainnet, explorer links will not resolve", zap.String("chain_id", chainID.String()), zap.String("explorer_url", cfg.ExplorerURL))
	}

	decoder, err := dex.NewSwapDecoder()
	if err != nil {
		return err
	}

	pipe, err := pipeline.New(pipeline.Deps{
		Decoder:   decoder,
		Lookup:    chainClient,
		Store:     storage.NewJsonlStorage(cfg.Out),
		Formatter: notify.NewFormatter(notify.FormatterConfig{ExplorerURL: cfg.ExplorerURL, MediaURL: cfg.MediaURL}),
		Notifier:  publisher,
		Logger:    logger,
		Metrics:   m,
	})
	if err != nil {
		return err
	}

	supervisor := chain.NewSupervisor(chain.SupervisorConfig{
		Pools:        pools,
		Topic0:       decoder.Topic0(),
		RetryBackoff: cfg.RetryBackoff,
		MaxBackoff:   cfg.MaxBackoff,
	}, chainClient, pipe.HandleLog, logger, m)

	logger.Info("swapwatch start",
		zap.String("chain_id", chainID.String()),
		zap.Int("pools", len(pools)),
		zap.String("channel", cfg.Channel),
		zap.String("out", cfg.Out),
		zap.Duration("retry_backoff", cfg.RetryBackoff),
		zap.Duration("max_backoff", cfg.MaxBackoff),
		zap.String("metrics_addr", cfg.MetricsAddr),
	)

	g, gctx := errgroup.WithContext(ctx)
	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			return metrics.Serve(gctx, cfg.MetricsAddr, reg, logger)
		})
	}
	g.Go(func() error {
		return supervisor.Run(gctx)
	})

	err = g.Wait()
	pipe.Wait()
	logger.Info("swapwatch stopped")
	return err
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
