package main

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"swapwatch/internal/config"
	"swapwatch/internal/model"
	"swapwatch/internal/notify"
	"swapwatch/internal/storage"
)

var replayPriceFactor = decimal.NewFromInt(2)

func runReplay(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.ValidateReplay(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	store := storage.NewJsonlStorage(cfg.Out)
	record, skipped, err := store.ReadLatest()
	if skipped > 0 {
		logger.Warn("skipped unreadable record lines", zap.String("path", store.Path()), zap.Int("skipped", skipped))
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", store.Path(), err)
	}
	record = replayRecord(record)

	bot, err := notify.NewBot(cfg.BotToken)
	if err != nil {
		return err
	}
	publisher, err := notify.NewPublisher(bot, notify.PublisherConfig{ChannelID: cfg.Channel}, logger, nil)
	if err != nil {
		return err
	}

	formatter := notify.NewFormatter(notify.FormatterConfig{ExplorerURL: cfg.ExplorerURL, MediaURL: cfg.MediaURL})

	logger.Info("replay",
		zap.String("path", store.Path()),
		zap.String("tx_hash", record.TxHash),
		zap.String("pool", record.Pool),
		zap.String("price", record.Price.StringFixed(model.DisplayPlaces)),
	)
	return publisher.Publish(formatter.Format(record))
}

// replayRecord marks a re-sent record by doubling its price.
func replayRecord(record model.SwapRecord) model.SwapRecord {
	return record.WithPrice(record.Price.Mul(replayPriceFactor))
}
