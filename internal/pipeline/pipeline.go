package pipeline

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"swapwatch/internal/dex"
	"swapwatch/internal/metrics"
	"swapwatch/internal/model"
	"swapwatch/internal/notify"
	"swapwatch/internal/storage"
)

// TxLookup resolves the sender and receiver of the transaction that emitted a log.
type TxLookup interface {
	TransactionParties(ctx context.Context, txHash, blockHash common.Hash, txIndex uint) (model.Parties, error)
}

// Notifier delivers a formatted notification.
type Notifier interface {
	Publish(n notify.Notification) error
}

// Pipeline turns raw Swap logs into persisted records and notifications.
type Pipeline struct {
	decoder   *dex.SwapDecoder
	lookup    TxLookup
	store     storage.Storage
	formatter *notify.Formatter
	notifier  Notifier

	dispatcher *Dispatcher
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// Deps are the collaborators of a Pipeline.
type Deps struct {
	Decoder   *dex.SwapDecoder
	Lookup    TxLookup
	Store     storage.Storage
	Formatter *notify.Formatter
	Notifier  Notifier
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
}

func New(deps Deps) (*Pipeline, error) {
	if deps.Decoder == nil {
		return nil, fmt.Errorf("decoder is nil")
	}
	if deps.Lookup == nil {
		return nil, fmt.Errorf("transaction lookup is nil")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("storage is nil")
	}
	if deps.Formatter == nil {
		return nil, fmt.Errorf("formatter is nil")
	}
	if deps.Notifier == nil {
		return nil, fmt.Errorf("notifier is nil")
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Pipeline{
		decoder:    deps.Decoder,
		lookup:     deps.Lookup,
		store:      deps.Store,
		formatter:  deps.Formatter,
		notifier:   deps.Notifier,
		dispatcher: NewDispatcher(logger, deps.Metrics),
		logger:     logger,
		metrics:    deps.Metrics,
	}, nil
}

// HandleLog processes log in the background and returns immediately.
func (p *Pipeline) HandleLog(ctx context.Context, log types.Log) {
	p.dispatcher.Go(StageDecode, log.TxHash.Hex(), func() error {
		return p.Process(ctx, log)
	})
}

// Wait blocks until every in-flight event and its persist and notify tasks are done.
func (p *Pipeline) Wait() {
	p.dispatcher.Wait()
}

// Process decodes log, resolves its transaction parties and builds the
// record. Persistence and notification are then started as independent
// tasks. A decode or lookup failure aborts the event before either starts.
func (p *Pipeline) Process(ctx context.Context, log types.Log) error {
	start := time.Now()
	txHash := log.TxHash.Hex()

	event, err := p.decoder.Decode(log)
	if err != nil {
		return &StageError{Stage: StageDecode, TxHash: txHash, Err: err}
	}

	amounts, err := dex.DeriveAmounts(event)
	if err != nil {
		return &StageError{Stage: StageDecode, TxHash: txHash, Err: err}
	}

	parties, err := p.lookup.TransactionParties(ctx, event.TxHash, event.BlockHash, event.TxIndex)
	if err != nil {
		return &StageError{Stage: StageLookup, TxHash: txHash, Err: err}
	}

	record := BuildRecord(event, amounts, parties)
	p.metrics.ObservePipeline(start)
	p.logger.Info("swap",
		zap.String("pool", record.Pool),
		zap.String("tx_hash", record.TxHash),
		zap.String("t0", record.T0.StringFixed(model.DisplayPlaces)),
		zap.String("t1", record.T1.StringFixed(model.DisplayPlaces)),
		zap.String("price", record.Price.StringFixed(model.DisplayPlaces)),
		zap.Stringer("dir0", record.Dir0),
	)

	p.dispatcher.Go(StagePersist, txHash, func() error {
		if err := p.store.Append(record); err != nil {
			return err
		}
		p.metrics.IncAppended()
		return nil
	})
	p.dispatcher.Go(StageNotify, txHash, func() error {
		return p.notifier.Publish(p.formatter.Format(record))
	})

	return nil
}

// BuildRecord joins a decoded event, its derived amounts and the transaction
// parties into a record.
func BuildRecord(event dex.RawSwapEvent, amounts dex.SwapAmounts, parties model.Parties) model.SwapRecord {
	return model.SwapRecord{
		Pool:         event.Pool.Hex(),
		Sender:       event.Sender.Hex(),
		Recipient:    event.Recipient.Hex(),
		T0:           amounts.T0.Magnitude,
		T1:           amounts.T1.Magnitude,
		Price:        amounts.Price,
		SqrtPriceX96: bigString(event.SqrtPriceX96),
		Liquidity:    bigString(event.Liquidity),
		Tick:         event.Tick,
		TxHash:       event.TxHash.Hex(),
		From:         parties.From,
		To:           parties.To,
		Dir0:         amounts.T0.Direction,
		Dir1:         amounts.T1.Direction,
	}
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
