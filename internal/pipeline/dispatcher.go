package pipeline

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"go.uber.org/zap"

	"swapwatch/internal/metrics"
)

// Pipeline stages, used as the error metric label.
const (
	StageDecode  = "decode"
	StageLookup  = "lookup"
	StagePersist = "persist"
	StageNotify  = "notify"
)

// StageError is a failure attributed to one pipeline stage of one transaction.
type StageError struct {
	Stage  string
	TxHash string
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.TxHash, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Dispatcher runs fire-and-forget tasks and keeps track of them so
// failures are logged and shutdown can drain in-flight work.
type Dispatcher struct {
	wg      sync.WaitGroup
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewDispatcher(logger *zap.Logger, m *metrics.Metrics) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{logger: logger, metrics: m}
}

// Go runs fn in a new goroutine. A returned error or a panic is reported
// under stage unless the error is a *StageError naming its own stage.
func (d *Dispatcher) Go(stage, txHash string, fn func() error) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.report(stage, txHash, run(fn))
	}()
}

// Wait blocks until every task started with Go has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func run(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return fn()
}

func (d *Dispatcher) report(stage, txHash string, err error) {
	if err == nil {
		return
	}

	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		stageErr = &StageError{Stage: stage, TxHash: txHash, Err: err}
	}

	d.metrics.IncError(stageErr.Stage)
	d.logger.Error("pipeline task failed",
		zap.String("stage", stageErr.Stage),
		zap.String("tx_hash", stageErr.TxHash),
		zap.Error(stageErr.Err),
	)
}
