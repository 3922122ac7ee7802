package chain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"swapwatch/internal/metrics"
)

// State is the connection state of one pool subscription.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateSubscribed
	StateDegraded
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateSubscribed:
		return "subscribed"
	case StateDegraded:
		return "degraded"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var errSubscriptionClosed = errors.New("subscription closed")

// LogSubscriber opens a streaming log subscription. *Client implements it.
type LogSubscriber interface {
	SubscribeFilterLogs(ctx context.Context, query ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error)
}

// LogHandler receives every live log. It must not block for long; the
// pipeline hands each log off to its own goroutine.
type LogHandler func(ctx context.Context, log types.Log)

// SupervisorConfig holds subscription settings.
type SupervisorConfig struct {
	Pools        []common.Address
	Topic0       common.Hash
	RetryBackoff time.Duration
	MaxBackoff   time.Duration
}

// Supervisor keeps one log subscription per pool alive, re-subscribing with
// exponential backoff whenever the transport drops it.
type Supervisor struct {
	cfg     SupervisorConfig
	source  LogSubscriber
	handler LogHandler
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu     sync.RWMutex
	states map[common.Address]State
}

// NewSupervisor builds a Supervisor with its dependencies.
func NewSupervisor(cfg SupervisorConfig, source LogSubscriber, handler LogHandler, logger *zap.Logger, m *metrics.Metrics) *Supervisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Second
	}
	if cfg.MaxBackoff < cfg.RetryBackoff {
		cfg.MaxBackoff = cfg.RetryBackoff
	}

	states := make(map[common.Address]State, len(cfg.Pools))
	for _, pool := range cfg.Pools {
		states[pool] = StateDisconnected
	}

	return &Supervisor{
		cfg:     cfg,
		source:  source,
		handler: handler,
		logger:  logger,
		metrics: m,
		states:  states,
	}
}

// State returns the current subscription state of a pool.
func (s *Supervisor) State(pool common.Address) State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.states[pool]
}

// Run supervises all pool subscriptions until ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) error {
	if s.source == nil {
		return fmt.Errorf("log source is nil")
	}
	if s.handler == nil {
		return fmt.Errorf("log handler is nil")
	}
	if len(s.cfg.Pools) == 0 {
		return fmt.Errorf("at least one pool is required")
	}

	// watch returns only once ctx is done, so the group just waits for
	// every pool to reach disconnected.
	g, ctx := errgroup.WithContext(ctx)
	for _, pool := range s.cfg.Pools {
		pool := pool
		g.Go(func() error {
			s.watch(ctx, pool)
			return nil
		})
	}
	return g.Wait()
}

func (s *Supervisor) watch(ctx context.Context, pool common.Address) {
	defer s.setState(pool, StateDisconnected)

	query := ethereum.FilterQuery{
		Addresses: []common.Address{pool},
		Topics:    [][]common.Hash{{s.cfg.Topic0}},
	}

	delay := s.cfg.RetryBackoff
	for {
		s.setState(pool, StateConnecting)

		logs := make(chan types.Log, 64)
		sub, err := s.source.SubscribeFilterLogs(ctx, query, logs)
		if err == nil {
			s.setState(pool, StateSubscribed)
			delay = s.cfg.RetryBackoff
			err = s.consume(ctx, sub, logs)
			sub.Unsubscribe()
		}
		if ctx.Err() != nil {
			return
		}

		s.setState(pool, StateDegraded)
		s.metrics.IncError("subscribe")
		s.logger.Warn("subscription lost", zap.String("pool", pool.Hex()), zap.Duration("retry_in", delay), zap.Error(err))

		if !sleep(ctx, delay) {
			return
		}
		delay *= 2
		if delay > s.cfg.MaxBackoff {
			delay = s.cfg.MaxBackoff
		}
	}
}

func (s *Supervisor) consume(ctx context.Context, sub ethereum.Subscription, logs <-chan types.Log) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			if err == nil {
				err = errSubscriptionClosed
			}
			return err
		case log := <-logs:
			if log.Removed {
				s.logger.Debug("skip removed log", zap.String("tx_hash", log.TxHash.Hex()), zap.Uint("log_index", log.Index))
				continue
			}
			s.metrics.IncEvent(log.Address.Hex())
			s.handler(ctx, log)
		}
	}
}

func (s *Supervisor) setState(pool common.Address, state State) {
	s.mu.Lock()
	prev := s.states[pool]
	s.states[pool] = state
	s.mu.Unlock()

	s.metrics.SetSubscriptionState(pool.Hex(), int(state))
	if prev != state {
		s.logger.Info("subscription state", zap.String("pool", pool.Hex()), zap.Stringer("from", prev), zap.Stringer("to", state))
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
