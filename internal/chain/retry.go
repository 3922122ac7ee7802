package chain

import (
	"context"
	"time"

	"go.uber.org/zap"
)

func withRetry(ctx context.Context, maxRetries int, baseDelay time.Duration, fn func(context.Context) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}

	delay := baseDelay
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries {
			return err
		}

		if !sleep(ctx, delay) {
			return ctx.Err()
		}

		delay *= 2
	}
}

// Dial connects to the node, retrying up to maxRetries times with doubling
// delays starting at baseDelay.
func Dial(ctx context.Context, rpcURL string, maxRetries int, baseDelay time.Duration, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var client *Client
	attempt := 0
	err := withRetry(ctx, maxRetries, baseDelay, func(ctx context.Context) error {
		attempt++
		c, err := NewClient(ctx, rpcURL)
		if err != nil {
			logger.Warn("dial rpc failed", zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		client = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}
