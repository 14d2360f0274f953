package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/amankumarsingh77/pixiescale/internal/config"
	"github.com/cenkalti/backoff/v5"
)

// Config holds retry configuration
type Config struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

func DefaultConfig() Config {
	return Config{
		MaxRetries:     3,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		Multiplier:     2.0,
	}
}

// FromPublishConfig converts the publish section of the service config.
func FromPublishConfig(c config.PublishConfig) Config {
	cfg := Config{
		MaxRetries:     c.MaxRetries,
		InitialBackoff: time.Duration(c.InitialBackoffMillis) * time.Millisecond,
		MaxBackoff:     time.Duration(c.MaxBackoffMillis) * time.Millisecond,
		Multiplier:     c.BackoffMultiplier,
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 1
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return cfg
}

// Do executes fn with exponential backoff retries. fn runs at most
// MaxRetries+1 times.
func Do(ctx context.Context, config Config, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("retry cancelled: %w", err)
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, fn()
	},
		backoff.WithBackOff(config.exponential()),
		backoff.WithMaxTries(uint(config.MaxRetries)+1),
	)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("retry cancelled: %w", ctx.Err())
	}
	return fmt.Errorf("max retries (%d) exceeded: %w", config.MaxRetries, err)
}

func (c Config) exponential() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.InitialBackoff
	b.RandomizationFactor = 0
	b.Multiplier = c.Multiplier
	if b.Multiplier < 1 {
		b.Multiplier = 1
	}
	// Zero keeps the library's cap.
	if c.MaxBackoff > 0 {
		b.MaxInterval = c.MaxBackoff
	}
	b.Reset()
	return b
}
