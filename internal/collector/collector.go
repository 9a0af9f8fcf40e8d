package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bybit-ticker-bot/internal/interfaces"
	"bybit-ticker-bot/internal/logger"
)

var (
	ErrEmptyUniverse = errors.New("venue listed no symbols")
	// ErrStalled is returned by WaitReady when every connection has closed
	// before all batches were acknowledged. Nothing reconnects them.
	ErrStalled = errors.New("all stream connections closed before subscription completed")
)

type Options struct {
	BatchSize        int
	ProgressInterval time.Duration
}

// Collector runs the collection pipeline: discover, partition, subscribe.
type Collector struct {
	st      *State
	dir     interfaces.SymbolDirectory
	manager *BatchManager
	opts    Options
}

func New(st *State, dir interfaces.SymbolDirectory, manager *BatchManager, opts Options) *Collector {
	if opts.BatchSize < 1 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = 2 * time.Second
	}
	return &Collector{st: st, dir: dir, manager: manager, opts: opts}
}

// Run discovers the universe once and starts every batch. Discovery failure
// is returned as is and nothing is started.
func (c *Collector) Run(ctx context.Context) error {
	op := logger.StartOperation(ctx, "collector.Run", "batch_size", c.opts.BatchSize)
	ctx = op.GetContext()

	symbols, err := c.dir.FetchSymbols(ctx)
	if err == nil && len(symbols) == 0 {
		err = ErrEmptyUniverse
	}
	if err != nil {
		op.EndWithError(err)
		return err
	}

	c.st.SetUniverse(symbols)
	batches := Partition(symbols, c.opts.BatchSize)
	logger.Info(ctx, "Subscribing to symbol universe",
		"symbols", len(symbols),
		"batches", len(batches))

	if err := c.manager.StartAll(ctx, batches); err != nil {
		op.EndWithError(err)
		return fmt.Errorf("start stream connections: %w", err)
	}

	op.End("symbols", len(symbols), "batches", len(batches))
	return nil
}

// WaitReady logs progress every ProgressInterval until all batches are
// acknowledged, then logs a summary.
func (c *Collector) WaitReady(ctx context.Context) error {
	ticker := time.NewTicker(c.opts.ProgressInterval)
	defer ticker.Stop()

	for {
		c.st.mu.Lock()
		stats := c.st.statsLocked()
		c.st.mu.Unlock()

		progress := stats.BatchProgress
		if progress.Done() {
			logger.Info(ctx, "All batches subscribed",
				"universe", stats.UniverseSize,
				"subscribed", stats.SubscribedSize,
				"connections", stats.ActiveConnections,
				"cached", stats.StoreSize)
			return nil
		}
		if progress.Total > 0 && stats.ActiveConnections == 0 {
			return fmt.Errorf("%w: %s batches", ErrStalled, progress)
		}

		logger.Info(ctx, "Subscription progress",
			"batches", progress.String(),
			"subscribed", stats.SubscribedSize)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
