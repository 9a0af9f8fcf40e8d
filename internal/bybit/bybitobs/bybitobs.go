package bybitobs

import (
	"context"

	"bybit-ticker-bot/internal/interfaces"
	"bybit-ticker-bot/internal/logger"
	"bybit-ticker-bot/internal/trace"
	"bybit-ticker-bot/internal/types"

	"go.opentelemetry.io/otel/attribute"
)

// observableDirectory wraps a SymbolDirectory with observability (logging & tracing)
type observableDirectory struct {
	dir interfaces.SymbolDirectory
}

// Compile-time interface check
var _ interfaces.SymbolDirectory = (*observableDirectory)(nil)

// Wrap wraps a symbol directory with observability middleware
func Wrap(dir interfaces.SymbolDirectory) interfaces.SymbolDirectory {
	return &observableDirectory{dir: dir}
}

// FetchSymbols lists the venue universe with observability
func (od *observableDirectory) FetchSymbols(ctx context.Context) ([]string, error) {
	ctx, span := trace.StartSpan(ctx, "bybit.FetchSymbols")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching symbol universe")

	symbols, err := od.dir.FetchSymbols(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch symbol universe", err)
		return nil, err
	}

	logger.InfoSkip(ctx, 1, "Symbol universe fetched", "count", len(symbols))
	return symbols, nil
}

// WrapFactory gives every connection built by factory its own span, so state
// transitions are recorded as span events.
func WrapFactory(factory interfaces.StreamFactory) interfaces.StreamFactory {
	return func(batch types.Batch, sink interfaces.StreamSink) interfaces.StreamConnection {
		return &observableConnection{
			conn:  factory(batch, sink),
			batch: batch,
		}
	}
}

type observableConnection struct {
	conn  interfaces.StreamConnection
	batch types.Batch
}

var _ interfaces.StreamConnection = (*observableConnection)(nil)

func (oc *observableConnection) Run(ctx context.Context) {
	ctx, span := trace.StartSpan(ctx, "bybit.StreamConnection")
	defer span.End()
	if trace.Enabled() {
		span.SetAttributes(
			attribute.Int("batch_id", oc.batch.ID),
			attribute.Int("symbols", len(oc.batch.Symbols)),
		)
	}

	logger.DebugSkip(ctx, 1, "Stream connection starting", "batch_id", oc.batch.ID, "symbols", len(oc.batch.Symbols))
	oc.conn.Run(ctx)
	logger.DebugSkip(ctx, 1, "Stream connection finished", "batch_id", oc.batch.ID)
}

func (oc *observableConnection) Close() {
	oc.conn.Close()
}
