package collectorobs

import (
	"context"

	"bybit-ticker-bot/internal/interfaces"
	"bybit-ticker-bot/internal/logger"
	"bybit-ticker-bot/internal/trace"
	"bybit-ticker-bot/internal/types"
)

// observableFacade wraps a QueryFacade with observability (logging & tracing)
type observableFacade struct {
	facade interfaces.QueryFacade
}

// Compile-time interface check
var _ interfaces.QueryFacade = (*observableFacade)(nil)

// Wrap wraps a query facade with observability middleware
func Wrap(facade interfaces.QueryFacade) interfaces.QueryFacade {
	return &observableFacade{facade: facade}
}

// Query looks up a ticker with observability
func (of *observableFacade) Query(ctx context.Context, req types.QueryRequest) types.QueryResult {
	ctx, span := trace.StartSpan(ctx, "collector.Query")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Ticker query",
		"text", req.Text,
		"origin", req.Origin,
		"requester_id", req.RequesterID,
	)

	res := of.facade.Query(ctx, req)
	if !res.Found {
		logger.InfoSkip(ctx, 1, "Ticker not found",
			"text", req.Text,
			"attempted_symbol", res.AttemptedSymbol,
			"subscribed", res.Subscribed,
			"origin", req.Origin,
		)
		return res
	}

	logger.DebugSkip(ctx, 1, "Ticker found", "symbol", res.Symbol, "last_price", res.LastPrice)
	return res
}

func (of *observableFacade) Stats() types.Stats {
	return of.facade.Stats()
}
