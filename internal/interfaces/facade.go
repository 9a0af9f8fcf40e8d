package interfaces

import (
	"context"

	"bybit-ticker-bot/internal/types"
)

type QueryFacade interface {
	Query(ctx context.Context, req types.QueryRequest) types.QueryResult
	Stats() types.Stats
}

type RequestLog interface {
	Recent() []types.RequestRecord
}
