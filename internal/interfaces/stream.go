package interfaces

import (
	"context"

	"bybit-ticker-bot/internal/types"
)

// StreamSink receives everything a stream connection produces.
type StreamSink interface {
	Upsert(snapshot types.TickerSnapshot)
	Acknowledge(batchID int)
	Detach(batchID int)
	Discard(reason string)
	Fault(batchID int, err error)
}

type StreamConnection interface {
	Run(ctx context.Context)
	Close()
}

type StreamFactory func(batch types.Batch, sink StreamSink) StreamConnection
