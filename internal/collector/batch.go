package collector

import (
	"context"
	"fmt"
	"slices"
	"time"

	"bybit-ticker-bot/internal/interfaces"
	"bybit-ticker-bot/internal/logger"
	"bybit-ticker-bot/internal/throttle"
	"bybit-ticker-bot/internal/types"

	"go.opentelemetry.io/otel"
)

const DefaultBatchSize = 10

// Partition slices universe into contiguous batches of size, numbered from 1.
// The last batch may be shorter. size < 1 means DefaultBatchSize.
func Partition(universe []string, size int) []types.Batch {
	if size < 1 {
		size = DefaultBatchSize
	}
	batches := make([]types.Batch, 0, (len(universe)+size-1)/size)
	for start := 0; start < len(universe); start += size {
		end := min(start+size, len(universe))
		batches = append(batches, types.Batch{
			ID:      len(batches) + 1,
			Symbols: append([]string(nil), universe[start:end]...),
		})
	}
	return batches
}

// BatchManager owns the stream connections and counts acknowledged batches.
// It is the StreamSink every connection reports to.
type BatchManager struct {
	st       *State
	store    *TickerStore
	factory  interfaces.StreamFactory
	throttle *throttle.Throttle
	metrics  *collectorMetrics
}

var _ interfaces.StreamSink = (*BatchManager)(nil)

// NewBatchManager builds a manager that waits startInterval between
// connection starts.
func NewBatchManager(st *State, store *TickerStore, factory interfaces.StreamFactory, startInterval time.Duration) *BatchManager {
	return &BatchManager{
		st:       st,
		store:    store,
		factory:  factory,
		throttle: throttle.New(1, startInterval),
		metrics:  newMetrics(st, otel.GetMeterProvider()),
	}
}

// StartAll launches one connection per batch, one at a time through the
// admission throttle. Connections already started keep running if ctx is
// cancelled part way.
func (m *BatchManager) StartAll(ctx context.Context, batches []types.Batch) error {
	m.st.mu.Lock()
	m.st.total = len(batches)
	for _, b := range batches {
		m.st.batches[b.ID] = b
	}
	m.st.mu.Unlock()

	for i, b := range batches {
		if err := m.throttle.Wait(ctx); err != nil {
			return fmt.Errorf("started %d of %d batches: %w", i, len(batches), err)
		}

		conn := m.factory(b, m)
		m.st.mu.Lock()
		m.st.conns[b.ID] = &liveConn{
			record: types.ConnectionRecord{
				BatchID:   b.ID,
				Symbols:   b.Symbols,
				Status:    types.ConnectionLive,
				StartedAt: time.Now(),
			},
			conn: conn,
		}
		m.st.mu.Unlock()

		logger.Debug(ctx, "Starting stream connection", "batch_id", b.ID, "symbols", len(b.Symbols))
		go conn.Run(ctx)
	}
	return nil
}

// Upsert stores a snapshot reported by a streaming connection.
func (m *BatchManager) Upsert(snap types.TickerSnapshot) {
	m.store.Upsert(snap)
}

// Acknowledge marks batchID subscribed. Only the first call per batch counts.
func (m *BatchManager) Acknowledge(batchID int) {
	m.st.mu.Lock()
	if _, done := m.st.acked[batchID]; done {
		m.st.mu.Unlock()
		return
	}
	b, ok := m.st.batches[batchID]
	if !ok {
		m.st.mu.Unlock()
		return
	}
	m.st.acked[batchID] = struct{}{}
	if m.st.completed < m.st.total {
		m.st.completed++
	}
	for _, s := range b.Symbols {
		if _, seen := m.st.subscribed[s]; seen {
			continue
		}
		m.st.subscribed[s] = struct{}{}
		m.st.subscribedOrder = append(m.st.subscribedOrder, s)
	}
	progress := types.BatchProgress{Completed: m.st.completed, Total: m.st.total}
	m.st.mu.Unlock()

	logger.Debug(context.Background(), "Batch subscribed", "batch_id", batchID, "progress", progress.String())
}

// Detach drops the record of a closed connection. Records are never re-created.
func (m *BatchManager) Detach(batchID int) {
	m.st.mu.Lock()
	lc, ok := m.st.conns[batchID]
	if ok {
		lc.record.Status = types.ConnectionClosed
		delete(m.st.conns, batchID)
	}
	m.st.mu.Unlock()

	if ok {
		logger.Debug(context.Background(), "Stream connection detached",
			"batch_id", batchID,
			"uptime", time.Since(lc.record.StartedAt).Round(time.Millisecond).String())
	}
}

// Discard counts one dropped inbound frame or entry under reason.
func (m *BatchManager) Discard(reason string) {
	m.st.mu.Lock()
	m.st.discarded++
	m.st.mu.Unlock()
	m.metrics.discard(reason)
}

// Fault counts a connection lost to a transport error.
func (m *BatchManager) Fault(batchID int, err error) {
	m.st.mu.Lock()
	m.st.faults++
	m.st.mu.Unlock()
	m.metrics.fault(batchID)
}

// Progress returns acknowledged batches over started batches.
func (m *BatchManager) Progress() types.BatchProgress {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	return types.BatchProgress{Completed: m.st.completed, Total: m.st.total}
}

// Connections returns copies of the live connection records ordered by batch id.
func (m *BatchManager) Connections() []types.ConnectionRecord {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	out := make([]types.ConnectionRecord, 0, len(m.st.conns))
	for _, lc := range m.st.conns {
		out = append(out, lc.record)
	}
	slices.SortFunc(out, func(a, b types.ConnectionRecord) int { return a.BatchID - b.BatchID })
	return out
}

// Close asks every live connection to stop. Records are removed as each
// connection reports Detach.
func (m *BatchManager) Close() {
	m.st.mu.Lock()
	conns := make([]interfaces.StreamConnection, 0, len(m.st.conns))
	for _, lc := range m.st.conns {
		conns = append(conns, lc.conn)
	}
	m.st.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}
