package collector

import (
	"context"
	"sync"
	"testing"
	"time"

	"bybit-ticker-bot/internal/interfaces"
	"bybit-ticker-bot/internal/types"

	"github.com/shopspring/decimal"
)

// fakeConn stays open until Close or ctx cancellation, then detaches.
type fakeConn struct {
	batch types.Batch
	sink  interfaces.StreamSink
	stop  chan struct{}
	once  sync.Once
}

func (c *fakeConn) Run(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-c.stop:
	}
	c.sink.Detach(c.batch.ID)
}

func (c *fakeConn) Close() {
	c.once.Do(func() { close(c.stop) })
}

type fakeFactory struct {
	mu    sync.Mutex
	conns []*fakeConn
	times []time.Time
}

func (f *fakeFactory) build(batch types.Batch, sink interfaces.StreamSink) interfaces.StreamConnection {
	c := &fakeConn{batch: batch, sink: sink, stop: make(chan struct{})}
	f.mu.Lock()
	f.conns = append(f.conns, c)
	f.times = append(f.times, time.Now())
	f.mu.Unlock()
	return c
}

type fixture struct {
	st       *State
	store    *TickerStore
	manager  *BatchManager
	resolver *SymbolResolver
	audit    *RequestAudit
	facade   *Facade
	factory  *fakeFactory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := NewState()
	store := NewTickerStore(st)
	factory := &fakeFactory{}
	manager := NewBatchManager(st, store, factory.build, 0)
	resolver := NewSymbolResolver(st, "USDT")
	audit := NewRequestAudit(st, nil)
	t.Cleanup(manager.Close)
	return &fixture{
		st:       st,
		store:    store,
		manager:  manager,
		resolver: resolver,
		audit:    audit,
		facade:   NewFacade(st, store, resolver, audit),
		factory:  factory,
	}
}

// subscribe starts batches over universe and acknowledges all of them.
func (fx *fixture) subscribe(t *testing.T, universe []string, size int) []types.Batch {
	t.Helper()
	fx.st.SetUniverse(universe)
	batches := Partition(universe, size)
	if err := fx.manager.StartAll(context.Background(), batches); err != nil {
		t.Fatalf("StartAll() error = %v", err)
	}
	for _, b := range batches {
		fx.manager.Acknowledge(b.ID)
	}
	return batches
}

func dec(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
