package collector

import "bybit-ticker-bot/internal/types"

// TickerStore is the latest-value cache. A new snapshot replaces the old one
// regardless of its timestamp.
type TickerStore struct {
	st *State
}

// NewTickerStore returns a store backed by st's snapshot map.
func NewTickerStore(st *State) *TickerStore {
	return &TickerStore{st: st}
}

// Upsert replaces the snapshot held for snap.Symbol.
func (ts *TickerStore) Upsert(snap types.TickerSnapshot) {
	ts.st.mu.Lock()
	ts.st.snapshots[snap.Symbol] = snap
	ts.st.mu.Unlock()
}

// Get reports false when no data has arrived for symbol yet.
func (ts *TickerStore) Get(symbol string) (types.TickerSnapshot, bool) {
	ts.st.mu.Lock()
	defer ts.st.mu.Unlock()
	snap, ok := ts.st.snapshots[symbol]
	return snap, ok
}

// Len returns the number of symbols with data.
func (ts *TickerStore) Len() int {
	ts.st.mu.Lock()
	defer ts.st.mu.Unlock()
	return len(ts.st.snapshots)
}
