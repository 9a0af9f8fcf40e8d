package collector

import (
	"sync"

	"bybit-ticker-bot/internal/interfaces"
	"bybit-ticker-bot/internal/types"
)

// State is the process-scoped collector state. It is built once at start-up
// and handed to every component constructor; mu guards every field.
type State struct {
	mu sync.Mutex

	universe []string

	// subscribed is the union of acknowledged batch symbols. subscribedOrder
	// keeps acknowledgment order for the resolver's scan.
	subscribed      map[string]struct{}
	subscribedOrder []string

	snapshots map[string]types.TickerSnapshot

	batches   map[int]types.Batch
	conns     map[int]*liveConn
	acked     map[int]struct{}
	completed int
	total     int

	requests map[string]types.RequestRecord

	discarded int64
	faults    int64
}

type liveConn struct {
	record types.ConnectionRecord
	conn   interfaces.StreamConnection
}

// NewState returns empty state with every map allocated.
func NewState() *State {
	return &State{
		subscribed: make(map[string]struct{}),
		snapshots:  make(map[string]types.TickerSnapshot),
		batches:    make(map[int]types.Batch),
		conns:      make(map[int]*liveConn),
		acked:      make(map[int]struct{}),
		requests:   make(map[string]types.RequestRecord),
	}
}

// SetUniverse stores the discovered symbols. Only the first non-empty call
// takes effect.
func (s *State) SetUniverse(symbols []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.universe) > 0 {
		return
	}
	s.universe = append([]string(nil), symbols...)
}

// Universe returns a copy of the discovered symbols in venue order.
func (s *State) Universe() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.universe...)
}

// Subscribed returns the acknowledged symbols in acknowledgment order.
func (s *State) Subscribed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.subscribedOrder...)
}

// IsSubscribed reports whether symbol belongs to an acknowledged batch.
func (s *State) IsSubscribed(symbol string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.subscribed[symbol]
	return ok
}

// statsLocked must be called with mu held.
func (s *State) statsLocked() types.Stats {
	return types.Stats{
		UniverseSize:      len(s.universe),
		SubscribedSize:    len(s.subscribed),
		StoreSize:         len(s.snapshots),
		ActiveConnections: len(s.conns),
		BatchProgress:     types.BatchProgress{Completed: s.completed, Total: s.total},
		RequesterCount:    len(s.requests),
		DiscardedFrames:   s.discarded,
		ConnectionFaults:  s.faults,
	}
}
