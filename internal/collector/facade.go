package collector

import (
	"context"
	"fmt"
	"time"

	"bybit-ticker-bot/internal/interfaces"
	"bybit-ticker-bot/internal/types"

	"github.com/shopspring/decimal"
)

const (
	notAvailable    = "N/A"
	timestampLayout = "2006-01-02 15:04:05"
)

var hundred = decimal.NewFromInt(100)

// Facade answers point lookups and statistics from memory only.
type Facade struct {
	st       *State
	store    *TickerStore
	resolver *SymbolResolver
	audit    *RequestAudit
}

var (
	_ interfaces.QueryFacade = (*Facade)(nil)
	_ interfaces.RequestLog  = (*Facade)(nil)
)

// NewFacade wires the read side of the collector.
func NewFacade(st *State, store *TickerStore, resolver *SymbolResolver, audit *RequestAudit) *Facade {
	return &Facade{st: st, store: store, resolver: resolver, audit: audit}
}

// Query records the request, resolves the symbol and formats the latest
// snapshot. A miss returns a diagnostic result, never an error.
func (f *Facade) Query(ctx context.Context, req types.QueryRequest) types.QueryResult {
	f.audit.Record(types.RequestRecord{
		RequesterID: req.RequesterID,
		Name:        req.RequesterName,
		Text:        req.Text,
		Origin:      req.Origin,
	})

	symbol := f.resolver.Resolve(req.Text)
	if snap, ok := f.store.Get(symbol); ok {
		return formatSnapshot(snap)
	}
	return f.notFound(req.Text, symbol)
}

func (f *Facade) notFound(input, symbol string) types.QueryResult {
	subscribed := f.st.IsSubscribed(symbol)

	f.st.mu.Lock()
	count := len(f.st.subscribed)
	progress := types.BatchProgress{Completed: f.st.completed, Total: f.st.total}
	f.st.mu.Unlock()

	res := types.QueryResult{
		Error:           fmt.Sprintf("no data for %q", input),
		AttemptedSymbol: symbol,
		Subscribed:      subscribed,
		SubscribedCount: count,
		Progress:        &progress,
	}
	switch {
	case subscribed:
		res.Hint = fmt.Sprintf("%s is subscribed; waiting for its first update", symbol)
	case !progress.Done():
		res.Hint = fmt.Sprintf("subscription in progress: %s batches, %d symbols subscribed", progress, count)
	default:
		res.Hint = fmt.Sprintf("unknown symbol; %d symbols subscribed", count)
	}
	return res
}

func formatSnapshot(s types.TickerSnapshot) types.QueryResult {
	res := types.QueryResult{
		Found:                 true,
		Symbol:                s.Symbol,
		LastPrice:             formatDecimal(s.LastPrice),
		PriceChange24h:        formatDecimal(s.PriceChange24h),
		PriceChangePercent24h: notAvailable,
		HighPrice24h:          formatDecimal(s.HighPrice24h),
		LowPrice24h:           formatDecimal(s.LowPrice24h),
		Volume24h:             formatDecimal(s.Volume24h),
		Timestamp:             notAvailable,
	}
	if s.PriceChange24h.Valid {
		res.PriceChangePercent24h = s.PriceChange24h.Decimal.Mul(hundred).StringFixed(2) + "%"
	}
	if s.TimestampMillis > 0 {
		res.Timestamp = time.UnixMilli(s.TimestampMillis).Local().Format(timestampLayout)
	}
	return res
}

// formatDecimal keeps the venue's precision, so "0.10" stays "0.10".
func formatDecimal(d decimal.NullDecimal) string {
	if !d.Valid {
		return notAvailable
	}
	if exp := d.Decimal.Exponent(); exp < 0 {
		return d.Decimal.StringFixed(-exp)
	}
	return d.Decimal.String()
}

// Stats returns a consistent snapshot of the collector counters.
func (f *Facade) Stats() types.Stats {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	return f.st.statsLocked()
}

// Recent returns the latest request per requester, newest first.
func (f *Facade) Recent() []types.RequestRecord {
	return f.audit.Recent()
}
