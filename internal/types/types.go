package types

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Batch is a contiguous slice of the symbol universe served by one stream connection.
type Batch struct {
	ID      int      `json:"id"`
	Symbols []string `json:"symbols"`
}

// TickerSnapshot is the latest normalized ticker for one symbol.
// Numeric fields are invalid when the venue did not send them.
type TickerSnapshot struct {
	Symbol          string
	LastPrice       decimal.NullDecimal
	HighPrice24h    decimal.NullDecimal
	LowPrice24h     decimal.NullDecimal
	Volume24h       decimal.NullDecimal
	PriceChange24h  decimal.NullDecimal // fraction, 0.05 == 5%
	TimestampMillis int64
}

type BatchProgress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

func (p BatchProgress) String() string {
	return fmt.Sprintf("%d/%d", p.Completed, p.Total)
}

func (p BatchProgress) Done() bool {
	return p.Total > 0 && p.Completed >= p.Total
}

type ConnectionStatus string

const (
	ConnectionLive   ConnectionStatus = "LIVE"
	ConnectionClosed ConnectionStatus = "CLOSED"
)

// ConnectionRecord tracks one running stream connection.
type ConnectionRecord struct {
	BatchID   int
	Symbols   []string
	Status    ConnectionStatus
	StartedAt time.Time
}

// RequestRecord is the most recent request seen from one requester.
type RequestRecord struct {
	RequesterID string    `json:"requester_id"`
	Name        string    `json:"name"`
	Text        string    `json:"text"`
	Origin      string    `json:"origin"`
	Timestamp   time.Time `json:"timestamp"`
}

const (
	OriginTelegram = "TG"
	OriginConsole  = "CONSOLE"
)

type QueryRequest struct {
	Text          string
	RequesterID   string
	RequesterName string
	Origin        string
}

// QueryResult is either a formatted ticker (Found) or a diagnostic explaining why
// nothing was returned.
type QueryResult struct {
	Found bool `json:"found"`

	Symbol                string `json:"symbol,omitempty"`
	LastPrice             string `json:"last_price,omitempty"`
	PriceChange24h        string `json:"price_change_24h,omitempty"`
	PriceChangePercent24h string `json:"price_change_percent_24h,omitempty"`
	HighPrice24h          string `json:"high_price_24h,omitempty"`
	LowPrice24h           string `json:"low_price_24h,omitempty"`
	Volume24h             string `json:"volume_24h,omitempty"`
	Timestamp             string `json:"timestamp,omitempty"`

	Error           string         `json:"error,omitempty"`
	AttemptedSymbol string         `json:"attempted_symbol,omitempty"`
	Subscribed      bool           `json:"subscribed"`
	SubscribedCount int            `json:"subscribed_count"`
	Progress        *BatchProgress `json:"progress,omitempty"`
	Hint            string         `json:"hint,omitempty"`
}

type Stats struct {
	UniverseSize      int           `json:"universe_size"`
	SubscribedSize    int           `json:"subscribed_size"`
	StoreSize         int           `json:"store_size"`
	ActiveConnections int           `json:"active_connections"`
	BatchProgress     BatchProgress `json:"batch_progress"`
	RequesterCount    int           `json:"requester_count"`
	DiscardedFrames   int64         `json:"discarded_frames"`
	ConnectionFaults  int64         `json:"connection_faults"`
}
