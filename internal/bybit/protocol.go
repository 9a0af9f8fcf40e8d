package bybit

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"bybit-ticker-bot/internal/types"

	"github.com/shopspring/decimal"
)

const (
	tickerTopicPrefix = "tickers."

	opSubscribe = "subscribe"
	opPing      = "ping"
	opPong      = "pong"
)

// Topic returns the public ticker topic for a symbol
func Topic(symbol string) string {
	return tickerTopicPrefix + symbol
}

type requestFrame struct {
	Op   string   `json:"op"`
	Args []string `json:"args,omitempty"`
}

func subscribeFrame(symbols []string) requestFrame {
	args := make([]string, 0, len(symbols))
	for _, s := range symbols {
		args = append(args, Topic(s))
	}
	return requestFrame{Op: opSubscribe, Args: args}
}

func pingFrame() requestFrame {
	return requestFrame{Op: opPing}
}

type frameKind int

const (
	frameUnknown frameKind = iota
	frameMalformed
	frameAck
	frameRejected
	frameHeartbeat
	frameData
)

func (k frameKind) String() string {
	switch k {
	case frameMalformed:
		return "malformed_json"
	case frameAck:
		return "ack"
	case frameRejected:
		return "subscribe_rejected"
	case frameHeartbeat:
		return "heartbeat"
	case frameData:
		return "data"
	default:
		return "unrecognized"
	}
}

type inboundFrame struct {
	Success *bool           `json:"success"`
	Op      string          `json:"op"`
	RetMsg  string          `json:"ret_msg"`
	Topic   string          `json:"topic"`
	Ts      int64           `json:"ts"`
	Data    json.RawMessage `json:"data"`
}

// classify decodes one inbound text frame. Pong replies from the spot feed
// carry success:true, so the op field is checked before treating a frame as
// a subscribe acknowledgment.
func classify(raw []byte) (inboundFrame, frameKind) {
	var f inboundFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		return f, frameMalformed
	}

	switch {
	case f.Op == opPing || f.Op == opPong:
		return f, frameHeartbeat
	case f.Success != nil && *f.Success && (f.Op == "" || f.Op == opSubscribe):
		return f, frameAck
	case f.Success != nil && !*f.Success:
		return f, frameRejected
	case strings.HasPrefix(f.Topic, tickerTopicPrefix) && len(f.Data) > 0:
		return f, frameData
	default:
		return f, frameUnknown
	}
}

var errBadPayload = errors.New("ticker payload is neither an object nor an array")

type tickerData struct {
	Symbol       string     `json:"symbol"`
	LastPrice    optDecimal `json:"lastPrice"`
	Price24hPcnt optDecimal `json:"price24hPcnt"`
	HighPrice24h optDecimal `json:"highPrice24h"`
	LowPrice24h  optDecimal `json:"lowPrice24h"`
	Volume24h    optDecimal `json:"volume24h"`
	Ts           *int64     `json:"ts"`
}

// tickers normalizes the data member of a ticker frame. Entries without a
// symbol are skipped and counted in dropped.
func tickers(f inboundFrame) (snaps []types.TickerSnapshot, dropped int, err error) {
	payload := bytes.TrimSpace(f.Data)
	if len(payload) == 0 {
		return nil, 0, errBadPayload
	}

	var items []tickerData
	switch payload[0] {
	case '{':
		var one tickerData
		if err := json.Unmarshal(payload, &one); err != nil {
			return nil, 0, err
		}
		items = []tickerData{one}
	case '[':
		if err := json.Unmarshal(payload, &items); err != nil {
			return nil, 0, err
		}
	default:
		return nil, 0, errBadPayload
	}

	snaps = make([]types.TickerSnapshot, 0, len(items))
	for _, it := range items {
		if it.Symbol == "" {
			dropped++
			continue
		}
		ts := f.Ts
		if it.Ts != nil {
			ts = *it.Ts
		}
		snaps = append(snaps, types.TickerSnapshot{
			Symbol:          it.Symbol,
			LastPrice:       it.LastPrice.NullDecimal,
			HighPrice24h:    it.HighPrice24h.NullDecimal,
			LowPrice24h:     it.LowPrice24h.NullDecimal,
			Volume24h:       it.Volume24h.NullDecimal,
			PriceChange24h:  it.Price24hPcnt.NullDecimal,
			TimestampMillis: ts,
		})
	}
	return snaps, dropped, nil
}

// optDecimal accepts quoted or bare numbers; empty, null or unparsable values
// decode as absent instead of failing the whole frame.
type optDecimal struct {
	decimal.NullDecimal
}

func (o *optDecimal) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		o.Valid = false
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		o.Valid = false
		return nil
	}
	o.Decimal, o.Valid = d, true
	return nil
}
