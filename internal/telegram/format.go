package telegram

import (
	"fmt"
	"strings"

	"bybit-ticker-bot/internal/types"
)

const helpText = `How to use this bot:

Ticker data:
  • send just BTC or ETH
  • or use /ticker BTC
  • USDT is appended automatically when needed

Statistics:
  • /stats shows how many tickers are tracked

Data arrives over a live websocket feed and is served from memory.`

func startText(name string) string {
	return fmt.Sprintf(`Hi, %s!

I track Bybit spot pairs in real time.

Commands:
/ticker <symbol> - latest data (e.g. /ticker BTC or /ticker ETHUSDT)
/stats - collector statistics
/help - help

Or just send a ticker such as BTC, ETH or ADA.`, name)
}

func statsText(s types.Stats) string {
	var b strings.Builder
	b.WriteString("Collector statistics:\n\n")
	fmt.Fprintf(&b, "• Tickers listed: %d\n", s.UniverseSize)
	fmt.Fprintf(&b, "• Subscribed: %d\n", s.SubscribedSize)
	fmt.Fprintf(&b, "• In memory: %d\n", s.StoreSize)
	fmt.Fprintf(&b, "• Active connections: %d\n", s.ActiveConnections)
	fmt.Fprintf(&b, "• Requesters: %d\n", s.RequesterCount)
	fmt.Fprintf(&b, "• Batches: %s\n", s.BatchProgress)
	return b.String()
}

func tickerText(r types.QueryResult) string {
	if !r.Found {
		return fmt.Sprintf("%s\n\nHint: %s", r.Error, r.Hint)
	}
	return fmt.Sprintf(`%s

Price: %s
24h change: %s
24h high: %s
24h low: %s
24h volume: %s
Updated: %s`,
		r.Symbol,
		r.LastPrice,
		r.PriceChangePercent24h,
		r.HighPrice24h,
		r.LowPrice24h,
		r.Volume24h,
		r.Timestamp,
	)
}
