package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bybit-ticker-bot/internal/api"
	"bybit-ticker-bot/internal/bybit"
	"bybit-ticker-bot/internal/types"

	"github.com/gorilla/websocket"
)

// fakeBybit serves the instruments listing and a ticker stream that acks
// every subscribe and publishes one BTCUSDT ticker.
func fakeBybit(t *testing.T, symbols []string) (restURL, streamURL string) {
	t.Helper()

	rest := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var b strings.Builder
		b.WriteString(`{"retCode":0,"retMsg":"OK","result":{"category":"spot","list":[`)
		for i, s := range symbols {
			if i > 0 {
				b.WriteString(",")
			}
			b.WriteString(`{"symbol":"` + s + `","status":"Trading"}`)
		}
		b.WriteString(`]}}`)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(b.String()))
	}))
	t.Cleanup(rest.Close)

	upgrader := websocket.Upgrader{}
	stream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var req struct {
			Op   string   `json:"op"`
			Args []string `json:"args"`
		}
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		conn.WriteMessage(websocket.TextMessage, []byte(`{"success":true,"ret_msg":"subscribe","op":"subscribe"}`))
		for _, topic := range req.Args {
			if topic == "tickers.BTCUSDT" {
				conn.WriteMessage(websocket.TextMessage, []byte(`{"topic":"tickers.BTCUSDT","ts":1700000000000,"type":"snapshot","data":{"symbol":"BTCUSDT","lastPrice":"50000","highPrice24h":"51000","lowPrice24h":"49000","volume24h":"100","price24hPcnt":"0.05"}}`))
			}
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(stream.Close)

	return rest.URL, "ws" + strings.TrimPrefix(stream.URL, "http")
}

func TestCollectorEndToEnd(t *testing.T) {
	restURL, streamURL := fakeBybit(t, []string{"BTCUSDT", "ETHUSDT", "ADAUSDT"})

	st := NewState()
	store := NewTickerStore(st)
	manager := NewBatchManager(st, store, bybit.NewFactory(bybit.ConnectionOptions{URL: streamURL}), 0)
	defer manager.Close()

	dir := bybit.NewDirectory(api.NewClient(api.WithBaseURL(restURL)), "spot")
	c := New(st, dir, manager, Options{BatchSize: 2, ProgressInterval: 10 * time.Millisecond})
	facade := NewFacade(st, store, NewSymbolResolver(st, "USDT"), NewRequestAudit(st, nil))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if err := c.WaitReady(ctx); err != nil {
		t.Fatalf("WaitReady() error = %v", err)
	}

	stats := facade.Stats()
	if stats.BatchProgress != (types.BatchProgress{Completed: 2, Total: 2}) {
		t.Errorf("BatchProgress = %v, want 2/2", stats.BatchProgress)
	}
	if stats.UniverseSize != 3 || stats.SubscribedSize != 3 {
		t.Errorf("stats = %+v", stats)
	}

	var res types.QueryResult
	waitFor(t, "BTCUSDT ticker", func() bool {
		res = facade.Query(ctx, types.QueryRequest{Text: "btc"})
		return res.Found
	})
	if res.LastPrice != "50000" || res.PriceChangePercent24h != "5.00%" {
		t.Errorf("Query(btc) = %+v", res)
	}

	miss := facade.Query(ctx, types.QueryRequest{Text: "ada"})
	if miss.Found || !miss.Subscribed || miss.AttemptedSymbol != "ADAUSDT" {
		t.Errorf("Query(ada) = %+v", miss)
	}

	manager.Close()
	waitFor(t, "connections closed", func() bool { return facade.Stats().ActiveConnections == 0 })
	if got := facade.Stats().ConnectionFaults; got != 0 {
		t.Errorf("ConnectionFaults = %d after local close", got)
	}
	// last known values stay readable
	if res := facade.Query(ctx, types.QueryRequest{Text: "BTCUSDT"}); !res.Found {
		t.Error("snapshot lost after close")
	}
}

type failingDirectory struct{ err error }

func (d failingDirectory) FetchSymbols(context.Context) ([]string, error) {
	return nil, d.err
}

func TestCollectorDiscoveryFailure(t *testing.T) {
	st := NewState()
	factory := &fakeFactory{}
	manager := NewBatchManager(st, NewTickerStore(st), factory.build, 0)

	cause := &bybit.DiscoveryError{Status: http.StatusBadGateway, Err: errors.New("bad gateway")}
	c := New(st, failingDirectory{err: cause}, manager, Options{})

	err := c.Run(context.Background())
	var de *bybit.DiscoveryError
	if !errors.As(err, &de) || de.Status != http.StatusBadGateway {
		t.Fatalf("Run() error = %v, want DiscoveryError", err)
	}
	if len(factory.conns) != 0 || manager.Progress().Total != 0 {
		t.Error("nothing should start after a discovery failure")
	}
}

func TestCollectorEmptyUniverse(t *testing.T) {
	st := NewState()
	manager := NewBatchManager(st, NewTickerStore(st), (&fakeFactory{}).build, 0)
	c := New(st, failingDirectory{}, manager, Options{})

	if err := c.Run(context.Background()); !errors.Is(err, ErrEmptyUniverse) {
		t.Fatalf("Run() error = %v, want ErrEmptyUniverse", err)
	}
}

func TestWaitReadyStalled(t *testing.T) {
	fx := newFixture(t)
	fx.st.SetUniverse([]string{"BTCUSDT", "ETHUSDT"})
	if err := fx.manager.StartAll(context.Background(), Partition(fx.st.Universe(), 1)); err != nil {
		t.Fatal(err)
	}
	fx.manager.Acknowledge(1)
	fx.manager.Close()
	waitFor(t, "detach", func() bool { return len(fx.manager.Connections()) == 0 })

	c := New(fx.st, failingDirectory{}, fx.manager, Options{ProgressInterval: 10 * time.Millisecond})
	if err := c.WaitReady(context.Background()); !errors.Is(err, ErrStalled) {
		t.Fatalf("WaitReady() error = %v, want ErrStalled", err)
	}
}
