package bybit

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"bybit-ticker-bot/internal/api"
	"bybit-ticker-bot/internal/interfaces"
)

const instrumentsPath = "/v5/market/instruments-info"

// DiscoveryError reports a failed instrument listing. Status is the HTTP
// status code when the venue answered, zero otherwise.
type DiscoveryError struct {
	Status int
	Err    error
}

func (e *DiscoveryError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("symbol discovery failed (HTTP %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("symbol discovery failed: %v", e.Err)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}

type instrumentsResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  *struct {
		List *[]struct {
			Symbol string `json:"symbol"`
		} `json:"list"`
	} `json:"result"`
}

// Directory lists tradable symbols from the public REST endpoint
type Directory struct {
	client   *api.Client
	category string
}

var _ interfaces.SymbolDirectory = (*Directory)(nil)

// NewDirectory lists instruments of category, spot when empty.
func NewDirectory(client *api.Client, category string) *Directory {
	if category == "" {
		category = "spot"
	}
	return &Directory{client: client, category: category}
}

// FetchSymbols performs one GET against the instruments endpoint and returns
// the symbols in venue order. There is no retry.
func (d *Directory) FetchSymbols(ctx context.Context) ([]string, error) {
	resp, err := d.client.GET(ctx, instrumentsPath, url.Values{"category": {d.category}})
	if err != nil {
		var se *api.StatusError
		if errors.As(err, &se) {
			return nil, &DiscoveryError{Status: se.StatusCode, Err: err}
		}
		return nil, &DiscoveryError{Err: err}
	}

	var body instrumentsResponse
	if err := resp.ParseJSON(&body); err != nil {
		return nil, &DiscoveryError{Status: resp.StatusCode, Err: err}
	}
	if body.RetCode != 0 {
		return nil, &DiscoveryError{
			Status: resp.StatusCode,
			Err:    fmt.Errorf("venue returned retCode %d: %s", body.RetCode, body.RetMsg),
		}
	}
	if body.Result == nil {
		return nil, &DiscoveryError{Status: resp.StatusCode, Err: errors.New("response has no result object")}
	}

	if body.Result.List == nil {
		return nil, &DiscoveryError{Status: resp.StatusCode, Err: errors.New("result has no instrument list")}
	}

	list := *body.Result.List
	symbols := make([]string, 0, len(list))
	for _, inst := range list {
		if inst.Symbol == "" {
			continue
		}
		symbols = append(symbols, inst.Symbol)
	}
	if len(list) > 0 && len(symbols) == 0 {
		return nil, &DiscoveryError{
			Status: resp.StatusCode,
			Err:    fmt.Errorf("none of %d instruments carries a symbol", len(list)),
		}
	}
	return symbols, nil
}
