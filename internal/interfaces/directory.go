package interfaces

import "context"

type SymbolDirectory interface {
	FetchSymbols(ctx context.Context) ([]string, error)
}
