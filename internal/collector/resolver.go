package collector

import "strings"

const DefaultQuoteSuffix = "USDT"

// SymbolResolver maps loose user input onto a subscribed symbol.
type SymbolResolver struct {
	st          *State
	quoteSuffix string
}

// NewSymbolResolver appends quoteSuffix to bare base assets. Empty means DefaultQuoteSuffix.
func NewSymbolResolver(st *State, quoteSuffix string) *SymbolResolver {
	quoteSuffix = strings.ToUpper(strings.TrimSpace(quoteSuffix))
	if quoteSuffix == "" {
		quoteSuffix = DefaultQuoteSuffix
	}
	return &SymbolResolver{st: st, quoteSuffix: quoteSuffix}
}

// Resolve never fails. When nothing matches it returns the normalized input,
// which the store will report as not found.
//
// The final step is a linear scan over subscribed symbols. An index from
// stripped name to symbol would replace it if the universe grows well past
// a few thousand entries.
func (r *SymbolResolver) Resolve(input string) string {
	norm := normalizeSymbol(input)
	if norm == "" {
		return norm
	}

	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	if _, ok := r.st.subscribed[norm]; ok {
		return norm
	}
	if !strings.HasSuffix(norm, r.quoteSuffix) {
		if _, ok := r.st.subscribed[norm+r.quoteSuffix]; ok {
			return norm + r.quoteSuffix
		}
	}
	for _, s := range r.st.subscribedOrder {
		if strings.TrimSuffix(s, r.quoteSuffix) == norm {
			return s
		}
	}
	return norm
}

func normalizeSymbol(input string) string {
	return strings.ToUpper(strings.Join(strings.Fields(input), ""))
}
