package market

// LotSizes maps a symbol to its minimum tradable unit. Markets like HK trade
// in board lots of 100 or 500 shares; US symbols are usually 1.
type LotSizes map[string]int

// Get returns the lot size for symbol, defaulting to 1 when the symbol is
// unknown or the table holds a non-positive entry.
func (l LotSizes) Get(symbol string) int {
	if l == nil {
		return 1
	}
	n, ok := l[symbol]
	if !ok || n < 1 {
		return 1
	}
	return n
}
