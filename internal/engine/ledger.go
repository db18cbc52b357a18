package engine

import (
	"github.com/dimasprabowo/limitbook/pkg/model"
)

// tradeLedger is the append-only record of executed trades, in strict
// execution order. Access is serialized by the owning engine's lock.
type tradeLedger struct {
	trades []model.Trade
}

func newTradeLedger() *tradeLedger {
	return &tradeLedger{trades: make([]model.Trade, 0, 256)}
}

func (l *tradeLedger) append(trade model.Trade) {
	l.trades = append(l.trades, trade)
}

func (l *tradeLedger) size() int {
	return len(l.trades)
}

// snapshot copies the ledger so readers never observe later appends.
func (l *tradeLedger) snapshot() []model.Trade {
	out := make([]model.Trade, len(l.trades))
	copy(out, l.trades)
	return out
}
