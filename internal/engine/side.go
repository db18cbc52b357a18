package engine

import (
	"github.com/dimasprabowo/limitbook/pkg/model"
	"github.com/google/btree"
)

// bookSide is the ordered index price -> priceLevel for one side of the
// book. The btree comparator encodes the side's priority: ascending for
// asks (best = lowest) and descending for bids (best = highest), so Min()
// is always the best level and both sides share one code path.
//
// The side exclusively owns its levels and, transitively, the orders
// resting in them.
type bookSide struct {
	side   model.Side
	levels *btree.BTreeG[*priceLevel]
}

func newBookSide(side model.Side) *bookSide {
	less := func(a, b *priceLevel) bool { return a.price < b.price }
	if side == model.BID {
		less = func(a, b *priceLevel) bool { return a.price > b.price }
	}
	return &bookSide{
		side:   side,
		levels: btree.NewG(32, less),
	}
}

// bestLevel returns the best-priority non-empty level, if any.
func (bs *bookSide) bestLevel() (*priceLevel, bool) {
	return bs.levels.Min()
}

func (bs *bookSide) levelAt(price model.Price) (*priceLevel, bool) {
	return bs.levels.Get(&priceLevel{price: price})
}

// insert locates or creates the level for the order's price and appends the
// order to its FIFO tail.
func (bs *bookSide) insert(order *model.Order) {
	level, ok := bs.levelAt(order.GetPrice())
	if !ok {
		level = newPriceLevel(order.GetPrice())
		bs.levels.ReplaceOrInsert(level)
	}
	level.append(order)
}

// removeIfEmpty drops a drained level from the index. Called as part of
// every step that empties a level, never deferred.
func (bs *bookSide) removeIfEmpty(price model.Price) {
	if level, ok := bs.levelAt(price); ok && level.empty() {
		bs.levels.Delete(level)
	}
}

func (bs *bookSide) len() int {
	return bs.levels.Len()
}

// ascend walks levels in priority order (best first).
func (bs *bookSide) ascend(fn func(*priceLevel) bool) {
	bs.levels.Ascend(fn)
}
