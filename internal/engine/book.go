package engine

import (
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/dimasprabowo/limitbook/pkg/model"
)

// SubmitResult is everything a caller learns from one submission: the
// assigned id, the trades it generated (execution order) and how much of it
// rested in the book.
type SubmitResult struct {
	OrderID         model.OrderId
	Trades          []model.Trade
	RestingQuantity model.Quantity
}

// OrderBookEngine matches limit orders for a single instrument under
// price-time priority. One instance owns one book; instances are
// independent and may run fully in parallel.
//
// Self-matching is not prevented: an account crossing its own resting order
// trades against it like anyone else's.
type OrderBookEngine interface {
	// SubmitOrder validates, crosses against the opposite side and rests
	// any remainder. Fails with model.ErrInvalidOrder on a zero price or
	// quantity, before any book mutation.
	SubmitOrder(side model.Side, price model.Price, quantity model.Quantity) (SubmitResult, error)

	// CancelOrder removes a resting order. model.ErrUnknownOrder if the id
	// is absent or already terminal; no side effect in that case.
	CancelOrder(orderID model.OrderId) error

	// ModifyOrder cancels and resubmits at a new price/quantity, losing
	// time priority. The returned result carries the new id.
	ModifyOrder(orderID model.OrderId, price model.Price, quantity model.Quantity) (SubmitResult, error)

	BestBid() (model.MarketDepthLevel, bool)
	BestAsk() (model.MarketDepthLevel, bool)
	GetTopOfBook() *model.TopOfBook
	GetMarketDepth(levels int) *model.MarketDepth

	// Trades yields the ledger as it stood at call time: lazy, finite and
	// restartable.
	Trades() iter.Seq[model.Trade]
	TradeCount() int

	// OrderSize reports the number of resting orders.
	OrderSize() int

	// RestingQuantity reports the remaining quantity of a resting order;
	// false once the order is filled or cancelled.
	RestingQuantity(orderID model.OrderId) (model.Quantity, bool)
}

type orderBookImpl struct {
	mu sync.RWMutex

	bids, asks *bookSide
	orders     map[model.OrderId]*model.Order // resting orders by id
	ledger     *tradeLedger
	seq        uint64 // drives order ids, FIFO priority and trade sequencing
}

func NewOrderBookEngine() OrderBookEngine {
	return &orderBookImpl{
		bids:   newBookSide(model.BID),
		asks:   newBookSide(model.ASK),
		orders: make(map[model.OrderId]*model.Order),
		ledger: newTradeLedger(),
	}
}

// nextSeq must be called with the write lock held.
func (o *orderBookImpl) nextSeq() uint64 {
	o.seq++
	return o.seq
}

func (o *orderBookImpl) ownSide(side model.Side) *bookSide {
	if side == model.BID {
		return o.bids
	}
	return o.asks
}

func crosses(side model.Side, limit, best model.Price) bool {
	if side == model.BID {
		return limit >= best
	}
	return limit <= best
}

func (o *orderBookImpl) SubmitOrder(side model.Side, price model.Price, quantity model.Quantity) (SubmitResult, error) {
	// Price and Quantity are unsigned, so zero is the only non-positive value.
	if price == 0 || quantity == 0 {
		return SubmitResult{}, model.ErrInvalidOrder
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	seq := o.nextSeq()
	order := model.NewOrder(model.OrderId(seq), side, price, quantity, seq)

	trades := o.match(&order)

	if !order.IsFilled() {
		o.ownSide(side).insert(&order)
		o.orders[order.GetId()] = &order
	}

	return SubmitResult{
		OrderID:         order.GetId(),
		Trades:          trades,
		RestingQuantity: order.GetRemainingQuantity(),
	}, nil
}

// match runs the crossing loop for an incoming order. The opposite side's
// best level is re-resolved on every iteration: matching removes levels
// mid-loop, so the previous best may no longer exist. Holding any level or
// node reference across iterations is a bug.
func (o *orderBookImpl) match(taker *model.Order) []model.Trade {
	opposite := o.ownSide(taker.GetSide().Opposite())
	trades := make([]model.Trade, 0)

	for taker.GetRemainingQuantity() > 0 {
		level, ok := opposite.bestLevel()
		if !ok || !crosses(taker.GetSide(), taker.GetPrice(), level.price) {
			break
		}

		maker := level.head()
		if maker == nil {
			panic(fmt.Sprintf("empty price level %d indexed on %v side", level.price, opposite.side))
		}

		quantity := min(taker.GetRemainingQuantity(), maker.GetRemainingQuantity())
		if err := maker.Fill(quantity); err != nil {
			panic(err)
		}
		if err := taker.Fill(quantity); err != nil {
			panic(err)
		}
		level.totalVolume -= quantity

		// The maker sets the execution price; the taker's limit is only
		// the crossing threshold.
		trade := model.Trade{
			Side:      taker.GetSide(),
			MakerID:   maker.GetId(),
			TakerID:   taker.GetId(),
			Price:     level.price,
			Quantity:  quantity,
			Seq:       o.nextSeq(),
			Timestamp: time.Now(),
		}
		o.ledger.append(trade)
		trades = append(trades, trade)

		if maker.IsFilled() {
			level.popHead()
			delete(o.orders, maker.GetId())
		}
		if level.empty() {
			opposite.removeIfEmpty(level.price)
		}
	}

	return trades
}

func (o *orderBookImpl) CancelOrder(orderID model.OrderId) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	order, ok := o.orders[orderID]
	if !ok {
		return fmt.Errorf("cancel order %d: %w", orderID, model.ErrUnknownOrder)
	}

	side := o.ownSide(order.GetSide())
	level, ok := side.levelAt(order.GetPrice())
	if !ok || !level.removeByID(orderID) {
		panic(fmt.Sprintf("resting order %d missing from its %v level %d", orderID, order.GetSide(), order.GetPrice()))
	}
	side.removeIfEmpty(order.GetPrice())
	delete(o.orders, orderID)
	return nil
}

func (o *orderBookImpl) ModifyOrder(orderID model.OrderId, price model.Price, quantity model.Quantity) (SubmitResult, error) {
	// Look up the side first so an unknown id fails before validation.
	o.mu.RLock()
	order, ok := o.orders[orderID]
	var side model.Side
	if ok {
		side = order.GetSide()
	}
	o.mu.RUnlock()
	if !ok {
		return SubmitResult{}, fmt.Errorf("modify order %d: %w", orderID, model.ErrUnknownOrder)
	}
	if price == 0 || quantity == 0 {
		return SubmitResult{}, model.ErrInvalidOrder
	}

	if err := o.CancelOrder(orderID); err != nil {
		return SubmitResult{}, err
	}
	return o.SubmitOrder(side, price, quantity)
}

func levelSnapshot(level *priceLevel) model.MarketDepthLevel {
	return model.MarketDepthLevel{
		Price:      level.price,
		Volume:     level.totalVolume,
		OrderCount: len(level.orders),
	}
}

func (o *orderBookImpl) BestBid() (model.MarketDepthLevel, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	level, ok := o.bids.bestLevel()
	if !ok {
		return model.MarketDepthLevel{}, false
	}
	return levelSnapshot(level), true
}

func (o *orderBookImpl) BestAsk() (model.MarketDepthLevel, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	level, ok := o.asks.bestLevel()
	if !ok {
		return model.MarketDepthLevel{}, false
	}
	return levelSnapshot(level), true
}

func (o *orderBookImpl) GetTopOfBook() *model.TopOfBook {
	o.mu.RLock()
	defer o.mu.RUnlock()

	tob := &model.TopOfBook{}
	if level, ok := o.bids.bestLevel(); ok {
		snap := levelSnapshot(level)
		tob.BestBid = &snap
	}
	if level, ok := o.asks.bestLevel(); ok {
		snap := levelSnapshot(level)
		tob.BestAsk = &snap
	}
	if tob.BestBid != nil && tob.BestAsk != nil {
		tob.Spread = tob.BestAsk.Price - tob.BestBid.Price
	}
	return tob
}

func (o *orderBookImpl) GetMarketDepth(levels int) *model.MarketDepth {
	o.mu.RLock()
	defer o.mu.RUnlock()

	depth := &model.MarketDepth{
		Bids:      make([]model.MarketDepthLevel, 0, levels),
		Asks:      make([]model.MarketDepthLevel, 0, levels),
		Timestamp: time.Now().UnixMilli(),
	}
	o.bids.ascend(func(level *priceLevel) bool {
		if len(depth.Bids) >= levels {
			return false
		}
		depth.Bids = append(depth.Bids, levelSnapshot(level))
		return true
	})
	o.asks.ascend(func(level *priceLevel) bool {
		if len(depth.Asks) >= levels {
			return false
		}
		depth.Asks = append(depth.Asks, levelSnapshot(level))
		return true
	})
	return depth
}

func (o *orderBookImpl) Trades() iter.Seq[model.Trade] {
	o.mu.RLock()
	snap := o.ledger.snapshot()
	o.mu.RUnlock()

	return func(yield func(model.Trade) bool) {
		for _, trade := range snap {
			if !yield(trade) {
				return
			}
		}
	}
}

func (o *orderBookImpl) TradeCount() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.ledger.size()
}

func (o *orderBookImpl) OrderSize() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.orders)
}

func (o *orderBookImpl) RestingQuantity(orderID model.OrderId) (model.Quantity, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	order, ok := o.orders[orderID]
	if !ok {
		return 0, false
	}
	return order.GetRemainingQuantity(), true
}
