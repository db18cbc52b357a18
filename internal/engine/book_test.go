package engine

import (
	"math/rand"
	"testing"

	"github.com/dimasprabowo/limitbook/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustSubmit(t *testing.T, book OrderBookEngine, side model.Side, price model.Price, qty model.Quantity) SubmitResult {
	t.Helper()
	res, err := book.SubmitOrder(side, price, qty)
	require.NoError(t, err)
	return res
}

func TestSubmitRestsOnEmptyBook(t *testing.T) {
	book := NewOrderBookEngine()

	res := mustSubmit(t, book, model.BID, 100, 10)
	assert.Len(t, res.Trades, 0)
	assert.Equal(t, model.Quantity(10), res.RestingQuantity)

	best, ok := book.BestBid()
	require.True(t, ok)
	assert.Equal(t, model.Price(100), best.Price)
	assert.Equal(t, model.Quantity(10), best.Volume)
	assert.Equal(t, 1, best.OrderCount)

	_, ok = book.BestAsk()
	assert.False(t, ok)
}

func TestMatchFIFOWithinLevel(t *testing.T) {
	book := NewOrderBookEngine()

	first := mustSubmit(t, book, model.ASK, 99, 5)
	second := mustSubmit(t, book, model.ASK, 99, 3)

	res := mustSubmit(t, book, model.BID, 100, 6)
	require.Len(t, res.Trades, 2)

	// earliest resting order fills first and in full
	assert.Equal(t, first.OrderID, res.Trades[0].MakerID)
	assert.Equal(t, model.Price(99), res.Trades[0].Price)
	assert.Equal(t, model.Quantity(5), res.Trades[0].Quantity)

	assert.Equal(t, second.OrderID, res.Trades[1].MakerID)
	assert.Equal(t, model.Price(99), res.Trades[1].Price)
	assert.Equal(t, model.Quantity(1), res.Trades[1].Quantity)

	// incoming fully filled, 2 left from the second ask
	assert.Equal(t, model.Quantity(0), res.RestingQuantity)
	best, ok := book.BestAsk()
	require.True(t, ok)
	assert.Equal(t, model.Price(99), best.Price)
	assert.Equal(t, model.Quantity(2), best.Volume)
	assert.Equal(t, 1, best.OrderCount)
}

func TestNonCrossingSellRests(t *testing.T) {
	book := NewOrderBookEngine()

	res := mustSubmit(t, book, model.ASK, 50, 4)
	assert.Len(t, res.Trades, 0)
	assert.Equal(t, model.Quantity(4), res.RestingQuantity)

	best, ok := book.BestAsk()
	require.True(t, ok)
	assert.Equal(t, model.Price(50), best.Price)
	assert.Equal(t, model.Quantity(4), best.Volume)
}

func TestZeroPriceOrQuantityRejected(t *testing.T) {
	book := NewOrderBookEngine()

	_, err := book.SubmitOrder(model.BID, 100, 0)
	assert.ErrorIs(t, err, model.ErrInvalidOrder)

	_, err = book.SubmitOrder(model.ASK, 0, 10)
	assert.ErrorIs(t, err, model.ErrInvalidOrder)

	// no partial state change
	assert.Equal(t, 0, book.OrderSize())
	assert.Equal(t, 0, book.TradeCount())
	_, ok := book.BestBid()
	assert.False(t, ok)
	_, ok = book.BestAsk()
	assert.False(t, ok)
}

func TestCrossingStopsAtLimit(t *testing.T) {
	book := NewOrderBookEngine()

	mustSubmit(t, book, model.ASK, 99, 5)
	mustSubmit(t, book, model.ASK, 101, 5)

	res := mustSubmit(t, book, model.BID, 99, 8)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, model.Price(99), res.Trades[0].Price)
	assert.Equal(t, model.Quantity(5), res.Trades[0].Quantity)

	// the 101 level is untouched; leftover rests as a bid at 99
	assert.Equal(t, model.Quantity(3), res.RestingQuantity)
	bestAsk, ok := book.BestAsk()
	require.True(t, ok)
	assert.Equal(t, model.Price(101), bestAsk.Price)
	bestBid, ok := book.BestBid()
	require.True(t, ok)
	assert.Equal(t, model.Price(99), bestBid.Price)
	assert.Equal(t, model.Quantity(3), bestBid.Volume)
}

func TestExecutionPriceIsMakerPrice(t *testing.T) {
	t.Run("aggressive buy pays the ask", func(t *testing.T) {
		book := NewOrderBookEngine()
		mustSubmit(t, book, model.ASK, 95, 5)

		res := mustSubmit(t, book, model.BID, 120, 5)
		require.Len(t, res.Trades, 1)
		assert.Equal(t, model.Price(95), res.Trades[0].Price)
		assert.Equal(t, model.BID, res.Trades[0].Side)
	})

	t.Run("aggressive sell receives the bid", func(t *testing.T) {
		book := NewOrderBookEngine()
		mustSubmit(t, book, model.BID, 105, 5)

		res := mustSubmit(t, book, model.ASK, 80, 5)
		require.Len(t, res.Trades, 1)
		assert.Equal(t, model.Price(105), res.Trades[0].Price)
		assert.Equal(t, model.ASK, res.Trades[0].Side)
	})
}

func TestMultiLevelSweep(t *testing.T) {
	book := NewOrderBookEngine()

	mustSubmit(t, book, model.ASK, 99, 2)
	mustSubmit(t, book, model.ASK, 100, 2)
	mustSubmit(t, book, model.ASK, 101, 2)

	res := mustSubmit(t, book, model.BID, 101, 7)
	require.Len(t, res.Trades, 3)
	assert.Equal(t, model.Price(99), res.Trades[0].Price)
	assert.Equal(t, model.Price(100), res.Trades[1].Price)
	assert.Equal(t, model.Price(101), res.Trades[2].Price)

	// ask side fully consumed, remainder rests as best bid
	_, ok := book.BestAsk()
	assert.False(t, ok)
	bestBid, ok := book.BestBid()
	require.True(t, ok)
	assert.Equal(t, model.Price(101), bestBid.Price)
	assert.Equal(t, model.Quantity(1), bestBid.Volume)
}

func TestTradeSequencesStrictlyIncrease(t *testing.T) {
	book := NewOrderBookEngine()

	mustSubmit(t, book, model.ASK, 99, 1)
	mustSubmit(t, book, model.ASK, 99, 1)
	res := mustSubmit(t, book, model.BID, 99, 2)
	require.Len(t, res.Trades, 2)
	assert.Greater(t, res.Trades[1].Seq, res.Trades[0].Seq)
}

func TestCancelOrder(t *testing.T) {
	t.Run("resting order", func(t *testing.T) {
		book := NewOrderBookEngine()
		res := mustSubmit(t, book, model.BID, 100, 10)

		require.NoError(t, book.CancelOrder(res.OrderID))
		_, ok := book.BestBid()
		assert.False(t, ok)
		assert.Equal(t, 0, book.OrderSize())

		// second cancel is a no-op failure
		assert.ErrorIs(t, book.CancelOrder(res.OrderID), model.ErrUnknownOrder)
	})

	t.Run("unknown id", func(t *testing.T) {
		book := NewOrderBookEngine()
		assert.ErrorIs(t, book.CancelOrder(12345), model.ErrUnknownOrder)
	})

	t.Run("fully filled order is terminal", func(t *testing.T) {
		book := NewOrderBookEngine()
		maker := mustSubmit(t, book, model.ASK, 99, 5)
		mustSubmit(t, book, model.BID, 99, 5)
		assert.ErrorIs(t, book.CancelOrder(maker.OrderID), model.ErrUnknownOrder)
	})

	t.Run("cancel keeps deeper orders at the level", func(t *testing.T) {
		book := NewOrderBookEngine()
		first := mustSubmit(t, book, model.ASK, 99, 5)
		mustSubmit(t, book, model.ASK, 99, 3)

		require.NoError(t, book.CancelOrder(first.OrderID))
		best, ok := book.BestAsk()
		require.True(t, ok)
		assert.Equal(t, model.Quantity(3), best.Volume)
		assert.Equal(t, 1, best.OrderCount)
	})
}

func TestModifyOrder(t *testing.T) {
	book := NewOrderBookEngine()
	res := mustSubmit(t, book, model.BID, 100, 10)

	modified, err := book.ModifyOrder(res.OrderID, 101, 4)
	require.NoError(t, err)
	assert.NotEqual(t, res.OrderID, modified.OrderID)

	best, ok := book.BestBid()
	require.True(t, ok)
	assert.Equal(t, model.Price(101), best.Price)
	assert.Equal(t, model.Quantity(4), best.Volume)

	_, err = book.ModifyOrder(9999, 101, 4)
	assert.ErrorIs(t, err, model.ErrUnknownOrder)

	_, err = book.ModifyOrder(modified.OrderID, 0, 4)
	assert.ErrorIs(t, err, model.ErrInvalidOrder)
}

func TestTimePriorityAcrossPartialFills(t *testing.T) {
	book := NewOrderBookEngine()

	first := mustSubmit(t, book, model.BID, 100, 4)
	second := mustSubmit(t, book, model.BID, 100, 4)
	third := mustSubmit(t, book, model.BID, 100, 4)

	// 6 lots: drains first, half of second
	res := mustSubmit(t, book, model.ASK, 100, 6)
	require.Len(t, res.Trades, 2)
	assert.Equal(t, first.OrderID, res.Trades[0].MakerID)
	assert.Equal(t, second.OrderID, res.Trades[1].MakerID)

	// 3 more: rest of second before any of third
	res = mustSubmit(t, book, model.ASK, 100, 3)
	require.Len(t, res.Trades, 2)
	assert.Equal(t, second.OrderID, res.Trades[0].MakerID)
	assert.Equal(t, model.Quantity(2), res.Trades[0].Quantity)
	assert.Equal(t, third.OrderID, res.Trades[1].MakerID)
}

func TestTopOfBookAndDepth(t *testing.T) {
	book := NewOrderBookEngine()

	mustSubmit(t, book, model.BID, 98, 5)
	mustSubmit(t, book, model.BID, 97, 2)
	mustSubmit(t, book, model.ASK, 101, 3)
	mustSubmit(t, book, model.ASK, 102, 7)

	tob := book.GetTopOfBook()
	require.NotNil(t, tob.BestBid)
	require.NotNil(t, tob.BestAsk)
	assert.Equal(t, model.Price(98), tob.BestBid.Price)
	assert.Equal(t, model.Price(101), tob.BestAsk.Price)
	assert.Equal(t, model.Price(3), tob.Spread)

	depth := book.GetMarketDepth(10)
	require.Len(t, depth.Bids, 2)
	require.Len(t, depth.Asks, 2)
	// best levels first
	assert.Equal(t, model.Price(98), depth.Bids[0].Price)
	assert.Equal(t, model.Price(97), depth.Bids[1].Price)
	assert.Equal(t, model.Price(101), depth.Asks[0].Price)
	assert.Equal(t, model.Price(102), depth.Asks[1].Price)

	shallow := book.GetMarketDepth(1)
	assert.Len(t, shallow.Bids, 1)
	assert.Len(t, shallow.Asks, 1)
}

func TestTradesSnapshotIsRestartable(t *testing.T) {
	book := NewOrderBookEngine()

	mustSubmit(t, book, model.ASK, 99, 5)
	mustSubmit(t, book, model.BID, 99, 3)

	seq := book.Trades()

	// a later trade must not leak into the snapshot
	mustSubmit(t, book, model.BID, 99, 2)

	count := 0
	for range seq {
		count++
	}
	assert.Equal(t, 1, count)

	// restartable: a second pass yields the same records
	count = 0
	var last model.Trade
	for trade := range seq {
		count++
		last = trade
	}
	assert.Equal(t, 1, count)
	assert.Equal(t, model.Quantity(3), last.Quantity)

	// early break is allowed
	for range book.Trades() {
		break
	}
}

// Quantity conservation under a randomized order flow: for every
// submission, filled + resting must equal the submitted quantity, and
// aggregate book volume must equal submitted minus traded overall.
func TestQuantityConservationRandomized(t *testing.T) {
	book := NewOrderBookEngine()
	rng := rand.New(rand.NewSource(1))

	var submitted, traded, rested model.Quantity
	for i := 0; i < 2000; i++ {
		side := model.BID
		if rng.Intn(2) == 1 {
			side = model.ASK
		}
		price := model.Price(90 + rng.Intn(21))
		qty := model.Quantity(1 + rng.Intn(50))

		res, err := book.SubmitOrder(side, price, qty)
		require.NoError(t, err)

		var filled model.Quantity
		for _, trade := range res.Trades {
			filled += trade.Quantity
			// the maker, not the aggressor, sets the price
			if side == model.BID {
				require.LessOrEqual(t, trade.Price, price)
			} else {
				require.GreaterOrEqual(t, trade.Price, price)
			}
		}
		require.Equal(t, qty, filled+res.RestingQuantity, "submission %d leaked quantity", i)

		submitted += qty
		traded += filled
		rested += res.RestingQuantity
	}

	// every trade consumes one unit from each side of the book flow
	var bookVolume model.Quantity
	depth := book.GetMarketDepth(1 << 20)
	for _, level := range depth.Bids {
		bookVolume += level.Volume
	}
	for _, level := range depth.Asks {
		bookVolume += level.Volume
	}
	assert.Equal(t, submitted-2*traded, bookVolume)

	// price priority: strictly worsening away from the top
	for i := 1; i < len(depth.Bids); i++ {
		assert.Less(t, depth.Bids[i].Price, depth.Bids[i-1].Price)
	}
	for i := 1; i < len(depth.Asks); i++ {
		assert.Greater(t, depth.Asks[i].Price, depth.Asks[i-1].Price)
	}

	// book never crossed after matching settles
	if len(depth.Bids) > 0 && len(depth.Asks) > 0 {
		assert.Less(t, depth.Bids[0].Price, depth.Asks[0].Price)
	}
}
