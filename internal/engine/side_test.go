package engine

import (
	"testing"

	"github.com/dimasprabowo/limitbook/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restingOrder(id model.OrderId, side model.Side, price model.Price, qty model.Quantity) *model.Order {
	order := model.NewOrder(id, side, price, qty, uint64(id))
	return &order
}

func TestBookSidePriorityOrdering(t *testing.T) {
	t.Run("bid best is highest price", func(t *testing.T) {
		bids := newBookSide(model.BID)
		bids.insert(restingOrder(1, model.BID, 100, 1))
		bids.insert(restingOrder(2, model.BID, 105, 1))
		bids.insert(restingOrder(3, model.BID, 95, 1))

		best, ok := bids.bestLevel()
		require.True(t, ok)
		assert.Equal(t, model.Price(105), best.price)
	})

	t.Run("ask best is lowest price", func(t *testing.T) {
		asks := newBookSide(model.ASK)
		asks.insert(restingOrder(1, model.ASK, 100, 1))
		asks.insert(restingOrder(2, model.ASK, 105, 1))
		asks.insert(restingOrder(3, model.ASK, 95, 1))

		best, ok := asks.bestLevel()
		require.True(t, ok)
		assert.Equal(t, model.Price(95), best.price)
	})

	t.Run("empty side has no best", func(t *testing.T) {
		_, ok := newBookSide(model.BID).bestLevel()
		assert.False(t, ok)
	})
}

func TestBookSideInsertSharesLevel(t *testing.T) {
	asks := newBookSide(model.ASK)
	asks.insert(restingOrder(1, model.ASK, 100, 5))
	asks.insert(restingOrder(2, model.ASK, 100, 3))

	assert.Equal(t, 1, asks.len())
	level, ok := asks.levelAt(100)
	require.True(t, ok)
	assert.Equal(t, model.Quantity(8), level.totalVolume)
	require.Len(t, level.orders, 2)
	// FIFO: earliest submission at the head
	assert.Equal(t, model.OrderId(1), level.head().GetId())
}

func TestBookSideRemoveIfEmpty(t *testing.T) {
	asks := newBookSide(model.ASK)
	asks.insert(restingOrder(1, model.ASK, 100, 5))

	level, ok := asks.levelAt(100)
	require.True(t, ok)

	// non-empty levels survive the call
	asks.removeIfEmpty(100)
	assert.Equal(t, 1, asks.len())

	level.popHead()
	asks.removeIfEmpty(100)
	assert.Equal(t, 0, asks.len())
	_, ok = asks.levelAt(100)
	assert.False(t, ok)
}

func TestPriceLevelRemoveByID(t *testing.T) {
	level := newPriceLevel(100)
	first := restingOrder(1, model.BID, 100, 5)
	second := restingOrder(2, model.BID, 100, 3)
	level.append(first)
	level.append(second)

	require.NoError(t, first.Fill(2))
	level.totalVolume -= 2

	assert.True(t, level.removeByID(1))
	assert.Equal(t, model.Quantity(3), level.totalVolume)
	assert.Equal(t, model.OrderId(2), level.head().GetId())

	assert.False(t, level.removeByID(1))
}

func TestTradeLedgerSnapshotIsolation(t *testing.T) {
	ledger := newTradeLedger()
	ledger.append(model.Trade{Seq: 1, Price: 100, Quantity: 2})

	snap := ledger.snapshot()
	ledger.append(model.Trade{Seq: 2, Price: 101, Quantity: 1})

	assert.Len(t, snap, 1)
	assert.Equal(t, 2, ledger.size())
	assert.Equal(t, uint64(1), snap[0].Seq)
}
