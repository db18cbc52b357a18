package engine

import (
	"github.com/dimasprabowo/limitbook/pkg/model"
)

// priceLevel is a FIFO queue of orders resting at one price. The slice is
// ordered by submission sequence, lowest first. A level is removed from its
// side the moment it drains; it is never indexed while empty.
type priceLevel struct {
	price       model.Price
	orders      []*model.Order
	totalVolume model.Quantity // sum of remaining quantities
}

func newPriceLevel(price model.Price) *priceLevel {
	return &priceLevel{
		price:  price,
		orders: make([]*model.Order, 0, 4),
	}
}

// head returns the FIFO front (the maker candidate) without removing it.
func (pl *priceLevel) head() *model.Order {
	if len(pl.orders) == 0 {
		return nil
	}
	return pl.orders[0]
}

func (pl *priceLevel) append(order *model.Order) {
	pl.orders = append(pl.orders, order)
	pl.totalVolume += order.GetRemainingQuantity()
}

func (pl *priceLevel) popHead() *model.Order {
	if len(pl.orders) == 0 {
		return nil
	}
	order := pl.orders[0]
	pl.orders = pl.orders[1:]
	return order
}

// removeByID removes a resting order (cancellation path) and returns whether
// it was present. totalVolume is reduced by the order's remaining quantity.
func (pl *priceLevel) removeByID(orderID model.OrderId) bool {
	for i, order := range pl.orders {
		if order.GetId() == orderID {
			pl.orders = append(pl.orders[:i], pl.orders[i+1:]...)
			pl.totalVolume -= order.GetRemainingQuantity()
			return true
		}
	}
	return false
}

func (pl *priceLevel) empty() bool {
	return len(pl.orders) == 0
}
