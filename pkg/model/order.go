package model

import (
	"fmt"
)

// Price is an integer tick-denominated price. Floating point is never used
// for prices so that comparisons are exact.
type Price uint64

// Quantity is an integer number of units.
type Quantity uint64

// OrderId is an opaque handle assigned by the engine at submission.
// Ids are never reused within one engine instance.
type OrderId uint64

// Order is a limit order resting in (or crossing) the book. Identity is
// immutable; only the remaining quantity changes, and only downward.
type Order struct {
	id                OrderId
	side              Side
	price             Price
	initialQuantity   Quantity
	remainingQuantity Quantity
	seq               uint64 // submission sequence, FIFO tie-break within a level
}

func NewOrder(id OrderId, side Side, price Price, quantity Quantity, seq uint64) Order {
	return Order{
		id:                id,
		side:              side,
		price:             price,
		initialQuantity:   quantity,
		remainingQuantity: quantity,
		seq:               seq,
	}
}

// Fill decrements the remaining quantity. Filling past the remaining
// quantity is an error; the engine treats it as a broken invariant.
func (o *Order) Fill(quantity Quantity) error {
	if quantity > o.remainingQuantity {
		return fmt.Errorf("order %d cannot fill %d with only %d remaining", o.id, quantity, o.remainingQuantity)
	}
	o.remainingQuantity -= quantity
	return nil
}

func (o *Order) IsFilled() bool {
	return o.remainingQuantity == 0
}

func (o *Order) GetFilledQuantity() Quantity {
	return o.initialQuantity - o.remainingQuantity
}

func (o *Order) GetRemainingQuantity() Quantity {
	return o.remainingQuantity
}

func (o *Order) GetInitialQuantity() Quantity {
	return o.initialQuantity
}

func (o *Order) GetPrice() Price {
	return o.price
}

func (o *Order) GetId() OrderId {
	return o.id
}

func (o *Order) GetSide() Side {
	return o.side
}

func (o *Order) GetSeq() uint64 {
	return o.seq
}
