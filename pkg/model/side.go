package model

// Side of the book an order belongs to.
type Side uint8

const (
	BID Side = iota // buy
	ASK             // sell
)

func (s Side) Opposite() Side {
	if s == BID {
		return ASK
	}
	return BID
}

func (s Side) String() string {
	if s == BID {
		return "BID"
	}
	return "ASK"
}

// Quote currency every instrument settles against.
const (
	CASH_TICKER = "USD"
	CASH_LEDGER = 10
)
