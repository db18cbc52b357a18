package model

type MarketDepthLevel struct {
	Price      Price    `json:"price"`
	Volume     Quantity `json:"volume"` // sum of remaining quantities at this price
	OrderCount int      `json:"orderCount"`
}

// MarketDepth represents the order book depth, best levels first.
type MarketDepth struct {
	Bids      []MarketDepthLevel `json:"bids"` // highest price first
	Asks      []MarketDepthLevel `json:"asks"` // lowest price first
	Timestamp int64              `json:"timestamp"`
}

// TopOfBook represents best bid/ask.
type TopOfBook struct {
	BestBid *MarketDepthLevel `json:"bestBid"`
	BestAsk *MarketDepthLevel `json:"bestAsk"`
	Spread  Price             `json:"spread"`
}
