package model

import "time"

// Trade is an immutable execution record. Price is always the maker's
// (resting) price. Seq is the engine's execution sequence and is the
// ordering authority; Timestamp is informational only.
type Trade struct {
	Side      Side      `json:"side"` // aggressor side
	MakerID   OrderId   `json:"makerId"`
	TakerID   OrderId   `json:"takerId"`
	Price     Price     `json:"price"`
	Quantity  Quantity  `json:"quantity"`
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
}
