// In-process smoke driver for the matching engine. No database, no
// TigerBeetle; submits a handful of orders and prints what the book does.
package main

import (
	"log"

	"github.com/dimasprabowo/limitbook/internal/engine"
	"github.com/dimasprabowo/limitbook/pkg/model"
)

func main() {
	book := engine.NewOrderBookEngine()

	res, err := book.SubmitOrder(model.ASK, 10_000, 10)
	log.Printf("ask 10@10000 -> %+v err=%v", res, err)
	log.Printf("top: %+v", book.GetTopOfBook())

	// rests below the ask, no cross
	res, err = book.SubmitOrder(model.BID, 9_000, 10)
	log.Printf("bid 10@9000 -> %+v err=%v", res, err)
	log.Printf("top: %+v", book.GetTopOfBook())

	// crosses: fills the full ask at the maker's price
	res, err = book.SubmitOrder(model.BID, 10_000, 10)
	log.Printf("bid 10@10000 -> %d trades err=%v", len(res.Trades), err)
	for _, trade := range res.Trades {
		log.Printf("  trade seq=%d price=%d qty=%d", trade.Seq, trade.Price, trade.Quantity)
	}
	log.Printf("top: %+v", book.GetTopOfBook())

	// rejected before touching the book
	if _, err := book.SubmitOrder(model.BID, 10_000, 0); err != nil {
		log.Printf("zero quantity rejected: %v", err)
	}

	log.Printf("resting orders: %d, trades: %d", book.OrderSize(), book.TradeCount())
}
