package router

import (
	"net/http"
	"strconv"

	"github.com/dimasprabowo/limitbook/internal/usecase/order"
)

// MarketRouter serves read-only book state: top of book, depth and the
// trade ledger. These never mutate the book.
type MarketRouter interface {
	Top(w http.ResponseWriter, r *http.Request)
	Depth(w http.ResponseWriter, r *http.Request)
	Trades(w http.ResponseWriter, r *http.Request)
}

type marketRouterImpl struct {
	usecase order.OrderUseCase
}

func NewMarketRouter(usecase order.OrderUseCase) MarketRouter {
	return &marketRouterImpl{usecase: usecase}
}

func (mr *marketRouterImpl) Top(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, mr.usecase.GetTopOfBook(r.Context()))
}

const defaultDepthLevels = 10

func (mr *marketRouterImpl) Depth(w http.ResponseWriter, r *http.Request) {
	levels := defaultDepthLevels
	if s := r.URL.Query().Get("levels"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			levels = n
		}
	}
	writeJSON(w, http.StatusOK, mr.usecase.GetMarketDepth(r.Context(), levels))
}

func (mr *marketRouterImpl) Trades(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, mr.usecase.ListTrades(r.Context()))
}
