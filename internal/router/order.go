package router

import (
	"errors"
	"net/http"

	"github.com/dimasprabowo/limitbook/internal/usecase/order"
	"github.com/dimasprabowo/limitbook/pkg/model"
)

type OrderRouter interface {
	Add(w http.ResponseWriter, r *http.Request)
	Modify(w http.ResponseWriter, r *http.Request)
	Cancel(w http.ResponseWriter, r *http.Request)
}

type orderRouterImpl struct {
	usecase order.OrderUseCase
}

func NewOrderRouter(usecase order.OrderUseCase) OrderRouter {
	return &orderRouterImpl{usecase: usecase}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidOrder):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrUnknownOrder):
		return http.StatusNotFound
	default:
		return http.StatusUnprocessableEntity
	}
}

func (or *orderRouterImpl) Add(w http.ResponseWriter, r *http.Request) {
	type AddOrderRequest struct {
		Side     model.Side     `json:"side"` // 0 = BID, 1 = ASK
		Price    model.Price    `json:"price"`
		Quantity model.Quantity `json:"quantity"`
		Ticker   string         `json:"ticker"`
	}
	type AddOrderResponse struct {
		OrderID         model.OrderId  `json:"orderId"`
		Trades          []model.Trade  `json:"trades,omitempty"`
		RestingQuantity model.Quantity `json:"restingQuantity"`
		Status          string         `json:"status"` // "accepted", "rejected"
		Message         string         `json:"message,omitempty"`
	}

	req, err := decodeJSON[AddOrderRequest](w, r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}

	res, err := or.usecase.AddOrder(r.Context(), req.Ticker, req.Side, req.Price, req.Quantity)
	if err != nil {
		writeJSON(w, statusFor(err), AddOrderResponse{
			Status:  "rejected",
			Message: err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, AddOrderResponse{
		OrderID:         res.OrderID,
		Trades:          res.Trades,
		RestingQuantity: res.RestingQuantity,
		Status:          "accepted",
	})
}

func (or *orderRouterImpl) Modify(w http.ResponseWriter, r *http.Request) {
	type ModifyOrderRequest struct {
		ID       model.OrderId  `json:"id"`
		Price    model.Price    `json:"price"`
		Quantity model.Quantity `json:"quantity"`
	}
	type ModifyOrderResponse struct {
		OrderID         model.OrderId  `json:"orderId"` // new id; time priority is lost
		Trades          []model.Trade  `json:"trades,omitempty"`
		RestingQuantity model.Quantity `json:"restingQuantity"`
		Status          string         `json:"status"`
		Message         string         `json:"message,omitempty"`
	}

	req, err := decodeJSON[ModifyOrderRequest](w, r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	if req.ID == 0 {
		writeJSONError(w, http.StatusBadRequest, errors.New("id is required"))
		return
	}

	res, err := or.usecase.ModifyOrder(r.Context(), req.ID, req.Price, req.Quantity)
	if err != nil {
		writeJSON(w, statusFor(err), ModifyOrderResponse{
			Status:  "rejected",
			Message: err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, ModifyOrderResponse{
		OrderID:         res.OrderID,
		Trades:          res.Trades,
		RestingQuantity: res.RestingQuantity,
		Status:          "accepted",
	})
}

func (or *orderRouterImpl) Cancel(w http.ResponseWriter, r *http.Request) {
	type CancelOrderRequest struct {
		ID model.OrderId `json:"id"`
	}
	type CancelOrderResponse struct {
		OrderID model.OrderId `json:"orderId"`
		Status  string        `json:"status"`
		Message string        `json:"message,omitempty"`
	}

	req, err := decodeJSON[CancelOrderRequest](w, r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	if req.ID == 0 {
		writeJSONError(w, http.StatusBadRequest, errors.New("id is required"))
		return
	}

	if err := or.usecase.CancelOrder(r.Context(), req.ID); err != nil {
		writeJSON(w, statusFor(err), CancelOrderResponse{
			OrderID: req.ID,
			Status:  "rejected",
			Message: err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, CancelOrderResponse{
		OrderID: req.ID,
		Status:  "cancelled",
	})
}
