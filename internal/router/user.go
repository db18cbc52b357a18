package router

import (
	"fmt"
	"net/http"
	"time"

	"github.com/dimasprabowo/limitbook/internal/router/middleware"
	orderUsecase "github.com/dimasprabowo/limitbook/internal/usecase/order"
	"github.com/dimasprabowo/limitbook/internal/usecase/user"
)

type UserRouter interface {
	GetUser(w http.ResponseWriter, r *http.Request)
	GetUserOrderList(w http.ResponseWriter, r *http.Request)
	RegisterUser(w http.ResponseWriter, r *http.Request)
	LoginUser(w http.ResponseWriter, r *http.Request)
}

type userRouterImpl struct {
	usecase      user.UserUseCase
	orderUsecase orderUsecase.OrderUseCase
	tokenMaker   *middleware.JWTMaker
}

func NewUserRouter(usecase user.UserUseCase, orderUC orderUsecase.OrderUseCase, tokenMaker *middleware.JWTMaker) UserRouter {
	return &userRouterImpl{
		usecase:      usecase,
		orderUsecase: orderUC,
		tokenMaker:   tokenMaker,
	}
}

func (ur *userRouterImpl) GetUser(w http.ResponseWriter, r *http.Request) {
	type UserResponse struct {
		Id          string    `json:"id"`
		CreatedAt   time.Time `json:"created_at"`
		Username    string    `json:"username"`
		CashBalance string    `json:"cash_balance"`
	}
	claims := r.Context().Value(middleware.AuthKey{}).(*middleware.UserClaims)

	profile, err := ur.usecase.GetProfile(r.Context(), claims.UserId)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{
		Id:          fmt.Sprintf("%d", profile.ID),
		CreatedAt:   profile.CreatedAt,
		Username:    profile.Username,
		CashBalance: profile.CashBalance,
	})
}

func (ur *userRouterImpl) GetUserOrderList(w http.ResponseWriter, r *http.Request) {
	claims := r.Context().Value(middleware.AuthKey{}).(*middleware.UserClaims)

	orders, err := ur.orderUsecase.GetOrdersByUser(r.Context(), claims.UserId)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (ur *userRouterImpl) RegisterUser(w http.ResponseWriter, r *http.Request) {
	type RegisterRequest struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	type UserResponse struct {
		Id        string    `json:"id"`
		CreatedAt time.Time `json:"created_at"`
		Username  string    `json:"username"`
	}

	req, err := decodeJSON[RegisterRequest](w, r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}

	userId, err := ur.usecase.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{
		Id:        fmt.Sprintf("%d", userId),
		CreatedAt: time.Now(),
		Username:  req.Username,
	})
}

func (ur *userRouterImpl) LoginUser(w http.ResponseWriter, r *http.Request) {
	type LoginReq struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	type LoginRes struct {
		Token     string    `json:"token"`
		Id        string    `json:"id"`
		Username  string    `json:"username"`
		ExpiresAt time.Time `json:"expires_at"`
	}

	req, err := decodeJSON[LoginReq](w, r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}

	u, err := ur.usecase.Login(r.Context(), req.Username, req.Password)
	if err != nil || u == nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}

	token, claims, err := ur.tokenMaker.CreateToken(u.ID, req.Username, 24*time.Hour)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, LoginRes{
		Token:     token,
		Id:        claims.ID,
		Username:  u.Username,
		ExpiresAt: claims.ExpiresAt.Time,
	})
}
