package router

import (
	"log"
	"net/http"
	"time"

	"github.com/dimasprabowo/limitbook/internal/router/middleware"
	"github.com/dimasprabowo/limitbook/internal/usecase/order"
	"github.com/dimasprabowo/limitbook/internal/usecase/user"
)

type statusWriter struct {
	http.ResponseWriter
	status int
	n      int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.n += n
	return n, err
}

func logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w}
		start := time.Now()
		next.ServeHTTP(sw, r)
		log.Printf("%s %s %d %dB %s", r.Method, r.URL.Path, sw.status, sw.n, time.Since(start))
	})
}

// Cors wraps the mux when starting the server:
// http.ListenAndServe(":8080", Cors(mux))
func Cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")

			reqHdrs := r.Header.Get("Access-Control-Request-Headers")
			if reqHdrs == "" {
				reqHdrs = "Content-Type, Authorization"
			}
			w.Header().Set("Access-Control-Allow-Headers", reqHdrs)

			reqMethod := r.Header.Get("Access-Control-Request-Method")
			if reqMethod == "" {
				reqMethod = "GET, POST, PUT, DELETE, OPTIONS"
			}
			w.Header().Set("Access-Control-Allow-Methods", reqMethod)
			w.Header().Set("Access-Control-Max-Age", "86400")
		}

		// short-circuit preflight
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func bindOrder(serverRouter *http.ServeMux, usecase order.OrderUseCase, tokenMaker *middleware.JWTMaker) {
	authmiddleware := middleware.AuthMiddleware(tokenMaker)
	orderRouter := NewOrderRouter(usecase)
	serverRouter.Handle("POST /api/v1/order/add", logging(authmiddleware(http.HandlerFunc(orderRouter.Add))))
	serverRouter.Handle("PUT /api/v1/order/modify", logging(authmiddleware(http.HandlerFunc(orderRouter.Modify))))
	serverRouter.Handle("DELETE /api/v1/order/cancel", logging(authmiddleware(http.HandlerFunc(orderRouter.Cancel))))
}

func bindMarket(serverRouter *http.ServeMux, usecase order.OrderUseCase) {
	marketRouter := NewMarketRouter(usecase)
	serverRouter.Handle("GET /api/v1/book/top", logging(http.HandlerFunc(marketRouter.Top)))
	serverRouter.Handle("GET /api/v1/book/depth", logging(http.HandlerFunc(marketRouter.Depth)))
	serverRouter.Handle("GET /api/v1/book/trades", logging(http.HandlerFunc(marketRouter.Trades)))
}

func bindUser(serverRouter *http.ServeMux, tokenMaker *middleware.JWTMaker, userUseCase user.UserUseCase, orderUseCase order.OrderUseCase) {
	authmiddleware := middleware.AuthMiddleware(tokenMaker)
	userRouter := NewUserRouter(userUseCase, orderUseCase, tokenMaker)
	serverRouter.Handle("GET /api/v1/user/", logging(authmiddleware(http.HandlerFunc(userRouter.GetUser))))
	serverRouter.Handle("GET /api/v1/user/order-list", logging(authmiddleware(http.HandlerFunc(userRouter.GetUserOrderList))))
	serverRouter.Handle("POST /api/v1/user/register", logging(http.HandlerFunc(userRouter.RegisterUser)))
	serverRouter.Handle("POST /api/v1/user/login", logging(http.HandlerFunc(userRouter.LoginUser)))
}

type BindRouterOpts struct {
	ServerRouter *http.ServeMux
	OrderUseCase order.OrderUseCase
	TokenMaker   *middleware.JWTMaker
	UserUseCase  user.UserUseCase
}

func BindRouter(opts BindRouterOpts) {
	bindOrder(opts.ServerRouter, opts.OrderUseCase, opts.TokenMaker)
	bindMarket(opts.ServerRouter, opts.OrderUseCase)
	bindUser(opts.ServerRouter, opts.TokenMaker, opts.UserUseCase, opts.OrderUseCase)

	opts.ServerRouter.Handle("GET /healthz", logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": 200,
			"health": "healthy",
		})
	})))
}
