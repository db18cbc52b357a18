package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dimasprabowo/limitbook/internal/engine"
	ledgerRepository "github.com/dimasprabowo/limitbook/internal/repository/ledger"
	orderRepository "github.com/dimasprabowo/limitbook/internal/repository/order"
	userRepository "github.com/dimasprabowo/limitbook/internal/repository/user"
	"github.com/dimasprabowo/limitbook/internal/router"
	"github.com/dimasprabowo/limitbook/internal/router/middleware"
	"github.com/dimasprabowo/limitbook/internal/usecase/order"
	"github.com/dimasprabowo/limitbook/internal/usecase/user"
	"github.com/dimasprabowo/limitbook/internal/websocket"
	"github.com/dimasprabowo/limitbook/pkg/model"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	tb "github.com/tigerbeetle/tigerbeetle-go"
	tbTypes "github.com/tigerbeetle/tigerbeetle-go/pkg/types"

	_ "github.com/lib/pq"
)

func mapToWsTrade(symbol string, trade model.Trade) websocket.Trade {
	side := "buy"
	if trade.Side == model.ASK {
		side = "sell"
	}
	return websocket.Trade{
		Symbol: symbol,
		Price:  trade.Price,
		Qty:    trade.Quantity,
		Side:   side,
		Ts:     trade.Timestamp.UnixMilli(),
	}
}

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := log.Default()
	if err := godotenv.Load(); err != nil {
		logger.Fatal("Error loading .env file")
	}

	ticker := os.Getenv("TICKER")
	if ticker == "" {
		ticker = "BBCA"
	}

	tbAddress := os.Getenv("TB_ADDRESS")
	if tbAddress == "" {
		tbAddress = "3001"
	}
	tbClusterID, err := strconv.ParseUint(os.Getenv("TB_CLUSTER_ID"), 0, 64)
	if err != nil {
		tbClusterID = 1
	}
	tbClient, err := tb.NewClient(tbTypes.ToUint128(tbClusterID), []string{tbAddress})
	if err != nil {
		logger.Fatalf("tigerbeetle client init: %v", err)
	}
	defer tbClient.Close()

	hub := websocket.NewHub(logger)
	go hub.Run(rootCtx)

	serveMux := http.NewServeMux()
	serveMux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		websocket.ServeWS(hub, w, r)
	})

	pgInfo := fmt.Sprintf(
		"user=%s password=%s host=%s port=%s dbname=%s sslmode=disable",
		os.Getenv("DB_USER"), os.Getenv("DB_PASSWORD"), os.Getenv("DB_HOST"),
		os.Getenv("DB_PORT"), os.Getenv("DB_NAME"),
	)
	db, err := sqlx.Connect("postgres", pgInfo)
	if err != nil {
		logger.Fatalf("error connecting postgres: %v", err)
	}

	book := engine.NewOrderBookEngine()
	orderRepo := orderRepository.NewOrderRepository()
	userRepo := userRepository.NewUserRepository()
	ledgerRepo := ledgerRepository.NewLedgerRepository()

	orderUseCase := order.NewOrderUseCase(order.OrderUseCaseOpts{
		Book:       book,
		Ticker:     ticker,
		TbClient:   tbClient,
		OrderRepo:  orderRepo,
		LedgerRepo: ledgerRepo,
		Db:         db,
	})
	userUseCase := user.NewUserUseCase(user.UserUseCaseOpts{
		UserRepo:   userRepo,
		LedgerRepo: ledgerRepo,
		TbClient:   tbClient,
		Db:         db,
	})
	tokenMaker := middleware.NewJWTMaker(os.Getenv("JWT_SECRET"))

	router.BindRouter(router.BindRouterOpts{
		ServerRouter: serveMux,
		OrderUseCase: orderUseCase,
		TokenMaker:   tokenMaker,
		UserUseCase:  userUseCase,
	})
	logger.Println("finished binding router")

	orderUseCase.RegisterTradeHandler(func(trade model.Trade) {
		hub.PublishTrade(mapToWsTrade(ticker, trade))
		hub.PublishTopOfBook(ticker, book.GetTopOfBook())
	})

	server := http.Server{
		Addr:    ":8080",
		Handler: router.Cors(serveMux),
	}

	go func() {
		logger.Printf("HTTP server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen error: %v", err)
		}
	}()

	<-rootCtx.Done()
	logger.Println("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v; forcing close", err)
		_ = server.Close()
	}

	logger.Println("server stopped")
}
