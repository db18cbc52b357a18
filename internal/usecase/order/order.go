package order

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/dimasprabowo/limitbook/internal/engine"
	ledgerRepository "github.com/dimasprabowo/limitbook/internal/repository/ledger"
	orderRepository "github.com/dimasprabowo/limitbook/internal/repository/order"
	"github.com/dimasprabowo/limitbook/internal/router/middleware"
	"github.com/dimasprabowo/limitbook/pkg/model"
	"github.com/dimasprabowo/limitbook/pkg/util"
	"github.com/jmoiron/sqlx"

	tb "github.com/tigerbeetle/tigerbeetle-go"
	tbTypes "github.com/tigerbeetle/tigerbeetle-go/pkg/types"
)

// TradeHandler is invoked for every executed trade after the surrounding
// transaction commits (websocket fan-out in the server binary).
type TradeHandler func(model.Trade)

type OrderUseCase interface {
	// AddOrder reserves funds, submits to the matching engine, persists the
	// order and settles any resulting trades through TigerBeetle.
	AddOrder(ctx context.Context, ticker string, side model.Side, price model.Price, quantity model.Quantity) (engine.SubmitResult, error)

	CancelOrder(ctx context.Context, orderID model.OrderId) error

	// ModifyOrder cancels and resubmits; the result carries the new id.
	ModifyOrder(ctx context.Context, orderID model.OrderId, price model.Price, quantity model.Quantity) (engine.SubmitResult, error)

	GetTopOfBook(ctx context.Context) *model.TopOfBook
	GetMarketDepth(ctx context.Context, levels int) *model.MarketDepth
	ListTrades(ctx context.Context) []model.Trade
	GetOrdersByUser(ctx context.Context, userID int64) ([]orderRepository.OrderRecord, error)

	RegisterTradeHandler(handler TradeHandler)
}

const (
	transferCodeReserveCash  = 1001
	transferCodeReserveAsset = 1002
	transferCodeSettleCash   = 3001
	transferCodeSettleAsset  = 3002
	transferCodeRelease      = 4001
)

type orderUseCaseImpl struct {
	book         engine.OrderBookEngine
	ticker       string // instrument this book trades
	tbClient     tb.Client
	orderRepo    orderRepository.OrderRepository
	ledgerRepo   ledgerRepository.LedgerRepository
	db           *sqlx.DB
	tradeHandler TradeHandler
}

type OrderUseCaseOpts struct {
	Book       engine.OrderBookEngine
	Ticker     string
	TbClient   tb.Client
	OrderRepo  orderRepository.OrderRepository
	LedgerRepo ledgerRepository.LedgerRepository
	Db         *sqlx.DB
}

func NewOrderUseCase(opts OrderUseCaseOpts) OrderUseCase {
	return &orderUseCaseImpl{
		book:       opts.Book,
		ticker:     opts.Ticker,
		tbClient:   opts.TbClient,
		orderRepo:  opts.OrderRepo,
		ledgerRepo: opts.LedgerRepo,
		db:         opts.Db,
	}
}

func (ou *orderUseCaseImpl) RegisterTradeHandler(handler TradeHandler) {
	ou.tradeHandler = handler
}

func claimsFromContext(ctx context.Context) (*middleware.UserClaims, error) {
	claims, ok := ctx.Value(middleware.AuthKey{}).(*middleware.UserClaims)
	if !ok || claims == nil {
		return nil, fmt.Errorf("missing auth claims in context")
	}
	return claims, nil
}

func (ou *orderUseCaseImpl) AddOrder(ctx context.Context, ticker string, side model.Side, price model.Price, quantity model.Quantity) (engine.SubmitResult, error) {
	// Validate before touching funds; the engine re-checks before mutating.
	if price == 0 || quantity == 0 {
		return engine.SubmitResult{}, model.ErrInvalidOrder
	}
	if ticker != ou.ticker {
		return engine.SubmitResult{}, fmt.Errorf("unknown ticker %q, this book trades %q", ticker, ou.ticker)
	}
	claims, err := claimsFromContext(ctx)
	if err != nil {
		return engine.SubmitResult{}, err
	}

	tx := ou.db.MustBeginTx(ctx, nil)
	defer tx.Rollback()

	instrument, err := ou.ledgerRepo.GetInstrumentByTicker(ctx, tx, ticker)
	if err != nil {
		return engine.SubmitResult{}, fmt.Errorf("instrument %s: %w", ticker, err)
	}
	quote, err := ou.ledgerRepo.GetInstrumentByTicker(ctx, tx, model.CASH_TICKER)
	if err != nil {
		return engine.SubmitResult{}, fmt.Errorf("quote instrument: %w", err)
	}

	if err := ou.reserve(ctx, tx, claims.UserId, side, price, quantity, instrument, quote); err != nil {
		return engine.SubmitResult{}, fmt.Errorf("fund reservation: %w", err)
	}

	res, err := ou.book.SubmitOrder(side, price, quantity)
	if err != nil {
		return engine.SubmitResult{}, err
	}

	record := orderRepository.OrderRecord{
		ID:           uint64(res.OrderID),
		UserID:       claims.UserId,
		InstrumentID: instrument.ID,
		Side:         int16(side),
		Quantity:     uint64(quantity),
		Price:        uint64(price),
		IsActive:     res.RestingQuantity > 0,
	}
	if err := ou.orderRepo.CreateOrder(ctx, tx, record); err != nil {
		return engine.SubmitResult{}, fmt.Errorf("inserting order: %w", err)
	}

	for _, trade := range res.Trades {
		if err := ou.settleTrade(ctx, tx, claims.UserId, res.OrderID, trade, instrument, quote); err != nil {
			return res, fmt.Errorf("settling trade seq %d: %w", trade.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return res, err
	}

	if ou.tradeHandler != nil {
		for _, trade := range res.Trades {
			ou.tradeHandler(trade)
		}
	}
	return res, nil
}

// reserve moves the order's worth into escrow: cash for bids, asset for
// asks. GTC orders may rest indefinitely, so the hold is taken up front for
// the full quantity.
func (ou *orderUseCaseImpl) reserve(ctx context.Context, tx *sqlx.Tx, userID int64, side model.Side, price model.Price, quantity model.Quantity, instrument, quote *ledgerRepository.Instrument) error {
	var (
		from   ledgerRepository.Instrument
		amount tbTypes.Uint128
		code   uint16
	)
	switch side {
	case model.BID:
		from, amount, code = *quote, util.CashAmount(price, quantity), transferCodeReserveCash
	case model.ASK:
		from, amount, code = *instrument, util.AssetAmount(quantity), transferCodeReserveAsset
	}

	account, err := ou.ledgerRepo.GetUserLedger(ctx, tx, userID, from.ID)
	if err != nil {
		return err
	}
	userAccount, err := util.StringToUint128(account.TBAccountID)
	if err != nil {
		return err
	}
	escrow, err := util.StringToUint128(from.EscrowAccountID)
	if err != nil {
		return err
	}

	return ou.transfer(tbTypes.Transfer{
		ID:              tbTypes.ID(),
		DebitAccountID:  userAccount,
		CreditAccountID: escrow,
		Amount:          amount,
		Ledger:          uint32(from.TBLedgerID),
		Code:            code,
	})
}

// settleTrade pays the seller from cash escrow and delivers the asset from
// asset escrow to the buyer, as a linked pair.
func (ou *orderUseCaseImpl) settleTrade(ctx context.Context, tx *sqlx.Tx, submitterID int64, submittedID model.OrderId, trade model.Trade, instrument, quote *ledgerRepository.Instrument) error {
	counterpartyOrderID := trade.MakerID
	if counterpartyOrderID == submittedID {
		counterpartyOrderID = trade.TakerID
	}
	counterpartyOrder, err := ou.orderRepo.GetOrderByID(ctx, tx, uint64(counterpartyOrderID))
	if err != nil {
		return fmt.Errorf("counterparty order %d: %w", counterpartyOrderID, err)
	}

	buyerID, sellerID := submitterID, counterpartyOrder.UserID
	if trade.Side == model.ASK {
		// submitter was the aggressing seller
		buyerID, sellerID = counterpartyOrder.UserID, submitterID
	}

	buyerAsset, err := ou.ledgerRepo.GetUserLedger(ctx, tx, buyerID, instrument.ID)
	if err != nil {
		return err
	}
	sellerCash, err := ou.ledgerRepo.GetUserLedger(ctx, tx, sellerID, quote.ID)
	if err != nil {
		return err
	}

	cashEscrow, err := util.StringToUint128(quote.EscrowAccountID)
	if err != nil {
		return err
	}
	assetEscrow, err := util.StringToUint128(instrument.EscrowAccountID)
	if err != nil {
		return err
	}
	sellerCashAccount, err := util.StringToUint128(sellerCash.TBAccountID)
	if err != nil {
		return err
	}
	buyerAssetAccount, err := util.StringToUint128(buyerAsset.TBAccountID)
	if err != nil {
		return err
	}

	cashLeg := tbTypes.Transfer{
		ID:              tbTypes.ID(),
		DebitAccountID:  cashEscrow,
		CreditAccountID: sellerCashAccount,
		Amount:          util.CashAmount(trade.Price, trade.Quantity),
		Ledger:          uint32(quote.TBLedgerID),
		Code:            transferCodeSettleCash,
		Flags:           tbTypes.TransferFlags{Linked: true}.ToUint16(),
	}
	assetLeg := tbTypes.Transfer{
		ID:              tbTypes.ID(),
		DebitAccountID:  assetEscrow,
		CreditAccountID: buyerAssetAccount,
		Amount:          util.AssetAmount(trade.Quantity),
		Ledger:          uint32(instrument.TBLedgerID),
		Code:            transferCodeSettleAsset,
	}
	results, err := ou.tbClient.CreateTransfers([]tbTypes.Transfer{cashLeg, assetLeg})
	if err != nil {
		return fmt.Errorf("settlement transfers: %w", err)
	}
	if len(results) > 0 {
		// CreateTransfers only reports failures
		return fmt.Errorf("settlement transfer %d rejected: %s", results[0].Index, results[0].Result)
	}

	transferID := cashLeg.ID.BigInt()
	tradeRecord := orderRepository.TradeRecord{
		InstrumentID:     instrument.ID,
		MakerOrderID:     uint64(trade.MakerID),
		TakerOrderID:     uint64(trade.TakerID),
		AggressorSide:    int16(trade.Side),
		Seq:              trade.Seq,
		Quantity:         uint64(trade.Quantity),
		Price:            uint64(trade.Price),
		LedgerTransferID: &transferID,
		TradedAt:         trade.Timestamp,
	}
	if err := ou.orderRepo.CreateTrade(ctx, tx, tradeRecord); err != nil {
		return fmt.Errorf("inserting trade: %w", err)
	}

	// close the maker's row once the engine has fully consumed it
	if _, resting := ou.book.RestingQuantity(trade.MakerID); !resting {
		if err := ou.orderRepo.CloseOrder(ctx, tx, uint64(trade.MakerID), time.Now()); err != nil {
			return fmt.Errorf("closing maker order %d: %w", trade.MakerID, err)
		}
	}
	return nil
}

func (ou *orderUseCaseImpl) CancelOrder(ctx context.Context, orderID model.OrderId) error {
	claims, err := claimsFromContext(ctx)
	if err != nil {
		return err
	}

	tx := ou.db.MustBeginTx(ctx, nil)
	defer tx.Rollback()

	record, err := ou.orderRepo.GetOrderByID(ctx, tx, uint64(orderID))
	if err != nil {
		return fmt.Errorf("order %d: %w", orderID, model.ErrUnknownOrder)
	}
	if record.UserID != claims.UserId {
		return fmt.Errorf("order %d does not belong to user %d: %w", orderID, claims.UserId, model.ErrUnknownOrder)
	}

	// remaining quantity before removal drives the escrow release
	remaining, resting := ou.book.RestingQuantity(orderID)
	if !resting {
		return fmt.Errorf("order %d: %w", orderID, model.ErrUnknownOrder)
	}
	if err := ou.book.CancelOrder(orderID); err != nil {
		return err
	}

	if err := ou.release(ctx, tx, record, remaining); err != nil {
		// the engine-side cancel already happened; funds need a manual fix
		log.Printf("releasing reservation for order %d: %v", orderID, err)
	}

	if err := ou.orderRepo.CloseOrder(ctx, tx, uint64(orderID), time.Now()); err != nil {
		return err
	}
	return tx.Commit()
}

// release returns the unfilled part of a cancelled order's reservation from
// escrow to the user.
func (ou *orderUseCaseImpl) release(ctx context.Context, tx *sqlx.Tx, record *orderRepository.OrderRecord, remaining model.Quantity) error {
	instrument, err := ou.ledgerRepo.GetInstrumentByID(ctx, tx, record.InstrumentID)
	if err != nil {
		return err
	}
	quote, err := ou.ledgerRepo.GetInstrumentByTicker(ctx, tx, model.CASH_TICKER)
	if err != nil {
		return err
	}

	var (
		from   ledgerRepository.Instrument
		amount tbTypes.Uint128
	)
	if model.Side(record.Side) == model.BID {
		from, amount = *quote, util.CashAmount(model.Price(record.Price), remaining)
	} else {
		from, amount = *instrument, util.AssetAmount(remaining)
	}

	account, err := ou.ledgerRepo.GetUserLedger(ctx, tx, record.UserID, from.ID)
	if err != nil {
		return err
	}
	userAccount, err := util.StringToUint128(account.TBAccountID)
	if err != nil {
		return err
	}
	escrow, err := util.StringToUint128(from.EscrowAccountID)
	if err != nil {
		return err
	}

	return ou.transfer(tbTypes.Transfer{
		ID:              tbTypes.ID(),
		DebitAccountID:  escrow,
		CreditAccountID: userAccount,
		Amount:          amount,
		Ledger:          uint32(from.TBLedgerID),
		Code:            transferCodeRelease,
	})
}

func (ou *orderUseCaseImpl) transfer(t tbTypes.Transfer) error {
	results, err := ou.tbClient.CreateTransfers([]tbTypes.Transfer{t})
	if err != nil {
		return err
	}
	if len(results) > 0 {
		return fmt.Errorf("transfer %d rejected: %s", results[0].Index, results[0].Result)
	}
	return nil
}

func (ou *orderUseCaseImpl) ModifyOrder(ctx context.Context, orderID model.OrderId, price model.Price, quantity model.Quantity) (engine.SubmitResult, error) {
	claims, err := claimsFromContext(ctx)
	if err != nil {
		return engine.SubmitResult{}, err
	}

	side, err := ou.sideOf(ctx, orderID, claims.UserId)
	if err != nil {
		return engine.SubmitResult{}, err
	}
	if err := ou.CancelOrder(ctx, orderID); err != nil {
		return engine.SubmitResult{}, err
	}
	return ou.AddOrder(ctx, ou.ticker, side, price, quantity)
}

func (ou *orderUseCaseImpl) sideOf(ctx context.Context, orderID model.OrderId, userID int64) (model.Side, error) {
	tx := ou.db.MustBeginTx(ctx, nil)
	defer tx.Rollback()
	record, err := ou.orderRepo.GetOrderByID(ctx, tx, uint64(orderID))
	if err != nil || record.UserID != userID {
		return 0, fmt.Errorf("order %d: %w", orderID, model.ErrUnknownOrder)
	}
	return model.Side(record.Side), nil
}

func (ou *orderUseCaseImpl) GetTopOfBook(ctx context.Context) *model.TopOfBook {
	return ou.book.GetTopOfBook()
}

func (ou *orderUseCaseImpl) GetMarketDepth(ctx context.Context, levels int) *model.MarketDepth {
	return ou.book.GetMarketDepth(levels)
}

func (ou *orderUseCaseImpl) ListTrades(ctx context.Context) []model.Trade {
	trades := make([]model.Trade, 0, ou.book.TradeCount())
	for trade := range ou.book.Trades() {
		trades = append(trades, trade)
	}
	return trades
}

func (ou *orderUseCaseImpl) GetOrdersByUser(ctx context.Context, userID int64) ([]orderRepository.OrderRecord, error) {
	tx := ou.db.MustBeginTx(ctx, nil)
	defer tx.Rollback()
	return ou.orderRepo.ListOrdersByUser(ctx, tx, userID, false)
}
