package order

import (
	"context"
	"math/big"
	"time"

	"github.com/jmoiron/sqlx"
)

type OrderRecord struct {
	ID           uint64     `db:"id"` // engine-assigned order id
	UserID       int64      `db:"user_id"`
	InstrumentID int64      `db:"instrument_id"`
	Side         int16      `db:"side"` // 0 = BID, 1 = ASK
	Quantity     uint64     `db:"quantity"`
	Price        uint64     `db:"price"`
	IsActive     bool       `db:"is_active"`
	CreatedAt    time.Time  `db:"created_at"`
	ClosedAt     *time.Time `db:"closed_at"`
}

type TradeRecord struct {
	ID               int64     `db:"id"`
	InstrumentID     int64     `db:"instrument_id"`
	MakerOrderID     uint64    `db:"maker_order_id"`
	TakerOrderID     uint64    `db:"taker_order_id"`
	AggressorSide    int16     `db:"aggressor_side"`
	Seq              uint64    `db:"seq"`   // engine execution sequence
	Quantity         uint64    `db:"quantity"`
	Price            uint64    `db:"price"` // always the maker's price
	LedgerTransferID *big.Int  `db:"ledger_transfer_id"`
	TradedAt         time.Time `db:"traded_at"`
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, tx *sqlx.Tx, order OrderRecord) error
	CloseOrder(ctx context.Context, tx *sqlx.Tx, orderID uint64, closedAt time.Time) error
	GetOrderByID(ctx context.Context, tx *sqlx.Tx, orderID uint64) (*OrderRecord, error)
	ListOrdersByUser(ctx context.Context, tx *sqlx.Tx, userID int64, onlyActive bool) ([]OrderRecord, error)
	CreateTrade(ctx context.Context, tx *sqlx.Tx, trade TradeRecord) error
}

type orderRepositoryImpl struct{}

func NewOrderRepository() OrderRepository {
	return &orderRepositoryImpl{}
}

func (r *orderRepositoryImpl) CreateOrder(ctx context.Context, tx *sqlx.Tx, order OrderRecord) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO orders (id, user_id, instrument_id, side, quantity, price, is_active)
         VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		order.ID, order.UserID, order.InstrumentID, order.Side, order.Quantity, order.Price, order.IsActive)
	return err
}

func (r *orderRepositoryImpl) CloseOrder(ctx context.Context, tx *sqlx.Tx, orderID uint64, closedAt time.Time) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE orders SET is_active=false, closed_at=$1 WHERE id=$2`,
		closedAt, orderID)
	return err
}

func (r *orderRepositoryImpl) GetOrderByID(ctx context.Context, tx *sqlx.Tx, orderID uint64) (*OrderRecord, error) {
	var ord OrderRecord
	err := tx.GetContext(ctx, &ord,
		`SELECT id, user_id, instrument_id, side, quantity, price, is_active, created_at, closed_at
         FROM orders WHERE id=$1`,
		orderID)
	if err != nil {
		return nil, err
	}
	return &ord, nil
}

func (r *orderRepositoryImpl) ListOrdersByUser(ctx context.Context, tx *sqlx.Tx, userID int64, onlyActive bool) ([]OrderRecord, error) {
	query := `SELECT id, user_id, instrument_id, side, quantity, price, is_active, created_at, closed_at
              FROM orders WHERE user_id=$1 ORDER BY created_at DESC`
	if onlyActive {
		query = `SELECT id, user_id, instrument_id, side, quantity, price, is_active, created_at, closed_at
                 FROM orders WHERE user_id=$1 AND is_active=true ORDER BY created_at DESC`
	}
	var orders []OrderRecord
	err := tx.SelectContext(ctx, &orders, query, userID)
	return orders, err
}

func (r *orderRepositoryImpl) CreateTrade(ctx context.Context, tx *sqlx.Tx, trade TradeRecord) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO trades (instrument_id, maker_order_id, taker_order_id, aggressor_side,
                             seq, quantity, price, ledger_transfer_id, traded_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		trade.InstrumentID, trade.MakerOrderID, trade.TakerOrderID, trade.AggressorSide,
		trade.Seq, trade.Quantity, trade.Price,
		trade.LedgerTransferID.String(), trade.TradedAt)
	return err
}
