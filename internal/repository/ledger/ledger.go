package ledger

import (
	"context"
	"math/big"
	"time"

	"github.com/jmoiron/sqlx"
)

// Instrument maps a ticker to its TigerBeetle ledger and escrow account.
type Instrument struct {
	ID              int64     `db:"id"`
	Ticker          string    `db:"ticker"`
	TBLedgerID      int64     `db:"tb_ledger_id"`
	EscrowAccountID string    `db:"escrow_account_id"`
	CreatedAt       time.Time `db:"created_at"`
}

// UserLedger maps a user to their TigerBeetle account on one instrument's
// ledger.
type UserLedger struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	LedgerID    int64     `db:"ledger_id"`
	TBAccountID string    `db:"tb_account_id"`
	TBLedgerID  int64     `db:"tb_ledger_id"` // joined from instrument
	IsEscrow    bool      `db:"is_escrow"`
	CreatedAt   time.Time `db:"created_at"`
}

type LedgerRepository interface {
	CreateInstrument(ctx context.Context, tx *sqlx.Tx, ticker string, tbLedgerID int64, escrowAccountID string) (int64, error)
	GetInstrumentByID(ctx context.Context, tx *sqlx.Tx, id int64) (*Instrument, error)
	GetInstrumentByTicker(ctx context.Context, tx *sqlx.Tx, ticker string) (*Instrument, error)
	ListInstruments(ctx context.Context, tx *sqlx.Tx) ([]Instrument, error)

	CreateUserLedger(ctx context.Context, tx *sqlx.Tx, userID int64, ledgerID int64, tbAccountID *big.Int, isEscrow bool) (int64, error)
	GetUserLedger(ctx context.Context, tx *sqlx.Tx, userID int64, ledgerID int64) (*UserLedger, error)
	ListUserLedgers(ctx context.Context, tx *sqlx.Tx, userID int64) ([]UserLedger, error)
}

type ledgerRepositoryImpl struct{}

func NewLedgerRepository() LedgerRepository {
	return &ledgerRepositoryImpl{}
}

func (r *ledgerRepositoryImpl) CreateInstrument(ctx context.Context, tx *sqlx.Tx, ticker string, tbLedgerID int64, escrowAccountID string) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx,
		`INSERT INTO instruments (ticker, tb_ledger_id, escrow_account_id) VALUES ($1, $2, $3) RETURNING id`,
		ticker, tbLedgerID, escrowAccountID,
	).Scan(&id)
	return id, err
}

func (r *ledgerRepositoryImpl) GetInstrumentByID(ctx context.Context, tx *sqlx.Tx, id int64) (*Instrument, error) {
	var inst Instrument
	err := tx.GetContext(ctx, &inst,
		`SELECT id, ticker, tb_ledger_id, escrow_account_id, created_at FROM instruments WHERE id=$1`, id)
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

func (r *ledgerRepositoryImpl) GetInstrumentByTicker(ctx context.Context, tx *sqlx.Tx, ticker string) (*Instrument, error) {
	var inst Instrument
	err := tx.GetContext(ctx, &inst,
		`SELECT id, ticker, tb_ledger_id, escrow_account_id, created_at FROM instruments WHERE ticker=$1`, ticker)
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

func (r *ledgerRepositoryImpl) ListInstruments(ctx context.Context, tx *sqlx.Tx) ([]Instrument, error) {
	var list []Instrument
	err := tx.SelectContext(ctx, &list,
		`SELECT id, ticker, tb_ledger_id, escrow_account_id, created_at FROM instruments ORDER BY id`)
	return list, err
}

func (r *ledgerRepositoryImpl) CreateUserLedger(ctx context.Context, tx *sqlx.Tx, userID int64, ledgerID int64, tbAccountID *big.Int, isEscrow bool) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx,
		`INSERT INTO users_ledger (user_id, ledger_id, tb_account_id, is_escrow)
         VALUES ($1, $2, $3, $4) RETURNING id`,
		userID, ledgerID, tbAccountID.String(), isEscrow,
	).Scan(&id)
	return id, err
}

func (r *ledgerRepositoryImpl) GetUserLedger(ctx context.Context, tx *sqlx.Tx, userID int64, ledgerID int64) (*UserLedger, error) {
	var ul UserLedger
	err := tx.GetContext(ctx, &ul,
		`SELECT ul.id, ul.user_id, ul.ledger_id, ul.tb_account_id, ul.is_escrow, ul.created_at,
                i.tb_ledger_id
         FROM users_ledger ul
         JOIN instruments i ON i.id = ul.ledger_id
         WHERE ul.user_id=$1 AND ul.ledger_id=$2`,
		userID, ledgerID)
	if err != nil {
		return nil, err
	}
	return &ul, nil
}

func (r *ledgerRepositoryImpl) ListUserLedgers(ctx context.Context, tx *sqlx.Tx, userID int64) ([]UserLedger, error) {
	var list []UserLedger
	err := tx.SelectContext(ctx, &list,
		`SELECT ul.id, ul.user_id, ul.ledger_id, ul.tb_account_id, ul.is_escrow, ul.created_at,
                i.tb_ledger_id
         FROM users_ledger ul
         JOIN instruments i ON i.id = ul.ledger_id
         WHERE ul.user_id=$1
         ORDER BY ul.ledger_id`,
		userID)
	return list, err
}
