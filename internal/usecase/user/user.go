package user

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/dimasprabowo/limitbook/internal/repository/ledger"
	repository "github.com/dimasprabowo/limitbook/internal/repository/user"
	"github.com/dimasprabowo/limitbook/pkg/model"
	"github.com/dimasprabowo/limitbook/pkg/util"
	"github.com/jmoiron/sqlx"
	tb "github.com/tigerbeetle/tigerbeetle-go"
	tbTypes "github.com/tigerbeetle/tigerbeetle-go/pkg/types"
)

type UserProfile struct {
	*repository.User
	CashBalance string // smallest currency units, credits minus debits
}

type UserUseCase interface {
	// Register creates the user and provisions one TigerBeetle account per
	// instrument ledger, as a linked batch.
	Register(ctx context.Context, username, password string) (int64, error)
	Login(ctx context.Context, username, password string) (*repository.User, error)
	GetProfile(ctx context.Context, userID int64) (*UserProfile, error)
}

type userUseCaseImpl struct {
	repo       repository.UserRepository
	ledgerRepo ledger.LedgerRepository
	tbClient   tb.Client
	db         *sqlx.DB
}

type UserUseCaseOpts struct {
	UserRepo   repository.UserRepository
	LedgerRepo ledger.LedgerRepository
	TbClient   tb.Client
	Db         *sqlx.DB
}

func NewUserUseCase(opts UserUseCaseOpts) UserUseCase {
	return &userUseCaseImpl{
		repo:       opts.UserRepo,
		ledgerRepo: opts.LedgerRepo,
		tbClient:   opts.TbClient,
		db:         opts.Db,
	}
}

func (uc *userUseCaseImpl) Register(ctx context.Context, username, password string) (int64, error) {
	if existing, _ := uc.repo.GetByUsername(ctx, uc.db, username); existing != nil {
		return 0, errors.New("username already exists")
	}

	tx := uc.db.MustBeginTx(ctx, nil)
	defer tx.Rollback()

	userID, err := uc.repo.Create(ctx, tx, username, password)
	if err != nil {
		return 0, err
	}

	instruments, err := uc.ledgerRepo.ListInstruments(ctx, tx)
	if err != nil {
		return 0, err
	}

	accounts := make([]tbTypes.Account, 0, len(instruments))
	for i, instrument := range instruments {
		accountID := tbTypes.ID()
		accountBigInt := accountID.BigInt()

		// users cannot go negative on any ledger
		flags := tbTypes.AccountFlags{
			DebitsMustNotExceedCredits: true,
			History:                    true,
			Linked:                     i < len(instruments)-1,
		}.ToUint16()

		accounts = append(accounts, tbTypes.Account{
			ID:     accountID,
			Ledger: uint32(instrument.TBLedgerID),
			Code:   1,
			Flags:  flags,
		})

		if _, err := uc.ledgerRepo.CreateUserLedger(ctx, tx, userID, instrument.ID, &accountBigInt, false); err != nil {
			return 0, err
		}
	}

	results, err := uc.tbClient.CreateAccounts(accounts)
	if err != nil {
		return 0, err
	}
	if len(results) > 0 {
		return 0, fmt.Errorf("provisioning accounts: %d of %d rejected, first: %s",
			len(results), len(accounts), results[0].Result)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return userID, nil
}

func (uc *userUseCaseImpl) Login(ctx context.Context, username, password string) (*repository.User, error) {
	return uc.repo.VerifyPassword(ctx, uc.db, username, password)
}

func (uc *userUseCaseImpl) GetProfile(ctx context.Context, userID int64) (*UserProfile, error) {
	u, err := uc.repo.GetByID(ctx, uc.db, userID)
	if err != nil {
		return nil, err
	}

	profile := &UserProfile{User: u, CashBalance: "0"}

	tx := uc.db.MustBeginTx(ctx, nil)
	defer tx.Rollback()

	quote, err := uc.ledgerRepo.GetInstrumentByTicker(ctx, tx, model.CASH_TICKER)
	if err != nil {
		return profile, nil // no cash ledger provisioned yet
	}
	account, err := uc.ledgerRepo.GetUserLedger(ctx, tx, userID, quote.ID)
	if err != nil {
		return profile, nil
	}
	accountID, err := util.StringToUint128(account.TBAccountID)
	if err != nil {
		return nil, err
	}

	tbAccounts, err := uc.tbClient.LookupAccounts([]tbTypes.Uint128{accountID})
	if err != nil || len(tbAccounts) == 0 {
		return profile, nil
	}

	credits := tbAccounts[0].CreditsPosted.BigInt()
	debits := tbAccounts[0].DebitsPosted.BigInt()
	profile.CashBalance = new(big.Int).Sub(&credits, &debits).String()
	return profile, nil
}
