// Seeds the instruments table and provisions one TigerBeetle ledger with an
// escrow account per instrument. Run once against a fresh cluster.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	ledgerRepository "github.com/dimasprabowo/limitbook/internal/repository/ledger"
	"github.com/dimasprabowo/limitbook/pkg/model"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	tb "github.com/tigerbeetle/tigerbeetle-go"
	tbTypes "github.com/tigerbeetle/tigerbeetle-go/pkg/types"
)

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Fatal("Error loading .env file")
	}

	pgInfo := fmt.Sprintf(
		"user=%s password=%s host=%s port=%s dbname=%s sslmode=disable",
		os.Getenv("DB_USER"), os.Getenv("DB_PASSWORD"), os.Getenv("DB_HOST"),
		os.Getenv("DB_PORT"), os.Getenv("DB_NAME"),
	)
	db, err := sqlx.Connect("postgres", pgInfo)
	if err != nil {
		log.Fatalf("error connecting postgres: %v", err)
	}

	tbAddress := os.Getenv("TB_ADDRESS")
	if tbAddress == "" {
		tbAddress = "3001"
	}
	client, err := tb.NewClient(tbTypes.ToUint128(1), []string{tbAddress})
	if err != nil {
		log.Fatalf("error connecting tigerbeetle: %v", err)
	}
	defer client.Close()

	type instrumentInit struct {
		Ticker     string
		TBLedgerID int64
	}
	instruments := []instrumentInit{
		{Ticker: model.CASH_TICKER, TBLedgerID: model.CASH_LEDGER},
		{Ticker: "BBCA", TBLedgerID: 20},
		{Ticker: "BTC", TBLedgerID: 30},
	}

	ledgerRepo := ledgerRepository.NewLedgerRepository()
	tx := db.MustBeginTx(rootCtx, nil)
	defer tx.Rollback()

	escrowAccounts := make([]tbTypes.Account, 0, len(instruments))
	for i, instrument := range instruments {
		escrowAccountID := tbTypes.ID()
		accountBigInt := escrowAccountID.BigInt()
		if _, err := ledgerRepo.CreateInstrument(rootCtx, tx, instrument.Ticker, instrument.TBLedgerID, accountBigInt.String()); err != nil {
			log.Fatalf("error creating instrument %s: %v", instrument.Ticker, err)
		}

		// escrow may owe; users may not
		escrowAccounts = append(escrowAccounts, tbTypes.Account{
			ID:     escrowAccountID,
			Code:   1001,
			Ledger: uint32(instrument.TBLedgerID),
			Flags: tbTypes.AccountFlags{
				Linked:  i < len(instruments)-1,
				History: true,
			}.ToUint16(),
		})
	}

	results, err := client.CreateAccounts(escrowAccounts)
	if err != nil {
		log.Fatalf("error creating escrow accounts: %v", err)
	}
	if len(results) > 0 {
		for _, accountError := range results {
			log.Printf("escrow account %d rejected: %s", accountError.Index, accountError.Result)
		}
		log.Fatal("escrow provisioning failed")
	}

	if err := tx.Commit(); err != nil {
		log.Fatalf("error committing seed: %v", err)
	}

	for _, instrument := range instruments {
		log.Printf("seeded instrument %s on ledger %d", instrument.Ticker, instrument.TBLedgerID)
	}
}
