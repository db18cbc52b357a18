package util

import (
	"fmt"
	"math/big"

	"github.com/dimasprabowo/limitbook/pkg/model"
	tbtypes "github.com/tigerbeetle/tigerbeetle-go/pkg/types"
)

// StringToUint128 parses a decimal-string TigerBeetle account id as stored
// in Postgres.
func StringToUint128(s string) (tbtypes.Uint128, error) {
	bi, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return tbtypes.Uint128{}, fmt.Errorf("invalid uint128 string: %s", s)
	}
	return tbtypes.BigIntToUint128(*bi), nil
}

// CashAmount is the quote-currency value of a (price, quantity) pair in
// smallest currency units.
func CashAmount(price model.Price, quantity model.Quantity) tbtypes.Uint128 {
	amount := new(big.Int).Mul(
		new(big.Int).SetUint64(uint64(price)),
		new(big.Int).SetUint64(uint64(quantity)),
	)
	return tbtypes.BigIntToUint128(*amount)
}

func AssetAmount(quantity model.Quantity) tbtypes.Uint128 {
	return tbtypes.ToUint128(uint64(quantity))
}
