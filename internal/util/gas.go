package util

import (
	"fmt"
	"math/big"

	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/shopspring/decimal"
)

// ExtractGasCost computes gasUsed * effectiveGasPrice from a mined
// transaction receipt, the figure recorded on every TransactionRecord.
func ExtractGasCost(receipt *gethtypes.Receipt) (decimal.Decimal, error) {
	if receipt == nil {
		return decimal.Zero, fmt.Errorf("nil receipt")
	}
	if receipt.EffectiveGasPrice == nil {
		return decimal.Zero, fmt.Errorf("receipt missing effective gas price")
	}
	cost := new(big.Int).Mul(new(big.Int).SetUint64(receipt.GasUsed), receipt.EffectiveGasPrice)
	return decimal.NewFromBigInt(cost, 0), nil
}
