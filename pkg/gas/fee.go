package gas

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// TxFeeEstimate is a displayable transaction fee derived from a price entry,
// a gas limit, and a native-currency conversion rate. It is recomputed on
// every gas-limit or tier change and never persisted.
type TxFeeEstimate struct {
	Tier          Tier
	Wei           *big.Int
	Native        decimal.Decimal
	NativeDisplay string
}

// ComputeFee multiplies a tier price by a gas limit and converts the result
// into the user's display currency.
//
// Parameters:
//   - entry: Price entry of the resolved tier
//   - gasLimit: Gas limit of the transaction being priced
//   - nativeRate: Native-asset price in the display currency (e.g. USD/ETH)
//
// Returns:
//   - *TxFeeEstimate: Fee in wei and display currency
func ComputeFee(entry *Entry, gasLimit uint64, nativeRate decimal.Decimal) *TxFeeEstimate {
	feeWei := new(big.Int).Mul(entry.Wei, new(big.Int).SetUint64(gasLimit))

	native := decimal.NewFromBigInt(feeWei, 0).
		Div(weiPerEth).
		Mul(nativeRate)

	return &TxFeeEstimate{
		Tier:          entry.Tier,
		Wei:           feeWei,
		Native:        native,
		NativeDisplay: native.StringFixed(2),
	}
}
