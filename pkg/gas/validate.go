package gas

import (
	"github.com/shopspring/decimal"

	"github.com/lisanmuaddib/wallet-go/pkg/wallet"
)

// Warning codes for custom price validation. Warnings allow submission;
// errors block it.
const (
	// WarnPriceBelowSlow means the transaction may stall behind the slow tier
	WarnPriceBelowSlow = "PRICE_BELOW_SLOW"
	// WarnPriceAboveCeiling means the price exceeds 2.5x the fast tier
	WarnPriceAboveCeiling = "PRICE_ABOVE_CEILING"
)

// overpayFactor is the multiple of the fast tier above which a custom price
// is flagged as overpaying.
var overpayFactor = decimal.NewFromFloat(2.5)

// ValidateCustomPrice checks a user-entered custom gas price against the
// current table before it is committed. It runs entirely locally; no network
// call is made.
//
// Rules:
//   - zero or negative price: rejected
//   - above the network's maximum price: rejected
//   - floorGwei set (replace-by-fee): anything below max(floor, normal tier)
//     is rejected
//   - below the slow tier: allowed with WarnPriceBelowSlow
//   - above 2.5x the fast tier: allowed with WarnPriceAboveCeiling
//
// Parameters:
//   - gwei: Entered custom price in gwei
//   - floorGwei: Optional minimum required price (nil when not replacing)
//   - maxGwei: Optional network price ceiling (nil when unbounded)
//   - table: Current price table; may be nil before the first refresh
//
// Returns:
//   - string: Warning code, empty when the price is unremarkable
//   - error: Validation error when the price must be rejected
func ValidateCustomPrice(gwei decimal.Decimal, floorGwei, maxGwei *decimal.Decimal, table *Table) (string, error) {
	if gwei.Sign() <= 0 {
		return "", wallet.NewWalletError(wallet.ErrCodeGasPriceZero, "invalid amount", nil, "")
	}
	if maxGwei != nil && gwei.GreaterThan(*maxGwei) {
		return "", wallet.NewWalletError(wallet.ErrCodeInvalidGasPrice, "price above network maximum of "+maxGwei.String()+" gwei", nil, "")
	}

	if floorGwei != nil {
		minimum := *floorGwei
		if normal := table.Get(TierNormal); normal != nil && normal.Gwei.GreaterThan(minimum) {
			minimum = normal.Gwei
		}
		if gwei.LessThan(minimum) {
			return "", wallet.NewWalletError(wallet.ErrCodeGasPriceTooLow, "price below required minimum of "+minimum.String()+" gwei", nil, "")
		}
	}

	if slow := table.Get(TierSlow); slow != nil && gwei.LessThan(slow.Gwei) {
		return WarnPriceBelowSlow, nil
	}
	if fast := table.Get(TierFast); fast != nil && gwei.GreaterThan(fast.Gwei.Mul(overpayFactor)) {
		return WarnPriceAboveCeiling, nil
	}
	return "", nil
}
