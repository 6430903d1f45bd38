// Package gas implements the fee-market subsystem: oracle clients that fetch
// provider-specific price data, a normalizer onto the canonical tier table,
// a polling store that owns the live table, and fee estimation.
package gas

import (
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// Tier is one of the preset speed/cost levels, ordered by increasing cost and
// decreasing wait.
type Tier string

const (
	// TierSlow is the cheapest preset price level
	TierSlow Tier = "slow"
	// TierNormal is the middle preset price level
	TierNormal Tier = "normal"
	// TierFast is the most expensive preset price level
	TierFast Tier = "fast"
	// TierCustom is a user-supplied price outside the presets
	TierCustom Tier = "custom"
)

var (
	weiPerGwei = decimal.New(1, 9)  // 1e9
	weiPerEth  = decimal.New(1, 18) // 1e18
)

// Entry is an immutable snapshot of one tier's price. Entries are replaced
// wholesale on each poll; only the custom entry survives a refresh.
type Entry struct {
	Tier        Tier
	Gwei        decimal.Decimal
	Wei         *big.Int
	GweiDisplay string
	Wait        time.Duration
	WaitDisplay string
}

// Table maps tiers to their current price entries. Fast is always present on
// a non-nil table; Custom may be nil until the user sets one.
type Table struct {
	Slow   *Entry
	Normal *Entry
	Fast   *Entry
	Custom *Entry
}

// Get returns the entry for a tier, or nil when unset.
func (t *Table) Get(tier Tier) *Entry {
	if t == nil {
		return nil
	}
	switch tier {
	case TierSlow:
		return t.Slow
	case TierNormal:
		return t.Normal
	case TierFast:
		return t.Fast
	case TierCustom:
		return t.Custom
	default:
		return nil
	}
}

// Clone returns a shallow copy of the table. Entries are immutable so sharing
// them between clones is safe.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// ProviderPrices is the provider-independent intermediate shape every oracle
// normalizes its payload into. Prices are in gwei; a zero SafeLow means the
// provider did not report one.
type ProviderPrices struct {
	Fast     decimal.Decimal
	Average  decimal.Decimal
	SafeLow  decimal.Decimal
	FastWait time.Duration
	AvgWait  time.Duration
	SlowWait time.Duration
}

// Normalize converts provider prices into a canonical table. The fast tier
// takes the provider's fast price, normal takes average, and slow takes
// safeLow, falling back to average for providers that only report a
// fastest/fast/average triple.
func Normalize(p *ProviderPrices) *Table {
	slowGwei := p.SafeLow
	slowWait := p.SlowWait
	if slowGwei.IsZero() {
		slowGwei = p.Average
		slowWait = p.AvgWait
	}

	return &Table{
		Slow:   NewEntry(TierSlow, slowGwei, slowWait),
		Normal: NewEntry(TierNormal, p.Average, p.AvgWait),
		Fast:   NewEntry(TierFast, p.Fast, p.FastWait),
	}
}

// NewEntry builds an immutable price entry for a tier from a gwei price and
// an estimated confirmation wait.
func NewEntry(tier Tier, gwei decimal.Decimal, wait time.Duration) *Entry {
	return &Entry{
		Tier:        tier,
		Gwei:        gwei,
		Wei:         GweiToWei(gwei),
		GweiDisplay: fmt.Sprintf("%s Gwei", gwei.String()),
		Wait:        wait,
		WaitDisplay: formatWait(wait),
	}
}

// GweiToWei converts a gwei amount to wei, truncating sub-wei precision.
func GweiToWei(gwei decimal.Decimal) *big.Int {
	return gwei.Mul(weiPerGwei).BigInt()
}

// WeiToGwei converts a wei amount to gwei.
func WeiToGwei(wei *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(wei, 0).Div(weiPerGwei)
}

func formatWait(wait time.Duration) string {
	if wait <= 0 {
		return "—"
	}
	if wait < time.Minute {
		return "< 1 min"
	}
	minutes := int(wait.Round(time.Minute) / time.Minute)
	return fmt.Sprintf("~ %d min", minutes)
}
