package gas

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/lisanmuaddib/wallet-go/pkg/wallet"
)

const (
	// DefaultPollInterval is how often the live table is refreshed. A failed
	// refresh neither shortens nor lengthens the next attempt.
	DefaultPollInterval = 15 * time.Second
)

// StoreConfig configures a gas price store.
type StoreConfig struct {
	// Primary is the oracle tried first on every refresh.
	Primary Oracle

	// Secondary is the fallback oracle when the primary fails.
	Secondary Oracle

	// Network the prices apply to.
	Network wallet.NetworkType

	// MaxGasPrice is the network's price ceiling in wei; custom prices above
	// it are rejected. Nil leaves custom prices unbounded.
	MaxGasPrice *big.Int

	// PollInterval overrides DefaultPollInterval when positive.
	PollInterval time.Duration

	// Logger is required.
	Logger *logrus.Logger
}

// Store owns the live gas price table and its polling lifecycle. It is the
// only writer of the table; readers always observe a complete table because
// installs replace it wholesale under the lock.
type Store struct {
	mu       sync.Mutex
	table    *Table
	selected Tier

	primary   Oracle
	secondary Oracle
	network   wallet.NetworkType
	interval  time.Duration
	maxGwei   *decimal.Decimal
	log       *logrus.Logger

	pollMu  sync.Mutex
	polling bool
	pollGen uint64
	timer   *time.Timer
}

// NewStore creates a gas price store.
//
// Parameters:
//   - config: Store configuration; Primary and Logger are required
//
// Returns:
//   - *Store: Initialized store with no table and the normal tier selected
//   - error: Error if required configuration is missing
func NewStore(config StoreConfig) (*Store, error) {
	if config.Primary == nil {
		return nil, wallet.NewWalletError(wallet.ErrCodeOracleUnavailable, "primary oracle is required", nil, config.Network)
	}
	if config.Logger == nil {
		config.Logger = logrus.New()
	}
	interval := config.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	var maxGwei *decimal.Decimal
	if config.MaxGasPrice != nil {
		gwei := WeiToGwei(config.MaxGasPrice)
		maxGwei = &gwei
	}

	return &Store{
		selected:  TierNormal,
		primary:   config.Primary,
		secondary: config.Secondary,
		network:   config.Network,
		interval:  interval,
		maxGwei:   maxGwei,
		log:       config.Logger,
	}, nil
}

// CurrentTable returns a snapshot of the live table, or nil before the first
// successful refresh.
func (s *Store) CurrentTable() *Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Clone()
}

// SelectedTier returns the user's currently selected speed tier.
func (s *Store) SelectedTier() Tier {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// StartPolling begins refreshing the table: one immediate refresh, then one
// every poll interval until StopPolling. Calling it while polling is a no-op.
func (s *Store) StartPolling(ctx context.Context) {
	s.pollMu.Lock()
	if s.polling {
		s.pollMu.Unlock()
		return
	}
	s.polling = true
	s.pollGen++
	gen := s.pollGen
	s.pollMu.Unlock()

	s.log.WithFields(logrus.Fields{
		"network":  s.network,
		"interval": s.interval.String(),
	}).Info("Starting gas price polling")

	go s.pollOnce(ctx, gen)
}

// StopPolling cancels the next scheduled refresh. A refresh already in flight
// completes but its result is discarded, so a stopped store never installs a
// stale table.
func (s *Store) StopPolling() {
	s.pollMu.Lock()
	defer s.pollMu.Unlock()

	s.polling = false
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.log.WithField("network", s.network).Info("Stopped gas price polling")
}

// pollOnce runs one refresh belonging to poll session gen. The generation
// check keeps a stop/restart during an in-flight fetch from leaving two
// timer chains alive: a fetch from a superseded session discards its result
// and never re-arms.
func (s *Store) pollOnce(ctx context.Context, gen uint64) {
	s.pollMu.Lock()
	stale := !s.polling || gen != s.pollGen || ctx.Err() != nil
	s.pollMu.Unlock()
	if stale {
		return
	}

	table, err := s.fetchTable(ctx)

	s.pollMu.Lock()
	if !s.polling || gen != s.pollGen || ctx.Err() != nil {
		// Stopped or restarted while the fetch was in flight; discard.
		s.pollMu.Unlock()
		return
	}
	if err == nil {
		s.install(table)
	} else {
		s.log.WithError(err).WithField("network", s.network).Warn("Gas price refresh failed, keeping stale table")
	}
	// Re-arm regardless of outcome. At most one timer is outstanding.
	s.timer = time.AfterFunc(s.interval, func() { s.pollOnce(ctx, gen) })
	s.pollMu.Unlock()
}

// Refresh fetches and installs a new table immediately, outside the polling
// schedule. Used at startup and by callers that need fresh prices now.
func (s *Store) Refresh(ctx context.Context) error {
	table, err := s.fetchTable(ctx)
	if err != nil {
		return err
	}
	s.install(table)
	return nil
}

// fetchTable tries the primary oracle, then the secondary. Both failing is an
// oracle-unavailable error; the caller decides whether stale data stands in.
func (s *Store) fetchTable(ctx context.Context) (*Table, error) {
	prices, err := s.primary.FetchPrices(ctx)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"network": s.network,
			"oracle":  s.primary.Name(),
		}).Warn("Primary gas oracle failed")

		if s.secondary == nil {
			return nil, wallet.NewWalletError(wallet.ErrCodeOracleUnavailable, "primary oracle failed and no secondary configured", err, s.network)
		}
		prices, err = s.secondary.FetchPrices(ctx)
		if err != nil {
			return nil, wallet.NewWalletError(wallet.ErrCodeOracleUnavailable, "all gas oracles failed", err, s.network)
		}
	}
	return Normalize(prices), nil
}

// install replaces the live table, carrying the existing custom entry forward
// so user input survives provider refreshes.
func (s *Store) install(table *Table) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.table != nil && s.table.Custom != nil {
		table.Custom = s.table.Custom
	}
	s.table = table
}

// UpdateCustomValue validates and installs a custom gas price without waiting
// for the next poll cycle. The confirmation wait is looked up from the
// oracles; when neither can answer, it is interpolated against the current
// tier boundaries.
//
// Parameters:
//   - ctx: Context for the oracle lookup
//   - gwei: Custom price in gwei; must be positive
//
// Returns:
//   - *Table: Snapshot of the table including the new custom entry
//   - error: Validation error when gwei is zero, negative, or above the
//     network's maximum price
func (s *Store) UpdateCustomValue(ctx context.Context, gwei decimal.Decimal) (*Table, error) {
	if gwei.Sign() <= 0 {
		return nil, wallet.NewWalletError(wallet.ErrCodeGasPriceZero, "invalid amount", nil, s.network)
	}
	if s.maxGwei != nil && gwei.GreaterThan(*s.maxGwei) {
		return nil, wallet.NewWalletError(wallet.ErrCodeInvalidGasPrice, "price above network maximum of "+s.maxGwei.String()+" gwei", nil, s.network)
	}

	wait := s.estimateWait(ctx, gwei)
	entry := NewEntry(TierCustom, gwei, wait)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.table == nil {
		s.table = &Table{Fast: entry} // fast must always resolve
	}
	table := s.table.Clone()
	table.Custom = entry
	s.table = table
	return table.Clone(), nil
}

// MaxPriceGwei returns the network's configured price ceiling in gwei, or
// nil when custom prices are unbounded.
func (s *Store) MaxPriceGwei() *decimal.Decimal {
	if s.maxGwei == nil {
		return nil
	}
	gwei := *s.maxGwei
	return &gwei
}

// ClearCustomValue removes the custom entry; the next SelectTier(custom)
// falls back to fast.
func (s *Store) ClearCustomValue() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.table == nil || s.table.Custom == nil {
		return
	}
	table := s.table.Clone()
	table.Custom = nil
	s.table = table
}

func (s *Store) estimateWait(ctx context.Context, gwei decimal.Decimal) time.Duration {
	if wait, err := s.primary.EstimateWait(ctx, gwei); err == nil {
		return wait
	}
	if s.secondary != nil {
		if wait, err := s.secondary.EstimateWait(ctx, gwei); err == nil {
			return wait
		}
	}
	return s.interpolateWait(gwei)
}

// interpolateWait places a price between the current tier boundaries and
// reuses the neighboring tier's wait estimate.
func (s *Store) interpolateWait(gwei decimal.Decimal) time.Duration {
	s.mu.Lock()
	table := s.table
	s.mu.Unlock()

	if table == nil || table.Fast == nil {
		return 0
	}
	switch {
	case gwei.GreaterThanOrEqual(table.Fast.Gwei):
		return table.Fast.Wait
	case table.Normal != nil && gwei.GreaterThanOrEqual(table.Normal.Gwei):
		return table.Normal.Wait
	case table.Slow != nil:
		return table.Slow.Wait
	default:
		return table.Fast.Wait
	}
}

// SelectTier records the user's tier selection and computes the resulting
// transaction fee. A custom selection with no custom entry falls back to the
// fast tier.
//
// Parameters:
//   - tier: Requested speed tier
//   - gasLimit: Gas limit of the transaction being priced
//   - nativeRate: Native-asset price in the user's display currency
//   - balanceWei: The user's spendable native-asset balance in wei
//
// Returns:
//   - *TxFeeEstimate: Displayable fee for the resolved tier
//   - bool: Whether balanceWei covers the required fee
//   - error: Error when no table has been fetched yet
func (s *Store) SelectTier(tier Tier, gasLimit uint64, nativeRate decimal.Decimal, balanceWei decimal.Decimal) (*TxFeeEstimate, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.table == nil {
		return nil, false, wallet.NewWalletError(wallet.ErrCodeOracleUnavailable, "no gas prices available", nil, s.network)
	}

	entry := s.table.Get(tier)
	if entry == nil {
		entry = s.table.Fast
		tier = TierFast
	}
	s.selected = tier

	estimate := ComputeFee(entry, gasLimit, nativeRate)
	sufficient := balanceWei.GreaterThanOrEqual(decimal.NewFromBigInt(estimate.Wei, 0))
	return estimate, sufficient, nil
}
