// Package rap implements the multi-step transaction pipeline: an ordered
// list of on-chain actions executed as one logical operation, with a single
// base nonce allocated up front so every step lands in sequence.
package rap

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/lisanmuaddib/wallet-go/pkg/gas"
	"github.com/lisanmuaddib/wallet-go/pkg/history"
	"github.com/lisanmuaddib/wallet-go/pkg/txparse"
	"github.com/lisanmuaddib/wallet-go/pkg/wallet"
)

// ActionKind identifies a concrete pipeline step implementation.
type ActionKind string

const (
	// KindApprove unlocks a token for spending by a contract
	KindApprove ActionKind = "approve"
	// KindDepositNative deposits the native asset into a yield position
	KindDepositNative ActionKind = "deposit_native"
	// KindDepositToken deposits a token into a yield or liquidity position
	KindDepositToken ActionKind = "deposit_token"
	// KindSwap trades one asset for another through a router
	KindSwap ActionKind = "swap"
)

// Fixed gas limits per action kind. Pipeline steps do not estimate gas; the
// limits are generous enough for the known contract paths.
const (
	GasLimitApprove       uint64 = 250000
	GasLimitDepositNative uint64 = 200000
	GasLimitDepositToken  uint64 = 350000
	GasLimitSwap          uint64 = 500000
	GasLimitTransfer      uint64 = 21000
)

// Parameters is the opaque parameter bag for one user-initiated operation.
// The same bag is passed unchanged to every action in a Rap; each action
// reads the fields relevant to its kind.
type Parameters struct {
	// AssetAddress is the token contract being spent; unused for native deposits.
	AssetAddress common.Address

	// AssetSymbol and AssetDecimals describe the spent asset for display and
	// unit conversion.
	AssetSymbol   string
	AssetDecimals int32

	// Amount is the spent amount in asset units (not wei).
	Amount decimal.Decimal

	// Spender is the contract granted allowance by an approve step.
	Spender common.Address

	// DepositContract receives deposit steps.
	DepositContract common.Address

	// SwapRouter executes swap steps.
	SwapRouter common.Address

	// OutAssetAddress is the asset received from a swap.
	OutAssetAddress common.Address

	// MinAmountOut bounds swap slippage, in out-asset units.
	MinAmountOut decimal.Decimal
	OutDecimals  int32

	// Protocol tags recorded transactions (e.g. compound, uniswap).
	Protocol txparse.Protocol

	// SelectedGasPrice overrides the fast-tier fallback when the user picked
	// a price explicitly.
	SelectedGasPrice *gas.Entry
}

// Notifier is told about every fresh broadcast so the transaction watcher
// can start tracking it, even when its pending list had drained and its
// timer is idle.
type Notifier interface {
	Notify(ctx context.Context)
}

// Dependencies carries the collaborators every action needs. The engine owns
// one set per run; actions never hold references beyond an Execute call.
type Dependencies struct {
	Signer  wallet.Signer
	Gas     *gas.Store
	History history.Store
	Emitter history.Emitter
	Network wallet.NetworkType
	Logger  *logrus.Logger

	// Watch is woken after every broadcast; may be nil in library use.
	Watch Notifier
}

// Result is what an action reports back to the engine: the nonce its
// transaction consumed and the broadcast hash.
type Result struct {
	Nonce uint64
	Hash  common.Hash
}

// Action is one on-chain step of a Rap. Implementations build and broadcast
// their own transaction; the engine sequences them and is the sole mutator
// of Rap state.
type Action interface {
	// Kind identifies the concrete implementation.
	Kind() ActionKind

	// Execute builds, signs and broadcasts the step's transaction. When
	// baseNonce is non-nil the transaction must use baseNonce + index;
	// otherwise the signer assigns the next network nonce. Broadcast
	// failures are returned unchanged, never swallowed.
	Execute(ctx context.Context, deps *Dependencies, params Parameters, index int, baseNonce *uint64) (*Result, error)
}

// resolveGasPrice returns the explicitly selected price when present, else
// the fast tier from the gas store.
func resolveGasPrice(deps *Dependencies, params Parameters) (*gas.Entry, error) {
	if params.SelectedGasPrice != nil {
		return params.SelectedGasPrice, nil
	}
	table := deps.Gas.CurrentTable()
	if table == nil || table.Fast == nil {
		return nil, wallet.NewWalletError(wallet.ErrCodeOracleUnavailable, "no gas price available for action", nil, deps.Network)
	}
	return table.Fast, nil
}

// nonceFor computes the action's nonce from the Rap's base nonce. A nil base
// defers assignment to the signer.
func nonceFor(baseNonce *uint64, index int) *uint64 {
	if baseNonce == nil {
		return nil
	}
	n := *baseNonce + uint64(index)
	return &n
}

// amountToBase converts an asset amount into its smallest on-chain unit.
func amountToBase(amount decimal.Decimal, decimals int32) *big.Int {
	return amount.Shift(decimals).BigInt()
}

// broadcastAndRecord signs and submits the transaction, then immediately
// registers the pending record so the watcher tracks it even if the pipeline
// dies right after. Persistence problems are logged, not returned: the
// transaction is already on the network and failing the action would lie
// about that.
func broadcastAndRecord(ctx context.Context, deps *Dependencies, params wallet.TxParams, price *gas.Entry, txType txparse.TxType, protocol txparse.Protocol, assetSymbol string, amount decimal.Decimal) (*Result, error) {
	broadcast, err := deps.Signer.SignAndBroadcast(ctx, params)
	if err != nil {
		return nil, err
	}

	account := deps.Signer.Address().Hex()
	pending := txparse.NewPendingTransaction(broadcast, txType, protocol, assetSymbol, amount, deps.Network)
	pending.GasPriceGwei = price.Gwei

	if err := deps.History.AppendTransaction(ctx, account, deps.Network, pending); err != nil {
		deps.Logger.WithError(err).WithField("tx_hash", pending.Hash).Error("Failed to record pending transaction")
	}
	if err := deps.Emitter.Emit(ctx, history.TransactionEvent{
		Kind:      history.EventBroadcast,
		Account:   account,
		Network:   string(deps.Network),
		Hash:      pending.Hash,
		Nonce:     pending.Nonce,
		Status:    pending.Status,
		Timestamp: time.Now(),
	}); err != nil {
		deps.Logger.WithError(err).Debug("Failed to emit broadcast event")
	}
	if deps.Watch != nil {
		deps.Watch.Notify(ctx)
	}

	return &Result{Nonce: broadcast.Nonce, Hash: broadcast.Hash}, nil
}
