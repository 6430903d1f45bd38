package rap

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/lisanmuaddib/wallet-go/pkg/gas"
	"github.com/lisanmuaddib/wallet-go/pkg/history"
	"github.com/lisanmuaddib/wallet-go/pkg/txparse"
	"github.com/lisanmuaddib/wallet-go/pkg/wallet"
)

// bumpFactor is the minimum replace-by-fee price increase most nodes accept.
var bumpFactor = decimal.NewFromFloat(1.1)

// Replacer rebroadcasts a pending transaction at a higher price, reusing its
// nonce so the replacement and the original compete for the same slot.
type Replacer struct {
	node wallet.NodeClient
	deps *Dependencies
}

// NewReplacer wires a replacer over the node connection and shared action
// dependencies.
func NewReplacer(node wallet.NodeClient, deps *Dependencies) *Replacer {
	return &Replacer{node: node, deps: deps}
}

// ReplacementFloor returns the minimum price in gwei a replacement for the
// given pending transaction must carry: a ten percent bump over the original,
// raised to the normal tier when the market has moved past it.
func (r *Replacer) ReplacementFloor(tx txparse.Transaction) decimal.Decimal {
	floor := tx.GasPriceGwei.Mul(bumpFactor)
	if table := r.deps.Gas.CurrentTable(); table != nil && table.Normal != nil && table.Normal.Gwei.GreaterThan(floor) {
		return table.Normal.Gwei
	}
	return floor
}

// SpeedUp rebroadcasts the pending transaction unchanged except for the gas
// price. The new price must clear ReplacementFloor. Returns the replacement
// broadcast and any validation warning.
func (r *Replacer) SpeedUp(ctx context.Context, tx txparse.Transaction, newPriceGwei decimal.Decimal) (*Result, string, error) {
	floor := tx.GasPriceGwei.Mul(bumpFactor)
	warning, err := gas.ValidateCustomPrice(newPriceGwei, &floor, r.deps.Gas.MaxPriceGwei(), r.deps.Gas.CurrentTable())
	if err != nil {
		return nil, warning, err
	}

	orig, _, err := r.node.TransactionByHash(ctx, common.HexToHash(tx.Hash))
	if err != nil {
		return nil, warning, wallet.NewWalletError(wallet.ErrCodeRPCError, "failed to fetch original transaction", err, r.deps.Network)
	}

	nonce := tx.Nonce
	res, err := r.replace(ctx, tx, wallet.TxParams{
		To:       *orig.To(),
		Value:    orig.Value(),
		Data:     orig.Data(),
		GasLimit: orig.Gas(),
		GasPrice: gas.GweiToWei(newPriceGwei),
		Nonce:    &nonce,
	}, newPriceGwei, txparse.StatusSpeedingUp)
	return res, warning, err
}

// Cancel replaces the pending transaction with a zero-value transfer to the
// wallet's own address at the new price, burning the nonce so the original
// can never mine. The new price must clear ReplacementFloor.
func (r *Replacer) Cancel(ctx context.Context, tx txparse.Transaction, newPriceGwei decimal.Decimal) (*Result, string, error) {
	floor := tx.GasPriceGwei.Mul(bumpFactor)
	warning, err := gas.ValidateCustomPrice(newPriceGwei, &floor, r.deps.Gas.MaxPriceGwei(), r.deps.Gas.CurrentTable())
	if err != nil {
		return nil, warning, err
	}

	nonce := tx.Nonce
	res, err := r.replace(ctx, tx, wallet.TxParams{
		To:       r.deps.Signer.Address(),
		Value:    big.NewInt(0),
		Data:     nil,
		GasLimit: GasLimitTransfer,
		GasPrice: gas.GweiToWei(newPriceGwei),
		Nonce:    &nonce,
	}, newPriceGwei, txparse.StatusCancelling)
	return res, warning, err
}

// replace broadcasts the replacement, rewrites the stored record under the
// new hash and status, and publishes the supersession.
func (r *Replacer) replace(ctx context.Context, tx txparse.Transaction, params wallet.TxParams, priceGwei decimal.Decimal, status txparse.Status) (*Result, error) {
	broadcast, err := r.deps.Signer.SignAndBroadcast(ctx, params)
	if err != nil {
		return nil, err
	}

	account := r.deps.Signer.Address().Hex()
	oldHash := tx.Hash

	tx.Hash = broadcast.Hash.Hex()
	tx.Status = status
	tx.GasPriceGwei = priceGwei

	if err := r.updateRecord(ctx, account, oldHash, tx); err != nil {
		r.deps.Logger.WithError(err).WithField("tx_hash", tx.Hash).Error("Failed to update replaced transaction record")
	}
	if err := r.deps.Emitter.Emit(ctx, history.TransactionEvent{
		Kind:      history.EventSuperseded,
		Account:   account,
		Network:   string(r.deps.Network),
		Hash:      oldHash,
		Nonce:     tx.Nonce,
		Status:    tx.Status,
		Timestamp: time.Now(),
	}); err != nil {
		r.deps.Logger.WithError(err).Debug("Failed to emit supersession event")
	}
	if r.deps.Watch != nil {
		r.deps.Watch.Notify(ctx)
	}

	return &Result{Nonce: broadcast.Nonce, Hash: broadcast.Hash}, nil
}

// updateRecord swaps the stored entry matching oldHash for the updated
// transaction, preserving list order.
func (r *Replacer) updateRecord(ctx context.Context, account, oldHash string, updated txparse.Transaction) error {
	txs, err := r.deps.History.GetTransactions(ctx, account, r.deps.Network)
	if err != nil {
		return err
	}
	for i := range txs {
		if txs[i].Hash == oldHash {
			txs[i] = updated
			return r.deps.History.SaveTransactions(ctx, account, r.deps.Network, txs)
		}
	}
	return r.deps.History.AppendTransaction(ctx, account, r.deps.Network, updated)
}
