// Package txwatch tracks broadcast transactions until they are mined. The
// watcher runs a single lazy timer: it ticks only while pending transactions
// exist and goes idle once the list drains, re-arming when a new broadcast
// is announced.
package txwatch

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/lisanmuaddib/wallet-go/pkg/history"
	"github.com/lisanmuaddib/wallet-go/pkg/txparse"
	"github.com/lisanmuaddib/wallet-go/pkg/wallet"
)

// DefaultInterval is the delay between confirmation checks while
// transactions remain pending.
const DefaultInterval = time.Second

// Config wires a watcher's collaborators.
type Config struct {
	Node    wallet.NodeClient
	Store   history.Store
	Emitter history.Emitter
	Account common.Address
	Network wallet.NetworkType
	Logger  *logrus.Logger

	// Interval between checks; DefaultInterval when zero.
	Interval time.Duration
}

// Watcher polls the node for receipts of the account's pending transactions.
// Checks never overlap: one runs at a time, and the next is scheduled only
// after the current one finishes with pending work remaining.
type Watcher struct {
	node     wallet.NodeClient
	store    history.Store
	emitter  history.Emitter
	account  common.Address
	network  wallet.NetworkType
	interval time.Duration
	log      *logrus.Entry

	mu       sync.Mutex
	watching bool
	checking bool
	timer    *time.Timer
}

// New builds a watcher from config, applying defaults.
func New(cfg Config) *Watcher {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Watcher{
		node:     cfg.Node,
		store:    cfg.Store,
		emitter:  cfg.Emitter,
		account:  cfg.Account,
		network:  cfg.Network,
		interval: interval,
		log: cfg.Logger.WithFields(logrus.Fields{
			"component": "tx_watcher",
			"network":   cfg.Network,
		}),
	}
}

// Start begins watching and runs an immediate check. Calling Start on a
// running watcher is a no-op.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	if w.watching {
		w.mu.Unlock()
		return
	}
	w.watching = true
	w.mu.Unlock()

	w.log.WithField("interval", w.interval).Info("Starting transaction watcher")
	go w.check(ctx)
}

// Stop prevents any future check from being scheduled. A check already in
// flight finishes normally; its results are still persisted.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.watching = false
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.log.Info("Stopped transaction watcher")
}

// Notify tells an idle watcher that a new transaction was broadcast. If no
// timer is armed and no check is running, a check starts immediately;
// otherwise the in-flight or scheduled check will pick the transaction up.
func (w *Watcher) Notify(ctx context.Context) {
	w.mu.Lock()
	idle := w.watching && !w.checking && w.timer == nil
	w.mu.Unlock()

	if idle {
		go w.check(ctx)
	}
}

// check inspects every pending transaction once, persists any state
// changes, then re-arms the timer if pending transactions remain.
func (w *Watcher) check(ctx context.Context) {
	w.mu.Lock()
	if !w.watching || w.checking {
		w.mu.Unlock()
		return
	}
	w.checking = true
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()

	remaining := w.checkOnce(ctx)

	w.mu.Lock()
	w.checking = false
	if w.watching && remaining > 0 && ctx.Err() == nil {
		w.timer = time.AfterFunc(w.interval, func() { w.check(ctx) })
	}
	w.mu.Unlock()
}

// checkOnce resolves the account's pending transactions against the node
// and returns how many remain pending. Lookup failures leave a transaction
// pending; only an explicit receipt settles it.
func (w *Watcher) checkOnce(ctx context.Context) int {
	account := w.account.Hex()
	txs, err := w.store.GetTransactions(ctx, account, w.network)
	if err != nil {
		w.log.WithError(err).Error("Failed to load transactions for confirmation check")
		return 1
	}

	remaining := 0
	changed := false
	for i := range txs {
		if !txs[i].Pending {
			continue
		}
		if w.resolve(ctx, &txs[i]) {
			changed = true
		} else {
			remaining++
		}
	}

	if changed {
		if err := w.store.SaveTransactions(ctx, account, w.network, txs); err != nil {
			w.log.WithError(err).Error("Failed to persist confirmed transactions")
		}
	}
	return remaining
}

// resolve checks one pending transaction and reports whether it settled.
// The transaction is mutated in place on confirmation.
func (w *Watcher) resolve(ctx context.Context, tx *txparse.Transaction) bool {
	hash := common.HexToHash(tx.Hash)
	log := w.log.WithField("tx_hash", tx.Hash)

	_, isPending, err := w.node.TransactionByHash(ctx, hash)
	if err != nil {
		log.WithError(err).Debug("Transaction lookup failed, keeping pending")
		return false
	}
	if isPending {
		return false
	}

	receipt, err := w.node.TransactionReceipt(ctx, hash)
	if err != nil {
		log.WithError(err).Debug("Receipt lookup failed, keeping pending")
		return false
	}
	if receipt == nil {
		log.Debug("Receipt not available yet, keeping pending")
		return false
	}

	successful := receipt.Status == 1
	tx.Confirm(time.Now(), successful)

	kind := history.EventConfirmed
	if !successful {
		kind = history.EventFailed
	}
	log.WithFields(logrus.Fields{
		"status": tx.Status,
		"block":  receipt.BlockNumber,
	}).Info("Transaction mined")

	if err := w.emitter.Emit(ctx, history.TransactionEvent{
		Kind:      kind,
		Account:   w.account.Hex(),
		Network:   string(w.network),
		Hash:      tx.Hash,
		Nonce:     tx.Nonce,
		Status:    tx.Status,
		Timestamp: time.Now(),
	}); err != nil {
		log.WithError(err).Debug("Failed to emit confirmation event")
	}
	return true
}
