// Package app assembles the engine's services into one runnable unit: the
// gas price store, the pending transaction watcher, the rap engine and the
// replacer, wired so every broadcast wakes the watcher.
package app

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/lisanmuaddib/wallet-go/pkg/gas"
	"github.com/lisanmuaddib/wallet-go/pkg/history"
	"github.com/lisanmuaddib/wallet-go/pkg/rap"
	"github.com/lisanmuaddib/wallet-go/pkg/txwatch"
	"github.com/lisanmuaddib/wallet-go/pkg/wallet"
)

// Config wires an App's collaborators.
type Config struct {
	Node    wallet.NodeClient
	Signer  wallet.Signer
	Gas     *gas.Store
	History history.Store
	Emitter history.Emitter
	Account common.Address
	Network wallet.NetworkType
	Logger  *logrus.Logger

	// WatchInterval between confirmation checks; the watcher default when zero.
	WatchInterval time.Duration
}

// App owns the long-running services and exposes the engine surface callers
// drive raps and replacements through.
type App struct {
	Engine   *rap.Engine
	Replacer *rap.Replacer
	Watcher  *txwatch.Watcher

	gas *gas.Store
	log *logrus.Logger
}

// New builds the service graph. The watcher is registered as the broadcast
// notifier, so a transaction sent after the pending list has drained is
// picked up without waiting for an external trigger.
func New(cfg Config) (*App, error) {
	if cfg.Node == nil || cfg.Signer == nil || cfg.Gas == nil || cfg.History == nil {
		return nil, wallet.NewWalletError(wallet.ErrCodeInvalidNetwork, "app requires node, signer, gas store and history store", nil, cfg.Network)
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Emitter == nil {
		cfg.Emitter = history.NopEmitter{}
	}

	watcher := txwatch.New(txwatch.Config{
		Node:     cfg.Node,
		Store:    cfg.History,
		Emitter:  cfg.Emitter,
		Account:  cfg.Account,
		Network:  cfg.Network,
		Logger:   cfg.Logger,
		Interval: cfg.WatchInterval,
	})

	deps := &rap.Dependencies{
		Signer:  cfg.Signer,
		Gas:     cfg.Gas,
		History: cfg.History,
		Emitter: cfg.Emitter,
		Network: cfg.Network,
		Logger:  cfg.Logger,
		Watch:   watcher,
	}

	return &App{
		Engine:   rap.NewEngine(cfg.Node, deps),
		Replacer: rap.NewReplacer(cfg.Node, deps),
		Watcher:  watcher,
		gas:      cfg.Gas,
		log:      cfg.Logger,
	}, nil
}

// Start launches gas price polling and the transaction watcher.
func (a *App) Start(ctx context.Context) {
	a.gas.StartPolling(ctx)
	a.Watcher.Start(ctx)
}

// Stop halts the watcher and gas polling. In-flight work finishes normally.
func (a *App) Stop() {
	a.Watcher.Stop()
	a.gas.StopPolling()
	a.log.Info("Wallet services stopped")
}
