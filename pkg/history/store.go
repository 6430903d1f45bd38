// Package history persists the canonical transaction list per account and
// network, and publishes transaction lifecycle events.
package history

import (
	"context"
	"sync"

	"github.com/lisanmuaddib/wallet-go/pkg/txparse"
	"github.com/lisanmuaddib/wallet-go/pkg/wallet"
)

// Store is the local persistence consumed by the engine and the watcher.
// Lists are saved and loaded wholesale, keyed by account and network, so a
// reader never observes a partially updated list.
type Store interface {
	// SaveTransactions replaces the account's list atomically.
	SaveTransactions(ctx context.Context, account string, network wallet.NetworkType, txs []txparse.Transaction) error

	// GetTransactions returns the account's list, newest first.
	GetTransactions(ctx context.Context, account string, network wallet.NetworkType) ([]txparse.Transaction, error)

	// AppendTransaction adds one transaction to the front of the account's
	// list, deduplicating by hash.
	AppendTransaction(ctx context.Context, account string, network wallet.NetworkType, tx txparse.Transaction) error

	// ClearTransactions drops the account's local history.
	ClearTransactions(ctx context.Context, account string, network wallet.NetworkType) error
}

// MemoryStore is an in-process Store used in tests and when the engine runs
// without a database.
type MemoryStore struct {
	mu    sync.RWMutex
	lists map[string][]txparse.Transaction
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{lists: make(map[string][]txparse.Transaction)}
}

func storeKey(account string, network wallet.NetworkType) string {
	return account + "/" + string(network)
}

// SaveTransactions implements Store.
func (s *MemoryStore) SaveTransactions(_ context.Context, account string, network wallet.NetworkType, txs []txparse.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := make([]txparse.Transaction, len(txs))
	copy(list, txs)
	s.lists[storeKey(account, network)] = list
	return nil
}

// GetTransactions implements Store.
func (s *MemoryStore) GetTransactions(_ context.Context, account string, network wallet.NetworkType) ([]txparse.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.lists[storeKey(account, network)]
	list := make([]txparse.Transaction, len(stored))
	copy(list, stored)
	return list, nil
}

// AppendTransaction implements Store.
func (s *MemoryStore) AppendTransaction(_ context.Context, account string, network wallet.NetworkType, tx txparse.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := storeKey(account, network)
	list := []txparse.Transaction{tx}
	for _, existing := range s.lists[key] {
		if existing.Hash != tx.Hash {
			list = append(list, existing)
		}
	}
	s.lists[key] = list
	return nil
}

// ClearTransactions implements Store.
func (s *MemoryStore) ClearTransactions(_ context.Context, account string, network wallet.NetworkType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.lists, storeKey(account, network))
	return nil
}
