package txparse

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/lisanmuaddib/wallet-go/pkg/wallet"
)

// ParseTransactions merges a batch of raw indexer records with the locally
// known pending and final transactions for one account. Pending entries that
// the batch supersedes are dropped, raw records are normalized, and the
// result is deduplicated by hash and ordered newest-first.
//
// Parameters:
//   - account: The owning account's address
//   - network: Network the records belong to
//   - raw: Batch of provider records from the chain indexer
//   - pending: Locally known pending transactions
//   - existing: Previously parsed final transactions
//   - nativeRate: Native-asset rate used for display amounts
//
// Returns:
//   - []Transaction: The merged, deduplicated, sorted transaction list
func ParseTransactions(account string, network wallet.NetworkType, raw []RawRecord, pending []Transaction, existing []Transaction, nativeRate decimal.Decimal) []Transaction {
	stillPending := partitionPending(raw, pending)

	parsed := make([]Transaction, 0, len(raw))
	for _, r := range raw {
		parsed = append(parsed, normalizeRecord(account, network, r, nativeRate))
	}

	// Priority on duplicate hashes: freshly parsed wins over still-pending,
	// which wins over previously stored entries.
	merged := dedupeByHash(parsed, stillPending, existing)

	sort.SliceStable(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		if a.Pending != b.Pending {
			return a.Pending // pending entries sort to the top
		}
		if !a.MinedAt.Equal(b.MinedAt) {
			return a.MinedAt.After(b.MinedAt)
		}
		return a.Nonce > b.Nonce
	})

	return merged
}

// partitionPending returns the pending transactions not superseded by the
// incoming batch. A pending transaction is superseded when an incoming record
// shares its hash prefix, or originates from the same address with a
// greater-or-equal nonce.
func partitionPending(raw []RawRecord, pending []Transaction) []Transaction {
	still := make([]Transaction, 0, len(pending))
	for _, p := range pending {
		superseded := false
		for _, r := range raw {
			if strings.HasPrefix(strings.ToLower(r.Hash), strings.ToLower(p.Hash)) {
				superseded = true
				break
			}
			if sameAddress(r.From, p.From) && r.Nonce >= p.Nonce {
				superseded = true
				break
			}
		}
		if !superseded {
			still = append(still, p)
		}
	}
	return still
}

// normalizeRecord maps one provider record onto the canonical entity. Status
// codes account for direction, protocol and final state.
func normalizeRecord(account string, network wallet.NetworkType, r RawRecord, nativeRate decimal.Decimal) Transaction {
	txType := r.TxType
	if txType == "" {
		if sameAddress(r.To, account) && !sameAddress(r.From, account) {
			txType = TypeReceive
		} else {
			txType = TypeSend
		}
	}
	// Protocol-specific transfers surface as deposits/withdrawals rather
	// than plain sends.
	if r.Protocol != ProtocolNone && (txType == TypeSend || txType == TypeReceive) {
		if sameAddress(r.From, account) {
			txType = TypeDeposit
		} else {
			txType = TypeWithdraw
		}
	}

	native := r.Value.Mul(nativeRate)
	return Transaction{
		Hash:          r.Hash,
		From:          r.From,
		To:            r.To,
		Nonce:         r.Nonce,
		Status:        finalStatus(txType, sameAddress(r.From, r.To), r.Successful),
		Type:          txType,
		Protocol:      r.Protocol,
		Pending:       false,
		MinedAt:       r.MinedAt,
		AssetSymbol:   r.AssetSymbol,
		Amount:        r.Value,
		Native:        native,
		NativeDisplay: native.StringFixed(2),
		Network:       network,
	}
}

// dedupeByHash concatenates the groups in priority order and keeps the first
// occurrence of every hash.
func dedupeByHash(groups ...[]Transaction) []Transaction {
	seen := make(map[string]struct{})
	var out []Transaction
	for _, group := range groups {
		for _, tx := range group {
			key := strings.ToLower(tx.Hash)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, tx)
		}
	}
	return out
}
