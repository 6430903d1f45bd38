// Package txparse converts raw chain-indexer records and fresh broadcasts
// into the canonical transaction entity, reconciles them with locally pending
// entries, and keeps the merged history deduplicated and ordered.
package txparse

import (
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/lisanmuaddib/wallet-go/pkg/wallet"
)

// TxType classifies what a transaction does.
type TxType string

const (
	TypeSend     TxType = "send"
	TypeReceive  TxType = "receive"
	TypeApprove  TxType = "approve"
	TypeDeposit  TxType = "deposit"
	TypeWithdraw TxType = "withdraw"
	TypeSwap     TxType = "swap"
)

// Protocol identifies the on-chain protocol a transaction interacted with,
// when the indexer can tell. Plain transfers carry no protocol.
type Protocol string

const (
	ProtocolNone     Protocol = ""
	ProtocolCompound Protocol = "compound"
	ProtocolUniswap  Protocol = "uniswap"
)

// Status is the user-facing state verb of a transaction. Pending entries use
// in-flight verbs, final entries completed ones.
type Status string

const (
	StatusSending     Status = "sending"
	StatusReceiving   Status = "receiving"
	StatusApproving   Status = "approving"
	StatusDepositing  Status = "depositing"
	StatusWithdrawing Status = "withdrawing"
	StatusSwapping    Status = "swapping"
	StatusSpeedingUp  Status = "speeding_up"
	StatusCancelling  Status = "cancelling"

	StatusSent      Status = "sent"
	StatusReceived  Status = "received"
	StatusApproved  Status = "approved"
	StatusDeposited Status = "deposited"
	StatusWithdrew  Status = "withdrew"
	StatusSwapped   Status = "swapped"
	StatusSelf      Status = "self"
	StatusFailed    Status = "failed"
	StatusUnknown   Status = "unknown"
)

// Transaction is the canonical transaction entity shared by the engine, the
// watcher and the history store.
type Transaction struct {
	Hash          string
	From          string
	To            string
	Nonce         uint64
	Status        Status
	Type          TxType
	Protocol      Protocol
	Pending       bool
	MinedAt       time.Time
	GasPriceGwei  decimal.Decimal
	AssetSymbol   string
	Amount        decimal.Decimal
	Native        decimal.Decimal
	NativeDisplay string
	Network       wallet.NetworkType
}

// RawRecord is the provider-specific shape returned by the chain indexer.
// Hashes may carry "-N" log-index suffixes appended by the indexer.
type RawRecord struct {
	Hash        string          `json:"hash"`
	From        string          `json:"address_from"`
	To          string          `json:"address_to"`
	Nonce       uint64          `json:"nonce"`
	Value       decimal.Decimal `json:"value"`
	Successful  bool            `json:"successful"`
	MinedAt     time.Time       `json:"mined_at"`
	Protocol    Protocol        `json:"protocol"`
	TxType      TxType          `json:"type"`
	AssetSymbol string          `json:"asset_symbol"`
}

// NewPendingTransaction builds the canonical record for a freshly broadcast
// transaction, carrying the in-flight status verb for its type.
func NewPendingTransaction(b *wallet.Broadcast, txType TxType, protocol Protocol, assetSymbol string, amount decimal.Decimal, network wallet.NetworkType) Transaction {
	return Transaction{
		Hash:        b.Hash.Hex(),
		From:        b.From.Hex(),
		To:          b.To.Hex(),
		Nonce:       b.Nonce,
		Status:      pendingStatus(txType),
		Type:        txType,
		Protocol:    protocol,
		Pending:     true,
		AssetSymbol: assetSymbol,
		Amount:      amount,
		Network:     network,
	}
}

func pendingStatus(txType TxType) Status {
	switch txType {
	case TypeApprove:
		return StatusApproving
	case TypeDeposit:
		return StatusDepositing
	case TypeWithdraw:
		return StatusWithdrawing
	case TypeSwap:
		return StatusSwapping
	case TypeReceive:
		return StatusReceiving
	default:
		return StatusSending
	}
}

// finalStatus maps a transaction's type and direction onto the completed
// status verb. A failed receipt overrides everything.
func finalStatus(txType TxType, toSelf bool, successful bool) Status {
	if !successful {
		return StatusFailed
	}
	switch txType {
	case TypeApprove:
		return StatusApproved
	case TypeDeposit:
		return StatusDeposited
	case TypeWithdraw:
		return StatusWithdrew
	case TypeSwap:
		return StatusSwapped
	case TypeReceive:
		return StatusReceived
	case TypeSend:
		if toSelf {
			return StatusSelf
		}
		return StatusSent
	default:
		return StatusUnknown
	}
}

// Confirm flips a pending transaction to its final state in place.
func (t *Transaction) Confirm(minedAt time.Time, successful bool) {
	t.Pending = false
	t.MinedAt = minedAt
	toSelf := strings.EqualFold(t.From, t.To)
	t.Status = finalStatus(t.Type, toSelf, successful)
}

// sameAddress compares two hex addresses case-insensitively.
func sameAddress(a, b string) bool {
	return common.HexToAddress(a) == common.HexToAddress(b)
}
