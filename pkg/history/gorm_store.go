package history

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/lisanmuaddib/wallet-go/pkg/txparse"
	"github.com/lisanmuaddib/wallet-go/pkg/wallet"
)

// TransactionRecord is the database row for one canonical transaction.
type TransactionRecord struct {
	ID            uint64          `gorm:"primaryKey;autoIncrement"`
	Account       string          `gorm:"column:account;type:varchar(64);not null;index:idx_account_network;uniqueIndex:idx_account_hash"`
	Network       string          `gorm:"column:network;type:varchar(16);not null;index:idx_account_network"`
	Hash          string          `gorm:"column:hash;type:varchar(80);not null;uniqueIndex:idx_account_hash"`
	FromAddress   string          `gorm:"column:from_address;type:varchar(64);not null"`
	ToAddress     string          `gorm:"column:to_address;type:varchar(64)"`
	Nonce         uint64          `gorm:"column:nonce;not null"`
	Status        string          `gorm:"column:status;type:varchar(24);not null"`
	TxType        string          `gorm:"column:tx_type;type:varchar(16);not null"`
	Protocol      string          `gorm:"column:protocol;type:varchar(24)"`
	Pending       bool            `gorm:"column:pending;not null;index"`
	MinedAt       *time.Time      `gorm:"column:mined_at"`
	GasPriceGwei  decimal.Decimal `gorm:"column:gas_price_gwei;type:decimal(32,9)"`
	AssetSymbol   string          `gorm:"column:asset_symbol;type:varchar(16)"`
	Amount        decimal.Decimal `gorm:"column:amount;type:decimal(32,18)"`
	Native        decimal.Decimal `gorm:"column:native;type:decimal(32,18)"`
	NativeDisplay string          `gorm:"column:native_display;type:varchar(32)"`
	Position      int             `gorm:"column:position;not null"`
	UpdatedAt     time.Time       `gorm:"column:updated_at"`
}

// TableName specifies the table name for GORM
func (TransactionRecord) TableName() string {
	return "transactions"
}

// GormStore implements Store on a relational database.
type GormStore struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewGormStore creates a database-backed transaction store.
func NewGormStore(logger *logrus.Logger, db *gorm.DB) *GormStore {
	return &GormStore{db: db, logger: logger}
}

// SaveTransactions implements Store. The account's rows are replaced inside
// one database transaction so readers never see a partial list.
func (s *GormStore) SaveTransactions(ctx context.Context, account string, network wallet.NetworkType, txs []txparse.Transaction) error {
	return s.db.WithContext(ctx).Transaction(func(dbTx *gorm.DB) error {
		if err := dbTx.Where("account = ? AND network = ?", account, network).
			Delete(&TransactionRecord{}).Error; err != nil {
			return err
		}
		if len(txs) == 0 {
			return nil
		}

		records := make([]TransactionRecord, 0, len(txs))
		for i, tx := range txs {
			records = append(records, toRecord(account, tx, i))
		}
		return dbTx.Create(&records).Error
	})
}

// GetTransactions implements Store.
func (s *GormStore) GetTransactions(ctx context.Context, account string, network wallet.NetworkType) ([]txparse.Transaction, error) {
	var records []TransactionRecord
	err := s.db.WithContext(ctx).
		Where("account = ? AND network = ?", account, network).
		Order("position asc").
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	txs := make([]txparse.Transaction, 0, len(records))
	for _, r := range records {
		txs = append(txs, fromRecord(r))
	}
	return txs, nil
}

// AppendTransaction implements Store.
func (s *GormStore) AppendTransaction(ctx context.Context, account string, network wallet.NetworkType, tx txparse.Transaction) error {
	existing, err := s.GetTransactions(ctx, account, network)
	if err != nil {
		return err
	}

	list := []txparse.Transaction{tx}
	for _, e := range existing {
		if e.Hash != tx.Hash {
			list = append(list, e)
		}
	}
	return s.SaveTransactions(ctx, account, network, list)
}

// ClearTransactions implements Store.
func (s *GormStore) ClearTransactions(ctx context.Context, account string, network wallet.NetworkType) error {
	return s.db.WithContext(ctx).
		Where("account = ? AND network = ?", account, network).
		Delete(&TransactionRecord{}).Error
}

func toRecord(account string, tx txparse.Transaction, position int) TransactionRecord {
	var minedAt *time.Time
	if !tx.MinedAt.IsZero() {
		t := tx.MinedAt
		minedAt = &t
	}
	return TransactionRecord{
		Account:       account,
		Network:       string(tx.Network),
		Hash:          tx.Hash,
		FromAddress:   tx.From,
		ToAddress:     tx.To,
		Nonce:         tx.Nonce,
		Status:        string(tx.Status),
		TxType:        string(tx.Type),
		Protocol:      string(tx.Protocol),
		Pending:       tx.Pending,
		MinedAt:       minedAt,
		GasPriceGwei:  tx.GasPriceGwei,
		AssetSymbol:   tx.AssetSymbol,
		Amount:        tx.Amount,
		Native:        tx.Native,
		NativeDisplay: tx.NativeDisplay,
		Position:      position,
		UpdatedAt:     time.Now(),
	}
}

func fromRecord(r TransactionRecord) txparse.Transaction {
	tx := txparse.Transaction{
		Hash:          r.Hash,
		From:          r.FromAddress,
		To:            r.ToAddress,
		Nonce:         r.Nonce,
		Status:        txparse.Status(r.Status),
		Type:          txparse.TxType(r.TxType),
		Protocol:      txparse.Protocol(r.Protocol),
		Pending:       r.Pending,
		GasPriceGwei:  r.GasPriceGwei,
		AssetSymbol:   r.AssetSymbol,
		Amount:        r.Amount,
		Native:        r.Native,
		NativeDisplay: r.NativeDisplay,
		Network:       wallet.NetworkType(r.Network),
	}
	if r.MinedAt != nil {
		tx.MinedAt = *r.MinedAt
	}
	return tx
}
