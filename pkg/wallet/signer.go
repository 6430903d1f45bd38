package wallet

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
)

// TxParams describes a transaction to be signed and broadcast. Amounts are in
// wei. Nonce is optional; when nil the signer asks the network for the next
// pending nonce.
type TxParams struct {
	To       common.Address
	Value    *big.Int
	Data     []byte
	GasLimit uint64
	GasPrice *big.Int
	Nonce    *uint64
}

// Broadcast is the result of a successfully accepted transaction. The hash is
// known as soon as the node accepts the broadcast; inclusion in a block is not
// implied.
type Broadcast struct {
	Hash  common.Hash
	Nonce uint64
	To    common.Address
	From  common.Address
}

// Signer is the opaque signing capability the engine consumes. The key
// material behind it is owned elsewhere; implementations must fail closed
// rather than sign with incomplete parameters.
type Signer interface {
	// SignAndBroadcast signs params and submits the transaction to the
	// network, returning the broadcast result or an error. It must not
	// broadcast anything when it returns an error.
	SignAndBroadcast(ctx context.Context, params TxParams) (*Broadcast, error)

	// Address returns the account the signer signs for.
	Address() common.Address
}

// LocalSigner implements Signer with an in-process private key. It signs with
// EIP-155 replay protection against the chain ID reported by the node.
type LocalSigner struct {
	keys    *KeyManager
	node    NodeClient
	network NetworkType
	chainID *big.Int
	log     *logrus.Logger
}

// NewLocalSigner creates a signer backed by keys and node.
// The chain ID is fetched once at construction; a signer is never created
// against a node whose chain ID cannot be verified.
//
// Parameters:
//   - ctx: Context for the chain ID lookup
//   - log: Logger instance
//   - keys: Key manager holding the signing key
//   - node: Node client used for nonce lookup and broadcast
//   - network: Network this signer operates on
//
// Returns:
//   - *LocalSigner: Initialized signer
//   - error: Error if the chain ID lookup fails
func NewLocalSigner(ctx context.Context, log *logrus.Logger, keys *KeyManager, node NodeClient, network NetworkType) (*LocalSigner, error) {
	chainID, err := node.ChainID(ctx)
	if err != nil {
		return nil, NewWalletError(ErrCodeRPCError, "failed to get chain ID", err, network)
	}

	return &LocalSigner{
		keys:    keys,
		node:    node,
		network: network,
		chainID: chainID,
		log:     log,
	}, nil
}

// Address returns the signing account's address.
func (s *LocalSigner) Address() common.Address {
	return s.keys.address
}

// SignAndBroadcast signs the transaction described by params and submits it.
// A nil nonce is resolved against the account's pending nonce at the node.
//
// Parameters:
//   - ctx: Context for nonce lookup and broadcast
//   - params: Transaction parameters
//
// Returns:
//   - *Broadcast: Hash, nonce and recipient of the accepted transaction
//   - error: Error if signing or broadcast fails
func (s *LocalSigner) SignAndBroadcast(ctx context.Context, params TxParams) (*Broadcast, error) {
	if params.GasPrice == nil || params.GasPrice.Sign() <= 0 {
		return nil, NewWalletError(ErrCodeInvalidGasPrice, "gas price must be positive", nil, s.network)
	}
	if params.GasLimit == 0 {
		return nil, NewWalletError(ErrCodeBroadcastFailed, "gas limit must be set", nil, s.network)
	}

	var nonce uint64
	if params.Nonce != nil {
		nonce = *params.Nonce
	} else {
		var err error
		nonce, err = s.node.PendingNonceAt(ctx, s.keys.address)
		if err != nil {
			return nil, NewWalletError(ErrCodeRPCError, "failed to get nonce", err, s.network)
		}
	}

	value := params.Value
	if value == nil {
		value = big.NewInt(0)
	}

	tx := types.NewTransaction(nonce, params.To, value, params.GasLimit, params.GasPrice, params.Data)

	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(s.chainID), s.keys.privateKey)
	if err != nil {
		return nil, NewWalletError(ErrCodeBroadcastFailed, "failed to sign transaction", err, s.network)
	}

	if err := s.node.SendTransaction(ctx, signedTx); err != nil {
		return nil, NewWalletError(ErrCodeBroadcastFailed, "failed to send transaction", err, s.network)
	}

	s.log.WithFields(logrus.Fields{
		"network":   s.network,
		"tx_hash":   signedTx.Hash().Hex(),
		"nonce":     nonce,
		"to":        params.To.Hex(),
		"gas_price": params.GasPrice.String(),
	}).Debug("Transaction broadcast accepted")

	return &Broadcast{
		Hash:  signedTx.Hash(),
		Nonce: nonce,
		To:    params.To,
		From:  s.keys.address,
	}, nil
}
