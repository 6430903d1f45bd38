package wallet

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
)

// NodeClient is the subset of node RPC operations the engine depends on.
// *ethclient.Client satisfies it; tests substitute in-memory fakes.
type NodeClient interface {
	// PendingNonceAt returns the next nonce for an account, counting
	// transactions still in the mempool.
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)

	// TransactionByHash returns the transaction for a hash along with
	// whether it is still pending inclusion in a block.
	TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error)

	// TransactionReceipt returns the receipt of a mined transaction.
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)

	// SendTransaction broadcasts a signed transaction to the network.
	SendTransaction(ctx context.Context, tx *types.Transaction) error

	// ChainID returns the chain identifier used for replay-protected signing.
	ChainID(ctx context.Context) (*big.Int, error)

	// BalanceAt returns the native-asset balance of an account in wei.
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// Dial connects to the network RPC endpoint in config with retry.
// It will retry failed connection attempts based on the network configuration.
//
// Parameters:
//   - ctx: Context for connection attempts
//   - log: Logger for retry diagnostics
//   - config: Network configuration including RPC URL and retry policy
//
// Returns:
//   - *ethclient.Client: Connected client
//   - error: Error if all attempts fail
func Dial(ctx context.Context, log *logrus.Logger, config NetworkConfig) (*ethclient.Client, error) {
	var client *ethclient.Client
	var err error

	for i := 0; i <= config.MaxRetries; i++ {
		client, err = ethclient.DialContext(ctx, config.RPCURL)
		if err == nil {
			return client, nil
		}

		if i < config.MaxRetries {
			log.WithFields(logrus.Fields{
				"network": config.Type,
				"attempt": i + 1,
				"error":   err,
			}).Debug("Retrying network connection")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(config.RetryDelay):
			}
		}
	}

	return nil, NewWalletError(ErrCodeRPCError, "failed to connect to network", err, config.Type)
}
