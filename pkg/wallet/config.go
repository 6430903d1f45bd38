package wallet

import (
	"math/big"
	"time"
)

// NetworkType represents supported EVM networks
type NetworkType string

const (
	// ETH represents the Ethereum mainnet network
	ETH NetworkType = "ETH"
	// BASE represents the Base network
	BASE NetworkType = "BASE"
	// BSC represents the Binance Smart Chain network
	BSC NetworkType = "BSC"
)

// NetworkConfig holds network-specific configuration parameters for blockchain
// interactions. It defines settings like gas price bounds, retry logic, and
// network identifiers that control how transactions are processed.
type NetworkConfig struct {
	// Type identifies which blockchain network this config is for (e.g. ETH, BSC)
	Type NetworkType

	// RPCURL is the HTTP(S) endpoint for connecting to the network
	RPCURL string

	// ChainID is the unique identifier for the blockchain network
	ChainID int64

	// NativeSymbol is the ticker of the asset used to pay gas (e.g. "ETH")
	NativeSymbol string

	// MaxRetries specifies how many times to retry failed node connections
	MaxRetries int

	// RetryDelay is the duration to wait between retry attempts
	RetryDelay time.Duration

	// MaxGasPrice sets an upper bound on gas price to prevent overpaying.
	// Custom prices above this value are rejected outright.
	MaxGasPrice *big.Int
}

// DefaultNetworkConfigs returns pre-configured settings for supported
// blockchain networks. It provides sensible defaults for Ethereum mainnet,
// Base, and Binance Smart Chain.
//
// The defaults include:
// - Conservative gas price ceilings
// - 3 retry attempts with 1 second delay
//
// Example usage:
//
//	configs := DefaultNetworkConfigs()
//	ethConfig := configs[0] // Ethereum mainnet config
func DefaultNetworkConfigs() []NetworkConfig {
	return []NetworkConfig{
		{
			Type:         ETH,
			ChainID:      1,
			NativeSymbol: "ETH",
			MaxRetries:   3,
			RetryDelay:   time.Second,
			MaxGasPrice:  big.NewInt(300000000000), // 300 gwei
		},
		{
			Type:         BASE,
			ChainID:      8453,
			NativeSymbol: "ETH",
			MaxRetries:   3,
			RetryDelay:   time.Second,
			MaxGasPrice:  big.NewInt(100000000000), // 100 gwei
		},
		{
			Type:         BSC,
			ChainID:      56,
			NativeSymbol: "BNB",
			MaxRetries:   3,
			RetryDelay:   time.Second,
			MaxGasPrice:  big.NewInt(5000000000), // 5 gwei
		},
	}
}
