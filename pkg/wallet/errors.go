// Package wallet provides the signing and node-access primitives used by the
// transaction engine: typed errors, network configuration, a Signer capability
// and a narrow node client interface.
package wallet

import (
	"fmt"
)

// Error codes for engine operations
const (
	// ErrCodeInvalidNetwork indicates the specified network is not supported
	ErrCodeInvalidNetwork = "INVALID_NETWORK"
	// ErrCodeInvalidAddress indicates an invalid blockchain address format
	ErrCodeInvalidAddress = "INVALID_ADDRESS"
	// ErrCodeInvalidPrivateKey indicates an invalid or malformed private key
	ErrCodeInvalidPrivateKey = "INVALID_PRIVATE_KEY"
	// ErrCodeBroadcastFailed indicates a transaction failed to broadcast
	ErrCodeBroadcastFailed = "BROADCAST_FAILED"
	// ErrCodeNonceTooLow indicates transaction nonce is too low
	ErrCodeNonceTooLow = "NONCE_TOO_LOW"
	// ErrCodeInsufficientFunds indicates insufficient balance for transaction
	ErrCodeInsufficientFunds = "INSUFFICIENT_FUNDS"
	// ErrCodeRPCError indicates an RPC connection or call failed
	ErrCodeRPCError = "RPC_ERROR"
	// ErrCodeTimeout indicates operation timed out
	ErrCodeTimeout = "TIMEOUT"
	// ErrCodeOracleUnavailable indicates no gas oracle could be reached
	ErrCodeOracleUnavailable = "ORACLE_UNAVAILABLE"
	// ErrCodeGasPriceZero indicates a custom gas price of zero was entered
	ErrCodeGasPriceZero = "GAS_PRICE_ZERO"
	// ErrCodeGasPriceTooLow indicates a gas price below the required floor
	ErrCodeGasPriceTooLow = "GAS_PRICE_TOO_LOW"
	// ErrCodeInvalidGasPrice indicates a malformed gas price value
	ErrCodeInvalidGasPrice = "INVALID_GAS_PRICE"
	// ErrCodeRapAborted indicates a pipeline stopped before running all actions
	ErrCodeRapAborted = "RAP_ABORTED"
	// ErrCodeChainMismatch indicates chain ID mismatch
	ErrCodeChainMismatch = "CHAIN_MISMATCH"
)

// WalletError represents an engine-specific error with additional context
// about the error type, message, underlying error and network.
type WalletError struct {
	Code    string      // Error code identifying the type of error
	Message string      // Human readable error message
	Err     error       // Underlying error if any
	Network NetworkType // Network where the error occurred
}

// Error implements the error interface for WalletError.
// It formats the error message including the code, message, network (if present)
// and underlying error.
func (e *WalletError) Error() string {
	if e.Network != "" {
		return fmt.Sprintf("[%s] %s on network %s: %v", e.Code, e.Message, e.Network, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
}

// Unwrap returns the underlying error.
// This implements the errors.Unwrap interface for error wrapping.
func (e *WalletError) Unwrap() error {
	return e.Err
}

// NewWalletError creates a new WalletError with the given parameters.
//
// Parameters:
//   - code: Error code identifying the type of error
//   - message: Human readable error message
//   - err: Underlying error if any
//   - network: Network where the error occurred
//
// Returns:
//   - *WalletError: A new wallet error instance
func NewWalletError(code string, message string, err error, network NetworkType) *WalletError {
	return &WalletError{
		Code:    code,
		Message: message,
		Err:     err,
		Network: network,
	}
}

// IsWalletError checks if an error is a WalletError and matches the given code.
//
// Parameters:
//   - err: Error to check
//   - code: Error code to match against
//
// Returns:
//   - bool: true if err is a WalletError with matching code, false otherwise
func IsWalletError(err error, code string) bool {
	if err == nil {
		return false
	}
	if e, ok := err.(*WalletError); ok {
		return e.Code == code
	}
	return false
}
