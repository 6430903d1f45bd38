package rap

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Minimal ABI fragments for the contracts the actions touch. Only the
// functions that are actually packed are declared.
const erc20ApproveABI = `[
	{
		"constant": false,
		"inputs": [
			{"name": "_spender", "type": "address"},
			{"name": "_value", "type": "uint256"}
		],
		"name": "approve",
		"outputs": [{"name": "", "type": "bool"}],
		"type": "function"
	}
]`

const vaultABI = `[
	{
		"constant": false,
		"inputs": [],
		"name": "mint",
		"outputs": [],
		"payable": true,
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [{"name": "mintAmount", "type": "uint256"}],
		"name": "mintWithAmount",
		"outputs": [{"name": "", "type": "uint256"}],
		"type": "function"
	}
]`

const routerABI = `[
	{
		"constant": false,
		"inputs": [
			{"name": "amountIn", "type": "uint256"},
			{"name": "amountOutMin", "type": "uint256"},
			{"name": "path", "type": "address[]"},
			{"name": "to", "type": "address"},
			{"name": "deadline", "type": "uint256"}
		],
		"name": "swapExactTokensForTokens",
		"outputs": [{"name": "amounts", "type": "uint256[]"}],
		"type": "function"
	}
]`

// maxAllowance is the unlimited ERC20 allowance (2^256 - 1). Approvals are
// issued unlimited so a rap never fails on a second run over the same spender.
var maxAllowance = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// packApprove builds calldata for approve(spender, 2^256-1).
func packApprove(spender common.Address) ([]byte, error) {
	parsedABI, err := abi.JSON(strings.NewReader(erc20ApproveABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse approve ABI: %w", err)
	}
	return parsedABI.Pack("approve", spender, maxAllowance)
}

// packMintNative builds calldata for the payable mint() used by native
// deposits. The deposit amount rides in the transaction value.
func packMintNative() ([]byte, error) {
	parsedABI, err := abi.JSON(strings.NewReader(vaultABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse vault ABI: %w", err)
	}
	return parsedABI.Pack("mint")
}

// packMintToken builds calldata for mintWithAmount(amount) used by token
// deposits, where amount is in the token's base units.
func packMintToken(amount *big.Int) ([]byte, error) {
	parsedABI, err := abi.JSON(strings.NewReader(vaultABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse vault ABI: %w", err)
	}
	return parsedABI.Pack("mintWithAmount", amount)
}

// packSwap builds calldata for swapExactTokensForTokens on a Uniswap-style
// router. The path is the direct pair [tokenIn, tokenOut].
func packSwap(amountIn, amountOutMin *big.Int, tokenIn, tokenOut, recipient common.Address, deadline *big.Int) ([]byte, error) {
	parsedABI, err := abi.JSON(strings.NewReader(routerABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse router ABI: %w", err)
	}
	path := []common.Address{tokenIn, tokenOut}
	return parsedABI.Pack("swapExactTokensForTokens", amountIn, amountOutMin, path, recipient, deadline)
}
