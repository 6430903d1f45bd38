package rap

import (
	"context"
	"math/big"
	"time"

	"github.com/lisanmuaddib/wallet-go/pkg/txparse"
	"github.com/lisanmuaddib/wallet-go/pkg/wallet"
	"github.com/shopspring/decimal"
)

// swapDeadline bounds how long a swap stays valid in the mempool before the
// router rejects it.
const swapDeadline = 20 * time.Minute

// ApproveAction grants a spender an unlimited allowance over the asset in
// the parameter bag. It is typically the first step of a deposit or swap Rap.
type ApproveAction struct{}

func (a *ApproveAction) Kind() ActionKind { return KindApprove }

func (a *ApproveAction) Execute(ctx context.Context, deps *Dependencies, params Parameters, index int, baseNonce *uint64) (*Result, error) {
	price, err := resolveGasPrice(deps, params)
	if err != nil {
		return nil, err
	}

	data, err := packApprove(params.Spender)
	if err != nil {
		return nil, err
	}

	deps.Logger.WithFields(map[string]interface{}{
		"asset":   params.AssetSymbol,
		"spender": params.Spender.Hex(),
		"index":   index,
	}).Info("Broadcasting approval")

	return broadcastAndRecord(ctx, deps, wallet.TxParams{
		To:       params.AssetAddress,
		Value:    big.NewInt(0),
		Data:     data,
		GasLimit: GasLimitApprove,
		GasPrice: price.Wei,
		Nonce:    nonceFor(baseNonce, index),
	}, price, txparse.TypeApprove, params.Protocol, params.AssetSymbol, decimal.Zero)
}

// DepositNativeAction deposits the network's native asset into a yield
// position. The amount travels in the transaction value, not calldata.
type DepositNativeAction struct{}

func (a *DepositNativeAction) Kind() ActionKind { return KindDepositNative }

func (a *DepositNativeAction) Execute(ctx context.Context, deps *Dependencies, params Parameters, index int, baseNonce *uint64) (*Result, error) {
	price, err := resolveGasPrice(deps, params)
	if err != nil {
		return nil, err
	}

	data, err := packMintNative()
	if err != nil {
		return nil, err
	}

	deps.Logger.WithFields(map[string]interface{}{
		"asset":  params.AssetSymbol,
		"amount": params.Amount.String(),
		"index":  index,
	}).Info("Broadcasting native deposit")

	return broadcastAndRecord(ctx, deps, wallet.TxParams{
		To:       params.DepositContract,
		Value:    amountToBase(params.Amount, params.AssetDecimals),
		Data:     data,
		GasLimit: GasLimitDepositNative,
		GasPrice: price.Wei,
		Nonce:    nonceFor(baseNonce, index),
	}, price, txparse.TypeDeposit, params.Protocol, params.AssetSymbol, params.Amount)
}

// DepositTokenAction deposits an ERC20 token into a yield position. It
// assumes an earlier approve step already granted the deposit contract an
// allowance.
type DepositTokenAction struct{}

func (a *DepositTokenAction) Kind() ActionKind { return KindDepositToken }

func (a *DepositTokenAction) Execute(ctx context.Context, deps *Dependencies, params Parameters, index int, baseNonce *uint64) (*Result, error) {
	price, err := resolveGasPrice(deps, params)
	if err != nil {
		return nil, err
	}

	data, err := packMintToken(amountToBase(params.Amount, params.AssetDecimals))
	if err != nil {
		return nil, err
	}

	deps.Logger.WithFields(map[string]interface{}{
		"asset":  params.AssetSymbol,
		"amount": params.Amount.String(),
		"index":  index,
	}).Info("Broadcasting token deposit")

	return broadcastAndRecord(ctx, deps, wallet.TxParams{
		To:       params.DepositContract,
		Value:    big.NewInt(0),
		Data:     data,
		GasLimit: GasLimitDepositToken,
		GasPrice: price.Wei,
		Nonce:    nonceFor(baseNonce, index),
	}, price, txparse.TypeDeposit, params.Protocol, params.AssetSymbol, params.Amount)
}

// SwapAction trades the input asset for the out asset through a router,
// bounded by the caller-supplied minimum output.
type SwapAction struct{}

func (a *SwapAction) Kind() ActionKind { return KindSwap }

func (a *SwapAction) Execute(ctx context.Context, deps *Dependencies, params Parameters, index int, baseNonce *uint64) (*Result, error) {
	price, err := resolveGasPrice(deps, params)
	if err != nil {
		return nil, err
	}

	deadline := big.NewInt(time.Now().Add(swapDeadline).Unix())
	data, err := packSwap(
		amountToBase(params.Amount, params.AssetDecimals),
		amountToBase(params.MinAmountOut, params.OutDecimals),
		params.AssetAddress,
		params.OutAssetAddress,
		deps.Signer.Address(),
		deadline,
	)
	if err != nil {
		return nil, err
	}

	deps.Logger.WithFields(map[string]interface{}{
		"asset_in":  params.AssetSymbol,
		"amount_in": params.Amount.String(),
		"index":     index,
	}).Info("Broadcasting swap")

	return broadcastAndRecord(ctx, deps, wallet.TxParams{
		To:       params.SwapRouter,
		Value:    big.NewInt(0),
		Data:     data,
		GasLimit: GasLimitSwap,
		GasPrice: price.Wei,
		Nonce:    nonceFor(baseNonce, index),
	}, price, txparse.TypeSwap, params.Protocol, params.AssetSymbol, params.Amount)
}
