package rap_test

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/lisanmuaddib/wallet-go/pkg/gas"
	"github.com/lisanmuaddib/wallet-go/pkg/history"
	"github.com/lisanmuaddib/wallet-go/pkg/rap"
	"github.com/lisanmuaddib/wallet-go/pkg/txparse"
	"github.com/lisanmuaddib/wallet-go/pkg/wallet"
)

var _ = Describe("Actions", func() {
	var (
		signer *fakeSigner
		store  history.Store
		deps   *rap.Dependencies
		params rap.Parameters
	)

	BeforeEach(func() {
		signer = newFakeSigner()
		store = history.NewMemoryStore()

		logger := logrus.New()
		logger.SetLevel(logrus.ErrorLevel)

		deps = &rap.Dependencies{
			Signer:  signer,
			Gas:     newTestGasStore(),
			History: store,
			Emitter: history.NopEmitter{},
			Network: wallet.ETH,
			Logger:  logger,
		}

		params = rap.Parameters{
			AssetAddress:    common.HexToAddress("0x1111111111111111111111111111111111111111"),
			AssetSymbol:     "DAI",
			AssetDecimals:   18,
			Amount:          decimal.NewFromInt(100),
			Spender:         common.HexToAddress("0x2222222222222222222222222222222222222222"),
			DepositContract: common.HexToAddress("0x3333333333333333333333333333333333333333"),
			Protocol:        txparse.ProtocolCompound,
		}
	})

	Describe("ApproveAction", func() {
		It("broadcasts an approval against the asset contract", func() {
			base := uint64(5)
			result, err := (&rap.ApproveAction{}).Execute(context.Background(), deps, params, 0, &base)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Nonce).To(Equal(uint64(5)))

			sent := signer.broadcasts()
			Expect(sent).To(HaveLen(1))
			Expect(sent[0].To).To(Equal(params.AssetAddress))
			Expect(sent[0].Value.Sign()).To(BeZero())
			Expect(sent[0].GasLimit).To(Equal(rap.GasLimitApprove))
			Expect(sent[0].Data).NotTo(BeEmpty())
			Expect(*sent[0].Nonce).To(Equal(uint64(5)))
		})

		It("prices the transaction at the fast tier by default", func() {
			_, err := (&rap.ApproveAction{}).Execute(context.Background(), deps, params, 0, nil)
			Expect(err).NotTo(HaveOccurred())

			// test store's fast tier is 30 gwei
			Expect(signer.broadcasts()[0].GasPrice).To(Equal(big.NewInt(30000000000)))
		})

		It("uses the explicitly selected price when present", func() {
			params.SelectedGasPrice = gas.NewEntry(gas.TierCustom, decimal.NewFromInt(12), 0)

			_, err := (&rap.ApproveAction{}).Execute(context.Background(), deps, params, 0, nil)
			Expect(err).NotTo(HaveOccurred())

			Expect(signer.broadcasts()[0].GasPrice).To(Equal(big.NewInt(12000000000)))
		})

		It("registers a pending record immediately after broadcast", func() {
			base := uint64(0)
			_, err := (&rap.ApproveAction{}).Execute(context.Background(), deps, params, 0, &base)
			Expect(err).NotTo(HaveOccurred())

			txs, err := store.GetTransactions(context.Background(), signer.Address().Hex(), wallet.ETH)
			Expect(err).NotTo(HaveOccurred())
			Expect(txs).To(HaveLen(1))
			Expect(txs[0].Pending).To(BeTrue())
			Expect(txs[0].Status).To(Equal(txparse.StatusApproving))
			Expect(txs[0].Type).To(Equal(txparse.TypeApprove))
		})

		It("wakes the transaction watcher after the broadcast", func() {
			notifier := &fakeNotifier{}
			deps.Watch = notifier

			_, err := (&rap.ApproveAction{}).Execute(context.Background(), deps, params, 0, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(notifier.count()).To(Equal(1))
		})

		It("does not wake the watcher when the broadcast fails", func() {
			notifier := &fakeNotifier{}
			deps.Watch = notifier
			signer.err = errors.New("nonce too low")

			_, err := (&rap.ApproveAction{}).Execute(context.Background(), deps, params, 0, nil)
			Expect(err).To(HaveOccurred())
			Expect(notifier.count()).To(BeZero())
		})

		It("fails with no gas table and no explicit price", func() {
			empty, err := gas.NewStore(gas.StoreConfig{
				Primary: &stubOracle{prices: &gas.ProviderPrices{Fast: decimal.NewFromInt(1)}},
				Network: wallet.ETH,
				Logger:  deps.Logger,
			})
			Expect(err).NotTo(HaveOccurred())
			deps.Gas = empty

			_, err = (&rap.ApproveAction{}).Execute(context.Background(), deps, params, 0, nil)
			Expect(wallet.IsWalletError(err, wallet.ErrCodeOracleUnavailable)).To(BeTrue())
			Expect(signer.broadcasts()).To(BeEmpty())
		})
	})

	Describe("DepositNativeAction", func() {
		It("carries the amount in the transaction value", func() {
			params.AssetSymbol = "ETH"
			params.Amount = decimal.NewFromFloat(1.5)

			_, err := (&rap.DepositNativeAction{}).Execute(context.Background(), deps, params, 0, nil)
			Expect(err).NotTo(HaveOccurred())

			sent := signer.broadcasts()
			Expect(sent[0].To).To(Equal(params.DepositContract))
			Expect(sent[0].Value).To(Equal(big.NewInt(1500000000000000000)))
			Expect(sent[0].GasLimit).To(Equal(rap.GasLimitDepositNative))
		})
	})

	Describe("DepositTokenAction", func() {
		It("sends zero value with the amount packed in calldata", func() {
			_, err := (&rap.DepositTokenAction{}).Execute(context.Background(), deps, params, 1, nil)
			Expect(err).NotTo(HaveOccurred())

			sent := signer.broadcasts()
			Expect(sent[0].To).To(Equal(params.DepositContract))
			Expect(sent[0].Value.Sign()).To(BeZero())
			Expect(sent[0].GasLimit).To(Equal(rap.GasLimitDepositToken))
			Expect(sent[0].Data).NotTo(BeEmpty())
		})
	})

	Describe("SwapAction", func() {
		It("routes the trade through the configured router", func() {
			params.SwapRouter = common.HexToAddress("0x4444444444444444444444444444444444444444")
			params.OutAssetAddress = common.HexToAddress("0x5555555555555555555555555555555555555555")
			params.MinAmountOut = decimal.NewFromInt(99)
			params.OutDecimals = 6
			params.Protocol = txparse.ProtocolUniswap

			base := uint64(3)
			result, err := (&rap.SwapAction{}).Execute(context.Background(), deps, params, 2, &base)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Nonce).To(Equal(uint64(5)))

			sent := signer.broadcasts()
			Expect(sent[0].To).To(Equal(params.SwapRouter))
			Expect(sent[0].GasLimit).To(Equal(rap.GasLimitSwap))
			Expect(*sent[0].Nonce).To(Equal(uint64(5)))

			txs, err := store.GetTransactions(context.Background(), signer.Address().Hex(), wallet.ETH)
			Expect(err).NotTo(HaveOccurred())
			Expect(txs[0].Status).To(Equal(txparse.StatusSwapping))
		})
	})
})
