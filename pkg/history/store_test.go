package history_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/lisanmuaddib/wallet-go/pkg/history"
	"github.com/lisanmuaddib/wallet-go/pkg/txparse"
	"github.com/lisanmuaddib/wallet-go/pkg/wallet"
)

var _ = Describe("MemoryStore", func() {
	var (
		store   *history.MemoryStore
		ctx     context.Context
		account string
	)

	tx := func(hash string, nonce uint64) txparse.Transaction {
		return txparse.Transaction{Hash: hash, Nonce: nonce, Network: wallet.ETH}
	}

	BeforeEach(func() {
		store = history.NewMemoryStore()
		ctx = context.Background()
		account = "0x00000000000000000000000000000000000000aa"
	})

	It("returns an empty list for an unknown account", func() {
		txs, err := store.GetTransactions(ctx, account, wallet.ETH)
		Expect(err).NotTo(HaveOccurred())
		Expect(txs).To(BeEmpty())
	})

	It("replaces the list wholesale on save", func() {
		Expect(store.SaveTransactions(ctx, account, wallet.ETH,
			[]txparse.Transaction{tx("0xa", 1), tx("0xb", 2)})).To(Succeed())
		Expect(store.SaveTransactions(ctx, account, wallet.ETH,
			[]txparse.Transaction{tx("0xc", 3)})).To(Succeed())

		txs, err := store.GetTransactions(ctx, account, wallet.ETH)
		Expect(err).NotTo(HaveOccurred())
		Expect(txs).To(HaveLen(1))
		Expect(txs[0].Hash).To(Equal("0xc"))
	})

	It("keeps lists separate per network", func() {
		Expect(store.SaveTransactions(ctx, account, wallet.ETH,
			[]txparse.Transaction{tx("0xa", 1)})).To(Succeed())

		txs, err := store.GetTransactions(ctx, account, wallet.BSC)
		Expect(err).NotTo(HaveOccurred())
		Expect(txs).To(BeEmpty())
	})

	It("prepends on append and dedupes by hash", func() {
		Expect(store.SaveTransactions(ctx, account, wallet.ETH,
			[]txparse.Transaction{tx("0xa", 1)})).To(Succeed())

		Expect(store.AppendTransaction(ctx, account, wallet.ETH, tx("0xb", 2))).To(Succeed())
		Expect(store.AppendTransaction(ctx, account, wallet.ETH, tx("0xb", 2))).To(Succeed())

		txs, err := store.GetTransactions(ctx, account, wallet.ETH)
		Expect(err).NotTo(HaveOccurred())
		Expect(txs).To(HaveLen(2))
		Expect(txs[0].Hash).To(Equal("0xb"))
		Expect(txs[1].Hash).To(Equal("0xa"))
	})

	It("clears an account's history", func() {
		Expect(store.SaveTransactions(ctx, account, wallet.ETH,
			[]txparse.Transaction{tx("0xa", 1)})).To(Succeed())
		Expect(store.ClearTransactions(ctx, account, wallet.ETH)).To(Succeed())

		txs, err := store.GetTransactions(ctx, account, wallet.ETH)
		Expect(err).NotTo(HaveOccurred())
		Expect(txs).To(BeEmpty())
	})

	It("does not leak internal state through returned slices", func() {
		Expect(store.SaveTransactions(ctx, account, wallet.ETH,
			[]txparse.Transaction{tx("0xa", 1)})).To(Succeed())

		txs, _ := store.GetTransactions(ctx, account, wallet.ETH)
		txs[0].Hash = "mutated"

		fresh, _ := store.GetTransactions(ctx, account, wallet.ETH)
		Expect(fresh[0].Hash).To(Equal("0xa"))
	})
})
