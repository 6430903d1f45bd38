package txwatch_test

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/lisanmuaddib/wallet-go/pkg/history"
	"github.com/lisanmuaddib/wallet-go/pkg/txparse"
	"github.com/lisanmuaddib/wallet-go/pkg/txwatch"
	"github.com/lisanmuaddib/wallet-go/pkg/wallet"
)

var _ = Describe("Watcher", func() {
	var (
		node    *fakeNode
		store   history.Store
		emitter *recordingEmitter
		account common.Address
		watcher *txwatch.Watcher
		ctx     context.Context
		cancel  context.CancelFunc
	)

	hashA := common.HexToHash("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	hashB := common.HexToHash("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")

	pendingTx := func(hash common.Hash, nonce uint64) txparse.Transaction {
		return txparse.Transaction{
			Hash:    hash.Hex(),
			From:    account.Hex(),
			To:      "0x3333333333333333333333333333333333333333",
			Nonce:   nonce,
			Status:  txparse.StatusSending,
			Type:    txparse.TypeSend,
			Pending: true,
			Network: wallet.ETH,
		}
	}

	load := func() []txparse.Transaction {
		txs, err := store.GetTransactions(ctx, account.Hex(), wallet.ETH)
		Expect(err).NotTo(HaveOccurred())
		return txs
	}

	BeforeEach(func() {
		node = newFakeNode()
		store = history.NewMemoryStore()
		emitter = &recordingEmitter{}
		account = common.HexToAddress("0x00000000000000000000000000000000000000aa")
		ctx, cancel = context.WithCancel(context.Background())

		logger := logrus.New()
		logger.SetLevel(logrus.ErrorLevel)

		watcher = txwatch.New(txwatch.Config{
			Node:     node,
			Store:    store,
			Emitter:  emitter,
			Account:  account,
			Network:  wallet.ETH,
			Logger:   logger,
			Interval: 10 * time.Millisecond,
		})
	})

	AfterEach(func() {
		watcher.Stop()
		cancel()
	})

	It("confirms a mined transaction with a successful receipt", func() {
		Expect(store.SaveTransactions(ctx, account.Hex(), wallet.ETH,
			[]txparse.Transaction{pendingTx(hashA, 1)})).To(Succeed())
		node.setMined(hashA, 1)

		watcher.Start(ctx)

		Eventually(func() bool { return load()[0].Pending }).Should(BeFalse())
		Expect(load()[0].Status).To(Equal(txparse.StatusSent))

		events := emitter.recorded()
		Expect(events).To(HaveLen(1))
		Expect(events[0].Kind).To(Equal(history.EventConfirmed))
		Expect(events[0].Hash).To(Equal(hashA.Hex()))
	})

	It("marks a zero-status receipt as failed", func() {
		Expect(store.SaveTransactions(ctx, account.Hex(), wallet.ETH,
			[]txparse.Transaction{pendingTx(hashA, 1)})).To(Succeed())
		node.setMined(hashA, 0)

		watcher.Start(ctx)

		Eventually(func() txparse.Status { return load()[0].Status }).Should(Equal(txparse.StatusFailed))
		Expect(load()[0].Pending).To(BeFalse())

		events := emitter.recorded()
		Expect(events).To(HaveLen(1))
		Expect(events[0].Kind).To(Equal(history.EventFailed))
	})

	It("keeps a transaction pending when lookups fail", func() {
		Expect(store.SaveTransactions(ctx, account.Hex(), wallet.ETH,
			[]txparse.Transaction{pendingTx(hashA, 1)})).To(Succeed())
		node.txErr = errors.New("connection reset")

		watcher.Start(ctx)

		Consistently(func() bool { return load()[0].Pending }, 50*time.Millisecond).Should(BeTrue())
		Expect(emitter.recorded()).To(BeEmpty())
	})

	It("keeps a transaction pending when no receipt exists yet", func() {
		// the node no longer reports the transaction as pending but has no
		// receipt for it either
		Expect(store.SaveTransactions(ctx, account.Hex(), wallet.ETH,
			[]txparse.Transaction{pendingTx(hashA, 1)})).To(Succeed())

		watcher.Start(ctx)

		Consistently(func() bool { return load()[0].Pending }, 50*time.Millisecond).Should(BeTrue())
		Expect(emitter.recorded()).To(BeEmpty())
	})

	It("settles each transaction independently", func() {
		Expect(store.SaveTransactions(ctx, account.Hex(), wallet.ETH,
			[]txparse.Transaction{pendingTx(hashA, 1), pendingTx(hashB, 2)})).To(Succeed())
		node.setMined(hashA, 1)
		node.setPending(hashB)

		watcher.Start(ctx)

		Eventually(func() bool { return load()[0].Pending }).Should(BeFalse())
		Expect(load()[1].Pending).To(BeTrue())

		// the still-pending transaction then mines
		node.setMined(hashB, 1)
		Eventually(func() bool { return load()[1].Pending }).Should(BeFalse())
	})

	It("emits exactly one event per confirmation across repeated ticks", func() {
		Expect(store.SaveTransactions(ctx, account.Hex(), wallet.ETH,
			[]txparse.Transaction{pendingTx(hashA, 1), pendingTx(hashB, 2)})).To(Succeed())
		node.setMined(hashA, 1)
		node.setPending(hashB)

		watcher.Start(ctx)

		Eventually(func() bool { return load()[0].Pending }).Should(BeFalse())
		// hashB keeps the watcher ticking; hashA must not be re-confirmed
		Consistently(func() int { return len(emitter.recorded()) }, 60*time.Millisecond).Should(Equal(1))
	})

	It("stops scheduling checks after Stop", func() {
		Expect(store.SaveTransactions(ctx, account.Hex(), wallet.ETH,
			[]txparse.Transaction{pendingTx(hashA, 1)})).To(Succeed())
		node.setPending(hashA)

		watcher.Start(ctx)
		Eventually(func() bool { return load()[0].Pending }).Should(BeTrue())
		watcher.Stop()
		// let any in-flight check drain before the transaction mines
		time.Sleep(30 * time.Millisecond)

		node.setMined(hashA, 1)
		Consistently(func() bool { return load()[0].Pending }, 60*time.Millisecond).Should(BeTrue())
	})

	It("wakes an idle watcher when notified of a new broadcast", func() {
		watcher.Start(ctx)
		// empty list: the watcher goes idle after the first check
		Eventually(func() []history.TransactionEvent { return emitter.recorded() }).Should(BeEmpty())
		time.Sleep(30 * time.Millisecond)

		Expect(store.SaveTransactions(ctx, account.Hex(), wallet.ETH,
			[]txparse.Transaction{pendingTx(hashA, 1)})).To(Succeed())
		node.setMined(hashA, 1)

		watcher.Notify(ctx)
		Eventually(func() bool { return load()[0].Pending }).Should(BeFalse())
	})
})
