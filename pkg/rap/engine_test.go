package rap_test

import (
	"context"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/lisanmuaddib/wallet-go/pkg/history"
	"github.com/lisanmuaddib/wallet-go/pkg/rap"
	"github.com/lisanmuaddib/wallet-go/pkg/wallet"
)

// recordingAction captures its execution arguments and returns a scripted
// result or error.
type recordingAction struct {
	mu       sync.Mutex
	kind     rap.ActionKind
	executed []executedCall
	err      error
	nonceSeq uint64
}

type executedCall struct {
	index     int
	baseNonce *uint64
}

func (a *recordingAction) Kind() rap.ActionKind { return a.kind }

func (a *recordingAction) Execute(_ context.Context, _ *rap.Dependencies, _ rap.Parameters, index int, baseNonce *uint64) (*rap.Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.executed = append(a.executed, executedCall{index: index, baseNonce: baseNonce})
	if a.err != nil {
		return nil, a.err
	}

	nonce := a.nonceSeq
	if baseNonce != nil {
		nonce = *baseNonce + uint64(index)
	}
	a.nonceSeq++
	return &rap.Result{Nonce: nonce}, nil
}

func (a *recordingAction) calls() []executedCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]executedCall, len(a.executed))
	copy(out, a.executed)
	return out
}

var _ = Describe("Engine", func() {
	var (
		node   *fakeNode
		signer *fakeSigner
		deps   *rap.Dependencies
		engine *rap.Engine
	)

	BeforeEach(func() {
		node = newFakeNode()
		node.pendingNonce = 7
		signer = newFakeSigner()

		logger := logrus.New()
		logger.SetLevel(logrus.ErrorLevel)

		deps = &rap.Dependencies{
			Signer:  signer,
			Gas:     newTestGasStore(),
			History: history.NewMemoryStore(),
			Emitter: history.NopEmitter{},
			Network: wallet.ETH,
			Logger:  logger,
		}
		engine = rap.NewEngine(node, deps)
	})

	It("allocates the base nonce once and hands each action base+index", func() {
		first := &recordingAction{kind: rap.KindApprove}
		second := &recordingAction{kind: rap.KindDepositToken}

		r := rap.New([]rap.Action{first, second}, rap.Parameters{}, nil)
		Expect(engine.Run(context.Background(), r)).To(Succeed())

		Expect(first.calls()).To(HaveLen(1))
		Expect(second.calls()).To(HaveLen(1))
		Expect(*first.calls()[0].baseNonce).To(Equal(uint64(7)))
		Expect(*second.calls()[0].baseNonce).To(Equal(uint64(7)))
		Expect(second.calls()[0].index).To(Equal(1))

		results := r.Results()
		Expect(results).To(HaveLen(2))
		Expect(results[0].Nonce).To(Equal(uint64(7)))
		Expect(results[1].Nonce).To(Equal(uint64(8)))
		Expect(r.State()).To(Equal(rap.StateCompleted))
	})

	It("defers nonce assignment when the pending nonce read fails", func() {
		node.nonceErr = errors.New("node flaked")
		action := &recordingAction{kind: rap.KindApprove}

		r := rap.New([]rap.Action{action}, rap.Parameters{}, nil)
		Expect(engine.Run(context.Background(), r)).To(Succeed())

		Expect(action.calls()[0].baseNonce).To(BeNil())
	})

	It("fires the callback exactly once after the first broadcast", func() {
		var (
			mu    sync.Mutex
			count int
			seen  error
		)
		cb := func(_ *rap.Rap, err error) {
			mu.Lock()
			defer mu.Unlock()
			count++
			seen = err
		}

		actions := []rap.Action{
			&recordingAction{kind: rap.KindApprove},
			&recordingAction{kind: rap.KindDepositToken},
		}
		r := rap.New(actions, rap.Parameters{}, cb)
		Expect(engine.Run(context.Background(), r)).To(Succeed())

		mu.Lock()
		defer mu.Unlock()
		Expect(count).To(Equal(1))
		Expect(seen).To(BeNil())
	})

	It("fires the callback exactly once with the error on terminal failure", func() {
		var (
			mu    sync.Mutex
			count int
			seen  error
		)
		cb := func(_ *rap.Rap, err error) {
			mu.Lock()
			defer mu.Unlock()
			count++
			seen = err
		}

		broken := &recordingAction{kind: rap.KindApprove, err: errors.New("insufficient funds")}
		r := rap.New([]rap.Action{broken}, rap.Parameters{}, cb)

		err := engine.Run(context.Background(), r)
		Expect(wallet.IsWalletError(err, wallet.ErrCodeRapAborted)).To(BeTrue())

		mu.Lock()
		defer mu.Unlock()
		Expect(count).To(Equal(1))
		Expect(seen).To(MatchError("insufficient funds"))
	})

	It("aborts on the first failure and never runs later actions", func() {
		broken := &recordingAction{kind: rap.KindApprove, err: errors.New("reverted")}
		never := &recordingAction{kind: rap.KindDepositToken}

		r := rap.New([]rap.Action{broken, never}, rap.Parameters{}, nil)
		err := engine.Run(context.Background(), r)

		Expect(wallet.IsWalletError(err, wallet.ErrCodeRapAborted)).To(BeTrue())
		Expect(r.State()).To(Equal(rap.StateFailed))
		Expect(r.FailedIndex()).To(Equal(0))
		Expect(never.calls()).To(BeEmpty())
	})

	It("rejects a rap with no actions and still fires the callback once", func() {
		var (
			mu    sync.Mutex
			count int
			seen  error
		)
		cb := func(_ *rap.Rap, err error) {
			mu.Lock()
			defer mu.Unlock()
			count++
			seen = err
		}

		r := rap.New(nil, rap.Parameters{}, cb)
		err := engine.Run(context.Background(), r)

		Expect(wallet.IsWalletError(err, wallet.ErrCodeRapAborted)).To(BeTrue())
		Expect(r.State()).To(Equal(rap.StateFailed))

		mu.Lock()
		defer mu.Unlock()
		Expect(count).To(Equal(1))
		Expect(seen).To(HaveOccurred())
	})

	It("refuses to run the same rap twice", func() {
		r := rap.New([]rap.Action{&recordingAction{kind: rap.KindApprove}}, rap.Parameters{}, nil)
		Expect(engine.Run(context.Background(), r)).To(Succeed())

		err := engine.Run(context.Background(), r)
		Expect(wallet.IsWalletError(err, wallet.ErrCodeRapAborted)).To(BeTrue())
	})
})
