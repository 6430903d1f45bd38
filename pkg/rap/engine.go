package rap

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/lisanmuaddib/wallet-go/pkg/wallet"
)

// State is a Rap's lifecycle phase. Transitions run strictly forward:
// Pending -> Executing -> Completed or Failed.
type State string

const (
	StatePending   State = "pending"
	StateExecuting State = "executing"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Callback is invoked exactly once per Rap: after the first action's
// broadcast succeeds, or when the Rap fails before any broadcast completes.
// err is nil in the success case.
type Callback func(r *Rap, err error)

// Rap is one ordered multi-step operation. The engine is the sole mutator;
// other goroutines observe progress through the accessor methods.
type Rap struct {
	ID     uuid.UUID
	Params Parameters

	actions  []Action
	callback Callback

	mu           sync.Mutex
	state        State
	currentIndex int
	failedIndex  int
	results      []*Result
}

// New builds a Rap over the given ordered actions. The callback may be nil.
func New(actions []Action, params Parameters, cb Callback) *Rap {
	return &Rap{
		ID:          uuid.New(),
		Params:      params,
		actions:     actions,
		callback:    cb,
		state:       StatePending,
		failedIndex: -1,
	}
}

// State returns the current lifecycle phase.
func (r *Rap) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// CurrentIndex returns the index of the action currently (or last) executed.
func (r *Rap) CurrentIndex() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentIndex
}

// FailedIndex returns the index of the action that aborted the Rap, or -1.
func (r *Rap) FailedIndex() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failedIndex
}

// Results returns the broadcast results of the completed actions, in order.
func (r *Rap) Results() []*Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Result, len(r.results))
	copy(out, r.results)
	return out
}

func (r *Rap) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// fireCallback invokes the callback at most once; the reference is cleared
// before the call so a re-entrant or repeated trigger is a no-op.
func (r *Rap) fireCallback(err error) {
	r.mu.Lock()
	cb := r.callback
	r.callback = nil
	r.mu.Unlock()
	if cb != nil {
		cb(r, err)
	}
}

// Engine sequences Raps. It allocates the base nonce once per run so every
// step's transaction lands in submission order.
type Engine struct {
	node wallet.NodeClient
	deps *Dependencies
	log  *logrus.Entry
}

// NewEngine wires an engine over a node connection and the shared action
// dependencies.
func NewEngine(node wallet.NodeClient, deps *Dependencies) *Engine {
	return &Engine{
		node: node,
		deps: deps,
		log:  deps.Logger.WithField("component", "rap_engine"),
	}
}

// Run executes the Rap's actions strictly in order and blocks until the Rap
// completes or fails. The first action error aborts the run; later actions
// are never attempted. Run must not be called twice for the same Rap.
func (e *Engine) Run(ctx context.Context, r *Rap) error {
	if r.State() != StatePending {
		return wallet.NewWalletError(wallet.ErrCodeRapAborted, "rap has already been run", nil, e.deps.Network)
	}
	if len(r.actions) == 0 {
		err := wallet.NewWalletError(wallet.ErrCodeRapAborted, "rap has no actions", nil, e.deps.Network)
		r.setState(StateFailed)
		r.fireCallback(err)
		return err
	}
	r.setState(StateExecuting)

	log := e.log.WithField("rap_id", r.ID.String())
	baseNonce := e.allocateBaseNonce(ctx, log)

	for i, action := range r.actions {
		r.mu.Lock()
		r.currentIndex = i
		r.mu.Unlock()

		log.WithFields(logrus.Fields{
			"action": string(action.Kind()),
			"index":  i,
		}).Info("Executing rap action")

		res, err := action.Execute(ctx, e.deps, r.Params, i, baseNonce)
		if err != nil {
			r.mu.Lock()
			r.state = StateFailed
			r.failedIndex = i
			r.mu.Unlock()

			log.WithError(err).WithField("index", i).Error("Rap aborted")
			r.fireCallback(err)
			return wallet.NewWalletError(wallet.ErrCodeRapAborted,
				fmt.Sprintf("rap aborted at action %d (%s)", i, action.Kind()), err, e.deps.Network)
		}

		r.mu.Lock()
		r.results = append(r.results, res)
		r.mu.Unlock()

		if i == 0 {
			r.fireCallback(nil)
		}
	}

	r.setState(StateCompleted)
	log.WithField("actions", len(r.actions)).Info("Rap completed")
	return nil
}

// allocateBaseNonce reads the account's pending nonce once for the whole
// run. On failure it returns nil, which lets each action fall back to
// signer-assigned nonces; the run proceeds rather than aborting on a flaky
// read.
func (e *Engine) allocateBaseNonce(ctx context.Context, log *logrus.Entry) *uint64 {
	nonce, err := e.node.PendingNonceAt(ctx, e.deps.Signer.Address())
	if err != nil {
		log.WithError(err).Warn("Failed to read pending nonce, deferring nonce assignment to signer")
		return nil
	}
	log.WithField("base_nonce", nonce).Debug("Allocated base nonce")
	return &nonce
}
