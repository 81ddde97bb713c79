// Package session holds the client-side view of one user's budgets: which
// budget and month are selected, the category tree for that scope and the
// UI flags around it. Every command goes to the remote API first and then
// re-reads the authoritative tree; nothing is patched optimistically.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"simplebudget/internal/api"
	"simplebudget/internal/core"
	"simplebudget/internal/events"
	"simplebudget/internal/log"
	"simplebudget/internal/metrics"
	"simplebudget/internal/preference"
)

var (
	// ErrNoActiveBudget is returned by scoped commands when no budget is selected.
	ErrNoActiveBudget = errors.New("no active budget")
	// ErrUnknownBudget is returned when switching to a budget the user cannot see.
	ErrUnknownBudget = errors.New("unknown budget")
)

// monthWindow is how many months the period picker offers.
const monthWindow = 12

// API is the remote surface the session drives. *api.Client satisfies it.
type API interface {
	ListBudgets(ctx context.Context) ([]core.Budget, error)
	CreateBudget(ctx context.Context, name string) (core.Budget, error)
	RenameBudget(ctx context.Context, id, name string) (core.Budget, error)
	DeleteBudget(ctx context.Context, id string) error

	CreateInvitation(ctx context.Context, budgetID, email string) (core.Invitation, error)
	ValidateInvitation(ctx context.Context, token string) (core.Invitation, error)
	AcceptInvitation(ctx context.Context, token string) (core.Budget, error)

	FetchMonth(ctx context.Context, budgetID string, p core.Period) (core.Tree, error)

	CreateCategory(ctx context.Context, budgetID string, p core.Period, in core.CategoryInput) (core.Category, error)
	EditCategory(ctx context.Context, budgetID, id string, in core.CategoryInput) error
	DeleteCategory(ctx context.Context, budgetID, id string) error

	CreateSubcategory(ctx context.Context, budgetID string, in core.SubcategoryInput) (core.Subcategory, error)
	UpdateSubcategory(ctx context.Context, budgetID, id string, in core.SubcategoryInput) error
	DeleteSubcategory(ctx context.Context, budgetID, id string) error

	CreateTransaction(ctx context.Context, budgetID string, in core.TransactionInput) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, budgetID, id string, in core.TransactionInput) error
	DeleteTransaction(ctx context.Context, budgetID, id string) error
}

var _ API = (*api.Client)(nil)

// Config wires a Store. API and Preferences are required.
type Config struct {
	API           API
	Preferences   preference.Store
	Events        events.Sink
	Logger        *log.Logger
	Metrics       *metrics.Metrics
	Now           func() time.Time
	InviteBaseURL string
}

// Store is the single owner of session state. It is safe for concurrent
// use; network calls never run while the state lock is held.
type Store struct {
	api           API
	prefs         preference.Store
	events        events.Sink
	logger        *log.Logger
	structured    *log.StructuredLogger
	metrics       *metrics.Metrics
	now           func() time.Time
	inviteBaseURL string

	flight singleflight.Group

	mu         sync.Mutex
	state      State
	loading    int
	reloadSeq  uint64
	appliedSeq uint64
	epoch      uint64
	subs       map[int]func(State)
	nextSub    int
}

// New creates a signed-out store.
func New(cfg Config) *Store {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentSession)

	sink := cfg.Events
	if sink == nil {
		sink = events.Nop{}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	st := emptyState()
	st.Period = core.PeriodOf(now())

	return &Store{
		api:           cfg.API,
		prefs:         cfg.Preferences,
		events:        sink,
		logger:        logger,
		structured:    log.NewStructuredLogger(logger),
		metrics:       cfg.Metrics,
		now:           now,
		inviteBaseURL: cfg.InviteBaseURL,
		state:         st,
		subs:          make(map[int]func(State)),
	}
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe registers fn to receive a snapshot after every state change.
// The returned func removes the subscription.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify() {
	s.mu.Lock()
	snap := s.state.clone()
	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

// update applies fn under the lock and notifies subscribers.
func (s *Store) update(fn func(st *State)) {
	s.mu.Lock()
	fn(&s.state)
	s.mu.Unlock()
	s.notify()
}

func (s *Store) fail(err error) {
	s.update(func(st *State) {
		st.Error = api.Message(err)
	})
}

// endLoadingLocked must be called with s.mu held.
func (s *Store) endLoadingLocked() {
	if s.loading > 0 {
		s.loading--
	}
	s.state.IsLoading = s.loading > 0
}

func (s *Store) setOperation(kind OperationKind, id string) {
	s.update(func(st *State) {
		st.Operations[kind] = id
	})
}

func (s *Store) clearOperation(kind OperationKind, id string) {
	s.update(func(st *State) {
		if st.Operations[kind] == id {
			delete(st.Operations, kind)
		}
	})
}

// activeScope returns the current scope or ErrNoActiveBudget.
func (s *Store) activeScope() (Scope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	scope := s.state.Scope()
	if scope.BudgetID == "" {
		return Scope{}, ErrNoActiveBudget
	}
	return scope, nil
}

// Reload re-reads the tree for the current scope, showing the loading flag.
func (s *Store) Reload(ctx context.Context) error {
	return s.reload(ctx, false)
}

// reload fetches the tree for the scope current at issue time. The response
// is applied only if the same sign-in is still active, the scope is still the
// same and no newer reload has already been applied; otherwise it is dropped.
// A failed read leaves an empty tree for the scope and records the error.
func (s *Store) reload(ctx context.Context, silent bool) error {
	s.mu.Lock()
	scope := s.state.Scope()
	if scope.BudgetID == "" {
		s.state.Categories = core.Tree{}
		s.mu.Unlock()
		s.notify()
		return nil
	}
	s.reloadSeq++
	seq := s.reloadSeq
	epoch := s.epoch
	if !silent {
		s.loading++
		s.state.IsLoading = true
	}
	s.mu.Unlock()
	s.notify()

	tree, err := s.api.FetchMonth(ctx, scope.BudgetID, scope.Period)

	s.mu.Lock()
	if s.epoch != epoch {
		// Issued before a sign-out or re-bootstrap: the loading count it
		// held was reset and belongs to the new session now.
		s.mu.Unlock()
		s.metrics.ReloadDiscarded()
		s.logger.DebugContext(ctx, "Discarded reload from previous sign-in",
			log.FieldBudgetID, scope.BudgetID,
			log.FieldSeq, seq)
		return nil
	}
	if !silent {
		s.endLoadingLocked()
	}
	if s.state.Scope() != scope || seq <= s.appliedSeq {
		s.mu.Unlock()
		s.notify()
		s.metrics.ReloadDiscarded()
		s.logger.DebugContext(ctx, "Discarded stale reload",
			log.FieldBudgetID, scope.BudgetID,
			log.FieldYear, scope.Period.Year,
			log.FieldMonth, scope.Period.Month,
			log.FieldSeq, seq)
		return nil
	}
	s.appliedSeq = seq
	if err != nil {
		s.state.Categories = core.Tree{}
		s.state.Error = api.Message(err)
	} else {
		if tree == nil {
			tree = core.Tree{}
		}
		s.state.Categories = tree
	}
	s.mu.Unlock()
	s.notify()

	if err != nil {
		s.metrics.ReloadFailed(silent)
		s.logger.WarnContext(ctx, "Reload failed",
			log.FieldBudgetID, scope.BudgetID,
			log.FieldYear, scope.Period.Year,
			log.FieldMonth, scope.Period.Month,
			log.FieldError, err)
		return err
	}
	s.metrics.ReloadApplied(silent)
	return nil
}

// guard joins identical concurrent commands: while one is in flight, a
// second call with the same key waits for and shares its result.
func (s *Store) guard(key string, fn func() error) error {
	_, err, _ := s.flight.Do(key, func() (any, error) {
		return nil, fn()
	})
	return err
}

// record logs a command outcome, counts it and publishes an event on
// success. Event delivery failures are logged and otherwise ignored.
func (s *Store) record(ctx context.Context, kind string, scope Scope, targetID string, err error) {
	s.structured.LogMutation(ctx, kind, scope.BudgetID, scope.Period.Year, scope.Period.Month, targetID, err)
	s.metrics.Mutation(kind, err)
	if err != nil {
		return
	}

	ev := events.Mutation{
		Kind:      kind,
		BudgetID:  scope.BudgetID,
		TargetID:  targetID,
		Year:      scope.Period.Year,
		Month:     scope.Period.Month,
		Timestamp: s.now().UTC(),
	}
	if perr := s.events.Publish(ctx, ev); perr != nil {
		s.logger.WarnContext(ctx, "Failed to publish mutation event",
			log.FieldOperation, kind,
			log.FieldError, perr)
	}
}
