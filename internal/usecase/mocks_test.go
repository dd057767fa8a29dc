package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"

	"subscription-billing/internal/domain"
	"subscription-billing/internal/domain/authority"
	"subscription-billing/internal/domain/model"
	"subscription-billing/internal/domain/ports/adapter"
	"subscription-billing/internal/domain/ports/repository"
)

// memStore backs the in-memory ports used by unit tests. One store is shared
// by the plan repo, subscription repo, and ledger so the snapshotting tx
// manager can roll all of them back together, mirroring the all-or-nothing
// host transaction.
type memStore struct {
	mu    sync.Mutex
	plans map[string]*model.Plan
	subs  map[string]*model.Subscription
	accts map[string]*adapter.TokenAccount
}

func newMemStore() *memStore {
	return &memStore{
		plans: make(map[string]*model.Plan),
		subs:  make(map[string]*model.Subscription),
		accts: make(map[string]*adapter.TokenAccount),
	}
}

type memSnapshot struct {
	plans map[string]*model.Plan
	subs  map[string]*model.Subscription
	accts map[string]*adapter.TokenAccount
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := memSnapshot{
		plans: make(map[string]*model.Plan, len(s.plans)),
		subs:  make(map[string]*model.Subscription, len(s.subs)),
		accts: make(map[string]*adapter.TokenAccount, len(s.accts)),
	}
	for k, v := range s.plans {
		cp := *v
		snap.plans[k] = &cp
	}
	for k, v := range s.subs {
		cp := *v
		snap.subs[k] = &cp
	}
	for k, v := range s.accts {
		cp := *v
		snap.accts[k] = &cp
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans = snap.plans
	s.subs = snap.subs
	s.accts = snap.accts
}

// memTxManager snapshots the store before the callback and restores it if the
// callback errors, giving tests real abort semantics.
type memTxManager struct{ store *memStore }

func (m *memTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	snap := m.store.snapshot()
	if err := fn(ctx, nil); err != nil {
		m.store.restore(snap)
		return err
	}
	return nil
}

var _ repository.TransactionManager = (*memTxManager)(nil)

// --- plan repository ---

type memPlanRepo struct{ store *memStore }

var _ repository.PlanRepository = (*memPlanRepo)(nil)

func (r *memPlanRepo) Create(ctx context.Context, tx repository.Tx, plan *model.Plan) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.plans[plan.ID]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *plan
	r.store.plans[plan.ID] = &cp
	return nil
}

func (r *memPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.plans[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memPlanRepo) FindByIDForUpdate(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	return r.FindByID(ctx, tx, id)
}

func (r *memPlanRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]*model.Plan, 0, len(r.store.plans))
	for _, p := range r.store.plans {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memPlanRepo) UpdateActiveSubscriptions(ctx context.Context, tx repository.Tx, id string, delta int32) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.plans[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.ActiveSubscriptions += delta
	if p.ActiveSubscriptions < 0 {
		p.ActiveSubscriptions = 0
	}
	return nil
}

// --- subscription repository ---

type memSubRepo struct{ store *memStore }

var _ repository.SubscriptionRepository = (*memSubRepo)(nil)

func (r *memSubRepo) Create(ctx context.Context, tx repository.Tx, sub *model.Subscription) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.subs[sub.ID]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *sub
	r.store.subs[sub.ID] = &cp
	return nil
}

func (r *memSubRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	s, ok := r.store.subs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memSubRepo) FindByIDForUpdate(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	return r.FindByID(ctx, tx, id)
}

func (r *memSubRepo) Save(ctx context.Context, tx repository.Tx, sub *model.Subscription) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.subs[sub.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *sub
	r.store.subs[sub.ID] = &cp
	return nil
}

func (r *memSubRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.subs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.store.subs, id)
	return nil
}

func (r *memSubRepo) ListDue(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.Subscription, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*model.Subscription
	for _, s := range r.store.subs {
		if !s.NextTermDate.After(now) {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextTermDate.Before(out[j].NextTermDate) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memSubRepo) CountByState(ctx context.Context, tx repository.Tx) (map[model.SubscriptionState]int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make(map[model.SubscriptionState]int)
	for _, s := range r.store.subs {
		out[s.State]++
	}
	return out, nil
}

// --- token ledger ---

// memLedger mimics the external token service: owner-or-delegate transfer
// authorization, capped delegation drawdown, non-negative balances.
type memLedger struct{ store *memStore }

var _ adapter.TokenLedger = (*memLedger)(nil)

func (l *memLedger) OpenAccount(ctx context.Context, tx repository.Tx, id, mint string, owner authority.Authority) error {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	if _, ok := l.store.accts[id]; ok {
		return domain.ErrAlreadyExists
	}
	l.store.accts[id] = &adapter.TokenAccount{ID: id, Mint: mint, OwnerAuthority: owner.ID()}
	return nil
}

func (l *memLedger) GetAccount(ctx context.Context, tx repository.Tx, id string) (*adapter.TokenAccount, error) {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	a, ok := l.store.accts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (l *memLedger) Balance(ctx context.Context, tx repository.Tx, id string) (int64, error) {
	a, err := l.GetAccount(ctx, tx, id)
	if err != nil {
		return 0, err
	}
	return a.Balance, nil
}

func (l *memLedger) Transfer(ctx context.Context, tx repository.Tx, from, to string, auth authority.Authority, amount int64) error {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	if amount <= 0 {
		return domain.ErrInvalidArgument
	}
	src, ok := l.store.accts[from]
	if !ok {
		return domain.ErrNotFound
	}
	dst, ok := l.store.accts[to]
	if !ok {
		return domain.ErrNotFound
	}
	if src.Mint != dst.Mint {
		return domain.ErrMintMismatch
	}
	switch auth.ID() {
	case src.OwnerAuthority:
		// owner moves freely
	case src.Delegate:
		if amount > src.DelegatedAmount {
			return domain.ErrDelegationExceeded
		}
		src.DelegatedAmount -= amount
	default:
		return domain.ErrNotAuthorized
	}
	if src.Balance < amount {
		return domain.ErrInsufficientFunds
	}
	src.Balance -= amount
	dst.Balance += amount
	return nil
}

func (l *memLedger) Approve(ctx context.Context, tx repository.Tx, account string, delegate authority.Authority, amount int64, owner authority.Authority) error {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	a, ok := l.store.accts[account]
	if !ok {
		return domain.ErrNotFound
	}
	if a.OwnerAuthority != owner.ID() {
		return domain.ErrNotAuthorized
	}
	a.Delegate = delegate.ID()
	a.DelegatedAmount = amount
	return nil
}

func (l *memLedger) Revoke(ctx context.Context, tx repository.Tx, account string, owner authority.Authority) error {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	a, ok := l.store.accts[account]
	if !ok {
		return domain.ErrNotFound
	}
	if a.OwnerAuthority != owner.ID() {
		return domain.ErrNotAuthorized
	}
	a.Delegate = ""
	a.DelegatedAmount = 0
	return nil
}

func (l *memLedger) MintTo(ctx context.Context, tx repository.Tx, account string, amount int64) error {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	a, ok := l.store.accts[account]
	if !ok {
		return domain.ErrNotFound
	}
	if amount < 0 {
		return domain.ErrInvalidArgument
	}
	a.Balance += amount
	return nil
}

// --- test fixture ---

// fixture wires the use cases over one shared memStore with a controllable
// clock.
type fixture struct {
	store  *memStore
	plans  *memPlanRepo
	subs   *memSubRepo
	ledger *memLedger

	planUC   *PlanUseCase
	subUC    *SubscriptionUseCase
	chargeUC *ChargeUseCase

	clock time.Time
}

func newFixture() *fixture {
	store := newMemStore()
	f := &fixture{
		store:  store,
		plans:  &memPlanRepo{store: store},
		subs:   &memSubRepo{store: store},
		ledger: &memLedger{store: store},
		clock:  time.Unix(1_700_000_000, 0),
	}
	txm := &memTxManager{store: store}
	f.planUC = NewPlanUseCase(f.plans, f.ledger, txm)
	f.subUC = NewSubscriptionUseCase(f.plans, f.subs, f.ledger, txm)
	f.chargeUC = NewChargeUseCase(f.plans, f.subs, f.ledger, txm)
	now := func() time.Time { return f.clock }
	f.planUC.now = now
	f.subUC.now = now
	f.chargeUC.now = now
	return f
}

func (f *fixture) advance(d time.Duration) { f.clock = f.clock.Add(d) }

// openFundedAccount opens a token account owned by identity and mints balance
// into it. Reusing an existing account just tops it up.
func (f *fixture) openFundedAccount(id, mint, identity string, balance int64) {
	ctx := context.Background()
	if err := f.ledger.OpenAccount(ctx, nil, id, mint, authority.Signer(identity)); err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
		panic(err)
	}
	if balance > 0 {
		if err := f.ledger.MintTo(ctx, nil, id, balance); err != nil {
			panic(err)
		}
	}
}

func (f *fixture) balance(id string) int64 {
	b, err := f.ledger.Balance(context.Background(), nil, id)
	if err != nil {
		panic(err)
	}
	return b
}
