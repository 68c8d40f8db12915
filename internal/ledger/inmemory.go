package ledger

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"
)

type inMemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]Account
	votes    []Vote
	actions  []AdminAction

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewInMemory creates a concurrency-safe in-memory ledger useful for unit tests
// and local development. Transactions on disjoint accounts run in parallel.
func NewInMemory() Store {
	return &inMemoryStore{
		accounts: make(map[string]Account),
		locks:    make(map[string]*sync.Mutex),
	}
}

func (s *inMemoryStore) accountLock(id string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

func (s *inMemoryStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx := &memoryTx{store: s, staged: make(map[string]Account)}
	defer tx.release()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, account := range tx.staged {
		s.accounts[id] = account
	}
	s.votes = append(s.votes, tx.votes...)
	s.actions = append(s.actions, tx.actions...)
	return nil
}

func (s *inMemoryStore) CreateAccount(_ context.Context, account Account) error {
	if account.Balance < 0 {
		return ErrNegativeBalance
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[account.ID]; exists {
		return ErrAccountExists
	}
	s.accounts[account.ID] = account
	return nil
}

func (s *inMemoryStore) Account(_ context.Context, id string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[id]
	if !ok {
		return Account{}, accountNotFound(id)
	}
	return account, nil
}

func (s *inMemoryStore) ListAccounts(_ context.Context) ([]Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Account, 0, len(s.accounts))
	for _, account := range s.accounts {
		out = append(out, account)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Committee != out[j].Committee {
			return out[i].Committee < out[j].Committee
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *inMemoryStore) ListVotes(_ context.Context, filter VoteFilter) ([]Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	limit := filter.NormalizedLimit()
	out := make([]Vote, 0, min(limit, len(s.votes)))
	for i := len(s.votes) - 1; i >= 0 && len(out) < limit; i-- {
		v := s.votes[i]
		if filter.AccountID != "" && v.AccountID != filter.AccountID {
			continue
		}
		if filter.Committee != "" && s.accounts[v.AccountID].Committee != filter.Committee {
			continue
		}
		v.Choices = slices.Clone(v.Choices)
		out = append(out, v)
	}
	return out, nil
}

func (s *inMemoryStore) ListAdminActions(_ context.Context, limit int) ([]AdminAction, error) {
	if limit <= 0 {
		limit = DefaultActionLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]AdminAction, 0, min(limit, len(s.actions)))
	for i := len(s.actions) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.actions[i])
	}
	return out, nil
}

// memoryTx stages writes until WithTx commits them. Locked accounts stay
// locked until release, which is what serializes same-account transactions.
type memoryTx struct {
	store   *inMemoryStore
	held    []*sync.Mutex
	locked  map[string]struct{}
	staged  map[string]Account
	votes   []Vote
	actions []AdminAction
}

func (t *memoryTx) release() {
	for i := len(t.held) - 1; i >= 0; i-- {
		t.held[i].Unlock()
	}
	t.held = nil
}

func (t *memoryTx) LockAccounts(_ context.Context, ids ...string) (map[string]Account, error) {
	if t.locked != nil {
		return nil, errors.New("accounts already locked in this transaction")
	}

	ordered := slices.Clone(ids)
	slices.Sort(ordered)
	ordered = slices.Compact(ordered)

	t.locked = make(map[string]struct{}, len(ordered))
	for _, id := range ordered {
		l := t.store.accountLock(id)
		l.Lock()
		t.held = append(t.held, l)
		t.locked[id] = struct{}{}
	}

	out := make(map[string]Account, len(ordered))
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	for _, id := range ordered {
		account, ok := t.store.accounts[id]
		if !ok {
			return nil, accountNotFound(id)
		}
		out[id] = account
	}
	return out, nil
}

func (t *memoryTx) UpdateAccount(_ context.Context, account Account) error {
	if _, ok := t.locked[account.ID]; !ok {
		return ErrAccountNotLocked
	}
	if account.Balance < 0 {
		return ErrNegativeBalance
	}
	t.staged[account.ID] = account
	return nil
}

func (t *memoryTx) InsertVote(_ context.Context, vote Vote) error {
	if _, ok := t.locked[vote.AccountID]; !ok {
		return ErrAccountNotLocked
	}
	vote.Choices = slices.Clone(vote.Choices)
	t.votes = append(t.votes, vote)
	return nil
}

func (t *memoryTx) InsertAdminAction(_ context.Context, action AdminAction) error {
	t.actions = append(t.actions, action)
	return nil
}
