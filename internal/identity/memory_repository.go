package identity

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu        sync.RWMutex
	byAccount map[string]User
	byEmail   map[string]string
}

// NewMemoryRepository builds an in-memory user store for testing.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		byAccount: make(map[string]User),
		byEmail:   make(map[string]string),
	}
}

func (r *memoryRepository) Create(_ context.Context, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[user.Email]; exists {
		return ErrUserExists
	}
	if _, exists := r.byAccount[user.AccountID]; exists {
		return ErrUserExists
	}
	r.byAccount[user.AccountID] = user
	r.byEmail[user.Email] = user.AccountID
	return nil
}

func (r *memoryRepository) FindByEmail(_ context.Context, email string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return r.byAccount[id], nil
}

func (r *memoryRepository) FindByAccountID(_ context.Context, accountID string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.byAccount[accountID]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (r *memoryRepository) FindByAccountIDs(_ context.Context, accountIDs []string) (map[string]User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]User, len(accountIDs))
	for _, id := range accountIDs {
		if user, ok := r.byAccount[id]; ok {
			out[id] = user
		}
	}
	return out, nil
}
