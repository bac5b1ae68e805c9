package repository

import (
	"context"
	"sync"

	"github.com/duynhne/session-auth/internal/core/domain"
)

// MemoryAccountRepository implements domain.AccountRepository with an
// in-process map. Contents are lost on restart.
type MemoryAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]domain.Account
}

// NewMemoryAccountRepository creates an empty MemoryAccountRepository.
func NewMemoryAccountRepository() *MemoryAccountRepository {
	return &MemoryAccountRepository{accounts: make(map[string]domain.Account)}
}

// FindByEmail returns a copy of the stored account, or (nil, nil).
func (r *MemoryAccountRepository) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.accounts[email]
	if !ok {
		return nil, nil
	}
	return &account, nil
}

// Insert stores the account unless the email is already taken.
// The check and the write happen under one lock.
func (r *MemoryAccountRepository) Insert(_ context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[account.Email]; ok {
		return domain.ErrDuplicateAccount
	}
	r.accounts[account.Email] = *account
	return nil
}

// Len returns the number of stored accounts.
func (r *MemoryAccountRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.accounts)
}
