package ledger

import "time"

// SeedAccount is a test helper that inserts or overwrites an account when using the in-memory ledger.
func SeedAccount(s Store, account Account) {
	if mem, ok := s.(*inMemoryStore); ok {
		if account.CreatedAt.IsZero() {
			account.CreatedAt = time.Now().UTC()
		}
		if account.Role == "" {
			account.Role = RoleUser
		}
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.accounts[account.ID] = account
	}
}
