package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// Service manages login records and answers directory lookups.
type Service struct {
	repo Repository
	cost int
}

// NewService creates a new identity service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, cost: bcrypt.DefaultCost}
}

// WithCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func (s *Service) WithCost(cost int) *Service {
	s.cost = cost
	return s
}

// Register stores a hashed password for an existing ledger account.
func (s *Service) Register(ctx context.Context, accountID, displayName string, creds Credentials) (User, error) {
	email := normalizeEmail(creds.Email)
	if accountID == "" || email == "" {
		return User{}, errors.New("account id and email are required")
	}
	if len(creds.Password) < minPasswordLength {
		return User{}, fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), s.cost)
	if err != nil {
		return User{}, err
	}

	user := User{
		AccountID:    accountID,
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

// Authenticate verifies credentials. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (User, error) {
	user, err := s.repo.FindByEmail(ctx, normalizeEmail(creds.Email))
	if errors.Is(err, ErrUserNotFound) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(creds.Password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

// Lookup returns the login record of an account.
func (s *Service) Lookup(ctx context.Context, accountID string) (User, error) {
	return s.repo.FindByAccountID(ctx, accountID)
}

// ByEmail returns the login record registered under email.
func (s *Service) ByEmail(ctx context.Context, email string) (User, error) {
	return s.repo.FindByEmail(ctx, normalizeEmail(email))
}

// LookupMany returns the login records of the given accounts that have one.
func (s *Service) LookupMany(ctx context.Context, accountIDs []string) (map[string]User, error) {
	return s.repo.FindByAccountIDs(ctx, accountIDs)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
