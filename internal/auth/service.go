package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/lcvote/voteledger/internal/domainerr"
	"github.com/lcvote/voteledger/internal/identity"
)

// Authenticator verifies login credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, creds identity.Credentials) (identity.User, error)
}

// Service logs accounts in and hands out access tokens.
type Service struct {
	users  Authenticator
	tokens *Tokens
	logger *slog.Logger
}

func NewService(users Authenticator, tokens *Tokens, logger *slog.Logger) *Service {
	return &Service{users: users, tokens: tokens, logger: logger}
}

// Session is the result of a successful login.
type Session struct {
	AccountID   string
	AccessToken string
	ExpiresAt   time.Time
}

// Login validates credentials and issues an access token.
func (s *Service) Login(ctx context.Context, creds identity.Credentials) (Session, error) {
	if strings.TrimSpace(creds.Email) == "" || creds.Password == "" {
		return Session{}, domainerr.New(domainerr.InvalidPayload, "email and password are required")
	}

	user, err := s.users.Authenticate(ctx, creds)
	if errors.Is(err, identity.ErrInvalidCredentials) {
		if s.logger != nil {
			s.logger.Info("login rejected", "reason", "invalid_credentials")
		}
		return Session{}, domainerr.New(domainerr.Unauthenticated, identity.ErrInvalidCredentials.Error())
	}
	if err != nil {
		return Session{}, domainerr.Wrap(domainerr.StorageError, "login failed", err)
	}

	token, exp, err := s.tokens.Issue(user.AccountID)
	if err != nil {
		return Session{}, domainerr.Wrap(domainerr.StorageError, "login failed", err)
	}
	return Session{AccountID: user.AccountID, AccessToken: token, ExpiresAt: exp}, nil
}
