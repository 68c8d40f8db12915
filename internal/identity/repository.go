package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// Repository persists login records.
type Repository interface {
	Create(ctx context.Context, user User) error
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByAccountID(ctx context.Context, accountID string) (User, error)
	FindByAccountIDs(ctx context.Context, accountIDs []string) (map[string]User, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectUser = `SELECT account_id::text, email, display_name, password_hash, created_at FROM identities`

// Create inserts a new login record. The account row must already exist.
func (r *PostgresRepository) Create(ctx context.Context, user User) error {
	_, err := r.db.Exec(ctx, `INSERT INTO identities (account_id, email, display_name, password_hash, created_at)
        VALUES ($1::uuid, $2, $3, $4, $5)`, user.AccountID, user.Email, user.DisplayName, user.PasswordHash, user.CreatedAt.UTC())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrUserExists
	}
	return err
}

// FindByEmail fetches a user by login email.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(r.db.QueryRow(ctx, selectUser+` WHERE email = $1`, email))
}

// FindByAccountID fetches the login record of an account.
func (r *PostgresRepository) FindByAccountID(ctx context.Context, accountID string) (User, error) {
	if _, err := uuid.Parse(accountID); err != nil {
		return User{}, ErrUserNotFound
	}
	return scanUser(r.db.QueryRow(ctx, selectUser+` WHERE account_id = $1::uuid`, accountID))
}

// FindByAccountIDs fetches a batch of login records. Unknown ids are absent from the result.
func (r *PostgresRepository) FindByAccountIDs(ctx context.Context, accountIDs []string) (map[string]User, error) {
	out := make(map[string]User, len(accountIDs))
	valid := make([]string, 0, len(accountIDs))
	for _, id := range accountIDs {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return out, nil
	}
	rows, err := r.db.Query(ctx, selectUser+` WHERE account_id = ANY($1::uuid[])`, valid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out[user.AccountID] = user
	}
	return out, rows.Err()
}

func scanUser(row pgx.Row) (User, error) {
	var user User
	if err := row.Scan(&user.AccountID, &user.Email, &user.DisplayName, &user.PasswordHash, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return user, nil
}
