package ledger

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lcvote/voteledger/internal/domainerr"
)

const uniqueViolation = "23505"

// PostgresStore persists the ledger in PostgreSQL. Row locks taken with
// SELECT ... FOR UPDATE serialize transactions touching the same account.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed ledger store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func storageErr(op string, err error) error {
	return domainerr.Wrap(domainerr.StorageError, op, err)
}

// WithTx runs fn inside a read-committed transaction and commits on success.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return storageErr("begin transaction", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := fn(ctx, &postgresTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return storageErr("commit transaction", err)
	}
	return nil
}

// CreateAccount inserts a new account row.
func (s *PostgresStore) CreateAccount(ctx context.Context, account Account) error {
	if account.Balance < 0 {
		return ErrNegativeBalance
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(ctx, `INSERT INTO accounts (id, role, committee, balance, can_vote, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		account.ID, string(account.Role), account.Committee, account.Balance, account.CanVote, account.CreatedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrAccountExists
		}
		return storageErr("insert account", err)
	}
	return nil
}

const accountColumns = `id::text, role, committee, balance, can_vote, created_at`

func scanAccount(row pgx.Row) (Account, error) {
	var (
		a    Account
		role string
	)
	if err := row.Scan(&a.ID, &role, &a.Committee, &a.Balance, &a.CanVote, &a.CreatedAt); err != nil {
		return Account{}, err
	}
	a.Role = Role(role)
	a.CreatedAt = a.CreatedAt.UTC()
	return a, nil
}

// Account fetches an account without locking it.
func (s *PostgresStore) Account(ctx context.Context, id string) (Account, error) {
	if !validUUID(id) {
		return Account{}, accountNotFound(id)
	}
	row := s.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, accountNotFound(id)
		}
		return Account{}, storageErr("load account", err)
	}
	return account, nil
}

// ListAccounts returns every account ordered by committee.
func (s *PostgresStore) ListAccounts(ctx context.Context) ([]Account, error) {
	rows, err := s.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY committee, id`)
	if err != nil {
		return nil, storageErr("list accounts", err)
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, storageErr("scan account", err)
		}
		out = append(out, account)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list accounts", err)
	}
	return out, nil
}

// ListVotes returns the newest votes matching filter.
func (s *PostgresStore) ListVotes(ctx context.Context, filter VoteFilter) ([]Vote, error) {
	var (
		conds []string
		args  []any
	)
	if filter.AccountID != "" {
		if !validUUID(filter.AccountID) {
			return nil, nil
		}
		args = append(args, filter.AccountID)
		conds = append(conds, fmt.Sprintf("v.account_id = $%d", len(args)))
	}
	if filter.Committee != "" {
		args = append(args, filter.Committee)
		conds = append(conds, fmt.Sprintf("a.committee = $%d", len(args)))
	}
	args = append(args, filter.NormalizedLimit())

	query := `SELECT v.id::text, v.account_id::text, v.choices, v.created_at
        FROM votes v INNER JOIN accounts a ON a.id = v.account_id`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY v.created_at DESC, v.id DESC LIMIT $%d", len(args))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, storageErr("list votes", err)
	}
	defer rows.Close()

	var out []Vote
	for rows.Next() {
		var (
			v       Vote
			choices []string
		)
		if err := rows.Scan(&v.ID, &v.AccountID, &choices, &v.CreatedAt); err != nil {
			return nil, storageErr("scan vote", err)
		}
		v.Choices = make([]Choice, len(choices))
		for i, c := range choices {
			v.Choices[i] = Choice(c)
		}
		v.CreatedAt = v.CreatedAt.UTC()
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list votes", err)
	}
	return out, nil
}

// ListAdminActions returns the newest audit records.
func (s *PostgresStore) ListAdminActions(ctx context.Context, limit int) ([]AdminAction, error) {
	if limit <= 0 {
		limit = DefaultActionLimit
	}
	rows, err := s.db.Query(ctx, `SELECT id::text, actor_id::text, action_type, details, created_at
        FROM admin_actions ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, storageErr("list admin actions", err)
	}
	defer rows.Close()

	var out []AdminAction
	for rows.Next() {
		var (
			a          AdminAction
			actionType string
			details    []byte
		)
		if err := rows.Scan(&a.ID, &a.ActorID, &actionType, &details, &a.CreatedAt); err != nil {
			return nil, storageErr("scan admin action", err)
		}
		a.ActionType = ActionType(actionType)
		a.Details = details
		a.CreatedAt = a.CreatedAt.UTC()
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list admin actions", err)
	}
	return out, nil
}

type postgresTx struct {
	tx     pgx.Tx
	locked map[string]struct{}
}

// LockAccounts locks rows in ascending id order so two transfers between the
// same pair of accounts can never deadlock.
func (t *postgresTx) LockAccounts(ctx context.Context, ids ...string) (map[string]Account, error) {
	if t.locked != nil {
		return nil, errors.New("accounts already locked in this transaction")
	}
	ordered := slices.Clone(ids)
	slices.Sort(ordered)
	ordered = slices.Compact(ordered)
	for _, id := range ordered {
		if !validUUID(id) {
			return nil, accountNotFound(id)
		}
	}

	rows, err := t.tx.Query(ctx, `SELECT `+accountColumns+` FROM accounts
        WHERE id = ANY($1::uuid[]) ORDER BY id FOR UPDATE`, ordered)
	if err != nil {
		return nil, storageErr("lock accounts", err)
	}
	defer rows.Close()

	out := make(map[string]Account, len(ordered))
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, storageErr("scan account", err)
		}
		out[account.ID] = account
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("lock accounts", err)
	}

	for _, id := range ordered {
		if _, ok := out[id]; !ok {
			return nil, accountNotFound(id)
		}
	}
	t.locked = make(map[string]struct{}, len(ordered))
	for _, id := range ordered {
		t.locked[id] = struct{}{}
	}
	return out, nil
}

func (t *postgresTx) UpdateAccount(ctx context.Context, account Account) error {
	if _, ok := t.locked[account.ID]; !ok {
		return ErrAccountNotLocked
	}
	if account.Balance < 0 {
		return ErrNegativeBalance
	}
	if _, err := t.tx.Exec(ctx, `UPDATE accounts SET balance = $2, can_vote = $3 WHERE id = $1`,
		account.ID, account.Balance, account.CanVote); err != nil {
		return storageErr("update account", err)
	}
	return nil
}

func (t *postgresTx) InsertVote(ctx context.Context, vote Vote) error {
	if _, ok := t.locked[vote.AccountID]; !ok {
		return ErrAccountNotLocked
	}
	if _, err := t.tx.Exec(ctx, `INSERT INTO votes (id, account_id, choices, created_at) VALUES ($1, $2, $3, $4)`,
		vote.ID, vote.AccountID, ChoiceStrings(vote.Choices), vote.CreatedAt.UTC()); err != nil {
		return storageErr("insert vote", err)
	}
	return nil
}

func (t *postgresTx) InsertAdminAction(ctx context.Context, action AdminAction) error {
	if _, err := t.tx.Exec(ctx, `INSERT INTO admin_actions (id, actor_id, action_type, details, created_at)
        VALUES ($1, $2, $3, $4, $5)`,
		action.ID, action.ActorID, string(action.ActionType), []byte(action.Details), action.CreatedAt.UTC()); err != nil {
		return storageErr("insert admin action", err)
	}
	return nil
}
