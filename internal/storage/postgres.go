package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"solde/internal/core"
	"solde/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores documents in Postgres through a pgx pool.
// Numeric columns travel as text so no value passes through a float.
type PostgresRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

var _ store.Store = (*PostgresRepository)(nil)

func NewPostgresRepository(ctx context.Context, dsn string) (*PostgresRepository, error) {
	if err := RunPostgresMigrations(dsn); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresRepository{pool: pool, now: time.Now}, nil
}

func (r *PostgresRepository) Close() error {
	if r.pool != nil {
		r.pool.Close()
	}
	return nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *PostgresRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	store.Stamp(&u.ID, &u.CreatedAt, r.now())
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, username, first_name, last_name, email, password_hash, is_verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, u.ID, u.Username, u.FirstName, u.LastName, u.Email, u.PasswordHash, u.Verified, u.CreatedAt)
	if err != nil {
		if pgUniqueViolation(err) {
			return core.User{}, fmt.Errorf("create user %s: %w", u.Email, store.ErrConflict)
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) getUser(ctx context.Context, where string, arg any) (core.User, error) {
	var u core.User
	err := r.pool.QueryRow(ctx, `
		SELECT id, username, first_name, last_name, email, password_hash, is_verified, created_at
		FROM users WHERE `+where, arg).
		Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &u.Verified, &u.CreatedAt)
	if err != nil {
		return core.User{}, pgNotFound(err, "get user")
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

func (r *PostgresRepository) GetUser(ctx context.Context, id string) (core.User, error) {
	return r.getUser(ctx, `id = $1`, id)
}

func (r *PostgresRepository) FindUserByEmail(ctx context.Context, email string) (core.User, error) {
	return r.getUser(ctx, `lower(email) = lower($1)`, email)
}

func (r *PostgresRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM users ORDER BY created_at, seq`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan user ids: %w", err)
	}
	return ids, nil
}

func (r *PostgresRepository) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	store.Stamp(&a.ID, &a.CreatedAt, r.now())
	_, err := r.pool.Exec(ctx, `
		INSERT INTO accounts (id, user_id, currency, balance, created_at)
		VALUES ($1, $2, $3, $4::numeric, $5)
	`, a.ID, a.UserID, a.Currency, a.Balance.String(), a.CreatedAt)
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	return a, nil
}

func scanPgAccount(row pgx.Row) (core.Account, error) {
	var (
		a       core.Account
		balance string
	)
	if err := row.Scan(&a.ID, &a.UserID, &a.Currency, &balance, &a.CreatedAt); err != nil {
		return core.Account{}, err
	}
	m, err := parseMoney(balance)
	if err != nil {
		return core.Account{}, fmt.Errorf("account %s balance: %w", a.ID, err)
	}
	a.Balance = m
	a.CreatedAt = a.CreatedAt.UTC()
	return a, nil
}

const pgAccountColumns = `id, user_id, currency, balance::text, created_at`

func (r *PostgresRepository) GetAccount(ctx context.Context, id string) (core.Account, error) {
	a, err := scanPgAccount(r.pool.QueryRow(ctx, `SELECT `+pgAccountColumns+` FROM accounts WHERE id = $1`, id))
	if err != nil {
		return core.Account{}, pgNotFound(err, "get account "+id)
	}
	return a, nil
}

func (r *PostgresRepository) ListAccounts(ctx context.Context, userID string) ([]core.Account, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+pgAccountColumns+` FROM accounts WHERE user_id = $1 ORDER BY created_at, seq`, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	out := make([]core.Account, 0)
	for rows.Next() {
		a, err := scanPgAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) UpdateAccountBalance(ctx context.Context, id string, balance core.Money) (core.Account, error) {
	a, err := scanPgAccount(r.pool.QueryRow(ctx, `
		UPDATE accounts SET balance = $2::numeric WHERE id = $1
		RETURNING `+pgAccountColumns, id, balance.String()))
	if err != nil {
		return core.Account{}, pgNotFound(err, "update account "+id)
	}
	return a, nil
}

func (r *PostgresRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	store.Stamp(&t.ID, &t.CreatedAt, r.now())
	_, err := r.pool.Exec(ctx, `
		INSERT INTO transactions (id, user_id, account_id, name, amount, category, kind, tx_date, created_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8::date, $9)
	`, t.ID, t.UserID, t.AccountID, t.Name, t.Amount.String(), t.Category, string(t.Kind), t.Date.String(), t.CreatedAt)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	return t, nil
}

const pgTransactionColumns = `id, user_id, account_id, name, amount::text, category, kind, tx_date, created_at`

func scanPgTransaction(row pgx.Row) (core.Transaction, error) {
	var (
		t            core.Transaction
		amount, kind string
		date         time.Time
	)
	if err := row.Scan(&t.ID, &t.UserID, &t.AccountID, &t.Name, &amount, &t.Category, &kind, &date, &t.CreatedAt); err != nil {
		return core.Transaction{}, err
	}
	m, err := parseMoney(amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s amount: %w", t.ID, err)
	}
	t.Amount = m
	t.Kind = core.Kind(kind)
	t.Date = core.NewDate(date.Year(), int(date.Month()), date.Day())
	t.CreatedAt = t.CreatedAt.UTC()
	return t, nil
}

func (r *PostgresRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	t, err := scanPgTransaction(r.pool.QueryRow(ctx, `SELECT `+pgTransactionColumns+` FROM transactions WHERE id = $1`, id))
	if err != nil {
		return core.Transaction{}, pgNotFound(err, "get transaction "+id)
	}
	return t, nil
}

func (r *PostgresRepository) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+pgTransactionColumns+` FROM transactions WHERE user_id = $1 ORDER BY created_at, seq`, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		t, err := scanPgTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	store.Stamp(&g.ID, &g.CreatedAt, r.now())
	_, err := r.pool.Exec(ctx, `
		INSERT INTO goals (id, user_id, name, amount, start_date, achieved, progress, created_at)
		VALUES ($1, $2, $3, $4::numeric, $5::date, $6, $7::numeric, $8)
	`, g.ID, g.UserID, g.Name, g.Amount.String(), g.StartDate.String(), g.Achieved, g.Progress.String(), g.CreatedAt)
	if err != nil {
		return core.Goal{}, fmt.Errorf("create goal: %w", err)
	}
	return g, nil
}

func (r *PostgresRepository) ListGoals(ctx context.Context, userID string) ([]core.Goal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, name, amount::text, start_date, achieved, progress::text, created_at
		FROM goals WHERE user_id = $1 ORDER BY created_at, seq
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	out := make([]core.Goal, 0)
	for rows.Next() {
		var (
			g                core.Goal
			amount, progress string
			start            time.Time
		)
		if e := rows.Scan(&g.ID, &g.UserID, &g.Name, &amount, &start, &g.Achieved, &progress, &g.CreatedAt); e != nil {
			return nil, fmt.Errorf("scan goal: %w", e)
		}
		if g.Amount, err = parseMoney(amount); err != nil {
			return nil, fmt.Errorf("goal %s amount: %w", g.ID, err)
		}
		if g.Progress, err = parseMoney(progress); err != nil {
			return nil, fmt.Errorf("goal %s progress: %w", g.ID, err)
		}
		g.StartDate = core.NewDate(start.Year(), int(start.Month()), start.Day())
		g.CreatedAt = g.CreatedAt.UTC()
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) CreateSession(ctx context.Context, s core.Session) (core.Session, error) {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = r.now().UTC()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sessions (token, user_id, expires_at, created_at) VALUES ($1, $2, $3, $4)
	`, s.Token, s.UserID, s.ExpiresAt, s.CreatedAt)
	if err != nil {
		if pgUniqueViolation(err) {
			return core.Session{}, fmt.Errorf("create session: %w", store.ErrConflict)
		}
		return core.Session{}, fmt.Errorf("create session: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) GetSession(ctx context.Context, token string) (core.Session, error) {
	var s core.Session
	err := r.pool.QueryRow(ctx, `
		SELECT token, user_id, expires_at, created_at FROM sessions WHERE token = $1
	`, token).Scan(&s.Token, &s.UserID, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		return core.Session{}, pgNotFound(err, "get session")
	}
	return s, nil
}

func (r *PostgresRepository) DeleteSession(ctx context.Context, token string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func pgNotFound(err error, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func pgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
