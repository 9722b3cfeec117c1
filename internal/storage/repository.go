package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"solde/internal/core"
	"solde/internal/store"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

var _ store.Store = (*SQLiteRepository)(nil)

// sqliteDSN turns a file path into a DSN with foreign keys and a busy timeout.
func sqliteDSN(dbPath string) string {
	return "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	dsn := sqliteDSN(dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; SQLite serialises writes anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	store.Stamp(&u.ID, &u.CreatedAt, r.now())
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, username, first_name, last_name, email, password_hash, is_verified, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.FirstName, u.LastName, u.Email, u.PasswordHash, u.Verified, u.CreatedAt.UnixNano())
	if err != nil {
		if isUniqueViolation(err) {
			return core.User{}, fmt.Errorf("create user %s: %w", u.Email, store.ErrConflict)
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	slog.DebugContext(ctx, "User saved to SQLite", "id", u.ID)
	return u, nil
}

const userColumns = `id, username, first_name, last_name, email, password_hash, is_verified, created_at`

func scanUser(row interface{ Scan(...any) error }) (core.User, error) {
	var (
		u       core.User
		created int64
	)
	if err := row.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &u.Verified, &created); err != nil {
		return core.User{}, err
	}
	u.CreatedAt = fromNanos(created)
	return u, nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id string) (core.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return core.User{}, notFound(err, "get user "+id)
	}
	return u, nil
}

func (r *SQLiteRepository) FindUserByEmail(ctx context.Context, email string) (core.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower(?)`, email))
	if err != nil {
		return core.User{}, notFound(err, "find user "+email)
	}
	return u, nil
}

func (r *SQLiteRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM users ORDER BY created_at ASC, rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	store.Stamp(&a.ID, &a.CreatedAt, r.now())
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (id, user_id, currency, balance, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.Currency, a.Balance.String(), a.CreatedAt.UnixNano())
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	return a, nil
}

const accountColumns = `id, user_id, currency, balance, created_at`

func scanAccount(row interface{ Scan(...any) error }) (core.Account, error) {
	var (
		a       core.Account
		balance string
		created int64
	)
	if err := row.Scan(&a.ID, &a.UserID, &a.Currency, &balance, &created); err != nil {
		return core.Account{}, err
	}
	m, err := parseMoney(balance)
	if err != nil {
		return core.Account{}, fmt.Errorf("account %s balance: %w", a.ID, err)
	}
	a.Balance = m
	a.CreatedAt = fromNanos(created)
	return a, nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, id string) (core.Account, error) {
	a, err := scanAccount(r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id))
	if err != nil {
		return core.Account{}, notFound(err, "get account "+id)
	}
	return a, nil
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context, userID string) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = ? ORDER BY created_at ASC, rowid ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	out := make([]core.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateAccountBalance(ctx context.Context, id string, balance core.Money) (core.Account, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE accounts SET balance = ? WHERE id = ?`, balance.String(), id)
	if err != nil {
		return core.Account{}, fmt.Errorf("update account %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.Account{}, fmt.Errorf("update account %s: %w", id, store.ErrNotFound)
	}
	return r.GetAccount(ctx, id)
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	store.Stamp(&t.ID, &t.CreatedAt, r.now())
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, account_id, name, amount, category, kind, tx_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.AccountID, t.Name, t.Amount.String(), t.Category, string(t.Kind), t.Date.String(), t.CreatedAt.UnixNano())
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"account_id", t.AccountID,
		"kind", t.Kind,
		"amount", t.Amount.String())

	return t, nil
}

const transactionColumns = `id, user_id, account_id, name, amount, category, kind, tx_date, created_at`

func scanTransaction(row interface{ Scan(...any) error }) (core.Transaction, error) {
	var (
		t               core.Transaction
		amount, kind, d string
		created         int64
	)
	if err := row.Scan(&t.ID, &t.UserID, &t.AccountID, &t.Name, &amount, &t.Category, &kind, &d, &created); err != nil {
		return core.Transaction{}, err
	}
	m, err := parseMoney(amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s amount: %w", t.ID, err)
	}
	date, err := core.ParseDate(d)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s date: %w", t.ID, err)
	}
	t.Amount = m
	t.Kind = core.Kind(kind)
	t.Date = date
	t.CreatedAt = fromNanos(created)
	return t, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	t, err := scanTransaction(r.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id))
	if err != nil {
		return core.Transaction{}, notFound(err, "get transaction "+id)
	}
	return t, nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = ? ORDER BY created_at ASC, rowid ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	store.Stamp(&g.ID, &g.CreatedAt, r.now())
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO goals (id, user_id, name, amount, start_date, achieved, progress, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.UserID, g.Name, g.Amount.String(), g.StartDate.String(), g.Achieved, g.Progress.String(), g.CreatedAt.UnixNano())
	if err != nil {
		return core.Goal{}, fmt.Errorf("create goal: %w", err)
	}
	return g, nil
}

func (r *SQLiteRepository) ListGoals(ctx context.Context, userID string) ([]core.Goal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, amount, start_date, achieved, progress, created_at
		FROM goals WHERE user_id = ? ORDER BY created_at ASC, rowid ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	out := make([]core.Goal, 0)
	for rows.Next() {
		var (
			g                     core.Goal
			amount, start, progrs string
			created               int64
		)
		if err := rows.Scan(&g.ID, &g.UserID, &g.Name, &amount, &start, &g.Achieved, &progrs, &created); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		if g.Amount, err = parseMoney(amount); err != nil {
			return nil, fmt.Errorf("goal %s amount: %w", g.ID, err)
		}
		if g.Progress, err = parseMoney(progrs); err != nil {
			return nil, fmt.Errorf("goal %s progress: %w", g.ID, err)
		}
		if g.StartDate, err = core.ParseDate(start); err != nil {
			return nil, fmt.Errorf("goal %s start date: %w", g.ID, err)
		}
		g.CreatedAt = fromNanos(created)
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateSession(ctx context.Context, s core.Session) (core.Session, error) {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = r.now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (token, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		s.Token, s.UserID, s.ExpiresAt.UnixNano(), s.CreatedAt.UnixNano())
	if err != nil {
		if isUniqueViolation(err) {
			return core.Session{}, fmt.Errorf("create session: %w", store.ErrConflict)
		}
		return core.Session{}, fmt.Errorf("create session: %w", err)
	}
	return s, nil
}

func (r *SQLiteRepository) GetSession(ctx context.Context, token string) (core.Session, error) {
	var (
		s                core.Session
		expires, created int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT token, user_id, expires_at, created_at FROM sessions WHERE token = ?`, token).
		Scan(&s.Token, &s.UserID, &expires, &created)
	if err != nil {
		return core.Session{}, notFound(err, "get session")
	}
	s.ExpiresAt = fromNanos(expires)
	s.CreatedAt = fromNanos(created)
	return s, nil
}

func (r *SQLiteRepository) DeleteSession(ctx context.Context, token string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func parseMoney(s string) (core.Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return core.Money{}, err
	}
	return core.NewMoney(d), nil
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

// notFound maps sql.ErrNoRows onto store.ErrNotFound and wraps everything else.
func notFound(err error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
