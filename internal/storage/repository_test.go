package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"solde/internal/core"
	"solde/internal/store"
)

func newTestSQLite(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "solde.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

// exerciseStore runs the document-store contract against any backend.
func exerciseStore(t *testing.T, s store.Store) {
	ctx := context.Background()

	u, err := s.CreateUser(ctx, core.User{Username: "ana", FirstName: "Ana", LastName: "Lopez", Email: "ana@example.com", PasswordHash: "h"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := s.CreateUser(ctx, core.User{Username: "ana2", Email: "ANA@example.com", PasswordHash: "h"}); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("duplicate email = %v, want ErrConflict", err)
	}
	found, err := s.FindUserByEmail(ctx, "Ana@Example.com")
	if err != nil || found.ID != u.ID || found.PasswordHash != "h" {
		t.Fatalf("FindUserByEmail = %+v, %v", found, err)
	}
	if _, err := s.GetUser(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("GetUser(missing) = %v", err)
	}

	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	second, err := s.CreateAccount(ctx, core.Account{UserID: u.ID, Currency: "EUR", CreatedAt: base.Add(time.Hour)})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	first, err := s.CreateAccount(ctx, core.Account{UserID: u.ID, Currency: "USD", CreatedAt: base})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	accounts, err := s.ListAccounts(ctx, u.ID)
	if err != nil {
		t.Fatalf("ListAccounts: %v", err)
	}
	if len(accounts) != 2 || accounts[0].ID != first.ID || accounts[1].ID != second.ID {
		t.Fatalf("ListAccounts order = %+v", accounts)
	}

	updated, err := s.UpdateAccountBalance(ctx, first.ID, core.MustMoney("-12.34"))
	if err != nil || !updated.Balance.Equal(core.MustMoney("-12.34")) {
		t.Fatalf("UpdateAccountBalance = %+v, %v", updated, err)
	}
	if _, err := s.UpdateAccountBalance(ctx, "missing", core.Money{}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("UpdateAccountBalance(missing) = %v", err)
	}

	tx, err := s.CreateTransaction(ctx, core.Transaction{
		UserID: u.ID, AccountID: first.ID, Name: "Salary", Amount: core.MustMoney("1500.10"),
		Category: "Salary", Kind: core.KindIncome, Date: core.NewDate(2024, 2, 29),
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	got, err := s.GetTransaction(ctx, tx.ID)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if !got.Amount.Equal(core.MustMoney("1500.1")) || got.Kind != core.KindIncome || got.Date.String() != "2024-02-29" || got.AccountID != first.ID {
		t.Fatalf("round trip = %+v", got)
	}
	txs, err := s.ListTransactions(ctx, u.ID)
	if err != nil || len(txs) != 1 {
		t.Fatalf("ListTransactions = %v, %v", txs, err)
	}

	g, err := s.CreateGoal(ctx, core.Goal{UserID: u.ID, Name: "Car", Amount: core.MustMoney("1000"), StartDate: core.NewDate(2024, 1, 1)})
	if err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}
	goals, err := s.ListGoals(ctx, u.ID)
	if err != nil || len(goals) != 1 || goals[0].ID != g.ID || goals[0].Achieved || !goals[0].Progress.IsZero() {
		t.Fatalf("ListGoals = %+v, %v", goals, err)
	}

	sess, err := s.CreateSession(ctx, core.Session{Token: "tok", UserID: u.ID, ExpiresAt: base.Add(24 * time.Hour)})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	loaded, err := s.GetSession(ctx, "tok")
	if err != nil || loaded.UserID != u.ID || !loaded.ExpiresAt.Equal(sess.ExpiresAt) {
		t.Fatalf("GetSession = %+v, %v", loaded, err)
	}
	if err := s.DeleteSession(ctx, "tok"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if _, err := s.GetSession(ctx, "tok"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("GetSession after delete = %v", err)
	}

	ids, err := s.ListUserIDs(ctx)
	if err != nil || len(ids) != 1 || ids[0] != u.ID {
		t.Fatalf("ListUserIDs = %v, %v", ids, err)
	}
}

func TestSQLiteRepository(t *testing.T) {
	exerciseStore(t, newTestSQLite(t))
}

func TestSQLiteRepository_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "solde.db")
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	u, err := repo.CreateUser(context.Background(), core.User{Email: "x@example.com", PasswordHash: "h"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	repo.Close()

	// Migrations must be a no-op the second time.
	repo, err = NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer repo.Close()
	if _, err := repo.GetUser(context.Background(), u.ID); err != nil {
		t.Fatalf("GetUser after reopen: %v", err)
	}
}

func TestPostgresRepository(t *testing.T) {
	dsn := os.Getenv("SOLDE_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("SOLDE_TEST_DATABASE_URL not set")
	}
	repo, err := NewPostgresRepository(context.Background(), dsn)
	if err != nil {
		t.Fatalf("NewPostgresRepository: %v", err)
	}
	defer repo.Close()
	if _, err := repo.pool.Exec(context.Background(), `TRUNCATE sessions, goals, transactions, accounts, users`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	exerciseStore(t, repo)
}
