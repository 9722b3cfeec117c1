// Package store defines the document-store contract the services depend on.
//
// Every List call filters by equality on the owning user and returns
// documents in ascending creation order, ties broken by insertion order.
package store

import (
	"context"
	"errors"

	"solde/internal/core"
)

var (
	ErrNotFound = errors.New("document not found")
	ErrConflict = errors.New("document already exists")
)

// Ports for outbound adapters.
type (
	UserStore interface {
		CreateUser(ctx context.Context, u core.User) (core.User, error)
		GetUser(ctx context.Context, id string) (core.User, error)
		FindUserByEmail(ctx context.Context, email string) (core.User, error)
		// ListUserIDs returns every user id, oldest first.
		ListUserIDs(ctx context.Context) ([]string, error)
	}

	AccountStore interface {
		CreateAccount(ctx context.Context, a core.Account) (core.Account, error)
		GetAccount(ctx context.Context, id string) (core.Account, error)
		ListAccounts(ctx context.Context, userID string) ([]core.Account, error)
		UpdateAccountBalance(ctx context.Context, id string, balance core.Money) (core.Account, error)
	}

	TransactionStore interface {
		CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		GetTransaction(ctx context.Context, id string) (core.Transaction, error)
		ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error)
	}

	GoalStore interface {
		CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error)
		ListGoals(ctx context.Context, userID string) ([]core.Goal, error)
	}

	SessionStore interface {
		CreateSession(ctx context.Context, s core.Session) (core.Session, error)
		GetSession(ctx context.Context, token string) (core.Session, error)
		DeleteSession(ctx context.Context, token string) error
	}

	// Store is the full document store a backend provides.
	Store interface {
		UserStore
		AccountStore
		TransactionStore
		GoalStore
		SessionStore
		Ping(ctx context.Context) error
		Close() error
	}
)
