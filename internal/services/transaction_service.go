package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"solde/internal/core"
	"solde/internal/store"
)

// RecomputePublisher announces that a user's balances need recomputing.
type RecomputePublisher interface {
	PublishRecompute(ctx context.Context, userID, transactionID string) error
}

// TransactionStore is the slice of the document store transaction recording needs.
type TransactionStore interface {
	GetAccount(ctx context.Context, id string) (core.Account, error)
	CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error)
}

// TransactionService records transactions and announces them on the event bus.
type TransactionService struct {
	store     TransactionStore
	publisher RecomputePublisher
}

// NewTransactionService builds the service. publisher may be nil when no
// event bus is configured.
func NewTransactionService(s TransactionStore, publisher RecomputePublisher) *TransactionService {
	return &TransactionService{store: s, publisher: publisher}
}

// Record validates and appends one transaction for userID. The amount is
// rounded to cents first, so a sub-cent amount is rejected as zero.
//
// It does not touch balances. Callers run the BalanceRecalculator afterwards;
// until they do, or if they crash before doing so, the account balance is stale.
func (s *TransactionService) Record(ctx context.Context, userID string, in core.TransactionInput) (core.Transaction, error) {
	t := core.Transaction{
		UserID:    strings.TrimSpace(userID),
		AccountID: strings.TrimSpace(in.AccountID),
		Name:      strings.TrimSpace(in.Name),
		Amount:    in.Amount.Cents(),
		Category:  strings.TrimSpace(in.Category),
		Kind:      in.Kind,
		Date:      in.Date,
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	account, err := s.store.GetAccount(ctx, t.AccountID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get account: %w", err)
	}
	if account.UserID != t.UserID {
		return core.Transaction{}, fmt.Errorf("account %s: %w", t.AccountID, store.ErrNotFound)
	}

	created, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	if err := s.publishRecompute(ctx, created); err != nil {
		slog.ErrorContext(ctx, "Failed to publish recompute message",
			"user_id", created.UserID,
			"transaction_id", created.ID,
			"error", err)
		// Don't fail the request - the transaction is stored and the sweep
		// will pick the balance up.
	}

	slog.InfoContext(ctx, "Transaction recorded",
		"user_id", created.UserID,
		"transaction_id", created.ID,
		"kind", created.Kind)
	return created, nil
}

// List returns the user's transactions in creation order. An empty kind
// returns both incomes and expenses.
func (s *TransactionService) List(ctx context.Context, userID string, kind core.Kind) ([]core.Transaction, error) {
	if userID == "" {
		return nil, &core.ValidationError{Field: "userId", Err: core.ErrMissingUser}
	}
	if kind != "" && !kind.Valid() {
		return nil, &core.ValidationError{Field: "typeENUM", Err: core.ErrInvalidKind}
	}
	txs, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return core.FilterKind(txs, kind), nil
}

func (s *TransactionService) publishRecompute(ctx context.Context, t core.Transaction) error {
	if s.publisher == nil {
		slog.DebugContext(ctx, "No event bus configured, skipping recompute message")
		return nil
	}
	return s.publisher.PublishRecompute(ctx, t.UserID, t.ID)
}
