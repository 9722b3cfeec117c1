package services

import (
	"context"
	"fmt"
	"log/slog"

	"solde/internal/core"
	"solde/internal/store"

	"golang.org/x/sync/errgroup"
)

// BalanceStore is the slice of the document store the recalculator needs.
type BalanceStore interface {
	ListAccounts(ctx context.Context, userID string) ([]core.Account, error)
	ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error)
	UpdateAccountBalance(ctx context.Context, id string, balance core.Money) (core.Account, error)
}

var _ BalanceStore = (store.Store)(nil)

// BalanceRecalculator rewrites every account balance of a user as the signed
// sum of that account's transactions.
type BalanceRecalculator struct {
	store BalanceStore
}

func NewBalanceRecalculator(s BalanceStore) *BalanceRecalculator {
	return &BalanceRecalculator{store: s}
}

// Recompute refreshes the balances of all accounts owned by userID and returns
// the re-read account list.
//
// The two reads are not a snapshot and the per-account writes are not atomic:
// on a failure, accounts already written keep their new balance while the rest
// stay stale until the next pass.
func (r *BalanceRecalculator) Recompute(ctx context.Context, userID string) ([]core.Account, error) {
	if userID == "" {
		return nil, &core.ValidationError{Field: "userId", Err: core.ErrMissingUser}
	}

	var (
		accounts []core.Account
		txs      []core.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		accounts, err = r.store.ListAccounts(gctx, userID)
		if err != nil {
			return fmt.Errorf("list accounts: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		txs, err = r.store.ListTransactions(gctx, userID)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("recompute balances: %w", err)
	}

	balances := core.Balances(txs)
	for i, a := range accounts {
		balance := balances[a.ID]
		if _, err := r.store.UpdateAccountBalance(ctx, a.ID, balance); err != nil {
			slog.ErrorContext(ctx, "Balance recompute aborted, some accounts left stale",
				"user_id", userID,
				"account_id", a.ID,
				"updated", i,
				"stale", len(accounts)-i,
				"error", err)
			return nil, fmt.Errorf("update balance of account %s: %w", a.ID, err)
		}
	}

	refreshed, err := r.store.ListAccounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts after recompute: %w", err)
	}

	slog.DebugContext(ctx, "Balances recomputed",
		"user_id", userID,
		"accounts", len(accounts),
		"transactions", len(txs))
	return refreshed, nil
}
