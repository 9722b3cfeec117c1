package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"solde/internal/amqp"
	"solde/internal/core"
	"solde/internal/store"
)

// Recomputer rewrites a user's account balances.
type Recomputer interface {
	Recompute(ctx context.Context, userID string) ([]core.Account, error)
}

// TransactionMirror copies recorded transactions to an external ledger.
type TransactionMirror interface {
	AppendTransaction(ctx context.Context, t core.Transaction) (string, error)
}

// Store is what the worker reads besides balances.
type Store interface {
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	ListUserIDs(ctx context.Context) ([]string, error)
}

// RecomputeWorker applies recompute messages and periodic sweeps.
type RecomputeWorker struct {
	recomputer Recomputer
	store      Store
	mirror     TransactionMirror
}

// NewRecomputeWorker builds the worker. mirror may be nil.
func NewRecomputeWorker(r Recomputer, s Store, mirror TransactionMirror) *RecomputeWorker {
	return &RecomputeWorker{recomputer: r, store: s, mirror: mirror}
}

// HandleRecompute processes one message from the event bus. A returned error
// makes the consumer requeue the message; recomputing twice is harmless.
// Only recompute failures are returned: a failed mirror append is logged and
// the message acked.
func (w *RecomputeWorker) HandleRecompute(ctx context.Context, msg *amqp.RecomputeMessage) error {
	accounts, err := w.recomputer.Recompute(ctx, msg.UserID)
	if err != nil {
		return fmt.Errorf("recompute balances: %w", err)
	}
	slog.InfoContext(ctx, "Balances recomputed from message",
		"user_id", msg.UserID,
		"accounts", len(accounts))

	if w.mirror == nil || msg.TransactionID == "" {
		return nil
	}
	if err := w.mirrorTransaction(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to mirror transaction",
			"user_id", msg.UserID,
			"transaction_id", msg.TransactionID,
			"error", err)
	}
	return nil
}

func (w *RecomputeWorker) mirrorTransaction(ctx context.Context, msg *amqp.RecomputeMessage) error {
	t, err := w.store.GetTransaction(ctx, msg.TransactionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			slog.WarnContext(ctx, "Transaction to mirror no longer exists, skipping",
				"transaction_id", msg.TransactionID)
			return nil
		}
		return fmt.Errorf("get transaction: %w", err)
	}
	if t.UserID != msg.UserID {
		slog.WarnContext(ctx, "Message user does not own transaction, skipping mirror",
			"user_id", msg.UserID,
			"transaction_id", msg.TransactionID)
		return nil
	}

	ref, err := w.mirror.AppendTransaction(ctx, t)
	if err != nil {
		return fmt.Errorf("append to sheets: %w", err)
	}
	slog.InfoContext(ctx, "Mirrored transaction",
		"transaction_id", t.ID,
		"sheets_ref", ref)
	return nil
}

// SweepResult summarizes a full pass over all users.
type SweepResult struct {
	Users  int
	Failed int
}

// Sweep recomputes every user's balances. It is the backstop for lost
// messages and for passes that aborted halfway. One user's failure does not
// stop the sweep.
func (w *RecomputeWorker) Sweep(ctx context.Context) (SweepResult, error) {
	ids, err := w.store.ListUserIDs(ctx)
	if err != nil {
		return SweepResult{}, fmt.Errorf("list users: %w", err)
	}

	res := SweepResult{Users: len(ids)}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if _, err := w.recomputer.Recompute(ctx, id); err != nil {
			res.Failed++
			slog.ErrorContext(ctx, "Sweep failed for user", "user_id", id, "error", err)
		}
	}

	slog.InfoContext(ctx, "Recompute sweep completed",
		"users", res.Users,
		"failed", res.Failed)
	return res, nil
}
