package http

import (
	"net/http"

	"solde/internal/core"
	applog "solde/internal/log"
)

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request, user core.User) {
	accounts, err := s.store.ListAccounts(r.Context(), user.ID)
	if err != nil {
		writeDegradedList(w, r, "accounts", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"accounts": nonNil(accounts)})
}

func (s *Server) handleRecompute(w http.ResponseWriter, r *http.Request, user core.User) {
	accounts, err := s.balances.Recompute(r.Context(), user.ID)
	if err != nil {
		s.recordRecomputeFailure()
		writeError(w, r, applog.OpRecompute, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"accounts": nonNil(accounts)})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request, user core.User) {
	kind, err := parseKind(r.URL.Query())
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	txs, err := s.transactions.List(r.Context(), user.ID, kind)
	if err != nil {
		writeDegradedList(w, r, "transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": nonNil(txs)})
}

type createTransactionResponse struct {
	Transaction core.Transaction `json:"transaction"`
	Accounts    []core.Account   `json:"accounts,omitempty"`
	Warning     string           `json:"warning,omitempty"`
}

// handleCreateTransaction records the transaction, then recomputes the
// user's balances inline. The two steps are not atomic. When the recompute
// fails the transaction stays recorded and the 201 carries a warning; the
// balance stays stale until the worker or the sweep recomputes it.
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request, user core.User) {
	var in core.TransactionInput
	if err := decodeValidated(w, r, s.schemas.transaction, &in); err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}

	tx, err := s.transactions.Record(r.Context(), user.ID, in)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	s.recordTransactionCreated()
	s.reports.Invalidate(user.ID)
	s.logger.InfoContext(r.Context(), "Transaction created",
		applog.NewFields().
			WithUser(user.ID).
			WithOperation(applog.OpCreate).
			WithTransaction(tx.ID, tx.AccountID, string(tx.Kind), tx.Amount.StringFixed(), tx.Category).
			ToSlice()...)

	resp := createTransactionResponse{Transaction: tx}
	accounts, err := s.balances.Recompute(r.Context(), user.ID)
	if err != nil {
		s.recordRecomputeFailure()
		s.logger.ErrorContext(r.Context(), "Balance recompute after transaction failed",
			applog.FieldTransactionID, tx.ID,
			applog.FieldError, err)
		resp.Warning = "transaction saved but balances were not updated; they will be refreshed later"
	} else {
		resp.Accounts = nonNil(accounts)
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request, user core.User) {
	goals, err := s.goals.List(r.Context(), user.ID)
	if err != nil {
		writeDegradedList(w, r, "goals", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"goals": nonNil(goals)})
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request, user core.User) {
	var in core.GoalInput
	if err := decodeValidated(w, r, s.schemas.goal, &in); err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	goal, err := s.goals.Create(r.Context(), user.ID, in)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, goal)
}
