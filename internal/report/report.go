// Package report builds the read-side views: monthly chart series, the
// dashboard summary and PDF exports.
package report

import (
	"context"
	"fmt"
	"strconv"

	"solde/internal/cache"
	"solde/internal/core"

	"golang.org/x/sync/errgroup"
)

// Source is the part of the document store reports read from.
type Source interface {
	ListAccounts(ctx context.Context, userID string) ([]core.Account, error)
	ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error)
	ListGoals(ctx context.Context, userID string) ([]core.Goal, error)
}

// Dashboard is the landing-page payload.
type Dashboard struct {
	Accounts     []core.Account     `json:"accounts"`
	Goals        []core.Goal        `json:"goals"`
	Totals       core.Totals        `json:"totals"`
	Recent       []core.Transaction `json:"recentTransactions"`
	Transactions int                `json:"transactionCount"`
}

const recentLimit = 5

type Service struct {
	source Source
	cache  cache.Cache[core.YearReport]
}

// NewService builds the report service. c may be nil to disable caching.
func NewService(source Source, c cache.Cache[core.YearReport]) *Service {
	return &Service{source: source, cache: c}
}

// Monthly returns the chart payload of userID for year, from cache when
// possible. A zero year aggregates all years month by month.
func (s *Service) Monthly(ctx context.Context, userID string, year int) (core.YearReport, error) {
	key := cacheKey(userID, year)
	if s.cache != nil {
		if r, ok := s.cache.Get(key); ok {
			return r, nil
		}
	}

	txs, err := s.source.ListTransactions(ctx, userID)
	if err != nil {
		return core.YearReport{}, fmt.Errorf("list transactions: %w", err)
	}
	r := core.BuildYearReport(txs, year)
	if s.cache != nil {
		s.cache.Set(key, r)
	}
	return r, nil
}

// Invalidate drops every cached report of userID.
func (s *Service) Invalidate(userID string) {
	if s.cache == nil {
		return
	}
	s.cache.DeletePrefix(userID + ":")
}

// Dashboard reads accounts, goals and transactions concurrently.
func (s *Service) Dashboard(ctx context.Context, userID string) (Dashboard, error) {
	var (
		d   Dashboard
		txs []core.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		d.Accounts, err = s.source.ListAccounts(gctx, userID)
		if err != nil {
			return fmt.Errorf("list accounts: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		d.Goals, err = s.source.ListGoals(gctx, userID)
		if err != nil {
			return fmt.Errorf("list goals: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		txs, err = s.source.ListTransactions(gctx, userID)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	d.Totals = core.SumTotals(txs)
	d.Transactions = len(txs)
	start := len(txs) - recentLimit
	if start < 0 {
		start = 0
	}
	// Newest first.
	d.Recent = make([]core.Transaction, 0, len(txs)-start)
	for i := len(txs) - 1; i >= start; i-- {
		d.Recent = append(d.Recent, txs[i])
	}
	return d, nil
}

func cacheKey(userID string, year int) string {
	return userID + ":" + strconv.Itoa(year)
}
