package services

import (
	"context"
	"fmt"
	"strings"

	"solde/internal/core"
)

type GoalStore interface {
	CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error)
	ListGoals(ctx context.Context, userID string) ([]core.Goal, error)
}

// GoalService creates and lists savings goals. Progress and achievement are
// set once at creation and never reconciled with transactions.
type GoalService struct {
	store GoalStore
}

func NewGoalService(s GoalStore) *GoalService {
	return &GoalService{store: s}
}

func (s *GoalService) Create(ctx context.Context, userID string, in core.GoalInput) (core.Goal, error) {
	g := core.Goal{
		UserID:    strings.TrimSpace(userID),
		Name:      strings.TrimSpace(in.Name),
		Amount:    in.Amount.Cents(),
		StartDate: in.StartDate,
		Achieved:  false,
		Progress:  core.Money{},
	}
	if err := g.Validate(); err != nil {
		return core.Goal{}, err
	}
	created, err := s.store.CreateGoal(ctx, g)
	if err != nil {
		return core.Goal{}, fmt.Errorf("save goal: %w", err)
	}
	return created, nil
}

func (s *GoalService) List(ctx context.Context, userID string) ([]core.Goal, error) {
	if userID == "" {
		return nil, &core.ValidationError{Field: "userId", Err: core.ErrMissingUser}
	}
	goals, err := s.store.ListGoals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return goals, nil
}
