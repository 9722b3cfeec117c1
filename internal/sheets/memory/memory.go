// Package memory is an in-process stand-in for the spreadsheet mirror, used
// for local runs without Google credentials.
package memory

import (
	"context"
	"fmt"
	"sync"

	"solde/internal/core"
	"solde/internal/sheets"
)

type Mirror struct {
	mu    sync.Mutex
	rows  []core.Transaction
	index map[string]int
}

var _ sheets.TransactionWriter = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{index: make(map[string]int)}
}

// AppendTransaction stores t and returns a synthetic row reference. A
// transaction already present keeps its original row.
func (m *Mirror) AppendTransaction(_ context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if row, ok := m.index[t.ID]; ok && t.ID != "" {
		return fmt.Sprintf("mem:%d", row), nil
	}
	m.rows = append(m.rows, t)
	m.index[t.ID] = len(m.rows)
	return fmt.Sprintf("mem:%d", len(m.rows)), nil
}

// Rows returns a copy of everything mirrored so far, in write order.
func (m *Mirror) Rows() []core.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.Transaction(nil), m.rows...)
}
