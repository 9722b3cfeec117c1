package sheets

import (
	"context"

	"solde/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionWriter mirrors a recorded transaction to a spreadsheet and
	// returns a reference to the written row.
	TransactionWriter interface {
		AppendTransaction(ctx context.Context, t core.Transaction) (rowRef string, err error)
	}
)
