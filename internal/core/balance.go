package core

// SignedAmount is the transaction's contribution to its account balance:
// income adds, expense subtracts, any other kind contributes nothing.
func (t Transaction) SignedAmount() Money {
	switch t.Kind {
	case KindIncome:
		return t.Amount
	case KindExpense:
		return t.Amount.Neg()
	default:
		return Money{}
	}
}

// AccountBalance sums the signed amounts of the transactions booked on
// accountID. Transactions for other accounts are ignored.
func AccountBalance(accountID string, txs []Transaction) Money {
	var total Money
	for _, t := range txs {
		if t.AccountID != accountID {
			continue
		}
		total = total.Add(t.SignedAmount())
	}
	return total
}

// Balances groups txs by account and folds each group. Accounts without
// transactions are absent from the result; callers treat them as zero.
func Balances(txs []Transaction) map[string]Money {
	out := make(map[string]Money)
	for _, t := range txs {
		out[t.AccountID] = out[t.AccountID].Add(t.SignedAmount())
	}
	return out
}
