package core

import "testing"

func tx(account string, kind Kind, amount string) Transaction {
	return Transaction{AccountID: account, Kind: kind, Amount: MustMoney(amount)}
}

func TestAccountBalance(t *testing.T) {
	tests := []struct {
		name string
		txs  []Transaction
		want string
	}{
		{"no transactions", nil, "0"},
		{"income minus expense", []Transaction{tx("a", KindIncome, "500"), tx("a", KindExpense, "120")}, "380"},
		{"other accounts ignored", []Transaction{tx("a", KindIncome, "10"), tx("b", KindIncome, "999"), tx("b", KindExpense, "1")}, "10"},
		{"unknown kind contributes zero", []Transaction{tx("a", KindIncome, "10"), tx("a", Kind("transfer"), "7")}, "10"},
		{"can go negative", []Transaction{tx("a", KindExpense, "40.25"), tx("a", KindIncome, "0.25")}, "-40"},
		{"decimal drift free", []Transaction{tx("a", KindIncome, "0.1"), tx("a", KindIncome, "0.2"), tx("a", KindExpense, "0.3")}, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AccountBalance("a", tt.txs)
			if !got.Equal(MustMoney(tt.want)) {
				t.Fatalf("AccountBalance = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestBalancesMatchesPerAccountFold(t *testing.T) {
	txs := []Transaction{
		tx("a", KindIncome, "100"),
		tx("b", KindExpense, "30"),
		tx("a", KindExpense, "45.5"),
		tx("c", Kind("bogus"), "5"),
	}
	got := Balances(txs)
	for _, acc := range []string{"a", "b", "c"} {
		if !got[acc].Equal(AccountBalance(acc, txs)) {
			t.Errorf("Balances[%s] = %s, AccountBalance = %s", acc, got[acc], AccountBalance(acc, txs))
		}
	}
	if !got["a"].Equal(MustMoney("54.5")) {
		t.Errorf("Balances[a] = %s, want 54.5", got["a"])
	}
}
