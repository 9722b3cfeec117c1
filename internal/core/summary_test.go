package core

import "testing"

func dated(kind Kind, amount string, y, m, d int) Transaction {
	return Transaction{AccountID: "a", Kind: kind, Amount: MustMoney(amount), Category: "c", Date: NewDate(y, m, d)}
}

func TestPercentChange(t *testing.T) {
	tests := []struct {
		prev, cur string
		want      float64
	}{
		{"0", "50", 100},
		{"0", "0", 100},
		{"100", "150", 50},
		{"200", "100", -50},
		{"3", "4", 33.3},
		{"-100", "-50", -50},
	}
	for _, tt := range tests {
		if got := PercentChange(MustMoney(tt.prev), MustMoney(tt.cur)); got != tt.want {
			t.Errorf("PercentChange(%s, %s) = %v, want %v", tt.prev, tt.cur, got, tt.want)
		}
	}
}

func TestMonthlySeries(t *testing.T) {
	txs := []Transaction{
		dated(KindIncome, "1000", 2024, 1, 3),
		dated(KindExpense, "400", 2024, 1, 20),
		dated(KindIncome, "1000", 2024, 2, 3),
		dated(KindExpense, "100", 2024, 2, 11),
		dated(KindIncome, "9999", 2023, 2, 1), // other year
	}
	months := MonthlySeries(txs, 2024)
	if len(months) != 12 {
		t.Fatalf("len = %d, want 12", len(months))
	}
	jan, feb, mar := months[0], months[1], months[2]
	if jan.Month != 1 || !jan.Income.Equal(MustMoney("1000")) || !jan.Expense.Equal(MustMoney("400")) || !jan.Savings.Equal(MustMoney("600")) {
		t.Fatalf("jan = %+v", jan)
	}
	if jan.SavingsChange != 0 || jan.IncomeChange != 0 {
		t.Fatalf("first month change should be 0, got %+v", jan)
	}
	if !feb.Savings.Equal(MustMoney("900")) || feb.SavingsChange != 50 || feb.IncomeChange != 0 {
		t.Fatalf("feb = %+v", feb)
	}
	if !mar.Savings.IsZero() || mar.SavingsChange != -100 {
		t.Fatalf("mar = %+v", mar)
	}
	if months[3].SavingsChange != 100 {
		t.Fatalf("apr after zero month should be 100, got %v", months[3].SavingsChange)
	}

	all := MonthlySeries(txs, 0)
	if !all[1].Income.Equal(MustMoney("10999")) {
		t.Fatalf("year 0 should fold all years, feb income = %s", all[1].Income)
	}
}

func TestSumTotalsAndBreakdown(t *testing.T) {
	txs := []Transaction{
		{Kind: KindIncome, Amount: MustMoney("10"), Category: "Salary", Date: NewDate(2024, 1, 1)},
		{Kind: KindExpense, Amount: MustMoney("3"), Category: "Food", Date: NewDate(2024, 1, 2)},
		{Kind: KindExpense, Amount: MustMoney("4"), Category: "Rent", Date: NewDate(2024, 1, 3)},
		{Kind: KindExpense, Amount: MustMoney("2"), Category: "Food", Date: NewDate(2024, 1, 4)},
	}
	tot := SumTotals(txs)
	if !tot.Income.Equal(MustMoney("10")) || !tot.Expense.Equal(MustMoney("9")) || !tot.Net.Equal(MustMoney("1")) {
		t.Fatalf("totals = %+v", tot)
	}
	br := CategoryBreakdown(txs, KindExpense, 2024)
	if len(br) != 2 || br[0].Name != "Food" || !br[0].Amount.Equal(MustMoney("5")) || br[1].Name != "Rent" {
		t.Fatalf("breakdown = %+v", br)
	}
	if got := FilterKind(txs, KindIncome); len(got) != 1 || got[0].Category != "Salary" {
		t.Fatalf("FilterKind = %+v", got)
	}
	if got := FilterKind(txs, ""); len(got) != len(txs) {
		t.Fatalf("FilterKind(empty) len = %d", len(got))
	}
}

func TestSuggestCategories(t *testing.T) {
	got := SuggestCategories("sel")
	want := []string{"Selling Items", "Selling Products", "Selling Services"}
	if len(got) != len(want) {
		t.Fatalf("SuggestCategories = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("SuggestCategories[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if len(SuggestCategories("")) != len(IncomeCategories) {
		t.Fatal("empty prefix should return all categories")
	}
}
