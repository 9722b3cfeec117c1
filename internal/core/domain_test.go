package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func validTransaction() Transaction {
	return Transaction{
		UserID:    "u1",
		AccountID: "a1",
		Name:      "Groceries",
		Amount:    MustMoney("20"),
		Category:  "Food",
		Kind:      KindExpense,
		Date:      NewDate(2024, 3, 5),
	}
}

func TestTransactionValidate(t *testing.T) {
	if err := validTransaction().Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(*Transaction)
		field   string
		wantErr error
	}{
		{"missing user", func(tx *Transaction) { tx.UserID = " " }, "userId", ErrMissingUser},
		{"missing account", func(tx *Transaction) { tx.AccountID = "" }, "accountId", ErrMissingAccount},
		{"empty name", func(tx *Transaction) { tx.Name = "" }, "name", ErrEmptyName},
		{"long name", func(tx *Transaction) { tx.Name = strings.Repeat("x", 201) }, "name", ErrNameTooLong},
		{"zero amount", func(tx *Transaction) { tx.Amount = Money{} }, "amount", ErrInvalidAmount},
		{"negative amount", func(tx *Transaction) { tx.Amount = MustMoney("-3") }, "amount", ErrInvalidAmount},
		{"empty category", func(tx *Transaction) { tx.Category = "" }, "category", ErrEmptyCategory},
		{"bad kind", func(tx *Transaction) { tx.Kind = "transfer" }, "typeENUM", ErrInvalidKind},
		{"zero date", func(tx *Transaction) { tx.Date = Date{} }, "date", ErrInvalidDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := validTransaction()
			tt.mutate(&tx)
			err := tx.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tt.wantErr)
			}
			var ve *ValidationError
			if !errors.As(err, &ve) || ve.Field != tt.field {
				t.Fatalf("Validate() field = %v, want %s", err, tt.field)
			}
		})
	}
}

func TestGoalValidate(t *testing.T) {
	good := Goal{UserID: "u1", Name: "Car", Amount: MustMoney("5000"), StartDate: NewDate(2024, 1, 1)}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bads := []Goal{
		{Name: "Car", Amount: MustMoney("1"), StartDate: NewDate(2024, 1, 1)},
		{UserID: "u1", Amount: MustMoney("1"), StartDate: NewDate(2024, 1, 1)},
		{UserID: "u1", Name: "Car", StartDate: NewDate(2024, 1, 1)},
		{UserID: "u1", Name: "Car", Amount: MustMoney("1")},
	}
	for i, g := range bads {
		if err := g.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestAccountValidate(t *testing.T) {
	if err := (Account{UserID: "u1", Currency: "USD"}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	for _, cur := range []string{"", "usd", "EURO"} {
		if err := (Account{UserID: "u1", Currency: cur}).Validate(); !errors.Is(err, ErrInvalidCurrency) {
			t.Fatalf("currency %q: got %v", cur, err)
		}
	}
}

func TestParseKind(t *testing.T) {
	cases := map[string]Kind{"income": KindIncome, " Expense ": KindExpense, "INCOME": KindIncome}
	for in, want := range cases {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Fatalf("ParseKind(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseKind("refund"); !errors.Is(err, ErrInvalidKind) {
		t.Fatalf("ParseKind(refund) = %v", err)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	if err != nil || d.String() != "2024-02-29" {
		t.Fatalf("ParseDate = %v, %v", d, err)
	}
	d, err = ParseDate("2024-05-01T23:10:00+02:00")
	if err != nil || d.String() != "2024-05-01" {
		t.Fatalf("ParseDate(rfc3339) = %v, %v", d, err)
	}
	for _, s := range []string{"", "2024-13-01", "01/02/2024"} {
		if _, err := ParseDate(s); !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("ParseDate(%q) = %v", s, err)
		}
	}
}

func TestTransactionJSONWireNames(t *testing.T) {
	tx := validTransaction()
	tx.ID = "t1"
	tx.CreatedAt = time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	b, err := json.Marshal(tx)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"$id", "userId", "accountId", "name", "amount", "category", "typeENUM", "date", "$createdAt"} {
		if _, ok := m[key]; !ok {
			t.Errorf("missing key %q in %s", key, b)
		}
	}
	if m["amount"] != float64(20) {
		t.Errorf("amount = %#v, want number 20", m["amount"])
	}
	if m["date"] != "2024-03-05" {
		t.Errorf("date = %#v", m["date"])
	}
}

func TestUserPasswordHashNotSerialized(t *testing.T) {
	b, err := json.Marshal(User{ID: "u1", Email: "a@b.c", PasswordHash: "secret-hash"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(b), "secret-hash") {
		t.Fatalf("password hash leaked: %s", b)
	}
}

func TestSessionExpired(t *testing.T) {
	now := time.Now()
	if (Session{ExpiresAt: now.Add(time.Minute)}).Expired(now) {
		t.Fatal("future expiry reported expired")
	}
	if !(Session{ExpiresAt: now}).Expired(now) {
		t.Fatal("expiry at now should be expired")
	}
}
