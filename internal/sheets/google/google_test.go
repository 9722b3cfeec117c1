package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"solde/internal/core"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Options{})
	if err == nil {
		t.Fatal("expected error for missing GOOGLE_SPREADSHEET_ID")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	_, err := New(context.Background(), Options{SpreadsheetID: "id"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("err = %v", err)
	}
}

func TestNewFromEnv_MissingSpreadsheetID(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")
	if _, err := NewFromEnv(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base string
		year int
		want string
	}{
		{"Transactions", 2024, "2024 Transactions"},
		{"  Transactions ", 2025, "2025 Transactions"},
		{"2023 Transactions", 2024, "2023 Transactions"},
		{"", 2024, ""},
		{"1234Tx", 2024, "2024 1234Tx"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := yearPrefixedName(tt.base, tt.year); got != tt.want {
				t.Errorf("yearPrefixedName(%q, %d) = %q, want %q", tt.base, tt.year, got, tt.want)
			}
		})
	}
}

func TestFindTransactionRow(t *testing.T) {
	values := [][]any{
		{"date", "name", "kind", "amount", "category", "account", "id"},
		{"2024-01-02", "Rent", "expense", "900.00", "Housing", "a1", "t1"},
		{"short row"},
		{"2024-01-03", "Pay", "income", "10.00", "Salary", "a1", "t2"},
	}
	if got := findTransactionRow(values, "t2"); got != 4 {
		t.Errorf("row of t2 = %d, want 4", got)
	}
	if got := findTransactionRow(values, "missing"); got != 0 {
		t.Errorf("row of missing = %d, want 0", got)
	}
	if got := findTransactionRow(values, ""); got != 0 {
		t.Errorf("row of empty id = %d, want 0", got)
	}
}

// fakeSheets serves the two Values endpoints the client uses.
type fakeSheets struct {
	mu      sync.Mutex
	rows    [][]any
	updates []gsheet.ValueRange
	ranges  []string
	options []string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	switch r.Method {
	case http.MethodGet:
		json.NewEncoder(w).Encode(gsheet.ValueRange{Range: "A:G", MajorDimension: "ROWS", Values: f.rows})
	case http.MethodPut:
		var vr gsheet.ValueRange
		if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.updates = append(f.updates, vr)
		f.ranges = append(f.ranges, r.URL.Path)
		f.options = append(f.options, r.URL.Query().Get("valueInputOption"))
		f.rows = append(f.rows, vr.Values...)
		json.NewEncoder(w).Encode(gsheet.UpdateValuesResponse{SpreadsheetId: "sheet-id"})
	default:
		http.Error(w, "unexpected method", http.StatusMethodNotAllowed)
	}
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	c, err := New(context.Background(), Options{
		SpreadsheetID: "sheet-id",
		SheetName:     "Transactions",
		ClientOptions: []goption.ClientOption{
			goption.WithEndpoint(srv.URL + "/"),
			goption.WithHTTPClient(srv.Client()),
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestAppendTransaction(t *testing.T) {
	fake := &fakeSheets{rows: [][]any{
		{"date", "name", "kind", "amount", "category", "account", "id"},
		{"2024-01-02", "Rent", "expense", "900.00", "Housing", "a1", "old"},
	}}
	c := newTestClient(t, fake)

	tx := core.Transaction{
		ID: "t1", UserID: "u1", AccountID: "a1", Name: "Salary",
		Amount: core.MustMoney("1500.5"), Category: "Salary",
		Kind: core.KindIncome, Date: core.NewDate(2024, 3, 1),
	}
	ref, err := c.AppendTransaction(context.Background(), tx)
	if err != nil {
		t.Fatalf("AppendTransaction: %v", err)
	}
	if ref != "2024 Transactions!A3:G3" {
		t.Errorf("ref = %q", ref)
	}
	if len(fake.updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(fake.updates))
	}
	if fake.options[0] != "USER_ENTERED" {
		t.Errorf("valueInputOption = %q", fake.options[0])
	}
	if !strings.Contains(fake.ranges[0], "2024 Transactions!A3:G3") {
		t.Errorf("update path = %q", fake.ranges[0])
	}
	row := fake.updates[0].Values[0]
	want := []string{"2024-03-01", "Salary", "income", "1500.50", "Salary", "a1", "t1"}
	for i, w := range want {
		if row[i] != w {
			t.Errorf("column %d = %v, want %q", i, row[i], w)
		}
	}

	// A second delivery finds the row and does not write again.
	ref, err = c.AppendTransaction(context.Background(), tx)
	if err != nil {
		t.Fatalf("repeat AppendTransaction: %v", err)
	}
	if ref != "2024 Transactions!A3:G3" || len(fake.updates) != 1 {
		t.Errorf("repeat ref=%q updates=%d", ref, len(fake.updates))
	}
}

func TestAppendTransaction_Invalid(t *testing.T) {
	c := &Client{spreadsheetID: "test"}
	_, err := c.AppendTransaction(context.Background(), core.Transaction{Name: "x"})
	if err == nil || !strings.Contains(err.Error(), "validation failed") {
		t.Fatalf("err = %v", err)
	}
}
