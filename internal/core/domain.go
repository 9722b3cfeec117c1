package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-date wire format.
const DateLayout = "2006-01-02"

// DefaultCurrency is assigned to the account opened at sign-up.
const DefaultCurrency = "USD"

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

type (
	// Kind tags a transaction as money in or money out.
	Kind string

	Date struct {
		time.Time
	}

	User struct {
		ID           string    `json:"$id"`
		Username     string    `json:"username"`
		FirstName    string    `json:"firstName"`
		LastName     string    `json:"lastName"`
		Email        string    `json:"email"`
		PasswordHash string    `json:"-"`
		Verified     bool      `json:"isVerified"`
		CreatedAt    time.Time `json:"$createdAt"`
	}

	// Account balance is a stored cache of the signed transaction sum; it is
	// only trustworthy right after a recompute pass.
	Account struct {
		ID        string    `json:"$id"`
		UserID    string    `json:"userId"`
		Currency  string    `json:"currency"`
		Balance   Money     `json:"balance"`
		CreatedAt time.Time `json:"$createdAt"`
	}

	Transaction struct {
		ID        string    `json:"$id"`
		UserID    string    `json:"userId"`
		AccountID string    `json:"accountId"`
		Name      string    `json:"name"`
		Amount    Money     `json:"amount"`
		Category  string    `json:"category"`
		Kind      Kind      `json:"typeENUM"`
		Date      Date      `json:"date"`
		CreatedAt time.Time `json:"$createdAt"`
	}

	// Goal is write-once: nothing updates Achieved or Progress after creation.
	Goal struct {
		ID        string    `json:"$id"`
		UserID    string    `json:"userId"`
		Name      string    `json:"goalName"`
		Amount    Money     `json:"goalAmount"`
		StartDate Date      `json:"startDate"`
		Achieved  bool      `json:"achieved"`
		Progress  Money     `json:"progress"`
		CreatedAt time.Time `json:"$createdAt"`
	}

	Session struct {
		Token     string    `json:"secret"`
		UserID    string    `json:"userId"`
		ExpiresAt time.Time `json:"expire"`
		CreatedAt time.Time `json:"$createdAt"`
	}

	// TransactionInput is what a caller supplies; ownership comes from the
	// authenticated session, never from the payload.
	TransactionInput struct {
		AccountID string `json:"accountId"`
		Name      string `json:"name"`
		Amount    Money  `json:"amount"`
		Category  string `json:"category"`
		Kind      Kind   `json:"typeENUM"`
		Date      Date   `json:"date"`
	}

	GoalInput struct {
		Name      string `json:"goalName"`
		Amount    Money  `json:"goalAmount"`
		StartDate Date   `json:"startDate"`
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyName       = errors.New("empty name")
	ErrNameTooLong     = errors.New("name too long (max 200 characters)")
	ErrEmptyCategory   = errors.New("empty category")
	ErrInvalidKind     = errors.New("invalid transaction type")
	ErrInvalidDate     = errors.New("invalid date")
	ErrMissingUser     = errors.New("missing user id")
	ErrMissingAccount  = errors.New("missing account id")
	ErrInvalidCurrency = errors.New("invalid currency code")
)

// ValidationError ties a sentinel to the offending field.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

func (k Kind) Valid() bool {
	return k == KindIncome || k == KindExpense
}

// ParseKind normalises case and surrounding space.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", ErrInvalidKind
	}
	return k, nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts YYYY-MM-DD and, for documents written by other clients,
// a full RFC 3339 timestamp truncated to its calendar day.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return Date{Time: t}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return NewDate(t.Year(), int(t.Month()), t.Day()), nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(DateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" || s == `""` {
		*d = Date{}
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return ErrInvalidDate
	}
	parsed, err := ParseDate(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.UserID) == "" {
		return invalid("userId", ErrMissingUser)
	}
	if strings.TrimSpace(t.AccountID) == "" {
		return invalid("accountId", ErrMissingAccount)
	}
	if err := validateName(t.Name); err != nil {
		return invalid("name", err)
	}
	if err := t.Amount.Validate(); err != nil {
		return invalid("amount", err)
	}
	if strings.TrimSpace(t.Category) == "" {
		return invalid("category", ErrEmptyCategory)
	}
	if !t.Kind.Valid() {
		return invalid("typeENUM", ErrInvalidKind)
	}
	if err := t.Date.Validate(); err != nil {
		return invalid("date", err)
	}
	return nil
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.UserID) == "" {
		return invalid("userId", ErrMissingUser)
	}
	if err := validateName(g.Name); err != nil {
		return invalid("goalName", err)
	}
	if err := g.Amount.Validate(); err != nil {
		return invalid("goalAmount", err)
	}
	if err := g.StartDate.Validate(); err != nil {
		return invalid("startDate", err)
	}
	return nil
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.UserID) == "" {
		return invalid("userId", ErrMissingUser)
	}
	if len(a.Currency) != 3 || strings.ToUpper(a.Currency) != a.Currency {
		return invalid("currency", ErrInvalidCurrency)
	}
	return nil
}

// Expired reports whether the session can no longer authenticate at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

func validateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > 200 {
		return ErrNameTooLong
	}
	return nil
}
