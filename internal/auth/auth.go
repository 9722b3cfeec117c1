// Package auth is the identity and session provider: email/password
// accounts and opaque server-issued session tokens.
//
// The resolved identity is always returned to the caller, who passes it
// explicitly to the services; nothing here keeps a "current user" around.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"solde/internal/core"
	"solde/internal/store"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrUnauthenticated means no valid session backs the request. It is
	// never reported as an empty user.
	ErrUnauthenticated    = errors.New("not logged in")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidForm        = errors.New("invalid form")
)

// FormError lists the offending fields of a sign-up or sign-in form.
type FormError struct {
	Fields map[string]string
}

func (e *FormError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for f, msg := range e.Fields {
		parts = append(parts, f+": "+msg)
	}
	return "invalid form: " + strings.Join(parts, ", ")
}

func (e *FormError) Is(target error) bool { return target == ErrInvalidForm }

type SignUpInput struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"firstName" validate:"required,min=2,max=64"`
	LastName  string `json:"lastName" validate:"required,min=2,max=64"`
	Username  string `json:"username" validate:"required,min=3,max=64"`
}

type SignInInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// SignUpResult carries everything sign-up creates.
type SignUpResult struct {
	User    core.User    `json:"user"`
	Account core.Account `json:"account"`
	Session core.Session `json:"session"`
}

type Config struct {
	SessionTTL      time.Duration
	DefaultCurrency string
	BcryptCost      int
}

func DefaultConfig() Config {
	return Config{
		SessionTTL:      30 * 24 * time.Hour,
		DefaultCurrency: core.DefaultCurrency,
		BcryptCost:      bcrypt.DefaultCost,
	}
}

type Service struct {
	users    store.UserStore
	accounts store.AccountStore
	sessions store.SessionStore
	validate *validator.Validate
	config   Config
	now      func() time.Time
}

func NewService(users store.UserStore, accounts store.AccountStore, sessions store.SessionStore, config Config) *Service {
	def := DefaultConfig()
	if config.SessionTTL <= 0 {
		config.SessionTTL = def.SessionTTL
	}
	if config.DefaultCurrency == "" {
		config.DefaultCurrency = def.DefaultCurrency
	}
	if config.BcryptCost == 0 {
		config.BcryptCost = def.BcryptCost
	}
	return &Service{
		users:    users,
		accounts: accounts,
		sessions: sessions,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		config:   config,
		now:      time.Now,
	}
}

// SignUp registers the user, opens their default account and logs them in.
// The three writes are independent: a failure after the user is stored
// leaves a user without an account, which is logged and reported.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (SignUpResult, error) {
	in.Email = normalizeEmail(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Username = strings.TrimSpace(in.Username)
	if err := s.check(in); err != nil {
		return SignUpResult{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.config.BcryptCost)
	if err != nil {
		return SignUpResult{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, core.User{
		Username:     in.Username,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: string(hash),
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return SignUpResult{}, ErrEmailTaken
		}
		return SignUpResult{}, fmt.Errorf("create user: %w", err)
	}

	account := core.Account{UserID: user.ID, Currency: s.config.DefaultCurrency}
	if err := account.Validate(); err != nil {
		slog.ErrorContext(ctx, "Default account rejected", "user_id", user.ID, "error", err)
		return SignUpResult{}, fmt.Errorf("default account: %w", err)
	}
	account, err = s.accounts.CreateAccount(ctx, account)
	if err != nil {
		slog.ErrorContext(ctx, "User created without default account", "user_id", user.ID, "error", err)
		return SignUpResult{}, fmt.Errorf("create default account: %w", err)
	}

	session, err := s.openSession(ctx, user.ID)
	if err != nil {
		return SignUpResult{}, err
	}

	slog.InfoContext(ctx, "User signed up", "user_id", user.ID, "account_id", account.ID)
	return SignUpResult{User: user, Account: account, Session: session}, nil
}

// SignIn checks the credentials and opens a new session.
func (s *Service) SignIn(ctx context.Context, in SignInInput) (core.User, core.Session, error) {
	in.Email = normalizeEmail(in.Email)
	if err := s.check(in); err != nil {
		return core.User{}, core.Session{}, err
	}

	user, err := s.users.FindUserByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return core.User{}, core.Session{}, ErrInvalidCredentials
		}
		return core.User{}, core.Session{}, fmt.Errorf("find user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return core.User{}, core.Session{}, ErrInvalidCredentials
	}

	session, err := s.openSession(ctx, user.ID)
	if err != nil {
		return core.User{}, core.Session{}, err
	}
	return user, session, nil
}

// Current resolves a session token to its user.
func (s *Service) Current(ctx context.Context, token string) (core.User, error) {
	if strings.TrimSpace(token) == "" {
		return core.User{}, ErrUnauthenticated
	}
	session, err := s.sessions.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return core.User{}, ErrUnauthenticated
		}
		return core.User{}, fmt.Errorf("get session: %w", err)
	}
	if session.Expired(s.now()) {
		if err := s.sessions.DeleteSession(ctx, token); err != nil {
			slog.WarnContext(ctx, "Failed to delete expired session", "user_id", session.UserID, "error", err)
		}
		return core.User{}, ErrUnauthenticated
	}
	user, err := s.users.GetUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return core.User{}, ErrUnauthenticated
		}
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// SignOut deletes the given session. Unknown tokens are not an error.
func (s *Service) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.DeleteSession(ctx, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *Service) openSession(ctx context.Context, userID string) (core.Session, error) {
	token, err := newToken()
	if err != nil {
		return core.Session{}, fmt.Errorf("generate session token: %w", err)
	}
	now := s.now().UTC()
	session, err := s.sessions.CreateSession(ctx, core.Session{
		Token:     token,
		UserID:    userID,
		ExpiresAt: now.Add(s.config.SessionTTL),
		CreatedAt: now,
	})
	if err != nil {
		return core.Session{}, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

func (s *Service) check(form any) error {
	err := s.validate.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate form: %w", err)
	}
	fe := &FormError{Fields: make(map[string]string, len(verrs))}
	for _, v := range verrs {
		fe.Fields[jsonName(v.Field())] = describe(v)
	}
	return fe
}

func describe(v validator.FieldError) string {
	switch v.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + v.Param() + " characters"
	case "max":
		return "must be at most " + v.Param() + " characters"
	default:
		return "is invalid"
	}
}

// jsonName maps a Go field name to its wire name.
func jsonName(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
