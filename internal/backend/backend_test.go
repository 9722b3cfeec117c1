package backend

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"solde/internal/config"
	"solde/internal/core"
	applog "solde/internal/log"
)

func quietLogger() *applog.Logger {
	return applog.New(applog.Config{Output: io.Discard})
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}

	cfg, err := FromAppConfig(&config.Config{DataBackend: "postgres", DatabaseURL: "postgres://x"})
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Type != PostgresBackend || cfg.DatabaseURL != "postgres://x" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"postgres without url", Config{Type: PostgresBackend}, true},
		{"unknown", Config{Type: "sheets"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateBackend(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(quietLogger())

	tests := []struct {
		name string
		cfg  Config
	}{
		{"memory", Config{Type: MemoryBackend}},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "solde.db")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.CreateBackend(ctx, tt.cfg)
			if err != nil {
				t.Fatalf("CreateBackend: %v", err)
			}
			defer res.Cleanup()

			if err := res.Store.Ping(ctx); err != nil {
				t.Fatalf("Ping: %v", err)
			}
			u, err := res.Store.CreateUser(ctx, core.User{Email: "a@example.com", FirstName: "Ada", LastName: "Lovelace", Username: "ada"})
			if err != nil {
				t.Fatalf("CreateUser: %v", err)
			}
			if got, err := res.Store.FindUserByEmail(ctx, "a@example.com"); err != nil || got.ID != u.ID {
				t.Errorf("FindUserByEmail = %+v, %v", got, err)
			}
		})
	}

	if _, err := f.CreateBackend(ctx, Config{Type: PostgresBackend}); err == nil {
		t.Error("expected error for postgres without url")
	}
}
