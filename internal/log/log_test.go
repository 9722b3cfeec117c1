package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
)

func newBufferLogger(level slog.Level) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(Config{Level: level, Component: ComponentApp, Output: &buf}), &buf
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		" warn ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLogger_TagsComponent(t *testing.T) {
	l, buf := newBufferLogger(slog.LevelInfo)
	l.WithComponent(ComponentAuth).Info("signed in", FieldUserID, "u1")

	out := buf.String()
	if !strings.Contains(out, "component=auth") || !strings.Contains(out, "user_id=u1") {
		t.Fatalf("output = %q", out)
	}
	if strings.Count(out, "component=") != 1 {
		t.Errorf("component logged more than once: %q", out)
	}
}

func TestLogger_Level(t *testing.T) {
	l, buf := newBufferLogger(slog.LevelWarn)
	l.Info("hidden")
	l.Debug("hidden")
	l.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("output = %q", buf.String())
	}
}

func TestFromContext(t *testing.T) {
	if l := FromContext(context.Background()); l == nil || l.Component() != "unknown" {
		t.Fatalf("fallback logger = %+v", l)
	}

	l, buf := newBufferLogger(slog.LevelInfo)
	ctx := context.WithValue(context.Background(), LoggerContextKey, l)
	ctx = WithFields(ctx, FieldRequestID, "req_1")
	FromContext(ctx).InfoContext(ctx, "hello")
	if !strings.Contains(buf.String(), "request_id=req_1") {
		t.Fatalf("output = %q", buf.String())
	}
}

func TestStructuredLogger_LogHTTPEnd(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{200, "level=INFO"},
		{404, "level=WARN"},
		{503, "level=ERROR"},
	}
	for _, tt := range tests {
		l, buf := newBufferLogger(slog.LevelDebug)
		sl := NewStructuredLogger(l)
		r := httptest.NewRequest("GET", "/api/accounts?x=1", nil)
		sl.LogHTTPEnd(context.Background(), r, tt.status, 12, "10.0.0.1")
		out := buf.String()
		if !strings.Contains(out, tt.level) || !strings.Contains(out, "path=/api/accounts") {
			t.Errorf("status %d: output = %q", tt.status, out)
		}
	}
}

func TestLogFields(t *testing.T) {
	f := NewFields().
		WithUser("u1").
		WithUser("").
		WithTransaction("t1", "a1", "income", "10.00", "Salary").
		WithError(errors.New("boom")).
		WithError(nil)
	if f[FieldUserID] != "u1" || f[FieldTransactionID] != "t1" || f[FieldError] != "boom" {
		t.Fatalf("fields = %v", f)
	}
	if len(f.ToSlice()) != len(f)*2 {
		t.Fatalf("ToSlice length mismatch")
	}
}
