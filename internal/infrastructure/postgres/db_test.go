package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNewPoolWithConfigRejectsInvalidURL(t *testing.T) {
	if _, err := NewPoolWithConfig(context.Background(), PoolConfig{DatabaseURL: "not-a-url"}); err == nil {
		t.Fatalf("expected error when parsing invalid URL")
	}
}

func TestNewPoolWithConfigPingFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := NewPoolWithConfig(ctx, PoolConfig{
		DatabaseURL:    "postgres://invalid:5432/db",
		MaxConns:       1,
		ConnectTimeout: time.Second,
	})
	if err == nil {
		t.Fatalf("expected error when pool cannot connect")
	}
}

func TestNormalizeSourceURL(t *testing.T) {
	tests := map[string]string{
		"migrations":             "file://migrations",
		"file://migrations":      "file://migrations",
		"/srv/cardledger/schema": "file:///srv/cardledger/schema",
	}

	for in, want := range tests {
		if got := normalizeSourceURL(in); got != want {
			t.Fatalf("normalizeSourceURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMigratorRejectsBadDatabaseURL(t *testing.T) {
	if _, err := NewMigrator("not-a-url", "migrations", nopLogger()); err == nil {
		t.Fatalf("expected error for unusable database URL")
	}
}

func nopLogger() zerolog.Logger {
	return zerolog.Nop()
}
