package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestLoadMigrationsSortsSQLFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"0002_b.sql", "0001_a.sql", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "nested.sql"), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	resolved, migrations, err := loadMigrations(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if resolved != dir {
		t.Fatalf("expected absolute dir kept, got %s", resolved)
	}
	if got := strings.Join(migrations, ","); got != "0001_a.sql,0002_b.sql" {
		t.Fatalf("unexpected migrations %s", got)
	}
}

func TestLoadMigrationsRepositorySchema(t *testing.T) {
	_, migrations, err := loadMigrations("../../migrations")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(migrations) == 0 || migrations[0] != "0001_create_clips.sql" {
		t.Fatalf("expected clips schema migration, got %v", migrations)
	}
}

func TestLoadMigrationsMissingDir(t *testing.T) {
	if _, _, err := loadMigrations(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestMigrationBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 0, want: 0},
		{attempt: 1, want: 100 * time.Millisecond},
		{attempt: 2, want: 200 * time.Millisecond},
		{attempt: 3, want: 400 * time.Millisecond},
		{attempt: 10, want: migrationMaxBackoff},
		{attempt: 80, want: migrationMaxBackoff},
	}
	for _, tt := range tests {
		if got := migrationBackoff(tt.attempt); got != tt.want {
			t.Fatalf("migrationBackoff(%d) = %s, want %s", tt.attempt, got, tt.want)
		}
	}
}

func TestShouldRetryMigration(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "serialization failure", err: &pgconn.PgError{Code: "40001"}, want: true},
		{name: "wrapped deadlock", err: fmt.Errorf("apply: %w", &pgconn.PgError{Code: "40P01"}), want: true},
		{name: "syntax error", err: &pgconn.PgError{Code: "42601"}, want: false},
		{name: "deadline", err: context.DeadlineExceeded, want: true},
		{name: "tx closed", err: pgx.ErrTxClosed, want: true},
		{name: "other", err: errors.New("boom"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldRetryMigration(tt.err); got != tt.want {
				t.Fatalf("shouldRetryMigration(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestMigrateValidatesArguments(t *testing.T) {
	if _, err := runCommand(t, "migrate", "down"); err == nil || !strings.Contains(err.Error(), "unknown migrate command") {
		t.Fatalf("expected unknown command error, got %v", err)
	}
	if _, err := runCommand(t, "migrate"); err == nil || !strings.Contains(err.Error(), "VIDFRIENDS_DATABASE_URL") {
		t.Fatalf("expected database url error, got %v", err)
	}
	if _, err := runCommand(t, "seed"); err == nil || !strings.Contains(err.Error(), "VIDFRIENDS_DATABASE_URL") {
		t.Fatalf("expected database url error for seed, got %v", err)
	}
}
