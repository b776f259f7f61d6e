package shared

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestLogger(t *testing.T) {
	t.Run("writes to provided writer", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf)
		WithLogger(logger, "station", "KALX").Info("synced")

		out := buf.String()
		if !strings.Contains(out, "synced") || !strings.Contains(out, "station=KALX") {
			t.Errorf("unexpected log output: %q", out)
		}
	})

	t.Run("SetLogLevel", func(t *testing.T) {
		logger := NewLogger(&bytes.Buffer{})
		if err := SetLogLevel(logger, "debug"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if logger.GetLevel() != log.DebugLevel {
			t.Errorf("expected debug level, got %v", logger.GetLevel())
		}
		if err := SetLogLevel(logger, "chatty"); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		if err := SetLogLevel(logger, ""); err != nil {
			t.Errorf("empty level should be a no-op, got %v", err)
		}
	})
}

func TestAPIError(t *testing.T) {
	err := fmt.Errorf("create playlist: %w", &APIError{
		Method: http.MethodPost, Endpoint: "/users/u/playlists", StatusCode: http.StatusUnauthorized, Body: "expired",
	})

	if !errors.Is(err, ErrAPI) {
		t.Error("expected APIError to unwrap to ErrAPI")
	}
	if !IsUnauthorized(err) {
		t.Error("expected IsUnauthorized to be true")
	}
	if StatusCode(err) != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", StatusCode(err))
	}
	if !strings.Contains(err.Error(), "POST /users/u/playlists returned status 401: expired") {
		t.Errorf("unexpected message: %s", err)
	}
	if StatusCode(ErrNetwork) != 0 || IsUnauthorized(nil) {
		t.Error("non-API errors carry no status")
	}
}

func TestGenerateState(t *testing.T) {
	a, err := GenerateState()
	if err != nil {
		t.Fatalf("GenerateState() error = %v", err)
	}
	b, _ := GenerateState()
	if a == "" || a == b {
		t.Errorf("expected distinct non-empty states, got %q and %q", a, b)
	}
	if GenerateID() == GenerateID() {
		t.Error("expected distinct ids")
	}
}

func TestBrowserCommand(t *testing.T) {
	original := getRuntime
	t.Cleanup(func() { getRuntime = original })

	tc := []struct {
		goos    string
		program string
	}{
		{goos: "darwin", program: "open"},
		{goos: "linux", program: "xdg-open"},
		{goos: "windows", program: "rundll32"},
	}
	for _, tt := range tc {
		t.Run(tt.goos, func(t *testing.T) {
			getRuntime = func() string { return tt.goos }
			cmd, err := browserCommand("https://example.com")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.HasSuffix(cmd.Args[0], tt.program) {
				t.Errorf("expected %s, got %v", tt.program, cmd.Args)
			}
		})
	}

	t.Run("unsupported", func(t *testing.T) {
		getRuntime = func() string { return "plan9" }
		if _, err := browserCommand("https://example.com"); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestMigrations(t *testing.T) {
	t.Run("LoadMigrations", func(t *testing.T) {
		migrations, err := LoadMigrations()
		if err != nil {
			t.Fatalf("failed to load migrations: %v", err)
		}
		if len(migrations) == 0 {
			t.Fatal("expected at least one migration")
		}
		for i := 1; i < len(migrations); i++ {
			if migrations[i].Version <= migrations[i-1].Version {
				t.Errorf("migrations not sorted: %d after %d", migrations[i].Version, migrations[i-1].Version)
			}
		}
	})

	t.Run("NewDatabase applies and rolls back", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		if _, err := db.Exec("SELECT 1 FROM track_cache LIMIT 1"); err != nil {
			t.Fatalf("track_cache should exist after migrations: %v", err)
		}

		if err := RunMigrations(db); err != nil {
			t.Fatalf("re-running migrations should be a no-op: %v", err)
		}

		if err := RollbackMigration(db); err != nil {
			t.Fatalf("failed to rollback: %v", err)
		}
		if _, err := db.Exec("SELECT 1 FROM track_cache LIMIT 1"); err == nil {
			t.Error("track_cache should not exist after rollback")
		}
		if err := RollbackMigration(db); err == nil {
			t.Error("expected error with nothing to roll back")
		}
	})
}
