package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"ebis/config"
	"ebis/observability"
)

// testStore runs the behaviour every backend must share
func testStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		_, err := s.Get(ctx, "missing")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("set and get", func(t *testing.T) {
		if err := s.Set(ctx, "ebis_users", []byte(`[1]`)); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		got, err := s.Get(ctx, "ebis_users")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if string(got) != `[1]` {
			t.Errorf("Get() = %s, want [1]", got)
		}
	})

	t.Run("overwrite", func(t *testing.T) {
		if err := s.Set(ctx, "ebis_users", []byte(`[1,2]`)); err != nil {
			t.Fatal(err)
		}
		got, _ := s.Get(ctx, "ebis_users")
		if string(got) != `[1,2]` {
			t.Errorf("Get() = %s, want [1,2]", got)
		}
	})

	t.Run("keys by prefix", func(t *testing.T) {
		for _, k := range []string{"ebis_sessions", "other", "ebis_analysis_history"} {
			if err := s.Set(ctx, k, []byte(`{}`)); err != nil {
				t.Fatal(err)
			}
		}
		keys, err := s.Keys(ctx, "ebis_")
		if err != nil {
			t.Fatalf("Keys() error = %v", err)
		}
		want := []string{"ebis_analysis_history", "ebis_sessions", "ebis_users"}
		if len(keys) != len(want) {
			t.Fatalf("Keys() = %v, want %v", keys, want)
		}
		for i := range want {
			if keys[i] != want[i] {
				t.Errorf("Keys()[%d] = %s, want %s", i, keys[i], want[i])
			}
		}
	})

	t.Run("prefix with wildcard characters", func(t *testing.T) {
		if err := s.Set(ctx, "a%b", []byte(`1`)); err != nil {
			t.Fatal(err)
		}
		if err := s.Set(ctx, "axb", []byte(`1`)); err != nil {
			t.Fatal(err)
		}
		keys, err := s.Keys(ctx, "a%")
		if err != nil {
			t.Fatal(err)
		}
		if len(keys) != 1 || keys[0] != "a%b" {
			t.Errorf("Keys(a%%) = %v, want [a%%b]", keys)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := s.Delete(ctx, "other"); err != nil {
			t.Fatal(err)
		}
		if _, err := s.Get(ctx, "other"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
		if err := s.Delete(ctx, "never-existed"); err != nil {
			t.Errorf("deleting a missing key should not fail: %v", err)
		}
	})

	t.Run("json helpers", func(t *testing.T) {
		type rec struct {
			Name string `json:"name"`
		}
		if err := SetJSON(ctx, s, "json", rec{Name: "IBM"}); err != nil {
			t.Fatal(err)
		}
		var got rec
		found, err := GetJSON(ctx, s, "json", &got)
		if err != nil || !found {
			t.Fatalf("GetJSON() = %v, %v", found, err)
		}
		if got.Name != "IBM" {
			t.Errorf("Name = %s", got.Name)
		}

		found, err = GetJSON(ctx, s, "absent", &got)
		if err != nil || found {
			t.Errorf("GetJSON(absent) = %v, %v; want false, nil", found, err)
		}

		if err := s.Set(ctx, "broken", []byte(`{`)); err != nil {
			t.Fatal(err)
		}
		if _, err := GetJSON(ctx, s, "broken", &got); err == nil {
			t.Error("expected decode error")
		}
	})
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	buf := []byte("abc")
	s.Set(ctx, "k", buf)
	buf[0] = 'x'

	got, _ := s.Get(ctx, "k")
	if string(got) != "abc" {
		t.Errorf("stored value changed with caller buffer: %s", got)
	}
}

func TestSQLiteStore_InMemory(t *testing.T) {
	s, err := NewSQLiteStore(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	defer s.Close()

	testStore(t, s)
}

func TestSQLiteStore_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ebis.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(ctx, path)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	if err := s.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatal(err)
	}
	s.Close()

	reopened, err := NewSQLiteStore(ctx, path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Errorf("value did not persist: %s, %v", got, err)
	}
	if err := reopened.Health(ctx); err != nil {
		t.Errorf("Health() error = %v", err)
	}
}

func TestPostgresStore(t *testing.T) {
	connString := os.Getenv("DATABASE_URL")
	if connString == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s, err := NewPostgresStore(ctx, connString)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	defer s.Close()

	s.Pool().Exec(context.Background(), "DELETE FROM kv_store")
	testStore(t, s)
}

func TestInstrument(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	s := Instrument(NewMemoryStore(), "memory", metrics)
	ctx := context.Background()

	s.Set(ctx, "k", []byte("v"))
	s.Get(ctx, "k")
	s.Get(ctx, "missing")

	if n := testutil.CollectAndCount(metrics.StorageOpDuration); n != 2 {
		t.Errorf("expected get and set series, got %d", n)
	}
	if got := testutil.ToFloat64(metrics.StorageErrors.WithLabelValues("memory", "get")); got != 0 {
		t.Errorf("ErrNotFound should not count as a storage error, got %f", got)
	}

	testStore(t, s)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.StorageConfig{Backend: config.BackendMemory})
	if err != nil {
		t.Fatalf("Open(memory) error = %v", err)
	}
	s.Close()

	s, err = Open(ctx, config.StorageConfig{Backend: config.BackendSQLite, SQLitePath: ":memory:"})
	if err != nil {
		t.Fatalf("Open(sqlite) error = %v", err)
	}
	if err := Health(ctx, s); err != nil {
		t.Errorf("Health(sqlite) error = %v", err)
	}
	s.Close()

	if _, err := Open(ctx, config.StorageConfig{Backend: "redis"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}
