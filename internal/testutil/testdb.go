package testutil

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"tri-league/internal/config"
	"tri-league/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaSetupTimeout = 30 * time.Second

// OpenTestStore gives the test its own Postgres schema with every up
// migration applied. The schema is dropped in t.Cleanup. Tests skip when
// TEST_POSTGRES_DSN is unset.
func OpenTestStore(t *testing.T) (*store.Store, context.Context) {
	t.Helper()
	cfg, err := config.LoadTest()
	if err != nil {
		t.Skipf("skip test db: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), schemaSetupTimeout)
	defer cancel()

	schema := pgx.Identifier{fmt.Sprintf("league_test_%d", time.Now().UnixNano())}.Sanitize()
	admin, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		t.Fatalf("open admin pool: %v", err)
	}
	if _, err := admin.Exec(ctx, "CREATE SCHEMA "+schema); err != nil {
		admin.Close()
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() {
		defer admin.Close()
		if cfg.KeepSchema {
			t.Logf("keeping schema %s", schema)
			return
		}
		dropCtx, cancel := context.WithTimeout(context.Background(), schemaSetupTimeout)
		defer cancel()
		if _, err := admin.Exec(dropCtx, "DROP SCHEMA "+schema+" CASCADE"); err != nil {
			t.Logf("drop schema %s: %v", schema, err)
		}
	})

	st, err := store.New(ctx, withSearchPath(cfg.PostgresDSN, strings.Trim(schema, `"`)))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(st.Close)
	if err := migrateUp(ctx, st); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return st, context.Background()
}

// migrateUp runs migrations/*.up.sql in file name order.
func migrateUp(ctx context.Context, st *store.Store) error {
	dir, err := migrationsDir()
	if err != nil {
		return err
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		return err
	}
	sort.Strings(files)
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			return err
		}
		if _, err := st.Pool.Exec(ctx, string(b)); err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(f), err)
		}
	}
	return nil
}

func migrationsDir() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		p := filepath.Join(dir, "migrations")
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			return p, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("migrations directory not found above %s", dir)
		}
		dir = parent
	}
}

func withSearchPath(dsn, schema string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "search_path=" + url.QueryEscape(schema)
}
