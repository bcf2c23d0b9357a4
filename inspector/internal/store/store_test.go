package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/hazyhaar/fontpeek/inspector/internal/store"
)

func TestOpenMemory_Pragmas(t *testing.T) {
	db := store.OpenMemory(t)

	var fk int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatal(err)
	}
	if fk != 1 {
		t.Fatalf("foreign_keys = %d, want 1", fk)
	}

	var busy int
	if err := db.QueryRow("PRAGMA busy_timeout").Scan(&busy); err != nil {
		t.Fatal(err)
	}
	if busy != 10_000 {
		t.Fatalf("busy_timeout = %d, want 10000", busy)
	}
}

func TestOpenMemory_Schema(t *testing.T) {
	db := store.OpenMemory(t)
	for _, table := range []string{"preferences", "snapshots"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		if err != nil {
			t.Fatalf("table %s missing: %v", table, err)
		}
	}
}

func TestOpen_FileWithMkdir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "fontpeek.db")
	db, err := store.Open(path, store.WithMkdirAll(), store.WithBusyTimeout(5000))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var mode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatal(err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}

func TestExec(t *testing.T) {
	db := store.OpenMemory(t)
	res, err := store.Exec(context.Background(), db,
		`INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)`, "theme", "dark", 1)
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		t.Errorf("rows affected = %d, want 1", n)
	}
}

func TestIsBusy(t *testing.T) {
	cases := map[string]bool{
		"SQLITE_BUSY":              true,
		"database is locked":       true,
		"database table is locked": true,
		"no such table":            false,
	}
	for msg, want := range cases {
		if got := store.IsBusy(errors.New(msg)); got != want {
			t.Errorf("IsBusy(%q) = %v, want %v", msg, got, want)
		}
	}
	if store.IsBusy(nil) {
		t.Error("IsBusy(nil) = true")
	}
}
