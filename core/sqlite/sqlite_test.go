package sqlite

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestDriverInfo(t *testing.T) {
	info := GetInfo()
	if info.Driver != DriverName() {
		t.Errorf("GetInfo().Driver = %q, DriverName() = %q", info.Driver, DriverName())
	}

	want := map[string]struct{ driver, pkg string }{
		"purego": {"sqlite", "modernc.org/sqlite"},
		"cgo":    {"sqlite3", "github.com/mattn/go-sqlite3"},
	}
	w, ok := want[info.Kind]
	if !ok {
		t.Fatalf("unknown driver kind %q", info.Kind)
	}
	if info.Driver != w.driver || info.Package != w.pkg {
		t.Errorf("GetInfo() = %+v, want driver %q from %s", info, w.driver, w.pkg)
	}
	if s := info.String(); !strings.Contains(s, info.Package) || !strings.Contains(s, info.Kind) {
		t.Errorf("String() = %q", s)
	}
}

func TestDSN(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		opts     Options
		contains []string
		excludes []string
	}{
		{"file", "/tmp/f.db", Options{}, []string{"file:/tmp/f.db?", "foreign_keys", "journal_mode", "busy_timeout"}, []string{"mode=ro"}},
		{"memory", ":memory:", Options{}, []string{"file::memory:?", "foreign_keys"}, []string{"journal_mode"}},
		{"read only", "f.db", Options{ReadOnly: true}, []string{"mode=ro"}, []string{"journal_mode"}},
		{"existing query", "file:f.db?cache=shared", Options{}, []string{"file:f.db?cache=shared&"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DSN(tt.path, tt.opts)
			for _, s := range tt.contains {
				if !strings.Contains(got, s) {
					t.Errorf("DSN() = %q, missing %q", got, s)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(got, s) {
					t.Errorf("DSN() = %q, should not contain %q", got, s)
				}
			}
		})
	}
}

func TestOpenEnforcesForeignKeys(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	stmts := []string{
		`CREATE TABLE words (id INTEGER PRIMARY KEY, letters TEXT NOT NULL UNIQUE)`,
		`CREATE TABLE parts (word_id INTEGER NOT NULL REFERENCES words(id))`,
		`INSERT INTO words (id, letters) VALUES (1, 'AB')`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("%s: %v", s, err)
		}
	}

	_, err = db.Exec(`INSERT INTO words (id, letters) VALUES (2, 'AB')`)
	if !IsUniqueViolation(err) {
		t.Errorf("duplicate insert error = %v, want unique violation", err)
	}
	_, err = db.Exec(`INSERT INTO parts (word_id) VALUES (42)`)
	if !IsForeignKeyViolation(err) {
		t.Errorf("dangling reference error = %v, want foreign key violation", err)
	}
}

func TestOpenReadOnly(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := db.Exec(`CREATE TABLE test (id INTEGER PRIMARY KEY, value TEXT)`); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO test (value) VALUES (?)`, "readonly"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	db.Close()

	rodb, err := OpenReadOnly(dbPath)
	if err != nil {
		t.Fatalf("OpenReadOnly: %v", err)
	}
	defer rodb.Close()

	var value string
	if err := rodb.QueryRow(`SELECT value FROM test WHERE id = 1`).Scan(&value); err != nil {
		t.Fatalf("query: %v", err)
	}
	if value != "readonly" {
		t.Errorf("expected 'readonly', got %q", value)
	}
	if _, err := rodb.Exec(`INSERT INTO test (value) VALUES ('x')`); err == nil {
		t.Error("write through read-only handle should fail")
	}
}
