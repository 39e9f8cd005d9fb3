// Package sqlite opens the formation database through either the pure Go
// (modernc.org/sqlite) or the CGO (mattn/go-sqlite3) driver.
//
// Build modes:
//   - Default (CGO_ENABLED=0): uses pure Go modernc.org/sqlite
//   - CGO mode (CGO_ENABLED=1 -tags cgo_sqlite): uses mattn/go-sqlite3
//
// The two drivers spell connection pragmas differently, so callers should
// use Open rather than sql.Open; Open always enables foreign keys and sets a
// busy timeout, and enables WAL journaling for file databases.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// DefaultBusyTimeout is how long a connection waits on a locked database.
const DefaultBusyTimeout = 5 * time.Second

// Options tune the connection string built by Open.
type Options struct {
	ReadOnly    bool
	BusyTimeout time.Duration
}

// DriverName returns the database/sql driver name of the compiled-in driver.
func DriverName() string {
	return driverName
}

// IsMemory reports whether path names an in-memory database.
func IsMemory(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}

// DSN builds the driver-specific connection string for path.
func DSN(path string, opts Options) string {
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = DefaultBusyTimeout
	}
	params := []string{pragma("foreign_keys", "1"), pragma("busy_timeout", fmt.Sprint(opts.BusyTimeout.Milliseconds()))}
	if opts.ReadOnly {
		params = append(params, "mode=ro")
	} else if !IsMemory(path) {
		params = append(params, pragma("journal_mode", "WAL"), pragma("synchronous", "NORMAL"))
	}

	name := path
	if !strings.HasPrefix(name, "file:") {
		name = "file:" + name
	}
	sep := "?"
	if strings.Contains(name, "?") {
		sep = "&"
	}
	return name + sep + strings.Join(params, "&")
}

// Open opens the SQLite database at path with foreign keys enforced. A
// single connection is kept so that ":memory:" databases are shared by every
// query and writes are serialized.
func Open(path string) (*sql.DB, error) {
	return OpenWith(path, Options{})
}

// OpenReadOnly opens a SQLite database in read-only mode.
func OpenReadOnly(path string) (*sql.DB, error) {
	return OpenWith(path, Options{ReadOnly: true})
}

// OpenWith opens path with explicit options.
func OpenWith(path string, opts Options) (*sql.DB, error) {
	db, err := sql.Open(driverName, DSN(path, opts))
	if err != nil {
		return nil, err
	}
	if !opts.ReadOnly {
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

// IsUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY
// constraint failure. Both drivers report these with the same SQLite message.
func IsUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsForeignKeyViolation reports whether err is a FOREIGN KEY constraint failure.
func IsForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// Info describes the compiled-in driver, for version output.
type Info struct {
	Driver  string `json:"driver"`
	Kind    string `json:"kind"`
	Package string `json:"package"`
}

func (i Info) String() string {
	return fmt.Sprintf("%s (%s, driver %q)", i.Package, i.Kind, i.Driver)
}

// GetInfo reports which driver this binary was built with.
func GetInfo() Info {
	return Info{Driver: driverName, Kind: driverType, Package: driverPackage}
}
