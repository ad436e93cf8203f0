// Package sqldb provides the SQL implementation of the storage.Storage
// interface using Go's standard database/sql package.
//
// ONE IMPLEMENTATION, TWO DRIVERS
// ───────────────────────────────
// Production runs MySQL (the database this server has always lived on);
// local development and the test suites run SQLite, which needs no
// server process and can live entirely in memory. Every query here is
// written in the portable subset both engines share:
//
//   - "?" placeholders (both drivers use them)
//   - timestamps computed in Go (UTC) rather than SQL functions
//   - no vendor-specific upserts; read-then-write inside a transaction
//
// Only the CREATE TABLE statements differ per driver (see schema.go).
//
// The driver imports below are NOT blank: we inspect their error types
// to detect duplicate-key violations when regenerating UUIDs.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"

	"github.com/daysync/daysync-api/internal/config"
	"github.com/daysync/daysync-api/internal/storage"
)

// DB is the concrete implementation of storage.Storage.
// It holds a *sql.DB which is a connection pool managed by database/sql.
// A single *sql.DB is safe for concurrent use by multiple goroutines.
type DB struct {
	db     *sql.DB
	driver string
}

// Compile-time proof that *DB satisfies the full contract. If a method
// goes missing this line fails the build instead of main.go.
var _ storage.Storage = (*DB)(nil)

// New opens the database selected by cfg.Database, verifies the
// connection, creates any missing tables, and returns a ready-to-use *DB.
//
// Naming convention: New() acts as a constructor. Go has no constructors,
// so the community convention is a package-level New() function that
// returns an initialised instance (and an error as the second value).
func New(cfg *config.Config) (*DB, error) {
	var (
		db  *sql.DB
		err error
	)

	switch cfg.Database.Driver {
	case "mysql":
		db, err = openMySQL(cfg.Database)
	case "sqlite3":
		db, err = openSQLite(cfg.Database)
	default:
		return nil, fmt.Errorf("sqldb.New: unknown driver %q", cfg.Database.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("sqldb.New: open db: %w", err)
	}

	// sql.Open does NOT open a real connection yet — it just validates
	// the driver name and DSN. Ping forces one, so a wrong password or
	// unreachable host fails here at boot instead of on the first query.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqldb.New: ping: %w", err)
	}

	s := &DB{db: db, driver: cfg.Database.Driver}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqldb.New: create tables: %w", err)
	}

	return s, nil
}

// openMySQL builds the DSN with the driver's own Config type instead of
// string concatenation, so special characters in passwords survive.
// ClientFoundRows makes RowsAffected count MATCHED rows rather than
// changed rows; several methods use "0 rows matched" to mean not-found,
// which must not misfire when an update happens to write identical
// values.
func openMySQL(dc config.Database) (*sql.DB, error) {
	mc := mysql.NewConfig()
	mc.User = dc.User
	mc.Passwd = dc.Password
	mc.Net = "tcp"
	mc.Addr = dc.Host + ":" + strconv.Itoa(dc.Port)
	mc.DBName = dc.Name
	mc.ParseTime = true // scan DATETIME columns into time.Time
	mc.Loc = time.UTC
	mc.Collation = "utf8mb4_unicode_ci"
	mc.ClientFoundRows = true

	db, err := sql.Open("mysql", mc.FormatDSN())
	if err != nil {
		return nil, err
	}

	// Pool sizing carried over from the previous deployment: up to 30
	// connections, recycled hourly so long-idle ones are not killed by
	// the server side first.
	db.SetMaxOpenConns(30)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// openSQLite opens (or creates) the database file. Foreign keys are OFF
// by default in SQLite and the schema relies on them (cascading message
// deletes, alarm detaching), so the DSN switches them on per connection.
//
// ":memory:" gets a pool capped at one connection: each new connection
// to an in-memory database would otherwise see its own fresh, empty
// database.
func openSQLite(dc config.Database) (*sql.DB, error) {
	dsn := "file:" + dc.StoragePath + "?_foreign_keys=on"

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	if dc.StoragePath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	return db, nil
}

// Ping verifies the database connection. The health endpoint calls this
// on every probe.
func (s *DB) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("Ping: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *DB) Close() error {
	return s.db.Close()
}

// now returns the single clock the whole package writes with. Always
// UTC, so MySQL and SQLite store comparable values and the JSON the
// API returns is timezone-stable.
func (s *DB) now() time.Time {
	return time.Now().UTC()
}

// isDuplicate reports whether err is a unique-constraint violation, in
// whichever dialect the active driver speaks.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062 // ER_DUP_ENTRY
	}

	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
			se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	return false
}

// Null-to-pointer helpers for reading optional columns. Writing needs no
// helpers: database/sql accepts *string, *float64, *int64 and *time.Time
// arguments directly and stores NULL for nil.

func strPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func f64Ptr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	return &v.Time
}
