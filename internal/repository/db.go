package repository

import (
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	litedriver "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"claimintake/db"
	"claimintake/internal/config"
)

const (
	driverPostgres = "pgx"
	driverSQLite   = "sqlite"

	pgUniqueViolation = "23505"
)

// Open connects to the configured database. Postgres goes through the pgx
// stdlib driver, sqlite through modernc.
func Open(cfg *config.DBConfig) (*sqlx.DB, error) {
	driver := driverPostgres
	if cfg.Driver == "sqlite" {
		driver = driverSQLite
	}
	conn, err := sqlx.Connect(driver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", cfg.Driver, err)
	}
	if driver == driverSQLite {
		// One writer at a time; extra connections only produce SQLITE_BUSY.
		conn.SetMaxOpenConns(1)
		return conn, nil
	}
	conn.SetMaxOpenConns(cfg.MaxOpen)
	conn.SetMaxIdleConns(cfg.MaxIdle)
	return conn, nil
}

// NewMigrator builds a migrate instance over the embedded migrations for the
// connection's driver. Closing the migrator closes conn.
func NewMigrator(conn *sqlx.DB) (*migrate.Migrate, error) {
	dir := "migrations/postgres"
	if conn.DriverName() == driverSQLite {
		dir = "migrations/sqlite"
	}
	src, err := iofs.New(db.Migrations, dir)
	if err != nil {
		return nil, fmt.Errorf("opening embedded migrations: %w", err)
	}

	var drv database.Driver
	if conn.DriverName() == driverSQLite {
		drv, err = sqlite.WithInstance(conn.DB, &sqlite.Config{})
	} else {
		drv, err = postgres.WithInstance(conn.DB, &postgres.Config{})
	}
	if err != nil {
		return nil, fmt.Errorf("creating migrate driver: %w", err)
	}
	return migrate.NewWithInstance("iofs", src, conn.DriverName(), drv)
}

// Migrate applies all pending migrations.
func Migrate(conn *sqlx.DB) error {
	m, err := NewMigrator(conn)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

func builder(conn *sqlx.DB) sq.StatementBuilderType {
	if conn.DriverName() == driverSQLite {
		return sq.StatementBuilder.PlaceholderFormat(sq.Question)
	}
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

// nullJSON stores an empty document as NULL rather than a zero-length blob.
func nullJSON(b json.RawMessage) interface{} {
	if len(b) == 0 {
		return nil
	}
	return []byte(b)
}

// isUniqueViolation reports whether err is a unique constraint failure on
// either driver.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var liteErr *litedriver.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return false
}
