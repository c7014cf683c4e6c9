package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	storage "github.com/osr-alliance/leadtrack/storage"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const sqliteBusyTimeout = "_pragma=busy_timeout(5000)"

// Open connects to the lead database. sqlite dsn is a file path (e.g. leads.db), postgres dsn a libpq connection string.
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	switch driver {
	case DriverSQLite:
		sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
		if !strings.Contains(dsn, "_pragma=") {
			sep := "?"
			if strings.Contains(dsn, "?") {
				sep = "&"
			}
			dsn += sep + sqliteBusyTimeout
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", driver)
	}

	conn, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", driver, err)
	}

	// sqlite allows a single writer
	if driver == DriverSQLite {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("store: ping %s: %w", driver, err)
	}
	return conn, nil
}

// Initialize creates the leads schema if it is absent. Safe to call on every start.
func Initialize(ctx context.Context, conn *sqlx.DB) error {
	return storage.Initialize(ctx, conn, leadsTable())
}
