package config

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	intdb "busticket/internal/db"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

// OpenDB connects to the configured SQL driver and verifies the connection.
// It must not be called for the memory driver.
func OpenDB(ctx context.Context, env Env) (*sql.DB, intdb.Dialect, error) {
	var dialect intdb.Dialect
	switch env.DBDriver {
	case DriverMySQL:
		dialect = intdb.MySQL
	case DriverPostgres:
		dialect = intdb.Postgres
	default:
		return nil, "", fmt.Errorf("driver %q has no SQL connection", env.DBDriver)
	}

	db, err := sql.Open(string(dialect), env.DSN())
	if err != nil {
		return nil, "", fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(env.DBMaxOpenConns)
	db.SetMaxIdleConns(env.DBMaxIdleConns)
	db.SetConnMaxLifetime(env.DBConnMaxLifetime)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, "", fmt.Errorf("ping db: %w", err)
	}

	if env.AutoMigrate {
		if err := intdb.EnsureSchema(ctx, db, dialect); err != nil {
			_ = db.Close()
			return nil, "", err
		}
	}
	log.Printf("connected to %s database", dialect)
	return db, dialect, nil
}
