// Package store loads tracks, timetables, and station progress tables from
// Postgres. The engines never touch the database: everything is loaded up
// front into the read-only in-memory tables they consume.
package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func Ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

// tableExists reports whether a table is present in the public schema.
// Optional tables (the station progress table) degrade to empty data when
// absent.
func tableExists(ctx context.Context, db *sql.DB, table string) (bool, error) {
	q := `SELECT EXISTS (
            SELECT 1 FROM information_schema.tables
            WHERE table_schema = 'public' AND table_name = $1)`
	var exists bool
	if err := db.QueryRowContext(ctx, q, table).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
