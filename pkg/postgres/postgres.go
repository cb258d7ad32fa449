package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB provides database operations using PostgreSQL
type DB struct {
	pool *pgxpool.Pool
}

// NewDB creates a new PostgreSQL database connection
func NewDB(ctx context.Context, connString string) (*DB, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the database connection pool
func (d *DB) Close() {
	d.pool.Close()
}

// Ping checks the connection, used by the health endpoint
func (d *DB) Ping(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

// RunMigrations executes all pending SQL migration files in order and returns the
// names of the files it applied. Applied files are tracked in schema_migrations.
func (d *DB) RunMigrations(ctx context.Context) ([]string, error) {
	_, err := d.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	rows, err := d.pool.Query(ctx, `SELECT filename FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	applied := make(map[string]bool)
	for rows.Next() {
		var filename string
		if err := rows.Scan(&filename); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan migration filename: %w", err)
		}
		applied[filename] = true
	}
	rows.Close()

	files, err := migrationFiles(migrationsFS)
	if err != nil {
		return nil, err
	}

	var ran []string
	for _, filename := range pendingMigrations(files, applied) {
		content, err := fs.ReadFile(migrationsFS, "migrations/"+filename)
		if err != nil {
			return ran, fmt.Errorf("failed to read migration %s: %w", filename, err)
		}

		// Each migration runs in its own transaction
		tx, err := d.pool.Begin(ctx)
		if err != nil {
			return ran, fmt.Errorf("failed to begin transaction for %s: %w", filename, err)
		}

		if _, err := tx.Exec(ctx, string(content)); err != nil {
			tx.Rollback(ctx)
			return ran, fmt.Errorf("failed to execute migration %s: %w", filename, err)
		}

		if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (filename) VALUES ($1)`, filename); err != nil {
			tx.Rollback(ctx)
			return ran, fmt.Errorf("failed to record migration %s: %w", filename, err)
		}

		if err := tx.Commit(ctx); err != nil {
			return ran, fmt.Errorf("failed to commit migration %s: %w", filename, err)
		}
		ran = append(ran, filename)
	}

	return ran, nil
}

// migrationFiles lists the .sql files of the migrations directory, sorted by name
func migrationFiles(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var sqlFiles []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			sqlFiles = append(sqlFiles, entry.Name())
		}
	}
	sort.Strings(sqlFiles)
	return sqlFiles, nil
}

func pendingMigrations(files []string, applied map[string]bool) []string {
	var pending []string
	for _, f := range files {
		if !applied[f] {
			pending = append(pending, f)
		}
	}
	return pending
}
