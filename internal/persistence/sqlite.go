package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/spec-kit/order-dashboard/internal/config"
)

// Sqlite wraps the local fallback database. It mirrors the remote schema so
// reads and writes keep identical semantics when the remote is unreachable.
type Sqlite struct {
	DB *sql.DB
}

// NewSqlite opens the fallback database and applies its schema.
func NewSqlite(cfg config.FallbackConfig, logger *zap.Logger) (*Sqlite, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("empty fallback database path")
	}

	if err := ensureDir(cfg.Path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=ON", cfg.Path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if err := migrateSqlite(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("local fallback store ready", zap.String("path", cfg.Path))
	return &Sqlite{DB: db}, nil
}

// Close releases the database resources.
func (s *Sqlite) Close() {
	if s != nil && s.DB != nil {
		_ = s.DB.Close()
	}
}

// Ping verifies the fallback store is usable.
func (s *Sqlite) Ping(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return fmt.Errorf("sqlite not configured")
	}
	return s.DB.PingContext(ctx)
}

func ensureDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func migrateSqlite(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS orders (
            id TEXT PRIMARY KEY,
            title TEXT NOT NULL,
            type TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL DEFAULT 'unassigned',
            priority TEXT NOT NULL DEFAULT 'medium',
            assigned_to TEXT NOT NULL DEFAULT '',
            details TEXT NOT NULL DEFAULT '{}',
            tasks TEXT NOT NULL DEFAULT '[]',
            created_at DATETIME NOT NULL,
            completed_at DATETIME
        );`,
		`CREATE TABLE IF NOT EXISTS departments (
            name TEXT PRIMARY KEY
        );`,
		`CREATE TABLE IF NOT EXISTS agents (
            name TEXT PRIMARY KEY,
            department_name TEXT NOT NULL,
            email TEXT NOT NULL DEFAULT '',
            extension TEXT NOT NULL DEFAULT '',
            completed_orders INTEGER NOT NULL DEFAULT 0,
            total_orders INTEGER NOT NULL DEFAULT 0,
            FOREIGN KEY(department_name) REFERENCES departments(name) ON DELETE CASCADE
        );`,
		`CREATE TABLE IF NOT EXISTS categories (
            name TEXT PRIMARY KEY
        );`,
		`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);`,
		`CREATE INDEX IF NOT EXISTS idx_agents_department ON agents(department_name);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("fallback migration failed: %w", err)
		}
	}
	return nil
}
