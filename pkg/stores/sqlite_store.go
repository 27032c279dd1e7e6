package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/hjrent/hjstore/pkg/backend"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements backend.TxExecutor on top of SQLite
type SQLiteStore struct {
	db  *sql.DB
	cfg Config
}

var (
	_ Store              = (*SQLiteStore)(nil)
	_ backend.TxExecutor = (*SQLiteStore)(nil)
)

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	// Set defaults
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 25
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	// Every connection to :memory: opens a separate database.
	if IsMemoryPath(cfg.Path) {
		cfg.MaxOpenConns = 1
		cfg.MaxIdleConns = 1
		cfg.ConnMaxLifetime = 0
	}

	return &SQLiteStore{cfg: cfg}, nil
}

// Init initializes the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := fmt.Sprintf(
		"%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)&_txlock=immediate",
		s.cfg.Path, s.cfg.BusyTimeout.Milliseconds(),
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(s.cfg.MaxOpenConns)
	db.SetMaxIdleConns(s.cfg.MaxIdleConns)
	db.SetConnMaxLifetime(s.cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate creates or upgrades the record tables.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	// Create migration source from embedded FS
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// BeginTx starts a new transaction
func (s *SQLiteStore) BeginTx(ctx context.Context) (*sql.Tx, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	return s.db.BeginTx(ctx, nil)
}

// Execute runs a single query. Multi-row writes are applied atomically.
func (s *SQLiteStore) Execute(ctx context.Context, q *backend.Query) ([]backend.Row, error) {
	if s.db == nil {
		return nil, backend.NewError(backend.CodeInternal, "database not initialized", nil)
	}

	if (q.Action == backend.ActionInsert || q.Action == backend.ActionUpsert) && len(q.Rows) > 1 {
		var rows []backend.Row
		err := s.WithTx(ctx, func(tx backend.Executor) error {
			var err error
			rows, err = tx.Execute(ctx, q)
			return err
		})
		return rows, err
	}

	return executeSQL(ctx, s.db, q)
}

// WithTx runs fn inside a single SQLite transaction.
func (s *SQLiteStore) WithTx(ctx context.Context, fn func(tx backend.Executor) error) error {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return mapSQLiteError("begin transaction", err)
	}

	if err := fn(&sqliteTx{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return mapSQLiteError("commit transaction", err)
	}
	return nil
}

// HealthCheck verifies the database connection is healthy
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	return s.db.PingContext(ctx)
}

// sqliteTx executes queries inside an open transaction.
type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) Execute(ctx context.Context, q *backend.Query) ([]backend.Row, error) {
	return executeSQL(ctx, t.tx, q)
}

// IsMemoryPath reports whether path names an in-memory database.
func IsMemoryPath(path string) bool {
	return path == ":memory:" || path == "file::memory:"
}
