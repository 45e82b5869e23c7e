package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopmonkeyus/go-common/logger"
	"github.com/shopmonkeyus/mds/internal/util"
)

const pingTimeout = 5 * time.Second

// Execer is the subset of sql.DB and sql.Tx the writers need.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Store is the relational metadata cache.
type Store struct {
	db      *sql.DB
	dialect Dialect
	logger  logger.Logger
}

// New opens a connection to the database named by urlstr. The scheme selects
// the engine: sqlite://, postgres:// or mysql://.
func New(log logger.Logger, urlstr string) (*Store, error) {
	dialect, dsn, err := parseURL(urlstr)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		masked, _ := util.MaskURL(urlstr)
		return nil, fmt.Errorf("error connecting to %s: %w", masked, err)
	}
	log.Debug("connected to %s database", dialect)
	return NewWithDB(log, db, dialect), nil
}

// NewWithDB wraps an already-open connection.
func NewWithDB(log logger.Logger, db *sql.DB, dialect Dialect) *Store {
	return &Store{
		db:      db,
		dialect: dialect,
		logger:  log.WithPrefix("[store]"),
	}
}

// Migrate creates any missing tables. Safe to run on every start.
func (s *Store) Migrate(ctx context.Context) error {
	for _, ddl := range schema {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("error creating schema: %w", err)
		}
	}
	s.logger.Trace("schema up to date (%d tables)", len(schema))
	return nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// WithTx runs fn inside a transaction, rolling back when fn errors. Each sync
// stage commits through here independently so an interrupted run keeps every
// completed stage.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			s.logger.Error("rollback failed: %s", rerr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(val string) time.Time {
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return time.Time{}
	}
	return t
}
