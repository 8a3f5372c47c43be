package store

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Supported database drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// MemoryDSN opens a private in-memory SQLite database.
const MemoryDSN = ":memory:"

func init() {
	// modernc.org/sqlite registers itself as "sqlite", which sqlx does not know by default.
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Store is a handle to the contacts database. It is safe for concurrent use.
type Store struct {
	db     *sqlx.DB
	driver string
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used by the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger.With("component", "store")
	}
}

// Open connects to the database identified by driver and dsn and creates the schema if needed.
// For SQLite the dsn is a file path or MemoryDSN.
//
// Usage example:
//
//	s, err := store.Open(ctx, store.DriverSQLite, "contacts.db")
func Open(ctx context.Context, driver string, dsn string, opts ...Option) (*Store, error) {
	switch driver {
	case DriverSQLite:
		return openSQLite(ctx, dsn, opts...)
	case DriverMySQL:
		sqlDB, err := sql.Open(DriverMySQL, dsn)
		if err != nil {
			return nil, fmt.Errorf("%w: open mysql: %w", ErrStorageUnavailable, err)
		}
		return New(ctx, sqlDB, DriverMySQL, opts...)
	default:
		return nil, fmt.Errorf("%w: unknown driver %q", ErrStorageUnavailable, driver)
	}
}

func openSQLite(ctx context.Context, path string, opts ...Option) (*Store, error) {
	inMemory := path == MemoryDSN || strings.Contains(path, "mode=memory")
	dsn := path
	if !inMemory {
		file, _, _ := strings.Cut(strings.TrimPrefix(path, "file:"), "?")
		if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
			return nil, fmt.Errorf("%w: create database directory: %w", ErrStorageUnavailable, err)
		}
		dsn = sqliteDSN(path)
	}
	sqlDB, err := sql.Open(DriverSQLite, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %w", ErrStorageUnavailable, err)
	}
	if inMemory {
		// Every connection to :memory: gets its own database, so all sessions must share one.
		sqlDB.SetMaxOpenConns(1)
	}
	return New(ctx, sqlDB, DriverSQLite, opts...)
}

// sqliteDSN appends the connection pragmas to a file path, keeping any query parameters the
// path already carries.
func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// New wraps an already opened database and creates the schema. The database argument can be a
// real database for production use or a mock database within unit tests.
func New(ctx context.Context, sqlDB *sql.DB, driver string, opts ...Option) (*Store, error) {
	s := wrap(sqlDB, driver, opts...)
	if err := s.db.PingContext(ctx); err != nil {
		_ = s.db.Close()
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	if err := createSchema(ctx, s.db, driver); err != nil {
		_ = s.db.Close()
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	s.logger.Info("contacts store initialized", "driver", driver)
	return s, nil
}

func wrap(sqlDB *sql.DB, driver string, opts ...Option) *Store {
	s := &Store{
		db:     sqlx.NewDb(sqlDB, driver),
		driver: driver,
		logger: slog.Default().With("component", "store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Transaction runs fn inside a read-write transaction. The transaction is committed if fn
// returns nil and rolled back otherwise, also when fn panics.
func (s *Store) Transaction(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Warn("rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ExecScript executes the SQL statements read from r in one transaction. Statements may span
// several lines and end with a semicolon. It returns the number of statements executed. Text
// after the last semicolon is an error, and nothing of the script is kept.
func (s *Store) ExecScript(ctx context.Context, r io.Reader) (int, error) {
	var count int
	err := s.Transaction(ctx, func(tx *sqlx.Tx) error {
		scanner := bufio.NewScanner(r)
		scanner.Split(bufio.ScanLines)
		builder := strings.Builder{}
		for scanner.Scan() {
			line := scanner.Text()
			builder.WriteString(line)
			builder.WriteString(" ")
			if strings.Contains(line, ";") {
				if _, err := tx.ExecContext(ctx, builder.String()); err != nil {
					return fmt.Errorf("statement %d: %w", count+1, err)
				}
				count++
				builder = strings.Builder{}
			}
		}
		if err := scanner.Err(); err != nil {
			return err
		}
		if rest := strings.TrimSpace(builder.String()); rest != "" {
			return fmt.Errorf("statement %d is not terminated by a semicolon: %q", count+1, rest)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}
