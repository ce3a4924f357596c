package dal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nekruzvatanshoev/carrental/pkg/carrental/logger"
)

// Options configure Open.
type Options struct {
	URL          string
	MaxOpenConns int
	PingAttempts int
	PingInterval time.Duration
	Log          *logger.Logger
}

// Store owns the connection pool.
type Store struct {
	db *gorm.DB
}

// Open connects to PostgreSQL (postgres:// URLs or key=value DSNs) or SQLite
// (anything else, e.g. "file:carrental.db").
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Log == nil {
		opts.Log = logger.Discard()
	}
	gcfg := &gorm.Config{Logger: logger.NewGorm(opts.Log)}

	var dialector gorm.Dialector
	if isPostgres(opts.URL) {
		sqlDB, err := openPostgres(ctx, opts)
		if err != nil {
			return nil, err
		}
		dialector = postgres.New(postgres.Config{Conn: sqlDB})
	} else {
		dialector = sqlite.Open(strings.TrimPrefix(opts.URL, "sqlite://"))
	}

	db, err := gorm.Open(dialector, gcfg)
	if err != nil {
		return nil, fmt.Errorf("dal: open: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
		}
	}
	return &Store{db: db}, nil
}

// NewStore wraps an already opened gorm handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func isPostgres(url string) bool {
	return strings.HasPrefix(url, "postgres://") ||
		strings.HasPrefix(url, "postgresql://") ||
		strings.Contains(url, "host=")
}

// openPostgres opens through lib/pq and retries the first ping while the
// database container comes up.
func openPostgres(ctx context.Context, opts Options) (*sql.DB, error) {
	sqlDB, err := sql.Open("postgres", opts.URL)
	if err != nil {
		return nil, fmt.Errorf("dal: postgres open: %w", err)
	}
	attempts := opts.PingAttempts
	if attempts <= 0 {
		attempts = 1
	}
	interval := opts.PingInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	for i := 1; i <= attempts; i++ {
		if err = sqlDB.PingContext(ctx); err == nil {
			return sqlDB, nil
		}
		if i < attempts {
			opts.Log.Warn("postgres ping failed (attempt %d/%d): %v", i, attempts, err)
			select {
			case <-ctx.Done():
				_ = sqlDB.Close()
				return nil, ctx.Err()
			case <-time.After(interval):
			}
		}
	}
	_ = sqlDB.Close()
	return nil, fmt.Errorf("dal: postgres ping failed after %d attempts: %w", attempts, err)
}

// Migrate creates or updates the schema.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("dal: migrate: %w", err)
	}
	return nil
}

// DB exposes the underlying handle for maintenance code.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// WithSession pins one pooled connection for the duration of fn and releases
// it when fn returns, including on error or panic.
func (s *Store) WithSession(ctx context.Context, fn func(Repository) error) error {
	return s.db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		return fn(&repository{db: conn.Session(&gorm.Session{NewDB: true})})
	})
}

// Sessions is implemented by Store and by test fakes.
type Sessions interface {
	WithSession(ctx context.Context, fn func(Repository) error) error
}
