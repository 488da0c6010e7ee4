// Package database owns the Postgres connection pool and the transactional
// client used by every store.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/higher-endeavors/endeavors/internal/config"
	apperrors "github.com/higher-endeavors/endeavors/internal/errors"
	"github.com/higher-endeavors/endeavors/pkg/logger"
)

// DefaultCheckoutWarn is how long a dedicated client may be held before the
// watchdog logs a warning.
const DefaultCheckoutWarn = 5 * time.Second

// uniqueViolation is the SQLSTATE Postgres reports for a unique index hit.
const uniqueViolation = "23505"

// Queryer is the statement surface shared by the pool, a checked-out client,
// and an open transaction.
type Queryer interface {
	Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	Exec(ctx context.Context, query string, args ...interface{}) (int64, error)
}

// Pool is the process-wide connection pool. It is constructed once at
// startup and closed on shutdown.
type Pool struct {
	db           *sqlx.DB
	log          *logger.Logger
	checkoutWarn time.Duration
}

var _ Queryer = (*Pool)(nil)

// Open connects to Postgres and verifies the connection. A failed ping is
// returned as an error; callers treat it as fatal.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*Pool, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database url not configured")
	}

	db, err := sqlx.Open("postgres", cfg.URL)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return New(db, log, cfg.CheckoutWarn), nil
}

// New wraps an existing handle. Tests pass a sqlmock-backed *sqlx.DB.
func New(db *sqlx.DB, log *logger.Logger, checkoutWarn time.Duration) *Pool {
	if log == nil {
		log = logger.NewDefault("database")
	}
	if checkoutWarn <= 0 {
		checkoutWarn = DefaultCheckoutWarn
	}
	return &Pool{db: db, log: log, checkoutWarn: checkoutWarn}
}

// DB exposes the underlying handle for migrations.
func (p *Pool) DB() *sqlx.DB {
	return p.db
}

// Close closes every connection in the pool.
func (p *Pool) Close() error {
	return p.db.Close()
}

// Ping checks connectivity.
func (p *Pool) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Select runs a single query and scans all rows into dest.
func (p *Pool) Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return mapError("select", p.db.SelectContext(ctx, dest, query, args...))
}

// Get runs a single query and scans one row into dest. A missing row is
// returned as sql.ErrNoRows.
func (p *Pool) Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return mapError("get", p.db.GetContext(ctx, dest, query, args...))
}

// Exec runs a single statement and returns the affected row count.
func (p *Pool) Exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	return execResult(p.db.ExecContext(ctx, query, args...))
}

// WithTx runs fn inside BEGIN/COMMIT on a dedicated client. Any error or
// panic from fn rolls the transaction back. The client is released on
// every path.
func (p *Pool) WithTx(ctx context.Context, fn func(tx Queryer) error) (err error) {
	client, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer client.Release()

	tx, err := client.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			p.log.WithError(rbErr).Warn("rollback failed")
		}
		return err
	}

	return tx.Commit()
}

func execResult(res sql.Result, err error) (int64, error) {
	if err != nil {
		return 0, mapError("exec", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, mapError("rows affected", err)
	}
	return n, nil
}

// mapError keeps sql.ErrNoRows as is, turns unique violations into
// ErrConflict and everything else into ErrDatabase.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if apperrors.Is(err, sql.ErrNoRows) {
		return sql.ErrNoRows
	}
	var pqErr *pq.Error
	if apperrors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return fmt.Errorf("%w: unique constraint %s", apperrors.ErrConflict, pqErr.Constraint)
	}
	return apperrors.Database(op, err)
}
