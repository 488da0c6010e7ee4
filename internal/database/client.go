package database

import (
	"context"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/higher-endeavors/endeavors/internal/app/metrics"
	apperrors "github.com/higher-endeavors/endeavors/internal/errors"
)

// Client is a dedicated connection checked out of the pool. Callers must
// call Release on every exit path; Release is idempotent.
type Client struct {
	conn       *sqlx.Conn
	pool       *Pool
	acquiredAt time.Time
	watchdog   *time.Timer

	mu        sync.Mutex
	lastQuery string
	released  bool
}

var _ Queryer = (*Client)(nil)

// Acquire checks a dedicated client out of the pool. A watchdog logs a
// warning if the client is still held after the checkout threshold; it
// never forces a release.
func (p *Pool) Acquire(ctx context.Context) (*Client, error) {
	conn, err := p.db.Connx(ctx)
	if err != nil {
		return nil, mapError("acquire", err)
	}

	c := &Client{conn: conn, pool: p, acquiredAt: time.Now()}
	c.watchdog = time.AfterFunc(p.checkoutWarn, c.warnLongCheckout)
	return c, nil
}

func (c *Client) warnLongCheckout() {
	c.mu.Lock()
	released, last := c.released, c.lastQuery
	c.mu.Unlock()
	if released {
		return
	}

	metrics.RecordLongCheckout()
	c.pool.log.WithField("held_for", time.Since(c.acquiredAt).String()).
		WithField("last_query", last).
		Warn("database client has been checked out for more than the threshold")
}

func (c *Client) record(query string) {
	c.mu.Lock()
	c.lastQuery = query
	c.mu.Unlock()
}

// LastQuery returns the most recent statement run on the client.
func (c *Client) LastQuery() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastQuery
}

func (c *Client) Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	c.record(query)
	return mapError("select", c.conn.SelectContext(ctx, dest, query, args...))
}

func (c *Client) Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	c.record(query)
	return mapError("get", c.conn.GetContext(ctx, dest, query, args...))
}

func (c *Client) Exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	c.record(query)
	return execResult(c.conn.ExecContext(ctx, query, args...))
}

// Begin starts a transaction on the client's connection.
func (c *Client) Begin(ctx context.Context) (*Tx, error) {
	c.record("BEGIN")
	tx, err := c.conn.BeginTxx(ctx, nil)
	if err != nil {
		return nil, mapError("begin", err)
	}
	return &Tx{tx: tx, client: c}, nil
}

// Release returns the connection to the pool.
func (c *Client) Release() {
	c.mu.Lock()
	if c.released {
		c.mu.Unlock()
		return
	}
	c.released = true
	c.mu.Unlock()

	c.watchdog.Stop()
	metrics.ObserveCheckout(time.Since(c.acquiredAt))
	if err := c.conn.Close(); err != nil {
		c.pool.log.WithError(err).Warn("release database client")
	}
}

// Tx is an open transaction on a checked-out client.
type Tx struct {
	tx     *sqlx.Tx
	client *Client
}

var _ Queryer = (*Tx)(nil)

func (t *Tx) Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	t.client.record(query)
	return mapError("select", t.tx.SelectContext(ctx, dest, query, args...))
}

func (t *Tx) Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	t.client.record(query)
	return mapError("get", t.tx.GetContext(ctx, dest, query, args...))
}

func (t *Tx) Exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	t.client.record(query)
	return execResult(t.tx.ExecContext(ctx, query, args...))
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	t.client.record("COMMIT")
	if err := t.tx.Commit(); err != nil {
		return apperrors.Database("commit", err)
	}
	return nil
}

// Rollback aborts the transaction.
func (t *Tx) Rollback() error {
	t.client.record("ROLLBACK")
	return t.tx.Rollback()
}
