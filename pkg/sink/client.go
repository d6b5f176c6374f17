// Package sink implements the Sink Client (spec §4.2) against a Postgres
// database via pgx, grounded on the teacher's
// pkg/sink/postgres/postgres.go connection-pool conventions.
package sink

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/syncengine/pkg/obslog"
)

// Driver identifies this sink's dialect to pkg/sqlutil's identifier
// quoting and placeholder helpers.
const Driver = "pgx"

// Client is the Sink Client.
type Client struct {
	pool   *pgxpool.Pool
	logger obslog.Logger
}

// New builds a Client from a Postgres connection string.
func New(ctx context.Context, connString string, logger obslog.Logger) (*Client, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if logger == nil {
		logger = obslog.Nop{}
	}
	return &Client{pool: pool, logger: logger}, nil
}

// Close releases the underlying connection pool.
func (c *Client) Close() { c.pool.Close() }
