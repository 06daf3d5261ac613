package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/watzon/autoimport/internal/config"
	"github.com/watzon/autoimport/internal/logging"
	"github.com/watzon/autoimport/internal/models"
)

// QueryHandler executes SQL statements.
type QueryHandler struct {
	pool    *Pool
	dsn     string
	timeout time.Duration
}

// NewQueryHandler creates a query handler backed by pool.
func NewQueryHandler(pool *Pool, cfg config.QueryHandlerConfig) *QueryHandler {
	return &QueryHandler{
		pool:    pool,
		dsn:     cfg.DSN,
		timeout: cfg.Timeout,
	}
}

// Execute runs the action's statement.
func (h *QueryHandler) Execute(ctx context.Context, action *models.Action) error {
	q := action.Query
	if q == nil || q.Query == "" {
		return errors.New("query action has no statement")
	}

	dsn := q.Connection
	if dsn == "" {
		dsn = h.dsn
	}
	db, err := h.pool.Get(dsn)
	if err != nil {
		return err
	}

	timeout := q.Timeout
	if timeout == 0 {
		timeout = h.timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	logging.Debug(logging.RunBody, action.LogSettings).
		Int("order", action.Order).
		Str("query", q.Query).
		Msg("Executing query")

	res, err := db.ExecContext(ctx, q.Query)
	if err != nil {
		return fmt.Errorf("executing query: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil {
		logging.Info(logging.RunBody, action.LogSettings).
			Int("order", action.Order).
			Int64("rows_affected", n).
			Msg("Query executed")
	}
	return nil
}
