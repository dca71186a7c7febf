// Package catalog is the relational metadata store (C4, §4.4): the
// processes, streams, blocks, and lakehouse_partitions tables that
// record what has been ingested and what partitions exist to answer
// queries over it. Storage is any MySQL-wire-compatible server,
// reached through database/sql and go-sql-driver/mysql.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-sql-driver/mysql"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/madesroches/micromegas-sub003/internal/model"
)

// Catalog is the entry point for every catalog read and write.
type Catalog struct {
	db *sql.DB
}

// Open connects to dsn (a go-sql-driver/mysql data source name),
// verifies connectivity, creates the schema if absent, and runs any
// pending migrations.
func Open(ctx context.Context, dsn string) (*Catalog, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("catalog: opening %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: connecting: %w", err)
	}
	c := &Catalog{db: db}
	if err := c.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: init schema: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: migrations: %w", err)
	}
	return c, nil
}

// Close releases the underlying connection pool.
func (c *Catalog) Close() error { return c.db.Close() }

var tracer = otel.Tracer("github.com/madesroches/micromegas-sub003/catalog")

var catalogMetrics struct {
	retryCount metric.Int64Counter
}

func init() {
	m := otel.Meter("github.com/madesroches/micromegas-sub003/catalog")
	catalogMetrics.retryCount, _ = m.Int64Counter("lakehouse.catalog.retry_count",
		metric.WithDescription("catalog operations retried due to transient errors"),
		metric.WithUnit("{retry}"))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func spanSQL(q string) string {
	if len(q) > 300 {
		return q[:300] + "…"
	}
	return q
}

// isDuplicateKey reports whether err is a MySQL duplicate-key
// violation (error 1062), the signal for ErrCatalogConflict on
// partition insert (§4.6: concurrent writers racing to register the
// same partition key, where the loser discards its own file).
func isDuplicateKey(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

// isTransientMySQLError reports whether err is worth retrying:
// connection drops and lock-wait timeouts, not constraint violations
// or syntax errors.
func isTransientMySQLError(err error) bool {
	if err == nil {
		return false
	}
	if isDuplicateKey(err) {
		return false
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case 1205, 1213, 2006, 2013: // lock wait timeout, deadlock, server gone, lost connection
			return true
		}
		return false
	}
	// Driver-level errors (connection refused, context deadline) with
	// no MySQLError wrapping are treated as transient.
	return true
}

func (c *Catalog) withRetry(ctx context.Context, op func() error) error {
	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		err := op()
		if err == nil {
			return nil
		}
		if isTransientMySQLError(err) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(backoff.NewExponentialBackOff(), ctx))
	if attempts > 1 {
		catalogMetrics.retryCount.Add(ctx, int64(attempts-1))
	}
	return err
}

func (c *Catalog) execContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx, span := tracer.Start(ctx, "catalog.exec", trace.WithAttributes(
		attribute.String("db.operation", "exec"),
		attribute.String("db.statement", spanSQL(query)),
	))
	var result sql.Result
	err := c.withRetry(ctx, func() error {
		var execErr error
		result, execErr = c.db.ExecContext(ctx, query, args...)
		return execErr
	})
	finalErr := wrapCatalogErr("exec", err)
	endSpan(span, finalErr)
	return result, finalErr
}

func (c *Catalog) queryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	ctx, span := tracer.Start(ctx, "catalog.query", trace.WithAttributes(
		attribute.String("db.operation", "query"),
		attribute.String("db.statement", spanSQL(query)),
	))
	var rows *sql.Rows
	err := c.withRetry(ctx, func() error {
		var queryErr error
		rows, queryErr = c.db.QueryContext(ctx, query, args...)
		return queryErr
	})
	finalErr := wrapCatalogErr("query", err)
	endSpan(span, finalErr)
	return rows, finalErr
}

func (c *Catalog) queryRowContext(ctx context.Context, scan func(*sql.Row) error, query string, args ...any) error {
	ctx, span := tracer.Start(ctx, "catalog.query_row", trace.WithAttributes(
		attribute.String("db.operation", "query_row"),
		attribute.String("db.statement", spanSQL(query)),
	))
	err := c.withRetry(ctx, func() error {
		return scan(c.db.QueryRowContext(ctx, query, args...))
	})
	finalErr := wrapCatalogErr("query_row", err)
	endSpan(span, finalErr)
	return finalErr
}

func wrapCatalogErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if isDuplicateKey(err) {
		return model.Wrap(model.ErrCatalogConflict, "catalog", op, err)
	}
	if isTransientMySQLError(err) {
		return model.Wrap(model.ErrCatalogTransient, "catalog", op, err)
	}
	return model.Wrap(model.ErrInternal, "catalog", op, err)
}
