// Package objectstore is the gateway to block and partition payload
// bytes (C5, §4.5): an interface over S3-compatible object storage and
// a local-filesystem implementation for tests and single-node
// deployments, both wrapped in the same tracing and retry policy.
package objectstore

import (
	"context"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/madesroches/micromegas-sub003/internal/model"
)

// Store reads and writes opaque payload bytes addressed by key.
// Implementations wrap backend-specific failures as
// model.ErrMissingPayload errors (see wrapTransient) so callers
// classify them the same way regardless of backend.
type Store interface {
	// Put writes data under key, overwriting any existing object.
	Put(ctx context.Context, key string, data []byte) error
	// Get reads the full object at key.
	Get(ctx context.Context, key string) ([]byte, error)
	// GetRange reads [offset, offset+length) of the object at key
	// without downloading the whole object. The query engine's
	// partition reader (C12) does not use it; it fetches whole files
	// with Get.
	GetRange(ctx context.Context, key string, offset, length int64) ([]byte, error)
	// Delete removes the object at key. Deleting a missing key is not
	// an error — callers use this to clean up after a lost insert
	// race (§4.6) where the object may or may not have landed.
	Delete(ctx context.Context, key string) error
}

var tracer = otel.Tracer("github.com/madesroches/micromegas-sub003/objectstore")

var metrics struct {
	retryCount metric.Int64Counter
	bytesRead  metric.Int64Counter
	bytesWrite metric.Int64Counter
}

func init() {
	m := otel.Meter("github.com/madesroches/micromegas-sub003/objectstore")
	metrics.retryCount, _ = m.Int64Counter("lakehouse.objectstore.retry_count",
		metric.WithDescription("object store operations retried due to transient errors"),
		metric.WithUnit("{retry}"))
	metrics.bytesRead, _ = m.Int64Counter("lakehouse.objectstore.bytes_read",
		metric.WithUnit("By"))
	metrics.bytesWrite, _ = m.Int64Counter("lakehouse.objectstore.bytes_written",
		metric.WithUnit("By"))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func spanAttrs(backend, op, key string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("objectstore.backend", backend),
		attribute.String("objectstore.op", op),
		attribute.String("objectstore.key", key),
	}
}

func wrapTransient(backend, op, key string, err error) error {
	if err == nil {
		return nil
	}
	return model.Wrap(model.ErrMissingPayload, "objectstore", op, err, "backend", backend, "key", key)
}

// readAllAndClose drains r fully and closes it, the common tail of
// both Store implementations' Get.
func readAllAndClose(r io.ReadCloser) ([]byte, error) {
	defer r.Close()
	return io.ReadAll(r)
}
