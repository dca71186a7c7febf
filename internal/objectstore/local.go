package objectstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel/trace"
)

// LocalStore stores objects as files under a root directory. Used for
// single-node deployments and tests; keys map to paths verbatim, with
// any directory components created on write.
type LocalStore struct {
	root string
}

// NewLocalStore returns a Store rooted at dir, creating it if absent.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("objectstore: creating root %s: %w", dir, err)
	}
	return &LocalStore{root: dir}, nil
}

func (s *LocalStore) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

func (s *LocalStore) Put(ctx context.Context, key string, data []byte) error {
	_, span := tracer.Start(ctx, "objectstore.local.put", trace.WithAttributes(spanAttrs("local", "put", key)...))
	p := s.path(key)
	err := os.MkdirAll(filepath.Dir(p), 0o755)
	if err == nil {
		err = os.WriteFile(p, data, 0o644)
	}
	if err == nil {
		metrics.bytesWrite.Add(ctx, int64(len(data)))
	}
	finalErr := wrapTransient("local", "put", key, err)
	endSpan(span, finalErr)
	return finalErr
}

func (s *LocalStore) Get(ctx context.Context, key string) ([]byte, error) {
	_, span := tracer.Start(ctx, "objectstore.local.get", trace.WithAttributes(spanAttrs("local", "get", key)...))
	data, err := os.ReadFile(s.path(key))
	if err == nil {
		metrics.bytesRead.Add(ctx, int64(len(data)))
	}
	finalErr := wrapTransient("local", "get", key, err)
	endSpan(span, finalErr)
	return data, finalErr
}

func (s *LocalStore) GetRange(ctx context.Context, key string, offset, length int64) ([]byte, error) {
	_, span := tracer.Start(ctx, "objectstore.local.get_range", trace.WithAttributes(spanAttrs("local", "get_range", key)...))
	f, err := os.Open(s.path(key))
	if err != nil {
		finalErr := wrapTransient("local", "get_range", key, err)
		endSpan(span, finalErr)
		return nil, finalErr
	}
	defer f.Close()
	buf := make([]byte, length)
	n, err := f.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		finalErr := wrapTransient("local", "get_range", key, err)
		endSpan(span, finalErr)
		return nil, finalErr
	}
	metrics.bytesRead.Add(ctx, int64(n))
	endSpan(span, nil)
	return buf[:n], nil
}

func (s *LocalStore) Delete(ctx context.Context, key string) error {
	_, span := tracer.Start(ctx, "objectstore.local.delete", trace.WithAttributes(spanAttrs("local", "delete", key)...))
	err := os.Remove(s.path(key))
	if err != nil && os.IsNotExist(err) {
		err = nil
	}
	finalErr := wrapTransient("local", "delete", key, err)
	endSpan(span, finalErr)
	return finalErr
}

var _ Store = (*LocalStore)(nil)
