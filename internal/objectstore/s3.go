package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/trace"
)

// S3Store stores objects in an S3-compatible bucket. Key is used
// directly as the object key, so callers are responsible for the
// partitioning scheme (the view processors build partition keys as
// partitions/<view-set>/<instance id>/<file name>).
type S3Store struct {
	client *s3.Client
	bucket string
}

// NewS3Store builds an S3Store from the ambient AWS config (env vars,
// shared config file, or instance role), pointed at endpoint when set
// so MinIO and other S3-compatible backends work in tests and
// single-node deployments.
func NewS3Store(ctx context.Context, bucket, endpoint string) (*S3Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("objectstore: loading aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Store{client: client, bucket: bucket}, nil
}

func newRetryBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 10 * time.Second
	return b
}

func (s *S3Store) withRetry(ctx context.Context, op func() error) error {
	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		err := op()
		if err == nil {
			return nil
		}
		if isRetryableAWSError(err) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(newRetryBackoff(), ctx))
	if attempts > 1 {
		metrics.retryCount.Add(ctx, int64(attempts-1))
	}
	return err
}

// isRetryableAWSError treats anything that isn't a definitive
// not-found as transient. S3 SDK error types are deeply nested and
// version-sensitive, so this matches on the class of error the SDK
// actually surfaces consistently rather than a specific type.
func isRetryableAWSError(err error) bool {
	var nf interface{ ErrorCode() string }
	if ok := errors.As(err, &nf); ok {
		switch nf.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return false
		}
	}
	return true
}

func (s *S3Store) Put(ctx context.Context, key string, data []byte) error {
	ctx, span := tracer.Start(ctx, "objectstore.s3.put", trace.WithAttributes(spanAttrs("s3", "put", key)...))
	err := s.withRetry(ctx, func() error {
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
			Body:   bytes.NewReader(data),
		})
		return err
	})
	if err == nil {
		metrics.bytesWrite.Add(ctx, int64(len(data)))
	}
	finalErr := wrapTransient("s3", "put", key, err)
	endSpan(span, finalErr)
	return finalErr
}

func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "objectstore.s3.get", trace.WithAttributes(spanAttrs("s3", "get", key)...))
	var data []byte
	err := s.withRetry(ctx, func() error {
		out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
		if err != nil {
			return err
		}
		data, err = readAllAndClose(out.Body)
		return err
	})
	if err == nil {
		metrics.bytesRead.Add(ctx, int64(len(data)))
	}
	finalErr := wrapTransient("s3", "get", key, err)
	endSpan(span, finalErr)
	return data, finalErr
}

func (s *S3Store) GetRange(ctx context.Context, key string, offset, length int64) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "objectstore.s3.get_range", trace.WithAttributes(spanAttrs("s3", "get_range", key)...))
	rangeHeader := fmt.Sprintf("bytes=%d-%d", offset, offset+length-1)
	var data []byte
	err := s.withRetry(ctx, func() error {
		out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
			Range:  aws.String(rangeHeader),
		})
		if err != nil {
			return err
		}
		data, err = readAllAndClose(out.Body)
		return err
	})
	if err == nil {
		metrics.bytesRead.Add(ctx, int64(len(data)))
	}
	finalErr := wrapTransient("s3", "get_range", key, err)
	endSpan(span, finalErr)
	return data, finalErr
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	ctx, span := tracer.Start(ctx, "objectstore.s3.delete", trace.WithAttributes(spanAttrs("s3", "delete", key)...))
	err := s.withRetry(ctx, func() error {
		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
		return err
	})
	finalErr := wrapTransient("s3", "delete", key, err)
	endSpan(span, finalErr)
	return finalErr
}

var _ Store = (*S3Store)(nil)
