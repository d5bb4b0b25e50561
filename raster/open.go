package raster

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"gocloud.dev/blob"
)

type noopCloser struct{}

func (noopCloser) Close() error { return nil }

type bucketCloser struct{ bucket *blob.Bucket }

func (c bucketCloser) Close() error { return c.bucket.Close() }

// OpenSource opens a raster from a source string and parses it. Local
// paths are read directly; http(s) URLs use byte-range requests; bucket
// URLs (s3://, gs://, azblob://, file://) go through gocloud.dev drivers,
// which must be registered by the importing binary. The returned closer
// releases the underlying resource and must be called on every path.
func OpenSource(ctx context.Context, source string, cacheSize int64, itemsToPrune uint32) (*Dataset, io.Closer, error) {
	reader, closer, err := openReader(ctx, source)
	if err != nil {
		return nil, nil, err
	}
	d, err := Open(reader, cacheSize, itemsToPrune)
	if err != nil {
		closer.Close()
		return nil, nil, fmt.Errorf("failed to parse raster %s: %w", source, err)
	}
	return d, closer, nil
}

func openReader(ctx context.Context, source string) (io.ReadSeeker, io.Closer, error) {
	switch {
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		r, err := NewHTTPRangeReader(source, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open HTTP raster source: %w", err)
		}
		return r, noopCloser{}, nil

	case isBucketURL(source):
		u, err := url.Parse(source)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid bucket URL %s: %w", source, err)
		}
		key := strings.TrimPrefix(u.Path, "/")
		bucketURL := *u
		bucketURL.Path = ""
		bucket, err := blob.OpenBucket(ctx, bucketURL.String())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open bucket for %s: %w", source, err)
		}
		r, err := NewBlobReader(ctx, bucket, key)
		if err != nil {
			bucket.Close()
			return nil, nil, err
		}
		return r, bucketCloser{bucket: bucket}, nil

	default:
		f, err := os.Open(source)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open local raster file: %w", err)
		}
		return f, f, nil
	}
}

func isBucketURL(source string) bool {
	for _, scheme := range []string{"s3://", "gs://", "azblob://", "file://"} {
		if strings.HasPrefix(source, scheme) {
			return true
		}
	}
	return false
}
