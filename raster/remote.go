package raster

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"gocloud.dev/blob"
)

// offsetReader layers sequential Read/Seek semantics over a stateless
// ReadAt implementation, so remote sources satisfy io.ReadSeeker for tag
// parsing and io.ReaderAt for concurrent tile fetches.
type offsetReader struct {
	size   int64
	readAt func(p []byte, off int64) (int, error)

	// mu protects offset for sequential Read/Seek; ReadAt bypasses it.
	mu     sync.Mutex
	offset int64
}

func (o *offsetReader) Read(p []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.offset >= o.size {
		return 0, io.EOF
	}
	n, err := o.clampedReadAt(p, o.offset)
	if n > 0 {
		o.offset += int64(n)
	}
	return n, err
}

func (o *offsetReader) Seek(offset int64, whence int) (int64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var newOffset int64
	switch whence {
	case io.SeekStart:
		newOffset = offset
	case io.SeekCurrent:
		newOffset = o.offset + offset
	case io.SeekEnd:
		newOffset = o.size + offset
	default:
		return 0, errors.New("invalid whence")
	}
	if newOffset < 0 {
		return 0, errors.New("cannot seek to negative offset")
	}
	o.offset = newOffset
	return o.offset, nil
}

// ReadAt implements io.ReaderAt for concurrent, stateless reads. It does
// not take the mutex and does not affect the sequential offset.
func (o *offsetReader) ReadAt(p []byte, off int64) (int, error) {
	return o.clampedReadAt(p, off)
}

func (o *offsetReader) clampedReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if off < 0 {
		return 0, fmt.Errorf("readAt: invalid offset %d", off)
	}
	if off >= o.size {
		return 0, io.EOF
	}
	length := int64(len(p))
	if off+length > o.size {
		length = o.size - off
	}
	return o.readAt(p[:length], off)
}

// HTTPRangeReader reads a remote raster over HTTP byte-range requests.
type HTTPRangeReader struct {
	offsetReader
	url    string
	client *http.Client
}

// NewHTTPRangeReader issues a HEAD request against the URL and returns a
// reader backed by range requests. The server must accept byte ranges.
func NewHTTPRangeReader(url string, client *http.Client) (*HTTPRangeReader, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequest(http.MethodHead, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create head request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http head request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad status for http head request: %s", resp.Status)
	}
	if resp.Header.Get("Accept-Ranges") != "bytes" {
		return nil, errors.New("server does not accept byte range requests")
	}
	size := resp.ContentLength
	if size <= 0 {
		return nil, errors.New("could not determine content length or file is empty")
	}

	h := &HTTPRangeReader{url: url, client: client}
	h.offsetReader.size = size
	h.offsetReader.readAt = h.rangeRequest
	return h, nil
}

func (h *HTTPRangeReader) rangeRequest(p []byte, off int64) (int, error) {
	req, err := http.NewRequest(http.MethodGet, h.url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", off, off+int64(len(p))-1))

	resp, err := h.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPartialContent {
		return 0, fmt.Errorf("expected status 206 Partial Content, got: %s", resp.Status)
	}
	return io.ReadFull(resp.Body, p)
}

// BlobReader reads a raster stored in a cloud bucket (S3, GCS, Azure,
// local file buckets) through gocloud.dev/blob range readers.
type BlobReader struct {
	offsetReader
	ctx    context.Context
	bucket *blob.Bucket
	key    string
}

// NewBlobReader stats the object to learn its size and returns a reader
// backed by bucket range reads.
func NewBlobReader(ctx context.Context, bucket *blob.Bucket, key string) (*BlobReader, error) {
	attrs, err := bucket.Attributes(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get attributes for key %s: %w", key, err)
	}

	b := &BlobReader{ctx: ctx, bucket: bucket, key: key}
	b.offsetReader.size = attrs.Size
	b.offsetReader.readAt = b.rangeRead
	return b, nil
}

func (b *BlobReader) rangeRead(p []byte, off int64) (int, error) {
	reader, err := b.bucket.NewRangeReader(b.ctx, b.key, off, int64(len(p)), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create range reader: %w", err)
	}
	defer reader.Close()
	return io.ReadFull(reader, p)
}
