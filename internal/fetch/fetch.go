// SPDX-License-Identifier: MPL-2.0

// Package fetch downloads release archives with resumable transfers,
// bounded retries, and integrity verification.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"
)

const (
	// chunkSize is the copy buffer size for streaming transfers.
	chunkSize = 128 << 10

	// defaultChunkTimeout is how long a single chunk read may block
	// before the transfer is considered stalled.
	defaultChunkTimeout = 30 * time.Second

	// defaultMaxAttempts bounds transfer retries per download.
	defaultMaxAttempts = 3
)

// ErrFetch indicates a transport-level download failure (connection reset,
// timeout, non-success status). Retried with backoff up to a bound.
var ErrFetch = errors.New("download failed")

type (
	// Sink receives transfer progress. Implementations must be cheap:
	// the fetcher invokes the sink after every chunk. total is -1 when
	// the remote does not advertise a length.
	Sink func(transferred, total int64)

	// Integrity is the expected identity of a download. A non-empty
	// SHA256 takes precedence; otherwise a non-zero Size is checked;
	// a zero value skips verification entirely.
	Integrity struct {
		SHA256 string
		Size   int64
	}

	// Fetcher streams archives to disk. Partially downloaded files are
	// resumed with HTTP range requests where the remote allows it.
	Fetcher struct {
		httpClient   *http.Client
		userAgent    string
		chunkTimeout time.Duration
		maxAttempts  uint64
		logger       *log.Logger
	}

	// Option configures a Fetcher during construction.
	Option func(*Fetcher)
)

// NopSink discards progress updates.
func NopSink(int64, int64) {}

// WithHTTPClient sets a custom HTTP client, useful for tests or proxies.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.httpClient = c
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithChunkTimeout overrides the per-chunk stall timeout.
func WithChunkTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.chunkTimeout = d
	}
}

// WithMaxAttempts overrides the transfer retry bound.
func WithMaxAttempts(n uint64) Option {
	return func(f *Fetcher) {
		f.maxAttempts = n
	}
}

// WithLogger attaches a logger for transfer diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(f *Fetcher) {
		f.logger = l
	}
}

// New creates a Fetcher with production defaults.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		httpClient:   http.DefaultClient,
		userAgent:    "renutil/dev",
		chunkTimeout: defaultChunkTimeout,
		maxAttempts:  defaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = log.New(io.Discard)
	}
	if f.maxAttempts == 0 {
		f.maxAttempts = 1
	}
	return f
}

// Download streams url into dest, resuming a partial file when present,
// and verifies the result against want. Transport failures and integrity
// mismatches are retried with a short backoff up to the attempt bound;
// an integrity retry always restarts from a clean file. Cancellation via
// ctx is not retried.
func (f *Fetcher) Download(ctx context.Context, url, dest string, want Integrity, sink Sink) error {
	if sink == nil {
		sink = NopSink
	}

	attempt := func() error {
		if err := f.transfer(ctx, url, dest, sink); err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		if err := f.verify(dest, want); err != nil {
			// The artifact is poisoned; remove it so the retry starts
			// from offset zero instead of resuming corrupt bytes.
			_ = os.Remove(dest)
			return err
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), f.maxAttempts-1), ctx)

	return backoff.RetryNotify(attempt, policy, func(err error, wait time.Duration) {
		f.logger.Warn("download attempt failed, retrying", "url", url, "wait", wait, "error", err)
	})
}

// transfer performs a single streaming download attempt, appending to an
// existing partial file via a range request when possible.
func (f *Fetcher) transfer(ctx context.Context, url, dest string, sink Sink) error {
	var offset int64
	if info, err := os.Stat(dest); err == nil {
		offset = info.Size()
	}

	// The request context is cancelled by the stall watchdog below, so it
	// must be independent of (but derived from) the caller's context.
	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	flags := os.O_CREATE | os.O_WRONLY
	switch resp.StatusCode {
	case http.StatusPartialContent:
		flags |= os.O_APPEND
	case http.StatusOK:
		// Remote ignored the range request (or there was none); start over.
		flags |= os.O_TRUNC
		offset = 0
	case http.StatusRequestedRangeNotSatisfiable:
		// The partial file already covers the full length. Trust the
		// verification step to confirm.
		return nil
	default:
		return fmt.Errorf("%w: %s returned status %d", ErrFetch, url, resp.StatusCode)
	}

	total := totalSize(resp, offset)

	out, err := os.OpenFile(dest, flags, 0o644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", dest, err)
	}
	defer func() { _ = out.Close() }()

	// Stall watchdog: every chunk read re-arms the timer; if a single
	// read blocks past the chunk timeout, the request context is
	// cancelled and the copy loop unblocks with an error.
	watchdog := time.AfterFunc(f.chunkTimeout, cancel)
	defer watchdog.Stop()

	transferred := offset
	sink(transferred, total)

	buf := make([]byte, chunkSize)
	for {
		watchdog.Reset(f.chunkTimeout)
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := out.Write(buf[:n]); writeErr != nil {
				return fmt.Errorf("writing %s: %w", dest, writeErr)
			}
			transferred += int64(n)
			sink(transferred, total)
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("download cancelled: %w", ctx.Err())
			}
			return fmt.Errorf("%w: reading body: %w", ErrFetch, readErr)
		}
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", dest, err)
	}
	return nil
}

// verify checks the completed file against the expected integrity. The
// hash takes precedence over the size; a zero Integrity skips the check.
func (f *Fetcher) verify(dest string, want Integrity) error {
	switch {
	case want.SHA256 != "":
		return VerifyFile(dest, want.SHA256)
	case want.Size > 0:
		info, err := os.Stat(dest)
		if err != nil {
			return fmt.Errorf("stat %s: %w", dest, err)
		}
		if info.Size() != want.Size {
			return &IntegrityError{
				Path:     dest,
				Expected: fmt.Sprintf("%d bytes", want.Size),
				Got:      fmt.Sprintf("%d bytes", info.Size()),
			}
		}
		return nil
	default:
		return nil
	}
}

// RemoteSize issues a HEAD request and reports the advertised content
// length, or -1 when the remote does not advertise one.
func (f *Fetcher) RemoteSize(ctx context.Context, url string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, http.NoBody)
	if err != nil {
		return -1, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return -1, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return -1, fmt.Errorf("%w: %s returned status %d", ErrFetch, url, resp.StatusCode)
	}
	return resp.ContentLength, nil
}

// totalSize derives the full artifact length for progress reporting,
// preferring the Content-Range header on resumed transfers.
func totalSize(resp *http.Response, offset int64) int64 {
	if cr := resp.Header.Get("Content-Range"); cr != "" {
		// Format: "bytes start-end/total".
		if i := strings.LastIndexByte(cr, '/'); i >= 0 {
			if n, err := strconv.ParseInt(cr[i+1:], 10, 64); err == nil {
				return n
			}
		}
	}
	if resp.ContentLength >= 0 {
		return offset + resp.ContentLength
	}
	return -1
}
