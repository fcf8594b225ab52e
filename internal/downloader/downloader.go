// Package downloader fetches DASH manifests and media segments over HTTP,
// retrying transient failures with bounded exponential backoff.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
)

// NotFoundError means the server returned 404. Sessions treat this
// specially for live segment polling (a segment can 404 briefly before
// it becomes available).
type NotFoundError struct {
	URL string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("not found: %s", e.URL) }

// ClientError means the server returned a non-404 4xx status. Retrying
// will not help.
type ClientError struct {
	URL    string
	Status int
}

func (e *ClientError) Error() string { return fmt.Sprintf("client error %d: %s", e.Status, e.URL) }

// NetworkError means the request failed even after retries were
// exhausted, whether from transport errors or repeated 5xx responses.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("network error fetching %s: %v", e.URL, e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// Config controls retry and timeout behavior.
type Config struct {
	Attempts    uint
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	RequestTimeout time.Duration
}

// DefaultConfig returns the retry/timeout defaults used when a session
// does not override them.
func DefaultConfig() Config {
	return Config{
		Attempts:       4,
		BaseDelay:      250 * time.Millisecond,
		MaxDelay:       4 * time.Second,
		RequestTimeout: 15 * time.Second,
	}
}

// Downloader fetches resources over HTTP with retry/backoff.
type Downloader struct {
	client  *http.Client
	cfg     Config
	headers map[string]string
}

// New builds a Downloader. headers are attached to every request (e.g.
// caller-supplied auth headers for the origin).
func New(cfg Config, headers map[string]string) *Downloader {
	transport := &http.Transport{
		MaxIdleConns:        64,
		MaxIdleConnsPerHost: 16,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Downloader{
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return errors.New("stopped after 5 redirects")
				}
				return nil
			},
		},
		cfg:     cfg,
		headers: headers,
	}
}

// Fetch retrieves the resource at url, retrying transient failures.
func (d *Downloader) Fetch(ctx context.Context, url string) ([]byte, error) {
	var body []byte

	err := retry.Do(
		func() error {
			b, err := d.doOnce(ctx, url)
			if err != nil {
				return err
			}
			body = b
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(d.cfg.Attempts),
		retry.Delay(d.cfg.BaseDelay),
		retry.MaxDelay(d.cfg.MaxDelay),
		retry.DelayType(jitteredBackoff),
		retry.RetryIf(isRetryable),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		var nf *NotFoundError
		var ce *ClientError
		if errors.As(err, &nf) || errors.As(err, &ce) {
			return nil, err
		}
		return nil, &NetworkError{URL: url, Err: err}
	}
	return body, nil
}

func (d *Downloader) doOnce(ctx context.Context, url string) ([]byte, error) {
	reqCtx := ctx
	var cancel context.CancelFunc
	if d.cfg.RequestTimeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, d.cfg.RequestTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, retry.Unrecoverable(err)
	}
	for k, v := range d.headers {
		req.Header.Set(k, v)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, retry.Unrecoverable(&NotFoundError{URL: url})
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return nil, retry.Unrecoverable(&ClientError{URL: url, Status: resp.StatusCode})
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("server error %d fetching %s", resp.StatusCode, url)
	}

	return io.ReadAll(resp.Body)
}

// jitteredBackoff wraps retry-go's exponential backoff with +/-20%
// jitter, so concurrent sessions retrying the same origin don't all
// wake up on the same tick.
func jitteredBackoff(n uint, err error, config *retry.Config) time.Duration {
	base := retry.BackOffDelay(n, err, config)
	factor := 0.8 + rand.Float64()*0.4
	return time.Duration(float64(base) * factor)
}

func isRetryable(err error) bool {
	var nf *NotFoundError
	var ce *ClientError
	if errors.As(err, &nf) || errors.As(err, &ce) {
		return false
	}
	return true
}
