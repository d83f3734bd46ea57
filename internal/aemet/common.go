package aemet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"golang.org/x/text/encoding/charmap"

	"github.com/i474232898/aemet-solar/internal/common"
	"github.com/i474232898/aemet-solar/internal/metrics"
)

var (
	errRateLimited = errors.New("rate limited")
	errServerError = errors.New("server error")
	errUnexpected  = errors.New("unexpected status code")
)

// metadata is the first-stage response envelope.
type metadata struct {
	Description string `json:"descripcion"`
	Status      int    `json:"estado"`
	Data        string `json:"datos"`
	Metadata    string `json:"metadatos"`
}

// fetch runs both stages for the endpoint at path and returns the payload
// as UTF-8.
func (c *Client) fetch(ctx context.Context, endpoint, path string) ([]byte, error) {
	start := time.Now()
	defer func() {
		metrics.FetchLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	pointer, err := c.resolvePointer(ctx, endpoint, path)
	if err != nil {
		return nil, err
	}
	return c.download(ctx, pointer)
}

// resolvePointer executes the metadata call with bounded fixed-delay
// retries behind the circuit breaker and returns the "datos" URL.
func (c *Client) resolvePointer(ctx context.Context, endpoint, path string) (string, error) {
	if c.http == nil {
		return "", errNoHTTPClient
	}
	if c.apiKey == "" {
		return "", errNoAPIKey
	}

	maxAttempts := c.retry.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var (
		attempts  int
		pointer   string
		permanent error
	)

	operation := func() error {
		attempts++

		result, err := c.cb.Execute(func() (interface{}, error) {
			return c.requestMetadata(ctx, path)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				metrics.FetchAttempts.WithLabelValues(endpoint, "circuit_open").Inc()
				permanent = fmt.Errorf("%w: %v", ErrCircuitOpen, err)
				return backoff.Permanent(permanent)
			}
			if ctx.Err() != nil {
				permanent = ctx.Err()
				return backoff.Permanent(permanent)
			}
			metrics.FetchAttempts.WithLabelValues(endpoint, "error").Inc()
			return err
		}

		meta, ok := result.(*metadata)
		if !ok {
			permanent = fmt.Errorf("unexpected result type from circuit breaker")
			return backoff.Permanent(permanent)
		}
		if meta.Data == "" {
			metrics.FetchAttempts.WithLabelValues(endpoint, "no_pointer").Inc()
			err := fmt.Errorf("%w (estado %d: %s)", ErrMissingPointer, meta.Status, meta.Description)
			if !c.retry.RetryMissingPointer {
				permanent = err
				return backoff.Permanent(err)
			}
			return err
		}

		metrics.FetchAttempts.WithLabelValues(endpoint, "success").Inc()
		pointer = meta.Data
		return nil
	}

	var b backoff.BackOff = backoff.NewConstantBackOff(c.retry.Delay)
	b = backoff.WithMaxRetries(b, uint64(maxAttempts-1))
	b = backoff.WithContext(b, ctx)

	notify := func(err error, wait time.Duration) {
		c.log.WithField("endpoint", endpoint).Warnf("attempt %d/%d failed: %v; retrying in %s", attempts, maxAttempts, err, wait)
	}

	if err := backoff.RetryNotify(operation, b, notify); err != nil {
		if permanent != nil {
			return "", permanent
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempts, err)
	}
	return pointer, nil
}

// requestMetadata performs one metadata call. A non-2xx status or a
// transport error counts as a breaker failure.
func (c *Client) requestMetadata(ctx context.Context, path string) (*metadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("api_key", c.apiKey)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("cache-control", "no-cache")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	// Handle rate limiting and server errors explicitly.
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errRateLimited
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: %d", errServerError, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %d", errUnexpected, resp.StatusCode)
	}

	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	var meta metadata
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return &meta, nil
}

// download performs the payload call. It is never retried.
func (c *Client) download(ctx context.Context, pointer string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pointer, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayload, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayload, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", ErrPayload, resp.StatusCode)
	}

	body, err := readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayload, err)
	}
	return body, nil
}

// readBody returns the response body as UTF-8. AEMET serves most payloads
// as ISO-8859-15.
func readBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if common.HasAny(contentType, "iso-8859", "latin") || !utf8.Valid(body) {
		decoded, err := charmap.ISO8859_15.NewDecoder().Bytes(body)
		if err != nil {
			return nil, fmt.Errorf("decode charset: %w", err)
		}
		return decoded, nil
	}
	return body, nil
}
