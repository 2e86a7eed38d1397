package azdevops

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"

	"github.com/cenkalti/backoff/v4"

	"github.com/pvanburen/azpanel/internal/domain/port/driven"
)

// send executes a single GET with bounded retries and pure exponential
// backoff (initial delay doubled after every attempt, no jitter). A 2xx,
// 401, or 404 response is terminal and returned to the caller, which owns
// the status handling. Any other status, and any transport error, is
// retried until maxAttempts is exhausted, except name-resolution failures:
// those almost always mean a misconfigured organization or host, so they
// fail fast with a hint instead of burning the retry budget.
func (c *Client) send(ctx context.Context, url string, header http.Header) (*http.Response, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryDelay
	bo.RandomizationFactor = 0
	bo.Multiplier = 2
	bo.MaxElapsedTime = 0

	var resp *http.Response
	attempts := 0

	operation := func() error {
		attempts++

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		for k, vs := range header {
			req.Header[k] = vs
		}

		r, err := c.httpClient.Do(req)
		if err != nil {
			if isHostResolutionError(err) {
				return backoff.Permanent(&driven.NetworkError{
					URL:      url,
					Attempts: attempts,
					Hint:     "host could not be resolved; check the configured organization name and network connectivity",
					Err:      err,
				})
			}
			slog.Warn("request attempt failed", "url", url, "attempt", attempts, "error", err)
			return err
		}

		if (r.StatusCode >= 200 && r.StatusCode < 300) ||
			r.StatusCode == http.StatusUnauthorized ||
			r.StatusCode == http.StatusNotFound {
			resp = r
			return nil
		}

		// Drain so the transport can reuse the connection before retrying.
		_, _ = io.Copy(io.Discard, io.LimitReader(r.Body, 8192))
		_ = r.Body.Close()

		slog.Warn("request attempt failed", "url", url, "attempt", attempts, "status", r.StatusCode)
		return fmt.Errorf("status %d", r.StatusCode)
	}

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.maxAttempts-1)), ctx))
	if err != nil {
		var netErr *driven.NetworkError
		if errors.As(err, &netErr) {
			return nil, netErr
		}
		return nil, &driven.NetworkError{URL: url, Attempts: attempts, Err: err}
	}

	return resp, nil
}

// isHostResolutionError reports whether err is a DNS-class failure.
func isHostResolutionError(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}
