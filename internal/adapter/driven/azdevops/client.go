// Package azdevops implements the DevOpsReader port against the Azure
// DevOps REST APIs. One Client covers the five surfaces an organization
// exposes (core, graph, entitlements, release, analytics), each with the
// shared credential, retry, and status-code policy.
package azdevops

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gregjones/httpcache"

	"github.com/pvanburen/azpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.DevOpsReader = (*Client)(nil)

// continuationHeader is the response header carrying the next-page token
// on the core and graph surfaces. The entitlements surface returns the
// token in the response body instead.
const continuationHeader = "x-ms-continuationtoken"

const (
	apiVersionCore         = "7.1"
	apiVersionProjects     = "7.1-preview.4"
	apiVersionGraph        = "7.1-preview.1"
	apiVersionEntitlements = "7.1-preview.3"
)

// Client talks to the Azure DevOps REST surfaces for one organization.
// The transport stack mirrors production use: an in-memory httpcache
// transport for ETag-based conditional requests, with retries layered on
// top by send.
type Client struct {
	org         string
	session     *Session
	httpClient  *http.Client
	maxAttempts int
	retryDelay  time.Duration

	coreURL         string
	graphURL        string
	entitlementsURL string
	releaseURL      string
	analyticsURL    string
}

// Option configures a Client.
type Option func(*Client)

// WithMaxAttempts overrides the retry budget (default 5 attempts).
func WithMaxAttempts(n int) Option {
	return func(c *Client) { c.maxAttempts = n }
}

// WithRetryDelay overrides the initial backoff delay (default 1s).
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) { c.retryDelay = d }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a Client against the production Azure DevOps hosts
// for the given organization.
func NewClient(org string, session *Session, opts ...Option) *Client {
	c := &Client{
		org:         org,
		session:     session,
		httpClient:  &http.Client{Transport: httpcache.NewMemoryCacheTransport()},
		maxAttempts: 5,
		retryDelay:  time.Second,

		coreURL:         "https://dev.azure.com/" + org,
		graphURL:        "https://vssps.dev.azure.com/" + org,
		entitlementsURL: "https://vsaex.dev.azure.com/" + org,
		releaseURL:      "https://vsrm.dev.azure.com/" + org,
		analyticsURL:    "https://analytics.dev.azure.com/" + org + "/_odata/v3.0-preview",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClientWithBaseURL creates a Client with every surface rooted at the
// same base URL. This constructor is intended for testing, allowing a
// single httptest server to play all five surfaces.
func NewClientWithBaseURL(baseURL, org string, session *Session, opts ...Option) *Client {
	base := strings.TrimRight(baseURL, "/")
	c := NewClient(org, session, opts...)
	c.coreURL = base
	c.graphURL = base
	c.entitlementsURL = base
	c.releaseURL = base
	c.analyticsURL = base + "/_odata/v3.0-preview"
	return c
}

// valueList is the standard Azure DevOps collection envelope.
type valueList[T any] struct {
	Value []T `json:"value"`
}

// do resolves the credential fresh, performs the request with retries,
// and applies the 401 policy shared by every surface: invalidate the
// session-scoped credential and return an AuthError. All other terminal
// responses (2xx, 404, exhausted retries) are the caller's to interpret.
func (c *Client) do(ctx context.Context, url string) (*http.Response, error) {
	pat, err := c.session.Resolve()
	if err != nil {
		return nil, err
	}

	header := http.Header{"Authorization": []string{basicAuthValue(pat)}}
	resp, err := c.send(ctx, url, header)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		drainAndClose(resp)
		c.session.Invalidate()
		return nil, &driven.AuthError{}
	}

	return resp, nil
}

// getPage fetches one page of a collection, decodes a 2xx body into v,
// and returns the continuation token response header. A 404 maps to a
// NotFoundError carrying the organization name, the most common cause of
// a 404 at collection roots.
func (c *Client) getPage(ctx context.Context, url string, v any) (string, error) {
	resp, err := c.do(ctx, url)
	if err != nil {
		return "", err
	}
	defer drainAndClose(resp)

	if resp.StatusCode == http.StatusNotFound {
		return "", &driven.NotFoundError{Resource: url, Org: c.org}
	}
	if err := decodeBody(resp, url, v); err != nil {
		return "", err
	}
	return resp.Header.Get(continuationHeader), nil
}

// getCore fetches a core-surface resource and decodes it into v.
func (c *Client) getCore(ctx context.Context, endpoint string, v any) error {
	return c.getJSON(ctx, c.coreURL+"/"+endpoint, v, true)
}

// getEntitlements fetches an entitlements-surface resource. A 404 here is
// frequently benign (entitlements do not exist for every identity), so
// the NotFoundError carries no organization hint and callers are expected
// to match it with errors.As where absence is valid.
func (c *Client) getEntitlements(ctx context.Context, endpoint string, v any) error {
	return c.getJSON(ctx, c.entitlementsURL+"/"+endpoint, v, false)
}

// getRelease fetches a release-surface resource.
func (c *Client) getRelease(ctx context.Context, endpoint string, v any) error {
	return c.getJSON(ctx, c.releaseURL+"/"+endpoint, v, false)
}

func (c *Client) getJSON(ctx context.Context, url string, v any, orgHint bool) error {
	resp, err := c.do(ctx, url)
	if err != nil {
		return err
	}
	defer drainAndClose(resp)

	if resp.StatusCode == http.StatusNotFound {
		nf := &driven.NotFoundError{Resource: url}
		if orgHint {
			nf.Org = c.org
		}
		return nf
	}
	return decodeBody(resp, url, v)
}

// getGraph fetches a graph-surface resource and returns the raw response
// so callers can read the continuation-token header. The caller owns the
// body on a nil error.
func (c *Client) getGraph(ctx context.Context, endpoint string) (*http.Response, error) {
	url := c.graphURL + "/" + endpoint
	resp, err := c.do(ctx, url)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusNotFound {
		drainAndClose(resp)
		return nil, &driven.NotFoundError{Resource: url}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := remoteError(resp)
		drainAndClose(resp)
		return nil, err
	}
	return resp, nil
}

// getAnalytics runs an OData query against the analytics surface.
// Best-effort: organizations without the Analytics extension routinely
// fail here, so every failure except an auth failure degrades to
// (false, nil) with a warning. Returns true when v was populated.
func (c *Client) getAnalytics(ctx context.Context, query string, v any) (bool, error) {
	url := c.analyticsURL + "/" + query

	resp, err := c.do(ctx, url)
	if err != nil {
		if driven.IsAuthFailure(err) {
			return false, err
		}
		slog.Warn("analytics surface unavailable", "url", url, "error", err)
		return false, nil
	}
	defer drainAndClose(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Warn("analytics surface unavailable", "url", url, "status", resp.StatusCode)
		return false, nil
	}
	if err := decodeBody(resp, url, v); err != nil {
		slog.Warn("analytics response unreadable", "url", url, "error", err)
		return false, nil
	}
	return true, nil
}

// decodeBody decodes a 2xx response body into v, or builds a RemoteError
// from a non-2xx body.
func decodeBody(resp *http.Response, url string, v any) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return remoteError(resp)
	}
	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding response from %s: %w", url, err)
	}
	return nil
}

// remoteError captures the status and a bounded body snippet of a
// non-2xx terminal response.
func remoteError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return &driven.RemoteError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

func drainAndClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 8192))
	_ = resp.Body.Close()
}

// minTimeParam formats the cutoff for `days` days ago as the ISO-8601
// value the build and release list filters accept.
func minTimeParam(now time.Time, days int) string {
	return now.UTC().AddDate(0, 0, -days).Format(time.RFC3339)
}
