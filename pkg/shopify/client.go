package shopify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopdesk/shopdesk-backend/pkg/config"
	pkgerrors "github.com/shopdesk/shopdesk-backend/pkg/errors"
	"github.com/shopdesk/shopdesk-backend/pkg/logger"
)

var (
	errShopDomainRequired  = errors.New("shopify shop domain is required")
	errAccessTokenRequired = errors.New("shopify access token is required")
	errLoggerRequired      = errors.New("shopify logger is required")
)

// attemptKind classifies one HTTP attempt against a specific API version.
// Version fallback is driven by this explicit outcome, not by sentinel
// errors.
type attemptKind int

const (
	attemptOK attemptKind = iota
	// attemptVersionMismatch means the version path 404ed; the caller moves
	// to the next version in the fallback list.
	attemptVersionMismatch
	// attemptTransient covers 429/5xx/timeouts; retryable on the same
	// version.
	attemptTransient
	// attemptFatal aborts the call (and, for auth failures, the whole run).
	attemptFatal
)

type attemptResult struct {
	kind   attemptKind
	status int
	body   []byte
	header http.Header
	err    error
}

// Client talks to the Shopify Admin REST API with centralized auth, version
// fallback, throttling, and error mapping.
type Client struct {
	httpClient  *http.Client
	shopDomain  string
	accessToken string
	versions    []string
	cdnHost     string
	throttle    time.Duration
	retries     int
	retryDelay  time.Duration
	logger      *logger.Logger
}

// NewClient initializes the Shopify wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.ShopifyConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	domain := strings.TrimSpace(cfg.ShopDomain)
	if domain == "" {
		return nil, errShopDomainRequired
	}
	token := strings.TrimSpace(cfg.AccessToken)
	if token == "" {
		return nil, errAccessTokenRequired
	}
	versions := cfg.APIVersions
	if len(versions) == 0 {
		versions = []string{"2024-10"}
	}
	retries := cfg.RetryAttempts
	if retries < 1 {
		retries = 1
	}

	c := &Client{
		httpClient:  &http.Client{Timeout: cfg.RequestTimeout},
		shopDomain:  domain,
		accessToken: token,
		versions:    versions,
		cdnHost:     strings.TrimRight(cfg.CDNHost, "/"),
		throttle:    cfg.ThrottleDelay,
		retries:     retries,
		retryDelay:  cfg.RetryDelay,
		logger:      logg,
	}

	logg.Info(ctx, "shopify client initialized")
	return c, nil
}

// CDNHost returns the catalog CDN base used to absolutize image paths.
func (c *Client) CDNHost() string {
	if c == nil {
		return ""
	}
	return c.cdnHost
}

// Throttle sleeps the configured inter-request delay, honoring cancellation.
func (c *Client) Throttle(ctx context.Context) error {
	if c == nil || c.throttle <= 0 {
		return nil
	}
	timer := time.NewTimer(c.throttle)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// get performs a GET against the given admin path, walking the version
// fallback list on version mismatches and retrying transient failures.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, http.Header, error) {
	var lastErr error
	for _, version := range c.versions {
		result := c.attemptWithRetry(ctx, version, path, query)
		switch result.kind {
		case attemptOK:
			return result.body, result.header, nil
		case attemptVersionMismatch:
			fields := map[string]any{"path": path, "version": version}
			c.logger.Warn(c.logger.WithFields(ctx, fields), "shopify api version not found, falling back")
			lastErr = result.err
			continue
		default:
			return nil, nil, result.err
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no shopify api version available for %s", path)
	}
	return nil, nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, lastErr, "all shopify api versions exhausted")
}

func (c *Client) attemptWithRetry(ctx context.Context, version, path string, query url.Values) attemptResult {
	var result attemptResult
	for attempt := 0; attempt < c.retries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(c.retryDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return attemptResult{kind: attemptFatal, err: ctx.Err()}
			case <-timer.C:
			}
		}
		result = c.attempt(ctx, version, path, query)
		if result.kind != attemptTransient {
			return result
		}
		fields := map[string]any{"path": path, "attempt": attempt + 1, "status": result.status}
		c.logger.Warn(c.logger.WithFields(ctx, fields), "shopify request transient failure, retrying")
	}
	result.err = pkgerrors.Wrap(pkgerrors.CodeUpstream, result.err, "shopify retries exhausted")
	result.kind = attemptFatal
	return result
}

func (c *Client) attempt(ctx context.Context, version, path string, query url.Values) attemptResult {
	endpoint := fmt.Sprintf("https://%s/admin/api/%s/%s", c.shopDomain, version, strings.TrimLeft(path, "/"))
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return attemptResult{kind: attemptFatal, err: pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build shopify request")}
	}
	req.Header.Set("X-Shopify-Access-Token", c.accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return attemptResult{kind: attemptFatal, err: ctx.Err()}
		}
		// Network errors and client timeouts are retryable.
		return attemptResult{kind: attemptTransient, err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return attemptResult{kind: attemptTransient, status: resp.StatusCode, err: err}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return attemptResult{kind: attemptOK, status: resp.StatusCode, body: body, header: resp.Header}
	case resp.StatusCode == http.StatusNotFound && strings.Contains(string(body), "version"):
		return attemptResult{
			kind:   attemptVersionMismatch,
			status: resp.StatusCode,
			err:    fmt.Errorf("api version %s not found", version),
		}
	case resp.StatusCode == http.StatusNotFound:
		return attemptResult{
			kind:   attemptFatal,
			status: resp.StatusCode,
			err:    pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("shopify resource %s not found", path)),
		}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return attemptResult{
			kind:   attemptFatal,
			status: resp.StatusCode,
			err:    c.authError(resp.StatusCode),
		}
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return attemptResult{
			kind:   attemptTransient,
			status: resp.StatusCode,
			err:    fmt.Errorf("shopify responded %d for %s", resp.StatusCode, path),
		}
	default:
		return attemptResult{
			kind:   attemptFatal,
			status: resp.StatusCode,
			err: pkgerrors.New(pkgerrors.CodeUpstream, fmt.Sprintf("shopify responded %d for %s", resp.StatusCode, path)).
				WithDetails(map[string]any{"body": truncate(string(body), 500)}),
		}
	}
}

func (c *Client) authError(status int) error {
	hint := "check SHOPDESK_SHOPIFY_ACCESS_TOKEN"
	if !strings.HasPrefix(c.accessToken, "shpat_") && !strings.HasPrefix(c.accessToken, "shpca_") {
		hint = fmt.Sprintf("token does not carry a shpat_/shpca_ prefix (length %d); an API key is not an admin token", len(c.accessToken))
	}
	return pkgerrors.New(pkgerrors.CodeUnauthorized, fmt.Sprintf("shopify rejected credentials (%d): %s", status, hint))
}

// IsAuthError reports whether the error is the fatal credential rejection
// that must abort an entire sync run.
func IsAuthError(err error) bool {
	typed := pkgerrors.As(err)
	if typed == nil {
		return false
	}
	code := typed.Code()
	return code == pkgerrors.CodeUnauthorized || code == pkgerrors.CodeForbidden
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
