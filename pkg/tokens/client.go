package tokens

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"xhsclient/pkg/config"
	errs "xhsclient/pkg/errors"
	"xhsclient/pkg/logger"
	"xhsclient/pkg/ratelimit"
	"xhsclient/pkg/retry"
)

const (
	xsPath       = "/api/v1/tokens/xs"
	xsCommonPath = "/api/v1/tokens/xs-common"
	healthPath   = "/health"
	statsPath    = "/api/v1/stats"

	healthTimeout = 2 * time.Second

	// demoServerHost serves a self-signed certificate
	demoServerHost = "31.97.132.244"
)

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	HTTPClient *http.Client
	// Limiter throttles token generation calls; health and stats are not counted
	Limiter ratelimit.Limiter
	Retry   *retry.Config
	Logger  logger.Logger
	// Now is the clock used for cache expiry
	Now func() time.Time
}

// Client talks to the remote token service
type Client struct {
	baseURL       string
	apiKey        string
	timeout       time.Duration
	cacheXSCommon bool

	httpClient *http.Client
	limiter    ratelimit.Limiter
	retry      *retry.Config
	logger     logger.Logger
	now        func() time.Time

	mu    sync.Mutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	token     string
	expiresAt int64 // unix ms
}

// New creates a token service client
func New(cfg config.TokenServerConfig, opts Options) *Client {
	c := &Client{
		baseURL:       strings.TrimRight(cfg.URL, "/"),
		apiKey:        cfg.APIKey,
		timeout:       cfg.Timeout,
		cacheXSCommon: cfg.CacheXSCommon,
		httpClient:    opts.HTTPClient,
		limiter:       opts.Limiter,
		retry:         opts.Retry,
		logger:        opts.Logger,
		now:           opts.Now,
		cache:         make(map[string]cacheEntry),
	}

	if c.timeout <= 0 {
		c.timeout = 5 * time.Second
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Transport: newTransport(cfg)}
	}
	if c.limiter == nil {
		c.limiter = ratelimit.Unlimited{}
	}
	if c.retry == nil {
		c.retry = &retry.Config{MaxAttempts: 1}
	}
	if c.logger == nil {
		c.logger = logger.GetLogger()
	}
	if c.now == nil {
		c.now = time.Now
	}
	c.logger = c.logger.WithField("component", "tokens")
	return c
}

func newTransport(cfg config.TokenServerConfig) http.RoundTripper {
	t := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipVerify || strings.Contains(cfg.URL, demoServerHost) {
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return t
}

// GetXS requests an x-s signature for one platform call. a1 and timestampMs
// are omitted from the request when empty or zero.
func (c *Client) GetXS(ctx context.Context, endpoint string, payload interface{}, a1 string, timestampMs int64) (*XSToken, error) {
	req := xsRequest{
		Endpoint:    endpoint,
		Payload:     payload,
		A1:          a1,
		TimestampMs: timestampMs,
	}

	var resp XSToken
	if err := c.generate(ctx, xsPath, req, &resp); err != nil {
		return nil, fmt.Errorf("failed to get x-s token: %w", err)
	}
	if resp.XS == "" {
		return nil, errs.New(errs.ErrorTypeToken, 0, "token service returned an empty x-s")
	}
	return &resp, nil
}

// GetXSCommon returns an x-s-common value, served from the local cache while
// its expires_at lies in the future.
func (c *Client) GetXSCommon(ctx context.Context, a1 string, fingerprint map[string]interface{}) (string, error) {
	key, err := CacheKey(a1, fingerprint)
	if err != nil {
		return "", err
	}

	if c.cacheXSCommon {
		if token, ok := c.cached(key); ok {
			c.logger.DebugWithFields("x-s-common cache hit", map[string]interface{}{"cache_key": key})
			return token, nil
		}
	}

	req := xsCommonRequest{A1: a1}
	if len(fingerprint) > 0 {
		req.Fingerprint = fingerprint
	}

	var resp XSCommonToken
	if err := c.generate(ctx, xsCommonPath, req, &resp); err != nil {
		return "", fmt.Errorf("failed to get x-s-common token: %w", err)
	}
	if resp.XSCommon == "" {
		return "", errs.New(errs.ErrorTypeToken, 0, "token service returned an empty x-s-common")
	}

	if c.cacheXSCommon {
		c.mu.Lock()
		c.cache[key] = cacheEntry{token: resp.XSCommon, expiresAt: resp.ExpiresAt}
		c.mu.Unlock()
	}
	return resp.XSCommon, nil
}

func (c *Client) cached(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.cache[key]
	if !ok {
		return "", false
	}
	if entry.expiresAt <= c.now().UnixMilli() {
		delete(c.cache, key)
		return "", false
	}
	return entry.token, true
}

// Sign fetches both tokens needed for one platform request
func (c *Client) Sign(ctx context.Context, endpoint string, payload interface{}, a1 string) (*Signature, error) {
	xs, err := c.GetXS(ctx, endpoint, payload, a1, 0)
	if err != nil {
		return nil, err
	}
	common, err := c.GetXSCommon(ctx, a1, nil)
	if err != nil {
		return nil, err
	}
	return &Signature{XS: xs.XS, XSCommon: common, XT: xs.XT}, nil
}

// ClearCache drops every cached x-s-common value
func (c *Client) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]cacheEntry)
}

// CacheSize returns the number of cached x-s-common entries, expired included
func (c *Client) CacheSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}

// Health reports whether the service answers /health with 200. The body is
// not inspected; any transport failure counts as unhealthy.
func (c *Client) Health(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).Debug("token service health check failed")
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode == http.StatusOK
}

// HealthStatus returns the decoded /health body
func (c *Client) HealthStatus(ctx context.Context) (*HealthStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	var status HealthStatus
	if err := c.do(ctx, http.MethodGet, healthPath, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Stats returns the service's usage statistics for this API key
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var raw map[string]interface{}
	if err := c.do(ctx, http.MethodGet, statsPath, nil, &raw); err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	return newStats(raw), nil
}

// generate performs a rate-limited, retried token call
func (c *Client) generate(ctx context.Context, path string, body, out interface{}) error {
	return retry.Do(ctx, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		return c.do(ctx, http.MethodPost, path, body, out)
	}, c.retry)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	url := c.baseURL + path

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errs.Wrap(err, errs.ErrorTypeParsing, 0, "failed to encode request")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return errs.Wrap(err, errs.ErrorTypeNetwork, 0, "failed to create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil && ctx.Err() != context.DeadlineExceeded {
			return ctx.Err()
		}
		c.logger.WithError(err).WarnWithFields("token service request failed", map[string]interface{}{
			"method": method,
			"path":   path,
		})
		return errs.Wrap(err, errs.ErrorTypeNetwork, 0, "token service unreachable")
	}
	defer resp.Body.Close()

	logger.LogRequest(c.logger, method, url, resp.StatusCode, time.Since(start))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.Wrap(err, errs.ErrorTypeNetwork, resp.StatusCode, "failed to read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errs.Wrap(err, errs.ErrorTypeParsing, resp.StatusCode,
			fmt.Sprintf("invalid token service response: %s", preview(data)))
	}
	return nil
}

func statusError(code int, body []byte) *errs.Error {
	t := errs.FromStatus(code)
	if t == errs.ErrorTypeUnknown {
		t = errs.ErrorTypeToken
	}

	// FastAPI style {"detail": "..."}
	var detail struct {
		Detail interface{} `json:"detail"`
	}
	msg := preview(body)
	if json.Unmarshal(body, &detail) == nil && detail.Detail != nil {
		msg = fmt.Sprint(detail.Detail)
	}
	return errs.New(t, code, "token service returned %d: %s", code, msg)
}

func preview(body []byte) string {
	const max = 200
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
