package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"xhsclient/pkg/config"
	"xhsclient/pkg/cookies"
	errs "xhsclient/pkg/errors"
	"xhsclient/pkg/logger"
	"xhsclient/pkg/ratelimit"
	"xhsclient/pkg/retry"
	"xhsclient/pkg/tokens"
)

// Signer produces the x-s, x-s-common and x-t values for one request.
// *tokens.Client implements it.
type Signer interface {
	Sign(ctx context.Context, endpoint string, payload interface{}, a1 string) (*tokens.Signature, error)
}

// Platform business codes that map onto retry-relevant error types
const (
	codeLoginRequired = -100
	codeNoPermission  = -101
	codeTooFrequent   = 300013
)

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	HTTPClient *http.Client
	Limiter    ratelimit.Limiter
	Retry      *retry.Config
	Logger     logger.Logger
}

// Client performs signed calls against the platform web API
type Client struct {
	httpClient *http.Client
	baseURL    string
	headers    map[string]string
	jar        *cookies.Jar
	signer     Signer
	limiter    ratelimit.Limiter
	retry      *retry.Config
	logger     logger.Logger
}

// NewClient creates a platform client using the session in jar
func NewClient(cfg config.PlatformConfig, jar *cookies.Jar, signer Signer, opts Options) *Client {
	c := &Client{
		httpClient: opts.HTTPClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		headers:    baseHeaders(cfg),
		jar:        jar,
		signer:     signer,
		limiter:    opts.Limiter,
		retry:      opts.Retry,
		logger:     opts.Logger,
	}

	if c.baseURL == "" {
		c.baseURL = config.DefaultPlatformURL
	}
	if c.httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		c.httpClient = &http.Client{Timeout: timeout}
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
	c.logger = c.logger.WithField("component", "api")
	return c
}

func baseHeaders(cfg config.PlatformConfig) map[string]string {
	h := map[string]string{
		"accept":          "application/json, text/plain, */*",
		"accept-language": "en-US,en;q=0.9",
		"content-type":    "application/json;charset=UTF-8",
		"origin":          cfg.Origin,
		"referer":         cfg.Referer,
		"user-agent":      cfg.UserAgent,
	}
	if h["origin"] == "" {
		h["origin"] = config.DefaultOrigin
	}
	if h["referer"] == "" {
		h["referer"] = config.DefaultOrigin + "/"
	}
	if h["user-agent"] == "" {
		h["user-agent"] = config.DefaultUserAgent
	}
	return h
}

// DeviceID returns the a1 cookie the client signs with
func (c *Client) DeviceID() string {
	return c.jar.DeviceID()
}

// FetchHomefeed fetches one homefeed page
func (c *Client) FetchHomefeed(ctx context.Context, req HomefeedRequest) (*Response[HomefeedData], error) {
	var resp Response[HomefeedData]
	if err := c.post(ctx, HomefeedEndpoint, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FetchSearch fetches one page of note search results
func (c *Client) FetchSearch(ctx context.Context, req SearchRequest) (*Response[SearchData], error) {
	var resp Response[SearchData]
	if err := c.post(ctx, SearchEndpoint, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FetchComments fetches one page of a note's top-level comments
func (c *Client) FetchComments(ctx context.Context, req CommentsRequest) (*Response[CommentsData], error) {
	var resp Response[CommentsData]
	if err := c.post(ctx, CommentsEndpoint, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FetchFeed fetches notes related to a source note
func (c *Client) FetchFeed(ctx context.Context, req FeedRequest) (*Response[FeedData], error) {
	var resp Response[FeedData]
	if err := c.post(ctx, FeedEndpoint, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FetchUserPosts fetches one page of a user's notes
func (c *Client) FetchUserPosts(ctx context.Context, req UserPostsRequest) (*Response[UserPostsData], error) {
	var resp Response[UserPostsData]
	if err := c.post(ctx, UserPostedEndpoint, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FetchUserInfo fetches a user's profile
func (c *Client) FetchUserInfo(ctx context.Context, req UserInfoRequest) (*Response[UserInfo], error) {
	var resp Response[UserInfo]
	if err := c.post(ctx, UserInfoEndpoint, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// envelope reads the common fields of T-specific responses
type envelope interface {
	status() (bool, int, string)
	setRaw(json.RawMessage)
}

func (r *Response[T]) status() (bool, int, string) { return r.Success, r.Code, r.Msg }
func (r *Response[T]) setRaw(raw json.RawMessage)  { r.Raw = raw }

// post signs payload, sends it and decodes the envelope into out. Each
// attempt is re-signed so x-t stays fresh.
func (c *Client) post(ctx context.Context, endpoint string, payload interface{}, out envelope) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errs.Wrap(err, errs.ErrorTypeParsing, 0, "failed to encode payload")
	}

	return retry.Do(ctx, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		// the signer runs its own retry policy against the token service
		sig, err := c.signer.Sign(ctx, endpoint, payload, c.jar.DeviceID())
		if err != nil {
			return retry.Permanent(err)
		}

		data, err := c.send(ctx, endpoint, body, sig)
		if err != nil {
			return err
		}
		return c.decode(endpoint, data, out)
	}, c.retry)
}

func (c *Client) send(ctx context.Context, endpoint string, body []byte, sig *tokens.Signature) ([]byte, error) {
	url := c.baseURL + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errs.Wrap(err, errs.ErrorTypeNetwork, 0, "failed to create request")
	}

	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	req.Header.Set("x-s", sig.XS)
	req.Header.Set("x-s-common", sig.XSCommon)
	req.Header.Set("x-t", strconv.FormatInt(sig.XT, 10))
	req.Header.Set("x-b3-traceid", newTraceID())
	c.jar.Apply(req)

	c.logger.DebugWithFields("sending platform request", map[string]interface{}{
		"endpoint": endpoint,
		"bytes":    len(body),
	})

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr == context.Canceled {
			return nil, ctxErr
		}
		c.logger.WithError(err).ErrorWithFields("HTTP request failed", map[string]interface{}{
			"endpoint": endpoint,
			"duration": duration,
		})
		return nil, errs.Wrap(err, errs.ErrorTypeNetwork, 0, "network error")
	}
	defer resp.Body.Close()

	logger.LogRequest(c.logger, http.MethodPost, url, resp.StatusCode, duration)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(err, errs.ErrorTypeNetwork, resp.StatusCode, "failed to read response body")
	}

	if err := c.checkResponseStatus(endpoint, resp.StatusCode, data); err != nil {
		return nil, err
	}
	return data, nil
}

// checkResponseStatus maps non-200 statuses onto typed errors
func (c *Client) checkResponseStatus(endpoint string, status int, body []byte) error {
	if status == http.StatusOK {
		return nil
	}

	fields := map[string]interface{}{
		"endpoint": endpoint,
		"status":   status,
		"body":     bodyPreview(body),
	}

	switch t := errs.FromStatus(status); t {
	case errs.ErrorTypeAuth:
		c.logger.WarnWithFields("authentication error", fields)
		return errs.New(t, status, "session rejected, refresh cookies")
	case errs.ErrorTypeNotFound:
		c.logger.WarnWithFields("resource not found", fields)
		return errs.New(t, status, "resource not found")
	case errs.ErrorTypeRateLimit:
		c.logger.WarnWithFields("rate limit exceeded", fields)
		return errs.New(t, status, "rate limit exceeded")
	case errs.ErrorTypeServerError:
		c.logger.ErrorWithFields("server error", fields)
		return errs.New(t, status, "server error")
	default:
		if status >= 200 && status < 300 {
			return nil
		}
		c.logger.ErrorWithFields("unexpected API status", fields)
		return errs.New(errs.ErrorTypeAPI, status, "unexpected status code: %d: %s", status, bodyPreview(body))
	}
}

func (c *Client) decode(endpoint string, data []byte, out envelope) error {
	if err := json.Unmarshal(data, out); err != nil {
		c.logger.WithError(err).ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"endpoint":     endpoint,
			"body_preview": bodyPreview(data),
		})
		return errs.Wrap(err, errs.ErrorTypeParsing, 0, "failed to parse JSON")
	}
	out.setRaw(data)

	success, code, msg := out.status()
	if success {
		return nil
	}

	c.logger.WarnWithFields("platform rejected request", map[string]interface{}{
		"endpoint": endpoint,
		"code":     code,
		"msg":      msg,
	})
	return apiError(code, msg)
}

func apiError(code int, msg string) *errs.Error {
	if msg == "" {
		msg = "request was not successful"
	}
	t := errs.ErrorTypeAPI
	switch code {
	case codeLoginRequired, codeNoPermission:
		t = errs.ErrorTypeAuth
	case codeTooFrequent:
		t = errs.ErrorTypeRateLimit
	}
	return errs.New(t, code, "%s", msg)
}

func bodyPreview(body []byte) string {
	s := string(body)
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
