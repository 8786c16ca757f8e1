package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"igcrawl/pkg/config"
	errs "igcrawl/pkg/errors"
	"igcrawl/pkg/logger"
	"igcrawl/pkg/metrics"
	"igcrawl/pkg/models"
	"igcrawl/pkg/ratelimit"
	"igcrawl/pkg/retry"
)

// Client talks to the v1 graph API. It paces calls with a rate limiter,
// retries transient failures and tracks the quota the API reports.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
	headers     map[string]string
	limiter     ratelimit.Limiter
	quota       *ratelimit.Quota
	retry       *retry.Policy
	logger      logger.Logger
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLimiter replaces the request pacer
func WithLimiter(l ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithRetryPolicy replaces the transport retry policy
func WithRetryPolicy(p *retry.Policy) Option {
	return func(c *Client) { c.retry = p }
}

// NewClient creates a graph API client from configuration
func NewClient(cfg *config.Config, log logger.Logger, opts ...Option) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	baseURL := cfg.Instagram.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Instagram.Timeout,
		},
		baseURL:     baseURL,
		accessToken: cfg.Instagram.AccessToken,
		headers: map[string]string{
			"User-Agent": "igcrawl/1.0",
			"Accept":     "application/json",
		},
		limiter: ratelimit.NewHourly(cfg.RateLimit.RequestsPerHour, cfg.RateLimit.Burst),
		quota:   ratelimit.NewQuota(cfg.RateLimit.RequestsPerHour),
		retry:   retry.FromConfig(&cfg.Retry, log),
		logger:  log.WithField("component", "graph_client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.limiter == nil {
		c.limiter = ratelimit.Unlimited()
	}
	if c.retry == nil {
		c.retry = retry.DefaultPolicy()
	}
	return c
}

// SetHeader sets a custom header for every request
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// RemainingQuota returns the calls left in the current rate limit window.
// Before the first response it reports the configured hourly limit.
func (c *Client) RemainingQuota() int {
	return c.quota.Remaining()
}

// ResolveHandle returns the ID of the account whose handle matches exactly
// (case-insensitive). Zero matches yield a not_found error.
func (c *Client) ResolveHandle(ctx context.Context, handle string) (string, error) {
	handle = SanitizeHandle(handle)
	if handle == "" {
		return "", errs.NotFound("empty handle")
	}

	query := url.Values{}
	query.Set("q", handle)

	var users []User
	if _, err := c.getJSON(ctx, EndpointSearch, handle, SearchPath(), query, &users); err != nil {
		return "", err
	}

	for _, u := range users {
		if strings.EqualFold(u.Username, handle) {
			c.logger.DebugWithFields("resolved handle", map[string]interface{}{
				"handle":     handle,
				"account_id": u.ID,
			})
			return u.ID, nil
		}
	}
	return "", errs.NotFound("no account with handle %q", handle)
}

// FetchProfile returns the profile of accountID
func (c *Client) FetchProfile(ctx context.Context, accountID string) (*models.Profile, error) {
	var user User
	if _, err := c.getJSON(ctx, EndpointProfile, accountID, ProfilePath(accountID), nil, &user); err != nil {
		return nil, err
	}
	if user.ID == "" {
		user.ID = accountID
	}
	return user.ToProfile(), nil
}

// FetchRecentPosts returns the API's fixed window of recent media
func (c *Client) FetchRecentPosts(ctx context.Context, accountID string) ([]models.Post, error) {
	var media []Media
	if _, err := c.getJSON(ctx, EndpointMedia, accountID, RecentMediaPath(accountID), nil, &media); err != nil {
		return nil, err
	}

	posts := make([]models.Post, 0, len(media))
	for i := range media {
		if media[i].ID == "" {
			continue
		}
		posts = append(posts, media[i].ToPost(accountID))
	}
	return posts, nil
}

// FetchEdges returns one page of neighbor IDs in dir and the cursor of the
// next page. An empty cursor means the listing is exhausted.
func (c *Client) FetchEdges(ctx context.Context, accountID string, dir models.Direction, cursor string) ([]string, string, error) {
	var query url.Values
	if cursor != "" {
		query = url.Values{}
		query.Set("cursor", cursor)
	}

	var users []User
	page, err := c.getJSON(ctx, EdgesEndpoint(dir), accountID, EdgesPath(accountID, dir), query, &users)
	if err != nil {
		return nil, "", err
	}

	ids := make([]string, 0, len(users))
	for _, u := range users {
		if u.ID != "" {
			ids = append(ids, u.ID)
		}
	}

	next := ""
	if page != nil {
		next = page.NextCursor
		if next == "" && page.NextURL != "" {
			next = cursorFromURL(page.NextURL)
		}
	}
	return ids, next, nil
}

// getJSON performs a paced, retried GET and decodes the envelope's data into
// target. subject names the account (or handle) the call is about.
func (c *Client) getJSON(ctx context.Context, endpoint, subject, path string, query url.Values, target interface{}) (*Pagination, error) {
	p := *c.retry
	p.OnRetry = func(attempt int, err error, delay time.Duration) {
		metrics.IncRetry(endpoint)
	}

	return retry.DoValue(ctx, &p, func(ctx context.Context) (*Pagination, error) {
		page, err := c.getOnce(ctx, endpoint, subject, path, query, target)
		if err != nil {
			metrics.IncRemoteCall(endpoint, string(errs.TypeOf(err)))
			return nil, err
		}
		metrics.IncRemoteCall(endpoint, "ok")
		return page, nil
	})
}

func (c *Client) getOnce(ctx context.Context, endpoint, subject, path string, query url.Values, target interface{}) (*Pagination, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	if c.accessToken != "" {
		q.Set("access_token", c.accessToken)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, BuildURL(c.baseURL, path, q), nil)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeUnknown, err, "failed to create request")
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"endpoint": endpoint,
			"subject":  subject,
			"error":    err.Error(),
		})
		return nil, errs.Wrap(errs.ErrorTypeNetwork, err, "network error: %v", err)
	}
	defer resp.Body.Close()

	c.quota.UpdateFromHeaders(resp.Header.Get)
	logger.LogRequest(c.logger, endpoint, resp.StatusCode, duration)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeNetwork, err, "failed to read response body")
	}

	var env Envelope
	decodeErr := json.Unmarshal(body, &env)

	if err := c.checkResponse(resp.StatusCode, env.Meta, endpoint, subject); err != nil {
		return nil, err
	}
	if decodeErr != nil {
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"endpoint":     endpoint,
			"status":       resp.StatusCode,
			"error":        decodeErr.Error(),
			"body_preview": preview(body),
		})
		return nil, errs.New(errs.ErrorTypeParsing, resp.StatusCode, "failed to parse JSON: %v", decodeErr)
	}

	if target != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, target); err != nil {
			return nil, errs.New(errs.ErrorTypeParsing, resp.StatusCode, "failed to decode %s data: %v", endpoint, err)
		}
	}
	return env.Pagination, nil
}

// checkResponse maps the HTTP status and the envelope's meta onto a typed
// error. Private accounts are reported by the API as APINotAllowedError.
func (c *Client) checkResponse(status int, meta Meta, endpoint, subject string) error {
	if status == http.StatusOK && meta.Code >= 400 {
		status = meta.Code
	}

	fields := map[string]interface{}{
		"endpoint":   endpoint,
		"subject":    subject,
		"status":     status,
		"error_type": meta.ErrorType,
	}

	switch {
	case status < 400:
		return nil
	case meta.ErrorType == ErrorTypeNotAllowed:
		return errs.Private(subject)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		c.logger.WarnWithFields("authentication error", fields)
		return errs.New(errs.ErrorTypeAuth, status, "access denied: %s", message(meta, "invalid access token"))
	case status == http.StatusNotFound:
		return errs.New(errs.ErrorTypeNotFound, status, "%s %s not found", endpoint, subject)
	case status == http.StatusTooManyRequests || meta.ErrorType == ErrorTypeRateLimited:
		c.logger.WarnWithFields("rate limit exceeded", fields)
		return errs.New(errs.ErrorTypeRateLimit, status, "rate limit exceeded")
	case status >= 500:
		c.logger.ErrorWithFields("server error", fields)
		return errs.New(errs.ErrorTypeServerError, status, "server error: %s", message(meta, http.StatusText(status)))
	default:
		c.logger.ErrorWithFields("unexpected API error", fields)
		return errs.New(errs.ErrorTypeUnknown, status, "unexpected API error: %s", message(meta, http.StatusText(status)))
	}
}

func message(meta Meta, fallback string) string {
	if meta.ErrorMessage != "" {
		return meta.ErrorMessage
	}
	return fallback
}

func preview(body []byte) string {
	s := string(body)
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

// cursorFromURL extracts the cursor parameter from a next_url
func cursorFromURL(next string) string {
	u, err := url.Parse(next)
	if err != nil {
		return ""
	}
	return u.Query().Get("cursor")
}
