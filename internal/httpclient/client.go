package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/harvester/internal/common"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRetryCount is the number of retries after the first attempt.
	DefaultRetryCount = 2

	// DefaultRetryWait is the fixed backoff between attempts.
	DefaultRetryWait = time.Second
)

// APIError is returned for non-2xx responses once retries are exhausted.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream error %d at %s: %s", e.StatusCode, e.Endpoint, e.Message)
}

// Request describes one GET call.
type Request struct {
	URL      string
	Query    url.Values
	Headers  map[string]string
	UseProxy bool
}

type proxyContextKey struct{}

// ContextWithProxy routes every request made with the returned context through the proxy when use is true.
func ContextWithProxy(ctx context.Context, use bool) context.Context {
	return context.WithValue(ctx, proxyContextKey{}, use)
}

func proxyFromContext(ctx context.Context) bool {
	use, _ := ctx.Value(proxyContextKey{}).(bool)
	return use
}

// Client is a JSON HTTP client with retry, rate limiting and optional proxy wrapping.
type Client struct {
	resty         *resty.Client
	limiter       *rate.Limiter
	logger        arbor.ILogger
	proxyEndpoint string
	proxyKey      string
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit caps requests per second; 0 disables the limiter.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithRetry sets the retry count and the fixed wait between attempts.
func WithRetry(count int, wait time.Duration) ClientOption {
	return func(c *Client) {
		c.resty.SetRetryCount(count).
			SetRetryWaitTime(wait).
			SetRetryMaxWaitTime(wait)
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.resty.SetTimeout(timeout)
	}
}

// WithUserAgent sets the User-Agent header on every request.
func WithUserAgent(userAgent string) ClientOption {
	return func(c *Client) {
		if userAgent != "" {
			c.resty.SetHeader("User-Agent", userAgent)
		}
	}
}

// WithProxy routes requests flagged UseProxy through a proxy API endpoint.
func WithProxy(endpoint, apiKey string) ClientOption {
	return func(c *Client) {
		c.proxyEndpoint = endpoint
		c.proxyKey = apiKey
	}
}

// NewClient creates a client with default retry and timeout settings.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		resty: resty.New(),
	}
	c.resty.SetTimeout(DefaultTimeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(DefaultRetryCount).
		SetRetryWaitTime(DefaultRetryWait).
		SetRetryMaxWaitTime(DefaultRetryWait).
		AddRetryCondition(shouldRetry)

	c.resty.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
		if c.limiter == nil {
			return nil
		}
		return c.limiter.Wait(r.Context())
	})

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = common.GetLogger()
	}

	return c
}

// NewFromConfig creates a client from the http and proxy configuration sections.
func NewFromConfig(httpCfg common.HTTPConfig, proxyCfg common.ProxyConfig, logger arbor.ILogger) *Client {
	return NewClient(
		WithLogger(logger),
		WithTimeout(httpCfg.Timeout.Duration),
		WithRetry(httpCfg.RetryCount, httpCfg.RetryWait.Duration),
		WithRateLimit(httpCfg.RateLimit),
		WithUserAgent(httpCfg.UserAgent),
		WithProxy(proxyCfg.Endpoint, proxyCfg.APIKey),
	)
}

// shouldRetry retries transport errors, 429 and 5xx responses.
func shouldRetry(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if r == nil {
		return false
	}
	code := r.StatusCode()
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// ProxyURL wraps target as endpoint?api_key=<key>&url=<target>.
func ProxyURL(endpoint, apiKey, target string) string {
	params := url.Values{}
	params.Set("api_key", apiKey)
	params.Set("url", target)
	return endpoint + "?" + params.Encode()
}

func (c *Client) resolveURL(req Request) (string, url.Values) {
	if !req.UseProxy || c.proxyEndpoint == "" {
		return req.URL, req.Query
	}
	target := req.URL
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}
	return ProxyURL(c.proxyEndpoint, c.proxyKey, target), nil
}

// GetJSON performs a GET and decodes the JSON body into out.
func (c *Client) GetJSON(ctx context.Context, req Request, out interface{}) error {
	body, err := c.Get(ctx, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", req.URL, err)
	}
	return nil
}

// Get performs a GET and returns the raw body of a 2xx response.
func (c *Client) Get(ctx context.Context, req Request) ([]byte, error) {
	if proxyFromContext(ctx) {
		req.UseProxy = true
	}
	target, query := c.resolveURL(req)

	r := c.resty.R().SetContext(ctx).SetHeaders(req.Headers)
	if len(query) > 0 {
		r.SetQueryParamsFromValues(query)
	}

	c.logger.Debug().Str("url", req.URL).Bool("proxy", req.UseProxy).Msg("HTTP GET")

	resp, err := r.Get(target)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", req.URL, err)
	}

	if resp.IsError() {
		return nil, &APIError{
			StatusCode: resp.StatusCode(),
			Message:    truncate(strings.TrimSpace(resp.String()), 200),
			Endpoint:   req.URL,
		}
	}

	return resp.Body(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
