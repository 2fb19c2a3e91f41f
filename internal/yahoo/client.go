package yahoo

import (
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the Yahoo Finance query host.
	DefaultBaseURL = "https://query2.finance.yahoo.com"

	// DefaultCookieURL is visited once to obtain the session cookie the crumb is bound to.
	DefaultCookieURL = "https://finance.yahoo.com"

	// DefaultUserAgent is a desktop browser agent; the quote endpoints reject unknown agents.
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Client provides access to the Yahoo Finance REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	limiter    *rate.Limiter
	userAgent  string
	cookieURL  string

	crumbMu sync.Mutex
	crumb   string

	maxRetries   int
	retryBackoff time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new REST API client.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:       slog.Default(),
		limiter:      rate.NewLimiter(rate.Inf, 1),
		userAgent:    DefaultUserAgent,
		cookieURL:    DefaultCookieURL,
		maxRetries:   2,
		retryBackoff: time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	// The crumb is bound to the session cookie held in the jar.
	if c.httpClient.Jar == nil {
		jar, _ := cookiejar.New(nil)
		c.httpClient.Jar = jar
	}

	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetries sets the retry configuration.
func WithRetries(max int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

// WithRateLimit caps outgoing requests per second across all callers.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithCookieURL overrides the page visited to obtain the session cookie.
func WithCookieURL(u string) ClientOption {
	return func(c *Client) {
		c.cookieURL = u
	}
}
