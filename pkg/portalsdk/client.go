package portalsdk

import (
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Client is a client for the Helioscope user portal API. It covers user and
// login info, token lifecycle operations, token change history, and service
// discovery.
//
// Methods are safe to call concurrently for different resources. No method
// mutates shared state; cache coordination is layered on top by the
// querycache package.
type Client struct {
	// BaseURL is the portal API prefix, without a trailing slash.
	BaseURL string

	// HTTPClient issues all requests. Its cookie jar carries the session
	// credentials the portal expects.
	HTTPClient *http.Client

	// Limiter, when set, paces requests client-side so a busy caller stays
	// inside its API quota. Nil disables pacing.
	Limiter *rate.Limiter

	// Logger receives debug-level request logs. Nil discards them.
	Logger *slog.Logger
}

// NewClient creates a portal client. Trailing slashes on baseURL are
// stripped before path concatenation.
func NewClient(baseURL string) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
			Jar:     jar,
		},
	}
}

// WithLimiter enables client-side request pacing and returns the client.
func (c *Client) WithLimiter(l *rate.Limiter) *Client {
	c.Limiter = l
	return c
}

// WithLogger attaches a logger and returns the client.
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	c.Logger = logger
	return c
}
