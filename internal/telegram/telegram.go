// Package telegram reads public channel messages and sends alerts through the
// Bot API.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spigell/job-alerter/internal/metrics"
)

const (
	apiURL    = "https://api.telegram.org"
	webURL    = "https://t.me"
	userAgent = "spigell/job-alerter"

	defaultTimeout = 15 * time.Second
)

type Config struct {
	BotToken          string
	APIURL            string
	WebURL            string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// Client talks to the channel web preview and the Bot API. Requests are
// bound by the http client timeout and rate limited per host.
type Client struct {
	token      string
	logger     *zap.Logger
	metrics    *metrics.Metrics
	limiter    *hostLimiter
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
	WebURL     string
}

func New(cfg Config, logger *zap.Logger, m *metrics.Metrics) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		token:      strings.TrimSpace(cfg.BotToken),
		logger:     logger,
		metrics:    m,
		limiter:    newHostLimiter(cfg.RequestsPerSecond),
		HTTPClient: &http.Client{Timeout: timeout},
		UserAgent:  userAgent,
		APIURL:     orDefault(cfg.APIURL, apiURL),
		WebURL:     orDefault(cfg.WebURL, webURL),
	}
}

func orDefault(v, def string) string {
	v = strings.TrimRight(strings.TrimSpace(v), "/")
	if v == "" {
		return def
	}
	return v
}

func (c *Client) request(req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(req.Context(), req.URL); err != nil {
		return nil, fmt.Errorf("wait for rate limiter: %w", err)
	}

	c.logger.Debug("make request", zap.String("url", redact(req.URL.String(), c.token)))
	return c.HTTPClient.Do(req)
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	req.Header.Set("User-Agent", c.UserAgent)
	return req
}

// redact hides the bot token which is part of every Bot API path.
func redact(s, token string) string {
	if token == "" {
		return s
	}
	return strings.ReplaceAll(s, token, "***")
}

// hostLimiter rate limits per hostname so that scraping and delivery do not
// share a budget.
type hostLimiter struct {
	mu sync.Mutex
	m  map[string]*rate.Limiter
	r  rate.Limit
}

func newHostLimiter(reqPerSec float64) *hostLimiter {
	r := rate.Inf
	if reqPerSec > 0 {
		r = rate.Limit(reqPerSec)
	}
	return &hostLimiter{m: make(map[string]*rate.Limiter), r: r}
}

func (hl *hostLimiter) Wait(ctx context.Context, u *url.URL) error {
	host := "_"
	if u != nil && u.Host != "" {
		host = u.Host
	}

	hl.mu.Lock()
	lim, ok := hl.m[host]
	if !ok {
		lim = rate.NewLimiter(hl.r, 1)
		hl.m[host] = lim
	}
	hl.mu.Unlock()

	return lim.Wait(ctx)
}
