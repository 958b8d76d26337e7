// Package transport performs the outbound HTTP GETs issued to exchanges and
// forex sources. It bounds response sizes, pins IPv4 for sources without
// IPv6 support and paces requests per host.
package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ndewijer/exchange-rate-oracle/internal/apperrors"
)

// Request describes a single outbound GET.
type Request struct {
	// Source names the exchange or forex source, for logs and metrics.
	Source           string
	URL              string
	MaxResponseBytes int64
	// IPv6 is false for sources that must be reached over IPv4.
	IPv6 bool
}

// Getter fetches a response body.
type Getter interface {
	Get(ctx context.Context, req Request) ([]byte, error)
}

// Recorder observes the outcome of each request.
type Recorder interface {
	ObserveOutbound(source, status string, elapsed time.Duration)
}

// Options configures a Client.
type Options struct {
	Timeout time.Duration
	// PerHostRate is the sustained requests per second allowed per host; 0 disables pacing.
	PerHostRate  float64
	PerHostBurst int
	UserAgent    string
	Recorder     Recorder
}

// Client is the production Getter.
type Client struct {
	dualStack *http.Client
	ipv4Only  *http.Client
	logger    *zap.Logger
	opts      Options

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewClient creates an HTTP client with one connection pool per address
// family policy.
//
// Parameters:
//   - logger: named logger for request diagnostics
//   - opts: timeouts, pacing and the optional recorder
//
// Returns:
//   - *Client: a client ready for use by exchange and forex fetches
func NewClient(logger *zap.Logger, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.PerHostBurst <= 0 {
		opts.PerHostBurst = 1
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "exchange-rate-oracle/1.0"
	}

	dialer := &net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}
	v4 := http.DefaultTransport.(*http.Transport).Clone()
	v4.DialContext = func(ctx context.Context, _, addr string) (net.Conn, error) {
		return dialer.DialContext(ctx, "tcp4", addr)
	}

	return &Client{
		dualStack: &http.Client{Timeout: opts.Timeout, Transport: http.DefaultTransport.(*http.Transport).Clone()},
		ipv4Only:  &http.Client{Timeout: opts.Timeout, Transport: v4},
		logger:    logger.Named("transport"),
		opts:      opts,
		limiters:  map[string]*rate.Limiter{},
	}
}

func (c *Client) limiter(host string) *rate.Limiter {
	if c.opts.PerHostRate <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.limiters[host]
	if !ok {
		l = rate.NewLimiter(rate.Limit(c.opts.PerHostRate), c.opts.PerHostBurst)
		c.limiters[host] = l
	}
	return l
}

// Get issues the request and returns the body. Non-200 responses and
// bodies larger than req.MaxResponseBytes are errors.
func (c *Client) Get(ctx context.Context, req Request) ([]byte, error) {
	start := time.Now()
	status := "error"
	defer func() {
		if c.opts.Recorder != nil {
			c.opts.Recorder.ObserveOutbound(req.Source, status, time.Since(start))
		}
	}()

	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid url: %w", req.Source, err)
	}
	if l := c.limiter(u.Host); l != nil {
		if err := l.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s: pacing: %w", req.Source, err)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("User-Agent", c.opts.UserAgent)
	httpReq.Header.Set("Accept", "application/json, application/xml;q=0.9, */*;q=0.8")

	client := c.dualStack
	if !req.IPv6 {
		client = c.ipv4Only
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		c.logger.Debug("outbound request failed", zap.String("source", req.Source), zap.Error(err))
		return nil, fmt.Errorf("%s: %w", req.Source, err)
	}
	defer resp.Body.Close()
	status = strconv.Itoa(resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: unexpected status %d", req.Source, resp.StatusCode)
	}

	var body []byte
	if req.MaxResponseBytes > 0 {
		body, err = io.ReadAll(io.LimitReader(resp.Body, req.MaxResponseBytes+1))
		if err == nil && int64(len(body)) > req.MaxResponseBytes {
			status = "too_large"
			return nil, fmt.Errorf("%s: %w (%d bytes)", req.Source, apperrors.ErrResponseTooLarge, req.MaxResponseBytes)
		}
	} else {
		body, err = io.ReadAll(resp.Body)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", req.Source, err)
	}

	c.logger.Debug("outbound request",
		zap.String("source", req.Source),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return body, nil
}
