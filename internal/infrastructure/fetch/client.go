// Package fetch retrieves and decodes upstream responses.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"HealthFetcher/internal/ports"
	"HealthFetcher/internal/sources"
)

// DefaultUserAgent is sent when no agent is configured; some sources reject Go's default.
const DefaultUserAgent = "Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:79.0) Gecko/20100101 Firefox/79.0"

// Options tune the client.
type Options struct {
	Timeout            time.Duration
	UserAgent          string
	PerHostConcurrency int64
	// PerHostRate is requests per second per host; zero disables the limit.
	PerHostRate float64
}

// Client fetches queries over HTTP. Requests to the same host share a
// concurrency gate and a rate limiter.
type Client struct {
	http   *resty.Client
	opts   Options
	logger *slog.Logger

	mu    sync.Mutex
	hosts map[string]*hostGate
}

type hostGate struct {
	sem     *semaphore.Weighted
	limiter *rate.Limiter
}

var _ ports.Fetcher = (*Client)(nil)

// New builds a client.
func New(opts Options, logger *slog.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.PerHostConcurrency <= 0 {
		opts.PerHostConcurrency = 4
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	httpClient := resty.New()
	httpClient.SetTimeout(opts.Timeout)
	httpClient.SetHeader("User-Agent", opts.UserAgent)

	return &Client{
		http:   httpClient,
		opts:   opts,
		logger: logger,
		hosts:  map[string]*hostGate{},
	}
}

// Fetch retrieves one query and decodes its body according to the query type.
func (c *Client) Fetch(ctx context.Context, sourceID string, q sources.Query) (any, error) {
	if q.Type == sources.TypeURL {
		return q.URL, nil
	}

	u, err := url.Parse(q.URL)
	if err != nil || u.Host == "" {
		return nil, &TransportError{Source: sourceID, URL: q.URL, Err: fmt.Errorf("invalid url")}
	}

	gate := c.gate(u.Host)
	if err := gate.sem.Acquire(ctx, 1); err != nil {
		return nil, &TransportError{Source: sourceID, URL: q.URL, Err: err}
	}
	defer gate.sem.Release(1)
	if err := gate.limiter.Wait(ctx); err != nil {
		return nil, &TransportError{Source: sourceID, URL: q.URL, Err: err}
	}

	req := c.http.R().SetContext(ctx)
	method := q.HTTPMethod()
	if method == http.MethodPost {
		req.SetFormData(q.Params)
	} else {
		req.SetQueryParams(q.Params)
	}

	started := time.Now()
	resp, err := req.Execute(method, q.URL)
	if err != nil {
		return nil, &TransportError{Source: sourceID, URL: q.URL, Err: err}
	}
	c.logger.Debug("fetched", "source", sourceID, "url", q.URL, "status", resp.StatusCode(), "bytes", len(resp.Body()), "took", time.Since(started))
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, &TransportError{Source: sourceID, URL: q.URL, Status: resp.StatusCode()}
	}

	out, err := decode(q, resp.Body())
	if err != nil {
		return nil, &TransportError{Source: sourceID, URL: q.URL, Err: err}
	}
	return out, nil
}

func (c *Client) gate(host string) *hostGate {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.hosts[host]
	if !ok {
		limit := rate.Inf
		if c.opts.PerHostRate > 0 {
			limit = rate.Limit(c.opts.PerHostRate)
		}
		g = &hostGate{
			sem:     semaphore.NewWeighted(c.opts.PerHostConcurrency),
			limiter: rate.NewLimiter(limit, 1),
		}
		c.hosts[host] = g
	}
	return g
}
