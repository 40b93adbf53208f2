package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/yourorg/valuation-api/internal/logger"
)

// DefaultTimeout bounds every provider call, including time spent waiting on the limiter.
const DefaultTimeout = 9 * time.Second

const maxPayload = 4 << 20

var errPayloadTooLarge = errors.New("payload too large")

// Client is the HTTP plumbing shared by the provider adapters: one GET, one
// attempt, bounded by a timeout and an optional outbound rate limit.
type Client struct {
	name    string
	baseURL string
	timeout time.Duration
	http    *retryablehttp.Client
	limiter *rate.Limiter
	log     *zap.Logger
}

// Options tune a provider Client. Zero values pick the defaults.
type Options struct {
	BaseURL string
	Timeout time.Duration
	// RPS caps outbound requests per second; 0 disables the limiter.
	RPS    float64
	Logger *zap.Logger
}

func NewClient(name, defaultBaseURL string, opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	base := opts.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("provider", name))

	rc := retryablehttp.NewClient()
	rc.RetryMax = 0 // a failed call is final for this request
	rc.HTTPClient.Timeout = timeout
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = logger.Leveled(log)

	c := &Client{
		name:    name,
		baseURL: strings.TrimRight(base, "/"),
		timeout: timeout,
		http:    rc,
		log:     log,
	}
	if opts.RPS > 0 {
		burst := int(opts.RPS)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RPS), burst)
	}
	return c
}

// Get issues GET {base}{path}?{q} with the given headers and returns the body
// of a 2xx response.
func (c *Client) Get(ctx context.Context, path string, q url.Values, headers map[string]string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s rate limit: %w", c.name, err)
		}
	}

	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxPayload))
		return nil, fmt.Errorf("%s error %d", c.name, resp.StatusCode)
	}
	return ioReadAllLimit(resp.Body, maxPayload)
}

func ioReadAllLimit(r io.Reader, limit int64) ([]byte, error) {
	lr := io.LimitReader(r, limit+1)
	b, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, errPayloadTooLarge
	}
	return b, nil
}
