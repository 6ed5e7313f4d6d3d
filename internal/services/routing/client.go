package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"binbird-backend/internal/metrics"
	"binbird-backend/internal/models"

	"golang.org/x/time/rate"
)

// Optimizer is anything that can order waypoints
type Optimizer interface {
	Optimize(ctx context.Context, req models.OptimizeRequest) (*models.OptimizeResult, error)
}

// Client calls the remote route optimizer. Requests are throttled, answers
// are cached, and failures fall back to a local optimizer when one is set.
type Client struct {
	url        string
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *ResultCache
	fallback   Optimizer
}

// Options configures a Client
type Options struct {
	URL      string
	RPS      float64
	Timeout  time.Duration
	Cache    *ResultCache
	Fallback Optimizer
}

// NewClient creates an optimizer client. An empty URL makes every call go
// straight to the fallback.
func NewClient(opts Options) *Client {
	if opts.URL == "" {
		log.Printf("⚠️  ROUTE_OPTIMIZER_URL not set - using local route optimization")
	}
	if opts.RPS <= 0 {
		opts.RPS = 2
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	burst := int(opts.RPS)
	if burst < 1 {
		burst = 1
	}

	return &Client{
		url: opts.URL,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		limiter:  rate.NewLimiter(rate.Limit(opts.RPS), burst),
		cache:    opts.Cache,
		fallback: opts.Fallback,
	}
}

// Optimize returns a stop order for req
func (c *Client) Optimize(ctx context.Context, req models.OptimizeRequest) (*models.OptimizeResult, error) {
	signature := Signature(req)
	if c.cache != nil {
		if cached, found := c.cache.Get(signature); found {
			log.Printf("📦 Optimizer cache HIT: %s", signature)
			metrics.OptimizerCalls.WithLabelValues("cache_hit").Inc()
			return cached, nil
		}
	}

	result, err := c.optimize(ctx, req)
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		c.cache.Set(signature, *result)
	}
	return result, nil
}

func (c *Client) optimize(ctx context.Context, req models.OptimizeRequest) (*models.OptimizeResult, error) {
	if c.url == "" {
		return c.useFallback(ctx, req, nil)
	}

	result, err := c.callRemote(ctx, req)
	if err == nil {
		metrics.OptimizerCalls.WithLabelValues("remote").Inc()
		return result, nil
	}
	if ctx.Err() != nil {
		metrics.OptimizerCalls.WithLabelValues("error").Inc()
		return nil, err
	}
	log.Printf("⚠️  Route optimizer failed: %v", err)
	return c.useFallback(ctx, req, err)
}

func (c *Client) useFallback(ctx context.Context, req models.OptimizeRequest, cause error) (*models.OptimizeResult, error) {
	if c.fallback == nil {
		metrics.OptimizerCalls.WithLabelValues("error").Inc()
		if cause == nil {
			cause = fmt.Errorf("no route optimizer configured")
		}
		return nil, cause
	}
	result, err := c.fallback.Optimize(ctx, req)
	if err != nil {
		metrics.OptimizerCalls.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("fallback optimizer: %w", err)
	}
	metrics.OptimizerCalls.WithLabelValues("fallback").Inc()
	return result, nil
}

func (c *Client) callRemote(ctx context.Context, req models.OptimizeRequest) (*models.OptimizeResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("optimizer returned status %d: %s", resp.StatusCode, string(body))
	}

	var result models.OptimizeResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if !result.IsPermutationOf(len(req.Waypoints)) {
		return nil, fmt.Errorf("optimizer order %v is not a permutation of %d stops", result.Order, len(req.Waypoints))
	}

	log.Printf("🧭 Route optimized remotely: %d stops", len(req.Waypoints))
	return &result, nil
}
