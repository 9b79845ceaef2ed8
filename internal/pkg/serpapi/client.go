// Package serpapi queries the SerpAPI search endpoint for the hotel and image tools.
package serpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/FACorreiaa/go-travel-planner/internal/app/models"
	"github.com/FACorreiaa/go-travel-planner/internal/app/observability/metrics"
	"github.com/FACorreiaa/go-travel-planner/internal/pkg/cache"
	"github.com/FACorreiaa/go-travel-planner/internal/pkg/record"
)

const (
	searchPath   = "/search.json"
	maxErrorBody = 4 << 10
)

// Config controls how the client reaches the provider.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// RatePerSecond bounds outgoing requests. Zero or less disables the limit.
	RatePerSecond float64
	// CacheTTL keeps successful responses per parameter set. Zero disables caching.
	CacheTTL time.Duration
}

// Client issues GET requests against SerpAPI and decodes the JSON document.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *cache.UnifiedCache[record.Record]
	logger     *zap.Logger
}

// NewClient creates a new Client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	limit := rate.Inf
	burst := 1
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
		burst = max(1, int(cfg.RatePerSecond))
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: http.DefaultTransport,
		},
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}
	if cfg.CacheTTL > 0 {
		c.cache = cache.NewUnifiedCache[record.Record](cfg.CacheTTL, "serpapi", logger)
	}
	return c
}

// Search runs one query. The api_key is added here and never appears in
// cache keys or logs.
func (c *Client) Search(ctx context.Context, params map[string]string) (record.Record, error) {
	engine := params["engine"]
	ctx, span := otel.Tracer("SerpAPIClient").Start(ctx, "Search", trace.WithAttributes(
		attribute.String("serpapi.engine", engine),
		attribute.String("serpapi.q", params["q"]),
	))
	defer span.End()

	l := c.logger.With(zap.String("method", "Search"), zap.String("engine", engine))

	key, err := c.cacheKey(params)
	if err != nil {
		l.Warn("Could not build cache key, bypassing cache", zap.Error(err))
	}
	if c.cache != nil && key != "" {
		if doc, ok := c.cache.Get(key); ok {
			span.SetAttributes(attribute.Bool("serpapi.cache_hit", true))
			metrics.Get().SearchCacheHitsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("engine", engine)))
			return doc, nil
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rate limiter wait failed")
		return nil, fmt.Errorf("%w: rate limit wait: %w", models.ErrProvider, err)
	}

	start := time.Now()
	doc, err := c.do(ctx, params)
	metrics.Get().ProviderRequestDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("engine", engine)))
	if err != nil {
		l.Error("Provider request failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider request failed")
		return nil, err
	}

	if c.cache != nil && key != "" {
		c.cache.Set(key, doc)
	}
	l.Debug("Provider request completed", zap.Duration("duration", time.Since(start)))
	span.SetStatus(codes.Ok, "search completed")
	return doc, nil
}

func (c *Client) do(ctx context.Context, params map[string]string) (record.Record, error) {
	u, err := url.Parse(c.baseURL + searchPath)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base URL: %w", models.ErrProvider, err)
	}

	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	q.Set("api_key", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %w", models.ErrProvider, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %w", models.ErrProvider, redact(err, c.apiKey))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: status %d: %s", models.ErrProvider, resp.StatusCode, providerMessage(body))
	}

	var doc record.Record
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %w", models.ErrProvider, err)
	}
	if msg := doc.String("error"); msg != "" {
		return nil, fmt.Errorf("%w: %s", models.ErrProvider, msg)
	}
	return doc, nil
}

func (c *Client) cacheKey(params map[string]string) (string, error) {
	if c.cache == nil {
		return "", nil
	}
	clean := make(map[string]string, len(params))
	for k, v := range params {
		if k == "api_key" {
			continue
		}
		clean[k] = v
	}
	return cache.NewCacheKeyBuilder(c.logger).Add("params", clean).Build()
}

// providerMessage prefers the "error" field of a JSON error body.
func providerMessage(body []byte) string {
	var doc record.Record
	if err := json.Unmarshal(body, &doc); err == nil {
		if msg := doc.String("error"); msg != "" {
			return msg
		}
	}
	return strings.TrimSpace(string(body))
}

// redact strips the api key from transport errors, which embed the full URL.
func redact(err error, apiKey string) error {
	if apiKey == "" || !strings.Contains(err.Error(), apiKey) {
		return err
	}
	return fmt.Errorf("%s", strings.ReplaceAll(err.Error(), apiKey, "REDACTED"))
}
