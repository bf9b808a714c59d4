// Package supabase implements port.Store on top of the Supabase PostgREST API.
// Tables: cost_centers, account_spend_types, actuals, anticipateds and
// upload_versions (unique on kind, version_number).
package supabase

import (
	"context"
	"net/http"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/yolokazi-cloud/MarketingApp1/internal/domain"
	"github.com/yolokazi-cloud/MarketingApp1/internal/infra/resilience"
)

var tracer = otel.Tracer("supabase")

// insertChunk bounds the number of rows sent in one bulk POST.
const insertChunk = 500

// Client wraps HTTP calls to Supabase PostgREST API.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	serviceRoleKey string
	cb             *gobreaker.CircuitBreaker
	cfg            resilience.Config
	logger         *zap.Logger
}

// NewClient creates a Supabase client.
func NewClient(httpClient *http.Client, baseURL, apiKey, serviceRoleKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         apiKey,
		serviceRoleKey: serviceRoleKey,
		cb:             cb,
		cfg:            cfg,
		logger:         logger,
	}
}

func (c *Client) Name() string { return "supabase" }

// Ping issues a cheap read against the reference table.
func (c *Client) Ping(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Supabase.Ping")
	defer span.End()

	err := c.guard(ctx, func() error {
		_, err := c.doRequest(ctx, http.MethodGet, "cost_centers?select=cost_center&limit=1")
		return err
	})
	return domain.AsPersistence("supabase/ping", err)
}

// guard runs fn through the circuit breaker with retries.
func (c *Client) guard(ctx context.Context, fn func() error) error {
	return resilience.Guard(ctx, c.cb, c.cfg, fn)
}

func chunks[T any](items []T, size int) [][]T {
	var out [][]T
	for len(items) > size {
		out = append(out, items[:size])
		items = items[size:]
	}
	if len(items) > 0 {
		out = append(out, items)
	}
	return out
}
