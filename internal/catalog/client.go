package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/toko-cart/internal/obs"
	"github.com/noah-isme/toko-cart/internal/resilience"
)

// maxBodyBytes caps catalog responses read into memory.
const maxBodyBytes = 1 << 20

// ClientConfig groups Client dependencies. Zero values select defaults.
type ClientConfig struct {
	BaseURL     string
	HTTPClient  *http.Client
	Breaker     *resilience.Breaker
	Timeout     time.Duration
	MaxAttempts int
	BaseBackoff time.Duration
	Jitter      float64
}

// Client is the HTTP implementation of Lookup and Lister.
type Client struct {
	baseURL string
	http    resilience.HTTPClient
}

// NewClient constructs a catalog client for cfg.BaseURL.
func NewClient(cfg ClientConfig) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	return &Client{
		baseURL: base,
		http: resilience.HTTPClient{
			Client:      hc,
			Breaker:     cfg.Breaker,
			Target:      "catalog",
			Timeout:     cfg.Timeout,
			MaxAttempts: cfg.MaxAttempts,
			BaseBackoff: cfg.BaseBackoff,
			Jitter:      cfg.Jitter,
		},
	}
}

// BaseURL returns the normalised catalog root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Product fetches GET {base}/products/{id}.
func (c *Client) Product(ctx context.Context, id string) (Product, error) {
	start := time.Now()
	var p Product
	err := c.getJSON(ctx, "/products/"+url.PathEscape(id), &p)
	obs.ObserveCatalogCall("product", resultLabel(err), time.Since(start))
	if err != nil {
		return Product{}, fmt.Errorf("catalog: get product %q: %w", id, err)
	}
	return p, nil
}

// Products fetches GET {base}/products.
func (c *Client) Products(ctx context.Context) ([]Product, error) {
	start := time.Now()
	var list []Product
	err := c.getJSON(ctx, "/products", &list)
	obs.ObserveCatalogCall("list", resultLabel(err), time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("catalog: list products: %w", err)
	}
	if list == nil {
		list = []Product{}
	}
	return list, nil
}

// Ping checks the catalog answers the listing endpoint without a server error.
func (c *Client) Ping(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/products", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("catalog: unhealthy status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, resilience.ErrOpenCircuit):
		return "circuit_open"
	default:
		return "error"
	}
}
