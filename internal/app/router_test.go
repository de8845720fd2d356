package app_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-cart/internal/app"
	"github.com/noah-isme/toko-cart/internal/config"
)

type catalogServer struct {
	*httptest.Server
	productHits atomic.Int64
}

func newCatalogServer(t *testing.T) *catalogServer {
	t.Helper()
	cs := &catalogServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/products", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"cornflakes","title":"Corn Flakes","price":2.52},{"id":"weetabix","title":"Weetabix","price":9.98}]`))
	})
	mux.HandleFunc("/products/cornflakes", func(w http.ResponseWriter, _ *http.Request) {
		cs.productHits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cornflakes","title":"Corn Flakes","price":2.52}`))
	})
	mux.HandleFunc("/products/weetabix", func(w http.ResponseWriter, _ *http.Request) {
		cs.productHits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"weetabix","title":"Weetabix","price":9.98}`))
	})
	cs.Server = httptest.NewServer(mux)
	t.Cleanup(cs.Close)
	return cs
}

func testConfig(catalogURL string) *config.Config {
	return &config.Config{
		AppEnv: "test",
		Catalog: config.CatalogConfig{
			BaseURL:             catalogURL,
			Timeout:             time.Second,
			RetryMaxAttempts:    1,
			BreakerMinRequests:  5,
			BreakerFailureRatio: 0.5,
			BreakerOpenFor:      time.Second,
		},
		Cart: config.CartConfig{IdleTTL: time.Hour, SweepInterval: time.Minute},
		HTTP: config.HTTPConfig{
			RateLimitMax:    100,
			RateLimitWindow: time.Minute,
			BodyLimitBytes:  1024,
		},
		Obs: config.ObsConfig{
			MetricsNamespace: "toko_cart_test",
			EnablePrometheus: true,
		},
	}
}

func send(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type cartResponse struct {
	Data struct {
		CartID   string      `json:"cartId"`
		Subtotal json.Number `json:"subtotal"`
		Tax      json.Number `json:"tax"`
		Total    json.Number `json:"total"`
		Items    []struct {
			ID       string `json:"id"`
			Quantity int    `json:"quantity"`
		} `json:"items"`
	} `json:"data"`
}

func TestRouterCartFlowWithRedis(t *testing.T) {
	catalogSrv := newCatalogServer(t)
	mr := miniredis.RunT(t)

	cfg := testConfig(catalogSrv.URL)
	cfg.RedisURL = "redis://" + mr.Addr()
	cfg.Catalog.CacheTTL = time.Minute

	reg := prometheus.NewRegistry()
	deps, closeFn, err := app.NewDependencies(context.Background(), cfg, zerolog.Nop(), reg)
	require.NoError(t, err)
	t.Cleanup(closeFn)
	deps.Health.SetReady(true)
	router := app.NewRouter(deps, reg)

	rec := send(t, router, http.MethodGet, "/health/ready", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var ready map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ready))
	require.Equal(t, "ok", ready["catalog"])
	require.Equal(t, "ok", ready["redis"])

	rec = send(t, router, http.MethodPost, "/api/v1/carts", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	require.NotEmpty(t, rec.Header().Get("X-RateLimit-Remaining"))
	var created cartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	itemsPath := "/api/v1/carts/" + created.Data.CartID + "/items"

	for _, body := range []string{
		`{"productId":"cornflakes","quantity":1}`,
		`{"productId":"cornflakes","quantity":1}`,
		`{"productId":"weetabix","quantity":1}`,
	} {
		rec = send(t, router, http.MethodPost, itemsPath, body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	// the second cornflakes add is served from the product cache
	require.Equal(t, int64(2), catalogSrv.productHits.Load())
	require.True(t, mr.Exists("catalog:product:cornflakes"))

	rec = send(t, router, http.MethodGet, "/api/v1/carts/"+created.Data.CartID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got cartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Data.Items, 2)
	require.Equal(t, 2, got.Data.Items[0].Quantity)
	require.Equal(t, "15.02", got.Data.Subtotal.String())
	require.Equal(t, "1.88", got.Data.Tax.String())
	require.Equal(t, "16.90", got.Data.Total.String())

	rec = send(t, router, http.MethodGet, "/api/v1/products", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Weetabix")

	rec = send(t, router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "toko_cart_test_http_requests_total")
	require.Contains(t, rec.Body.String(), "db_client_connections", "redis pool metrics are exported")
}

func TestRouterMemoryRateLimitAndBodyLimit(t *testing.T) {
	catalogSrv := newCatalogServer(t)
	cfg := testConfig(catalogSrv.URL)
	cfg.HTTP.RateLimitMax = 3
	cfg.HTTP.BodyLimitBytes = 32
	cfg.Obs.EnablePrometheus = false

	deps, closeFn, err := app.NewDependencies(context.Background(), cfg, zerolog.Nop(), prometheus.NewRegistry())
	require.NoError(t, err)
	t.Cleanup(closeFn)
	router := app.NewRouter(deps, nil)

	rec := send(t, router, http.MethodGet, "/health/ready", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = send(t, router, http.MethodPost, "/api/v1/carts", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var created cartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	big := `{"productId":"cornflakes","quantity":1,"pad":"` + strings.Repeat("x", 64) + `"}`
	rec = send(t, router, http.MethodPost, "/api/v1/carts/"+created.Data.CartID+"/items", big)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = send(t, router, http.MethodGet, "/api/v1/products", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = send(t, router, http.MethodGet, "/api/v1/products", "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = send(t, router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewDependenciesRejectsBadRedisURL(t *testing.T) {
	cfg := testConfig("http://localhost:3001")
	cfg.RedisURL = "not-a-url://"
	_, closeFn, err := app.NewDependencies(context.Background(), cfg, zerolog.Nop(), prometheus.NewRegistry())
	require.Error(t, err)
	closeFn()
}

func TestRunSweeperStopsOnCancel(t *testing.T) {
	catalogSrv := newCatalogServer(t)
	deps, closeFn, err := app.NewDependencies(context.Background(), testConfig(catalogSrv.URL), zerolog.Nop(), prometheus.NewRegistry())
	require.NoError(t, err)
	t.Cleanup(closeFn)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		app.RunSweeper(ctx, deps.Store, 5*time.Millisecond, zerolog.Nop())
		close(done)
	}()
	cancel()
	require.Eventually(t, func() bool {
		select {
		case <-done:
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}
