package catalog_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-cart/internal/catalog"
)

func newCatalogServer(t *testing.T) *httptest.Server {
	t.Helper()
	products := map[string]string{
		"cornflakes": `{"id":"cornflakes","title":"Corn Flakes","price":2.52}`,
		"weetabix":   `{"id":"weetabix","title":"Weetabix","price":"9.98"}`,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/products", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("[" + products["cornflakes"] + "," + products["weetabix"] + "]"))
	})
	mux.HandleFunc("/products/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/products/")
		switch id {
		case "broken":
			_, _ = w.Write([]byte(`{"id":`))
		case "boom":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			body, ok := products[id]
			if !ok {
				http.NotFound(w, r)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(body))
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientProduct(t *testing.T) {
	srv := newCatalogServer(t)
	client := catalog.NewClient(catalog.ClientConfig{BaseURL: srv.URL + "/"})
	require.Equal(t, srv.URL, client.BaseURL())

	p, err := client.Product(context.Background(), "cornflakes")
	require.NoError(t, err)
	require.Equal(t, "cornflakes", p.ID)
	require.Equal(t, "Corn Flakes", p.Title)
	require.Equal(t, "2.52", p.Price.StringFixed(2))

	p, err = client.Product(context.Background(), "weetabix")
	require.NoError(t, err)
	require.Equal(t, "9.98", p.Price.StringFixed(2), "quoted prices decode too")
}

func TestClientProductFailures(t *testing.T) {
	srv := newCatalogServer(t)
	client := catalog.NewClient(catalog.ClientConfig{BaseURL: srv.URL, BaseBackoff: time.Millisecond})

	_, err := client.Product(context.Background(), "missing")
	require.ErrorIs(t, err, catalog.ErrNotFound)

	_, err = client.Product(context.Background(), "broken")
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode response")

	_, err = client.Product(context.Background(), "boom")
	require.Error(t, err)
	require.False(t, errors.Is(err, catalog.ErrNotFound))
}

func TestClientTransportError(t *testing.T) {
	srv := newCatalogServer(t)
	base := srv.URL
	srv.Close()

	client := catalog.NewClient(catalog.ClientConfig{BaseURL: base})
	_, err := client.Product(context.Background(), "cornflakes")
	require.Error(t, err)
}

func TestClientProducts(t *testing.T) {
	srv := newCatalogServer(t)
	client := catalog.NewClient(catalog.ClientConfig{BaseURL: srv.URL})

	list, err := client.Products(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "Weetabix", list[1].Title)
}

func TestClientEscapesProductID(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "a/b", "title": "Slash", "price": 1})
	}))
	defer srv.Close()

	client := catalog.NewClient(catalog.ClientConfig{BaseURL: srv.URL})
	_, err := client.Product(context.Background(), "a/b")
	require.NoError(t, err)
	require.Equal(t, "/products/a%2Fb", gotPath)
}

func TestClientPing(t *testing.T) {
	srv := newCatalogServer(t)
	client := catalog.NewClient(catalog.ClientConfig{BaseURL: srv.URL})
	require.NoError(t, client.Ping(context.Background(), time.Second))

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer failing.Close()
	require.Error(t, catalog.NewClient(catalog.ClientConfig{BaseURL: failing.URL}).Ping(context.Background(), time.Second))
}

func TestDefaultBaseURL(t *testing.T) {
	client := catalog.NewClient(catalog.ClientConfig{})
	require.Equal(t, "http://localhost:3001", client.BaseURL())
}
