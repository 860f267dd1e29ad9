package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kairos/internal/domain/entity"
	"kairos/internal/infrastructure/logger"
)

const page = `<html><head><title>Shop</title><script>track()</script></head>
<body><h1 data-x="1">Catalog</h1><button aria-label="Add to cart" onclick="add()">Add</button></body></html>`

func TestFetch_ReturnsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		fmt.Fprint(w, page)
	}))
	defer server.Close()

	body, err := New(Config{}).Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, page, body)
}

func TestFetch_Cleaned(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer server.Close()

	body, err := New(Config{Clean: true, Logger: logger.NewNop()}).Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Contains(t, body, "<h1>Catalog</h1>")
	assert.Contains(t, body, `aria-label="Add to cart"`)
	assert.NotContains(t, body, "track()")
	assert.NotContains(t, body, "onclick")
}

func TestFetch_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := New(Config{}).Fetch(context.Background(), server.URL)
	require.ErrorIs(t, err, entity.ErrFetch)
	assert.Contains(t, err.Error(), server.URL)
	assert.Contains(t, err.Error(), "status 404")
}

func TestFetch_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	_, err := New(Config{Timeout: 20 * time.Millisecond}).Fetch(context.Background(), server.URL)
	assert.ErrorIs(t, err, entity.ErrFetch)
}

func TestFetch_InvalidURL(t *testing.T) {
	_, err := New(Config{}).Fetch(context.Background(), "://bad")
	assert.ErrorIs(t, err, entity.ErrFetch)
}

func TestFetch_BodyLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "0123456789")
	}))
	defer server.Close()

	body, err := New(Config{MaxBytes: 4}).Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "0123", body)
}
