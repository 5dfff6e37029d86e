package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func newTestClient(opts ...ClientOption) *Client {
	base := []ClientOption{
		WithLogger(arbor.NewLogger()),
		WithRetry(2, time.Millisecond),
		WithRateLimit(0),
	}
	return NewClient(append(base, opts...)...)
}

func TestClient_GetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "55126", r.URL.Query().Get("restId"))
		assert.Equal(t, "imtiazsuperstore", r.Header.Get("app-name"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":200,"data":{"name":"x"}}`))
	}))
	defer server.Close()

	var out struct {
		Status int `json:"status"`
		Data   struct {
			Name string `json:"name"`
		} `json:"data"`
	}
	err := newTestClient().GetJSON(context.Background(), Request{
		URL:     server.URL + "/api/geofence",
		Query:   url.Values{"restId": {"55126"}},
		Headers: map[string]string{"app-name": "imtiazsuperstore"},
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, 200, out.Status)
	assert.Equal(t, "x", out.Data.Name)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	_, err := newTestClient().Get(context.Background(), Request{URL: server.URL})
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_GivesUpAfterRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestClient().Get(context.Background(), Request{URL: server.URL})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("missing"))
	}))
	defer server.Close()

	_, err := newTestClient().Get(context.Background(), Request{URL: server.URL})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "missing", apiErr.Message)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_ProxyWrapsTarget(t *testing.T) {
	var seen url.Values
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.URL.Query()
		_, _ = w.Write([]byte(`{}`))
	}))
	defer proxy.Close()

	client := newTestClient(WithProxy(proxy.URL+"/v1/", "secret"))
	_, err := client.Get(context.Background(), Request{
		URL:      "https://admin.metro-online.pk/api/read/Stores",
		Query:    url.Values{"limit": {"100"}},
		UseProxy: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "secret", seen.Get("api_key"))
	assert.Equal(t, "https://admin.metro-online.pk/api/read/Stores?limit=100", seen.Get("url"))
}

func TestProxyURL(t *testing.T) {
	got := ProxyURL("https://proxy.scrapeops.io/v1/", "k", "https://a.b/c?d=1")
	assert.Equal(t, "https://proxy.scrapeops.io/v1/?api_key=k&url=https%3A%2F%2Fa.b%2Fc%3Fd%3D1", got)
}

func TestClient_ProxyFromContext(t *testing.T) {
	var seen url.Values
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.URL.Query()
		_, _ = w.Write([]byte(`{}`))
	}))
	defer proxy.Close()

	client := newTestClient(WithProxy(proxy.URL+"/v1/", "secret"))
	ctx := ContextWithProxy(context.Background(), true)
	_, err := client.Get(ctx, Request{URL: "https://shop.imtiaz.com.pk/api/geofence"})
	require.NoError(t, err)
	assert.Equal(t, "https://shop.imtiaz.com.pk/api/geofence", seen.Get("url"))
}
