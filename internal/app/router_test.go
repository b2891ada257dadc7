package app_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/receipt-processor/internal/app"
	"github.com/noah-isme/receipt-processor/internal/config"
	"github.com/noah-isme/receipt-processor/internal/obs"
	"github.com/noah-isme/receipt-processor/internal/receipt"
)

const morningReceipt = `{
	"retailer": "M&M Corner Market",
	"purchaseDate": "2022-03-20",
	"purchaseTime": "14:33",
	"total": "9.00",
	"items": [
		{"shortDescription": "Gatorade", "price": "2.25"},
		{"shortDescription": "Gatorade", "price": "2.25"},
		{"shortDescription": "Gatorade", "price": "2.25"},
		{"shortDescription": "Gatorade", "price": "2.25"}
	]
}`

func testConfig() *config.Config {
	return &config.Config{
		BodyLimitBytes:  1 << 20,
		RateLimitMax:    100,
		RateLimitWindow: time.Minute,
		IdempotencyTTL:  time.Hour,
		SecurityHeaders: true,
	}
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func send(h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouterProcessesReceipts(t *testing.T) {
	store := receipt.NewStore()
	router := app.NewRouter(app.Dependencies{Config: testConfig(), Logger: zerolog.Nop(), Store: store})

	rec := send(router, http.MethodPost, "/receipts/process", morningReceipt, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "100", rec.Header().Get("X-RateLimit-Limit"))

	var created map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	pts := send(router, http.MethodGet, "/receipts/"+created["id"]+"/points", "", nil)
	require.Equal(t, http.StatusOK, pts.Code)
	require.JSONEq(t, `{"points":109}`, pts.Body.String())
	require.Equal(t, 1, store.Count())
}

func TestRouterRateLimitsReceipts(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitMax = 2
	router := app.NewRouter(app.Dependencies{Config: cfg, Logger: zerolog.Nop()})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, send(router, http.MethodGet, "/receipts/unknown/points", "", nil).Code)
	}
	require.Equal(t, []int{http.StatusNotFound, http.StatusNotFound, http.StatusTooManyRequests}, codes)

	require.Equal(t, http.StatusOK, send(router, http.MethodGet, "/health/live", "", nil).Code, "health is not rate limited")
}

func TestRouterRedisBackedLimiter(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitMax = 1
	router := app.NewRouter(app.Dependencies{Config: cfg, Logger: zerolog.Nop(), Redis: newRedis(t)})

	require.Equal(t, http.StatusNotFound, send(router, http.MethodGet, "/receipts/unknown", "", nil).Code)
	require.Equal(t, http.StatusTooManyRequests, send(router, http.MethodGet, "/receipts/unknown", "", nil).Code)
}

func TestRouterIdempotencyKey(t *testing.T) {
	store := receipt.NewStore()
	router := app.NewRouter(app.Dependencies{Config: testConfig(), Logger: zerolog.Nop(), Store: store, Redis: newRedis(t)})
	headers := map[string]string{"Idempotency-Key": "submit-1"}

	first := send(router, http.MethodPost, "/receipts/process", morningReceipt, headers)
	require.Equal(t, http.StatusOK, first.Code)

	replay := send(router, http.MethodPost, "/receipts/process", morningReceipt, headers)
	require.Equal(t, http.StatusConflict, replay.Code)
	require.Equal(t, 1, store.Count())

	dup := send(router, http.MethodPost, "/receipts/process", morningReceipt, nil)
	require.Equal(t, http.StatusBadRequest, dup.Code, "without a key the duplicate check answers")
}

func TestRouterBodyLimit(t *testing.T) {
	cfg := testConfig()
	cfg.BodyLimitBytes = 64
	router := app.NewRouter(app.Dependencies{Config: cfg, Logger: zerolog.Nop()})

	rec := send(router, http.MethodPost, "/receipts/process", morningReceipt, nil)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestRouterReadiness(t *testing.T) {
	store := receipt.NewStore()
	_, err := store.Process(receipt.Input{
		Retailer:     "Target",
		PurchaseDate: "2022-01-01",
		PurchaseTime: "13:01",
		Total:        "1.25",
		Items:        []receipt.ItemInput{{ShortDescription: "Pepsi - 12-oz", Price: "1.25"}},
	})
	require.NoError(t, err)

	without := app.NewRouter(app.Dependencies{Config: testConfig(), Logger: zerolog.Nop(), Store: store})
	rec := send(without, http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"store":"ok","receipts":"1","redis":"disabled"}`, rec.Body.String())

	with := app.NewRouter(app.Dependencies{Config: testConfig(), Logger: zerolog.Nop(), Store: store, Redis: newRedis(t)})
	rec = send(with, http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"store":"ok","receipts":"1","redis":"ok"}`, rec.Body.String())
}

func TestRouterMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	router := app.NewRouter(app.Dependencies{
		Config:      testConfig(),
		Logger:      zerolog.Nop(),
		HTTPMetrics: obs.NewHTTPMetrics("router_test", nil, reg),
		Metrics:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	require.Equal(t, http.StatusNotFound, send(router, http.MethodGet, "/receipts/missing/points", "", nil).Code)

	rec := send(router, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `router_test_http_requests_total{method="GET",route="/receipts/{id}/points",status="404"} 1`)
}

func TestRouterPprofRequiresCredentials(t *testing.T) {
	router := app.NewRouter(app.Dependencies{
		Config: testConfig(),
		Logger: zerolog.Nop(),
		Pprof:  app.PprofConfig{Enabled: true, User: "ops", Pass: "secret"},
	})

	require.Equal(t, http.StatusUnauthorized, send(router, http.MethodGet, "/debug/pprof/", "", nil).Code)

	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
	req.SetBasicAuth("ops", "secret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
