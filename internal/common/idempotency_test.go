package common

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestIdemRejectsReplayedKey(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	calls := 0
	handler := Idem{R: client, TTL: time.Minute}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/receipts/process", nil)
	req.Header.Set(IdempotencyHeader, "abc")

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, req.Clone(req.Context()))
	require.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, req.Clone(req.Context()))
	require.Equal(t, http.StatusConflict, second.Code)
	require.JSONEq(t, `{"message":"duplicate request","code":"IDEMPOTENT_REPLAY"}`, second.Body.String())
	require.Equal(t, 1, calls)

	mr.FastForward(2 * time.Minute)
	third := httptest.NewRecorder()
	handler.ServeHTTP(third, req.Clone(req.Context()))
	require.Equal(t, http.StatusOK, third.Code)
}

func TestIdemReleasesKeyAfterFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	statuses := []int{http.StatusBadRequest, http.StatusInternalServerError, http.StatusOK}
	calls := 0
	handler := Idem{R: client, TTL: time.Hour}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		JSONMessage(w, statuses[calls], "attempt")
		calls++
	}))

	req := httptest.NewRequest(http.MethodPost, "/receipts/process", nil)
	req.Header.Set(IdempotencyHeader, "retry-me")
	for _, want := range statuses {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req.Clone(req.Context()))
		require.Equal(t, want, rr.Code)
	}
	require.Equal(t, 3, calls)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req.Clone(req.Context()))
	require.Equal(t, http.StatusConflict, rr.Code, "a successful attempt keeps the key")
	require.Equal(t, 3, calls)
}

func TestIdemReleasesKeyAfterPanic(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	handler := Idem{R: client}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	req := httptest.NewRequest(http.MethodPost, "/receipts/process", nil)
	req.Header.Set(IdempotencyHeader, "panics")
	require.Panics(t, func() { handler.ServeHTTP(httptest.NewRecorder(), req) })
	require.Empty(t, mr.Keys())
}

func TestIdemPassThrough(t *testing.T) {
	calls := 0
	handler := Idem{}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/receipts/process", nil)
		req.Header.Set(IdempotencyHeader, "abc")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
	}
	require.Equal(t, 2, calls)
}

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, NotFound("No receipt found with id=x", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.JSONEq(t, `{"message":"No receipt found with id=x"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	WriteError(rr, http.ErrAbortHandler)
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.JSONEq(t, `{"message":"internal error"}`, rr.Body.String())
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	require.Equal(t, "10.0.0.1", ClientIP(req))

	req.RemoteAddr = "203.0.113.9"
	require.Equal(t, "203.0.113.9", ClientIP(req), "RealIP leaves a bare address")

	req.RemoteAddr = "[2001:db8::1]:443"
	require.Equal(t, "2001:db8::1", ClientIP(req))
}

func TestIdemKeyIsHashed(t *testing.T) {
	key := Idem{Prefix: "p:"}.key("abc")
	require.Equal(t, "p:ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", key)
	require.Equal(t, 24*time.Hour, Idem{}.ttl())
}
