package downloader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{Attempts: 3, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond, RequestTimeout: time.Second}
}

func TestFetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	d := New(testConfig(), nil)
	body, err := d.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
}

func TestFetch_NotFoundDoesNotRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	d := New(testConfig(), nil)
	_, err := d.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestFetch_RetriesOn5xxThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	d := New(testConfig(), nil)
	body, err := d.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestFetch_ExhaustsRetriesAsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	d := New(testConfig(), nil)
	_, err := d.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	var netErr *NetworkError
	require.True(t, errors.As(err, &netErr))
}

func TestFetch_ClientErrorDoesNotRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	d := New(testConfig(), nil)
	_, err := d.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	var ce *ClientError
	require.True(t, errors.As(err, &ce))
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestJitteredBackoff_StaysWithinPlusMinus20Percent(t *testing.T) {
	cfg := &retry.Config{}
	retry.Attempts(4)(cfg)
	retry.Delay(100 * time.Millisecond)(cfg)
	retry.MaxDelay(10 * time.Second)(cfg)

	base := retry.BackOffDelay(1, nil, cfg)
	for i := 0; i < 50; i++ {
		got := jitteredBackoff(1, nil, cfg)
		assert.InEpsilon(t, float64(base), float64(got), 0.2)
	}
}

func TestFetch_SendsCustomHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	d := New(testConfig(), map[string]string{"X-Api-Key": "secret"})
	_, err := d.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
}
