package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestFetcher(t *testing.T) *CollyFetcher {
	t.Helper()
	f := NewCollyFetcher(Config{Timeout: 5 * time.Second}, NewLimiter(0), zap.NewNop())
	t.Cleanup(f.Close)
	return f
}

func TestFetchReturnsBody(t *testing.T) {
	t.Parallel()

	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("<html><body>catalog</body></html>")) //nolint:errcheck
	}))
	defer srv.Close()

	f := NewCollyFetcher(Config{
		UserAgent: "catalog-test-agent",
		Timeout:   5 * time.Second,
	}, NewLimiter(0), zap.NewNop())
	defer f.Close()

	body, ok := f.Fetch(context.Background(), srv.URL)
	require.True(t, ok)
	require.Contains(t, string(body), "catalog")
	require.Equal(t, "catalog-test-agent", gotUA)
}

func TestFetchSendsHeaderOverrides(t *testing.T) {
	t.Parallel()

	var gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("Accept-Language")
		w.Write([]byte("ok page")) //nolint:errcheck
	}))
	defer srv.Close()

	f := newTestFetcher(t)
	_, ok := f.Fetch(context.Background(), srv.URL)
	require.True(t, ok)
	require.Equal(t, DefaultHeaders()["Accept-Language"], gotAccept)
}

func TestFetchNonSuccessStatusIsUnavailable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := newTestFetcher(t)
	body, ok := f.Fetch(context.Background(), srv.URL)
	require.False(t, ok)
	require.Nil(t, body)
}

func TestFetchNetworkFailureIsUnavailable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // refuse connections

	f := newTestFetcher(t)
	_, ok := f.Fetch(context.Background(), srv.URL)
	require.False(t, ok)
}

func TestFetchCanceledMidRequest(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Hold the response until the test lets go, so cancellation
		// lands while the request is in flight.
		select {
		case <-release:
		case <-r.Context().Done():
		}
		w.Write([]byte("late page")) //nolint:errcheck
	}))

	f := newTestFetcher(t)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	body, ok := f.Fetch(ctx, srv.URL)
	require.False(t, ok)
	require.Nil(t, body)
	require.Less(t, time.Since(start), 3*time.Second)

	close(release)
	srv.Close()
}

func TestFetchHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := NewCollyFetcher(Config{Timeout: time.Second}, NewLimiter(time.Minute), zap.NewNop())
	defer f.Close()

	start := time.Now()
	_, ok := f.Fetch(ctx, "http://127.0.0.1:1/never")
	require.False(t, ok)
	require.Less(t, time.Since(start), time.Second)
}
