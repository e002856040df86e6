package discovery_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/discovery-client/pkg/discovery"
)

func TestInterceptorChain(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("runs in registration order", func(t *testing.T) {
		t.Parallel()

		var order []string

		chain := discovery.NewInterceptorChain()
		chain.AddRequestInterceptor(func(ctx context.Context, req *discovery.Request) error {
			order = append(order, "first")

			return nil
		})
		chain.AddRequestInterceptor(func(ctx context.Context, req *discovery.Request) error {
			order = append(order, "second")

			return nil
		})
		chain.AddResponseInterceptor(func(ctx context.Context, req *discovery.Request, resp *discovery.Response) error {
			order = append(order, "response")

			return nil
		})

		assert.Equal(t, 3, chain.Len())

		req := &discovery.Request{HTTPMethod: http.MethodGet}
		require.NoError(t, chain.ExecuteRequestInterceptors(ctx, req))
		require.NoError(t, chain.ExecuteResponseInterceptors(ctx, req, &discovery.Response{StatusCode: http.StatusOK}))
		assert.Equal(t, []string{"first", "second", "response"}, order)
	})

	t.Run("stops at the first failure", func(t *testing.T) {
		t.Parallel()

		errStop := errors.New("stop")
		called := false

		chain := discovery.NewInterceptorChain()
		chain.AddRequestInterceptor(func(ctx context.Context, req *discovery.Request) error {
			return errStop
		})
		chain.AddRequestInterceptor(func(ctx context.Context, req *discovery.Request) error {
			called = true

			return nil
		})

		err := chain.ExecuteRequestInterceptors(ctx, &discovery.Request{})
		require.ErrorIs(t, err, errStop)
		assert.Contains(t, err.Error(), "request interceptor failed")
		assert.False(t, called)
	})

	t.Run("clone is independent", func(t *testing.T) {
		t.Parallel()

		calls := 0

		chain := discovery.NewInterceptorChain()
		chain.AddRequestInterceptor(func(ctx context.Context, req *discovery.Request) error {
			calls++

			return nil
		})

		clone := chain.Clone()
		clone.AddRequestInterceptor(func(ctx context.Context, req *discovery.Request) error {
			calls++

			return nil
		})
		clone.AddResponseInterceptor(func(ctx context.Context, req *discovery.Request, resp *discovery.Response) error {
			return nil
		})

		assert.Equal(t, 1, chain.Len())
		assert.Equal(t, 3, clone.Len())

		require.NoError(t, chain.ExecuteRequestInterceptors(ctx, &discovery.Request{}))
		assert.Equal(t, 1, calls)

		require.NoError(t, clone.ExecuteRequestInterceptors(ctx, &discovery.Request{}))
		assert.Equal(t, 3, calls)

		var empty *discovery.InterceptorChain

		assert.Equal(t, 0, empty.Clone().Len())
	})
}

func TestHeaderInterceptor(t *testing.T) {
	t.Parallel()

	interceptor := discovery.HeaderInterceptor(map[string]string{
		"X-Goog-User-Project": "billing",
		"Accept":              "application/json",
	})

	req := &discovery.Request{Headers: http.Header{"Accept": []string{"text/plain"}}}
	require.NoError(t, interceptor(context.Background(), req))
	assert.Equal(t, "billing", req.Headers.Get("X-Goog-User-Project"))
	assert.Equal(t, "text/plain", req.Headers.Get("Accept"))

	bare := &discovery.Request{}
	require.NoError(t, interceptor(context.Background(), bare))
	assert.Equal(t, "application/json", bare.Headers.Get("Accept"))
}

func TestRateLimiter(t *testing.T) {
	t.Parallel()

	t.Run("burst passes immediately", func(t *testing.T) {
		t.Parallel()

		limiter := discovery.NewRateLimiter(5)
		start := time.Now()

		for range 5 {
			require.NoError(t, limiter.Wait(context.Background()))
		}

		assert.Less(t, time.Since(start), 100*time.Millisecond)
	})

	t.Run("waits for a token", func(t *testing.T) {
		t.Parallel()

		limiter := discovery.NewRateLimiter(20)

		for range 20 {
			require.NoError(t, limiter.Wait(context.Background()))
		}

		start := time.Now()
		require.NoError(t, limiter.Wait(context.Background()))
		assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)
	})

	t.Run("honours cancellation", func(t *testing.T) {
		t.Parallel()

		limiter := discovery.NewRateLimiter(1)
		require.NoError(t, limiter.Wait(context.Background()))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		require.ErrorIs(t, limiter.Wait(ctx), context.DeadlineExceeded)
	})
}

func TestMetricsCollector(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	collector := discovery.NewMetricsCollector()

	var changes []string

	collector.SetOnChange(func(endpoint string, metrics discovery.Metrics) {
		changes = append(changes, endpoint)
	})

	before := discovery.MetricsRequestInterceptor(collector)
	after := discovery.MetricsResponseInterceptor(collector)

	get := &discovery.Request{HTTPMethod: http.MethodGet, Method: &discovery.Method{ID: "plus.people.get"}}
	require.NoError(t, before(ctx, get))
	require.NoError(t, after(ctx, get, &discovery.Response{StatusCode: http.StatusOK}))

	failed := &discovery.Request{HTTPMethod: http.MethodGet, Method: &discovery.Method{ID: "plus.people.get"}}
	require.NoError(t, before(ctx, failed))
	require.NoError(t, after(ctx, failed, &discovery.Response{StatusCode: http.StatusNotFound}))

	raw := &discovery.Request{HTTPMethod: http.MethodPost, URI: "https://example.com/upload"}
	require.NoError(t, after(ctx, raw, &discovery.Response{StatusCode: http.StatusCreated}))

	metrics := collector.GetMetrics("GET plus.people.get")
	require.NotNil(t, metrics)
	assert.Equal(t, int64(2), metrics.TotalRequests)
	assert.Equal(t, int64(1), metrics.TotalErrors)
	assert.False(t, metrics.LastRequestTime.IsZero())

	assert.ElementsMatch(t, []string{"GET plus.people.get", "POST https://example.com/upload"}, collector.Endpoints())
	assert.Equal(t, []string{"GET plus.people.get", "GET plus.people.get", "POST https://example.com/upload"}, changes)
	assert.Nil(t, collector.GetMetrics("DELETE nothing"))
}

func TestLoggingInterceptors(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := discovery.NewSlogLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	req := &discovery.Request{HTTPMethod: http.MethodGet, URI: "https://example.com/x", Method: &discovery.Method{ID: "x.get"}}

	require.NoError(t, discovery.LoggingInterceptor(logger)(context.Background(), req))
	require.NoError(t, discovery.LoggingResponseInterceptor(logger)(context.Background(), req, &discovery.Response{StatusCode: http.StatusBadGateway}))

	output := buf.String()
	assert.Contains(t, output, `msg="API Request"`)
	assert.Contains(t, output, "method_id=x.get")
	assert.Contains(t, output, "level=WARN")
	assert.Contains(t, output, "status_code=502")
}

func TestSlogLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := discovery.NewSlogLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))

	logger.Debug("hidden", nil)
	logger.Info("shown", map[string]interface{}{"b": 2, "a": 1})
	logger.Error("failed", map[string]interface{}{"err": "boom"})

	output := buf.String()
	assert.NotContains(t, output, "hidden")
	assert.Contains(t, output, "msg=shown a=1 b=2")
	assert.Contains(t, output, "level=ERROR msg=failed err=boom")

	assert.NotNil(t, discovery.NewSlogLogger(nil))

	var nop discovery.Logger = discovery.NopLogger{}
	nop.Warn("ignored", nil)
}
