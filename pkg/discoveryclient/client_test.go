package discoveryclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/discovery-client/internal/auth"
	"github.com/fivetwenty-io/discovery-client/internal/discoverytest"
	"github.com/fivetwenty-io/discovery-client/pkg/discovery"
	"github.com/fivetwenty-io/discovery-client/pkg/discoveryclient"
)

var peopleGet = discovery.RequestOptions{
	MethodID:   "plus.people.get",
	Parameters: map[string]interface{}{"userId": "me"},
}

func echoOf(t *testing.T, result *discovery.Result) discoverytest.Echo {
	t.Helper()

	var echo discoverytest.Echo

	require.NoError(t, result.Decode(&echo))

	return echo
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("nil config uses the public service", func(t *testing.T) {
		t.Parallel()

		client, err := discoveryclient.New(nil)
		require.NoError(t, err)

		uri, err := client.DiscoveryURI(context.Background(), "plus", "v1")
		require.NoError(t, err)
		assert.Equal(t, "https://www.googleapis.com/discovery/v1/apis/plus/v1/rest", uri)
		assert.Nil(t, client.Authorization())
	})

	t.Run("root is normalized", func(t *testing.T) {
		t.Parallel()

		client, err := discoveryclient.New(&discovery.Config{DiscoveryRoot: "discovery.example.com/v1/"})
		require.NoError(t, err)

		uri, err := client.DiscoveryURI(context.Background(), "plus", "v1")
		require.NoError(t, err)
		assert.Equal(t, "https://discovery.example.com/v1/apis/plus/v1/rest", uri)
	})

	t.Run("unusable cache config", func(t *testing.T) {
		t.Parallel()

		_, err := discoveryclient.New(&discovery.Config{Cache: &discovery.CacheConfig{Type: discovery.CacheTypeNATS}})
		require.ErrorIs(t, err, discovery.ErrNATSConfigRequired)

		_, err = discoveryclient.New(&discovery.Config{Cache: &discovery.CacheConfig{Type: "redis"}})
		require.ErrorIs(t, err, discovery.ErrUnsupportedCacheType)
	})

	t.Run("grant without token url", func(t *testing.T) {
		t.Parallel()

		_, err := discoveryclient.New(&discovery.Config{ClientID: "id", ClientSecret: "secret"})
		require.ErrorIs(t, err, auth.ErrTokenURLRequired)
		require.ErrorIs(t, err, discovery.ErrValidation)
	})

	t.Run("oauth1 without consumer key", func(t *testing.T) {
		t.Parallel()

		_, err := discoveryclient.New(&discovery.Config{OAuth1: &discovery.OAuth1Credentials{ConsumerSecret: "secret"}})
		require.ErrorIs(t, err, auth.ErrConsumerKeyRequired)
	})
}

func TestNewWithKey(t *testing.T) {
	t.Parallel()

	server := discoverytest.NewServer(t)

	client, err := discoveryclient.NewWithKey(server.DiscoveryRoot(), "qwerty")
	require.NoError(t, err)

	uri, err := client.DiscoveryURI(context.Background(), "plus", "v1")
	require.NoError(t, err)
	assert.Equal(t, server.DiscoveryRoot()+"/apis/plus/v1/rest?key=qwerty", uri)

	_, err = client.DiscoveredAPI(context.Background(), "analytics", "v3")
	require.NoError(t, err)
	assert.Equal(t, "key=qwerty", server.LastDocumentQuery("analytics", "v3"))
}

func TestNewWithToken(t *testing.T) {
	t.Parallel()

	server := discoverytest.NewServer(t)

	client, err := discoveryclient.NewWithToken(server.DiscoveryRoot(), discoverytest.ValidToken)
	require.NoError(t, err)

	result, err := client.CallStrict(context.Background(), peopleGet)
	require.NoError(t, err)
	assert.Equal(t, []string{"OAuth " + discoverytest.ValidToken}, echoOf(t, result).Headers["Authorization"])
}

func TestNewWithOAuth1(t *testing.T) {
	t.Parallel()

	server := discoverytest.NewServer(t)

	client, err := discoveryclient.NewWithOAuth1(server.DiscoveryRoot(), discovery.OAuth1Credentials{
		ConsumerKey:    "consumer",
		ConsumerSecret: "secret",
	})
	require.NoError(t, err)

	result, err := client.CallStrict(context.Background(), peopleGet)
	require.NoError(t, err)

	header := echoOf(t, result).Headers["Authorization"]
	require.Len(t, header, 1)
	assert.Contains(t, header[0], `oauth_consumer_key="consumer"`)
	assert.Contains(t, header[0], `oauth_signature_method="HMAC-SHA1"`)
}

func TestNewWithClientCredentials(t *testing.T) {
	t.Parallel()

	server := discoverytest.NewServer(t)

	var grants atomic.Int32

	tokens := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		grants.Add(1)

		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "scope-a", r.PostForm.Get("scope"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": discoverytest.ValidToken,
			"token_type":   "bearer",
			"expires_in":   3600,
		})
	}))
	t.Cleanup(tokens.Close)

	client, err := discoveryclient.NewWithClientCredentials(server.DiscoveryRoot(), tokens.URL, "id", "secret", "scope-a")
	require.NoError(t, err)

	for range 2 {
		result, err := client.CallStrict(context.Background(), peopleGet)
		require.NoError(t, err)
		assert.Equal(t, []string{"OAuth " + discoverytest.ValidToken}, echoOf(t, result).Headers["Authorization"])
	}

	assert.Equal(t, int32(1), grants.Load())
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestNew_Options(t *testing.T) {
	t.Parallel()

	server := discoverytest.NewServer(t)
	ctx := context.Background()

	t.Run("authorization overrides credentials", func(t *testing.T) {
		t.Parallel()

		custom := discovery.AuthorizationFunc(func(_ context.Context, req *discovery.Request) (*discovery.Request, error) {
			signed := req.Clone()
			signed.Headers.Set("Authorization", "OAuth "+discoverytest.ValidToken)

			return signed, nil
		})

		client, err := discoveryclient.New(&discovery.Config{
			DiscoveryRoot: server.DiscoveryRoot(),
			Authorization: custom,
			AccessToken:   "ignored",
		})
		require.NoError(t, err)

		result, err := client.CallStrict(ctx, peopleGet)
		require.NoError(t, err)
		assert.Equal(t, []string{"OAuth " + discoverytest.ValidToken}, echoOf(t, result).Headers["Authorization"])
	})

	t.Run("headers user agent and metrics", func(t *testing.T) {
		t.Parallel()

		metrics := discovery.NewMetricsCollector()

		client, err := discoveryclient.New(&discovery.Config{
			DiscoveryRoot: server.DiscoveryRoot(),
			AccessToken:   discoverytest.ValidToken,
			UserAgent:     "tests/2.0",
			Headers:       map[string]string{"X-Goog-Api-Client": "tests"},
			Metrics:       metrics,
		})
		require.NoError(t, err)

		result, err := client.CallStrict(ctx, peopleGet)
		require.NoError(t, err)

		echo := echoOf(t, result)
		assert.Equal(t, []string{"tests"}, echo.Headers["X-Goog-Api-Client"])
		assert.Equal(t, []string{"tests/2.0"}, echo.Headers["User-Agent"])

		endpoint := metrics.GetMetrics("GET plus.people.get")
		require.NotNil(t, endpoint)
		assert.Equal(t, int64(1), endpoint.TotalRequests)
	})

	t.Run("shared config counts each call once", func(t *testing.T) {
		t.Parallel()

		metrics := discovery.NewMetricsCollector()
		chain := discovery.NewInterceptorChain()

		var seen atomic.Int32

		chain.AddRequestInterceptor(func(_ context.Context, _ *discovery.Request) error {
			seen.Add(1)

			return nil
		})

		config := &discovery.Config{
			DiscoveryRoot: server.DiscoveryRoot(),
			AccessToken:   discoverytest.ValidToken,
			Headers:       map[string]string{"X-Goog-Api-Client": "tests"},
			Metrics:       metrics,
			Interceptors:  chain,
		}

		_, err := discoveryclient.New(config)
		require.NoError(t, err)

		client, err := discoveryclient.New(config)
		require.NoError(t, err)

		assert.Same(t, chain, config.Interceptors)
		assert.Equal(t, 1, chain.Len())

		_, err = client.CallStrict(ctx, peopleGet)
		require.NoError(t, err)

		endpoint := metrics.GetMetrics("GET plus.people.get")
		require.NotNil(t, endpoint)
		assert.Equal(t, int64(1), endpoint.TotalRequests)
		assert.Equal(t, int32(1), seen.Load())
	})

	t.Run("memory cache backend", func(t *testing.T) {
		t.Parallel()

		client, err := discoveryclient.New(&discovery.Config{
			DiscoveryRoot: server.DiscoveryRoot(),
			Cache:         discovery.DefaultCacheConfig(),
		})
		require.NoError(t, err)

		api, err := client.PreferredVersion(ctx, "prediction")
		require.NoError(t, err)
		require.NotNil(t, api)
		assert.Equal(t, "v1.2", api.Version)
	})

	t.Run("rate limited", func(t *testing.T) {
		t.Parallel()

		client, err := discoveryclient.New(&discovery.Config{
			DiscoveryRoot:     server.DiscoveryRoot(),
			RequestsPerSecond: 100,
			RetryMax:          1,
		})
		require.NoError(t, err)

		result, err := client.Call(ctx, peopleGet)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, result.StatusCode())
	})
}
