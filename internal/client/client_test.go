package client_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/discovery-client/internal/auth"
	"github.com/fivetwenty-io/discovery-client/internal/client"
	"github.com/fivetwenty-io/discovery-client/internal/discoverytest"
	discoveryhttp "github.com/fivetwenty-io/discovery-client/internal/http"
	"github.com/fivetwenty-io/discovery-client/internal/loader"
	"github.com/fivetwenty-io/discovery-client/pkg/discovery"
)

func newClient(t *testing.T, server *discoverytest.Server, mutate ...func(*client.Config)) *client.Client {
	t.Helper()

	transport := discoveryhttp.NewClient()

	l, err := loader.New(loader.Config{DiscoveryRoot: server.DiscoveryRoot(), Transport: transport})
	require.NoError(t, err)

	config := client.Config{Loader: l, Transport: transport}
	for _, fn := range mutate {
		fn(&config)
	}

	c, err := client.New(config)
	require.NoError(t, err)

	return c
}

func withToken(token string) func(*client.Config) {
	return func(c *client.Config) {
		c.Authorization = auth.NewOAuth2WithToken(token)
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := client.New(client.Config{})
	require.ErrorIs(t, err, discovery.ErrConfigRequired)
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_Resolver(t *testing.T) {
	t.Parallel()

	server := discoverytest.NewServer(t)
	ctx := context.Background()

	t.Run("discovered API", func(t *testing.T) {
		t.Parallel()

		c := newClient(t, server)

		api, err := c.DiscoveredAPI(ctx, "plus", "v1")
		require.NoError(t, err)
		assert.Equal(t, "plus", api.Name)
		assert.Equal(t, "v1", api.Version)
		assert.Equal(t, server.Root()+"plus/v1/", api.MethodBase())

		again, err := c.DiscoveredAPI(ctx, "plus", "")
		require.NoError(t, err)
		assert.Same(t, api, again)
	})

	t.Run("unknown API", func(t *testing.T) {
		t.Parallel()

		c := newClient(t, server)

		_, err := c.DiscoveredAPI(ctx, "bogus", "v1")
		require.ErrorIs(t, err, discovery.ErrTransmission)

		_, err = c.DiscoveredAPI(ctx, "bogus", "")
		require.ErrorIs(t, err, discovery.ErrTransmission)
	})

	t.Run("malformed identifiers fail before any I/O", func(t *testing.T) {
		t.Parallel()

		closed := discoverytest.NewServer(t)
		c := newClient(t, closed)
		closed.Close()

		_, err := c.DiscoveredAPI(ctx, "", "v1")
		require.ErrorIs(t, err, discovery.ErrValidation)

		_, err = c.DiscoveredAPI(ctx, "plus", "v1/../v2")
		require.ErrorIs(t, err, discovery.ErrValidation)

		_, err = c.PreferredVersion(ctx, "bad name")
		require.ErrorIs(t, err, discovery.ErrValidation)

		_, err = c.DiscoveredMethod(ctx, "", "", "")
		require.ErrorIs(t, err, discovery.ErrValidation)
	})

	t.Run("preferred version", func(t *testing.T) {
		t.Parallel()

		c := newClient(t, server)

		api, err := c.PreferredVersion(ctx, "prediction")
		require.NoError(t, err)
		require.NotNil(t, api)
		assert.Equal(t, "v1.2", api.Version)

		api, err = c.PreferredVersion(ctx, "bogus")
		require.NoError(t, err)
		assert.Nil(t, api)
	})

	t.Run("discovered method", func(t *testing.T) {
		t.Parallel()

		c := newClient(t, server)

		method, err := c.DiscoveredMethod(ctx, "plus.activities.list", "", "")
		require.NoError(t, err)
		require.NotNil(t, method)
		assert.Equal(t, "GET", method.HTTPMethod)

		method, err = c.DiscoveredMethod(ctx, "activities.list", "plus", "v1")
		require.NoError(t, err)
		require.NotNil(t, method)
		assert.Equal(t, "plus.activities.list", method.ID)

		method, err = c.DiscoveredMethod(ctx, "data.ga.get", "analytics", "v3")
		require.NoError(t, err)
		require.NotNil(t, method)

		method, err = c.DiscoveredMethod(ctx, "plus.bogus.list", "", "")
		require.NoError(t, err)
		assert.Nil(t, method)

		method, err = c.DiscoveredMethod(ctx, "plus.activities", "", "")
		require.NoError(t, err)
		assert.Nil(t, method)
	})

	t.Run("directory listing", func(t *testing.T) {
		t.Parallel()

		items, err := newClient(t, server).DiscoveredAPIs(ctx)
		require.NoError(t, err)
		assert.Len(t, items, len(discoverytest.DefaultEntries()))
	})

	t.Run("discovery URI", func(t *testing.T) {
		t.Parallel()

		uri, err := newClient(t, server).DiscoveryURI(ctx, "analytics", "")
		require.NoError(t, err)
		assert.Equal(t, server.DiscoveryRoot()+"/apis/analytics/v3/rest", uri)
	})
}

func TestClient_MethodBaseIsPerClient(t *testing.T) {
	t.Parallel()

	server := discoverytest.NewServer(t)
	ctx := context.Background()

	first := newClient(t, server)
	second := newClient(t, server)

	api, err := first.DiscoveredAPI(ctx, "plus", "v1")
	require.NoError(t, err)

	api.SetMethodBase("http://localhost:1/base/")

	other, err := second.DiscoveredAPI(ctx, "plus", "v1")
	require.NoError(t, err)
	assert.Equal(t, server.Root()+"plus/v1/", other.MethodBase())
	assert.Same(t, api.Document, other.Document)
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_Execute(t *testing.T) {
	t.Parallel()

	server := discoverytest.NewServer(t)
	ctx := context.Background()
	peopleGet := discovery.RequestOptions{MethodID: "plus.people.get", Parameters: map[string]interface{}{"userId": "me"}}

	t.Run("401 is a result", func(t *testing.T) {
		t.Parallel()

		c := newClient(t, server)

		req, err := c.GenerateRequest(ctx, peopleGet)
		require.NoError(t, err)

		result, err := c.Execute(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, result.StatusCode())
		assert.False(t, result.Success())
		require.NotNil(t, result.APIError())
		assert.Equal(t, "Login Required", result.APIError().Message)

		_, err = c.ExecuteStrict(ctx, req)
		require.ErrorIs(t, err, discovery.ErrClient)
		assert.True(t, discovery.IsUnauthorized(err))

		var clientErr *discovery.ClientError

		require.ErrorAs(t, err, &clientErr)
		assert.Equal(t, http.StatusUnauthorized, clientErr.Result.StatusCode())
	})

	t.Run("authorized call", func(t *testing.T) {
		t.Parallel()

		c := newClient(t, server, withToken(discoverytest.ValidToken))

		result, err := c.CallStrict(ctx, peopleGet)
		require.NoError(t, err)
		assert.True(t, result.Success())
		assert.Equal(t, "application/json", result.MediaType())

		var echo discoverytest.Echo

		require.NoError(t, result.Decode(&echo))
		assert.Equal(t, "/plus/v1/people/me", echo.Path)
		assert.Equal(t, []string{"OAuth " + discoverytest.ValidToken}, echo.Headers["Authorization"])
		assert.Equal(t, "page-2", result.NextPageToken())
	})

	t.Run("unauthenticated option skips the strategy", func(t *testing.T) {
		t.Parallel()

		c := newClient(t, server, withToken(discoverytest.ValidToken))

		opts := peopleGet
		opts.Unauthenticated = true

		result, err := c.Call(ctx, opts)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, result.StatusCode())
	})

	t.Run("authorization can be swapped between calls", func(t *testing.T) {
		t.Parallel()

		c := newClient(t, server)
		assert.Nil(t, c.Authorization())

		c.SetAuthorization(auth.NewOAuth1(discovery.OAuth1Credentials{ConsumerKey: "anonymous", ConsumerSecret: "anonymous"}))

		result, err := c.CallStrict(ctx, peopleGet)
		require.NoError(t, err)
		assert.Regexp(t, `^OAuth `, result.Request.Headers.Get("Authorization"))

		c.SetAuthorization(nil)

		result, err = c.Call(ctx, peopleGet)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, result.StatusCode())
	})

	t.Run("5xx is a server error", func(t *testing.T) {
		t.Parallel()

		c := newClient(t, server)
		req := &discovery.Request{HTTPMethod: "GET", URI: server.URL + "/analytics/v3/fail-server"}

		result, err := c.Execute(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, result.StatusCode())

		_, err = c.ExecuteStrict(ctx, req)
		require.ErrorIs(t, err, discovery.ErrServer)
		assert.NotErrorIs(t, err, discovery.ErrClient)
	})

	t.Run("connection failure is a transmission error", func(t *testing.T) {
		t.Parallel()

		closed := discoverytest.NewServer(t)
		uri := closed.URL + "/analytics/v3/data/ga"
		closed.Close()

		_, err := newClient(t, server).Execute(ctx, &discovery.Request{HTTPMethod: "GET", URI: uri})
		require.ErrorIs(t, err, discovery.ErrTransmission)
	})

	t.Run("unknown method", func(t *testing.T) {
		t.Parallel()

		_, err := newClient(t, server).Call(ctx, discovery.RequestOptions{MethodID: "plus.bogus.get"})
		require.ErrorIs(t, err, discovery.ErrValidation)
		require.ErrorIs(t, err, discovery.ErrMethodNotFound)

		_, err = newClient(t, server).Call(ctx, discovery.RequestOptions{})
		require.ErrorIs(t, err, discovery.ErrMethodRequired)
	})

	t.Run("missing required parameter", func(t *testing.T) {
		t.Parallel()

		own := discoverytest.NewServer(t)
		c := newClient(t, own, withToken(discoverytest.ValidToken))

		_, err := c.CallStrict(ctx, discovery.RequestOptions{MethodID: "plus.people.get"})
		require.ErrorIs(t, err, discovery.ErrParameterValidation)
		assert.Zero(t, own.APICalls())
	})

	t.Run("nil request", func(t *testing.T) {
		t.Parallel()

		_, err := newClient(t, server).Execute(ctx, nil)
		require.ErrorIs(t, err, discovery.ErrValidation)
	})
}

func TestClient_Interceptors(t *testing.T) {
	t.Parallel()

	server := discoverytest.NewServer(t)
	metrics := discovery.NewMetricsCollector()

	chain := discovery.NewInterceptorChain()
	chain.AddRequestInterceptor(discovery.HeaderInterceptor(map[string]string{"X-Goog-Api-Client": "test"}))
	chain.AddRequestInterceptor(discovery.MetricsRequestInterceptor(metrics))
	chain.AddResponseInterceptor(discovery.MetricsResponseInterceptor(metrics))

	c := newClient(t, server, func(config *client.Config) { config.Interceptors = chain })

	opts := discovery.RequestOptions{MethodID: "analytics.management.accounts.list"}

	req, err := c.GenerateRequest(context.Background(), opts)
	require.NoError(t, err)

	result, err := c.ExecuteStrict(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "test", result.Request.Headers.Get("X-Goog-Api-Client"))
	assert.Empty(t, req.Headers.Get("X-Goog-Api-Client"))

	m := metrics.GetMetrics("GET analytics.management.accounts.list")
	require.NotNil(t, m)
	assert.Equal(t, int64(1), m.TotalRequests)
	assert.Zero(t, m.TotalErrors)
}

func TestClient_Register(t *testing.T) {
	t.Parallel()

	server := discoverytest.NewServer(t)
	c := newClient(t, server)

	api, err := c.Register("prediction", "v1.3", server.Document("prediction", "v1.3"))
	require.NoError(t, err)
	assert.NotNil(t, api.Method("prediction.training.insert"))

	found, err := c.DiscoveredAPI(context.Background(), "prediction", "v1.3")
	require.NoError(t, err)
	assert.Same(t, api, found)
	assert.Equal(t, 0, server.Fetches("prediction", "v1.3"))

	require.NoError(t, c.Preload(context.Background(), discovery.APIRef{Name: "analytics", Version: "v3"}))
	assert.Equal(t, 1, server.Fetches("analytics", "v3"))

	_, err = c.Register("prediction", "v1.3", server.Document("prediction", "v1.2"))
	require.ErrorIs(t, err, discovery.ErrValidation)

	found, err = c.DiscoveredAPI(context.Background(), "prediction", "v1.3")
	require.NoError(t, err)
	assert.Same(t, api, found)
}

func TestClient_RegisterReachesOtherClients(t *testing.T) {
	t.Parallel()

	server := discoverytest.NewServer(t)
	ctx := context.Background()

	first := newClient(t, server)
	second := newClient(t, server)

	before, err := first.DiscoveredAPI(ctx, "plus", "v1")
	require.NoError(t, err)
	assert.Same(t, before, mustDiscover(t, first, "plus", "v1"))

	local := strings.Replace(discoverytest.PlusV1, `"title": "Plus API"`, `"title": "Local Plus"`, 1)

	registered, err := second.Register("plus", "v1", discoverytest.WithRoot(local, server.Root()))
	require.NoError(t, err)

	after, err := first.DiscoveredAPI(ctx, "plus", "v1")
	require.NoError(t, err)
	assert.NotSame(t, before, after)
	assert.Same(t, registered.Document, after.Document)
	assert.Equal(t, "Local Plus", after.Document.Title)
	assert.Same(t, after, mustDiscover(t, first, "plus", "v1"))
	assert.Equal(t, 1, server.Fetches("plus", "v1"))
}

func mustDiscover(t *testing.T, c *client.Client, name, version string) *discovery.API {
	t.Helper()

	api, err := c.DiscoveredAPI(context.Background(), name, version)
	require.NoError(t, err)

	return api
}
