package schema_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/discovery-client/internal/discoverytest"
	"github.com/fivetwenty-io/discovery-client/internal/schema"
	"github.com/fivetwenty-io/discovery-client/pkg/discovery"
)

func fixture(doc string) []byte {
	return []byte(strings.ReplaceAll(doc, discoverytest.RootPlaceholder, "https://www.example.com/"))
}

func TestParse_Plus(t *testing.T) {
	t.Parallel()

	api, err := schema.Parse(fixture(discoverytest.PlusV1))
	require.NoError(t, err)

	assert.Equal(t, "plus", api.Name)
	assert.Equal(t, "v1", api.Version)
	assert.Equal(t, "plus:v1", api.ID)
	assert.Equal(t, "https://www.example.com/plus/v1/", api.MethodBase())
	require.NotNil(t, api.Document)
	assert.NotEmpty(t, api.Document.Raw)

	method := api.Method("activities.list")
	require.NotNil(t, method)
	assert.Equal(t, "plus.activities.list", method.ID)
	assert.Equal(t, "GET", method.HTTPMethod)
	assert.Equal(t, "people/{userId}/activities/{collection}", method.Path)
	assert.Equal(t, []string{"userId", "collection"}, method.ParameterOrder)
	assert.Equal(t, "ActivityFeed", method.ResponseRef)
	assert.Same(t, api, method.API)

	collection, ok := method.Parameter("collection")
	require.True(t, ok)
	assert.Equal(t, discovery.LocationPath, collection.Location)
	assert.True(t, collection.Required)
	assert.Equal(t, []string{"public"}, collection.Enum)
}

func TestParse_MergesGlobalParameters(t *testing.T) {
	t.Parallel()

	api, err := schema.Parse(fixture(discoverytest.PlusV1))
	require.NoError(t, err)

	method := api.Method("plus.activities.list")
	require.NotNil(t, method)

	for _, name := range []string{"alt", "fields", "key", "prettyPrint", "userIp", "maxResults", "pageToken"} {
		param, ok := method.Parameter(name)
		require.True(t, ok, name)
		assert.Equal(t, discovery.LocationQuery, param.Location, name)
	}

	alt, _ := method.Parameter("alt")
	assert.Equal(t, "json", alt.Default)

	other := api.Method("plus.people.get")
	require.NotNil(t, other)

	otherAlt, _ := other.Parameter("alt")
	assert.NotSame(t, alt, otherAlt)
}

func TestParse_MethodParameterOverridesGlobal(t *testing.T) {
	t.Parallel()

	raw := []byte(`{
	  "name": "override", "version": "v1", "rootUrl": "https://example.com/",
	  "parameters": {"alt": {"type": "string", "enum": ["json"], "location": "query"}},
	  "methods": {"get": {"id": "override.get", "path": "x", "httpMethod": "get",
	    "parameters": {"alt": {"type": "string", "enum": ["media"], "location": "query"}}}}
	}`)

	api, err := schema.Parse(raw)
	require.NoError(t, err)

	method := api.Method("get")
	require.NotNil(t, method)
	assert.Equal(t, "GET", method.HTTPMethod)

	alt, ok := method.Parameter("alt")
	require.True(t, ok)
	assert.Equal(t, []string{"media"}, alt.Enum)
}

func TestParse_NestedResourcesAndTopLevelMethods(t *testing.T) {
	t.Parallel()

	api, err := schema.Parse(fixture(discoverytest.AnalyticsV3))
	require.NoError(t, err)

	method := api.Method("analytics.data.ga.get")
	require.NotNil(t, method)
	assert.Equal(t, "data/ga", method.Path)
	assert.Equal(t, []string{"end-date", "ids", "metrics", "start-date"}, method.RequiredParameters())

	ids, _ := method.Parameter("ids")
	require.NotNil(t, ids.Pattern)
	assert.True(t, ids.MatchesPattern("ga:123"))
	assert.False(t, ids.MatchesPattern("xga:123"))

	prediction, err := schema.Parse(fixture(discoverytest.PredictionV12))
	require.NoError(t, err)
	require.NotNil(t, prediction.Method("predict"))
	assert.Len(t, prediction.AllMethods(), 3)
}

func TestParse_SynthesizesMissingIDs(t *testing.T) {
	t.Parallel()

	raw := []byte(`{
	  "name": "noid", "version": "v2", "baseUrl": "https://example.com/noid/v2/",
	  "resources": {"things": {"resources": {"parts": {"methods": {"list": {"path": "parts"}}}}}}
	}`)

	api, err := schema.Parse(raw)
	require.NoError(t, err)

	method := api.Method("things.parts.list")
	require.NotNil(t, method)
	assert.Equal(t, "noid.things.parts.list", method.ID)
	assert.Equal(t, "GET", method.HTTPMethod)
	assert.Equal(t, "https://example.com/noid/v2/", api.MethodBase())
}

func TestParse_MissingLocationDefaultsToQuery(t *testing.T) {
	t.Parallel()

	raw := []byte(`{
	  "name": "loc", "version": "v1", "rootUrl": "https://example.com/",
	  "methods": {"get": {"path": "x", "parameters": {"q": {"type": "string"}}}}
	}`)

	api, err := schema.Parse(raw)
	require.NoError(t, err)

	q, ok := api.Method("get").Parameter("q")
	require.True(t, ok)
	assert.Equal(t, discovery.LocationQuery, q.Location)
	assert.False(t, q.Required)
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want error
	}{
		{name: "not json", raw: `{not json`, want: schema.ErrMalformedDocument},
		{name: "missing name", raw: `{"version": "v1", "rootUrl": "https://x/"}`, want: schema.ErrMalformedDocument},
		{name: "missing version", raw: `{"name": "a", "rootUrl": "https://x/"}`, want: schema.ErrMalformedDocument},
		{name: "missing root", raw: discoverytest.MalformedV1, want: schema.ErrMalformedDocument},
		{
			name: "bad pattern",
			raw:  `{"name": "a", "version": "v1", "rootUrl": "https://x/", "parameters": {"p": {"pattern": "(["}}}`,
			want: schema.ErrInvalidPattern,
		},
		{
			name: "bad location",
			raw:  `{"name": "a", "version": "v1", "rootUrl": "https://x/", "parameters": {"p": {"location": "header"}}}`,
			want: schema.ErrInvalidLocation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := schema.Parse([]byte(tt.raw))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestMethodBaseOverride(t *testing.T) {
	t.Parallel()

	api, err := schema.Parse(fixture(discoverytest.PlusV1))
	require.NoError(t, err)

	api.SetMethodBase("https://localhost:8080/plus/v1/")
	assert.Equal(t, "https://localhost:8080/plus/v1/", api.MethodBase())

	api.SetMethodBase("")
	assert.Equal(t, "https://www.example.com/plus/v1/", api.MethodBase())
}

func TestAPI_MethodAbsent(t *testing.T) {
	t.Parallel()

	api, err := schema.Parse(fixture(discoverytest.PlusV1))
	require.NoError(t, err)

	assert.Nil(t, api.Method("plus.bogus"))
	assert.Nil(t, api.Method("activities.bogus.list"))
	assert.Nil(t, api.Method(""))
	assert.Nil(t, api.Resource("activities").Lookup("bogus"))
	assert.NotNil(t, api.Resource("activities").Lookup("list"))
}
