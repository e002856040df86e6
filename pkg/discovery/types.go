package discovery

import (
	"context"
	"net/http"
	"time"
)

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Transport sends a generated request and returns the completed HTTP exchange.
// Connectivity failures (DNS, refused connections, timeouts) are returned as
// errors; any HTTP response, whatever its status, is returned as a Response.
type Transport interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

// Authorization decorates a generated request with credentials. Implementations
// hold no request-scoped state and return the request they were given, or a
// modified copy of it.
type Authorization interface {
	Sign(ctx context.Context, req *Request) (*Request, error)
}

// AuthorizationFunc adapts a function to the Authorization interface.
type AuthorizationFunc func(ctx context.Context, req *Request) (*Request, error)

// Sign calls f(ctx, req).
func (f AuthorizationFunc) Sign(ctx context.Context, req *Request) (*Request, error) {
	return f(ctx, req)
}

// APIRef names one (api, version) pair. An empty Version means the
// directory's preferred version.
type APIRef struct {
	Name    string `json:"name"    yaml:"name"`
	Version string `json:"version" yaml:"version"`
}

// String returns "name:version".
func (r APIRef) String() string {
	if r.Version == "" {
		return r.Name
	}

	return r.Name + ":" + r.Version
}

// RequestOptions describes a call by a resolved Method or by lookup fields.
type RequestOptions struct {
	// Method is a resolved method. When nil, MethodID (with APIName and
	// Version) is resolved through discovery first.
	Method *Method

	// MethodID is a dotted method id such as "plus.activities.list".
	MethodID string

	// APIName defaults to the first segment of MethodID.
	APIName string

	// Version defaults to the directory's preferred version.
	Version string

	// Parameters holds path and query values. Values are strings, numbers,
	// booleans, or slices of those for repeated parameters.
	Parameters map[string]interface{}

	// Body is attached unmodified.
	Body []byte

	// Headers override computed defaults such as Content-Type.
	Headers http.Header

	// Unauthenticated skips the client's authorization strategy.
	Unauthenticated bool
}

// Resolver turns names and method ids into schema model objects.
type Resolver interface {
	DiscoveryURI(ctx context.Context, name, version string) (string, error)
	DiscoveredAPI(ctx context.Context, name, version string) (*API, error)
	PreferredVersion(ctx context.Context, name string) (*API, error)
	DiscoveredMethod(ctx context.Context, methodID, apiName, version string) (*Method, error)
	DiscoveredAPIs(ctx context.Context) ([]DirectoryItem, error)
}

// RequestGenerator validates parameters and builds transport-ready requests.
type RequestGenerator interface {
	GenerateRequest(ctx context.Context, opts RequestOptions) (*Request, error)
}

// Executor sends generated requests.
//
// Execute returns a Result for every HTTP response, including 4xx and 5xx.
// ExecuteStrict additionally turns non-2xx responses into ClientError or
// ServerError. Call and CallStrict generate the request first.
type Executor interface {
	Execute(ctx context.Context, req *Request) (*Result, error)
	ExecuteStrict(ctx context.Context, req *Request) (*Result, error)
	Call(ctx context.Context, opts RequestOptions) (*Result, error)
	CallStrict(ctx context.Context, opts RequestOptions) (*Result, error)
}

// Client is the discovery-driven API client.
type Client interface {
	Resolver
	RequestGenerator
	Executor

	// Authorization returns the current authorization strategy, or nil.
	Authorization() Authorization

	// SetAuthorization swaps the strategy used for subsequent requests.
	SetAuthorization(auth Authorization)

	// Register seeds the discovery cache with a local document.
	Register(name, version string, raw []byte) (*API, error)

	// Preload fetches several discovery documents concurrently.
	Preload(ctx context.Context, refs ...APIRef) error
}

// OAuth1Credentials are the consumer and token credentials of an OAuth 1.0a
// client.
type OAuth1Credentials struct {
	ConsumerKey    string
	ConsumerSecret string
	Token          string
	TokenSecret    string
	Realm          string
}

// Config represents client configuration for building a discovery.Client.
//
// # Authorization precedence
//
// The concrete client (see pkg/discoveryclient) picks the first that applies:
//  1. Authorization: used as given.
//  2. OAuth1: requests are signed with HMAC-SHA1.
//  3. AccessToken: sent as a static OAuth2 token. With a RefreshToken and
//     TokenURL the token can be renewed.
//  4. ClientID/ClientSecret with TokenURL: OAuth2 client_credentials grant.
//  5. Username/Password with TokenURL: OAuth2 password grant.
//  6. No credentials: requests are sent without authorization.
//
// # Timeouts and retries
//
// Per-request timeouts should generally be controlled via context. Retries
// are off unless RetryMax is positive.
type Config struct {
	// DiscoveryRoot is the directory service root, for example
	// "https://www.googleapis.com/discovery/v1". A trailing slash is trimmed.
	DiscoveryRoot string
	// Key is an API key appended to discovery URIs as "key".
	Key string
	// UserIP is appended to discovery URIs as "userIp".
	UserIP string
	// UserAgent overrides the default User-Agent header.
	UserAgent string
	// Headers are added to every executed request.
	Headers map[string]string

	// Authorization overrides every credential field below.
	Authorization Authorization
	// OAuth1 enables OAuth 1.0a request signing.
	OAuth1 *OAuth1Credentials
	// AccessToken is used directly as an OAuth2 access token.
	AccessToken string
	// RefreshToken renews AccessToken when TokenURL is set.
	RefreshToken string
	// ClientID and ClientSecret select the client_credentials grant.
	ClientID     string
	ClientSecret string
	// Username and Password select the password grant.
	Username string
	Password string
	// TokenURL is the OAuth2 token endpoint.
	TokenURL string
	// Scopes requested by the OAuth2 grants.
	Scopes []string

	// HTTPTimeout bounds a single HTTP exchange. Zero uses the default.
	HTTPTimeout time.Duration
	// RetryMax is the number of retries for connection errors and 5xx/429
	// responses. Zero disables retries.
	RetryMax int
	// RetryWaitMin and RetryWaitMax bound the backoff between retries.
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	// HTTPClient replaces the underlying *http.Client of the default transport.
	HTTPClient *http.Client
	// Transport replaces the default transport entirely.
	Transport Transport
	// RequestsPerSecond enables client-side rate limiting when positive.
	RequestsPerSecond int

	// Cache configures an optional backend for raw discovery documents.
	// Parsed documents are always cached in process.
	Cache *CacheConfig
	// Interceptors are run around every executed request.
	Interceptors *InterceptorChain
	// Metrics collects per-endpoint call statistics when set.
	Metrics *MetricsCollector

	// Debug enables request/response logging when a Logger is provided.
	Debug bool
	// Logger is an optional structured logger.
	Logger Logger
}
