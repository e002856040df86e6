// Package discoveryclient provides the main entry point for creating discovery-driven API clients
package discoveryclient

import (
	"fmt"
	"strings"

	"github.com/fivetwenty-io/discovery-client/internal/auth"
	"github.com/fivetwenty-io/discovery-client/internal/client"
	"github.com/fivetwenty-io/discovery-client/internal/constants"
	discoveryhttp "github.com/fivetwenty-io/discovery-client/internal/http"
	"github.com/fivetwenty-io/discovery-client/internal/loader"
	"github.com/fivetwenty-io/discovery-client/pkg/discovery"
)

// New creates a new discovery client. A nil config uses the public Google
// discovery service without credentials.
func New(config *discovery.Config) (discovery.Client, error) {
	if config == nil {
		config = &discovery.Config{}
	}

	root := strings.TrimRight(config.DiscoveryRoot, "/")
	if root == "" {
		root = constants.DefaultDiscoveryRoot
	}

	if !strings.HasPrefix(root, "http://") && !strings.HasPrefix(root, "https://") {
		root = "https://" + root
	}

	logger := config.Logger
	if logger == nil {
		logger = discovery.NopLogger{}
	}

	userAgent := config.UserAgent
	if userAgent == "" {
		userAgent = constants.DefaultUserAgent
	}

	transport := config.Transport
	if transport == nil {
		transport = newTransport(config, logger, userAgent)
	}

	cache, err := newCacheManager(config.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to create discovery cache: %w", err)
	}

	documents, err := loader.New(loader.Config{
		DiscoveryRoot: root,
		Key:           config.Key,
		UserIP:        config.UserIP,
		UserAgent:     userAgent,
		Transport:     transport,
		Cache:         cache,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create loader: %w", err)
	}

	authorization, err := selectAuthorization(config)
	if err != nil {
		return nil, err
	}

	c, err := client.New(client.Config{
		Loader:        documents,
		Transport:     transport,
		Authorization: authorization,
		Interceptors:  newInterceptors(config, logger),
		UserAgent:     userAgent,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return c, nil
}

func newTransport(config *discovery.Config, logger discovery.Logger, userAgent string) *discoveryhttp.Client {
	opts := []discoveryhttp.Option{
		discoveryhttp.WithLogger(logger),
		discoveryhttp.WithDebug(config.Debug),
		discoveryhttp.WithUserAgent(userAgent),
	}

	if config.HTTPClient != nil {
		opts = append(opts, discoveryhttp.WithHTTPClient(config.HTTPClient))
	}

	if config.HTTPTimeout > 0 {
		opts = append(opts, discoveryhttp.WithTimeout(config.HTTPTimeout))
	}

	if config.RetryMax > 0 {
		waitMin := config.RetryWaitMin
		if waitMin == 0 {
			waitMin = constants.DefaultRetryWaitMin
		}

		waitMax := config.RetryWaitMax
		if waitMax == 0 {
			waitMax = constants.DefaultRetryWaitMax
		}

		opts = append(opts, discoveryhttp.WithRetryConfig(config.RetryMax, waitMin, waitMax))
	}

	return discoveryhttp.NewClient(opts...)
}

func newCacheManager(config *discovery.CacheConfig) (*discovery.CacheManager, error) {
	if config == nil {
		return nil, nil //nolint:nilnil // no backend configured
	}

	backend, err := discovery.NewCacheFromConfig(config)
	if err != nil {
		return nil, err
	}

	return discovery.NewCacheManager(backend, config.Options), nil
}

// newInterceptors returns a copy of the caller's chain followed by the
// interceptors implied by config. config.Interceptors is never modified.
func newInterceptors(config *discovery.Config, logger discovery.Logger) *discovery.InterceptorChain {
	chain := config.Interceptors.Clone()

	if len(config.Headers) > 0 {
		chain.AddRequestInterceptor(discovery.HeaderInterceptor(config.Headers))
	}

	if config.RequestsPerSecond > 0 {
		chain.AddRequestInterceptor(discovery.RateLimitInterceptor(config.RequestsPerSecond))
	}

	if config.Metrics != nil {
		chain.AddRequestInterceptor(discovery.MetricsRequestInterceptor(config.Metrics))
		chain.AddResponseInterceptor(discovery.MetricsResponseInterceptor(config.Metrics))
	}

	if config.Debug && config.Logger != nil {
		chain.AddRequestInterceptor(discovery.LoggingInterceptor(logger))
		chain.AddResponseInterceptor(discovery.LoggingResponseInterceptor(logger))
	}

	return chain
}

// selectAuthorization picks the strategy for config in the documented
// precedence order. It returns nil when no credentials are configured.
func selectAuthorization(config *discovery.Config) (discovery.Authorization, error) {
	switch {
	case config.Authorization != nil:
		return config.Authorization, nil

	case config.OAuth1 != nil:
		if config.OAuth1.ConsumerKey == "" {
			return nil, &discovery.ValidationError{Field: "oauth1.consumer_key", Message: "is required", Cause: auth.ErrConsumerKeyRequired}
		}

		return auth.NewOAuth1(*config.OAuth1), nil

	case config.AccessToken != "" && (config.RefreshToken == "" || config.TokenURL == ""):
		return auth.NewOAuth2WithToken(config.AccessToken), nil

	case config.AccessToken != "" || hasGrant(config):
		if config.TokenURL == "" {
			return nil, &discovery.ValidationError{Field: "token_url", Message: "is required for OAuth2 grants", Cause: auth.ErrTokenURLRequired}
		}

		return auth.NewOAuth2(auth.NewOAuth2TokenManager(&auth.OAuth2Config{
			TokenURL:     config.TokenURL,
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Username:     config.Username,
			Password:     config.Password,
			RefreshToken: config.RefreshToken,
			AccessToken:  config.AccessToken,
			Scopes:       config.Scopes,
			HTTPClient:   config.HTTPClient,
		})), nil

	default:
		return nil, nil //nolint:nilnil // unauthenticated client
	}
}

func hasGrant(config *discovery.Config) bool {
	return (config.ClientID != "" && config.ClientSecret != "") ||
		(config.Username != "" && config.Password != "") ||
		config.RefreshToken != ""
}

// NewWithRoot creates a client for a discovery root without credentials.
func NewWithRoot(root string) (discovery.Client, error) {
	return New(&discovery.Config{
		DiscoveryRoot: root,
	})
}

// NewWithKey creates a client that sends an API key with discovery requests.
func NewWithKey(root, key string) (discovery.Client, error) {
	return New(&discovery.Config{
		DiscoveryRoot: root,
		Key:           key,
	})
}

// NewWithToken creates a client that sends a static OAuth2 access token.
func NewWithToken(root, token string) (discovery.Client, error) {
	return New(&discovery.Config{
		DiscoveryRoot: root,
		AccessToken:   token,
	})
}

// NewWithOAuth1 creates a client that signs requests with OAuth 1.0a.
func NewWithOAuth1(root string, credentials discovery.OAuth1Credentials) (discovery.Client, error) {
	return New(&discovery.Config{
		DiscoveryRoot: root,
		OAuth1:        &credentials,
	})
}

// NewWithClientCredentials creates a client using the OAuth2 client_credentials grant.
func NewWithClientCredentials(root, tokenURL, clientID, clientSecret string, scopes ...string) (discovery.Client, error) {
	return New(&discovery.Config{
		DiscoveryRoot: root,
		TokenURL:      tokenURL,
		ClientID:      clientID,
		ClientSecret:  clientSecret,
		Scopes:        scopes,
	})
}
