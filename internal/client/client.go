// Package client implements discovery.Client: it resolves APIs and methods
// through the loader, generates requests and executes them.
package client

import (
	"context"
	"sync"

	"github.com/fivetwenty-io/discovery-client/internal/loader"
	"github.com/fivetwenty-io/discovery-client/internal/schema"
	"github.com/fivetwenty-io/discovery-client/pkg/discovery"
)

// Config holds the collaborators of a Client.
type Config struct {
	Loader        *loader.Loader
	Transport     discovery.Transport
	Authorization discovery.Authorization
	Interceptors  *discovery.InterceptorChain
	UserAgent     string
	Logger        discovery.Logger
}

// Client implements the discovery.Client interface.
type Client struct {
	loader       *loader.Loader
	transport    discovery.Transport
	interceptors *discovery.InterceptorChain
	userAgent    string
	logger       discovery.Logger

	authMu        sync.RWMutex
	authorization discovery.Authorization

	// apis holds the models built by this client, keyed by name:version.
	// Models carry a mutable method base, so they are not shared between
	// clients even though documents are. A model is rebuilt once the
	// process-wide document it was built from is replaced.
	apis sync.Map
}

// New creates a Client.
func New(config Config) (*Client, error) {
	if config.Loader == nil || config.Transport == nil {
		return nil, discovery.ErrConfigRequired
	}

	c := &Client{
		loader:        config.Loader,
		transport:     config.Transport,
		interceptors:  config.Interceptors,
		userAgent:     config.UserAgent,
		logger:        config.Logger,
		authorization: config.Authorization,
	}

	if c.interceptors == nil {
		c.interceptors = discovery.NewInterceptorChain()
	}

	if c.logger == nil {
		c.logger = discovery.NopLogger{}
	}

	return c, nil
}

// Authorization implements discovery.Client.Authorization.
func (c *Client) Authorization() discovery.Authorization {
	c.authMu.RLock()
	defer c.authMu.RUnlock()

	return c.authorization
}

// SetAuthorization implements discovery.Client.SetAuthorization. Requests
// generated after the call use the new strategy.
func (c *Client) SetAuthorization(auth discovery.Authorization) {
	c.authMu.Lock()
	defer c.authMu.Unlock()

	c.authorization = auth
}

// Register implements discovery.Client.Register. The document replaces the
// process-wide one for (name, version), so every client sharing the
// discovery root serves it from its next DiscoveredAPI call. Models other
// clients built earlier, and any method base set on them, are dropped then.
func (c *Client) Register(name, version string, raw []byte) (*discovery.API, error) {
	doc, err := c.loader.Register(name, version, raw)
	if err != nil {
		return nil, err
	}

	api, err := build(doc)
	if err != nil {
		return nil, err
	}

	c.apis.Store(apiKey(name, version), api)

	c.logger.Debug("Registered discovery document", map[string]interface{}{"api": name, "version": version})

	return api, nil
}

// Preload implements discovery.Client.Preload.
func (c *Client) Preload(ctx context.Context, refs ...discovery.APIRef) error {
	return c.loader.Preload(ctx, refs...)
}

func apiKey(name, version string) string {
	return name + ":" + version
}

func build(doc *discovery.Document) (*discovery.API, error) {
	api, err := schema.Build(doc)
	if err != nil {
		return nil, &discovery.TransmissionError{
			Message: "unusable discovery document for " + apiKey(doc.Name, doc.Version),
			Cause:   err,
		}
	}

	return api, nil
}

var _ discovery.Client = (*Client)(nil)
