package client

import (
	"context"
	"strings"

	"github.com/fivetwenty-io/discovery-client/internal/loader"
	"github.com/fivetwenty-io/discovery-client/pkg/discovery"
)

// DiscoveryURI implements discovery.Resolver.DiscoveryURI.
func (c *Client) DiscoveryURI(ctx context.Context, name, version string) (string, error) {
	return c.loader.DiscoveryURI(ctx, name, version)
}

// DiscoveredAPI implements discovery.Resolver.DiscoveredAPI. An empty
// version selects the directory's preferred version.
func (c *Client) DiscoveredAPI(ctx context.Context, name, version string) (*discovery.API, error) {
	name, version, err := c.loader.Resolve(ctx, name, version)
	if err != nil {
		return nil, err
	}

	doc, err := c.loader.Fetch(ctx, name, version)
	if err != nil {
		return nil, err
	}

	key := apiKey(name, version)
	if cached, ok := c.apis.Load(key); ok && cached.(*discovery.API).Document == doc {
		return cached.(*discovery.API), nil
	}

	api, err := build(doc)
	if err != nil {
		return nil, err
	}

	return c.storeAPI(key, api), nil
}

// storeAPI caches api under key and returns the model callers should use. A
// cached model of the same document wins, a model of any other document is
// replaced.
func (c *Client) storeAPI(key string, api *discovery.API) *discovery.API {
	for {
		cached, loaded := c.apis.LoadOrStore(key, api)
		if !loaded {
			return api
		}

		if current := cached.(*discovery.API); current.Document == api.Document {
			return current
		}

		if c.apis.CompareAndSwap(key, cached, api) {
			return api
		}
	}
}

// PreferredVersion implements discovery.Resolver.PreferredVersion. It
// returns nil when the directory flags no version of name as preferred.
func (c *Client) PreferredVersion(ctx context.Context, name string) (*discovery.API, error) {
	err := loader.ValidateIdentifier("api", name)
	if err != nil {
		return nil, err
	}

	directory, err := c.loader.Directory(ctx)
	if err != nil {
		return nil, err
	}

	item, ok := directory.Preferred(name)
	if !ok {
		return nil, nil //nolint:nilnil // absence is not an error
	}

	return c.DiscoveredAPI(ctx, name, item.Version)
}

// DiscoveredMethod implements discovery.Resolver.DiscoveredMethod. The API
// name defaults to the first segment of methodID. It returns nil when the
// API has no such method.
func (c *Client) DiscoveredMethod(ctx context.Context, methodID, apiName, version string) (*discovery.Method, error) {
	if methodID == "" {
		return nil, &discovery.ValidationError{Field: "method", Message: "must not be empty", Cause: discovery.ErrInvalidIdentifier}
	}

	if apiName == "" {
		apiName, _, _ = strings.Cut(methodID, ".")
	}

	api, err := c.DiscoveredAPI(ctx, apiName, version)
	if err != nil {
		return nil, err
	}

	return api.Method(methodID), nil
}

// DiscoveredAPIs implements discovery.Resolver.DiscoveredAPIs.
func (c *Client) DiscoveredAPIs(ctx context.Context) ([]discovery.DirectoryItem, error) {
	directory, err := c.loader.Directory(ctx)
	if err != nil {
		return nil, err
	}

	return append([]discovery.DirectoryItem(nil), directory.Items...), nil
}
