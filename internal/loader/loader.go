// Package loader fetches discovery documents and the API directory and keeps
// them cached for the lifetime of the process.
package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"

	"github.com/sourcegraph/conc/pool"
	"golang.org/x/sync/singleflight"

	"github.com/fivetwenty-io/discovery-client/internal/constants"
	"github.com/fivetwenty-io/discovery-client/internal/schema"
	"github.com/fivetwenty-io/discovery-client/pkg/discovery"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_.\-:]+$`)

// Documents and directories are shared by every Loader in the process.
// Keys include the discovery root so loaders pointed at different services
// never see each other's entries.
var (
	documents   sync.Map // documentKey -> *discovery.Document
	directories sync.Map // root -> *discovery.Directory
	group       singleflight.Group
)

// Reset drops every cached document and directory.
func Reset() {
	documents.Range(func(key, _ any) bool {
		documents.Delete(key)

		return true
	})
	directories.Range(func(key, _ any) bool {
		directories.Delete(key)

		return true
	})
}

// ValidateIdentifier checks an API name or version.
func ValidateIdentifier(field, value string) error {
	if value == "" {
		return &discovery.ValidationError{Field: field, Message: "must not be empty", Cause: discovery.ErrInvalidIdentifier}
	}

	if !identifierPattern.MatchString(value) {
		return &discovery.ValidationError{Field: field, Value: value, Message: fmt.Sprintf("%q is not a valid identifier", value), Cause: discovery.ErrInvalidIdentifier}
	}

	return nil
}

// Config configures a Loader.
type Config struct {
	DiscoveryRoot string
	Key           string
	UserIP        string
	UserAgent     string
	Transport     discovery.Transport
	// Cache is an optional backend for raw documents.
	Cache *discovery.CacheManager
	// PreloadConcurrency bounds the workers used by Preload.
	PreloadConcurrency int
	Logger             discovery.Logger
}

// Loader resolves discovery URIs and loads documents through a transport.
type Loader struct {
	root        string
	key         string
	userIP      string
	userAgent   string
	transport   discovery.Transport
	backend     *discovery.CacheManager
	concurrency int
	logger      discovery.Logger
}

// New creates a Loader.
func New(config Config) (*Loader, error) {
	root := strings.TrimRight(config.DiscoveryRoot, "/")
	if root == "" {
		return nil, discovery.ErrDiscoveryRootRequired
	}

	if config.Transport == nil {
		return nil, fmt.Errorf("loader: %w", discovery.ErrConfigRequired)
	}

	loader := &Loader{
		root:        root,
		key:         config.Key,
		userIP:      config.UserIP,
		userAgent:   config.UserAgent,
		transport:   config.Transport,
		backend:     config.Cache,
		concurrency: config.PreloadConcurrency,
		logger:      config.Logger,
	}

	if loader.concurrency <= 0 {
		loader.concurrency = constants.DefaultPreloadConcurrency
	}

	if loader.logger == nil {
		loader.logger = discovery.NopLogger{}
	}

	if loader.userAgent == "" {
		loader.userAgent = constants.DefaultUserAgent
	}

	return loader, nil
}

// Root returns the discovery root without a trailing slash.
func (l *Loader) Root() string {
	return l.root
}

// DiscoveryURI returns <root>/apis/<name>/<version>/rest followed by the key
// and userIp parameters when configured. An empty version resolves to the
// directory's preferred version.
func (l *Loader) DiscoveryURI(ctx context.Context, name, version string) (string, error) {
	name, version, err := l.Resolve(ctx, name, version)
	if err != nil {
		return "", err
	}

	return l.documentURI(name, version), nil
}

func (l *Loader) documentURI(name, version string) string {
	uri := l.root + constants.DirectoryPath + "/" + discovery.EscapeRFC3986(name) + "/" +
		discovery.EscapeRFC3986(version) + "/" + constants.RESTDescriptionSuffix

	return discovery.AppendQuery(uri, l.credentialQuery())
}

func (l *Loader) credentialQuery() string {
	values := make(map[string][]string, 2)

	if l.key != "" {
		values["key"] = []string{l.key}
	}

	if l.userIP != "" {
		values["userIp"] = []string{l.userIP}
	}

	return discovery.EncodeQuery(values)
}

// Resolve validates name and version and fills in the preferred version
// when version is empty.
func (l *Loader) Resolve(ctx context.Context, name, version string) (string, string, error) {
	err := ValidateIdentifier("api", name)
	if err != nil {
		return "", "", err
	}

	if version != "" {
		err = ValidateIdentifier("version", version)
		if err != nil {
			return "", "", err
		}

		return name, version, nil
	}

	directory, err := l.Directory(ctx)
	if err != nil {
		return "", "", err
	}

	item, ok := directory.Preferred(name)
	if !ok {
		return "", "", &discovery.TransmissionError{
			URI:     l.root + constants.DirectoryPath,
			Message: fmt.Sprintf("no preferred version of %q in directory", name),
			Cause:   discovery.ErrNoPreferredVersion,
		}
	}

	return name, item.Version, nil
}

func (l *Loader) documentKey(name, version string) string {
	return l.root + "|" + name + "|" + version
}

// Cached returns a document already in the process cache.
func (l *Loader) Cached(name, version string) (*discovery.Document, bool) {
	value, ok := documents.Load(l.documentKey(name, version))
	if !ok {
		return nil, false
	}

	return value.(*discovery.Document), true
}

// Forget drops the cached document for (name, version).
func (l *Loader) Forget(name, version string) {
	documents.Delete(l.documentKey(name, version))
}

// Fetch returns the parsed document for (name, version), loading it on first
// use. Concurrent callers for the same key share one fetch.
func (l *Loader) Fetch(ctx context.Context, name, version string) (*discovery.Document, error) {
	name, version, err := l.Resolve(ctx, name, version)
	if err != nil {
		return nil, err
	}

	if doc, ok := l.Cached(name, version); ok {
		return doc, nil
	}

	key := l.documentKey(name, version)

	value, err, _ := group.Do(key, func() (interface{}, error) {
		if doc, ok := l.Cached(name, version); ok {
			return doc, nil
		}

		doc, err := l.load(ctx, name, version)
		if err != nil {
			return nil, err
		}

		documents.Store(key, doc)

		return doc, nil
	})
	if err != nil {
		return nil, err
	}

	return value.(*discovery.Document), nil
}

func (l *Loader) load(ctx context.Context, name, version string) (*discovery.Document, error) {
	backendKey := l.backendKey(name, version)

	if raw := l.fromBackend(ctx, backendKey); raw != nil {
		doc, err := schema.ParseDocument(raw)
		if err == nil {
			l.logger.Debug("Discovery document loaded from cache", map[string]interface{}{"api": name, "version": version})

			return doc, nil
		}

		l.logger.Warn("Discarding unparseable cached discovery document", map[string]interface{}{"key": backendKey, "error": err.Error()})
	}

	uri := l.documentURI(name, version)

	l.logger.Debug("Fetching discovery document", map[string]interface{}{"uri": uri})

	resp, err := l.get(ctx, uri)
	if err != nil {
		return nil, err
	}

	doc, err := schema.ParseDocument(resp.Body)
	if err != nil {
		return nil, &discovery.TransmissionError{URI: uri, StatusCode: resp.StatusCode, Message: "unusable discovery document", Cause: err}
	}

	l.toBackend(ctx, backendKey, resp)

	return doc, nil
}

func (l *Loader) get(ctx context.Context, uri string) (*discovery.Response, error) {
	resp, err := l.transport.Send(ctx, &discovery.Request{
		HTTPMethod: http.MethodGet,
		URI:        uri,
		Headers: http.Header{
			"Accept":     []string{constants.DefaultContentType},
			"User-Agent": []string{l.userAgent},
		},
	})
	if err != nil {
		return nil, &discovery.TransmissionError{URI: uri, Message: "request failed", Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		transmissionErr := &discovery.TransmissionError{URI: uri, StatusCode: resp.StatusCode, Cause: discovery.ErrUnexpectedStatus}
		if apiErr, parseErr := discovery.ParseResponseError(resp.Body); parseErr == nil && apiErr != nil {
			transmissionErr.Message = apiErr.Message
		}

		return nil, transmissionErr
	}

	return resp, nil
}

func (l *Loader) backendKey(name, version string) string {
	if l.backend == nil {
		return ""
	}

	return l.backend.GetCacheKey("discovery", name+":"+version, map[string]string{"root": l.root})
}

func (l *Loader) fromBackend(ctx context.Context, key string) []byte {
	if l.backend == nil {
		return nil
	}

	raw, err := l.backend.Get(ctx, key)
	if err != nil {
		l.logger.Debug("Discovery cache miss", map[string]interface{}{"key": key})

		return nil
	}

	return raw
}

func (l *Loader) toBackend(ctx context.Context, key string, resp *discovery.Response) {
	if l.backend == nil {
		return
	}

	err := l.backend.SetWithETag(ctx, key, resp.Body, resp.Headers.Get("ETag"), 0)
	if err != nil {
		l.logger.Warn("Failed to store discovery document in cache", map[string]interface{}{"key": key, "error": err.Error()})
	}
}

// Directory returns the API directory, fetched once per discovery root.
func (l *Loader) Directory(ctx context.Context) (*discovery.Directory, error) {
	if value, ok := directories.Load(l.root); ok {
		return value.(*discovery.Directory), nil
	}

	value, err, _ := group.Do("directory|"+l.root, func() (interface{}, error) {
		if value, ok := directories.Load(l.root); ok {
			return value, nil
		}

		uri := discovery.AppendQuery(l.root+constants.DirectoryPath, l.credentialQuery())

		l.logger.Debug("Fetching discovery directory", map[string]interface{}{"uri": uri})

		resp, err := l.get(ctx, uri)
		if err != nil {
			return nil, err
		}

		var directory discovery.Directory

		err = json.Unmarshal(resp.Body, &directory)
		if err != nil {
			return nil, &discovery.TransmissionError{URI: uri, StatusCode: resp.StatusCode, Message: "unusable directory", Cause: err}
		}

		directories.Store(l.root, &directory)

		return &directory, nil
	})
	if err != nil {
		return nil, err
	}

	return value.(*discovery.Directory), nil
}

// Register parses raw and stores it as the document for (name, version),
// replacing any cached one. The document must describe name and version.
func (l *Loader) Register(name, version string, raw []byte) (*discovery.Document, error) {
	err := ValidateIdentifier("api", name)
	if err != nil {
		return nil, err
	}

	err = ValidateIdentifier("version", version)
	if err != nil {
		return nil, err
	}

	doc, err := schema.ParseDocument(raw)
	if err != nil {
		return nil, &discovery.TransmissionError{Message: fmt.Sprintf("unusable discovery document for %s:%s", name, version), Cause: err}
	}

	if doc.Name != name || doc.Version != version {
		return nil, &discovery.ValidationError{
			Field:   "document",
			Value:   doc.Name + ":" + doc.Version,
			Message: fmt.Sprintf("describes %s:%s, not %s:%s", doc.Name, doc.Version, name, version),
		}
	}

	documents.Store(l.documentKey(name, version), doc)

	return doc, nil
}

// Preload fetches the referenced documents with a bounded number of workers.
func (l *Loader) Preload(ctx context.Context, refs ...discovery.APIRef) error {
	p := pool.New().WithMaxGoroutines(l.concurrency).WithContext(ctx)

	for _, ref := range refs {
		p.Go(func(ctx context.Context) error {
			_, err := l.Fetch(ctx, ref.Name, ref.Version)
			if err != nil {
				return fmt.Errorf("failed to preload %s: %w", ref, err)
			}

			return nil
		})
	}

	return p.Wait()
}
