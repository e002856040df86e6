package discovery

import (
	"regexp"
	"slices"
	"sort"
	"strings"
	"sync"
)

// ParameterLocation says where a parameter value goes in a generated request.
type ParameterLocation string

const (
	// LocationPath parameters are substituted into the path template.
	LocationPath ParameterLocation = "path"

	// LocationQuery parameters are appended to the query string.
	LocationQuery ParameterLocation = "query"
)

// Parameter type names used by discovery documents.
const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeAny     = "any"
)

// Parameter is the declared schema of one method parameter.
type Parameter struct {
	Name        string            `json:"name"                  yaml:"name"`
	Location    ParameterLocation `json:"location"              yaml:"location"`
	Type        string            `json:"type"                  yaml:"type"`
	Format      string            `json:"format,omitempty"      yaml:"format,omitempty"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool              `json:"required"              yaml:"required"`
	Repeated    bool              `json:"repeated"              yaml:"repeated"`
	Pattern     *regexp.Regexp    `json:"-"                     yaml:"-"`
	Enum        []string          `json:"enum,omitempty"        yaml:"enum,omitempty"`
	Default     string            `json:"default,omitempty"     yaml:"default,omitempty"`
	Minimum     string            `json:"minimum,omitempty"     yaml:"minimum,omitempty"`
	Maximum     string            `json:"maximum,omitempty"     yaml:"maximum,omitempty"`
}

// AllowsEnumValue reports whether value is acceptable for the parameter's enum.
// Parameters without an enum accept any value.
func (p *Parameter) AllowsEnumValue(value string) bool {
	if len(p.Enum) == 0 {
		return true
	}

	return slices.Contains(p.Enum, value)
}

// MatchesPattern reports whether value satisfies the parameter's pattern.
// Parameters without a pattern accept any value.
func (p *Parameter) MatchesPattern(value string) bool {
	if p.Pattern == nil {
		return true
	}

	return p.Pattern.MatchString(value)
}

// MediaUpload describes the upload endpoints of a method that accepts media.
type MediaUpload struct {
	Accept        []string `json:"accept,omitempty"        yaml:"accept,omitempty"`
	MaxSize       string   `json:"maxSize,omitempty"       yaml:"maxSize,omitempty"`
	SimplePath    string   `json:"simplePath,omitempty"    yaml:"simplePath,omitempty"`
	ResumablePath string   `json:"resumablePath,omitempty" yaml:"resumablePath,omitempty"`
	Multipart     bool     `json:"multipart"               yaml:"multipart"`
}

// Method is one callable operation of an API.
type Method struct {
	ID             string                `json:"id"                       yaml:"id"`
	Name           string                `json:"name"                     yaml:"name"`
	HTTPMethod     string                `json:"httpMethod"               yaml:"httpMethod"`
	Path           string                `json:"path"                     yaml:"path"`
	Description    string                `json:"description,omitempty"    yaml:"description,omitempty"`
	Parameters     map[string]*Parameter `json:"parameters,omitempty"     yaml:"parameters,omitempty"`
	ParameterOrder []string              `json:"parameterOrder,omitempty" yaml:"parameterOrder,omitempty"`
	RequestRef     string                `json:"request,omitempty"        yaml:"request,omitempty"`
	ResponseRef    string                `json:"response,omitempty"       yaml:"response,omitempty"`
	Scopes         []string              `json:"scopes,omitempty"         yaml:"scopes,omitempty"`
	MediaUpload    *MediaUpload          `json:"mediaUpload,omitempty"    yaml:"mediaUpload,omitempty"`

	// API is the description the method belongs to.
	API *API `json:"-" yaml:"-"`
}

// Parameter returns the declared parameter with the given name.
func (m *Method) Parameter(name string) (*Parameter, bool) {
	param, ok := m.Parameters[name]

	return param, ok
}

// ParameterNames returns the declared parameter names in lexicographic order.
func (m *Method) ParameterNames() []string {
	names := make([]string, 0, len(m.Parameters))
	for name := range m.Parameters {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// RequiredParameters returns the names of required parameters in lexicographic order.
func (m *Method) RequiredParameters() []string {
	var names []string

	for _, name := range m.ParameterNames() {
		if m.Parameters[name].Required {
			names = append(names, name)
		}
	}

	return names
}

// Resource is a named grouping of methods and nested resources.
type Resource struct {
	Name      string               `json:"name"                yaml:"name"`
	Resources map[string]*Resource `json:"resources,omitempty" yaml:"resources,omitempty"`
	Methods   map[string]*Method   `json:"methods,omitempty"   yaml:"methods,omitempty"`
}

// Lookup walks a dotted path ("sub.method") below this resource.
// It returns nil when any segment is absent.
func (r *Resource) Lookup(path string) *Method {
	if r == nil || path == "" {
		return nil
	}

	return lookupMethod(r.Resources, r.Methods, strings.Split(path, "."))
}

func lookupMethod(resources map[string]*Resource, methods map[string]*Method, segments []string) *Method {
	for i, segment := range segments {
		if i == len(segments)-1 {
			return methods[segment]
		}

		next, ok := resources[segment]
		if !ok || next == nil {
			return nil
		}

		resources, methods = next.Resources, next.Methods
	}

	return nil
}

// API is the in-memory model of one discovered (name, version).
type API struct {
	ID          string               `json:"id"                    yaml:"id"`
	Name        string               `json:"name"                  yaml:"name"`
	Version     string               `json:"version"               yaml:"version"`
	Title       string               `json:"title,omitempty"       yaml:"title,omitempty"`
	Description string               `json:"description,omitempty" yaml:"description,omitempty"`
	RootURL     string               `json:"rootUrl,omitempty"     yaml:"rootUrl,omitempty"`
	ServicePath string               `json:"servicePath,omitempty" yaml:"servicePath,omitempty"`
	BaseURL     string               `json:"baseUrl,omitempty"     yaml:"baseUrl,omitempty"`
	BatchPath   string               `json:"batchPath,omitempty"   yaml:"batchPath,omitempty"`
	Resources   map[string]*Resource `json:"resources,omitempty"   yaml:"resources,omitempty"`
	Methods     map[string]*Method   `json:"methods,omitempty"     yaml:"methods,omitempty"`

	// Document is the raw document this description was built from. It is
	// shared with the loader cache and must not be modified.
	Document *Document `json:"-" yaml:"-"`

	mu         sync.RWMutex
	methodBase string
}

// MethodBase returns the effective base URI that method paths are joined to.
// It defaults to RootURL+ServicePath, falling back to BaseURL.
func (a *API) MethodBase() string {
	a.mu.RLock()
	override := a.methodBase
	a.mu.RUnlock()

	if override != "" {
		return override
	}

	if a.RootURL != "" {
		return a.RootURL + a.ServicePath
	}

	return a.BaseURL
}

// SetMethodBase overrides the base URI used for generated requests. An empty
// base restores the default.
func (a *API) SetMethodBase(base string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.methodBase = base
}

// Method resolves a dotted method id ("resource.sub.method"). A leading
// segment equal to the API name is accepted, so "plus.activities.list" and
// "activities.list" both resolve. It returns nil when the method is absent.
func (a *API) Method(methodID string) *Method {
	if methodID == "" {
		return nil
	}

	segments := strings.Split(methodID, ".")
	if method := lookupMethod(a.Resources, a.Methods, segments); method != nil {
		return method
	}

	if len(segments) > 1 && segments[0] == a.Name {
		if method := lookupMethod(a.Resources, a.Methods, segments[1:]); method != nil {
			return method
		}
	}

	for _, method := range a.AllMethods() {
		if method.ID == methodID {
			return method
		}
	}

	return nil
}

// AllMethods returns every method of the API ordered by id.
func (a *API) AllMethods() []*Method {
	var methods []*Method

	for _, method := range a.Methods {
		methods = append(methods, method)
	}

	stack := make([]*Resource, 0, len(a.Resources))
	for _, resource := range a.Resources {
		stack = append(stack, resource)
	}

	for len(stack) > 0 {
		resource := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, method := range resource.Methods {
			methods = append(methods, method)
		}

		for _, child := range resource.Resources {
			stack = append(stack, child)
		}
	}

	sort.Slice(methods, func(i, j int) bool {
		return methods[i].ID < methods[j].ID
	})

	return methods
}

// Resource returns the top-level resource with the given name.
func (a *API) Resource(name string) *Resource {
	return a.Resources[name]
}
