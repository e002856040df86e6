// Package schema builds the discovery.API model from discovery documents.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/fivetwenty-io/discovery-client/pkg/discovery"
)

// Static errors for err113 compliance.
var (
	ErrMalformedDocument = errors.New("malformed discovery document")
	ErrInvalidPattern    = errors.New("invalid parameter pattern")
	ErrInvalidLocation   = errors.New("invalid parameter location")
)

// ParseDocument decodes raw JSON into a Document and checks its required
// top-level fields.
func ParseDocument(raw []byte) (*discovery.Document, error) {
	var doc discovery.Document

	err := json.Unmarshal(raw, &doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}

	err = Validate(&doc)
	if err != nil {
		return nil, err
	}

	doc.Raw = raw

	return &doc, nil
}

// Parse decodes raw JSON and builds the API model from it.
func Parse(raw []byte) (*discovery.API, error) {
	doc, err := ParseDocument(raw)
	if err != nil {
		return nil, err
	}

	return Build(doc)
}

// Validate checks the fields every usable document must declare.
func Validate(doc *discovery.Document) error {
	var missing []string

	if doc.Name == "" {
		missing = append(missing, "name")
	}

	if doc.Version == "" {
		missing = append(missing, "version")
	}

	if doc.RootURL == "" && doc.BaseURL == "" {
		missing = append(missing, "rootUrl/baseUrl")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrMalformedDocument, strings.Join(missing, ", "))
	}

	return nil
}

// Build walks the document's resource tree and returns a fully resolved API.
// Global parameters are merged into every method that does not redeclare them.
func Build(doc *discovery.Document) (*discovery.API, error) {
	err := Validate(doc)
	if err != nil {
		return nil, err
	}

	api := &discovery.API{
		ID:          doc.ID,
		Name:        doc.Name,
		Version:     doc.Version,
		Title:       doc.Title,
		Description: doc.Description,
		RootURL:     doc.RootURL,
		ServicePath: doc.ServicePath,
		BaseURL:     doc.BaseURL,
		BatchPath:   doc.BatchPath,
		Document:    doc,
	}

	if api.ID == "" {
		api.ID = doc.Name + ":" + doc.Version
	}

	globals, err := buildParameters(doc.Parameters)
	if err != nil {
		return nil, err
	}

	b := &builder{api: api, globals: globals}

	api.Methods, err = b.methods(doc.Name, doc.Methods)
	if err != nil {
		return nil, err
	}

	api.Resources, err = b.resources(doc.Name, doc.Resources)
	if err != nil {
		return nil, err
	}

	return api, nil
}

type builder struct {
	api     *discovery.API
	globals map[string]*discovery.Parameter
}

func (b *builder) resources(prefix string, docResources map[string]*discovery.DocumentResource) (map[string]*discovery.Resource, error) {
	if len(docResources) == 0 {
		return nil, nil
	}

	resources := make(map[string]*discovery.Resource, len(docResources))

	for _, name := range sortedKeys(docResources) {
		docResource := docResources[name]
		if docResource == nil {
			continue
		}

		path := prefix + "." + name

		methods, err := b.methods(path, docResource.Methods)
		if err != nil {
			return nil, err
		}

		children, err := b.resources(path, docResource.Resources)
		if err != nil {
			return nil, err
		}

		resources[name] = &discovery.Resource{
			Name:      name,
			Methods:   methods,
			Resources: children,
		}
	}

	return resources, nil
}

func (b *builder) methods(prefix string, docMethods map[string]*discovery.DocumentMethod) (map[string]*discovery.Method, error) {
	if len(docMethods) == 0 {
		return nil, nil
	}

	methods := make(map[string]*discovery.Method, len(docMethods))

	for _, name := range sortedKeys(docMethods) {
		docMethod := docMethods[name]
		if docMethod == nil {
			continue
		}

		method, err := b.method(prefix, name, docMethod)
		if err != nil {
			return nil, err
		}

		methods[name] = method
	}

	return methods, nil
}

func (b *builder) method(prefix, name string, docMethod *discovery.DocumentMethod) (*discovery.Method, error) {
	id := docMethod.ID
	if id == "" {
		id = prefix + "." + name
	}

	own, err := buildParameters(docMethod.Parameters)
	if err != nil {
		return nil, fmt.Errorf("method %s: %w", id, err)
	}

	params := make(map[string]*discovery.Parameter, len(b.globals)+len(own))
	for paramName, param := range b.globals {
		clone := *param
		params[paramName] = &clone
	}

	for paramName, param := range own {
		params[paramName] = param
	}

	httpMethod := strings.ToUpper(docMethod.HTTPMethod)
	if httpMethod == "" {
		httpMethod = "GET"
	}

	method := &discovery.Method{
		ID:             id,
		Name:           name,
		HTTPMethod:     httpMethod,
		Path:           docMethod.Path,
		Description:    docMethod.Description,
		Parameters:     params,
		ParameterOrder: docMethod.ParameterOrder,
		Scopes:         docMethod.Scopes,
		API:            b.api,
	}

	if docMethod.Request != nil {
		method.RequestRef = docMethod.Request.Ref
	}

	if docMethod.Response != nil {
		method.ResponseRef = docMethod.Response.Ref
	}

	if upload := docMethod.MediaUpload; upload != nil {
		method.MediaUpload = &discovery.MediaUpload{
			Accept:  upload.Accept,
			MaxSize: upload.MaxSize,
		}

		if upload.Protocols.Simple != nil {
			method.MediaUpload.SimplePath = upload.Protocols.Simple.Path
			method.MediaUpload.Multipart = upload.Protocols.Simple.Multipart
		}

		if upload.Protocols.Resumable != nil {
			method.MediaUpload.ResumablePath = upload.Protocols.Resumable.Path
		}
	}

	return method, nil
}

func buildParameters(docParams map[string]*discovery.DocumentParam) (map[string]*discovery.Parameter, error) {
	params := make(map[string]*discovery.Parameter, len(docParams))

	for _, name := range sortedKeys(docParams) {
		docParam := docParams[name]
		if docParam == nil {
			continue
		}

		param, err := buildParameter(name, docParam)
		if err != nil {
			return nil, err
		}

		params[name] = param
	}

	return params, nil
}

func buildParameter(name string, docParam *discovery.DocumentParam) (*discovery.Parameter, error) {
	location := discovery.ParameterLocation(strings.ToLower(docParam.Location))

	switch location {
	case "":
		location = discovery.LocationQuery
	case discovery.LocationPath, discovery.LocationQuery:
	default:
		return nil, fmt.Errorf("%w: parameter %q has location %q", ErrInvalidLocation, name, docParam.Location)
	}

	paramType := docParam.Type
	if paramType == "" {
		paramType = discovery.TypeString
	}

	param := &discovery.Parameter{
		Name:        name,
		Location:    location,
		Type:        paramType,
		Format:      docParam.Format,
		Description: docParam.Description,
		Required:    docParam.Required || location == discovery.LocationPath,
		Repeated:    docParam.Repeated,
		Enum:        docParam.Enum,
		Default:     docParam.Default,
		Minimum:     docParam.Minimum,
		Maximum:     docParam.Maximum,
	}

	if docParam.Pattern != "" {
		// Patterns constrain the whole value.
		pattern, err := regexp.Compile(`^(?:` + docParam.Pattern + `)$`)
		if err != nil {
			return nil, fmt.Errorf("%w: parameter %q: %w", ErrInvalidPattern, name, err)
		}

		param.Pattern = pattern
	}

	return param, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}
