// Package request turns a discovered method and caller arguments into a
// transport-ready discovery.Request.
package request

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/fivetwenty-io/discovery-client/internal/constants"
	"github.com/fivetwenty-io/discovery-client/pkg/discovery"
)

// Static errors for err113 compliance.
var (
	errUnsupportedValue = errors.New("unsupported parameter value")
	errNestedList       = errors.New("nested lists are not supported")
	errInvalidPath      = errors.New("invalid method path")
	errInvalidBase      = errors.New("invalid method base")
)

// Options are the inputs of one request generation.
type Options struct {
	Method     *discovery.Method
	Parameters map[string]interface{}
	Body       []byte
	Headers    http.Header
	UserAgent  string

	// Authorization signs the request. Nil leaves it undecorated.
	Authorization discovery.Authorization
}

// Generate validates opts against the method schema and builds the request.
// Validation failures are reported before any I/O.
func Generate(ctx context.Context, opts Options) (*discovery.Request, error) {
	method := opts.Method
	if method == nil {
		return nil, &discovery.ValidationError{Field: "method", Message: "no method given", Cause: discovery.ErrMethodRequired}
	}

	if method.API == nil {
		return nil, &discovery.ValidationError{Field: "method", Value: method.ID, Message: "method is not attached to an API"}
	}

	values, err := validate(method, opts.Parameters)
	if err != nil {
		return nil, err
	}

	template, err := parsePath(method.Path)
	if err != nil {
		return nil, &discovery.ValidationError{Field: "path", Value: method.Path, Cause: err}
	}

	pathValues := make(map[string][]string)
	queryValues := make(map[string][]string)

	for name, value := range values {
		if method.Parameters[name].Location != discovery.LocationPath {
			queryValues[name] = value

			continue
		}

		if !template.references(name) {
			return nil, &discovery.ParameterValidationError{
				Method:    method.ID,
				Parameter: name,
				Value:     opts.Parameters[name],
				Message:   "is a path parameter not referenced by " + strconv.Quote(method.Path),
			}
		}

		pathValues[name] = value
	}

	uri, err := buildURI(method, template, pathValues)
	if err != nil {
		return nil, &discovery.ValidationError{Field: "path", Value: method.Path, Cause: err}
	}

	req := &discovery.Request{
		HTTPMethod: method.HTTPMethod,
		URI:        discovery.AppendQuery(uri, discovery.EncodeQuery(queryValues)),
		Headers:    buildHeaders(opts),
		Method:     method,
		Metadata:   make(map[string]interface{}),
	}

	if len(opts.Body) > 0 {
		req.Body = opts.Body
	}

	if opts.Authorization == nil {
		return req, nil
	}

	signed, err := opts.Authorization.Sign(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to authorize request for %s: %w", method.ID, err)
	}

	return signed, nil
}

// validate checks every parameter and returns the wire strings per name.
func validate(method *discovery.Method, params map[string]interface{}) (map[string][]string, error) {
	values := make(map[string][]string, len(params))

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		param, ok := method.Parameter(name)
		if !ok {
			return nil, &discovery.ParameterValidationError{
				Method:    method.ID,
				Parameter: name,
				Value:     params[name],
				Message:   "is not a parameter of this method",
			}
		}

		strs, isList, err := stringify(params[name])
		if err != nil {
			return nil, &discovery.ParameterValidationError{Method: method.ID, Parameter: name, Value: params[name], Message: err.Error()}
		}

		if strs == nil {
			continue
		}

		if isList && !param.Repeated {
			return nil, &discovery.ParameterValidationError{Method: method.ID, Parameter: name, Value: params[name], Message: "does not accept multiple values"}
		}

		for _, value := range strs {
			if msg := checkValue(param, value); msg != "" {
				return nil, &discovery.ParameterValidationError{Method: method.ID, Parameter: name, Value: value, Message: msg}
			}
		}

		values[name] = strs
	}

	for _, name := range method.RequiredParameters() {
		if len(values[name]) == 0 {
			return nil, &discovery.ParameterValidationError{Method: method.ID, Parameter: name, Message: "is required"}
		}
	}

	return values, nil
}

func buildURI(method *discovery.Method, template *pathTemplate, pathValues map[string][]string) (string, error) {
	path, err := template.expand(pathValues)
	if err != nil {
		return "", err
	}

	return joinBase(method.API.MethodBase(), path)
}

func buildHeaders(opts Options) http.Header {
	headers := make(http.Header)

	if len(opts.Body) > 0 {
		headers.Set("Content-Type", constants.DefaultContentType)
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = constants.DefaultUserAgent
	}

	headers.Set("User-Agent", userAgent)

	for name, values := range opts.Headers {
		if len(values) == 0 {
			continue
		}

		headers[http.CanonicalHeaderKey(strings.TrimSpace(name))] = append([]string(nil), values...)
	}

	return headers
}
