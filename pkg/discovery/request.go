package discovery

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
)

// Request is a transport-ready HTTP request produced by the request generator.
// It is built fresh for every call.
type Request struct {
	HTTPMethod string
	URI        string
	Headers    http.Header
	Body       []byte

	// Method is the discovered method the request was generated from, if any.
	Method *Method

	// Metadata carries values between request and response interceptors.
	Metadata map[string]interface{}
}

// Clone returns a deep copy of the request. The Method pointer is shared.
func (r *Request) Clone() *Request {
	clone := &Request{
		HTTPMethod: r.HTTPMethod,
		URI:        r.URI,
		Headers:    r.Headers.Clone(),
		Method:     r.Method,
	}

	if clone.Headers == nil {
		clone.Headers = make(http.Header)
	}

	if r.Body != nil {
		clone.Body = append([]byte(nil), r.Body...)
	}

	if r.Metadata != nil {
		clone.Metadata = make(map[string]interface{}, len(r.Metadata))
		for k, v := range r.Metadata {
			clone.Metadata[k] = v
		}
	}

	return clone
}

// Response is the transport's view of a completed HTTP exchange.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Result pairs a Request with the Response it produced.
type Result struct {
	Request  *Request
	Response *Response
}

// StatusCode returns the response status, or 0 if there is no response.
func (r *Result) StatusCode() int {
	if r == nil || r.Response == nil {
		return 0
	}

	return r.Response.StatusCode
}

// Success reports whether the response status is 2xx.
func (r *Result) Success() bool {
	status := r.StatusCode()

	return status >= http.StatusOK && status < http.StatusMultipleChoices
}

// MediaType returns the media type of the response body without parameters.
func (r *Result) MediaType() string {
	if r == nil || r.Response == nil {
		return ""
	}

	contentType := r.Response.Headers.Get("Content-Type")
	if contentType == "" {
		return ""
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}

	return mediaType
}

// Decode unmarshals a JSON response body into v.
func (r *Result) Decode(v interface{}) error {
	if r == nil || r.Response == nil {
		return fmt.Errorf("%w: no response", ErrNotJSON)
	}

	if mediaType := r.MediaType(); mediaType != "" && mediaType != "application/json" {
		return fmt.Errorf("%w: %s", ErrNotJSON, mediaType)
	}

	err := json.Unmarshal(r.Response.Body, v)
	if err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}

	return nil
}

// NextPageToken returns the nextPageToken field of a JSON response, or "".
func (r *Result) NextPageToken() string {
	var page struct {
		NextPageToken string `json:"nextPageToken"`
	}

	if err := r.Decode(&page); err != nil {
		return ""
	}

	return page.NextPageToken
}

// APIError returns the error envelope of a failed JSON response, or nil.
func (r *Result) APIError() *APIError {
	if r == nil || r.Response == nil || r.Success() || len(r.Response.Body) == 0 {
		return nil
	}

	apiErr, err := ParseResponseError(r.Response.Body)
	if err != nil {
		return nil
	}

	return apiErr
}
