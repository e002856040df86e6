package client

import (
	"context"
	"fmt"

	"github.com/fivetwenty-io/discovery-client/internal/request"
	"github.com/fivetwenty-io/discovery-client/pkg/discovery"
)

// GenerateRequest implements discovery.RequestGenerator.GenerateRequest.
func (c *Client) GenerateRequest(ctx context.Context, opts discovery.RequestOptions) (*discovery.Request, error) {
	method := opts.Method

	if method == nil {
		if opts.MethodID == "" {
			return nil, &discovery.ValidationError{Field: "method", Message: "no method or method id given", Cause: discovery.ErrMethodRequired}
		}

		var err error

		method, err = c.DiscoveredMethod(ctx, opts.MethodID, opts.APIName, opts.Version)
		if err != nil {
			return nil, err
		}

		if method == nil {
			return nil, &discovery.ValidationError{Field: "method", Value: opts.MethodID, Message: "not found", Cause: discovery.ErrMethodNotFound}
		}
	}

	var authorization discovery.Authorization
	if !opts.Unauthenticated {
		authorization = c.Authorization()
	}

	return request.Generate(ctx, request.Options{
		Method:        method,
		Parameters:    opts.Parameters,
		Body:          opts.Body,
		Headers:       opts.Headers,
		UserAgent:     c.userAgent,
		Authorization: authorization,
	})
}

// Execute implements discovery.Executor.Execute. Every HTTP response becomes
// a Result; only a failed exchange is an error.
func (c *Client) Execute(ctx context.Context, req *discovery.Request) (*discovery.Result, error) {
	if req == nil {
		return nil, &discovery.ValidationError{Field: "request", Message: "must not be nil"}
	}

	sent := req.Clone()
	if sent.Metadata == nil {
		sent.Metadata = make(map[string]interface{})
	}

	err := c.interceptors.ExecuteRequestInterceptors(ctx, sent)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", sent.HTTPMethod, sent.URI, err)
	}

	resp, err := c.transport.Send(ctx, sent)
	if err != nil {
		return nil, &discovery.TransmissionError{URI: sent.URI, Message: "request failed", Cause: err}
	}

	err = c.interceptors.ExecuteResponseInterceptors(ctx, sent, resp)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", sent.HTTPMethod, sent.URI, err)
	}

	return &discovery.Result{Request: sent, Response: resp}, nil
}

// ExecuteStrict implements discovery.Executor.ExecuteStrict: 5xx responses
// become ServerError and other non-2xx responses ClientError.
func (c *Client) ExecuteStrict(ctx context.Context, req *discovery.Request) (*discovery.Result, error) {
	result, err := c.Execute(ctx, req)
	if err != nil {
		return nil, err
	}

	err = classify(result)
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Call implements discovery.Executor.Call.
func (c *Client) Call(ctx context.Context, opts discovery.RequestOptions) (*discovery.Result, error) {
	req, err := c.GenerateRequest(ctx, opts)
	if err != nil {
		return nil, err
	}

	return c.Execute(ctx, req)
}

// CallStrict implements discovery.Executor.CallStrict.
func (c *Client) CallStrict(ctx context.Context, opts discovery.RequestOptions) (*discovery.Result, error) {
	req, err := c.GenerateRequest(ctx, opts)
	if err != nil {
		return nil, err
	}

	return c.ExecuteStrict(ctx, req)
}

func classify(result *discovery.Result) error {
	switch status := result.StatusCode(); {
	case status >= 200 && status <= 299:
		return nil
	case status >= 500:
		return &discovery.ServerError{Result: result}
	default:
		return &discovery.ClientError{Result: result}
	}
}
