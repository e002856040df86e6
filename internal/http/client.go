// Package http is the default transport of the discovery client, built on
// hashicorp/go-retryablehttp.
package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/fivetwenty-io/discovery-client/internal/constants"
	"github.com/fivetwenty-io/discovery-client/pkg/discovery"
)

// Client sends discovery requests over HTTP.
type Client struct {
	httpClient *retryablehttp.Client
	logger     discovery.Logger
	debug      bool
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for debug output and retry diagnostics.
func WithLogger(logger discovery.Logger) Option {
	return func(c *Client) {
		c.logger = logger
		c.httpClient.Logger = &leveledLogger{logger: logger}
	}
}

// WithDebug enables request/response logging.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithRetryConfig enables retries for connection errors, 429 and 5xx.
func WithRetryConfig(retryMax int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.httpClient.RetryMax = retryMax
		c.httpClient.RetryWaitMin = waitMin
		c.httpClient.RetryWaitMax = waitMax
	}
}

// WithUserAgent sets the User-Agent for requests that do not carry one.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithTimeout bounds a single HTTP exchange.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.HTTPClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient.HTTPClient = httpClient
		}
	}
}

// NewClient creates a transport. Retries are disabled unless WithRetryConfig
// sets a positive maximum.
func NewClient(opts ...Option) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = constants.DefaultRetryMax
	retryClient.RetryWaitMin = constants.DefaultRetryWaitMin
	retryClient.RetryWaitMax = constants.DefaultRetryWaitMax
	retryClient.HTTPClient.Timeout = constants.DefaultHTTPTimeout
	retryClient.Logger = nil
	// Responses are returned whatever their status once retries are exhausted.
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	client := &Client{
		httpClient: retryClient,
		userAgent:  constants.DefaultUserAgent,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Send performs req. A returned error means no HTTP response was received;
// every received response is returned, whatever its status.
func (c *Client) Send(ctx context.Context, req *discovery.Request) (*discovery.Response, error) {
	var body interface{}
	if req.Body != nil {
		body = req.Body
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.HTTPMethod, req.URI, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, values := range req.Headers {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}

	if httpReq.Header.Get("User-Agent") == "" && c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	if c.debug && c.logger != nil {
		c.logger.Debug("HTTP Request", map[string]interface{}{
			"method":  req.HTTPMethod,
			"uri":     req.URI,
			"headers": redactHeaders(httpReq.Header),
		})
	}

	start := time.Now()

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
		}

		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if c.debug && c.logger != nil {
		c.logger.Debug("HTTP Response", map[string]interface{}{
			"method":   req.HTTPMethod,
			"uri":      req.URI,
			"status":   resp.StatusCode,
			"duration": time.Since(start).String(),
			"bytes":    len(respBody),
		})
	}

	return &discovery.Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       respBody,
	}, nil
}

// Get is a convenience wrapper around Send for GET requests.
func (c *Client) Get(ctx context.Context, uri string, headers http.Header) (*discovery.Response, error) {
	return c.Send(ctx, &discovery.Request{
		HTTPMethod: http.MethodGet,
		URI:        uri,
		Headers:    headers,
	})
}

// Post is a convenience wrapper around Send for POST requests.
func (c *Client) Post(ctx context.Context, uri string, body []byte, headers http.Header) (*discovery.Response, error) {
	if headers == nil {
		headers = make(http.Header)
	}

	if headers.Get("Content-Type") == "" && len(bytes.TrimSpace(body)) > 0 {
		headers.Set("Content-Type", constants.DefaultContentType)
	}

	return c.Send(ctx, &discovery.Request{
		HTTPMethod: http.MethodPost,
		URI:        uri,
		Headers:    headers,
		Body:       body,
	})
}

func redactHeaders(headers http.Header) map[string]string {
	redacted := make(map[string]string, len(headers))

	for key := range headers {
		if key == "Authorization" {
			redacted[key] = constants.MaskedSecret

			continue
		}

		redacted[key] = headers.Get(key)
	}

	return redacted
}

// leveledLogger bridges discovery.Logger into retryablehttp.LeveledLogger.
type leveledLogger struct {
	logger discovery.Logger
}

func (l *leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, fields(keysAndValues))
}

func (l *leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg, fields(keysAndValues))
}

func (l *leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, fields(keysAndValues))
}

func (l *leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(msg, fields(keysAndValues))
}

func fields(keysAndValues []interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(keysAndValues)/2)

	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}

		out[key] = keysAndValues[i+1]
	}

	return out
}

var _ discovery.Transport = (*Client)(nil)
