// Package discovery provides types, interfaces, and helpers for calling web
// APIs described by discovery documents.
//
// # Overview
//
// A discovery document describes an API's resources, methods and parameters.
// The discovery package defines the in-memory model of such a document (API,
// Resource, Method, Parameter), the requests and results exchanged with the
// described API, and the Client interface that resolves methods, validates
// parameters and executes calls. A concrete implementation is provided by the
// discoveryclient package, which wires configuration, transport, the
// discovery document cache and authorization.
//
// Getting a client
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/fivetwenty-io/discovery-client/pkg/discovery"
//	  "github.com/fivetwenty-io/discovery-client/pkg/discoveryclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//	  cli, err := discoveryclient.New(&discovery.Config{Key: "api-key"})
//	  if err != nil { log.Fatal(err) }
//
//	  result, err := cli.CallStrict(ctx, discovery.RequestOptions{
//	    MethodID:   "plus.activities.list",
//	    Parameters: map[string]interface{}{"userId": "me", "collection": "public"},
//	  })
//	  if err != nil { log.Fatal(err) }
//	  _ = result.NextPageToken()
//	}
//
// # Requests
//
// GenerateRequest validates parameters against the method's declared schema
// before any I/O. Path parameters are expanded into the method's path
// template; query parameters are serialized with RFC 3986 percent-encoding in
// lexicographic key order, so generated URIs are reproducible.
//
// # Errors
//
// ValidationError, ParameterValidationError and TransmissionError report
// malformed arguments, schema violations and discovery or transport failures.
// Execute returns a Result for every HTTP response; ExecuteStrict and
// CallStrict turn 4xx and 5xx responses into ClientError and ServerError.
// Match them with errors.Is against ErrValidation, ErrParameterValidation,
// ErrTransmission, ErrClient and ErrServer. A method that does not exist is
// reported as nil, not as an error.
//
// # Interceptors and caching
//
// The package includes request/response interceptors (logging, headers,
// metrics, rate limiting) and a pluggable Cache abstraction for raw discovery
// documents with memory and NATS JetStream key-value backends.
package discovery
