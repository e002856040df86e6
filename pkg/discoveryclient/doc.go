// Package discoveryclient provides the primary entry point for constructing a
// discovery-driven API client that implements the discovery.Client interface.
//
// It layers configuration, HTTP transport, document caching and authorization
// on top of the schema model and request types defined in the discovery
// package. Most applications import discoveryclient to build a client, then
// resolve methods and call them through the returned discovery.Client.
//
// Quick start
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
//
//	  // Minimal: the public discovery service, no credentials.
//	  cli, err := discoveryclient.New(nil)
//	  if err != nil { log.Fatal(err) }
//
//	  // Or with an access token you already have:
//	  cli, err = discoveryclient.New(&discovery.Config{
//	    AccessToken: "ya29.a0Af...",
//	  })
//
//	  // Or with an OAuth2 grant. Tokens are obtained from TokenURL on first
//	  // use and renewed when they expire.
//	  cli, err = discoveryclient.New(&discovery.Config{
//	    TokenURL:     "https://oauth2.example.com/token",
//	    ClientID:     "client-id",
//	    ClientSecret: "client-secret",
//	  })
//	  if err != nil { log.Fatal(err) }
//
//	  // Call a method by id. The API and its preferred version are
//	  // discovered on first use.
//	  result, err := cli.CallStrict(ctx, discovery.RequestOptions{
//	    MethodID:   "plus.activities.list",
//	    Parameters: map[string]interface{}{"userId": "me", "collection": "public"},
//	  })
//	  if err != nil { log.Fatal(err) }
//	  _ = result
//	}
//
// # Caching
//
// Parsed discovery documents are cached for the life of the process and
// shared by every client pointed at the same discovery root. Config.Cache
// adds a backend for the raw documents, either in memory or in a NATS
// JetStream key-value bucket shared between processes.
//
// # Helpers
//
// The package also provides convenience constructors NewWithRoot, NewWithKey,
// NewWithToken, NewWithOAuth1, and NewWithClientCredentials that wrap New
// with the appropriate configuration.
package discoveryclient
