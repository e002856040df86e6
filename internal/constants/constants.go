package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// Discovery service defaults.
const (
	// DefaultDiscoveryRoot is the public Google discovery service.
	DefaultDiscoveryRoot = "https://www.googleapis.com/discovery/v1"

	// DirectoryPath is the directory listing path below the discovery root.
	DirectoryPath = "/apis"

	// RESTDescriptionSuffix ends every discovery document URI.
	RESTDescriptionSuffix = "rest"

	// DefaultUserAgent is sent when no User-Agent is configured.
	DefaultUserAgent = "discovery-client/1.0"

	// DefaultContentType is applied to requests carrying a body.
	DefaultContentType = "application/json"
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// ShortHTTPTimeout is used for quick operations such as token requests.
	ShortHTTPTimeout = 10 * time.Second
)

// Retry limits. Retries are disabled by default.
const (
	// DefaultRetryMax is the default maximum number of retries.
	DefaultRetryMax = 0

	// DefaultRetryWaitMin is the minimum wait time between retries.
	DefaultRetryWaitMin = 1 * time.Second

	// DefaultRetryWaitMax is the maximum wait time between retries.
	DefaultRetryWaitMax = 10 * time.Second
)

// Concurrency limits.
const (
	// DefaultPreloadConcurrency bounds concurrent discovery document fetches.
	DefaultPreloadConcurrency = 4
)

// Cache limits.
const (
	// DefaultCacheSize is the default cache size limit.
	DefaultCacheSize = 1000

	// MaxCacheValueSize is the maximum size for cached values (8MB).
	MaxCacheValueSize = 8 * 1024 * 1024

	// DefaultNATSBucket is the JetStream key-value bucket for documents.
	DefaultNATSBucket = "discovery-documents"
)

// Authorization.
const (
	// TokenExpirationBuffer is the buffer time before token expiration.
	TokenExpirationBuffer = 30 * time.Second

	// OAuth1SignatureMethod is the only supported OAuth1 signature method.
	OAuth1SignatureMethod = "HMAC-SHA1"

	// OAuth1Version is the oauth_version parameter value.
	OAuth1Version = "1.0"

	// NonceBytes is the number of random bytes in an OAuth1 nonce.
	NonceBytes = 16
)

// UI and display constants.
const (
	// CheckMarkSymbol is used to indicate current/active items.
	CheckMarkSymbol = "✓"

	// NotAvailable is used when information is not available.
	NotAvailable = "N/A"

	// MaskedSecret is used to hide sensitive information.
	MaskedSecret = "***"

	// DescriptionDisplayLength is the default length for displaying descriptions.
	DescriptionDisplayLength = 60

	// JSONIndentSize is the number of spaces for JSON indentation.
	JSONIndentSize = 2
)

// Format constants.
const (
	// FormatTable for table output format.
	FormatTable = "table"

	// FormatJSON for JSON output format.
	FormatJSON = "json"

	// FormatYAML for YAML output format.
	FormatYAML = "yaml"
)

// Boolean string constants.
const (
	// BooleanTrue string representation.
	BooleanTrue = "true"

	// BooleanFalse string representation.
	BooleanFalse = "false"
)
