package commands

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/fivetwenty-io/discovery-client/internal/auth"
	"github.com/fivetwenty-io/discovery-client/internal/constants"
	"github.com/fivetwenty-io/discovery-client/pkg/discovery"
	"github.com/fivetwenty-io/discovery-client/pkg/discoveryclient"
)

// NewLogger builds the CLI's slog logger. format is "text" or "json"; level
// is one of debug, info, warn or error.
func NewLogger(format, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// CreateClient builds a discovery client from the CLI configuration.
// Tokens renewed through OAuth2 grants are written back to the config file.
func CreateClient() (discovery.Client, error) {
	config := loadConfig()

	level := config.LogLevel
	if viper.GetBool("verbose") {
		level = "debug"
	}

	logger := discovery.NewSlogLogger(NewLogger(config.LogFormat, level))

	clientConfig := &discovery.Config{
		DiscoveryRoot: config.Root,
		Key:           config.Key,
		UserIP:        config.UserIP,
		UserAgent:     config.UserAgent,
		RetryMax:      config.RetryMax,
		Cache:         cacheConfig(config),
		Debug:         viper.GetBool("verbose"),
		Logger:        logger,
	}

	switch {
	case config.TokenURL != "" && hasGrant(config):
		var expiresAt time.Time
		if config.TokenExpiresAt != nil {
			expiresAt = *config.TokenExpiresAt
		}

		tokens := auth.NewConfigTokenManager(&auth.OAuth2Config{
			TokenURL:     config.TokenURL,
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RefreshToken: config.RefreshToken,
			Scopes:       config.Scopes,
		}, NewConfigPersister(), config.Token, expiresAt)
		tokens.SetLogger(logger)

		clientConfig.Authorization = auth.NewOAuth2(tokens)

	case config.Token != "":
		clientConfig.AccessToken = config.Token
	}

	return discoveryclient.New(clientConfig)
}

func hasGrant(config *Config) bool {
	return config.RefreshToken != "" || (config.ClientID != "" && config.ClientSecret != "")
}

func cacheConfig(config *Config) *discovery.CacheConfig {
	switch config.Cache {
	case "nats":
		bucket := config.NATSBucket
		if bucket == "" {
			bucket = constants.DefaultNATSBucket
		}

		return &discovery.CacheConfig{
			Type: discovery.CacheTypeNATS,
			NATS: &discovery.NATSKVConfig{
				URL:    config.NATSURL,
				Bucket: bucket,
			},
		}

	case "none":
		return &discovery.CacheConfig{Type: discovery.CacheTypeNone}

	case "memory":
		return discovery.DefaultCacheConfig()

	default:
		return nil
	}
}
