package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/discovery-client/internal/constants"
)

// Config represents the CLI configuration.
type Config struct {
	Root      string `json:"root,omitempty"       yaml:"root,omitempty"`
	Key       string `json:"key,omitempty"        yaml:"key,omitempty"`
	UserIP    string `json:"user_ip,omitempty"    yaml:"user_ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`

	Token          string     `json:"token,omitempty"            yaml:"token,omitempty"`
	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty" yaml:"token_expires_at,omitempty"`
	RefreshToken   string     `json:"refresh_token,omitempty"    yaml:"refresh_token,omitempty"`
	LastRefreshed  *time.Time `json:"last_refreshed,omitempty"   yaml:"last_refreshed,omitempty"`
	TokenURL       string     `json:"token_url,omitempty"        yaml:"token_url,omitempty"`
	ClientID       string     `json:"client_id,omitempty"        yaml:"client_id,omitempty"`
	ClientSecret   string     `json:"client_secret,omitempty"    yaml:"client_secret,omitempty"`
	Scopes         []string   `json:"scopes,omitempty"           yaml:"scopes,omitempty"`

	Cache      string `json:"cache,omitempty"       yaml:"cache,omitempty"`
	NATSURL    string `json:"nats_url,omitempty"    yaml:"nats_url,omitempty"`
	NATSBucket string `json:"nats_bucket,omitempty" yaml:"nats_bucket,omitempty"`
	RetryMax   int    `json:"retry_max,omitempty"   yaml:"retry_max,omitempty"`

	Output    string `json:"output"               yaml:"output"`
	LogFormat string `json:"log_format,omitempty" yaml:"log_format,omitempty"`
	LogLevel  string `json:"log_level,omitempty"  yaml:"log_level,omitempty"`
}

// configKey reads and writes one settable configuration value.
type configKey struct {
	secret bool
	get    func(*Config) string
	set    func(*Config, string) error
}

func stringKey(field func(*Config) *string, secret bool) configKey {
	return configKey{
		secret: secret,
		get:    func(c *Config) string { return *field(c) },
		set: func(c *Config, value string) error {
			*field(c) = value

			return nil
		},
	}
}

var configKeys = map[string]configKey{
	"root":          stringKey(func(c *Config) *string { return &c.Root }, false),
	"key":           stringKey(func(c *Config) *string { return &c.Key }, true),
	"user_ip":       stringKey(func(c *Config) *string { return &c.UserIP }, false),
	"user_agent":    stringKey(func(c *Config) *string { return &c.UserAgent }, false),
	"token":         stringKey(func(c *Config) *string { return &c.Token }, true),
	"refresh_token": stringKey(func(c *Config) *string { return &c.RefreshToken }, true),
	"token_url":     stringKey(func(c *Config) *string { return &c.TokenURL }, false),
	"client_id":     stringKey(func(c *Config) *string { return &c.ClientID }, false),
	"client_secret": stringKey(func(c *Config) *string { return &c.ClientSecret }, true),
	"nats_url":      stringKey(func(c *Config) *string { return &c.NATSURL }, false),
	"nats_bucket":   stringKey(func(c *Config) *string { return &c.NATSBucket }, false),
	"log_format":    stringKey(func(c *Config) *string { return &c.LogFormat }, false),
	"log_level":     stringKey(func(c *Config) *string { return &c.LogLevel }, false),
	"scopes": {
		get: func(c *Config) string { return strings.Join(c.Scopes, ",") },
		set: func(c *Config, value string) error {
			c.Scopes = splitList(value)

			return nil
		},
	},
	"cache": {
		get: func(c *Config) string { return c.Cache },
		set: func(c *Config, value string) error {
			switch value {
			case "", "memory", "nats", "none":
				c.Cache = value

				return nil
			default:
				return fmt.Errorf("cache must be memory, nats or none, got %q", value)
			}
		},
	},
	"retry_max": {
		get: func(c *Config) string { return strconv.Itoa(c.RetryMax) },
		set: func(c *Config, value string) error {
			if value == "" {
				c.RetryMax = 0

				return nil
			}

			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return fmt.Errorf("retry_max must be a non-negative integer, got %q", value)
			}

			c.RetryMax = n

			return nil
		},
	},
	"output": {
		get: func(c *Config) string { return c.Output },
		set: func(c *Config, value string) error {
			err := validateOutputFormat(value)
			if err != nil {
				return err
			}

			c.Output = value

			return nil
		},
	},
}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Manage the discovery CLI configuration stored in ~/.discovery/config.yml",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigGetCommand())
	cmd.AddCommand(newConfigSetCommand())
	cmd.AddCommand(newConfigUnsetCommand())
	cmd.AddCommand(newConfigClearCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the current CLI configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := maskSecrets(loadConfig())

			switch viper.GetString("output") {
			case constants.FormatJSON:
				return writeJSON(cmd.OutOrStdout(), config)
			case constants.FormatYAML:
				return writeYAML(cmd.OutOrStdout(), config)
			default:
				return displayConfigTable(cmd.OutOrStdout(), config)
			}
		},
	}
}

func newConfigGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get KEY",
		Short: "Get a configuration value",
		Long:  "Print a single configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, ok := configKeys[args[0]]
			if !ok {
				return fmt.Errorf("%w: %s", constants.ErrConfigKeyUnknown, args[0])
			}

			_, err := fmt.Fprintln(cmd.OutOrStdout(), key.get(loadConfig()))

			return err
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long:  "Set a specific configuration value. Known keys: " + strings.Join(configKeyNames(), ", "),
		Args:  cobra.ExactArgs(2), //nolint:mnd // key and value
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()

			err := setConfigValue(config, args[0], args[1])
			if err != nil {
				return err
			}

			err = saveConfigStruct(config)
			if err != nil {
				return err
			}

			return outputConfigUpdateResult(cmd.OutOrStdout(), "Set", args[0], args[1])
		},
	}
}

func newConfigUnsetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unset KEY",
		Short: "Unset a configuration value",
		Long:  "Remove a specific configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()

			err := setConfigValue(config, args[0], "")
			if err != nil {
				return err
			}

			err = saveConfigStruct(config)
			if err != nil {
				return err
			}

			return outputConfigUpdateResult(cmd.OutOrStdout(), "Unset", args[0], "")
		},
	}
}

func newConfigClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear configuration",
		Long:  "Remove all configuration settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			configFile, err := configFilePath()
			if err != nil {
				return err
			}

			err = os.Remove(configFile)
			if err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to remove config file: %w", err)
			}

			return outputConfigUpdateResult(cmd.OutOrStdout(), "Cleared", "all configuration", "")
		},
	}
}

func loadConfig() *Config {
	config := &Config{
		Root:         viper.GetString("root"),
		Key:          viper.GetString("key"),
		UserIP:       viper.GetString("user_ip"),
		UserAgent:    viper.GetString("user_agent"),
		Token:        viper.GetString("token"),
		RefreshToken: viper.GetString("refresh_token"),
		TokenURL:     viper.GetString("token_url"),
		ClientID:     viper.GetString("client_id"),
		ClientSecret: viper.GetString("client_secret"),
		Scopes:       viper.GetStringSlice("scopes"),
		Cache:        viper.GetString("cache"),
		NATSURL:      viper.GetString("nats_url"),
		NATSBucket:   viper.GetString("nats_bucket"),
		RetryMax:     viper.GetInt("retry_max"),
		Output:       viper.GetString("output"),
		LogFormat:    viper.GetString("log_format"),
		LogLevel:     viper.GetString("log_level"),
	}

	if viper.IsSet("token_expires_at") {
		expiresAt := viper.GetTime("token_expires_at")
		if !expiresAt.IsZero() {
			config.TokenExpiresAt = &expiresAt
		}
	}

	if viper.IsSet("last_refreshed") {
		lastRefreshed := viper.GetTime("last_refreshed")
		if !lastRefreshed.IsZero() {
			config.LastRefreshed = &lastRefreshed
		}
	}

	return config
}

func configFilePath() (string, error) {
	configFile := viper.ConfigFileUsed()
	if configFile != "" {
		return configFile, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, ".discovery", "config.yml"), nil
}

// saveConfigStruct writes config to the config file and reloads viper from it.
func saveConfigStruct(config *Config) error {
	configFile, err := configFilePath()
	if err != nil {
		return err
	}

	err = os.MkdirAll(filepath.Dir(configFile), constants.ConfigDirPerm)
	if err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	err = os.WriteFile(configFile, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	viper.SetConfigFile(configFile)

	err = viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("failed to reload config file: %w", err)
	}

	return nil
}

func setConfigValue(config *Config, name, value string) error {
	key, ok := configKeys[name]
	if !ok {
		return fmt.Errorf("%w: %s (known keys: %s)", constants.ErrConfigKeyUnknown, name, strings.Join(configKeyNames(), ", "))
	}

	return key.set(config, value)
}

func configKeyNames() []string {
	names := make([]string, 0, len(configKeys))
	for name := range configKeys {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

func maskSecrets(config *Config) *Config {
	masked := *config

	for _, name := range configKeyNames() {
		key := configKeys[name]
		if key.secret && key.get(&masked) != "" {
			_ = key.set(&masked, constants.MaskedSecret)
		}
	}

	return &masked
}

func displayConfigTable(w io.Writer, config *Config) error {
	table := tablewriter.NewWriter(w)
	table.Header("Property", "Value")

	for _, name := range configKeyNames() {
		_ = table.Append(name, formatConfigValue(configKeys[name].get(config)))
	}

	if config.TokenExpiresAt != nil {
		_ = table.Append("token_expires_at", config.TokenExpiresAt.Format(time.RFC3339))
	}

	if config.LastRefreshed != nil {
		_ = table.Append("last_refreshed", config.LastRefreshed.Format(time.RFC3339))
	}

	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

func formatConfigValue(value string) string {
	if value == "" || value == "0" {
		return constants.NotAvailable
	}

	return value
}

func outputConfigUpdateResult(w io.Writer, action, key, value string) error {
	result := map[string]string{
		"action": strings.ToLower(action),
		"key":    key,
	}

	if value != "" {
		result["value"] = value
		if configKeys[key].secret {
			result["value"] = constants.MaskedSecret
		}
	}

	switch viper.GetString("output") {
	case constants.FormatJSON:
		return writeJSON(w, result)
	case constants.FormatYAML:
		return writeYAML(w, result)
	default:
		if value == "" {
			_, err := fmt.Fprintf(w, "%s %s\n", action, key)

			return err
		}

		_, err := fmt.Fprintf(w, "%s %s = %s\n", action, key, result["value"])

		return err
	}
}

func validateOutputFormat(format string) error {
	switch format {
	case "", constants.FormatTable, constants.FormatJSON, constants.FormatYAML:
		return nil
	default:
		return fmt.Errorf("%w: %s", constants.ErrInvalidOutputFormat, format)
	}
}

func splitList(value string) []string {
	var items []string

	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}

	return items
}

func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", strings.Repeat(" ", constants.JSONIndentSize))

	return encoder.Encode(v)
}

func writeYAML(w io.Writer, v interface{}) error {
	encoder := yaml.NewEncoder(w)
	defer func() { _ = encoder.Close() }()

	return encoder.Encode(v)
}
