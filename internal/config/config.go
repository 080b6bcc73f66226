package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

type LogConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

// TrueLayerConfig holds the aggregator credentials and endpoints.
// AuthBaseURL and APIBaseURL are overridable so tests and sandbox
// environments can point the client elsewhere.
type TrueLayerConfig struct {
	ClientID       string `mapstructure:"client_id"`
	ClientSecret   string `mapstructure:"client_secret"`
	RedirectURI    string `mapstructure:"redirect_uri"`
	AuthBaseURL    string `mapstructure:"auth_base_url"`
	APIBaseURL     string `mapstructure:"api_base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	// SyncWindowDays is the default transaction sync window when a sync
	// request does not carry an explicit date range.
	SyncWindowDays int `mapstructure:"sync_window_days"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Mongo     MongoConfig     `mapstructure:"mongo"`
	TrueLayer TrueLayerConfig `mapstructure:"truelayer"`
}

// Load loads configuration from the given file path (e.g. "config.yaml").
// If path is empty, it looks for "config.yaml" in the current working
// directory. Environment variables prefixed with MONEYFLOW_ override file
// values, e.g. MONEYFLOW_SERVER_PORT=9000.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("MONEYFLOW")
	// Nested keys use dots internally; map them to underscores so
	// MONEYFLOW_SERVER_PORT resolves server.port.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.console", true)
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "moneyflow")
	// Credentials default empty so env-only deployments still land them
	// through Unmarshal; viper only surfaces env values for known keys.
	v.SetDefault("truelayer.client_id", "")
	v.SetDefault("truelayer.client_secret", "")
	v.SetDefault("truelayer.redirect_uri", "")
	v.SetDefault("truelayer.auth_base_url", "https://auth.truelayer.com")
	v.SetDefault("truelayer.api_base_url", "https://api.truelayer.com")
	v.SetDefault("truelayer.timeout_seconds", 30)
	v.SetDefault("truelayer.sync_window_days", 30)

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine: defaults plus env cover local runs.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &c, nil
}
