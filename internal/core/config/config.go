package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/Melaeke/omim/internal/core/proxy"

	"github.com/spf13/viper"
)

// Stats backends accepted by STATS_BACKEND.
const (
	StatsBackendRedis    = "redis"
	StatsBackendPostgres = "postgres"
)

// AppConfig holds the configuration for the application.
// Tags used:
// - mapstructure: used by viper to unmarshal
// - default: default value to set if missing
// - required: if "true", error if missing
type AppConfig struct {
	// Environment specifies the runtime environment (e.g., development, production).
	Environment string `mapstructure:"APP_ENV" default:"development"`
	// LogLevel defines the logging verbosity (e.g., debug, info, error).
	LogLevel string `mapstructure:"LOG_LEVEL" default:"info"`
	// ServerPort is the port where the server will listen.
	ServerPort int `mapstructure:"SERVER_PORT" default:"8080"`

	Redis    RedisConfig    `mapstructure:",squash"`
	Stats    StatsConfig    `mapstructure:",squash"`
	Kafka    KafkaConfig    `mapstructure:",squash"`
	Ads      AdsConfig      `mapstructure:",squash"`
	Networks NetworksConfig `mapstructure:",squash"`
	Proxy    proxy.Settings `mapstructure:",squash"`
}

// RedisConfig holds the redis connection used for caching and counters.
type RedisConfig struct {
	// URL has the form redis://[:password@]host[:port][/database].
	URL string `mapstructure:"REDIS_URL" default:"redis://localhost:6379/0"`
}

// StatsConfig selects where rotation counters live.
type StatsConfig struct {
	// Backend is "redis" or "postgres".
	Backend string `mapstructure:"STATS_BACKEND" default:"redis"`
	// DatabaseURL is the postgres DSN, required by the postgres backend.
	DatabaseURL string `mapstructure:"DB_URL"`
	// Enabled gates analytics events.
	Enabled bool `mapstructure:"STATISTICS_ENABLED" default:"true"`
}

// KafkaConfig holds analytics producer settings. Empty brokers disable the producer.
type KafkaConfig struct {
	Brokers string `mapstructure:"KAFKA_BROKERS"`
	Topic   string `mapstructure:"KAFKA_TOPIC" default:"banner-events"`
}

// AdsConfig holds placement and reload policy.
type AdsConfig struct {
	// Placements uses the format "placepage@320x50:mopub,facebook;search:google".
	Placements        string        `mapstructure:"ADS_PLACEMENTS" required:"true"`
	ReloadTimeout     time.Duration `mapstructure:"ADS_RELOAD_TIMEOUT" default:"3s"`
	MinReloadInterval time.Duration `mapstructure:"ADS_MIN_RELOAD_INTERVAL" default:"30s"`
	CreativeTTL       time.Duration `mapstructure:"ADS_CREATIVE_TTL" default:"5m"`
	SweepInterval     time.Duration `mapstructure:"ADS_SWEEP_INTERVAL" default:"1m"`
	BidFloor          float64       `mapstructure:"ADS_BID_FLOOR" default:"0"`
	// Retain lists networks whose banners must be kept alive once loaded.
	Retain string `mapstructure:"NETWORK_RETAIN" default:"rb"`
	// CacheCreatives serves creatives from redis until CreativeTTL expires.
	CacheCreatives bool `mapstructure:"ADS_CACHE_CREATIVES" default:"false"`
	// PreloadConcurrency caps placements loaded at once on startup.
	PreloadConcurrency int `mapstructure:"ADS_PRELOAD_CONCURRENCY" default:"4"`
}

// NetworksConfig holds the endpoint of every ad network.
type NetworksConfig struct {
	FacebookURL string `mapstructure:"NETWORK_FACEBOOK_URL"`
	RBURL       string `mapstructure:"NETWORK_RB_URL"`
	MopubURL    string `mapstructure:"NETWORK_MOPUB_URL"`
	GoogleURL   string `mapstructure:"NETWORK_GOOGLE_URL"`
	// AppBundle identifies the app in OpenRTB bid requests.
	AppBundle string `mapstructure:"NETWORK_APP_BUNDLE" default:"com.mapswithme.maps.pro"`
}

// RetainSet returns NETWORK_RETAIN as a lookup set.
func (a AdsConfig) RetainSet() map[string]bool {
	set := make(map[string]bool)
	for _, n := range strings.Split(a.Retain, ",") {
		if n = strings.ToLower(strings.TrimSpace(n)); n != "" {
			set[n] = true
		}
	}
	return set
}

// Load loads configuration from .env files and environment variables.
func Load(path string) (*AppConfig, error) {
	v := viper.New()

	v.AutomaticEnv()

	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config AppConfig

	if err := processTags(v, &config); err != nil {
		return nil, err
	}

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := validateRequired(&config); err != nil {
		return nil, err
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *AppConfig) validate() error {
	switch c.Stats.Backend {
	case StatsBackendRedis:
	case StatsBackendPostgres:
		if c.Stats.DatabaseURL == "" {
			return fmt.Errorf("missing required configuration: DB_URL (STATS_BACKEND=%s)", StatsBackendPostgres)
		}
	default:
		return fmt.Errorf("unsupported STATS_BACKEND %q", c.Stats.Backend)
	}

	if c.Ads.ReloadTimeout <= 0 {
		return fmt.Errorf("ADS_RELOAD_TIMEOUT must be positive, got %s", c.Ads.ReloadTimeout)
	}
	if c.Ads.SweepInterval <= 0 {
		return fmt.Errorf("ADS_SWEEP_INTERVAL must be positive, got %s", c.Ads.SweepInterval)
	}
	return nil
}

// processTags iterates over the struct fields and sets default values in Viper.
func processTags(v *viper.Viper, config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := processTags(v, val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		key := field.Tag.Get("mapstructure")
		defaultValue := field.Tag.Get("default")

		if key != "" {
			if err := v.BindEnv(key); err != nil {
				return fmt.Errorf("failed to bind %s: %w", key, err)
			}
		}

		if key != "" && defaultValue != "" {
			v.SetDefault(key, defaultValue)
		}
	}
	return nil
}

// validateRequired checks if fields marked as required have non-zero values.
func validateRequired(config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := validateRequired(val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		if field.Tag.Get("required") == "true" && val.Field(i).IsZero() {
			key := field.Tag.Get("mapstructure")
			return fmt.Errorf("missing required configuration: %s", key)
		}
	}
	return nil
}
