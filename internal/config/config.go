// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is the full service configuration.
type Config struct {
	Port int `envconfig:"PORT" default:"3000" validate:"min=1,max=65535"`

	Birdeye  BirdeyeConfig
	Snapshot SnapshotConfig
	Listener ListenerConfig
	Gems     GemsConfig
	Filter   FilterConfig

	StoreCapacity int      `envconfig:"STORE_CAPACITY" default:"200" validate:"min=1"`
	CORSOrigins   []string `envconfig:"CORS_ORIGINS" default:"*"`

	// Optional side outputs, disabled when empty.
	PostgresDSN   string `envconfig:"POSTGRES_DSN"`
	ClickhouseDSN string `envconfig:"CLICKHOUSE_DSN" validate:"omitempty,url"`
	RedisURL      string `envconfig:"REDIS_URL" validate:"omitempty,url"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json" validate:"oneof=json console"`
}

// BirdeyeConfig holds upstream endpoints and credentials.
type BirdeyeConfig struct {
	APIKey  string `envconfig:"BIRDEYE_API_KEY"`
	RESTURL string `envconfig:"BIRDEYE_REST_URL" default:"https://public-api.birdeye.so" validate:"url"`
	WSURL   string `envconfig:"BIRDEYE_WS_URL" default:"wss://public-api.birdeye.so/socket/solana" validate:"url"`

	// REST retries on transport errors, 429 and 5xx. Zero disables retrying.
	MaxRetries int           `envconfig:"BIRDEYE_MAX_RETRIES" default:"0" validate:"gte=0,lte=5"`
	RetryDelay time.Duration `envconfig:"BIRDEYE_RETRY_DELAY" default:"1s" validate:"gt=0"`
}

// SnapshotConfig controls the startup fetch.
type SnapshotConfig struct {
	Path    string        `envconfig:"SNAPSHOT_PATH" default:"/defi/token_trending" validate:"startswith=/"`
	Limit   int           `envconfig:"SNAPSHOT_LIMIT" default:"20" validate:"min=1,max=100"`
	Timeout time.Duration `envconfig:"SNAPSHOT_TIMEOUT" default:"10s" validate:"gt=0"`
}

// ListenerConfig controls reconnect and idle handling.
type ListenerConfig struct {
	BaseDelay   time.Duration `envconfig:"LISTENER_BASE_DELAY" default:"5s" validate:"gt=0"`
	MaxDelay    time.Duration `envconfig:"LISTENER_MAX_DELAY" default:"60s" validate:"gtefield=BaseDelay"`
	IdleTimeout time.Duration `envconfig:"LISTENER_IDLE_TIMEOUT" default:"30s" validate:"gt=0"`
}

// GemsConfig controls the read path.
type GemsConfig struct {
	CacheTTL time.Duration `envconfig:"CACHE_TTL" default:"60s" validate:"gt=0"`
	MaxGems  int           `envconfig:"MAX_GEMS" default:"15" validate:"min=1"`
}

// FilterConfig is the optional eligibility band. Zero disables a bound.
type FilterConfig struct {
	MinMarketCap float64       `envconfig:"FILTER_MIN_MARKET_CAP" default:"0" validate:"gte=0"`
	MaxMarketCap float64       `envconfig:"FILTER_MAX_MARKET_CAP" default:"0" validate:"gte=0"`
	MinVolume    float64       `envconfig:"FILTER_MIN_VOLUME" default:"0" validate:"gte=0"`
	MaxAge       time.Duration `envconfig:"FILTER_MAX_AGE" default:"0s" validate:"gte=0"`
}

// ErrInvalidFilter is returned when the market-cap band is empty.
var ErrInvalidFilter = errors.New("FILTER_MAX_MARKET_CAP must exceed FILTER_MIN_MARKET_CAP")

var validate = validator.New()

// Load reads .env files if present, then the environment.
func Load(envFiles ...string) (*Config, error) {
	// Missing .env is normal outside development.
	_ = godotenv.Load(envFiles...)

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	f := c.Filter
	if f.MinMarketCap > 0 && f.MaxMarketCap > 0 && f.MaxMarketCap <= f.MinMarketCap {
		return ErrInvalidFilter
	}
	return nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// HasAPIKey reports whether a Birdeye credential is configured.
func (c *Config) HasAPIKey() bool {
	return strings.TrimSpace(c.Birdeye.APIKey) != ""
}
