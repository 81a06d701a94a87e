package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string `yaml:"server_address" validate:"required"`
	Environment   string `yaml:"environment" validate:"oneof=development staging production"`

	// External map backend
	BackendBaseURL string `yaml:"backend_base_url" validate:"required,url"`
	BackendToken   string `yaml:"backend_token"`

	// Authentication for the gateway API
	JWTSecret string `yaml:"jwt_secret"`
	JWTIssuer string `yaml:"jwt_issuer"`

	// Logging
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`

	// Feature flags
	EnableMetrics bool `yaml:"enable_metrics"`
	EnableCORS    bool `yaml:"enable_cors"`

	// Tunable session behavior
	Tuning Tuning `yaml:"tuning"`
}

// Tuning holds the session constants that are configurable defaults
// rather than fixed requirements. The watcher can replace them at
// runtime.
type Tuning struct {
	// Hover-clear debounce; entering a node is always immediate
	HoverClearDebounce time.Duration `yaml:"hover_clear_debounce" validate:"gt=0"`
	// Minimum interval between outward viewport notifications
	ViewportThrottle time.Duration `yaml:"viewport_throttle" validate:"gt=0"`
	// Node count at or above which layout moves to a worker
	SyncLayoutThreshold int `yaml:"sync_layout_threshold" validate:"gt=0"`
	// Iterations for the force-directed layout pass
	LayoutIterations int `yaml:"layout_iterations" validate:"gt=0"`
	// Concurrent layout workers
	LayoutWorkers int `yaml:"layout_workers" validate:"gt=0"`
	// Result cap for search queries
	SearchResultLimit int `yaml:"search_result_limit" validate:"gt=0"`
	// Entity cache capacity and expiry
	CacheCapacity int           `yaml:"cache_capacity" validate:"gt=0"`
	CacheTTL      time.Duration `yaml:"cache_ttl" validate:"gt=0"`
	// Hard deadline on entity detail fetches
	DetailFetchTimeout time.Duration `yaml:"detail_fetch_timeout" validate:"gt=0"`
}

// DefaultTuning returns the stock interaction constants
func DefaultTuning() Tuning {
	return Tuning{
		HoverClearDebounce:  300 * time.Millisecond,
		ViewportThrottle:    500 * time.Millisecond,
		SyncLayoutThreshold: 50,
		LayoutIterations:    60,
		LayoutWorkers:       2,
		SearchResultLimit:   10,
		CacheCapacity:       500,
		CacheTTL:            5 * time.Minute,
		DetailFetchTimeout:  10 * time.Second,
	}
}

// LoadConfig loads configuration from environment variables, with an
// optional YAML overlay named by MAPCORE_CONFIG_FILE
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress:  getEnv("SERVER_ADDRESS", ":8080"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		BackendBaseURL: getEnv("BACKEND_BASE_URL", "http://localhost:9000"),
		BackendToken:   getEnv("BACKEND_TOKEN", ""),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		JWTIssuer:      getEnv("JWT_ISSUER", "mapcore"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		EnableMetrics:  getEnvBool("ENABLE_METRICS", true),
		EnableCORS:     getEnvBool("ENABLE_CORS", true),
		Tuning:         DefaultTuning(),
	}

	cfg.Tuning.HoverClearDebounce = getEnvDuration("HOVER_CLEAR_DEBOUNCE", cfg.Tuning.HoverClearDebounce)
	cfg.Tuning.ViewportThrottle = getEnvDuration("VIEWPORT_THROTTLE", cfg.Tuning.ViewportThrottle)
	cfg.Tuning.SyncLayoutThreshold = getEnvInt("SYNC_LAYOUT_THRESHOLD", cfg.Tuning.SyncLayoutThreshold)
	cfg.Tuning.LayoutIterations = getEnvInt("LAYOUT_ITERATIONS", cfg.Tuning.LayoutIterations)
	cfg.Tuning.LayoutWorkers = getEnvInt("LAYOUT_WORKERS", cfg.Tuning.LayoutWorkers)
	cfg.Tuning.SearchResultLimit = getEnvInt("SEARCH_RESULT_LIMIT", cfg.Tuning.SearchResultLimit)
	cfg.Tuning.CacheCapacity = getEnvInt("CACHE_CAPACITY", cfg.Tuning.CacheCapacity)
	cfg.Tuning.CacheTTL = getEnvDuration("CACHE_TTL", cfg.Tuning.CacheTTL)
	cfg.Tuning.DetailFetchTimeout = getEnvDuration("DETAIL_FETCH_TIMEOUT", cfg.Tuning.DetailFetchTimeout)

	if path := os.Getenv("MAPCORE_CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyFile overlays values from a YAML file onto the config
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Environment == "production" && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration gets a duration environment variable with a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
