package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/younsl/ec2spot/pkg/source"
)

// Defaults
const (
	DefaultHost        = "0.0.0.0"
	DefaultPort        = 9001
	DefaultAPIPrefix   = "/api/v1.0"
	DefaultMaxAgeHours = 12
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Cache   CacheConfig   `yaml:"cache"`
	AWS     AWSConfig     `yaml:"aws"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	APIPrefix  string `yaml:"apiPrefix"`
	StaticPath    string `yaml:"staticPath"`
	StaticLibPath string `yaml:"staticLibPath"`
	Production    bool   `yaml:"production"`
}

// CacheConfig represents instance data cache configuration
type CacheConfig struct {
	InstancesJSONURL string        `yaml:"instancesJsonUrl"`
	MaxAgeHours      int           `yaml:"maxAgeHours"`
	FetchTimeout     time.Duration `yaml:"fetchTimeout"`
	Eager            bool          `yaml:"eager"`
}

// AWSConfig represents AWS API configuration
type AWSConfig struct {
	Region          string `yaml:"region"`
	SpotBatchSize   int    `yaml:"spotBatchSize"`
	SpotConcurrency int    `yaml:"spotConcurrency"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:      DefaultHost,
			Port:      DefaultPort,
			APIPrefix: DefaultAPIPrefix,
		},
		Cache: CacheConfig{
			InstancesJSONURL: source.DefaultURL,
			MaxAgeHours:      DefaultMaxAgeHours,
			FetchTimeout:     30 * time.Second,
			Eager:            true,
		},
		AWS: AWSConfig{
			SpotBatchSize:   50,
			SpotConcurrency: 4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path and then environment variables, in increasing precedence
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Host = getEnv("HOST", c.Server.Host)
	c.Server.Port = getEnvInt("PORT", c.Server.Port)
	c.Server.APIPrefix = getEnv("API_PREFIX", c.Server.APIPrefix)
	c.Server.StaticPath = getEnv("STATIC_PATH", c.Server.StaticPath)
	c.Server.StaticLibPath = getEnv("STATIC_LIB_PATH", c.Server.StaticLibPath)
	c.Cache.InstancesJSONURL = getEnv("INSTANCES_JSON_URL", c.Cache.InstancesJSONURL)
	c.Cache.MaxAgeHours = getEnvInt("CACHE_MAX_AGE", c.Cache.MaxAgeHours)
	c.AWS.Region = getEnv("AWS_REGION", c.AWS.Region)
	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("LOG_FORMAT", c.Logging.Format)
}

// Validate checks values that cannot be used as given
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.Cache.InstancesJSONURL == "" {
		return fmt.Errorf("instances JSON URL must not be empty")
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format %q (want json or text)", c.Logging.Format)
	}
	return nil
}

// CacheTTL returns the cache max age as a duration. Zero or negative means
// the dataset is fetched on every read.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.MaxAgeHours) * time.Hour
}

// LogLevel returns the configured log level; production mode only logs errors
func (c *Config) LogLevel() string {
	if c.Server.Production {
		return "error"
	}
	return c.Logging.Level
}

// Address returns the listen address
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as int with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
