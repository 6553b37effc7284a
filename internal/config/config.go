package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/replygate/replygate/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the complete application configuration.
type Config struct {
	Server         models.ServerConfig              `yaml:"server"`
	Business       models.BusinessConfig            `yaml:"business"`
	Providers      map[string]models.ProviderConfig `yaml:"providers"`
	RateLimit      models.RateLimitConfig           `yaml:"rate_limit"`
	CircuitBreaker models.CircuitBreakerConfig      `yaml:"circuit_breaker"`
	Cache          models.CacheConfig               `yaml:"cache"`
	Database       *models.DatabaseConfig           `yaml:"database,omitempty"`
}

// LoadFromFile loads configuration from a YAML file with environment
// variable substitution.
func LoadFromFile(configPath string) (*Config, error) {
	cleanPath := filepath.Clean(configPath)

	if strings.Contains(cleanPath, "..") {
		return nil, fmt.Errorf("invalid config path: path traversal not allowed")
	}

	ext := filepath.Ext(cleanPath)
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("invalid config file: only .yaml and .yml files are allowed")
	}

	data, err := os.ReadFile(cleanPath) // #nosec G304 - path is validated above
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", cleanPath, err)
	}

	content := substituteEnvVars(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(content), &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	// Lowercase provider keys so lookups are case-insensitive.
	if config.Providers != nil {
		normalized := make(map[string]models.ProviderConfig, len(config.Providers))
		for key, value := range config.Providers {
			normalized[strings.ToLower(key)] = value
		}
		config.Providers = normalized
	}

	return &config, nil
}

// New creates a Config by loading the specified file.
func New(configPath string) (*Config, error) {
	return LoadFromFile(configPath)
}

// LoadEnvFiles loads environment variables from .env files in order of
// precedence (first file wins for duplicate keys).
func LoadEnvFiles(envFiles []string) {
	for _, envFile := range envFiles {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err == nil {
				fmt.Printf("Loaded environment variables from %s\n", envFile)
			}
		}
	}
}

// substituteEnvVars replaces ${VAR_NAME} and ${VAR_NAME:-default} patterns
// with environment variables.
func substituteEnvVars(content string) string {
	re := regexp.MustCompile(`\$\{([^}:]+)(?::(-[^}]*))?\}`)

	return re.ReplaceAllStringFunc(content, func(match string) string {
		submatches := re.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		defaultValue := ""
		if len(submatches) > 2 && submatches[2] != "" {
			defaultValue = strings.TrimPrefix(submatches[2], "-")
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

// GetProviderConfig returns the configuration for one provider.
func (c *Config) GetProviderConfig(provider string) (models.ProviderConfig, bool) {
	cfg, exists := c.Providers[strings.ToLower(provider)]
	return cfg, exists
}

// GetNormalizedLogLevel returns the log level lowercased.
func (c *Config) GetNormalizedLogLevel() string {
	return strings.ToLower(c.Server.LogLevel)
}

// IsProduction reports whether the environment is production.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Validate checks that required configuration values are set and that each
// configured provider is well-formed.
func (c *Config) Validate() error {
	var missing []string

	if c.Server.Port == "" {
		missing = append(missing, "server.port")
	}
	if c.Server.AllowedOrigins == "" {
		missing = append(missing, "server.allowed_origins")
	}
	if len(c.Providers) == 0 {
		missing = append(missing, "providers")
	}

	if len(missing) > 0 {
		return &ValidationError{MissingFields: missing}
	}

	for name, p := range c.Providers {
		if p.Quota.Limit > 0 && p.Quota.ResetInterval != "" {
			if _, err := time.ParseDuration(p.Quota.ResetInterval); err != nil {
				return fmt.Errorf("providers.%s.quota.reset_interval: %w", name, err)
			}
		}
	}

	return nil
}

// ValidationError lists the missing configuration fields.
type ValidationError struct {
	MissingFields []string
}

func (e *ValidationError) Error() string {
	return "missing required configuration fields: " + strings.Join(e.MissingFields, ", ")
}
