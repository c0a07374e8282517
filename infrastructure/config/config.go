package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration. Values load in layers:
// compiled defaults, then the optional YAML file named by CONFIG_FILE,
// then environment variables on top.
type Config struct {
	// Server configuration
	ServerAddress string `yaml:"server_address"`
	Environment   string `yaml:"environment"`

	// AWS configuration
	AWSRegion     string `yaml:"aws_region"`
	DynamoDBTable string `yaml:"dynamodb_table"`
	EventBusName  string `yaml:"event_bus_name"`

	// Lambda configuration
	IsLambda           bool   `yaml:"is_lambda"`
	LambdaFunctionName string `yaml:"-"`

	// Cache configuration
	QueryCacheTTLSeconds    int `yaml:"query_cache_ttl_seconds"`
	AnalysisCacheTTLSeconds int `yaml:"analysis_cache_ttl_seconds"`

	// Analysis limits file, watched for runtime changes. Empty disables
	// the watcher.
	AnalysisLimitsFile string `yaml:"analysis_limits_file"`

	// Rate limiting
	RateLimitPerSecond float64 `yaml:"rate_limit_per_second"`
	RateLimitBurst     int     `yaml:"rate_limit_burst"`

	// Logging
	LogLevel string `yaml:"log_level"`

	// Observability
	EnableMetrics   bool   `yaml:"enable_metrics"`
	EnableTracing   bool   `yaml:"enable_tracing"`
	TracingEndpoint string `yaml:"tracing_endpoint"`

	// HTTP features
	EnableCORS bool `yaml:"enable_cors"`
}

// LoadConfig loads configuration from defaults, optional YAML file, and
// environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress:           ":8080",
		Environment:             "development",
		AWSRegion:               "us-west-2",
		DynamoDBTable:           "catgraph",
		EventBusName:            "catgraph-events",
		QueryCacheTTLSeconds:    60,
		AnalysisCacheTTLSeconds: 300,
		RateLimitPerSecond:      50,
		RateLimitBurst:          100,
		LogLevel:                "info",
		EnableCORS:              true,
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	applyEnvironment(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load is an alias for LoadConfig
func Load() (*Config, error) {
	return LoadConfig()
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvironment overrides config fields from environment variables.
// Environment variables win over file values.
func applyEnvironment(cfg *Config) {
	cfg.ServerAddress = getEnv("SERVER_ADDRESS", cfg.ServerAddress)
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
	cfg.AWSRegion = getEnv("AWS_REGION", cfg.AWSRegion)
	cfg.DynamoDBTable = getEnv("TABLE_NAME", getEnv("DYNAMODB_TABLE", cfg.DynamoDBTable))
	cfg.EventBusName = getEnv("EVENT_BUS_NAME", cfg.EventBusName)

	cfg.IsLambda = getEnvBool("IS_LAMBDA", cfg.IsLambda)
	cfg.LambdaFunctionName = getEnv("AWS_LAMBDA_FUNCTION_NAME", "")

	cfg.QueryCacheTTLSeconds = getEnvInt("QUERY_CACHE_TTL", cfg.QueryCacheTTLSeconds)
	cfg.AnalysisCacheTTLSeconds = getEnvInt("ANALYSIS_CACHE_TTL", cfg.AnalysisCacheTTLSeconds)
	cfg.AnalysisLimitsFile = getEnv("ANALYSIS_LIMITS_FILE", cfg.AnalysisLimitsFile)

	cfg.RateLimitPerSecond = getEnvFloat("RATE_LIMIT_PER_SECOND", cfg.RateLimitPerSecond)
	cfg.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", cfg.RateLimitBurst)

	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.EnableMetrics = getEnvBool("ENABLE_METRICS", cfg.EnableMetrics)
	cfg.EnableTracing = getEnvBool("ENABLE_TRACING", cfg.EnableTracing)
	cfg.TracingEndpoint = getEnv("TRACING_ENDPOINT", cfg.TracingEndpoint)
	cfg.EnableCORS = getEnvBool("ENABLE_CORS", cfg.EnableCORS)
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if c.Environment == "production" {
		if c.DynamoDBTable == "" {
			return fmt.Errorf("DYNAMODB_TABLE is required in production")
		}
		if c.EventBusName == "" {
			return fmt.Errorf("EVENT_BUS_NAME is required in production")
		}
	}
	if c.QueryCacheTTLSeconds < 0 || c.AnalysisCacheTTLSeconds < 0 {
		return fmt.Errorf("cache TTLs cannot be negative")
	}
	if c.RateLimitPerSecond < 0 {
		return fmt.Errorf("rate limit cannot be negative")
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

// getEnvFloat gets a float environment variable with a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
