package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"trustbit/database"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// NATS configuration
	NATSServers string // NATS server addresses (comma-separated)

	// Supervisor configuration
	SupervisorTimeout time.Duration // per-call timeout for start/stop requests

	// Billing configuration
	StartingBalance int64 // balance granted to newly registered users

	// Expiry sweep configuration
	SweepInterval time.Duration // how often the expiry reconciliation runs

	// Payment gateway configuration
	GatewayBaseURL   string
	GatewaySecretKey string

	// OpenTelemetry configuration
	OTelEnabled      bool
	OTelExporterType string // "otlp" or "console"
	OTelEndpoint     string
	OTelServiceName  string

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			if os.Getenv("GO_TEST") == "1" || os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.BuildDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		// Database
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		// NATS
		NATSServers: getEnvWithDefault("NATS_SERVERS", "nats://nats:4222"),

		// Supervisor
		SupervisorTimeout: 10 * time.Second,

		// Billing
		StartingBalance: 0,

		// Expiry sweep
		SweepInterval: 5 * time.Minute,

		// Payment gateway
		GatewayBaseURL:   getEnvWithDefault("GATEWAY_BASE_URL", "https://api.paystack.co"),
		GatewaySecretKey: os.Getenv("GATEWAY_SECRET_KEY"),

		// OpenTelemetry
		OTelEnabled:      os.Getenv("OTEL_ENABLED") == "true",
		OTelExporterType: getEnvWithDefault("OTEL_EXPORTER_TYPE", "console"),
		OTelEndpoint:     getEnvWithDefault("OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:  getEnvWithDefault("OTEL_SERVICE_NAME", "trustbit"),

		// Environment
		Environment: os.Getenv("ENVIRONMENT"),
	}

	// Override defaults if environment variables are set
	if balance := os.Getenv("STARTING_BALANCE"); balance != "" {
		if parsedBalance, err := strconv.ParseInt(balance, 10, 64); err == nil {
			config.StartingBalance = parsedBalance
		}
	}
	if interval := os.Getenv("SWEEP_INTERVAL"); interval != "" {
		if parsed, err := time.ParseDuration(interval); err == nil {
			config.SweepInterval = parsed
		}
	}
	if timeout := os.Getenv("SUPERVISOR_TIMEOUT"); timeout != "" {
		if parsed, err := time.ParseDuration(timeout); err == nil {
			config.SupervisorTimeout = parsed
		}
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if config.DatabaseName != "" && strings.TrimSpace(config.DatabaseName) == "" {
			return nil, fmt.Errorf("DATABASE_NAME cannot be empty when provided")
		}
	}

	return config, nil
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
// This should only be called from test files
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
// This should only be called from test files
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:       "test",
		StartingBalance:   0,
		SweepInterval:     5 * time.Minute,
		SupervisorTimeout: time.Second,
	}
}
