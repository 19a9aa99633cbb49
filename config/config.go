package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"noblechain/database"

	"github.com/joho/godotenv"
)

// Storage backends
const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

// Event sinks
const (
	EventSinkNone  = "none"
	EventSinkNATS  = "nats"
	EventSinkKafka = "kafka"
)

// Config holds all application configuration
type Config struct {
	// Storage
	StorageBackend string // "memory", "redis" or "postgres"

	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// Redis configuration
	RedisAddrs     []string
	RedisPassword  string
	RedisNamespace string

	// HTTP
	HTTPAddr string

	// Wallet
	RequireTransferPin bool
	BcryptCost         int
	SeedDemoUsers      int

	// Market
	MarketTickInterval time.Duration

	// Event forwarding
	EventSink    string // "none", "nats" or "kafka"
	NATSServers  string
	KafkaBrokers []string
	KafkaTopic   string

	// Logging
	LogLevel string

	// Environment
	Environment string // "development" or "production"
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
			if os.Getenv("ENVIRONMENT") == "test" {
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
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// load reads a .env file when present, then environment variables
func load() (*Config, error) {
	// A missing .env is normal outside local development
	_ = godotenv.Load()

	config := &Config{
		StorageBackend: getEnvWithDefault("STORAGE_BACKEND", StorageMemory),

		// Database
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		// Redis
		RedisAddrs:     splitList(getEnvWithDefault("REDIS_ADDRS", "localhost:6379")),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisNamespace: getEnvWithDefault("REDIS_NAMESPACE", "noblechain"),

		HTTPAddr: getEnvWithDefault("HTTP_ADDR", ":8080"),

		// Wallet settings with defaults
		RequireTransferPin: os.Getenv("REQUIRE_TRANSFER_PIN") == "true",
		BcryptCost:         10,
		SeedDemoUsers:      0,

		MarketTickInterval: 5 * time.Second,

		// Events
		EventSink:    getEnvWithDefault("EVENT_SINK", EventSinkNone),
		NATSServers:  getEnvWithDefault("NATS_SERVERS", "nats://localhost:4222"),
		KafkaBrokers: splitList(getEnvWithDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   getEnvWithDefault("KAFKA_TOPIC", "noblechain.events"),

		LogLevel: getEnvWithDefault("LOG_LEVEL", "info"),

		Environment: os.Getenv("ENVIRONMENT"),
	}

	// Override defaults if environment variables are set
	if cost := os.Getenv("BCRYPT_COST"); cost != "" {
		if parsed, err := strconv.Atoi(cost); err == nil {
			config.BcryptCost = parsed
		}
	}
	if seed := os.Getenv("SEED_DEMO_USERS"); seed != "" {
		parsed, err := strconv.Atoi(seed)
		if err != nil || parsed < 0 {
			return nil, fmt.Errorf("SEED_DEMO_USERS must be a non-negative integer, got %q", seed)
		}
		config.SeedDemoUsers = parsed
	}
	if interval := os.Getenv("MARKET_TICK_INTERVAL"); interval != "" {
		parsed, err := time.ParseDuration(interval)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("MARKET_TICK_INTERVAL must be a positive duration, got %q", interval)
		}
		config.MarketTickInterval = parsed
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	switch c.StorageBackend {
	case StorageMemory:
	case StorageRedis:
		if len(c.RedisAddrs) == 0 {
			return fmt.Errorf("REDIS_ADDRS is required for the redis backend")
		}
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
		// If DatabaseName is provided, ensure it's not empty
		if c.DatabaseName != "" && strings.TrimSpace(c.DatabaseName) == "" {
			return fmt.Errorf("DATABASE_NAME cannot be empty when provided")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}

	switch c.EventSink {
	case EventSinkNone, EventSinkNATS, EventSinkKafka:
	default:
		return fmt.Errorf("unknown EVENT_SINK %q", c.EventSink)
	}
	return nil
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
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
		StorageBackend:     StorageMemory,
		HTTPAddr:           ":0",
		BcryptCost:         4,
		MarketTickInterval: 5 * time.Second,
		EventSink:          EventSinkNone,
		LogLevel:           "info",
		Environment:        "test",
	}
}
