// Package config provides configuration management for the campaign escrow service.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Chain     ChainConfig
	Auth      AuthConfig
	Worker    WorkerConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Host string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Postgres   PostgresConfig
	Redis      RedisConfig
	ClickHouse ClickHouseConfig
}

// PostgresConfig holds Postgres configuration
type PostgresConfig struct {
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	MaxConnections int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
}

// ClickHouseConfig holds ClickHouse configuration for the activity event log
type ClickHouseConfig struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

// ChainConfig holds escrow program and RPC configuration
type ChainConfig struct {
	// RPCURL is the Solana JSON-RPC endpoint used for account reads
	RPCURL string
	// ProgramID is the base58 escrow program id; PDA derivation seeds under it
	ProgramID string
	// EVMRPCURL is the optional EVM deployment endpoint (empty disables it)
	EVMRPCURL string
	// EVMContract is the escrow contract address on the EVM deployment
	EVMContract string
	RequestTimeout time.Duration
}

// AuthConfig holds wallet authentication configuration
type AuthConfig struct {
	// AppURL appears as the Domain line of the sign-in message
	AppURL        string
	JWTSecret     string
	NonceTTL      time.Duration
	MessageTTL    time.Duration
	SessionTTL    time.Duration
	CookieName    string
	SecureCookies bool
}

// WorkerConfig holds reconciliation worker configuration
type WorkerConfig struct {
	PollInterval time.Duration
	// BatchSize caps how many due campaigns a single tick reconciles
	BatchSize int
}

// RateLimitConfig holds API rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// Load .env file (optional in production)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{
				Host:           getEnv("POSTGRES_HOST", "localhost"),
				Port:           getEnv("POSTGRES_PORT", "5432"),
				Database:       getEnv("POSTGRES_DB", "rent_to_earn"),
				User:           getEnv("POSTGRES_USER", "renttoearn"),
				Password:       getEnv("POSTGRES_PASSWORD", ""),
				MaxConnections: getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 50),
			},
			Redis: RedisConfig{
				Host:           getEnv("REDIS_HOST", "localhost"),
				Port:           getEnv("REDIS_PORT", "6379"),
				Password:       getEnv("REDIS_PASSWORD", ""),
				DB:             getEnvAsInt("REDIS_DB", 0),
				MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 50),
			},
			ClickHouse: ClickHouseConfig{
				Host:     getEnv("CLICKHOUSE_HOST", ""),
				Port:     getEnv("CLICKHOUSE_PORT", "9000"),
				Database: getEnv("CLICKHOUSE_DB", "rent_to_earn"),
				User:     getEnv("CLICKHOUSE_USER", "default"),
				Password: getEnv("CLICKHOUSE_PASSWORD", ""),
			},
		},
		Chain: ChainConfig{
			RPCURL:         getEnv("SOLANA_RPC_URL", "https://api.devnet.solana.com"),
			ProgramID:      getEnv("ESCROW_PROGRAM_ID", "79Za2f2rCStCvfTv74JPhDBS9BEW48mx9gNXaLvgFRdt"),
			EVMRPCURL:      getEnv("EVM_RPC_URL", ""),
			EVMContract:    getEnv("EVM_CONTRACT_ADDRESS", ""),
			RequestTimeout: getEnvAsDuration("CHAIN_REQUEST_TIMEOUT", 10*time.Second),
		},
		Auth: AuthConfig{
			AppURL:        getEnv("APP_URL", "http://localhost:3000"),
			JWTSecret:     getEnv("JWT_SECRET", "development-secret-change-in-production"),
			NonceTTL:      getEnvAsDuration("AUTH_NONCE_TTL", 10*time.Minute),
			MessageTTL:    getEnvAsDuration("AUTH_MESSAGE_TTL", 10*time.Minute),
			SessionTTL:    getEnvAsDuration("AUTH_SESSION_TTL", 7*24*time.Hour),
			CookieName:    getEnv("AUTH_COOKIE_NAME", "rte_session"),
			SecureCookies: getEnvAsBool("AUTH_SECURE_COOKIES", false),
		},
		Worker: WorkerConfig{
			PollInterval: getEnvAsDuration("RECONCILE_POLL_INTERVAL", 30*time.Second),
			BatchSize:    getEnvAsInt("RECONCILE_BATCH_SIZE", 100),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvAsInt("RATE_LIMIT_RPS", 20),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 40),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return config, nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool gets an environment variable as a boolean with a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
