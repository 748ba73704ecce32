// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
//
// The chain RPC endpoint is the only hard requirement: every analysis has
// at least one authoritative on-chain read. Provider API keys are optional;
// a missing key degrades that provider to "unavailable" per request.
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Blockchain settings
	RPCURL  string // required
	ChainID int64

	// Provider credentials (all optional)
	MoralisAPIKey   string
	AlchemyAPIKey   string
	EtherscanAPIKey string
	OpenSeaAPIKey   string
	CoinGeckoAPIKey string
	ForensicsAPIKey string
	ForensicsURL    string

	// Fetch behavior
	IPFSGateway     string        // HTTP gateway for ipfs:// metadata URIs
	RetryAttempts   int           // attempts per provider before falling back
	RetryBaseDelay  time.Duration // backoff unit between attempts
	ProviderTimeout time.Duration // per provider HTTP call
	MetadataTimeout time.Duration // off-chain metadata fetch
	ChainTimeout    time.Duration // direct RPC calls
	NFTSampleSize   int           // NFTs scored per wallet scan

	// Observability
	OTLPEndpoint string // OTLP gRPC endpoint, tracing disabled when empty

	// Security
	RateLimitRPM int
}

// Defaults (Ethereum mainnet)
const (
	DefaultChainID         = 1
	DefaultPort            = "8080"
	DefaultEnv             = "development"
	DefaultLogLevel        = "info"
	DefaultIPFSGateway     = "https://ipfs.io/ipfs/"
	DefaultRetryAttempts   = 3
	DefaultRetryBaseDelay  = 500 * time.Millisecond
	DefaultProviderTimeout = 10 * time.Second
	DefaultMetadataTimeout = 15 * time.Second
	DefaultChainTimeout    = 30 * time.Second
	DefaultNFTSampleSize   = 10
	DefaultRateLimit       = 120
)

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", DefaultPort),
		Env:             getEnv("ENV", DefaultEnv),
		LogLevel:        getEnv("LOG_LEVEL", DefaultLogLevel),
		RPCURL:          os.Getenv("RPC_URL"), // Required, no default
		ChainID:         getEnvInt64("CHAIN_ID", DefaultChainID),
		MoralisAPIKey:   os.Getenv("MORALIS_API_KEY"),
		AlchemyAPIKey:   os.Getenv("ALCHEMY_API_KEY"),
		EtherscanAPIKey: os.Getenv("ETHERSCAN_API_KEY"),
		OpenSeaAPIKey:   os.Getenv("OPENSEA_API_KEY"),
		CoinGeckoAPIKey: os.Getenv("COINGECKO_API_KEY"),
		ForensicsAPIKey: os.Getenv("FORENSICS_API_KEY"),
		ForensicsURL:    os.Getenv("FORENSICS_URL"),
		IPFSGateway:     getEnv("IPFS_GATEWAY", DefaultIPFSGateway),
		RetryAttempts:   int(getEnvInt64("RETRY_ATTEMPTS", DefaultRetryAttempts)),
		RetryBaseDelay:  getEnvDuration("RETRY_BASE_DELAY", DefaultRetryBaseDelay),
		ProviderTimeout: getEnvDuration("PROVIDER_TIMEOUT", DefaultProviderTimeout),
		MetadataTimeout: getEnvDuration("METADATA_TIMEOUT", DefaultMetadataTimeout),
		ChainTimeout:    getEnvDuration("CHAIN_TIMEOUT", DefaultChainTimeout),
		NFTSampleSize:   int(getEnvInt64("NFT_SAMPLE_SIZE", DefaultNFTSampleSize)),
		OTLPEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		RateLimitRPM:    int(getEnvInt64("RATE_LIMIT_RPM", DefaultRateLimit)),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present
func (c *Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("RPC_URL is required")
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("RETRY_ATTEMPTS must be at least 1")
	}
	if c.NFTSampleSize < 1 {
		return fmt.Errorf("NFT_SAMPLE_SIZE must be at least 1")
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
