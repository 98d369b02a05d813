package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App       AppConfig       `yaml:"app"`
	Server    ServerConfig    `yaml:"server"`
	Market    MarketConfig    `yaml:"market"`
	Portfolio PortfolioConfig `yaml:"portfolio"`
	Database  DatabaseConfig  `yaml:"database"`
	Balance   BalanceConfig   `yaml:"balance"`
	NFT       NFTConfig       `yaml:"nft"`
}

type AppConfig struct {
	Environment    string `yaml:"environment"`
	LogLevel       string `yaml:"log_level"`
	CurrenciesPath string `yaml:"currencies_path"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type MarketConfig struct {
	Provider        string        `yaml:"provider"` // "coingecko" or "mock"
	BaseURL         string        `yaml:"base_url"`
	APIKey          string        `yaml:"api_key"`
	APIKeyPlan      string        `yaml:"api_key_plan"` // "demo" or "pro"
	CoinsCacheTTL   time.Duration `yaml:"coins_cache_ttl"`
	TokensCacheTTL  time.Duration `yaml:"tokens_cache_ttl"`
	HistoryCacheTTL time.Duration `yaml:"history_cache_ttl"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	RateLimitRPS    int           `yaml:"rate_limit_rps"`
	FallbackEnabled bool          `yaml:"fallback_enabled"` // mock answers, uncached, when coingecko fails
	HistoryWindow   time.Duration `yaml:"history_window"`
	RetryMax        int           `yaml:"retry_max"`
	RetryWaitMin    time.Duration `yaml:"retry_wait_min"`
	RetryWaitMax    time.Duration `yaml:"retry_wait_max"`
}

type PortfolioConfig struct {
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	PassTimeout     time.Duration `yaml:"pass_timeout"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "memory"
	Path   string `yaml:"path"`
}

type BalanceConfig struct {
	EthereumRPCURL     string        `yaml:"ethereum_rpc_url"`
	EtherscanBaseURL   string        `yaml:"etherscan_base_url"`
	EtherscanAPIKey    string        `yaml:"etherscan_api_key"`
	EtherscanRateLimit int           `yaml:"etherscan_rate_limit_rps"`
	BitcoinAPIURL      string        `yaml:"bitcoin_api_url"`
	SolanaRPCURL       string        `yaml:"solana_rpc_url"`
	CallTimeout        time.Duration `yaml:"call_timeout"`
}

type NFTConfig struct {
	BaseURL  string        `yaml:"base_url"`
	APIKey   string        `yaml:"api_key"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Environment:    "development",
			LogLevel:       "info",
			CurrenciesPath: "static/currencies.json",
		},
		Server: ServerConfig{
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Market: MarketConfig{
			Provider:        "coingecko",
			BaseURL:         "https://api.coingecko.com/api/v3",
			APIKeyPlan:      "demo",
			CoinsCacheTTL:   60 * time.Second,
			TokensCacheTTL:  60 * time.Second,
			HistoryCacheTTL: 10 * time.Minute,
			RequestTimeout:  10 * time.Second,
			RateLimitRPS:    10,
			FallbackEnabled: false,
			HistoryWindow:   24 * time.Hour,
			RetryMax:        3,
			RetryWaitMin:    500 * time.Millisecond,
			RetryWaitMax:    5 * time.Second,
		},
		Portfolio: PortfolioConfig{
			RefreshInterval: time.Minute,
			PassTimeout:     30 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			Path:   "data/portfolio.db",
		},
		Balance: BalanceConfig{
			EtherscanBaseURL:   "https://api.etherscan.io/v2/api",
			EtherscanRateLimit: 5,
			BitcoinAPIURL:      "https://blockchain.info",
			SolanaRPCURL:       "https://api.mainnet-beta.solana.com",
			CallTimeout:        10 * time.Second,
		},
		NFT: NFTConfig{
			BaseURL:  "https://api.opensea.io/api/v2",
			CacheTTL: 5 * time.Minute,
		},
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE, then .env and the process environment.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.App.Environment = getEnv("APP_ENV", c.App.Environment)
	c.App.LogLevel = getEnv("LOG_LEVEL", c.App.LogLevel)
	c.App.CurrenciesPath = getEnv("CURRENCIES_PATH", c.App.CurrenciesPath)

	c.Server.Host = getEnv("SERVER_HOST", c.Server.Host)
	c.Server.Port = getEnv("SERVER_PORT", c.Server.Port)
	c.Server.ReadTimeout = getDurationEnv("SERVER_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getDurationEnv("SERVER_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.IdleTimeout = getDurationEnv("SERVER_IDLE_TIMEOUT", c.Server.IdleTimeout)
	c.Server.ShutdownTimeout = getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)

	c.Market.Provider = getEnv("MARKET_PROVIDER", c.Market.Provider)
	c.Market.BaseURL = getEnv("COINGECKO_BASE_URL", c.Market.BaseURL)
	c.Market.APIKey = getEnv("COINGECKO_API_KEY", c.Market.APIKey)
	c.Market.APIKeyPlan = getEnv("COINGECKO_API_KEY_PLAN", c.Market.APIKeyPlan)
	c.Market.CoinsCacheTTL = getDurationEnv("MARKET_COINS_CACHE_TTL", c.Market.CoinsCacheTTL)
	c.Market.TokensCacheTTL = getDurationEnv("MARKET_TOKENS_CACHE_TTL", c.Market.TokensCacheTTL)
	c.Market.HistoryCacheTTL = getDurationEnv("MARKET_HISTORY_CACHE_TTL", c.Market.HistoryCacheTTL)
	c.Market.RequestTimeout = getDurationEnv("MARKET_REQUEST_TIMEOUT", c.Market.RequestTimeout)
	c.Market.RateLimitRPS = getIntEnv("MARKET_RATE_LIMIT_RPS", c.Market.RateLimitRPS)
	c.Market.FallbackEnabled = getBoolEnv("MARKET_FALLBACK_ENABLED", c.Market.FallbackEnabled)
	c.Market.HistoryWindow = getDurationEnv("MARKET_HISTORY_WINDOW", c.Market.HistoryWindow)
	c.Market.RetryMax = getIntEnv("MARKET_RETRY_MAX", c.Market.RetryMax)
	c.Market.RetryWaitMin = getDurationEnv("MARKET_RETRY_WAIT_MIN", c.Market.RetryWaitMin)
	c.Market.RetryWaitMax = getDurationEnv("MARKET_RETRY_WAIT_MAX", c.Market.RetryWaitMax)

	c.Portfolio.RefreshInterval = getDurationEnv("PORTFOLIO_REFRESH_INTERVAL", c.Portfolio.RefreshInterval)
	c.Portfolio.PassTimeout = getDurationEnv("PORTFOLIO_PASS_TIMEOUT", c.Portfolio.PassTimeout)

	c.Database.Driver = getEnv("DATABASE_DRIVER", c.Database.Driver)
	c.Database.Path = getEnv("DATABASE_PATH", c.Database.Path)

	c.Balance.EthereumRPCURL = getEnv("ETHEREUM_RPC_URL", c.Balance.EthereumRPCURL)
	c.Balance.EtherscanBaseURL = getEnv("ETHERSCAN_BASE_URL", c.Balance.EtherscanBaseURL)
	c.Balance.EtherscanAPIKey = getEnv("ETHERSCAN_API_KEY", c.Balance.EtherscanAPIKey)
	c.Balance.EtherscanRateLimit = getIntEnv("ETHERSCAN_RATE_LIMIT_RPS", c.Balance.EtherscanRateLimit)
	c.Balance.BitcoinAPIURL = getEnv("BITCOIN_API_URL", c.Balance.BitcoinAPIURL)
	c.Balance.SolanaRPCURL = getEnv("SOLANA_RPC_URL", c.Balance.SolanaRPCURL)
	c.Balance.CallTimeout = getDurationEnv("BALANCE_CALL_TIMEOUT", c.Balance.CallTimeout)

	c.NFT.BaseURL = getEnv("OPENSEA_BASE_URL", c.NFT.BaseURL)
	c.NFT.APIKey = getEnv("OPENSEA_API_KEY", c.NFT.APIKey)
	c.NFT.CacheTTL = getDurationEnv("NFT_CACHE_TTL", c.NFT.CacheTTL)
}

// Validate checks required fields and enum values.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port == "" {
		errs = append(errs, fmt.Errorf("server port is required"))
	}
	if c.App.CurrenciesPath == "" {
		errs = append(errs, fmt.Errorf("currencies path is required"))
	}

	switch c.Market.Provider {
	case "coingecko", "mock":
	default:
		errs = append(errs, fmt.Errorf("invalid market provider: %s (must be 'coingecko' or 'mock')", c.Market.Provider))
	}
	switch strings.ToLower(c.Market.APIKeyPlan) {
	case "demo", "pro":
	default:
		errs = append(errs, fmt.Errorf("invalid api key plan: %s (must be 'demo' or 'pro')", c.Market.APIKeyPlan))
	}
	if c.Market.RateLimitRPS <= 0 {
		errs = append(errs, fmt.Errorf("market rate limit must be positive"))
	}
	if c.Market.HistoryWindow <= 0 {
		errs = append(errs, fmt.Errorf("history window must be positive"))
	}

	if c.Portfolio.RefreshInterval <= 0 {
		errs = append(errs, fmt.Errorf("portfolio refresh interval must be positive"))
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			errs = append(errs, fmt.Errorf("database path is required"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("invalid database driver: %s (must be 'sqlite' or 'memory')", c.Database.Driver))
	}

	return errors.Join(errs...)
}

func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
