package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"portfoliotracker/config"
	"portfoliotracker/internal/adapters/balance"
	"portfoliotracker/internal/adapters/cache"
	coingeckoadapter "portfoliotracker/internal/adapters/coingecko"
	"portfoliotracker/internal/adapters/currencies"
	etherscanadapter "portfoliotracker/internal/adapters/etherscan"
	httpserver "portfoliotracker/internal/adapters/http/server"
	"portfoliotracker/internal/adapters/httpclient"
	loggeradapter "portfoliotracker/internal/adapters/logger"
	"portfoliotracker/internal/adapters/metrics"
	"portfoliotracker/internal/adapters/opensea"
	"portfoliotracker/internal/adapters/storage"
	marketservice "portfoliotracker/internal/application/market"
	nftservice "portfoliotracker/internal/application/nft"
	portfolioservice "portfoliotracker/internal/application/portfolio"
	"portfoliotracker/internal/application/ratelimiter"
	walletservice "portfoliotracker/internal/application/wallet"
	"portfoliotracker/internal/domain/account"
	"portfoliotracker/internal/domain/market"
	"portfoliotracker/internal/domain/nft"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := loggeradapter.NewLogger(cfg.IsDevelopment(), cfg.App.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("Starting application",
		zap.String("environment", cfg.App.Environment),
		zap.String("version", version),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Application failed", zap.Error(err))
	}

	logger.Info("Application stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *loggeradapter.Logger) error {
	appMetrics := metrics.NewRegistry()

	currencyRepo, err := currencies.NewRepository(cfg.App.CurrenciesPath)
	if err != nil {
		return err
	}
	logger.Info("Currency registry loaded",
		zap.String("path", cfg.App.CurrenciesPath),
		zap.Int("count", currencyRepo.Count()),
	)

	accountRepo, closeRepo, err := openAccountRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	marketService := newMarketService(cfg, logger, appMetrics)

	portfolioService := portfolioservice.NewService(
		accountRepo,
		currencyRepo,
		marketService,
		portfolioservice.NewSnapshotStore(),
		portfolioservice.Config{PassTimeout: cfg.Portfolio.PassTimeout},
		logger.Named("portfolio"),
		appMetrics,
	)

	walletService := walletservice.NewService(
		accountRepo,
		currencyRepo,
		balanceReaders(ctx, cfg, logger),
		portfolioService,
		logger.Named("wallet"),
	)

	nftService := nftservice.NewService(
		opensea.NewClient(
			httpclient.New(retryConfig(cfg, cfg.Market.RequestTimeout), logger),
			cfg.NFT.BaseURL,
			cfg.NFT.APIKey,
		),
		accountRepo,
		cache.NewCache[[]nft.Nft](cfg.NFT.CacheTTL),
		logger.Named("nft"),
	)
	if cfg.NFT.APIKey == "" {
		logger.Warn("OpenSea API key not set, NFT lookups may be rejected")
	}

	handlerAdapter := httpserver.NewHandlerAdapter(
		portfolioService,
		walletService,
		nftService,
		logger,
		version,
	)

	server := httpserver.NewServer(httpserver.Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, handlerAdapter, appMetrics, logger)

	logger.Info("Server configured",
		zap.String("host", cfg.Server.Host),
		zap.String("port", cfg.Server.Port),
		zap.String("market_provider", cfg.Market.Provider),
		zap.String("database_driver", cfg.Database.Driver),
		zap.Duration("refresh_interval", cfg.Portfolio.RefreshInterval),
	)

	go portfolioService.Run(ctx, cfg.Portfolio.RefreshInterval)

	err = server.Run(ctx)
	portfolioService.Wait()
	return err
}

func openAccountRepository(ctx context.Context, cfg *config.Config, logger *loggeradapter.Logger) (account.Repository, func(), error) {
	if cfg.Database.Driver == "memory" {
		logger.Warn("Using in-memory storage, wallets will not survive a restart")
		return storage.NewMemoryRepository(), func() {}, nil
	}

	dataDir := filepath.Dir(cfg.Database.Path)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	logger.Info("Database directory ready", zap.String("path", dataDir))

	repo, err := storage.NewSQLiteRepository(ctx, cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create database repository: %w", err)
	}
	return repo, func() {
		if err := repo.Close(); err != nil {
			logger.Error("Failed to close database", zap.Error(err))
		}
	}, nil
}

func retryConfig(cfg *config.Config, timeout time.Duration) httpclient.Config {
	return httpclient.Config{
		Timeout:      timeout,
		RetryMax:     cfg.Market.RetryMax,
		RetryWaitMin: cfg.Market.RetryWaitMin,
		RetryWaitMax: cfg.Market.RetryWaitMax,
	}
}

func newMarketService(cfg *config.Config, logger *loggeradapter.Logger, appMetrics *metrics.Metrics) *marketservice.Service {
	svc := marketservice.NewService(
		marketservice.Caches{
			Coins:   cache.NewCache[market.CoinMarket](cfg.Market.CoinsCacheTTL),
			Tokens:  cache.NewCache[market.TokenPrice](cfg.Market.TokensCacheTTL),
			History: cache.NewCache[[]market.PriceSample](cfg.Market.HistoryCacheTTL),
		},
		ratelimiter.NewRateLimiter(cfg.Market.RateLimitRPS, time.Second),
		logger.Named("market"),
		appMetrics,
	)
	svc.SetHistoryWindow(cfg.Market.HistoryWindow)

	mock := coingeckoadapter.NewMockProvider()
	if cfg.Market.Provider == "mock" {
		logger.Info("Using mock market data provider")
		svc.SetProviders(mock, nil)
		return svc
	}

	if cfg.Market.APIKey == "" {
		logger.Warn("CoinGecko API key not set, some features may be limited")
	}
	client := coingeckoadapter.NewClient(
		httpclient.New(retryConfig(cfg, cfg.Market.RequestTimeout), logger.Named("coingecko")),
		cfg.Market.BaseURL,
		cfg.Market.APIKey,
		coingeckoadapter.Plan(strings.ToLower(cfg.Market.APIKeyPlan)),
	)

	var fallback market.Provider
	if cfg.Market.FallbackEnabled {
		fallback = mock
		logger.Info("Market data fallback enabled", zap.String("provider", "mock"))
	}
	svc.SetProviders(coingeckoadapter.NewMarketRepository(client), fallback)
	return svc
}

func balanceReaders(ctx context.Context, cfg *config.Config, logger *loggeradapter.Logger) []account.BalanceReader {
	readers := []account.BalanceReader{
		balance.NewBitcoinReader(
			httpclient.New(retryConfig(cfg, cfg.Balance.CallTimeout), logger),
			cfg.Balance.BitcoinAPIURL,
		),
	}

	if cfg.Balance.SolanaRPCURL != "" {
		sol, err := balance.DialSolana(
			ctx,
			cfg.Balance.SolanaRPCURL,
			httpclient.New(retryConfig(cfg, cfg.Balance.CallTimeout), logger.Named("solana")),
			cfg.Balance.CallTimeout,
		)
		if err != nil {
			logger.Warn("Failed to set up Solana RPC", zap.Error(err))
		} else {
			readers = append(readers, sol)
		}
	}

	if cfg.Balance.EthereumRPCURL != "" {
		evm, err := balance.DialEVM(ctx, cfg.Balance.EthereumRPCURL, "ethereum", cfg.Balance.CallTimeout)
		if err == nil {
			return append(readers, evm)
		}
		logger.Warn("Failed to connect to Ethereum RPC", zap.Error(err))
	}

	if cfg.Balance.EtherscanAPIKey == "" {
		logger.Warn("Neither Ethereum RPC nor Etherscan configured, EVM balances will not sync")
		return readers
	}

	logger.Info("Using Etherscan for EVM balances")
	client := etherscanadapter.NewClient(
		httpclient.New(retryConfig(cfg, cfg.Balance.CallTimeout), logger.Named("etherscan")),
		cfg.Balance.EtherscanBaseURL,
		cfg.Balance.EtherscanAPIKey,
		1,
	)
	limiter := ratelimiter.NewRateLimiter(cfg.Balance.EtherscanRateLimit, time.Second)
	return append(readers, etherscanadapter.NewBalanceReader(client, limiter, "ethereum"))
}
