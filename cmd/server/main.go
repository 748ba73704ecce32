// NFTSentry - Risk analysis for Ethereum wallets, NFT collections, and tokens
package main

import (
	"context"
	"os"
	"time"

	"github.com/mbd888/nftsentry/internal/chain"
	"github.com/mbd888/nftsentry/internal/circuitbreaker"
	"github.com/mbd888/nftsentry/internal/config"
	"github.com/mbd888/nftsentry/internal/coordinator"
	"github.com/mbd888/nftsentry/internal/health"
	"github.com/mbd888/nftsentry/internal/logging"
	"github.com/mbd888/nftsentry/internal/provider"
	"github.com/mbd888/nftsentry/internal/scan"
	"github.com/mbd888/nftsentry/internal/server"
	"github.com/mbd888/nftsentry/internal/traces"
)

// Build info - set by ldflags
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

const (
	breakerThreshold = 5
	breakerOpenFor   = 30 * time.Second
)

func main() {
	logger := logging.New("info", "text")

	logger.Info("starting nftsentry",
		"version", Version,
		"commit", Commit,
		"build_time", BuildTime,
	)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger = logging.New(cfg.LogLevel, logFormat(cfg))

	logger.Info("configuration loaded",
		"env", cfg.Env,
		"chain_id", cfg.ChainID,
		"nft_sample_size", cfg.NFTSampleSize,
	)

	ctx := context.Background()
	shutdownTraces, err := traces.Init(ctx, cfg.OTLPEndpoint, logger)
	if err != nil {
		logger.Error("failed to init tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTraces(shutdownCtx); err != nil {
			logger.Warn("trace shutdown failed", "error", err)
		}
	}()

	reader, err := chain.New(cfg.RPCURL)
	if err != nil {
		logger.Error("failed to connect to chain RPC", "error", err)
		os.Exit(1)
	}
	defer reader.Close()

	// Provider clients are constructed unconditionally. A client with no
	// API key reports itself unavailable and its chain falls through.
	moralis := provider.NewMoralis(cfg.MoralisAPIKey,
		provider.WithMoralisTimeout(cfg.ProviderTimeout))
	alchemy := provider.NewAlchemy(cfg.AlchemyAPIKey,
		provider.WithAlchemyTimeout(cfg.ProviderTimeout))
	etherscan := provider.NewEtherscan(cfg.EtherscanAPIKey,
		provider.WithEtherscanTimeout(cfg.ProviderTimeout))
	opensea := provider.NewOpenSea(cfg.OpenSeaAPIKey,
		provider.WithOpenSeaTimeout(cfg.ProviderTimeout))
	coingecko := provider.NewCoinGecko(cfg.CoinGeckoAPIKey,
		provider.WithCoinGeckoTimeout(cfg.ProviderTimeout))
	forensics := provider.NewForensics(cfg.ForensicsAPIKey, cfg.ForensicsURL,
		provider.WithForensicsTimeout(cfg.ProviderTimeout))

	metadata := provider.NewMetadataFetcher(
		provider.WithIPFSGateway(cfg.IPFSGateway),
		provider.WithMetadataTimeout(cfg.MetadataTimeout),
	)

	breaker := circuitbreaker.New(breakerThreshold, breakerOpenFor)
	coord := coordinator.New(cfg.RetryAttempts, cfg.RetryBaseDelay,
		coordinator.WithBreaker(breaker))

	sources := scan.DefaultSources(
		moralis, alchemy, etherscan, opensea, coingecko, forensics,
		reader, chain.DefaultKnownTokens,
	)

	svc := scan.New(reader, coord, metadata, sources,
		scan.WithSampleSize(cfg.NFTSampleSize),
		scan.WithChainTimeout(cfg.ChainTimeout),
	)

	srv := server.New(cfg, svc, server.WithLogger(logger))
	srv.Health().Register("chain", chainCheck(reader))

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// chainCheck probes the RPC endpoint with a cheap balance read.
func chainCheck(reader *chain.Reader) health.Checker {
	const zeroAddress = "0x0000000000000000000000000000000000000000"
	return func(ctx context.Context) health.Status {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if _, err := reader.ETHBalance(ctx, zeroAddress); err != nil {
			return health.Status{Name: "chain", Healthy: false, Detail: err.Error()}
		}
		return health.Status{Name: "chain", Healthy: true}
	}
}

func logFormat(cfg *config.Config) string {
	if cfg.IsDevelopment() {
		return "text"
	}
	return "json"
}
