// NFTSentry one-shot CLI - runs a single analysis and prints the JSON report
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mbd888/nftsentry/internal/chain"
	"github.com/mbd888/nftsentry/internal/circuitbreaker"
	"github.com/mbd888/nftsentry/internal/config"
	"github.com/mbd888/nftsentry/internal/coordinator"
	"github.com/mbd888/nftsentry/internal/logging"
	"github.com/mbd888/nftsentry/internal/provider"
	"github.com/mbd888/nftsentry/internal/scan"
)

const usage = `Usage:
  scan wallet <address>              full wallet risk scan
  scan collection <contract>         collection assessment
  scan nft <contract> <token-id>     single token analysis

Configuration is read from the environment (.env is honored).
RPC_URL is required; provider API keys are optional.`

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// Log to stderr as text so stdout stays clean JSON.
	logger := logging.New(cfg.LogLevel, "text")
	ctx := logging.WithLogger(context.Background(), logger)

	svc, cleanup, err := buildService(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "setup: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	var report any
	switch os.Args[1] {
	case "wallet":
		report, err = svc.AnalyzeWallet(ctx, os.Args[2])
	case "collection":
		report, err = svc.CheckCollection(ctx, os.Args[2])
	case "nft":
		if len(os.Args) < 4 {
			fmt.Fprintln(os.Stderr, usage)
			os.Exit(2)
		}
		report, err = svc.AnalyzeNFT(ctx, os.Args[2], os.Args[3])
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "analysis failed: %v\n", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		fmt.Fprintf(os.Stderr, "encode report: %v\n", err)
		os.Exit(1)
	}
}

func buildService(cfg *config.Config) (*scan.Service, func(), error) {
	reader, err := chain.New(cfg.RPCURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect chain RPC: %w", err)
	}

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

	coord := coordinator.New(cfg.RetryAttempts, cfg.RetryBaseDelay,
		coordinator.WithBreaker(circuitbreaker.New(5, 30*time.Second)))

	sources := scan.DefaultSources(
		moralis, alchemy, etherscan, opensea, coingecko, forensics,
		reader, chain.DefaultKnownTokens,
	)

	svc := scan.New(reader, coord, metadata, sources,
		scan.WithSampleSize(cfg.NFTSampleSize),
		scan.WithChainTimeout(cfg.ChainTimeout),
	)

	cleanup := func() { _ = reader.Close() }
	return svc, cleanup, nil
}
