// Package scan is the aggregation orchestrator. For one subject it decides
// which facts to request, fans the fetches out through the coordinator with
// bounded concurrency, merges whatever arrived, and hands the canonical
// facts to the risk evaluator. Every analysis produces a well-formed
// verdict even when a subset of providers is fully unavailable; only
// invalid input and a failed authoritative chain read surface as errors.
package scan

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/mbd888/nftsentry/internal/chain"
	"github.com/mbd888/nftsentry/internal/coordinator"
	"github.com/mbd888/nftsentry/internal/facts"
	"github.com/mbd888/nftsentry/internal/provider"
	"github.com/mbd888/nftsentry/internal/risk"
)

var (
	// ErrInvalidInput marks a malformed address or token ID. No provider
	// call is made for invalid input.
	ErrInvalidInput = errors.New("scan: invalid input")
	// ErrChainUnavailable marks a failed authoritative chain read. The
	// wallet ETH balance has no fallback; its failure fails the request.
	ErrChainUnavailable = errors.New("scan: authoritative chain read failed")
)

// ChainReader is the subset of the RPC reader the orchestrator needs.
type ChainReader interface {
	ETHBalance(ctx context.Context, addr string) (*big.Int, error)
	CollectionName(ctx context.Context, contract string) (string, error)
	TotalSupply(ctx context.Context, contract string) (*big.Int, error)
	OwnerOf(ctx context.Context, contract, tokenID string) (string, error)
	TokenURI(ctx context.Context, contract, tokenID string) (string, error)
	TokenBalances(ctx context.Context, wallet string, tokens []chain.KnownToken) ([]facts.TokenBalance, error)
}

// MetadataFetcher resolves a token URI into its metadata document.
type MetadataFetcher interface {
	Fetch(ctx context.Context, ref string) (facts.Metadata, error)
}

// Sources holds the ordered provider chain for every fact kind. Chains are
// configured at construction, never hard-coded at call sites.
type Sources struct {
	TokenBalances  []coordinator.Source[[]facts.TokenBalance]
	NFTHoldings    []coordinator.Source[[]facts.NFTHolding]
	Holders        []coordinator.Source[facts.HolderSet]
	Verification   []coordinator.Source[facts.ContractVerification]
	FloorPrice     []coordinator.Source[facts.PriceEstimate]
	TradingSignals []coordinator.Source[[]facts.TradingSignal]
	WalletBehavior []coordinator.Source[facts.WalletBehavior]
}

// Service runs the three analyses.
type Service struct {
	reader       ChainReader
	coord        *coordinator.Coordinator
	metadata     MetadataFetcher
	eval         *risk.Evaluator
	sources      Sources
	sampleSize   int
	chainTimeout time.Duration
	now          func() time.Time
}

// Option configures the service.
type Option func(*Service)

// WithEvaluator replaces the default evaluator (custom allow/deny lists).
func WithEvaluator(e *risk.Evaluator) Option {
	return func(s *Service) { s.eval = e }
}

// WithSampleSize bounds how many held NFTs a wallet scan scores.
func WithSampleSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.sampleSize = n
		}
	}
}

// WithChainTimeout bounds each direct RPC read.
func WithChainTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.chainTimeout = d
		}
	}
}

// WithClock replaces the time source (for the contract-age rule in tests).
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates the orchestrator.
func New(reader ChainReader, coord *coordinator.Coordinator, metadata MetadataFetcher, sources Sources, opts ...Option) *Service {
	s := &Service{
		reader:       reader,
		coord:        coord,
		metadata:     metadata,
		eval:         risk.NewEvaluator(nil),
		sources:      sources,
		sampleSize:   10,
		chainTimeout: 30 * time.Second,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultSources wires the standard provider chains. Nil clients are left
// out of their chains; an empty chain simply yields no data for that fact.
func DefaultSources(
	moralis *provider.Moralis,
	alchemy *provider.Alchemy,
	etherscan *provider.Etherscan,
	opensea *provider.OpenSea,
	coingecko *provider.CoinGecko,
	forensics *provider.Forensics,
	reader ChainReader,
	knownTokens []chain.KnownToken,
) Sources {
	var s Sources

	if moralis != nil {
		s.TokenBalances = append(s.TokenBalances, coordinator.Source[[]facts.TokenBalance]{
			Provider: moralis.Name(), Fetch: moralis.TokenBalances,
		})
		s.NFTHoldings = append(s.NFTHoldings, coordinator.Source[[]facts.NFTHolding]{
			Provider: moralis.Name(), Fetch: moralis.NFTHoldings,
		})
		s.Holders = append(s.Holders, coordinator.Source[facts.HolderSet]{
			Provider: moralis.Name(), Fetch: moralis.HolderDistribution,
		})
	}
	if alchemy != nil {
		s.TokenBalances = append(s.TokenBalances, coordinator.Source[[]facts.TokenBalance]{
			Provider: alchemy.Name(), Fetch: alchemy.TokenBalances,
		})
		s.NFTHoldings = append(s.NFTHoldings, coordinator.Source[[]facts.NFTHolding]{
			Provider: alchemy.Name(), Fetch: alchemy.NFTHoldings,
		})
	}
	if reader != nil {
		// The chain cannot enumerate positions, so the last-resort balance
		// source reads a static token list.
		s.TokenBalances = append(s.TokenBalances, coordinator.Source[[]facts.TokenBalance]{
			Provider: chain.ProviderName,
			Fetch: func(ctx context.Context, wallet string) ([]facts.TokenBalance, error) {
				return reader.TokenBalances(ctx, wallet, knownTokens)
			},
		})
	}
	if etherscan != nil {
		s.Verification = append(s.Verification, coordinator.Source[facts.ContractVerification]{
			Provider: etherscan.Name(), Fetch: etherscan.Verification,
		})
	}
	if opensea != nil {
		s.FloorPrice = append(s.FloorPrice, coordinator.Source[facts.PriceEstimate]{
			Provider: opensea.Name(), Fetch: opensea.FloorPrice,
		})
	}
	if coingecko != nil {
		s.FloorPrice = append(s.FloorPrice, coordinator.Source[facts.PriceEstimate]{
			Provider: coingecko.Name(), Fetch: coingecko.FloorPrice,
		})
	}
	if forensics != nil {
		s.TradingSignals = append(s.TradingSignals, coordinator.Source[[]facts.TradingSignal]{
			Provider: forensics.Name(), Fetch: forensics.TradingSignals,
		})
		s.WalletBehavior = append(s.WalletBehavior, coordinator.Source[facts.WalletBehavior]{
			Provider: forensics.Name(), Fetch: forensics.WalletBehavior,
		})
	}
	return s
}

// chainCtx bounds one direct RPC read.
func (s *Service) chainCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.chainTimeout)
}
