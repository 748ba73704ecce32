package scan

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mbd888/nftsentry/internal/amounts"
	"github.com/mbd888/nftsentry/internal/coordinator"
	"github.com/mbd888/nftsentry/internal/facts"
	"github.com/mbd888/nftsentry/internal/logging"
	"github.com/mbd888/nftsentry/internal/metrics"
	"github.com/mbd888/nftsentry/internal/risk"
	"github.com/mbd888/nftsentry/internal/traces"
)

// AnalyzeWallet scans one wallet: authoritative ETH balance, token
// positions, and a bounded sample of NFT holdings, each scored
// independently and folded into the aggregate wallet score.
func (s *Service) AnalyzeWallet(ctx context.Context, address string) (report *WalletReport, err error) {
	if !facts.ValidAddress(address) {
		return nil, fmt.Errorf("%w: address %q", ErrInvalidInput, address)
	}
	addr := facts.CanonicalAddress(address)

	ctx, span := traces.StartSpan(ctx, "scan.wallet", traces.Address(addr))
	defer span.End()
	timer := prometheus.NewTimer(metrics.AnalysisDuration.WithLabelValues("wallet"))
	defer timer.ObserveDuration()

	defer func() {
		if r := recover(); r != nil {
			logging.L(ctx).Error("wallet analysis panicked", "address", addr, "panic", r)
			report = failedWalletReport(addr)
			err = nil
		}
	}()

	// ETH balance is authoritative; token and NFT positions are tolerant
	// of partial data. All three run concurrently.
	var (
		wg     sync.WaitGroup
		ethBal *big.Int
		ethErr error
		tokens coordinator.Outcome[[]facts.TokenBalance]
		nfts   coordinator.Outcome[[]facts.NFTHolding]
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		cctx, cancel := s.chainCtx(ctx)
		defer cancel()
		ethBal, ethErr = s.reader.ETHBalance(cctx, addr)
	}()
	go func() {
		defer wg.Done()
		tokens = coordinator.Fetch(ctx, s.coord, "token_balances", addr, s.sources.TokenBalances)
	}()
	go func() {
		defer wg.Done()
		nfts = coordinator.Fetch(ctx, s.coord, "nft_holdings", addr, s.sources.NFTHoldings)
	}()
	wg.Wait()

	if ethErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrChainUnavailable, ethErr)
	}

	tokenReports, tokenVerdicts := s.scoreTokens(tokens.Value)
	nftReports, nftVerdicts := s.scoreWalletNFTs(ctx, addr, nfts.Value)

	score := risk.WalletScore(tokenVerdicts, nftVerdicts)
	level := risk.LevelForScore(score)
	metrics.AnalysesTotal.WithLabelValues("wallet", string(level)).Inc()

	return &WalletReport{
		Address:    addr,
		ETHBalance: amounts.Format(ethBal, amounts.ETHDecimals),
		Tokens:     tokenReports,
		NFTs:       nftReports,
		NFTCount:   len(nfts.Value),
		RiskScore:  score,
		RiskLevel:  level,
		Summary: fmt.Sprintf("%d token position(s), %d NFT(s) held, %d NFT(s) scored; risk level %s",
			len(tokenReports), len(nfts.Value), len(nftReports), level),
	}, nil
}

// scoreTokens evaluates each positive token position.
func (s *Service) scoreTokens(balances []facts.TokenBalance) ([]TokenReport, []risk.Verdict) {
	reports := make([]TokenReport, 0, len(balances))
	verdicts := make([]risk.Verdict, 0, len(balances))
	for _, b := range balances {
		if !b.Positive() {
			continue
		}
		v := s.eval.EvaluateToken(risk.TokenFacts{
			Address: b.Token,
			Name:    b.Name,
			Symbol:  b.Symbol,
		})
		verdicts = append(verdicts, v)
		reports = append(reports, TokenReport{
			Contract:    b.Token,
			Name:        b.Name,
			Symbol:      b.Symbol,
			Balance:     amounts.Format(b.Amount, b.Decimals),
			Provider:    b.Provider,
			RiskLevel:   v.Level,
			RiskFactors: v.Factors,
		})
	}
	return reports, verdicts
}

// scoreWalletNFTs evaluates the first sampleSize holdings. Metadata is
// fetched per sampled NFT; wallet behavior is fetched once per wallet and
// merged into every sampled NFT's facts.
func (s *Service) scoreWalletNFTs(ctx context.Context, wallet string, holdings []facts.NFTHolding) ([]NFTReport, []risk.Verdict) {
	sample := holdings
	if len(sample) > s.sampleSize {
		sample = sample[:s.sampleSize]
	}
	if len(sample) == 0 {
		return nil, nil
	}

	var (
		wg       sync.WaitGroup
		behavior coordinator.Outcome[facts.WalletBehavior]
		docs     = make([]*facts.Metadata, len(sample))
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		behavior = coordinator.Fetch(ctx, s.coord, "wallet_behavior", wallet, s.sources.WalletBehavior)
	}()
	for i, h := range sample {
		wg.Add(1)
		go func(i int, ref string) {
			defer wg.Done()
			if md, err := s.metadata.Fetch(ctx, ref); err == nil {
				docs[i] = &md
			}
		}(i, h.MetadataRef)
	}
	wg.Wait()

	var owner *facts.WalletBehavior
	if behavior.Status == coordinator.StatusOK {
		owner = &behavior.Value
	}

	reports := make([]NFTReport, 0, len(sample))
	verdicts := make([]risk.Verdict, 0, len(sample))
	for i, h := range sample {
		v := s.eval.EvaluateNFT(risk.NFTFacts{
			Contract:      h.Contract,
			TokenID:       h.TokenID,
			Metadata:      docs[i],
			OwnerBehavior: owner,
		})
		verdicts = append(verdicts, v)
		name := h.Name
		if name == "" && docs[i] != nil {
			name = docs[i].Name
		}
		reports = append(reports, NFTReport{
			Contract:    h.Contract,
			TokenID:     h.TokenID,
			Name:        name,
			RiskLevel:   v.Level,
			RiskFactors: v.Factors,
		})
	}
	return reports, verdicts
}

// failedWalletReport is the terminal verdict for an internal aggregation
// failure. The caller always receives a well-formed report.
func failedWalletReport(addr string) *WalletReport {
	metrics.AnalysesTotal.WithLabelValues("wallet", string(risk.LevelHigh)).Inc()
	return &WalletReport{
		Address:   addr,
		RiskScore: 0,
		RiskLevel: risk.LevelHigh,
		Summary:   "Analysis aborted by an internal error; treat this wallet as unscored and high risk",
	}
}
