package scan

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mbd888/nftsentry/internal/coordinator"
	"github.com/mbd888/nftsentry/internal/facts"
	"github.com/mbd888/nftsentry/internal/logging"
	"github.com/mbd888/nftsentry/internal/metrics"
	"github.com/mbd888/nftsentry/internal/risk"
	"github.com/mbd888/nftsentry/internal/traces"
	"github.com/mbd888/nftsentry/internal/validation"
)

// AnalyzeNFT analyzes one token. The on-chain owner and token URI are the
// authoritative reads: when both fail there is nothing trustworthy to say
// about the token, so the analysis returns a terminal high-risk verdict
// instead of guessing. Everything else is best-effort.
func (s *Service) AnalyzeNFT(ctx context.Context, contract, tokenID string) (report *NFTAnalysis, err error) {
	if !facts.ValidAddress(contract) {
		return nil, fmt.Errorf("%w: address %q", ErrInvalidInput, contract)
	}
	if !validation.IsValidTokenID(tokenID) {
		return nil, fmt.Errorf("%w: token ID %q", ErrInvalidInput, tokenID)
	}
	addr := facts.CanonicalAddress(contract)

	ctx, span := traces.StartSpan(ctx, "scan.nft", traces.Address(addr), traces.TokenID(tokenID))
	defer span.End()
	timer := prometheus.NewTimer(metrics.AnalysisDuration.WithLabelValues("nft"))
	defer timer.ObserveDuration()

	defer func() {
		if r := recover(); r != nil {
			logging.L(ctx).Error("nft analysis panicked", "contract", addr, "token_id", tokenID, "panic", r)
			report = failedNFTAnalysis(addr, tokenID, "Analysis aborted by an internal error")
			err = nil
		}
	}()

	// Authoritative on-chain reads first.
	var (
		wg             sync.WaitGroup
		owner, uri     string
		collectionName string
		ownerErr       error
		uriErr         error
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		cctx, cancel := s.chainCtx(ctx)
		defer cancel()
		owner, ownerErr = s.reader.OwnerOf(cctx, addr, tokenID)
	}()
	go func() {
		defer wg.Done()
		cctx, cancel := s.chainCtx(ctx)
		defer cancel()
		uri, uriErr = s.reader.TokenURI(cctx, addr, tokenID)
	}()
	go func() {
		defer wg.Done()
		cctx, cancel := s.chainCtx(ctx)
		defer cancel()
		collectionName, _ = s.reader.CollectionName(cctx, addr)
	}()
	wg.Wait()

	if ownerErr != nil && uriErr != nil {
		logging.L(ctx).Warn("authoritative reads failed, token may not exist",
			"contract", addr, "token_id", tokenID, "owner_error", ownerErr, "uri_error", uriErr)
		report = failedNFTAnalysis(addr, tokenID,
			"Token may not exist: on-chain owner and token URI lookups both failed")
		report.Collection = collectionName
		return report, nil
	}

	// Best-effort facts, fanned out.
	var (
		metadata     *facts.Metadata
		verification coordinator.Outcome[facts.ContractVerification]
		signals      coordinator.Outcome[[]facts.TradingSignal]
		floor        coordinator.Outcome[facts.PriceEstimate]
		behavior     coordinator.Outcome[facts.WalletBehavior]
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		verification = coordinator.Fetch(ctx, s.coord, "contract_verification", addr, s.sources.Verification)
	}()
	go func() {
		defer wg.Done()
		signals = coordinator.Fetch(ctx, s.coord, "trading_signals", addr, s.sources.TradingSignals)
	}()
	go func() {
		defer wg.Done()
		floor = coordinator.Fetch(ctx, s.coord, "floor_price", addr, s.sources.FloorPrice)
	}()
	if uriErr == nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if md, err := s.metadata.Fetch(ctx, uri); err == nil {
				metadata = &md
			}
		}()
	}
	if ownerErr == nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			behavior = coordinator.Fetch(ctx, s.coord, "wallet_behavior", owner, s.sources.WalletBehavior)
		}()
	}
	wg.Wait()

	nf := risk.NFTFacts{
		Contract: addr,
		TokenID:  tokenID,
		Metadata: metadata,
		Signals:  signals.Value,
	}
	if verification.Status == coordinator.StatusOK {
		nf.Verification = &verification.Value
	}
	if behavior.Status == coordinator.StatusOK {
		nf.OwnerBehavior = &behavior.Value
	}
	if floor.Status == coordinator.StatusOK {
		nf.Price = &floor.Value
	}

	verdict := s.eval.EvaluateNFT(nf)
	metrics.AnalysesTotal.WithLabelValues("nft", string(verdict.Level)).Inc()

	report = &NFTAnalysis{
		Contract:    addr,
		TokenID:     tokenID,
		Collection:  collectionName,
		Owner:       owner,
		RiskLevel:   verdict.Level,
		RiskFactors: verdict.Factors,
		Metadata:    metadata,
	}
	if metadata != nil {
		report.Name = metadata.Name
		report.Description = metadata.Description
		report.Image = metadata.Image
	}
	if report.Name == "" && collectionName != "" {
		report.Name = fmt.Sprintf("%s #%s", collectionName, tokenID)
	}
	return report, nil
}

// failedNFTAnalysis is the terminal verdict used when the analysis cannot
// say anything trustworthy about the token.
func failedNFTAnalysis(contract, tokenID, factor string) *NFTAnalysis {
	metrics.AnalysesTotal.WithLabelValues("nft", string(risk.LevelHigh)).Inc()
	return &NFTAnalysis{
		Contract:       contract,
		TokenID:        tokenID,
		RiskLevel:      risk.LevelHigh,
		RiskFactors:    []string{factor},
		AnalysisFailed: true,
	}
}
