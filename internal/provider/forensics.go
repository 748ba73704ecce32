package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/mbd888/nftsentry/internal/facts"
)

const forensicsName = "forensics"

// Forensics talks to the trading-forensics service, an opaque analysis
// backend that reports manipulation signals per collection and behavior
// scores per wallet.
type Forensics struct {
	apiKey  string
	baseURL string
	httpc   *http.Client
}

// ForensicsOption configures the client.
type ForensicsOption func(*Forensics)

// WithForensicsTimeout overrides the per-call HTTP timeout.
func WithForensicsTimeout(d time.Duration) ForensicsOption {
	return func(f *Forensics) { f.httpc = newHTTPClient(d) }
}

// NewForensics creates a Forensics client pointed at baseURL. There is no
// default endpoint; an empty baseURL or apiKey short-circuits every call
// to ErrUnavailable.
func NewForensics(apiKey, baseURL string, opts ...ForensicsOption) *Forensics {
	f := &Forensics{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpc:   newHTTPClient(defaultTimeout),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Name returns the provider identifier used in fact attribution.
func (f *Forensics) Name() string { return forensicsName }

func (f *Forensics) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + f.apiKey}
}

type forensicsSignalsResponse struct {
	Signals []string `json:"signals"`
}

// TradingSignals returns the manipulation signals detected for a
// collection. Signal kinds the engine does not recognize are dropped so a
// backend upgrade cannot inject factors we have no rule for.
func (f *Forensics) TradingSignals(ctx context.Context, contract string) ([]facts.TradingSignal, error) {
	if f.apiKey == "" || f.baseURL == "" {
		return nil, &RequestError{Provider: forensicsName, Err: ErrUnavailable}
	}

	u := fmt.Sprintf("%s/v1/collections/%s/signals", f.baseURL, url.PathEscape(contract))
	var resp forensicsSignalsResponse
	if err := getJSON(ctx, f.httpc, forensicsName, u, f.headers(), &resp); err != nil {
		return nil, err
	}

	signals := make([]facts.TradingSignal, 0, len(resp.Signals))
	for _, s := range resp.Signals {
		kind := facts.SignalKind(s)
		if !kind.Known() {
			continue
		}
		signals = append(signals, facts.TradingSignal{Provider: forensicsName, Kind: kind})
	}
	return signals, nil
}

type forensicsBehaviorResponse struct {
	RiskScore *int     `json:"risk_score"`
	Flags     []string `json:"flags"`
}

// WalletBehavior returns the behavior assessment for a wallet.
func (f *Forensics) WalletBehavior(ctx context.Context, wallet string) (facts.WalletBehavior, error) {
	if f.apiKey == "" || f.baseURL == "" {
		return facts.WalletBehavior{}, &RequestError{Provider: forensicsName, Err: ErrUnavailable}
	}

	u := fmt.Sprintf("%s/v1/wallets/%s/behavior", f.baseURL, url.PathEscape(wallet))
	var resp forensicsBehaviorResponse
	if err := getJSON(ctx, f.httpc, forensicsName, u, f.headers(), &resp); err != nil {
		return facts.WalletBehavior{}, err
	}
	if resp.RiskScore == nil {
		return facts.WalletBehavior{}, &RequestError{Provider: forensicsName, Err: fmt.Errorf("%w: missing risk_score", ErrMalformed)}
	}
	if *resp.RiskScore < 0 || *resp.RiskScore > 100 {
		return facts.WalletBehavior{}, &RequestError{Provider: forensicsName, Err: fmt.Errorf("%w: risk_score %d out of range", ErrMalformed, *resp.RiskScore)}
	}
	return facts.WalletBehavior{
		Provider:  forensicsName,
		RiskScore: *resp.RiskScore,
		Flags:     resp.Flags,
	}, nil
}
