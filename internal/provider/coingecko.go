package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/mbd888/nftsentry/internal/facts"
)

const (
	coingeckoName    = "coingecko"
	coingeckoBaseURL = "https://api.coingecko.com/api/v3"
)

// CoinGecko is the fallback source for collection floor prices. It works
// without an API key; when one is configured it is sent as the demo-tier
// header for a higher rate limit.
type CoinGecko struct {
	apiKey  string
	baseURL string
	httpc   *http.Client
}

// CoinGeckoOption configures the client.
type CoinGeckoOption func(*CoinGecko)

// WithCoinGeckoBaseURL overrides the API base URL (for tests).
func WithCoinGeckoBaseURL(u string) CoinGeckoOption {
	return func(c *CoinGecko) { c.baseURL = u }
}

// WithCoinGeckoTimeout overrides the per-call HTTP timeout.
func WithCoinGeckoTimeout(d time.Duration) CoinGeckoOption {
	return func(c *CoinGecko) { c.httpc = newHTTPClient(d) }
}

// NewCoinGecko creates a CoinGecko client.
func NewCoinGecko(apiKey string, opts ...CoinGeckoOption) *CoinGecko {
	c := &CoinGecko{
		apiKey:  apiKey,
		baseURL: coingeckoBaseURL,
		httpc:   newHTTPClient(defaultTimeout),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the provider identifier used in fact attribution.
func (c *CoinGecko) Name() string { return coingeckoName }

type coingeckoNFTResponse struct {
	FloorPrice struct {
		NativeCurrency float64 `json:"native_currency"`
	} `json:"floor_price"`
}

// FloorPrice returns the collection floor in ETH. CoinGecko aggregates
// across marketplaces, so the quote carries medium confidence.
func (c *CoinGecko) FloorPrice(ctx context.Context, contract string) (facts.PriceEstimate, error) {
	u := fmt.Sprintf("%s/nfts/ethereum/contract/%s", c.baseURL, url.PathEscape(contract))
	var headers map[string]string
	if c.apiKey != "" {
		headers = map[string]string{"x-cg-demo-api-key": c.apiKey}
	}
	var resp coingeckoNFTResponse
	if err := getJSON(ctx, c.httpc, coingeckoName, u, headers, &resp); err != nil {
		return facts.PriceEstimate{}, err
	}
	if resp.FloorPrice.NativeCurrency < 0 {
		return facts.PriceEstimate{}, &RequestError{Provider: coingeckoName, Err: fmt.Errorf("%w: negative floor price", ErrMalformed)}
	}
	return facts.PriceEstimate{
		Provider:   coingeckoName,
		Value:      resp.FloorPrice.NativeCurrency,
		Confidence: 0.6,
	}, nil
}
