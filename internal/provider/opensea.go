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
	openseaName    = "opensea"
	openseaBaseURL = "https://api.opensea.io/api/v2"
)

// OpenSea is the primary source for collection floor prices.
type OpenSea struct {
	apiKey  string
	baseURL string
	httpc   *http.Client
}

// OpenSeaOption configures the client.
type OpenSeaOption func(*OpenSea)

// WithOpenSeaBaseURL overrides the API base URL (for tests).
func WithOpenSeaBaseURL(u string) OpenSeaOption {
	return func(o *OpenSea) { o.baseURL = u }
}

// WithOpenSeaTimeout overrides the per-call HTTP timeout.
func WithOpenSeaTimeout(d time.Duration) OpenSeaOption {
	return func(o *OpenSea) { o.httpc = newHTTPClient(d) }
}

// NewOpenSea creates an OpenSea client. An empty apiKey is allowed; calls
// then short-circuit to ErrUnavailable without touching the network.
func NewOpenSea(apiKey string, opts ...OpenSeaOption) *OpenSea {
	o := &OpenSea{
		apiKey:  apiKey,
		baseURL: openseaBaseURL,
		httpc:   newHTTPClient(defaultTimeout),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Name returns the provider identifier used in fact attribution.
func (o *OpenSea) Name() string { return openseaName }

type openseaStatsResponse struct {
	Total struct {
		FloorPrice float64 `json:"floor_price"`
	} `json:"total"`
}

// FloorPrice returns the collection floor in ETH. Marketplace quotes are
// exact order-book data, so confidence is high.
func (o *OpenSea) FloorPrice(ctx context.Context, contract string) (facts.PriceEstimate, error) {
	if o.apiKey == "" {
		return facts.PriceEstimate{}, &RequestError{Provider: openseaName, Err: ErrUnavailable}
	}

	u := fmt.Sprintf("%s/collections/%s/stats", o.baseURL, url.PathEscape(contract))
	headers := map[string]string{"X-API-KEY": o.apiKey}
	var resp openseaStatsResponse
	if err := getJSON(ctx, o.httpc, openseaName, u, headers, &resp); err != nil {
		return facts.PriceEstimate{}, err
	}
	if resp.Total.FloorPrice < 0 {
		return facts.PriceEstimate{}, &RequestError{Provider: openseaName, Err: fmt.Errorf("%w: negative floor price", ErrMalformed)}
	}
	return facts.PriceEstimate{
		Provider:   openseaName,
		Value:      resp.Total.FloorPrice,
		Confidence: 0.9,
	}, nil
}
