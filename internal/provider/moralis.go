package provider

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mbd888/nftsentry/internal/facts"
)

const (
	moralisName    = "moralis"
	moralisBaseURL = "https://deep-index.moralis.io/api/v2.2"
)

// Moralis is the primary indexer for wallet token balances, NFT holdings,
// and collection holder distributions.
type Moralis struct {
	apiKey  string
	baseURL string
	httpc   *http.Client
}

// MoralisOption configures the client.
type MoralisOption func(*Moralis)

// WithMoralisBaseURL overrides the API base URL (for tests).
func WithMoralisBaseURL(u string) MoralisOption {
	return func(m *Moralis) { m.baseURL = u }
}

// WithMoralisTimeout overrides the per-call HTTP timeout.
func WithMoralisTimeout(d time.Duration) MoralisOption {
	return func(m *Moralis) { m.httpc = newHTTPClient(d) }
}

// NewMoralis creates a Moralis client. An empty apiKey is allowed; calls
// then short-circuit to ErrUnavailable without touching the network.
func NewMoralis(apiKey string, opts ...MoralisOption) *Moralis {
	m := &Moralis{
		apiKey:  apiKey,
		baseURL: moralisBaseURL,
		httpc:   newHTTPClient(defaultTimeout),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns the provider identifier used in fact attribution.
func (m *Moralis) Name() string { return moralisName }

func (m *Moralis) headers() map[string]string {
	return map[string]string{"X-API-Key": m.apiKey}
}

// moralisTokenBalance is the provider-shaped ERC-20 position record.
type moralisTokenBalance struct {
	TokenAddress string `json:"token_address"`
	Name         string `json:"name"`
	Symbol       string `json:"symbol"`
	Decimals     int    `json:"decimals"`
	Balance      string `json:"balance"`
}

// TokenBalances fetches and normalizes a wallet's ERC-20 positions.
func (m *Moralis) TokenBalances(ctx context.Context, address string) ([]facts.TokenBalance, error) {
	if m.apiKey == "" {
		return nil, &RequestError{Provider: moralisName, Err: ErrUnavailable}
	}

	u := fmt.Sprintf("%s/%s/erc20?chain=eth", m.baseURL, url.PathEscape(address))
	var raw []moralisTokenBalance
	if err := getJSON(ctx, m.httpc, moralisName, u, m.headers(), &raw); err != nil {
		return nil, err
	}
	return normalizeMoralisBalances(raw)
}

// normalizeMoralisBalances maps the provider shape to canonical facts.
// Zero and negative balances are dropped; an unparseable balance means the
// response shape is not what we negotiated, so the whole payload is rejected.
func normalizeMoralisBalances(raw []moralisTokenBalance) ([]facts.TokenBalance, error) {
	balances := make([]facts.TokenBalance, 0, len(raw))
	for _, r := range raw {
		if r.TokenAddress == "" {
			return nil, &RequestError{Provider: moralisName, Err: fmt.Errorf("%w: balance entry missing token_address", ErrMalformed)}
		}
		text := r.Balance
		if text == "" {
			text = "0"
		}
		amount, ok := new(big.Int).SetString(text, 10)
		if !ok {
			return nil, &RequestError{Provider: moralisName, Err: fmt.Errorf("%w: balance %q", ErrMalformed, r.Balance)}
		}
		if amount.Sign() <= 0 {
			continue
		}
		balances = append(balances, facts.TokenBalance{
			Provider: moralisName,
			Token:    facts.CanonicalAddress(r.TokenAddress),
			Name:     r.Name,
			Symbol:   r.Symbol,
			Amount:   amount,
			Decimals: r.Decimals,
		})
	}
	return balances, nil
}

// moralisNFT is the provider-shaped NFT ownership record.
type moralisNFT struct {
	TokenAddress string `json:"token_address"`
	TokenID      string `json:"token_id"`
	Name         string `json:"name"`
	TokenURI     string `json:"token_uri"`
}

type moralisNFTPage struct {
	Result []moralisNFT `json:"result"`
}

// NFTHoldings fetches and normalizes a wallet's NFT positions.
func (m *Moralis) NFTHoldings(ctx context.Context, address string) ([]facts.NFTHolding, error) {
	if m.apiKey == "" {
		return nil, &RequestError{Provider: moralisName, Err: ErrUnavailable}
	}

	u := fmt.Sprintf("%s/%s/nft?chain=eth&format=decimal", m.baseURL, url.PathEscape(address))
	var page moralisNFTPage
	if err := getJSON(ctx, m.httpc, moralisName, u, m.headers(), &page); err != nil {
		return nil, err
	}
	return normalizeMoralisNFTs(page.Result)
}

func normalizeMoralisNFTs(raw []moralisNFT) ([]facts.NFTHolding, error) {
	holdings := make([]facts.NFTHolding, 0, len(raw))
	for _, r := range raw {
		if r.TokenAddress == "" || r.TokenID == "" {
			return nil, &RequestError{Provider: moralisName, Err: fmt.Errorf("%w: NFT entry missing contract or token_id", ErrMalformed)}
		}
		holdings = append(holdings, facts.NFTHolding{
			Provider:    moralisName,
			Contract:    facts.CanonicalAddress(r.TokenAddress),
			TokenID:     r.TokenID,
			Name:        r.Name,
			MetadataRef: r.TokenURI,
		})
	}
	return holdings, nil
}

// moralisOwner is one entry of a collection's owner list.
type moralisOwner struct {
	OwnerOf string `json:"owner_of"`
	Amount  string `json:"amount"`
}

type moralisOwnerPage struct {
	Result []moralisOwner `json:"result"`
}

// HolderDistribution fetches and normalizes a collection's holder list.
// The result is measured data, never estimated.
func (m *Moralis) HolderDistribution(ctx context.Context, contract string) (facts.HolderSet, error) {
	if m.apiKey == "" {
		return facts.HolderSet{}, &RequestError{Provider: moralisName, Err: ErrUnavailable}
	}

	u := fmt.Sprintf("%s/nft/%s/owners?chain=eth&format=decimal", m.baseURL, url.PathEscape(contract))
	var page moralisOwnerPage
	if err := getJSON(ctx, m.httpc, moralisName, u, m.headers(), &page); err != nil {
		return facts.HolderSet{}, err
	}
	return normalizeMoralisOwners(page.Result)
}

func normalizeMoralisOwners(raw []moralisOwner) (facts.HolderSet, error) {
	counts := make(map[string]int64)
	order := make([]string, 0, len(raw))
	var total int64

	for _, r := range raw {
		if r.OwnerOf == "" {
			return facts.HolderSet{}, &RequestError{Provider: moralisName, Err: fmt.Errorf("%w: owner entry missing owner_of", ErrMalformed)}
		}
		n, err := strconv.ParseInt(r.Amount, 10, 64)
		if err != nil || n <= 0 {
			n = 1 // missing amount means one token
		}
		addr := facts.CanonicalAddress(r.OwnerOf)
		if _, seen := counts[addr]; !seen {
			order = append(order, addr)
		}
		counts[addr] += n
		total += n
	}

	holders := make([]facts.Holder, 0, len(order))
	for _, addr := range order {
		holders = append(holders, facts.Holder{Address: addr, Count: counts[addr]})
	}
	return facts.HolderSet{Provider: moralisName, Holders: holders, Total: total}, nil
}
