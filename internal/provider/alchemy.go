package provider

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mbd888/nftsentry/internal/facts"
)

const (
	alchemyName    = "alchemy"
	alchemyBaseURL = "https://eth-mainnet.g.alchemy.com"

	// alchemyMetadataCap bounds per-token metadata lookups on the balance
	// path; a wallet holding hundreds of dust tokens must not turn one
	// fetch into hundreds.
	alchemyMetadataCap = 25
)

// Alchemy is the secondary indexer for wallet token balances and NFT
// holdings. Balances come over JSON-RPC, NFTs over the REST NFT API.
type Alchemy struct {
	apiKey  string
	baseURL string
	httpc   *http.Client
}

// AlchemyOption configures the client.
type AlchemyOption func(*Alchemy)

// WithAlchemyBaseURL overrides the API base URL (for tests).
func WithAlchemyBaseURL(u string) AlchemyOption {
	return func(a *Alchemy) { a.baseURL = strings.TrimRight(u, "/") }
}

// WithAlchemyTimeout overrides the per-call HTTP timeout.
func WithAlchemyTimeout(d time.Duration) AlchemyOption {
	return func(a *Alchemy) { a.httpc = newHTTPClient(d) }
}

// NewAlchemy creates an Alchemy client. An empty apiKey is allowed; calls
// then short-circuit to ErrUnavailable without touching the network.
func NewAlchemy(apiKey string, opts ...AlchemyOption) *Alchemy {
	a := &Alchemy{
		apiKey:  apiKey,
		baseURL: alchemyBaseURL,
		httpc:   newHTTPClient(defaultTimeout),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the provider identifier used in fact attribution.
func (a *Alchemy) Name() string { return alchemyName }

type alchemyRPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type alchemyRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type alchemyBalanceEntry struct {
	ContractAddress string `json:"contractAddress"`
	TokenBalance    string `json:"tokenBalance"` // hex
}

type alchemyBalancesResponse struct {
	Result *struct {
		TokenBalances []alchemyBalanceEntry `json:"tokenBalances"`
	} `json:"result"`
	Error *alchemyRPCError `json:"error"`
}

type alchemyTokenMetadataResponse struct {
	Result *struct {
		Name     string `json:"name"`
		Symbol   string `json:"symbol"`
		Decimals int    `json:"decimals"`
	} `json:"result"`
	Error *alchemyRPCError `json:"error"`
}

// TokenBalances fetches and normalizes a wallet's ERC-20 positions.
// Symbol and decimals require one metadata lookup per held token, capped
// at alchemyMetadataCap.
func (a *Alchemy) TokenBalances(ctx context.Context, address string) ([]facts.TokenBalance, error) {
	if a.apiKey == "" {
		return nil, &RequestError{Provider: alchemyName, Err: ErrUnavailable}
	}

	rpcURL := fmt.Sprintf("%s/v2/%s", a.baseURL, url.PathEscape(a.apiKey))
	var resp alchemyBalancesResponse
	req := alchemyRPCRequest{JSONRPC: "2.0", ID: 1, Method: "alchemy_getTokenBalances", Params: []any{address, "erc20"}}
	if err := postJSON(ctx, a.httpc, alchemyName, rpcURL, req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, rpcFailure(resp.Error)
	}
	if resp.Result == nil {
		return nil, &RequestError{Provider: alchemyName, Err: fmt.Errorf("%w: missing result", ErrMalformed)}
	}

	var balances []facts.TokenBalance
	for _, entry := range resp.Result.TokenBalances {
		amount, err := parseHexAmount(entry.TokenBalance)
		if err != nil {
			return nil, &RequestError{Provider: alchemyName, Err: fmt.Errorf("%w: balance %q", ErrMalformed, entry.TokenBalance)}
		}
		if amount.Sign() <= 0 {
			continue
		}

		tb := facts.TokenBalance{
			Provider: alchemyName,
			Token:    facts.CanonicalAddress(entry.ContractAddress),
			Amount:   amount,
			Decimals: 18, // overwritten by metadata when available
		}
		if len(balances) < alchemyMetadataCap {
			if name, symbol, decimals, err := a.tokenMetadata(ctx, rpcURL, entry.ContractAddress); err == nil {
				tb.Name, tb.Symbol, tb.Decimals = name, symbol, decimals
			}
		}
		balances = append(balances, tb)
	}
	return balances, nil
}

func (a *Alchemy) tokenMetadata(ctx context.Context, rpcURL, contract string) (name, symbol string, decimals int, err error) {
	var resp alchemyTokenMetadataResponse
	req := alchemyRPCRequest{JSONRPC: "2.0", ID: 1, Method: "alchemy_getTokenMetadata", Params: []any{contract}}
	if err := postJSON(ctx, a.httpc, alchemyName, rpcURL, req, &resp); err != nil {
		return "", "", 0, err
	}
	if resp.Error != nil || resp.Result == nil {
		return "", "", 0, &RequestError{Provider: alchemyName, Err: ErrMalformed}
	}
	decimals = resp.Result.Decimals
	if decimals == 0 {
		decimals = 18
	}
	return resp.Result.Name, resp.Result.Symbol, decimals, nil
}

type alchemyOwnedNFT struct {
	Contract struct {
		Address string `json:"address"`
	} `json:"contract"`
	TokenID  string `json:"tokenId"`
	Name     string `json:"name"`
	TokenURI string `json:"tokenUri"`
}

type alchemyNFTsResponse struct {
	OwnedNFTs []alchemyOwnedNFT `json:"ownedNfts"`
}

// NFTHoldings fetches and normalizes a wallet's NFT positions.
func (a *Alchemy) NFTHoldings(ctx context.Context, address string) ([]facts.NFTHolding, error) {
	if a.apiKey == "" {
		return nil, &RequestError{Provider: alchemyName, Err: ErrUnavailable}
	}

	u := fmt.Sprintf("%s/nft/v3/%s/getNFTsForOwner?owner=%s", a.baseURL, url.PathEscape(a.apiKey), url.QueryEscape(address))
	var resp alchemyNFTsResponse
	if err := getJSON(ctx, a.httpc, alchemyName, u, nil, &resp); err != nil {
		return nil, err
	}
	return normalizeAlchemyNFTs(resp.OwnedNFTs)
}

func normalizeAlchemyNFTs(raw []alchemyOwnedNFT) ([]facts.NFTHolding, error) {
	holdings := make([]facts.NFTHolding, 0, len(raw))
	for _, r := range raw {
		if r.Contract.Address == "" || r.TokenID == "" {
			return nil, &RequestError{Provider: alchemyName, Err: fmt.Errorf("%w: NFT entry missing contract or tokenId", ErrMalformed)}
		}
		holdings = append(holdings, facts.NFTHolding{
			Provider:    alchemyName,
			Contract:    facts.CanonicalAddress(r.Contract.Address),
			TokenID:     r.TokenID,
			Name:        r.Name,
			MetadataRef: r.TokenURI,
		})
	}
	return holdings, nil
}

// rpcFailure maps a JSON-RPC error object to the failure taxonomy.
func rpcFailure(e *alchemyRPCError) error {
	err := fmt.Errorf("rpc error %d: %s", e.Code, e.Message)
	if e.Code == 429 {
		err = ErrRateLimited
	}
	return &RequestError{Provider: alchemyName, Err: err}
}

// parseHexAmount parses a 0x-prefixed big integer.
func parseHexAmount(s string) (*big.Int, error) {
	if s == "" {
		return big.NewInt(0), nil
	}
	trimmed := strings.TrimPrefix(s, "0x")
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 16)
	if !ok {
		return nil, fmt.Errorf("invalid hex amount %q", s)
	}
	return amount, nil
}
