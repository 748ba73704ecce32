package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mbd888/nftsentry/internal/facts"
)

const (
	etherscanName    = "etherscan"
	etherscanBaseURL = "https://api.etherscan.io/api"
)

// Etherscan answers contract provenance questions: is the source code
// verified, and when did the contract first transact.
type Etherscan struct {
	apiKey  string
	baseURL string
	httpc   *http.Client
}

// EtherscanOption configures the client.
type EtherscanOption func(*Etherscan)

// WithEtherscanBaseURL overrides the API base URL (for tests).
func WithEtherscanBaseURL(u string) EtherscanOption {
	return func(e *Etherscan) { e.baseURL = u }
}

// WithEtherscanTimeout overrides the per-call HTTP timeout.
func WithEtherscanTimeout(d time.Duration) EtherscanOption {
	return func(e *Etherscan) { e.httpc = newHTTPClient(d) }
}

// NewEtherscan creates an Etherscan client. An empty apiKey is allowed;
// calls then short-circuit to ErrUnavailable without touching the network.
func NewEtherscan(apiKey string, opts ...EtherscanOption) *Etherscan {
	e := &Etherscan{
		apiKey:  apiKey,
		baseURL: etherscanBaseURL,
		httpc:   newHTTPClient(defaultTimeout),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the provider identifier used in fact attribution.
func (e *Etherscan) Name() string { return etherscanName }

type etherscanSourceEntry struct {
	SourceCode   string `json:"SourceCode"`
	ContractName string `json:"ContractName"`
}

type etherscanSourceResponse struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message"`
	Result  []etherscanSourceEntry `json:"result"`
}

type etherscanTx struct {
	TimeStamp string `json:"timeStamp"`
}

type etherscanTxResponse struct {
	Status  string        `json:"status"`
	Message string        `json:"message"`
	Result  []etherscanTx `json:"result"`
}

// Verification reports whether a contract has verified source code and,
// best effort, when the contract first transacted. A missing first-tx
// timestamp leaves CreatedAt zero rather than failing the whole fact.
func (e *Etherscan) Verification(ctx context.Context, contract string) (facts.ContractVerification, error) {
	if e.apiKey == "" {
		return facts.ContractVerification{}, &RequestError{Provider: etherscanName, Err: ErrUnavailable}
	}

	u := fmt.Sprintf("%s?module=contract&action=getsourcecode&address=%s&apikey=%s",
		e.baseURL, url.QueryEscape(contract), url.QueryEscape(e.apiKey))
	var resp etherscanSourceResponse
	if err := getJSON(ctx, e.httpc, etherscanName, u, nil, &resp); err != nil {
		return facts.ContractVerification{}, err
	}
	if len(resp.Result) == 0 {
		return facts.ContractVerification{}, &RequestError{Provider: etherscanName, Err: fmt.Errorf("%w: empty source result", ErrMalformed)}
	}

	// Etherscan returns a placeholder entry with empty SourceCode for
	// unverified contracts rather than an error.
	verified := resp.Result[0].SourceCode != ""

	v := facts.ContractVerification{Provider: etherscanName, IsVerified: verified}
	if created, err := e.firstTransaction(ctx, contract); err == nil {
		v.CreatedAt = created
	}
	return v, nil
}

// firstTransaction returns the timestamp of the earliest transaction
// touching the contract, which bounds the contract's age.
func (e *Etherscan) firstTransaction(ctx context.Context, contract string) (time.Time, error) {
	u := fmt.Sprintf("%s?module=account&action=txlist&address=%s&startblock=0&page=1&offset=1&sort=asc&apikey=%s",
		e.baseURL, url.QueryEscape(contract), url.QueryEscape(e.apiKey))
	var resp etherscanTxResponse
	if err := getJSON(ctx, e.httpc, etherscanName, u, nil, &resp); err != nil {
		return time.Time{}, err
	}
	if len(resp.Result) == 0 {
		return time.Time{}, fmt.Errorf("etherscan: no transactions for %s", contract)
	}
	unix, err := strconv.ParseInt(resp.Result[0].TimeStamp, 10, 64)
	if err != nil {
		return time.Time{}, &RequestError{Provider: etherscanName, Err: fmt.Errorf("%w: timestamp %q", ErrMalformed, resp.Result[0].TimeStamp)}
	}
	return time.Unix(unix, 0).UTC(), nil
}
