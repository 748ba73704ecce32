// Package chain reads on-chain state over Ethereum JSON-RPC.
//
// It is the authoritative data source: ETH balances, ERC-721 ownership and
// token URIs come from here, and it doubles as the last-resort fallback for
// token balances when the indexing providers are down.
package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/mbd888/nftsentry/internal/facts"
)

// ProviderName attributes facts produced by direct chain calls.
const ProviderName = "chain"

// -----------------------------------------------------------------------------
// Errors - typed errors for programmatic handling
// -----------------------------------------------------------------------------

var (
	ErrRPCConnection  = errors.New("chain: RPC connection failed")
	ErrInvalidTokenID = errors.New("chain: invalid token ID")
	ErrCallReverted   = errors.New("chain: contract call reverted")
)

// CallError wraps a failed contract read with context
type CallError struct {
	Op       string // contract method that failed
	Contract string
	Err      error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("chain: %s on %s failed: %v", e.Op, e.Contract, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// -----------------------------------------------------------------------------
// Interfaces - for testability and flexibility
// -----------------------------------------------------------------------------

// EthClient abstracts go-ethereum client for testing
type EthClient interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	Close()
}

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

// Minimal ABIs for the read-only calls the scanner needs.
const erc20ABI = `[
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"name","outputs":[{"name":"","type":"string"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"totalSupply","outputs":[{"name":"","type":"uint256"}],"type":"function"}
]`

const erc721ABI = `[
	{"constant":true,"inputs":[],"name":"name","outputs":[{"name":"","type":"string"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"totalSupply","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"tokenId","type":"uint256"}],"name":"ownerOf","outputs":[{"name":"","type":"address"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"tokenId","type":"uint256"}],"name":"tokenURI","outputs":[{"name":"","type":"string"}],"type":"function"}
]`

// -----------------------------------------------------------------------------
// Types
// -----------------------------------------------------------------------------

// KnownToken is an entry of the static token list used when falling back to
// direct balanceOf calls (the chain cannot enumerate a wallet's positions).
type KnownToken struct {
	Address  string
	Name     string
	Symbol   string
	Decimals int
}

// Option configures the reader
type Option func(*Reader)

// WithClient sets a custom Ethereum client (useful for testing)
func WithClient(client EthClient) Option {
	return func(r *Reader) {
		r.client = client
	}
}

// Reader performs read-only contract calls against one RPC endpoint.
type Reader struct {
	client EthClient
	erc20  abi.ABI
	erc721 abi.ABI
}

// New creates a Reader connected to rpcURL.
func New(rpcURL string, opts ...Option) (*Reader, error) {
	if rpcURL == "" {
		return nil, fmt.Errorf("%w: RPC URL required", ErrRPCConnection)
	}

	parsed20, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ERC20 ABI: %w", err)
	}
	parsed721, err := abi.JSON(strings.NewReader(erc721ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ERC721 ABI: %w", err)
	}

	r := &Reader{erc20: parsed20, erc721: parsed721}

	for _, opt := range opts {
		opt(r)
	}

	if r.client == nil {
		client, err := ethclient.Dial(rpcURL)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRPCConnection, err)
		}
		r.client = client
	}

	return r, nil
}

// ETHBalance returns the ETH balance of an address in wei.
func (r *Reader) ETHBalance(ctx context.Context, addr string) (*big.Int, error) {
	balance, err := r.client.BalanceAt(ctx, common.HexToAddress(addr), nil)
	if err != nil {
		return nil, fmt.Errorf("chain: eth balance of %s: %w", addr, err)
	}
	return balance, nil
}

// CollectionName returns the on-chain name() of an NFT contract.
func (r *Reader) CollectionName(ctx context.Context, contract string) (string, error) {
	out, err := r.call(ctx, r.erc721, contract, "name")
	if err != nil {
		return "", err
	}
	name, ok := out[0].(string)
	if !ok {
		return "", &CallError{Op: "name", Contract: contract, Err: ErrCallReverted}
	}
	return name, nil
}

// TotalSupply returns the on-chain totalSupply() of a contract.
func (r *Reader) TotalSupply(ctx context.Context, contract string) (*big.Int, error) {
	out, err := r.call(ctx, r.erc721, contract, "totalSupply")
	if err != nil {
		return nil, err
	}
	supply, ok := out[0].(*big.Int)
	if !ok {
		return nil, &CallError{Op: "totalSupply", Contract: contract, Err: ErrCallReverted}
	}
	return supply, nil
}

// OwnerOf returns the current owner of a token, in canonical form.
func (r *Reader) OwnerOf(ctx context.Context, contract, tokenID string) (string, error) {
	id, err := parseTokenID(tokenID)
	if err != nil {
		return "", err
	}
	out, err := r.call(ctx, r.erc721, contract, "ownerOf", id)
	if err != nil {
		return "", err
	}
	owner, ok := out[0].(common.Address)
	if !ok {
		return "", &CallError{Op: "ownerOf", Contract: contract, Err: ErrCallReverted}
	}
	return facts.CanonicalAddress(owner.Hex()), nil
}

// TokenURI returns the metadata URI of a token.
func (r *Reader) TokenURI(ctx context.Context, contract, tokenID string) (string, error) {
	id, err := parseTokenID(tokenID)
	if err != nil {
		return "", err
	}
	out, err := r.call(ctx, r.erc721, contract, "tokenURI", id)
	if err != nil {
		return "", err
	}
	uri, ok := out[0].(string)
	if !ok {
		return "", &CallError{Op: "tokenURI", Contract: contract, Err: ErrCallReverted}
	}
	return uri, nil
}

// TokenBalances reads balanceOf for each token in the static list and
// returns the positive positions as canonical facts. This is the
// direct-chain fallback for wallet token balances.
func (r *Reader) TokenBalances(ctx context.Context, wallet string, tokens []KnownToken) ([]facts.TokenBalance, error) {
	owner := common.HexToAddress(wallet)

	var balances []facts.TokenBalance
	for _, tok := range tokens {
		out, err := r.call(ctx, r.erc20, tok.Address, "balanceOf", owner)
		if err != nil {
			// One unreadable token contract must not sink the rest.
			continue
		}
		amount, ok := out[0].(*big.Int)
		if !ok || amount.Sign() <= 0 {
			continue
		}
		balances = append(balances, facts.TokenBalance{
			Provider: ProviderName,
			Token:    facts.CanonicalAddress(tok.Address),
			Name:     tok.Name,
			Symbol:   tok.Symbol,
			Amount:   amount,
			Decimals: tok.Decimals,
		})
	}
	return balances, nil
}

// Close closes the underlying client connection.
func (r *Reader) Close() error {
	if r.client != nil {
		r.client.Close()
	}
	return nil
}

// call packs, executes, and unpacks one read-only contract call.
func (r *Reader) call(ctx context.Context, contractABI abi.ABI, contract, method string, args ...any) ([]any, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, &CallError{Op: method, Contract: contract, Err: err}
	}

	to := common.HexToAddress(contract)
	result, err := r.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, &CallError{Op: method, Contract: contract, Err: err}
	}
	if len(result) == 0 {
		return nil, &CallError{Op: method, Contract: contract, Err: ErrCallReverted}
	}

	out, err := contractABI.Unpack(method, result)
	if err != nil || len(out) == 0 {
		return nil, &CallError{Op: method, Contract: contract, Err: ErrCallReverted}
	}
	return out, nil
}

func parseTokenID(tokenID string) (*big.Int, error) {
	id, ok := new(big.Int).SetString(tokenID, 10)
	if !ok || id.Sign() < 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTokenID, tokenID)
	}
	return id, nil
}

// DefaultKnownTokens is the static list consulted by the direct-chain
// balance fallback on Ethereum mainnet.
var DefaultKnownTokens = []KnownToken{
	{Address: "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2", Name: "Wrapped Ether", Symbol: "WETH", Decimals: 18},
	{Address: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", Name: "USD Coin", Symbol: "USDC", Decimals: 6},
	{Address: "0xdac17f958d2ee523a2206206994597c13d831ec7", Name: "Tether USD", Symbol: "USDT", Decimals: 6},
	{Address: "0x6b175474e89094c44da98b954eedeac495271d0f", Name: "Dai Stablecoin", Symbol: "DAI", Decimals: 18},
	{Address: "0x514910771af9ca656af840dff83e8264ecf986ca", Name: "ChainLink Token", Symbol: "LINK", Decimals: 18},
}
