package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWallet = "0x1234567890123456789012345678901234567890"

func TestMoralis_NoKeyIsUnavailable(t *testing.T) {
	m := NewMoralis("")
	_, err := m.TokenBalances(context.Background(), testWallet)
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = m.NFTHoldings(context.Background(), testWallet)
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = m.HolderDistribution(context.Background(), testWallet)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestMoralis_TokenBalances(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("X-API-Key"))
		w.Write([]byte(`[
			{"token_address":"0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48","name":"USD Coin","symbol":"USDC","decimals":6,"balance":"2500000"},
			{"token_address":"0xdac17f958d2ee523a2206206994597c13d831ec7","name":"Tether USD","symbol":"USDT","decimals":6,"balance":"0"}
		]`))
	}))
	defer srv.Close()

	m := NewMoralis("test-key", WithMoralisBaseURL(srv.URL))
	balances, err := m.TokenBalances(context.Background(), testWallet)
	require.NoError(t, err)

	// Zero balances are dropped, addresses come back canonical.
	require.Len(t, balances, 1)
	assert.Equal(t, "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", balances[0].Token)
	assert.Equal(t, "USDC", balances[0].Symbol)
	assert.Equal(t, "moralis", balances[0].Provider)
	assert.Equal(t, int64(2500000), balances[0].Amount.Int64())
}

func TestMoralis_TokenBalances_UnparseableBalanceRejectsPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"token_address":"0xabc0000000000000000000000000000000000001","balance":"not-a-number"}]`))
	}))
	defer srv.Close()

	m := NewMoralis("test-key", WithMoralisBaseURL(srv.URL))
	_, err := m.TokenBalances(context.Background(), testWallet)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestMoralis_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusNotFound, ErrNotFound},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))
		m := NewMoralis("test-key", WithMoralisBaseURL(srv.URL))
		_, err := m.TokenBalances(context.Background(), testWallet)
		assert.ErrorIs(t, err, tt.want, "status %d", tt.status)
		srv.Close()
	}
}

func TestMoralis_NFTHoldings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":[
			{"token_address":"0xB47e3cd837dDF8e4c57F05d70Ab865de6e193BBB","token_id":"42","name":"CryptoPunks","token_uri":"ipfs://QmHash/42.json"}
		]}`))
	}))
	defer srv.Close()

	m := NewMoralis("test-key", WithMoralisBaseURL(srv.URL))
	holdings, err := m.NFTHoldings(context.Background(), testWallet)
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.Equal(t, "0xb47e3cd837ddf8e4c57f05d70ab865de6e193bbb", holdings[0].Contract)
	assert.Equal(t, "42", holdings[0].TokenID)
	assert.Equal(t, "ipfs://QmHash/42.json", holdings[0].MetadataRef)
}

func TestNormalizeMoralisOwners(t *testing.T) {
	raw := []moralisOwner{
		{OwnerOf: "0xAAA0000000000000000000000000000000000001", Amount: "3"},
		{OwnerOf: "0xBBB0000000000000000000000000000000000002", Amount: ""},
		{OwnerOf: "0xaaa0000000000000000000000000000000000001", Amount: "2"},
	}
	set, err := normalizeMoralisOwners(raw)
	require.NoError(t, err)

	// Same owner in mixed case merges; missing amount counts as one.
	require.Len(t, set.Holders, 2)
	assert.Equal(t, "0xaaa0000000000000000000000000000000000001", set.Holders[0].Address)
	assert.Equal(t, int64(5), set.Holders[0].Count)
	assert.Equal(t, int64(1), set.Holders[1].Count)
	assert.Equal(t, int64(6), set.Total)
	assert.False(t, set.Estimated)
}
