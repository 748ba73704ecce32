package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testContract = "0xb47e3cd837ddf8e4c57f05d70ab865de6e193bbb"

func TestEtherscan_NoKeyIsUnavailable(t *testing.T) {
	e := NewEtherscan("")
	_, err := e.Verification(context.Background(), testContract)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestEtherscan_Verification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("action") {
		case "getsourcecode":
			w.Write([]byte(`{"status":"1","message":"OK","result":[{"SourceCode":"contract Punks {}","ContractName":"Punks"}]}`))
		case "txlist":
			w.Write([]byte(`{"status":"1","message":"OK","result":[{"timeStamp":"1498117200"}]}`))
		default:
			t.Fatalf("unexpected action %q", r.URL.Query().Get("action"))
		}
	}))
	defer srv.Close()

	e := NewEtherscan("test-key", WithEtherscanBaseURL(srv.URL))
	v, err := e.Verification(context.Background(), testContract)
	require.NoError(t, err)

	assert.True(t, v.IsVerified)
	assert.Equal(t, "etherscan", v.Provider)
	assert.Equal(t, time.Unix(1498117200, 0).UTC(), v.CreatedAt)
}

func TestEtherscan_UnverifiedContract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("action") {
		case "getsourcecode":
			// Unverified contracts come back as a placeholder entry, not an error.
			w.Write([]byte(`{"status":"1","message":"OK","result":[{"SourceCode":"","ContractName":""}]}`))
		case "txlist":
			w.Write([]byte(`{"status":"0","message":"No transactions found","result":[]}`))
		}
	}))
	defer srv.Close()

	e := NewEtherscan("test-key", WithEtherscanBaseURL(srv.URL))
	v, err := e.Verification(context.Background(), testContract)
	require.NoError(t, err)

	assert.False(t, v.IsVerified)
	assert.True(t, v.CreatedAt.IsZero())
}

func TestEtherscan_EmptyResultIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"1","message":"OK","result":[]}`))
	}))
	defer srv.Close()

	e := NewEtherscan("test-key", WithEtherscanBaseURL(srv.URL))
	_, err := e.Verification(context.Background(), testContract)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestOpenSea_FloorPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("X-API-KEY"))
		w.Write([]byte(`{"total":{"floor_price":42.5}}`))
	}))
	defer srv.Close()

	o := NewOpenSea("test-key", WithOpenSeaBaseURL(srv.URL))
	price, err := o.FloorPrice(context.Background(), testContract)
	require.NoError(t, err)
	assert.Equal(t, 42.5, price.Value)
	assert.Equal(t, "opensea", price.Provider)
	assert.Greater(t, price.Confidence, 0.5)
}

func TestOpenSea_NoKeyIsUnavailable(t *testing.T) {
	o := NewOpenSea("")
	_, err := o.FloorPrice(context.Background(), testContract)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestCoinGecko_FloorPrice_WorksWithoutKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("x-cg-demo-api-key"))
		w.Write([]byte(`{"floor_price":{"native_currency":39.8}}`))
	}))
	defer srv.Close()

	c := NewCoinGecko("", WithCoinGeckoBaseURL(srv.URL))
	price, err := c.FloorPrice(context.Background(), testContract)
	require.NoError(t, err)
	assert.Equal(t, 39.8, price.Value)
	assert.Less(t, price.Confidence, 0.9)
}

func TestForensics_UnknownSignalsDropped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Write([]byte(`{"signals":["wash_trading","brand_new_signal","rapid_transfers"]}`))
	}))
	defer srv.Close()

	f := NewForensics("test-key", srv.URL)
	signals, err := f.TradingSignals(context.Background(), testContract)
	require.NoError(t, err)
	require.Len(t, signals, 2)
	assert.Equal(t, "wash_trading", string(signals[0].Kind))
	assert.Equal(t, "rapid_transfers", string(signals[1].Kind))
}

func TestForensics_WalletBehavior(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"risk_score":72,"flags":["mixer_interaction"]}`))
	}))
	defer srv.Close()

	f := NewForensics("test-key", srv.URL)
	behavior, err := f.WalletBehavior(context.Background(), testWallet)
	require.NoError(t, err)
	assert.Equal(t, 72, behavior.RiskScore)
	assert.Equal(t, []string{"mixer_interaction"}, behavior.Flags)
}

func TestForensics_ScoreOutOfRangeIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"risk_score":250}`))
	}))
	defer srv.Close()

	f := NewForensics("test-key", srv.URL)
	_, err := f.WalletBehavior(context.Background(), testWallet)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestForensics_NoEndpointIsUnavailable(t *testing.T) {
	f := NewForensics("test-key", "")
	_, err := f.TradingSignals(context.Background(), testContract)
	assert.ErrorIs(t, err, ErrUnavailable)
}
