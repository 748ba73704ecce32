package chain

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient returns canned responses keyed by the first 4 bytes of calldata.
type fakeClient struct {
	balance   *big.Int
	responses map[string][]byte // method selector hex -> return data
	err       error
	closed    bool
}

func (f *fakeClient) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.balance, nil
}

func (f *fakeClient) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	sel := common.Bytes2Hex(call.Data[:4])
	data, ok := f.responses[sel]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	return data, nil
}

func (f *fakeClient) Close() { f.closed = true }

func packString(t *testing.T, s string) []byte {
	t.Helper()
	typ, err := abi.NewType("string", "", nil)
	require.NoError(t, err)
	out, err := abi.Arguments{{Type: typ}}.Pack(s)
	require.NoError(t, err)
	return out
}

func packUint256(t *testing.T, v *big.Int) []byte {
	t.Helper()
	typ, err := abi.NewType("uint256", "", nil)
	require.NoError(t, err)
	out, err := abi.Arguments{{Type: typ}}.Pack(v)
	require.NoError(t, err)
	return out
}

func packAddress(t *testing.T, addr string) []byte {
	t.Helper()
	typ, err := abi.NewType("address", "", nil)
	require.NoError(t, err)
	out, err := abi.Arguments{{Type: typ}}.Pack(common.HexToAddress(addr))
	require.NoError(t, err)
	return out
}

// selector computes the 4-byte selector hex for a method in the reader's ABIs.
func selector(t *testing.T, r *Reader, contractABI abi.ABI, method string) string {
	t.Helper()
	m, ok := contractABI.Methods[method]
	require.True(t, ok, "method %s", method)
	return common.Bytes2Hex(m.ID)
}

func newTestReader(t *testing.T, client EthClient) *Reader {
	t.Helper()
	r, err := New("https://rpc.example.org", WithClient(client))
	require.NoError(t, err)
	return r
}

func TestNew_RequiresRPCURL(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, ErrRPCConnection)
}

func TestETHBalance(t *testing.T) {
	client := &fakeClient{balance: big.NewInt(1500000000000000000)}
	r := newTestReader(t, client)

	bal, err := r.ETHBalance(context.Background(), "0x1234567890123456789012345678901234567890")
	require.NoError(t, err)
	assert.Equal(t, "1500000000000000000", bal.String())
}

func TestETHBalance_Error(t *testing.T) {
	client := &fakeClient{err: errors.New("dial refused")}
	r := newTestReader(t, client)

	_, err := r.ETHBalance(context.Background(), "0x1234567890123456789012345678901234567890")
	assert.Error(t, err)
}

func TestCollectionName(t *testing.T) {
	r := newTestReader(t, &fakeClient{})
	client := &fakeClient{responses: map[string][]byte{
		selector(t, r, r.erc721, "name"): packString(t, "CryptoPunks"),
	}}
	r = newTestReader(t, client)

	name, err := r.CollectionName(context.Background(), "0xb47e3cd837ddf8e4c57f05d70ab865de6e193bbb")
	require.NoError(t, err)
	assert.Equal(t, "CryptoPunks", name)
}

func TestTotalSupply(t *testing.T) {
	r := newTestReader(t, &fakeClient{})
	client := &fakeClient{responses: map[string][]byte{
		selector(t, r, r.erc721, "totalSupply"): packUint256(t, big.NewInt(10000)),
	}}
	r = newTestReader(t, client)

	supply, err := r.TotalSupply(context.Background(), "0xb47e3cd837ddf8e4c57f05d70ab865de6e193bbb")
	require.NoError(t, err)
	assert.Equal(t, int64(10000), supply.Int64())
}

func TestOwnerOf(t *testing.T) {
	r := newTestReader(t, &fakeClient{})
	client := &fakeClient{responses: map[string][]byte{
		selector(t, r, r.erc721, "ownerOf"): packAddress(t, "0xABCDEFabcdef1234567890123456789012345678"),
	}}
	r = newTestReader(t, client)

	owner, err := r.OwnerOf(context.Background(), "0xb47e3cd837ddf8e4c57f05d70ab865de6e193bbb", "42")
	require.NoError(t, err)
	// Canonical lowercase form.
	assert.Equal(t, "0xabcdefabcdef1234567890123456789012345678", owner)
}

func TestOwnerOf_Reverted(t *testing.T) {
	client := &fakeClient{responses: map[string][]byte{}}
	r := newTestReader(t, client)

	_, err := r.OwnerOf(context.Background(), "0xb47e3cd837ddf8e4c57f05d70ab865de6e193bbb", "42")
	require.Error(t, err)
	var ce *CallError
	assert.ErrorAs(t, err, &ce)
	assert.Equal(t, "ownerOf", ce.Op)
}

func TestOwnerOf_InvalidTokenID(t *testing.T) {
	r := newTestReader(t, &fakeClient{})
	_, err := r.OwnerOf(context.Background(), "0xb47e3cd837ddf8e4c57f05d70ab865de6e193bbb", "abc")
	assert.ErrorIs(t, err, ErrInvalidTokenID)
}

func TestTokenURI(t *testing.T) {
	r := newTestReader(t, &fakeClient{})
	client := &fakeClient{responses: map[string][]byte{
		selector(t, r, r.erc721, "tokenURI"): packString(t, "ipfs://QmHash/42.json"),
	}}
	r = newTestReader(t, client)

	uri, err := r.TokenURI(context.Background(), "0xb47e3cd837ddf8e4c57f05d70ab865de6e193bbb", "42")
	require.NoError(t, err)
	assert.Equal(t, "ipfs://QmHash/42.json", uri)
}

func TestTokenBalances_SkipsZeroAndFailing(t *testing.T) {
	r := newTestReader(t, &fakeClient{})
	client := &fakeClient{responses: map[string][]byte{
		selector(t, r, r.erc20, "balanceOf"): packUint256(t, big.NewInt(2500000)),
	}}
	r = newTestReader(t, client)

	tokens := []KnownToken{
		{Address: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", Name: "USD Coin", Symbol: "USDC", Decimals: 6},
	}
	balances, err := r.TokenBalances(context.Background(), "0x1234567890123456789012345678901234567890", tokens)
	require.NoError(t, err)
	require.Len(t, balances, 1)
	assert.Equal(t, "USDC", balances[0].Symbol)
	assert.Equal(t, ProviderName, balances[0].Provider)
	assert.Equal(t, int64(2500000), balances[0].Amount.Int64())
}

func TestTokenBalances_AllFailing(t *testing.T) {
	client := &fakeClient{responses: map[string][]byte{}}
	r := newTestReader(t, client)

	balances, err := r.TokenBalances(context.Background(), "0x1234567890123456789012345678901234567890", DefaultKnownTokens)
	require.NoError(t, err)
	assert.Empty(t, balances)
}

func TestClose(t *testing.T) {
	client := &fakeClient{}
	r := newTestReader(t, client)
	require.NoError(t, r.Close())
	assert.True(t, client.closed)
}
