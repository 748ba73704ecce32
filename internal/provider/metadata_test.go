package provider

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageScheme(t *testing.T) {
	assert.Equal(t, "ipfs", StorageScheme("ipfs://QmHash/1.json"))
	assert.Equal(t, "https", StorageScheme("https://example.org/1.json"))
	assert.Equal(t, "https", StorageScheme("http://example.org/1.json"))
	assert.Equal(t, "data", StorageScheme("data:application/json,{}"))
	assert.Equal(t, "", StorageScheme("ar://abc"))
}

func TestMetadataFetcher_IPFSRewrite(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"name":"Punk #42","description":"one of ten thousand","image":"ipfs://QmImage/42.png","attributes":[{"trait_type":"Type","value":"Alien"}]}`))
	}))
	defer srv.Close()

	f := NewMetadataFetcher(WithIPFSGateway(srv.URL + "/ipfs/"))
	md, err := f.Fetch(context.Background(), "ipfs://QmHash/42.json")
	require.NoError(t, err)

	assert.Equal(t, "/ipfs/QmHash/42.json", gotPath)
	assert.Equal(t, "Punk #42", md.Name)
	assert.Equal(t, "ipfs", md.StorageScheme)
	require.Len(t, md.Attributes, 1)
	assert.Equal(t, "Type", md.Attributes[0].TraitType)
}

func TestMetadataFetcher_HTTPSPassthrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"Token"}`))
	}))
	defer srv.Close()

	f := NewMetadataFetcher()
	md, err := f.Fetch(context.Background(), srv.URL+"/42.json")
	require.NoError(t, err)
	assert.Equal(t, "Token", md.Name)
	assert.Equal(t, "https", md.StorageScheme)
}

func TestMetadataFetcher_DataURI(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte(`{"name":"Onchain #1"}`))
	f := NewMetadataFetcher()

	md, err := f.Fetch(context.Background(), "data:application/json;base64,"+payload)
	require.NoError(t, err)
	assert.Equal(t, "Onchain #1", md.Name)
	assert.Equal(t, "data", md.StorageScheme)

	md, err = f.Fetch(context.Background(), `data:application/json,{"name":"Plain"}`)
	require.NoError(t, err)
	assert.Equal(t, "Plain", md.Name)
}

func TestMetadataFetcher_EmptyRefIsNotFound(t *testing.T) {
	f := NewMetadataFetcher()
	_, err := f.Fetch(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMetadataFetcher_UnsupportedScheme(t *testing.T) {
	f := NewMetadataFetcher()
	_, err := f.Fetch(context.Background(), "ar://abc123")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestMetadataFetcher_SlowGatewayTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	f := NewMetadataFetcher(WithMetadataTimeout(20 * time.Millisecond))
	_, err := f.Fetch(context.Background(), srv.URL+"/slow.json")
	assert.ErrorIs(t, err, ErrTimeout)
}
