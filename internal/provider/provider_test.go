package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{http.StatusOK, nil},
		{http.StatusCreated, nil},
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrUnauthorized},
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusNotFound, ErrNotFound},
	}
	for _, tt := range tests {
		err := classifyStatus(tt.code)
		if tt.want == nil {
			assert.NoError(t, err, "code %d", tt.code)
		} else {
			assert.ErrorIs(t, err, tt.want, "code %d", tt.code)
		}
	}

	// 5xx is retryable but carries no sentinel.
	err := classifyStatus(http.StatusBadGateway)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMalformed)

	// Unexpected 3xx/4xx means the contract with the provider is broken.
	assert.ErrorIs(t, classifyStatus(http.StatusTeapot), ErrMalformed)
}

func TestClassifyTransport_Timeout(t *testing.T) {
	assert.ErrorIs(t, classifyTransport(context.DeadlineExceeded), ErrTimeout)

	plain := errors.New("connection refused")
	assert.Equal(t, plain, classifyTransport(plain))
}

func TestGetJSON_TimeoutBecomesErrTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	httpc := newHTTPClient(20 * time.Millisecond)
	var out map[string]any
	err := getJSON(context.Background(), httpc, "test", srv.URL, nil, &out)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)

	var re *RequestError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "test", re.Provider)
}

func TestGetJSON_BadBodyIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	var out map[string]any
	err := getJSON(context.Background(), newHTTPClient(0), "test", srv.URL, nil, &out)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestRequestError_Message(t *testing.T) {
	err := &RequestError{Provider: "moralis", Status: 429, Err: ErrRateLimited}
	assert.Contains(t, err.Error(), "moralis")
	assert.Contains(t, err.Error(), "429")
	assert.ErrorIs(t, err, ErrRateLimited)
}
