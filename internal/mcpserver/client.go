package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Config holds the configuration for connecting to the scanner API.
type Config struct {
	APIURL string // Base URL, e.g. "http://localhost:8080"
}

// ScannerClient is a pure HTTP client for the NFTSentry API.
type ScannerClient struct {
	cfg        Config
	httpClient *http.Client
}

// NewScannerClient creates a new client for the scanner API.
func NewScannerClient(cfg Config) *ScannerClient {
	return &ScannerClient{
		cfg: cfg,
		httpClient: &http.Client{
			// Scans fan out to several providers with their own retries,
			// so a single request can legitimately take a while.
			Timeout: 60 * time.Second,
		},
	}
}

// apiError represents an error response from the API.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// doRequest makes an HTTP GET to the scanner API and returns the response body.
func (c *ScannerClient) doRequest(ctx context.Context, path string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.APIURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Message)
		}
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	return json.RawMessage(respBody), nil
}

// ScanWallet runs a full wallet scan.
func (c *ScannerClient) ScanWallet(ctx context.Context, address string) (json.RawMessage, error) {
	return c.doRequest(ctx, "/api/v1/wallet/"+address+"/scan")
}

// CheckCollection assesses a collection contract.
func (c *ScannerClient) CheckCollection(ctx context.Context, contract string) (json.RawMessage, error) {
	return c.doRequest(ctx, "/api/v1/collection/"+contract)
}

// AnalyzeNFT analyzes one token of a collection.
func (c *ScannerClient) AnalyzeNFT(ctx context.Context, contract, tokenID string) (json.RawMessage, error) {
	return c.doRequest(ctx, "/api/v1/nft/"+contract+"/"+tokenID)
}
