package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Handlers holds the handler functions for each MCP tool.
type Handlers struct {
	client *ScannerClient
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(client *ScannerClient) *Handlers {
	return &Handlers{client: client}
}

// HandleScanWallet runs a wallet scan and renders the report.
func (h *Handlers) HandleScanWallet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	address := req.GetString("address", "")
	if address == "" {
		return mcp.NewToolResultError("address is required"), nil
	}

	raw, err := h.client.ScanWallet(ctx, address)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Wallet scan failed: %v", err)), nil
	}

	text, err := formatWalletReport(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse report: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleCheckCollection assesses a collection and renders the report.
func (h *Handlers) HandleCheckCollection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	address := req.GetString("address", "")
	if address == "" {
		return mcp.NewToolResultError("address is required"), nil
	}

	raw, err := h.client.CheckCollection(ctx, address)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Collection check failed: %v", err)), nil
	}

	text, err := formatCollectionReport(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse report: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleAnalyzeNFT analyzes one token and renders the verdict.
func (h *Handlers) HandleAnalyzeNFT(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	address := req.GetString("address", "")
	if address == "" {
		return mcp.NewToolResultError("address is required"), nil
	}
	tokenID := req.GetString("token_id", "")
	if tokenID == "" {
		return mcp.NewToolResultError("token_id is required"), nil
	}

	raw, err := h.client.AnalyzeNFT(ctx, address, tokenID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("NFT analysis failed: %v", err)), nil
	}

	text, err := formatNFTAnalysis(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse analysis: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// --- Formatting helpers ---

type walletReport struct {
	Address    string       `json:"address"`
	ETHBalance string       `json:"eth_balance"`
	Tokens     []itemReport `json:"tokens"`
	NFTs       []itemReport `json:"nfts"`
	NFTCount   int          `json:"nft_count"`
	RiskScore  int          `json:"risk_score"`
	RiskLevel  string       `json:"risk_level"`
	Summary    string       `json:"summary"`
}

type itemReport struct {
	Contract    string   `json:"contract"`
	TokenID     string   `json:"token_id"`
	Name        string   `json:"name"`
	Symbol      string   `json:"symbol"`
	Balance     string   `json:"balance"`
	RiskLevel   string   `json:"risk_level"`
	RiskFactors []string `json:"risk_factors"`
}

func formatWalletReport(raw json.RawMessage) (string, error) {
	var r walletReport
	if err := json.Unmarshal(raw, &r); err != nil {
		return "", fmt.Errorf("unexpected wallet report format: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Wallet: %s\n", r.Address)
	fmt.Fprintf(&sb, "ETH balance: %s\n", r.ETHBalance)
	fmt.Fprintf(&sb, "Risk: %s (score %d)\n", strings.ToUpper(r.RiskLevel), r.RiskScore)
	if r.Summary != "" {
		fmt.Fprintf(&sb, "%s\n", r.Summary)
	}

	if len(r.Tokens) > 0 {
		fmt.Fprintf(&sb, "\nTokens (%d):\n", len(r.Tokens))
		for _, t := range r.Tokens {
			label := t.Symbol
			if label == "" {
				label = t.Contract
			}
			fmt.Fprintf(&sb, "- %s: %s [%s]\n", label, t.Balance, t.RiskLevel)
			writeFactors(&sb, t.RiskFactors)
		}
	}

	if len(r.NFTs) > 0 {
		fmt.Fprintf(&sb, "\nNFTs (%d held, %d analyzed):\n", r.NFTCount, len(r.NFTs))
		for _, n := range r.NFTs {
			label := n.Name
			if label == "" {
				label = fmt.Sprintf("%s #%s", n.Contract, n.TokenID)
			}
			fmt.Fprintf(&sb, "- %s [%s]\n", label, n.RiskLevel)
			writeFactors(&sb, n.RiskFactors)
		}
	}

	return sb.String(), nil
}

type collectionReport struct {
	Address          string   `json:"address"`
	Name             string   `json:"name"`
	TotalSupply      int64    `json:"total_supply"`
	FloorPrice       *float64 `json:"floor_price"`
	HolderCount      int      `json:"holder_count"`
	EstimatedHolders bool     `json:"estimated_holders"`
	RiskLevel        string   `json:"risk_level"`
	RiskFactors      []string `json:"risk_factors"`
	AuditStatus      string   `json:"audit_status"`
}

func formatCollectionReport(raw json.RawMessage) (string, error) {
	var r collectionReport
	if err := json.Unmarshal(raw, &r); err != nil {
		return "", fmt.Errorf("unexpected collection report format: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Collection: %s (%s)\n", r.Name, r.Address)
	fmt.Fprintf(&sb, "Risk: %s | Audit status: %s\n", strings.ToUpper(r.RiskLevel), r.AuditStatus)
	fmt.Fprintf(&sb, "Total supply: %d\n", r.TotalSupply)
	if r.EstimatedHolders {
		fmt.Fprintf(&sb, "Holders: ~%d (estimated, holder data unavailable)\n", r.HolderCount)
	} else {
		fmt.Fprintf(&sb, "Holders: %d\n", r.HolderCount)
	}
	if r.FloorPrice != nil {
		fmt.Fprintf(&sb, "Floor price: %.4f ETH\n", *r.FloorPrice)
	} else {
		sb.WriteString("Floor price: unknown\n")
	}

	if len(r.RiskFactors) > 0 {
		sb.WriteString("\nRisk factors:\n")
		writeFactors(&sb, r.RiskFactors)
	} else {
		sb.WriteString("\nNo risk factors detected.\n")
	}

	return sb.String(), nil
}

type nftAnalysis struct {
	Contract       string   `json:"contract"`
	TokenID        string   `json:"token_id"`
	Collection     string   `json:"collection"`
	Name           string   `json:"name"`
	Owner          string   `json:"owner"`
	Image          string   `json:"image"`
	RiskLevel      string   `json:"risk_level"`
	RiskFactors    []string `json:"risk_factors"`
	AnalysisFailed bool     `json:"analysis_failed"`
}

func formatNFTAnalysis(raw json.RawMessage) (string, error) {
	var r nftAnalysis
	if err := json.Unmarshal(raw, &r); err != nil {
		return "", fmt.Errorf("unexpected analysis format: %w", err)
	}

	var sb strings.Builder
	label := r.Name
	if label == "" {
		label = fmt.Sprintf("%s #%s", r.Contract, r.TokenID)
	}
	fmt.Fprintf(&sb, "NFT: %s\n", label)
	if r.Collection != "" {
		fmt.Fprintf(&sb, "Collection: %s\n", r.Collection)
	}
	if r.Owner != "" {
		fmt.Fprintf(&sb, "Owner: %s\n", r.Owner)
	}
	if r.Image != "" {
		fmt.Fprintf(&sb, "Image: %s\n", r.Image)
	}
	fmt.Fprintf(&sb, "Risk: %s\n", strings.ToUpper(r.RiskLevel))

	if r.AnalysisFailed {
		sb.WriteString("\nAnalysis could not be completed from on-chain data. " +
			"Treat this token as high risk until it can be verified.\n")
	}

	if len(r.RiskFactors) > 0 {
		sb.WriteString("\nRisk factors:\n")
		writeFactors(&sb, r.RiskFactors)
	} else {
		sb.WriteString("\nNo risk factors detected.\n")
	}

	return sb.String(), nil
}

func writeFactors(sb *strings.Builder, factors []string) {
	for _, f := range factors {
		fmt.Fprintf(sb, "    * %s\n", f)
	}
}

// formatJSON pretty-prints raw JSON, falling back to the raw text.
func formatJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
