package scan

import (
	"github.com/mbd888/nftsentry/internal/facts"
	"github.com/mbd888/nftsentry/internal/risk"
)

// WalletReport is the result of one wallet scan.
type WalletReport struct {
	Address    string        `json:"address"`
	ETHBalance string        `json:"eth_balance"`
	Tokens     []TokenReport `json:"tokens"`
	NFTs       []NFTReport   `json:"nfts"`
	NFTCount   int           `json:"nft_count"` // total held; NFTs lists only the scored sample
	RiskScore  int           `json:"risk_score"`
	RiskLevel  risk.Level    `json:"risk_level"`
	Summary    string        `json:"summary"`
}

// TokenReport is one scored token position.
type TokenReport struct {
	Contract    string     `json:"contract"`
	Name        string     `json:"name,omitempty"`
	Symbol      string     `json:"symbol,omitempty"`
	Balance     string     `json:"balance"`
	Provider    string     `json:"provider"`
	RiskLevel   risk.Level `json:"risk_level"`
	RiskFactors []string   `json:"risk_factors,omitempty"`
}

// NFTReport is one scored NFT position.
type NFTReport struct {
	Contract    string     `json:"contract"`
	TokenID     string     `json:"token_id"`
	Name        string     `json:"name,omitempty"`
	RiskLevel   risk.Level `json:"risk_level"`
	RiskFactors []string   `json:"risk_factors,omitempty"`
}

// HolderReport is one entry of a collection's top-holder list.
type HolderReport struct {
	Address string `json:"address"`
	Count   int64  `json:"count"`
}

// CollectionReport is the result of one collection check.
type CollectionReport struct {
	Address     string           `json:"address"`
	Name        string           `json:"name"`
	TotalSupply int64            `json:"total_supply"`
	FloorPrice  *float64         `json:"floor_price,omitempty"`
	HolderCount int              `json:"holder_count"`
	TopHolders  []HolderReport   `json:"top_holders"`
	// EstimatedHolders marks the statistical fallback distribution. It must
	// never be presented as measured data.
	EstimatedHolders bool             `json:"estimated_holders"`
	RiskLevel        risk.Level       `json:"risk_level"`
	RiskFactors      []string         `json:"risk_factors"`
	AuditStatus      risk.AuditStatus `json:"audit_status"`
}

// NFTAnalysis is the result of one single-token analysis.
type NFTAnalysis struct {
	Contract    string          `json:"contract"`
	TokenID     string          `json:"token_id"`
	Collection  string          `json:"collection,omitempty"`
	Name        string          `json:"name,omitempty"`
	Description string          `json:"description,omitempty"`
	Image       string          `json:"image,omitempty"`
	Owner       string          `json:"owner,omitempty"`
	RiskLevel   risk.Level      `json:"risk_level"`
	RiskFactors []string        `json:"risk_factors"`
	Metadata    *facts.Metadata `json:"metadata,omitempty"`
	// AnalysisFailed marks the terminal verdict returned when the
	// authoritative on-chain reads prove nothing about the token.
	AnalysisFailed bool `json:"analysis_failed,omitempty"`
}
