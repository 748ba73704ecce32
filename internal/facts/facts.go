package facts

import (
	"math/big"
	"sort"
	"time"
)

// SignalKind is a forensic trading-pattern flag reported for a contract.
type SignalKind string

const (
	SignalWashTrading       SignalKind = "wash_trading"
	SignalVolumeManipulated SignalKind = "volume_manipulation"
	SignalPriceManipulated  SignalKind = "price_manipulation"
	SignalRapidTransfers    SignalKind = "rapid_transfers"
	SignalSuspiciousTiming  SignalKind = "suspicious_timing"
	SignalCrossPlatformArb  SignalKind = "cross_platform_arbitrage"
)

// Known reports whether the kind is one the scoring rules understand.
func (k SignalKind) Known() bool {
	switch k {
	case SignalWashTrading, SignalVolumeManipulated, SignalPriceManipulated,
		SignalRapidTransfers, SignalSuspiciousTiming, SignalCrossPlatformArb:
		return true
	}
	return false
}

// TokenBalance is one fungible token position held by a wallet.
// Amount is in raw units; Decimals converts to the display amount.
type TokenBalance struct {
	Provider string
	Token    string // contract address, canonical form
	Name     string
	Symbol   string
	Amount   *big.Int
	Decimals int
}

// Positive reports whether the normalized amount is greater than zero.
// Zero-balance positions are not facts worth scoring.
func (b TokenBalance) Positive() bool {
	return b.Amount != nil && b.Amount.Sign() > 0
}

// NFTHolding is one NFT owned by a wallet.
type NFTHolding struct {
	Provider    string
	Contract    string // canonical form
	TokenID     string
	Name        string
	MetadataRef string // tokenURI, possibly ipfs://
}

// Attribute is a single trait inside NFT metadata.
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     any    `json:"value"`
}

// Metadata is the off-chain metadata document of an NFT. Absent optional
// fields stay empty; absence itself is a scoring signal.
type Metadata struct {
	Provider      string
	Name          string
	Description   string
	Image         string
	Attributes    []Attribute
	StorageScheme string // "https", "ipfs", "data", or "" when unknown
}

// Holder is one entry of a collection's holder distribution.
type Holder struct {
	Address string
	Count   int64
}

// HolderSet is a holder distribution plus its provenance. Estimated
// distributions come from the statistical fallback and must never be
// presented as measured data.
type HolderSet struct {
	Provider  string
	Holders   []Holder
	Total     int64 // total supply the distribution is measured against
	Estimated bool
}

// Top returns the n largest holders, ordered by count descending with
// address as the tie-break so the order is stable across runs.
func (s HolderSet) Top(n int) []Holder {
	sorted := make([]Holder, len(s.Holders))
	copy(sorted, s.Holders)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Count != sorted[j].Count {
			return sorted[i].Count > sorted[j].Count
		}
		return sorted[i].Address < sorted[j].Address
	})
	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

// TopConcentration returns the share of total supply held by the n
// largest holders, in [0,1]. Zero when the distribution is empty.
func (s HolderSet) TopConcentration(n int) float64 {
	if s.Total <= 0 {
		return 0
	}
	var held int64
	for _, h := range s.Top(n) {
		held += h.Count
	}
	return float64(held) / float64(s.Total)
}

// ContractVerification records source verification and contract age.
type ContractVerification struct {
	Provider   string
	IsVerified bool
	CreatedAt  time.Time // first on-chain transaction; zero when unknown
}

// TradingSignal is one active forensic flag on a contract.
type TradingSignal struct {
	Provider string
	Kind     SignalKind
}

// WalletBehavior is the forensic profile of a wallet.
type WalletBehavior struct {
	Provider  string
	RiskScore int // 0-100
	Flags     []string
}

// PriceEstimate is a floor or item price estimate with confidence.
type PriceEstimate struct {
	Provider   string
	Value      float64 // in ETH
	Confidence float64 // 0-1
}
