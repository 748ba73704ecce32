package risk

import (
	"fmt"
	"strings"
	"time"

	"github.com/mbd888/nftsentry/internal/facts"
)

// Suspicious substrings. Token names are checked against tokenTerms,
// collection names against collectionTerms. Checked in slice order so the
// resulting factors are stable.
var (
	tokenTerms      = []string{"test", "scam", "fake", "phishing"}
	collectionTerms = []string{"test", "demo", "copy", "fake"}
)

// signalOrder fixes the order trading-signal factors are appended in,
// regardless of the order the forensics provider reported them.
var signalOrder = []facts.SignalKind{
	facts.SignalWashTrading,
	facts.SignalVolumeManipulated,
	facts.SignalPriceManipulated,
	facts.SignalRapidTransfers,
	facts.SignalSuspiciousTiming,
	facts.SignalCrossPlatformArb,
}

var signalFactors = map[facts.SignalKind]string{
	facts.SignalWashTrading:       "Wash trading pattern detected",
	facts.SignalVolumeManipulated: "Volume manipulation pattern detected",
	facts.SignalPriceManipulated:  "Price manipulation pattern detected",
	facts.SignalRapidTransfers:    "Rapid transfer pattern detected",
	facts.SignalSuspiciousTiming:  "Suspicious trading timing detected",
	facts.SignalCrossPlatformArb:  "Cross-platform arbitrage pattern detected",
}

const (
	// topHolderCount is how many holders the concentration rules look at.
	topHolderCount = 5

	highConcentration     = 0.50
	moderateConcentration = 0.30

	// youngContractAge is the age under which a contract counts as
	// recently created.
	youngContractAge = 30 * 24 * time.Hour

	ownerRiskThreshold = 70
	lowPriceConfidence = 0.3
	maxSymbolLength    = 10
)

// TokenFacts is everything the token rules inspect. Nil pointers mean the
// fact could not be fetched; absence does not fabricate a factor except
// where a rule explicitly scores absence.
type TokenFacts struct {
	Address      string
	Name         string
	Symbol       string
	Verification *facts.ContractVerification
}

// NFTFacts is everything the NFT rules inspect.
type NFTFacts struct {
	Contract      string
	TokenID       string
	Metadata      *facts.Metadata
	Verification  *facts.ContractVerification
	Signals       []facts.TradingSignal
	OwnerBehavior *facts.WalletBehavior
	Price         *facts.PriceEstimate
}

// CollectionFacts is everything the collection rules inspect. Now anchors
// the contract-age rule so evaluation stays a pure function of its inputs.
type CollectionFacts struct {
	Contract     string
	Name         string
	Holders      *facts.HolderSet
	Verification *facts.ContractVerification
	Signals      []facts.TradingSignal
	Price        *facts.PriceEstimate
	Now          time.Time
}

// Evaluator applies the per-subject-kind rule sets against the static
// allow and deny lists.
type Evaluator struct {
	lists *Lists
}

// NewEvaluator creates an evaluator. A nil lists falls back to the
// defaults.
func NewEvaluator(lists *Lists) *Evaluator {
	if lists == nil {
		lists = DefaultLists()
	}
	return &Evaluator{lists: lists}
}

// Lists exposes the configured allow and deny lists.
func (e *Evaluator) Lists() *Lists { return e.lists }

// EvaluateToken applies the token rules.
func (e *Evaluator) EvaluateToken(f TokenFacts) Verdict {
	trusted := e.lists.Trusted(f.Address)
	var factors []string

	if e.lists.KnownScam(f.Address) {
		factors = append(factors, "Known scam token")
	}
	if !trusted && f.Verification != nil && !f.Verification.IsVerified {
		factors = append(factors, "Contract source code is not verified")
	}
	factors = append(factors, termFactors(f.Name+" "+f.Symbol, tokenTerms, "Name or symbol contains %q")...)
	if len(f.Symbol) > maxSymbolLength {
		factors = append(factors, "Unusually long token symbol")
	}

	return Verdict{
		SubjectID: facts.Collection(f.Address).ID(),
		Level:     LevelForFactors(len(factors)),
		Factors:   factors,
	}
}

// EvaluateNFT applies the NFT rules.
func (e *Evaluator) EvaluateNFT(f NFTFacts) Verdict {
	trusted := e.lists.Trusted(f.Contract)
	var factors []string

	switch {
	case f.Metadata == nil:
		factors = append(factors, "Metadata is missing or unreachable")
	case f.Metadata.Name == "" || f.Metadata.Image == "":
		factors = append(factors, "Metadata is incomplete")
	}
	if f.Metadata != nil {
		factors = append(factors, termFactors(f.Metadata.Name, tokenTerms, "Name contains %q")...)
		if f.Metadata.Image != "" && !allowedImageScheme(f.Metadata.Image) {
			factors = append(factors, "Image is not served over an allowed scheme")
		}
		if len(f.Metadata.Attributes) == 0 {
			factors = append(factors, "Metadata has no attributes")
		}
	}
	if !trusted && f.Verification != nil && !f.Verification.IsVerified {
		factors = append(factors, "Contract source code is not verified")
	}
	factors = append(factors, e.signalFactors(f.Signals, trusted)...)
	if f.OwnerBehavior != nil {
		if f.OwnerBehavior.RiskScore > ownerRiskThreshold {
			factors = append(factors, "Current owner shows high-risk wallet behavior")
		}
		for _, flag := range f.OwnerBehavior.Flags {
			factors = append(factors, "Owner behavior flag: "+flag)
		}
	}
	if f.Price != nil && f.Price.Confidence < lowPriceConfidence {
		factors = append(factors, "Price estimate has low confidence")
	}

	return Verdict{
		SubjectID: facts.NFT(f.Contract, f.TokenID).ID(),
		Level:     LevelForFactors(len(factors)),
		Factors:   factors,
	}
}

// EvaluateCollection applies the collection rules.
func (e *Evaluator) EvaluateCollection(f CollectionFacts) Verdict {
	trusted := e.lists.Trusted(f.Contract)
	var factors []string

	if f.Holders != nil {
		share := f.Holders.TopConcentration(topHolderCount)
		switch {
		case share > highConcentration:
			factors = append(factors, fmt.Sprintf("High holder concentration: top %d holders control %.0f%% of supply", topHolderCount, share*100))
		case share > moderateConcentration:
			factors = append(factors, fmt.Sprintf("Moderate holder concentration: top %d holders control %.0f%% of supply", topHolderCount, share*100))
		}
	}
	if containsAnyTerm(f.Name, collectionTerms) {
		factors = append(factors, "Test/Demo collection detected")
	}
	if f.Verification != nil && !f.Verification.CreatedAt.IsZero() && !f.Now.IsZero() &&
		f.Now.Sub(f.Verification.CreatedAt) < youngContractAge {
		factors = append(factors, "Contract is less than 30 days old")
	}
	factors = append(factors, e.signalFactors(f.Signals, trusted)...)
	if !trusted && f.Verification != nil && !f.Verification.IsVerified {
		factors = append(factors, "Contract source code is not verified")
	}
	if f.Price != nil && f.Price.Confidence < lowPriceConfidence {
		factors = append(factors, "Floor price estimate has low confidence")
	}

	return Verdict{
		SubjectID: facts.Collection(f.Contract).ID(),
		Level:     LevelForFactors(len(factors)),
		Factors:   factors,
	}
}

// signalFactors maps active trading signals to factors in fixed order.
// The wash-trading rule is suppressed for allow-listed contracts.
func (e *Evaluator) signalFactors(signals []facts.TradingSignal, trusted bool) []string {
	active := make(map[facts.SignalKind]bool, len(signals))
	for _, s := range signals {
		active[s.Kind] = true
	}

	var factors []string
	for _, kind := range signalOrder {
		if !active[kind] {
			continue
		}
		if kind == facts.SignalWashTrading && trusted {
			continue
		}
		factors = append(factors, signalFactors[kind])
	}
	return factors
}

// termFactors appends one factor per matched suspicious term, in term
// order.
func termFactors(text string, terms []string, format string) []string {
	lower := strings.ToLower(text)
	var factors []string
	for _, term := range terms {
		if strings.Contains(lower, term) {
			factors = append(factors, fmt.Sprintf(format, term))
		}
	}
	return factors
}

func containsAnyTerm(text string, terms []string) bool {
	lower := strings.ToLower(text)
	for _, term := range terms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

func allowedImageScheme(image string) bool {
	return strings.HasPrefix(image, "https://") ||
		strings.HasPrefix(image, "ipfs://") ||
		strings.HasPrefix(image, "data:")
}
