package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbd888/nftsentry/internal/facts"
)

func TestLevelForFactors(t *testing.T) {
	assert.Equal(t, LevelLow, LevelForFactors(0))
	assert.Equal(t, LevelMedium, LevelForFactors(1))
	assert.Equal(t, LevelMedium, LevelForFactors(2))
	assert.Equal(t, LevelHigh, LevelForFactors(3))
	assert.Equal(t, LevelHigh, LevelForFactors(7))
}

func TestLevelForScore(t *testing.T) {
	assert.Equal(t, LevelLow, LevelForScore(0))
	assert.Equal(t, LevelLow, LevelForScore(4))
	assert.Equal(t, LevelMedium, LevelForScore(5))
	assert.Equal(t, LevelMedium, LevelForScore(9))
	assert.Equal(t, LevelHigh, LevelForScore(10))
	assert.Equal(t, LevelHigh, LevelForScore(100))
}

func TestWalletScore_Weights(t *testing.T) {
	tokens := []Verdict{
		{Level: LevelHigh},   // +3
		{Level: LevelMedium}, // +1
		{Level: LevelLow},    // +0
	}
	nfts := []Verdict{
		{Level: LevelHigh},   // +2
		{Level: LevelMedium}, // +1
	}
	assert.Equal(t, 7, WalletScore(tokens, nfts))
}

func TestWalletScore_CappedAt100(t *testing.T) {
	tokens := make([]Verdict, 50)
	for i := range tokens {
		tokens[i] = Verdict{Level: LevelHigh}
	}
	assert.Equal(t, 100, WalletScore(tokens, nil))
}

func TestWalletScore_Empty(t *testing.T) {
	assert.Equal(t, 0, WalletScore(nil, nil))
	assert.Equal(t, LevelLow, LevelForScore(WalletScore(nil, nil)))
}

func TestEvaluateToken_KnownSafeHasNoFactors(t *testing.T) {
	e := NewEvaluator(nil)
	v := e.EvaluateToken(TokenFacts{
		Address: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", // WETH, mixed case
		Name:    "Wrapped Ether",
		Symbol:  "WETH",
		Verification: &facts.ContractVerification{
			Provider: "etherscan", IsVerified: false, // allow-list suppresses this
		},
	})
	assert.Empty(t, v.Factors)
	assert.Equal(t, LevelLow, v.Level)
}

func TestEvaluateToken_SuspiciousToken(t *testing.T) {
	lists := NewLists(nil, nil, nil, []string{"0xbad0000000000000000000000000000000000001"})
	e := NewEvaluator(lists)

	v := e.EvaluateToken(TokenFacts{
		Address:      "0xbad0000000000000000000000000000000000001",
		Name:         "Test Phishing Coin",
		Symbol:       "SUPERLONGSYMBOL",
		Verification: &facts.ContractVerification{IsVerified: false},
	})

	assert.Equal(t, []string{
		"Known scam token",
		"Contract source code is not verified",
		`Name or symbol contains "test"`,
		`Name or symbol contains "phishing"`,
		"Unusually long token symbol",
	}, v.Factors)
	assert.Equal(t, LevelHigh, v.Level)
}

func TestEvaluateToken_Idempotent(t *testing.T) {
	e := NewEvaluator(nil)
	f := TokenFacts{
		Address: "0xabc0000000000000000000000000000000000001",
		Name:    "Fake Test Token",
		Symbol:  "FTT",
	}
	first := e.EvaluateToken(f)
	second := e.EvaluateToken(f)
	assert.Equal(t, first, second)
}

func TestEvaluateNFT_MissingMetadata(t *testing.T) {
	e := NewEvaluator(nil)
	v := e.EvaluateNFT(NFTFacts{Contract: "0xabc0000000000000000000000000000000000001", TokenID: "1"})
	assert.Equal(t, []string{"Metadata is missing or unreachable"}, v.Factors)
	assert.Equal(t, LevelMedium, v.Level)
}

func TestEvaluateNFT_FullRuleOrder(t *testing.T) {
	e := NewEvaluator(nil)
	v := e.EvaluateNFT(NFTFacts{
		Contract: "0xabc0000000000000000000000000000000000001",
		TokenID:  "7",
		Metadata: &facts.Metadata{
			Name:  "Fake Punk",
			Image: "ftp://example.org/7.png",
		},
		Verification: &facts.ContractVerification{IsVerified: false},
		Signals: []facts.TradingSignal{
			{Kind: facts.SignalRapidTransfers},
			{Kind: facts.SignalWashTrading}, // reported out of order on purpose
		},
		OwnerBehavior: &facts.WalletBehavior{RiskScore: 85, Flags: []string{"mixer_interaction"}},
		Price:         &facts.PriceEstimate{Value: 0.4, Confidence: 0.1},
	})

	assert.Equal(t, []string{
		`Name contains "fake"`,
		"Image is not served over an allowed scheme",
		"Metadata has no attributes",
		"Contract source code is not verified",
		"Wash trading pattern detected",
		"Rapid transfer pattern detected",
		"Current owner shows high-risk wallet behavior",
		"Owner behavior flag: mixer_interaction",
		"Price estimate has low confidence",
	}, v.Factors)
	assert.Equal(t, LevelHigh, v.Level)
	assert.Equal(t, "nft:0xabc0000000000000000000000000000000000001:7", v.SubjectID)
}

func TestEvaluateNFT_AllowListSuppressesWashTradingAndVerification(t *testing.T) {
	e := NewEvaluator(nil)
	v := e.EvaluateNFT(NFTFacts{
		Contract: "0xBC4CA0EdA7647A8aB7C2061c2E118A18a936f13D", // BAYC, audited
		TokenID:  "1",
		Metadata: &facts.Metadata{
			Name:       "Bored Ape #1",
			Image:      "ipfs://QmImage/1.png",
			Attributes: []facts.Attribute{{TraitType: "Fur", Value: "Golden"}},
		},
		Verification: &facts.ContractVerification{IsVerified: false},
		Signals:      []facts.TradingSignal{{Kind: facts.SignalWashTrading}},
	})
	assert.Empty(t, v.Factors)
	assert.Equal(t, LevelLow, v.Level)
}

func TestEvaluateCollection_TestDemoClone(t *testing.T) {
	// Top-5 concentration of 60% plus a suspicious name plus an unverified
	// contract pushes the collection to high.
	// Five largest holders: 20+15+10+8+7 = 60% of supply.
	holders := &facts.HolderSet{
		Holders: []facts.Holder{
			{Address: "0xaaa0000000000000000000000000000000000001", Count: 20},
			{Address: "0xaaa0000000000000000000000000000000000002", Count: 15},
			{Address: "0xaaa0000000000000000000000000000000000003", Count: 10},
			{Address: "0xaaa0000000000000000000000000000000000004", Count: 8},
			{Address: "0xaaa0000000000000000000000000000000000005", Count: 5},
			{Address: "0xaaa0000000000000000000000000000000000006", Count: 7},
		},
		Total: 100,
	}

	e := NewEvaluator(nil)
	v := e.EvaluateCollection(CollectionFacts{
		Contract:     "0xabc0000000000000000000000000000000000001",
		Name:         "Test Demo Clone",
		Holders:      holders,
		Verification: &facts.ContractVerification{IsVerified: false},
		Now:          time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC),
	})

	require.GreaterOrEqual(t, len(v.Factors), 2)
	assert.Contains(t, v.Factors, "Test/Demo collection detected")
	assert.Contains(t, v.Factors[0], "holder concentration")
	assert.Equal(t, LevelHigh, v.Level)
}

func TestEvaluateCollection_ModerateConcentration(t *testing.T) {
	holders := &facts.HolderSet{
		Holders: []facts.Holder{
			{Address: "0xaaa0000000000000000000000000000000000001", Count: 35},
		},
		Total: 100,
	}
	e := NewEvaluator(nil)
	v := e.EvaluateCollection(CollectionFacts{
		Contract: "0xabc0000000000000000000000000000000000001",
		Name:     "Fine Art",
		Holders:  holders,
	})
	require.Len(t, v.Factors, 1)
	assert.Contains(t, v.Factors[0], "Moderate holder concentration")
	assert.Equal(t, LevelMedium, v.Level)
}

func TestEvaluateCollection_YoungContract(t *testing.T) {
	now := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	e := NewEvaluator(nil)
	v := e.EvaluateCollection(CollectionFacts{
		Contract:     "0xabc0000000000000000000000000000000000001",
		Name:         "Fresh Mint",
		Verification: &facts.ContractVerification{IsVerified: true, CreatedAt: now.Add(-10 * 24 * time.Hour)},
		Now:          now,
	})
	assert.Equal(t, []string{"Contract is less than 30 days old"}, v.Factors)
}

func TestEvaluateCollection_UnknownAgeDoesNotTrigger(t *testing.T) {
	e := NewEvaluator(nil)
	v := e.EvaluateCollection(CollectionFacts{
		Contract:     "0xabc0000000000000000000000000000000000001",
		Name:         "Fine Art",
		Verification: &facts.ContractVerification{IsVerified: true},
		Now:          time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC),
	})
	assert.Empty(t, v.Factors)
}

func TestEvaluateCollection_Idempotent(t *testing.T) {
	e := NewEvaluator(nil)
	f := CollectionFacts{
		Contract: "0xabc0000000000000000000000000000000000001",
		Name:     "Copy Cats",
		Signals: []facts.TradingSignal{
			{Kind: facts.SignalSuspiciousTiming},
			{Kind: facts.SignalVolumeManipulated},
		},
		Now: time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC),
	}
	first := e.EvaluateCollection(f)
	second := e.EvaluateCollection(f)
	assert.Equal(t, first, second)
	// Signal factors come out in fixed rule order, not report order.
	assert.Equal(t, []string{
		"Test/Demo collection detected",
		"Volume manipulation pattern detected",
		"Suspicious trading timing detected",
	}, first.Factors)
}

func TestAuditStatus(t *testing.T) {
	lists := NewLists(
		[]string{"0xsafe000000000000000000000000000000000001"},
		[]string{"0xverf000000000000000000000000000000000001"},
		[]string{"0xaudi000000000000000000000000000000000001"},
		[]string{"0xscam000000000000000000000000000000000001"},
	)
	assert.Equal(t, AuditStatusAudited, lists.AuditStatus("0xAUDI000000000000000000000000000000000001"))
	assert.Equal(t, AuditStatusVerified, lists.AuditStatus("0xverf000000000000000000000000000000000001"))
	assert.Equal(t, AuditStatusVerified, lists.AuditStatus("0xsafe000000000000000000000000000000000001"))
	assert.Equal(t, AuditStatusFlagged, lists.AuditStatus("0xscam000000000000000000000000000000000001"))
	assert.Equal(t, AuditStatusUnknown, lists.AuditStatus("0xother00000000000000000000000000000000001"))
}
