// Package risk turns canonical facts into deterministic verdicts.
//
// Rules are evaluated in a fixed order and append human-readable factor
// strings; the classification level is a pure function of how many factors
// fired. Given identical facts, evaluation always yields an identical
// factor list and verdict. There is no randomness anywhere in this package.
package risk

// Level is the three-step risk classification.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Per-item classification thresholds, uniform across subject kinds.
const (
	highFactorCount   = 3
	mediumFactorCount = 1
)

// Wallet aggregate-score thresholds. The wallet formula is deliberately
// separate from the per-item factor count; the two must not be unified.
const (
	highScore   = 10
	mediumScore = 5
	maxScore    = 100
)

// Per-item score contributions to the wallet aggregate.
const (
	tokenHighWeight   = 3
	tokenMediumWeight = 1
	nftHighWeight     = 2
	nftMediumWeight   = 1
)

// Verdict is the result of evaluating one subject. Request-scoped; never
// persisted.
type Verdict struct {
	SubjectID string   `json:"subject_id"`
	Score     int      `json:"score"`
	Level     Level    `json:"level"`
	Factors   []string `json:"factors"`
}

// LevelForFactors maps a factor count to the per-item classification.
func LevelForFactors(n int) Level {
	switch {
	case n >= highFactorCount:
		return LevelHigh
	case n >= mediumFactorCount:
		return LevelMedium
	default:
		return LevelLow
	}
}

// LevelForScore maps a wallet aggregate score to its classification.
func LevelForScore(score int) Level {
	switch {
	case score >= highScore:
		return LevelHigh
	case score >= mediumScore:
		return LevelMedium
	default:
		return LevelLow
	}
}

// WalletScore folds per-item verdicts into the wallet aggregate score,
// capped at maxScore.
func WalletScore(tokens, nfts []Verdict) int {
	score := 0
	for _, v := range tokens {
		switch v.Level {
		case LevelHigh:
			score += tokenHighWeight
		case LevelMedium:
			score += tokenMediumWeight
		}
	}
	for _, v := range nfts {
		switch v.Level {
		case LevelHigh:
			score += nftHighWeight
		case LevelMedium:
			score += nftMediumWeight
		}
	}
	if score > maxScore {
		score = maxScore
	}
	return score
}
