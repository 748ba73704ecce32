package risk

import "github.com/mbd888/nftsentry/internal/facts"

// AuditStatus is the allow/deny-list classification of a contract.
type AuditStatus string

const (
	AuditStatusAudited  AuditStatus = "audited"
	AuditStatusVerified AuditStatus = "verified"
	AuditStatusFlagged  AuditStatus = "flagged"
	AuditStatusUnknown  AuditStatus = "unknown"
)

// Lists holds the static allow and deny lists. Addresses are stored in
// canonical lowercase form and matched exactly; membership in any allow
// list suppresses the unverified-contract and wash-trading rules.
// Immutable after construction.
type Lists struct {
	knownSafe map[string]struct{}
	verified  map[string]struct{}
	audited   map[string]struct{}
	scams     map[string]struct{}
}

// NewLists builds a list set from raw address slices. Input addresses are
// canonicalized, so callers may pass mixed-case values.
func NewLists(knownSafe, verified, audited, scams []string) *Lists {
	return &Lists{
		knownSafe: toSet(knownSafe),
		verified:  toSet(verified),
		audited:   toSet(audited),
		scams:     toSet(scams),
	}
}

func toSet(addrs []string) map[string]struct{} {
	set := make(map[string]struct{}, len(addrs))
	for _, a := range addrs {
		set[facts.CanonicalAddress(a)] = struct{}{}
	}
	return set
}

// Trusted reports whether addr is on any allow list.
func (l *Lists) Trusted(addr string) bool {
	addr = facts.CanonicalAddress(addr)
	if _, ok := l.knownSafe[addr]; ok {
		return true
	}
	if _, ok := l.verified[addr]; ok {
		return true
	}
	_, ok := l.audited[addr]
	return ok
}

// KnownScam reports whether addr is on the deny list.
func (l *Lists) KnownScam(addr string) bool {
	_, ok := l.scams[facts.CanonicalAddress(addr)]
	return ok
}

// AuditStatus classifies addr against the lists. Audited wins over
// verified; the deny list wins over nothing being known.
func (l *Lists) AuditStatus(addr string) AuditStatus {
	addr = facts.CanonicalAddress(addr)
	if _, ok := l.audited[addr]; ok {
		return AuditStatusAudited
	}
	if _, ok := l.verified[addr]; ok {
		return AuditStatusVerified
	}
	if _, ok := l.knownSafe[addr]; ok {
		return AuditStatusVerified
	}
	if _, ok := l.scams[addr]; ok {
		return AuditStatusFlagged
	}
	return AuditStatusUnknown
}

// DefaultLists covers the blue-chip contracts the scanner sees most.
func DefaultLists() *Lists {
	return NewLists(
		// Known safe: canonical mainnet tokens.
		[]string{
			"0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2", // WETH
			"0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", // USDC
			"0xdac17f958d2ee523a2206206994597c13d831ec7", // USDT
			"0x6b175474e89094c44da98b954eedeac495271d0f", // DAI
			"0x514910771af9ca656af840dff83e8264ecf986ca", // LINK
		},
		// Verified collections.
		[]string{
			"0xb47e3cd837ddf8e4c57f05d70ab865de6e193bbb", // CryptoPunks
			"0xed5af388653567af2f388e6224dc7c4b3241c544", // Azuki
			"0x8a90cab2b38dba80c64b7734e58ee1db38b8992e", // Doodles
		},
		// Audited collections.
		[]string{
			"0xbc4ca0eda7647a8ab7c2061c2e118a18a936f13d", // BAYC
			"0x60e4d786628fea6478f785a6d7e704777c86a7c6", // MAYC
		},
		nil,
	)
}
