// Package facts defines the subjects under analysis and the canonical,
// provider-attributed observations collected about them. Every provider
// response is normalized into one of these record types before scoring.
package facts

import (
	"fmt"
	"regexp"
	"strings"
)

// SubjectKind identifies what is being analyzed.
type SubjectKind string

const (
	SubjectWallet     SubjectKind = "wallet"
	SubjectCollection SubjectKind = "collection"
	SubjectNFT        SubjectKind = "nft"
)

var addressRegex = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// ValidAddress reports whether s is a syntactically valid 20-byte hex
// address (0x-prefixed, 40 hex digits, case-insensitive).
func ValidAddress(s string) bool {
	return addressRegex.MatchString(strings.TrimSpace(s))
}

// CanonicalAddress lowercases and trims an address. Addresses are
// case-insensitively equal, so all internal comparisons use this form.
func CanonicalAddress(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Subject identifies a wallet, collection, or single NFT. Identity is the
// tuple itself; Address is always stored in canonical lowercase form.
type Subject struct {
	Kind    SubjectKind
	Address string
	TokenID string // set only for SubjectNFT
}

// Wallet returns the subject for a wallet address.
func Wallet(address string) Subject {
	return Subject{Kind: SubjectWallet, Address: CanonicalAddress(address)}
}

// Collection returns the subject for an NFT collection contract.
func Collection(address string) Subject {
	return Subject{Kind: SubjectCollection, Address: CanonicalAddress(address)}
}

// NFT returns the subject for a single token within a collection.
func NFT(address, tokenID string) Subject {
	return Subject{Kind: SubjectNFT, Address: CanonicalAddress(address), TokenID: strings.TrimSpace(tokenID)}
}

// ID returns a stable string identity for the subject.
func (s Subject) ID() string {
	if s.Kind == SubjectNFT {
		return fmt.Sprintf("%s:%s:%s", s.Kind, s.Address, s.TokenID)
	}
	return fmt.Sprintf("%s:%s", s.Kind, s.Address)
}
