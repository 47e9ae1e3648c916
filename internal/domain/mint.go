// Package domain holds the core data model shared by the scanner agent
// and the relay daemon: token mints, risk tiers, feed entries, alerts
// and swarms.
package domain

import (
	"regexp"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// MintPattern matches a Solana base58 address (32-44 chars, no 0/O/I/l).
var MintPattern = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)

// Wallet address length bounds for payloads pushed from the website.
const (
	MinAddressLen = 32
	MaxAddressLen = 44
)

// ValidMint reports whether s looks like a token mint address.
// The base58 decode is the authoritative check; the regexp rejects the
// wrong alphabet cheaply before decoding.
func ValidMint(s string) bool {
	if !MintPattern.MatchString(s) {
		return false
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return false
	}
	return len(raw) == 32
}

// OnCurve reports whether the address decodes to a point on the ed25519
// curve. Wallet addresses are on-curve; PDAs are not. Used as an extra
// check when a wallet is pushed from the website.
func OnCurve(address string) bool {
	raw, err := base58.Decode(address)
	if err != nil || len(raw) != 32 {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(raw)
	return err == nil
}

// ShortMint returns the first 8 chars of a mint for display and logs.
func ShortMint(mint string) string {
	if len(mint) <= 8 {
		return mint
	}
	return mint[:8] + "..."
}
