package extract

import (
	"regexp"

	"swarmlink/internal/domain"
)

// addressRe finds base58 address candidates inside free text.
var addressRe = regexp.MustCompile(`\b[1-9A-HJ-NP-Za-km-z]{32,44}\b`)

// Addresses returns all distinct valid mints mentioned in a text block,
// in order of first appearance. One block may mention several tokens;
// the relay stage acts on the first only.
func Addresses(text string) []string {
	if text == "" {
		return nil
	}

	var out []string
	seen := make(map[string]bool)
	for _, m := range addressRe.FindAllString(text, -1) {
		if seen[m] || !domain.ValidMint(m) {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}
