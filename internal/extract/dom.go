package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"swarmlink/internal/domain"
)

var (
	solscanTokenRe = regexp.MustCompile(`solscan\.io/token/` + mintCapture)
	explorerAddrRe = regexp.MustCompile(`explorer\.solana\.com/address/` + mintCapture)
)

// dexScreenerMint resolves the real token mint from a DexScreener page.
// Priority order: canonical Solscan token link, then Solana Explorer
// link, then literal base58 text inside token/pair UI regions. Each step
// returns on first match; later steps are fallbacks only, never
// alternates tried when an earlier step already matched.
func dexScreenerMint(doc *goquery.Document) string {
	if mint := mintFromLinks(doc, `a[href*="solscan.io/token/"]`, solscanTokenRe); mint != "" {
		return mint
	}
	if mint := mintFromLinks(doc, `a[href*="explorer.solana.com/address/"]`, explorerAddrRe); mint != "" {
		return mint
	}

	var found string
	doc.Find(`[class*="token"] a, [class*="pair-info"] a`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := strings.TrimSpace(sel.Text())
		if domain.ValidMint(text) {
			found = text
			return false
		}
		return true
	})
	return found
}

// mintFromLinks scans anchors matching the selector for an href whose
// path embeds a valid mint.
func mintFromLinks(doc *goquery.Document, selector string, re *regexp.Regexp) string {
	var found string
	doc.Find(selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, ok := sel.Attr("href")
		if !ok {
			return true
		}
		if m := re.FindStringSubmatch(href); m != nil && domain.ValidMint(m[1]) {
			found = m[1]
			return false
		}
		return true
	})
	return found
}
