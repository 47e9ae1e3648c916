package extract

import "regexp"

// defaultAdapters returns the supported sites. URL patterns capture the
// mint at a fixed position in the path or query string; DexScreener is
// DOM-only because its URLs usually carry the pair address.
func defaultAdapters() []*SiteAdapter {
	return []*SiteAdapter{
		{
			Name:    "pump.fun",
			hosts:   []string{"pump.fun"},
			urlRes:  []*regexp.Regexp{regexp.MustCompile(`pump\.fun/coin/` + mintCapture)},
			useH1:   true,
			titleRe: regexp.MustCompile(`^(.+?)\s*[-|]`),
		},
		{
			Name:    "dexscreener",
			hosts:   []string{"dexscreener.com"},
			domOnly: true,
			domFn:   dexScreenerMint,
			titleRe: regexp.MustCompile(`^(.+?)\s*[/|]`),
		},
		{
			Name:  "raydium",
			hosts: []string{"raydium.io"},
			urlRes: []*regexp.Regexp{
				regexp.MustCompile(`[?&]outputCurrency=` + mintCapture),
				regexp.MustCompile(`raydium\.io/launchpad/token/` + mintCapture),
			},
			titleRe: regexp.MustCompile(`^(.+?)\s*[-|]`),
		},
		{
			Name:    "jupiter",
			hosts:   []string{"jup.ag"},
			urlRes:  []*regexp.Regexp{regexp.MustCompile(`/swap/[A-Za-z0-9]+-` + mintCapture)},
			titleRe: regexp.MustCompile(`^(.+?)\s*[-|]`),
		},
		{
			Name:    "birdeye",
			hosts:   []string{"birdeye.so"},
			urlRes:  []*regexp.Regexp{regexp.MustCompile(`birdeye\.so/(?:solana/)?token/` + mintCapture)},
			titleRe: regexp.MustCompile(`(?i)^(.+?)\s*Price`),
		},
		{
			Name:    "gmgn",
			hosts:   []string{"gmgn.ai"},
			urlRes:  []*regexp.Regexp{regexp.MustCompile(`gmgn\.ai/sol/token/` + mintCapture)},
			titleRe: regexp.MustCompile(`^(.+?)\s*[-|]`),
		},
		{
			Name:    "photon",
			hosts:   []string{"photon-sol.tinyastro.io"},
			urlRes:  []*regexp.Regexp{regexp.MustCompile(`photon-sol\.tinyastro\.io/\w+/lp/` + mintCapture)},
			titleRe: regexp.MustCompile(`^(.+?)\s*[-|]`),
		},
		{
			Name:    "rugcheck",
			hosts:   []string{"rugcheck.xyz"},
			urlRes:  []*regexp.Regexp{regexp.MustCompile(`rugcheck\.xyz/tokens/` + mintCapture)},
			titleRe: regexp.MustCompile(`^(.+?)\s*[-|]`),
		},
		{
			Name:    "solscan",
			hosts:   []string{"solscan.io"},
			urlRes:  []*regexp.Regexp{regexp.MustCompile(`solscan\.io/token/` + mintCapture)},
			titleRe: regexp.MustCompile(`^(.+?)\s*[-|]`),
		},
		{
			Name:    "letsbonk",
			hosts:   []string{"letsbonk.fun"},
			urlRes:  []*regexp.Regexp{regexp.MustCompile(`letsbonk\.fun/coin/` + mintCapture)},
			titleRe: regexp.MustCompile(`^(.+?)\s*[-|]`),
		},
		{
			Name:    "believe",
			hosts:   []string{"believe.app"},
			urlRes:  []*regexp.Regexp{regexp.MustCompile(`believe\.app/coin/` + mintCapture)},
			titleRe: regexp.MustCompile(`^(.+?)\s*[-|]`),
		},
		{
			Name:    "solanafm",
			hosts:   []string{"solana.fm"},
			urlRes:  []*regexp.Regexp{regexp.MustCompile(`solana\.fm/address/` + mintCapture)},
			titleRe: regexp.MustCompile(`^(.+?)\s*[-|]`),
		},
		{
			Name:    "solana-explorer",
			hosts:   []string{"explorer.solana.com"},
			urlRes:  []*regexp.Regexp{regexp.MustCompile(`explorer\.solana\.com/address/` + mintCapture)},
			titleRe: regexp.MustCompile(`^(.+?)\s*[-|]`),
		},
		{
			Name:    "phantom",
			hosts:   []string{"phantom.com"},
			urlRes:  []*regexp.Regexp{regexp.MustCompile(`phantom\.com/tokens/solana/` + mintCapture)},
			titleRe: regexp.MustCompile(`^(.+?)\s*[-|]`),
		},
	}
}
