package extract

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

// Well-known mints used as fixtures.
const (
	mintUSDC = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	mintBONK = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
	mintWSOL = "So11111111111111111111111111111111111111112"
)

func TestRegistry_URLExtraction(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		hostname string
		url      string
		want     string
	}{
		{"pump.fun", "https://pump.fun/coin/" + mintBONK, mintBONK},
		{"www.pump.fun", "https://www.pump.fun/coin/" + mintBONK, mintBONK},
		{"raydium.io", "https://raydium.io/swap/?outputCurrency=" + mintUSDC, mintUSDC},
		{"raydium.io", "https://raydium.io/launchpad/token/" + mintBONK, mintBONK},
		{"jup.ag", "https://jup.ag/swap/SOL-" + mintUSDC, mintUSDC},
		{"birdeye.so", "https://birdeye.so/token/" + mintBONK, mintBONK},
		{"birdeye.so", "https://birdeye.so/solana/token/" + mintBONK, mintBONK},
		{"gmgn.ai", "https://gmgn.ai/sol/token/" + mintBONK, mintBONK},
		{"photon-sol.tinyastro.io", "https://photon-sol.tinyastro.io/en/lp/" + mintBONK, mintBONK},
		{"rugcheck.xyz", "https://rugcheck.xyz/tokens/" + mintBONK, mintBONK},
		{"solscan.io", "https://solscan.io/token/" + mintUSDC, mintUSDC},
		{"letsbonk.fun", "https://letsbonk.fun/coin/" + mintBONK, mintBONK},
		{"believe.app", "https://believe.app/coin/" + mintBONK, mintBONK},
		{"solana.fm", "https://solana.fm/address/" + mintUSDC, mintUSDC},
		{"explorer.solana.com", "https://explorer.solana.com/address/" + mintUSDC, mintUSDC},
		{"phantom.com", "https://phantom.com/tokens/solana/" + mintBONK, mintBONK},
		// No mint in URL
		{"pump.fun", "https://pump.fun/board", ""},
		{"jup.ag", "https://jup.ag/", ""},
		// Capture that is not valid base58 (contains 0 and l)
		{"pump.fun", "https://pump.fun/coin/0000000000000000000000000000000000000000", ""},
	}

	for _, tt := range tests {
		t.Run(tt.hostname+" "+tt.url, func(t *testing.T) {
			a := r.ForHostname(tt.hostname)
			if a == nil {
				t.Fatalf("no adapter for %s", tt.hostname)
			}
			if got := a.FromURL(tt.url); got != tt.want {
				t.Errorf("FromURL(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestRegistry_UnknownHostname(t *testing.T) {
	r := NewRegistry()
	if a := r.ForHostname("example.com"); a != nil {
		t.Errorf("expected nil adapter for unknown host, got %s", a.Name)
	}
}

func TestDexScreener_DOMOnly(t *testing.T) {
	r := NewRegistry()
	a := r.ForHostname("dexscreener.com")
	if a == nil {
		t.Fatal("no adapter for dexscreener.com")
	}
	if !a.DOMOnly() {
		t.Error("dexscreener must be DOM-only")
	}
	// URL carries a pair address, never trusted
	if got := a.FromURL("https://dexscreener.com/solana/" + mintBONK); got != "" {
		t.Errorf("FromURL on DOM-only site = %q, want empty", got)
	}
}

func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return doc
}

func TestDexScreener_SolscanLinkWins(t *testing.T) {
	// Canonical solscan link plus later conflicting free text: the link
	// value must win (priority order holds).
	html := `<html><body>
		<a href="https://solscan.io/token/` + mintUSDC + `">Solscan</a>
		<div class="token-info"><a>` + mintBONK + `</a></div>
	</body></html>`

	a := NewRegistry().ForHostname("dexscreener.com")
	got := a.FromDOM(parseDoc(t, html))
	if got != mintUSDC {
		t.Errorf("FromDOM = %q, want solscan link value %q", got, mintUSDC)
	}
}

func TestDexScreener_ExplorerFallback(t *testing.T) {
	html := `<html><body>
		<a href="https://explorer.solana.com/address/` + mintBONK + `">Explorer</a>
	</body></html>`

	a := NewRegistry().ForHostname("dexscreener.com")
	if got := a.FromDOM(parseDoc(t, html)); got != mintBONK {
		t.Errorf("FromDOM = %q, want %q", got, mintBONK)
	}
}

func TestDexScreener_ScopedTextFallback(t *testing.T) {
	// No explorer links at all: literal base58 text inside token/pair
	// regions is the last resort. Text outside those regions is ignored.
	html := `<html><body>
		<p>` + mintUSDC + `</p>
		<div class="pair-info-panel"><a>` + mintBONK + `</a></div>
	</body></html>`

	a := NewRegistry().ForHostname("dexscreener.com")
	if got := a.FromDOM(parseDoc(t, html)); got != mintBONK {
		t.Errorf("FromDOM = %q, want scoped text value %q", got, mintBONK)
	}
}

func TestDexScreener_NothingFound(t *testing.T) {
	a := NewRegistry().ForHostname("dexscreener.com")
	if got := a.FromDOM(parseDoc(t, "<html><body><p>no tokens here</p></body></html>")); got != "" {
		t.Errorf("FromDOM = %q, want empty", got)
	}
}

func TestDisplayName(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		hostname string
		title    string
		html     string
		want     string
	}{
		{"dexscreener.com", "BONK / SOL | DEX Screener", "", "BONK"},
		{"pump.fun", "ignored", "<h1>Moon Cat</h1>", "Moon Cat"},
		{"pump.fun", "Moon Cat - pump.fun", "<div></div>", "Moon Cat"},
		{"birdeye.so", "BONK Price | Birdeye", "", "BONK"},
		{"gmgn.ai", "BONK (BONK) - GMGN", "", "BONK (BONK)"},
		{"solscan.io", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.hostname, func(t *testing.T) {
			a := r.ForHostname(tt.hostname)
			if a == nil {
				t.Fatalf("no adapter for %s", tt.hostname)
			}
			var doc *goquery.Document
			if tt.html != "" {
				doc = parseDoc(t, tt.html)
			}
			if got := a.DisplayName(doc, tt.title); got != tt.want {
				t.Errorf("DisplayName = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAddresses(t *testing.T) {
	text := "aping " + mintBONK + " and also " + mintUSDC + " again " + mintBONK
	got := Addresses(text)
	if len(got) != 2 {
		t.Fatalf("expected 2 distinct addresses, got %d: %v", len(got), got)
	}
	if got[0] != mintBONK || got[1] != mintUSDC {
		t.Errorf("order of first appearance not preserved: %v", got)
	}

	if got := Addresses("no addresses in here, just words"); got != nil {
		t.Errorf("expected nil for plain text, got %v", got)
	}
	if got := Addresses(""); got != nil {
		t.Errorf("expected nil for empty text, got %v", got)
	}
}
