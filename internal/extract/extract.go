// Package extract maps page URLs and rendered DOM snapshots for known
// token sites to canonical token mint addresses. Extraction never blocks
// and never fails hard: an unrecognized page simply yields no mint.
package extract

import (
	"regexp"

	"github.com/PuerkitoBio/goquery"

	"swarmlink/internal/domain"
)

// mintCapture is the capture class used inside site URL patterns. Looser
// than the base58 alphabet on purpose; every capture is re-validated with
// domain.ValidMint before use.
const mintCapture = `([A-Za-z0-9]{32,44})`

// SiteAdapter extracts a token mint for one supported site. Extraction
// strategy (URL vs DOM) is a per-site policy, not a fallback chain: a
// DOM-only site never trusts its URL, which may carry a pair address.
type SiteAdapter struct {
	Name    string
	hosts   []string
	urlRes  []*regexp.Regexp
	domFn   func(doc *goquery.Document) string
	domOnly bool

	// Display-name extraction, best-effort.
	titleRe *regexp.Regexp
	useH1   bool
}

// Match reports whether this adapter handles the hostname.
func (a *SiteAdapter) Match(hostname string) bool {
	for _, h := range a.hosts {
		if hostname == h || hasSuffixHost(hostname, h) {
			return true
		}
	}
	return false
}

// DOMOnly reports whether the site requires DOM extraction (URL encodes
// an unrelated pair address, not the token mint).
func (a *SiteAdapter) DOMOnly() bool {
	return a.domOnly
}

// FromURL extracts the mint from the page URL. Returns "" for DOM-only
// sites and for URLs that do not embed a valid mint.
func (a *SiteAdapter) FromURL(pageURL string) string {
	if a.domOnly {
		return ""
	}
	for _, re := range a.urlRes {
		if m := re.FindStringSubmatch(pageURL); m != nil && domain.ValidMint(m[1]) {
			return m[1]
		}
	}
	return ""
}

// FromDOM extracts the mint from a rendered document. Returns "" for
// sites whose policy is URL extraction.
func (a *SiteAdapter) FromDOM(doc *goquery.Document) string {
	if a.domFn == nil || doc == nil {
		return ""
	}
	return a.domFn(doc)
}

// hasSuffixHost matches hostname against a registered host, accepting
// subdomains (www.pump.fun matches pump.fun).
func hasSuffixHost(hostname, host string) bool {
	return len(hostname) > len(host) &&
		hostname[len(hostname)-len(host):] == host &&
		hostname[len(hostname)-len(host)-1] == '.'
}

// Registry holds the per-site adapters, selected once per page load.
type Registry struct {
	adapters []*SiteAdapter
}

// NewRegistry creates a registry with all default site adapters registered.
func NewRegistry() *Registry {
	r := &Registry{}
	for _, a := range defaultAdapters() {
		r.Register(a)
	}
	return r
}

// Register adds an adapter. Later registrations do not shadow earlier
// ones; the first match wins.
func (r *Registry) Register(a *SiteAdapter) {
	r.adapters = append(r.adapters, a)
}

// ForHostname returns the adapter for a hostname, or nil if the site is
// not supported.
func (r *Registry) ForHostname(hostname string) *SiteAdapter {
	for _, a := range r.adapters {
		if a.Match(hostname) {
			return a
		}
	}
	return nil
}
