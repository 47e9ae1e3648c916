package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// genericTitleRe covers sites without a registered title pattern.
var genericTitleRe = regexp.MustCompile(`^(.+?)\s*[-|]`)

// DisplayName extracts a best-effort token display name from the page
// title or a heading element. May return ""; absence must not block
// scanning, which falls back to a shortened mint for display.
func (a *SiteAdapter) DisplayName(doc *goquery.Document, title string) string {
	if a.useH1 && doc != nil {
		if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
			return h1
		}
	}

	re := a.titleRe
	if re == nil {
		re = genericTitleRe
	}
	if m := re.FindStringSubmatch(title); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}
