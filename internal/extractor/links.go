package extractor

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Link-text synonym sets for candidate page discovery. Sites using uncommon
// non-English link text fall outside this list and are simply skipped.
var (
	aboutTexts   = []string{"about", "who we are", "our story", "company"}
	aboutHrefs   = []string{"about", "about-us", "company", "our-story"}
	contactTexts = []string{"contact", "contact us", "locations", "find us"}
)

// findCandidate scans homepage anchors for the first link whose visible text
// or href path matches the synonym set, resolved against the base URL.
func findCandidate(doc *goquery.Document, base *url.URL, texts, hrefs []string) string {
	var found string
	doc.Find("a[href]").EachWithBreak(func(i int, link *goquery.Selection) bool {
		href, _ := link.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "javascript:") {
			return true
		}

		text := strings.ToLower(strings.TrimSpace(link.Text()))
		lowerHref := strings.ToLower(href)

		matched := false
		for _, t := range texts {
			if text == t || strings.Contains(text, t) {
				matched = true
				break
			}
		}
		if !matched {
			for _, h := range hrefs {
				if strings.Contains(lowerHref, h) {
					matched = true
					break
				}
			}
		}
		if !matched {
			return true
		}

		ref, err := url.Parse(href)
		if err != nil {
			return true
		}
		resolved := base.ResolveReference(ref)
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return true
		}
		// Same-site pages only; outbound "about" links are noise.
		if resolved.Host != base.Host {
			return true
		}

		found = resolved.String()
		return false
	})
	return found
}

// FindAboutURL locates an "about"-style page from homepage links.
// Returns "" when no link matches; the about fetch is then skipped.
func FindAboutURL(doc *goquery.Document, base *url.URL) string {
	return findCandidate(doc, base, aboutTexts, aboutHrefs)
}

// FindContactURL locates a "contact"/"locations" page from homepage links.
func FindContactURL(doc *goquery.Document, base *url.URL) string {
	return findCandidate(doc, base, contactTexts, nil)
}
