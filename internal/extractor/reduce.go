package extractor

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"factsheetgen/internal/domain"
)

var whitespaceExpr = regexp.MustCompile(`\s+`)

// blockSelector enumerates the block-level tags that bound text units.
const blockSelector = "h1, h2, h3, h4, h5, h6, p, li, td, th, blockquote, pre, figcaption"

// boilerplateSelector matches structural markup carrying no page content.
const boilerplateSelector = "script, style, noscript, template, nav, header, footer, aside, form, iframe, svg"

// Reduce turns raw HTML into a PageContent: title and meta description,
// boilerplate stripped, visible text concatenated in document order and
// segmented into block units, total capped at maxChars.
func Reduce(rawHTML, pageURL string, role domain.PageRole, maxChars int) (domain.PageContent, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return domain.PageContent{}, err
	}

	content := domain.PageContent{
		URL:      pageURL,
		Role:     role,
		Title:    collapse(doc.Find("title").First().Text()),
		MetaDesc: metaDescription(doc),
	}

	doc.Find(boilerplateSelector).Remove()

	total := 0
	doc.Find(blockSelector).EachWithBreak(func(i int, sel *goquery.Selection) bool {
		// Skip containers whose text is already covered by nested blocks.
		if sel.Find(blockSelector).Length() > 0 {
			return true
		}
		text := collapse(sel.Text())
		if text == "" {
			return true
		}
		if maxChars > 0 && total+len(text) > maxChars {
			if remain := maxChars - total; remain > 0 {
				content.TextBlocks = append(content.TextBlocks, text[:remain])
				total = maxChars
			}
			return false
		}
		content.TextBlocks = append(content.TextBlocks, text)
		total += len(text)
		return true
	})

	// Messy markup (text outside block tags, div soups) can defeat the
	// structural pass; fall back to readability's main-content extraction.
	if total == 0 {
		content.TextBlocks, total = readableBlocks(rawHTML, pageURL, maxChars)
	}

	content.ByteLength = total
	return content, nil
}

func readableBlocks(rawHTML, pageURL string, maxChars int) ([]string, int) {
	parsedURL, _ := url.Parse(pageURL)
	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		return nil, 0
	}

	var blocks []string
	total := 0
	for _, line := range strings.Split(article.TextContent, "\n") {
		text := collapse(line)
		if text == "" {
			continue
		}
		if maxChars > 0 && total+len(text) > maxChars {
			if remain := maxChars - total; remain > 0 {
				blocks = append(blocks, text[:remain])
				total = maxChars
			}
			break
		}
		blocks = append(blocks, text)
		total += len(text)
	}
	return blocks, total
}

func metaDescription(doc *goquery.Document) string {
	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		return collapse(desc)
	}
	if desc, ok := doc.Find(`meta[property="og:description"]`).Attr("content"); ok {
		return collapse(desc)
	}
	return ""
}

func collapse(s string) string {
	return strings.TrimSpace(whitespaceExpr.ReplaceAllString(s, " "))
}
