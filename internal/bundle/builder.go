// Package bundle merges per-page extractions into one normalized
// ContentBundle. Pure and deterministic: no I/O, no clock.
package bundle

import (
	"sort"

	"factsheetgen/internal/domain"
)

var rolePriority = map[domain.PageRole]int{
	domain.RoleHomepage: 0,
	domain.RoleAbout:    1,
	domain.RoleContact:  2,
}

// Build assembles the bundle for one site. Pages are ordered homepage
// first, then about, then others in fetch order. maxChars is the global
// ceiling across all page text; when exceeded, later pages are truncated
// or dropped before earlier ones and Truncated is set. Zero usable pages
// yields an Empty bundle, never a failure.
func Build(sourceURL string, pages []domain.PageContent, maxChars int) domain.ContentBundle {
	b := domain.ContentBundle{SourceURL: sourceURL}

	if len(pages) == 0 {
		b.Empty = true
		return b
	}

	ordered := make([]domain.PageContent, len(pages))
	copy(ordered, pages)
	sort.SliceStable(ordered, func(i, j int) bool {
		return priority(ordered[i].Role) < priority(ordered[j].Role)
	})

	total := 0
	for _, page := range ordered {
		if maxChars > 0 && total >= maxChars {
			b.Truncated = true
			break
		}
		kept, chars, cut := capPage(page, maxChars-total, maxChars > 0)
		if cut {
			b.Truncated = true
		}
		if chars == 0 {
			continue
		}
		b.Pages = append(b.Pages, kept)
		total += chars
	}

	b.TotalChars = total
	if len(b.Pages) == 0 {
		b.Empty = true
	}
	return b
}

// capPage trims a page's blocks to the remaining budget. Reports whether
// anything was cut.
func capPage(page domain.PageContent, budget int, capped bool) (domain.PageContent, int, bool) {
	if !capped {
		return page, page.ByteLength, false
	}

	kept := page
	kept.TextBlocks = nil
	total := 0
	cut := false
	for _, block := range page.TextBlocks {
		if total >= budget {
			cut = true
			break
		}
		if total+len(block) > budget {
			block = block[:budget-total]
			cut = true
		}
		kept.TextBlocks = append(kept.TextBlocks, block)
		total += len(block)
	}
	kept.ByteLength = total
	return kept, total, cut
}

func priority(role domain.PageRole) int {
	if p, ok := rolePriority[role]; ok {
		return p
	}
	return len(rolePriority)
}
