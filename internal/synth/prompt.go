package synth

import (
	"fmt"
	"strings"

	"factsheetgen/internal/domain"
)

// BuildPrompt assembles the single synthesis prompt: site text verbatim,
// every schema section with its requirement and fallback phrase, and the
// hard constraints on length and fabrication.
func BuildPrompt(bundle domain.ContentBundle, schema domain.DocumentSchema, targetMin, targetMax int) string {
	var sb strings.Builder

	sb.WriteString("Create a sales intelligence factsheet in Markdown using only the website content provided below.\n\n")
	fmt.Fprintf(&sb, "Website: %s\n\n", bundle.SourceURL)

	sb.WriteString("Website content:\n")
	for _, page := range bundle.Pages {
		fmt.Fprintf(&sb, "\n--- %s (%s) ---\n", page.Role, page.URL)
		if page.Title != "" {
			fmt.Fprintf(&sb, "Page Title: %s\n", page.Title)
		}
		if page.MetaDesc != "" {
			fmt.Fprintf(&sb, "Meta Description: %s\n", page.MetaDesc)
		}
		sb.WriteString(page.Text())
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "\nStructure the document with a top-level \"# %s\" heading followed by exactly these sections, in order, each as a \"## \" heading:\n", schema.Title)
	for _, section := range schema.Sections {
		fmt.Fprintf(&sb, "\n## %s\n%s\nIf this is genuinely not extractable from the content, write exactly: %s\n", section.Name, section.Description, section.Fallback)
	}

	fmt.Fprintf(&sb, `
CRITICAL RULES:
1. Use SPECIFIC information from the website content above.
2. NO placeholder text like "[Target Market]" and no generic templates.
3. NO fabricated facts. Only use information present in the supplied text.
4. Extract actual company details, not industry generics.
5. Target %d-%d words total.
6. Only use the fallback phrase when information is genuinely not extractable.
`, targetMin, targetMax)

	return sb.String()
}

// AmendPrompt appends the corrective instruction for the single
// regeneration attempt when the first response missed the length band.
func AmendPrompt(prompt string, wordCount, targetMin, targetMax int) string {
	if wordCount < targetMin {
		return prompt + fmt.Sprintf("\nYour previous answer was only %d words. Lengthen it: expand each section with detail from the supplied content until the document reaches %d-%d words.\n", wordCount, targetMin, targetMax)
	}
	return prompt + fmt.Sprintf("\nYour previous answer was %d words. Shorten it: tighten each section until the document fits %d-%d words.\n", wordCount, targetMin, targetMax)
}
