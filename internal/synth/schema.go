package synth

import "factsheetgen/internal/domain"

// FallbackPhrase is emitted for any section whose information is not
// extractable from the supplied site content.
const FallbackPhrase = "Not specified"

// DefaultSchema is the fixed section contract for sales factsheets.
// Static configuration: never derived from input.
func DefaultSchema() domain.DocumentSchema {
	return domain.DocumentSchema{
		Title: "Sales Intelligence Factsheet",
		Sections: []domain.SchemaSection{
			{
				Name:        "Overview",
				Description: "Company name, website, mission or tagline, and what the company does in plain terms. Look for taglines, about messaging, and purpose statements.",
				Fallback:    FallbackPhrase,
			},
			{
				Name:        "Offerings",
				Description: "Concrete products and services, with pricing or packaging details when stated. Infer the business model from how they sell and operate.",
				Fallback:    FallbackPhrase,
			},
			{
				Name:        "Market Position",
				Description: "Target customers, industries served, named clients or partners, and competitive positioning claims made on the site.",
				Fallback:    FallbackPhrase,
			},
			{
				Name:        "Sales Insights",
				Description: "Pain points their solutions specifically solve, buying signals, and two or three conversation starters grounded in their actual products, never generic templates.",
				Fallback:    FallbackPhrase,
			},
			{
				Name:        "Key Takeaways",
				Description: "Three to five bullet points a seller should remember before a first call.",
				Fallback:    FallbackPhrase,
			},
		},
	}
}
