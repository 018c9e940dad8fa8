package domain

import "time"

// FetchStatus classifies a single page fetch attempt.
type FetchStatus string

const (
	FetchOK       FetchStatus = "ok"
	FetchNotFound FetchStatus = "not_found"
	FetchBlocked  FetchStatus = "blocked"
	FetchTimeout  FetchStatus = "timeout"
	FetchError    FetchStatus = "error"
)

// Retryable reports whether a failed fetch is worth one more attempt.
// not_found and blocked are deterministic answers from the site.
func (s FetchStatus) Retryable() bool {
	return s == FetchTimeout || s == FetchError
}

// PageFetchResult records one attempted page fetch. Immutable once produced.
type PageFetchResult struct {
	URL       string
	Status    FetchStatus
	RawHTML   string // present only when Status == FetchOK
	FetchedAt time.Time
}

// PageRole marks the position of a page within the candidate set.
type PageRole string

const (
	RoleHomepage PageRole = "homepage"
	RoleAbout    PageRole = "about"
	RoleContact  PageRole = "contact"
)

// PageContent is the reduced text of one successfully fetched page.
type PageContent struct {
	URL        string
	Role       PageRole
	Title      string
	MetaDesc   string
	TextBlocks []string // reading order preserved
	ByteLength int
}

// Text joins the blocks into one string.
func (p PageContent) Text() string {
	n := 0
	for _, b := range p.TextBlocks {
		n += len(b) + 1
	}
	buf := make([]byte, 0, n)
	for i, b := range p.TextBlocks {
		if i > 0 {
			buf = append(buf, '\n')
		}
		buf = append(buf, b...)
	}
	return string(buf)
}

// ContentBundle is the normalized, size-capped unit handed to synthesis.
// Pages are ordered homepage first. Empty is set instead of dropping the
// bundle when every fetch failed; synthesis still runs a degraded pass.
type ContentBundle struct {
	SourceURL  string
	Pages      []PageContent
	TotalChars int
	Truncated  bool
	Empty      bool
}

// SchemaSection names one required output section with its content
// requirement and the literal phrase to emit when nothing is extractable.
type SchemaSection struct {
	Name        string
	Description string
	Fallback    string
}

// DocumentSchema is the fixed structural contract for the factsheet output.
// Static configuration, never derived from input.
type DocumentSchema struct {
	Title    string
	Sections []SchemaSection
}

// FactsheetResult is the finished document. WordCount is always recomputed
// from MarkdownText by the pipeline, never trusted from the model.
type FactsheetResult struct {
	MarkdownText    string
	WordCount       int
	SectionsPresent []string
	SourceURL       string
	ModelIdentifier string
	GeneratedAt     time.Time
}
