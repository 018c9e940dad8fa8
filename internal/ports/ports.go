package ports

import (
	"context"
	"time"

	"factsheetgen/internal/domain"
)

// PageFetcher retrieves one URL within a bounded timeout and redirect cap.
// Non-2xx statuses are returned, not turned into errors; the extractor maps
// them to typed fetch statuses and never raises them as hard failures.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (body string, status int, err error)
}

// TextCompleter is any text-generation backend: prompt in, text out.
// Backend substitution never changes engine logic.
type TextCompleter interface {
	Complete(ctx context.Context, model, prompt string) (string, error)
}

// FactsheetRepository persists generated-factsheet records for
// deduplication and audit.
type FactsheetRepository interface {
	AlreadyGenerated(ctx context.Context, sourceURL string) (bool, error)
	SaveGenerated(ctx context.Context, result domain.FactsheetResult, filename string) error
}

// FactsheetMeta describes one stored factsheet file.
type FactsheetMeta struct {
	Filename    string
	CompanyName string
	SourceURL   string
	WordCount   int
	CreatedAt   time.Time
	SizeBytes   int64
}

// FactsheetFiles stores finished documents on disk and serves listings
// to the dashboard and CLI.
type FactsheetFiles interface {
	Save(result domain.FactsheetResult) (filename string, err error)
	List() ([]FactsheetMeta, error)
	Read(filename string) (FactsheetMeta, string, error)
	Delete(filename string) error
}
