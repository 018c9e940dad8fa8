package synth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"factsheetgen/internal/domain"
)

// Limits defines the target word range stated in the prompt and the wider
// band a response must land in to be accepted.
type Limits struct {
	TargetMin int
	TargetMax int
	AcceptMin int
	AcceptMax int
}

// Engine builds the constrained prompt, invokes a completion backend, and
// validates/repairs the response against the document schema.
type Engine struct {
	registry *Registry
	schema   domain.DocumentSchema
	limits   Limits
	logger   *slog.Logger
}

// NewEngine wires a backend registry with the schema and word limits.
func NewEngine(registry *Registry, schema domain.DocumentSchema, limits Limits, logger *slog.Logger) *Engine {
	if limits.TargetMin <= 0 {
		limits = Limits{TargetMin: 600, TargetMax: 1000, AcceptMin: 400, AcceptMax: 1400}
	}
	return &Engine{registry: registry, schema: schema, limits: limits, logger: logger}
}

// Synthesize produces a FactsheetResult from the bundle. An empty bundle
// takes the degraded path: a document of fallback phrases, no model call.
// A response outside the acceptance band triggers exactly one corrective
// regeneration; a second miss is a synthesis failure.
func (e *Engine) Synthesize(ctx context.Context, bundle domain.ContentBundle, modelID string) (domain.FactsheetResult, error) {
	if bundle.Empty {
		e.debug("empty bundle, producing degraded factsheet", "url", bundle.SourceURL)
		return e.degraded(bundle, modelID), nil
	}

	client, model, err := e.registry.Resolve(modelID)
	if err != nil {
		return domain.FactsheetResult{}, err
	}

	prompt := BuildPrompt(bundle, e.schema, e.limits.TargetMin, e.limits.TargetMax)

	// Bounded-attempt loop: one call plus at most one corrective retry.
	var text string
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		raw, callErr := client.Complete(ctx, model, prompt)
		if callErr != nil {
			if ctx.Err() != nil {
				return domain.FactsheetResult{}, ctx.Err()
			}
			e.debug("completion call failed", "attempt", attempt+1, "error", callErr)
			lastErr = callErr
			continue
		}

		text = CleanOutput(raw)
		words := WordCount(text)
		if words == 0 {
			e.debug("empty completion response", "attempt", attempt+1)
			lastErr = fmt.Errorf("completion backend returned empty response")
			continue
		}
		if words < e.limits.AcceptMin || words > e.limits.AcceptMax {
			e.debug("response outside acceptance band", "attempt", attempt+1, "words", words)
			lastErr = fmt.Errorf("response length %d words outside acceptable band [%d,%d]", words, e.limits.AcceptMin, e.limits.AcceptMax)
			prompt = AmendPrompt(prompt, words, e.limits.TargetMin, e.limits.TargetMax)
			text = ""
			continue
		}

		lastErr = nil
		break
	}
	if lastErr != nil {
		return domain.FactsheetResult{}, fmt.Errorf("synthesize factsheet: %w", lastErr)
	}

	produced := detectSections(text, e.schema)
	text = e.repairSections(text, produced)

	return domain.FactsheetResult{
		MarkdownText:    text,
		WordCount:       WordCount(text),
		SectionsPresent: detectSections(text, e.schema),
		SourceURL:       bundle.SourceURL,
		ModelIdentifier: modelID,
		GeneratedAt:     time.Now(),
	}, nil
}

// repairSections inserts the fallback text for every schema section the
// model left out, rather than failing the whole document.
func (e *Engine) repairSections(text string, produced []string) string {
	have := map[string]bool{}
	for _, name := range produced {
		have[name] = true
	}

	var sb strings.Builder
	sb.WriteString(strings.TrimRight(text, "\n"))
	for _, section := range e.schema.Sections {
		if have[section.Name] {
			continue
		}
		e.debug("section missing from response, inserting fallback", "section", section.Name)
		fmt.Fprintf(&sb, "\n\n## %s\n%s", section.Name, section.Fallback)
	}
	sb.WriteString("\n")
	return sb.String()
}

// degraded builds the defined non-error output for sites where no content
// could be fetched: every section carries its fallback phrase.
func (e *Engine) degraded(bundle domain.ContentBundle, modelID string) domain.FactsheetResult {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", e.schema.Title)
	fmt.Fprintf(&sb, "**Website:** %s\n\n", bundle.SourceURL)
	sb.WriteString("_No site content was available; all sections use fallback values._\n")
	for _, section := range e.schema.Sections {
		fmt.Fprintf(&sb, "\n## %s\n%s\n", section.Name, section.Fallback)
	}

	text := sb.String()
	return domain.FactsheetResult{
		MarkdownText:    text,
		WordCount:       WordCount(text),
		SectionsPresent: detectSections(text, e.schema),
		SourceURL:       bundle.SourceURL,
		ModelIdentifier: modelID,
		GeneratedAt:     time.Now(),
	}
}

// detectSections returns schema section names matched by heading in the text.
func detectSections(text string, schema domain.DocumentSchema) []string {
	headings := map[string]bool{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "#") {
			continue
		}
		heading := strings.ToLower(strings.TrimSpace(strings.TrimLeft(line, "#")))
		headings[heading] = true
	}

	var present []string
	for _, section := range schema.Sections {
		want := strings.ToLower(section.Name)
		for heading := range headings {
			if strings.Contains(heading, want) {
				present = append(present, section.Name)
				break
			}
		}
	}
	return present
}

// CleanOutput strips code-fence markers the model should not have emitted
// and collapses duplicate factsheet titles.
func CleanOutput(raw string) string {
	text := strings.ReplaceAll(raw, "```markdown", "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)

	var lines []string
	titleSeen := false
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") && strings.Contains(trimmed, "Factsheet") {
			if titleSeen {
				continue
			}
			titleSeen = true
		}
		lines = append(lines, trimmed)
	}
	return strings.Join(lines, "\n")
}

// WordCount is the authoritative whitespace-delimited token count; the
// pipeline never trusts a count reported by the service.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

func (e *Engine) debug(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}
