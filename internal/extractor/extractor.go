package extractor

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"factsheetgen/internal/domain"
	"factsheetgen/internal/ports"
)

// Options bounds fetching and text reduction.
type Options struct {
	RetryBackoff time.Duration
	MinTextChars int
	MaxPageChars int
}

// SiteExtraction is the outcome of one site's page set: every attempt
// recorded, plus reduced content for the pages that yielded usable text.
type SiteExtraction struct {
	Attempts []domain.PageFetchResult
	Pages    []domain.PageContent
}

// Extractor fetches the bounded candidate page set for one site and reduces
// each successful fetch to clean text. Per-page failures are absorbed into
// typed statuses; only context cancellation aborts the whole extraction.
type Extractor struct {
	fetcher ports.PageFetcher
	opts    Options
	logger  *slog.Logger
}

// New wires a page fetcher with reduction options.
func New(fetcher ports.PageFetcher, opts Options, logger *slog.Logger) *Extractor {
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 500 * time.Millisecond
	}
	if opts.MinTextChars <= 0 {
		opts.MinTextChars = 50
	}
	if opts.MaxPageChars <= 0 {
		opts.MaxPageChars = 3000
	}
	return &Extractor{fetcher: fetcher, opts: opts, logger: logger}
}

// Extract walks homepage, discovered about page, and optional contact page.
// onPage fires after every resolved attempt so the caller can report
// progress. The context is checked between page fetches; its error is the
// only way Extract fails.
func (e *Extractor) Extract(ctx context.Context, siteURL string, onPage func()) (SiteExtraction, error) {
	base, err := url.Parse(siteURL)
	if err != nil {
		return SiteExtraction{}, err
	}

	var out SiteExtraction

	home := e.fetchWithRetry(ctx, siteURL)
	e.record(&out, home, domain.RoleHomepage)
	if onPage != nil {
		onPage()
	}

	var aboutURL, contactURL string
	if home.Status == domain.FetchOK {
		if doc, docErr := goquery.NewDocumentFromReader(strings.NewReader(home.RawHTML)); docErr == nil {
			aboutURL = FindAboutURL(doc, base)
			contactURL = FindContactURL(doc, base)
		}
	}
	if contactURL == aboutURL {
		contactURL = ""
	}

	for _, candidate := range []struct {
		url  string
		role domain.PageRole
	}{
		{aboutURL, domain.RoleAbout},
		{contactURL, domain.RoleContact},
	} {
		if candidate.url == "" {
			e.debug("candidate page not discovered, skipping", "role", candidate.role, "site", siteURL)
			continue
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}
		res := e.fetchWithRetry(ctx, candidate.url)
		e.record(&out, res, candidate.role)
		if onPage != nil {
			onPage()
		}
	}

	return out, ctx.Err()
}

// record appends the attempt and, when usable text came out, its reduced
// content. Near-empty pages are downgraded to error status: they fetched,
// but offer no signal for bundling.
func (e *Extractor) record(out *SiteExtraction, res domain.PageFetchResult, role domain.PageRole) {
	if res.Status == domain.FetchOK {
		content, err := Reduce(res.RawHTML, res.URL, role, e.opts.MaxPageChars)
		switch {
		case err != nil:
			e.debug("reduce failed", "url", res.URL, "error", err)
			res.Status = domain.FetchError
			res.RawHTML = ""
		case content.ByteLength < e.opts.MinTextChars:
			e.debug("page text below minimum", "url", res.URL, "chars", content.ByteLength)
			res.Status = domain.FetchError
			res.RawHTML = ""
		default:
			out.Pages = append(out.Pages, content)
		}
	}
	out.Attempts = append(out.Attempts, res)
	e.debug("page attempt resolved", "url", res.URL, "status", res.Status)
}

// fetchWithRetry performs one fetch plus at most one retry for timeout and
// transient error classes, with a fixed backoff. not_found and blocked are
// deterministic and never retried.
func (e *Extractor) fetchWithRetry(ctx context.Context, pageURL string) domain.PageFetchResult {
	res := e.fetchOnce(ctx, pageURL)
	if !res.Status.Retryable() || ctx.Err() != nil {
		return res
	}

	select {
	case <-ctx.Done():
		return res
	case <-time.After(e.opts.RetryBackoff):
	}

	e.debug("retrying page", "url", pageURL, "status", res.Status)
	return e.fetchOnce(ctx, pageURL)
}

func (e *Extractor) fetchOnce(ctx context.Context, pageURL string) domain.PageFetchResult {
	res := domain.PageFetchResult{URL: pageURL, FetchedAt: time.Now()}

	body, status, err := e.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		res.Status = classifyFetchError(err)
		return res
	}

	switch {
	case status >= 200 && status < 300:
		res.Status = domain.FetchOK
		res.RawHTML = body
	case status == 404 || status == 410:
		res.Status = domain.FetchNotFound
	case status == 401 || status == 403 || status == 429:
		res.Status = domain.FetchBlocked
	default:
		res.Status = domain.FetchError
	}
	return res
}

func classifyFetchError(err error) domain.FetchStatus {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.FetchTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.FetchTimeout
	}
	return domain.FetchError
}

func (e *Extractor) debug(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}
