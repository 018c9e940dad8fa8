package extractor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"factsheetgen/internal/domain"
	"factsheetgen/internal/infrastructure/fetch"
)

func longParagraph(topic string) string {
	return "<p>" + strings.Repeat(topic+" products and services for enterprise customers. ", 5) + "</p>"
}

func testOptions() Options {
	return Options{RetryBackoff: 5 * time.Millisecond, MinTextChars: 50, MaxPageChars: 3000}
}

func TestExtractDiscoversAboutAndContact(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>Acme</title></head><body>
		<a href="/company/about">Who we are</a>
		<a href="/contact">Contact us</a>
		` + longParagraph("Homepage") + `</body></html>`))
	})
	mux.HandleFunc("/company/about", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>` + longParagraph("About") + `</body></html>`))
	})
	mux.HandleFunc("/contact", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>` + longParagraph("Contact") + `</body></html>`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	ex := New(fetch.NewClient(2*time.Second, 5), testOptions(), nil)

	pagesSeen := 0
	out, err := ex.Extract(context.Background(), server.URL+"/", func() { pagesSeen++ })
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}

	if pagesSeen != 3 {
		t.Fatalf("expected 3 page callbacks, got %d", pagesSeen)
	}
	if len(out.Attempts) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(out.Attempts))
	}
	if len(out.Pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(out.Pages))
	}

	roles := []domain.PageRole{out.Pages[0].Role, out.Pages[1].Role, out.Pages[2].Role}
	want := []domain.PageRole{domain.RoleHomepage, domain.RoleAbout, domain.RoleContact}
	for i := range want {
		if roles[i] != want[i] {
			t.Fatalf("page %d: want role %s, got %s", i, want[i], roles[i])
		}
	}
}

func TestExtractAboutMissingIsSkippedNotFailed(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>
		<a href="/pricing">Pricing</a>
		` + longParagraph("Homepage") + `</body></html>`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	ex := New(fetch.NewClient(2*time.Second, 5), testOptions(), nil)
	out, err := ex.Extract(context.Background(), server.URL+"/", nil)
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if len(out.Attempts) != 1 {
		t.Fatalf("expected only the homepage attempt, got %d", len(out.Attempts))
	}
	if out.Attempts[0].Status != domain.FetchOK {
		t.Fatalf("unexpected homepage status: %s", out.Attempts[0].Status)
	}
}

func TestExtractAbsorbsNotFoundWithoutRetry(t *testing.T) {
	t.Parallel()

	var aboutHits int32
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>
		<a href="/about">About</a>
		` + longParagraph("Homepage") + `</body></html>`))
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&aboutHits, 1)
		http.NotFound(w, r)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	ex := New(fetch.NewClient(2*time.Second, 5), testOptions(), nil)
	out, err := ex.Extract(context.Background(), server.URL+"/", nil)
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}

	if got := atomic.LoadInt32(&aboutHits); got != 1 {
		t.Fatalf("not_found must never be retried, got %d hits", got)
	}
	if len(out.Attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(out.Attempts))
	}
	if out.Attempts[1].Status != domain.FetchNotFound {
		t.Fatalf("expected not_found for about page, got %s", out.Attempts[1].Status)
	}
	if len(out.Pages) != 1 {
		t.Fatalf("expected 1 usable page, got %d", len(out.Pages))
	}
}

func TestExtractRetriesTransientErrorOnce(t *testing.T) {
	t.Parallel()

	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`<html><body>` + longParagraph("Homepage") + `</body></html>`))
	}))
	defer server.Close()

	ex := New(fetch.NewClient(2*time.Second, 5), testOptions(), nil)
	out, err := ex.Extract(context.Background(), server.URL+"/", nil)
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}

	if got := atomic.LoadInt32(&hits); got != 2 {
		t.Fatalf("expected exactly one retry (2 hits), got %d", got)
	}
	if out.Attempts[0].Status != domain.FetchOK {
		t.Fatalf("expected ok after retry, got %s", out.Attempts[0].Status)
	}
}

func TestExtractBlockedNotRetried(t *testing.T) {
	t.Parallel()

	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	ex := New(fetch.NewClient(2*time.Second, 5), testOptions(), nil)
	out, err := ex.Extract(context.Background(), server.URL+"/", nil)
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}

	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("blocked must never be retried, got %d hits", got)
	}
	if out.Attempts[0].Status != domain.FetchBlocked {
		t.Fatalf("expected blocked, got %s", out.Attempts[0].Status)
	}
	if len(out.Pages) != 0 {
		t.Fatalf("expected no usable pages")
	}
}

func TestExtractNearEmptyPageBecomesError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><p>hi</p></body></html>`))
	}))
	defer server.Close()

	ex := New(fetch.NewClient(2*time.Second, 5), testOptions(), nil)
	out, err := ex.Extract(context.Background(), server.URL+"/", nil)
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}

	// The fetch succeeded but the content is useless for bundling.
	if out.Attempts[0].Status != domain.FetchError {
		t.Fatalf("expected error status for near-empty page, got %s", out.Attempts[0].Status)
	}
	if len(out.Pages) != 0 {
		t.Fatalf("expected no usable pages")
	}
}

func TestFindAboutURLSynonyms(t *testing.T) {
	t.Parallel()

	base, _ := url.Parse("https://acme.test/")
	cases := []struct {
		html string
		want string
	}{
		{`<a href="/our-story">Our story</a>`, "https://acme.test/our-story"},
		{`<a href="/team">Who we are</a>`, "https://acme.test/team"},
		{`<a href="https://other.test/about">About</a>`, ""}, // off-site
		{`<a href="/pricing">Pricing</a>`, ""},
	}

	for _, tc := range cases {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader("<html><body>" + tc.html + "</body></html>"))
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if got := FindAboutURL(doc, base); got != tc.want {
			t.Fatalf("html %q: want %q, got %q", tc.html, tc.want, got)
		}
	}
}
