package storage

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/publicsuffix"

	"factsheetgen/internal/domain"
	"factsheetgen/internal/ports"
)

// ErrNotFound reports a factsheet filename with no file behind it.
var ErrNotFound = errors.New("factsheet not found")

var slugExpr = regexp.MustCompile(`[^a-z0-9]+`)

// FileStore persists finished factsheets as Markdown files in one
// directory and serves listings to the dashboard and CLI.
type FileStore struct {
	dir string
}

var _ ports.FactsheetFiles = (*FileStore)(nil)

// NewFileStore wires the output directory; it is created on first save.
func NewFileStore(dir string) *FileStore {
	if dir == "" {
		dir = "factsheets"
	}
	return &FileStore{dir: dir}
}

// Save writes the document under a slug derived from the site's
// registrable domain, e.g. stripe.md for https://stripe.com.
func (s *FileStore) Save(result domain.FactsheetResult) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create factsheets dir: %w", err)
	}

	filename := Slugify(CompanyName(result.SourceURL)) + ".md"
	path := filepath.Join(s.dir, filename)
	if err := os.WriteFile(path, []byte(result.MarkdownText), 0o644); err != nil {
		return "", fmt.Errorf("write factsheet: %w", err)
	}
	return filename, nil
}

// List returns metadata for every stored factsheet, newest first.
func (s *FileStore) List() ([]ports.FactsheetMeta, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read factsheets dir: %w", err)
	}

	var metas []ports.FactsheetMeta
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		meta, _, err := s.Read(entry.Name())
		if err != nil {
			continue
		}
		metas = append(metas, meta)
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].CreatedAt.After(metas[j].CreatedAt)
	})
	return metas, nil
}

// Read loads one factsheet with its metadata.
func (s *FileStore) Read(filename string) (ports.FactsheetMeta, string, error) {
	path := filepath.Join(s.dir, filepath.Base(filename))
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ports.FactsheetMeta{}, "", ErrNotFound
		}
		return ports.FactsheetMeta{}, "", fmt.Errorf("read factsheet: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return ports.FactsheetMeta{}, "", fmt.Errorf("stat factsheet: %w", err)
	}

	content := string(raw)
	stem := strings.TrimSuffix(filepath.Base(filename), ".md")
	meta := ports.FactsheetMeta{
		Filename:    filepath.Base(filename),
		CompanyName: capitalize(stem),
		SourceURL:   extractSourceURL(content),
		WordCount:   len(strings.Fields(content)),
		CreatedAt:   info.ModTime(),
		SizeBytes:   info.Size(),
	}
	return meta, content, nil
}

// Delete removes one stored factsheet.
func (s *FileStore) Delete(filename string) error {
	path := filepath.Join(s.dir, filepath.Base(filename))
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete factsheet: %w", err)
	}
	return nil
}

// CompanyName derives a display name from the registrable domain of the
// source URL: "stripe" from https://www.stripe.com/payments.
func CompanyName(sourceURL string) string {
	u, err := url.Parse(sourceURL)
	if err != nil || u.Hostname() == "" {
		return "factsheet"
	}
	host := u.Hostname()
	if registrable, psErr := publicsuffix.EffectiveTLDPlusOne(host); psErr == nil {
		host = registrable
	}
	host = strings.TrimPrefix(host, "www.")
	if name, _, ok := strings.Cut(host, "."); ok && name != "" {
		return name
	}
	return host
}

// Slugify lowercases and strips a name down to a safe filename stem.
func Slugify(name string) string {
	slug := slugExpr.ReplaceAllString(strings.ToLower(name), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "factsheet"
	}
	return slug
}

// extractSourceURL pulls the website link out of the document head lines.
func extractSourceURL(content string) string {
	lines := strings.Split(content, "\n")
	if len(lines) > 20 {
		lines = lines[:20]
	}
	for _, line := range lines {
		if idx := strings.Index(line, "http"); idx >= 0 {
			rest := line[idx:]
			end := strings.IndexAny(rest, " )]\t")
			if end == -1 {
				end = len(rest)
			}
			return strings.TrimRight(rest[:end], "*_/")
		}
	}
	return ""
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
